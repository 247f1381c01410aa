// Copyright 2015 Google Inc. All rights reserved
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package forge

import (
	"bufio"
	"bytes"
	"fmt"
	"os"
	"strings"

	"github.com/golang/glog"
	"github.com/google/renameio"
)

// DynamicFileName is the persistent DB of dynamically discovered
// dependencies recorded by the previous run, relative to the output
// directory (§6.4).
const DynamicFileName = "gib.dynamic"

// LoadDynamicDeps reads <outdir>/gib.dynamic into g, creating any
// referenced node on demand, same as LoadStamps. A missing file is not
// an error.
func LoadDynamicDeps(g *Graph, outdir string) error {
	data, err := os.ReadFile(outdir + "/" + DynamicFileName)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}
	s := bufio.NewScanner(bytes.NewReader(data))
	s.Buffer(nil, 1<<20)

	var out *Node
	lineno := 0
	for s.Scan() {
		lineno++
		line := s.Text()
		if strings.TrimSpace(line) == "" {
			out = nil
			continue
		}
		verb, rest := fetchWord(line)
		name := strings.TrimSpace(rest)
		switch verb {
		case "out":
			out = g.add(name)
		case "dep":
			if out == nil {
				glog.Warningf("%s:%d: dep with no preceding out, skipping", DynamicFileName, lineno)
				continue
			}
			g.AddDep(out, name, true)
		default:
			glog.Warningf("%s:%d: unknown verb %q, skipping", DynamicFileName, lineno, verb)
		}
	}
	return s.Err()
}

// SaveDynamicDeps atomically replaces <outdir>/gib.dynamic with one block
// per out-node that has dynamic deps, in name order.
func SaveDynamicDeps(g *Graph, outdir string) error {
	var buf bytes.Buffer
	first := true
	for _, n := range g.All() {
		if n.Type != OutNode || n.depsDyn.len() == 0 {
			continue
		}
		if !first {
			buf.WriteByte('\n')
		}
		first = false
		fmt.Fprintf(&buf, "out %s\n", n.Name)
		for _, d := range n.DepsDyn() {
			fmt.Fprintf(&buf, "dep %s\n", d.Name)
		}
	}
	return renameio.WriteFile(outdir+"/"+DynamicFileName, buf.Bytes(), 0644)
}
