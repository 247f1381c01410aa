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
	"strconv"
	"strings"

	"github.com/golang/glog"
	"github.com/google/renameio"
)

// StampFileName is the persistent DB of per-out-node stamps and cmd
// hashes, relative to the output directory (§6.3).
const StampFileName = "gib.stamps"

// LoadStamps reads <outdir>/gib.stamps into g, creating any referenced
// node that doesn't already exist (§4.5: "readers create graph nodes on
// demand"). A missing file is not an error.
func LoadStamps(g *Graph, outdir string) error {
	data, err := os.ReadFile(outdir + "/" + StampFileName)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}
	s := bufio.NewScanner(bytes.NewReader(data))
	s.Buffer(nil, 1<<20)
	lineno := 0
	for s.Scan() {
		lineno++
		line := s.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}
		n, err := parseStampLine(line)
		if err != nil {
			glog.Warningf("%s:%d: %v, skipping", StampFileName, lineno, err)
			continue
		}
		node := g.add(n.Name)
		node.StampUpdated = n.StampUpdated
		node.StampChanged = n.StampChanged
		node.Dirty = n.Dirty
		node.CmdHash = n.CmdHash
		node.StampWant = node.StampUpdated
	}
	return s.Err()
}

// parseStampLine parses one "updated changed dirty cmdhash name" record.
// Hex fields are unsigned; name runs to end of line and may itself
// contain spaces, so it is never split further than the first four
// fields (§6.3).
func parseStampLine(line string) (*Node, error) {
	fields := strings.SplitN(strings.TrimLeft(line, " \t"), " ", 5)
	if len(fields) < 5 {
		return nil, fmt.Errorf("malformed stamp record: %q", line)
	}
	updated, err := strconv.ParseInt(fields[0], 16, 64)
	if err != nil {
		return nil, fmt.Errorf("bad updated stamp: %w", err)
	}
	changed, err := strconv.ParseInt(fields[1], 16, 64)
	if err != nil {
		return nil, fmt.Errorf("bad changed stamp: %w", err)
	}
	dirty, err := strconv.ParseUint(fields[2], 16, 64)
	if err != nil {
		return nil, fmt.Errorf("bad dirty flag: %w", err)
	}
	cmdHash, err := strconv.ParseUint(fields[3], 16, 64)
	if err != nil {
		return nil, fmt.Errorf("bad cmd hash: %w", err)
	}
	return &Node{
		Name:         fields[4],
		StampUpdated: updated,
		StampChanged: changed,
		Dirty:        dirty != 0,
		CmdHash:      cmdHash,
	}, nil
}

// SaveStamps atomically replaces <outdir>/gib.stamps with one record per
// out-node in the graph, in name order (so two identical runs produce a
// byte-identical file, per §8's idempotence law). Writing goes through
// renameio so a crash mid-write never corrupts the previous file.
func SaveStamps(g *Graph, outdir string) error {
	var buf bytes.Buffer
	for _, n := range g.All() {
		if n.Type != OutNode {
			continue
		}
		dirty := 0
		if n.Dirty {
			dirty = 1
		}
		fmt.Fprintf(&buf, "%08x %08x %x %016x %s\n",
			n.StampUpdated, n.StampChanged, dirty, n.CmdHash, n.Name)
	}
	return renameio.WriteFile(outdir+"/"+StampFileName, buf.Bytes(), 0644)
}
