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
	"os"
	"path/filepath"
)

// LoadManifest reads a flat file listing (§6.2) produced by an external
// scanner and feeds it into the graph and the two variables a `src`
// rule-file command names: srcVar collects file paths (each frozen into
// the graph as a src node via Graph.FindFile), dirVar collects the
// directories those files were found under. An "f" name is joined onto
// the current "d" directory and cleaned, so "d ." followed by "f a.c"
// yields "a.c". A blank line resets the current directory to none, so a
// later bare "f name" is used exactly as written (relative to the working
// directory) rather than joined onto a stale prior "d".
func LoadManifest(g *Graph, loc *Location, srcVar, dirVar *Variable, path string) error {
	r, f, err := openLineReader("", path)
	if err != nil {
		return err
	}
	defer f.Close()

	currentDir := ""
	for {
		line, ok := r.next()
		if !ok {
			break
		}
		if line == "" {
			currentDir = ""
			continue
		}
		op, rest := fetchWord(line)
		if op != "d" && op != "f" {
			return loc.Errorf("%s:%d: malformed manifest line", path, r.position().line)
		}
		name, _ := fetchWord(rest)

		if op == "d" {
			currentDir = name
			if err := dirVar.Add(loc, currentDir); err != nil {
				return err
			}
			continue
		}

		full := name
		if currentDir != "" {
			full = filepath.Join(currentDir, name)
		}
		g.FindFile(full)
		if err := srcVar.Add(loc, full); err != nil {
			return err
		}
	}
	if err := r.s.Err(); err != nil {
		return err
	}
	return nil
}

// manifestExists reports whether path exists (os.Stat succeeds), backing
// `sub?`'s "silently skip a missing file" behavior (§4.6.1). Readability
// is not checked: an existing but unreadable file is reported as present.
func manifestExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
