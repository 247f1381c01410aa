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
	"io"
	"os"
)

// fileLine is a source position: a file name and a 1-based line number.
// It is attached to every location pushed onto a Location stack (§4.6.4).
type fileLine struct {
	file string
	line int
}

// lineReader is a buffered line-at-a-time reader over a rule or manifest
// file, tracking its own position for error reporting. It plays the role
// of gib's reader_t.
type lineReader struct {
	file string
	pos  int
	s    *bufio.Scanner
}

func newLineReader(file string, r io.Reader) *lineReader {
	s := bufio.NewScanner(r)
	s.Buffer(make([]byte, 0, 4096), 1<<20)
	return &lineReader{file: file, s: s}
}

// openLineReader opens name relative to dir (dir may be "" for the
// current directory) and wraps it in a lineReader.
func openLineReader(dir, name string) (*lineReader, *os.File, error) {
	path := name
	if dir != "" {
		path = dir + "/" + name
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	return newLineReader(name, f), f, nil
}

// next returns the next line with its trailing newline stripped, and
// whether a line was available.
func (r *lineReader) next() (string, bool) {
	if !r.s.Scan() {
		return "", false
	}
	r.pos++
	return r.s.Text(), true
}

func (r *lineReader) position() fileLine {
	return fileLine{file: r.file, line: r.pos}
}
