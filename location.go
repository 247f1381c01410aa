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

import "fmt"

// locFrame is one entry of a Location stack: either a fixed position with
// an optional annotation ("in a macro defined here", "while evaluating for
// loop with s = a.c"), or a live reader whose current position is read on
// demand (§4.6.4).
type locFrame struct {
	pos    fileLine
	what   string
	reader *lineReader
}

func (f locFrame) position() fileLine {
	if f.reader != nil {
		return f.reader.position()
	}
	return f.pos
}

// Location is the stack of source positions threaded through rule
// loading: one frame for the current reader, one for each active def
// replay, one for each active for-loop iteration, one for each sub
// inclusion. Every RuleError prints the entire stack (§4.6.4).
type Location struct {
	stack []locFrame
	named map[string]fileLine
}

func newLocation() *Location {
	return &Location{named: make(map[string]fileLine)}
}

func (l *Location) pushReader(r *lineReader) {
	l.stack = append(l.stack, locFrame{reader: r})
}

func (l *Location) pushFixed(pos fileLine, what string) {
	l.stack = append(l.stack, locFrame{pos: pos, what: what})
}

// pushCurrent copies the position of the nearest live reader on the
// stack, annotated with what. Used for "included from here" / "in a
// macro defined here" frames that must freeze the position at push time.
func (l *Location) pushCurrent(what string) {
	for i := len(l.stack) - 1; i >= 0; i-- {
		if l.stack[i].reader != nil {
			l.pushFixed(l.stack[i].reader.position(), what)
			return
		}
	}
}

// pushNamed re-enters the position recorded under name by a prior set()
// call (the def-site of a macro), annotated with what.
func (l *Location) pushNamed(name, what string) fileLine {
	pos := l.named[name]
	l.pushFixed(pos, what)
	return pos
}

func (l *Location) pop() {
	l.stack = l.stack[:len(l.stack)-1]
}

// set records the current reader position under name, so a later use of
// name (a macro replay) can report back to its definition site.
func (l *Location) set(name string) {
	for i := len(l.stack) - 1; i >= 0; i-- {
		if l.stack[i].reader != nil {
			l.named[name] = l.stack[i].reader.position()
			return
		}
	}
}

// Errorf builds a RuleError carrying a snapshot of the current location
// stack, so it can be printed after unwinding.
func (l *Location) Errorf(format string, args ...interface{}) *RuleError {
	frames := make([]fileLine, len(l.stack))
	whats := make([]string, len(l.stack))
	for i, f := range l.stack {
		frames[i] = f.position()
		whats[i] = f.what
	}
	return &RuleError{
		Frames:  frames,
		Whats:   whats,
		Message: fmt.Sprintf(format, args...),
	}
}
