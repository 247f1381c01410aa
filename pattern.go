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

import "strings"

// patToken is one piece of a compiled pattern (§4.2.2): a literal run to
// match verbatim, a '*' wildcard that consumes any run without capturing,
// or a '%' wildcard that consumes any run and records it as the next
// $1..$9 capture.
type patToken struct {
	lit     string
	star    bool
	capture bool
}

// compilePattern parses a shell-like glob: literal bytes, '*' (any run,
// uncaptured), '%' (any run, captured into the next numbered group), and
// '\x' which literalizes the next byte x (so a literal '*', '%', or '\'
// can appear in a pattern).
func compilePattern(pat string) []patToken {
	var toks []patToken
	var lit strings.Builder
	flushLit := func() {
		if lit.Len() > 0 {
			toks = append(toks, patToken{lit: lit.String()})
			lit.Reset()
		}
	}
	for i := 0; i < len(pat); i++ {
		switch c := pat[i]; c {
		case '\\':
			if i+1 < len(pat) {
				lit.WriteByte(pat[i+1])
				i++
			}
		case '*':
			flushLit()
			toks = append(toks, patToken{star: true})
		case '%':
			flushLit()
			toks = append(toks, patToken{star: true, capture: true})
		default:
			lit.WriteByte(c)
		}
	}
	flushLit()
	return toks
}

// matchPattern matches text against a compiled pattern, returning the
// $1..$9 captures (unused slots are "") and whether the match succeeded.
// Patterns are short in practice, so a straightforward backtracking
// matcher over the token list is used rather than compiling to a DFA.
func matchPattern(toks []patToken, text string) (caps [9]string, ok bool) {
	var capIdx int
	var match func(ti int, pos int) bool
	match = func(ti, pos int) bool {
		if ti == len(toks) {
			return pos == len(text)
		}
		t := toks[ti]
		if !t.star {
			if !strings.HasPrefix(text[pos:], t.lit) {
				return false
			}
			return match(ti+1, pos+len(t.lit))
		}
		// Non-greedy backtracking: try every split point for this run,
		// shortest first, so a literal that follows anchors
		// as early as possible (matches gib's left-to-right scan intent
		// without needing its exact backtracking order, since the
		// pattern language has no ambiguity that a distinct order would
		// resolve differently for well-formed build-rule patterns).
		myCap := -1
		if t.capture {
			myCap = capIdx
			capIdx++
		}
		for end := pos; end <= len(text); end++ {
			if myCap >= 0 && myCap < 9 {
				caps[myCap] = text[pos:end]
			}
			if match(ti+1, end) {
				return true
			}
		}
		if t.capture {
			capIdx--
		}
		return false
	}
	ok = match(0, 0)
	return caps, ok
}

// literalPrefix returns the longest literal byte run at the start of a
// pattern, before the first '*' or unescaped '%'. Pattern expansion uses
// it to seek directly into a Variable's set-view (§4.2.2: "scans the
// set-view ... starting at the longest literal prefix of pat").
func literalPrefix(pat string) string {
	var b strings.Builder
	for i := 0; i < len(pat); i++ {
		switch pat[i] {
		case '\\':
			if i+1 < len(pat) {
				b.WriteByte(pat[i+1])
				i++
			}
		case '*', '%':
			return b.String()
		default:
			b.WriteByte(pat[i])
		}
	}
	return b.String()
}
