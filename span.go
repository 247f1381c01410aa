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

// buffer is a growable byte buffer with a small inline bootstrap array,
// so short tokens never touch the allocator.
type buffer struct {
	buf       []byte
	bootstrap [64]byte
}

func (b *buffer) Reset() {
	if b.buf == nil {
		b.buf = b.bootstrap[:0]
	}
	b.buf = b.buf[:0]
}

func (b *buffer) WriteByte(c byte) error {
	b.buf = append(b.buf, c)
	return nil
}

func (b *buffer) WriteString(s string) (int, error) {
	b.buf = append(b.buf, s...)
	return len(s), nil
}

func (b *buffer) Bytes() []byte  { return b.buf }
func (b *buffer) String() string { return string(b.buf) }
func (b *buffer) Len() int       { return len(b.buf) }

// fetchUntil splits s at the first occurrence of a byte in stop that is
// not masked by the escape byte (0 disables escaping). Unlike strings.Cut,
// escaped bytes are left untouched in head - fetchUntil only decides
// *where* to cut, it never rewrites the text, mirroring gib's span-based
// fetch_until exactly (escape handling is reader.h's, not env.h's, and
// callers that need de-escaping do it themselves, e.g. $1..$9 expansion).
// Any run of stop bytes immediately after the cut is consumed into tail's
// skip, not returned in either half.
func fetchUntil(s string, stop string, esc byte) (head, tail string) {
	i := 0
	skip := false
	for i < len(s) {
		if esc != 0 && skip {
			skip = false
			i++
			continue
		}
		if strings.IndexByte(stop, s[i]) >= 0 {
			break
		}
		skip = esc != 0 && s[i] == esc
		i++
	}
	head = s[:i]
	for i < len(s) && strings.IndexByte(stop, s[i]) >= 0 {
		i++
	}
	return head, s[i:]
}

// fetchWord splits off the next whitespace-delimited word from s.
func fetchWord(s string) (word, rest string) {
	return fetchUntil(s, " \t", 0)
}

// fetchWordEscaped is like fetchWord but a backslash escapes the next
// byte, so "a\ b" is one word and a lone trailing "\" (used by make-style
// depfile continuations) is returned whole.
func fetchWordEscaped(s string) (word, rest string) {
	return fetchUntil(s, " \t", '\\')
}

// FetchWord exports fetchWord for cmd/forgecc, which parses compiler
// depfiles outside the forge package.
func FetchWord(s string) (word, rest string) { return fetchWord(s) }

// FetchWordEscaped exports fetchWordEscaped for cmd/forgecc.
func FetchWordEscaped(s string) (word, rest string) { return fetchWordEscaped(s) }
