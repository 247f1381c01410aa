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

import "testing"

func TestFetchUntil(t *testing.T) {
	tests := []struct {
		s, stop  string
		esc      byte
		wantHead string
		wantTail string
	}{
		{"abc def", " ", 0, "abc", "def"},
		{"abc   def", " ", 0, "abc", "def"},
		{"noseparator", " ", 0, "noseparator", ""},
		{`a\ b c`, " ", '\\', `a\ b`, "c"},
		{"a.b.c", ".", 0, "a", "b.c"},
		{"", " ", 0, "", ""},
	}
	for _, tt := range tests {
		head, tail := fetchUntil(tt.s, tt.stop, tt.esc)
		if head != tt.wantHead || tail != tt.wantTail {
			t.Errorf("fetchUntil(%q, %q, %q) = (%q, %q), want (%q, %q)",
				tt.s, tt.stop, tt.esc, head, tail, tt.wantHead, tt.wantTail)
		}
	}
}

func TestFetchWord(t *testing.T) {
	word, rest := fetchWord("out all the.c")
	if word != "out" || rest != "all the.c" {
		t.Errorf("fetchWord = (%q, %q)", word, rest)
	}
	word, rest = fetchWord("tab\tseparated")
	if word != "tab" || rest != "separated" {
		t.Errorf("fetchWord with tab = (%q, %q)", word, rest)
	}
}

func TestFetchWordEscaped(t *testing.T) {
	word, rest := fetchWordEscaped(`a\ b c`)
	if word != `a\ b` || rest != "c" {
		t.Errorf("fetchWordEscaped = (%q, %q), want (%q, %q)", word, rest, `a\ b`, "c")
	}
	// a lone trailing backslash (depfile continuation marker) is returned
	// whole, not stripped.
	word, rest = fetchWordEscaped(`foo.o: \`)
	if word != "foo.o:" || rest != `\` {
		t.Errorf("fetchWordEscaped trailing backslash = (%q, %q)", word, rest)
	}
}

func TestFetchWordExported(t *testing.T) {
	// FetchWord/FetchWordEscaped must behave identically to their
	// unexported counterparts: cmd/forgecc has no other way to tokenize.
	word, rest := FetchWord("a b")
	if word != "a" || rest != "b" {
		t.Errorf("FetchWord = (%q, %q)", word, rest)
	}
	word, rest = FetchWordEscaped(`a\ b c`)
	if word != `a\ b` || rest != "c" {
		t.Errorf("FetchWordEscaped = (%q, %q)", word, rest)
	}
}

func TestBuffer(t *testing.T) {
	var b buffer
	b.Reset()
	b.WriteString("hello")
	b.WriteByte(' ')
	b.WriteString("world")
	if got := b.String(); got != "hello world" {
		t.Errorf("buffer.String() = %q, want %q", got, "hello world")
	}
	if b.Len() != len("hello world") {
		t.Errorf("buffer.Len() = %d, want %d", b.Len(), len("hello world"))
	}
	b.Reset()
	if b.Len() != 0 {
		t.Errorf("buffer.Len() after Reset = %d, want 0", b.Len())
	}
}
