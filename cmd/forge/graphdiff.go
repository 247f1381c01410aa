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

package main

import (
	"fmt"
	"os"

	"github.com/sergi/go-diff/diffmatchpatch"
)

// runDiff implements "forge diff <a> <b>": a small developer diagnostic
// that line-diffs two gib.debug-style graph dumps (§6.6), so a developer
// can see exactly which nodes' stamps, deps, or dirty bit changed between
// two runs without hand-comparing two multi-thousand-line text files.
func runDiff(args []string) {
	if len(args) != 2 {
		fmt.Fprintln(os.Stderr, "usage: forge diff <dump-a> <dump-b>")
		os.Exit(2)
	}

	a, err := os.ReadFile(args[0])
	if err != nil {
		fmt.Fprintf(os.Stderr, "forge diff: %v\n", err)
		os.Exit(1)
	}
	b, err := os.ReadFile(args[1])
	if err != nil {
		fmt.Fprintf(os.Stderr, "forge diff: %v\n", err)
		os.Exit(1)
	}

	dmp := diffmatchpatch.New()
	wsA, wsB, lines := dmp.DiffLinesToChars(string(a), string(b))
	diffs := dmp.DiffMain(wsA, wsB, false)
	diffs = dmp.DiffCharsToLines(diffs, lines)

	changed := false
	for _, d := range diffs {
		switch d.Type {
		case diffmatchpatch.DiffInsert:
			changed = true
			printLines("+", d.Text)
		case diffmatchpatch.DiffDelete:
			changed = true
			printLines("-", d.Text)
		}
	}
	if !changed {
		fmt.Println("no differences")
	}
}

func printLines(prefix, text string) {
	start := 0
	for i := 0; i < len(text); i++ {
		if text[i] == '\n' {
			fmt.Printf("%s %s\n", prefix, text[start:i])
			start = i + 1
		}
	}
	if start < len(text) {
		fmt.Printf("%s %s\n", prefix, text[start:])
	}
}
