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
	"testing"
)

func loadRulesFromString(t *testing.T, content string) (*Graph, *Env) {
	t.Helper()
	dir := t.TempDir()
	wd, _ := os.Getwd()
	t.Cleanup(func() { os.Chdir(wd) })
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile("rules", []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	g := newGraph()
	global := newEnv()
	loc := newLocation()
	node := g.FindFile("rules")
	if err := LoadRules(g, global, nil, dir, node, loc); err != nil {
		t.Fatal(err)
	}
	return g, global
}

func TestLoadRulesSimpleOutNode(t *testing.T) {
	g, _ := loadRulesFromString(t, "cmd cc -c -o main.o main.c\nout main.o\n")
	n := g.Get("main.o")
	if n == nil {
		t.Fatal("out node main.o was not created")
	}
	if n.Type != OutNode || !n.Frozen {
		t.Errorf("main.o = %+v, want a frozen out node", n)
	}
	if n.Cmd == nil || len(n.Cmd.Strings()) == 0 {
		t.Fatal("main.o has no cmd")
	}
	want := []string{"cc", "-c", "-o", "main.o", "main.c"}
	got := n.Cmd.Strings()
	if len(got) != len(want) {
		t.Fatalf("cmd = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("cmd = %v, want %v", got, want)
		}
	}
}

func TestLoadRulesMetaNode(t *testing.T) {
	g, _ := loadRulesFromString(t, "meta all\n")
	n := g.Get("all")
	if n == nil || n.Type != MetaNode {
		t.Fatalf("all = %+v, want a meta node", n)
	}
}

func TestLoadRulesOutAndMetaConflict(t *testing.T) {
	dir := t.TempDir()
	wd, _ := os.Getwd()
	defer os.Chdir(wd)
	os.Chdir(dir)
	os.WriteFile("rules", []byte("cmd cc -c -o x.o x.c\nout x.o\nmeta x.o\n"), 0644)

	g := newGraph()
	global := newEnv()
	loc := newLocation()
	node := g.FindFile("rules")
	if err := LoadRules(g, global, nil, dir, node, loc); err == nil {
		t.Fatal("expected an error for out + meta in the same stanza")
	}
}

func TestLoadRulesSetAndAdd(t *testing.T) {
	g, global := loadRulesFromString(t, "set cflags -O2\nadd cflags -Wall\ncmd cc $(cflags) -c -o a.o a.c\nout a.o\n")
	cflags := global.get("cflags")
	if cflags == nil {
		t.Fatal("cflags was not defined")
	}
	got := cflags.Strings()
	want := []string{"-O2", "-Wall"}
	if len(got) != len(want) || got[0] != want[0] || got[1] != want[1] {
		t.Fatalf("cflags = %v, want %v", got, want)
	}
	n := g.Get("a.o")
	if n == nil || !n.Frozen {
		t.Fatal("a.o was not created")
	}
}

func TestLoadRulesDepRequiresExistingNode(t *testing.T) {
	dir := t.TempDir()
	wd, _ := os.Getwd()
	defer os.Chdir(wd)
	os.Chdir(dir)
	os.WriteFile("rules", []byte("cmd cc -c -o a.o a.c\ndep nosuch.h\nout a.o\n"), 0644)

	g := newGraph()
	global := newEnv()
	loc := newLocation()
	node := g.FindFile("rules")
	if err := LoadRules(g, global, nil, dir, node, loc); err == nil {
		t.Fatal("expected an error depending on a node that was never declared")
	}
}

func TestLoadRulesDepOnPriorOutput(t *testing.T) {
	g, _ := loadRulesFromString(t,
		"cmd cc -c -o a.o a.c\nout a.o\n\ncmd ld -o prog a.o\ndep a.o\nout prog\n")
	prog := g.Get("prog")
	if prog == nil {
		t.Fatal("prog was not created")
	}
	deps := prog.Deps()
	found := false
	for _, d := range deps {
		if d.Name == "a.o" {
			found = true
		}
	}
	if !found {
		t.Errorf("prog's deps = %v, want a.o present", deps)
	}
}

func TestLoadRulesDuplicateOutputErrors(t *testing.T) {
	dir := t.TempDir()
	wd, _ := os.Getwd()
	defer os.Chdir(wd)
	os.Chdir(dir)
	os.WriteFile("rules", []byte("cmd cc -c -o a.o a.c\nout a.o\n\ncmd cc -c -o a.o b.c\nout a.o\n"), 0644)

	g := newGraph()
	global := newEnv()
	loc := newLocation()
	node := g.FindFile("rules")
	if err := LoadRules(g, global, nil, dir, node, loc); err == nil {
		t.Fatal("expected an error redeclaring the same output")
	}
}

func TestLoadRulesDefAndUse(t *testing.T) {
	content := "def compile\ncmd cc -c -o $(out) $(out).c\n\nout a.o\nuse compile\n"
	g, _ := loadRulesFromString(t, content)
	n := g.Get("a.o")
	if n == nil || n.Cmd == nil {
		t.Fatal("a.o via use-compile was not built correctly")
	}
}

func TestLoadRulesForLoop(t *testing.T) {
	content := "for f a b c\ncmd cc -c -o $(f).o $(f).c\nout $(f).o\n\n"
	g, _ := loadRulesFromString(t, content)
	for _, name := range []string{"a.o", "b.o", "c.o"} {
		if g.Get(name) == nil {
			t.Errorf("for-loop did not create %s", name)
		}
	}
}

func TestLoadRulesUnknownCommandErrors(t *testing.T) {
	dir := t.TempDir()
	wd, _ := os.Getwd()
	defer os.Chdir(wd)
	os.Chdir(dir)
	os.WriteFile("rules", []byte("bogus command\n"), 0644)

	g := newGraph()
	global := newEnv()
	loc := newLocation()
	node := g.FindFile("rules")
	if err := LoadRules(g, global, nil, dir, node, loc); err == nil {
		t.Fatal("expected an error for an unknown command")
	}
}

func TestLoadRulesCommentsAreIgnored(t *testing.T) {
	content := "# a leading comment\ncmd cc -c -o a.o a.c\n# another one\nout a.o\n"
	g, _ := loadRulesFromString(t, content)
	if g.Get("a.o") == nil {
		t.Fatal("a.o was not created despite interleaved comments")
	}
}
