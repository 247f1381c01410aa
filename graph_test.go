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
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestGraphFindFileStatsAndFreezes(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.c")
	if err := os.WriteFile(path, []byte("int main(){}"), 0644); err != nil {
		t.Fatal(err)
	}

	g := newGraph()
	n := g.FindFile(path)
	if n.Type != SrcNode {
		t.Errorf("Type = %v, want SrcNode", n.Type)
	}
	if !n.Frozen {
		t.Error("FindFile did not freeze the node")
	}
	if n.StampUpdated == 0 {
		t.Error("FindFile did not stat the file")
	}

	// A second FindFile on the same name returns the identical node and
	// does not re-freeze or reclassify it.
	n2 := g.FindFile(path)
	if n2 != n {
		t.Error("FindFile returned a different node for the same name")
	}
}

func TestGraphResolveNewDepAbsoluteMissingIsSys(t *testing.T) {
	g := newGraph()
	dep := g.resolveNewDep("/no/such/file/anywhere")
	if dep.Type != SysNode {
		t.Errorf("Type = %v, want SysNode for a missing absolute path", dep.Type)
	}
}

func TestGraphResolveNewDepRelativeMissingIsSys(t *testing.T) {
	// Non-existent, non-absolute names still end up sys: a failed stat of
	// any kind forces sys regardless of the name-based initial guess.
	g := newGraph()
	dep := g.resolveNewDep("does-not-exist.h")
	if dep.Type != SysNode {
		t.Errorf("Type = %v, want SysNode", dep.Type)
	}
}

func TestGraphResolveNewDepExistingRelativeIsSrc(t *testing.T) {
	dir := t.TempDir()
	wd, _ := os.Getwd()
	defer os.Chdir(wd)
	os.Chdir(dir)
	os.WriteFile("header.h", []byte("x"), 0644)

	g := newGraph()
	dep := g.resolveNewDep("header.h")
	if dep.Type != SrcNode {
		t.Errorf("Type = %v, want SrcNode for an existing relative file", dep.Type)
	}
}

func TestGraphAddDepStaticVsDynamic(t *testing.T) {
	g := newGraph()
	out := g.add("out.o")
	out.Type = OutNode

	g.AddDep(out, "/nonexistent/static.h", false)
	g.AddDep(out, "/nonexistent/dynamic.h", true)

	if len(out.Deps()) != 1 || out.Deps()[0].Name != "/nonexistent/static.h" {
		t.Errorf("Deps() = %v", out.Deps())
	}
	if len(out.DepsDyn()) != 1 || out.DepsDyn()[0].Name != "/nonexistent/dynamic.h" {
		t.Errorf("DepsDyn() = %v", out.DepsDyn())
	}
}

func TestGraphAddBlockingAndNowNode(t *testing.T) {
	g := newGraph()
	a := g.add("a")
	b := g.add("b")
	g.addBlocking(a, b)
	if len(a.Blocking()) != 1 || a.Blocking()[0] != b {
		t.Errorf("Blocking() = %v, want [b]", a.Blocking())
	}

	now := g.nowNode(12345)
	if now.Type != SysNode || !now.Frozen {
		t.Error("nowNode must be a frozen sys node")
	}
	if now.StampUpdated != 12345 {
		t.Errorf("nowNode stamp = %d, want 12345", now.StampUpdated)
	}
	// A second call returns the same synthetic node, re-stamped.
	again := g.nowNode(99999)
	if again != now || again.StampUpdated != 99999 {
		t.Error("nowNode did not reuse/restamp the synthetic node")
	}
}

func TestGraphBumpRuleStamp(t *testing.T) {
	g := newGraph()
	g.bumpRuleStamp(5)
	g.bumpRuleStamp(2)
	g.bumpRuleStamp(9)
	if g.RuleStamp != 9 {
		t.Errorf("RuleStamp = %d, want 9", g.RuleStamp)
	}
}

func TestGraphDump(t *testing.T) {
	g := newGraph()
	n := g.add("out.o")
	n.Type = OutNode
	n.Dirty = true
	n.Cmd = newVariable("cmd")
	loc := newLocation()
	n.Cmd.Add(loc, "cc")
	n.Cmd.Add(loc, "-c")
	g.AddDep(n, "/nonexistent/in.c", false)

	var buf bytes.Buffer
	if err := g.Dump(&buf); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	for _, want := range []string{"node: out.o", "type: out", "dirty", "dep: /nonexistent/in.c", "cmd: cc -c"} {
		if !strings.Contains(out, want) {
			t.Errorf("Dump() missing %q, got:\n%s", want, out)
		}
	}
}

func TestNodeTypeString(t *testing.T) {
	tests := []struct {
		typ  NodeType
		want string
	}{
		{SrcNode, "src"}, {OutNode, "out"}, {SysNode, "sys"}, {MetaNode, "meta"},
	}
	for _, tt := range tests {
		if got := tt.typ.String(); got != tt.want {
			t.Errorf("%v.String() = %q, want %q", int(tt.typ), got, tt.want)
		}
	}
}

func TestNodeClearDynDeps(t *testing.T) {
	g := newGraph()
	n := g.add("out.o")
	g.AddDep(n, "/nonexistent/dyn.h", true)
	if len(n.DepsDyn()) != 1 {
		t.Fatal("setup: expected one dynamic dep")
	}
	n.clearDynDeps()
	if len(n.DepsDyn()) != 0 {
		t.Error("clearDynDeps did not clear dynamic deps")
	}
}

func TestNodeSetStamps(t *testing.T) {
	n := newNode("x")
	n.setStamps(42)
	if n.StampUpdated != 42 || n.StampChanged != 42 || n.StampWant != 42 {
		t.Errorf("setStamps did not set all three stamps: %+v", n)
	}
}
