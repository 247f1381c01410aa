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
	"fmt"
	"io"
	"os"
	"strings"
)

// CurrentTimeNode is the name of the synthetic sys node whose stamps are
// pinned to the wall-clock moment a run began (§4.4): depending on it
// forces a rebuild on every run.
const CurrentTimeNode = "current time"

// Graph is the set of all Nodes known this run, indexed by name (C4).
type Graph struct {
	nodes *orderedMap

	// RuleStamp is the max stamp_changed among rule files loaded so far
	// this run (load_rules' q->stamp_rules). §4.4 raises an out-node's
	// want to this value whenever its cmd hash no longer matches.
	RuleStamp int64
}

func newGraph() *Graph {
	return &Graph{nodes: newOrderedMap()}
}

// bumpRuleStamp raises RuleStamp to changed if changed is larger.
func (g *Graph) bumpRuleStamp(changed int64) {
	if changed > g.RuleStamp {
		g.RuleStamp = changed
	}
}

// Get returns the node named name, or nil.
func (g *Graph) Get(name string) *Node {
	if v := g.nodes.find(name); v != nil {
		return v.(*Node)
	}
	return nil
}

// add returns the node named name, creating an un-typed, un-stamped one
// if it doesn't exist yet (graph_add).
func (g *Graph) add(name string) *Node {
	if n := g.Get(name); n != nil {
		return n
	}
	n := newNode(name)
	g.nodes.insert(n)
	return n
}

// doStat seeds n's stamps from the filesystem mtime of n.Name, returning
// whether the stat succeeded (graph_do_stat).
func doStat(n *Node) bool {
	fi, err := os.Stat(n.Name)
	if err != nil {
		return false
	}
	n.setStamps(fi.ModTime().Unix())
	return true
}

// FindFile returns the node for a manifest-sourced file name, freezing it
// as a src node the first time it's seen (graph_find_file). Nodes already
// frozen by some other path (e.g. declared as an out-node) are returned
// unchanged.
func (g *Graph) FindFile(name string) *Node {
	n := g.add(name)
	if !n.Frozen {
		doStat(n)
		n.Type = SrcNode
		n.Frozen = true
	}
	return n
}

// resolveNewDep creates a dependency node the first time its name is
// seen: an absolute path always becomes sys, whether or not it stats; any
// other name becomes src if it stats and falls back to sys if the stat
// fails (graph_add_dep's inline node-creation branch).
func (g *Graph) resolveNewDep(name string) *Node {
	n := g.add(name)
	if strings.HasPrefix(name, "/") {
		n.Type = SysNode
	} else {
		n.Type = SrcNode
	}
	if !doStat(n) {
		n.Type = SysNode
	}
	return n
}

// AddDep adds name as a dependency of n - static if dyn is false,
// dynamic if true - creating the dependency node on demand (§4.3).
func (g *Graph) AddDep(n *Node, name string, dyn bool) *Node {
	dep := g.Get(name)
	if dep == nil {
		dep = g.resolveNewDep(name)
	}
	if dyn {
		n.depsDyn.insert(dep)
	} else {
		n.deps.insert(dep)
	}
	return dep
}

// addBlocking records that dependent is waiting on blocker.
func (g *Graph) addBlocking(blocker, dependent *Node) {
	blocker.blocking.insert(dependent)
}

// nowNode returns (creating if necessary) the synthetic "current time"
// sys node, stamped to now.
func (g *Graph) nowNode(now int64) *Node {
	n := g.add(CurrentTimeNode)
	n.Type = SysNode
	n.Frozen = true
	n.setStamps(now)
	return n
}

// All returns every node in name order, for iteration by the scheduler
// and the DB writers.
func (g *Graph) All() []*Node {
	return nodeValues(g.nodes)
}

// Dump writes a plain-text snapshot of every node: its stamps, dirty bit,
// static and dynamic deps, and cmd (graph_dump). Supplements §6.6's
// gib.debug, whose format the distilled spec names but does not define;
// cmd/forge/graphdiff.go line-diffs two such dumps.
func (g *Graph) Dump(w io.Writer) error {
	var err error
	g.nodes.iterate(func(k keyed) bool {
		n := k.(*Node)
		if _, e := fmt.Fprintf(w, "node: %s\n", n.Name); e != nil {
			err = e
			return false
		}
		fmt.Fprintf(w, "type: %s\n", n.Type)
		fmt.Fprintf(w, "stamps: %08x updated | %08x changed | %08x want\n",
			n.StampUpdated, n.StampChanged, n.StampWant)
		if n.Dirty {
			fmt.Fprintln(w, "dirty")
		}
		if n.Failed {
			fmt.Fprintln(w, "failed")
		}
		for _, d := range n.Deps() {
			fmt.Fprintf(w, "dep: %s\n", d.Name)
		}
		for _, d := range n.DepsDyn() {
			fmt.Fprintf(w, "dyn: %s\n", d.Name)
		}
		if n.Cmd != nil && n.Cmd.IsDefined() {
			fmt.Fprintf(w, "cmd: %s\n", strings.Join(n.Cmd.Strings(), " "))
		}
		fmt.Fprintln(w)
		return true
	})
	return err
}
