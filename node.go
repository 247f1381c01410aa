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

// NodeType classifies a Node (§3 Data model).
type NodeType int

const (
	// SrcNode is a project-relative file the orchestrator does not build.
	SrcNode NodeType = iota
	// OutNode is produced by a cmd.
	OutNode
	// SysNode is an absolute path outside the project, or a dependency
	// that failed to stat (e.g. a system header).
	SysNode
	// MetaNode has no output artifact but still orders its dependents.
	MetaNode
)

func (t NodeType) String() string {
	switch t {
	case SrcNode:
		return "src"
	case OutNode:
		return "out"
	case SysNode:
		return "sys"
	case MetaNode:
		return "meta"
	default:
		return "?"
	}
}

// Node is one vertex of the build graph (§3 Node). Nodes are never deleted
// within a run and are addressed by pointer once created; Graph's
// orderedMap only ever hands out the one *Node for a given name.
type Node struct {
	Name string
	Type NodeType

	// Stamps: updated ≤ want always; changed ≤ updated at rest (§3
	// Invariants). want is recomputed every planning pass, not persisted.
	StampUpdated int64
	StampChanged int64
	StampWant    int64

	Cmd     *Variable
	CmdHash uint64

	deps    *orderedMap // ordered set of *Node, static
	depsDyn *orderedMap // ordered set of *Node, from the child protocol
	blocking *orderedMap // ordered set of *Node waiting on this one

	Visited bool
	Dirty   bool
	Failed  bool
	Frozen  bool
	Waiting int
}

func newNode(name string) *Node {
	return &Node{
		Name:     name,
		deps:     newOrderedMap(),
		depsDyn:  newOrderedMap(),
		blocking: newOrderedMap(),
	}
}

func (n *Node) mapKey() string { return n.Name }

// Deps returns the node's static dependencies in name order.
func (n *Node) Deps() []*Node { return nodeValues(n.deps) }

// DepsDyn returns the node's dynamically discovered dependencies in name
// order (§4.3: kept in a separate set so restat can re-derive these
// without disturbing the declarative ones).
func (n *Node) DepsDyn() []*Node { return nodeValues(n.depsDyn) }

// Blocking returns the dependents still waiting on this node.
func (n *Node) Blocking() []*Node { return nodeValues(n.blocking) }

func nodeValues(m *orderedMap) []*Node {
	vs := m.values()
	out := make([]*Node, len(vs))
	for i, v := range vs {
		out[i] = v.(*Node)
	}
	return out
}

// clearDynDeps drops all dynamic deps, required immediately before a job
// is re-launched (§3 Invariants: "deps_dyn may only be added while the
// node's own job is running, and must be cleared immediately before the
// job is re-launched").
func (n *Node) clearDynDeps() {
	n.depsDyn = newOrderedMap()
}

// setStamps sets all three stamps to the same value, used to seed a
// freshly stat'd src/sys node (graph_set_stamps in the C original).
func (n *Node) setStamps(value int64) {
	n.StampWant = value
	n.StampChanged = value
	n.StampUpdated = value
}
