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
	"time"
)

// Project is the library's single entrypoint: it owns the graph, the
// global environment rule files populate, and the queue that builds it.
// cmd/forge is a thin flag.FlagSet adapter that constructs a Config,
// opens a Project, resolves goal names against it, and calls Build -
// same division of labor as the teacher's cmd/kati/main.go driving the
// kati package's exported LoadReq/Executor types.
type Project struct {
	Graph  *Graph
	Queue  *Queue
	Global *Env
	Loc    *Location
}

// Open locks the output directory, loads the persisted stamp and
// dynamic-dependency databases into a fresh graph, seeds the synthetic
// "current time" node, and loads the project's rule file (§4.1's startup
// sequence, §4.6.3's "a rule file is itself built before being read").
// The returned Project must be closed with Close once the caller is done
// building goals against it.
func Open(cfg *Config) (*Project, error) {
	g := newGraph()
	if err := LoadStamps(g, cfg.OutDir); err != nil {
		return nil, fmt.Errorf("loading %s: %w", StampFileName, err)
	}
	if err := LoadDynamicDeps(g, cfg.OutDir); err != nil {
		return nil, fmt.Errorf("loading %s: %w", DynamicFileName, err)
	}
	g.nowNode(time.Now().Unix())

	q := NewQueue(g, cfg)
	if err := q.Open(); err != nil {
		return nil, fmt.Errorf("opening %s: %w", cfg.OutDir, err)
	}

	loc := newLocation()
	global := newEnv()

	ruleNode := g.FindFile(cfg.RuleFile)
	if err := LoadRules(g, global, q, cfg.SrcDir, ruleNode, loc); err != nil {
		q.Close()
		return nil, err
	}

	return &Project{Graph: g, Queue: q, Global: global, Loc: loc}, nil
}

// Close releases the output-directory lock.
func (p *Project) Close() error { return p.Queue.Close() }

// Goal resolves a CLI-provided name to the out-node or meta-node it
// names. forge never infers goals from patterns (§1 Non-goals): a name
// that isn't a frozen node in the loaded rule graph is an error.
func (p *Project) Goal(name string) (*Node, error) {
	n := p.Graph.Get(name)
	if n == nil || !n.Frozen || (n.Type != OutNode && n.Type != MetaNode) {
		return nil, fmt.Errorf("unknown goal %q", name)
	}
	return n, nil
}

// DefaultGoal returns the node named "all", the teacher-faithful
// convention for "no goals given on the command line" (mirrors make's
// own default-target rule).
func (p *Project) DefaultGoal() (*Node, error) {
	return p.Goal("all")
}

// Build runs the queue to completion (or, in watch mode, until a
// terminating signal) against goals and returns the number of nodes that
// failed, which is the process's exit-code contract (§6.7).
func (p *Project) Build(goals []*Node) (int, error) {
	if err := p.Queue.Run(goals); err != nil {
		return 0, err
	}
	return p.Queue.FailedCount(), nil
}

// DumpGraph writes a plain-text snapshot of every node to w, backing the
// optional gib.debug artifact named in §6.6.
func (p *Project) DumpGraph(w io.Writer) error {
	return p.Graph.Dump(w)
}
