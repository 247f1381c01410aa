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

// RuleBuilder builds a single node to completion as if it were the sole
// goal of a run, used by `src` and `sub` to make rule-file generation a
// first-class build step (§4.6.3). Open in build.go wires the Project's
// Queue in as the concrete implementation; tests can pass nil.
type RuleBuilder interface {
	BuildGoal(n *Node) error
}

// ruleLine is one captured, un-expanded statement line from a `def` or
// `for` body, tagged with its own source position. The C original tracks
// only a single running line counter reconstructed at replay time; since
// Go's reader already knows the exact position of every line as it is
// read, each line keeps its own, which makes `use`/`for` error locations
// exact rather than approximate.
type ruleLine struct {
	text string
	pos  fileLine
}

// loadState is the rule-loader's working state for one rule file (rl_state).
type loadState struct {
	graph   *Graph
	globals *Env
	locals  *Env
	loc     *Location
	srcdir  string
	build   RuleBuilder

	templates map[string][]ruleLine

	outSet, cmdSet, metaSet bool
	stanzaStarted           bool

	reader *lineReader
}

// LoadRules loads and evaluates one rule file, materializing nodes into g
// and variables into global (§4.6). node must already be a graph node
// (src or out); if it is an out-node, the caller is responsible for
// having built it first (see buildIfNeeded for the recursive case).
func LoadRules(g *Graph, global *Env, build RuleBuilder, srcdir string, node *Node, loc *Location) error {
	r, f, err := openLineReader("", node.Name)
	if err != nil {
		return err
	}
	defer f.Close()

	g.bumpRuleStamp(node.StampChanged)

	s := &loadState{
		graph:     g,
		globals:   global,
		loc:       loc,
		srcdir:    srcdir,
		build:     build,
		templates: make(map[string][]ruleLine),
		reader:    r,
	}
	s.stanzaClear()

	loc.pushReader(r)
	defer loc.pop()

	for {
		line, ok := r.next()
		if !ok {
			break
		}
		if strings.HasPrefix(line, "#") {
			continue
		}
		if line == "" {
			if err := s.stanzaEnd(); err != nil {
				return err
			}
			continue
		}
		if err := s.statement(line); err != nil {
			return err
		}
	}
	return s.stanzaEnd()
}

func (s *loadState) buildIfNeeded(n *Node) error {
	if n.Type != OutNode || s.build == nil {
		return nil
	}
	return s.build.BuildGoal(n)
}

func (s *loadState) stanzaClear() {
	s.outSet = false
	s.cmdSet = false
	s.metaSet = false
	s.stanzaStarted = false
	s.locals = newEnv()
	s.locals.set(s.loc, "dep")
}

// stanzaEnd closes out a blank-line-terminated stanza: if `out` or `meta`
// was set, it materializes the declared node, taking ownership of its cmd
// and deps from the local scope (§4.6.2).
func (s *loadState) stanzaEnd() error {
	if s.outSet || s.metaSet {
		if s.outSet && s.metaSet {
			return s.loc.Errorf("can't have both 'out' and 'meta' in the same stanza")
		}
		name, err := s.locals.get("out").Single(s.loc, "out")
		if err != nil {
			return err
		}
		node := s.graph.add(name)
		if node.Frozen {
			return s.loc.Errorf("duplicate output: %s", name)
		}
		if s.metaSet {
			node.Type = MetaNode
		} else {
			node.Type = OutNode
		}
		node.Frozen = true

		if s.cmdSet {
			cmdVar := s.locals.get("cmd")
			node.Cmd = cmdVar
			s.graph.AddDep(node, cmdVar.list[0].text, false)
		}

		depVar := s.locals.get("dep")
		for _, val := range depVar.list {
			dep := s.graph.Get(val.text)
			if dep == nil {
				return s.loc.Errorf("dep: node for '%s' does not exist", val.text)
			}
			node.deps.insert(dep)
		}
	}
	s.stanzaClear()
	return nil
}

// statement dispatches one non-blank line: `def`/`for` capture a body,
// everything else runs immediately as a command.
func (s *loadState) statement(line string) error {
	cmd, rest := fetchWord(line)
	if cmd != "def" && cmd != "for" {
		return s.command(cmd, rest)
	}
	if s.stanzaStarted {
		return s.loc.Errorf("def/for in the middle of a stanza")
	}

	name, _ := fetchWord(rest)
	if s.globals.get(name) != nil {
		return s.loc.Errorf("name '%s' is already used for a variable", name)
	}

	var body []ruleLine
	if cmd == "for" {
		body = append(body, ruleLine{text: line, pos: s.reader.position()})
	} else {
		s.loc.set(name)
	}
	for {
		next, ok := s.reader.next()
		if !ok || next == "" {
			break
		}
		body = append(body, ruleLine{text: next, pos: s.reader.position()})
	}

	if cmd == "def" {
		s.templates[name] = body
		return nil
	}
	return s.forLoop(body)
}

// replay runs each captured line as a fresh statement, pushing its own
// position onto the location stack. A "for" line encountered mid-replay
// (a macro body that itself contains a for-loop) consumes every line
// after it as the loop's body, same as a top-level for.
func (s *loadState) replay(lines []ruleLine) error {
	for i, l := range lines {
		cmd, rest := fetchWord(l.text)
		if cmd == "for" {
			return s.forLoop(lines[i:])
		}
		s.loc.pushFixed(l.pos, "")
		err := s.command(cmd, rest)
		s.loc.pop()
		if err != nil {
			return err
		}
	}
	return nil
}

// forLoop implements `for VAR v1 v2 ...` ... blank line: replays the body
// once per value, with VAR bound in a fresh copy of the locals snapshot
// taken before the loop started (§4.6.1).
func (s *loadState) forLoop(lines []ruleLine) error {
	header := lines[0].text
	_, rest := fetchWord(header) // "for"
	name, rest := fetchWord(rest)

	saved := s.locals.dup()
	iter := newVariable("for-iter")
	for rest != "" {
		var word string
		word, rest = fetchWord(rest)
		if err := Expand(s.loc, iter, s.locals, s.globals, word); err != nil {
			return err
		}
	}

	body := lines[1:]
	for _, val := range iter.list {
		s.loc.pushCurrent("while evaluating for loop with " + name + " = " + val.text)
		s.stanzaClear()
		s.locals = saved.dup()
		ivar, err := s.locals.set(s.loc, name)
		if err != nil {
			s.loc.pop()
			return err
		}
		if err := ivar.Add(s.loc, val.text); err != nil {
			s.loc.pop()
			return err
		}
		if err := s.replay(body); err != nil {
			s.loc.pop()
			return err
		}
		if err := s.stanzaEnd(); err != nil {
			s.loc.pop()
			return err
		}
		s.loc.pop()
	}
	return nil
}

// command executes one rule-file command (§4.6.1's table).
func (s *loadState) command(cmd, args string) error {
	s.stanzaStarted = true

	switch cmd {
	case "cmd":
		return s.cmdCommand(args)
	case "src":
		return s.srcCommand(args)
	case "out", "meta":
		return s.outCommand(cmd, args)
	case "add", "add=", "dep":
		return s.addCommand(cmd, args)
	case "set", "set=", "let", "let=":
		return s.setCommand(cmd, args)
	case "use":
		return s.useCommand(args)
	case "sub", "sub?":
		return s.subCommand(cmd, args)
	default:
		return s.loc.Errorf("unknown command '%s'", cmd)
	}
}

func (s *loadState) cmdCommand(args string) error {
	s.cmdSet = true
	cmdVar, err := s.locals.set(s.loc, "cmd")
	if err != nil {
		return err
	}
	for args != "" {
		var word string
		word, args = fetchWord(args)
		if err := Expand(s.loc, cmdVar, s.locals, s.globals, word); err != nil {
			return err
		}
	}
	if !cmdVar.IsDefined() {
		return s.loc.Errorf("empty command")
	}
	return nil
}

func (s *loadState) srcCommand(args string) error {
	srcName, rest := fetchWord(args)
	dirName, rest := fetchWord(rest)

	srcVar := s.globals.get(srcName)
	if srcVar == nil {
		var err error
		srcVar, err = s.globals.set(s.loc, srcName)
		if err != nil {
			return err
		}
	}
	dirVar := s.globals.get(dirName)
	if dirVar == nil {
		var err error
		dirVar, err = s.globals.set(s.loc, dirName)
		if err != nil {
			return err
		}
	}

	pathVar := newVariable("manifest-path")
	if err := Expand(s.loc, pathVar, s.locals, s.globals, rest); err != nil {
		return err
	}

	for _, val := range pathVar.list {
		n := s.graph.FindFile(val.text)
		if err := s.buildIfNeeded(n); err != nil {
			return err
		}
		if err := LoadManifest(s.graph, s.loc, srcVar, dirVar, val.text); err != nil {
			return err
		}
	}
	return nil
}

func (s *loadState) outCommand(cmd, args string) error {
	if cmd == "out" {
		s.outSet = true
	} else {
		s.metaSet = true
	}
	out, err := s.locals.set(s.loc, "out")
	if err != nil {
		return err
	}
	if err := Expand(s.loc, out, s.locals, s.globals, args); err != nil {
		return err
	}
	if len(out.list) != 1 {
		return s.loc.Errorf("out must expand into exactly one item")
	}
	return nil
}

func (s *loadState) addCommand(cmd, args string) error {
	dep := cmd == "dep"
	split := cmd == "add"

	name := "dep"
	if !dep {
		name, args = fetchWord(args)
	}

	v, _, err := resolveVar(s.loc, s.locals, s.globals, name, true)
	if err != nil {
		return err
	}
	if v == nil {
		return s.loc.Errorf("cannot add to a non-existent variable %s", name)
	}

	before := len(v.list)
	if split {
		for args != "" {
			var word string
			word, args = fetchWord(args)
			if err := Expand(s.loc, v, s.locals, s.globals, word); err != nil {
				return err
			}
		}
	} else {
		if err := Expand(s.loc, v, s.locals, s.globals, args); err != nil {
			return err
		}
	}

	if !dep {
		return nil
	}

	resynced := false
	prefix := s.srcdir + "/"
	for _, val := range v.list[before:] {
		name := val.text
		if s.srcdir != "" && strings.HasPrefix(name, prefix) {
			name = name[len(prefix):]
		}
		depNode := s.graph.Get(name)
		if depNode == nil || !depNode.Frozen {
			return s.loc.Errorf("dep: node for '%s' does not exist", val.text)
		}
		if name != val.text {
			val.text = name
			resynced = true
		}
	}
	if resynced {
		v.set = newOrderedMap()
		for _, val := range v.list {
			v.set.insert(val)
		}
	}
	return nil
}

func (s *loadState) setCommand(cmd, args string) error {
	set := cmd == "set" || cmd == "set="
	split := cmd == "set" || cmd == "let"

	name, rest := fetchWord(args)
	if _, ok := s.templates[name]; ok {
		return s.loc.Errorf("name '%s' is already used for a template", name)
	}

	target := s.locals
	if set {
		target = s.globals
	}
	v, err := target.set(s.loc, name)
	if err != nil {
		return err
	}
	if set {
		s.loc.set(name)
	}

	if split {
		for rest != "" {
			var word string
			word, rest = fetchWord(rest)
			if err := Expand(s.loc, v, s.locals, s.globals, word); err != nil {
				return err
			}
		}
		return nil
	}
	return Expand(s.loc, v, s.locals, s.globals, rest)
}

func (s *loadState) useCommand(args string) error {
	name, _ := fetchWord(args)
	body, ok := s.templates[name]
	if !ok {
		return s.loc.Errorf("undefined template %s", name)
	}
	s.loc.pushNamed(name, "in a macro defined here")
	err := s.replay(body)
	s.loc.pop()
	return err
}

func (s *loadState) subCommand(cmd, args string) error {
	ignoreMissing := cmd == "sub?"

	files := newVariable("sub-files")
	if err := Expand(s.loc, files, s.locals, s.globals, args); err != nil {
		return err
	}

	for _, val := range files.list {
		if ignoreMissing && !manifestExists(val.text) {
			continue
		}
		s.loc.pushCurrent("included from here")
		n := s.graph.FindFile(val.text)
		if err := s.buildIfNeeded(n); err != nil {
			s.loc.pop()
			return err
		}
		if err := LoadRules(s.graph, s.globals, s.build, s.srcdir, n, s.loc); err != nil {
			s.loc.pop()
			return err
		}
		s.loc.pop()
	}
	return nil
}
