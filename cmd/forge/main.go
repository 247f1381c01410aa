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

// Command forge is the CLI driver: flag parsing, goal selection, and
// process exit code are all explicitly out of scope for the library
// (§1 external collaborators), so this file is the thin adapter that
// supplies them, the same role cmd/kati/main.go plays over the teacher's
// own exported package surface.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/golang/glog"

	"github.com/vitriolen/forge"
)

// Flags default to the zero value, not the setting's real default, so
// that "was this actually passed?" can be distinguished from "the user
// wants the built-in default": .forge.yaml fills the zero values first,
// a passed flag always overrides it, and only after both are applied do
// the built-in defaults (rules/_out/1) get a chance to apply.
var (
	ruleFile = flag.String("f", "", "rule file to load (default \"rules\")")
	srcDir   = flag.String("C", ".", "project source directory")
	outDir   = flag.String("o", "", "output directory (default \"_out\")")
	jobs     = flag.Int("j", 0, "maximum number of concurrent jobs (default 1)")
	watch    = flag.Duration("w", 0, "poll interval for watch mode, 0 disables it")
	debug    = flag.Bool("debug", false, "write a graph dump to <outdir>/gib.debug after the run")
)

func main() {
	flag.Usage = usage
	if len(os.Args) > 1 && os.Args[1] == "diff" {
		runDiff(os.Args[2:])
		return
	}
	flag.Parse()
	defer glog.Flush()

	cfg := &forge.Config{SrcDir: *srcDir}
	if err := forge.LoadProjectConfig(cfg, *srcDir); err != nil {
		fatal("reading .forge.yaml: %v", err)
	}
	applyFlagOverrides(cfg)
	applyBuiltinDefaults(cfg)

	proj, err := forge.Open(cfg)
	if err != nil {
		fatal("%v", err)
	}
	defer proj.Close()

	goals, err := resolveGoals(proj, flag.Args())
	if err != nil {
		fatal("%v", err)
	}

	failed, err := proj.Build(goals)
	if err != nil {
		fatal("%v", err)
	}

	if *debug {
		writeDebugDump(proj, cfg.OutDir)
	}

	if failed > 0 {
		os.Exit(1)
	}
}

// applyFlagOverrides lets an explicitly passed flag win over whatever
// .forge.yaml set, per the Configuration section's "flags always
// override the file".
func applyFlagOverrides(cfg *forge.Config) {
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "f":
			cfg.RuleFile = *ruleFile
		case "o":
			cfg.OutDir = *outDir
		case "j":
			cfg.Jobs = *jobs
		case "w":
			cfg.WatchInterval = *watch
		}
	})
}

// applyBuiltinDefaults fills in whatever neither a flag nor the project
// file supplied.
func applyBuiltinDefaults(cfg *forge.Config) {
	if cfg.RuleFile == "" {
		cfg.RuleFile = "rules"
	}
	if cfg.OutDir == "" {
		cfg.OutDir = "_out"
	}
	if cfg.Jobs == 0 {
		cfg.Jobs = 1
	}
}

// resolveGoals maps the command line's trailing arguments to graph nodes,
// defaulting to the "all" goal when none are given (§4.8 "Goal
// selection": the scheduler itself only ever consumes a resolved set).
func resolveGoals(proj *forge.Project, names []string) ([]*forge.Node, error) {
	if len(names) == 0 {
		n, err := proj.DefaultGoal()
		if err != nil {
			return nil, fmt.Errorf("no goals given and no default goal \"all\": %w", err)
		}
		return []*forge.Node{n}, nil
	}
	goals := make([]*forge.Node, 0, len(names))
	for _, name := range names {
		n, err := proj.Goal(name)
		if err != nil {
			return nil, err
		}
		goals = append(goals, n)
	}
	return goals, nil
}

func writeDebugDump(proj *forge.Project, outdir string) {
	path := outdir + "/gib.debug"
	f, err := os.Create(path)
	if err != nil {
		glog.Warningf("writing %s: %v", path, err)
		return
	}
	defer f.Close()
	if err := proj.DumpGraph(f); err != nil {
		glog.Warningf("writing %s: %v", path, err)
	}
}

func fatal(format string, args ...interface{}) {
	glog.Errorf(format, args...)
	fmt.Fprintf(os.Stderr, "forge: "+format+"\n", args...)
	glog.Flush()
	os.Exit(2)
}

func usage() {
	fmt.Fprintf(os.Stderr, "usage: forge [flags] [goal...]\n       forge diff <dump-a> <dump-b>\n\n")
	flag.PrintDefaults()
}
