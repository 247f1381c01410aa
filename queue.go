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
	"os/signal"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/mattn/go-isatty"
	"golang.org/x/sys/unix"
)

// Stats is a point-in-time snapshot of the scheduler, used by the
// progress sink (§1 Non-goals: the UI itself is an external collaborator,
// but the data behind it belongs here).
type Stats struct {
	Running, Queued, Waiting, OK, Failed int
	Elapsed                              time.Duration
}

// Queue is the scheduler (C8): it computes the dirty closure for a set of
// goals, runs up to Jobs of them concurrently, and persists the stamp and
// dynamic-dep databases when it finishes.
type Queue struct {
	graph  *Graph
	outdir string
	srcdir string
	jobs   int

	lockFile *os.File

	ready    []*Node
	running  map[string]*Job
	events   chan JobResult
	failed   []*Node

	watchInterval time.Duration

	signalled int32
	start     time.Time

	out io.Writer
	// OnProgress, if set, is called roughly once a second while jobs are
	// in flight (queue_monitor's progress line, §4.8).
	OnProgress func(Stats)
}

// NewQueue builds a Queue over g, driven by cfg's output directory,
// source directory, and job-parallelism settings.
func NewQueue(g *Graph, cfg *Config) *Queue {
	out := cfg.Jobs
	if out <= 0 {
		out = 1
	}
	return &Queue{
		graph:         g,
		outdir:        cfg.OutDir,
		srcdir:        cfg.SrcDir,
		jobs:          out,
		running:       make(map[string]*Job),
		events:        make(chan JobResult),
		out:           os.Stderr,
		watchInterval: cfg.WatchInterval,
	}
}

// Open locks the output directory (§5: "advisory exclusive file lock held
// for the process lifetime"), creates its layout, and clears stale
// _failed/ entries from a previous run (queue_set_outdir).
func (q *Queue) Open() error {
	if err := os.MkdirAll(q.outdir, 0755); err != nil {
		return err
	}
	lf, err := os.Open(q.outdir)
	if err != nil {
		return err
	}
	if err := unix.Flock(int(lf.Fd()), unix.LOCK_EX); err != nil {
		lf.Close()
		return fmt.Errorf("locking %s: %w", q.outdir, err)
	}
	q.lockFile = lf

	failedDir := filepath.Join(q.outdir, "_failed")
	entries, err := os.ReadDir(failedDir)
	if err == nil {
		for _, e := range entries {
			os.Remove(filepath.Join(failedDir, e.Name()))
		}
	}
	return os.MkdirAll(failedDir, 0755)
}

// SetOutput redirects the per-node ok/no status lines (§6 progress sink)
// to w, which defaults to os.Stderr. Diagnostic logging always goes
// through glog regardless of this setting.
func (q *Queue) SetOutput(w io.Writer) {
	q.out = w
}

// Close releases the output-directory lock.
func (q *Queue) Close() error {
	if q.lockFile == nil {
		return nil
	}
	err := q.lockFile.Close()
	q.lockFile = nil
	return err
}

// BuildGoal implements RuleBuilder: it plans and runs n alone, used by
// the rule loader when `src`/`sub` name a generated rule file (§4.6.3).
func (q *Queue) BuildGoal(n *Node) error {
	return q.Run([]*Node{n})
}

// isPending reports whether n still has work to do: it is dirty, its
// want has not yet been reached, and it hasn't already failed.
func (q *Queue) isPending(n *Node) bool {
	return n.Dirty && n.StampWant > n.StampUpdated && !n.Failed
}

// createJobs depth-first walks n's static and dynamic deps, computing
// want/dirty and wiring blocking edges, then appends n to the ready FIFO
// if it is itself immediately runnable (§4.8 "Build plan").
func (q *Queue) createJobs(n *Node) {
	if n.Visited {
		return
	}
	n.Visited = true

	deps := append(append([]*Node{}, n.Deps()...), n.DepsDyn()...)
	for _, d := range deps {
		q.createJobs(d)
		if d.StampWant > n.StampWant {
			n.StampWant = d.StampWant
		}
	}

	if n.Type == OutNode || n.Type == MetaNode {
		hashMismatch := n.Cmd != nil && n.Cmd.IsDefined() && n.Cmd.Hash() != n.CmdHash
		if hashMismatch && q.graph.RuleStamp > n.StampWant {
			n.StampWant = q.graph.RuleStamp
		}
		dirty := n.Dirty || hashMismatch
		for _, d := range deps {
			if d.StampChanged > n.StampUpdated {
				dirty = true
			}
		}
		n.Dirty = dirty
	}

	for _, d := range deps {
		if q.isPending(d) {
			q.graph.addBlocking(d, n)
			n.Waiting++
		}
		if d.Failed {
			n.Failed = true
		}
	}

	if n.canRun() && n.Dirty && n.StampWant > n.StampUpdated && !n.Failed && n.Waiting == 0 {
		q.ready = append(q.ready, n)
	}
}

func (n *Node) canRun() bool {
	return n.Cmd != nil && n.Cmd.IsDefined()
}

// Run plans and executes the dirty closure of goals to completion, then
// persists the stamp and dynamic databases. If the Queue was built with a
// non-zero WatchInterval, it doesn't return at quiescence: it sleeps for
// that interval (or until SIGUSR1 arrives sooner), restats, and replans,
// same as the C original's watch mode (§4.8 "Restat"). Either way it
// returns once a SIGINT/SIGTERM/SIGHUP has been handled, or an I/O error
// writing the databases occurs. It is safe to call more than once on the
// same Queue (e.g. once per generated rule file, then once for the
// user's real goals).
func (q *Queue) Run(goals []*Node) error {
	q.start = time.Now()
	for _, g := range goals {
		q.createJobs(g)
	}

	sigCh := make(chan os.Signal, 4)
	signal.Notify(sigCh, unix.SIGINT, unix.SIGTERM, unix.SIGHUP, unix.SIGUSR1)
	defer signal.Stop(sigCh)

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	var watchTimer *time.Timer
	if q.watchInterval > 0 {
		watchTimer = time.NewTimer(q.watchInterval)
		defer watchTimer.Stop()
	}

loop:
	for {
		q.launchReady()

		if len(q.running) == 0 {
			if len(q.ready) > 0 {
				continue
			}
			if atomic.LoadInt32(&q.signalled) != 0 {
				break loop
			}
			if watchTimer == nil {
				break loop
			}
			select {
			case sig := <-sigCh:
				if sig == unix.SIGUSR1 {
					q.restat(goals)
					watchTimer.Reset(q.watchInterval)
					continue loop
				}
				q.cancel()
				break loop
			case <-watchTimer.C:
				q.restat(goals)
				watchTimer.Reset(q.watchInterval)
				continue loop
			}
		}

		select {
		case sig := <-sigCh:
			if sig == unix.SIGUSR1 {
				q.restat(goals)
				continue loop
			}
			q.cancel()
			break loop
		case res := <-q.events:
			q.handleResult(res)
		case <-ticker.C:
			q.reportProgress()
		}
	}

	if err := SaveStamps(q.graph, q.outdir); err != nil {
		return fmt.Errorf("writing stamps: %w", err)
	}
	if err := SaveDynamicDeps(q.graph, q.outdir); err != nil {
		return fmt.Errorf("writing dynamic deps: %w", err)
	}
	return nil
}

func (q *Queue) launchReady() {
	if atomic.LoadInt32(&q.signalled) != 0 {
		return
	}
	for len(q.ready) > 0 && len(q.running) < q.jobs {
		n := q.ready[0]
		q.ready = q.ready[1:]
		n.clearDynDeps()
		j, err := StartJob(q.graph, n, q.outdir, q.srcdir, q.events)
		if err != nil {
			n.Failed = true
			q.failed = append(q.failed, n)
			q.cascadeFailure(n)
			continue
		}
		q.running[n.Name] = j
	}
}

// handleResult reaps a finished job, updates its node's stamps, and
// propagates readiness/failure to everything blocking on it (§4.8
// "Execution loop").
func (q *Queue) handleResult(res JobResult) {
	n := res.Job.Node
	delete(q.running, n.Name)

	if res.Failed {
		n.Failed = true
		q.failed = append(q.failed, n)
		q.hardlinkFailedLog(n)
	} else {
		n.StampUpdated = n.StampWant
		n.CmdHash = n.Cmd.Hash()
		n.Dirty = false
		if res.Job.Changed {
			n.StampChanged = n.StampWant
		}
	}
	if res.Job.Warned {
		logJob("%s: build produced warnings, see log", n.Name)
	}
	resultLine(q.out, n.Name, !res.Failed)

	for _, b := range n.Blocking() {
		if n.StampChanged > b.StampUpdated {
			b.Dirty = true
		}
		if n.Failed {
			b.Failed = true
			q.cascadeFailure(b)
		}
		b.Waiting--
		if b.Waiting == 0 {
			if b.canRun() && b.Dirty && !b.Failed && b.StampWant > b.StampUpdated {
				q.ready = append(q.ready, b)
			}
		}
	}
}

// cascadeFailure marks every transitive dependent of n as failed, same
// rule create_jobs itself uses for deps that are already broken when
// first visited.
func (q *Queue) cascadeFailure(n *Node) {
	for _, b := range n.Blocking() {
		if b.Failed {
			continue
		}
		b.Failed = true
		q.cascadeFailure(b)
	}
}

func (q *Queue) hardlinkFailedLog(n *Node) {
	src := filepath.Join(q.outdir, "_log", sanitizeLogName(n.Name))
	dst := filepath.Join(q.outdir, "_failed", sanitizeLogName(n.Name))
	os.Remove(dst)
	if err := os.Link(src, dst); err != nil {
		warnf("linking failed log for %s: %v", n.Name, err)
	}
}

// cancel implements §4.8 Cancellation: stop launching new work, SIGTERM
// every running child, then drain their exits with no further timeout.
func (q *Queue) cancel() {
	atomic.StoreInt32(&q.signalled, 1)
	for _, j := range q.running {
		j.Kill()
	}
	for len(q.running) > 0 {
		res := <-q.events
		q.handleResult(res)
	}
}

// restat implements §4.8's SIGUSR1/watch-interval path: revalidate
// filesystem-derived stamps without rerunning jobs, then replan.
func (q *Queue) restat(goals []*Node) {
	for _, n := range q.graph.All() {
		n.Visited = false
		if n.Type == SrcNode {
			prevChanged := n.StampChanged
			if doStat(n) && n.StampUpdated > prevChanged {
				n.StampChanged = n.StampUpdated
			}
		}
	}
	for _, n := range q.graph.All() {
		if n.Type != OutNode && n.Type != MetaNode {
			continue
		}
		if n.Failed && n.StampChanged > n.StampUpdated {
			n.Failed = false
		}
	}
	for _, g := range goals {
		q.createJobs(g)
	}
}

func (q *Queue) reportProgress() {
	if q.OnProgress == nil {
		return
	}
	q.OnProgress(q.Stats())
}

// Stats returns a snapshot of the scheduler's current state.
func (q *Queue) Stats() Stats {
	waiting, ok := 0, 0
	for _, n := range q.graph.All() {
		if !n.canRun() {
			continue
		}
		if n.Waiting > 0 {
			waiting++
		}
		if !n.Failed && n.StampUpdated == n.StampWant && n.StampUpdated != 0 {
			ok++
		}
	}
	return Stats{
		Running: len(q.running),
		Queued:  len(q.ready),
		Waiting: waiting,
		OK:      ok,
		Failed:  len(q.failed),
		Elapsed: time.Since(q.start),
	}
}

// FailedCount is the number of nodes that failed this run, driving the
// process exit code (§6.7).
func (q *Queue) FailedCount() int { return len(q.failed) }

// resultLine renders one node's terminal status, colored when w is a
// terminal (go-isatty), matching the teacher's preference for cheap
// capability checks over a full terminfo dependency.
func resultLine(w io.Writer, name string, ok bool) {
	plain := "ok"
	color := "\033[32mok\033[0m"
	if !ok {
		plain = "no"
		color = "\033[31mno\033[0m"
	}
	if f, isFile := w.(*os.File); isFile && isatty.IsTerminal(f.Fd()) {
		fmt.Fprintf(w, "%s %s\n", color, name)
		return
	}
	fmt.Fprintf(w, "%s %s\n", plain, name)
}
