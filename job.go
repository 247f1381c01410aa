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
	"bufio"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/golang/glog"
	"golang.org/x/sys/unix"
)

// Job is a running execution of one out-node's cmd (§3 Job, §4.7).
// Unlike the C original's explicit select(2) loop, each Job owns a
// goroutine that drains its control socket and reports the final outcome
// on a shared channel; the scheduler in queue.go is the single consumer,
// which keeps the "single coordinator" property of §5 even though the
// I/O itself is no longer multiplexed by hand.
type Job struct {
	Node    *Node
	Changed bool // cleared by an "unchanged" control message
	Warned  bool

	cmd    *exec.Cmd
	parent *os.File
	logf   *os.File
}

// JobResult is what a Job reports on the scheduler's fan-in channel once
// its control socket has reached EOF and its process has been reaped.
type JobResult struct {
	Job    *Job
	Failed bool
	Err    error // always nil from Job.run: start failures are returned by StartJob, a failed wait sets Failed
}

func sanitizeLogName(name string) string {
	var b strings.Builder
	for _, r := range name {
		if r == '/' || r == ' ' {
			b.WriteByte('_')
		} else {
			b.WriteRune(r)
		}
	}
	b.WriteString(".txt")
	return b.String()
}

// StartJob forks the node's command, wiring a socketpair onto fd 3 (§4.7),
// and launches the goroutine that will drain control messages and report
// a JobResult on events once the child exits. The node's cmd must already
// be frozen and non-empty.
func StartJob(g *Graph, n *Node, outdir, srcdir string, events chan<- JobResult) (*Job, error) {
	argv := n.Cmd.Strings()

	fds, err := unix.Socketpair(unix.AF_UNIX, unix.SOCK_STREAM|unix.SOCK_CLOEXEC, 0)
	if err != nil {
		return nil, fmt.Errorf("socketpair for %s: %w", n.Name, err)
	}
	parent := os.NewFile(uintptr(fds[0]), n.Name+"-ctl-parent")
	child := os.NewFile(uintptr(fds[1]), n.Name+"-ctl-child")

	logDir := filepath.Join(outdir, "_log")
	if err := os.MkdirAll(logDir, 0755); err != nil {
		parent.Close()
		child.Close()
		return nil, err
	}
	logPath := filepath.Join(logDir, sanitizeLogName(n.Name))
	os.Remove(logPath)
	logf, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_EXCL, 0666)
	if err != nil {
		parent.Close()
		child.Close()
		return nil, fmt.Errorf("opening logfile %s: %w", logPath, err)
	}

	fmt.Fprintf(logf, "gib# out %s\n", n.Name)
	for i, a := range argv {
		if i == 0 {
			fmt.Fprintf(logf, "gib# cmd %s\n", a)
		} else {
			fmt.Fprintf(logf, "gib#     %s\n", a)
		}
	}

	cmd := exec.Command(argv[0], argv[1:]...)
	cmd.Dir = outdir
	cmd.Stdin = nil
	cmd.Stdout = logf
	cmd.Stderr = logf
	cmd.ExtraFiles = []*os.File{child}

	if err := cmd.Start(); err != nil {
		parent.Close()
		child.Close()
		logf.Close()
		return nil, fmt.Errorf("starting %s: %w", n.Name, err)
	}
	child.Close()

	j := &Job{Node: n, Changed: true, cmd: cmd, parent: parent, logf: logf}
	go j.run(g, srcdir, events)
	return j, nil
}

// run drains control messages until EOF, then waits for the process and
// reports the final outcome. It is the only goroutine that touches j's
// mutable fields, so no locking is needed.
func (j *Job) run(g *Graph, srcdir string, events chan<- JobResult) {
	s := bufio.NewScanner(j.parent)
	s.Buffer(make([]byte, 0, 4096), 1<<20)
	for s.Scan() {
		j.handleControlLine(g, srcdir, s.Text())
	}
	j.parent.Close()
	j.logf.Close()

	err := j.cmd.Wait()
	failed := err != nil
	if failed {
		glog.Warningf("%s: %v", j.Node.Name, err)
	}
	events <- JobResult{Job: j, Failed: failed, Err: nil}
}

func (j *Job) handleControlLine(g *Graph, srcdir, line string) {
	verb, rest := fetchWord(line)
	switch verb {
	case "dep":
		path, _ := fetchWord(rest)
		g.AddDep(j.Node, normalizeDep(path, srcdir), true)
	case "unchanged":
		j.Changed = false
	case "warning":
		j.Warned = true
	}
}

// normalizeDep rewrites a $srcdir/-prefixed path to project-relative and
// cleans it, mirroring job_normalize_dep/path_normalize. A path outside
// srcdir is passed through unchanged.
func normalizeDep(path, srcdir string) string {
	prefix := srcdir + "/"
	if srcdir == "" || !strings.HasPrefix(path, prefix) {
		return path
	}
	rel := path[len(prefix):]
	clean := filepath.Clean(rel)
	if clean == "." {
		return path
	}
	return clean
}

// Kill sends SIGTERM to the job's own process (not a process group), used during
// cancellation teardown (§4.8, §5).
func (j *Job) Kill() error {
	if j.cmd.Process == nil {
		return nil
	}
	return unix.Kill(j.cmd.Process.Pid, unix.SIGTERM)
}
