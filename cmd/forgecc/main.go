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

// Command forgecc wraps a real compiler invocation (C9, §4.7's "a rule's
// cmd may itself speak the control protocol"): it appends -MD/-MTout/-MF
// flags so the compiler emits a depfile, runs the real compiler, then
// turns that depfile into "dep" control lines on fd 3 - the same socket
// job.go wired to fd 3 when it started this process as a node's cmd.
// A compiler that writes to stderr without failing is reported as a
// "warning" control line, detected the same way the original does: by
// noticing stderr's write offset moved even though the exit code was 0.
package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"syscall"

	"golang.org/x/sys/unix"

	"github.com/vitriolen/forge"
)

func main() {
	if len(os.Args) <= 1 {
		fmt.Fprintln(os.Stderr, "forgecc: need at least 1 argument")
		os.Exit(1)
	}

	depfile := "./wrapcc." + strconv.Itoa(os.Getpid()) + ".d"

	stderrPos, stderrSeekable := int64(-1), false
	if pos, err := unix.Seek(2, 0, unix.SEEK_CUR); err == nil {
		stderrPos = pos
		stderrSeekable = true
	}

	argv := append(append([]string{}, os.Args[2:]...), "-MD", "-MTout", "-MF"+depfile)
	rv := run(os.Args[1], argv)

	if rv == 0 && stderrSeekable {
		if pos, err := unix.Seek(2, 0, unix.SEEK_CUR); err == nil && pos != stderrPos {
			if ctl := os.NewFile(3, "ctl"); ctl != nil {
				io.WriteString(ctl, "warning\n")
			}
		}
	}

	ctl := os.NewFile(3, "ctl")
	if err := processDepfile(depfile, ctl); err != nil {
		fmt.Fprintf(os.Stderr, "forgecc: %v\n", err)
		os.Exit(1)
	}
	os.Exit(rv)
}

// run execs the real compiler, inheriting this process's stdio, and
// returns its exit status the way wrap() in the original does: the
// exit code on a normal exit, or 128+signal if it was killed.
func run(name string, argv []string) int {
	cmd := exec.Command(name, argv...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	err := cmd.Run()
	if err == nil {
		return 0
	}
	var exitErr *exec.ExitError
	if ok := asExitError(err, &exitErr); ok {
		if status, ok := exitErr.Sys().(syscall.WaitStatus); ok && status.Signaled() {
			fmt.Fprintf(os.Stderr, "%s terminated by signal %d\n", name, status.Signal())
			return 128 + int(status.Signal())
		}
		return exitErr.ExitCode()
	}
	fmt.Fprintf(os.Stderr, "forgecc: running %s: %v\n", name, err)
	return 127
}

func asExitError(err error, target **exec.ExitError) bool {
	if e, ok := err.(*exec.ExitError); ok {
		*target = e
		return true
	}
	return false
}

// processDepfile reads the Makefile-style dependency rule the compiler
// wrote to path, emits one "dep <path>" control line per prerequisite,
// and unlinks path once it has been opened (process_depfile). The file
// always names a single target, "out:", so everything after that word
// on the first line - and every subsequent line, since make continues a
// rule across lines with a trailing lone backslash - is a dependency.
func processDepfile(path string, ctl io.Writer) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	os.Remove(path)
	defer f.Close()

	found := false
	s := bufio.NewScanner(f)
	s.Buffer(make([]byte, 0, 4096), 1<<20)
	for s.Scan() {
		line := s.Text()
		if !found {
			word, rest := forge.FetchWord(line)
			if word != "out:" {
				continue
			}
			found = true
			line = rest
		}
		more, err := processLine(line, ctl)
		if err != nil {
			return err
		}
		if !more {
			break
		}
	}
	if err := s.Err(); err != nil {
		return err
	}
	if !found {
		return fmt.Errorf("did not find the dependency line")
	}
	return nil
}

// processLine emits one "dep" control line per word on line, de-escaping
// a doubled "$$" to a single "$" along the way, and reports whether the
// rule continues onto the next line (a lone trailing "\" word).
func processLine(line string, ctl io.Writer) (continues bool, err error) {
	for len(line) > 0 && line[0] == ' ' {
		line = line[1:]
	}

	for line != "" {
		word, rest := forge.FetchWordEscaped(line)
		if rest == "" && word == "\\" {
			return true, nil
		}
		if word == "" {
			break
		}
		line = rest
		if _, err := fmt.Fprintf(ctl, "dep %s\n", deescapeDollar(word)); err != nil {
			return false, err
		}
	}
	return false, nil
}

func deescapeDollar(word string) string {
	var b strings.Builder
	for i := 0; i < len(word); i++ {
		if word[i] == '$' && i+1 < len(word) && word[i+1] == '$' {
			i++
		}
		b.WriteByte(word[i])
	}
	return b.String()
}
