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
	"os/exec"
	"testing"
	"time"
)

// TestStartJobControlProtocol runs a real child process that speaks the
// fd-3 control protocol (§4.7), exercising StartJob/Job.run end to end
// rather than just the line parser.
func TestStartJobControlProtocol(t *testing.T) {
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("no sh on PATH")
	}

	outdir := t.TempDir()
	g := newGraph()
	n := g.add("out.o")
	n.Type = OutNode
	loc := newLocation()
	n.Cmd = newVariable("cmd")
	n.Cmd.Add(loc, "sh")
	n.Cmd.Add(loc, "-c")
	n.Cmd.Add(loc, `echo "dep header.h" >&3; echo "unchanged" >&3`)

	events := make(chan JobResult, 1)
	j, err := StartJob(g, n, outdir, "", events)
	if err != nil {
		t.Fatal(err)
	}

	select {
	case res := <-events:
		if res.Failed {
			t.Fatalf("job reported failed, err=%v", res.Err)
		}
		if j.Changed {
			t.Error("Changed should be false after an \"unchanged\" control line")
		}
		deps := n.DepsDyn()
		if len(deps) != 1 || deps[0].Name != "header.h" {
			t.Errorf("DepsDyn() = %v, want [header.h]", deps)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for job result")
	}
}

func TestStartJobNonzeroExitIsFailure(t *testing.T) {
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("no sh on PATH")
	}

	outdir := t.TempDir()
	g := newGraph()
	n := g.add("out.o")
	n.Type = OutNode
	loc := newLocation()
	n.Cmd = newVariable("cmd")
	n.Cmd.Add(loc, "sh")
	n.Cmd.Add(loc, "-c")
	n.Cmd.Add(loc, "exit 1")

	events := make(chan JobResult, 1)
	if _, err := StartJob(g, n, outdir, "", events); err != nil {
		t.Fatal(err)
	}

	select {
	case res := <-events:
		if !res.Failed {
			t.Error("job exiting 1 should report Failed=true")
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for job result")
	}
}
