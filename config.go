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
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds everything the CLI parser (out of scope per §1) would
// otherwise plumb in via flags. cmd/forge's flag.FlagVar calls populate
// one of these instead of package-level globals, so the library itself
// never touches the flag package.
type Config struct {
	RuleFile      string        // rule file to load, defaults to "rules" like gib's default makefile name
	SrcDir        string        // project source root, $srcdir
	OutDir        string        // output directory, $outdir
	Jobs          int           // running_max, §4.8
	WatchInterval time.Duration // restat poll period in watch mode, 0 disables watch
	Verbosity     int
}

// fileConfig is the on-disk shape of .forge.yaml: the subset of Config a
// project wants checked into source control rather than typed on every
// invocation. Flags passed on the command line always win over this file.
type fileConfig struct {
	OutDir        string `yaml:"outdir"`
	Jobs          int    `yaml:"jobs"`
	WatchInterval string `yaml:"watch_interval"`
}

// LoadProjectConfig reads .forge.yaml from dir, if present, and applies
// its values to c wherever the corresponding field is still at its zero
// value (meaning no flag overrode it). A missing file is not an error.
func LoadProjectConfig(c *Config, dir string) error {
	path := dir + "/.forge.yaml"
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}
	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return err
	}
	if c.OutDir == "" && fc.OutDir != "" {
		c.OutDir = fc.OutDir
	}
	if c.Jobs == 0 && fc.Jobs != 0 {
		c.Jobs = fc.Jobs
	}
	if c.WatchInterval == 0 && fc.WatchInterval != "" {
		d, err := time.ParseDuration(fc.WatchInterval)
		if err != nil {
			return err
		}
		c.WatchInterval = d
	}
	return nil
}
