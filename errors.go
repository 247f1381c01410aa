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
	"strings"
)

// RuleError is a fatal rule-syntax or semantic error (§7), carrying the
// full location stack at the point the error was raised: current reader,
// any def replay, any for iteration, any sub inclusion (§4.6.4).
type RuleError struct {
	Frames  []fileLine
	Whats   []string
	Message string
}

func (e *RuleError) Error() string {
	var b strings.Builder
	if len(e.Frames) == 0 {
		b.WriteString(e.Message)
		return b.String()
	}
	top := e.Frames[len(e.Frames)-1]
	fmt.Fprintf(&b, "%s:%d: %s", top.file, top.line, e.Message)
	for i := len(e.Frames) - 2; i >= 0; i-- {
		if e.Whats[i] == "" {
			continue
		}
		fmt.Fprintf(&b, "\n%s:%d: %s", e.Frames[i].file, e.Frames[i].line, e.Whats[i])
	}
	return b.String()
}
