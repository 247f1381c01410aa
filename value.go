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
	"crypto/sha1"
	"encoding/binary"
)

// Value is a single string owned by a Variable's ordered list (§3
// Value).
type Value struct {
	text string
}

func (v *Value) mapKey() string { return v.text }

// Variable is a named, ordered list of Values plus a same-content set
// view keyed on value text, used by pattern expansion (§4.2.2) to seek by
// prefix. Variables are immutable once frozen (§3 Invariants).
type Variable struct {
	name   string
	list   []*Value
	set    *orderedMap
	frozen bool
}

func newVariable(name string) *Variable {
	return &Variable{name: name, set: newOrderedMap()}
}

func (v *Variable) mapKey() string { return v.name }

// Add appends a value to the variable's ordered list and inserts it into
// the set-view. It is a rule-file error to add to a frozen variable.
func (v *Variable) Add(loc *Location, text string) error {
	if v.frozen {
		return loc.Errorf("cannot change frozen variable %s", v.name)
	}
	val := &Value{text: text}
	v.list = append(v.list, val)
	v.set.insert(val)
	return nil
}

// Reset clears the variable's values. It is a rule-file error to reset a
// frozen variable (§3: "reassignment to a frozen variable is a rule-file
// error").
func (v *Variable) Reset(loc *Location) error {
	if v.frozen {
		return loc.Errorf("cannot reset frozen variable %s", v.name)
	}
	v.list = nil
	v.set = newOrderedMap()
	return nil
}

// IsDefined reports whether the variable has ever held a value.
func (v *Variable) IsDefined() bool { return len(v.list) > 0 }

// Single returns the variable's sole value, erroring if it holds zero or
// more than one (used for "out must expand into exactly one item" and
// singleton $sub lookups).
func (v *Variable) Single(loc *Location, what string) (string, error) {
	if len(v.list) != 1 {
		return "", loc.Errorf("%s must expand into exactly one item", what)
	}
	return v.list[0].text, nil
}

// Strings returns the variable's values as a plain slice, in order.
func (v *Variable) Strings() []string {
	out := make([]string, len(v.list))
	for i, val := range v.list {
		out[i] = val.text
	}
	return out
}

// Hash hashes the variable's value sequence. This backs Node.CmdHash:
// §4.4 requires a node to be dirty exactly when hash(cmd) != cmd_hash.
func (v *Variable) Hash() uint64 {
	h := sha1.New()
	for _, val := range v.list {
		h.Write([]byte(val.text))
		h.Write([]byte{0})
	}
	sum := h.Sum(nil)
	return binary.BigEndian.Uint64(sum[:8])
}
