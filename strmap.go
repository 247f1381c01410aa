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

import "sort"

// keyed is implemented by anything an orderedMap can index: the map
// stores the payload itself (a *Variable, a *Node, a *Value...) and asks
// it for its own key, mirroring gib's critbit trees where the key lives
// at a declared offset inside the payload struct.
type keyed interface {
	mapKey() string
}

// orderedMap is a prefix-indexed, order-preserving map from byte-string
// keys to payloads (C2). It backs Environments, the node graph, and a
// Variable's set-view. Exact lookup goes through a key-to-payload index
// map; a sorted key slice, kept in order by binary-search inserts, gives
// the iteration order. Iteration is lexicographic and
// supports seeking to the first key >= a given prefix, which is what
// pattern expansion (§4.2.2) needs to terminate early.
type orderedMap struct {
	keys  []string
	byKey map[string]keyed
}

func newOrderedMap() *orderedMap {
	return &orderedMap{byKey: make(map[string]keyed)}
}

// find returns the payload whose key equals k, or nil. It never scans:
// O(1) via the exact-match index, matching the "never fails" external
// contract of gib's cb_find for the contains() use (find() in gib can also
// return the longest-common-prefix leaf for mismatch paths, but every
// caller in this codebase only needs exact-or-absent, so find is kept
// simple and the prefix behavior lives in iterateFrom below).
func (m *orderedMap) find(k string) keyed {
	return m.byKey[k]
}

func (m *orderedMap) contains(k string) bool {
	_, ok := m.byKey[k]
	return ok
}

// insert adds payload under its own mapKey() unless an equal key is
// already present. Returns whether the insert happened.
func (m *orderedMap) insert(v keyed) bool {
	k := v.mapKey()
	if _, ok := m.byKey[k]; ok {
		return false
	}
	i := sort.SearchStrings(m.keys, k)
	m.keys = append(m.keys, "")
	copy(m.keys[i+1:], m.keys[i:])
	m.keys[i] = k
	m.byKey[k] = v
	return true
}

// replace overwrites (or inserts) the payload for v's key.
func (m *orderedMap) replace(v keyed) {
	k := v.mapKey()
	if _, ok := m.byKey[k]; !ok {
		i := sort.SearchStrings(m.keys, k)
		m.keys = append(m.keys, "")
		copy(m.keys[i+1:], m.keys[i:])
		m.keys[i] = k
	}
	m.byKey[k] = v
}

func (m *orderedMap) len() int { return len(m.keys) }

// iterate calls fn for every payload in lexicographic key order. fn
// returning false stops iteration early.
func (m *orderedMap) iterate(fn func(keyed) bool) {
	for _, k := range m.keys {
		if !fn(m.byKey[k]) {
			return
		}
	}
}

// iterateFrom is like iterate but starts at the first key >= from,
// stopping as soon as a key no longer shares from as a prefix. This is
// the range-start seek §4.1 requires for pattern-prefix expansion.
func (m *orderedMap) iterateFrom(from string, fn func(keyed) bool) {
	i := sort.SearchStrings(m.keys, from)
	for ; i < len(m.keys); i++ {
		k := m.keys[i]
		if len(k) < len(from) || k[:len(from)] != from {
			return
		}
		if !fn(m.byKey[k]) {
			return
		}
	}
}

// values returns every payload in key order, for callers that want a
// snapshot rather than a callback (e.g. building a static deps list).
func (m *orderedMap) values() []keyed {
	out := make([]keyed, len(m.keys))
	for i, k := range m.keys {
		out[i] = m.byKey[k]
	}
	return out
}
