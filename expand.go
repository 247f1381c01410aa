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

// expandState carries the bits that stay constant across one top-level
// Expand call as it recurses into nested references (§4.2.2, §4.2.3).
type expandState struct {
	loc           *Location
	dest          *Variable
	local, global *Env
}

// Expand evaluates str - a rule-file argument span that may contain
// $(...) references - against dest, appending every produced value in
// left-to-right, nested order (§4.2.3). A line with two references that
// each expand to k values yields k*k values: the leftmost reference
// iterates outermost and the tail of the line, including every later
// reference, is re-expanded once per value it produces.
func Expand(loc *Location, dest *Variable, local, global *Env, str string) error {
	s := &expandState{loc: loc, dest: dest, local: local, global: global}
	return s.expandList(str)
}

func (s *expandState) expandList(str string) error {
	i := strings.IndexByte(str, '$')
	if i < 0 {
		return s.dest.Add(s.loc, str)
	}
	if i+1 >= len(str) {
		return s.loc.Errorf("unexpected $ at the end of string")
	}
	if str[i+1] != '(' {
		return s.loc.Errorf("expected ( after $ in %s", str)
	}

	j := i + 1
	counter := 0
	for j < len(str) {
		switch str[j] {
		case '(':
			counter++
		case ')':
			counter--
			if counter == 0 {
				goto found
			}
		}
		j++
	}
found:
	prefix := str[:i]
	var refBody, suffix string
	if j < len(str) {
		refBody = str[i+2 : j]
		suffix = str[j+1:]
	} else {
		refBody = str[i+2:]
		suffix = ""
	}

	ci := strings.IndexAny(refBody, ":~")
	refName := refBody
	refSpec := ""
	if ci >= 0 {
		refName = refBody[:ci]
		refSpec = refBody[ci:]
	}

	refVar, vivify, err := resolveVar(s.loc, s.local, s.global, refName, false)
	if err != nil {
		return err
	}
	if refVar == nil {
		if vivify {
			return nil
		}
		return s.loc.Errorf("invalid variable reference %s", str)
	}
	refVar.frozen = true

	if refSpec == "" {
		for _, val := range refVar.list {
			if err := s.expandItem(prefix, val.text, suffix); err != nil {
				return err
			}
		}
		return nil
	}

	switch refSpec[0] {
	case ':':
		return s.expandMatch(refVar, refSpec[1:], prefix, suffix)
	case '~':
		return s.loc.Errorf("~ modifier not implemented")
	}
	return nil
}

func (s *expandState) expandItem(prefix, value, suffix string) error {
	return s.expandList(prefix + value + suffix)
}

// expandMatch implements pattern-mode expansion: $(name:pat:rep). spec is
// everything after the leading ':'.
func (s *expandState) expandMatch(refVar *Variable, spec, prefix, suffix string) error {
	patternStr, replacement := fetchUntil(spec, ":", '\\')

	patVar := newVariable("<pattern>")
	sub := &expandState{loc: s.loc, dest: patVar, local: s.local, global: s.global}
	if err := sub.expandList(patternStr); err != nil {
		return err
	}

	replace := replacement != ""

	for _, patItem := range patVar.list {
		pattern := patItem.text
		litPrefix := literalPrefix(pattern)
		toks := compilePattern(pattern)
		hasWildcard := false
		for _, t := range toks {
			if t.star {
				hasWildcard = true
				break
			}
		}

		var itemErr error
		refVar.set.iterateFrom(litPrefix, func(k keyed) bool {
			val := k.(*Value)
			if !strings.HasPrefix(val.text, litPrefix) {
				return false
			}
			var caps [9]string
			if hasWildcard {
				var ok bool
				caps, ok = matchPattern(toks, val.text)
				if !ok {
					return true
				}
			}
			rep := val.text
			if replace {
				rep = replaceCaptures(replacement, caps)
			}
			if err := s.expandItem(prefix, rep, suffix); err != nil {
				itemErr = err
				return false
			}
			return true
		})
		if itemErr != nil {
			return itemErr
		}
	}
	return nil
}

// replaceCaptures substitutes $1..$9 in a replacement template with the
// corresponding pattern captures, and each unescaped '%' with the next
// capture in order (the first '%' is $1, the second $2, and so on). A
// backslash is never copied itself: it is dropped and suppresses $N and
// '%' interpretation of the next byte, which is copied literally. A
// backslash that follows another backslash is dropped too, which is why
// "\\\\" in a replacement pattern produces nothing rather than a literal
// backslash. This mirrors the source's escape loop exactly rather than a
// more "sensible" reading of it, per the spec's note that these escape
// rules should be pinned to observed behavior rather than inferred.
func replaceCaptures(value string, caps [9]string) string {
	var b strings.Builder
	escape := false
	nextCap := 0
	i := 0
	for i < len(value) {
		if value[i] == '\\' {
			escape = true
			i++
			continue
		}
		if !escape && i+1 < len(value) && value[i] == '$' && value[i+1] >= '1' && value[i+1] <= '9' {
			b.WriteString(caps[value[i+1]-'1'])
			i += 2
			continue
		}
		if !escape && value[i] == '%' {
			if nextCap < len(caps) {
				b.WriteString(caps[nextCap])
			}
			nextCap++
			i++
			continue
		}
		b.WriteByte(value[i])
		escape = false
		i++
	}
	return b.String()
}
