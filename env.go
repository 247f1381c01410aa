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

// Env is an ordered string map from variable name to *Variable (§3
// Environment). Two Envs are in play throughout rule loading: global
// (persists across the file) and local (reset between stanzas, §4.6.2).
type Env struct {
	vars *orderedMap
}

func newEnv() *Env {
	return &Env{vars: newOrderedMap()}
}

func (e *Env) get(name string) *Variable {
	if v := e.vars.find(name); v != nil {
		return v.(*Variable)
	}
	return nil
}

// set creates name if absent, or clears its existing value list (erroring
// if it is frozen), and returns it.
func (e *Env) set(loc *Location, name string) (*Variable, error) {
	if v := e.get(name); v != nil {
		if err := v.Reset(loc); err != nil {
			return nil, err
		}
		return v, nil
	}
	v := newVariable(name)
	e.vars.insert(v)
	return v, nil
}

// dup returns a deep-enough copy of e: new Variables with the same
// values, used to snapshot the local scope around a for-loop body so each
// iteration starts from the same bindings (§4.6.1 "for").
func (e *Env) dup() *Env {
	out := newEnv()
	e.vars.iterate(func(k keyed) bool {
		old := k.(*Variable)
		nv := newVariable(old.name)
		for _, val := range old.list {
			nv.list = append(nv.list, val)
			nv.set.insert(val)
		}
		out.vars.insert(nv)
		return true
	})
	return out
}

func (e *Env) clear() {
	e.vars = newOrderedMap()
}

// resolveVar resolves a possibly-dotted variable spec against local then
// global scope (§4.2.1). autoviv requests that a missing-but-resolvable
// variable be created. The returned vivify flag mirrors gib's in/out
// *autovivify parameter: when true and the variable is nil, the caller
// (expansion) should silently produce nothing rather than error, because
// the name was a legitimate base.$sub reference whose sub piece just
// isn't ready yet. When vivify is false and the variable is nil, the name
// never resolved to anything and the caller should report an error.
func resolveVar(loc *Location, local, global *Env, spec string, autoviv bool) (v *Variable, vivify bool, err error) {
	base, sub := fetchUntil(spec, ".", 0)

	if base != "" && strings.HasPrefix(sub, "$") {
		subName := sub[1:]
		subVar := local.get(subName)
		if subVar == nil {
			subVar = global.get(subName)
		}
		if subVar == nil {
			return nil, false, loc.Errorf("variable '%s not defined", subName)
		}
		if len(subVar.list) == 0 {
			return nil, true, nil
		}
		if len(subVar.list) > 1 {
			return nil, false, loc.Errorf("cannot expand non-singleton %s in %s", subName, spec)
		}
		ref := base + "." + subVar.list[0].text
		useEnv := global
		if local.get(base) != nil {
			useEnv = local
		}
		if v := useEnv.get(ref); v != nil {
			return v, true, nil
		}
		if autoviv {
			v, err := useEnv.set(loc, ref)
			return v, true, err
		}
		return nil, true, nil
	}

	for _, env := range []*Env{local, global} {
		if base != "" && sub != "" && env.get(base) != nil {
			if v := env.get(spec); v != nil {
				return v, true, nil
			}
			if autoviv {
				v, err := env.set(loc, spec)
				return v, true, err
			}
			return nil, true, nil
		}
	}

	if v := local.get(spec); v != nil {
		return v, false, nil
	}
	return global.get(spec), false, nil
}
