// Copyright (c) 2024 the monorail authors
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in all
// copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
// SOFTWARE.

package versionpolicy

import (
	"os"
	"sort"

	"github.com/monorailhq/monorail/internal/monorailerr"
	"github.com/monorailhq/monorail/internal/secureio"
	"gopkg.in/yaml.v3"
)

// entry is the on-disk tagged-union shape for one policy: exactly one of
// lockStep or individual is set, selected by kind.
type entry struct {
	Kind       string      `yaml:"kind"`
	LockStep   *LockStep   `yaml:"lockStep,omitempty"`
	Individual *Individual `yaml:"individual,omitempty"`
}

type registryDocument struct {
	Policies []entry `yaml:"policies"`
}

// Registry is the loaded set of version policies, keyed by name.
type Registry struct {
	policies map[string]Policy
}

// Names returns every policy name known to the registry.
func (r *Registry) Names() map[string]struct{} {
	out := make(map[string]struct{}, len(r.policies))
	for name := range r.policies {
		out[name] = struct{}{}
	}
	return out
}

// Lookup returns the named policy, if any.
func (r *Registry) Lookup(name string) (Policy, bool) {
	p, ok := r.policies[name]
	return p, ok
}

// Load reads and parses the policy registry file at path. A missing file
// yields an empty registry: a repository with no version policies declared
// is valid.
func Load(path string) (*Registry, error) {
	raw, err := secureio.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &Registry{policies: make(map[string]Policy)}, nil
		}
		return nil, monorailerr.Configurationf("read version policy registry %s: %v", path, err)
	}

	var doc registryDocument
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, monorailerr.Configurationf("parse version policy registry %s: %v", path, err)
	}

	policies := make(map[string]Policy, len(doc.Policies))
	for _, e := range doc.Policies {
		p, err := e.toPolicy()
		if err != nil {
			return nil, monorailerr.Configurationf("version policy registry %s: %v", path, err)
		}
		if _, dup := policies[p.Name()]; dup {
			return nil, monorailerr.Configurationf("version policy registry %s: duplicate policy name %q", path, p.Name())
		}
		policies[p.Name()] = p
	}

	return &Registry{policies: policies}, nil
}

func (e entry) toPolicy() (Policy, error) {
	switch e.Kind {
	case "lockStep":
		if e.LockStep == nil {
			return nil, monorailerr.Configurationf("policy kind lockStep missing lockStep body")
		}
		return e.LockStep, nil
	case "individual":
		if e.Individual == nil {
			return nil, monorailerr.Configurationf("policy kind individual missing individual body")
		}
		return e.Individual, nil
	default:
		return nil, monorailerr.Configurationf("unknown version policy kind %q", e.Kind)
	}
}

// Save serializes the registry back to path, round-tripping each policy's
// current in-memory state (a lock-step policy's Version may have moved via
// Bump since Load).
func (r *Registry) Save(path string) error {
	doc := registryDocument{}
	names := make([]string, 0, len(r.policies))
	for name := range r.policies {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		switch p := r.policies[name].(type) {
		case *LockStep:
			doc.Policies = append(doc.Policies, entry{Kind: "lockStep", LockStep: p})
		case *Individual:
			doc.Policies = append(doc.Policies, entry{Kind: "individual", Individual: p})
		default:
			return monorailerr.Internalf("version policy %q has unknown concrete type", name)
		}
	}

	out, err := yaml.Marshal(doc)
	if err != nil {
		return monorailerr.Internalf("marshal version policy registry: %v", err)
	}
	return secureio.WriteFile(path, out, 0o644)
}
