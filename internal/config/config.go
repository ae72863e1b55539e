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

// Package config parses monorail.yaml, the operator-facing configuration
// file layered on top of the schema-validated monorail.json repository
// manifest. It carries explicit dependency pins for the install planner,
// the set of reviewed categories, and CLI default flags.
package config

import (
	"os"

	"gopkg.in/yaml.v3"

	"github.com/monorailhq/monorail/internal/secureio"
)

// Config is the parsed monorail.yaml document.
type Config struct {
	// Version is the configuration format version. Currently only 1 is
	// recognized.
	Version int `yaml:"version"`

	// ExplicitPins overrides implicitly-pinned versions computed by the
	// install planner; name -> range.
	ExplicitPins map[string]string `yaml:"explicitPins,omitempty"`

	// ApprovedPackages holds the review-category policy settings. It is
	// parsed only: no command reads it, and the review-category check done
	// at workspace load uses the reviewCategories list of monorail.json.
	ApprovedPackages *ApprovedPackagesPolicy `yaml:"approvedPackages,omitempty"`

	// EventHooks maps an event name (e.g. "preInstall", "postBuild") to a
	// shell command. It is parsed only: no command runs these hooks.
	EventHooks map[string]string `yaml:"eventHooks,omitempty"`

	// Telemetry is the telemetry opt-in flag. It is parsed only: no command
	// collects or sends telemetry.
	Telemetry bool `yaml:"telemetry,omitempty"`

	// Build carries CLI default flags for the build/rebuild verbs.
	Build BuildDefaults `yaml:"build,omitempty"`
}

// ApprovedPackagesPolicy carries the reviewed-category settings: an
// Enabled switch and the allowed Categories. Nothing enforces them (see
// Config.ApprovedPackages).
type ApprovedPackagesPolicy struct {
	Enabled    bool     `yaml:"enabled"`
	Categories []string `yaml:"categories,omitempty"`
}

// BuildDefaults are CLI default flags for the build/rebuild verbs,
// overridable per-invocation.
type BuildDefaults struct {
	Parallelism int  `yaml:"parallelism,omitempty"`
	Production  bool `yaml:"production,omitempty"`
	NPM         bool `yaml:"npm,omitempty"`
	Minimal     bool `yaml:"minimal,omitempty"`
}

// Load reads and parses monorail.yaml at path. A missing file is not an
// error: it returns a default Config (Version 1, every other field zero),
// since monorail.yaml is optional and the repository manifest alone is
// sufficient to operate. A parsed file with no version also gets Version 1.
func Load(path string) (*Config, error) {
	raw, err := secureio.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &Config{Version: 1}, nil
		}
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return nil, err
	}
	if cfg.Version == 0 {
		cfg.Version = 1
	}
	return &cfg, nil
}
