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

package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadMissingFileReturnsDefault(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "monorail.yaml"))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Version != 1 {
		t.Errorf("Version = %d, want 1", cfg.Version)
	}
	if len(cfg.ExplicitPins) != 0 {
		t.Errorf("ExplicitPins = %v, want empty", cfg.ExplicitPins)
	}
}

func TestLoadParsesExplicitPinsAndApprovedPackages(t *testing.T) {
	path := filepath.Join(t.TempDir(), "monorail.yaml")
	content := `
version: 1
explicitPins:
  lodash: "^4.17.21"
approvedPackages:
  enabled: true
  categories: ["production", "tools"]
build:
  parallelism: 8
  production: true
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.ExplicitPins["lodash"] != "^4.17.21" {
		t.Errorf("ExplicitPins[lodash] = %q, want ^4.17.21", cfg.ExplicitPins["lodash"])
	}
	if !cfg.ApprovedPackages.Enabled {
		t.Error("ApprovedPackages.Enabled = false, want true")
	}
	if len(cfg.ApprovedPackages.Categories) != 2 {
		t.Errorf("Categories = %v, want 2 entries", cfg.ApprovedPackages.Categories)
	}
	if cfg.Build.Parallelism != 8 || !cfg.Build.Production {
		t.Errorf("Build = %+v, want parallelism=8 production=true", cfg.Build)
	}
}
