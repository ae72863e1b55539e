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

package cmd

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/monorailhq/monorail/internal/rewrite"
	"github.com/monorailhq/monorail/internal/secureio"
	"github.com/monorailhq/monorail/internal/semverutil"
	"github.com/monorailhq/monorail/internal/workspace"
)

// bumpKinds are the --bump-type values accepted by `monorail version`.
var bumpKinds = map[string]semverutil.BumpKind{
	"":           semverutil.BumpNone,
	"none":       semverutil.BumpNone,
	"patch":      semverutil.BumpPatch,
	"minor":      semverutil.BumpMinor,
	"major":      semverutil.BumpMajor,
	"preminor":   semverutil.BumpPreminor,
	"prerelease": semverutil.BumpPrerelease,
}

var (
	versionBumpPolicy string
	versionBumpType   string
	versionPreid      string
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Enforce and optionally bump version policies across the workspace",
	Long: `Version applies the version policy engine (C10) to every project that
references one: a lock-step member whose manifest version trails its
policy is rewritten up to the policy version, and an individual-policy
member whose major trails a locked major is rewritten to "<major>.0.0".
A member ahead of what its policy allows is a fatal configuration error.

--bump-policy additionally advances a named lock-step policy's own stored
version before reconciling its members against it, persisting the
registry file.`,
	Example: `  # Reconcile every project's version against its declared policy
  monorail version

  # Bump a lock-step policy and cascade to its members
  monorail version --bump-policy platform-release --bump-type minor`,
	RunE: runVersion,
}

func init() {
	rootCmd.AddCommand(versionCmd)
	versionCmd.Flags().StringVar(&versionBumpPolicy, "bump-policy", "", "advance this lock-step policy's own version before reconciling members")
	versionCmd.Flags().StringVar(&versionBumpType, "bump-type", "", "release type for --bump-policy: patch, minor, major, preminor, prerelease")
	versionCmd.Flags().StringVar(&versionPreid, "preid", "", "prerelease identifier for --bump-type prerelease/preminor")
}

func runVersion(cmd *cobra.Command, args []string) error {
	log := newLogger()
	ws, _, paths, err := loadWorkspace(log)
	if err != nil {
		return err
	}
	registry, err := loadPolicyRegistry(paths)
	if err != nil {
		return err
	}

	if versionBumpPolicy != "" {
		policy, ok := registry.Lookup(versionBumpPolicy)
		if !ok {
			return fmt.Errorf("unknown version policy %q", versionBumpPolicy)
		}
		kind, ok := bumpKinds[versionBumpType]
		if !ok {
			return fmt.Errorf("unknown --bump-type %q", versionBumpType)
		}
		next, err := policy.Bump(kind, versionPreid)
		if err != nil {
			return fmt.Errorf("bump %s: %w", versionBumpPolicy, err)
		}
		if err := registry.Save(paths.policyRegistry); err != nil {
			return fmt.Errorf("save version policy registry: %w", err)
		}
		fmt.Printf("%s: bumped to %s\n", versionBumpPolicy, next)
	}

	changed := 0
	for _, proj := range ws.Projects {
		if proj.VersionPolicyName == "" {
			continue
		}
		policy, ok := registry.Lookup(proj.VersionPolicyName)
		if !ok {
			return fmt.Errorf("project %s references unknown version policy %q", proj.PackageName, proj.VersionPolicyName)
		}
		want, err := policy.Ensure(proj.Version())
		if err != nil {
			return fmt.Errorf("project %s: %w", proj.PackageName, err)
		}
		if want == proj.Version() {
			continue
		}
		if err := writeProjectVersion(ws, proj.Folder, want, log); err != nil {
			return err
		}
		fmt.Printf("%s: %s -> %s\n", proj.PackageName, proj.Version(), want)
		changed++
	}

	fmt.Printf("Version policy reconciliation: %d project(s) rewritten\n", changed)
	return nil
}

// writeProjectVersion rewrites only the version field of a project's
// on-disk manifest, leaving every other field untouched. On success it
// logs a unified diff of the rewrite at debug level (visible under -v).
func writeProjectVersion(ws *workspace.Workspace, folder, version string, log *slog.Logger) error {
	manifestPath := filepath.Join(ws.Root, folder, "package.json")
	raw, err := secureio.ReadFile(manifestPath)
	if err != nil {
		return err
	}
	var manifest workspace.ProjectManifest
	if err := json.Unmarshal(raw, &manifest); err != nil {
		return err
	}
	manifest.Version = version

	out, err := json.MarshalIndent(&manifest, "", "  ")
	if err != nil {
		return err
	}
	out = append(out, '\n')
	if err := secureio.WriteFile(manifestPath, out, 0o644); err != nil {
		return err
	}

	if diff, diffErr := rewrite.GenerateUnifiedDiff(manifestPath, string(raw), string(out)); diffErr == nil {
		log.Debug("rewrote manifest version", "path", manifestPath, "diff", diff)
	}
	return nil
}
