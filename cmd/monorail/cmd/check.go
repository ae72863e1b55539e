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
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/monorailhq/monorail/internal/planner"
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Validate manifests, version policies, and the lockfile",
	Long: `Check runs every validation the other commands rely on, without
installing or building anything:

  - every project manifest parses and matches its repository manifest entry
  - every version-policy reference resolves against the policy registry
  - every project's current version satisfies the version policy it names
  - the committed lockfile, if present, is compatible with the planned
    common installation

Exits non-zero if any check fails.`,
	RunE: runCheck,
}

func init() {
	rootCmd.AddCommand(checkCmd)
}

func runCheck(cmd *cobra.Command, args []string) error {
	log := newLogger()
	ws, cfg, paths, err := loadWorkspace(log)
	if err != nil {
		return err
	}
	fmt.Println("Workspace manifest: OK")

	registry, err := loadPolicyRegistry(paths)
	if err != nil {
		return err
	}

	ok := true
	for _, p := range ws.Projects {
		if p.VersionPolicyName == "" {
			continue
		}
		policy, found := registry.Lookup(p.VersionPolicyName)
		if !found {
			fmt.Printf("FAIL %s: references unknown version policy %q\n", p.PackageName, p.VersionPolicyName)
			ok = false
			continue
		}
		if err := policy.Validate(p.Version()); err != nil {
			fmt.Printf("FAIL %s: %v\n", p.PackageName, err)
			ok = false
			continue
		}
	}
	fmt.Println("Version policy references: checked", len(ws.Projects), "projects")

	lock, err := openLockfile(ws, log)
	if err != nil {
		return err
	}
	pl := planner.New(ws, lock, cfg.ExplicitPins, paths.commonDir, log)
	plan, err := pl.Plan()
	if err != nil {
		return err
	}
	if lock == nil {
		fmt.Println("Lockfile: not present yet, skipping validation")
	} else if plan.Verdict.Valid {
		fmt.Println("Lockfile: OK")
	} else {
		ok = false
		fmt.Println("Lockfile: INVALID")
		for _, reason := range plan.Verdict.Reasons {
			fmt.Println("  -", reason)
		}
	}

	if !ok {
		os.Exit(1)
	}
	return nil
}
