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

	"github.com/spf13/cobra"

	"github.com/monorailhq/monorail/internal/planner"
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Regenerate the synthesized common manifest and stub archives",
	Long: `Generate re-runs the install planner (C3) and writes its synthesized
common/temp/package.json and per-project stub archives, without touching
the committed lockfile, invoking the installer, or materializing local
links. Useful for inspecting what the next install would plan, or for
regenerating the stub archives after editing a project's scripts without
otherwise changing its dependencies.`,
	RunE: runGenerate,
}

func init() {
	rootCmd.AddCommand(generateCmd)
}

func runGenerate(cmd *cobra.Command, args []string) error {
	log := newLogger()
	ws, cfg, paths, err := loadWorkspace(log)
	if err != nil {
		return err
	}
	lock, err := openLockfile(ws, log)
	if err != nil {
		return err
	}

	pl := planner.New(ws, lock, cfg.ExplicitPins, paths.commonDir, log)
	plan, err := pl.Plan()
	if err != nil {
		return err
	}
	if err := pl.WriteStubArchives(plan); err != nil {
		return err
	}
	if err := writeCommonManifest(paths.commonManifest, plan.CommonManifest); err != nil {
		return err
	}

	fmt.Printf("Generated %s and %d stub archive(s) under %s\n", paths.commonManifest, len(plan.Stubs), paths.commonProjects)
	if !plan.Verdict.Valid {
		fmt.Println("Note: current lockfile does not satisfy this plan:")
		for _, reason := range plan.Verdict.Reasons {
			fmt.Println("  -", reason)
		}
	}
	return nil
}
