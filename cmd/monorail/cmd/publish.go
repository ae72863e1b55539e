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
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/monorailhq/monorail/internal/changeset"
)

var (
	publishPrerelease string
	publishExclude    []string
	publishDryRun     bool
)

var publishCmd = &cobra.Command{
	Use:   "publish",
	Short: "Aggregate change files and apply the resulting version bumps",
	Long: `Publish runs the change pipeline (C11): every *.json file under
changes/ is read, aggregated per package by maximum change kind,
propagated downstream through the dependency graph (registering a
dependency-kind or patch-kind change on any local consumer whose declared
range does or does not still cover the new version), and applied —
rewriting each affected manifest's version and dependency ranges and
emitting changelog entries — unless --dry-run is set.`,
	Example: `  # Apply pending changes
  monorail publish

  # Preview what would happen without touching any file
  monorail publish --dry-run

  # Cut a prerelease: versions hold, changelogs are elided
  monorail publish --prerelease beta`,
	RunE: runPublish,
}

func init() {
	rootCmd.AddCommand(publishCmd)
	publishCmd.Flags().StringVar(&publishPrerelease, "prerelease", "", "prerelease token: hold every version, still propagate downstream signal")
	publishCmd.Flags().StringArrayVar(&publishExclude, "exclude", nil, "package name to exclude from publishing (repeatable)")
	publishCmd.Flags().BoolVar(&publishDryRun, "dry-run", false, "compute the plan without rewriting manifests, changelogs, or change files")
}

func runPublish(cmd *cobra.Command, args []string) error {
	log := newLogger()
	ws, _, paths, err := loadWorkspace(log)
	if err != nil {
		return err
	}

	exclude := make(map[string]struct{}, len(publishExclude))
	for _, name := range publishExclude {
		exclude[name] = struct{}{}
	}

	pipeline := changeset.New(ws, changeset.Options{
		ChangesDir:      paths.changesDir,
		PrereleaseToken: publishPrerelease,
		Exclude:         exclude,
		DryRun:          publishDryRun,
	}, log)

	result, err := pipeline.Run()
	if err != nil {
		return fmt.Errorf("publish failed: %w", err)
	}

	if len(result.ApplyOrder) == 0 {
		fmt.Println("No pending changes.")
		return nil
	}

	fmt.Printf("%-40s %-12s %-10s -> %s\n", "Package", "Kind", "Order", "New version")
	fmt.Println(strings.Repeat("-", 80))
	for _, name := range result.ApplyOrder {
		pc := result.Pending[name]
		fmt.Printf("%-40s %-12s %-10d %s\n", name, pc.Kind, pc.Order, pc.NewVersion)
	}

	if publishDryRun {
		if len(result.Patches) > 0 {
			fmt.Println()
			names := make([]string, 0, len(result.Patches))
			for name := range result.Patches {
				names = append(names, name)
			}
			sort.Strings(names)
			for _, name := range names {
				fmt.Print(result.Patches[name])
			}
		}
		fmt.Println("\nDry run: no files were written.")
		return nil
	}

	names := make([]string, 0, len(result.Changelogs))
	for _, entry := range result.Changelogs {
		names = append(names, entry.PackageName)
	}
	sort.Strings(names)
	fmt.Printf("\nWrote %d changelog entr(y/ies): %s\n", len(result.Changelogs), strings.Join(names, ", "))
	return nil
}
