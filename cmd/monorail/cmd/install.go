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
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/monorailhq/monorail/internal/installer"
	"github.com/monorailhq/monorail/internal/linker"
	"github.com/monorailhq/monorail/internal/planner"
	"github.com/monorailhq/monorail/internal/secureio"
	"github.com/monorailhq/monorail/internal/workspace"
)

var (
	installClean        bool
	installFullClean    bool
	installBypassPolicy bool
	installNoLink       bool
)

var installCmd = &cobra.Command{
	Use:   "install",
	Short: "Plan and install a single common node_modules installation",
	Long: `Install synthesizes a common installation manifest from every
project's declared dependencies, reconciles it against the committed
lockfile, drives the external installer, and materializes local symlinks
between workspace projects.

This is the install flow described by the planner (C3), lockfile adapter
(C2), installer driver (C4), and local linker (C5): it never runs builds.`,
	Example: `  # Install using the existing lockfile
  monorail install

  # Force a clean reinstall (recycles the installer cache)
  monorail install --full-clean

  # Skip local symlinking, useful for CI that only needs the shared tree
  monorail install --no-link`,
	RunE: runInstall,
}

func init() {
	rootCmd.AddCommand(installCmd)
	installCmd.Flags().BoolVar(&installClean, "clean", false, "remove the shared installed-dependency tree before installing")
	installCmd.Flags().BoolVar(&installFullClean, "full-clean", false, "also reinstall the installer tool itself, in addition to a full clean")
	installCmd.Flags().BoolVar(&installBypassPolicy, "bypass-policy", false, "proceed even if the lockfile fails validation against the plan")
	installCmd.Flags().BoolVar(&installNoLink, "no-link", false, "skip materializing local symlinks after install")
}

func runInstall(cmd *cobra.Command, args []string) error {
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

	if !plan.Verdict.Valid {
		for _, reason := range plan.Verdict.Reasons {
			log.Warn("lockfile validation", "reason", reason)
		}
		if !installBypassPolicy {
			return fmt.Errorf("lockfile is invalid against the current plan (%d reasons); rerun with --bypass-policy to proceed anyway", len(plan.Verdict.Reasons))
		}
		log.Warn("proceeding with invalid lockfile due to --bypass-policy")
	}

	if err := pl.WriteStubArchives(plan); err != nil {
		return err
	}
	if err := writeCommonManifest(paths.commonManifest, plan.CommonManifest); err != nil {
		return err
	}
	fmt.Printf("Planned %d stub(s), %d local link edge(s), %d pinned dependency(ies)\n",
		len(plan.Stubs), len(plan.LocalLinks), len(plan.Pins))

	mode := installer.Normal
	switch {
	case installFullClean:
		mode = installer.UnsafePurge
	case installClean:
		mode = installer.ForceClean
	}

	driver := installer.New(installer.Options{
		SuccessMarkerPath:     paths.installMarker,
		SharedModulesDir:      paths.sharedModules,
		LockfilePath:          paths.shrinkwrap,
		StubArchivePaths:      stubArchivePaths(plan),
		ToolVersionMarkerPath: paths.toolMarker,
		InstallCacheDir:       paths.installCache,
		TransientDir:          paths.transientDir,
		RecyclerDir:           paths.recyclerDir,
		Command:               installerCommand(ws),
		WorkDir:               paths.commonDir,
	}, log)

	result, err := driver.Run(context.Background(), mode)
	if err != nil {
		return fmt.Errorf("install failed: %w", err)
	}
	fmt.Printf("Install: %s (mode=%s)\n", result.Status, result.Mode)

	if result.Status == installer.Success {
		if err := linker.Invalidate(paths.commonDir); err != nil {
			return err
		}
	}

	if installNoLink {
		return nil
	}

	lk := linker.New(ws.Root, ws, log)
	if err := lk.Link(paths.commonDir, plan.LocalLinks); err != nil {
		return fmt.Errorf("link failed: %w", err)
	}
	fmt.Println("Local links: OK")
	return nil
}

func stubArchivePaths(plan *planner.Plan) []string {
	paths := make([]string, 0, len(plan.Stubs))
	for _, s := range plan.Stubs {
		paths = append(paths, s.ArchivePath)
	}
	return paths
}

// installerCommand builds the subprocess argv for the repository's
// configured installer tool, invoked against the synthesized common
// manifest.
func installerCommand(ws *workspace.Workspace) []string {
	return []string{ws.Repo.InstallerName, "install", "--no-save"}
}

func writeCommonManifest(path string, manifest planner.CommonManifest) error {
	data, err := json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')
	return secureio.WriteFile(path, data, 0o644)
}
