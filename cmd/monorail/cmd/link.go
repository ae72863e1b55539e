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

	"github.com/monorailhq/monorail/internal/linker"
	"github.com/monorailhq/monorail/internal/planner"
)

var linkCmd = &cobra.Command{
	Use:   "link",
	Short: "Materialize local symlinks from the last planned install",
	Long: `Link re-derives the planner's local-link decisions from the current
workspace state and re-creates the transitive symlinks (C5) without
touching the shared installed-dependency tree. Useful after switching
branches when node_modules itself hasn't changed but which projects
should be locally linked has.`,
	RunE: runLink,
}

var unlinkCmd = &cobra.Command{
	Use:   "unlink",
	Short: "Remove every project's local symlinks and reset the link flag",
	Long: `Unlink deletes node_modules/<name> for every local-link edge the
planner would currently produce, and clears the link success flag so the
next install or link recreates them from scratch.`,
	RunE: runUnlink,
}

func init() {
	rootCmd.AddCommand(linkCmd)
	rootCmd.AddCommand(unlinkCmd)
}

func runLink(cmd *cobra.Command, args []string) error {
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

	if err := linker.Invalidate(paths.commonDir); err != nil {
		return err
	}
	lk := linker.New(ws.Root, ws, log)
	if err := lk.Link(paths.commonDir, plan.LocalLinks); err != nil {
		return fmt.Errorf("link failed: %w", err)
	}
	fmt.Printf("Local links: OK (%d edge(s))\n", len(plan.LocalLinks))
	return nil
}

func runUnlink(cmd *cobra.Command, args []string) error {
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

	if err := linker.Remove(ws.Root, ws, plan.LocalLinks); err != nil {
		return fmt.Errorf("unlink failed: %w", err)
	}
	if err := linker.Invalidate(paths.commonDir); err != nil {
		return err
	}
	fmt.Println("Local links removed.")
	return nil
}
