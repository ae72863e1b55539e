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

	"github.com/monorailhq/monorail/internal/workspace"
)

var scanFormat string

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Discover workspace projects and print the dependency graph",
	Long: `Scan loads the repository manifest and every referenced project's
package manifest, validates them, and prints the resulting local
dependency graph.

This does not install or build anything; it is the fastest way to confirm
the workspace is well-formed before running a heavier command.`,
	Example: `  # Print the dependency graph as a table
  monorail scan

  # Machine-readable output
  monorail scan --format json`,
	RunE: runScan,
}

func init() {
	rootCmd.AddCommand(scanCmd)
	scanCmd.Flags().StringVarP(&scanFormat, "format", "f", "table", "output format: table, json")
}

type scanProject struct {
	Name         string   `json:"name"`
	Folder       string   `json:"folder"`
	Version      string   `json:"version"`
	Dependencies []string `json:"dependencies"`
	Downstream   []string `json:"downstream"`
}

func runScan(cmd *cobra.Command, args []string) error {
	ws, _, _, err := loadWorkspace(newLogger())
	if err != nil {
		return err
	}

	names := make([]string, 0, len(ws.Projects))
	for _, p := range ws.Projects {
		names = append(names, p.PackageName)
	}
	sort.Strings(names)

	projects := make([]scanProject, 0, len(names))
	for _, name := range names {
		p, _ := ws.ByName(name)
		projects = append(projects, scanProject{
			Name:         p.PackageName,
			Folder:       p.Folder,
			Version:      p.Version(),
			Dependencies: ws.Graph.Dependencies(name),
			Downstream:   ws.Graph.Downstream(name),
		})
	}

	switch scanFormat {
	case "json":
		return outputJSON(projects)
	case "table":
		return printScanTable(projects)
	default:
		return fmt.Errorf("unsupported format: %s", scanFormat)
	}
}

func printScanTable(projects []scanProject) error {
	if len(projects) == 0 {
		fmt.Println("No projects found.")
		return nil
	}

	fmt.Printf("%-40s %-30s %-10s %s\n", "Package", "Folder", "Version", "Depends on")
	fmt.Println(strings.Repeat("-", 100))
	for _, p := range projects {
		deps := strings.Join(p.Dependencies, ", ")
		if deps == "" {
			deps = "-"
		}
		fmt.Printf("%-40s %-30s %-10s %s\n", p.Name, p.Folder, p.Version, deps)
	}
	fmt.Printf("\nTotal: %d projects\n", len(projects))
	return nil
}

// shorthandOrName resolves a --to/--from argument via the workspace's
// shorthand lookup, surfacing ambiguity as a usage error.
func shorthandOrName(ws *workspace.Workspace, arg string) (string, error) {
	p, err := ws.Resolve(arg)
	if err != nil {
		return "", err
	}
	return p.PackageName, nil
}
