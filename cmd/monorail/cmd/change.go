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
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/monorailhq/monorail/internal/changeset"
	"github.com/monorailhq/monorail/internal/secureio"
)

var (
	changePackage string
	changeType    string
	changeComment string
	changeAuthor  string
	changeCommit  string
)

var changeCmd = &cobra.Command{
	Use:   "change",
	Short: "Record a change-request file for the next publish run",
	Long: `Change writes one change-file entry under the changes/ folder: the
per-change JSON record the change pipeline (C11) aggregates per package
when "monorail publish" next runs.`,
	Example: `  monorail change --package @scope/web-app --type minor --comment "Add dark mode toggle"`,
	RunE:    runChange,
}

func init() {
	rootCmd.AddCommand(changeCmd)
	changeCmd.Flags().StringVar(&changePackage, "package", "", "package name this change applies to (required)")
	changeCmd.Flags().StringVar(&changeType, "type", "", "none, dependency, patch, minor, or major (required)")
	changeCmd.Flags().StringVar(&changeComment, "comment", "", "human-readable summary, carried into the changelog")
	changeCmd.Flags().StringVar(&changeAuthor, "author", "", "change author, recorded but not interpreted by the pipeline")
	changeCmd.Flags().StringVar(&changeCommit, "commit", "", "commit hash this change is associated with")
	_ = changeCmd.MarkFlagRequired("package")
	_ = changeCmd.MarkFlagRequired("type")
}

var validChangeKinds = map[string]changeset.ChangeKind{
	"none":       changeset.KindNone,
	"dependency": changeset.KindDependency,
	"patch":      changeset.KindPatch,
	"minor":      changeset.KindMinor,
	"major":      changeset.KindMajor,
}

func runChange(cmd *cobra.Command, args []string) error {
	log := newLogger()
	ws, _, paths, err := loadWorkspace(log)
	if err != nil {
		return err
	}
	if _, ok := ws.ByName(changePackage); !ok {
		return fmt.Errorf("unknown package %q", changePackage)
	}
	kind, ok := validChangeKinds[changeType]
	if !ok {
		return fmt.Errorf("unknown --type %q", changeType)
	}

	file := changeset.ChangeFile{
		PackageName: changePackage,
		Author:      changeAuthor,
		Commit:      changeCommit,
		Changes: []changeset.ChangeInfo{
			{Kind: kind, Comment: changeComment},
		},
	}

	data, err := json.MarshalIndent(file, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')

	if err := os.MkdirAll(paths.changesDir, 0o755); err != nil {
		return err
	}
	fileName := fmt.Sprintf("%s-%d.json", sanitizeFileName(changePackage), time.Now().UnixNano())
	out := filepath.Join(paths.changesDir, fileName)
	if err := secureio.WriteFile(out, data, 0o644); err != nil {
		return err
	}
	fmt.Println("Wrote", out)
	return nil
}

func sanitizeFileName(name string) string {
	out := make([]rune, 0, len(name))
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-':
			out = append(out, r)
		default:
			out = append(out, '-')
		}
	}
	return string(out)
}
