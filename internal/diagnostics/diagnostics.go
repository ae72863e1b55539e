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

// Package diagnostics turns raw build-tool output into structured
// diagnostics via an ordered list of regex rules, and renders them for
// local or CI consumption.
package diagnostics

import (
	"fmt"
	"regexp"
)

// Diagnostic is one structured finding extracted from build output.
type Diagnostic struct {
	Category string
	Message  string
	File     string
	Line     int
	Column   int
}

// DisplayMode selects how a Diagnostic is rendered for the scheduler's
// final report.
type DisplayMode int

const (
	// Local renders a compact "file:line:col category: message" line for
	// an interactive terminal.
	Local DisplayMode = iota
	// CIPlain renders the same shape as Local but never assumes a
	// terminal is reading it (no positional shorthand omitted), suitable
	// for captured CI logs that a human reads after the fact.
	CIPlain
	// CIIDELinked renders an Azure Pipelines "##vso[task.logissue]"
	// logging command, so the hosted build surfaces the diagnostic
	// against the originating file and line directly in its UI.
	CIIDELinked
)

// Render formats d according to mode.
func (d Diagnostic) Render(mode DisplayMode) string {
	switch mode {
	case CIIDELinked:
		issueType := "warning"
		if d.Category != "lint" {
			issueType = "error"
		}
		var loc string
		if d.File != "" {
			loc = fmt.Sprintf(";sourcepath=%s;linenumber=%d;columnnumber=%d", d.File, d.Line, d.Column)
		}
		return fmt.Sprintf("##vso[task.logissue type=%s%s]%s", issueType, loc, d.Message)
	case CIPlain:
		if d.File == "" {
			return fmt.Sprintf("%s: %s", d.Category, d.Message)
		}
		return fmt.Sprintf("%s:%d:%d %s: %s", d.File, d.Line, d.Column, d.Category, d.Message)
	default: // Local
		if d.File == "" {
			return fmt.Sprintf("[%s] %s", d.Category, d.Message)
		}
		return fmt.Sprintf("%s:%d:%d [%s] %s", d.File, d.Line, d.Column, d.Category, d.Message)
	}
}

// Rule matches a line of output and constructs the Diagnostic it implies.
type Rule struct {
	Pattern *regexp.Regexp
	Build   func(match []string) Diagnostic
}

// Scanner applies an ordered list of rules to build output, one line at a
// time; the first matching rule wins.
type Scanner struct {
	rules []Rule
}

// NewScanner constructs a Scanner from an ordered rule list.
func NewScanner(rules []Rule) *Scanner {
	return &Scanner{rules: rules}
}

// DefaultRules returns the rule set monorail ships: TypeScript-style
// "file(line,col): error TSxxxx: message", ESLint-style
// "file:line:col: message", and a catch-all error-keyword rule.
func DefaultRules() []Rule {
	tsPattern := regexp.MustCompile(`^(.+?)\((\d+),(\d+)\): (error|warning) (TS\d+): (.+)$`)
	lintPattern := regexp.MustCompile(`^(.+?):(\d+):(\d+):\s+(.+)$`)
	genericErrorPattern := regexp.MustCompile(`(?i)\berror\b`)

	return []Rule{
		{
			Pattern: tsPattern,
			Build: func(m []string) Diagnostic {
				return Diagnostic{
					Category: "typescript",
					Message:  m[5] + ": " + m[6],
					File:     m[1],
					Line:     atoiSafe(m[2]),
					Column:   atoiSafe(m[3]),
				}
			},
		},
		{
			Pattern: lintPattern,
			Build: func(m []string) Diagnostic {
				return Diagnostic{
					Category: "lint",
					Message:  m[4],
					File:     m[1],
					Line:     atoiSafe(m[2]),
					Column:   atoiSafe(m[3]),
				}
			},
		},
		{
			Pattern: genericErrorPattern,
			Build: func(m []string) Diagnostic {
				return Diagnostic{Category: "build", Message: m[0]}
			},
		},
	}
}

func atoiSafe(s string) int {
	n := 0
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0
		}
		n = n*10 + int(r-'0')
	}
	return n
}

// ScanLine applies the first matching rule to line and returns the
// resulting Diagnostic, or ok=false if no rule matched.
func (s *Scanner) ScanLine(line string) (Diagnostic, bool) {
	for _, rule := range s.rules {
		if m := rule.Pattern.FindStringSubmatch(line); m != nil {
			return rule.Build(m), true
		}
	}
	return Diagnostic{}, false
}

// Scan applies ScanLine to every line in lines and returns every match, in
// line order.
func (s *Scanner) Scan(lines []string) []Diagnostic {
	var out []Diagnostic
	for _, line := range lines {
		if d, ok := s.ScanLine(line); ok {
			out = append(out, d)
		}
	}
	return out
}
