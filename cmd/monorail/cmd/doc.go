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

// Package cmd implements the command-line interface for monorail.
// It provides commands for installing a common node_modules tree, building
// packages as a dependency graph, linking local packages, and managing
// version bumps and changelogs across a JavaScript monorepo.
//
// The CLI is built using Cobra and provides the following commands:
//
//   - scan: Discover all projects in the workspace and report the dependency graph
//   - check: Validate manifests, version policy references, and the lockfile
//   - install: Plan and install a single common node_modules installation
//   - build: Build or test packages in dependency order with incremental caching
//   - rebuild: Run build with incremental skipping disabled
//   - link: Materialize local symlinks between workspace packages
//   - unlink: Remove local symlinks and clear the link success flag
//   - generate: Recompute the install plan and rewrite the common manifest
//     and stub archives, without installing or linking
//   - change: Record a change-request file for the next publish run
//   - publish: Aggregate pending change files and apply the resulting
//     version bumps, manifest rewrites, and changelogs
//   - version: Enforce and optionally bump version policies across the workspace
//   - completion: Generate shell completion scripts
//
// Global flags available across all commands:
//
//   - -v, --verbose: Enable verbose debug output
//   - -q, --quiet: Suppress informational output (errors only)
//
// Example usage:
//
//	# Discover projects and print the dependency graph
//	monorail scan
//
//	# Install the common node_modules tree
//	monorail install
//
//	# Build everything reachable from a changed project
//	monorail build --from packages/core
//
//	# Record a change file; the next "monorail publish" applies it
//	monorail change --package @scope/web-app --type minor
//
// See individual command documentation for detailed usage and options.
package cmd
