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

package planner

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/monorailhq/monorail/internal/monorailerr"
)

// buildStubArchive renders manifest as a single-entry gzipped tarball
// (package/package.json, matching npm packaging convention). The tar and
// gzip headers carry no timestamps or host-specific fields, so identical
// manifests always produce byte-identical archives.
func buildStubArchive(manifest StubManifest) ([]byte, error) {
	content, err := json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		return nil, monorailerr.Internalf("marshal stub manifest %s: %v", manifest.Name, err)
	}
	content = append(content, '\n')

	var tarBuf bytes.Buffer
	tw := tar.NewWriter(&tarBuf)
	header := &tar.Header{
		Name:     "package/package.json",
		Mode:     0o644,
		Size:     int64(len(content)),
		Typeflag: tar.TypeReg,
	}
	if err := tw.WriteHeader(header); err != nil {
		return nil, monorailerr.Internalf("write tar header for %s: %v", manifest.Name, err)
	}
	if _, err := tw.Write(content); err != nil {
		return nil, monorailerr.Internalf("write tar content for %s: %v", manifest.Name, err)
	}
	if err := tw.Close(); err != nil {
		return nil, monorailerr.Internalf("close tar writer for %s: %v", manifest.Name, err)
	}

	var gzBuf bytes.Buffer
	gw, err := gzip.NewWriterLevel(&gzBuf, gzip.BestCompression)
	if err != nil {
		return nil, monorailerr.Internalf("create gzip writer for %s: %v", manifest.Name, err)
	}
	if _, err := gw.Write(tarBuf.Bytes()); err != nil {
		return nil, monorailerr.Internalf("write gzip content for %s: %v", manifest.Name, err)
	}
	if err := gw.Close(); err != nil {
		return nil, monorailerr.Internalf("close gzip writer for %s: %v", manifest.Name, err)
	}

	return gzBuf.Bytes(), nil
}

// WriteStubArchives writes every stub's archive to disk, skipping the write
// (and preserving the existing file's mtime) when the freshly computed
// bytes are identical to what is already there. Downstream incremental
// logic depends on the mtime only changing when content changes.
func (p *Planner) WriteStubArchives(plan *Plan) error {
	for _, proj := range p.ws.Projects {
		stub := plan.Stubs[proj.PackageName]
		archive, err := buildStubArchive(stub.Manifest)
		if err != nil {
			return err
		}

		existing, readErr := os.ReadFile(stub.ArchivePath) // #nosec G304 - path derived from workspace-controlled temp dir
		if readErr == nil && bytes.Equal(existing, archive) {
			stub.Changed = false
			continue
		}

		if err := os.MkdirAll(filepath.Dir(stub.ArchivePath), 0o755); err != nil {
			return monorailerr.TransientIOf(err, "create stub directory for %s", proj.PackageName)
		}
		if err := os.WriteFile(stub.ArchivePath, archive, 0o644); err != nil { // #nosec G306 - stub archives are not secrets
			return monorailerr.TransientIOf(err, "write stub archive for %s", proj.PackageName)
		}
		stub.Changed = true
	}
	return nil
}
