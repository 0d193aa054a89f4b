// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Vesper Contributors

package plugin

import (
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/gobwas/glob"
	"github.com/samber/oops"
)

// SourceExt is the extension of recognized plugin source files.
const SourceExt = ".lua"

// maxScanDepth bounds directory recursion so a symlink cycle inside the
// plugin tree cannot hang discovery.
const maxScanDepth = 16

// Candidate is a discovered plugin source file.
type Candidate struct {
	// Name is the file basename without extension.
	Name string
	// Path is the absolute path of the source file.
	Path string
}

// Scanner enumerates plugin source files under a root directory.
// Callers must not assume any particular order of results.
type Scanner struct {
	root   string
	ignore []glob.Glob
}

// ScannerOption configures a Scanner.
type ScannerOption func(*Scanner) error

// WithIgnore adds glob patterns, matched against the slash-separated path
// relative to the scan root, whose files are skipped during discovery.
func WithIgnore(patterns ...string) ScannerOption {
	return func(s *Scanner) error {
		for _, p := range patterns {
			g, err := glob.Compile(p, '/')
			if err != nil {
				return oops.In("scanner").With("pattern", p).Hint("invalid ignore pattern").Wrap(err)
			}
			s.ignore = append(s.ignore, g)
		}
		return nil
	}
}

// NewScanner creates a scanner rooted at dir. The root is resolved to an
// absolute path so discovered candidates carry absolute paths.
func NewScanner(dir string, opts ...ScannerOption) (*Scanner, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, oops.In("scanner").With("dir", dir).Wrap(err)
	}
	s := &Scanner{root: abs}
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// Root returns the absolute scan root.
func (s *Scanner) Root() string {
	return s.root
}

// Scan walks the root recursively and returns one candidate per recognized
// source file. A missing root yields no candidates rather than an error.
func (s *Scanner) Scan() ([]Candidate, error) {
	var found []Candidate

	err := filepath.WalkDir(s.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == s.root {
				return nil // no plugin directory
			}
			return err
		}

		rel, relErr := filepath.Rel(s.root, path)
		if relErr != nil {
			return relErr
		}
		rel = filepath.ToSlash(rel)

		if d.IsDir() {
			if depth(rel) >= maxScanDepth {
				return fs.SkipDir
			}
			return nil
		}
		if filepath.Ext(path) != SourceExt {
			return nil
		}
		for _, g := range s.ignore {
			if g.Match(rel) {
				return nil
			}
		}

		name := strings.TrimSuffix(d.Name(), SourceExt)
		found = append(found, Candidate{Name: name, Path: path})
		return nil
	})
	if err != nil {
		return nil, oops.In("scanner").With("root", s.root).Wrap(err)
	}
	return found, nil
}

func depth(rel string) int {
	if rel == "." {
		return 0
	}
	return strings.Count(rel, "/") + 1
}
