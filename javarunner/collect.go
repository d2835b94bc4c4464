package javarunner

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/bmatcuk/doublestar/v4"
)

// DefaultSourcePatterns matches the files handed to the compiler.
var DefaultSourcePatterns = []string{"**/*.java"}

// DefaultSkipDirs are never descended into while collecting sources.
var DefaultSkipDirs = map[string]bool{
	".git":    true,
	".gradle": true,
	".idea":   true,
	"build":   true,
	"target":  true,
	"out":     true,
}

// Collector enumerates the Java sources for one pipeline run.
type Collector struct {
	patterns []string
	skipDirs map[string]bool
}

// CollectorOption customizes a Collector.
type CollectorOption func(*Collector)

// WithSourcePatterns overrides the glob patterns applied to candidate
// files. Patterns match against slash-separated paths relative to the
// source root.
func WithSourcePatterns(patterns ...string) CollectorOption {
	return func(c *Collector) {
		c.patterns = patterns
	}
}

// WithSkipDirs overrides the directory names excluded from traversal.
func WithSkipDirs(names ...string) CollectorOption {
	return func(c *Collector) {
		c.skipDirs = make(map[string]bool, len(names))
		for _, name := range names {
			c.skipDirs[name] = true
		}
	}
}

// NewCollector creates a source collector with the default patterns.
func NewCollector(opts ...CollectorOption) *Collector {
	c := &Collector{
		patterns: DefaultSourcePatterns,
		skipDirs: DefaultSkipDirs,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Collect walks the given roots in order and returns every matching file.
// Roots that do not exist are skipped, traversal within a root is lexical,
// so the resulting list is deterministic for a given tree.
func (c *Collector) Collect(roots ...string) ([]string, error) {
	files := make([]string, 0)
	for _, root := range roots {
		info, err := os.Stat(root)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, fmt.Errorf("failed to stat source root %s: %w", root, err)
		}
		if !info.IsDir() {
			continue
		}

		err = filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
			if walkErr != nil {
				return walkErr
			}
			if d.IsDir() {
				if path != root && c.skipDirs[d.Name()] {
					return filepath.SkipDir
				}
				return nil
			}
			rel, err := filepath.Rel(root, path)
			if err != nil {
				return err
			}
			matched, err := c.matches(filepath.ToSlash(rel))
			if err != nil {
				return err
			}
			if matched {
				files = append(files, path)
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("failed to walk source root %s: %w", root, err)
		}
	}
	return files, nil
}

func (c *Collector) matches(relPath string) (bool, error) {
	for _, pattern := range c.patterns {
		ok, err := doublestar.Match(pattern, relPath)
		if err != nil {
			return false, fmt.Errorf("invalid source pattern %q: %w", pattern, err)
		}
		if ok {
			return true, nil
		}
	}
	return false, nil
}
