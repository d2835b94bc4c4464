package javarunner

import (
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"
)

// Discoverer finds candidate test classes among compiled artifacts.
type Discoverer struct {
	buildDir string
}

// NewDiscoverer creates a discoverer over the given build directory.
func NewDiscoverer(buildDir string) *Discoverer {
	return &Discoverer{buildDir: buildDir}
}

// Discover walks the build directory and returns the fully-qualified name
// of every compiled class whose simple name ends in Test or Tests, in
// traversal order. Inner-class artifacts are skipped; the classpath scan
// fallback still reaches any tests they contain.
func (d *Discoverer) Discover() ([]string, error) {
	classes := make([]string, 0)
	err := filepath.WalkDir(d.buildDir, func(path string, de fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if de.IsDir() {
			return nil
		}
		name := de.Name()
		if !strings.HasSuffix(name, ".class") {
			return nil
		}
		simple := strings.TrimSuffix(name, ".class")
		if strings.Contains(simple, "$") {
			return nil
		}
		if !strings.HasSuffix(simple, "Test") && !strings.HasSuffix(simple, "Tests") {
			return nil
		}
		rel, err := filepath.Rel(d.buildDir, path)
		if err != nil {
			return err
		}
		fqn := strings.ReplaceAll(filepath.ToSlash(strings.TrimSuffix(rel, ".class")), "/", ".")
		classes = append(classes, fqn)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan build directory: %w", err)
	}
	return classes, nil
}
