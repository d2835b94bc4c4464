package javarunner

import (
	"errors"
	"fmt"
	"os"
	"os/exec"

	"sandbox-harness/config"
)

// CompileResult carries the outcome of one compiler invocation.
type CompileResult struct {
	OK          bool
	Diagnostics string
}

// Compiler invokes javac once over the collected sources.
type Compiler struct {
	javacBin  string
	classpath string
	buildDir  string
}

// NewCompiler creates a compiler bound to the run configuration.
func NewCompiler(cfg config.JavaConfig) *Compiler {
	return &Compiler{
		javacBin:  cfg.JavacBin,
		classpath: cfg.JUnitJar,
		buildDir:  cfg.BuildDir,
	}
}

// Compile compiles every source file into the build directory with the
// launcher jar on the classpath. A failing compilation is a result, not
// an error: the combined compiler output comes back verbatim for the
// report. An error means javac could not be run at all.
func (c *Compiler) Compile(sources []string) (CompileResult, error) {
	if err := os.MkdirAll(c.buildDir, 0755); err != nil {
		return CompileResult{}, fmt.Errorf("failed to create build directory: %w", err)
	}

	args := append([]string{"-cp", c.classpath, "-d", c.buildDir}, sources...)
	cmd := exec.Command(c.javacBin, args...)
	output, err := cmd.CombinedOutput()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return CompileResult{OK: false, Diagnostics: string(output)}, nil
		}
		return CompileResult{}, fmt.Errorf("failed to run javac: %w", err)
	}
	return CompileResult{OK: true, Diagnostics: string(output)}, nil
}
