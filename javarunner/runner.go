package javarunner

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"sandbox-harness/config"
	"sandbox-harness/filesystem"
	"sandbox-harness/testreport"
)

// RunState describes where a fail-fast pass ended.
type RunState int

const (
	// StatePending means no class has been attempted yet.
	StatePending RunState = iota
	// StateRunning means a class execution is in flight.
	StateRunning
	// StateHalted means the pass stopped early on a failing class.
	StateHalted
	// StateDone means every class ran without a failure or error.
	StateDone
)

func (s RunState) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateRunning:
		return "running"
	case StateHalted:
		return "halted"
	case StateDone:
		return "done"
	default:
		return "unknown"
	}
}

// RunContext threads the per-pass state through the fail-fast loop: the
// fragments produced so far in execution order and the running counter
// totals the halt decision reads. A fresh context is built per pass;
// nothing survives between invocations.
type RunContext struct {
	Fragments []string
	Totals    testreport.Totals
}

// addFragments parses each new fragment's suite counters into the totals
// and appends the fragment to the ordered list.
func (rc *RunContext) addFragments(paths []string) error {
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to read fragment: %w", err)
		}
		chunks, err := testreport.ScanSuites(data)
		if err != nil {
			return fmt.Errorf("fragment %s: %w", filepath.Base(path), err)
		}
		for _, chunk := range chunks {
			rc.Totals.Add(chunk)
		}
		rc.Fragments = append(rc.Fragments, path)
	}
	return nil
}

// RunResult summarizes one fail-fast pass.
type RunResult struct {
	State      RunState
	ClassesRun []string
	Fragments  []string
	Totals     testreport.Totals
}

// FailFastRunner executes test classes strictly one at a time, stopping
// after the first class whose fragments report any failure or error.
type FailFastRunner struct {
	cfg      config.JavaConfig
	fs       *filesystem.Manager
	stdout   io.Writer
	stderr   io.Writer
	progress func(string)
}

// NewFailFastRunner creates a runner bound to the run configuration.
// Launcher output is forwarded to the process streams; progress may be
// nil.
func NewFailFastRunner(cfg config.JavaConfig, progress func(string)) *FailFastRunner {
	return &FailFastRunner{
		cfg:      cfg,
		fs:       filesystem.NewManager(),
		stdout:   os.Stdout,
		stderr:   os.Stderr,
		progress: progress,
	}
}

// Run executes the ordered classes fail-fast. The shared reports
// directory is cleared exactly once, at pass start; each class writes its
// fragments into an indexed subdirectory so successive launcher runs
// cannot clobber each other's files. Launcher exit codes are ignored
// (the console launcher exits nonzero on failing tests); only a launcher
// that cannot run at all is an error.
func (r *FailFastRunner) Run(classes []string) (*RunResult, error) {
	rc, err := r.startPass()
	if err != nil {
		return nil, err
	}

	result := &RunResult{State: StatePending}
	for i, class := range classes {
		result.State = StateRunning
		fragDir := filepath.Join(r.cfg.ReportsDir, fmt.Sprintf("%03d-%s", i+1, class))
		if err := r.runLauncher(fragDir, "--select-class", class); err != nil {
			return nil, err
		}

		fragments, err := listFragments(fragDir)
		if err != nil {
			return nil, err
		}
		if err := rc.addFragments(fragments); err != nil {
			return nil, err
		}
		result.ClassesRun = append(result.ClassesRun, class)
		r.report(fmt.Sprintf("ran %s (%d tests, %d failures, %d errors so far)",
			class, rc.Totals.Tests, rc.Totals.Failures, rc.Totals.Errors))

		if rc.Totals.Failed() {
			result.State = StateHalted
			r.report(fmt.Sprintf("halting after %s", class))
			break
		}
	}
	if result.State != StateHalted {
		result.State = StateDone
	}

	result.Fragments = rc.Fragments
	result.Totals = rc.Totals
	return result, nil
}

// RunScan performs a single classpath-scan run, used when no class
// follows the naming convention. Finding nothing is not an error.
func (r *FailFastRunner) RunScan() (*RunResult, error) {
	rc, err := r.startPass()
	if err != nil {
		return nil, err
	}

	fragDir := filepath.Join(r.cfg.ReportsDir, "scan")
	if err := r.runLauncher(fragDir, "--scan-classpath"); err != nil {
		return nil, err
	}

	fragments, err := listFragments(fragDir)
	if err != nil {
		return nil, err
	}
	if err := rc.addFragments(fragments); err != nil {
		return nil, err
	}
	r.report(fmt.Sprintf("classpath scan found %d tests", rc.Totals.Tests))

	return &RunResult{
		State:     StateDone,
		Fragments: rc.Fragments,
		Totals:    rc.Totals,
	}, nil
}

func (r *FailFastRunner) startPass() (*RunContext, error) {
	if err := r.fs.ClearDirectory(r.cfg.ReportsDir); err != nil {
		return nil, fmt.Errorf("failed to reset reports directory: %w", err)
	}
	return &RunContext{Fragments: make([]string, 0)}, nil
}

func (r *FailFastRunner) runLauncher(fragDir string, selectors ...string) error {
	if err := r.fs.CreateDirectory(fragDir); err != nil {
		return fmt.Errorf("failed to create fragment directory: %w", err)
	}

	args := []string{
		"-jar", r.cfg.JUnitJar,
		"-cp", r.cfg.BuildDir,
		"--reports-dir", fragDir,
		"--disable-banner",
		"--disable-ansi-colors",
	}
	args = append(args, selectors...)

	cmd := exec.Command(r.cfg.JavaBin, args...)
	cmd.Stdout = r.stdout
	cmd.Stderr = r.stderr
	if err := cmd.Run(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return nil
		}
		return fmt.Errorf("failed to run test launcher: %w", err)
	}
	return nil
}

func (r *FailFastRunner) report(message string) {
	if r.progress != nil {
		r.progress(message)
	}
}

// listFragments returns the XML files of one launcher run in lexical
// order.
func listFragments(fragDir string) ([]string, error) {
	entries, err := os.ReadDir(fragDir)
	if err != nil {
		return nil, fmt.Errorf("failed to list fragment directory: %w", err)
	}
	fragments := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".xml") {
			continue
		}
		fragments = append(fragments, filepath.Join(fragDir, entry.Name()))
	}
	return fragments, nil
}
