package pyrunner

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"

	"sandbox-harness/config"
	"sandbox-harness/runlog"
	"sandbox-harness/testreport"
)

// outputTailBytes bounds how much pytest output a synthesized report
// embeds.
const outputTailBytes = 4000

// Pipeline runs the Python tests as one pytest invocation. pytest is
// quiet, stops at the first failure, applies the per-test timeout and
// writes the report document itself; whatever happens, a well-formed
// report exists at the configured path when Run returns.
type Pipeline struct {
	cfg      config.PythonConfig
	synth    *testreport.Synthesizer
	rec      runlog.Recorder
	stdout   io.Writer
	progress func(string)
}

// NewPipeline builds a pipeline from the run configuration. The recorder
// and progress callback may be nil.
func NewPipeline(cfg config.PythonConfig, rec runlog.Recorder, progress func(string)) *Pipeline {
	if rec == nil {
		rec = runlog.NewNoopRecorder()
	}
	return &Pipeline{
		cfg:      cfg,
		synth:    testreport.NewSynthesizer(),
		rec:      rec,
		stdout:   os.Stdout,
		progress: progress,
	}
}

// Run executes pytest once. The returned outcome is informational: every
// failure mode is already reflected in the report document, and callers
// exit successfully regardless.
func (p *Pipeline) Run() testreport.Outcome {
	outcome, err := p.run()
	if err != nil {
		p.report(fmt.Sprintf("sandbox failure: %v", err))
		p.rec.RecordError("pipeline", err)
		if synthErr := p.synth.WriteSandboxError(p.cfg.ReportPath, "sandbox failure", err.Error()); synthErr != nil {
			p.report(fmt.Sprintf("failed to write report: %v", synthErr))
		}
		return testreport.OutcomeSandboxError
	}
	return outcome
}

func (p *Pipeline) run() (testreport.Outcome, error) {
	cacheDir, err := os.MkdirTemp("", "pytest-cache-")
	if err != nil {
		return testreport.OutcomeSandboxError, fmt.Errorf("failed to create cache directory: %w", err)
	}
	defer os.RemoveAll(cacheDir)

	args := []string{
		"-q",
		"-x",
		fmt.Sprintf("--timeout=%d", p.cfg.TimeoutSeconds),
		"--junitxml=" + p.cfg.ReportPath,
		"-o", "cache_dir=" + cacheDir,
		p.cfg.TestsDir,
	}
	p.report(fmt.Sprintf("running pytest (per-test timeout %ds)", p.cfg.TimeoutSeconds))

	// One writer for both streams keeps the capture race-free and the
	// combined order intact.
	var captured bytes.Buffer
	combined := io.MultiWriter(p.stdout, &captured)

	timer := runlog.StartStage(p.rec, "pytest")
	cmd := exec.Command(p.cfg.PytestBin, args...)
	cmd.Stdout = combined
	cmd.Stderr = combined
	runErr := cmd.Run()
	if runErr != nil {
		// pytest exits nonzero for failing tests, collection problems and
		// empty suites alike; the report document carries the verdict.
		var exitErr *exec.ExitError
		if !errors.As(runErr, &exitErr) {
			timer.End(runErr)
			return testreport.OutcomeSandboxError, fmt.Errorf("failed to run pytest: %w", runErr)
		}
	}
	timer.End(nil)

	if _, err := os.Stat(p.cfg.ReportPath); err != nil {
		p.report("pytest produced no report")
		p.rec.RecordError("pytest", errors.New("report file missing after run"))
		if err := p.synth.WriteSandboxError(p.cfg.ReportPath, "pytest produced no report", tail(captured.Bytes())); err != nil {
			return testreport.OutcomeSandboxError, err
		}
		return testreport.OutcomeSandboxError, nil
	}

	report, parseErr := testreport.NewParser().ParseFile(p.cfg.ReportPath)
	if parseErr != nil {
		p.report(fmt.Sprintf("pytest report not parseable: %v", parseErr))
		p.rec.RecordError("pytest", parseErr)
		detail := fmt.Sprintf("%v\n%s", parseErr, tail(captured.Bytes()))
		if err := p.synth.WriteSandboxError(p.cfg.ReportPath, "pytest produced a malformed report", detail); err != nil {
			return testreport.OutcomeSandboxError, err
		}
		return testreport.OutcomeSandboxError, nil
	}

	totals := report.Totals()
	p.report(fmt.Sprintf("report written: %d tests, %d failures, %d errors",
		totals.Tests, totals.Failures, totals.Errors))
	return testreport.OutcomeTestsRan, nil
}

func (p *Pipeline) report(message string) {
	if p.progress != nil {
		p.progress(message)
	}
}

// tail returns the last chunk of the captured output, bounded so a noisy
// run cannot bloat the report.
func tail(b []byte) string {
	if len(b) <= outputTailBytes {
		return string(b)
	}
	return string(b[len(b)-outputTailBytes:])
}
