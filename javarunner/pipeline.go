package javarunner

import (
	"errors"
	"fmt"

	"sandbox-harness/config"
	"sandbox-harness/runlog"
	"sandbox-harness/testreport"
)

// Pipeline wires the Java steps end to end: collect, compile, discover,
// run fail-fast, merge. Whatever happens along the way, a report document
// exists at the configured path when Run returns.
type Pipeline struct {
	cfg       config.JavaConfig
	collector *Collector
	compiler  *Compiler
	disc      *Discoverer
	runner    *FailFastRunner
	merger    *testreport.Merger
	synth     *testreport.Synthesizer
	rec       runlog.Recorder
	progress  func(string)
}

// NewPipeline builds a pipeline from the run configuration. The recorder
// and progress callback may be nil.
func NewPipeline(cfg config.JavaConfig, rec runlog.Recorder, progress func(string)) *Pipeline {
	if rec == nil {
		rec = runlog.NewNoopRecorder()
	}
	return &Pipeline{
		cfg:       cfg,
		collector: NewCollector(),
		compiler:  NewCompiler(cfg),
		disc:      NewDiscoverer(cfg.BuildDir),
		runner:    NewFailFastRunner(cfg, progress),
		merger:    testreport.NewMerger(),
		synth:     testreport.NewSynthesizer(),
		rec:       rec,
		progress:  progress,
	}
}

// Run executes the pipeline. The returned outcome is informational: every
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
	timer := runlog.StartStage(p.rec, "collect")
	sources, err := p.collector.Collect(p.cfg.StudentDir, p.cfg.TestsDir)
	timer.End(err)
	if err != nil {
		return testreport.OutcomeSandboxError, err
	}
	p.report(fmt.Sprintf("collected %d source files", len(sources)))
	if len(sources) == 0 {
		if err := p.synth.WriteNoSources(p.cfg.ReportPath); err != nil {
			return testreport.OutcomeSandboxError, err
		}
		return testreport.OutcomeNoSources, nil
	}

	timer = runlog.StartStage(p.rec, "compile")
	compiled, err := p.compiler.Compile(sources)
	timer.End(err)
	if err != nil {
		return testreport.OutcomeSandboxError, err
	}
	if !compiled.OK {
		p.report("compilation failed")
		if err := p.synth.WriteCompileError(p.cfg.ReportPath, compiled.Diagnostics); err != nil {
			return testreport.OutcomeSandboxError, err
		}
		return testreport.OutcomeCompileError, nil
	}

	timer = runlog.StartStage(p.rec, "discover")
	classes, err := p.disc.Discover()
	timer.End(err)
	if err != nil {
		return testreport.OutcomeSandboxError, err
	}

	timer = runlog.StartStage(p.rec, "run")
	var result *RunResult
	if len(classes) == 0 {
		p.report("no test classes matched the naming convention, scanning classpath")
		result, err = p.runner.RunScan()
	} else {
		p.report(fmt.Sprintf("running %d test classes", len(classes)))
		result, err = p.runner.Run(classes)
	}
	timer.End(err)
	if err != nil {
		return testreport.OutcomeSandboxError, err
	}

	timer = runlog.StartStage(p.rec, "merge")
	mergeErr := p.merger.MergeToFile(result.Fragments, p.cfg.ReportPath)
	if errors.Is(mergeErr, testreport.ErrNoSuites) {
		timer.End(nil)
		if err := p.synth.WriteNoTests(p.cfg.ReportPath); err != nil {
			return testreport.OutcomeSandboxError, err
		}
		return testreport.OutcomeTestsRan, nil
	}
	timer.End(mergeErr)
	if mergeErr != nil {
		return testreport.OutcomeSandboxError, mergeErr
	}

	p.report(fmt.Sprintf("report written: %d tests, %d failures, %d errors (%s)",
		result.Totals.Tests, result.Totals.Failures, result.Totals.Errors, result.State))
	return testreport.OutcomeTestsRan, nil
}

func (p *Pipeline) report(message string) {
	if p.progress != nil {
		p.progress(message)
	}
}
