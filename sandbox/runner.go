package sandbox

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"sandbox-harness/config"
	"sandbox-harness/summary"
)

const (
	containerReportPath = "/workspace/report.xml"
	tailLimitBytes      = 4000
	minHostGuardSeconds = 4
)

// RunRequest describes one grading run.
type RunRequest struct {
	Language    string
	Submission  string
	Tests       string
	FilterLevel FilterLevel
}

// RunResult carries the normalized verdict plus the raw report document
// and the path of the streamed log.
type RunResult struct {
	Summary   *summary.Summary
	RawReport []byte
	LogPath   string
}

// Runner executes grading runs in hardened containers and turns whatever
// they leave behind into a summary.
type Runner struct {
	settings config.SandboxSettings
	docker   string
	logsDir  string
	filter   *LogFilter
	norm     *summary.Normalizer
	progress func(string)
}

// RunnerOption customizes a Runner.
type RunnerOption func(*Runner)

// WithDockerBin overrides the docker binary.
func WithDockerBin(bin string) RunnerOption {
	return func(r *Runner) { r.docker = bin }
}

// WithLogsDir overrides where per-run logs are written.
func WithLogsDir(dir string) RunnerOption {
	return func(r *Runner) { r.logsDir = dir }
}

// NewRunner creates a runner bound to the sandbox settings. The progress
// callback may be nil.
func NewRunner(settings config.SandboxSettings, progress func(string), opts ...RunnerOption) *Runner {
	r := &Runner{
		settings: settings,
		docker:   config.DockerBin(),
		logsDir:  "grade-logs",
		filter:   NewLogFilter(),
		norm:     summary.NewNormalizer(),
		progress: progress,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run stages a workspace, runs the container under the wall-clock guard
// and normalizes the report it leaves behind. The workspace is removed
// before returning; the raw report travels in the result.
func (r *Runner) Run(req RunRequest) (*RunResult, error) {
	spec, err := r.settings.Runtime(req.Language)
	if err != nil {
		return nil, err
	}

	ws, err := NewWorkspace()
	if err != nil {
		return nil, err
	}
	defer ws.Remove()
	r.report(fmt.Sprintf("Job %s: staging workspace", ws.JobID))

	if err := ws.AddSubmission(req.Submission); err != nil {
		return nil, err
	}
	if err := ws.AddTests(req.Tests); err != nil {
		return nil, err
	}
	if req.Language == "python" {
		if err := ws.WritePythonConftest(); err != nil {
			return nil, err
		}
	}

	logFile, err := r.createLogFile(req.Language, ws.JobID)
	if err != nil {
		r.report(fmt.Sprintf("Warning: could not create log file: %v", err))
	}
	defer func() {
		if logFile != nil {
			logFile.Close()
		}
	}()

	result := &RunResult{}
	if logFile != nil {
		result.LogPath = logFile.Name()
	}

	timedOut, stdoutTail, stderrTail, err := r.runContainer(spec.Image, ws, req.FilterLevel, logFile)
	if err != nil {
		return nil, err
	}

	if timedOut {
		result.Summary = summary.TimeoutSummary()
	} else {
		result.Summary = r.norm.Normalize(ws.ReportPath())
	}
	result.Summary.JobID = ws.JobID
	result.Summary.StdoutTail = stdoutTail
	result.Summary.StderrTail = stderrTail

	if data, readErr := os.ReadFile(ws.ReportPath()); readErr == nil {
		result.RawReport = data
	}
	return result, nil
}

func (r *Runner) runContainer(image string, ws *Workspace, level FilterLevel, logFile *os.File) (bool, string, string, error) {
	limits := r.settings.Limits
	args := dockerRunArgs(image, ws.Root, limits)

	guardSeconds := limits.TimeoutSeconds + 2
	if guardSeconds < minHostGuardSeconds {
		guardSeconds = minHostGuardSeconds
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(guardSeconds)*time.Second)
	defer cancel()

	cmd := exec.CommandContext(ctx, r.docker, args...)
	// Unblocks the stream readers if the killed process leaves the pipes
	// held open.
	cmd.WaitDelay = time.Second

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return false, "", "", fmt.Errorf("failed to create stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return false, "", "", fmt.Errorf("failed to create stderr pipe: %w", err)
	}

	r.report(fmt.Sprintf("Running: %s %s", r.docker, strings.Join(args, " ")))
	if logFile != nil {
		logFile.WriteString(fmt.Sprintf("Command: %s %s\n", r.docker, strings.Join(args, " ")))
		logFile.WriteString(fmt.Sprintf("Wall-clock guard: %ds\n\n", guardSeconds))
		logFile.WriteString("=== OUTPUT ===\n")
	}

	if err := cmd.Start(); err != nil {
		return false, "", "", fmt.Errorf("failed to start docker: %w", err)
	}

	outTail := newTailBuffer(tailLimitBytes)
	errTail := newTailBuffer(tailLimitBytes)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		r.consume(stdout, "OUT", outTail, level, logFile)
	}()
	go func() {
		defer wg.Done()
		r.consume(stderr, "ERR", errTail, level, logFile)
	}()
	wg.Wait()

	waitErr := cmd.Wait()
	if ctx.Err() == context.DeadlineExceeded {
		r.report(fmt.Sprintf("Run exceeded the %ds wall-clock guard", guardSeconds))
		if logFile != nil {
			logFile.WriteString(fmt.Sprintf("\n=== KILLED ===\nWall-clock guard of %ds exceeded\n", guardSeconds))
		}
		return true, outTail.String(), errTail.String(), nil
	}

	exitCode := 0
	if waitErr != nil {
		var exitErr *exec.ExitError
		switch {
		case errors.As(waitErr, &exitErr):
			// Container exit codes are verdicts; the report decides.
			exitCode = exitErr.ExitCode()
		case errors.Is(waitErr, exec.ErrWaitDelay):
			// The pipes were closed late; the process itself finished.
		default:
			return false, "", "", fmt.Errorf("failed to run docker: %w", waitErr)
		}
	}

	r.report(fmt.Sprintf("Container finished with exit code %d", exitCode))
	if logFile != nil {
		logFile.WriteString(fmt.Sprintf("\n=== FINISHED ===\nExit code: %d\nFinished: %s\n",
			exitCode, time.Now().Format("2006-01-02 15:04:05")))
	}
	return false, outTail.String(), errTail.String(), nil
}

func (r *Runner) consume(pipe io.Reader, label string, tail *tailBuffer, level FilterLevel, logFile *os.File) {
	scanner := bufio.NewScanner(pipe)
	for scanner.Scan() {
		line := scanner.Text()
		tail.WriteLine(line)
		if logFile != nil {
			logFile.WriteString(fmt.Sprintf("STD%s: %s\n", label, line))
		}
		if r.progress != nil && r.filter.ShouldShow(line, level) {
			r.progress(fmt.Sprintf("%s: %s", label, line))
		}
	}
}

func (r *Runner) report(message string) {
	if r.progress != nil {
		r.progress(message)
	}
}

// createLogFile creates a timestamped log file for one grading run.
func (r *Runner) createLogFile(language, jobID string) (*os.File, error) {
	if err := os.MkdirAll(r.logsDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create logs directory: %w", err)
	}

	timestamp := time.Now().Format("2006-01-02_15-04-05")
	logPath := filepath.Join(r.logsDir, fmt.Sprintf("grade_%s_%s_%s.log", language, jobID, timestamp))
	logFile, err := os.Create(logPath)
	if err != nil {
		return nil, fmt.Errorf("failed to create log file: %w", err)
	}

	header := "=== Grading Run ===\n"
	header += fmt.Sprintf("Job: %s\n", jobID)
	header += fmt.Sprintf("Language: %s\n", language)
	header += fmt.Sprintf("Started: %s\n", time.Now().Format("2006-01-02 15:04:05"))
	header += "===================\n\n"
	logFile.WriteString(header)
	return logFile, nil
}

// dockerRunArgs builds the hardened container invocation: no network, no
// capabilities, bounded memory, cpu and pids, read-only rootfs with a
// noexec tmpfs, and only the workspace writable.
func dockerRunArgs(image, workspaceRoot string, limits config.Limits) []string {
	return []string{
		"run", "--rm",
		"--network=none",
		fmt.Sprintf("--memory=%dm", limits.MemoryLimitMB),
		"--cpus=" + strconv.FormatFloat(limits.CPUs, 'f', -1, 64),
		fmt.Sprintf("--pids-limit=%d", limits.PidsLimit),
		"--read-only",
		"-v", workspaceRoot + ":/workspace:rw",
		"--tmpfs", "/tmp:rw,noexec,nosuid,size=16m",
		"--security-opt", "no-new-privileges",
		"--cap-drop", "ALL",
		"-e", fmt.Sprintf("RUN_TIMEOUT=%d", limits.TimeoutSeconds),
		"-e", "REPORT_PATH=" + containerReportPath,
		image,
	}
}

// tailBuffer keeps the last max bytes of one stream. Each stream reader
// owns its own buffer, so no locking is needed.
type tailBuffer struct {
	max int
	b   []byte
}

func newTailBuffer(max int) *tailBuffer {
	return &tailBuffer{max: max}
}

func (t *tailBuffer) WriteLine(line string) {
	t.b = append(t.b, line...)
	t.b = append(t.b, '\n')
	if len(t.b) > t.max {
		t.b = t.b[len(t.b)-t.max:]
	}
}

func (t *tailBuffer) String() string {
	return string(t.b)
}
