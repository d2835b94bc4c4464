package summary

import (
	"fmt"
	"os"
	"strings"

	"sandbox-harness/testreport"
)

// Status is the normalized verdict of one graded run.
type Status string

const (
	StatusPassed       Status = "passed"
	StatusFailed       Status = "failed"
	StatusError        Status = "error"
	StatusTimeout      Status = "timeout"
	StatusSandboxError Status = "sandbox_error"
)

const (
	maxMessageBytes = 2000
	maxDetailBytes  = 4000
)

// Counts mirrors the counter block the grading platform stores per run.
type Counts struct {
	Tests       int     `json:"tests"`
	Failures    int     `json:"failures"`
	Errors      int     `json:"errors"`
	TimeSeconds float64 `json:"time_s"`
}

// FirstFailure identifies the first failing or erroring case in document
// order, with its payload bounded for storage.
type FirstFailure struct {
	Suite       string  `json:"suite"`
	Test        string  `json:"test"`
	Message     string  `json:"message"`
	Type        string  `json:"type"`
	TimeSeconds float64 `json:"time_s"`
	Details     string  `json:"details"`
}

// Summary is what the grading platform keeps of a run: the verdict, the
// rolled-up counters and the first failure. The tail and job fields are
// filled by the container runner.
type Summary struct {
	Status       Status        `json:"status"`
	Counts       Counts        `json:"summary"`
	Message      string        `json:"message,omitempty"`
	FirstFailure *FirstFailure `json:"first_failure,omitempty"`
	JobID        string        `json:"job_id,omitempty"`
	StdoutTail   string        `json:"stdout_tail,omitempty"`
	StderrTail   string        `json:"stderr_tail,omitempty"`
}

// Normalizer turns report documents into the normalized summary shape.
type Normalizer struct {
	parser *testreport.Parser
}

// NewNormalizer creates a new summary normalizer
func NewNormalizer() *Normalizer {
	return &Normalizer{parser: testreport.NewParser()}
}

// Normalize reads and summarizes the report at path. A missing or
// unreadable report is itself a verdict, not an error: the sandbox
// guarantees a report, so its absence means the sandbox broke.
func (n *Normalizer) Normalize(path string) *Summary {
	if _, err := os.Stat(path); err != nil {
		return &Summary{Status: StatusSandboxError, Message: "JUnit report not found."}
	}
	report, err := n.parser.ParseFile(path)
	if err != nil {
		return &Summary{
			Status:  StatusSandboxError,
			Message: fmt.Sprintf("JUnit report not parseable: %v", err),
		}
	}
	return n.FromReport(report)
}

// FromReport summarizes an already parsed report. Errors outrank
// failures; a failed run whose first failure mentions a timeout is
// reclassified, so per-test timeouts surface as timeouts rather than
// ordinary assertion failures.
func (n *Normalizer) FromReport(report *testreport.Report) *Summary {
	totals := report.Totals()
	s := &Summary{
		Counts: Counts{
			Tests:       totals.Tests,
			Failures:    totals.Failures,
			Errors:      totals.Errors,
			TimeSeconds: totals.Time,
		},
		FirstFailure: firstFailure(report),
	}

	switch {
	case totals.Errors > 0:
		s.Status = StatusError
	case totals.Failures > 0:
		s.Status = StatusFailed
	default:
		s.Status = StatusPassed
	}

	if s.Status == StatusFailed && s.FirstFailure != nil {
		text := strings.ToLower(s.FirstFailure.Message + " " + s.FirstFailure.Details)
		if strings.Contains(text, "timeout") {
			s.Status = StatusTimeout
		}
	}
	return s
}

// TimeoutSummary is the verdict for a run the host killed at the
// wall-clock guard, where no report can be trusted.
func TimeoutSummary() *Summary {
	return &Summary{Status: StatusTimeout}
}

func firstFailure(report *testreport.Report) *FirstFailure {
	for _, suite := range report.Suites {
		for _, result := range suite.Results {
			if result.Failure == nil {
				continue
			}
			return &FirstFailure{
				Suite:       suite.Name,
				Test:        result.Name,
				Message:     truncate(result.Failure.Message, maxMessageBytes),
				Type:        result.Failure.Type,
				TimeSeconds: result.Time,
				Details:     truncate(result.Failure.Content, maxDetailBytes),
			}
		}
	}
	return nil
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}
