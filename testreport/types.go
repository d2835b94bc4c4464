package testreport

// Outcome classifies a pipeline run as a whole. Exactly one outcome holds
// per invocation; every outcome except OutcomeTestsRan is communicated
// through a synthesized report.
type Outcome string

const (
	OutcomeNoSources    Outcome = "no-sources"
	OutcomeCompileError Outcome = "compile-error"
	OutcomeSandboxError Outcome = "sandbox-error"
	OutcomeTestsRan     Outcome = "tests-ran"
)

// TestResult represents the result of a single test case
type TestResult struct {
	Name      string
	ClassName string
	Time      float64
	Passed    bool
	Skipped   bool
	Failure   *TestFailure
}

// TestFailure carries the payload of a failed or errored test case
type TestFailure struct {
	Message string
	Type    string
	Content string
	// Errored distinguishes an error element from a failure element
	Errored bool
}

// TestSuite represents one suite element with its results
type TestSuite struct {
	Name     string
	Tests    int
	Skipped  int
	Failures int
	Errors   int
	Time     float64
	Results  []TestResult
}

// Report is a parsed report document: every suite in document order plus
// the flat pass/fail name lists
type Report struct {
	Suites      []TestSuite
	PassedTests []string
	FailedTests []string
}

// Totals accumulates suite counters across fragments
type Totals struct {
	Tests    int
	Skipped  int
	Failures int
	Errors   int
	Time     float64
}

// Add folds one suite's counters into the running totals
func (t *Totals) Add(c SuiteChunk) {
	t.Tests += c.Tests
	t.Skipped += c.Skipped
	t.Failures += c.Failures
	t.Errors += c.Errors
	t.Time += c.Time
}

// Failed reports whether any accumulated case failed or errored
func (t Totals) Failed() bool {
	return t.Failures > 0 || t.Errors > 0
}

// Totals rolls up the counters of every suite in the report
func (r *Report) Totals() Totals {
	var t Totals
	for _, s := range r.Suites {
		t.Tests += s.Tests
		t.Skipped += s.Skipped
		t.Failures += s.Failures
		t.Errors += s.Errors
		t.Time += s.Time
	}
	return t
}
