package sandbox

import (
	"regexp"
	"strings"
)

// LogFilter separates container chatter from test output when streaming a
// grading run.
type LogFilter struct {
	pullNoisePatterns []*regexp.Regexp
	verdictPatterns   []*regexp.Regexp
	errorWords        []string
	successWords      []string
}

// NewLogFilter creates a log filter tuned to docker run and test-runner
// output.
func NewLogFilter() *LogFilter {
	// Image pull and daemon chatter (to hide).
	pullNoisePatterns := []*regexp.Regexp{
		regexp.MustCompile(`^Unable to find image`),
		regexp.MustCompile(`Pulling from|Pulling fs layer|Pull complete`),
		regexp.MustCompile(`Downloading|Download complete|Extracting|Verifying Checksum|Waiting`),
		regexp.MustCompile(`^[0-9a-f]{12}: `),
		regexp.MustCompile(`^Digest: sha256:`),
		regexp.MustCompile(`^Status: (Downloaded|Image is up to date)`),
	}

	// Lines that carry the run's verdict (to always show).
	verdictPatterns := []*regexp.Regexp{
		regexp.MustCompile(`^=+ .* =+$`),                        // pytest section banners
		regexp.MustCompile(`\d+ (passed|failed|error|skipped)`), // pytest short summary
		regexp.MustCompile(`^Test run finished`),                // console launcher summary
		regexp.MustCompile(`\d+ tests (successful|failed)`),
		regexp.MustCompile(`report written`),
		regexp.MustCompile(`halting after`),
	}

	return &LogFilter{
		pullNoisePatterns: pullNoisePatterns,
		verdictPatterns:   verdictPatterns,
		errorWords: []string{
			"ERROR", "FAILED", "Exception", "Traceback", "Error:", "error:",
		},
		successWords: []string{
			"passed", "BUILD SUCCESSFUL", "tests successful",
		},
	}
}

// FilterLevel represents how much of the stream to surface.
type FilterLevel int

const (
	// FilterNone shows every line (verbose mode).
	FilterNone FilterLevel = iota
	// FilterBasic hides pull chatter, shows everything else.
	FilterBasic
	// FilterMinimal shows only verdicts, errors and successes.
	FilterMinimal
)

// MessageLevel categorizes the importance of a streamed line.
type MessageLevel int

const (
	LevelNoise MessageLevel = iota
	LevelInfo
	LevelVerdict
	LevelError
	LevelSuccess
)

// Categorize determines the level of a streamed line.
func (f *LogFilter) Categorize(line string) MessageLevel {
	trimmed := strings.TrimSpace(line)

	for _, pattern := range f.pullNoisePatterns {
		if pattern.MatchString(trimmed) {
			return LevelNoise
		}
	}
	for _, word := range f.errorWords {
		if strings.Contains(trimmed, word) {
			return LevelError
		}
	}
	for _, pattern := range f.verdictPatterns {
		if pattern.MatchString(trimmed) {
			return LevelVerdict
		}
	}
	for _, word := range f.successWords {
		if strings.Contains(trimmed, word) {
			return LevelSuccess
		}
	}
	return LevelInfo
}

// ShouldShow decides whether a line surfaces at the given filter level.
func (f *LogFilter) ShouldShow(line string, level FilterLevel) bool {
	switch level {
	case FilterNone:
		return true
	case FilterBasic:
		return f.Categorize(line) != LevelNoise
	case FilterMinimal:
		switch f.Categorize(line) {
		case LevelVerdict, LevelError, LevelSuccess:
			return true
		default:
			return false
		}
	default:
		return true
	}
}
