package sandbox

import "testing"

func TestLogFilter_Categorize(t *testing.T) {
	filter := NewLogFilter()

	cases := []struct {
		name string
		line string
		want MessageLevel
	}{
		{"image pull", "Unable to find image 'sandbox-python:latest' locally", LevelNoise},
		{"layer pull", "3f4ca61aafcd: Pull complete", LevelNoise},
		{"digest", "Digest: sha256:aabbccdd", LevelNoise},
		{"pull status", "Status: Downloaded newer image for sandbox-python:latest", LevelNoise},
		{"pytest banner", "============================= FAILURES =============================", LevelVerdict},
		{"pytest summary", "1 failed, 2 passed in 0.12s", LevelVerdict},
		{"console summary", "Test run finished after 84 ms", LevelVerdict},
		{"halt line", "halting after com.example.BetaTest", LevelVerdict},
		{"traceback", "Traceback (most recent call last):", LevelError},
		{"compile error", "Student.java:4: error: ';' expected", LevelError},
		{"plain line", "collected 3 items", LevelInfo},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := filter.Categorize(tc.line); got != tc.want {
				t.Errorf("Categorize(%q) = %v, want %v", tc.line, got, tc.want)
			}
		})
	}
}

func TestLogFilter_ShouldShow(t *testing.T) {
	filter := NewLogFilter()
	noise := "3f4ca61aafcd: Pull complete"
	info := "collected 3 items"
	verdict := "1 failed, 2 passed in 0.12s"

	if !filter.ShouldShow(noise, FilterNone) {
		t.Error("Expected verbose mode to show noise")
	}
	if filter.ShouldShow(noise, FilterBasic) {
		t.Error("Expected basic mode to hide pull noise")
	}
	if !filter.ShouldShow(info, FilterBasic) {
		t.Error("Expected basic mode to show plain lines")
	}
	if filter.ShouldShow(info, FilterMinimal) {
		t.Error("Expected minimal mode to hide plain lines")
	}
	if !filter.ShouldShow(verdict, FilterMinimal) {
		t.Error("Expected minimal mode to show verdicts")
	}
}
