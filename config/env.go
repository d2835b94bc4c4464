package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Defaults for the in-container environment contract. The grading host
// overrides these through real environment variables; a .env file is a
// convenience for local runs only.
const (
	DefaultReportPath = "/workspace/report.xml"
	DefaultBuildDir   = "/workspace/classes"
	DefaultReportsDir = "/workspace/test-reports"
	DefaultJUnitJar   = "/opt/junit/junit-platform-console-standalone.jar"

	DefaultRunTimeoutSeconds = 5
)

// Fixed input roots inside the sandbox image. These are part of the
// container contract, not configuration.
const (
	StudentDir = "/workspace/student"
	TestsDir   = "/workspace/tests"

	// PythonTestsDir is resolved relative to the working directory of the
	// pytest invocation.
	PythonTestsDir = "tests"
)

// LoadEnv pulls optional .env overrides into the process environment.
// A missing file is not an error.
func LoadEnv() {
	_ = godotenv.Load()
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// ReportPath returns the destination of the merged report document.
func ReportPath() string { return envOr("REPORT_PATH", DefaultReportPath) }

// BuildDir returns the javac output directory.
func BuildDir() string { return envOr("BUILD_DIR", DefaultBuildDir) }

// ReportsDir returns the shared directory for per-class report fragments.
func ReportsDir() string { return envOr("REPORTS_DIR", DefaultReportsDir) }

// JUnitJar returns the location of the console launcher jar.
func JUnitJar() string { return envOr("JUNIT_JAR", DefaultJUnitJar) }

// Tool locations are overridable so tests can substitute stub binaries.
func JavacBin() string  { return envOr("JAVAC_BIN", "javac") }
func JavaBin() string   { return envOr("JAVA_BIN", "java") }
func PytestBin() string { return envOr("PYTEST_BIN", "pytest") }
func DockerBin() string { return envOr("DOCKER_BIN", "docker") }

// RunTimeoutSeconds returns the per-test timeout for the Python runner.
// Values that do not parse as a positive whole number fall back to the
// default.
func RunTimeoutSeconds() int {
	raw := os.Getenv("RUN_TIMEOUT")
	if raw == "" {
		return DefaultRunTimeoutSeconds
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return DefaultRunTimeoutSeconds
	}
	return n
}

// TraceDir returns the diagnostics directory, empty when tracing is off.
func TraceDir() string { return os.Getenv("TRACE_DIR") }
