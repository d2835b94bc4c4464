package javarunner

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"sandbox-harness/config"
	"sandbox-harness/testreport"
)

// compilerStub mimics javac: it materializes the class files named in
// STUB_CLASSES under the -d output directory.
const compilerStub = `out=""
prev=""
for a in "$@"; do
  if [ "$prev" = "-d" ]; then out="$a"; fi
  prev="$a"
done
for c in $STUB_CLASSES; do
  mkdir -p "$out/$(dirname "$c")"
  printf 'stub' > "$out/$c"
done
exit 0`

func newPipelineConfig(t *testing.T, javacBin, javaBin string) config.JavaConfig {
	t.Helper()
	base := t.TempDir()
	return config.JavaConfig{
		StudentDir: filepath.Join(base, "student"),
		TestsDir:   filepath.Join(base, "tests"),
		BuildDir:   filepath.Join(base, "classes"),
		ReportsDir: filepath.Join(base, "reports"),
		ReportPath: filepath.Join(base, "report.xml"),
		JUnitJar:   "/opt/junit/launcher.jar",
		JavacBin:   javacBin,
		JavaBin:    javaBin,
	}
}

func parseReport(t *testing.T, path string) *testreport.Report {
	t.Helper()
	report, err := testreport.NewParser().ParseFile(path)
	if err != nil {
		t.Fatalf("Failed to parse report at %s: %v", path, err)
	}
	return report
}

func TestPipeline_NoSources(t *testing.T) {
	stubDir := t.TempDir()
	javac := writeStub(t, stubDir, "javac", "exit 0")
	java := writeStub(t, stubDir, "java", launcherStub)
	cfg := newPipelineConfig(t, javac, java)

	pipeline := NewPipeline(cfg, nil, nil)
	outcome := pipeline.Run()

	if outcome != testreport.OutcomeNoSources {
		t.Errorf("Expected no-sources outcome, got %s", outcome)
	}
	report := parseReport(t, cfg.ReportPath)
	if len(report.Suites) != 1 || report.Suites[0].Name != "no-sources" {
		t.Fatalf("Expected a single no-sources suite, got %+v", report.Suites)
	}
	if totals := report.Totals(); totals.Tests != 0 || totals.Errors != 0 {
		t.Errorf("Expected an empty suite, got %+v", totals)
	}
}

func TestPipeline_CompileError(t *testing.T) {
	stubDir := t.TempDir()
	javac := writeStub(t, stubDir, "javac",
		`echo "Student.java:4: error: ';' expected" >&2
exit 1`)
	java := writeStub(t, stubDir, "java", launcherStub)
	cfg := newPipelineConfig(t, javac, java)
	writeSource(t, cfg.StudentDir, "Student.java")

	pipeline := NewPipeline(cfg, nil, nil)
	outcome := pipeline.Run()

	if outcome != testreport.OutcomeCompileError {
		t.Errorf("Expected compile-error outcome, got %s", outcome)
	}
	report := parseReport(t, cfg.ReportPath)
	if len(report.Suites) != 1 || report.Suites[0].Name != "compilation" {
		t.Fatalf("Expected a single compilation suite, got %+v", report.Suites)
	}
	suite := report.Suites[0]
	if suite.Tests != 1 || suite.Errors != 1 {
		t.Errorf("Expected one erroring case, got %+v", suite)
	}
	failure := suite.Results[0].Failure
	if failure == nil || !failure.Errored {
		t.Fatal("Expected the compile case to carry an error payload")
	}
	if failure.Message != "Compilation failed" {
		t.Errorf("Expected compilation failure message, got %q", failure.Message)
	}
	if !strings.Contains(failure.Content, "';' expected") {
		t.Errorf("Expected compiler diagnostics in the report, got %q", failure.Content)
	}
}

func TestPipeline_FailFastRun(t *testing.T) {
	stubDir := t.TempDir()
	fixDir := filepath.Join(stubDir, "fixtures")
	javac := writeStub(t, stubDir, "javac", compilerStub)
	java := writeStub(t, stubDir, "java", launcherStub)
	t.Setenv("STUB_CLASSES", "com/example/AlphaTest.class com/example/BetaTest.class com/example/GammaTest.class")
	t.Setenv("STUB_FIXTURES", fixDir)
	t.Setenv("STUB_EXIT", "0")

	writeFixture(t, fixDir, "com.example.AlphaTest", passingSuite("com.example.AlphaTest"))
	writeFixture(t, fixDir, "com.example.BetaTest", failingSuite("com.example.BetaTest"))
	writeFixture(t, fixDir, "com.example.GammaTest", passingSuite("com.example.GammaTest"))

	cfg := newPipelineConfig(t, javac, java)
	writeSource(t, cfg.StudentDir, "com/example/Alpha.java")
	writeSource(t, cfg.TestsDir, "com/example/AlphaTest.java")

	var progress []string
	pipeline := NewPipeline(cfg, nil, func(s string) { progress = append(progress, s) })
	outcome := pipeline.Run()

	if outcome != testreport.OutcomeTestsRan {
		t.Errorf("Expected tests-ran outcome, got %s", outcome)
	}

	report := parseReport(t, cfg.ReportPath)
	if len(report.Suites) != 2 {
		t.Fatalf("Expected 2 suites in the merged report, got %d", len(report.Suites))
	}
	if report.Suites[0].Name != "com.example.AlphaTest" || report.Suites[1].Name != "com.example.BetaTest" {
		t.Errorf("Expected suites in execution order, got %q and %q",
			report.Suites[0].Name, report.Suites[1].Name)
	}
	totals := report.Totals()
	if totals.Tests != 2 || totals.Failures != 1 {
		t.Errorf("Expected totals 2/1, got %d/%d", totals.Tests, totals.Failures)
	}
	if len(report.FailedTests) != 1 || report.FailedTests[0] != "breaks" {
		t.Errorf("Expected the failing case in the report, got %v", report.FailedTests)
	}

	announced := false
	for _, line := range progress {
		if strings.Contains(line, "running 3 test classes") {
			announced = true
		}
	}
	if !announced {
		t.Errorf("Expected a class-count progress line, got %v", progress)
	}
}

func TestPipeline_ScanFallback(t *testing.T) {
	stubDir := t.TempDir()
	fixDir := filepath.Join(stubDir, "fixtures")
	javac := writeStub(t, stubDir, "javac", compilerStub)
	java := writeStub(t, stubDir, "java", launcherStub)
	// Nothing matches the naming convention, so the pipeline falls back to
	// a classpath scan.
	t.Setenv("STUB_CLASSES", "com/example/Helper.class")
	t.Setenv("STUB_FIXTURES", fixDir)
	t.Setenv("STUB_EXIT", "0")

	writeFixture(t, fixDir, "scan", `<testsuite name="JUnit Jupiter" tests="2" skipped="0" failures="0" errors="0" time="0.1">
  <testcase name="hidden1" classname="com.example.Hidden" time="0.05"/>
  <testcase name="hidden2" classname="com.example.Hidden" time="0.05"/>
</testsuite>`)

	cfg := newPipelineConfig(t, javac, java)
	writeSource(t, cfg.TestsDir, "com/example/Helper.java")

	pipeline := NewPipeline(cfg, nil, nil)
	outcome := pipeline.Run()

	if outcome != testreport.OutcomeTestsRan {
		t.Errorf("Expected tests-ran outcome, got %s", outcome)
	}
	report := parseReport(t, cfg.ReportPath)
	if len(report.Suites) != 1 || report.Suites[0].Name != "JUnit Jupiter" {
		t.Fatalf("Expected the scanned suite, got %+v", report.Suites)
	}
	if totals := report.Totals(); totals.Tests != 2 || totals.Failures != 0 {
		t.Errorf("Expected totals 2/0, got %+v", totals)
	}
}

func TestPipeline_ScanFindsNothing(t *testing.T) {
	stubDir := t.TempDir()
	javac := writeStub(t, stubDir, "javac", compilerStub)
	java := writeStub(t, stubDir, "java", launcherStub)
	t.Setenv("STUB_CLASSES", "com/example/Helper.class")
	t.Setenv("STUB_FIXTURES", filepath.Join(stubDir, "fixtures"))
	t.Setenv("STUB_EXIT", "0")

	cfg := newPipelineConfig(t, javac, java)
	writeSource(t, cfg.TestsDir, "com/example/Helper.java")

	pipeline := NewPipeline(cfg, nil, nil)
	outcome := pipeline.Run()

	if outcome != testreport.OutcomeTestsRan {
		t.Errorf("Expected tests-ran outcome, got %s", outcome)
	}
	report := parseReport(t, cfg.ReportPath)
	if len(report.Suites) != 1 || report.Suites[0].Name != "no-tests" {
		t.Fatalf("Expected a single no-tests suite, got %+v", report.Suites)
	}
	if totals := report.Totals(); totals.Tests != 0 {
		t.Errorf("Expected an empty suite, got %+v", totals)
	}
}

func TestPipeline_SandboxError(t *testing.T) {
	stubDir := t.TempDir()
	javac := writeStub(t, stubDir, "javac", compilerStub)
	t.Setenv("STUB_CLASSES", "com/example/AlphaTest.class")

	cfg := newPipelineConfig(t, javac, filepath.Join(stubDir, "no-such-java"))
	writeSource(t, cfg.TestsDir, "com/example/AlphaTest.java")

	pipeline := NewPipeline(cfg, nil, nil)
	outcome := pipeline.Run()

	if outcome != testreport.OutcomeSandboxError {
		t.Errorf("Expected sandbox-error outcome, got %s", outcome)
	}
	report := parseReport(t, cfg.ReportPath)
	if len(report.Suites) != 1 || report.Suites[0].Name != "sandbox" {
		t.Fatalf("Expected a single sandbox suite, got %+v", report.Suites)
	}
	failure := report.Suites[0].Results[0].Failure
	if failure == nil || !failure.Errored {
		t.Fatal("Expected the sandbox case to carry an error payload")
	}
	if failure.Message != "sandbox failure" {
		t.Errorf("Expected sandbox failure message, got %q", failure.Message)
	}
	if !strings.Contains(failure.Content, "test launcher") {
		t.Errorf("Expected launcher detail in the report, got %q", failure.Content)
	}
}

func TestPipeline_ReportAlwaysExists(t *testing.T) {
	// Every terminal path leaves a parseable document at the report path.
	cases := []struct {
		name  string
		setup func(t *testing.T) config.JavaConfig
	}{
		{
			name: "no sources",
			setup: func(t *testing.T) config.JavaConfig {
				stubDir := t.TempDir()
				javac := writeStub(t, stubDir, "javac", "exit 0")
				java := writeStub(t, stubDir, "java", launcherStub)
				return newPipelineConfig(t, javac, java)
			},
		},
		{
			name: "compiler missing",
			setup: func(t *testing.T) config.JavaConfig {
				stubDir := t.TempDir()
				java := writeStub(t, stubDir, "java", launcherStub)
				cfg := newPipelineConfig(t, filepath.Join(stubDir, "no-such-javac"), java)
				writeSource(t, cfg.StudentDir, "Student.java")
				return cfg
			},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := tc.setup(t)
			NewPipeline(cfg, nil, nil).Run()

			if _, err := os.Stat(cfg.ReportPath); err != nil {
				t.Fatalf("Expected a report document, got %v", err)
			}
			parseReport(t, cfg.ReportPath)
		})
	}
}
