package config

// JavaConfig carries the resolved settings for one Java pipeline run.
type JavaConfig struct {
	StudentDir string
	TestsDir   string
	BuildDir   string
	ReportsDir string
	ReportPath string
	JUnitJar   string
	JavacBin   string
	JavaBin    string
}

// JavaFromEnv resolves the Java pipeline configuration from the process
// environment, applying the container defaults.
func JavaFromEnv() JavaConfig {
	LoadEnv()
	return JavaConfig{
		StudentDir: StudentDir,
		TestsDir:   TestsDir,
		BuildDir:   BuildDir(),
		ReportsDir: ReportsDir(),
		ReportPath: ReportPath(),
		JUnitJar:   JUnitJar(),
		JavacBin:   JavacBin(),
		JavaBin:    JavaBin(),
	}
}

// PythonConfig carries the resolved settings for one pytest run.
type PythonConfig struct {
	TestsDir       string
	ReportPath     string
	TimeoutSeconds int
	PytestBin      string
}

// PythonFromEnv resolves the Python pipeline configuration from the
// process environment, applying the container defaults.
func PythonFromEnv() PythonConfig {
	LoadEnv()
	return PythonConfig{
		TestsDir:       PythonTestsDir,
		ReportPath:     ReportPath(),
		TimeoutSeconds: RunTimeoutSeconds(),
		PytestBin:      PytestBin(),
	}
}
