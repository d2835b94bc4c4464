package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// SandboxSettings describes how the grading host runs sandbox containers:
// which image serves each language and which resource limits apply.
type SandboxSettings struct {
	ReportPath string                 `yaml:"report_path"`
	Runtimes   map[string]RuntimeSpec `yaml:"runtimes"`
	Limits     Limits                 `yaml:"limits"`
}

// RuntimeSpec names the container image for one language runtime.
type RuntimeSpec struct {
	Image string `yaml:"image"`
}

// Limits are the resource bounds applied to every sandbox container.
type Limits struct {
	TimeoutSeconds int     `yaml:"timeout_seconds"`
	MemoryLimitMB  int     `yaml:"memory_limit_mb"`
	CPUs           float64 `yaml:"cpus"`
	PidsLimit      int     `yaml:"pids_limit"`
}

// DefaultSandboxSettings returns the platform defaults used when no
// settings file is present.
func DefaultSandboxSettings() SandboxSettings {
	return SandboxSettings{
		ReportPath: DefaultReportPath,
		Runtimes: map[string]RuntimeSpec{
			"python": {Image: "sandbox-python:latest"},
			"java":   {Image: "sandbox-java:latest"},
		},
		Limits: Limits{
			TimeoutSeconds: DefaultRunTimeoutSeconds,
			MemoryLimitMB:  256,
			CPUs:           1.0,
			PidsLimit:      256,
		},
	}
}

// ReadSandboxSettings loads settings from a YAML file, filling any field
// the file leaves unset from the defaults. A missing file yields the
// defaults without error; an unreadable or malformed file is an error.
func ReadSandboxSettings(path string) (SandboxSettings, error) {
	settings := DefaultSandboxSettings()
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return settings, nil
		}
		return settings, fmt.Errorf("failed to read sandbox settings: %w", err)
	}

	var loaded SandboxSettings
	if err := yaml.Unmarshal(data, &loaded); err != nil {
		return settings, fmt.Errorf("failed to parse sandbox settings: %w", err)
	}

	if loaded.ReportPath != "" {
		settings.ReportPath = loaded.ReportPath
	}
	for name, spec := range loaded.Runtimes {
		if spec.Image != "" {
			settings.Runtimes[name] = spec
		}
	}
	if loaded.Limits.TimeoutSeconds > 0 {
		settings.Limits.TimeoutSeconds = loaded.Limits.TimeoutSeconds
	}
	if loaded.Limits.MemoryLimitMB > 0 {
		settings.Limits.MemoryLimitMB = loaded.Limits.MemoryLimitMB
	}
	if loaded.Limits.CPUs > 0 {
		settings.Limits.CPUs = loaded.Limits.CPUs
	}
	if loaded.Limits.PidsLimit > 0 {
		settings.Limits.PidsLimit = loaded.Limits.PidsLimit
	}
	return settings, nil
}

// Runtime resolves the image for a language, erroring on unknown names so
// a typo fails before any container is started.
func (s SandboxSettings) Runtime(language string) (RuntimeSpec, error) {
	spec, ok := s.Runtimes[language]
	if !ok {
		return RuntimeSpec{}, fmt.Errorf("no runtime configured for language %q", language)
	}
	return spec, nil
}
