package javarunner

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"sandbox-harness/config"
)

func TestCompiler_Compile_Success(t *testing.T) {
	tempDir := t.TempDir()
	javac := writeStub(t, tempDir, "javac", "exit 0")
	cfg := config.JavaConfig{
		JavacBin: javac,
		JUnitJar: "/opt/junit/launcher.jar",
		BuildDir: filepath.Join(tempDir, "classes"),
	}

	compiler := NewCompiler(cfg)
	result, err := compiler.Compile([]string{"Main.java"})
	if err != nil {
		t.Fatalf("Failed to compile: %v", err)
	}
	if !result.OK {
		t.Error("Expected compilation to succeed")
	}
	if _, err := os.Stat(cfg.BuildDir); err != nil {
		t.Errorf("Expected build directory to be created: %v", err)
	}
}

func TestCompiler_Compile_Failure(t *testing.T) {
	tempDir := t.TempDir()
	javac := writeStub(t, tempDir, "javac",
		`echo "Main.java:3: error: ';' expected" >&2
echo "1 error" >&2
exit 1`)
	cfg := config.JavaConfig{
		JavacBin: javac,
		JUnitJar: "/opt/junit/launcher.jar",
		BuildDir: filepath.Join(tempDir, "classes"),
	}

	compiler := NewCompiler(cfg)
	result, err := compiler.Compile([]string{"Main.java"})
	if err != nil {
		t.Fatalf("Expected failing compilation to be a result, not an error: %v", err)
	}
	if result.OK {
		t.Error("Expected compilation to fail")
	}
	if !strings.Contains(result.Diagnostics, "';' expected") {
		t.Errorf("Expected diagnostics to carry the compiler output, got %q", result.Diagnostics)
	}
	if !strings.Contains(result.Diagnostics, "1 error") {
		t.Errorf("Expected diagnostics to keep every line, got %q", result.Diagnostics)
	}
}

func TestCompiler_Compile_JavacMissing(t *testing.T) {
	tempDir := t.TempDir()
	cfg := config.JavaConfig{
		JavacBin: filepath.Join(tempDir, "no-such-javac"),
		JUnitJar: "/opt/junit/launcher.jar",
		BuildDir: filepath.Join(tempDir, "classes"),
	}

	compiler := NewCompiler(cfg)
	if _, err := compiler.Compile([]string{"Main.java"}); err == nil {
		t.Error("Expected error when javac cannot be run")
	}
}

func TestCompiler_Compile_ArgumentsForwarded(t *testing.T) {
	tempDir := t.TempDir()
	argsFile := filepath.Join(tempDir, "args.txt")
	t.Setenv("STUB_ARGS_FILE", argsFile)
	javac := writeStub(t, tempDir, "javac", `printf '%s\n' "$@" > "$STUB_ARGS_FILE"
exit 0`)
	cfg := config.JavaConfig{
		JavacBin: javac,
		JUnitJar: "/opt/junit/launcher.jar",
		BuildDir: filepath.Join(tempDir, "classes"),
	}

	compiler := NewCompiler(cfg)
	if _, err := compiler.Compile([]string{"a/Main.java", "b/MainTest.java"}); err != nil {
		t.Fatalf("Failed to compile: %v", err)
	}

	data, err := os.ReadFile(argsFile)
	if err != nil {
		t.Fatalf("Expected stub to record its arguments: %v", err)
	}
	args := strings.Split(strings.TrimSpace(string(data)), "\n")
	expected := []string{"-cp", "/opt/junit/launcher.jar", "-d", cfg.BuildDir, "a/Main.java", "b/MainTest.java"}
	if len(args) != len(expected) {
		t.Fatalf("Expected %d arguments, got %d: %v", len(expected), len(args), args)
	}
	for i, want := range expected {
		if args[i] != want {
			t.Errorf("Expected argument %d to be %q, got %q", i, want, args[i])
		}
	}
}
