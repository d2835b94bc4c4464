package sandbox

import (
	"archive/zip"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func makeZip(t *testing.T, names []string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "submission.zip")
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("Failed to create zip file: %v", err)
	}
	zw := zip.NewWriter(f)
	for _, name := range names {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatalf("Failed to add zip entry %s: %v", name, err)
		}
		if !strings.HasSuffix(name, "/") {
			if _, err := w.Write([]byte("content of " + name)); err != nil {
				t.Fatalf("Failed to write zip entry %s: %v", name, err)
			}
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("Failed to finish zip: %v", err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("Failed to close zip file: %v", err)
	}
	return path
}

func newTestWorkspace(t *testing.T) *Workspace {
	t.Helper()
	ws, err := NewWorkspace()
	if err != nil {
		t.Fatalf("Failed to create workspace: %v", err)
	}
	t.Cleanup(func() { ws.Remove() })
	return ws
}

func TestNewWorkspace_Layout(t *testing.T) {
	ws := newTestWorkspace(t)

	if len(ws.JobID) != 8 {
		t.Errorf("Expected an 8-char job id, got %q", ws.JobID)
	}
	if !strings.Contains(filepath.Base(ws.Root), "sandbox-"+ws.JobID+"-") {
		t.Errorf("Expected workspace prefix with job id, got %s", ws.Root)
	}
	for _, dir := range []string{ws.StudentDir(), ws.TestsDir()} {
		info, err := os.Stat(dir)
		if err != nil || !info.IsDir() {
			t.Errorf("Expected directory %s, got err=%v", dir, err)
		}
	}
	if ws.ReportPath() != filepath.Join(ws.Root, "report.xml") {
		t.Errorf("Unexpected report path %s", ws.ReportPath())
	}
}

func TestWorkspace_AddSubmission_Directory(t *testing.T) {
	ws := newTestWorkspace(t)

	src := t.TempDir()
	if err := os.MkdirAll(filepath.Join(src, "pkg"), 0755); err != nil {
		t.Fatalf("Failed to create source tree: %v", err)
	}
	if err := os.WriteFile(filepath.Join(src, "pkg", "calc.py"), []byte("def add(a, b): return a + b\n"), 0644); err != nil {
		t.Fatalf("Failed to write source file: %v", err)
	}

	if err := ws.AddSubmission(src); err != nil {
		t.Fatalf("Failed to add submission: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(ws.StudentDir(), "pkg", "calc.py"))
	if err != nil {
		t.Fatalf("Expected staged file, got: %v", err)
	}
	if !strings.Contains(string(data), "def add") {
		t.Errorf("Unexpected staged content: %q", data)
	}
}

func TestWorkspace_AddSubmission_SingleFile(t *testing.T) {
	ws := newTestWorkspace(t)

	src := filepath.Join(t.TempDir(), "student.py")
	if err := os.WriteFile(src, []byte("x = 1\n"), 0644); err != nil {
		t.Fatalf("Failed to write source file: %v", err)
	}

	if err := ws.AddSubmission(src); err != nil {
		t.Fatalf("Failed to add submission: %v", err)
	}

	if _, err := os.Stat(filepath.Join(ws.StudentDir(), "student.py")); err != nil {
		t.Errorf("Expected staged file, got: %v", err)
	}
}

func TestWorkspace_AddSubmission_Zip(t *testing.T) {
	ws := newTestWorkspace(t)
	archive := makeZip(t, []string{"pkg/", "pkg/calc.py", "main.py"})

	if err := ws.AddSubmission(archive); err != nil {
		t.Fatalf("Failed to add zip submission: %v", err)
	}

	for _, rel := range []string{"pkg/calc.py", "main.py"} {
		if _, err := os.Stat(filepath.Join(ws.StudentDir(), filepath.FromSlash(rel))); err != nil {
			t.Errorf("Expected extracted %s, got: %v", rel, err)
		}
	}
}

func TestWorkspace_AddSubmission_Missing(t *testing.T) {
	ws := newTestWorkspace(t)

	if err := ws.AddSubmission(filepath.Join(t.TempDir(), "absent")); err == nil {
		t.Error("Expected error for missing submission")
	}
}

func TestExtractZip_RejectsEscapingEntries(t *testing.T) {
	ws := newTestWorkspace(t)
	archive := makeZip(t, []string{"../evil.py"})

	err := ws.AddSubmission(archive)
	if err == nil {
		t.Fatal("Expected error for escaping zip entry")
	}
	if !strings.Contains(err.Error(), "escapes") {
		t.Errorf("Expected escape error, got: %v", err)
	}
}

func TestWorkspace_AddTests(t *testing.T) {
	ws := newTestWorkspace(t)

	src := filepath.Join(t.TempDir(), "test_student.py")
	if err := os.WriteFile(src, []byte("def test_x(): pass\n"), 0644); err != nil {
		t.Fatalf("Failed to write test file: %v", err)
	}

	if err := ws.AddTests(src); err != nil {
		t.Fatalf("Failed to add tests: %v", err)
	}

	if _, err := os.Stat(filepath.Join(ws.TestsDir(), "test_student.py")); err != nil {
		t.Errorf("Expected staged test file, got: %v", err)
	}
}

func TestWorkspace_WritePythonConftest(t *testing.T) {
	ws := newTestWorkspace(t)

	if err := ws.WritePythonConftest(); err != nil {
		t.Fatalf("Failed to write conftest: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(ws.TestsDir(), "conftest.py"))
	if err != nil {
		t.Fatalf("Expected conftest, got: %v", err)
	}
	if !strings.Contains(string(data), `sys.path.append("/workspace/student")`) {
		t.Errorf("Unexpected conftest content: %q", data)
	}
}

func TestWorkspace_Remove(t *testing.T) {
	ws, err := NewWorkspace()
	if err != nil {
		t.Fatalf("Failed to create workspace: %v", err)
	}

	if err := ws.Remove(); err != nil {
		t.Fatalf("Failed to remove workspace: %v", err)
	}
	if _, err := os.Stat(ws.Root); !os.IsNotExist(err) {
		t.Error("Expected workspace root to be gone")
	}
}
