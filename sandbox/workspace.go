package sandbox

import (
	"archive/zip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"sandbox-harness/filesystem"
)

// pythonConftest puts the student dir on sys.path inside the container,
// so the test suite can import the submission without packaging.
const pythonConftest = "import sys; sys.path.append(\"/workspace/student\")\n"

// Workspace is the per-job staging area bind-mounted into the container
// as /workspace. It holds the student submission, the test suite and,
// after the run, the report document.
type Workspace struct {
	JobID string
	Root  string

	fs *filesystem.Manager
}

// NewWorkspace creates a sandbox-<job>- temp dir with the student/ and
// tests/ subdirectories.
func NewWorkspace() (*Workspace, error) {
	jobID := uuid.New().String()[:8]
	root, err := os.MkdirTemp("", fmt.Sprintf("sandbox-%s-", jobID))
	if err != nil {
		return nil, fmt.Errorf("failed to create workspace: %w", err)
	}

	ws := &Workspace{JobID: jobID, Root: root, fs: filesystem.NewManager()}
	for _, dir := range []string{ws.StudentDir(), ws.TestsDir()} {
		if err := ws.fs.CreateDirectory(dir); err != nil {
			ws.Remove()
			return nil, fmt.Errorf("failed to create workspace layout: %w", err)
		}
	}
	return ws, nil
}

// StudentDir is the staged submission directory.
func (w *Workspace) StudentDir() string {
	return filepath.Join(w.Root, "student")
}

// TestsDir is the staged test-suite directory.
func (w *Workspace) TestsDir() string {
	return filepath.Join(w.Root, "tests")
}

// ReportPath is where the container leaves the report document.
func (w *Workspace) ReportPath() string {
	return filepath.Join(w.Root, "report.xml")
}

// AddSubmission stages the student's code: a directory is copied in, a
// zip archive extracted, any other path copied as a single file.
func (w *Workspace) AddSubmission(path string) error {
	return w.stage(path, w.StudentDir())
}

// AddTests stages the test suite the same way.
func (w *Workspace) AddTests(path string) error {
	return w.stage(path, w.TestsDir())
}

// WritePythonConftest drops the conftest for Python runs.
func (w *Workspace) WritePythonConftest() error {
	path := filepath.Join(w.TestsDir(), "conftest.py")
	if err := os.WriteFile(path, []byte(pythonConftest), 0644); err != nil {
		return fmt.Errorf("failed to write conftest: %w", err)
	}
	return nil
}

// Remove deletes the workspace and everything staged in it.
func (w *Workspace) Remove() error {
	return w.fs.RemoveDirectory(w.Root)
}

func (w *Workspace) stage(path, targetDir string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("failed to stat %s: %w", path, err)
	}

	switch {
	case info.IsDir():
		if err := w.fs.CopyDirectory(path, targetDir); err != nil {
			return fmt.Errorf("failed to copy %s: %w", path, err)
		}
	case strings.HasSuffix(strings.ToLower(path), ".zip"):
		if err := extractZip(path, targetDir); err != nil {
			return fmt.Errorf("failed to extract %s: %w", path, err)
		}
	default:
		if err := copyFileInto(path, targetDir); err != nil {
			return fmt.Errorf("failed to copy %s: %w", path, err)
		}
	}
	return nil
}

// extractZip extracts an archive into targetDir. Entries that would
// escape the target directory are rejected; submissions are untrusted.
func extractZip(archivePath, targetDir string) error {
	reader, err := zip.OpenReader(archivePath)
	if err != nil {
		return fmt.Errorf("failed to open zip file: %w", err)
	}
	defer reader.Close()

	for _, file := range reader.File {
		path := filepath.Join(targetDir, file.Name)
		if !strings.HasPrefix(path, filepath.Clean(targetDir)+string(os.PathSeparator)) {
			return fmt.Errorf("zip entry %q escapes the target directory", file.Name)
		}

		if file.FileInfo().IsDir() {
			if err := os.MkdirAll(path, 0755); err != nil {
				return fmt.Errorf("failed to create directory: %w", err)
			}
			continue
		}

		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}

		outFile, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, file.Mode())
		if err != nil {
			return fmt.Errorf("failed to create file: %w", err)
		}

		rc, err := file.Open()
		if err != nil {
			outFile.Close()
			return fmt.Errorf("failed to open zip entry: %w", err)
		}

		_, err = io.Copy(outFile, rc)
		outFile.Close()
		rc.Close()
		if err != nil {
			return fmt.Errorf("failed to extract file: %w", err)
		}
	}
	return nil
}

func copyFileInto(path, targetDir string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read file: %w", err)
	}
	target := filepath.Join(targetDir, filepath.Base(path))
	if err := os.WriteFile(target, data, 0644); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}
	return nil
}
