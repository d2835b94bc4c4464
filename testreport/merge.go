package testreport

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// ErrNoSuites reports that no fragment contributed a suite element, which
// callers turn into a synthesized empty report.
var ErrNoSuites = errors.New("no suite elements found in fragments")

// Merger assembles the final report document from per-run fragments.
type Merger struct{}

// NewMerger creates a new report merger
func NewMerger() *Merger {
	return &Merger{}
}

// Merge reads every fragment in order and produces the merged document:
// an XML declaration, a testsuites root, and each suite element copied
// byte-for-byte in fragment order.
func (m *Merger) Merge(fragmentPaths []string) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(xml.Header)
	buf.WriteString("<testsuites>\n")

	found := 0
	for _, path := range fragmentPaths {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read fragment: %w", err)
		}
		chunks, err := ScanSuites(data)
		if err != nil {
			return nil, fmt.Errorf("fragment %s: %w", filepath.Base(path), err)
		}
		for _, chunk := range chunks {
			buf.Write(chunk.Raw)
			buf.WriteByte('\n')
			found++
		}
	}

	if found == 0 {
		return nil, ErrNoSuites
	}

	buf.WriteString("</testsuites>\n")
	return buf.Bytes(), nil
}

// MergeToFile merges the fragments and writes the document to outPath
func (m *Merger) MergeToFile(fragmentPaths []string, outPath string) error {
	doc, err := m.Merge(fragmentPaths)
	if err != nil {
		return err
	}
	if err := os.WriteFile(outPath, doc, 0644); err != nil {
		return fmt.Errorf("failed to write merged report: %w", err)
	}
	return nil
}
