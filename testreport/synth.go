package testreport

import (
	"encoding/xml"
	"fmt"
	"os"
	"path/filepath"
)

type xmlSynthDoc struct {
	XMLName xml.Name        `xml:"testsuites"`
	Suites  []xmlSynthSuite `xml:"testsuite"`
}

type xmlSynthSuite struct {
	Name     string         `xml:"name,attr"`
	Tests    int            `xml:"tests,attr"`
	Skipped  int            `xml:"skipped,attr"`
	Failures int            `xml:"failures,attr"`
	Errors   int            `xml:"errors,attr"`
	Time     float64        `xml:"time,attr"`
	Cases    []xmlSynthCase `xml:"testcase"`
}

type xmlSynthCase struct {
	Name      string         `xml:"name,attr"`
	ClassName string         `xml:"classname,attr"`
	Time      float64        `xml:"time,attr"`
	Error     *xmlSynthError `xml:"error,omitempty"`
}

type xmlSynthError struct {
	Message string `xml:"message,attr"`
	Type    string `xml:"type,attr"`
	Detail  string `xml:",cdata"`
}

// Synthesizer writes the canonical reports for runs that never reached a
// test framework. Free-text detail goes into a CDATA section verbatim;
// the encoder splits any closing delimiter inside it so the document
// stays well-formed.
type Synthesizer struct{}

// NewSynthesizer creates a new report synthesizer
func NewSynthesizer() *Synthesizer {
	return &Synthesizer{}
}

// WriteNoSources writes the zero-count report for a run that found no
// source files to compile.
func (s *Synthesizer) WriteNoSources(path string) error {
	return s.write(path, emptySuite("no-sources"))
}

// WriteNoTests writes the zero-count report for a run that compiled
// sources but discovered no tests anywhere.
func (s *Synthesizer) WriteNoTests(path string) error {
	return s.write(path, emptySuite("no-tests"))
}

// WriteCompileError writes the single-case erroring report for a failed
// compilation, embedding the compiler diagnostics verbatim.
func (s *Synthesizer) WriteCompileError(path, diagnostics string) error {
	return s.write(path, errorSuite("compilation", "compile", "javac",
		"Compilation failed", "CompilationError", diagnostics))
}

// WriteSandboxError writes the single-case erroring report for an
// infrastructure failure inside the sandbox.
func (s *Synthesizer) WriteSandboxError(path, message, detail string) error {
	return s.write(path, errorSuite("sandbox", "harness", "sandbox",
		message, "SandboxError", detail))
}

func emptySuite(name string) xmlSynthDoc {
	return xmlSynthDoc{
		Suites: []xmlSynthSuite{{Name: name}},
	}
}

func errorSuite(suite, caseName, className, message, errType, detail string) xmlSynthDoc {
	return xmlSynthDoc{
		Suites: []xmlSynthSuite{{
			Name:   suite,
			Tests:  1,
			Errors: 1,
			Cases: []xmlSynthCase{{
				Name:      caseName,
				ClassName: className,
				Error: &xmlSynthError{
					Message: message,
					Type:    errType,
					Detail:  detail,
				},
			}},
		}},
	}
}

func (s *Synthesizer) write(path string, doc xmlSynthDoc) error {
	data, err := xml.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode report: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create report directory: %w", err)
	}
	out := append([]byte(xml.Header), data...)
	out = append(out, '\n')
	if err := os.WriteFile(path, out, 0644); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	return nil
}
