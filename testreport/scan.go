package testreport

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"strconv"
)

// SuiteChunk is one suite element lifted from a fragment: the counters
// parsed from its start tag plus the raw byte span of the whole element,
// opening tag through closing tag. The span is carried into the merged
// document untouched.
type SuiteChunk struct {
	Name     string
	Tests    int
	Skipped  int
	Failures int
	Errors   int
	Time     float64
	Raw      []byte
}

// ScanSuites walks the XML token stream of a fragment and returns every
// outermost suite element in document order. Suites nested inside another
// suite stay part of the enclosing span. The fragment root may be a bare
// suite or a testsuites wrapper; anything below the suite level is never
// inspected.
func ScanSuites(data []byte) ([]SuiteChunk, error) {
	dec := xml.NewDecoder(bytes.NewReader(data))
	chunks := make([]SuiteChunk, 0, 1)
	for {
		start := dec.InputOffset()
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to scan fragment: %w", err)
		}
		se, ok := tok.(xml.StartElement)
		if !ok || se.Name.Local != "testsuite" {
			continue
		}

		chunk, err := suiteChunkFromAttrs(se.Attr)
		if err != nil {
			return nil, err
		}
		if err := dec.Skip(); err != nil {
			return nil, fmt.Errorf("failed to scan suite %q: %w", chunk.Name, err)
		}
		chunk.Raw = data[start:dec.InputOffset()]
		chunks = append(chunks, chunk)
	}
	return chunks, nil
}

func suiteChunkFromAttrs(attrs []xml.Attr) (SuiteChunk, error) {
	var chunk SuiteChunk
	var err error
	for _, attr := range attrs {
		switch attr.Name.Local {
		case "name":
			chunk.Name = attr.Value
		case "tests":
			chunk.Tests, err = parseCountAttr(attr)
		case "skipped":
			chunk.Skipped, err = parseCountAttr(attr)
		case "failures":
			chunk.Failures, err = parseCountAttr(attr)
		case "errors":
			chunk.Errors, err = parseCountAttr(attr)
		case "time":
			chunk.Time, err = parseTimeAttr(attr)
		}
		if err != nil {
			return SuiteChunk{}, err
		}
	}
	return chunk, nil
}

func parseCountAttr(attr xml.Attr) (int, error) {
	n, err := strconv.Atoi(attr.Value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s attribute %q", attr.Name.Local, attr.Value)
	}
	return n, nil
}

func parseTimeAttr(attr xml.Attr) (float64, error) {
	f, err := strconv.ParseFloat(attr.Value, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s attribute %q", attr.Name.Local, attr.Value)
	}
	return f, nil
}
