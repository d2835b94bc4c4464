package testreport

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"os"
)

// XMLTestSuites represents a report document rooted at a testsuites
// wrapper element
type XMLTestSuites struct {
	XMLName xml.Name       `xml:"testsuites"`
	Suites  []XMLTestSuite `xml:"testsuite"`
}

// XMLTestSuite represents the XML structure of a test suite
type XMLTestSuite struct {
	XMLName   xml.Name      `xml:"testsuite"`
	Name      string        `xml:"name,attr"`
	Tests     int           `xml:"tests,attr"`
	Skipped   int           `xml:"skipped,attr"`
	Failures  int           `xml:"failures,attr"`
	Errors    int           `xml:"errors,attr"`
	Time      float64       `xml:"time,attr"`
	TestCases []XMLTestCase `xml:"testcase"`
}

// XMLTestCase represents the XML structure of a test case
type XMLTestCase struct {
	Name      string      `xml:"name,attr"`
	ClassName string      `xml:"classname,attr"`
	Time      float64     `xml:"time,attr"`
	Failure   *XMLFailure `xml:"failure,omitempty"`
	Error     *XMLFailure `xml:"error,omitempty"`
	Skipped   *XMLSkipped `xml:"skipped,omitempty"`
}

// XMLFailure represents the XML structure of a failure or error payload
type XMLFailure struct {
	Message string `xml:"message,attr"`
	Type    string `xml:"type,attr"`
	Content string `xml:",chardata"`
}

// XMLSkipped marks a skipped test case
type XMLSkipped struct {
	Message string `xml:"message,attr"`
}

// Parser handles parsing of test report XML files
type Parser struct{}

// NewParser creates a new test report parser
func NewParser() *Parser {
	return &Parser{}
}

// Parse reads a report from the given reader. Both document shapes are
// accepted: a testsuites wrapper and a bare testsuite root.
func (p *Parser) Parse(reader io.Reader) (*Report, error) {
	dec := xml.NewDecoder(reader)
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			return nil, fmt.Errorf("report contains no suite element")
		}
		if err != nil {
			return nil, fmt.Errorf("failed to decode XML: %w", err)
		}
		start, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}
		switch start.Name.Local {
		case "testsuites":
			var doc XMLTestSuites
			if err := dec.DecodeElement(&doc, &start); err != nil {
				return nil, fmt.Errorf("failed to decode XML: %w", err)
			}
			return buildReport(doc.Suites), nil
		case "testsuite":
			var suite XMLTestSuite
			if err := dec.DecodeElement(&suite, &start); err != nil {
				return nil, fmt.Errorf("failed to decode XML: %w", err)
			}
			return buildReport([]XMLTestSuite{suite}), nil
		default:
			return nil, fmt.Errorf("unexpected root element %q", start.Name.Local)
		}
	}
}

// ParseFile parses a test report from a file
func (p *Parser) ParseFile(filename string) (*Report, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	return p.Parse(bytes.NewReader(data))
}

func buildReport(xmlSuites []XMLTestSuite) *Report {
	report := &Report{
		Suites:      make([]TestSuite, 0, len(xmlSuites)),
		PassedTests: make([]string, 0),
		FailedTests: make([]string, 0),
	}

	for _, xs := range xmlSuites {
		suite := TestSuite{
			Name:     xs.Name,
			Tests:    xs.Tests,
			Skipped:  xs.Skipped,
			Failures: xs.Failures,
			Errors:   xs.Errors,
			Time:     xs.Time,
			Results:  make([]TestResult, 0, len(xs.TestCases)),
		}

		for _, tc := range xs.TestCases {
			result := TestResult{
				Name:      tc.Name,
				ClassName: tc.ClassName,
				Time:      tc.Time,
				Passed:    tc.Failure == nil && tc.Error == nil && tc.Skipped == nil,
				Skipped:   tc.Skipped != nil,
			}

			switch {
			case tc.Failure != nil:
				result.Failure = &TestFailure{
					Message: tc.Failure.Message,
					Type:    tc.Failure.Type,
					Content: tc.Failure.Content,
				}
			case tc.Error != nil:
				result.Failure = &TestFailure{
					Message: tc.Error.Message,
					Type:    tc.Error.Type,
					Content: tc.Error.Content,
					Errored: true,
				}
			}

			if result.Failure != nil {
				report.FailedTests = append(report.FailedTests, tc.Name)
			} else if !result.Skipped {
				report.PassedTests = append(report.PassedTests, tc.Name)
			}

			suite.Results = append(suite.Results, result)
		}

		report.Suites = append(report.Suites, suite)
	}

	return report
}
