package summary

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/olekukonko/tablewriter"
)

// WriteJSON renders the summary as indented JSON, the shape the grading
// platform stores.
func WriteJSON(w io.Writer, s *Summary) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(s); err != nil {
		return fmt.Errorf("failed to encode summary: %w", err)
	}
	return nil
}

// WriteTable renders the summary as a terminal table for operators.
func WriteTable(w io.Writer, s *Summary) error {
	table := tablewriter.NewWriter(w)
	table.Header("Field", "Value")

	rows := [][]string{
		{"status", string(s.Status)},
		{"tests", strconv.Itoa(s.Counts.Tests)},
		{"failures", strconv.Itoa(s.Counts.Failures)},
		{"errors", strconv.Itoa(s.Counts.Errors)},
		{"time", fmt.Sprintf("%.2fs", s.Counts.TimeSeconds)},
	}
	if s.JobID != "" {
		rows = append(rows, []string{"job", s.JobID})
	}
	if s.Message != "" {
		rows = append(rows, []string{"message", s.Message})
	}
	if ff := s.FirstFailure; ff != nil {
		rows = append(rows,
			[]string{"first failure", fmt.Sprintf("%s :: %s", ff.Suite, ff.Test)},
			[]string{"failure type", ff.Type},
			[]string{"failure message", ff.Message},
		)
	}

	for _, row := range rows {
		if err := table.Append(row); err != nil {
			return fmt.Errorf("failed to build summary table: %w", err)
		}
	}
	if err := table.Render(); err != nil {
		return fmt.Errorf("failed to render summary table: %w", err)
	}
	return nil
}
