// Package dataset loads CSV bytes into an in-memory table and derives
// descriptive statistics from it. A Dataset is immutable once loaded; a new
// upload replaces it wholesale.
package dataset

import (
	"strconv"
	"strings"
)

// ColumnKind is the inferred type of a column.
type ColumnKind string

const (
	KindNumeric ColumnKind = "numeric"
	KindText    ColumnKind = "text"
)

// Column describes a single named column and its inferred kind.
type Column struct {
	Name string     `json:"name"`
	Kind ColumnKind `json:"kind"`
}

// Dataset is an in-memory table of rows by named columns.
// Encoding and Delimiter record the sniffing combination that won.
type Dataset struct {
	Columns   []Column
	Rows      [][]string
	Encoding  string
	Delimiter rune
}

// Shape returns (row count, column count). The header is not a row.
func (d *Dataset) Shape() (int, int) {
	return len(d.Rows), len(d.Columns)
}

// ColumnNames returns the column names in table order.
func (d *Dataset) ColumnNames() []string {
	names := make([]string, len(d.Columns))
	for i, c := range d.Columns {
		names[i] = c.Name
	}
	return names
}

// isMissing reports whether a cell counts as a missing value.
func isMissing(cell string) bool {
	return strings.TrimSpace(cell) == ""
}

// inferKind classifies a column as numeric when every non-missing value
// parses as a float and at least one such value exists.
func inferKind(rows [][]string, col int) ColumnKind {
	seen := false
	for _, row := range rows {
		if col >= len(row) {
			continue
		}
		cell := strings.TrimSpace(row[col])
		if cell == "" {
			continue
		}
		if _, err := strconv.ParseFloat(cell, 64); err != nil {
			return KindText
		}
		seen = true
	}
	if seen {
		return KindNumeric
	}
	return KindText
}
