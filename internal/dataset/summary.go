package dataset

import "strings"

// Summary is a derived snapshot of descriptive statistics. It has no
// independent lifecycle and can always be recomputed from the Dataset.
type Summary struct {
	Rows           int   `json:"rows"`
	Columns        int   `json:"columns"`
	MemoryBytes    int64 `json:"memory_bytes"`
	NumericColumns int   `json:"numeric_columns"`
	TextColumns    int   `json:"text_columns"`
	MissingValues  int   `json:"missing_values"`
	DuplicateRows  int   `json:"duplicate_rows"`
}

// Summarize computes a Summary in a single pass over the table. It is a pure
// function; recomputation is linear in table size.
func Summarize(d *Dataset) Summary {
	s := Summary{
		Rows:    len(d.Rows),
		Columns: len(d.Columns),
	}

	for _, c := range d.Columns {
		s.MemoryBytes += int64(len(c.Name)) + stringHeaderBytes
		if c.Kind == KindNumeric {
			s.NumericColumns++
		} else {
			s.TextColumns++
		}
	}

	seen := make(map[string]bool, len(d.Rows))
	for _, row := range d.Rows {
		for _, cell := range row {
			s.MemoryBytes += int64(len(cell)) + stringHeaderBytes
			if isMissing(cell) {
				s.MissingValues++
			}
		}
		key := strings.Join(row, "\x1f")
		if seen[key] {
			s.DuplicateRows++
		} else {
			seen[key] = true
		}
	}

	return s
}

// stringHeaderBytes approximates the per-cell overhead of a Go string header
// so MemoryBytes reflects resident size, not just payload bytes.
const stringHeaderBytes = 16
