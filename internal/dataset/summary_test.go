package dataset

import "testing"

func TestSummarize(t *testing.T) {
	raw := []byte("name,score,notes\nAlice,10,hello\nBob,,\nAlice,10,hello\n")

	ds, err := Load(raw)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	s := Summarize(ds)

	if s.Rows != 3 {
		t.Errorf("Expected 3 rows, got %d", s.Rows)
	}
	if s.Columns != 3 {
		t.Errorf("Expected 3 columns, got %d", s.Columns)
	}
	// score parses as float in every non-missing cell; name and notes do not.
	if s.NumericColumns != 1 {
		t.Errorf("Expected 1 numeric column, got %d", s.NumericColumns)
	}
	if s.TextColumns != 2 {
		t.Errorf("Expected 2 text columns, got %d", s.TextColumns)
	}
	// Bob's row has two empty cells.
	if s.MissingValues != 2 {
		t.Errorf("Expected 2 missing values, got %d", s.MissingValues)
	}
	// The two Alice rows are identical; the second counts as a duplicate.
	if s.DuplicateRows != 1 {
		t.Errorf("Expected 1 duplicate row, got %d", s.DuplicateRows)
	}
	if s.MemoryBytes <= 0 {
		t.Errorf("Expected positive memory estimate, got %d", s.MemoryBytes)
	}
}

func TestSummarizeHeaderOnly(t *testing.T) {
	ds := &Dataset{
		Columns: []Column{{Name: "a", Kind: KindText}, {Name: "b", Kind: KindText}},
	}

	s := Summarize(ds)

	if s.Rows != 0 {
		t.Errorf("Expected 0 rows, got %d", s.Rows)
	}
	if s.Columns != 2 {
		t.Errorf("Expected 2 columns, got %d", s.Columns)
	}
	if s.MissingValues != 0 || s.DuplicateRows != 0 {
		t.Errorf("Expected no missing values or duplicates, got %d/%d", s.MissingValues, s.DuplicateRows)
	}
}

func TestInferKind(t *testing.T) {
	tests := []struct {
		name string
		rows [][]string
		col  int
		want ColumnKind
	}{
		{"integers", [][]string{{"1"}, {"2"}}, 0, KindNumeric},
		{"floats", [][]string{{"1.5"}, {"-2.25"}}, 0, KindNumeric},
		{"mixed", [][]string{{"1"}, {"abc"}}, 0, KindText},
		{"all missing", [][]string{{""}, {" "}}, 0, KindText},
		{"numeric with gaps", [][]string{{"1"}, {""}}, 0, KindNumeric},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := inferKind(tt.rows, tt.col); got != tt.want {
				t.Errorf("inferKind = %v, want %v", got, tt.want)
			}
		})
	}
}
