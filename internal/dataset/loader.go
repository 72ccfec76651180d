package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
)

// Encoding names accepted in a LoadOptions priority list.
const (
	EncodingUTF8   = "utf-8"
	EncodingLatin1 = "latin1"
	EncodingCP1252 = "cp1252"
)

// LoadOptions controls CSV sniffing and size limits.
type LoadOptions struct {
	// Encodings is the priority-ordered list of text encodings to try.
	Encodings []string
	// Delimiters is the priority-ordered list of field delimiters to try.
	Delimiters []rune
	// MaxRows is the data-row ceiling. Exceeding it aborts the load.
	MaxRows int
}

// DefaultLoadOptions returns the standard sniffing order: three encodings
// crossed with three delimiters, tried in a fixed deterministic order.
func DefaultLoadOptions() LoadOptions {
	return LoadOptions{
		Encodings:  []string{EncodingUTF8, EncodingLatin1, EncodingCP1252},
		Delimiters: []rune{',', ';', '\t'},
		MaxRows:    1_000_000,
	}
}

// TooLargeError indicates the dataset exceeds the configured row ceiling.
type TooLargeError struct {
	Rows    int
	MaxRows int
}

func (e *TooLargeError) Error() string {
	return fmt.Sprintf("file is too large: more than %d rows (max %d)", e.Rows-1, e.MaxRows)
}

// UnparseableError indicates no encoding/delimiter combination produced a
// usable table. LastDiag carries the diagnostic from the final attempt.
type UnparseableError struct {
	LastDiag string
}

func (e *UnparseableError) Error() string {
	return fmt.Sprintf("could not parse CSV file: %s", e.LastDiag)
}

// Load parses raw CSV bytes with the default options.
func Load(raw []byte) (*Dataset, error) {
	return LoadWithOptions(raw, DefaultLoadOptions())
}

// LoadWithOptions tries every encoding/delimiter combination in priority
// order and returns the first that yields a non-empty table with at least one
// column. The walk is deterministic: identical bytes always produce an
// identical table. A row count above the ceiling aborts the whole load with
// TooLargeError rather than falling through to later combinations.
func LoadWithOptions(raw []byte, opts LoadOptions) (*Dataset, error) {
	lastDiag := "empty input"

	for _, enc := range opts.Encodings {
		text, err := decode(raw, enc)
		if err != nil {
			lastDiag = fmt.Sprintf("failed to decode with encoding=%q: %v", enc, err)
			continue
		}

		for _, delim := range opts.Delimiters {
			header, rows, err := parseTable(text, delim, opts.MaxRows)
			if err != nil {
				var tooLarge *TooLargeError
				if errors.As(err, &tooLarge) {
					return nil, tooLarge
				}
				lastDiag = fmt.Sprintf("failed to parse with encoding=%q delimiter=%q: %v", enc, string(delim), err)
				continue
			}
			if len(rows) == 0 || len(header) == 0 {
				lastDiag = fmt.Sprintf("parsed with encoding=%q delimiter=%q but table is empty or has no columns", enc, string(delim))
				continue
			}
			return build(header, rows, enc, delim), nil
		}
	}

	return nil, &UnparseableError{LastDiag: lastDiag}
}

// decode converts raw bytes to a string in the given encoding.
// UTF-8 is strict so that Latin-1 and CP1252 get a chance at legacy files;
// the single-byte encodings themselves never fail.
func decode(raw []byte, enc string) (string, error) {
	switch enc {
	case EncodingUTF8:
		if !utf8.Valid(raw) {
			return "", fmt.Errorf("invalid UTF-8 byte sequence")
		}
		return string(raw), nil
	case EncodingLatin1:
		out, err := charmap.ISO8859_1.NewDecoder().Bytes(raw)
		if err != nil {
			return "", err
		}
		return string(out), nil
	case EncodingCP1252:
		out, err := charmap.Windows1252.NewDecoder().Bytes(raw)
		if err != nil {
			return "", err
		}
		return string(out), nil
	default:
		return "", fmt.Errorf("unknown encoding %q", enc)
	}
}

// parseTable reads a full table for one delimiter. Rows are counted as they
// stream so a too-large file is rejected without materializing the table.
func parseTable(text string, delim rune, maxRows int) ([]string, [][]string, error) {
	r := csv.NewReader(strings.NewReader(text))
	r.Comma = delim
	r.TrimLeadingSpace = true

	records, err := readAll(r, maxRows)
	if err != nil {
		return nil, nil, err
	}
	if len(records) == 0 {
		return nil, nil, nil
	}
	return records[0], records[1:], nil
}

func readAll(r *csv.Reader, maxRows int) ([][]string, error) {
	var records [][]string
	for {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			return records, nil
		}
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
		// records includes the header, hence the +1.
		if maxRows > 0 && len(records) > maxRows+1 {
			return nil, &TooLargeError{Rows: len(records), MaxRows: maxRows}
		}
	}
}

func build(header []string, rows [][]string, enc string, delim rune) *Dataset {
	cols := make([]Column, len(header))
	for i, name := range header {
		cols[i] = Column{Name: name, Kind: inferKind(rows, i)}
	}
	return &Dataset{
		Columns:   cols,
		Rows:      rows,
		Encoding:  enc,
		Delimiter: delim,
	}
}
