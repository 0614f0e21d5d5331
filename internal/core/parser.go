package core

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
)

// ParseCSV reads a comma-delimited table whose first line is the header and
// returns one RawRow per data line, in file order.
//
// It fails with a *ParseError when the input is empty, is not valid text in
// the declared charset, has an unusable header, or contains a row whose
// column count differs from the header. Rows are never padded or truncated.
func ParseCSV(r io.Reader, charset string) ([]RawRow, error) {
	src, err := WrapForParsing(r, charset)
	if err != nil {
		return nil, err
	}

	cr := csv.NewReader(src)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	header, err := cr.Read()
	if err == io.EOF {
		return nil, &ParseError{Message: "invalid csv: empty file"}
	}
	if err != nil {
		return nil, wrapCSVError(err)
	}

	columns, err := parseHeader(header)
	if err != nil {
		return nil, err
	}

	var rows []RawRow
	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, wrapCSVError(err)
		}

		if len(record) != len(columns) {
			line, _ := cr.FieldPos(0)
			return nil, &ParseError{
				Line:    line,
				Message: fmt.Sprintf("invalid csv: malformed table, expected %d columns, got %d", len(columns), len(record)),
			}
		}

		values := make(map[string]any, len(columns))
		for i, col := range columns {
			values[col] = record[i]
		}
		rows = append(rows, RawRow{
			Line:   len(rows) + 2,
			Values: values,
		})
	}

	return rows, nil
}

// parseHeader cleans header names and rejects headers that cannot key a row.
func parseHeader(header []string) ([]string, error) {
	columns := make([]string, len(header))
	seen := make(map[string]bool, len(header))
	named := 0

	for i, h := range header {
		name := strings.TrimSpace(h)
		columns[i] = name
		if name == "" {
			continue
		}
		if seen[name] {
			return nil, &ParseError{Line: 1, Message: fmt.Sprintf("invalid csv: duplicate column %q in header", name)}
		}
		seen[name] = true
		named++
	}

	if named == 0 {
		return nil, &ParseError{Line: 1, Message: "invalid csv: header has no column names"}
	}

	return columns, nil
}

// wrapCSVError turns reader failures into parse errors, keeping errors that
// already are parse errors (from the encoding stage) intact.
func wrapCSVError(err error) error {
	var pe *ParseError
	if errors.As(err, &pe) {
		return pe
	}
	var ce *csv.ParseError
	if errors.As(err, &ce) {
		return &ParseError{Line: ce.Line, Message: "invalid csv", Err: ce.Err}
	}
	return &ParseError{Message: "invalid csv: read failed", Err: err}
}
