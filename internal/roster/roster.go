// Package roster reads gradebook CSV exports into identity entries.
package roster

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"attendancewizard/internal/identity"
)

// Gradebook column headers.
const (
	NameColumn = "Student"
	UINColumn  = "SIS User ID"
)

// Rows that look like students but are not.
const (
	pointsPossible = "Points Possible"
	testStudent    = "Student, Test"
)

// Result is the outcome of parsing a file.
type Result struct {
	Entries []identity.Entry
	// Ignored counts named rows dropped for a missing id or for being the
	// synthetic test student.
	Ignored int
}

// Parse reads a CSV with a header row. Column order does not matter.
func Parse(r io.Reader) (Result, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return Result{}, errors.New("roster: empty file")
	}
	if err != nil {
		return Result{}, fmt.Errorf("roster: read header: %w", err)
	}
	nameIdx, uinIdx := -1, -1
	for i, h := range header {
		h = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
		switch h {
		case NameColumn:
			nameIdx = i
		case UINColumn:
			uinIdx = i
		}
	}
	if nameIdx < 0 || uinIdx < 0 {
		return Result{}, fmt.Errorf("roster: header must contain %q and %q", NameColumn, UINColumn)
	}

	var res Result
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return res, fmt.Errorf("roster: line %d: %w", line, err)
		}
		name, uin := field(rec, nameIdx), field(rec, uinIdx)
		if name == pointsPossible {
			continue
		}
		if name == "" {
			continue
		}
		if uin == "" || name == testStudent {
			res.Ignored++
			continue
		}
		res.Entries = append(res.Entries, identity.Entry{UIN: uin, Name: name})
	}
	return res, nil
}

func field(rec []string, i int) string {
	if i >= len(rec) {
		return ""
	}
	return strings.TrimSpace(rec[i])
}
