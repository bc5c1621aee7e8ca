// Package table defines the header-plus-rows representation shared by the
// flat-file and remote document formats, the typed rows used everywhere else,
// and the codecs which convert between the two.
//
// A Table is positional: its first row is a header naming columns in a fixed
// order, and each following row holds values for those columns. Rows may be
// shorter than the header, in which case missing trailing cells read as "".
package table

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// Table is an ordered header row followed by data rows.
type Table [][]string

// Header returns the header row, or nil if the Table is empty.
func (t Table) Header() []string {
	if len(t) == 0 {
		return nil
	}
	return t[0]
}

// Rows returns the data rows following the header.
func (t Table) Rows() [][]string {
	if len(t) < 2 {
		return nil
	}
	return t[1:]
}

// Cell returns the |i|th value of |row|, or "" if the row is too short.
func Cell(row []string, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	return row[i]
}

// Normalize returns a copy of |t| with every data row padded or truncated to
// the width of the header. Normalized Tables compare equal exactly when their
// cells do, regardless of trailing-empty-cell differences.
func Normalize(t Table) Table {
	if len(t) == 0 {
		return nil
	}
	var width = len(t[0])
	var out = make(Table, 0, len(t))
	out = append(out, append([]string(nil), t[0]...))

	for _, row := range t.Rows() {
		var r = make([]string, width)
		for i := range r {
			r[i] = Cell(row, i)
		}
		out = append(out, r)
	}
	return out
}

// Names of the logical tables, also used as keys of the remote document.
const (
	Plan        = "plan"
	Queues      = "queues"
	Enrollments = "enrollments"
)

// Headers of each logical table.
var (
	PlanHeader        = []string{"Datum", "Messdiener", "Art/Uhrzeit"}
	QueuesHeader      = []string{"ID", "Name"}
	EnrollmentsHeader = []string{"Person", "QueueID", "Timestamp"}
)

// RowError describes a data row which could not be decoded.
type RowError struct {
	Table string // Logical table name.
	Index int    // Index of the row within the Table, where the header is 0.
	Row   []string
	Err   error
}

func (e *RowError) Error() string {
	return fmt.Sprintf("%s row %d %q: %s", e.Table, e.Index, e.Row, e.Err)
}

func (e *RowError) Unwrap() error { return e.Err }

func isBlank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

func parseID(s string) (int, error) {
	var id, err = strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, errors.Errorf("invalid queue id %q", s)
	}
	return id, nil
}
