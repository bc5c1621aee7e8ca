package table

import (
	"strconv"

	"github.com/pkg/errors"
)

// RosterRow is one dated entry of the duty roster.
type RosterRow struct {
	Date    string // Free-form date, eg "27.07.2024".
	Persons string // Comma-separated names.
	Label   string // Optional kind of service or time of day.
}

// QueueRow is a named sign-up list.
type QueueRow struct {
	ID   int
	Name string
}

// EnrollmentRow records that Person signed up to the queue QueueID.
type EnrollmentRow struct {
	Person    string
	QueueID   int
	Timestamp string // ISO-8601, minute precision.
}

// TimestampLayout is the layout of EnrollmentRow.Timestamp.
const TimestampLayout = "2006-01-02T15:04"

var errEmptyRow = errors.New("empty row")

// EncodeRoster returns the Table form of |rows|.
func EncodeRoster(rows []RosterRow) Table {
	var t = Table{append([]string(nil), PlanHeader...)}
	for _, r := range rows {
		t = append(t, []string{r.Date, r.Persons, r.Label})
	}
	return t
}

// DecodeRoster returns the RosterRows of |t|. Roster rows never fail to
// decode: missing cells are empty, and cells past the header are ignored.
func DecodeRoster(t Table) []RosterRow {
	var out = make([]RosterRow, 0, len(t.Rows()))
	for _, row := range t.Rows() {
		out = append(out, RosterRow{
			Date:    Cell(row, 0),
			Persons: Cell(row, 1),
			Label:   Cell(row, 2),
		})
	}
	return out
}

// EncodeQueues returns the Table form of |rows|.
func EncodeQueues(rows []QueueRow) Table {
	var t = Table{append([]string(nil), QueuesHeader...)}
	for _, r := range rows {
		t = append(t, []string{strconv.Itoa(r.ID), r.Name})
	}
	return t
}

// DecodeQueues returns the QueueRows of |t|, and a RowError for each row
// which was skipped.
func DecodeQueues(t Table) ([]QueueRow, []*RowError) {
	var out []QueueRow
	var errs []*RowError

	for i, row := range t.Rows() {
		if isBlank(row) {
			errs = append(errs, &RowError{Table: Queues, Index: i + 1, Row: row, Err: errEmptyRow})
		} else if id, err := parseID(Cell(row, 0)); err != nil {
			errs = append(errs, &RowError{Table: Queues, Index: i + 1, Row: row, Err: err})
		} else {
			out = append(out, QueueRow{ID: id, Name: Cell(row, 1)})
		}
	}
	return out, errs
}

// EncodeEnrollments returns the Table form of |rows|.
func EncodeEnrollments(rows []EnrollmentRow) Table {
	var t = Table{append([]string(nil), EnrollmentsHeader...)}
	for _, r := range rows {
		t = append(t, []string{r.Person, strconv.Itoa(r.QueueID), r.Timestamp})
	}
	return t
}

// DecodeEnrollments returns the EnrollmentRows of |t|, and a RowError for
// each row which was skipped.
func DecodeEnrollments(t Table) ([]EnrollmentRow, []*RowError) {
	var out []EnrollmentRow
	var errs []*RowError

	for i, row := range t.Rows() {
		if isBlank(row) {
			errs = append(errs, &RowError{Table: Enrollments, Index: i + 1, Row: row, Err: errEmptyRow})
		} else if id, err := parseID(Cell(row, 1)); err != nil {
			errs = append(errs, &RowError{Table: Enrollments, Index: i + 1, Row: row, Err: err})
		} else {
			out = append(out, EnrollmentRow{Person: Cell(row, 0), QueueID: id, Timestamp: Cell(row, 2)})
		}
	}
	return out, errs
}
