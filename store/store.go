// Package store implements the persistence backends of the roster: CSV files
// (FileBackend), a relational database (SQLBackend), and a JSON document
// held in a GitHub gist (RemoteBackend). All three implement Backend, so
// callers never branch on which one is in use.
//
// Every Save replaces the entire logical table. Backends add no locking of
// their own: the SQLBackend wraps each Save in a transaction, while the file
// and remote backends are read-modify-write and concurrent writers may lose
// updates.
package store

import (
	"context"

	log "github.com/sirupsen/logrus"
	"go.messdienerplan.de/core/metrics"
	"go.messdienerplan.de/core/table"
)

// Backend loads and saves the three logical tables.
type Backend interface {
	// Name is a short identifier of the Backend, eg "sql".
	Name() string

	LoadRoster(context.Context) ([]table.RosterRow, error)
	SaveRoster(context.Context, []table.RosterRow) error

	LoadQueues(context.Context) ([]table.QueueRow, error)
	SaveQueues(context.Context, []table.QueueRow) error

	LoadEnrollments(context.Context) ([]table.EnrollmentRow, error)
	SaveEnrollments(context.Context, []table.EnrollmentRow) error
}

var (
	_ Backend = (*FileBackend)(nil)
	_ Backend = (*SQLBackend)(nil)
	_ Backend = (*RemoteBackend)(nil)
)

// observe records the outcome of a Backend operation.
func observe(backend, operation string, err error) {
	metrics.StoreRequestsTotal.WithLabelValues(backend, operation, metrics.Status(err)).Inc()
}

// logRowErrors logs and counts decoding errors of rows which were skipped.
func logRowErrors(backend string, errs []*table.RowError) {
	for _, e := range errs {
		metrics.RowDecodeErrorsTotal.WithLabelValues(e.Table).Inc()
		log.WithFields(log.Fields{
			"backend": backend,
			"table":   e.Table,
			"index":   e.Index,
			"err":     e.Err,
		}).Warn("skipping row which failed to decode")
	}
}
