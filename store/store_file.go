package store

import (
	"context"
	"encoding/csv"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/afero"
	"go.messdienerplan.de/core/table"
)

// FileBackend is a Backend which persists each logical table as a CSV file
// within a directory: plan.csv, queues.csv and enrollments.csv. It's also the
// format written by earlier deployments, which Migrate reads.
//
// Loading a table whose file doesn't exist synthesizes the default table and
// immediately writes it, so a load may mutate the directory.
type FileBackend struct {
	fs  afero.Fs
	dir string
}

// NewFileBackend returns a FileBackend of CSV files under |dir| of |fs|.
func NewFileBackend(fs afero.Fs, dir string) *FileBackend {
	return &FileBackend{fs: fs, dir: dir}
}

// Name returns "file".
func (b *FileBackend) Name() string { return "file" }

// LoadRoster loads plan.csv.
func (b *FileBackend) LoadRoster(_ context.Context) ([]table.RosterRow, error) {
	var t, err = b.load(table.Plan, table.EncodeRoster(table.DefaultRoster()))
	if err != nil {
		return nil, err
	}
	return table.DecodeRoster(t), nil
}

// SaveRoster replaces plan.csv.
func (b *FileBackend) SaveRoster(_ context.Context, rows []table.RosterRow) error {
	return b.save(table.Plan, table.EncodeRoster(rows))
}

// LoadQueues loads queues.csv. Rows which fail to decode are logged and skipped.
func (b *FileBackend) LoadQueues(_ context.Context) ([]table.QueueRow, error) {
	var t, err = b.load(table.Queues, table.EncodeQueues(nil))
	if err != nil {
		return nil, err
	}
	var rows, errs = table.DecodeQueues(t)
	logRowErrors(b.Name(), errs)
	return rows, nil
}

// SaveQueues replaces queues.csv.
func (b *FileBackend) SaveQueues(_ context.Context, rows []table.QueueRow) error {
	return b.save(table.Queues, table.EncodeQueues(rows))
}

// LoadEnrollments loads enrollments.csv. Rows which fail to decode are
// logged and skipped.
func (b *FileBackend) LoadEnrollments(_ context.Context) ([]table.EnrollmentRow, error) {
	var t, err = b.load(table.Enrollments, table.EncodeEnrollments(nil))
	if err != nil {
		return nil, err
	}
	var rows, errs = table.DecodeEnrollments(t)
	logRowErrors(b.Name(), errs)
	return rows, nil
}

// SaveEnrollments replaces enrollments.csv.
func (b *FileBackend) SaveEnrollments(_ context.Context, rows []table.EnrollmentRow) error {
	return b.save(table.Enrollments, table.EncodeEnrollments(rows))
}

// Exists returns whether the file of the named logical table exists.
func (b *FileBackend) Exists(name string) (bool, error) {
	return afero.Exists(b.fs, b.path(name))
}

// ReadTable reads the raw Table of the named logical table, without
// substituting defaults for a missing file. The Cause of the error returned
// for a missing file satisfies os.IsNotExist.
func (b *FileBackend) ReadTable(name string) (table.Table, error) {
	var f, err = b.fs.Open(b.path(name))
	if err != nil {
		return nil, errors.WithMessagef(err, "opening %s", b.path(name))
	}
	defer f.Close()

	var r = csv.NewReader(f)
	r.FieldsPerRecord = -1 // Rows may be narrower or wider than the header.

	records, err := r.ReadAll()
	if err != nil {
		return nil, errors.WithMessagef(err, "reading %s", b.path(name))
	}
	return table.Table(records), nil
}

func (b *FileBackend) load(name string, def table.Table) (t table.Table, err error) {
	defer func() { observe(b.Name(), "load_"+name, err) }()

	if t, err = b.ReadTable(name); os.IsNotExist(errors.Cause(err)) {
		log.WithField("path", b.path(name)).Info("table file not found; writing defaults")
		return def, b.write(name, def)
	}
	return t, err
}

func (b *FileBackend) save(name string, t table.Table) (err error) {
	defer func() { observe(b.Name(), "save_"+name, err) }()
	return b.write(name, t)
}

// write the complete Table to a temporary file, and then rename it over the
// well-known path. Readers observe either the previous or the next Table.
func (b *FileBackend) write(name string, t table.Table) error {
	if err := b.fs.MkdirAll(b.dir, 0755); err != nil {
		return errors.WithMessagef(err, "creating %s", b.dir)
	}
	var next = b.path(name) + ".next"

	var f, err = b.fs.OpenFile(next, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return errors.WithMessagef(err, "creating %s", next)
	}
	if err = csv.NewWriter(f).WriteAll(t); err != nil {
		_ = f.Close()
		return errors.WithMessagef(err, "writing %s", next)
	} else if err = f.Close(); err != nil {
		return errors.WithMessagef(err, "closing %s", next)
	} else if err = b.fs.Rename(next, b.path(name)); err != nil {
		return errors.WithMessagef(err, "renaming %s", next)
	}
	return nil
}

func (b *FileBackend) path(name string) string { return filepath.Join(b.dir, name+".csv") }
