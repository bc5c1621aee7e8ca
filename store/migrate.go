package store

import (
	"context"
	"os"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"go.messdienerplan.de/core/metrics"
	"go.messdienerplan.de/core/table"
)

// Migrate performs the one-time transfer of |legacy| CSV files into |dst|.
// It does nothing unless all of the relational tables are empty.
//
// For each logical table, if its legacy file exists its rows are inserted,
// skipping the header and any row which fails to decode. If the file doesn't
// exist, the roster receives the built-in defaults while queues and
// enrollments start empty. A legacy file which can't be read at all is
// logged, its table is left empty, and the migration continues.
//
// Migrate returns an error only if |dst| fails.
func Migrate(ctx context.Context, dst *SQLBackend, legacy *FileBackend) error {
	if empty, err := dst.Empty(ctx); err != nil {
		return err
	} else if !empty {
		log.Debug("relational tables are not empty; skipping migration")
		return nil
	}

	var roster []table.RosterRow
	switch t, outcome := readLegacy(legacy, table.Plan); outcome {
	case legacyMissing:
		roster = table.DefaultRoster()
	case legacyRead:
		for i, r := range table.DecodeRoster(t) {
			if (r == table.RosterRow{}) {
				logMigrationSkip(&table.RowError{Table: table.Plan, Index: i + 1, Err: errors.New("empty row")})
				continue
			}
			roster = append(roster, r)
		}
	}

	var queues []table.QueueRow
	if t, outcome := readLegacy(legacy, table.Queues); outcome == legacyRead {
		var errs []*table.RowError
		queues, errs = table.DecodeQueues(t)
		queues = dedupeQueues(queues, &errs)

		for _, e := range errs {
			logMigrationSkip(e)
		}
	}

	var enrollments []table.EnrollmentRow
	if t, outcome := readLegacy(legacy, table.Enrollments); outcome == legacyRead {
		var decoded, errs = table.DecodeEnrollments(t)
		for _, e := range errs {
			logMigrationSkip(e)
		}
		var known = make(map[int]struct{}, len(queues))
		for _, q := range queues {
			known[q.ID] = struct{}{}
		}
		for i, e := range decoded {
			if _, ok := known[e.QueueID]; !ok {
				logMigrationSkip(&table.RowError{
					Table: table.Enrollments,
					Index: i + 1,
					Row:   []string{e.Person},
					Err:   errors.Errorf("unknown queue id %d", e.QueueID),
				})
				continue
			}
			enrollments = append(enrollments, e)
		}
	}

	if err := dst.SaveRoster(ctx, roster); err != nil {
		return errors.WithMessage(err, "migrating plan")
	} else if err = dst.SaveQueues(ctx, queues); err != nil {
		return errors.WithMessage(err, "migrating queues")
	} else if err = dst.SaveEnrollments(ctx, enrollments); err != nil {
		return errors.WithMessage(err, "migrating enrollments")
	}

	metrics.MigratedRowsTotal.WithLabelValues(table.Plan, metrics.Ok).Add(float64(len(roster)))
	metrics.MigratedRowsTotal.WithLabelValues(table.Queues, metrics.Ok).Add(float64(len(queues)))
	metrics.MigratedRowsTotal.WithLabelValues(table.Enrollments, metrics.Ok).Add(float64(len(enrollments)))

	log.WithFields(log.Fields{
		"plan":        len(roster),
		"queues":      len(queues),
		"enrollments": len(enrollments),
	}).Info("migrated legacy data into relational backend")
	return nil
}

// Mirror overwrites the document of |to| with the complete state of |from|.
func Mirror(ctx context.Context, from *SQLBackend, to *RemoteBackend) (err error) {
	defer func() { metrics.MirrorTotal.WithLabelValues(metrics.Status(err)).Inc() }()

	var state table.State
	if state, err = from.LoadState(ctx); err != nil {
		return errors.WithMessage(err, "loading relational state")
	} else if err = to.SaveState(ctx, state); err != nil {
		return errors.WithMessage(err, "writing remote document")
	}
	return nil
}

type legacyOutcome int

const (
	legacyRead legacyOutcome = iota
	legacyMissing
	legacyFailed
)

// readLegacy reads the named legacy table. Failures other than a missing
// file are logged.
func readLegacy(legacy *FileBackend, name string) (table.Table, legacyOutcome) {
	var t, err = legacy.ReadTable(name)
	if os.IsNotExist(errors.Cause(err)) {
		log.WithField("table", name).Debug("no legacy file to migrate")
		return nil, legacyMissing
	} else if err != nil {
		log.WithFields(log.Fields{"table": name, "err": err}).Warn("failed to read legacy file; table is left empty")
		return nil, legacyFailed
	}
	return t, legacyRead
}

// dedupeQueues drops queues repeating an earlier id, appending a RowError for each.
func dedupeQueues(queues []table.QueueRow, errs *[]*table.RowError) []table.QueueRow {
	var seen = make(map[int]struct{}, len(queues))
	var out = queues[:0]

	for _, q := range queues {
		if _, ok := seen[q.ID]; ok {
			*errs = append(*errs, &table.RowError{
				Table: table.Queues,
				Row:   []string{q.Name},
				Err:   errors.Errorf("duplicate queue id %d", q.ID),
			})
			continue
		}
		seen[q.ID] = struct{}{}
		out = append(out, q)
	}
	return out
}

func logMigrationSkip(e *table.RowError) {
	metrics.MigratedRowsTotal.WithLabelValues(e.Table, metrics.Fail).Inc()
	log.WithFields(log.Fields{
		"table": e.Table,
		"index": e.Index,
		"err":   e.Err,
	}).Warn("skipping legacy row")
}
