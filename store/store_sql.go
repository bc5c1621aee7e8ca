package store

import (
	"context"
	"database/sql"

	_ "github.com/lib/pq"           // Registers the "postgres" driver.
	_ "github.com/mattn/go-sqlite3" // Registers the "sqlite3" driver.
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"go.messdienerplan.de/core/table"
)

// SQLBackend is a Backend which utilizes a relational database having a
// "database/sql" compatible driver: PostgreSQL in production, or SQLite.
// Its schema is:
//
//	plan_entries(id, datum, messdiener_text, art_uhrzeit)
//	queues(id, name)
//	enrollments(id, person, queue_id REFERENCES queues(id) ON DELETE CASCADE, timestamp)
//
// Each Save runs within a single SQL transaction. SQLBackend applies no
// timeouts of its own, beyond those of the Context.
type SQLBackend struct {
	DB *sql.DB
}

// OpenSQL normalizes the connection string |rawDSN| (see ParseDSN), opens
// the database, and verifies it's reachable.
func OpenSQL(ctx context.Context, rawDSN string) (*SQLBackend, error) {
	var driver, dsn, err = ParseDSN(rawDSN)
	if err != nil {
		return nil, err
	}
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, errors.WithMessage(err, "opening database")
	} else if err = db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, errors.WithMessage(err, "connecting to database")
	}
	log.WithField("driver", driver).Debug("opened relational database")
	return NewSQLBackend(db), nil
}

// NewSQLBackend returns a SQLBackend of the *DB.
func NewSQLBackend(db *sql.DB) *SQLBackend { return &SQLBackend{DB: db} }

// Name returns "sql".
func (b *SQLBackend) Name() string { return "sql" }

// Close the underlying *DB.
func (b *SQLBackend) Close() error { return b.DB.Close() }

// EnsureSchema creates any missing tables.
func (b *SQLBackend) EnsureSchema(ctx context.Context) error {
	for _, stmt := range CreateTablesStmts {
		if _, err := b.DB.ExecContext(ctx, stmt); err != nil {
			return errors.WithMessage(err, "creating schema")
		}
	}
	return nil
}

// Empty returns whether all three tables are empty.
func (b *SQLBackend) Empty(ctx context.Context) (bool, error) {
	var n int64
	if err := b.DB.QueryRowContext(ctx, CountRowsStmt).Scan(&n); err != nil {
		return false, errors.WithMessage(err, "counting rows")
	}
	return n == 0, nil
}

// LoadRoster selects all plan_entries, ordered by id.
func (b *SQLBackend) LoadRoster(ctx context.Context) (out []table.RosterRow, err error) {
	defer func() { observe(b.Name(), "load_plan", err) }()

	rows, err := b.DB.QueryContext(ctx, SelectRosterStmt)
	if err != nil {
		return nil, errors.WithMessage(err, "querying plan_entries")
	}
	defer rows.Close()

	for rows.Next() {
		var date, persons, label sql.NullString
		if err = rows.Scan(&date, &persons, &label); err != nil {
			return nil, errors.WithMessage(err, "scanning plan_entries")
		}
		out = append(out, table.RosterRow{Date: date.String, Persons: persons.String, Label: label.String})
	}
	return out, errors.WithMessage(rows.Err(), "iterating plan_entries")
}

// SaveRoster deletes all plan_entries and inserts |entries| in their place,
// numbered from one.
func (b *SQLBackend) SaveRoster(ctx context.Context, entries []table.RosterRow) (err error) {
	defer func() { observe(b.Name(), "save_plan", err) }()

	return b.transact(ctx, func(txn *sql.Tx) error {
		if _, err := txn.ExecContext(ctx, DeleteRosterStmt); err != nil {
			return errors.WithMessage(err, "deleting plan_entries")
		}
		for i, e := range entries {
			if _, err := txn.ExecContext(ctx, InsertRosterStmt, i+1, e.Date, e.Persons, e.Label); err != nil {
				return errors.WithMessagef(err, "inserting plan_entries row %d", i+1)
			}
		}
		return nil
	})
}

// LoadQueues selects all queues, ordered by id.
func (b *SQLBackend) LoadQueues(ctx context.Context) (out []table.QueueRow, err error) {
	defer func() { observe(b.Name(), "load_queues", err) }()

	rows, err := b.DB.QueryContext(ctx, SelectQueuesStmt)
	if err != nil {
		return nil, errors.WithMessage(err, "querying queues")
	}
	defer rows.Close()

	for rows.Next() {
		var q table.QueueRow
		if err = rows.Scan(&q.ID, &q.Name); err != nil {
			return nil, errors.WithMessage(err, "scanning queues")
		}
		out = append(out, q)
	}
	return out, errors.WithMessage(rows.Err(), "iterating queues")
}

// SaveQueues makes the queues table equal to |queues|: queues absent from
// |queues| are deleted (cascading to their enrollments), and the remainder
// are upserted by id.
func (b *SQLBackend) SaveQueues(ctx context.Context, queues []table.QueueRow) (err error) {
	defer func() { observe(b.Name(), "save_queues", err) }()

	var keep = make(map[int]struct{}, len(queues))
	for _, q := range queues {
		keep[q.ID] = struct{}{}
	}

	return b.transact(ctx, func(txn *sql.Tx) error {
		var existing, err = selectIDs(ctx, txn)
		if err != nil {
			return err
		}
		for _, id := range existing {
			if _, ok := keep[id]; ok {
				continue
			} else if _, err = txn.ExecContext(ctx, DeleteQueueStmt, id); err != nil {
				return errors.WithMessagef(err, "deleting queue %d", id)
			}
		}
		for _, q := range queues {
			if _, err = txn.ExecContext(ctx, UpsertQueueStmt, q.ID, q.Name); err != nil {
				return errors.WithMessagef(err, "upserting queue %d", q.ID)
			}
		}
		return nil
	})
}

// LoadEnrollments selects all enrollments, in sign-up order.
func (b *SQLBackend) LoadEnrollments(ctx context.Context) (out []table.EnrollmentRow, err error) {
	defer func() { observe(b.Name(), "load_enrollments", err) }()

	rows, err := b.DB.QueryContext(ctx, SelectEnrollmentsStmt)
	if err != nil {
		return nil, errors.WithMessage(err, "querying enrollments")
	}
	defer rows.Close()

	for rows.Next() {
		var e table.EnrollmentRow
		var ts sql.NullString

		if err = rows.Scan(&e.Person, &e.QueueID, &ts); err != nil {
			return nil, errors.WithMessage(err, "scanning enrollments")
		}
		e.Timestamp = ts.String
		out = append(out, e)
	}
	return out, errors.WithMessage(rows.Err(), "iterating enrollments")
}

// SaveEnrollments deletes all enrollments and inserts |enrollments| in
// their place, numbered from one.
func (b *SQLBackend) SaveEnrollments(ctx context.Context, enrollments []table.EnrollmentRow) (err error) {
	defer func() { observe(b.Name(), "save_enrollments", err) }()

	return b.transact(ctx, func(txn *sql.Tx) error {
		if _, err := txn.ExecContext(ctx, DeleteEnrollmentsStmt); err != nil {
			return errors.WithMessage(err, "deleting enrollments")
		}
		for i, e := range enrollments {
			if _, err := txn.ExecContext(ctx, InsertEnrollmentStmt, i+1, e.Person, e.QueueID, e.Timestamp); err != nil {
				return errors.WithMessagef(err, "inserting enrollments row %d", i+1)
			}
		}
		return nil
	})
}

// LoadState reads all three tables into a table.State.
func (b *SQLBackend) LoadState(ctx context.Context) (table.State, error) {
	var state table.State

	if roster, err := b.LoadRoster(ctx); err != nil {
		return state, err
	} else {
		state.Plan = table.EncodeRoster(roster)
	}
	if queues, err := b.LoadQueues(ctx); err != nil {
		return state, err
	} else {
		state.Queues = table.EncodeQueues(queues)
	}
	if enrollments, err := b.LoadEnrollments(ctx); err != nil {
		return state, err
	} else {
		state.Enrollments = table.EncodeEnrollments(enrollments)
	}
	return state, nil
}

// transact runs |fn| within a transaction, which is committed if |fn|
// succeeds and rolled back otherwise.
func (b *SQLBackend) transact(ctx context.Context, fn func(*sql.Tx) error) error {
	var txn, err = b.DB.BeginTx(ctx, nil)
	if err != nil {
		return errors.WithMessage(err, "beginning transaction")
	}
	if err = fn(txn); err != nil {
		_ = txn.Rollback()
		return err
	}
	return errors.WithMessage(txn.Commit(), "committing transaction")
}

func selectIDs(ctx context.Context, txn *sql.Tx) ([]int, error) {
	var rows, err = txn.QueryContext(ctx, SelectQueueIDsStmt)
	if err != nil {
		return nil, errors.WithMessage(err, "querying queue ids")
	}
	defer rows.Close()

	var ids []int
	for rows.Next() {
		var id int
		if err = rows.Scan(&id); err != nil {
			return nil, errors.WithMessage(err, "scanning queue ids")
		}
		ids = append(ids, id)
	}
	return ids, errors.WithMessage(rows.Err(), "iterating queue ids")
}
