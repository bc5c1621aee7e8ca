package store

// CreateTablesStmts bootstrap the relational schema. They're portable across
// PostgreSQL and SQLite, and are no-ops against tables created by earlier
// deployments.
var CreateTablesStmts = []string{`
CREATE TABLE IF NOT EXISTS plan_entries
(
    id              INTEGER      PRIMARY KEY,
    datum           VARCHAR(50),
    messdiener_text TEXT,
    art_uhrzeit     VARCHAR(100)
);`, `
CREATE TABLE IF NOT EXISTS queues
(
    id   INTEGER      PRIMARY KEY,
    name VARCHAR(100) NOT NULL
);`, `
CREATE TABLE IF NOT EXISTS enrollments
(
    id        INTEGER      PRIMARY KEY,
    person    VARCHAR(100) NOT NULL,
    queue_id  INTEGER      NOT NULL REFERENCES queues (id) ON DELETE CASCADE,
    timestamp VARCHAR(32)
);`,
}

// CountRowsStmt counts rows across all three tables.
const CountRowsStmt = `
SELECT (SELECT COUNT(*) FROM plan_entries)
     + (SELECT COUNT(*) FROM queues)
     + (SELECT COUNT(*) FROM enrollments);`

// Roster statements. Entries are ordered by id, which is their position.
const (
	SelectRosterStmt = `SELECT datum, messdiener_text, art_uhrzeit FROM plan_entries ORDER BY id;`
	DeleteRosterStmt = `DELETE FROM plan_entries;`
	InsertRosterStmt = `INSERT INTO plan_entries (id, datum, messdiener_text, art_uhrzeit) VALUES ($1, $2, $3, $4);`
)

// Queue statements. Queues are upserted rather than re-inserted so that
// surviving queues keep their enrollments.
const (
	SelectQueuesStmt   = `SELECT id, name FROM queues ORDER BY id;`
	SelectQueueIDsStmt = `SELECT id FROM queues;`
	DeleteQueueStmt    = `DELETE FROM queues WHERE id = $1;`
	UpsertQueueStmt    = `
INSERT INTO queues (id, name) VALUES ($1, $2)
ON CONFLICT (id) DO UPDATE SET name = excluded.name;`
)

// Enrollment statements. Enrollments are ordered by id, which is their
// position in sign-up order.
const (
	SelectEnrollmentsStmt = `SELECT person, queue_id, timestamp FROM enrollments ORDER BY id;`
	DeleteEnrollmentsStmt = `DELETE FROM enrollments;`
	InsertEnrollmentStmt  = `INSERT INTO enrollments (id, person, queue_id, timestamp) VALUES ($1, $2, $3, $4);`
)
