package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.messdienerplan.de/core/table"
)

func TestSQLBackendRoundTrip(t *testing.T) {
	var ctx = context.Background()
	var b = newTestSQLBackend(t)

	empty, err := b.Empty(ctx)
	require.NoError(t, err)
	require.True(t, empty)

	var roster = []table.RosterRow{
		{Date: "27.07.2024", Persons: "Finni, Lukas, Isabella", Label: "Hochamt"},
		{Date: "03.08.2024"},
	}
	var queues = []table.QueueRow{{ID: 1, Name: "Lektorendienst"}, {ID: 3, Name: "Sternsinger"}}
	var enrollments = []table.EnrollmentRow{
		{Person: "Finni", QueueID: 3, Timestamp: "2024-07-20T10:15"},
		{Person: "Lukas", QueueID: 1, Timestamp: "2024-07-20T10:16"},
	}
	require.NoError(t, b.SaveRoster(ctx, roster))
	require.NoError(t, b.SaveQueues(ctx, queues))
	require.NoError(t, b.SaveEnrollments(ctx, enrollments))

	gotRoster, err := b.LoadRoster(ctx)
	require.NoError(t, err)
	assert.Equal(t, roster, gotRoster)

	gotQueues, err := b.LoadQueues(ctx)
	require.NoError(t, err)
	assert.Equal(t, queues, gotQueues)

	gotEnrollments, err := b.LoadEnrollments(ctx)
	require.NoError(t, err)
	assert.Equal(t, enrollments, gotEnrollments)

	empty, err = b.Empty(ctx)
	require.NoError(t, err)
	assert.False(t, empty)

	// Re-saving a shorter roster replaces it entirely.
	require.NoError(t, b.SaveRoster(ctx, roster[1:]))
	gotRoster, err = b.LoadRoster(ctx)
	require.NoError(t, err)
	assert.Equal(t, roster[1:], gotRoster)

	state, err := b.LoadState(ctx)
	require.NoError(t, err)
	assert.Equal(t, table.State{
		Plan:        table.EncodeRoster(roster[1:]),
		Queues:      table.EncodeQueues(queues),
		Enrollments: table.EncodeEnrollments(enrollments),
	}, state)
}

func TestSQLBackendQueueSaveCascades(t *testing.T) {
	var ctx = context.Background()
	var b = newTestSQLBackend(t)

	require.NoError(t, b.SaveQueues(ctx, []table.QueueRow{{ID: 1, Name: "A"}, {ID: 2, Name: "B"}}))
	require.NoError(t, b.SaveEnrollments(ctx, []table.EnrollmentRow{
		{Person: "Finni", QueueID: 1},
		{Person: "Lukas", QueueID: 2},
		{Person: "Isabella", QueueID: 2},
	}))

	// Renaming queue 1 and dropping queue 2 keeps only enrollments of queue 1.
	require.NoError(t, b.SaveQueues(ctx, []table.QueueRow{{ID: 1, Name: "A*"}}))

	queues, err := b.LoadQueues(ctx)
	require.NoError(t, err)
	assert.Equal(t, []table.QueueRow{{ID: 1, Name: "A*"}}, queues)

	enrollments, err := b.LoadEnrollments(ctx)
	require.NoError(t, err)
	assert.Equal(t, []table.EnrollmentRow{{Person: "Finni", QueueID: 1}}, enrollments)
}

func TestSQLBackendRejectsUnknownQueue(t *testing.T) {
	var ctx = context.Background()
	var b = newTestSQLBackend(t)

	var err = b.SaveEnrollments(ctx, []table.EnrollmentRow{{Person: "Finni", QueueID: 42}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "inserting enrollments row 1")

	// The failed transaction was rolled back.
	enrollments, err := b.LoadEnrollments(ctx)
	require.NoError(t, err)
	assert.Empty(t, enrollments)
}

func TestSQLBackendSchemaIsIdempotent(t *testing.T) {
	var ctx = context.Background()
	var b = newTestSQLBackend(t)

	require.NoError(t, b.SaveRoster(ctx, table.DefaultRoster()))
	require.NoError(t, b.EnsureSchema(ctx))

	roster, err := b.LoadRoster(ctx)
	require.NoError(t, err)
	assert.Equal(t, table.DefaultRoster(), roster)
}

func TestOpenSQLFailures(t *testing.T) {
	var ctx = context.Background()

	var _, err = OpenSQL(ctx, "mysql://host/db")
	assert.EqualError(t, err, `unsupported database URL scheme "mysql"`)

	// The parent directory doesn't exist, so the database can't be created.
	_, err = OpenSQL(ctx, "sqlite:///"+filepath.Join(t.TempDir(), "missing", "x.db"))
	assert.Error(t, err)
}

// newTestSQLBackend returns a SQLBackend of a SQLite database file which is
// removed with the test. An in-memory database isn't used, as each pooled
// connection would see a different one.
func newTestSQLBackend(t *testing.T) *SQLBackend {
	var ctx = context.Background()
	var b, err = OpenSQL(ctx, "sqlite:///"+filepath.Join(t.TempDir(), "messdiener.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = b.Close() })

	require.NoError(t, b.EnsureSchema(ctx))
	return b
}
