package store

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.messdienerplan.de/core/storetest"
	"go.messdienerplan.de/core/table"
)

func TestMigrateLegacyFiles(t *testing.T) {
	var ctx = context.Background()
	var fs = afero.NewMemMapFs()

	require.NoError(t, afero.WriteFile(fs, "legacy/plan.csv", []byte(
		"Datum,Messdiener,Art/Uhrzeit\n"+
			"27.07.2024,\"Finni, Lukas\",Hochamt\n"+
			",,\n"+
			"03.08.2024\n"), 0644))
	require.NoError(t, afero.WriteFile(fs, "legacy/queues.csv", []byte(
		"ID,Name\n"+
			"1,Lektorendienst\n"+
			"x,Kaputt\n"+
			"1,Doppelt\n"+
			"4,Sternsinger\n"), 0644))
	require.NoError(t, afero.WriteFile(fs, "legacy/enrollments.csv", []byte(
		"Person,QueueID,Timestamp\n"+
			"Finni,1,2024-07-20T10:15\n"+
			"Lukas,9,2024-07-20T10:16\n"+
			"Isabella,4,\n"), 0644))

	var dst = newTestSQLBackend(t)
	require.NoError(t, Migrate(ctx, dst, NewFileBackend(fs, "legacy")))

	roster, err := dst.LoadRoster(ctx)
	require.NoError(t, err)
	assert.Equal(t, []table.RosterRow{
		{Date: "27.07.2024", Persons: "Finni, Lukas", Label: "Hochamt"},
		{Date: "03.08.2024"},
	}, roster)

	queues, err := dst.LoadQueues(ctx)
	require.NoError(t, err)
	assert.Equal(t, []table.QueueRow{{ID: 1, Name: "Lektorendienst"}, {ID: 4, Name: "Sternsinger"}}, queues)

	enrollments, err := dst.LoadEnrollments(ctx)
	require.NoError(t, err)
	assert.Equal(t, []table.EnrollmentRow{
		{Person: "Finni", QueueID: 1, Timestamp: "2024-07-20T10:15"},
		{Person: "Isabella", QueueID: 4},
	}, enrollments)

	// Legacy files are left in place.
	exists, err := afero.Exists(fs, "legacy/plan.csv")
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestMigrateLeavesUnreadableTableEmpty(t *testing.T) {
	var ctx = context.Background()
	var fs = afero.NewMemMapFs()

	// An unterminated quote makes the whole file unreadable.
	require.NoError(t, afero.WriteFile(fs, "legacy/plan.csv", []byte(
		"Datum,Messdiener,Art/Uhrzeit\n"+
			"27.07.2024,\"Finni, Lukas\n"), 0644))
	require.NoError(t, afero.WriteFile(fs, "legacy/queues.csv", []byte(
		"ID,Name\n"+
			"1,A\n"), 0644))

	var dst = newTestSQLBackend(t)
	require.NoError(t, Migrate(ctx, dst, NewFileBackend(fs, "legacy")))

	// The roster is neither migrated nor replaced by defaults.
	roster, err := dst.LoadRoster(ctx)
	require.NoError(t, err)
	assert.Empty(t, roster)

	// Remaining tables still migrate.
	queues, err := dst.LoadQueues(ctx)
	require.NoError(t, err)
	assert.Equal(t, []table.QueueRow{{ID: 1, Name: "A"}}, queues)

	enrollments, err := dst.LoadEnrollments(ctx)
	require.NoError(t, err)
	assert.Empty(t, enrollments)
}

func TestMigrateWithoutLegacyFiles(t *testing.T) {
	var ctx = context.Background()
	var fs = afero.NewMemMapFs()
	var dst = newTestSQLBackend(t)

	require.NoError(t, Migrate(ctx, dst, NewFileBackend(fs, "legacy")))

	roster, err := dst.LoadRoster(ctx)
	require.NoError(t, err)
	assert.Equal(t, table.DefaultRoster(), roster)

	queues, err := dst.LoadQueues(ctx)
	require.NoError(t, err)
	assert.Empty(t, queues)

	// Migrate doesn't materialize legacy defaults.
	exists, err := afero.DirExists(fs, "legacy")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestMigrateSkipsPopulatedDatabase(t *testing.T) {
	var ctx = context.Background()
	var fs = afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "legacy/queues.csv", []byte("ID,Name\n1,Lektorendienst\n"), 0644))

	var dst = newTestSQLBackend(t)
	require.NoError(t, dst.SaveRoster(ctx, []table.RosterRow{{Date: "01.01.2025"}}))
	require.NoError(t, Migrate(ctx, dst, NewFileBackend(fs, "legacy")))

	roster, err := dst.LoadRoster(ctx)
	require.NoError(t, err)
	assert.Equal(t, []table.RosterRow{{Date: "01.01.2025"}}, roster)

	queues, err := dst.LoadQueues(ctx)
	require.NoError(t, err)
	assert.Empty(t, queues)
}

func TestMirror(t *testing.T) {
	var ctx = context.Background()
	var gist = storetest.NewGist(t)
	var from = newTestSQLBackend(t)

	require.NoError(t, from.SaveRoster(ctx, []table.RosterRow{{Date: "27.07.2024", Persons: "Finni"}}))
	require.NoError(t, from.SaveQueues(ctx, []table.QueueRow{{ID: 2, Name: "Sternsinger"}}))
	require.NoError(t, from.SaveEnrollments(ctx, []table.EnrollmentRow{{Person: "Finni", QueueID: 2}}))

	require.NoError(t, Mirror(ctx, from, newTestRemoteBackend(gist)))

	content, ok := gist.Content(DefaultRemoteFilename)
	require.True(t, ok)

	var state table.State
	require.NoError(t, json.Unmarshal([]byte(content), &state))

	expect, err := from.LoadState(ctx)
	require.NoError(t, err)
	assert.Equal(t, expect, state)

	// Mirroring without credentials fails.
	assert.Error(t, Mirror(ctx, from, NewRemoteBackend(RemoteConfig{})))
}
