package policy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.messdienerplan.de/core/table"
)

var fixtureQueues = []table.QueueRow{
	{ID: 1, Name: "Lektorendienst"},
	{ID: 2, Name: "Ministranten"},
	{ID: 3, Name: "Kollekte"},
}

func TestCheckOrdering(t *testing.T) {
	var enrollments = []table.EnrollmentRow{
		{Person: "Finni", QueueID: 1},
		{Person: "Finni", QueueID: 2},
	}

	// An unknown queue is reported before the quota.
	assert.Equal(t, ErrInvalidQueue, Check(fixtureQueues, enrollments, "Finni", 9))
	// A duplicate is reported before the quota.
	assert.Equal(t, ErrDuplicateEnrollment, Check(fixtureQueues, enrollments, "Finni", 2))
	// A third distinct queue exceeds the quota.
	assert.Equal(t, ErrQueueLimitExceeded, Check(fixtureQueues, enrollments, "Finni", 3))
	// Others are unaffected.
	assert.NoError(t, Check(fixtureQueues, enrollments, "Lukas", 3))
	// Presence is checked first of all.
	assert.Equal(t, ErrMissingPerson, Check(fixtureQueues, enrollments, "   ", 9))
}

func TestPersonsMatchCaseInsensitivelyAndTrimmed(t *testing.T) {
	var enrollments = []table.EnrollmentRow{
		{Person: "  finni", QueueID: 1},
		{Person: "FINNI ", QueueID: 2},
		{Person: "Jörg", QueueID: 1},
	}
	assert.Equal(t, 2, CountDistinctQueues(enrollments, "Finni"))
	assert.Equal(t, ErrDuplicateEnrollment, Check(fixtureQueues, enrollments, "Finni", 1))
	assert.Equal(t, ErrQueueLimitExceeded, Check(fixtureQueues, enrollments, "fInNi", 3))
	assert.Equal(t, ErrDuplicateEnrollment, Check(fixtureQueues, enrollments, "JÖRG", 1))

	assert.True(t, SamePerson(" Straße", "STRASSE"))
	assert.False(t, SamePerson("Lukas", "Lucas"))
}

func TestCountDistinctIgnoresRepeatedQueues(t *testing.T) {
	var enrollments = []table.EnrollmentRow{
		{Person: "Isabella", QueueID: 3},
		{Person: "isabella", QueueID: 3},
	}
	assert.Equal(t, 1, CountDistinctQueues(enrollments, "Isabella"))
	assert.Equal(t, 0, CountDistinctQueues(enrollments, "Lukas"))
	assert.NoError(t, Check(fixtureQueues, enrollments, "Isabella", 1))
}
