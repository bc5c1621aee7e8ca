// Package policy enforces the sign-up rules of queues: a person may be
// enrolled at most once per queue, and in at most MaxQueuesPerPerson distinct
// queues. Persons are matched after trimming surrounding whitespace and
// applying Unicode case folding, so "finni " and "Finni" are the same person.
//
// The policy is evaluated over rows provided by the caller, and is
// independent of where those rows are stored.
package policy

import (
	"strings"

	"github.com/pkg/errors"
	"go.messdienerplan.de/core/table"
	"golang.org/x/text/cases"
)

// MaxQueuesPerPerson is the number of distinct queues a person may join.
const MaxQueuesPerPerson = 2

// Policy errors returned by Check, in the order they're evaluated.
var (
	ErrMissingPerson       = errors.New("a name is required to sign up")
	ErrInvalidQueue        = errors.New("the selected queue does not exist")
	ErrDuplicateEnrollment = errors.New("already enrolled in this queue")
	ErrQueueLimitExceeded  = errors.New("already enrolled in the maximum number of queues")
)

// Check returns nil if |person| may enroll into |queueID|, given the current
// |queues| and |enrollments|. Otherwise it returns the first violated policy
// error. Notably, a person already enrolled in |queueID| sees
// ErrDuplicateEnrollment rather than ErrQueueLimitExceeded.
func Check(queues []table.QueueRow, enrollments []table.EnrollmentRow, person string, queueID int) error {
	var key = Key(person)

	if key == "" {
		return ErrMissingPerson
	} else if !hasQueue(queues, queueID) {
		return ErrInvalidQueue
	}
	for _, e := range enrollments {
		if e.QueueID == queueID && Key(e.Person) == key {
			return ErrDuplicateEnrollment
		}
	}
	if countDistinct(enrollments, key) >= MaxQueuesPerPerson {
		return ErrQueueLimitExceeded
	}
	return nil
}

// CountDistinctQueues returns the number of distinct queues |person| is
// enrolled in.
func CountDistinctQueues(enrollments []table.EnrollmentRow, person string) int {
	return countDistinct(enrollments, Key(person))
}

// SamePerson returns whether |a| and |b| name the same person.
func SamePerson(a, b string) bool { return Key(a) == Key(b) }

// Key returns the comparison key of a person's name.
func Key(person string) string {
	// cases.Caser is stateful and not safe for concurrent use, so build one per call.
	return cases.Fold().String(strings.TrimSpace(person))
}

func countDistinct(enrollments []table.EnrollmentRow, key string) int {
	var seen = make(map[int]struct{})
	for _, e := range enrollments {
		if Key(e.Person) == key {
			seen[e.QueueID] = struct{}{}
		}
	}
	return len(seen)
}

func hasQueue(queues []table.QueueRow, id int) bool {
	for _, q := range queues {
		if q.ID == id {
			return true
		}
	}
	return false
}
