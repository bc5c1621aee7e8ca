package roster

import (
	"fmt"

	"github.com/pkg/errors"
	"go.messdienerplan.de/core/policy"
)

// Errors of Service operations, in addition to those of package policy.
var (
	ErrEmptyQueueName = errors.New("queue name is empty")
	ErrNotEnrolled    = errors.New("person is not enrolled in the queue")
)

// Message returns the German user-facing text of an error returned by a
// Service operation. Errors other than the package's and policy's sentinels
// are backend failures, which are shown generically.
func Message(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, policy.ErrMissingPerson):
		return "Bitte gib deinen Namen ein."
	case errors.Is(err, policy.ErrInvalidQueue):
		return "Diese Warteliste gibt es nicht."
	case errors.Is(err, policy.ErrDuplicateEnrollment):
		return "Du bist in dieser Warteliste bereits eingetragen."
	case errors.Is(err, policy.ErrQueueLimitExceeded):
		return fmt.Sprintf("Du bist bereits in %d Wartelisten eingetragen.", policy.MaxQueuesPerPerson)
	case errors.Is(err, ErrEmptyQueueName):
		return "Bitte gib einen Namen für die Warteliste ein."
	case errors.Is(err, ErrNotEnrolled):
		return "Diese Person ist in der Warteliste nicht eingetragen."
	default:
		return "Die Änderung konnte nicht gespeichert werden. Bitte versuche es später erneut."
	}
}

// outcome maps an enrollment error to its metric label.
func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, policy.ErrMissingPerson):
		return "missing_person"
	case errors.Is(err, policy.ErrInvalidQueue):
		return "invalid_queue"
	case errors.Is(err, policy.ErrDuplicateEnrollment):
		return "duplicate"
	case errors.Is(err, policy.ErrQueueLimitExceeded):
		return "limit_exceeded"
	default:
		return "error"
	}
}
