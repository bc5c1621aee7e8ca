// Package roster is the storage facade of the application. A Service holds
// exactly one store.Backend, chosen once at startup by Open, and exposes the
// roster and queue operations used by the web handlers and CLI tools without
// ever branching on which backend is active.
//
// Each operation loads the live tables it needs from the backend, and saves
// whole tables back. The Service keeps no state of its own beyond its backend.
package roster

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"go.messdienerplan.de/core/metrics"
	"go.messdienerplan.de/core/policy"
	"go.messdienerplan.de/core/store"
	"go.messdienerplan.de/core/table"
)

// Service is the backend-agnostic API over the roster, queues and enrollments.
type Service struct {
	backend store.Backend
	now     func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithClock sets the clock used to timestamp enrollments.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService returns a Service of the Backend.
func NewService(backend store.Backend, opts ...Option) *Service {
	var s = &Service{backend: backend, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Backend returns the name of the active Backend.
func (s *Service) Backend() string { return s.backend.Name() }

// Close releases resources of the Backend, if it holds any.
func (s *Service) Close() error {
	if c, ok := s.backend.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// Roster returns the duty roster.
func (s *Service) Roster(ctx context.Context) ([]table.RosterRow, error) {
	return s.backend.LoadRoster(ctx)
}

// ReplaceRoster replaces the duty roster with |rows|. Fields are trimmed,
// and rows having neither a date nor persons are dropped.
func (s *Service) ReplaceRoster(ctx context.Context, rows []table.RosterRow) error {
	var out = make([]table.RosterRow, 0, len(rows))
	for _, r := range rows {
		r = table.RosterRow{
			Date:    strings.TrimSpace(r.Date),
			Persons: strings.TrimSpace(r.Persons),
			Label:   strings.TrimSpace(r.Label),
		}
		if r.Date == "" && r.Persons == "" {
			continue
		}
		out = append(out, r)
	}
	return errors.WithMessage(s.backend.SaveRoster(ctx, out), "saving roster")
}

// AppendRosterRow appends an empty row to the duty roster, to be filled in
// by a later ReplaceRoster.
func (s *Service) AppendRosterRow(ctx context.Context) error {
	var rows, err = s.backend.LoadRoster(ctx)
	if err != nil {
		return errors.WithMessage(err, "loading roster")
	}
	return errors.WithMessage(s.backend.SaveRoster(ctx, append(rows, table.RosterRow{})), "saving roster")
}

// QueuesWithEnrollments returns all queues, and the names of persons
// enrolled in each queue in sign-up order, keyed by queue ID.
func (s *Service) QueuesWithEnrollments(ctx context.Context) ([]table.QueueRow, map[int][]string, error) {
	var queues, enrollments, err = s.load(ctx)
	if err != nil {
		return nil, nil, err
	}
	var persons = make(map[int][]string, len(queues))
	for _, e := range enrollments {
		persons[e.QueueID] = append(persons[e.QueueID], e.Person)
	}
	return queues, persons, nil
}

// Enroll signs |person| up to the queue |queueID|. It returns whether the
// sign-up succeeded, and a message suitable for display to the person.
func (s *Service) Enroll(ctx context.Context, person string, queueID int) (bool, string) {
	var queue, err = s.enroll(ctx, person, queueID)
	metrics.EnrollmentsTotal.WithLabelValues(outcome(err)).Inc()

	if err != nil {
		log.WithFields(log.Fields{
			"person":  person,
			"queueID": queueID,
			"err":     err,
		}).Info("enrollment rejected")
		return false, Message(err)
	}
	return true, fmt.Sprintf("%s wurde in „%s“ eingetragen.", strings.TrimSpace(person), queue.Name)
}

func (s *Service) enroll(ctx context.Context, person string, queueID int) (table.QueueRow, error) {
	var queues, enrollments, err = s.load(ctx)
	if err != nil {
		return table.QueueRow{}, err
	} else if err = policy.Check(queues, enrollments, person, queueID); err != nil {
		return table.QueueRow{}, err
	}

	enrollments = append(enrollments, table.EnrollmentRow{
		Person:    strings.TrimSpace(person),
		QueueID:   queueID,
		Timestamp: s.now().Format(table.TimestampLayout),
	})
	if err = s.backend.SaveEnrollments(ctx, enrollments); err != nil {
		return table.QueueRow{}, errors.WithMessage(err, "saving enrollments")
	}
	var queue, _ = findQueue(queues, queueID)
	return queue, nil
}

// AddQueue creates a queue named |name|, having an ID one greater than the
// largest existing ID.
func (s *Service) AddQueue(ctx context.Context, name string) (table.QueueRow, error) {
	if name = strings.TrimSpace(name); name == "" {
		return table.QueueRow{}, ErrEmptyQueueName
	}
	var queues, err = s.backend.LoadQueues(ctx)
	if err != nil {
		return table.QueueRow{}, errors.WithMessage(err, "loading queues")
	}

	var queue = table.QueueRow{ID: 1, Name: name}
	for _, q := range queues {
		if q.ID >= queue.ID {
			queue.ID = q.ID + 1
		}
	}
	if err = s.backend.SaveQueues(ctx, append(queues, queue)); err != nil {
		return table.QueueRow{}, errors.WithMessage(err, "saving queues")
	}
	log.WithFields(log.Fields{"id": queue.ID, "name": queue.Name}).Info("added queue")
	return queue, nil
}

// DeleteQueue deletes the queue |id| together with all of its enrollments.
// Deleting a queue which doesn't exist is a no-op.
func (s *Service) DeleteQueue(ctx context.Context, id int) error {
	var queues, enrollments, err = s.load(ctx)
	if err != nil {
		return err
	} else if _, ok := findQueue(queues, id); !ok {
		return nil
	}

	// Enrollments are saved first, so that a backend lacking a cascade
	// never holds enrollments of a deleted queue.
	if err = s.backend.SaveEnrollments(ctx, withoutQueue(enrollments, id)); err != nil {
		return errors.WithMessage(err, "saving enrollments")
	}
	var remaining = make([]table.QueueRow, 0, len(queues))
	for _, q := range queues {
		if q.ID != id {
			remaining = append(remaining, q)
		}
	}
	if err = s.backend.SaveQueues(ctx, remaining); err != nil {
		return errors.WithMessage(err, "saving queues")
	}
	log.WithField("id", id).Info("deleted queue")
	return nil
}

// ClearEnrollments removes all enrollments of the queue |queueID|.
func (s *Service) ClearEnrollments(ctx context.Context, queueID int) error {
	var enrollments, err = s.backend.LoadEnrollments(ctx)
	if err != nil {
		return errors.WithMessage(err, "loading enrollments")
	}
	var remaining = withoutQueue(enrollments, queueID)

	if len(remaining) == len(enrollments) {
		return nil
	}
	return errors.WithMessage(s.backend.SaveEnrollments(ctx, remaining), "saving enrollments")
}

// RemoveEnrollment removes |person| from the queue |queueID|. It returns
// ErrNotEnrolled if the person isn't enrolled there.
func (s *Service) RemoveEnrollment(ctx context.Context, queueID int, person string) error {
	var enrollments, err = s.backend.LoadEnrollments(ctx)
	if err != nil {
		return errors.WithMessage(err, "loading enrollments")
	}
	var remaining = make([]table.EnrollmentRow, 0, len(enrollments))
	for _, e := range enrollments {
		if e.QueueID != queueID || !policy.SamePerson(e.Person, person) {
			remaining = append(remaining, e)
		}
	}
	if len(remaining) == len(enrollments) {
		return ErrNotEnrolled
	}
	return errors.WithMessage(s.backend.SaveEnrollments(ctx, remaining), "saving enrollments")
}

// CountDistinctQueues returns the number of distinct queues |person| is
// enrolled in.
func (s *Service) CountDistinctQueues(ctx context.Context, person string) (int, error) {
	var enrollments, err = s.backend.LoadEnrollments(ctx)
	if err != nil {
		return 0, errors.WithMessage(err, "loading enrollments")
	}
	return policy.CountDistinctQueues(enrollments, person), nil
}

func (s *Service) load(ctx context.Context) ([]table.QueueRow, []table.EnrollmentRow, error) {
	var queues, err = s.backend.LoadQueues(ctx)
	if err != nil {
		return nil, nil, errors.WithMessage(err, "loading queues")
	}
	enrollments, err := s.backend.LoadEnrollments(ctx)
	if err != nil {
		return nil, nil, errors.WithMessage(err, "loading enrollments")
	}
	return queues, enrollments, nil
}

func findQueue(queues []table.QueueRow, id int) (table.QueueRow, bool) {
	for _, q := range queues {
		if q.ID == id {
			return q, true
		}
	}
	return table.QueueRow{}, false
}

func withoutQueue(enrollments []table.EnrollmentRow, queueID int) []table.EnrollmentRow {
	var out = make([]table.EnrollmentRow, 0, len(enrollments))
	for _, e := range enrollments {
		if e.QueueID != queueID {
			out = append(out, e)
		}
	}
	return out
}
