package table

// State is the complete content of all three logical tables. It's the schema
// of the remote document and of the export utility's output.
type State struct {
	Plan        Table `json:"plan" yaml:"plan"`
	Queues      Table `json:"queues" yaml:"queues"`
	Enrollments Table `json:"enrollments" yaml:"enrollments"`
}

// DefaultRoster returns the built-in roster used when no data exists yet.
func DefaultRoster() []RosterRow {
	return []RosterRow{
		{Date: "27.07.2024", Persons: "Finni, Lukas, Isabella"},
		{Date: "03.08.2024"},
		{Date: "10.08.2024"},
	}
}

// DefaultState returns the built-in State: the default roster, and
// header-only queues and enrollments.
func DefaultState() State {
	return State{
		Plan:        EncodeRoster(DefaultRoster()),
		Queues:      EncodeQueues(nil),
		Enrollments: EncodeEnrollments(nil),
	}
}

// Fill replaces any missing (nil or header-less) Table of the State with its
// default. It returns true if a Table was replaced.
func (s *State) Fill() bool {
	var d, filled = DefaultState(), false

	if len(s.Plan) == 0 {
		s.Plan, filled = d.Plan, true
	}
	if len(s.Queues) == 0 {
		s.Queues, filled = d.Queues, true
	}
	if len(s.Enrollments) == 0 {
		s.Enrollments, filled = d.Enrollments, true
	}
	return filled
}
