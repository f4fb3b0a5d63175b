package contract

import "time"

const SchemaVersion = "v1"

type ErrorCode string

const (
	ErrGeneric          ErrorCode = "GENERIC_FAILURE"
	ErrInvalidUsage     ErrorCode = "INVALID_USAGE"
	ErrInvalidCivilTime ErrorCode = "INVALID_CIVIL_TIME"
	ErrInvalidRule      ErrorCode = "INVALID_RECURRENCE_RULE"
	ErrNotFound         ErrorCode = "NOT_FOUND"
	ErrStoreUnavailable ErrorCode = "STORE_UNAVAILABLE"
)

type ErrorEnvelope struct {
	SchemaVersion string         `json:"schema_version"`
	Error         ErrorBody      `json:"error"`
	Meta          map[string]any `json:"meta,omitempty"`
}

type ErrorBody struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Field   string    `json:"field,omitempty"`
	Hint    string    `json:"hint,omitempty"`
}

type SuccessEnvelope struct {
	SchemaVersion string         `json:"schema_version"`
	Command       string         `json:"command"`
	GeneratedAt   time.Time      `json:"generated_at"`
	Data          any            `json:"data"`
	Meta          map[string]any `json:"meta"`
	Warnings      []string       `json:"warnings"`
}

// Event is a stored definition. Start and End are wall-clock readings in
// Zone formatted as YYYY-MM-DDTHH:mm.
type Event struct {
	ID         string     `json:"id"`
	Title      string     `json:"title"`
	Notes      string     `json:"notes,omitempty"`
	Zone       string     `json:"zone"`
	Start      string     `json:"start"`
	End        string     `json:"end,omitempty"`
	AllDay     bool       `json:"all_day"`
	Recurrence Recurrence `json:"recurrence"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

type Recurrence struct {
	Kind        string   `json:"kind"`
	Weekdays    []string `json:"weekdays,omitempty"`
	DayOfMonth  int      `json:"day_of_month,omitempty"`
	Until       string   `json:"until,omitempty"`
	Exceptions  []string `json:"exceptions,omitempty"`
	RRule       string   `json:"rrule,omitempty"`
	Description string   `json:"description"`
}

// Occurrence is one concrete instance of an event.
type Occurrence struct {
	EventID  string     `json:"event_id"`
	Title    string     `json:"title"`
	Date     string     `json:"date"`
	Start    time.Time  `json:"start"`
	End      *time.Time `json:"end,omitempty"`
	AllDay   bool       `json:"all_day"`
	Local    string     `json:"local"`
	Relative string     `json:"relative,omitempty"`
}

type Classification struct {
	Date     string       `json:"date"`
	Zone     string       `json:"zone"`
	Today    []Occurrence `json:"today"`
	Upcoming []Occurrence `json:"upcoming"`
}

type DaySummary struct {
	Date   string `json:"date"`
	Total  int    `json:"total"`
	AllDay int    `json:"all_day"`
	Timed  int    `json:"timed"`
}

type DoctorCheck struct {
	Name    string `json:"name"`
	Status  string `json:"status"`
	Message string `json:"message"`
}
