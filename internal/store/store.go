// Package store persists event definitions and their recurrence rules.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/jtomassoni/monaghans-sub000/internal/civil"
	"github.com/jtomassoni/monaghans-sub000/internal/occurrence"
	"github.com/jtomassoni/monaghans-sub000/internal/recurrence"
)

var ErrNotFound = errors.New("event not found")

// Record is one stored event definition.
type Record struct {
	ID        string
	Title     string
	Notes     string
	Start     civil.DateTime
	End       *civil.DateTime
	AllDay    bool
	Rule      recurrence.Rule
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Series hands the record to the expander.
func (r Record) Series() occurrence.Series {
	return occurrence.Series{
		Definition: occurrence.Definition{ID: r.ID, Title: r.Title, Start: r.Start, End: r.End, AllDay: r.AllDay},
		Rule:       r.Rule,
	}
}

type CreateInput struct {
	Title  string
	Notes  string
	Start  civil.DateTime
	End    *civil.DateTime
	AllDay bool
	Rule   recurrence.Rule
}

// Filter selects records that can produce occurrences between From and To.
// Zero dates leave that side open.
type Filter struct {
	From  civil.Date
	To    civil.Date
	Query string
	Limit int
}

type Store interface {
	Ping(context.Context) error
	List(context.Context, Filter) ([]Record, error)
	Get(context.Context, string) (*Record, error)
	Add(context.Context, CreateInput) (*Record, error)
	AddException(context.Context, string, civil.Date) (*Record, error)
	Delete(context.Context, string) error
	Close() error
}

// Series converts records for ExpandAll.
func Series(records []Record) []occurrence.Series {
	out := make([]occurrence.Series, len(records))
	for i, r := range records {
		out[i] = r.Series()
	}
	return out
}
