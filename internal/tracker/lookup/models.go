package lookup

import (
	"context"
	"fmt"

	"application-tracker/internal/common/logger"
	"application-tracker/internal/tracker/loader"
	"application-tracker/internal/tracker/progress"
)

// Query is one submission of the search form. Values are kept as entered;
// Normalize is applied at comparison time.
type Query struct {
	FileNumber string `json:"file_number" form:"file_number" query:"file_number"`
	Surname    string `json:"surname" form:"surname" query:"surname"`
}

// Normalized returns the query with both fields trimmed and lowercased.
func (q Query) Normalized() Query {
	return Query{
		FileNumber: Normalize(q.FileNumber),
		Surname:    Normalize(q.Surname),
	}
}

type Outcome int

const (
	// OutcomeDataUnavailable means the dataset held no records at all.
	OutcomeDataUnavailable Outcome = iota
	OutcomeNoMatch
	OutcomeFound
)

func (o Outcome) String() string {
	switch o {
	case OutcomeDataUnavailable:
		return "data_unavailable"
	case OutcomeNoMatch:
		return "no_match"
	case OutcomeFound:
		return "found"
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}

func (o Outcome) MarshalText() ([]byte, error) {
	return []byte(o.String()), nil
}

// Result is the tagged outcome of a lookup. Record is set only when Outcome
// is OutcomeFound.
type Result struct {
	SearchID string                   `json:"searchId,omitempty"`
	Outcome  Outcome                  `json:"outcome"`
	Record   loader.ApplicationRecord `json:"record,omitempty"`
}

// Found reports whether a record matched.
func (r Result) Found() bool {
	return r.Outcome == OutcomeFound
}

// Tracker renders the stage progress for the matched record.
func (r Result) Tracker() progress.Tracker {
	return progress.Render(r.Record.Status())
}

// RecordSource supplies the current dataset.
type RecordSource interface {
	Records(ctx context.Context) ([]loader.ApplicationRecord, error)
}

type ServiceDependencies struct {
	Logger logger.Logger
	Source RecordSource
}
