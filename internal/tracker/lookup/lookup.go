package lookup

import (
	"strings"

	"application-tracker/internal/tracker/loader"
)

// Normalize trims surrounding whitespace and lowercases s.
func Normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Find returns the first record whose file number and surname both equal the
// query after normalization. Partial and prefix matches never count. Records
// parsed from a header without the required columns cannot be searched and
// yield OutcomeDataUnavailable, like an empty set.
func Find(records []loader.ApplicationRecord, q Query) Result {
	if len(records) == 0 || !records[0].HasColumns() {
		return Result{Outcome: OutcomeDataUnavailable}
	}

	want := q.Normalized()
	for _, record := range records {
		if Normalize(record.FileNumber()) == want.FileNumber &&
			Normalize(record.Surname()) == want.Surname {
			return Result{Outcome: OutcomeFound, Record: record}
		}
	}
	return Result{Outcome: OutcomeNoMatch}
}
