package loader

import (
	"application-tracker/internal/common/cache"
	httpclient "application-tracker/internal/common/http"
	"application-tracker/internal/common/logger"
)

// Column names every dataset header must carry.
const (
	FieldFileNumber = "file_number"
	FieldSurname    = "surname"
	FieldStatus     = "status"
)

// RequiredFields lists the columns a usable dataset must have.
var RequiredFields = []string{FieldFileNumber, FieldSurname, FieldStatus}

// ApplicationRecord is one data row keyed by header name. Columns other than
// the required three are carried through untouched.
type ApplicationRecord map[string]string

func (r ApplicationRecord) FileNumber() string { return r[FieldFileNumber] }
func (r ApplicationRecord) Surname() string    { return r[FieldSurname] }
func (r ApplicationRecord) Status() string     { return r[FieldStatus] }

// Get returns the value of a column and whether the header defined it.
func (r ApplicationRecord) Get(name string) (string, bool) {
	v, ok := r[name]
	return v, ok
}

// Fields returns a copy of every column in the record.
func (r ApplicationRecord) Fields() map[string]string {
	out := make(map[string]string, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// HasColumns reports whether the header that produced r defined every
// required column.
func (r ApplicationRecord) HasColumns() bool {
	for _, name := range RequiredFields {
		if _, ok := r[name]; !ok {
			return false
		}
	}
	return true
}

// Missing returns the required columns this record lacks or leaves blank.
func (r ApplicationRecord) Missing() []string {
	var missing []string
	for _, name := range RequiredFields {
		if r[name] == "" {
			missing = append(missing, name)
		}
	}
	return missing
}

type ServiceDependencies struct {
	Logger     logger.Logger
	HTTPClient *httpclient.Client
	// Cache is optional; nil disables dataset caching.
	Cache *cache.DatasetCache
}
