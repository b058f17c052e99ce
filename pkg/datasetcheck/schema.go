// pkg/datasetcheck/schema.go
package datasetcheck

type FindingKind string

const (
	KindMissingColumn FindingKind = "missing_column"
	KindMissingField  FindingKind = "missing_field"
	KindUnknownStatus FindingKind = "unknown_status"
	KindDuplicateKey  FindingKind = "duplicate_key"
)

// Finding is one problem in a dataset. Row is the 1-based data row, or 0 for
// header problems.
type Finding struct {
	Row        int         `json:"row"`
	Kind       FindingKind `json:"kind"`
	FileNumber string      `json:"fileNumber,omitempty"`
	Surname    string      `json:"surname,omitempty"`
	Detail     string      `json:"detail"`
}

type Report struct {
	Path      string    `json:"path"`
	CheckedAt string    `json:"checkedAt"`
	Records   int       `json:"records"`
	Findings  []Finding `json:"findings"`
}

func (r *Report) OK() bool {
	return len(r.Findings) == 0
}

// Count returns how many findings of kind the report holds.
func (r *Report) Count(kind FindingKind) int {
	n := 0
	for _, f := range r.Findings {
		if f.Kind == kind {
			n++
		}
	}
	return n
}
