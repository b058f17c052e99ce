// Package progress maps an application status onto the fixed stage list and
// derives the per-stage flags the tracker renders.
package progress

// stageList is the ordered application lifecycle. It is never exposed
// directly; Stages returns a copy.
var stageList = [...]string{
	"Deposit Paid",
	"File Opened",
	"Drafting Application",
	"Editing Application",
	"Putting Together Application",
	"Submitted",
}

// Stages returns the ordered stage labels.
func Stages() []string {
	out := make([]string, len(stageList))
	copy(out, stageList[:])
	return out
}

// Index returns the position of status in the stage list, or -1. The
// comparison is exact and case-sensitive.
func Index(status string) int {
	for i, stage := range stageList {
		if stage == status {
			return i
		}
	}
	return -1
}

// Known reports whether status names one of the stages.
func Known(status string) bool {
	return Index(status) >= 0
}
