// pkg/datasetcheck/check.go
package datasetcheck

import (
	"fmt"
	"os"
	"strings"
	"time"

	"application-tracker/internal/tracker/loader"
	"application-tracker/internal/tracker/lookup"
	"application-tracker/internal/tracker/progress"
)

// LoadFile reads and checks the dataset at path.
func LoadFile(path string) (*Report, []loader.ApplicationRecord, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, err
	}
	report, records := Check(string(data))
	report.Path = path
	return report, records, nil
}

// Check parses text the same way the tracker does and reports header columns
// it lacks, rows with blank key fields, statuses the tracker cannot place, and
// rows shadowed by an earlier row with the same key.
func Check(text string) (*Report, []loader.ApplicationRecord) {
	records := loader.Parse(text)
	report := &Report{
		CheckedAt: time.Now().UTC().Format(time.RFC3339),
		Records:   len(records),
		Findings:  []Finding{},
	}

	for _, column := range loader.MissingColumns(text) {
		report.Findings = append(report.Findings, Finding{
			Kind:   KindMissingColumn,
			Detail: fmt.Sprintf("header has no %q column", column),
		})
	}

	firstSeen := make(map[string]int)
	for i, record := range records {
		row := i + 1
		base := Finding{Row: row, FileNumber: record.FileNumber(), Surname: record.Surname()}

		if missing := record.Missing(); len(missing) > 0 {
			f := base
			f.Kind = KindMissingField
			f.Detail = "blank " + strings.Join(missing, ", ")
			report.Findings = append(report.Findings, f)
		}

		if status := record.Status(); status != "" && !progress.Known(status) {
			f := base
			f.Kind = KindUnknownStatus
			f.Detail = fmt.Sprintf("status %q is not one of the tracker stages", status)
			report.Findings = append(report.Findings, f)
		}

		if record.FileNumber() == "" || record.Surname() == "" {
			continue
		}
		key := lookup.Normalize(record.FileNumber()) + "\x00" + lookup.Normalize(record.Surname())
		if first, ok := firstSeen[key]; ok {
			f := base
			f.Kind = KindDuplicateKey
			f.Detail = fmt.Sprintf("same file number and surname as row %d, which searches will return instead", first)
			report.Findings = append(report.Findings, f)
			continue
		}
		firstSeen[key] = row
	}

	return report, records
}
