package loader

import "strings"

// Delimiter separates fields within a line.
const Delimiter = ","

const byteOrderMark = "\ufeff"

// normalizeText drops a leading byte order mark, unifies line endings and
// trims the surrounding whitespace.
func normalizeText(text string) string {
	text = strings.TrimPrefix(text, byteOrderMark)
	return strings.TrimSpace(strings.ReplaceAll(text, "\r\n", "\n"))
}

// Parse decodes dataset text into records. The first line is the header and
// every following line becomes one record. There is no quoting: a value that
// contains the delimiter shifts the remaining columns. Short rows are padded
// with empty values and surplus values are dropped. Empty or header-only text
// yields no records.
func Parse(text string) []ApplicationRecord {
	text = normalizeText(text)
	if text == "" {
		return []ApplicationRecord{}
	}

	lines := strings.Split(text, "\n")
	header := strings.Split(lines[0], Delimiter)
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}

	records := make([]ApplicationRecord, 0, len(lines)-1)
	for _, line := range lines[1:] {
		values := strings.Split(line, Delimiter)
		record := make(ApplicationRecord, len(header))
		for i, name := range header {
			if i < len(values) {
				record[name] = strings.TrimSpace(values[i])
			} else {
				record[name] = ""
			}
		}
		records = append(records, record)
	}
	return records
}

// MissingColumns reports which required columns the header of text lacks.
func MissingColumns(text string) []string {
	first, _, _ := strings.Cut(normalizeText(text), "\n")

	present := make(map[string]bool)
	for _, name := range strings.Split(first, Delimiter) {
		present[strings.TrimSpace(name)] = true
	}

	var missing []string
	for _, name := range RequiredFields {
		if !present[name] {
			missing = append(missing, name)
		}
	}
	return missing
}
