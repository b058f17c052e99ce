package lookup

import (
	"strings"

	"application-tracker/internal/common/errors"
	"application-tracker/internal/common/validation"
)

const maxFieldLength = 128

func GetInputSchema() validation.JSONSchema {
	return validation.JSONSchema{
		"type":     "object",
		"required": []interface{}{"file_number", "surname"},
		"properties": map[string]interface{}{
			"file_number": map[string]interface{}{
				"type":        "string",
				"description": "Application file number, e.g. I12345",
				"pattern":     `\S`,
				"maxLength":   maxFieldLength,
			},
			"surname": map[string]interface{}{
				"type":        "string",
				"description": "Applicant surname",
				"pattern":     `\S`,
				"maxLength":   maxFieldLength,
			},
		},
	}
}

// ValidateQuery rejects a query with a blank or oversized field.
func ValidateQuery(q Query) error {
	result := validation.ValidateInput(map[string]interface{}{
		"file_number": q.FileNumber,
		"surname":     q.Surname,
	}, GetInputSchema())
	if result.Valid {
		return nil
	}

	fields := make([]string, 0, len(result.Errors))
	for _, e := range result.Errors {
		fields = append(fields, e.Field)
	}
	stdErr := errors.NewValidationFailedError(strings.Join(result.GetErrorMessages(), "; "))
	stdErr.Metadata = map[string]interface{}{"fields": fields}
	return stdErr
}
