// internal/common/validation/schema.go
package validation

import (
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

type ValidationResult struct {
	Valid  bool              `json:"valid"`
	Errors []ValidationError `json:"errors,omitempty"`
}

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

// SubmissionSchema constrains the shape of an inspection submission. Fields are optional; only
// their types are checked, since the form sends partial records.
const SubmissionSchema = `{
  "type": "object",
  "properties": {
    "customerName":     {"type": ["string", "null"]},
    "propertyAddress":  {"type": ["string", "null"]},
    "cityStateZip":     {"type": ["string", "null"]},
    "inspectionDate":   {"type": ["string", "null"]},
    "roofType":         {"type": ["string", "null"]},
    "roofAge":          {"type": ["string", "number", "null"]},
    "roofMaterial":     {"type": ["string", "null"]},
    "roofSize":         {"type": ["string", "number", "null"]},
    "condition":        {"type": ["string", "null"]},
    "findings": {
      "type": ["object", "null"],
      "additionalProperties": {
        "type": "object",
        "properties": {
          "checked": {"type": "boolean"},
          "notes":   {"type": ["string", "null"]}
        }
      }
    },
    "photos": {
      "type": ["array", "null"],
      "items": {
        "type": "object",
        "properties": {
          "preview": {"type": ["string", "null"]},
          "caption": {"type": ["string", "null"]}
        }
      }
    },
    "damageAssessment": {"type": ["string", "null"]},
    "recommendation":   {"type": ["string", "null"]},
    "estimateLow":      {"type": ["string", "number", "null"]},
    "estimateHigh":     {"type": ["string", "number", "null"]},
    "nextSteps":        {"type": ["string", "null"]},
    "sendToHomeowner":  {"type": ["boolean", "null"]},
    "homeownerPhone":   {"type": ["string", "null"]},
    "rooferInfo":       {"type": ["object", "null"]}
  }
}`

var submissionSchema = gojsonschema.NewStringLoader(SubmissionSchema)

// ValidateSubmission checks a raw JSON document against SubmissionSchema.
func ValidateSubmission(document []byte) (*ValidationResult, error) {
	return ValidateJSON(submissionSchema, gojsonschema.NewBytesLoader(document))
}

// ValidateMap checks an already decoded document, such as process variables.
func ValidateMap(document map[string]interface{}) (*ValidationResult, error) {
	return ValidateJSON(submissionSchema, gojsonschema.NewGoLoader(document))
}

func ValidateJSON(schema, document gojsonschema.JSONLoader) (*ValidationResult, error) {
	result, err := gojsonschema.Validate(schema, document)
	if err != nil {
		return nil, fmt.Errorf("validation error: %w", err)
	}

	out := &ValidationResult{Valid: result.Valid()}
	for _, desc := range result.Errors() {
		out.Errors = append(out.Errors, ValidationError{
			Field:   desc.Field(),
			Message: desc.Description(),
			Code:    strings.ToUpper(desc.Type()),
		})
	}
	return out, nil
}

// GetErrorMessages returns "field: message" strings for every error.
func (vr *ValidationResult) GetErrorMessages() []string {
	messages := make([]string, 0, len(vr.Errors))
	for _, e := range vr.Errors {
		messages = append(messages, fmt.Sprintf("%s: %s", e.Field, e.Message))
	}
	return messages
}

func (vr *ValidationResult) HasErrors(field string) bool {
	return len(vr.GetErrorsForField(field)) > 0
}

func (vr *ValidationResult) GetErrorsForField(field string) []ValidationError {
	var out []ValidationError
	for _, e := range vr.Errors {
		if e.Field == field || strings.HasPrefix(e.Field, field+".") {
			out = append(out, e)
		}
	}
	return out
}
