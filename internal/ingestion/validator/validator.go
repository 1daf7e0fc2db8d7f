// Package validator provides input validation for ingestion requests. It
// enforces field-name and field-length constraints and returns per-field
// error details.
package validator

import (
	"fmt"
	"strings"

	"github.com/MarkitMedical/FuzzySearch/internal/ingestion"
)

const (
	maxFieldLength = 65536
	maxKeyLength   = 255
)

// ValidationError holds per-field validation failure messages.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	var parts []string
	for field, msg := range e.Fields {
		parts = append(parts, fmt.Sprintf("%s:%s", field, msg))
	}
	return strings.Join(parts, "; ")
}

// ValidateIngestRequest checks that req.Fields contains only recognised
// field names with non-empty, length-bounded values, and returns a
// ValidationError if not. allowedFields is the set of field names the
// source store indexes (source.Store.FieldNames).
func ValidateIngestRequest(req *ingestion.IngestRequest, allowedFields []string) error {
	errs := make(map[string]string)

	if len(req.Fields) == 0 {
		errs["fields"] = "at least one field is required"
		return &ValidationError{Fields: errs}
	}

	allowed := make(map[string]struct{}, len(allowedFields))
	for _, f := range allowedFields {
		allowed[f] = struct{}{}
	}

	for name, value := range req.Fields {
		if _, ok := allowed[name]; !ok {
			errs[name] = "unrecognised field name"
			continue
		}
		trimmed := strings.TrimSpace(value)
		if trimmed == "" {
			errs[name] = "value must not be empty"
		} else if len(trimmed) > maxFieldLength {
			errs[name] = fmt.Sprintf("value must be at most %d characters", maxFieldLength)
		}
	}
	if req.IdempotencyKey != "" && len(req.IdempotencyKey) > maxKeyLength {
		errs["idempotency_key"] = fmt.Sprintf("idempotency key must be at most %d characters", maxKeyLength)
	}
	if len(errs) > 0 {
		return &ValidationError{Fields: errs}
	}
	return nil
}
