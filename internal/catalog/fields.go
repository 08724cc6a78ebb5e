package catalog

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/rpattn/flowlib/internal/domain"
)

// FieldError reports the first column of a row that failed validation.
type FieldError struct {
	Field   string
	Message string
}

func (e *FieldError) Error() string {
	return e.Message
}

// Fields validates the content columns of an upsert row and coerces them
// into storage values. Only columns present in the upload header appear in
// the result; empty cells fall back to the column default or nil.
//
// Required columns are checked first, in declaration order, so the error
// names the first missing required field before any format problem.
func (r *Registry) Fields(entry Entry, row domain.ImportRow) (map[string]any, error) {
	for _, column := range entry.Columns {
		if !column.Required {
			continue
		}
		raw := row.Value(column.Name)
		if raw == "" {
			return nil, &FieldError{Field: column.Name, Message: fmt.Sprintf("%s is required", column.Name)}
		}
		if column.Type == ColumnPlatform {
			if _, ok := r.platforms.Canonical(raw); !ok {
				return nil, r.unknownPlatform(column.Name, raw)
			}
		}
	}

	fields := make(map[string]any, len(entry.Columns))
	for _, column := range entry.Columns {
		if !row.Has(column.Name) {
			continue
		}
		raw := row.Value(column.Name)
		if raw == "" {
			fields[column.Name] = emptyValue(column)
			continue
		}

		value, err := r.coerce(column, raw)
		if err != nil {
			return nil, err
		}
		if column.Rules != "" {
			if err := r.validate.Var(value, column.Rules); err != nil {
				return nil, describeViolation(column, raw, err)
			}
		}
		fields[column.Name] = value
	}

	return fields, nil
}

// WithDefaults fills columns missing from fields with their defaults, for inserts.
func (e Entry) WithDefaults(fields map[string]any) map[string]any {
	out := make(map[string]any, len(e.Columns))
	for key, value := range fields {
		out[key] = value
	}
	for _, column := range e.Columns {
		if _, ok := out[column.Name]; ok {
			continue
		}
		out[column.Name] = emptyValue(column)
	}
	return out
}

func emptyValue(column Column) any {
	if column.Type == ColumnList {
		return []string{}
	}
	return column.Default
}

func (r *Registry) coerce(column Column, raw string) (any, error) {
	switch column.Type {
	case ColumnPlatform:
		canonical, ok := r.platforms.Canonical(raw)
		if !ok {
			return nil, r.unknownPlatform(column.Name, raw)
		}
		return canonical, nil
	case ColumnInteger:
		if i, err := strconv.ParseInt(raw, 10, 64); err == nil {
			return i, nil
		}
		if f, err := strconv.ParseFloat(raw, 64); err == nil && math.Mod(f, 1) == 0 {
			if f < math.MinInt64 || f >= math.MaxInt64 {
				return nil, &FieldError{Field: column.Name, Message: fmt.Sprintf("%s %q is out of range", column.Name, raw)}
			}
			return int64(f), nil
		}
		return nil, &FieldError{Field: column.Name, Message: fmt.Sprintf("%s: unable to coerce %q to integer", column.Name, raw)}
	case ColumnFloat:
		f, err := strconv.ParseFloat(strings.ReplaceAll(raw, ",", "."), 64)
		if err != nil {
			return nil, &FieldError{Field: column.Name, Message: fmt.Sprintf("%s: unable to coerce %q to number", column.Name, raw)}
		}
		return f, nil
	case ColumnList:
		return domain.SplitList(raw), nil
	default:
		return raw, nil
	}
}

func (r *Registry) unknownPlatform(field, raw string) *FieldError {
	return &FieldError{
		Field: field,
		Message: fmt.Sprintf("%s %q is not a recognized platform (expected one of %s)",
			field, raw, strings.Join(r.platforms.Names(), ", ")),
	}
}

func describeViolation(column Column, raw string, err error) *FieldError {
	var violations validator.ValidationErrors
	if !errors.As(err, &violations) || len(violations) == 0 {
		return &FieldError{Field: column.Name, Message: fmt.Sprintf("%s: %v", column.Name, err)}
	}

	violation := violations[0]
	var reason string
	switch violation.Tag() {
	case "http_url":
		reason = "must start with http:// or https://"
	case "email":
		reason = "must be a valid email address"
	case "gte":
		reason = "must be >= " + violation.Param()
	case "lte":
		reason = "must be <= " + violation.Param()
	case "oneof":
		reason = "must be one of " + strings.ReplaceAll(violation.Param(), " ", ", ")
	default:
		reason = "failed " + violation.Tag() + " check"
	}
	return &FieldError{Field: column.Name, Message: fmt.Sprintf("%s %q %s", column.Name, raw, reason)}
}
