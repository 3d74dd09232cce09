// Package validator provides struct validation utilities with custom validators.
package validator

import (
	stderrors "errors"
	"fmt"
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"

	"github.com/remedyops/findings-api/pkg/domain/finding"
	"github.com/remedyops/findings-api/pkg/search"
)

// Validator wraps the go-playground validator with custom validations.
type Validator struct {
	validate *validator.Validate
}

// ValidationError represents a single field validation error.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationErrors is a collection of validation errors.
type ValidationErrors []ValidationError

// Error implements the error interface.
func (v ValidationErrors) Error() string {
	if len(v) == 0 {
		return ""
	}
	var sb strings.Builder
	for i, e := range v {
		if i > 0 {
			sb.WriteString("; ")
		}
		sb.WriteString(fmt.Sprintf("%s: %s", e.Field, e.Message))
	}
	return sb.String()
}

// New creates a new Validator with custom validators registered.
func New() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())

	_ = v.RegisterValidation("comparison", validateComparison)
	_ = v.RegisterValidation("composite_op", validateCompositeOp)
	_ = v.RegisterValidation("sort_order", validateSortOrder)
	_ = v.RegisterValidation("action_type", validateActionType)
	_ = v.RegisterValidation("severity", validateSeverity)
	_ = v.RegisterValidation("remediation_status", validateRemediationStatus)

	return &Validator{validate: v}
}

// Validate validates a struct and returns ValidationErrors if validation
// fails. Every offending field is reported; one invalid field fails the
// whole request.
func (v *Validator) Validate(s interface{}) error {
	err := v.validate.Struct(s)
	if err == nil {
		return nil
	}

	var validationErrors validator.ValidationErrors
	if !stderrors.As(err, &validationErrors) {
		return err
	}

	result := make(ValidationErrors, 0, len(validationErrors))
	for _, e := range validationErrors {
		result = append(result, ValidationError{
			Field:   toSnakeCase(e.Field()),
			Message: formatErrorMessage(e),
		})
	}

	return result
}

// validateComparison validates that a string is one of the six filter comparisons.
func validateComparison(fl validator.FieldLevel) bool {
	value := fl.Field().String()
	if value == "" {
		return true // Let 'required' handle empty values
	}
	return search.Comparison(value).IsValid()
}

// validateCompositeOp validates that a string is a composite group operator.
func validateCompositeOp(fl validator.FieldLevel) bool {
	value := fl.Field().String()
	if value == "" {
		return true // Let 'required' handle empty values
	}
	return search.Operator(value).IsValid()
}

// validateSortOrder validates that a string is a sort direction.
func validateSortOrder(fl validator.FieldLevel) bool {
	value := fl.Field().String()
	if value == "" {
		return true // Let 'required' handle empty values
	}
	return search.SortOrder(value).IsValid()
}

// validateActionType validates that a string is a finding action type.
func validateActionType(fl validator.FieldLevel) bool {
	value := fl.Field().String()
	if value == "" {
		return true // Let 'required' handle empty values
	}
	return finding.ActionType(value).IsValid()
}

// validateSeverity validates that a string is a valid Severity.
func validateSeverity(fl validator.FieldLevel) bool {
	value := fl.Field().String()
	if value == "" {
		return true // Let 'required' handle empty values
	}
	_, err := finding.ParseSeverity(value)
	return err == nil
}

// validateRemediationStatus validates that a string is a valid RemediationStatus.
func validateRemediationStatus(fl validator.FieldLevel) bool {
	value := fl.Field().String()
	if value == "" {
		return true // Let 'required' handle empty values
	}
	_, err := finding.ParseRemediationStatus(value)
	return err == nil
}

// formatErrorMessage converts validation errors to human-readable messages.
func formatErrorMessage(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return "is required"
	case "min":
		return fmt.Sprintf("must have at least %s entries or characters", e.Param())
	case "max":
		return fmt.Sprintf("must have at most %s entries or characters", e.Param())
	case "comparison":
		return fmt.Sprintf("must be one of: %s", joinComparisons())
	case "composite_op":
		return "must be one of: AND, OR"
	case "sort_order":
		return "must be one of: asc, desc"
	case "action_type":
		return fmt.Sprintf("must be one of: %s", joinActionTypes())
	case "severity":
		return fmt.Sprintf("must be one of: %s", joinSeverities())
	case "remediation_status":
		return fmt.Sprintf("must be one of: %s", joinRemediationStatuses())
	default:
		return fmt.Sprintf("failed validation: %s", e.Tag())
	}
}

func joinComparisons() string {
	all := search.AllComparisons()
	parts := make([]string, len(all))
	for i, c := range all {
		parts[i] = string(c)
	}
	return strings.Join(parts, ", ")
}

func joinActionTypes() string {
	all := finding.AllActionTypes()
	parts := make([]string, len(all))
	for i, a := range all {
		parts[i] = string(a)
	}
	return strings.Join(parts, ", ")
}

func joinSeverities() string {
	all := finding.AllSeverities()
	parts := make([]string, len(all))
	for i, s := range all {
		parts[i] = string(s)
	}
	return strings.Join(parts, ", ")
}

func joinRemediationStatuses() string {
	all := finding.AllRemediationStatuses()
	parts := make([]string, len(all))
	for i, s := range all {
		parts[i] = string(s)
	}
	return strings.Join(parts, ", ")
}

// toSnakeCase converts a Go field name to snake_case for API responses.
func toSnakeCase(s string) string {
	var sb strings.Builder
	for i, r := range s {
		if unicode.IsUpper(r) {
			if i > 0 {
				sb.WriteByte('_')
			}
			sb.WriteRune(unicode.ToLower(r))
			continue
		}
		sb.WriteRune(r)
	}
	return sb.String()
}
