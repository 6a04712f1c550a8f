// Package validator provides struct-tag based validation for plugin
// submission and manifest metadata, used by the submission validator's
// ValidateMetadataStruct (C5).
package validator

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
)

// validate is the singleton validator instance.
var validate *validator.Validate

var semverPattern = regexp.MustCompile(`^\d+\.\d+\.\d+(-[0-9A-Za-z.-]+)?(\+[0-9A-Za-z.-]+)?$`)

var pluginIDPattern = regexp.MustCompile(`^[a-z0-9]+(?:[-_][a-z0-9]+)*$`)

func init() {
	validate = validator.New()

	validate.RegisterValidation("semver", validateSemver)
	validate.RegisterValidation("pluginid", validatePluginID)
}

// ValidateStruct validates a struct against its `validate` tags and returns
// the first error verbatim (for callers that only care whether it passed).
func ValidateStruct(s interface{}) error {
	return validate.Struct(s)
}

// ValidateRequest validates a struct and returns a field -> message map,
// nil if validation passed.
func ValidateRequest(s interface{}) map[string]string {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}

	fields := make(map[string]string)
	if validationErrs, ok := err.(validator.ValidationErrors); ok {
		for _, e := range validationErrs {
			field := strings.ToLower(e.Field())
			fields[field] = formatValidationError(e)
		}
	}
	return fields
}

// formatValidationError converts a validator field error into a
// human-readable message.
func formatValidationError(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", e.Field())
	case "min":
		return fmt.Sprintf("must be at least %s characters", e.Param())
	case "max":
		return fmt.Sprintf("must be at most %s characters", e.Param())
	case "uuid":
		return "must be a valid UUID"
	case "url":
		return "must be a valid URL"
	case "oneof":
		return fmt.Sprintf("must be one of: %s", e.Param())
	case "gte":
		return fmt.Sprintf("must be greater than or equal to %s", e.Param())
	case "lte":
		return fmt.Sprintf("must be less than or equal to %s", e.Param())
	case "semver":
		return "must be a valid semantic version (MAJOR.MINOR.PATCH)"
	case "pluginid":
		return "must be lowercase alphanumeric segments joined by - or _"
	default:
		return fmt.Sprintf("validation failed: %s", e.Tag())
	}
}

// validateSemver checks MAJOR.MINOR.PATCH with optional pre-release/build
// metadata, matching spec's plugin version field.
func validateSemver(fl validator.FieldLevel) bool {
	return semverPattern.MatchString(fl.Field().String())
}

// validatePluginID checks the plugin identifier shape: lowercase,
// alphanumeric segments joined by hyphens or underscores.
func validatePluginID(fl validator.FieldLevel) bool {
	v := fl.Field().String()
	return len(v) >= 2 && len(v) <= 128 && pluginIDPattern.MatchString(v)
}
