package forms

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var (
	nameWithSpaceRe         = regexp.MustCompile(`^[A-Za-z]+(?:\s[A-Za-z]+)?$`)
	emailRe                 = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	digitsOnlyRe            = regexp.MustCompile(`^\d+$`)
	alphanumericWithSpaceRe = regexp.MustCompile(`^[A-Za-z0-9\s]+$`)
)

// Validate runs every field's rules against the current values and returns
// the error map. Pure and synchronous; an empty map means the form is valid.
func Validate(values Values, fields []Field) Errors {
	errs := make(Errors)
	for _, field := range fields {
		if message := ValidateField(field, values); message != "" {
			errs[field.Name] = message
		}
	}
	return errs
}

// ValidateField validates a single field against the current values and
// returns the first failing rule's message, or "" when valid. Optional
// fields with empty values short-circuit every other rule; non-empty values
// are always checked for format and length.
func ValidateField(field Field, values Values) string {
	value := values.Get(field.Name)

	if field.IsRequired(values) && value == "" {
		return fmt.Sprintf("%s is required.", field.Label)
	}

	if value != "" {
		switch field.Rules.Kind {
		case RuleNameWithSpace:
			trimmed := strings.TrimSpace(value)
			if !nameWithSpaceRe.MatchString(trimmed) {
				return fmt.Sprintf("%s can have letters and one optional space between words.", field.Label)
			}
			if value != trimmed || strings.Contains(value, "  ") {
				return fmt.Sprintf("%s cannot have multiple or leading/trailing spaces.", field.Label)
			}
		case RuleEmail:
			if !emailRe.MatchString(value) {
				return "Please enter a valid email address."
			}
		}

		if max := field.Rules.MaxLength; max > 0 && len(value) > max {
			return fmt.Sprintf("%s cannot exceed %d characters.", field.Label, max)
		}
		if min := field.Rules.MinLength; min > 0 && len(value) < min {
			return fmt.Sprintf("%s must be at least %d characters long.", field.Label, min)
		}
	}

	if field.Type == InputTextarea {
		if field.IsRequired(values) && strings.TrimSpace(value) == "" {
			return fmt.Sprintf("%s is required", field.Label)
		}
	}

	if value != "" {
		switch field.Rules.Kind {
		case RuleClinicOrderQuantity:
			number, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
			if err != nil {
				return fmt.Sprintf("%s must be a valid number.", field.Label)
			}
			if number < 0 {
				return fmt.Sprintf("%s cannot be negative.", field.Label)
			}
			if number < 25 {
				return fmt.Sprintf("%s cannot be less than 25.", field.Label)
			}
			if number < 1 || number > 99999 {
				return fmt.Sprintf("%s must be between 1 and 99999.", field.Label)
			}
		case RulePhoneNumber:
			if !digitsOnlyRe.MatchString(value) {
				return fmt.Sprintf("%s must contain only numbers.", field.Label)
			}
			if len(value) < 10 || len(value) > 15 {
				return fmt.Sprintf("%s must be between 10 to 15 digits long.", field.Label)
			}
		case RuleAlphanumericWithSpace:
			trimmed := strings.TrimSpace(value)
			if !alphanumericWithSpaceRe.MatchString(trimmed) {
				return fmt.Sprintf("%s must contain only letters, numbers, and spaces.", field.Label)
			}
			if value != trimmed || strings.Contains(value, "  ") {
				return fmt.Sprintf("%s cannot have multiple or leading/trailing spaces.", field.Label)
			}
		case RuleGender:
			switch strings.ToLower(strings.TrimSpace(value)) {
			case "male", "female", "other":
			default:
				return fmt.Sprintf("%s must be male, female, or other.", field.Label)
			}
		case RulePatientAge:
			age, err := strconv.Atoi(strings.TrimSpace(value))
			if err != nil {
				return fmt.Sprintf("%s must be a valid number.", field.Label)
			}
			if age < 18 {
				return fmt.Sprintf("%s must be 18 or older.", field.Label)
			}
		}
	}

	return ""
}
