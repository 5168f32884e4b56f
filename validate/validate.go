// Package validate collects field-level failures before a service mutates
// anything, and turns them into a single apperr validation error.
package validate

import (
	"fmt"
	"net/mail"
	"net/url"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/MohitSaini10/dan-aliph/apperr"
)

var phoneRegex = regexp.MustCompile(`^[0-9]{10}$`)

// Validator is not safe for concurrent use; build one per operation.
type Validator struct {
	errs []apperr.FieldError
}

func New() *Validator { return &Validator{} }

// Required fails if the trimmed value is empty.
func (v *Validator) Required(field, value string) *Validator {
	if strings.TrimSpace(value) == "" {
		v.add(field, fmt.Sprintf("%s is required", label(field)))
	}
	return v
}

func (v *Validator) MinLen(field, value string, min int) *Validator {
	if utf8.RuneCountInString(value) < min {
		v.add(field, fmt.Sprintf("%s must be at least %d characters", label(field), min))
	}
	return v
}

func (v *Validator) MaxLen(field, value string, max int) *Validator {
	if utf8.RuneCountInString(value) > max {
		v.add(field, fmt.Sprintf("%s must be at most %d characters", label(field), max))
	}
	return v
}

// Email is skipped for empty values; pair with Required when mandatory.
func (v *Validator) Email(field, value string) *Validator {
	if value == "" {
		return v
	}
	addr, err := mail.ParseAddress(value)
	if err != nil || addr.Address != value || !strings.Contains(value[strings.LastIndex(value, "@"):], ".") {
		v.add(field, "Invalid email address")
	}
	return v
}

// Phone10 requires exactly ten ASCII digits.
func (v *Validator) Phone10(field, value string) *Validator {
	if !phoneRegex.MatchString(value) {
		v.add(field, "Phone must be exactly 10 digits")
	}
	return v
}

func (v *Validator) OneOf(field, value string, allowed ...string) *Validator {
	for _, a := range allowed {
		if value == a {
			return v
		}
	}
	v.add(field, fmt.Sprintf("%s must be one of: %s", label(field), strings.Join(allowed, ", ")))
	return v
}

// URL accepts empty values and absolute http(s) URLs.
func (v *Validator) URL(field, value string) *Validator {
	if value == "" {
		return v
	}
	u, err := url.Parse(value)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		v.add(field, fmt.Sprintf("%s must be a valid URL", label(field)))
	}
	return v
}

func (v *Validator) NonNegative(field string, value float64) *Validator {
	if value < 0 {
		v.add(field, fmt.Sprintf("%s cannot be negative", label(field)))
	}
	return v
}

// Custom records message when failed is true.
func (v *Validator) Custom(field string, failed bool, message string) *Validator {
	if failed {
		v.add(field, message)
	}
	return v
}

func (v *Validator) HasErrors() bool { return len(v.errs) > 0 }

// Err returns nil when every rule passed. The error message is the first
// failure so single-field forms read naturally.
func (v *Validator) Err() error {
	if len(v.errs) == 0 {
		return nil
	}
	return apperr.Validation(v.errs[0].Message, v.errs...)
}

func (v *Validator) add(field, message string) {
	v.errs = append(v.errs, apperr.FieldError{Field: field, Message: message})
}

func label(field string) string {
	if field == "" {
		return field
	}
	return strings.ToUpper(field[:1]) + field[1:]
}
