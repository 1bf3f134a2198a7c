package validation

import (
	"regexp"
	"strings"
)

// Validation rule patterns
var (
	EmailPattern = `^[a-z0-9._%+\-]+@[a-z0-9.\-]+\.[a-z]{2,}$`

	PasswordMinLength = 6

	NameMinLength = 1
	NameMaxLength = 100

	CommentMaxLength = 1000
)

// CompiledPatterns caches compiled regex patterns
var CompiledPatterns = struct {
	Email *regexp.Regexp
}{
	Email: regexp.MustCompile(EmailPattern),
}

// NormalizeEmail lowercases and trims an address before it is stored or compared.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// IsValidEmail reports whether email (already normalized) looks deliverable.
func IsValidEmail(email string) bool {
	return NewStringValidation(email).WithMaxLength(254).WithPattern(CompiledPatterns.Email).Validate()
}

// IsValidPassword applies the password length policy.
func IsValidPassword(password string) bool {
	return NewStringValidation(password).WithMinLength(PasswordMinLength).WithMaxLength(72).Validate()
}

// IsValidName applies the display name length policy.
func IsValidName(name string) bool {
	return NewStringValidation(strings.TrimSpace(name)).
		WithMinLength(NameMinLength).
		WithMaxLength(NameMaxLength).
		Validate()
}

// StringValidation describes the checks applied to a single string value
type StringValidation struct {
	Value    string
	MinLen   int
	MaxLen   int
	Required bool
	Pattern  *regexp.Regexp
}

// NewStringValidation creates a new string validation
func NewStringValidation(value string) *StringValidation {
	return &StringValidation{
		Value:    value,
		Required: true,
	}
}

// WithMinLength sets minimum length
func (v *StringValidation) WithMinLength(min int) *StringValidation {
	v.MinLen = min
	return v
}

// WithMaxLength sets maximum length
func (v *StringValidation) WithMaxLength(max int) *StringValidation {
	v.MaxLen = max
	return v
}

// WithPattern sets regex pattern
func (v *StringValidation) WithPattern(pattern *regexp.Regexp) *StringValidation {
	v.Pattern = pattern
	return v
}

// WithRequired sets if field is required
func (v *StringValidation) WithRequired(required bool) *StringValidation {
	v.Required = required
	return v
}

// Validate performs validation
func (v *StringValidation) Validate() bool {
	if v.Value == "" {
		return !v.Required
	}
	if v.MinLen > 0 && len([]rune(v.Value)) < v.MinLen {
		return false
	}
	if v.MaxLen > 0 && len([]rune(v.Value)) > v.MaxLen {
		return false
	}
	if v.Pattern != nil && !v.Pattern.MatchString(v.Value) {
		return false
	}
	return true
}
