package validation

import (
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsValidEmail(t *testing.T) {
	tests := []struct {
		email string
		want  bool
	}{
		{"aditi@example.com", true},
		{"first.last+notes@lko.ac.in", true},
		{"no-at-sign.example.com", false},
		{"missing@tld", false},
		{"", false},
	}
	for _, tt := range tests {
		t.Run(tt.email, func(t *testing.T) {
			assert.Equal(t, tt.want, IsValidEmail(tt.email))
		})
	}
}

func TestNormalizeEmail(t *testing.T) {
	assert.Equal(t, "aditi@example.com", NormalizeEmail("  Aditi@Example.COM "))
}

func TestIsValidPassword(t *testing.T) {
	assert.False(t, IsValidPassword("12345"))
	assert.True(t, IsValidPassword("123456"))
}

func TestIsValidName(t *testing.T) {
	assert.False(t, IsValidName("   "))
	assert.True(t, IsValidName("Ravi"))
}

func TestStringValidationOptional(t *testing.T) {
	assert.True(t, NewStringValidation("").WithRequired(false).WithMinLength(3).Validate())
	assert.False(t, NewStringValidation("ab").WithRequired(false).WithMinLength(3).Validate())
}

func TestResourceTypeTag(t *testing.T) {
	v := validator.New()
	require.NoError(t, RegisterOn(v))

	type form struct {
		Type string `validate:"resourcetype"`
	}
	assert.NoError(t, v.Struct(form{Type: "PYQ"}))
	assert.Error(t, v.Struct(form{Type: "slides"}))
}
