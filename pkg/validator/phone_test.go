package validator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPhoneValidator(t *testing.T) {
	validator := NewPhoneValidator()
	assert.NotNil(t, validator)
}

func TestValidate_ValidNumbers(t *testing.T) {
	validator := NewPhoneValidator()

	validNumbers := []struct {
		input    string
		expected string
		name     string
	}{
		{"0771234567", "0771234567", "Local format"},
		{"077 123 4567", "0771234567", "With spaces"},
		{"077-123-4567", "0771234567", "With dashes"},
		{"077.123.4567", "0771234567", "With dots"},
		{"(077) 123 4567", "0771234567", "With parentheses"},
		{"+94771234567", "94771234567", "E.164 with plus"},
		{"94771234567", "94771234567", "Country code without plus"},
		{"+14155552671", "14155552671", "US number"},
		{"+442071838750", "442071838750", "UK number"},
		{"1234567", "1234567", "Minimum length"},
		{"123456789012345", "123456789012345", "Maximum length"},
	}

	for _, tc := range validNumbers {
		t.Run(tc.name, func(t *testing.T) {
			sanitized, err := validator.Validate(tc.input)
			require.NoError(t, err)
			assert.Equal(t, tc.expected, sanitized)
		})
	}
}

func TestValidate_InvalidNumbers(t *testing.T) {
	validator := NewPhoneValidator()

	invalidNumbers := []struct {
		input       string
		expectedErr error
		name        string
	}{
		{"", ErrEmptyPhone, "Empty string"},
		{"123456", ErrInvalidLength, "Too short"},
		{"1234567890123456", ErrInvalidLength, "Too long"},
		{"077123456a", ErrInvalidFormat, "Contains letters"},
		{"077-123-456a", ErrInvalidFormat, "Contains letters with dashes"},
		{"077 123 456!", ErrInvalidFormat, "Contains special characters"},
		{"+94+771234567", ErrInvalidFormat, "Plus sign in the middle"},
	}

	for _, tc := range invalidNumbers {
		t.Run(tc.name, func(t *testing.T) {
			_, err := validator.Validate(tc.input)
			assert.Error(t, err)
			assert.Equal(t, tc.expectedErr, err)
		})
	}
}

func TestSanitize(t *testing.T) {
	validator := NewPhoneValidator()

	tests := []struct {
		input    string
		expected string
	}{
		{"+94 77 123 4567", "94771234567"},
		{"(077) 123-4567", "0771234567"},
		{"077.123.4567", "0771234567"},
		{"0771234567", "0771234567"},
	}

	for _, tc := range tests {
		assert.Equal(t, tc.expected, validator.Sanitize(tc.input))
	}
}

func TestIsValid(t *testing.T) {
	validator := NewPhoneValidator()

	assert.True(t, validator.IsValid("+94771234567"))
	assert.True(t, validator.IsValid("0771234567"))
	assert.False(t, validator.IsValid(""))
	assert.False(t, validator.IsValid("abc"))
	assert.False(t, validator.IsValid("123"))
}

func TestMustValidate(t *testing.T) {
	validator := NewPhoneValidator()

	assert.Equal(t, "94771234567", validator.MustValidate("+94 77 123 4567"))
	assert.Panics(t, func() { validator.MustValidate("not-a-number") })
}
