package types

import (
	"fmt"
	"unicode/utf8"
)

// CodeValidationConfig contains configuration for leaderboard code validation.
type CodeValidationConfig struct {
	MaxLength int
}

// DefaultCodeValidationConfig returns a CodeValidationConfig with default values.
func DefaultCodeValidationConfig() CodeValidationConfig {
	return CodeValidationConfig{
		MaxLength: 64,
	}
}

// CodeValidator checks that a leaderboard code can be placed in the
// upstream URL path.
type CodeValidator struct {
	config CodeValidationConfig
}

// NewCodeValidator creates a new CodeValidator with the given configuration.
func NewCodeValidator(config CodeValidationConfig) *CodeValidator {
	return &CodeValidator{config: config}
}

// Validate returns ErrInvalidLeaderboardCode (wrapped) for unusable codes.
// An empty code is left to the missing-configuration check.
func (v *CodeValidator) Validate(code string) error {
	if code == "" {
		return nil
	}

	if v.config.MaxLength > 0 && len(code) > v.config.MaxLength {
		return fmt.Errorf("%w: length %d exceeds maximum %d",
			ErrInvalidLeaderboardCode, len(code), v.config.MaxLength)
	}

	if !utf8.ValidString(code) {
		return fmt.Errorf("%w: invalid UTF-8", ErrInvalidLeaderboardCode)
	}

	for i, r := range code {
		switch {
		case r >= '0' && r <= '9', r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r == '-', r == '_':
		default:
			return fmt.Errorf("%w: unexpected character %q at position %d", ErrInvalidLeaderboardCode, r, i)
		}
	}

	return nil
}

// ValidateCode validates a code using the default validator.
func ValidateCode(code string) error {
	return DefaultCodeValidator.Validate(code)
}

// DefaultCodeValidator is the default code validator instance.
var DefaultCodeValidator = NewCodeValidator(DefaultCodeValidationConfig())
