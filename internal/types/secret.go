package types

import (
	"encoding/json"
	"log/slog"
)

// SecretString is a string type that redacts its value when marshaled to JSON
// or converted to a string. Session cookies and Redis passwords are held in
// this type so they never reach logs, error messages, or config dumps.
type SecretString struct {
	value string
}

// NewSecretString wraps value.
func NewSecretString(value string) SecretString {
	return SecretString{value: value}
}

// Value returns the unredacted secret.
func (s SecretString) Value() string {
	return s.value
}

// LogValue keeps the secret out of slog output.
func (s SecretString) LogValue() slog.Value {
	return slog.StringValue(s.String())
}

func (s SecretString) String() string {
	if s.value == "" {
		return ""
	}
	return "[REDACTED]"
}

func (s SecretString) MarshalJSON() ([]byte, error) {
	if s.value == "" {
		return json.Marshal("")
	}
	return json.Marshal("[REDACTED]")
}

func (s *SecretString) UnmarshalJSON(data []byte) error {
	var value string
	if err := json.Unmarshal(data, &value); err != nil {
		return err
	}
	s.value = value
	return nil
}

func (s SecretString) IsEmpty() bool {
	return s.value == ""
}
