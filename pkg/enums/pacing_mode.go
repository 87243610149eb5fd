package enums

import "fmt"

// PacingMode maps to the pacing_mode_enum enum in Postgres.
type PacingMode string

const (
	PacingModeEven         PacingMode = "even"
	PacingModeAccelerated  PacingMode = "accelerated"
	PacingModeConservative PacingMode = "conservative"
)

var validPacingModes = []PacingMode{
	PacingModeEven,
	PacingModeAccelerated,
	PacingModeConservative,
}

// IsValid reports whether the value matches the canonical pacing mode enum.
func (m PacingMode) IsValid() bool {
	for _, candidate := range validPacingModes {
		if candidate == m {
			return true
		}
	}
	return false
}

// ParsePacingMode converts raw input into PacingMode.
func ParsePacingMode(value string) (PacingMode, error) {
	for _, candidate := range validPacingModes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid pacing mode %q", value)
}
