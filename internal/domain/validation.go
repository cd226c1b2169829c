package domain

import (
	"fmt"
	"regexp"
	"strings"
)

// Validation constants
const (
	MaxPlayerIDLength = 64
	MaxNameLength     = 255
)

// Player IDs become file names, so the charset is deliberately narrow.
var playerIDRegex = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9._-]*$`)

// ValidatePlayerID validates a player identity string.
func ValidatePlayerID(id string) error {
	if id == "" {
		return fmt.Errorf("%w: empty", ErrInvalidID)
	}

	if len(id) > MaxPlayerIDLength {
		return fmt.Errorf("%w: exceeds %d characters", ErrInvalidID, MaxPlayerIDLength)
	}

	if !playerIDRegex.MatchString(id) {
		return fmt.Errorf("%w: %q", ErrInvalidID, id)
	}

	return nil
}

// ValidateDisplayName validates a player display name. Empty is allowed;
// the name is a hint, not an identity.
func ValidateDisplayName(name string) error {
	if len(name) > MaxNameLength {
		return fmt.Errorf("name exceeds %d characters", MaxNameLength)
	}

	if strings.ContainsAny(name, "\x00\n\r") {
		return fmt.Errorf("name contains control characters")
	}

	return nil
}
