// Package validation holds client-side input checks applied before any request is issued.
package validation

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

const maxGuestNameLen = 150

// ValidateContent rejects post, comment, and reply bodies that are empty once trimmed.
// The content itself is sent unmodified.
func ValidateContent(content string) error {
	if strings.TrimSpace(content) == "" {
		return fmt.Errorf("content cannot be empty")
	}
	return nil
}

// NormalizeGuestName trims a guest display name and checks it is usable before
// claiming it. Uniqueness and reserved names are decided by the server.
func NormalizeGuestName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", fmt.Errorf("name cannot be empty")
	}
	if utf8.RuneCountInString(name) > maxGuestNameLen {
		return "", fmt.Errorf("name must be at most %d characters", maxGuestNameLen)
	}
	return name, nil
}

// ValidateLoginUsername checks a username can be carried in a Basic
// credential, whose user-id ends at the first colon.
func ValidateLoginUsername(username string) error {
	if strings.TrimSpace(username) == "" {
		return fmt.Errorf("username cannot be empty")
	}
	if strings.Contains(username, ":") {
		return fmt.Errorf("username cannot contain a colon")
	}
	return nil
}
