package ident

import (
	"fmt"
	"regexp"
	"strings"
)

var idPattern = regexp.MustCompile(`^[a-z0-9][a-z0-9_.-]{0,63}$`)

// Normalize lowercases and trims a workflow/agent/step identifier.
func Normalize(raw string) string {
	return strings.TrimSpace(strings.ToLower(raw))
}

// Validate checks that an identifier is usable as a registry key.
func Validate(id string) error {
	id = Normalize(id)
	if !idPattern.MatchString(id) {
		return fmt.Errorf("invalid identifier %q", id)
	}
	return nil
}
