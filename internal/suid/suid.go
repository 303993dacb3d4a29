// Package suid generates and validates the identifiers used to key
// conversation state.
//
// Both user and conversation identifiers share one canonical format: a
// lowercase hexadecimal UUID, written either as 32 bare hex digits or in
// the hyphenated 8-4-4-4-12 form. The same rule is applied on every call
// path; malformed identifiers fail fast instead of being normalized.
package suid

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/google/uuid"
)

// Axis names which identifier failed validation.
type Axis string

const (
	AxisUser         Axis = "user"
	AxisConversation Axis = "conversation"
)

var canonical = regexp.MustCompile(
	`^(?:[0-9a-f]{32}|[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12})$`,
)

// InvalidIdentifierError reports a malformed user or conversation
// identifier together with the offending value.
type InvalidIdentifierError struct {
	Axis  Axis
	Value string
}

func (e *InvalidIdentifierError) Error() string {
	return fmt.Sprintf("invalid %s ID %q", e.Axis, e.Value)
}

// New returns a fresh identifier in the bare 32-digit hex form.
func New() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

// Validate checks id against the canonical format.
func Validate(axis Axis, id string) error {
	if !canonical.MatchString(id) {
		return &InvalidIdentifierError{Axis: axis, Value: id}
	}
	return nil
}
