package models

import (
	"errors"
	"regexp"
	"strings"
)

// Validation failures surfaced by model hooks. The services translate these
// into client-facing errors; raw database writes hit the equivalent CHECK
// constraints instead.
var (
	ErrNameRequired        = errors.New("models: organization name must not be blank")
	ErrSlugInvalid         = errors.New("models: slug must contain only lowercase letters, digits and hyphens")
	ErrEmailInvalid        = errors.New("models: email address is malformed")
	ErrDisplayNameRequired = errors.New("models: display name must not be blank")
	ErrStatusInvalid       = errors.New("models: unrecognised lifecycle status")
	ErrRoleInvalid         = errors.New("models: unrecognised membership role")
)

// Coarse well-formedness only (x@y.z). Full RFC 5322 parsing is deliberately
// not attempted at the schema layer.
var emailPattern = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

const maxEmailLength = 254

// NormalizeEmail lowercases and trims an address before storage or lookup.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// ValidEmail reports whether the address matches the coarse x@y.z shape.
func ValidEmail(email string) bool {
	if email == "" || len(email) > maxEmailLength {
		return false
	}
	return emailPattern.MatchString(email)
}
