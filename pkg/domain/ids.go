// Package domain holds the typed identifiers shared across modules.
//
// Each entity gets its own uuid-backed type so the compiler rejects
// cross-entity assignment (a StudentID can never be passed where a
// PassID is expected). Parse helpers enforce the trust-boundary
// invariant: IDs must be valid, non-nil UUIDs.
package domain

import (
	"github.com/google/uuid"

	dErrors "outpass/pkg/domain-errors"
)

type (
	// StudentID identifies a hostel resident.
	StudentID uuid.UUID
	// PassID identifies a pass record (day or home).
	PassID uuid.UUID
	// WardenID identifies a warden account.
	WardenID uuid.UUID
	// GuardID identifies a security guard account.
	GuardID uuid.UUID
	// DefaulterID identifies a defaulter record.
	DefaulterID uuid.UUID
	// GateLogID identifies an append-only gate log row.
	GateLogID uuid.UUID
)

func (id StudentID) String() string   { return uuid.UUID(id).String() }
func (id PassID) String() string      { return uuid.UUID(id).String() }
func (id WardenID) String() string    { return uuid.UUID(id).String() }
func (id GuardID) String() string     { return uuid.UUID(id).String() }
func (id DefaulterID) String() string { return uuid.UUID(id).String() }
func (id GateLogID) String() string   { return uuid.UUID(id).String() }

func (id StudentID) IsNil() bool   { return uuid.UUID(id) == uuid.Nil }
func (id PassID) IsNil() bool      { return uuid.UUID(id) == uuid.Nil }
func (id WardenID) IsNil() bool    { return uuid.UUID(id) == uuid.Nil }
func (id GuardID) IsNil() bool     { return uuid.UUID(id) == uuid.Nil }
func (id DefaulterID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }

// parseUUID rejects empty strings, malformed text, and the nil UUID.
// Callers get a CodeInvalidInput error they can surface as a 400 without
// ever reaching a store lookup.
func parseUUID(raw, kind string) (uuid.UUID, error) {
	if raw == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, kind+" id is required")
	}
	parsed, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, kind+" id is not a valid uuid")
	}
	if parsed == uuid.Nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, kind+" id must not be nil")
	}
	return parsed, nil
}

func ParseStudentID(raw string) (StudentID, error) {
	parsed, err := parseUUID(raw, "student")
	return StudentID(parsed), err
}

func ParsePassID(raw string) (PassID, error) {
	parsed, err := parseUUID(raw, "pass")
	return PassID(parsed), err
}

func ParseWardenID(raw string) (WardenID, error) {
	parsed, err := parseUUID(raw, "warden")
	return WardenID(parsed), err
}

func ParseGuardID(raw string) (GuardID, error) {
	parsed, err := parseUUID(raw, "guard")
	return GuardID(parsed), err
}

func ParseDefaulterID(raw string) (DefaulterID, error) {
	parsed, err := parseUUID(raw, "defaulter")
	return DefaulterID(parsed), err
}
