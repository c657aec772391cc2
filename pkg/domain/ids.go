package domain

import (
	"github.com/google/uuid"

	dErrors "schoolpay/pkg/domain-errors"
)

// Typed entity IDs. Wrapping uuid.UUID in distinct types makes cross-entity
// assignment a compile error, so a school ID can never be handed to a lookup
// that expects a user ID.
type (
	UserID   uuid.UUID
	SchoolID uuid.UUID
)

// NewUserID returns a fresh random user ID.
func NewUserID() UserID { return UserID(uuid.New()) }

// NewSchoolID returns a fresh random school ID.
func NewSchoolID() SchoolID { return SchoolID(uuid.New()) }

// ParseUserID constructs a UserID from external input.
// Invariant: IDs must be valid, non-nil UUIDs; enforce at trust boundaries.
func ParseUserID(s string) (UserID, error) {
	u, err := parseUUID(s)
	if err != nil {
		return UserID{}, err
	}
	return UserID(u), nil
}

// ParseSchoolID constructs a SchoolID from external input.
func ParseSchoolID(s string) (SchoolID, error) {
	u, err := parseUUID(s)
	if err != nil {
		return SchoolID{}, err
	}
	return SchoolID(u), nil
}

func parseUUID(s string) (uuid.UUID, error) {
	if s == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "id cannot be empty")
	}
	u, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "id must be a valid UUID")
	}
	if u == uuid.Nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "id cannot be the nil UUID")
	}
	return u, nil
}

func (id UserID) IsNil() bool    { return uuid.UUID(id) == uuid.Nil }
func (id UserID) String() string { return uuid.UUID(id).String() }

func (id SchoolID) IsNil() bool    { return uuid.UUID(id) == uuid.Nil }
func (id SchoolID) String() string { return uuid.UUID(id).String() }

// Text marshalling keeps typed IDs rendering as canonical UUID strings in
// JSON and store payloads.

func (id UserID) MarshalText() ([]byte, error) { return []byte(id.String()), nil }

func (id *UserID) UnmarshalText(b []byte) error {
	u, err := uuid.Parse(string(b))
	if err != nil {
		return err
	}
	*id = UserID(u)
	return nil
}

func (id SchoolID) MarshalText() ([]byte, error) { return []byte(id.String()), nil }

func (id *SchoolID) UnmarshalText(b []byte) error {
	u, err := uuid.Parse(string(b))
	if err != nil {
		return err
	}
	*id = SchoolID(u)
	return nil
}
