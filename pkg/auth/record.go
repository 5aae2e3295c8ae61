// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 ldapgate Contributors

package auth

import "strings"

// Group identifiers.
const (
	// GroupDriver tags the group pairing returned by Driver.Groups,
	// modeling the one-user-one-group scheme.
	GroupDriver = "ldapgroup"

	// GuestID is the id of the guest identity.
	GuestID = "guest"

	// GuestGroup is the group of the guest identity.
	GuestGroup = "0"

	// MemberGroup is the group assigned to directory-backed users.
	MemberGroup = "1"
)

// UserRecord represents a directory-backed identity or the guest
// identity. LoginHash is set only after a successful login; it is empty
// on logout, failed verification, and freshly resolved records.
type UserRecord struct {
	ID        string
	Group     string
	LoginHash string
	Email     string
	LastName  string
	FirstName string

	// ProfileFields is the open-ended profile extension point.
	ProfileFields map[string]string
}

// IsGuest reports whether the record is the guest identity.
func (u UserRecord) IsGuest() bool {
	return u.ID == GuestID
}

// ScreenName renders the record's display name.
func (u UserRecord) ScreenName() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

// Guest returns the singleton guest identity. Guests are never
// persisted through a login hash.
func Guest() UserRecord {
	return UserRecord{
		ID:        GuestID,
		Group:     GuestGroup,
		Email:     "john@example.net",
		LastName:  "Doe",
		FirstName: "John",
	}
}

// GroupPair pairs the group driver tag with a group id.
type GroupPair struct {
	Driver string
	ID     string
}
