// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 ldapgate Contributors

package auth

import "errors"

var (
	// ErrNotFound is returned by credential stores when no record exists
	// for the requested user id.
	ErrNotFound = errors.New("credential record not found")

	// ErrInvalidCredentials is returned by Validate for every expected
	// verification failure: empty input, unknown username, and wrong
	// password are deliberately indistinguishable.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrNoStore is returned when a login hash is requested but no
	// credential store is configured. This is an ordering error in the
	// host, not a runtime condition.
	ErrNoStore = errors.New("no credential store configured")

	// ErrNotLoggedIn is returned when a login hash is requested without
	// an active user record.
	ErrNotLoggedIn = errors.New("user not logged in, can't create login hash")
)
