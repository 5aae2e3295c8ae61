// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 ldapgate Contributors

package auth

import (
	"context"
	"errors"
	"log/slog"

	"github.com/samber/oops"

	"github.com/ldapgate/ldapgate/pkg/errutil"
)

// CredentialValidator verifies a username/password pair and returns the
// resulting user record. *Validator satisfies it.
type CredentialValidator interface {
	Validate(ctx context.Context, username, password string) (UserRecord, error)
}

// DriverConfig carries the driver's behavior switches.
type DriverConfig struct {
	// GuestLogin selects the fallback identity when no valid session
	// exists: the guest record when true, no identity when false.
	GuestLogin bool

	// CreateWhenMissing lets CreateLoginHash create a store record for
	// an unknown user instead of failing with ErrNotFound.
	CreateWhenMissing bool

	Logger *slog.Logger
}

// Driver ties credential validation, the credential store, and a session
// carrier into the login lifecycle. The carrier is passed into each
// operation; the driver itself only caches the resolved user record, so
// one driver serves one session (or request) at a time. It is not safe
// for concurrent use.
type Driver struct {
	validator CredentialValidator
	store     CredentialStore
	cfg       DriverConfig
	logger    *slog.Logger

	// user is the cached identity for this session. nil means the state
	// is unknown and the next PerformCheck refetches from the store.
	user *UserRecord
}

// NewDriver wires a driver. The validator may be nil for hosts that only
// need ForceLogin and session checks; the store may be nil, which
// disables hash persistence and makes every session check fail over to
// the fallback identity.
func NewDriver(validator CredentialValidator, store CredentialStore, cfg DriverConfig) *Driver {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Driver{
		validator: validator,
		store:     store,
		cfg:       cfg,
		logger:    logger,
	}
}

// PerformCheck reports whether sess carries a valid login. It compares
// the carrier's login hash against the stored one; any mismatch falls
// back to the guest identity (or none) and reports false.
func (d *Driver) PerformCheck(ctx context.Context, sess SessionCarrier) bool {
	username := sess.Get(ctx, SessionUsernameKey)
	loginHash := sess.Get(ctx, SessionLoginHashKey)

	if username == "" || loginHash == "" {
		d.fallback(ctx, sess)
		recordSessionCheck(d.checkFailureResult())
		return false
	}

	// Refetch unless the cached record already belongs to this username.
	// A cached guest is kept as-is; the hash check below rejects it.
	if d.user == nil || (d.user.ID != username && !d.user.IsGuest()) {
		if d.store == nil {
			d.fallback(ctx, sess)
			recordSessionCheck(d.checkFailureResult())
			return false
		}
		rec, err := d.store.Search(ctx, username)
		if err != nil {
			if !errors.Is(err, ErrNotFound) {
				errutil.LogError(d.logger.With(slog.String("username", username)),
					"credential store lookup failed", err)
				recordSessionCheck(ResultError)
			} else {
				recordSessionCheck(d.checkFailureResult())
			}
			d.fallback(ctx, sess)
			return false
		}
		d.user = &rec
	}

	if !d.user.IsGuest() && d.user.LoginHash != "" && d.user.LoginHash == loginHash {
		recordSessionCheck(ResultSuccess)
		return true
	}

	d.fallback(ctx, sess)
	recordSessionCheck(d.checkFailureResult())
	return false
}

// checkFailureResult is the session-check metric label for a failed
// check: "guest" when the session falls over to the guest identity,
// "failure" when it is left with none.
func (d *Driver) checkFailureResult() string {
	if d.cfg.GuestLogin {
		return ResultGuest
	}
	return ResultFailure
}

// Login validates the credentials, binds sess to the user, and issues a
// fresh login hash. The session identity is rotated so a pre-login
// session id cannot be replayed. Verification failures return
// ErrInvalidCredentials and leave the session on the fallback identity.
func (d *Driver) Login(ctx context.Context, sess SessionCarrier, username, password string) error {
	if d.validator == nil {
		return errors.New("auth: Login requires a validator")
	}

	rec, err := d.validator.Validate(ctx, username, password)
	if err != nil {
		d.fallback(ctx, sess)
		if errors.Is(err, ErrInvalidCredentials) {
			recordLoginAttempt(ResultFailure)
		} else {
			recordLoginAttempt(ResultError)
		}
		return err
	}
	d.user = &rec

	sess.Set(ctx, SessionUsernameKey, rec.ID)
	hash, err := d.CreateLoginHash(ctx)
	if err != nil {
		d.fallback(ctx, sess)
		recordLoginAttempt(ResultError)
		return err
	}
	sess.Set(ctx, SessionLoginHashKey, hash)

	if err := sess.Rotate(ctx); err != nil {
		return oops.
			Code("SESSION_ROTATE_FAILED").
			With("username", rec.ID).
			Wrapf(err, "rotating session after login")
	}

	d.logger.InfoContext(ctx, "user logged in", slog.String("username", rec.ID))
	recordLoginAttempt(ResultSuccess)
	return nil
}

// ForceLogin binds sess to an existing store record without a password
// check. An empty or unknown id fails with ErrNotFound; the unknown
// case additionally resets the session to the fallback identity.
func (d *Driver) ForceLogin(ctx context.Context, sess SessionCarrier, id string) error {
	if id == "" {
		return ErrNotFound
	}
	if d.store == nil {
		return ErrNoStore
	}

	rec, err := d.store.Search(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			d.fallback(ctx, sess)
			return ErrNotFound
		}
		return err
	}
	d.user = &rec

	sess.Set(ctx, SessionUsernameKey, rec.ID)
	hash, err := d.CreateLoginHash(ctx)
	if err != nil {
		d.fallback(ctx, sess)
		return err
	}
	sess.Set(ctx, SessionLoginHashKey, hash)

	if err := sess.Rotate(ctx); err != nil {
		return oops.
			Code("SESSION_ROTATE_FAILED").
			With("username", rec.ID).
			Wrapf(err, "rotating session after forced login")
	}

	d.logger.InfoContext(ctx, "user force-logged in", slog.String("username", rec.ID))
	return nil
}

// Logout clears the stored login hash for the current user and resets
// sess to the fallback identity. Logging out an already-logged-out
// session is a no-op; Logout never fails the caller for store errors.
func (d *Driver) Logout(ctx context.Context, sess SessionCarrier) {
	if d.user != nil && !d.user.IsGuest() && d.user.LoginHash != "" && d.store != nil {
		if err := d.store.ClearHash(ctx, d.user.ID, d.user.LoginHash); err != nil {
			errutil.LogError(d.logger.With(slog.String("username", d.user.ID)),
				"clearing login hash failed", err)
		}
	}
	d.fallback(ctx, sess)
	recordLogout()
}

// CreateLoginHash issues a fresh hash for the current user via the store
// and caches it on the record. It does not touch the session carrier;
// the login paths do that.
func (d *Driver) CreateLoginHash(ctx context.Context) (string, error) {
	if d.store == nil {
		return "", ErrNoStore
	}
	if d.user == nil || d.user.IsGuest() {
		return "", ErrNotLoggedIn
	}
	hash, err := d.store.CreateHash(ctx, d.user.ID, d.cfg.CreateWhenMissing)
	if err != nil {
		return "", err
	}
	d.user.LoginHash = hash
	return hash, nil
}

// fallback resets the session to the configured no-login identity and
// removes the auth keys from the carrier.
func (d *Driver) fallback(ctx context.Context, sess SessionCarrier) {
	if d.cfg.GuestLogin {
		guest := Guest()
		d.user = &guest
	} else {
		d.user = nil
	}
	sess.Delete(ctx, SessionUsernameKey)
	sess.Delete(ctx, SessionLoginHashKey)
}

// UserID returns the current user id. The guest identity counts as a
// user; ok is false only when no identity is loaded at all.
func (d *Driver) UserID() (string, bool) {
	if d.user == nil {
		return "", false
	}
	return d.user.ID, true
}

// Groups returns the group memberships of the current user.
func (d *Driver) Groups() ([]GroupPair, bool) {
	if d.user == nil {
		return nil, false
	}
	return []GroupPair{{Driver: GroupDriver, ID: d.user.Group}}, true
}

// Email returns the current user's email address.
func (d *Driver) Email() (string, bool) {
	if d.user == nil {
		return "", false
	}
	return d.user.Email, true
}

// ScreenName returns the current user's display name.
func (d *Driver) ScreenName() (string, bool) {
	if d.user == nil {
		return "", false
	}
	return d.user.ScreenName(), true
}

// ProfileFields returns a copy of the current user's profile fields.
func (d *Driver) ProfileFields() (map[string]string, bool) {
	if d.user == nil {
		return nil, false
	}
	fields := make(map[string]string, len(d.user.ProfileFields))
	for k, v := range d.user.ProfileFields {
		fields[k] = v
	}
	return fields, true
}
