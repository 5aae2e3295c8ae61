// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 ldapgate Contributors

package auth

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/samber/oops"

	"github.com/ldapgate/ldapgate/internal/logging"
	"github.com/ldapgate/ldapgate/pkg/directory"
)

// EntryResolver locates the directory entry for a username.
// *directory.Resolver satisfies it.
type EntryResolver interface {
	Resolve(username string) (*directory.Entry, error)
}

// UserBinder verifies a password by binding as the located entry.
// *directory.Client satisfies it.
type UserBinder interface {
	Bind(dn, password string) (bool, error)
	// Unbind releases the user bind. It is best-effort; implementations
	// log failures rather than return them.
	Unbind()
}

// Validator checks a username/password pair against the directory and
// upserts the resulting user record into the credential store.
type Validator struct {
	resolver EntryResolver
	binder   UserBinder
	store    CredentialStore
	logger   *slog.Logger
}

// NewValidator wires a validator. The store may be nil, in which case
// validated records are not persisted.
func NewValidator(resolver EntryResolver, binder UserBinder, store CredentialStore, logger *slog.Logger) (*Validator, error) {
	if resolver == nil {
		return nil, errors.New("auth: NewValidator requires a resolver")
	}
	if binder == nil {
		return nil, errors.New("auth: NewValidator requires a binder")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Validator{
		resolver: resolver,
		binder:   binder,
		store:    store,
		logger:   logger,
	}, nil
}

// Validate verifies the credentials and returns the member record built
// from the directory entry. Every expected failure mode returns
// ErrInvalidCredentials so callers cannot distinguish an unknown
// username from a wrong password.
func (v *Validator) Validate(ctx context.Context, username, password string) (UserRecord, error) {
	username = strings.TrimSpace(username)
	password = strings.TrimSpace(password)
	if username == "" || password == "" {
		// Reject before touching the directory: an empty password would
		// otherwise turn the user bind into an anonymous bind.
		return UserRecord{}, ErrInvalidCredentials
	}

	v.logger.DebugContext(ctx, "validating credentials",
		slog.String("username", username),
		slog.String("password", logging.MaskSecret(password)))

	entry, err := v.resolver.Resolve(username)
	if err != nil {
		if errors.Is(err, directory.ErrNoSuchUser) {
			return UserRecord{}, ErrInvalidCredentials
		}
		return UserRecord{}, err
	}

	ok, err := v.binder.Bind(entry.DN, password)
	if err != nil {
		return UserRecord{}, err
	}
	// Release the user bind either way; later searches rebind as the
	// service account.
	defer v.binder.Unbind()
	if !ok {
		v.logger.DebugContext(ctx, "password verification failed",
			slog.String("username", username))
		return UserRecord{}, ErrInvalidCredentials
	}

	rec := UserRecord{
		ID:        username,
		Group:     MemberGroup,
		Email:     entry.Email,
		FirstName: entry.FirstName,
		LastName:  entry.LastName,
		ProfileFields: map[string]string{
			"firstname": entry.FirstName,
		},
	}

	if v.store != nil {
		if err := v.store.Update(ctx, rec); err != nil {
			return UserRecord{}, oops.
				Code("STORE_UPDATE_FAILED").
				With("username", username).
				Wrapf(err, "persisting user record")
		}
	}

	v.logger.InfoContext(ctx, "credentials validated",
		slog.String("username", username))
	return rec, nil
}
