// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 ldapgate Contributors

// Package postgres implements auth.CredentialStore backed by PostgreSQL.
// Blank-import it to register the "postgres" driver.
package postgres

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/samber/oops"

	"github.com/ldapgate/ldapgate/internal/store"
	"github.com/ldapgate/ldapgate/pkg/auth"
)

func init() {
	auth.RegisterStore("postgres", func(ctx context.Context, cfg auth.StoreConfig) (auth.CredentialStore, error) {
		pool, err := store.NewPool(ctx, cfg.DSN)
		if err != nil {
			return nil, err
		}
		return NewStore(pool), nil
	})
}

// poolIface abstracts pgxpool.Pool so tests can substitute pgxmock.
type poolIface interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store implements auth.CredentialStore on the credentials table.
type Store struct {
	pool poolIface
}

var _ auth.CredentialStore = (*Store)(nil)

// NewStore creates a Store over an existing connection pool.
func NewStore(pool poolIface) *Store {
	return &Store{pool: pool}
}

// Search retrieves the record for the given user id.
func (s *Store) Search(ctx context.Context, id string) (auth.UserRecord, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT user_id, group_id, email, first_name, last_name, profile_fields, COALESCE(login_hash, '')
		FROM credentials
		WHERE user_id = $1
	`, id)

	var rec auth.UserRecord
	var fieldsJSON []byte
	err := row.Scan(&rec.ID, &rec.Group, &rec.Email, &rec.FirstName, &rec.LastName, &fieldsJSON, &rec.LoginHash)
	if errors.Is(err, pgx.ErrNoRows) {
		return auth.UserRecord{}, oops.Code("CREDENTIAL_NOT_FOUND").
			With("user_id", id).
			Wrap(auth.ErrNotFound)
	}
	if err != nil {
		return auth.UserRecord{}, wrapTableError(err, "CREDENTIAL_SEARCH_FAILED", id)
	}

	if len(fieldsJSON) > 0 {
		if err := json.Unmarshal(fieldsJSON, &rec.ProfileFields); err != nil {
			return auth.UserRecord{}, oops.Code("CREDENTIAL_SEARCH_FAILED").
				With("operation", "unmarshal profile fields").
				With("user_id", id).
				Wrap(err)
		}
	}
	return rec, nil
}

// Update upserts the record's profile columns. The stored login hash and
// last login are left alone.
func (s *Store) Update(ctx context.Context, rec auth.UserRecord) error {
	fieldsJSON, err := json.Marshal(rec.ProfileFields)
	if err != nil {
		return oops.Code("CREDENTIAL_UPDATE_FAILED").
			With("operation", "marshal profile fields").
			With("user_id", rec.ID).
			Wrap(err)
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO credentials (user_id, group_id, email, first_name, last_name, profile_fields)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (user_id) DO UPDATE SET
			group_id = $2,
			email = $3,
			first_name = $4,
			last_name = $5,
			profile_fields = $6,
			updated_at = now()
	`, rec.ID, rec.Group, rec.Email, rec.FirstName, rec.LastName, fieldsJSON)
	if err != nil {
		return wrapTableError(err, "CREDENTIAL_UPDATE_FAILED", rec.ID)
	}
	return nil
}

// CreateHash issues a fresh login hash and records the login time. With
// createIfMissing false, an unknown user returns auth.ErrNotFound and
// nothing is written.
func (s *Store) CreateHash(ctx context.Context, id string, createIfMissing bool) (string, error) {
	hash, err := auth.GenerateLoginHash()
	if err != nil {
		return "", err
	}

	if createIfMissing {
		_, err = s.pool.Exec(ctx, `
			INSERT INTO credentials (user_id, login_hash, last_login)
			VALUES ($1, $2, now())
			ON CONFLICT (user_id) DO UPDATE SET
				login_hash = $2,
				last_login = now(),
				updated_at = now()
		`, id, hash)
		if err != nil {
			return "", wrapTableError(err, "CREDENTIAL_HASH_FAILED", id)
		}
		return hash, nil
	}

	tag, err := s.pool.Exec(ctx, `
		UPDATE credentials
		SET login_hash = $2, last_login = now(), updated_at = now()
		WHERE user_id = $1
	`, id, hash)
	if err != nil {
		return "", wrapTableError(err, "CREDENTIAL_HASH_FAILED", id)
	}
	if tag.RowsAffected() == 0 {
		return "", oops.Code("CREDENTIAL_NOT_FOUND").
			With("user_id", id).
			Wrap(auth.ErrNotFound)
	}
	return hash, nil
}

// ClearHash removes the stored hash only when it still matches oldHash.
// Zero affected rows means another session rotated it first; that is not
// an error.
func (s *Store) ClearHash(ctx context.Context, id, oldHash string) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE credentials
		SET login_hash = NULL, updated_at = now()
		WHERE user_id = $1 AND login_hash = $2
	`, id, oldHash)
	if err != nil {
		return wrapTableError(err, "CREDENTIAL_CLEAR_FAILED", id)
	}
	return nil
}

// wrapTableError adds a migration hint when the credentials table does
// not exist, a common operator mistake on first deployment.
func wrapTableError(err error, code, id string) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UndefinedTable {
		return oops.Code("STORE_NOT_MIGRATED").
			With("user_id", id).
			With("hint", "run 'ldapgate migrate' to create the schema").
			Wrap(err)
	}
	return oops.Code(code).With("user_id", id).Wrap(err)
}
