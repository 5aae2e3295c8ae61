// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 ldapgate Contributors

// Package redis implements auth.CredentialStore backed by Redis hashes.
// Blank-import it to register the "redis" driver.
package redis

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/samber/oops"

	"github.com/ldapgate/ldapgate/pkg/auth"
)

func init() {
	auth.RegisterStore("redis", func(ctx context.Context, cfg auth.StoreConfig) (auth.CredentialStore, error) {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			return nil, oops.Code("STORE_UNREACHABLE").
				With("addr", cfg.RedisAddr).
				Wrapf(err, "pinging redis")
		}
		return NewStore(client), nil
	})
}

const keyPrefix = "ldapgate:cred:"

// createHashScript writes the new login hash and login time. When
// ARGV[3] is "0" the write is refused for keys that do not exist yet.
const createHashScript = `
if ARGV[3] == "0" and redis.call("EXISTS", KEYS[1]) == 0 then
  return 0
end
redis.call("HSET", KEYS[1], "login_hash", ARGV[1], "last_login", ARGV[2])
return 1
`

var createHashLua = redis.NewScript(createHashScript)

// clearHashScript removes the login hash only while it still equals
// ARGV[1].
const clearHashScript = `
if redis.call("HGET", KEYS[1], "login_hash") == ARGV[1] then
  redis.call("HDEL", KEYS[1], "login_hash")
  return 1
end
return 0
`

var clearHashLua = redis.NewScript(clearHashScript)

// Store implements auth.CredentialStore on Redis. Each user record is
// one hash under "ldapgate:cred:<id>". The check-and-set parts of the
// hash lifecycle run as Lua scripts so concurrent sessions cannot
// interleave between read and write.
type Store struct {
	client *redis.Client
}

var _ auth.CredentialStore = (*Store)(nil)

// NewStore creates a Store over an existing client.
func NewStore(client *redis.Client) *Store {
	return &Store{client: client}
}

func key(id string) string {
	return keyPrefix + id
}

// Search retrieves the record for the given user id.
func (s *Store) Search(ctx context.Context, id string) (auth.UserRecord, error) {
	fields, err := s.client.HGetAll(ctx, key(id)).Result()
	if err != nil {
		return auth.UserRecord{}, oops.Code("CREDENTIAL_SEARCH_FAILED").
			With("user_id", id).
			Wrap(err)
	}
	if len(fields) == 0 {
		return auth.UserRecord{}, oops.Code("CREDENTIAL_NOT_FOUND").
			With("user_id", id).
			Wrap(auth.ErrNotFound)
	}

	rec := auth.UserRecord{
		ID:        id,
		Group:     fields["group_id"],
		Email:     fields["email"],
		FirstName: fields["first_name"],
		LastName:  fields["last_name"],
		LoginHash: fields["login_hash"],
	}
	if raw := fields["profile_fields"]; raw != "" {
		if err := json.Unmarshal([]byte(raw), &rec.ProfileFields); err != nil {
			return auth.UserRecord{}, oops.Code("CREDENTIAL_SEARCH_FAILED").
				With("operation", "unmarshal profile fields").
				With("user_id", id).
				Wrap(err)
		}
	}
	return rec, nil
}

// Update upserts the record's profile fields. The login_hash field is
// not written, so the stored hash survives re-validation.
func (s *Store) Update(ctx context.Context, rec auth.UserRecord) error {
	fieldsJSON, err := json.Marshal(rec.ProfileFields)
	if err != nil {
		return oops.Code("CREDENTIAL_UPDATE_FAILED").
			With("operation", "marshal profile fields").
			With("user_id", rec.ID).
			Wrap(err)
	}

	err = s.client.HSet(ctx, key(rec.ID),
		"group_id", rec.Group,
		"email", rec.Email,
		"first_name", rec.FirstName,
		"last_name", rec.LastName,
		"profile_fields", string(fieldsJSON),
	).Err()
	if err != nil {
		return oops.Code("CREDENTIAL_UPDATE_FAILED").
			With("user_id", rec.ID).
			Wrap(err)
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

	create := "0"
	if createIfMissing {
		create = "1"
	}
	now := time.Now().UTC().Format(time.RFC3339)

	written, err := createHashLua.Run(ctx, s.client, []string{key(id)}, hash, now, create).Int64()
	if err != nil {
		return "", oops.Code("CREDENTIAL_HASH_FAILED").
			With("user_id", id).
			Wrap(err)
	}
	if written == 0 {
		return "", oops.Code("CREDENTIAL_NOT_FOUND").
			With("user_id", id).
			Wrap(auth.ErrNotFound)
	}
	return hash, nil
}

// ClearHash removes the stored hash only when it still matches oldHash.
// A mismatch means another session rotated it first; that is not an
// error.
func (s *Store) ClearHash(ctx context.Context, id, oldHash string) error {
	err := clearHashLua.Run(ctx, s.client, []string{key(id)}, oldHash).Err()
	if err != nil {
		return oops.Code("CREDENTIAL_CLEAR_FAILED").
			With("user_id", id).
			Wrap(err)
	}
	return nil
}
