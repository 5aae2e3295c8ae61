// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 ldapgate Contributors

//go:build integration

package postgres_test

import (
	"context"
	"time"

	. "github.com/onsi/ginkgo/v2" //nolint:revive // ginkgo convention
	. "github.com/onsi/gomega"    //nolint:revive // gomega convention
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/ldapgate/ldapgate/internal/store"
	"github.com/ldapgate/ldapgate/pkg/auth"
	"github.com/ldapgate/ldapgate/pkg/auth/postgres"
)

// setupPostgresContainer starts a PostgreSQL container, runs the schema
// migrations, and returns a ready credential store.
func setupPostgresContainer() (*postgres.Store, func(), error) {
	ctx := context.Background()

	container, err := tcpostgres.Run(ctx,
		"postgres:16-alpine",
		tcpostgres.WithDatabase("ldapgate_test"),
		tcpostgres.WithUsername("ldapgate"),
		tcpostgres.WithPassword("ldapgate"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	if err != nil {
		return nil, nil, err
	}

	connStr, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		return nil, nil, err
	}

	migrator, err := store.NewMigrator(connStr)
	if err != nil {
		return nil, nil, err
	}
	if err := migrator.Up(); err != nil {
		return nil, nil, err
	}
	if err := migrator.Close(); err != nil {
		return nil, nil, err
	}

	pool, err := store.NewPool(ctx, connStr)
	if err != nil {
		return nil, nil, err
	}

	cleanup := func() {
		pool.Close()
		_ = container.Terminate(ctx)
	}

	return postgres.NewStore(pool), cleanup, nil
}

var _ = Describe("Store", func() {
	var credStore *postgres.Store
	var cleanup func()

	BeforeEach(func() {
		var err error
		credStore, cleanup, err = setupPostgresContainer()
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		cleanup()
	})

	Describe("Update and Search", func() {
		It("round-trips a record", func() {
			ctx := context.Background()
			err := credStore.Update(ctx, auth.UserRecord{
				ID:            "alice",
				Group:         auth.MemberGroup,
				Email:         "alice@example.net",
				FirstName:     "Alice",
				LastName:      "Atkins",
				ProfileFields: map[string]string{"firstname": "Alice"},
			})
			Expect(err).NotTo(HaveOccurred())

			rec, err := credStore.Search(ctx, "alice")
			Expect(err).NotTo(HaveOccurred())
			Expect(rec.ID).To(Equal("alice"))
			Expect(rec.Email).To(Equal("alice@example.net"))
			Expect(rec.ProfileFields).To(HaveKeyWithValue("firstname", "Alice"))
			Expect(rec.LoginHash).To(BeEmpty())
		})

		It("returns ErrNotFound for unknown users", func() {
			_, err := credStore.Search(context.Background(), "nobody")
			Expect(err).To(MatchError(auth.ErrNotFound))
		})

		It("preserves the login hash across profile updates", func() {
			ctx := context.Background()
			Expect(credStore.Update(ctx, auth.UserRecord{ID: "alice"})).To(Succeed())

			hash, err := credStore.CreateHash(ctx, "alice", false)
			Expect(err).NotTo(HaveOccurred())

			Expect(credStore.Update(ctx, auth.UserRecord{ID: "alice", Email: "new@example.net"})).To(Succeed())

			rec, err := credStore.Search(ctx, "alice")
			Expect(err).NotTo(HaveOccurred())
			Expect(rec.LoginHash).To(Equal(hash))
			Expect(rec.Email).To(Equal("new@example.net"))
		})
	})

	Describe("CreateHash", func() {
		It("fails for unknown users without create-when-missing", func() {
			_, err := credStore.CreateHash(context.Background(), "nobody", false)
			Expect(err).To(MatchError(auth.ErrNotFound))

			_, err = credStore.Search(context.Background(), "nobody")
			Expect(err).To(MatchError(auth.ErrNotFound), "no record should be written")
		})

		It("creates a record when asked to", func() {
			ctx := context.Background()
			hash, err := credStore.CreateHash(ctx, "nobody", true)
			Expect(err).NotTo(HaveOccurred())
			Expect(hash).To(HaveLen(64))

			rec, err := credStore.Search(ctx, "nobody")
			Expect(err).NotTo(HaveOccurred())
			Expect(rec.LoginHash).To(Equal(hash))
		})

		It("rotates the hash on every call", func() {
			ctx := context.Background()
			first, err := credStore.CreateHash(ctx, "alice", true)
			Expect(err).NotTo(HaveOccurred())

			second, err := credStore.CreateHash(ctx, "alice", false)
			Expect(err).NotTo(HaveOccurred())
			Expect(second).NotTo(Equal(first))
		})
	})

	Describe("ClearHash", func() {
		It("clears only a matching hash", func() {
			ctx := context.Background()
			hash, err := credStore.CreateHash(ctx, "alice", true)
			Expect(err).NotTo(HaveOccurred())

			Expect(credStore.ClearHash(ctx, "alice", "stale")).To(Succeed())
			rec, err := credStore.Search(ctx, "alice")
			Expect(err).NotTo(HaveOccurred())
			Expect(rec.LoginHash).To(Equal(hash), "stale hash must not clear the current one")

			Expect(credStore.ClearHash(ctx, "alice", hash)).To(Succeed())
			rec, err = credStore.Search(ctx, "alice")
			Expect(err).NotTo(HaveOccurred())
			Expect(rec.LoginHash).To(BeEmpty())
		})
	})
})
