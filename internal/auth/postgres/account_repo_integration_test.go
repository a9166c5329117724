// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 drgz Accounts Contributors

//go:build integration

package postgres_test

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	. "github.com/onsi/ginkgo/v2" //nolint:revive // ginkgo convention
	. "github.com/onsi/gomega"    //nolint:revive // gomega convention
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/drgz/accounts/internal/auth"
	"github.com/drgz/accounts/internal/auth/postgres"
	"github.com/drgz/accounts/internal/store"
)

var (
	pool      *pgxpool.Pool
	container *tcpostgres.PostgresContainer
)

var _ = BeforeSuite(func() {
	ctx := context.Background()

	var err error
	container, err = tcpostgres.Run(ctx,
		"postgres:16-alpine",
		tcpostgres.WithDatabase("accounts_test"),
		tcpostgres.WithUsername("accounts"),
		tcpostgres.WithPassword("accounts"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	Expect(err).NotTo(HaveOccurred())

	connStr, err := container.ConnectionString(ctx, "sslmode=disable")
	Expect(err).NotTo(HaveOccurred())

	migrator, err := store.NewMigrator(connStr)
	Expect(err).NotTo(HaveOccurred())
	Expect(migrator.Up()).To(Succeed())
	Expect(migrator.Close()).To(Succeed())

	pool, err = store.Connect(ctx, connStr)
	Expect(err).NotTo(HaveOccurred())
})

var _ = AfterSuite(func() {
	if pool != nil {
		pool.Close()
	}
	if container != nil {
		_ = container.Terminate(context.Background())
	}
})

var _ = Describe("AccountRepository", func() {
	var (
		ctx  context.Context
		repo *postgres.AccountRepository
	)

	BeforeEach(func() {
		ctx = context.Background()
		repo = postgres.NewAccountRepository(pool)
		_, err := pool.Exec(ctx, `TRUNCATE users RESTART IDENTITY`)
		Expect(err).NotTo(HaveOccurred())
	})

	insert := func(username, email string) int64 {
		id, err := repo.Insert(ctx, auth.NewAccount{Username: username, Email: email, PasswordHash: "hash"})
		Expect(err).NotTo(HaveOccurred())
		return id
	}

	Describe("Insert", func() {
		It("stores an unverified account with defaults", func() {
			id := insert("abc", "a@b.com")

			account, err := repo.FindByID(ctx, id)
			Expect(err).NotTo(HaveOccurred())
			Expect(account.Username).To(Equal("abc"))
			Expect(account.Email).To(Equal("a@b.com"))
			Expect(account.EmailVerified).To(BeFalse())
			Expect(account.IsStaff).To(BeFalse())
			Expect(account.Phone).To(BeNil())
			Expect(account.PasswordHash).NotTo(BeNil())
			Expect(*account.PasswordHash).To(Equal("hash"))
			Expect(account.CreatedAt).NotTo(BeZero())
		})

		It("reports a duplicate email", func() {
			insert("abc", "a@b.com")
			_, err := repo.Insert(ctx, auth.NewAccount{Username: "other", Email: "a@b.com", PasswordHash: "hash"})
			Expect(err).To(MatchError(auth.ErrEmailTaken))
		})

		It("reports a duplicate username", func() {
			insert("abc", "a@b.com")
			_, err := repo.Insert(ctx, auth.NewAccount{Username: "abc", Email: "c@d.com", PasswordHash: "hash"})
			Expect(err).To(MatchError(auth.ErrUsernameTaken))
		})

		It("allows reuse of a soft-deleted email and username", func() {
			id := insert("abc", "a@b.com")
			_, err := pool.Exec(ctx, `UPDATE users SET deleted = true WHERE id = $1`, id)
			Expect(err).NotTo(HaveOccurred())

			second := insert("abc", "a@b.com")
			Expect(second).NotTo(Equal(id))
		})
	})

	Describe("lookups", func() {
		It("finds by email and username", func() {
			id := insert("abc", "a@b.com")

			byEmail, err := repo.FindByEmail(ctx, "a@b.com")
			Expect(err).NotTo(HaveOccurred())
			Expect(byEmail.ID).To(Equal(id))

			byName, err := repo.FindByUsername(ctx, "abc")
			Expect(err).NotTo(HaveOccurred())
			Expect(byName.ID).To(Equal(id))
		})

		It("hides soft-deleted accounts", func() {
			id := insert("abc", "a@b.com")
			_, err := pool.Exec(ctx, `UPDATE users SET deleted = true WHERE id = $1`, id)
			Expect(err).NotTo(HaveOccurred())

			_, err = repo.FindByID(ctx, id)
			Expect(err).To(MatchError(auth.ErrNotFound))
			_, err = repo.FindByEmail(ctx, "a@b.com")
			Expect(err).To(MatchError(auth.ErrNotFound))

			accounts, err := repo.ListAll(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(accounts).To(BeEmpty())
		})
	})

	Describe("updates", func() {
		It("marks email verified", func() {
			id := insert("abc", "a@b.com")
			Expect(repo.SetEmailVerified(ctx, "a@b.com")).To(Succeed())

			account, err := repo.FindByID(ctx, id)
			Expect(err).NotTo(HaveOccurred())
			Expect(account.EmailVerified).To(BeTrue())
		})

		It("ignores verification of an unknown email", func() {
			Expect(repo.SetEmailVerified(ctx, "nobody@b.com")).To(Succeed())
		})

		It("replaces the password hash", func() {
			id := insert("abc", "a@b.com")
			Expect(repo.UpdatePasswordHash(ctx, id, "new-hash")).To(Succeed())

			account, err := repo.FindByID(ctx, id)
			Expect(err).NotTo(HaveOccurred())
			Expect(*account.PasswordHash).To(Equal("new-hash"))
		})

		It("returns not found for an unknown id", func() {
			Expect(repo.UpdatePasswordHash(ctx, 999, "x")).To(MatchError(auth.ErrNotFound))
		})
	})

	Describe("ListAll", func() {
		It("returns accounts ordered by id", func() {
			first := insert("abc", "a@b.com")
			second := insert("def", "d@e.com")

			accounts, err := repo.ListAll(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(accounts).To(HaveLen(2))
			Expect(accounts[0].ID).To(Equal(first))
			Expect(accounts[1].ID).To(Equal(second))
		})
	})
})
