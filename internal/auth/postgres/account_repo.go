// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 drgz Accounts Contributors

// Package postgres implements auth storage on PostgreSQL.
package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/samber/oops"

	"github.com/drgz/accounts/internal/auth"
)

// Names of the partial unique indexes created by the users migration.
const (
	emailUniqueIndex    = "users_email_key"
	usernameUniqueIndex = "users_username_key"
)

// accountColumns is the column list read by every account query.
const accountColumns = `
	id, username, email, phone, first_name, last_name, city, state, country,
	password, email_verified, phone_verified, deleted, is_staff, is_superuser,
	created_at, updated_at`

// Pool is the subset of pgxpool.Pool used by the repository.
// pgxmock.PgxPoolIface satisfies it in tests.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// AccountRepository implements auth.AccountStore using PostgreSQL.
// Soft-deleted rows are invisible to every method.
type AccountRepository struct {
	pool Pool
}

// NewAccountRepository creates a new AccountRepository.
func NewAccountRepository(pool Pool) *AccountRepository {
	return &AccountRepository{pool: pool}
}

// FindByID retrieves an account by id.
func (r *AccountRepository) FindByID(ctx context.Context, id int64) (*auth.Account, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+accountColumns+`
		FROM users
		WHERE id = $1 AND NOT deleted
	`, id)

	account, err := scanAccount(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code(auth.CodeAccountNotFound).
			With("id", id).
			Wrap(auth.ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("ACCOUNT_GET_BY_ID_FAILED").
			With("operation", "get account by id").
			With("id", id).
			Wrap(err)
	}
	return account, nil
}

// FindByEmail retrieves an account by exact email.
func (r *AccountRepository) FindByEmail(ctx context.Context, email string) (*auth.Account, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+accountColumns+`
		FROM users
		WHERE email = $1 AND NOT deleted
	`, email)

	account, err := scanAccount(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code(auth.CodeAccountNotFound).
			With("email", email).
			Wrap(auth.ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("ACCOUNT_GET_BY_EMAIL_FAILED").
			With("operation", "get account by email").
			With("email", email).
			Wrap(err)
	}
	return account, nil
}

// FindByUsername retrieves an account by exact username.
func (r *AccountRepository) FindByUsername(ctx context.Context, username string) (*auth.Account, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+accountColumns+`
		FROM users
		WHERE username = $1 AND NOT deleted
	`, username)

	account, err := scanAccount(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code(auth.CodeAccountNotFound).
			With("username", username).
			Wrap(auth.ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("ACCOUNT_GET_BY_USERNAME_FAILED").
			With("operation", "get account by username").
			With("username", username).
			Wrap(err)
	}
	return account, nil
}

// Insert stores a new unverified account and returns its id.
// Unique index violations are reported as auth.ErrEmailTaken or auth.ErrUsernameTaken.
func (r *AccountRepository) Insert(ctx context.Context, account auth.NewAccount) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx, `
		INSERT INTO users (username, email, password)
		VALUES ($1, $2, $3)
		RETURNING id
	`, account.Username, account.Email, account.PasswordHash).Scan(&id)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			switch pgErr.ConstraintName {
			case emailUniqueIndex:
				return 0, oops.Code("ACCOUNT_EMAIL_TAKEN").
					With("email", account.Email).
					Wrap(auth.ErrEmailTaken)
			case usernameUniqueIndex:
				return 0, oops.Code("ACCOUNT_USERNAME_TAKEN").
					With("username", account.Username).
					Wrap(auth.ErrUsernameTaken)
			}
		}
		return 0, oops.Code("ACCOUNT_INSERT_FAILED").
			With("operation", "insert account").
			With("username", account.Username).
			Wrap(err)
	}
	return id, nil
}

// SetEmailVerified marks the account with email as verified.
// No matching row is not an error.
func (r *AccountRepository) SetEmailVerified(ctx context.Context, email string) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE users SET email_verified = true, updated_at = now()
		WHERE email = $1 AND NOT deleted
	`, email)
	if err != nil {
		return oops.Code("ACCOUNT_VERIFY_EMAIL_FAILED").
			With("operation", "set email verified").
			With("email", email).
			Wrap(err)
	}
	return nil
}

// UpdatePasswordHash replaces the password hash of account id.
func (r *AccountRepository) UpdatePasswordHash(ctx context.Context, id int64, hash string) error {
	result, err := r.pool.Exec(ctx, `
		UPDATE users SET password = $1, updated_at = now()
		WHERE id = $2 AND NOT deleted
	`, hash, id)
	if err != nil {
		return oops.Code("ACCOUNT_UPDATE_PASSWORD_FAILED").
			With("operation", "update password").
			With("id", id).
			Wrap(err)
	}
	if result.RowsAffected() == 0 {
		return oops.Code(auth.CodeAccountNotFound).
			With("id", id).
			Wrap(auth.ErrNotFound)
	}
	return nil
}

// ListAll returns every live account ordered by id.
func (r *AccountRepository) ListAll(ctx context.Context) ([]*auth.Account, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+accountColumns+`
		FROM users
		WHERE NOT deleted
		ORDER BY id
	`)
	if err != nil {
		return nil, oops.Code("ACCOUNT_LIST_FAILED").
			With("operation", "list accounts").
			Wrap(err)
	}
	defer rows.Close()

	accounts := make([]*auth.Account, 0)
	for rows.Next() {
		account, err := scanAccount(rows)
		if err != nil {
			return nil, oops.Code("ACCOUNT_LIST_FAILED").
				With("operation", "scan account row").
				Wrap(err)
		}
		accounts = append(accounts, account)
	}
	if err := rows.Err(); err != nil {
		return nil, oops.Code("ACCOUNT_LIST_FAILED").
			With("operation", "iterate accounts").
			Wrap(err)
	}
	return accounts, nil
}

// scanAccount scans a single row into an Account.
// Callers are responsible for handling pgx.ErrNoRows.
func scanAccount(row pgx.Row) (*auth.Account, error) {
	var a auth.Account
	err := row.Scan(
		&a.ID,
		&a.Username,
		&a.Email,
		&a.Phone,
		&a.FirstName,
		&a.LastName,
		&a.City,
		&a.State,
		&a.Country,
		&a.PasswordHash,
		&a.EmailVerified,
		&a.PhoneVerified,
		&a.Deleted,
		&a.IsStaff,
		&a.IsSuperuser,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		return nil, err //nolint:wrapcheck // callers wrap with operation context
	}
	return &a, nil
}

var _ auth.AccountStore = (*AccountRepository)(nil)
