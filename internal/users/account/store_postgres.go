// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package account (Postgres) implements the storage layer for accounts.

# Schema Table Mapping
  - users.account: Identity, credentials, authority and channel status.
  - users.loginlog: One row per account holding the JSON login history.
*/
package account

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/taibuivan/minitube/internal/platform/database"
	"github.com/taibuivan/minitube/internal/platform/database/schema"
	"github.com/taibuivan/minitube/internal/platform/dberr"
	"github.com/taibuivan/minitube/internal/platform/sec"
	"github.com/taibuivan/minitube/internal/users/verification"
	"github.com/taibuivan/minitube/pkg/uuid"
)

// Unique constraints of users.account, as named by the migrations.
const (
	constraintEmail = "account_emailid_key"
	constraintPhone = "account_phone_key"
)

// # Repository Implementations

// PostgresRepository implements [Repository] using pgx.
type PostgresRepository struct {
	pool database.Querier
}

// NewRepository creates a new Postgres implementation for accounts.
func NewRepository(pool database.Querier) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

// PostgresLoginLogRepository implements [LoginLogRepository] using pgx.
type PostgresLoginLogRepository struct {
	pool database.Querier
}

// NewLoginLogRepository creates a new Postgres implementation for the login history.
func NewLoginLogRepository(pool database.Querier) *PostgresLoginLogRepository {
	return &PostgresLoginLogRepository{pool: pool}
}

// # Repository Methods

var accountColumns = strings.Join(schema.UserAccount.Columns(), ", ")

func scanAccount(row pgx.Row) (*Account, error) {
	account := &Account{}
	var authority string
	err := row.Scan(
		&account.ID,
		&account.UID,
		&account.FirstName,
		&account.LastName,
		&account.Email,
		&account.CountryCode,
		&account.Phone,
		&account.Password,
		&authority,
		&account.EmailStatus,
		&account.PhoneStatus,
		&account.ProvisionedAt,
		&account.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	parsed, err := sec.ParseAuthority(authority)
	if err != nil {
		return nil, fmt.Errorf("postgres_account_repo_authority_invalid: %w", err)
	}
	account.Authority = parsed

	return account, nil
}

/*
Create inserts a row into users.account.

Description: A unique violation is reported as the domain error of the
identifier it collided on.

Parameters:
  - context: context.Context
  - account: *Account

Returns:
  - error: ErrEmailTaken, ErrPhoneTaken or execution failures
*/
func (repository *PostgresRepository) Create(context context.Context, account *Account) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (%s)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		schema.UserAccount.Table, accountColumns,
	)

	_, err := database.Conn(context, repository.pool).Exec(context, query,
		account.ID,
		account.UID,
		account.FirstName,
		account.LastName,
		account.Email,
		account.CountryCode,
		account.Phone,
		account.Password,
		account.Authority.String(),
		account.EmailStatus,
		account.PhoneStatus,
		account.ProvisionedAt,
		account.CreatedAt,
	)

	if err != nil {
		if dberr.IsUniqueViolation(err) {
			switch dberr.ConstraintName(err) {
			case constraintEmail:
				return ErrEmailTaken
			case constraintPhone:
				return ErrPhoneTaken
			}
		}
		return fmt.Errorf("postgres_account_repo_create_failed: %w", dberr.Wrap(err, "Account"))
	}

	return nil
}

// FindByID retrieves an account by its internal ID.
func (repository *PostgresRepository) FindByID(context context.Context, id string) (*Account, error) {
	return repository.findOne(context, schema.UserAccount.ID, id)
}

// FindByEmail retrieves an account by its email.
func (repository *PostgresRepository) FindByEmail(context context.Context, email string) (*Account, error) {
	return repository.findOne(context, schema.UserAccount.Email, email)
}

// FindByPhone retrieves an account by its phone.
func (repository *PostgresRepository) FindByPhone(context context.Context, phone string) (*Account, error) {
	return repository.findOne(context, schema.UserAccount.Phone, phone)
}

func (repository *PostgresRepository) findOne(context context.Context, column, value string) (*Account, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE %s = $1`, accountColumns, schema.UserAccount.Table, column)

	account, err := scanAccount(database.Conn(context, repository.pool).QueryRow(context, query, value))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("postgres_account_repo_find_failed: %w", err)
	}

	return account, nil
}

// SetChannelStatus overwrites the emailstatus or phonestatus column.
func (repository *PostgresRepository) SetChannelStatus(context context.Context, id string, channel verification.Channel, status verification.Status) error {
	column := schema.UserAccount.EmailStatus
	if channel == verification.ChannelPhone {
		column = schema.UserAccount.PhoneStatus
	}

	query := fmt.Sprintf(`UPDATE %s SET %s = $2 WHERE %s = $1`,
		schema.UserAccount.Table, column, schema.UserAccount.ID)

	return repository.execOne(context, "set_channel_status", query, id, status)
}

// UpdatePassword overwrites the stored password.
func (repository *PostgresRepository) UpdatePassword(context context.Context, id, password string) error {
	query := fmt.Sprintf(`UPDATE %s SET %s = $2 WHERE %s = $1`,
		schema.UserAccount.Table, schema.UserAccount.Password, schema.UserAccount.ID)

	return repository.execOne(context, "update_password", query, id, password)
}

// MarkProvisioned stamps provisionedat.
func (repository *PostgresRepository) MarkProvisioned(context context.Context, id string, at time.Time) error {
	query := fmt.Sprintf(`UPDATE %s SET %s = $2 WHERE %s = $1`,
		schema.UserAccount.Table, schema.UserAccount.ProvisionedAt, schema.UserAccount.ID)

	return repository.execOne(context, "mark_provisioned", query, id, at)
}

// execOne runs an UPDATE that must touch exactly one account.
func (repository *PostgresRepository) execOne(context context.Context, operation, query string, args ...any) error {
	tag, err := database.Conn(context, repository.pool).Exec(context, query, args...)
	if err != nil {
		return fmt.Errorf("postgres_account_repo_%s_failed: %w", operation, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// FindUnprovisioned lists accounts whose provisionedat is still NULL.
func (repository *PostgresRepository) FindUnprovisioned(context context.Context, cutoff time.Time, limit int) ([]*Account, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM %s
		WHERE %s IS NULL AND %s < $1
		ORDER BY %s
		LIMIT $2`,
		accountColumns, schema.UserAccount.Table,
		schema.UserAccount.ProvisionedAt, schema.UserAccount.CreatedAt,
		schema.UserAccount.CreatedAt,
	)

	rows, err := database.Conn(context, repository.pool).Query(context, query, cutoff, limit)
	if err != nil {
		return nil, fmt.Errorf("postgres_account_repo_find_unprovisioned_failed: %w", err)
	}
	defer rows.Close()

	var accounts []*Account
	for rows.Next() {
		account, err := scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres_account_repo_scan_failed: %w", err)
		}
		accounts = append(accounts, account)
	}

	return accounts, rows.Err()
}

// # LoginLogRepository Methods

/*
Append adds a login event to users.loginlog.

Description: The first login of an account inserts its row. Later logins
append to the JSON array of the existing row.
*/
func (repository *PostgresLoginLogRepository) Append(context context.Context, refID string, event LoginEvent) error {
	payload, err := json.Marshal([]LoginEvent{event})
	if err != nil {
		return fmt.Errorf("postgres_loginlog_repo_encode_failed: %w", err)
	}

	table := schema.UserLoginLog
	query := fmt.Sprintf(`
		INSERT INTO %s AS existing (%s, %s, %s, %s, %s)
		VALUES ($1, $2, $3::jsonb, $4, $4)
		ON CONFLICT (%s) DO UPDATE
		SET %s = existing.%s || EXCLUDED.%s, %s = EXCLUDED.%s`,
		table.Table, table.ID, table.RefID, table.Events, table.CreatedAt, table.UpdatedAt,
		table.RefID,
		table.Events, table.Events, table.Events, table.UpdatedAt, table.UpdatedAt,
	)

	_, err = database.Conn(context, repository.pool).Exec(context, query, uuid.New(), refID, payload, event.At)
	if err != nil {
		return fmt.Errorf("postgres_loginlog_repo_append_failed: %w", err)
	}

	return nil
}

// Events returns the login history of an account, or nil when it never logged in.
func (repository *PostgresLoginLogRepository) Events(context context.Context, refID string) ([]LoginEvent, error) {
	table := schema.UserLoginLog
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE %s = $1`, table.Events, table.Table, table.RefID)

	var payload []byte
	err := database.Conn(context, repository.pool).QueryRow(context, query, refID).Scan(&payload)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("postgres_loginlog_repo_events_failed: %w", err)
	}

	var events []LoginEvent
	if err := json.Unmarshal(payload, &events); err != nil {
		return nil, fmt.Errorf("postgres_loginlog_repo_decode_failed: %w", err)
	}

	return events, nil
}
