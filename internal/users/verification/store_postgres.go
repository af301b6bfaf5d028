// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package verification

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/taibuivan/minitube/internal/platform/database"
	"github.com/taibuivan/minitube/internal/platform/database/schema"
)

// # Repository Implementation

// PostgresRepository implements [Repository] using pgx.
//
// Calls join the transaction carried by the context, if any.
type PostgresRepository struct {
	pool database.Querier
}

// NewRepository creates a new PostgreSQL implementation of the challenge Repository.
func NewRepository(pool database.Querier) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

// tableFor selects the challenge table of a channel.
func tableFor(channel Channel) (schema.UserVerificationTable, error) {
	switch channel {
	case ChannelEmail:
		return schema.UserEmailVerification, nil
	case ChannelPhone:
		return schema.UserPhoneVerification, nil
	default:
		return schema.UserVerificationTable{}, fmt.Errorf("verification: unknown channel %q", channel)
	}
}

// selectColumns lists the columns read by scanChallenge, in order.
func selectColumns(table schema.UserVerificationTable) string {
	return fmt.Sprintf("%s, %s, %s, %s, %s, %s, %s, %s, %s",
		table.ID, table.RefID, table.Address, table.CountryCode, table.Secret,
		table.ExpiresAt, table.Status, table.VerifiedOn, table.CreatedAt)
}

func scanChallenge(row pgx.Row, channel Channel) (*Challenge, error) {
	challenge := &Challenge{Channel: channel}
	err := row.Scan(
		&challenge.ID,
		&challenge.RefID,
		&challenge.Address,
		&challenge.CountryCode,
		&challenge.Secret,
		&challenge.ExpiresAt,
		&challenge.Status,
		&challenge.VerifiedOn,
		&challenge.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return challenge, nil
}

/*
InsertIfAbsent inserts a challenge with ON CONFLICT DO NOTHING so that two
concurrent provisioning attempts for one account leave a single row.

Description: When the insert is skipped the existing row (matched by account
reference or address) is returned untouched.
*/
func (repository *PostgresRepository) InsertIfAbsent(context context.Context, challenge *Challenge) (*Challenge, bool, error) {
	table, err := tableFor(challenge.Channel)
	if err != nil {
		return nil, false, err
	}

	query := fmt.Sprintf(`
		INSERT INTO %s (%s, %s, %s, %s, %s, %s, %s, %s)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT DO NOTHING
		RETURNING %s`,
		table.Table,
		table.ID, table.RefID, table.Address, table.CountryCode,
		table.Secret, table.ExpiresAt, table.Status, table.CreatedAt,
		selectColumns(table),
	)

	conn := database.Conn(context, repository.pool)
	inserted, err := scanChallenge(conn.QueryRow(context, query,
		challenge.ID,
		challenge.RefID,
		challenge.Address,
		challenge.CountryCode,
		challenge.Secret,
		challenge.ExpiresAt,
		challenge.Status,
		challenge.CreatedAt,
	), challenge.Channel)

	if err == nil {
		return inserted, true, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, false, fmt.Errorf("postgres_verification_repo_insert_failed: %w", err)
	}

	// Conflict: hand back whichever row blocked the insert.
	existingQuery := fmt.Sprintf(`SELECT %s FROM %s WHERE %s = $1 OR %s = $2 LIMIT 1`,
		selectColumns(table), table.Table, table.RefID, table.Address)

	existing, err := scanChallenge(conn.QueryRow(context, existingQuery, challenge.RefID, challenge.Address), challenge.Channel)
	if err != nil {
		return nil, false, fmt.Errorf("postgres_verification_repo_find_existing_failed: %w", err)
	}

	return existing, false, nil
}

// FindByAddress retrieves a challenge by its email or phone.
func (repository *PostgresRepository) FindByAddress(context context.Context, channel Channel, address string) (*Challenge, error) {
	table, err := tableFor(channel)
	if err != nil {
		return nil, err
	}
	return repository.findOne(context, channel, table.Address, address)
}

// FindByRefID retrieves a challenge by its account reference.
func (repository *PostgresRepository) FindByRefID(context context.Context, channel Channel, refID string) (*Challenge, error) {
	table, err := tableFor(channel)
	if err != nil {
		return nil, err
	}
	return repository.findOne(context, channel, table.RefID, refID)
}

func (repository *PostgresRepository) findOne(context context.Context, channel Channel, column, value string) (*Challenge, error) {
	table, _ := tableFor(channel)
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE %s = $1`, selectColumns(table), table.Table, column)

	challenge, err := scanChallenge(database.Conn(context, repository.pool).QueryRow(context, query, value), channel)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("postgres_verification_repo_find_failed: %w", err)
	}

	return challenge, nil
}

// Rearm overwrites the secret and expiry, conditional on the challenge still being NOTVERIFIED.
func (repository *PostgresRepository) Rearm(context context.Context, channel Channel, id, secret string, expiresAt time.Time) (bool, error) {
	table, err := tableFor(channel)
	if err != nil {
		return false, err
	}

	query := fmt.Sprintf(`UPDATE %s SET %s = $2, %s = $3 WHERE %s = $1 AND %s = $4`,
		table.Table, table.Secret, table.ExpiresAt, table.ID, table.Status)

	tag, err := database.Conn(context, repository.pool).Exec(context, query, id, secret, expiresAt, StatusNotVerified)
	if err != nil {
		return false, fmt.Errorf("postgres_verification_repo_rearm_failed: %w", err)
	}

	return tag.RowsAffected() == 1, nil
}

// MarkVerified flips the status to VERIFIED, conditional on it still being NOTVERIFIED.
func (repository *PostgresRepository) MarkVerified(context context.Context, channel Channel, id string, verifiedOn time.Time) (bool, error) {
	table, err := tableFor(channel)
	if err != nil {
		return false, err
	}

	query := fmt.Sprintf(`UPDATE %s SET %s = $2, %s = $3 WHERE %s = $1 AND %s = $4`,
		table.Table, table.Status, table.VerifiedOn, table.ID, table.Status)

	tag, err := database.Conn(context, repository.pool).Exec(context, query, id, StatusVerified, verifiedOn, StatusNotVerified)
	if err != nil {
		return false, fmt.Errorf("postgres_verification_repo_mark_verified_failed: %w", err)
	}

	return tag.RowsAffected() == 1, nil
}
