// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package request

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/taibuivan/minitube/internal/platform/database"
	"github.com/taibuivan/minitube/internal/platform/database/schema"
	"github.com/taibuivan/minitube/internal/platform/sec"
	"github.com/taibuivan/minitube/pkg/uuid"
)

// # Repository Implementation

// PostgresRepository implements [Repository] using pgx.
//
// Every find-or-create is a single INSERT ... ON CONFLICT (refid, requesttype).
type PostgresRepository struct {
	pool database.Querier
}

// NewRepository creates a new PostgreSQL implementation of the request Repository.
func NewRepository(pool database.Querier) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

var requestColumns = strings.Join(schema.UserRequest.Columns(), ", ")

func scanRequest(row pgx.Row) (*Request, error) {
	request := &Request{}
	var authority string
	err := row.Scan(
		&request.ID,
		&request.RefID,
		&request.Type,
		&authority,
		&request.ForgotPasswordToken,
		&request.ResetPasswordToken,
		&request.ResetStatus,
		&request.CreatedAt,
		&request.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if authority != "" {
		parsed, err := sec.ParseAuthority(authority)
		if err != nil {
			return nil, fmt.Errorf("postgres_request_repo_authority_invalid: %w", err)
		}
		request.AuthorityToUpgrade = &parsed
	}

	return request, nil
}

// InsertIfAbsent inserts a record with ON CONFLICT DO NOTHING.
func (repository *PostgresRepository) InsertIfAbsent(context context.Context, request *Request) (bool, error) {
	var authority string
	if request.AuthorityToUpgrade != nil {
		authority = request.AuthorityToUpgrade.String()
	}

	query := fmt.Sprintf(`
		INSERT INTO %s (%s)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (%s, %s) DO NOTHING`,
		schema.UserRequest.Table, requestColumns,
		schema.UserRequest.RefID, schema.UserRequest.Type,
	)

	tag, err := database.Conn(context, repository.pool).Exec(context, query,
		request.ID,
		request.RefID,
		request.Type,
		authority,
		request.ForgotPasswordToken,
		request.ResetPasswordToken,
		request.ResetStatus,
		request.CreatedAt,
		request.UpdatedAt,
	)
	if err != nil {
		return false, fmt.Errorf("postgres_request_repo_insert_failed: %w", err)
	}

	return tag.RowsAffected() == 1, nil
}

// FindByRefID retrieves the record of an account for one type.
func (repository *PostgresRepository) FindByRefID(context context.Context, refID string, requestType Type) (*Request, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE %s = $1 AND %s = $2`,
		requestColumns, schema.UserRequest.Table, schema.UserRequest.RefID, schema.UserRequest.Type)

	return repository.findOne(context, query, refID, requestType)
}

/*
UpsertForgotToken inserts the forgot-password record or overwrites its token.

Description: Concurrent callers for the same account serialize on the unique
key and the last writer's token wins.
*/
func (repository *PostgresRepository) UpsertForgotToken(context context.Context, refID, token string, at time.Time) (*Request, error) {
	table := schema.UserRequest
	query := fmt.Sprintf(`
		INSERT INTO %s (%s, %s, %s, %s, %s, %s)
		VALUES ($1, $2, $3, $4, $5, $5)
		ON CONFLICT (%s, %s) DO UPDATE
		SET %s = EXCLUDED.%s, %s = EXCLUDED.%s
		RETURNING %s`,
		table.Table, table.ID, table.RefID, table.Type, table.ForgotPasswordToken, table.CreatedAt, table.UpdatedAt,
		table.RefID, table.Type,
		table.ForgotPasswordToken, table.ForgotPasswordToken, table.UpdatedAt, table.UpdatedAt,
		requestColumns,
	)

	request, err := scanRequest(database.Conn(context, repository.pool).QueryRow(context, query,
		uuid.New(), refID, TypeForgotPassword, token, at))
	if err != nil {
		return nil, fmt.Errorf("postgres_request_repo_upsert_forgot_failed: %w", err)
	}

	return request, nil
}

// FindByForgotToken retrieves the forgot-password record holding token.
func (repository *PostgresRepository) FindByForgotToken(context context.Context, token string) (*Request, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE %s = $1 AND %s = $2`,
		requestColumns, schema.UserRequest.Table, schema.UserRequest.ForgotPasswordToken, schema.UserRequest.Type)

	return repository.findOne(context, query, token, TypeForgotPassword)
}

/*
UpsertResetToken inserts the reset-password record or re-arms it.

Description: An UNSET record with a token keeps that token. A SET or absent
status is replaced by the new token and UNSET.
*/
func (repository *PostgresRepository) UpsertResetToken(context context.Context, refID, token string, at time.Time) (*Request, error) {
	table := schema.UserRequest
	query := fmt.Sprintf(`
		INSERT INTO %[1]s AS existing (%[2]s, %[3]s, %[4]s, %[5]s, %[6]s, %[7]s, %[8]s)
		VALUES ($1, $2, $3, $4, $5, $6, $6)
		ON CONFLICT (%[3]s, %[4]s) DO UPDATE
		SET %[5]s = CASE
				WHEN existing.%[6]s = $5 AND existing.%[5]s <> '' THEN existing.%[5]s
				ELSE EXCLUDED.%[5]s
			END,
			%[6]s = $5,
			%[8]s = EXCLUDED.%[8]s
		RETURNING %[9]s`,
		table.Table, table.ID, table.RefID, table.Type, table.ResetPasswordToken,
		table.ResetStatus, table.CreatedAt, table.UpdatedAt,
		requestColumns,
	)

	request, err := scanRequest(database.Conn(context, repository.pool).QueryRow(context, query,
		uuid.New(), refID, TypeResetPassword, token, ResetUnset, at))
	if err != nil {
		return nil, fmt.Errorf("postgres_request_repo_upsert_reset_failed: %w", err)
	}

	return request, nil
}

// FindByResetToken retrieves the reset-password record holding token.
func (repository *PostgresRepository) FindByResetToken(context context.Context, token string) (*Request, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE %s = $1 AND %s = $2`,
		requestColumns, schema.UserRequest.Table, schema.UserRequest.ResetPasswordToken, schema.UserRequest.Type)

	return repository.findOne(context, query, token, TypeResetPassword)
}

// ConsumeReset flips resetstatus from UNSET to SET.
func (repository *PostgresRepository) ConsumeReset(context context.Context, id string, at time.Time) (bool, error) {
	query := fmt.Sprintf(`UPDATE %s SET %s = $2, %s = $3 WHERE %s = $1 AND %s = $4`,
		schema.UserRequest.Table, schema.UserRequest.ResetStatus, schema.UserRequest.UpdatedAt,
		schema.UserRequest.ID, schema.UserRequest.ResetStatus)

	tag, err := database.Conn(context, repository.pool).Exec(context, query, id, ResetSet, at, ResetUnset)
	if err != nil {
		return false, fmt.Errorf("postgres_request_repo_consume_failed: %w", err)
	}

	return tag.RowsAffected() == 1, nil
}

func (repository *PostgresRepository) findOne(context context.Context, query string, args ...any) (*Request, error) {
	request, err := scanRequest(database.Conn(context, repository.pool).QueryRow(context, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("postgres_request_repo_find_failed: %w", err)
	}
	return request, nil
}
