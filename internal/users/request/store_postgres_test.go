// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package request_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/minitube/internal/platform/database/schema"
	"github.com/taibuivan/minitube/internal/platform/sec"
	"github.com/taibuivan/minitube/internal/users/request"
	"github.com/taibuivan/minitube/internal/users/usertest"
	"github.com/taibuivan/minitube/pkg/uuid"
)

func TestPostgresRepository_ConcurrentForgotUpserts(t *testing.T) {
	pool := usertest.Postgres(t)
	owner := usertest.SeedAccount(t, pool)
	repository := request.NewRepository(pool)
	ctx := context.Background()

	tokens := make([]string, callers)
	ids := make([]string, callers)
	errs := make([]error, callers)
	race(func(i int) {
		tokens[i] = fmt.Sprintf("forgot-%02d", i)
		stored, err := repository.UpsertForgotToken(ctx, owner.ID, tokens[i], time.Now().UTC())
		errs[i] = err
		if err == nil {
			ids[i] = stored.ID
		}
	})

	for i := range errs {
		require.NoError(t, errs[i])
		assert.Equal(t, ids[0], ids[i], "every caller lands on the same record")
	}

	var count int
	query := fmt.Sprintf(`SELECT count(*) FROM %s WHERE %s = $1 AND %s = $2`,
		schema.UserRequest.Table, schema.UserRequest.RefID, schema.UserRequest.Type)
	require.NoError(t, pool.QueryRow(ctx, query, owner.ID, request.TypeForgotPassword).Scan(&count))
	assert.Equal(t, 1, count)

	stored, err := repository.FindByRefID(ctx, owner.ID, request.TypeForgotPassword)
	require.NoError(t, err)
	assert.Contains(t, tokens, stored.ForgotPasswordToken)

	found, err := repository.FindByForgotToken(ctx, stored.ForgotPasswordToken)
	require.NoError(t, err)
	assert.Equal(t, stored.ID, found.ID)
}

func TestPostgresRepository_ConcurrentInsertIfAbsent(t *testing.T) {
	pool := usertest.Postgres(t)
	owner := usertest.SeedAccount(t, pool)
	repository := request.NewRepository(pool)
	ctx := context.Background()

	desired := sec.AuthorityAdministrator
	inserted := make([]bool, callers)
	errs := make([]error, callers)
	race(func(i int) {
		now := time.Now().UTC()
		inserted[i], errs[i] = repository.InsertIfAbsent(ctx, &request.Request{
			ID:                 uuid.New(),
			RefID:              owner.ID,
			Type:               request.TypeAuthorityUpgrade,
			AuthorityToUpgrade: &desired,
			CreatedAt:          now,
			UpdatedAt:          now,
		})
	})

	winners := 0
	for i := range errs {
		require.NoError(t, errs[i])
		if inserted[i] {
			winners++
		}
	}
	assert.Equal(t, 1, winners)

	stored, err := repository.FindByRefID(ctx, owner.ID, request.TypeAuthorityUpgrade)
	require.NoError(t, err)
	require.NotNil(t, stored.AuthorityToUpgrade)
	assert.Equal(t, sec.AuthorityAdministrator, *stored.AuthorityToUpgrade)
}

func TestPostgresRepository_ResetTokenLifecycle(t *testing.T) {
	pool := usertest.Postgres(t)
	owner := usertest.SeedAccount(t, pool)
	repository := request.NewRepository(pool)
	ctx := context.Background()

	first, err := repository.UpsertResetToken(ctx, owner.ID, "reset-1", time.Now().UTC())
	require.NoError(t, err)
	assert.Equal(t, "reset-1", first.ResetPasswordToken)
	assert.Equal(t, request.ResetUnset, first.ResetStatus)

	again, err := repository.UpsertResetToken(ctx, owner.ID, "reset-2", time.Now().UTC())
	require.NoError(t, err)
	assert.Equal(t, first.ID, again.ID)
	assert.Equal(t, "reset-1", again.ResetPasswordToken, "an outstanding token is kept")

	consumed := make([]bool, callers)
	errs := make([]error, callers)
	race(func(i int) {
		consumed[i], errs[i] = repository.ConsumeReset(ctx, first.ID, time.Now().UTC())
	})
	winners := 0
	for i := range errs {
		require.NoError(t, errs[i])
		if consumed[i] {
			winners++
		}
	}
	assert.Equal(t, 1, winners)

	spent, err := repository.FindByResetToken(ctx, "reset-1")
	require.NoError(t, err)
	assert.Equal(t, request.ResetSet, spent.ResetStatus)

	rearmed, err := repository.UpsertResetToken(ctx, owner.ID, "reset-3", time.Now().UTC())
	require.NoError(t, err)
	assert.Equal(t, first.ID, rearmed.ID)
	assert.Equal(t, "reset-3", rearmed.ResetPasswordToken)
	assert.Equal(t, request.ResetUnset, rearmed.ResetStatus)

	_, err = repository.FindByResetToken(ctx, "reset-1")
	assert.ErrorIs(t, err, request.ErrNotFound)
}
