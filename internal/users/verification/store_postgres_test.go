// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package verification_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/minitube/internal/users/usertest"
	"github.com/taibuivan/minitube/internal/users/verification"
	"github.com/taibuivan/minitube/pkg/uuid"
)

func TestPostgresRepository_ConcurrentProvisioning(t *testing.T) {
	pool := usertest.Postgres(t)
	owner := usertest.SeedAccount(t, pool)
	repository := verification.NewRepository(pool)
	ctx := context.Background()

	secrets := make([]string, callers)
	created := make([]bool, callers)
	errs := make([]error, callers)
	race(func(i int) {
		now := time.Now().UTC()
		stored, inserted, err := repository.InsertIfAbsent(ctx, &verification.Challenge{
			ID:        uuid.New(),
			RefID:     owner.ID,
			Channel:   verification.ChannelEmail,
			Address:   owner.Email,
			Secret:    fmt.Sprintf("secret-%02d", i),
			ExpiresAt: now.Add(time.Hour),
			Status:    verification.StatusNotVerified,
			CreatedAt: now,
		})
		errs[i], created[i] = err, inserted
		if err == nil {
			secrets[i] = stored.Secret
		}
	})

	insertions := 0
	for i := range errs {
		require.NoError(t, errs[i])
		if created[i] {
			insertions++
		}
		assert.Equal(t, secrets[0], secrets[i], "losers get the stored challenge back")
	}
	assert.Equal(t, 1, insertions)

	byAddress, err := repository.FindByAddress(ctx, verification.ChannelEmail, owner.Email)
	require.NoError(t, err)
	assert.Equal(t, secrets[0], byAddress.Secret)
}

func TestPostgresRepository_ConditionalUpdates(t *testing.T) {
	pool := usertest.Postgres(t)
	owner := usertest.SeedAccount(t, pool)
	repository := verification.NewRepository(pool)
	ctx := context.Background()

	now := time.Now().UTC()
	challenge, _, err := repository.InsertIfAbsent(ctx, &verification.Challenge{
		ID:          uuid.New(),
		RefID:       owner.ID,
		Channel:     verification.ChannelPhone,
		Address:     owner.Phone,
		CountryCode: "+1",
		Secret:      "123456",
		ExpiresAt:   now.Add(time.Hour),
		Status:      verification.StatusNotVerified,
		CreatedAt:   now,
	})
	require.NoError(t, err)

	rearmed, err := repository.Rearm(ctx, verification.ChannelPhone, challenge.ID, "654321", now.Add(2*time.Hour))
	require.NoError(t, err)
	assert.True(t, rearmed)

	flipped := make([]bool, callers)
	errs := make([]error, callers)
	race(func(i int) {
		flipped[i], errs[i] = repository.MarkVerified(ctx, verification.ChannelPhone, challenge.ID, time.Now().UTC())
	})

	winners := 0
	for i := range errs {
		require.NoError(t, errs[i])
		if flipped[i] {
			winners++
		}
	}
	assert.Equal(t, 1, winners)

	stored, err := repository.FindByRefID(ctx, verification.ChannelPhone, owner.ID)
	require.NoError(t, err)
	assert.True(t, stored.IsVerified())
	assert.Equal(t, "654321", stored.Secret)
	assert.NotNil(t, stored.VerifiedOn)

	rearmed, err = repository.Rearm(ctx, verification.ChannelPhone, challenge.ID, "111111", now.Add(3*time.Hour))
	require.NoError(t, err)
	assert.False(t, rearmed, "a verified challenge is never re-armed")
}
