// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package request_test

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/minitube/internal/platform/sec"
	"github.com/taibuivan/minitube/internal/users/request"
)

const callers = 16

// race runs fn from callers goroutines released at the same moment.
func race(fn func(i int)) {
	var (
		wg    sync.WaitGroup
		start = make(chan struct{})
	)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			fn(i)
		}(i)
	}
	close(start)
	wg.Wait()
}

func TestForgotPassword_ConcurrentCallersShareOneRecord(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seed("acc", sec.AuthorityClient)

	tokens := make([]string, callers)
	errs := make([]error, callers)
	race(func(i int) {
		reference, err := f.service.ForgotPassword(ctx, "acc@x.com")
		errs[i] = err
		if err == nil {
			tokens[i] = reference.Token
		}
	})

	for _, err := range errs {
		require.NoError(t, err)
	}
	assert.Equal(t, 1, f.requests.Count("acc", request.TypeForgotPassword))

	stored, err := f.requests.FindByRefID(ctx, "acc", request.TypeForgotPassword)
	require.NoError(t, err)
	assert.Contains(t, tokens, stored.ForgotPasswordToken, "the last writer's token is the live one")
}

func TestRequestAuthorityUpgrade_ConcurrentCallersInsertOnce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seed("acc", sec.AuthorityClient)

	errs := make([]error, callers)
	race(func(i int) {
		_, errs[i] = f.service.RequestAuthorityUpgrade(ctx, "acc", sec.AuthorityAdministrator)
	})

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		assert.ErrorIs(t, err, request.ErrDuplicateRequest)
	}
	assert.Equal(t, 1, succeeded)
	assert.Equal(t, 1, f.requests.Count("acc", request.TypeAuthorityUpgrade))
}

func TestCompleteReset_ConcurrentConsumersSucceedOnce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seed("acc", sec.AuthorityClient)

	forgot, err := f.service.ForgotPassword(ctx, "acc@x.com")
	require.NoError(t, err)
	reset, err := f.service.BeginReset(ctx, forgot.Token)
	require.NoError(t, err)

	errs := make([]error, callers)
	race(func(i int) {
		errs[i] = f.service.CompleteReset(ctx, reset.Token, "Bb2@bbbb")
	})

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		assert.ErrorIs(t, err, request.ErrAlreadyUsed)
	}
	assert.Equal(t, 1, succeeded)
	assert.Equal(t, 1, f.requests.Count("acc", request.TypeResetPassword))
}
