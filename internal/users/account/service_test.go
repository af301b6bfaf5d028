// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package account_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/minitube/internal/platform/apperr"
	"github.com/taibuivan/minitube/internal/platform/sec"
	"github.com/taibuivan/minitube/internal/users/account"
	"github.com/taibuivan/minitube/internal/users/usertest"
	"github.com/taibuivan/minitube/internal/users/verification"
)

type fixture struct {
	service      *account.Service
	accounts     *usertest.Accounts
	challenges   *usertest.Challenges
	verification *verification.Service
	transactor   *usertest.Transactor
	tokenizer    *sec.Tokenizer
	clock        *usertest.Clock
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	clock := usertest.NewClock(time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC))
	accounts := usertest.NewAccounts()
	challenges := usertest.NewChallenges()
	transactor := &usertest.Transactor{}
	tokenizer := sec.NewTokenizer(time.Hour, clock.Now)
	verifier := verification.NewService(challenges, verification.Config{TTL: time.Hour, Now: clock.Now}, usertest.Logger())

	service := account.NewService(account.Dependencies{
		Accounts:   accounts,
		LoginLogs:  accounts,
		Challenges: verifier,
		Transactor: transactor,
		Tokenizer:  tokenizer,
		Hasher:     sec.PlainHasher{},
		Logger:     usertest.Logger(),
		Now:        clock.Now,
	})

	return &fixture{
		service:      service,
		accounts:     accounts,
		challenges:   challenges,
		verification: verifier,
		transactor:   transactor,
		tokenizer:    tokenizer,
		clock:        clock,
	}
}

func ann() account.Registration {
	return account.Registration{
		FirstName: "Ann",
		Email:     "ann@x.com",
		Phone:     "5551234567",
		Password:  "Aa1!aaaa",
	}
}

func (f *fixture) create(t *testing.T, registration account.Registration) *account.Created {
	t.Helper()
	created, err := f.service.Create(context.Background(), registration)
	require.NoError(t, err)
	return created
}

func (f *fixture) verifyBoth(t *testing.T, created *account.Created) {
	t.Helper()
	ctx := context.Background()
	_, err := f.service.Verify(ctx, verification.ChannelEmail, created.Account.Email, created.EmailToken)
	require.NoError(t, err)
	_, err = f.service.Verify(ctx, verification.ChannelPhone, created.Account.Phone, created.OTP)
	require.NoError(t, err)
}

func TestCreate_ProvisionsAccountAndChallenges(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	created := f.create(t, ann())

	assert.NotEmpty(t, created.Account.ID)
	assert.NotEmpty(t, created.Account.UID)
	assert.NotEqual(t, created.Account.ID, created.Account.UID)
	assert.Equal(t, sec.AuthorityClient, created.Account.Authority)
	assert.Equal(t, verification.StatusNotVerified, created.Account.EmailStatus)
	assert.Equal(t, verification.StatusNotVerified, created.Account.PhoneStatus)
	assert.Len(t, created.EmailToken, 64)
	assert.Len(t, created.OTP, 6)
	assert.Equal(t, 1, f.transactor.Calls())

	stored, err := f.service.FindByID(ctx, created.Account.ID)
	require.NoError(t, err)
	assert.NotNil(t, stored.ProvisionedAt)

	assert.Equal(t, 1, f.challenges.Count(verification.ChannelEmail))
	assert.Equal(t, 1, f.challenges.Count(verification.ChannelPhone))
}

func TestCreate_ThenAvailabilityReportsCollision(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	created := f.create(t, ann())

	byEmail, err := f.service.CheckAvailability(ctx, account.Identifiers{Email: "ann@x.com"})
	require.NoError(t, err)
	assert.Equal(t, account.FieldEmail, byEmail.Field)
	assert.Equal(t, created.Account.ID, byEmail.AccountID)

	byPhone, err := f.service.CheckAvailability(ctx, account.Identifiers{Phone: "5551234567"})
	require.NoError(t, err)
	assert.Equal(t, account.FieldPhone, byPhone.Field)

	free, err := f.service.CheckAvailability(ctx, account.Identifiers{Email: "bob@x.com", Phone: "5559990000"})
	require.NoError(t, err)
	assert.True(t, free.Available())
}

func TestCreate_RejectsInvalidInput(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*account.Registration)
		field  string
	}{
		{"missing first name", func(r *account.Registration) { r.FirstName = "" }, "firstName"},
		{"bad email", func(r *account.Registration) { r.Email = "ann@" }, "emailId"},
		{"bad phone", func(r *account.Registration) { r.Phone = "12" }, "phone"},
		{"weak password", func(r *account.Registration) { r.Password = "aaaaaaaa" }, "password"},
		{"bad country code", func(r *account.Registration) { r.CountryCode = "+12345" }, "countryCode"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			registration := ann()
			tt.mutate(&registration)

			_, err := f.service.Create(context.Background(), registration)
			require.ErrorIs(t, err, account.ErrInvalidInput)

			ae := apperr.As(err)
			require.NotNil(t, ae)
			require.NotEmpty(t, ae.Details)
			assert.Equal(t, tt.field, ae.Details[0].Field)
			assert.Zero(t, f.transactor.Calls())
		})
	}
}

func TestCreate_RejectsTakenIdentifiers(t *testing.T) {
	f := newFixture(t)
	f.create(t, ann())

	sameEmail := ann()
	sameEmail.Phone = "5559990000"
	_, err := f.service.Create(context.Background(), sameEmail)
	assert.ErrorIs(t, err, account.ErrEmailTaken)

	samePhone := ann()
	samePhone.Email = "bob@x.com"
	_, err = f.service.Create(context.Background(), samePhone)
	assert.ErrorIs(t, err, account.ErrPhoneTaken)
}

func TestScenario_EmailVerifiedPhonePending(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	created := f.create(t, ann())

	_, err := f.service.Verify(ctx, verification.ChannelEmail, "ann@x.com", "not-the-token")
	assert.ErrorIs(t, err, verification.ErrTokenMismatch)

	verified, err := f.service.Verify(ctx, verification.ChannelEmail, "ann@x.com", created.EmailToken)
	require.NoError(t, err)
	assert.Equal(t, verification.StatusVerified, verified.EmailStatus)

	_, err = f.service.Login(ctx, account.Credentials{Email: "ann@x.com", Password: "Aa1!aaaa"}, account.ClientMetadata{})
	assert.ErrorIs(t, err, account.ErrPhoneNotVerified)
}

func TestLogin(t *testing.T) {
	ctx := context.Background()

	t.Run("both channels unverified", func(t *testing.T) {
		f := newFixture(t)
		f.create(t, ann())

		_, err := f.service.Login(ctx, account.Credentials{Email: "ann@x.com", Password: "Aa1!aaaa"}, account.ClientMetadata{})
		require.ErrorIs(t, err, account.ErrNotVerified)
		assert.Equal(t, "Email and Phone are not verified", err.Error())
	})

	t.Run("email unverified", func(t *testing.T) {
		f := newFixture(t)
		created := f.create(t, ann())
		_, err := f.service.Verify(ctx, verification.ChannelPhone, "5551234567", created.OTP)
		require.NoError(t, err)

		_, err = f.service.Login(ctx, account.Credentials{Phone: "5551234567", Password: "Aa1!aaaa"}, account.ClientMetadata{})
		assert.ErrorIs(t, err, account.ErrEmailNotVerified)
	})

	t.Run("unknown account and wrong password look the same", func(t *testing.T) {
		f := newFixture(t)
		created := f.create(t, ann())
		f.verifyBoth(t, created)

		_, err := f.service.Login(ctx, account.Credentials{Email: "bob@x.com", Password: "Aa1!aaaa"}, account.ClientMetadata{})
		assert.ErrorIs(t, err, account.ErrNotFound)

		_, err = f.service.Login(ctx, account.Credentials{Email: "ann@x.com", Password: "Aa1!aaab"}, account.ClientMetadata{})
		assert.ErrorIs(t, err, account.ErrNotFound)
	})

	t.Run("missing credentials", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.service.Login(ctx, account.Credentials{Password: "Aa1!aaaa"}, account.ClientMetadata{})
		assert.ErrorIs(t, err, account.ErrInvalidInput)
	})

	t.Run("success issues token and records the login", func(t *testing.T) {
		f := newFixture(t)
		created := f.create(t, ann())
		f.verifyBoth(t, created)

		metadata := account.ClientMetadata{Headers: map[string]string{"user-agent": "test"}, IP: "10.0.0.1"}
		session, err := f.service.Login(ctx, account.Credentials{Email: "ann@x.com", Password: "Aa1!aaaa"}, metadata)
		require.NoError(t, err)

		subject, err := f.tokenizer.Decode(session.Token)
		require.NoError(t, err)
		assert.Equal(t, created.Account.ID, subject)

		_, err = f.service.Login(ctx, account.Credentials{Phone: "5551234567", Password: "Aa1!aaaa"}, metadata)
		require.NoError(t, err)

		events, err := f.accounts.Events(ctx, created.Account.ID)
		require.NoError(t, err)
		require.Len(t, events, 2)
		assert.Equal(t, "10.0.0.1", events[0].IP)
		assert.Equal(t, "test", events[0].Headers["user-agent"])
	})
}

func TestReissueChallenge(t *testing.T) {
	ctx := context.Background()

	t.Run("unknown address", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.service.ReissueChallenge(ctx, verification.ChannelEmail, "bob@x.com")
		assert.ErrorIs(t, err, account.ErrNotFound)
	})

	t.Run("new secret replaces the old one", func(t *testing.T) {
		f := newFixture(t)
		created := f.create(t, ann())

		challenge, err := f.service.ReissueChallenge(ctx, verification.ChannelEmail, "ann@x.com")
		require.NoError(t, err)
		assert.NotEqual(t, created.EmailToken, challenge.Secret)

		_, err = f.service.Verify(ctx, verification.ChannelEmail, "ann@x.com", created.EmailToken)
		assert.ErrorIs(t, err, verification.ErrTokenMismatch)
		_, err = f.service.Verify(ctx, verification.ChannelEmail, "ann@x.com", challenge.Secret)
		assert.NoError(t, err)
	})

	t.Run("verified channel", func(t *testing.T) {
		f := newFixture(t)
		created := f.create(t, ann())
		_, err := f.service.Verify(ctx, verification.ChannelPhone, "5551234567", created.OTP)
		require.NoError(t, err)

		_, err = f.service.ReissueChallenge(ctx, verification.ChannelPhone, "5551234567")
		assert.ErrorIs(t, err, verification.ErrAlreadyVerified)
	})

	t.Run("missing challenge is provisioned", func(t *testing.T) {
		f := newFixture(t)
		created := f.create(t, ann())
		f.challenges.Delete(verification.ChannelPhone, created.Account.ID)

		challenge, err := f.service.ReissueChallenge(ctx, verification.ChannelPhone, "5551234567")
		require.NoError(t, err)
		assert.Equal(t, created.Account.ID, challenge.RefID)
		assert.Equal(t, 1, f.challenges.Count(verification.ChannelPhone))

		_, err = f.service.Verify(ctx, verification.ChannelPhone, "5551234567", challenge.Secret)
		assert.NoError(t, err)
	})
}

func TestVerify(t *testing.T) {
	ctx := context.Background()

	t.Run("replay reports already verified", func(t *testing.T) {
		f := newFixture(t)
		created := f.create(t, ann())

		_, err := f.service.Verify(ctx, verification.ChannelEmail, "ann@x.com", created.EmailToken)
		require.NoError(t, err)
		_, err = f.service.Verify(ctx, verification.ChannelEmail, "ann@x.com", created.EmailToken)
		assert.ErrorIs(t, err, verification.ErrAlreadyVerified)
	})

	t.Run("expired secret", func(t *testing.T) {
		f := newFixture(t)
		created := f.create(t, ann())

		f.clock.Advance(2 * time.Hour)
		_, err := f.service.Verify(ctx, verification.ChannelPhone, "5551234567", created.OTP)
		assert.ErrorIs(t, err, verification.ErrExpired)
	})

	t.Run("account status catches up with the challenge", func(t *testing.T) {
		f := newFixture(t)
		created := f.create(t, ann())
		_, err := f.verification.Confirm(ctx, verification.ChannelEmail, created.Account.ID, created.EmailToken)
		require.NoError(t, err)

		_, err = f.service.Verify(ctx, verification.ChannelEmail, "ann@x.com", created.EmailToken)
		assert.ErrorIs(t, err, verification.ErrAlreadyVerified)

		stored, err := f.service.FindByID(ctx, created.Account.ID)
		require.NoError(t, err)
		assert.Equal(t, verification.StatusVerified, stored.EmailStatus)
	})
}

func TestUpdatePassword_LoginUsesNewPassword(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	created := f.create(t, ann())
	f.verifyBoth(t, created)

	require.NoError(t, f.service.UpdatePassword(ctx, created.Account.ID, "Bb2@bbbb"))

	_, err := f.service.Login(ctx, account.Credentials{Email: "ann@x.com", Password: "Aa1!aaaa"}, account.ClientMetadata{})
	assert.ErrorIs(t, err, account.ErrNotFound)
	_, err = f.service.Login(ctx, account.Credentials{Email: "ann@x.com", Password: "Bb2@bbbb"}, account.ClientMetadata{})
	assert.NoError(t, err)
}

func TestRepairProvisioning(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	stale := &account.Account{
		ID: "acc-stale", UID: "uid-stale", FirstName: "Old", Email: "old@x.com", Phone: "5550000001",
		Authority:   sec.AuthorityClient,
		EmailStatus: verification.StatusNotVerified,
		PhoneStatus: verification.StatusNotVerified,
		CreatedAt:   f.clock.Now().Add(-10 * time.Minute),
	}
	fresh := &account.Account{
		ID: "acc-fresh", UID: "uid-fresh", FirstName: "New", Email: "new@x.com", Phone: "5550000002",
		Authority:   sec.AuthorityClient,
		EmailStatus: verification.StatusNotVerified,
		PhoneStatus: verification.StatusNotVerified,
		CreatedAt:   f.clock.Now().Add(-time.Minute),
	}
	f.accounts.Put(stale)
	f.accounts.Put(fresh)

	repaired, err := f.service.RepairProvisioning(ctx, 5*time.Minute, 10)
	require.NoError(t, err)
	assert.Equal(t, 1, repaired)

	stored, err := f.service.FindByID(ctx, "acc-stale")
	require.NoError(t, err)
	assert.NotNil(t, stored.ProvisionedAt)

	_, err = f.challenges.FindByRefID(ctx, verification.ChannelEmail, "acc-stale")
	assert.NoError(t, err)
	_, err = f.challenges.FindByRefID(ctx, verification.ChannelPhone, "acc-stale")
	assert.NoError(t, err)
	_, err = f.challenges.FindByRefID(ctx, verification.ChannelEmail, "acc-fresh")
	assert.ErrorIs(t, err, verification.ErrNotFound)

	again, err := f.service.RepairProvisioning(ctx, 5*time.Minute, 10)
	require.NoError(t, err)
	assert.Zero(t, again)
}

func TestCreate_CountryCodeIsOptional(t *testing.T) {
	f := newFixture(t)

	created := f.create(t, ann())
	assert.Empty(t, created.Account.CountryCode)

	withCode := ann()
	withCode.Email, withCode.Phone, withCode.CountryCode = "bob@x.com", "5559990000", "+44"
	created = f.create(t, withCode)
	assert.Equal(t, "+44", created.Account.CountryCode)
}

func TestDetails_FieldFilter(t *testing.T) {
	f := newFixture(t)
	created := f.create(t, ann())

	tests := []struct {
		name      string
		requested []string
		want      []string
	}{
		{"defaults when nothing is requested", nil, account.DefaultDetails},
		{"substring matches every containing field", []string{"name"}, []string{account.DetailFirstName, account.DetailLastName}},
		{"matching ignores case", []string{"ID"}, []string{account.DetailID, account.DetailEmail}},
		{"partial name", []string{"ma"}, []string{account.DetailEmail}},
		{"exact name", []string{"phone"}, []string{account.DetailPhone}},
		{"requests are combined", []string{"AUTHORITY", "created"}, []string{account.DetailAuthority, account.DetailCreatedAt}},
		{"unmatched request yields nothing", []string{"zzz"}, []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			details, err := f.service.Details(context.Background(), created.Account.ID, tt.requested)
			require.NoError(t, err)

			keys := make([]string, 0, len(details))
			for key := range details {
				keys = append(keys, key)
			}
			assert.ElementsMatch(t, tt.want, keys)
		})
	}
}
