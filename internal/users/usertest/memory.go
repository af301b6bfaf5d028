// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package usertest provides in-memory repositories for the users packages.
//
// Stores hand out copies so that callers observe the same isolation they get
// from PostgreSQL. [Transactor] runs the callback without rollback.
package usertest

import (
	"context"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/taibuivan/minitube/internal/users/account"
	"github.com/taibuivan/minitube/internal/users/request"
	"github.com/taibuivan/minitube/internal/users/verification"
)

// # Transactions

// Transactor counts transactions and runs each callback directly.
type Transactor struct {
	mu    sync.Mutex
	calls int
}

// WithinTx runs fn with ctx.
func (transactor *Transactor) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	transactor.mu.Lock()
	transactor.calls++
	transactor.mu.Unlock()
	return fn(ctx)
}

// Calls returns the number of transactions started.
func (transactor *Transactor) Calls() int {
	transactor.mu.Lock()
	defer transactor.mu.Unlock()
	return transactor.calls
}

// # Challenges

// Challenges is an in-memory [verification.Repository].
type Challenges struct {
	mu   sync.Mutex
	rows map[verification.Channel][]*verification.Challenge
}

// NewChallenges creates an empty challenge store.
func NewChallenges() *Challenges {
	return &Challenges{rows: map[verification.Channel][]*verification.Challenge{}}
}

func copyChallenge(challenge *verification.Challenge) *verification.Challenge {
	clone := *challenge
	if challenge.VerifiedOn != nil {
		verifiedOn := *challenge.VerifiedOn
		clone.VerifiedOn = &verifiedOn
	}
	return &clone
}

func (store *Challenges) find(channel verification.Channel, match func(*verification.Challenge) bool) *verification.Challenge {
	for _, row := range store.rows[channel] {
		if match(row) {
			return row
		}
	}
	return nil
}

func (store *Challenges) InsertIfAbsent(_ context.Context, challenge *verification.Challenge) (*verification.Challenge, bool, error) {
	store.mu.Lock()
	defer store.mu.Unlock()

	existing := store.find(challenge.Channel, func(row *verification.Challenge) bool {
		return row.RefID == challenge.RefID || row.Address == challenge.Address
	})
	if existing != nil {
		return copyChallenge(existing), false, nil
	}

	store.rows[challenge.Channel] = append(store.rows[challenge.Channel], copyChallenge(challenge))
	return copyChallenge(challenge), true, nil
}

func (store *Challenges) FindByAddress(_ context.Context, channel verification.Channel, address string) (*verification.Challenge, error) {
	store.mu.Lock()
	defer store.mu.Unlock()

	row := store.find(channel, func(row *verification.Challenge) bool { return row.Address == address })
	if row == nil {
		return nil, verification.ErrNotFound
	}
	return copyChallenge(row), nil
}

func (store *Challenges) FindByRefID(_ context.Context, channel verification.Channel, refID string) (*verification.Challenge, error) {
	store.mu.Lock()
	defer store.mu.Unlock()

	row := store.find(channel, func(row *verification.Challenge) bool { return row.RefID == refID })
	if row == nil {
		return nil, verification.ErrNotFound
	}
	return copyChallenge(row), nil
}

func (store *Challenges) Rearm(_ context.Context, channel verification.Channel, id, secret string, expiresAt time.Time) (bool, error) {
	store.mu.Lock()
	defer store.mu.Unlock()

	row := store.find(channel, func(row *verification.Challenge) bool { return row.ID == id })
	if row == nil || row.Status != verification.StatusNotVerified {
		return false, nil
	}
	row.Secret = secret
	row.ExpiresAt = expiresAt
	return true, nil
}

func (store *Challenges) MarkVerified(_ context.Context, channel verification.Channel, id string, verifiedOn time.Time) (bool, error) {
	store.mu.Lock()
	defer store.mu.Unlock()

	row := store.find(channel, func(row *verification.Challenge) bool { return row.ID == id })
	if row == nil || row.Status != verification.StatusNotVerified {
		return false, nil
	}
	row.Status = verification.StatusVerified
	row.VerifiedOn = &verifiedOn
	return true, nil
}

// Delete removes the challenge of an account, simulating an interrupted registration.
func (store *Challenges) Delete(channel verification.Channel, refID string) {
	store.mu.Lock()
	defer store.mu.Unlock()

	rows := store.rows[channel][:0]
	for _, row := range store.rows[channel] {
		if row.RefID != refID {
			rows = append(rows, row)
		}
	}
	store.rows[channel] = rows
}

// Expire moves the expiry of the challenge of an account to at.
func (store *Challenges) Expire(channel verification.Channel, refID string, at time.Time) {
	store.mu.Lock()
	defer store.mu.Unlock()

	if row := store.find(channel, func(row *verification.Challenge) bool { return row.RefID == refID }); row != nil {
		row.ExpiresAt = at
	}
}

// Count returns the number of challenges stored for channel.
func (store *Challenges) Count(channel verification.Channel) int {
	store.mu.Lock()
	defer store.mu.Unlock()
	return len(store.rows[channel])
}

// # Accounts

// Accounts is an in-memory [account.Repository] and [account.LoginLogRepository].
type Accounts struct {
	mu     sync.Mutex
	rows   map[string]*account.Account
	events map[string][]account.LoginEvent
}

// NewAccounts creates an empty account store.
func NewAccounts() *Accounts {
	return &Accounts{
		rows:   map[string]*account.Account{},
		events: map[string][]account.LoginEvent{},
	}
}

func copyAccount(row *account.Account) *account.Account {
	clone := *row
	if row.ProvisionedAt != nil {
		provisionedAt := *row.ProvisionedAt
		clone.ProvisionedAt = &provisionedAt
	}
	return &clone
}

func (store *Accounts) Create(_ context.Context, created *account.Account) error {
	store.mu.Lock()
	defer store.mu.Unlock()

	for _, row := range store.rows {
		switch {
		case row.Email == created.Email:
			return account.ErrEmailTaken
		case row.Phone == created.Phone:
			return account.ErrPhoneTaken
		}
	}
	store.rows[created.ID] = copyAccount(created)
	return nil
}

func (store *Accounts) findBy(match func(*account.Account) bool) (*account.Account, error) {
	store.mu.Lock()
	defer store.mu.Unlock()

	for _, row := range store.rows {
		if match(row) {
			return copyAccount(row), nil
		}
	}
	return nil, account.ErrNotFound
}

func (store *Accounts) FindByID(_ context.Context, id string) (*account.Account, error) {
	return store.findBy(func(row *account.Account) bool { return row.ID == id })
}

func (store *Accounts) FindByEmail(_ context.Context, email string) (*account.Account, error) {
	return store.findBy(func(row *account.Account) bool { return row.Email == email })
}

func (store *Accounts) FindByPhone(_ context.Context, phone string) (*account.Account, error) {
	return store.findBy(func(row *account.Account) bool { return row.Phone == phone })
}

func (store *Accounts) update(id string, mutate func(*account.Account)) error {
	store.mu.Lock()
	defer store.mu.Unlock()

	row, ok := store.rows[id]
	if !ok {
		return account.ErrNotFound
	}
	mutate(row)
	return nil
}

func (store *Accounts) SetChannelStatus(_ context.Context, id string, channel verification.Channel, status verification.Status) error {
	return store.update(id, func(row *account.Account) {
		if channel == verification.ChannelPhone {
			row.PhoneStatus = status
		} else {
			row.EmailStatus = status
		}
	})
}

func (store *Accounts) UpdatePassword(_ context.Context, id, password string) error {
	return store.update(id, func(row *account.Account) { row.Password = password })
}

func (store *Accounts) MarkProvisioned(_ context.Context, id string, at time.Time) error {
	return store.update(id, func(row *account.Account) { row.ProvisionedAt = &at })
}

func (store *Accounts) FindUnprovisioned(_ context.Context, cutoff time.Time, limit int) ([]*account.Account, error) {
	store.mu.Lock()
	defer store.mu.Unlock()

	var found []*account.Account
	for _, row := range store.rows {
		if row.ProvisionedAt == nil && row.CreatedAt.Before(cutoff) {
			found = append(found, copyAccount(row))
		}
	}
	sort.Slice(found, func(i, j int) bool { return found[i].CreatedAt.Before(found[j].CreatedAt) })

	if len(found) > limit {
		found = found[:limit]
	}
	return found, nil
}

// Put stores row as is, bypassing uniqueness checks.
func (store *Accounts) Put(row *account.Account) {
	store.mu.Lock()
	defer store.mu.Unlock()
	store.rows[row.ID] = copyAccount(row)
}

func (store *Accounts) Append(_ context.Context, refID string, event account.LoginEvent) error {
	store.mu.Lock()
	defer store.mu.Unlock()
	store.events[refID] = append(store.events[refID], event)
	return nil
}

func (store *Accounts) Events(_ context.Context, refID string) ([]account.LoginEvent, error) {
	store.mu.Lock()
	defer store.mu.Unlock()
	return append([]account.LoginEvent(nil), store.events[refID]...), nil
}

// # Requests

// Requests is an in-memory [request.Repository].
type Requests struct {
	mu   sync.Mutex
	rows []*request.Request
	seq  int
}

// NewRequests creates an empty request store.
func NewRequests() *Requests {
	return &Requests{}
}

func copyRequest(row *request.Request) *request.Request {
	clone := *row
	if row.AuthorityToUpgrade != nil {
		authority := *row.AuthorityToUpgrade
		clone.AuthorityToUpgrade = &authority
	}
	return &clone
}

func (store *Requests) find(match func(*request.Request) bool) *request.Request {
	for _, row := range store.rows {
		if match(row) {
			return row
		}
	}
	return nil
}

func (store *Requests) byKey(refID string, requestType request.Type) *request.Request {
	return store.find(func(row *request.Request) bool {
		return row.RefID == refID && row.Type == requestType
	})
}

func (store *Requests) nextID() string {
	store.seq++
	return "request-" + strconv.Itoa(store.seq)
}

func (store *Requests) InsertIfAbsent(_ context.Context, created *request.Request) (bool, error) {
	store.mu.Lock()
	defer store.mu.Unlock()

	if store.byKey(created.RefID, created.Type) != nil {
		return false, nil
	}
	store.rows = append(store.rows, copyRequest(created))
	return true, nil
}

func (store *Requests) FindByRefID(_ context.Context, refID string, requestType request.Type) (*request.Request, error) {
	store.mu.Lock()
	defer store.mu.Unlock()

	if row := store.byKey(refID, requestType); row != nil {
		return copyRequest(row), nil
	}
	return nil, request.ErrNotFound
}

func (store *Requests) UpsertForgotToken(_ context.Context, refID, token string, at time.Time) (*request.Request, error) {
	store.mu.Lock()
	defer store.mu.Unlock()

	row := store.byKey(refID, request.TypeForgotPassword)
	if row == nil {
		row = &request.Request{ID: store.nextID(), RefID: refID, Type: request.TypeForgotPassword, CreatedAt: at}
		store.rows = append(store.rows, row)
	}
	row.ForgotPasswordToken = token
	row.UpdatedAt = at
	return copyRequest(row), nil
}

func (store *Requests) FindByForgotToken(_ context.Context, token string) (*request.Request, error) {
	store.mu.Lock()
	defer store.mu.Unlock()

	row := store.find(func(row *request.Request) bool {
		return row.Type == request.TypeForgotPassword && row.ForgotPasswordToken == token
	})
	if row == nil {
		return nil, request.ErrNotFound
	}
	return copyRequest(row), nil
}

func (store *Requests) UpsertResetToken(_ context.Context, refID, token string, at time.Time) (*request.Request, error) {
	store.mu.Lock()
	defer store.mu.Unlock()

	row := store.byKey(refID, request.TypeResetPassword)
	if row == nil {
		row = &request.Request{ID: store.nextID(), RefID: refID, Type: request.TypeResetPassword, CreatedAt: at}
		store.rows = append(store.rows, row)
	}
	if row.ResetStatus != request.ResetUnset || row.ResetPasswordToken == "" {
		row.ResetPasswordToken = token
	}
	row.ResetStatus = request.ResetUnset
	row.UpdatedAt = at
	return copyRequest(row), nil
}

func (store *Requests) FindByResetToken(_ context.Context, token string) (*request.Request, error) {
	store.mu.Lock()
	defer store.mu.Unlock()

	row := store.find(func(row *request.Request) bool {
		return row.Type == request.TypeResetPassword && row.ResetPasswordToken == token
	})
	if row == nil {
		return nil, request.ErrNotFound
	}
	return copyRequest(row), nil
}

func (store *Requests) ConsumeReset(_ context.Context, id string, at time.Time) (bool, error) {
	store.mu.Lock()
	defer store.mu.Unlock()

	row := store.find(func(row *request.Request) bool { return row.ID == id })
	if row == nil || row.ResetStatus != request.ResetUnset {
		return false, nil
	}
	row.ResetStatus = request.ResetSet
	row.UpdatedAt = at
	return true, nil
}

// Count returns the number of records stored for an account and type.
func (store *Requests) Count(refID string, requestType request.Type) int {
	store.mu.Lock()
	defer store.mu.Unlock()

	count := 0
	for _, row := range store.rows {
		if row.RefID == refID && row.Type == requestType {
			count++
		}
	}
	return count
}
