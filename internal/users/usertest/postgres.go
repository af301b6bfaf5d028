// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package usertest

import (
	"context"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/minitube/internal/platform/database/schema"
	"github.com/taibuivan/minitube/internal/platform/migration"
	"github.com/taibuivan/minitube/internal/platform/postgres"
	"github.com/taibuivan/minitube/internal/platform/sec"
	"github.com/taibuivan/minitube/internal/users/account"
	"github.com/taibuivan/minitube/internal/users/verification"
	"github.com/taibuivan/minitube/pkg/uuid"
)

// # PostgreSQL

// EnvDatabaseURL names the database the PostgreSQL repository tests run
// against. Those tests are skipped when it is unset.
const EnvDatabaseURL = "MINITUBE_TEST_DATABASE_URL"

var (
	migrateOnce sync.Once
	migrateErr  error
)

// Postgres returns a pool on the migrated test database, or skips t.
func Postgres(t testing.TB) *pgxpool.Pool {
	t.Helper()

	dsn := os.Getenv(EnvDatabaseURL)
	if dsn == "" {
		t.Skipf("%s is not set", EnvDatabaseURL)
	}

	migrateOnce.Do(func() {
		migrateErr = migration.RunUp(dsn, "", Logger())
	})
	require.NoError(t, migrateErr)

	pool, err := postgres.NewPool(context.Background(), postgres.PoolConfig{DSN: dsn, MaxConns: 20, MinConns: 1}, Logger())
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	return pool
}

// SeedAccount stores an unverified account with identifiers no other test uses.
// The account and every dependent row are removed when t finishes.
func SeedAccount(t testing.TB, pool *pgxpool.Pool) *account.Account {
	t.Helper()

	id := uuid.New()
	seeded := &account.Account{
		ID:          id,
		UID:         uuid.NewRandom(),
		FirstName:   "Ann",
		Email:       id + "@x.com",
		Phone:       id,
		Password:    "Aa1!aaaa",
		Authority:   sec.AuthorityClient,
		EmailStatus: verification.StatusNotVerified,
		PhoneStatus: verification.StatusNotVerified,
		CreatedAt:   time.Now().UTC(),
	}
	require.NoError(t, account.NewRepository(pool).Create(context.Background(), seeded))

	t.Cleanup(func() {
		query := fmt.Sprintf(`DELETE FROM %s WHERE %s = $1`, schema.UserAccount.Table, schema.UserAccount.ID)
		_, _ = pool.Exec(context.Background(), query, id)
	})

	return seeded
}
