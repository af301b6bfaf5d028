// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package database carries an open transaction through [context.Context] so that
// repositories written against a pool transparently join it.
//
// # Usage
//
//	err := transactor.WithinTx(ctx, func(ctx context.Context) error {
//	    if err := accounts.Create(ctx, account); err != nil {
//	        return err
//	    }
//	    return challenges.Insert(ctx, challenge)
//	})
//
// Inside the callback every repository call that resolves its handle with [Conn]
// runs on the same transaction. Returning an error rolls everything back.
package database

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/taibuivan/minitube/internal/platform/ctxkey"
)

// Querier is the subset of pgx used by repositories.
// Both [*pgxpool.Pool] and [pgx.Tx] satisfy this interface.
type Querier interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Transactor runs a function inside a single database transaction.
type Transactor interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// Conn returns the transaction carried by ctx, or fallback when there is none.
func Conn(ctx context.Context, fallback Querier) Querier {
	if tx, ok := ctx.Value(ctxkey.KeyTx).(pgx.Tx); ok {
		return tx
	}
	return fallback
}

// PgxTransactor implements [Transactor] on a pgx connection pool.
type PgxTransactor struct {
	pool *pgxpool.Pool
}

// NewTransactor creates a [PgxTransactor] on pool.
func NewTransactor(pool *pgxpool.Pool) *PgxTransactor {
	return &PgxTransactor{pool: pool}
}

// WithinTx begins a transaction, runs fn with a context carrying it, and commits
// on success or rolls back on error. A call made while a transaction is already
// open in ctx joins that transaction instead of nesting.
func (transactor *PgxTransactor) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := ctx.Value(ctxkey.KeyTx).(pgx.Tx); ok {
		return fn(ctx)
	}

	err := pgx.BeginFunc(ctx, transactor.pool, func(tx pgx.Tx) error {
		return fn(context.WithValue(ctx, ctxkey.KeyTx, tx))
	})
	if err != nil {
		return fmt.Errorf("database_tx_failed: %w", err)
	}
	return nil
}
