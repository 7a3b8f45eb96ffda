// Package queue wraps the three remote procedures the worker runtime
// calls against the persistence layer (spec.md §6): claim_next_batch,
// mark_done, requeue_stale_assigned. The relational store itself is an
// out-of-scope external collaborator (spec.md §1); this package only
// speaks its stable RPC surface over a pgx pool, with the "…_extra"
// vs legacy-name fallback spec.md §9 requires kept strictly additive.
// Grounded on leanlp-BTC-coinjoin's internal/db/postgres.go pgxpool
// idiom (pool-per-process, tx.Begin/Commit/Rollback, PgError code
// inspection) and five82-spindle's status-transition vocabulary for
// queue-like work claiming.
package queue

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/form-sender/formrunner/internal/model"
)

// MarkDoneArgs carries every field mark_done persists, mirroring
// spec.md §6's signature exactly (field_mapping and bot_protection are
// optional evidence, not control fields).
type MarkDoneArgs struct {
	TargetDate      time.Time
	TargetingID     int64
	CompanyID       int64
	Success         bool
	ErrorType       string
	ClassifyDetail  []byte // JSON-encoded model.ClassifyDetail
	FieldMapping    []byte // JSON-encoded model.Mapping, nil when not applicable
	BotProtection   bool
	SubmittedAt     time.Time
	RunID           string
}

// Client wraps a pgx pool and the RPC-name-variant selection policy.
type Client struct {
	pool        *pgxpool.Pool
	useExtra    bool
	extraFailed bool
}

// New wraps an already-connected pool. preferExtra selects the
// "…_extra" table/function variant first, per spec.md §6's
// configuration-driven suffix choice.
func New(pool *pgxpool.Pool, preferExtra bool) *Client {
	return &Client{pool: pool, useExtra: preferExtra}
}

// Connect opens a pgx pool against connStr.
func Connect(ctx context.Context, connStr string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, connStr)
	if err != nil {
		return nil, fmt.Errorf("connect queue store: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping queue store: %w", err)
	}
	return pool, nil
}

func (c *Client) fnName(base string) string {
	if c.useExtra && !c.extraFailed {
		return base + "_extra"
	}
	return base
}

// isMissingFunctionErr reports whether err indicates the called
// function/signature does not exist (Postgres undefined_function,
// SQLSTATE 42883), the only condition spec.md §9 permits as grounds
// for falling back to the legacy name — anything else (a business
// error from within the function) must propagate unchanged.
func isMissingFunctionErr(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "42883"
	}
	return false
}

// ClaimNextBatch atomically transitions one pending queue entry to
// assigned for runID, scoped to targetDate/targetingID and optionally a
// shard and a daily cap (spec.md §6). Returns (Claim{}, false, nil) when
// no entry is available.
func (c *Client) ClaimNextBatch(ctx context.Context, targetDate time.Time, targetingID int64, runID string, shardID *int, maxDaily *int) (model.ClaimResult, bool, error) {
	fn := c.fnName("claim_next_batch")
	sql := fmt.Sprintf(`SELECT company_id, assigned_at FROM %s($1, $2, $3, $4, $5, $6)`, fn)

	var claim model.ClaimResult
	err := c.pool.QueryRow(ctx, sql, targetDate, targetingID, runID, 1, shardID, maxDaily).Scan(&claim.CompanyID, &claim.AssignedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.ClaimResult{}, false, nil
		}
		if c.useExtra && !c.extraFailed && isMissingFunctionErr(err) {
			c.extraFailed = true
			return c.ClaimNextBatch(ctx, targetDate, targetingID, runID, shardID, maxDaily)
		}
		return model.ClaimResult{}, false, fmt.Errorf("claim_next_batch: %w", err)
	}
	return claim, true, nil
}

// MarkDone writes a submissions row and transitions the queue entry
// (spec.md §6). Calling it twice with identical args is idempotent at
// the database layer via an upsert keyed by (target_date, targeting_id,
// company_id, run_id) — enforced by the stored procedure, not here.
func (c *Client) MarkDone(ctx context.Context, a MarkDoneArgs) error {
	fn := c.fnName("mark_done")
	sql := fmt.Sprintf(
		`SELECT %s($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`, fn,
	)
	_, err := c.pool.Exec(ctx, sql,
		a.TargetDate, a.TargetingID, a.CompanyID, a.Success,
		nullableString(a.ErrorType), a.ClassifyDetail, a.FieldMapping,
		a.BotProtection, a.SubmittedAt, a.RunID,
	)
	if err != nil {
		if c.useExtra && !c.extraFailed && isMissingFunctionErr(err) {
			c.extraFailed = true
			return c.MarkDone(ctx, a)
		}
		return fmt.Errorf("mark_done: %w", err)
	}
	return nil
}

// RequeueStaleAssigned reclaims entries assigned more than staleMinutes
// ago back to pending (spec.md §6), returning the count reclaimed.
func (c *Client) RequeueStaleAssigned(ctx context.Context, targetDate time.Time, targetingID int64, staleMinutes int) (int, error) {
	fn := c.fnName("requeue_stale_assigned")
	sql := fmt.Sprintf(`SELECT %s($1, $2, $3)`, fn)

	var count int
	err := c.pool.QueryRow(ctx, sql, targetDate, targetingID, staleMinutes).Scan(&count)
	if err != nil {
		if c.useExtra && !c.extraFailed && isMissingFunctionErr(err) {
			c.extraFailed = true
			return c.RequeueStaleAssigned(ctx, targetDate, targetingID, staleMinutes)
		}
		return 0, fmt.Errorf("requeue_stale_assigned: %w", err)
	}
	return count, nil
}

func nullableString(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
