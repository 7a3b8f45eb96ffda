// Package companystore implements the direct-table operations the
// worker runtime needs beyond the three stable RPCs in internal/queue
// (spec.md §6): fetching a company row, flagging it
// prohibition-detected or blacklisted, checking for an existing
// submission today (the fail-closed duplicate guard), and counting a
// tenant's successes today (the daily-cap cache source). Table names
// are configuration-driven (COMPANY_TABLE / SEND_QUEUE_TABLE, spec.md
// §6's environment variables), mirroring queue.Client's RPC
// name-variant selection but for bare table identifiers rather than
// function names. Grounded on leanlp-BTC-coinjoin's internal/db
// pgxpool idiom, reused from internal/queue.
package companystore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/form-sender/formrunner/internal/model"
)

// DefaultCompanyTable and DefaultSubmissionsTable are used when the
// corresponding environment variable is unset.
const (
	DefaultCompanyTable     = "companies"
	DefaultSubmissionsTable = "send_queue"
)

// Store wraps a pgx pool and the two configurable table names.
type Store struct {
	pool             *pgxpool.Pool
	companyTable     string
	submissionsTable string
}

// New builds a Store. Empty table names fall back to the defaults.
func New(pool *pgxpool.Pool, companyTable, submissionsTable string) *Store {
	if companyTable == "" {
		companyTable = DefaultCompanyTable
	}
	if submissionsTable == "" {
		submissionsTable = DefaultSubmissionsTable
	}
	return &Store{pool: pool, companyTable: companyTable, submissionsTable: submissionsTable}
}

// FetchCompany loads one company row by id.
func (s *Store) FetchCompany(ctx context.Context, companyID int64) (model.Company, error) {
	sql := fmt.Sprintf(`SELECT id, name, form_url, blacklisted, COALESCE(client_scope, '') FROM %s WHERE id = $1`, s.companyTable)
	var c model.Company
	err := s.pool.QueryRow(ctx, sql, companyID).Scan(&c.ID, &c.Name, &c.FormURL, &c.Blacklisted, &c.ClientScope)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Company{}, fmt.Errorf("fetch company %d: not found", companyID)
		}
		return model.Company{}, fmt.Errorf("fetch company %d: %w", companyID, err)
	}
	return c, nil
}

// SetProhibitionDetected flags a company as having triggered the
// prohibition detector, so future runs can skip it faster.
func (s *Store) SetProhibitionDetected(ctx context.Context, companyID int64) error {
	sql := fmt.Sprintf(`UPDATE %s SET prohibition_detected = true WHERE id = $1`, s.companyTable)
	if _, err := s.pool.Exec(ctx, sql, companyID); err != nil {
		return fmt.Errorf("set prohibition_detected for company %d: %w", companyID, err)
	}
	return nil
}

// SetBlacklisted flags a company as blacklisted (spec.md §4.8's
// NO_MESSAGE_AREA outcome).
func (s *Store) SetBlacklisted(ctx context.Context, companyID int64) error {
	sql := fmt.Sprintf(`UPDATE %s SET blacklisted = true WHERE id = $1`, s.companyTable)
	if _, err := s.pool.Exec(ctx, sql, companyID); err != nil {
		return fmt.Errorf("set blacklisted for company %d: %w", companyID, err)
	}
	return nil
}

// HasSubmissionToday reports whether a submissions row already exists
// for this (targeting, company, date) triple — the fail-closed
// duplicate guard the worker consults before any DOM work.
func (s *Store) HasSubmissionToday(ctx context.Context, targetingID, companyID int64, targetDate time.Time) (bool, error) {
	sql := fmt.Sprintf(`SELECT EXISTS(SELECT 1 FROM %s WHERE targeting_id = $1 AND company_id = $2 AND submitted_at::date = $3::date)`, s.submissionsTable)
	var exists bool
	if err := s.pool.QueryRow(ctx, sql, targetingID, companyID, targetDate).Scan(&exists); err != nil {
		return false, fmt.Errorf("check existing submission: %w", err)
	}
	return exists, nil
}

// CountSuccessesToday counts successful submissions for a tenant on
// targetDate, backing runner.SuccessCache's daily-cap check.
func (s *Store) CountSuccessesToday(ctx context.Context, targetingID int64, targetDate time.Time) (int, error) {
	sql := fmt.Sprintf(`SELECT COUNT(*) FROM %s WHERE targeting_id = $1 AND success = true AND submitted_at::date = $2::date`, s.submissionsTable)
	var count int
	if err := s.pool.QueryRow(ctx, sql, targetingID, targetDate).Scan(&count); err != nil {
		return 0, fmt.Errorf("count successes today: %w", err)
	}
	return count, nil
}
