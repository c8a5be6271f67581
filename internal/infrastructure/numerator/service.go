// Package numerator provides PostgreSQL implementation of document auto-numbering.
// This is the infrastructure layer - it implements core/numerator.Generator interface.
package numerator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"

	"tradeflow/internal/core/id"
	corenumerator "tradeflow/internal/core/numerator"
	"tradeflow/internal/core/retry"
	"tradeflow/pkg/logger"
)

// Querier interface for database operations.
type Querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// QuerierProvider returns the querier bound to ctx (transaction or pool).
type QuerierProvider func(ctx context.Context) Querier

var errNumberTaken = errors.New("document number already taken")

// Service issues document numbers and probes the target table for uniqueness.
type Service struct {
	querier     QuerierProvider
	maxAttempts int
	now         func() time.Time
	random      func() string
}

// Ensure compile-time interface compliance.
var _ corenumerator.Generator = (*Service)(nil)

// New creates a numerator service. maxAttempts bounds the counter suffix.
func New(querier QuerierProvider, maxAttempts int) *Service {
	if maxAttempts <= 0 {
		maxAttempts = corenumerator.DefaultMaxAttempts
	}
	return &Service{
		querier:     querier,
		maxAttempts: maxAttempts,
		now:         func() time.Time { return time.Now().UTC() },
		random:      randomSuffix,
	}
}

// Next generates a unique document number.
// Pattern: PREFIX-YYYYMMDD-XXXXXX, then PREFIX-YYYYMMDD-XXXXXX-NNN on collision.
func (s *Service) Next(ctx context.Context, cfg corenumerator.Config) string {
	now := s.now()
	base := fmt.Sprintf("%s-%s-%s", cfg.Prefix, now.Format("20060102"), s.random())

	number, err := retry.Do(ctx, retry.Policy{
		MaxAttempts: s.maxAttempts + 1,
		Retryable:   func(err error) bool { return errors.Is(err, errNumberTaken) },
	}, func(ctx context.Context, attempt int) (string, error) {
		candidate := base
		if attempt > 0 {
			candidate = fmt.Sprintf("%s-%03d", base, attempt)
		}
		taken, err := s.exists(ctx, cfg, candidate)
		if err != nil {
			return "", err
		}
		if taken {
			logger.Debug(ctx, "document number taken", "table", cfg.Table, "number", candidate)
			return "", errNumberTaken
		}
		return candidate, nil
	})
	if err == nil {
		return number
	}

	fallback := fmt.Sprintf("%s-%s-%d", cfg.Prefix, now.Format("20060102"), now.UnixNano())
	logger.Warn(ctx, "document number fallback",
		"prefix", cfg.Prefix,
		"table", cfg.Table,
		"number", fallback,
		"error", err)
	return fallback
}

// exists probes cfg.Table for candidate.
func (s *Service) exists(ctx context.Context, cfg corenumerator.Config, candidate string) (bool, error) {
	if cfg.Table == "" {
		return false, nil
	}
	column := cfg.Column
	if column == "" {
		column = "number"
	}

	sql, args, err := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar).
		Select("1").
		From(cfg.Table).
		Where(squirrel.Eq{column: candidate}).
		Limit(1).
		ToSql()
	if err != nil {
		return false, fmt.Errorf("build number probe: %w", err)
	}

	var one int
	err = s.querier(ctx).QueryRow(ctx, sql, args...).Scan(&one)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("probe %s.%s: %w", cfg.Table, column, err)
	}
	return true, nil
}

func randomSuffix() string {
	return id.RandomHex(6)
}
