// Package numbering hands out human-readable, per-period sequential numbers
// for policies, claims and warranty claims.
package numbering

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/angelmondragon/coverledger/pkg/enums"
	pkgerrors "github.com/angelmondragon/coverledger/pkg/errors"
	"github.com/angelmondragon/coverledger/pkg/metrics"
)

// Backend atomically increments the counter for (kind, period) and returns
// the new value. tx is the caller's transaction and may be nil.
type Backend interface {
	Increment(ctx context.Context, tx *gorm.DB, kind enums.NumberKind, period string) (int64, error)
}

// Service allocates numbers.
type Service interface {
	Next(ctx context.Context, tx *gorm.DB, kind enums.NumberKind, now time.Time) (string, error)
}

type service struct {
	backend Backend
	metrics *metrics.LedgerMetrics
}

// NewService wires the numbering service with the chosen counter backend.
func NewService(backend Backend, ledgerMetrics *metrics.LedgerMetrics) (Service, error) {
	if backend == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "numbering backend required")
	}
	return &service{backend: backend, metrics: ledgerMetrics}, nil
}

func (s *service) Next(ctx context.Context, tx *gorm.DB, kind enums.NumberKind, now time.Time) (string, error) {
	if !kind.IsValid() {
		return "", pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid number kind %q", kind))
	}
	now = now.UTC()
	seq, err := s.backend.Increment(ctx, tx, kind, Period(kind, now))
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "allocate "+string(kind)+" number")
	}
	s.metrics.IncNumberAllocated(string(kind))
	return Format(kind, now, seq), nil
}

// Period is the counter bucket for kind at now: the calendar year for
// policies, the calendar month for claims and warranty claims.
func Period(kind enums.NumberKind, now time.Time) string {
	now = now.UTC()
	switch kind {
	case enums.NumberKindPolicy:
		return now.Format("2006")
	case enums.NumberKindClaim:
		return now.Format("200601")
	case enums.NumberKindWarrantyClaim:
		return now.Format("0601")
	}
	return now.Format("200601")
}

// Format renders seq as POL{yyyy}{000000}, SIN{yyyymm}{0000} or GAR{yymm}{0000}.
func Format(kind enums.NumberKind, now time.Time, seq int64) string {
	period := Period(kind, now)
	switch kind {
	case enums.NumberKindPolicy:
		return fmt.Sprintf("POL%s%06d", period, seq)
	case enums.NumberKindClaim:
		return fmt.Sprintf("SIN%s%04d", period, seq)
	case enums.NumberKindWarrantyClaim:
		return fmt.Sprintf("GAR%s%04d", period, seq)
	}
	return fmt.Sprintf("%s%s%04d", kind, period, seq)
}

// periodTTL keeps a counter alive across two periods.
func periodTTL(kind enums.NumberKind) time.Duration {
	if kind == enums.NumberKindPolicy {
		return 2 * 366 * 24 * time.Hour
	}
	return 62 * 24 * time.Hour
}
