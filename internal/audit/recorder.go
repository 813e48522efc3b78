// Package audit keeps the append-only compliance trail of ledger mutations.
package audit

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/angelmondragon/coverledger/pkg/db/models"
	"github.com/angelmondragon/coverledger/pkg/enums"
	pkgerrors "github.com/angelmondragon/coverledger/pkg/errors"
	"github.com/angelmondragon/coverledger/pkg/logger"
	"github.com/angelmondragon/coverledger/pkg/metrics"
)

// Entry describes one mutating action. PerformedBy is nil for system actions.
type Entry struct {
	EntityType  enums.AuditEntityType
	EntityID    uuid.UUID
	Action      enums.AuditAction
	Details     map[string]any
	PerformedBy *uuid.UUID
}

// Recorder writes audit entries after the audited change has committed.
// Record never fails the caller.
type Recorder interface {
	Record(ctx context.Context, entry Entry)
	Trail(ctx context.Context, entityType enums.AuditEntityType, entityID uuid.UUID) ([]models.AuditLog, error)
}

type recorder struct {
	repo    Repository
	logg    *logger.Logger
	metrics *metrics.LedgerMetrics
}

// NewRecorder builds a best-effort audit recorder.
func NewRecorder(repo Repository, logg *logger.Logger, ledgerMetrics *metrics.LedgerMetrics) (Recorder, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "audit repository required")
	}
	if logg == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "logger required")
	}
	return &recorder{repo: repo, logg: logg, metrics: ledgerMetrics}, nil
}

func (r *recorder) Record(ctx context.Context, entry Entry) {
	if err := r.write(ctx, entry); err != nil {
		r.metrics.IncBestEffortFailure("audit")
		r.logg.ErrorFields(ctx, "audit write failed", err, map[string]any{
			"entity_type": string(entry.EntityType),
			"entity_id":   entry.EntityID.String(),
			"action":      string(entry.Action),
		})
	}
}

func (r *recorder) write(ctx context.Context, entry Entry) error {
	if !entry.EntityType.IsValid() {
		return fmt.Errorf("invalid audit entity type %q", entry.EntityType)
	}
	if !entry.Action.IsValid() {
		return fmt.Errorf("invalid audit action %q", entry.Action)
	}
	if entry.EntityID == uuid.Nil {
		return fmt.Errorf("audit entity id required")
	}
	row := &models.AuditLog{
		EntityType:  entry.EntityType,
		EntityID:    entry.EntityID,
		Action:      entry.Action,
		Details:     entry.Details,
		PerformedBy: entry.PerformedBy,
	}
	return r.repo.Create(ctx, row)
}

func (r *recorder) Trail(ctx context.Context, entityType enums.AuditEntityType, entityID uuid.UUID) ([]models.AuditLog, error) {
	if !entityType.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid audit entity type")
	}
	if entityID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "entity id required")
	}
	rows, err := r.repo.ListByEntity(ctx, entityType, entityID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list audit trail")
	}
	return rows, nil
}
