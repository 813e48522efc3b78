package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"

	"github.com/angelmondragon/coverledger/pkg/db/models"
	"github.com/angelmondragon/coverledger/pkg/enums"
	"github.com/angelmondragon/coverledger/pkg/logger"
)

const defaultReassessBatch = 200

type riskEngine interface {
	Due(ctx context.Context, now time.Time, limit int) ([]models.RiskAssessment, error)
	Assess(ctx context.Context, entityType enums.RiskEntityType, entityID uuid.UUID) (*models.RiskAssessment, error)
}

type RiskReassessmentJobParams struct {
	Logger    *logger.Logger
	Engine    riskEngine
	BatchSize int
}

// NewRiskReassessmentJob recomputes assessments whose next assessment date has passed.
func NewRiskReassessmentJob(params RiskReassessmentJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Engine == nil {
		return nil, fmt.Errorf("risk engine required")
	}
	batch := params.BatchSize
	if batch <= 0 {
		batch = defaultReassessBatch
	}
	return &riskReassessmentJob{logg: params.Logger, engine: params.Engine, batch: batch, now: time.Now}, nil
}

type riskReassessmentJob struct {
	logg   *logger.Logger
	engine riskEngine
	batch  int
	now    func() time.Time
}

func (j *riskReassessmentJob) Name() string { return "risk-reassessment" }

// Run reassesses one batch. A failing row does not stop the rest; failures are combined.
func (j *riskReassessmentJob) Run(ctx context.Context) error {
	due, err := j.engine.Due(ctx, j.now().UTC(), j.batch)
	if err != nil {
		return fmt.Errorf("list due assessments: %w", err)
	}
	var errs error
	reassessed := 0
	for _, row := range due {
		if ctx.Err() != nil {
			errs = multierr.Append(errs, ctx.Err())
			break
		}
		if _, err := j.engine.Assess(ctx, row.EntityType, row.EntityID); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("reassess %s %s: %w", row.EntityType, row.EntityID, err))
			continue
		}
		reassessed++
	}
	j.logg.Info(j.logg.WithFields(ctx, map[string]any{
		"due":        len(due),
		"reassessed": reassessed,
		"failed":     len(multierr.Errors(errs)),
	}), "risk reassessment complete")
	return errs
}
