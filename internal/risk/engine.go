// Package risk scores users, deliveries and services from their history and
// keeps the latest assessment per entity.
package risk

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/coverledger/internal/audit"
	"github.com/angelmondragon/coverledger/pkg/config"
	"github.com/angelmondragon/coverledger/pkg/db/models"
	"github.com/angelmondragon/coverledger/pkg/enums"
	pkgerrors "github.com/angelmondragon/coverledger/pkg/errors"
	"github.com/angelmondragon/coverledger/pkg/logger"
)

// ActivitySource reports how many jobs a user has completed.
type ActivitySource interface {
	CountCompletedByUser(ctx context.Context, userID uuid.UUID) (int64, error)
}

type auditRecorder interface {
	Record(ctx context.Context, entry audit.Entry)
}

// Engine assesses entities and lists assessments due for a refresh.
type Engine interface {
	Assess(ctx context.Context, entityType enums.RiskEntityType, entityID uuid.UUID) (*models.RiskAssessment, error)
	Due(ctx context.Context, now time.Time, limit int) ([]models.RiskAssessment, error)
}

// EngineParams groups the engine dependencies.
type EngineParams struct {
	Repository Repository
	Activity   ActivitySource
	Audit      auditRecorder
	Config     config.InsuranceConfig
	Logger     *logger.Logger
}

type engine struct {
	repo          Repository
	activity      ActivitySource
	audit         auditRecorder
	thresholds    Thresholds
	reassessAfter time.Duration
	logg          *logger.Logger
	now           func() time.Time
}

func NewEngine(params EngineParams) (Engine, error) {
	if params.Repository == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "risk repository required")
	}
	if params.Activity == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "activity source required")
	}
	if params.Audit == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "audit recorder required")
	}
	if params.Logger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "logger required")
	}
	reassessAfter := params.Config.ReassessAfter
	if reassessAfter <= 0 {
		reassessAfter = config.DefaultInsurance().ReassessAfter
	}
	return &engine{
		repo:          params.Repository,
		activity:      params.Activity,
		audit:         params.Audit,
		thresholds:    ThresholdsFrom(params.Config),
		reassessAfter: reassessAfter,
		logg:          params.Logger,
		now:           time.Now,
	}, nil
}

func (e *engine) Assess(ctx context.Context, entityType enums.RiskEntityType, entityID uuid.UUID) (*models.RiskAssessment, error) {
	if !entityType.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid risk entity type")
	}
	if entityID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "entity id required")
	}

	inputs, err := e.gather(ctx, entityType, entityID)
	if err != nil {
		return nil, err
	}
	result := Score(inputs, e.thresholds)

	now := e.now().UTC()
	stored, err := e.repo.Upsert(ctx, &models.RiskAssessment{
		EntityType:     entityType,
		EntityID:       entityID,
		Score:          result.Score,
		RiskLevel:      result.Level,
		RiskFactors:    result.Factors,
		LastAssessment: now,
		NextAssessment: now.Add(e.reassessAfter),
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "store risk assessment")
	}

	e.audit.Record(ctx, audit.Entry{
		EntityType: enums.AuditEntityRiskAssessment,
		EntityID:   stored.ID,
		Action:     enums.AuditActionRiskAssessed,
		Details: map[string]any{
			"entity_type": string(entityType),
			"entity_id":   entityID.String(),
			"score":       result.Score,
			"risk_level":  string(result.Level),
		},
	})
	return stored, nil
}

func (e *engine) gather(ctx context.Context, entityType enums.RiskEntityType, entityID uuid.UUID) (Inputs, error) {
	in := Inputs{EntityType: entityType}
	switch entityType {
	case enums.RiskEntityUser:
		jobs, err := e.activity.CountCompletedByUser(ctx, entityID)
		if err != nil {
			return in, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count completed jobs")
		}
		claims, err := e.repo.CountClaimsByClaimant(ctx, entityID)
		if err != nil {
			return in, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count claims by claimant")
		}
		in.CompletedJobs = jobs
		in.ClaimsFiled = claims
	case enums.RiskEntityDelivery, enums.RiskEntityService:
		claims, err := e.repo.CountClaimsOnEntity(ctx, enums.CoveredEntityType(entityType), entityID)
		if err != nil {
			return in, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count claims on entity")
		}
		in.EntityClaims = claims
	}
	return in, nil
}

func (e *engine) Due(ctx context.Context, now time.Time, limit int) ([]models.RiskAssessment, error) {
	rows, err := e.repo.ListDue(ctx, now.UTC(), limit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list due risk assessments")
	}
	return rows, nil
}
