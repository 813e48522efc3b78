// Package insurance composes the ledger services behind one embeddable
// Engine. Every dependency is injected; nothing is global.
package insurance

import (
	"context"
	"reflect"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/coverledger/internal/activity"
	"github.com/angelmondragon/coverledger/internal/audit"
	"github.com/angelmondragon/coverledger/internal/claims"
	"github.com/angelmondragon/coverledger/internal/coverage"
	"github.com/angelmondragon/coverledger/internal/notifications"
	"github.com/angelmondragon/coverledger/internal/numbering"
	"github.com/angelmondragon/coverledger/internal/policies"
	"github.com/angelmondragon/coverledger/internal/premium"
	"github.com/angelmondragon/coverledger/internal/risk"
	"github.com/angelmondragon/coverledger/internal/warranties"
	"github.com/angelmondragon/coverledger/pkg/config"
	"github.com/angelmondragon/coverledger/pkg/db"
	"github.com/angelmondragon/coverledger/pkg/db/models"
	"github.com/angelmondragon/coverledger/pkg/enums"
	pkgerrors "github.com/angelmondragon/coverledger/pkg/errors"
	"github.com/angelmondragon/coverledger/pkg/logger"
	"github.com/angelmondragon/coverledger/pkg/metrics"
	"github.com/angelmondragon/coverledger/pkg/outbox"
)

// Inputs and views of the composed services, re-exported for embedders.
type (
	CreatePolicyInput        = policies.CreatePolicyInput
	PremiumInput             = premium.Input
	Quote                    = premium.Quote
	Candidate                = coverage.Candidate
	CreateCoverageInput      = coverage.CreateCoverageInput
	DeliveryTerms            = coverage.DeliveryTerms
	ServiceTerms             = coverage.ServiceTerms
	Verification             = coverage.Verification
	FileClaimInput           = claims.FileClaimInput
	AssessClaimInput         = claims.AssessClaimInput
	ApproveClaimInput        = claims.ApproveClaimInput
	RejectClaimInput         = claims.RejectClaimInput
	CreateWarrantyInput      = warranties.CreateWarrantyInput
	CreateWarrantyClaimInput = warranties.CreateWarrantyClaimInput
	RecordCompletionInput    = activity.RecordCompletionInput
	Notification             = notifications.Notification
	Sink                     = notifications.Sink
	Directory                = notifications.Directory
	ActivitySource           = risk.ActivitySource
	NumberBackend            = numbering.Backend
)

// EngineParams wires the engine. DB and Logger are required. A zero Config
// means config.DefaultInsurance(). Sink defaults to the outbox-backed sink,
// Directory to the configured reviewer ids, Activity to the job_completions
// table and NumberBackend to the database sequence.
type EngineParams struct {
	DB            *db.Client
	Logger        *logger.Logger
	Config        config.InsuranceConfig
	Metrics       *metrics.LedgerMetrics
	Sink          Sink
	Directory     Directory
	Activity      ActivitySource
	NumberBackend NumberBackend
}

type Engine struct {
	numbering  numbering.Service
	audit      audit.Recorder
	activity   activity.Service
	risk       risk.Engine
	premium    premium.Calculator
	policies   policies.Service
	coverage   coverage.Service
	claims     claims.Service
	warranties warranties.Service
}

// withDefaults swaps an unset config for the defaults, keeping any reviewer
// ids. A partly filled config is returned as given and must validate.
func withDefaults(cfg config.InsuranceConfig) config.InsuranceConfig {
	reviewers := cfg.ReviewerIDs
	cfg.ReviewerIDs = nil
	if !reflect.ValueOf(cfg).IsZero() {
		cfg.ReviewerIDs = reviewers
		return cfg
	}
	defaults := config.DefaultInsurance()
	defaults.ReviewerIDs = reviewers
	return defaults
}

func NewEngine(params EngineParams) (*Engine, error) {
	if params.DB == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "db client required")
	}
	if params.Logger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "logger required")
	}
	cfg := withDefaults(params.Config)
	if err := cfg.Validate(); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid insurance config")
	}
	conn := params.DB.DB()

	backend := params.NumberBackend
	if backend == nil {
		backend = numbering.NewDBBackend(conn)
	}
	nums, err := numbering.NewService(backend, params.Metrics)
	if err != nil {
		return nil, err
	}
	recorder, err := audit.NewRecorder(audit.NewRepository(conn), params.Logger, params.Metrics)
	if err != nil {
		return nil, err
	}
	activities, err := activity.NewService(activity.NewRepository(conn))
	if err != nil {
		return nil, err
	}
	source := params.Activity
	if source == nil {
		source = activities
	}
	riskEngine, err := risk.NewEngine(risk.EngineParams{
		Repository: risk.NewRepository(conn),
		Activity:   source,
		Audit:      recorder,
		Config:     cfg,
		Logger:     params.Logger,
	})
	if err != nil {
		return nil, err
	}
	calculator, err := premium.NewCalculator(riskEngine, cfg)
	if err != nil {
		return nil, err
	}
	policySvc, err := policies.NewService(policies.ServiceParams{
		Repository:        policies.NewRepository(conn),
		TransactionRunner: params.DB,
		Numbering:         nums,
		Audit:             recorder,
	})
	if err != nil {
		return nil, err
	}
	coverageSvc, err := coverage.NewService(coverage.ServiceParams{
		Repository:        coverage.NewRepository(conn),
		TransactionRunner: params.DB,
		Policies:          policySvc,
		Audit:             recorder,
		Config:            cfg,
	})
	if err != nil {
		return nil, err
	}

	events := outbox.NewService(outbox.NewRepository(conn), params.Logger)
	sink := params.Sink
	if sink == nil {
		outboxSink, err := notifications.NewOutboxSink(params.DB, events)
		if err != nil {
			return nil, err
		}
		sink = outboxSink
	}
	directory := params.Directory
	if directory == nil {
		static, err := notifications.NewStaticDirectory(cfg.ReviewerIDs)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "reviewer ids")
		}
		directory = static
	}
	notifier, err := notifications.NewNotifier(sink, params.Logger, params.Metrics)
	if err != nil {
		return nil, err
	}

	claimSvc, err := claims.NewService(claims.ServiceParams{
		Repository:        claims.NewRepository(conn),
		TransactionRunner: params.DB,
		Numbering:         nums,
		Outbox:            events,
		Notifier:          notifier,
		Directory:         directory,
		Audit:             recorder,
		Config:            cfg,
		Logger:            params.Logger,
		Metrics:           params.Metrics,
	})
	if err != nil {
		return nil, err
	}
	warrantySvc, err := warranties.NewService(warranties.ServiceParams{
		Repository:        warranties.NewRepository(conn),
		TransactionRunner: params.DB,
		Numbering:         nums,
		Notifier:          notifier,
		Audit:             recorder,
		Config:            cfg,
		Logger:            params.Logger,
	})
	if err != nil {
		return nil, err
	}

	return &Engine{
		numbering:  nums,
		audit:      recorder,
		activity:   activities,
		risk:       riskEngine,
		premium:    calculator,
		policies:   policySvc,
		coverage:   coverageSvc,
		claims:     claimSvc,
		warranties: warrantySvc,
	}, nil
}

func (e *Engine) CreatePolicy(ctx context.Context, input CreatePolicyInput) (*models.Policy, error) {
	return e.policies.CreatePolicy(ctx, input)
}

func (e *Engine) DeactivatePolicy(ctx context.Context, policyID uuid.UUID, actorID *uuid.UUID) error {
	return e.policies.Deactivate(ctx, policyID, actorID)
}

func (e *Engine) CalculatePremium(ctx context.Context, input PremiumInput) (*Quote, error) {
	return e.premium.Calculate(ctx, input)
}

func (e *Engine) CreateCoverage(ctx context.Context, input CreateCoverageInput) ([]models.Coverage, error) {
	return e.coverage.CreateCoverage(ctx, input)
}

func (e *Engine) CreateDeliveryCoverage(ctx context.Context, deliveryID uuid.UUID, terms DeliveryTerms) ([]models.Coverage, error) {
	return e.coverage.CreateDeliveryCoverage(ctx, deliveryID, terms)
}

func (e *Engine) CreateServiceCoverage(ctx context.Context, serviceID uuid.UUID, terms ServiceTerms) ([]models.Coverage, error) {
	return e.coverage.CreateServiceCoverage(ctx, serviceID, terms)
}

func (e *Engine) VerifyCoverage(ctx context.Context, entityType enums.CoveredEntityType, entityID uuid.UUID) (*Verification, error) {
	return e.coverage.VerifyCoverage(ctx, entityType, entityID)
}

// CreateClaim files a claim against one coverage.
func (e *Engine) CreateClaim(ctx context.Context, input FileClaimInput) (*models.Claim, error) {
	return e.claims.FileClaim(ctx, input)
}

func (e *Engine) OpenInvestigation(ctx context.Context, claimID uuid.UUID, actorID *uuid.UUID) (*models.Claim, error) {
	return e.claims.OpenInvestigation(ctx, claimID, actorID)
}

func (e *Engine) AssessClaim(ctx context.Context, input AssessClaimInput) (*models.ClaimAssessment, error) {
	return e.claims.AssessClaim(ctx, input)
}

func (e *Engine) ApproveClaim(ctx context.Context, input ApproveClaimInput) (*models.Claim, error) {
	return e.claims.ApproveClaim(ctx, input)
}

func (e *Engine) RejectClaim(ctx context.Context, input RejectClaimInput) (*models.Claim, error) {
	return e.claims.RejectClaim(ctx, input)
}

func (e *Engine) Claim(ctx context.Context, claimID uuid.UUID) (*models.Claim, error) {
	return e.claims.Get(ctx, claimID)
}

func (e *Engine) ClaimPayment(ctx context.Context, claimID uuid.UUID) (*models.ClaimPayment, error) {
	return e.claims.Payment(ctx, claimID)
}

func (e *Engine) CreateWarranty(ctx context.Context, input CreateWarrantyInput) (*models.Warranty, error) {
	return e.warranties.CreateWarranty(ctx, input)
}

func (e *Engine) CreateServiceWarranty(ctx context.Context, serviceID, providerID, clientID, warrantyID uuid.UUID, durationDays int) (*models.ServiceWarranty, error) {
	return e.warranties.CreateServiceWarranty(ctx, serviceID, providerID, clientID, warrantyID, durationDays)
}

func (e *Engine) CreateDeliveryWarranty(ctx context.Context, deliveryID, delivererID, clientID, warrantyID uuid.UUID) (*models.DeliveryWarranty, error) {
	return e.warranties.CreateDeliveryWarranty(ctx, deliveryID, delivererID, clientID, warrantyID)
}

func (e *Engine) CreateWarrantyClaim(ctx context.Context, input CreateWarrantyClaimInput) (*models.WarrantyClaim, error) {
	return e.warranties.CreateWarrantyClaim(ctx, input)
}

func (e *Engine) AssessRisk(ctx context.Context, entityType enums.RiskEntityType, entityID uuid.UUID) (*models.RiskAssessment, error) {
	return e.risk.Assess(ctx, entityType, entityID)
}

// RecordCompletion feeds the risk engine's job history.
func (e *Engine) RecordCompletion(ctx context.Context, input RecordCompletionInput) (bool, error) {
	return e.activity.RecordCompletion(ctx, input)
}

// NextNumber allocates a human-readable number inside tx. A nil tx runs on its own.
func (e *Engine) NextNumber(ctx context.Context, tx *gorm.DB, kind enums.NumberKind, now time.Time) (string, error) {
	return e.numbering.Next(ctx, tx, kind, now)
}

func (e *Engine) AuditTrail(ctx context.Context, entityType enums.AuditEntityType, entityID uuid.UUID) ([]models.AuditLog, error) {
	return e.audit.Trail(ctx, entityType, entityID)
}

func (e *Engine) ExpireCoverages(ctx context.Context, now time.Time) (int, error) {
	return e.coverage.ExpireEnded(ctx, now)
}

func (e *Engine) ExpireWarranties(ctx context.Context, now time.Time) (int, error) {
	return e.warranties.ExpireEnded(ctx, now)
}

func (e *Engine) DueRiskAssessments(ctx context.Context, now time.Time, limit int) ([]models.RiskAssessment, error) {
	return e.risk.Due(ctx, now, limit)
}
