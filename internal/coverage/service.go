// Package coverage allocates per-job coverages against active policies and
// answers verification queries.
package coverage

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/coverledger/internal/audit"
	"github.com/angelmondragon/coverledger/pkg/config"
	"github.com/angelmondragon/coverledger/pkg/db/models"
	"github.com/angelmondragon/coverledger/pkg/enums"
	pkgerrors "github.com/angelmondragon/coverledger/pkg/errors"
	"github.com/angelmondragon/coverledger/pkg/validation"
)

// PackageDelivery is the delivery service type that also receives loss coverage.
const PackageDelivery = "PACKAGE_DELIVERY"

const expireBatchSize = 500

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type policyFinder interface {
	FindActive(ctx context.Context, tx *gorm.DB, category enums.PolicyCategory, at time.Time) (*models.Policy, error)
}

type auditRecorder interface {
	Record(ctx context.Context, entry audit.Entry)
}

// Service defines coverage allocation and lookup.
type Service interface {
	CreateCoverage(ctx context.Context, input CreateCoverageInput) ([]models.Coverage, error)
	CreateDeliveryCoverage(ctx context.Context, deliveryID uuid.UUID, terms DeliveryTerms) ([]models.Coverage, error)
	CreateServiceCoverage(ctx context.Context, serviceID uuid.UUID, terms ServiceTerms) ([]models.Coverage, error)
	VerifyCoverage(ctx context.Context, entityType enums.CoveredEntityType, entityID uuid.UUID) (*Verification, error)
	ExpireEnded(ctx context.Context, now time.Time) (int, error)
	Get(ctx context.Context, coverageID uuid.UUID) (*models.Coverage, error)
}

// ServiceParams groups dependencies for the coverage service.
type ServiceParams struct {
	Repository        Repository
	TransactionRunner txRunner
	Policies          policyFinder
	Audit             auditRecorder
	Config            config.InsuranceConfig
}

// Candidate is one coverage ceiling to allocate.
type Candidate struct {
	CoverageType enums.CoverageType `json:"coverageType" validate:"required"`
	Amount       decimal.Decimal    `json:"amount" validate:"gt=0"`
}

// CreateCoverageInput allocates one coverage per candidate under the active
// policy of Category, starting now and lasting Duration.
type CreateCoverageInput struct {
	EntityType enums.CoveredEntityType `json:"entityType" validate:"required,oneof=delivery service"`
	EntityID   uuid.UUID               `json:"entityId" validate:"required"`
	Category   enums.PolicyCategory    `json:"category" validate:"required"`
	Candidates []Candidate             `json:"candidates" validate:"required,min=1,dive"`
	Duration   time.Duration           `json:"duration" validate:"gt=0"`
}

// DeliveryTerms are the job attributes delivery ceilings derive from.
type DeliveryTerms struct {
	Budget      *decimal.Decimal `json:"budget"`
	ServiceType string           `json:"serviceType"`
}

// ServiceTerms are the job attributes the liability ceiling derives from.
type ServiceTerms struct {
	Budget *decimal.Decimal `json:"budget"`
}

// Verification is the in-force view of an entity's coverages.
type Verification struct {
	IsActive       bool            `json:"isActive"`
	Coverages      []View          `json:"coverages"`
	TotalRemaining decimal.Decimal `json:"totalRemaining"`
}

type View struct {
	ID          uuid.UUID          `json:"id"`
	Type        enums.CoverageType `json:"type"`
	MaxCoverage decimal.Decimal    `json:"maxCoverage"`
	Remaining   decimal.Decimal    `json:"remainingCoverage"`
	EndDate     time.Time          `json:"endDate"`
	PolicyName  string             `json:"policyName"`
}

type service struct {
	repo     Repository
	tx       txRunner
	policies policyFinder
	audit    auditRecorder
	cfg      config.InsuranceConfig
	now      func() time.Time
}

func NewService(params ServiceParams) (Service, error) {
	if params.Repository == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "coverage repository required")
	}
	if params.TransactionRunner == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "transaction runner required")
	}
	if params.Policies == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "policy service required")
	}
	if params.Audit == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "audit recorder required")
	}
	return &service{
		repo:     params.Repository,
		tx:       params.TransactionRunner,
		policies: params.Policies,
		audit:    params.Audit,
		cfg:      params.Config,
		now:      time.Now,
	}, nil
}

func (s *service) CreateCoverage(ctx context.Context, input CreateCoverageInput) ([]models.Coverage, error) {
	if err := validation.Struct(input); err != nil {
		return nil, err
	}
	if !input.Category.IsValid() {
		return nil, validation.Field("category", "is invalid")
	}
	for _, candidate := range input.Candidates {
		if !candidate.CoverageType.IsValid() {
			return nil, validation.Field("coverageType", "is invalid")
		}
	}

	start := s.now().UTC()
	end := start.Add(input.Duration)
	created := make([]models.Coverage, 0, len(input.Candidates))

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		policy, err := s.policies.FindActive(ctx, tx, input.Category, start)
		if err != nil {
			return err
		}
		repo := s.repo.WithTx(tx)
		for _, candidate := range input.Candidates {
			row := models.Coverage{
				PolicyID:     policy.ID,
				EntityType:   input.EntityType,
				EntityID:     input.EntityID,
				CoverageType: candidate.CoverageType,
				MaxCoverage:  candidate.Amount.Round(2),
				CurrentUsage: decimal.Zero,
				StartDate:    start,
				EndDate:      end,
				IsActive:     true,
			}
			if err := repo.Create(ctx, &row); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create coverage")
			}
			row.Policy = policy
			created = append(created, row)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	for _, row := range created {
		s.audit.Record(ctx, audit.Entry{
			EntityType: enums.AuditEntityCoverage,
			EntityID:   row.ID,
			Action:     enums.AuditActionCreated,
			Details: map[string]any{
				"policy_id":     row.PolicyID.String(),
				"entity_type":   string(row.EntityType),
				"entity_id":     row.EntityID.String(),
				"coverage_type": string(row.CoverageType),
				"max_coverage":  row.MaxCoverage.String(),
			},
		})
	}
	return created, nil
}

func (s *service) CreateDeliveryCoverage(ctx context.Context, deliveryID uuid.UUID, terms DeliveryTerms) ([]models.Coverage, error) {
	candidates, err := DeliveryCandidates(s.cfg, terms)
	if err != nil {
		return nil, err
	}
	return s.CreateCoverage(ctx, CreateCoverageInput{
		EntityType: enums.CoveredEntityDelivery,
		EntityID:   deliveryID,
		Category:   enums.PolicyCategoryGoodsTransport,
		Candidates: candidates,
		Duration:   s.cfg.DeliveryCoverageDuration,
	})
}

func (s *service) CreateServiceCoverage(ctx context.Context, serviceID uuid.UUID, terms ServiceTerms) ([]models.Coverage, error) {
	candidates, err := ServiceCandidates(s.cfg, terms)
	if err != nil {
		return nil, err
	}
	return s.CreateCoverage(ctx, CreateCoverageInput{
		EntityType: enums.CoveredEntityService,
		EntityID:   serviceID,
		Category:   enums.PolicyCategoryProfessionalLiability,
		Candidates: candidates,
		Duration:   s.cfg.ServiceCoverageDuration,
	})
}

// DeliveryCandidates derives the damage ceiling, plus a loss ceiling for
// package deliveries. A missing or zero budget uses the configured default.
func DeliveryCandidates(cfg config.InsuranceConfig, terms DeliveryTerms) ([]Candidate, error) {
	budget := cfg.DefaultDeliveryBudget
	if terms.Budget != nil {
		if terms.Budget.IsNegative() {
			return nil, validation.Field("budget", "must be at least 0")
		}
		if terms.Budget.IsPositive() {
			budget = *terms.Budget
		}
	}

	candidates := []Candidate{{
		CoverageType: enums.CoverageTypeDamage,
		Amount:       decimal.Min(budget.Mul(cfg.DeliveryDamageFactor), cfg.DeliveryDamageCap).Round(2),
	}}
	if terms.ServiceType == PackageDelivery {
		candidates = append(candidates, Candidate{
			CoverageType: enums.CoverageTypeLoss,
			Amount:       decimal.Min(budget.Mul(cfg.DeliveryLossFactor), cfg.DeliveryLossCap).Round(2),
		})
	}
	return candidates, nil
}

// ServiceCandidates derives the single liability ceiling for a service job.
func ServiceCandidates(cfg config.InsuranceConfig, terms ServiceTerms) ([]Candidate, error) {
	amount := cfg.DefaultServiceLiability
	if terms.Budget != nil {
		if terms.Budget.IsNegative() {
			return nil, validation.Field("budget", "must be at least 0")
		}
		if terms.Budget.IsPositive() {
			amount = decimal.Min(terms.Budget.Mul(cfg.ServiceLiabilityFactor), cfg.ServiceLiabilityCap)
		}
	}
	return []Candidate{{CoverageType: enums.CoverageTypeLiability, Amount: amount.Round(2)}}, nil
}

func (s *service) VerifyCoverage(ctx context.Context, entityType enums.CoveredEntityType, entityID uuid.UUID) (*Verification, error) {
	if !entityType.IsValid() {
		return nil, validation.Field("entityType", "is invalid")
	}
	if entityID == uuid.Nil {
		return nil, validation.Field("entityId", "is required")
	}
	rows, err := s.repo.ListInForce(ctx, entityType, entityID, s.now().UTC())
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list coverages")
	}

	out := &Verification{
		IsActive:       len(rows) > 0,
		Coverages:      make([]View, 0, len(rows)),
		TotalRemaining: decimal.Zero,
	}
	for _, row := range rows {
		view := View{
			ID:          row.ID,
			Type:        row.CoverageType,
			MaxCoverage: row.MaxCoverage,
			Remaining:   row.Remaining(),
			EndDate:     row.EndDate,
		}
		if row.Policy != nil {
			view.PolicyName = row.Policy.Name
		}
		out.Coverages = append(out.Coverages, view)
		out.TotalRemaining = out.TotalRemaining.Add(view.Remaining)
	}
	return out, nil
}

// ExpireEnded deactivates coverages whose end date has passed and returns how
// many were switched off.
func (s *service) ExpireEnded(ctx context.Context, now time.Time) (int, error) {
	total := 0
	for {
		ids, err := s.repo.ListEnded(ctx, now.UTC(), expireBatchSize)
		if err != nil {
			return total, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list ended coverages")
		}
		if len(ids) == 0 {
			return total, nil
		}
		affected, err := s.repo.Deactivate(ctx, ids)
		if err != nil {
			return total, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "deactivate coverages")
		}
		total += int(affected)
		for _, id := range ids {
			s.audit.Record(ctx, audit.Entry{
				EntityType: enums.AuditEntityCoverage,
				EntityID:   id,
				Action:     enums.AuditActionExpired,
				Details:    map[string]any{"expired_at": now.UTC().Format(time.RFC3339)},
			})
		}
		if len(ids) < expireBatchSize {
			return total, nil
		}
	}
}

func (s *service) Get(ctx context.Context, coverageID uuid.UUID) (*models.Coverage, error) {
	row, err := s.repo.FindByID(ctx, coverageID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "coverage not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load coverage")
	}
	return row, nil
}
