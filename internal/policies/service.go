// Package policies manages the insurance products coverages are drawn from.
package policies

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/coverledger/internal/audit"
	"github.com/angelmondragon/coverledger/pkg/db/models"
	"github.com/angelmondragon/coverledger/pkg/enums"
	pkgerrors "github.com/angelmondragon/coverledger/pkg/errors"
	"github.com/angelmondragon/coverledger/pkg/validation"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type numberAllocator interface {
	Next(ctx context.Context, tx *gorm.DB, kind enums.NumberKind, now time.Time) (string, error)
}

type auditRecorder interface {
	Record(ctx context.Context, entry audit.Entry)
}

// Service defines the policy lifecycle.
type Service interface {
	CreatePolicy(ctx context.Context, input CreatePolicyInput) (*models.Policy, error)
	Deactivate(ctx context.Context, policyID uuid.UUID, actorID *uuid.UUID) error
	Get(ctx context.Context, policyID uuid.UUID) (*models.Policy, error)
	FindActive(ctx context.Context, tx *gorm.DB, category enums.PolicyCategory, at time.Time) (*models.Policy, error)
}

// ServiceParams groups dependencies for the policy service.
type ServiceParams struct {
	Repository        Repository
	TransactionRunner txRunner
	Numbering         numberAllocator
	Audit             auditRecorder
}

// CreatePolicyInput describes a new insurance product. The validity window is
// [StartDate, EndDate).
type CreatePolicyInput struct {
	Name            string               `json:"name" validate:"required,max=200"`
	Category        enums.PolicyCategory `json:"category" validate:"required"`
	CoverageAmount  decimal.Decimal      `json:"coverageAmount" validate:"gt=0"`
	Deductible      decimal.Decimal      `json:"deductible" validate:"gte=0"`
	PremiumAmount   decimal.Decimal      `json:"premiumAmount" validate:"gt=0"`
	StartDate       time.Time            `json:"startDate" validate:"required"`
	EndDate         time.Time            `json:"endDate" validate:"required"`
	Terms           string               `json:"terms"`
	CoverageDetails map[string]any       `json:"coverageDetails"`
	Exclusions      []string             `json:"exclusions"`
	CreatedBy       *uuid.UUID           `json:"createdBy"`
}

type service struct {
	repo      Repository
	tx        txRunner
	numbering numberAllocator
	audit     auditRecorder
	now       func() time.Time
}

func NewService(params ServiceParams) (Service, error) {
	if params.Repository == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "policy repository required")
	}
	if params.TransactionRunner == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "transaction runner required")
	}
	if params.Numbering == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "numbering service required")
	}
	if params.Audit == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "audit recorder required")
	}
	return &service{
		repo:      params.Repository,
		tx:        params.TransactionRunner,
		numbering: params.Numbering,
		audit:     params.Audit,
		now:       time.Now,
	}, nil
}

func (s *service) CreatePolicy(ctx context.Context, input CreatePolicyInput) (*models.Policy, error) {
	if err := validation.Struct(input); err != nil {
		return nil, err
	}
	if !input.Category.IsValid() {
		return nil, validation.Field("category", "is invalid")
	}
	if !input.StartDate.Before(input.EndDate) {
		return nil, validation.Field("endDate", "must be after startDate")
	}
	if input.Deductible.GreaterThan(input.CoverageAmount) {
		return nil, validation.Field("deductible", "must not exceed coverageAmount")
	}

	exclusions := input.Exclusions
	if exclusions == nil {
		exclusions = []string{}
	}
	policy := &models.Policy{
		Name:            input.Name,
		Category:        input.Category,
		CoverageAmount:  input.CoverageAmount,
		Deductible:      input.Deductible,
		PremiumAmount:   input.PremiumAmount,
		StartDate:       input.StartDate.UTC(),
		EndDate:         input.EndDate.UTC(),
		Terms:           input.Terms,
		CoverageDetails: input.CoverageDetails,
		Exclusions:      exclusions,
		IsActive:        true,
		CreatedBy:       input.CreatedBy,
	}

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		number, err := s.numbering.Next(ctx, tx, enums.NumberKindPolicy, s.now())
		if err != nil {
			return err
		}
		policy.PolicyNumber = number
		if err := s.repo.WithTx(tx).Create(ctx, policy); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create policy")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.audit.Record(ctx, audit.Entry{
		EntityType:  enums.AuditEntityPolicy,
		EntityID:    policy.ID,
		Action:      enums.AuditActionCreated,
		PerformedBy: input.CreatedBy,
		Details: map[string]any{
			"policy_number":   policy.PolicyNumber,
			"category":        string(policy.Category),
			"coverage_amount": policy.CoverageAmount.String(),
		},
	})
	return policy, nil
}

func (s *service) Deactivate(ctx context.Context, policyID uuid.UUID, actorID *uuid.UUID) error {
	if policyID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "policy id required")
	}
	changed, err := s.repo.Deactivate(ctx, policyID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "deactivate policy")
	}
	if !changed {
		if _, err := s.Get(ctx, policyID); err != nil {
			return err
		}
		return nil
	}
	s.audit.Record(ctx, audit.Entry{
		EntityType:  enums.AuditEntityPolicy,
		EntityID:    policyID,
		Action:      enums.AuditActionDeactivated,
		PerformedBy: actorID,
	})
	return nil
}

func (s *service) Get(ctx context.Context, policyID uuid.UUID) (*models.Policy, error) {
	policy, err := s.repo.FindByID(ctx, policyID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "policy not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load policy")
	}
	return policy, nil
}

// FindActive fails with NO_ACTIVE_POLICY when no policy of category is in force at.
func (s *service) FindActive(ctx context.Context, tx *gorm.DB, category enums.PolicyCategory, at time.Time) (*models.Policy, error) {
	policy, err := s.repo.WithTx(tx).FindActive(ctx, category, at.UTC())
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNoActivePolicy, "no active policy for category "+string(category)).
				WithDetails(map[string]any{"category": string(category)})
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "find active policy")
	}
	return policy, nil
}
