// Package premium prices coverage from a base premium, the entity's risk
// level and the coverage duration.
package premium

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/coverledger/pkg/config"
	"github.com/angelmondragon/coverledger/pkg/db/models"
	"github.com/angelmondragon/coverledger/pkg/enums"
	pkgerrors "github.com/angelmondragon/coverledger/pkg/errors"
	"github.com/angelmondragon/coverledger/pkg/validation"
)

var daysPerYear = decimal.NewFromInt(365)

type riskAssessor interface {
	Assess(ctx context.Context, entityType enums.RiskEntityType, entityID uuid.UUID) (*models.RiskAssessment, error)
}

// Input describes the coverage being priced.
type Input struct {
	EntityType   enums.RiskEntityType `json:"entityType" validate:"required,oneof=user delivery service"`
	EntityID     uuid.UUID            `json:"entityId" validate:"required"`
	CoverageType enums.CoverageType   `json:"coverageType" validate:"required"`
	BasePremium  decimal.Decimal      `json:"basePremium" validate:"gte=0"`
	DurationDays int                  `json:"durationDays" validate:"gt=0"`
}

// Quote is the priced result. FinalPremium is rounded half up to cents.
type Quote struct {
	CoverageType       enums.CoverageType `json:"coverageType"`
	BasePremium        decimal.Decimal    `json:"basePremium"`
	RiskMultiplier     decimal.Decimal    `json:"riskMultiplier"`
	DurationMultiplier decimal.Decimal    `json:"durationMultiplier"`
	FinalPremium       decimal.Decimal    `json:"finalPremium"`
	RiskLevel          enums.RiskLevel    `json:"riskLevel"`
	RiskScore          int                `json:"riskScore"`
	RiskFactors        []string           `json:"riskFactors"`
}

type Calculator interface {
	Calculate(ctx context.Context, input Input) (*Quote, error)
}

type calculator struct {
	risk        riskAssessor
	multipliers map[enums.RiskLevel]decimal.Decimal
}

func NewCalculator(risk riskAssessor, cfg config.InsuranceConfig) (Calculator, error) {
	if risk == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "risk engine required")
	}
	return &calculator{
		risk: risk,
		multipliers: map[enums.RiskLevel]decimal.Decimal{
			enums.RiskLevelLow:      cfg.LowRiskMultiplier,
			enums.RiskLevelMedium:   cfg.MediumRiskMultiplier,
			enums.RiskLevelHigh:     cfg.HighRiskMultiplier,
			enums.RiskLevelCritical: cfg.CriticalRiskMultiplier,
		},
	}, nil
}

// Calculate assesses the entity, which refreshes its stored assessment, and
// prices the coverage.
func (c *calculator) Calculate(ctx context.Context, input Input) (*Quote, error) {
	if err := validation.Struct(input); err != nil {
		return nil, err
	}
	if !input.CoverageType.IsValid() {
		return nil, validation.Field("coverageType", "is invalid")
	}

	assessment, err := c.risk.Assess(ctx, input.EntityType, input.EntityID)
	if err != nil {
		return nil, err
	}
	multiplier, ok := c.multipliers[assessment.RiskLevel]
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "no multiplier for risk level "+string(assessment.RiskLevel))
	}
	duration := DurationMultiplier(input.DurationDays)

	return &Quote{
		CoverageType:       input.CoverageType,
		BasePremium:        input.BasePremium,
		RiskMultiplier:     multiplier,
		DurationMultiplier: duration,
		FinalPremium:       Price(input.BasePremium, multiplier, input.DurationDays),
		RiskLevel:          assessment.RiskLevel,
		RiskScore:          assessment.Score,
		RiskFactors:        append([]string{}, assessment.RiskFactors...),
	}, nil
}

// DurationMultiplier is max(1, days/365) to 8 places, as reported on a quote.
// Price does not use it.
func DurationMultiplier(days int) decimal.Decimal {
	m := decimal.NewFromInt(int64(days)).DivRound(daysPerYear, 8)
	if m.LessThan(decimal.NewFromInt(1)) {
		return decimal.NewFromInt(1)
	}
	return m
}

// Price is base x risk x max(1, days/365) rounded half away from zero to 2
// places. The division by 365 is the last step so nothing is rounded early.
func Price(base, riskMultiplier decimal.Decimal, days int) decimal.Decimal {
	product := base.Mul(riskMultiplier)
	if days <= 365 {
		return product.Round(2)
	}
	return product.Mul(decimal.NewFromInt(int64(days))).DivRound(daysPerYear, 2)
}
