package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/coverledger/pkg/enums"
)

// Coverage binds a policy to one insured delivery or service. CurrentUsage is
// only ever increased by claim approval.
type Coverage struct {
	ID           uuid.UUID               `gorm:"column:id;type:uuid;primaryKey"`
	PolicyID     uuid.UUID               `gorm:"column:policy_id;type:uuid;not null;index"`
	Policy       *Policy                 `gorm:"foreignKey:PolicyID"`
	EntityType   enums.CoveredEntityType `gorm:"column:entity_type;not null;index:idx_coverages_entity"`
	EntityID     uuid.UUID               `gorm:"column:entity_id;type:uuid;not null;index:idx_coverages_entity"`
	CoverageType enums.CoverageType      `gorm:"column:coverage_type;not null"`
	MaxCoverage  decimal.Decimal         `gorm:"column:max_coverage;type:numeric(14,2);not null"`
	CurrentUsage decimal.Decimal         `gorm:"column:current_usage;type:numeric(14,2);not null;default:0"`
	StartDate    time.Time               `gorm:"column:start_date;not null"`
	EndDate      time.Time               `gorm:"column:end_date;not null"`
	IsActive     bool                    `gorm:"column:is_active;not null"`
	CreatedAt    time.Time               `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time               `gorm:"column:updated_at;autoUpdateTime"`
}

func (c *Coverage) BeforeCreate(*gorm.DB) error {
	assignID(&c.ID)
	return nil
}

// Remaining is the unused part of the ceiling.
func (c Coverage) Remaining() decimal.Decimal {
	return c.MaxCoverage.Sub(c.CurrentUsage)
}

// InForce reports whether the coverage can accept claims at the given time.
func (c Coverage) InForce(at time.Time) bool {
	return c.IsActive && !at.Before(c.StartDate) && !at.After(c.EndDate)
}
