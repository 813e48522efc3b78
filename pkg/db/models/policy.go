package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/angelmondragon/coverledger/pkg/enums"
)

// Policy is an insurance product offered by the platform. Rows are soft
// deactivated through IsActive and never deleted.
type Policy struct {
	ID              uuid.UUID                   `gorm:"column:id;type:uuid;primaryKey"`
	PolicyNumber    string                      `gorm:"column:policy_number;not null;uniqueIndex"`
	Name            string                      `gorm:"column:name;not null"`
	Category        enums.PolicyCategory        `gorm:"column:category;not null;index"`
	CoverageAmount  decimal.Decimal             `gorm:"column:coverage_amount;type:numeric(14,2);not null"`
	Deductible      decimal.Decimal             `gorm:"column:deductible;type:numeric(14,2);not null"`
	PremiumAmount   decimal.Decimal             `gorm:"column:premium_amount;type:numeric(14,2);not null"`
	StartDate       time.Time                   `gorm:"column:start_date;not null"`
	EndDate         time.Time                   `gorm:"column:end_date;not null"`
	Terms           string                      `gorm:"column:terms"`
	CoverageDetails datatypes.JSONMap           `gorm:"column:coverage_details"`
	Exclusions      datatypes.JSONSlice[string] `gorm:"column:exclusions"`
	IsActive        bool                        `gorm:"column:is_active;not null"`
	CreatedBy       *uuid.UUID                  `gorm:"column:created_by;type:uuid"`
	CreatedAt       time.Time                   `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time                   `gorm:"column:updated_at;autoUpdateTime"`
}

func (p *Policy) BeforeCreate(*gorm.DB) error {
	assignID(&p.ID)
	return nil
}

// CoversAt reports whether the policy is active with a window containing at.
func (p Policy) CoversAt(at time.Time) bool {
	return p.IsActive && !at.Before(p.StartDate) && at.Before(p.EndDate)
}
