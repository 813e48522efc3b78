package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/angelmondragon/coverledger/pkg/enums"
)

// RiskAssessment keeps only the latest assessment per entity.
type RiskAssessment struct {
	ID             uuid.UUID                   `gorm:"column:id;type:uuid;primaryKey"`
	EntityType     enums.RiskEntityType        `gorm:"column:entity_type;not null;uniqueIndex:ux_risk_assessments_entity"`
	EntityID       uuid.UUID                   `gorm:"column:entity_id;type:uuid;not null;uniqueIndex:ux_risk_assessments_entity"`
	Score          int                         `gorm:"column:score;not null"`
	RiskLevel      enums.RiskLevel             `gorm:"column:risk_level;not null"`
	RiskFactors    datatypes.JSONSlice[string] `gorm:"column:risk_factors"`
	LastAssessment time.Time                   `gorm:"column:last_assessment;not null"`
	NextAssessment time.Time                   `gorm:"column:next_assessment;not null;index"`
	CreatedAt      time.Time                   `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time                   `gorm:"column:updated_at;autoUpdateTime"`
}

func (r *RiskAssessment) BeforeCreate(*gorm.DB) error {
	assignID(&r.ID)
	return nil
}
