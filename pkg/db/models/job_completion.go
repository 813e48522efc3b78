package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/coverledger/pkg/enums"
)

// JobCompletion records a finished delivery or service, fed by the order system.
type JobCompletion struct {
	ID          uuid.UUID               `gorm:"column:id;type:uuid;primaryKey"`
	UserID      uuid.UUID               `gorm:"column:user_id;type:uuid;not null;index;uniqueIndex:ux_job_completions_user_entity"`
	EntityType  enums.CoveredEntityType `gorm:"column:entity_type;not null;uniqueIndex:ux_job_completions_user_entity"`
	EntityID    uuid.UUID               `gorm:"column:entity_id;type:uuid;not null;uniqueIndex:ux_job_completions_user_entity"`
	CompletedAt time.Time               `gorm:"column:completed_at;not null"`
	CreatedAt   time.Time               `gorm:"column:created_at;autoCreateTime"`
}

func (j *JobCompletion) BeforeCreate(*gorm.DB) error {
	assignID(&j.ID)
	return nil
}
