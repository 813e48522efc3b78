package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/angelmondragon/coverledger/pkg/enums"
)

// AuditLog is append-only. PerformedBy is nil for system-initiated actions.
type AuditLog struct {
	ID          uuid.UUID             `gorm:"column:id;type:uuid;primaryKey"`
	EntityType  enums.AuditEntityType `gorm:"column:entity_type;not null;index:idx_audit_logs_entity"`
	EntityID    uuid.UUID             `gorm:"column:entity_id;type:uuid;not null;index:idx_audit_logs_entity"`
	Action      enums.AuditAction     `gorm:"column:action;not null"`
	Details     datatypes.JSONMap     `gorm:"column:details"`
	PerformedBy *uuid.UUID            `gorm:"column:performed_by;type:uuid"`
	CreatedAt   time.Time             `gorm:"column:created_at;autoCreateTime"`
}

func (a *AuditLog) BeforeCreate(*gorm.DB) error {
	assignID(&a.ID)
	return nil
}
