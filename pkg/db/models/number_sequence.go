package models

import (
	"time"

	"github.com/angelmondragon/coverledger/pkg/enums"
)

// NumberSequence is the per-kind, per-period counter behind human-readable numbers.
type NumberSequence struct {
	Kind      enums.NumberKind `gorm:"column:kind;primaryKey"`
	Period    string           `gorm:"column:period;primaryKey"`
	Value     int64            `gorm:"column:value;not null"`
	UpdatedAt time.Time        `gorm:"column:updated_at;autoUpdateTime"`
}
