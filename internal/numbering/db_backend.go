package numbering

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/angelmondragon/coverledger/pkg/db/models"
	"github.com/angelmondragon/coverledger/pkg/enums"
)

// DBBackend keeps counters in number_sequences. The upsert takes the row lock,
// so concurrent allocators in different transactions queue behind each other
// and a rolled back transaction gives its number back.
type DBBackend struct {
	db *gorm.DB
}

// NewDBBackend returns a backend that falls back to db when no tx is passed.
func NewDBBackend(db *gorm.DB) *DBBackend {
	return &DBBackend{db: db}
}

func (b *DBBackend) Increment(ctx context.Context, tx *gorm.DB, kind enums.NumberKind, period string) (int64, error) {
	conn := tx
	if conn == nil {
		conn = b.db
	}
	if conn == nil {
		return 0, errors.New("numbering database not configured")
	}
	conn = conn.WithContext(ctx)

	row := models.NumberSequence{Kind: kind, Period: period, Value: 1}
	err := conn.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "kind"}, {Name: "period"}},
		DoUpdates: clause.Assignments(map[string]any{
			"value":      gorm.Expr("number_sequences.value + 1"),
			"updated_at": time.Now().UTC(),
		}),
	}).Create(&row).Error
	if err != nil {
		return 0, err
	}

	var current models.NumberSequence
	if err := conn.Where("kind = ? AND period = ?", kind, period).Take(&current).Error; err != nil {
		return 0, err
	}
	return current.Value, nil
}
