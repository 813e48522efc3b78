package outbox

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/coverledger/pkg/db/models"
	pkgerrors "github.com/angelmondragon/coverledger/pkg/errors"
	"github.com/angelmondragon/coverledger/pkg/pagination"
)

const maxDLQErrorLen = 1024

// DLQRepository stores outbox rows the publisher gave up on.
type DLQRepository struct {
	db *gorm.DB
}

func NewDLQRepository(db *gorm.DB) *DLQRepository {
	return &DLQRepository{db: db}
}

// InsertTx records a dead letter in the same transaction that marks the
// outbox row terminal.
func (r *DLQRepository) InsertTx(tx *gorm.DB, entry models.OutboxDLQ) error {
	if tx == nil {
		return pkgerrors.New(pkgerrors.CodeInternal, "dead letter insert requires a transaction")
	}
	if !entry.ErrorReason.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "unknown dead letter reason").
			WithDetails(map[string]any{"reason": entry.ErrorReason.String()})
	}
	if entry.FailedAt.IsZero() {
		entry.FailedAt = time.Now().UTC()
	}
	if entry.ErrorMessage != nil && len(*entry.ErrorMessage) > maxDLQErrorLen {
		clipped := (*entry.ErrorMessage)[:maxDLQErrorLen]
		entry.ErrorMessage = &clipped
	}
	return tx.Create(&entry).Error
}

func (r *DLQRepository) Get(ctx context.Context, eventID uuid.UUID) (*models.OutboxDLQ, error) {
	var entry models.OutboxDLQ
	err := r.db.WithContext(ctx).Where("event_id = ?", eventID).Take(&entry).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "dead letter not found")
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load dead letter")
	}
	return &entry, nil
}

// Page lists dead letters newest first.
func (r *DLQRepository) Page(ctx context.Context, after *pagination.Key, limit int) ([]models.OutboxDLQ, *pagination.Key, error) {
	var rows []models.OutboxDLQ
	query := r.db.WithContext(ctx).Model(&models.OutboxDLQ{})
	if err := pagination.Scope(query, after, pagination.Descending, limit).Find(&rows).Error; err != nil {
		return nil, nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list dead letters")
	}
	page, next := pagination.Cut(rows, limit, func(d models.OutboxDLQ) pagination.Key {
		return pagination.Key{CreatedAt: d.CreatedAt, ID: d.ID}
	})
	return page, next, nil
}

// DeleteBefore drops dead letters that failed before cutoff.
func (r *DLQRepository) DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res := r.db.WithContext(ctx).Where("failed_at < ?", cutoff).Delete(&models.OutboxDLQ{})
	return res.RowsAffected, res.Error
}
