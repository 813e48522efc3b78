package notifications

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/coverledger/pkg/enums"
	pkgerrors "github.com/angelmondragon/coverledger/pkg/errors"
	"github.com/angelmondragon/coverledger/pkg/logger"
	"github.com/angelmondragon/coverledger/pkg/metrics"
	"github.com/angelmondragon/coverledger/pkg/outbox"
	"github.com/angelmondragon/coverledger/pkg/outbox/payloads"
	"github.com/angelmondragon/coverledger/pkg/validation"
)

// Notification is one message addressed to one recipient.
type Notification struct {
	RecipientID uuid.UUID
	Type        enums.NotificationType
	Title       string
	Content     string
	Metadata    map[string]any
}

// Sink delivers notifications. Delivery mechanics live behind it.
type Sink interface {
	Notify(ctx context.Context, n Notification) error
}

// Directory resolves the claims review team.
type Directory interface {
	Reviewers(ctx context.Context) ([]uuid.UUID, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type eventEmitter interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// OutboxSink queues a notification_requested event in its own transaction.
type OutboxSink struct {
	tx     txRunner
	outbox eventEmitter
}

func NewOutboxSink(tx txRunner, emitter eventEmitter) (*OutboxSink, error) {
	if tx == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "transaction runner required")
	}
	if emitter == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "outbox emitter required")
	}
	return &OutboxSink{tx: tx, outbox: emitter}, nil
}

func (s *OutboxSink) Notify(ctx context.Context, n Notification) error {
	if n.RecipientID == uuid.Nil {
		return validation.Field("recipientId", "is required")
	}
	if !n.Type.IsValid() {
		return pkgerrors.Newf(pkgerrors.CodeValidation, "unknown notification type %q", n.Type)
	}
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventNotificationRequested,
			AggregateType: enums.AggregateNotification,
			AggregateID:   n.RecipientID,
			Data: payloads.NotificationRequestedEvent{
				RecipientID: n.RecipientID,
				Type:        n.Type,
				Title:       n.Title,
				Content:     n.Content,
				Metadata:    n.Metadata,
			},
		})
	})
}

// StaticDirectory serves a fixed reviewer list, typically from config.
type StaticDirectory struct {
	reviewers []uuid.UUID
}

// NewStaticDirectory parses reviewer ids, ignoring blanks.
func NewStaticDirectory(ids []string) (*StaticDirectory, error) {
	out := make([]uuid.UUID, 0, len(ids))
	for _, raw := range ids {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		id, err := uuid.Parse(raw)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, fmt.Sprintf("invalid reviewer id %q", raw))
		}
		out = append(out, id)
	}
	return &StaticDirectory{reviewers: out}, nil
}

func (d *StaticDirectory) Reviewers(context.Context) ([]uuid.UUID, error) {
	out := make([]uuid.UUID, len(d.reviewers))
	copy(out, d.reviewers)
	return out, nil
}

// Notifier sends notifications on a best-effort basis: failures are logged and
// counted, never returned.
type Notifier struct {
	sink    Sink
	logg    *logger.Logger
	metrics *metrics.LedgerMetrics
}

func NewNotifier(sink Sink, logg *logger.Logger, ledgerMetrics *metrics.LedgerMetrics) (*Notifier, error) {
	if sink == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "notification sink required")
	}
	if logg == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "logger required")
	}
	return &Notifier{sink: sink, logg: logg, metrics: ledgerMetrics}, nil
}

func (n *Notifier) Send(ctx context.Context, msg Notification) {
	if err := n.sink.Notify(ctx, msg); err != nil {
		n.metrics.IncBestEffortFailure("notification")
		n.logg.ErrorFields(ctx, "notification dispatch failed", err, map[string]any{
			"recipient_id":      msg.RecipientID.String(),
			"notification_type": string(msg.Type),
		})
	}
}

// SendAll sends the same message to every recipient.
func (n *Notifier) SendAll(ctx context.Context, recipients []uuid.UUID, msg Notification) {
	for _, id := range recipients {
		msg.RecipientID = id
		n.Send(ctx, msg)
	}
}
