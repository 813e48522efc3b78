package notifications

import (
	"context"
	"strings"

	pubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"

	"github.com/angelmondragon/coverledger/pkg/db/models"
	"github.com/angelmondragon/coverledger/pkg/enums"
	pkgerrors "github.com/angelmondragon/coverledger/pkg/errors"
	"github.com/angelmondragon/coverledger/pkg/logger"
	"github.com/angelmondragon/coverledger/pkg/outbox/idempotency"
	"github.com/angelmondragon/coverledger/pkg/outbox/payloads"
	"github.com/angelmondragon/coverledger/pkg/outbox/registry"
)

// ConsumerName scopes dedupe claims for notification requests.
const ConsumerName = "notification-requests"

type repository interface {
	Create(ctx context.Context, notification *models.Notification) error
}

// Consumer persists in-app notifications from notification_requested events.
type Consumer struct {
	repo         repository
	subscription *pubsub.Subscriber
	dedupe       *idempotency.Guard
	logg         *logger.Logger
}

// NewConsumer builds a notification consumer.
func NewConsumer(repo repository, subscription *pubsub.Subscriber, guard *idempotency.Guard, logg *logger.Logger) (*Consumer, error) {
	switch {
	case repo == nil:
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "notifications repository required")
	case subscription == nil:
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "notification subscription required")
	case guard == nil:
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "idempotency guard required")
	case logg == nil:
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "logger required")
	}
	return &Consumer{
		repo:         repo,
		subscription: subscription,
		dedupe:       guard,
		logg:         logg,
	}, nil
}

// Run starts the consumer loop until the context is canceled.
func (c *Consumer) Run(ctx context.Context) error {
	return c.subscription.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		result := c.process(ctx, msg.ID, msg.Attributes["event_type"], msg.Data)
		if result.nack {
			msg.Nack()
			return
		}
		msg.Ack()
	})
}

type processResult struct {
	ack  bool
	nack bool
}

func (c *Consumer) process(ctx context.Context, messageID, eventType string, data []byte) processResult {
	logCtx := c.logg.WithFields(ctx, map[string]any{
		"message_id": messageID,
		"event_type": eventType,
	})

	if eventType != string(enums.EventNotificationRequested) {
		c.logg.Info(logCtx, "skipping non-notification event")
		return processResult{ack: true}
	}

	decoded, err := registry.Decode(enums.EventNotificationRequested, data)
	if err != nil {
		c.logg.Error(logCtx, "dropping undecodable notification request", err)
		return processResult{ack: true}
	}
	payload := decoded.Payload.(*payloads.NotificationRequestedEvent)
	if payload.RecipientID == uuid.Nil || !payload.Type.IsValid() {
		c.logg.Warn(logCtx, "dropping malformed notification request")
		return processResult{ack: true}
	}

	eventID := decoded.Envelope.ID()
	logCtx = c.logg.WithField(logCtx, "event_id", eventID.String())
	first, err := c.dedupe.Claim(ctx, eventID)
	if err != nil {
		c.logg.Error(logCtx, "idempotency check failed", err)
		if pkgerrors.Retryable(err) {
			return processResult{nack: true}
		}
		return processResult{ack: true}
	}
	if !first {
		c.logg.Info(logCtx, "event already processed")
		return processResult{ack: true}
	}

	logCtx = c.logg.WithFields(logCtx, map[string]any{
		"recipient_id":      payload.RecipientID.String(),
		"notification_type": string(payload.Type),
	})

	notification := &models.Notification{
		RecipientID: payload.RecipientID,
		Type:        payload.Type,
		Title:       strings.TrimSpace(payload.Title),
		Message:     strings.TrimSpace(payload.Content),
		Metadata:    payload.Metadata,
	}
	if err := c.repo.Create(ctx, notification); err != nil {
		c.logg.Error(logCtx, "notification insert failed", err)
		if forgetErr := c.dedupe.Forget(ctx, eventID); forgetErr != nil {
			c.logg.Error(logCtx, "failed to drop idempotency claim", forgetErr)
		}
		return processResult{nack: true}
	}

	c.logg.Info(logCtx, "notification stored")
	return processResult{ack: true}
}
