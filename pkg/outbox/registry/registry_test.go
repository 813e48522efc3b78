package registry

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/coverledger/pkg/config"
	"github.com/angelmondragon/coverledger/pkg/db/models"
	"github.com/angelmondragon/coverledger/pkg/enums"
	"github.com/angelmondragon/coverledger/pkg/outbox"
	"github.com/angelmondragon/coverledger/pkg/outbox/payloads"
)

func envelope(t *testing.T, version int, data string) []byte {
	t.Helper()
	raw, err := json.Marshal(outbox.PayloadEnvelope{
		Version:    version,
		EventID:    uuid.NewString(),
		OccurredAt: time.Date(2026, time.October, 1, 0, 0, 0, 0, time.UTC),
		Data:       json.RawMessage(data),
	})
	require.NoError(t, err)
	return raw
}

func newTestRegistry(t *testing.T) *EventRegistry {
	t.Helper()
	reg, err := NewEventRegistry(config.PubSubConfig{NotificationTopic: "notification-topic", PaymentsTopic: "payments-topic"})
	require.NoError(t, err)
	return reg
}

func TestResolveRoutesClaimPayments(t *testing.T) {
	reg := newTestRegistry(t)
	claimID := uuid.New()
	data, err := json.Marshal(payloads.ClaimPaymentRequestedEvent{
		PaymentID:     uuid.New(),
		ClaimID:       claimID,
		ClaimNumber:   "SIN2026030001",
		Amount:        decimal.RequireFromString("150.00"),
		PaymentMethod: "bank_transfer",
	})
	require.NoError(t, err)

	resolved, err := reg.Resolve(models.OutboxEvent{
		EventType:     enums.EventClaimPaymentRequested,
		AggregateType: enums.AggregateClaim,
		AggregateID:   claimID,
		Payload:       envelope(t, 1, string(data)),
	})
	require.NoError(t, err)
	require.Equal(t, RoutePayments, resolved.Route)
	require.Equal(t, "payments-topic", resolved.Topic)

	payload, ok := resolved.Payload.(*payloads.ClaimPaymentRequestedEvent)
	require.True(t, ok, "payload type %T", resolved.Payload)
	require.Equal(t, claimID, payload.ClaimID)
	require.True(t, payload.Amount.Equal(decimal.NewFromInt(150)))
	require.NotEqual(t, uuid.Nil, resolved.Envelope.ID())
}

func TestDecodeNotificationForConsumers(t *testing.T) {
	recipient := uuid.New()
	decoded, err := Decode(enums.EventNotificationRequested, envelope(t, 1, `{"recipient_id":"`+recipient.String()+`","type":"CLAIM_APPROVED","title":"Claim approved"}`))
	require.NoError(t, err)
	event := decoded.Payload.(*payloads.NotificationRequestedEvent)
	require.Equal(t, recipient, event.RecipientID)
	require.Equal(t, "Claim approved", event.Title)
}

func TestBadRowsArePermanent(t *testing.T) {
	reg := newTestRegistry(t)
	cases := map[string]models.OutboxEvent{
		"unknown event": {
			EventType: enums.OutboxEventType("policy_renewed"), AggregateType: enums.AggregatePolicy,
			AggregateID: uuid.New(), Payload: envelope(t, 1, `{}`),
		},
		"aggregate mismatch": {
			EventType: enums.EventClaimPaymentRequested, AggregateType: enums.AggregateWarrantyClaim,
			AggregateID: uuid.New(), Payload: envelope(t, 1, `{}`),
		},
		"missing aggregate id": {
			EventType: enums.EventClaimPaymentRequested, AggregateType: enums.AggregateClaim,
			Payload: envelope(t, 1, `{}`),
		},
		"null payload": {
			EventType: enums.EventNotificationRequested, AggregateType: enums.AggregateNotification,
			AggregateID: uuid.New(), Payload: envelope(t, 1, `null`),
		},
		"unknown version": {
			EventType: enums.EventNotificationRequested, AggregateType: enums.AggregateNotification,
			AggregateID: uuid.New(), Payload: envelope(t, 2, `{}`),
		},
		"broken envelope": {
			EventType: enums.EventNotificationRequested, AggregateType: enums.AggregateNotification,
			AggregateID: uuid.New(), Payload: []byte(`{"version":`),
		},
	}
	for name, event := range cases {
		_, err := reg.Resolve(event)
		if !IsPermanent(err) {
			t.Fatalf("%s: expected permanent error, got %v", name, err)
		}
	}
}

func TestPermanentWrapsCause(t *testing.T) {
	cause := errors.New("topic deleted")
	err := Permanent(cause)
	require.ErrorIs(t, err, cause)
	require.True(t, IsPermanent(err))
	require.False(t, IsPermanent(cause))
	require.True(t, IsPermanent(Permanent(nil)))
}

func TestNewEventRegistryRequiresTopics(t *testing.T) {
	_, err := NewEventRegistry(config.PubSubConfig{NotificationTopic: "n"})
	require.Error(t, err)
	require.Equal(t, []string{"notification-topic", "payments-topic"}, newTestRegistry(t).Topics())
}
