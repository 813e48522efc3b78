// Package registry knows every outbox event the ledger emits: which aggregate
// owns it, where it is published and how its payload decodes.
package registry

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/angelmondragon/coverledger/pkg/enums"
	"github.com/angelmondragon/coverledger/pkg/outbox"
	"github.com/angelmondragon/coverledger/pkg/outbox/payloads"
)

// Route is the logical destination of an event. Topic names per route come
// from configuration.
type Route string

const (
	RouteNotifications Route = "notifications"
	RoutePayments      Route = "payments"
)

type schema struct {
	aggregate enums.OutboxAggregateType
	route     Route
	versions  map[int]func() any
}

var catalog = map[enums.OutboxEventType]schema{
	enums.EventNotificationRequested: {
		aggregate: enums.AggregateNotification,
		route:     RouteNotifications,
		versions:  map[int]func() any{1: func() any { return &payloads.NotificationRequestedEvent{} }},
	},
	enums.EventClaimPaymentRequested: {
		aggregate: enums.AggregateClaim,
		route:     RoutePayments,
		versions:  map[int]func() any{1: func() any { return &payloads.ClaimPaymentRequestedEvent{} }},
	},
}

// Decoded is an opened envelope plus its typed payload.
type Decoded struct {
	Envelope outbox.PayloadEnvelope
	Payload  any
}

// Decode opens raw as an envelope of eventType and unmarshals its data into
// the payload type registered for the envelope version. Every error it
// returns is permanent.
func Decode(eventType enums.OutboxEventType, raw []byte) (*Decoded, error) {
	s, ok := catalog[eventType]
	if !ok {
		return nil, Permanent(fmt.Errorf("unsupported event type %q", eventType))
	}
	env, err := outbox.Open(raw)
	if err != nil {
		return nil, Permanent(err)
	}
	factory, ok := s.versions[env.Version]
	if !ok {
		return nil, Permanent(fmt.Errorf("%s has no decoder for version %d", eventType, env.Version))
	}
	payload := factory()
	if err := json.Unmarshal(env.Data, payload); err != nil {
		return nil, Permanent(fmt.Errorf("decode %s payload: %w", eventType, err))
	}
	return &Decoded{Envelope: env, Payload: payload}, nil
}

type permanentError struct{ err error }

func (e permanentError) Error() string { return e.err.Error() }
func (e permanentError) Unwrap() error { return e.err }

// Permanent marks err as one that retrying cannot fix.
func Permanent(err error) error {
	if err == nil {
		err = errors.New("permanent failure")
	}
	return permanentError{err: err}
}

func IsPermanent(err error) bool {
	var p permanentError
	return errors.As(err, &p)
}
