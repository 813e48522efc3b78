package registry

import (
	"fmt"
	"sort"

	"github.com/google/uuid"

	"github.com/angelmondragon/coverledger/pkg/config"
	"github.com/angelmondragon/coverledger/pkg/db/models"
)

// ResolvedEvent is an outbox row ready to publish.
type ResolvedEvent struct {
	Route Route
	Topic string
	Decoded
}

// EventRegistry binds routes to the topics of one deployment.
type EventRegistry struct {
	topics map[Route]string
}

func NewEventRegistry(cfg config.PubSubConfig) (*EventRegistry, error) {
	topics := map[Route]string{
		RouteNotifications: cfg.NotificationTopic,
		RoutePayments:      cfg.PaymentsTopic,
	}
	for route, topic := range topics {
		if topic == "" {
			return nil, fmt.Errorf("%s topic is required", route)
		}
	}
	return &EventRegistry{topics: topics}, nil
}

// Topics lists the distinct topics, sorted.
func (r *EventRegistry) Topics() []string {
	set := make(map[string]struct{}, len(r.topics))
	for _, topic := range r.topics {
		set[topic] = struct{}{}
	}
	out := make([]string, 0, len(set))
	for topic := range set {
		out = append(out, topic)
	}
	sort.Strings(out)
	return out
}

// Resolve checks the row against the catalog and decodes its payload.
func (r *EventRegistry) Resolve(event models.OutboxEvent) (*ResolvedEvent, error) {
	s, ok := catalog[event.EventType]
	if !ok {
		return nil, Permanent(fmt.Errorf("unsupported event type %q", event.EventType))
	}
	if s.aggregate != event.AggregateType {
		return nil, Permanent(fmt.Errorf("%s belongs to %s aggregates, row has %s", event.EventType, s.aggregate, event.AggregateType))
	}
	if event.AggregateID == uuid.Nil {
		return nil, Permanent(fmt.Errorf("%s row %s has no aggregate id", event.EventType, event.ID))
	}
	decoded, err := Decode(event.EventType, event.Payload)
	if err != nil {
		return nil, err
	}
	return &ResolvedEvent{Route: s.route, Topic: r.topics[s.route], Decoded: *decoded}, nil
}
