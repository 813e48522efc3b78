package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	gcppubsub "cloud.google.com/go/pubsub/v2"

	"github.com/angelmondragon/coverledger/pkg/db/models"
	"github.com/angelmondragon/coverledger/pkg/outbox/registry"
)

type publisherFactory func(topic string) publisher

type publisher interface {
	Publish(context.Context, *gcppubsub.Message) publishResult
}

type publishResult interface {
	Get(context.Context) (string, error)
}

// publish sends the stored envelope unchanged and waits for the server ack.
// A missing publisher is permanent since no retry will configure one.
func (s *Service) publish(ctx context.Context, event models.OutboxEvent, resolved *registry.ResolvedEvent) error {
	pub := s.publisherFactory(resolved.Topic)
	if pub == nil {
		return registry.Permanent(fmt.Errorf("publisher not configured for topic %s", resolved.Topic))
	}

	ctx, cancel := context.WithTimeout(ctx, defaultPublishTimeout)
	defer cancel()

	result := pub.Publish(ctx, messageFor(event))
	if result == nil {
		return registry.Permanent(fmt.Errorf("publisher returned nil for topic %s", resolved.Topic))
	}
	_, err := result.Get(ctx)
	return err
}

// messageFor carries the routing facts as attributes so subscribers can
// filter without decoding the body. event_id is the outbox row id, which is
// also the envelope event id.
func messageFor(event models.OutboxEvent) *gcppubsub.Message {
	return &gcppubsub.Message{
		Data: event.Payload,
		Attributes: map[string]string{
			"event_id":       event.ID.String(),
			"event_type":     string(event.EventType),
			"aggregate_type": string(event.AggregateType),
			"aggregate_id":   event.AggregateID.String(),
			"created_at":     event.CreatedAt.UTC().Format(time.RFC3339Nano),
		},
	}
}

type gcpPublisher struct {
	pub *gcppubsub.Publisher
}

func newGCPPublisher(p *gcppubsub.Publisher) publisher {
	if p == nil {
		return nil
	}
	return gcpPublisher{pub: p}
}

func (p gcpPublisher) Publish(ctx context.Context, msg *gcppubsub.Message) publishResult {
	return gcpResult{res: p.pub.Publish(ctx, msg)}
}

type gcpResult struct {
	res *gcppubsub.PublishResult
}

func (r gcpResult) Get(ctx context.Context) (string, error) {
	if r.res == nil {
		return "", errors.New("publish result is nil")
	}
	return r.res.Get(ctx)
}
