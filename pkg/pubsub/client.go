package pubsub

import (
	"context"
	"strings"

	pubsub "cloud.google.com/go/pubsub/v2"
	"cloud.google.com/go/pubsub/v2/apiv1/pubsubpb"
	"go.uber.org/multierr"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/angelmondragon/coverledger/pkg/config"
	pkgerrors "github.com/angelmondragon/coverledger/pkg/errors"
	"github.com/angelmondragon/coverledger/pkg/logger"
)

// Requirements lists the resources a process cannot run without. They are
// checked at startup and on every readiness probe; nothing is created.
type Requirements struct {
	Topics        []string
	Subscriptions []string
}

type resourceKind string

const (
	kindTopic        resourceKind = "topics"
	kindSubscription resourceKind = "subscriptions"
)

type Client struct {
	client    *pubsub.Client
	projectID string
	needs     Requirements
}

func NewClient(ctx context.Context, gcp config.GCPConfig, needs Requirements, logg *logger.Logger) (*Client, error) {
	projectID := strings.TrimSpace(gcp.ProjectID)
	if projectID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "gcp project id required")
	}
	if len(needs.Topics)+len(needs.Subscriptions) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "no pubsub topics or subscriptions requested")
	}

	raw, err := pubsub.NewClient(ctx, projectID, clientOptions(gcp)...)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create pubsub client")
	}
	c := &Client{client: raw, projectID: projectID, needs: needs}
	if err := c.Ping(ctx); err != nil {
		_ = raw.Close()
		return nil, err
	}
	if logg != nil {
		logg.Info(logg.WithFields(ctx, map[string]any{
			"gcp_project":   projectID,
			"topics":        needs.Topics,
			"subscriptions": needs.Subscriptions,
		}), "pubsub client ready")
	}
	return c, nil
}

// clientOptions prefers inline credentials over a key file; neither means ADC.
func clientOptions(gcp config.GCPConfig) []option.ClientOption {
	if creds := strings.TrimSpace(gcp.CredentialsJSON); creds != "" {
		return []option.ClientOption{option.WithCredentialsJSON([]byte(creds))}
	}
	if path := strings.TrimSpace(gcp.ApplicationCredentials); path != "" {
		return []option.ClientOption{option.WithCredentialsFile(path)}
	}
	return nil
}

// Ping confirms every required topic and subscription exists, reporting all
// that are missing rather than the first.
func (c *Client) Ping(ctx context.Context) error {
	if c == nil || c.client == nil {
		return pkgerrors.New(pkgerrors.CodeDependency, "pubsub client not initialized")
	}
	var errs error
	for _, name := range c.needs.Topics {
		_, err := c.client.TopicAdminClient.GetTopic(ctx, &pubsubpb.GetTopicRequest{Topic: c.name(kindTopic, name)})
		errs = multierr.Append(errs, lookupErr(kindTopic, name, err))
	}
	for _, name := range c.needs.Subscriptions {
		_, err := c.client.SubscriptionAdminClient.GetSubscription(ctx, &pubsubpb.GetSubscriptionRequest{Subscription: c.name(kindSubscription, name)})
		errs = multierr.Append(errs, lookupErr(kindSubscription, name, err))
	}
	return errs
}

func lookupErr(kind resourceKind, name string, err error) error {
	switch {
	case err == nil:
		return nil
	case status.Code(err) == codes.NotFound:
		return pkgerrors.New(pkgerrors.CodeDependency, "pubsub "+string(kind)+" "+name+" does not exist")
	default:
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "look up pubsub "+string(kind)+" "+name)
	}
}

// Subscription returns a receiver for a subscription id or full resource name.
func (c *Client) Subscription(name string) *pubsub.Subscriber {
	if c == nil || c.client == nil || strings.TrimSpace(name) == "" {
		return nil
	}
	return c.client.Subscriber(c.name(kindSubscription, name))
}

// Publisher returns a publisher for a topic id or full resource name.
func (c *Client) Publisher(name string) *pubsub.Publisher {
	if c == nil || c.client == nil || strings.TrimSpace(name) == "" {
		return nil
	}
	return c.client.Publisher(c.name(kindTopic, name))
}

func (c *Client) Close() error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Close()
}

// name expands a bare id to projects/<project>/<kind>/<id>. Full resource
// names pass through, which allows cross-project topics.
func (c *Client) name(kind resourceKind, id string) string {
	id = strings.TrimSpace(id)
	if strings.HasPrefix(id, "projects/") {
		return id
	}
	return "projects/" + c.projectID + "/" + string(kind) + "/" + id
}
