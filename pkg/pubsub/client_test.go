package pubsub

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/angelmondragon/coverledger/pkg/config"
	pkgerrors "github.com/angelmondragon/coverledger/pkg/errors"
)

func TestResourceNames(t *testing.T) {
	c := &Client{projectID: "ledger-prod"}
	require.Equal(t, "projects/ledger-prod/topics/cl-claim-payments", c.name(kindTopic, "cl-claim-payments"))
	require.Equal(t, "projects/ledger-prod/subscriptions/notif-sub", c.name(kindSubscription, " notif-sub "))
	require.Equal(t, "projects/other/topics/x", c.name(kindTopic, "projects/other/topics/x"))
}

func TestNilClientIsSafe(t *testing.T) {
	var c *Client
	require.Nil(t, c.Publisher("x"))
	require.Nil(t, c.Subscription("x"))
	require.True(t, pkgerrors.IsCode(c.Ping(context.Background()), pkgerrors.CodeDependency))
	require.NoError(t, c.Close())
}

func TestNewClientValidatesInput(t *testing.T) {
	_, err := NewClient(context.Background(), config.GCPConfig{}, Requirements{Topics: []string{"t"}}, nil)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	_, err = NewClient(context.Background(), config.GCPConfig{ProjectID: "p"}, Requirements{}, nil)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestLookupErr(t *testing.T) {
	require.NoError(t, lookupErr(kindTopic, "t", nil))

	missing := lookupErr(kindSubscription, "notif-sub", status.Error(codes.NotFound, "gone"))
	require.True(t, pkgerrors.IsCode(missing, pkgerrors.CodeDependency))
	require.Contains(t, missing.Error(), "notif-sub does not exist")

	cause := errors.New("deadline exceeded")
	require.ErrorIs(t, lookupErr(kindTopic, "t", cause), cause)
}

func TestClientOptionsPrefersInlineCredentials(t *testing.T) {
	require.Empty(t, clientOptions(config.GCPConfig{}))
	require.Len(t, clientOptions(config.GCPConfig{CredentialsJSON: `{"type":"service_account"}`, ApplicationCredentials: "/tmp/key.json"}), 1)
	require.Len(t, clientOptions(config.GCPConfig{ApplicationCredentials: "/tmp/key.json"}), 1)
}
