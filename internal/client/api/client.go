// Package api is the remote story API client. It translates submissions,
// list/detail queries, and auth calls into authenticated HTTP requests and
// maps the response envelope into typed results. No retry policy lives here;
// retries belong to the submission queue.
package api

import (
	"context"

	"github.com/adiwira/kuliner-nusantara/internal/client/models"
)

// PushSubscription is a web-push subscription forwarded to the server.
type PushSubscription struct {
	Endpoint string               `json:"endpoint"`
	Keys     PushSubscriptionKeys `json:"keys"`
}

type PushSubscriptionKeys struct {
	P256dh string `json:"p256dh"`
	Auth   string `json:"auth"`
}

type Client interface {
	// Login exchanges credentials for a session carrying a bearer token.
	Login(ctx context.Context, email, password string) (*models.Session, error)

	// Register creates an account; the user still has to log in afterwards.
	Register(ctx context.Context, name, email, password string) error

	// CreateStory submits a story and returns the server-assigned id, which
	// may be empty when the server omits the created record from its reply.
	CreateStory(ctx context.Context, story models.NewStory, token string) (string, error)

	// ListStories fetches one page of stories.
	ListStories(ctx context.Context, page, size int, token string) ([]models.Story, error)

	// GetStory fetches a single story, or common.ErrNotFound.
	GetStory(ctx context.Context, id, token string) (*models.Story, error)

	// SubscribeNotifications registers a push subscription.
	SubscribeNotifications(ctx context.Context, sub PushSubscription, token string) error

	// UnsubscribeNotifications removes a push subscription.
	UnsubscribeNotifications(ctx context.Context, sub PushSubscription, token string) error

	// FetchImage downloads an image payload; no credential is required.
	FetchImage(ctx context.Context, url string) ([]byte, error)

	// Ping reports whether the API host is reachable at all. Any HTTP
	// response counts as reachable; only transport failures do not.
	Ping(ctx context.Context) error
}
