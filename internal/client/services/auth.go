package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/adiwira/kuliner-nusantara/internal/client/api"
	"github.com/adiwira/kuliner-nusantara/internal/client/models"
	"github.com/adiwira/kuliner-nusantara/internal/client/repositories/session"
	"github.com/adiwira/kuliner-nusantara/internal/common"
	"github.com/adiwira/kuliner-nusantara/internal/logging"
)

// AuthService owns login, registration, and the locally persisted session.
// Every other component reads the current credential through the session
// repository instead of ambient global state.
type AuthService interface {
	// Login authenticates against the server and persists the session.
	Login(ctx context.Context, email, password string) (*models.Session, error)

	// Register creates an account on the server.
	Register(ctx context.Context, name, email, password string) error

	// Logout wipes the locally stored session.
	Logout(ctx context.Context) error

	// CurrentSession returns the stored session, or common.ErrUnauthenticated.
	CurrentSession(ctx context.Context) (*models.Session, error)

	// Ping checks server reachability.
	Ping(ctx context.Context) error

	// SubscribePush registers a web-push subscription for the current user.
	SubscribePush(ctx context.Context, sub api.PushSubscription) error

	// UnsubscribePush removes a web-push subscription.
	UnsubscribePush(ctx context.Context, sub api.PushSubscription) error
}

type authService struct {
	client      api.Client
	sessionRepo session.Repository
	logger      logging.Logger
}

func NewAuthService(client api.Client, sessionRepo session.Repository, logger logging.Logger) AuthService {
	return &authService{client: client, sessionRepo: sessionRepo, logger: logger}
}

func (a *authService) Login(ctx context.Context, email, password string) (*models.Session, error) {
	sess, err := a.client.Login(ctx, email, password)
	if err != nil {
		return nil, fmt.Errorf("login failed: %w", err)
	}

	if err := a.sessionRepo.Save(ctx, sess); err != nil {
		// the credential still works for this run; it just will not survive
		// a restart
		a.logger.Warn(ctx, "failed to persist session", "error", err)
	}

	return sess, nil
}

func (a *authService) Register(ctx context.Context, name, email, password string) error {
	if err := a.client.Register(ctx, name, email, password); err != nil {
		return fmt.Errorf("registration failed: %w", err)
	}
	return nil
}

func (a *authService) Logout(ctx context.Context) error {
	return a.sessionRepo.Clear(ctx)
}

func (a *authService) CurrentSession(ctx context.Context) (*models.Session, error) {
	sess, err := a.sessionRepo.Get(ctx)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, common.ErrUnauthenticated
		}
		return nil, err
	}
	return sess, nil
}

func (a *authService) Ping(ctx context.Context) error {
	return a.client.Ping(ctx)
}

func (a *authService) SubscribePush(ctx context.Context, sub api.PushSubscription) error {
	sess, err := a.CurrentSession(ctx)
	if err != nil {
		return err
	}
	return a.client.SubscribeNotifications(ctx, sub, sess.Token)
}

func (a *authService) UnsubscribePush(ctx context.Context, sub api.PushSubscription) error {
	sess, err := a.CurrentSession(ctx)
	if err != nil {
		return err
	}
	return a.client.UnsubscribeNotifications(ctx, sub, sess.Token)
}
