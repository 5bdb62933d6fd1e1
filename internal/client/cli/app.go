package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/adiwira/kuliner-nusantara/internal/client/api"
	"github.com/adiwira/kuliner-nusantara/internal/client/config"
	"github.com/adiwira/kuliner-nusantara/internal/client/services"
	"github.com/adiwira/kuliner-nusantara/internal/client/storage"
	"github.com/adiwira/kuliner-nusantara/internal/common"
	"github.com/adiwira/kuliner-nusantara/internal/logging"
)

// App owns the wiring of the interactive client: storage, API client,
// services, and the connectivity reconciler.
type App struct {
	config     *config.Config
	auth       services.AuthService
	stories    services.StoryService
	reconciler *services.Reconciler
	repos      *storage.Repositories
	logger     logging.Logger

	userName string
	reader   *bufio.Reader
	out      io.Writer
}

func NewApp(ctx context.Context, cfg *config.Config) (*App, error) {
	logger := logging.NewSlogLogger(slog.New(slog.NewTextHandler(os.Stderr, nil)))

	repos, err := storage.InitDatabase(ctx, cfg.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	apiClient := api.NewHTTPClient(cfg.APIBaseURL)

	imageService := services.NewImageService(apiClient, repos.Images, logger)
	authService := services.NewAuthService(apiClient, repos.Session, logger)

	app := &App{
		config: cfg,
		auth:   authService,
		repos:  repos,
		logger: logger,
		reader: bufio.NewReader(os.Stdin),
		out:    os.Stdout,
	}

	storyService := services.NewStoryService(
		apiClient, repos.Pending, repos.Stories, repos.Session, imageService,
		func() bool { return app.reconciler.Online() }, logger)
	app.stories = storyService
	app.reconciler = services.NewReconciler(apiClient, storyService, logger)

	// a session from a previous run keeps the user logged in
	if sess, err := authService.CurrentSession(ctx); err == nil {
		app.userName = sess.Name
	} else if !errors.Is(err, common.ErrUnauthenticated) {
		logger.Warn(ctx, "failed to restore session", "error", err)
	}

	return app, nil
}

// Run starts the connectivity watcher and the interactive loop, blocking
// until the user exits or ctx is cancelled.
func (a *App) Run(ctx context.Context) {
	go a.reconciler.Watch(ctx, a.config.OnlineCheckInterval)

	fmt.Fprintln(a.out, "Kuliner Nusantara CLI (type 'help' for commands)")
	scanner := bufio.NewScanner(os.Stdin)
	runREPL(ctx, a, a.getStatus, scanner)
}

// Close releases the underlying database.
func (a *App) Close() error {
	return a.repos.Close()
}

func (a *App) isLoggedIn() bool {
	return a.userName != ""
}

func (a *App) getStatus() string {
	mode := "offline"
	if a.reconciler.Online() {
		mode = "online"
	}
	if a.userName != "" {
		return fmt.Sprintf("(%s %s)", a.userName, mode)
	}
	return fmt.Sprintf("(%s)", mode)
}
