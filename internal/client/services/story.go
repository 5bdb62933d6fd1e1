// Package services contains the application services of the client: the
// offline submission queue, authentication, image caching, and the
// connectivity reconciler that drains the queue.
package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/adiwira/kuliner-nusantara/internal/client/api"
	"github.com/adiwira/kuliner-nusantara/internal/client/models"
	"github.com/adiwira/kuliner-nusantara/internal/client/repositories/pending"
	"github.com/adiwira/kuliner-nusantara/internal/client/repositories/session"
	"github.com/adiwira/kuliner-nusantara/internal/client/repositories/stories"
	"github.com/adiwira/kuliner-nusantara/internal/common"
	"github.com/adiwira/kuliner-nusantara/internal/logging"
	"github.com/google/uuid"
)

// drainCallTimeout bounds each remote call issued while draining, so one hung
// request cannot stall the cycle beyond the transport timeout.
const drainCallTimeout = 15 * time.Second

// StoryService owns the submission queue policy: forward immediately while
// online, persist for later while offline, and reconcile persisted records
// against the server. It also serves story reads through the local cache.
type StoryService interface {
	// Add validates and submits a story. queued reports whether the story was
	// stored locally for later instead of reaching the server now.
	Add(ctx context.Context, input models.StoryInput) (queued bool, err error)

	// Drain pushes every queued record through the remote client, deleting
	// each only on confirmed acceptance. One bad record never blocks the rest.
	Drain(ctx context.Context) error

	// List returns one page of stories, falling back to the local mirror when
	// the fetch fails. fromCache reports which source served the result.
	List(ctx context.Context, page, size int) (result []models.Story, fromCache bool, err error)

	// Get returns one story with the same read-through fallback.
	Get(ctx context.Context, id string) (story *models.Story, fromCache bool, err error)

	// PendingCount reports how many records are waiting to be sent.
	PendingCount(ctx context.Context) (int, error)
}

type storyService struct {
	client      api.Client
	pendingRepo pending.Repository
	storyRepo   stories.Repository
	sessionRepo session.Repository
	images      ImageService
	online      func() bool
	logger      logging.Logger
	now         func() time.Time
	callTimeout time.Duration
}

// NewStoryService wires the queue to its collaborators. online reports the
// runtime's current connectivity belief; images may be nil when image
// warm-up is not wanted.
func NewStoryService(
	client api.Client,
	pendingRepo pending.Repository,
	storyRepo stories.Repository,
	sessionRepo session.Repository,
	images ImageService,
	online func() bool,
	logger logging.Logger,
) StoryService {
	return &storyService{
		client:      client,
		pendingRepo: pendingRepo,
		storyRepo:   storyRepo,
		sessionRepo: sessionRepo,
		images:      images,
		online:      online,
		logger:      logger,
		now:         time.Now,
		callTimeout: drainCallTimeout,
	}
}

func (s *storyService) Add(ctx context.Context, input models.StoryInput) (bool, error) {
	// validation failure performs no I/O
	if err := input.Validate(); err != nil {
		return false, err
	}

	photo, photoName := input.Photo()
	lat, lon := input.Location()

	if s.online() {
		return false, s.submitDirect(ctx, input.Description, photo, photoName, lat, lon)
	}

	record := &models.PendingStory{
		ID:          uuid.NewString(),
		Description: input.Description,
		Photo:       photo,
		PhotoName:   photoName,
		Lat:         lat,
		Lon:         lon,
		CreatedAt:   s.now(),
	}
	if err := s.pendingRepo.Create(ctx, record); err != nil {
		return false, fmt.Errorf("failed to queue story: %w", err)
	}

	s.logger.Info(ctx, "story queued for later submission", "id", record.ID)
	return true, nil
}

// submitDirect forwards a submission made while online. A failure here is
// surfaced to the caller; an explicit online submission is never silently
// requeued.
func (s *storyService) submitDirect(ctx context.Context, description string, photo []byte, photoName string, lat, lon *float64) error {
	sess, err := s.sessionRepo.Get(ctx)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return common.ErrUnauthenticated
		}
		return err
	}

	payload := models.NewStory{
		Description: description,
		Photo:       photo,
		PhotoName:   photoName,
		Lat:         lat,
		Lon:         lon,
	}
	if _, err := s.client.CreateStory(ctx, payload, sess.Token); err != nil {
		return err
	}

	// A matching record queued by an earlier offline attempt is now stale.
	// Cleanup is best-effort: the story already reached the server.
	stale, err := s.pendingRepo.FindByDescription(ctx, description)
	if err == nil {
		if err := s.pendingRepo.DeleteByID(ctx, stale.ID); err != nil {
			s.logger.Warn(ctx, "failed to remove stale queued story", "id", stale.ID, "error", err)
		}
	} else if !errors.Is(err, common.ErrNotFound) {
		s.logger.Warn(ctx, "failed to look up stale queued story", "error", err)
	}

	return nil
}

func (s *storyService) Drain(ctx context.Context) error {
	sess, err := s.sessionRepo.Get(ctx)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			// never lose unsent data for lack of a session
			s.logger.Info(ctx, "drain skipped: no session")
			return nil
		}
		return fmt.Errorf("failed to read session: %w", err)
	}
	if !tokenUsable(sess.Token, s.now()) {
		s.logger.Info(ctx, "drain skipped: credential expired")
		return nil
	}

	records, err := s.pendingRepo.GetAll(ctx)
	if err != nil {
		return fmt.Errorf("failed to read queue: %w", err)
	}
	if len(records) == 0 {
		return nil
	}

	s.logger.Info(ctx, "draining queued stories", "count", len(records))

	for _, record := range records {
		err := s.sendQueued(ctx, record, sess.Token)
		if err == nil {
			continue
		}
		if errors.Is(err, common.ErrUnauthenticated) {
			// the credential died mid-drain; stop and keep the rest queued
			s.logger.Warn(ctx, "drain stopped: credential rejected", "id", record.ID)
			return nil
		}
		// partial-failure isolation: log and move to the next record
		s.logger.Warn(ctx, "failed to send queued story", "id", record.ID, "error", err)
	}

	return nil
}

// sendQueued pushes one record with a bounded deadline and removes it from
// the store only after the server confirmed acceptance.
func (s *storyService) sendQueued(ctx context.Context, record *models.PendingStory, token string) error {
	callCtx, cancel := context.WithTimeout(ctx, s.callTimeout)
	defer cancel()

	_, err := s.client.CreateStory(callCtx, record.Payload(), token)
	if err == nil {
		if err := s.pendingRepo.DeleteByID(ctx, record.ID); err != nil {
			// the story is on the server; a leftover record will be caught by
			// the duplicate cleanup on the next direct submission
			s.logger.Error(ctx, "accepted story could not be dequeued", "id", record.ID, "error", err)
		} else {
			s.logger.Info(ctx, "queued story sent", "id", record.ID)
		}
		return nil
	}

	if api.IsServerRejected(err) {
		attempts, repoErr := s.pendingRepo.IncrementAttempts(ctx, record.ID)
		if repoErr != nil {
			s.logger.Warn(ctx, "failed to count rejection", "id", record.ID, "error", repoErr)
			return err
		}
		if attempts >= models.MaxSubmitAttempts {
			if repoErr := s.pendingRepo.MarkFailed(ctx, record.ID); repoErr != nil {
				s.logger.Warn(ctx, "failed to mark story failed", "id", record.ID, "error", repoErr)
			} else {
				s.logger.Warn(ctx, "story marked failed after repeated rejections", "id", record.ID, "attempts", attempts)
			}
		}
	}

	return err
}

func (s *storyService) List(ctx context.Context, page, size int) ([]models.Story, bool, error) {
	token := s.currentToken(ctx)

	result, err := s.client.ListStories(ctx, page, size, token)
	if err != nil {
		cached, cacheErr := s.storyRepo.GetAll(ctx)
		if cacheErr != nil || len(cached) == 0 {
			return nil, false, err
		}
		s.logger.Info(ctx, "serving stories from local cache", "count", len(cached), "error", err)
		return cached, true, nil
	}

	for i := range result {
		if err := s.storyRepo.Upsert(ctx, &result[i]); err != nil {
			// cache failures degrade to remote-only behavior
			s.logger.Warn(ctx, "failed to cache story", "id", result[i].ID, "error", err)
		}
	}
	s.warmImages(ctx, result)

	return result, false, nil
}

func (s *storyService) Get(ctx context.Context, id string) (*models.Story, bool, error) {
	token := s.currentToken(ctx)

	story, err := s.client.GetStory(ctx, id, token)
	if err != nil {
		cached, cacheErr := s.storyRepo.GetByID(ctx, id)
		if cacheErr != nil {
			return nil, false, err
		}
		s.logger.Info(ctx, "serving story from local cache", "id", id)
		return cached, true, nil
	}

	if err := s.storyRepo.Upsert(ctx, story); err != nil {
		s.logger.Warn(ctx, "failed to cache story", "id", story.ID, "error", err)
	}
	s.warmImages(ctx, []models.Story{*story})

	return story, false, nil
}

func (s *storyService) PendingCount(ctx context.Context) (int, error) {
	records, err := s.pendingRepo.GetAll(ctx)
	if err != nil {
		return 0, err
	}
	return len(records), nil
}

func (s *storyService) currentToken(ctx context.Context) string {
	sess, err := s.sessionRepo.Get(ctx)
	if err != nil {
		return ""
	}
	return sess.Token
}

func (s *storyService) warmImages(ctx context.Context, list []models.Story) {
	if s.images == nil {
		return
	}
	for i := range list {
		if url := list[i].PhotoURL; url != "" {
			if _, err := s.images.GetImage(ctx, url); err != nil {
				s.logger.Debug(ctx, "image warm-up failed", "url", url, "error", err)
			}
		}
	}
}
