package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/adiwira/kuliner-nusantara/internal/client/api"
	"github.com/adiwira/kuliner-nusantara/internal/client/repositories/images"
	"github.com/adiwira/kuliner-nusantara/internal/common"
	"github.com/adiwira/kuliner-nusantara/internal/logging"
)

// ImageService serves image payloads cache-first: a URL already in the local
// store never triggers a network fetch.
type ImageService interface {
	GetImage(ctx context.Context, url string) ([]byte, error)
}

type imageService struct {
	client    api.Client
	imageRepo images.Repository
	logger    logging.Logger
}

func NewImageService(client api.Client, imageRepo images.Repository, logger logging.Logger) ImageService {
	return &imageService{client: client, imageRepo: imageRepo, logger: logger}
}

func (s *imageService) GetImage(ctx context.Context, url string) ([]byte, error) {
	blob, err := s.imageRepo.Get(ctx, url)
	if err == nil {
		return blob, nil
	}
	if !errors.Is(err, common.ErrNotFound) {
		// a broken cache must not take image loading down with it
		s.logger.Warn(ctx, "image cache read failed", "url", url, "error", err)
	}

	blob, err = s.client.FetchImage(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch image: %w", err)
	}

	if err := s.imageRepo.Put(ctx, url, blob); err != nil {
		s.logger.Warn(ctx, "image cache write failed", "url", url, "error", err)
	}

	return blob, nil
}
