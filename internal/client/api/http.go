package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"time"

	"github.com/adiwira/kuliner-nusantara/internal/client/models"
	"github.com/adiwira/kuliner-nusantara/internal/common"
)

// HTTPClient talks to the story API over plain HTTP with a bearer credential
// supplied per call.
type HTTPClient struct {
	baseURL string
	http    *http.Client
}

// NewHTTPClient builds a client for the given API base URL, e.g.
// "https://api.kuliner-nusantara.id/v1".
func NewHTTPClient(baseURL string) *HTTPClient {
	return &HTTPClient{
		baseURL: baseURL,
		http:    &http.Client{Timeout: 30 * time.Second},
	}
}

// envelope is the common response wrapper of every API endpoint.
type envelope struct {
	Error       bool         `json:"error"`
	Message     string       `json:"message"`
	LoginResult *loginResult `json:"loginResult,omitempty"`
	ListStory   []storyDTO   `json:"listStory,omitempty"`
	Story       *storyDTO    `json:"story,omitempty"`
}

type loginResult struct {
	UserID string `json:"userId"`
	Name   string `json:"name"`
	Token  string `json:"token"`
}

type storyDTO struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	PhotoURL    string   `json:"photoUrl"`
	CreatedAt   string   `json:"createdAt"`
	Lat         *float64 `json:"lat"`
	Lon         *float64 `json:"lon"`
}

func (d *storyDTO) toModel() (*models.Story, error) {
	createdAt, err := time.Parse(time.RFC3339Nano, d.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to parse story createdAt: %w", err)
	}
	return &models.Story{
		ID:          d.ID,
		Name:        d.Name,
		Description: d.Description,
		PhotoURL:    d.PhotoURL,
		Lat:         d.Lat,
		Lon:         d.Lon,
		CreatedAt:   createdAt,
	}, nil
}

// do runs the request and decodes the envelope, mapping transport and
// application failures onto the error taxonomy.
func (c *HTTPClient) do(req *http.Request) (*envelope, error) {
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusUnauthorized:
		return nil, common.ErrUnauthenticated
	case http.StatusNotFound:
		return nil, common.ErrNotFound
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		if resp.StatusCode >= 400 {
			return nil, &ServerRejectedError{StatusCode: resp.StatusCode}
		}
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	if env.Error || resp.StatusCode >= 400 {
		return nil, &ServerRejectedError{StatusCode: resp.StatusCode, Message: env.Message}
	}

	return &env, nil
}

func (c *HTTPClient) newJSONRequest(ctx context.Context, method, path string, payload any, token string) (*http.Request, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req, nil
}

// Login exchanges credentials for a session.
func (c *HTTPClient) Login(ctx context.Context, email, password string) (*models.Session, error) {
	payload := map[string]string{"email": email, "password": password}
	req, err := c.newJSONRequest(ctx, http.MethodPost, "/login", payload, "")
	if err != nil {
		return nil, err
	}

	env, err := c.do(req)
	if err != nil {
		return nil, err
	}
	if env.LoginResult == nil {
		return nil, fmt.Errorf("login response missing loginResult: %w", common.ErrInternal)
	}

	return &models.Session{
		UserID: env.LoginResult.UserID,
		Name:   env.LoginResult.Name,
		Token:  env.LoginResult.Token,
	}, nil
}

// Register creates an account.
func (c *HTTPClient) Register(ctx context.Context, name, email, password string) error {
	payload := map[string]string{"name": name, "email": email, "password": password}
	req, err := c.newJSONRequest(ctx, http.MethodPost, "/register", payload, "")
	if err != nil {
		return err
	}

	_, err = c.do(req)
	return err
}

// CreateStory submits a story as a multipart form: description, photo, and
// the optional coordinates.
func (c *HTTPClient) CreateStory(ctx context.Context, story models.NewStory, token string) (string, error) {
	if token == "" {
		return "", common.ErrUnauthenticated
	}

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	if err := w.WriteField("description", story.Description); err != nil {
		return "", fmt.Errorf("failed to build form: %w", err)
	}

	name := story.PhotoName
	if name == "" {
		name = "photo.jpg"
	}
	part, err := w.CreateFormFile("photo", name)
	if err != nil {
		return "", fmt.Errorf("failed to build form: %w", err)
	}
	if _, err := part.Write(story.Photo); err != nil {
		return "", fmt.Errorf("failed to build form: %w", err)
	}

	if story.Lat != nil && story.Lon != nil {
		if err := w.WriteField("lat", strconv.FormatFloat(*story.Lat, 'f', -1, 64)); err != nil {
			return "", fmt.Errorf("failed to build form: %w", err)
		}
		if err := w.WriteField("lon", strconv.FormatFloat(*story.Lon, 'f', -1, 64)); err != nil {
			return "", fmt.Errorf("failed to build form: %w", err)
		}
	}

	if err := w.Close(); err != nil {
		return "", fmt.Errorf("failed to build form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/stories", &buf)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", w.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)

	env, err := c.do(req)
	if err != nil {
		return "", err
	}

	if env.Story != nil {
		return env.Story.ID, nil
	}
	return "", nil
}

// ListStories fetches one page of stories.
func (c *HTTPClient) ListStories(ctx context.Context, page, size int, token string) ([]models.Story, error) {
	url := fmt.Sprintf("%s/stories?page=%d&size=%d", c.baseURL, page, size)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)

	env, err := c.do(req)
	if err != nil {
		return nil, err
	}

	result := make([]models.Story, 0, len(env.ListStory))
	for i := range env.ListStory {
		s, err := env.ListStory[i].toModel()
		if err != nil {
			return nil, err
		}
		result = append(result, *s)
	}
	return result, nil
}

// GetStory fetches a single story.
func (c *HTTPClient) GetStory(ctx context.Context, id, token string) (*models.Story, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/stories/"+id, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)

	env, err := c.do(req)
	if err != nil {
		return nil, err
	}
	if env.Story == nil {
		return nil, common.ErrNotFound
	}
	return env.Story.toModel()
}

// SubscribeNotifications registers a push subscription with the server.
func (c *HTTPClient) SubscribeNotifications(ctx context.Context, sub PushSubscription, token string) error {
	if token == "" {
		return common.ErrUnauthenticated
	}
	req, err := c.newJSONRequest(ctx, http.MethodPost, "/notifications/subscribe", sub, token)
	if err != nil {
		return err
	}
	_, err = c.do(req)
	return err
}

// UnsubscribeNotifications removes a push subscription.
func (c *HTTPClient) UnsubscribeNotifications(ctx context.Context, sub PushSubscription, token string) error {
	if token == "" {
		return common.ErrUnauthenticated
	}
	req, err := c.newJSONRequest(ctx, http.MethodDelete, "/notifications/subscribe", sub, token)
	if err != nil {
		return err
	}
	_, err = c.do(req)
	return err
}

// FetchImage downloads an image payload from an absolute URL.
func (c *HTTPClient) FetchImage(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("image fetch failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &ServerRejectedError{StatusCode: resp.StatusCode, Message: "image fetch failed"}
	}

	return io.ReadAll(resp.Body)
}

// Ping probes the API host. Any HTTP response, even an error status, proves
// the network path is up; only transport failures report unreachable.
func (c *HTTPClient) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, c.baseURL, nil)
	if err != nil {
		return err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("api unreachable: %w", err)
	}
	_ = resp.Body.Close()
	return nil
}
