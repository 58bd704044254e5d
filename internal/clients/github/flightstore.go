package github

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/alienx5499/zyura-backend/internal/logger"
	"github.com/alienx5499/zyura-backend/internal/pkg/errs"
	"github.com/alienx5499/zyura-backend/internal/pkg/httpx"
	"github.com/alienx5499/zyura-backend/internal/types"
)

// FlightStore is the metadata gateway contract the settlement pipeline
// consumes. Writes use optimistic concurrency: an upsert that races another
// writer returns errs.ErrConflict and must be retried after a fresh read.
type FlightStore interface {
	GetFlightRecord(ctx context.Context, flightNumber, date string) (*types.FlightRecord, string, error)
	UpsertFlightRecord(ctx context.Context, record *types.FlightRecord, expectedRevision, message string) (string, error)
}

type flightStore struct {
	log        *logger.Logger
	baseURL    string
	token      string
	repo       string
	branch     string
	basePath   string
	httpClient *http.Client
	maxRetries int
}

func NewFlightStore(log *logger.Logger) (FlightStore, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	token := strings.TrimSpace(os.Getenv("GITHUB_TOKEN"))
	if token == "" {
		return nil, fmt.Errorf("missing GITHUB_TOKEN")
	}

	repo := strings.TrimSpace(os.Getenv("GITHUB_FLIGHT_REPO"))
	if repo == "" {
		repo = "alienx5499/zyura-flight-metadata"
	}
	branch := strings.TrimSpace(os.Getenv("GITHUB_BRANCH"))
	if branch == "" {
		branch = "main"
	}
	basePath := strings.Trim(strings.TrimSpace(os.Getenv("GITHUB_BASE_PATH")), "/")

	baseURL := strings.TrimSpace(os.Getenv("GITHUB_API_URL"))
	if baseURL == "" {
		baseURL = "https://api.github.com"
	}
	baseURL = strings.TrimRight(baseURL, "/")

	return &flightStore{
		log:        log.With("client", "FlightStore"),
		baseURL:    baseURL,
		token:      token,
		repo:       repo,
		branch:     branch,
		basePath:   basePath,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		maxRetries: 3,
	}, nil
}

func (s *flightStore) flightPath(flightNumber string) string {
	p := fmt.Sprintf("flights/%s/flight.json", flightNumber)
	if s.basePath != "" {
		p = s.basePath + "/" + p
	}
	return p
}

func (s *flightStore) contentsURL(path string) string {
	return fmt.Sprintf("%s/repos/%s/contents/%s", s.baseURL, s.repo, path)
}

type contentsFile struct {
	Content  string `json:"content"`
	Encoding string `json:"encoding"`
	Sha      string `json:"sha"`
}

func (s *flightStore) doJSON(ctx context.Context, method, rawURL string, body []byte, out interface{}) (int, error) {
	var lastStatus int
	for attempt := 0; ; attempt++ {
		var rdr io.Reader
		if body != nil {
			rdr = bytes.NewReader(body)
		}
		req, err := http.NewRequestWithContext(ctx, method, rawURL, rdr)
		if err != nil {
			return 0, err
		}
		req.Header.Set("Authorization", "token "+s.token)
		req.Header.Set("Accept", "application/vnd.github.v3+json")
		if body != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		resp, err := s.httpClient.Do(req)
		if err != nil {
			if attempt+1 >= s.maxRetries || !httpx.IsRetryableError(err) {
				return 0, err
			}
			if err := httpx.SleepCtx(ctx, httpx.Backoff(attempt, 300*time.Millisecond, 5*time.Second)); err != nil {
				return 0, err
			}
			continue
		}

		payload, readErr := io.ReadAll(resp.Body)
		_ = resp.Body.Close()
		lastStatus = resp.StatusCode
		if readErr != nil {
			return lastStatus, readErr
		}

		if httpx.IsRetryableHTTPStatus(resp.StatusCode) && attempt+1 < s.maxRetries {
			if err := httpx.SleepCtx(ctx, httpx.RetryAfterDuration(resp, httpx.Backoff(attempt, 300*time.Millisecond, 5*time.Second), 10*time.Second)); err != nil {
				return lastStatus, err
			}
			continue
		}

		if resp.StatusCode >= 200 && resp.StatusCode < 300 && out != nil {
			if err := json.Unmarshal(payload, out); err != nil {
				return lastStatus, fmt.Errorf("decode response: %w", err)
			}
		}
		if resp.StatusCode >= 400 {
			s.log.Debug("GitHub API error", "method", method, "status", resp.StatusCode, "body", string(payload))
		}
		return lastStatus, nil
	}
}

func (s *flightStore) GetFlightRecord(ctx context.Context, flightNumber, date string) (*types.FlightRecord, string, error) {
	rawURL := s.contentsURL(s.flightPath(flightNumber)) + "?ref=" + url.QueryEscape(s.branch)

	var file contentsFile
	status, err := s.doJSON(ctx, http.MethodGet, rawURL, nil, &file)
	if err != nil {
		return nil, "", fmt.Errorf("fetch flight %s: %w", flightNumber, err)
	}
	if status == http.StatusNotFound {
		return nil, "", fmt.Errorf("flight %s: %w", flightNumber, errs.ErrNotFound)
	}
	if status >= 400 {
		return nil, "", fmt.Errorf("fetch flight %s: status %d", flightNumber, status)
	}

	raw := file.Content
	if file.Encoding == "" || file.Encoding == "base64" {
		decoded, err := base64.StdEncoding.DecodeString(strings.ReplaceAll(raw, "\n", ""))
		if err != nil {
			return nil, "", fmt.Errorf("decode flight %s content: %w", flightNumber, err)
		}
		raw = string(decoded)
	}

	var record types.FlightRecord
	if err := json.Unmarshal([]byte(raw), &record); err != nil {
		return nil, "", fmt.Errorf("parse flight %s record: %w", flightNumber, err)
	}
	if date != "" && record.Date != date {
		return nil, "", fmt.Errorf("flight %s on %s: %w", flightNumber, date, errs.ErrNotFound)
	}
	return &record, file.Sha, nil
}

func (s *flightStore) UpsertFlightRecord(ctx context.Context, record *types.FlightRecord, expectedRevision, message string) (string, error) {
	content, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal flight record: %w", err)
	}

	body := map[string]interface{}{
		"message": message,
		"content": base64.StdEncoding.EncodeToString(content),
		"branch":  s.branch,
	}
	if expectedRevision != "" {
		body["sha"] = expectedRevision
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return "", err
	}

	var result struct {
		Content contentsFile `json:"content"`
	}
	status, err := s.doJSON(ctx, http.MethodPut, s.contentsURL(s.flightPath(record.FlightNumber)), payload, &result)
	if err != nil {
		return "", fmt.Errorf("upsert flight %s: %w", record.FlightNumber, err)
	}
	switch {
	case status == http.StatusConflict || status == http.StatusUnprocessableEntity:
		// Another writer updated the file since our read.
		return "", fmt.Errorf("upsert flight %s: %w", record.FlightNumber, errs.ErrConflict)
	case status >= 400:
		return "", fmt.Errorf("upsert flight %s: status %d", record.FlightNumber, status)
	}
	return result.Content.Sha, nil
}
