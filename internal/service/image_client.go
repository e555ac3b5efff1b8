package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"

	"storybook-server/internal/config"
	"storybook-server/internal/model"
	"storybook-server/internal/retry"
)

var (
	imageRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "storybook_image_requests_total",
			Help: "Total number of requests to the image generation server.",
		},
		[]string{"status"},
	)
	imageRequestDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "storybook_image_request_duration_seconds",
			Help:    "Histogram of image generation request durations.",
			Buckets: []float64{1, 2.5, 5, 10, 20, 30, 60, 90, 120},
		},
	)
)

// ImageClient produces one illustration per prompt.
type ImageClient interface {
	GenerateImage(ctx context.Context, prompt string) ([]byte, error)
}

type imageAPIRequest struct {
	Prompt string `json:"prompt"`
	Ratio  string `json:"ratio"`
}

// httpImageClient talks to the image generation server over HTTP. Requests
// are retried with exponential backoff; throttled attempts wait longer.
type httpImageClient struct {
	baseURL    string
	ratio      string
	httpClient *http.Client
	policy     retry.Policy
	logger     *zap.Logger
}

// NewImageClient builds the HTTP image client from configuration.
func NewImageClient(cfg *config.Config, logger *zap.Logger) ImageClient {
	return &httpImageClient{
		baseURL: cfg.ImageServerURL,
		ratio:   cfg.ImageRatio,
		httpClient: &http.Client{
			Timeout: cfg.ImageTimeout,
		},
		policy: retry.Policy{
			MaxAttempts: cfg.ImageMaxAttempts,
			Backoff:     retry.Exponential(cfg.ImageBaseRetryDelay),
		},
		logger: logger,
	}
}

func (c *httpImageClient) GenerateImage(ctx context.Context, prompt string) ([]byte, error) {
	var imageData []byte

	err := c.policy.Do(ctx, func(ctx context.Context, attempt int) error {
		data, err := c.callImageAPI(ctx, prompt)
		if err != nil {
			c.logger.Warn("image generation attempt failed",
				zap.Int("attempt", attempt),
				zap.Error(err),
			)
			return err
		}
		imageData = data
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", model.ErrImageGenerationFailed, err)
	}
	return imageData, nil
}

func (c *httpImageClient) callImageAPI(ctx context.Context, prompt string) ([]byte, error) {
	reqBody, err := json.Marshal(imageAPIRequest{Prompt: prompt, Ratio: c.ratio})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request payload: %w", err)
	}

	endpointURL := c.baseURL + "/generate"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpointURL, bytes.NewReader(reqBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "image/*")

	startTime := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		imageRequestsTotal.With(prometheus.Labels{"status": "error"}).Inc()
		return nil, fmt.Errorf("http request failed: %w", err)
	}
	defer resp.Body.Close()

	bodyBytes, readErr := io.ReadAll(resp.Body)
	duration := time.Since(startTime)

	if resp.StatusCode == http.StatusTooManyRequests {
		imageRequestsTotal.With(prometheus.Labels{"status": "rate_limited"}).Inc()
		return nil, fmt.Errorf("%w: server returned status 429", model.ErrRateLimited)
	}
	if resp.StatusCode != http.StatusOK {
		imageRequestsTotal.With(prometheus.Labels{"status": "error"}).Inc()
		return nil, fmt.Errorf("server returned status %d: %s", resp.StatusCode, string(bodyBytes))
	}
	if readErr != nil {
		imageRequestsTotal.With(prometheus.Labels{"status": "error"}).Inc()
		return nil, fmt.Errorf("failed to read response body: %w", readErr)
	}
	if len(bodyBytes) == 0 {
		imageRequestsTotal.With(prometheus.Labels{"status": "error"}).Inc()
		return nil, model.ErrNoImageProduced
	}

	imageRequestsTotal.With(prometheus.Labels{"status": "success"}).Inc()
	imageRequestDuration.Observe(duration.Seconds())
	return bodyBytes, nil
}
