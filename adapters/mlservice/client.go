// Package mlservice is the HTTP adapter for the external machine-learning
// forecasting service. It classifies every failure so the job layer can
// give the right retry advice.
package mlservice

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"retailpulse/domain/core"
	"retailpulse/domain/forecast"
	"retailpulse/ports"
)

// Config holds the connection settings for the forecasting service.
type Config struct {
	BaseURL        string
	TrainTimeout   time.Duration
	PredictTimeout time.Duration
}

// Client implements ports.ModelService over HTTP.
type Client struct {
	cfg  Config
	http *http.Client
}

// NewClient creates an ML service client.
func NewClient(cfg Config) *Client {
	return &Client{
		cfg: cfg,
		// Per-call deadlines come from the context; no client-level
		// timeout so training runs are not cut short.
		http: &http.Client{},
	}
}

var _ ports.ModelService = (*Client)(nil)

// Train asks the service to fit models on the dataset. Training is long
// running; the call blocks until the service answers or the deadline hits.
func (c *Client) Train(ctx context.Context, datasetID core.DatasetID) error {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.TrainTimeout)
	defer cancel()

	body := map[string]string{"dataset_id": datasetID.String()}
	raw, err := c.post(ctx, "/train", body)
	if err != nil {
		return err
	}

	var decoded struct {
		Status string `json:"status"`
		Error  string `json:"error"`
	}
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return fmt.Errorf("%w: malformed train response: %v", core.ErrPipelineModel, err)
	}
	if decoded.Status == "error" {
		return fmt.Errorf("%w: %s", core.ErrPipelineModel, decoded.Error)
	}
	return nil
}

// Predict requests a purchase plan for the target season. A 200 response
// whose payload carries status "error" is still a model failure.
func (c *Client) Predict(ctx context.Context, datasetID core.DatasetID, targetSeason string) (*forecast.MlResult, error) {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.PredictTimeout)
	defer cancel()

	body := map[string]string{
		"dataset_id":    datasetID.String(),
		"target_season": targetSeason,
	}
	raw, err := c.post(ctx, "/predict", body)
	if err != nil {
		return nil, err
	}

	var result forecast.MlResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, fmt.Errorf("%w: malformed predict response: %v", core.ErrPipelineModel, err)
	}
	if result.Status == "error" {
		return nil, fmt.Errorf("%w: %s", core.ErrPipelineModel, result.Error)
	}
	return &result, nil
}

func (c *Client) post(ctx context.Context, path string, body any) ([]byte, error) {
	raw, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	url := strings.TrimRight(c.cfg.BaseURL, "/") + path
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, classifyTransport(err)
	}
	defer resp.Body.Close()

	respRaw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, classifyTransport(err)
	}

	log.Debug().
		Str("component", "mlservice").
		Str("path", path).
		Int("status", resp.StatusCode).
		Dur("elapsed", time.Since(start)).
		Msg("forecast service call")

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: http %d: %s", core.ErrPipelineModel, resp.StatusCode, truncate(respRaw, 200))
	}
	return respRaw, nil
}

// classifyTransport separates deadline expiry from connectivity failures.
func classifyTransport(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", core.ErrPipelineTimeout, err)
	}
	return fmt.Errorf("%w: %v", core.ErrPipelineTransport, err)
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
