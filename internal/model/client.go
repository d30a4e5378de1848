package model

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"net/url"
	"strings"
	"time"

	"ripple/internal/config"
	"ripple/internal/logging"
	"ripple/internal/preprocess"
)

const defaultInferenceTimeout = 60 * time.Second

// Prediction is one model output for one input tensor.
type Prediction struct {
	Label string  `json:"label"`
	Score float64 `json:"score"`
}

// Client talks to the inference endpoint.
type Client struct {
	endpoint   string
	name       string
	httpClient *http.Client
	logger     *slog.Logger
}

// Option customizes the client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithLogger attaches a logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logging.NewComponentLogger(logger, "model")
		}
	}
}

// NewClient constructs an inference client from the model configuration.
func NewClient(cfg config.Model, opts ...Option) (*Client, error) {
	endpoint := strings.TrimRight(strings.TrimSpace(cfg.EndpointURL), "/")
	if endpoint == "" {
		return nil, errors.New("model client: endpoint_url is required")
	}
	if _, err := url.Parse(endpoint); err != nil {
		return nil, fmt.Errorf("model client: parse endpoint: %w", err)
	}

	timeout := defaultInferenceTimeout
	if cfg.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}

	client := &Client{
		endpoint:   endpoint,
		name:       strings.TrimSpace(cfg.Name),
		httpClient: &http.Client{Timeout: timeout},
		logger:     logging.NewNop(),
	}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

type inferenceInput struct {
	Shape []int  `json:"shape"`
	Data  string `json:"data"`
}

type inferenceRequest struct {
	Model  string           `json:"model,omitempty"`
	Inputs []inferenceInput `json:"inputs"`
}

type inferenceResponse struct {
	Predictions []Prediction `json:"predictions"`
	Error       string       `json:"error,omitempty"`
}

// Predict submits one batch and returns a prediction per input tensor, in
// input order.
func (c *Client) Predict(ctx context.Context, batch preprocess.Batch) ([]Prediction, error) {
	if len(batch.Tensors) == 0 {
		return nil, errors.New("model predict: empty batch")
	}

	payload := inferenceRequest{
		Model:  c.name,
		Inputs: make([]inferenceInput, 0, len(batch.Tensors)),
	}
	for _, tensor := range batch.Tensors {
		payload.Inputs = append(payload.Inputs, inferenceInput{
			Shape: tensor.Shape,
			Data:  encodeFloat32(tensor.Data),
		})
	}
	encoded, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("model predict: encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(encoded))
	if err != nil {
		return nil, fmt.Errorf("model predict: new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("model predict: http error (timeout=%s): %w", c.httpClient.Timeout, err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("model predict: read body: %w", err)
	}
	if resp.StatusCode >= http.StatusMultipleChoices {
		return nil, fmt.Errorf("model predict: http %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var decoded inferenceResponse
	if err := json.Unmarshal(body, &decoded); err != nil {
		return nil, fmt.Errorf("model predict: decode response: %w", err)
	}
	if decoded.Error != "" {
		return nil, fmt.Errorf("model predict: endpoint error: %s", decoded.Error)
	}
	if len(decoded.Predictions) != len(batch.Tensors) {
		return nil, fmt.Errorf("model predict: got %d predictions for %d inputs", len(decoded.Predictions), len(batch.Tensors))
	}
	return decoded.Predictions, nil
}

// HealthCheck probes the endpoint's ping route.
func (c *Client) HealthCheck(ctx context.Context) error {
	parsed, err := url.Parse(c.endpoint)
	if err != nil {
		return fmt.Errorf("model health: parse endpoint: %w", err)
	}
	parsed.Path = "/ping"
	parsed.RawQuery = ""

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, parsed.String(), nil)
	if err != nil {
		return fmt.Errorf("model health: new request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("model health: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, io.LimitReader(resp.Body, 1024))
	if resp.StatusCode >= http.StatusMultipleChoices {
		return fmt.Errorf("model health: http %d", resp.StatusCode)
	}
	return nil
}

func encodeFloat32(data []float32) string {
	raw := make([]byte, 4*len(data))
	for i, v := range data {
		binary.LittleEndian.PutUint32(raw[i*4:], math.Float32bits(v))
	}
	return base64.StdEncoding.EncodeToString(raw)
}
