package replicate

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

	"github.com/cheahjs/replicate-image-bundler/internal/params"
)

const (
	DefaultBaseURL      = "https://api.replicate.com/v1"
	DefaultPollInterval = time.Second

	// refine value the model uses for "no refiner"
	wireRefineNone = "no_refiner"
)

// GenerationServiceError is returned when the generation service cannot produce
// a result. The underlying cause is kept for errors.Is / errors.As.
type GenerationServiceError struct {
	Cause error
}

func (e *GenerationServiceError) Error() string {
	return fmt.Sprintf("generation service error: %v", e.Cause)
}

func (e *GenerationServiceError) Unwrap() error {
	return e.Cause
}

// Client runs predictions against a single Replicate model endpoint.
type Client struct {
	httpClient   *http.Client
	baseURL      string
	token        string
	model        string
	version      string
	pollInterval time.Duration
	timeout      time.Duration
}

type Option func(*Client)

func WithBaseURL(baseURL string) Option {
	return func(c *Client) { c.baseURL = strings.TrimRight(baseURL, "/") }
}

func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) { c.httpClient = httpClient }
}

func WithPollInterval(d time.Duration) Option {
	return func(c *Client) { c.pollInterval = d }
}

// WithTimeout bounds a whole Generate call, polling included. Zero means no bound.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.timeout = d }
}

// NewClient creates a client for endpoint, which is either "owner/name" or
// "owner/name:version".
func NewClient(token, endpoint string, opts ...Option) (*Client, error) {
	if token == "" {
		return nil, errors.New("replicate api token is required")
	}
	model, version, _ := strings.Cut(endpoint, ":")
	if strings.Count(model, "/") != 1 {
		return nil, fmt.Errorf("invalid model endpoint %q, expected owner/name[:version]", endpoint)
	}

	client := &Client{
		httpClient:   &http.Client{},
		baseURL:      DefaultBaseURL,
		token:        token,
		model:        model,
		version:      version,
		pollInterval: DefaultPollInterval,
	}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

// Generate creates one prediction for ps and blocks until it reaches a terminal
// state. The returned locators keep the order of the prediction output.
func (c *Client) Generate(ctx context.Context, ps params.ParameterSet) ([]string, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	prediction, err := c.createPrediction(ctx, convertParams(ps))
	if err != nil {
		return nil, &GenerationServiceError{Cause: err}
	}

	log.Debug().Str("prediction", prediction.ID).Str("status", prediction.Status).Msg("Created prediction")

	for !prediction.terminal() {
		if err := c.sleep(ctx); err != nil {
			return nil, &GenerationServiceError{Cause: err}
		}
		prediction, err = c.getPrediction(ctx, prediction)
		if err != nil {
			return nil, &GenerationServiceError{Cause: err}
		}
	}

	if prediction.Status != StatusSucceeded {
		return nil, &GenerationServiceError{
			Cause: fmt.Errorf("prediction %s %s: %s", prediction.ID, prediction.Status, predictionError(prediction.Error)),
		}
	}

	locators, err := parseOutput(prediction.Output)
	if err != nil {
		return nil, &GenerationServiceError{Cause: err}
	}

	log.Info().Str("prediction", prediction.ID).Int("images", len(locators)).Msg("Prediction succeeded")

	return locators, nil
}

func convertParams(ps params.ParameterSet) PredictionInput {
	refine := ps.Refine
	if refine == params.RefineNone {
		refine = wireRefineNone
	}

	return PredictionInput{
		Prompt:            ps.Prompt,
		NegativePrompt:    ps.NegativePrompt,
		Width:             ps.Width,
		Height:            ps.Height,
		NumOutputs:        ps.NumOutputs,
		Scheduler:         ps.Scheduler,
		NumInferenceSteps: ps.NumInferenceSteps,
		GuidanceScale:     ps.GuidanceScale,
		PromptStrength:    ps.PromptStrength,
		Refine:            refine,
		HighNoiseFrac:     ps.HighNoiseFrac,
	}
}

func (c *Client) createPrediction(ctx context.Context, input PredictionInput) (*Prediction, error) {
	url := fmt.Sprintf("%s/models/%s/predictions", c.baseURL, c.model)
	body := PredictionRequest{Input: input}
	if c.version != "" {
		url = c.baseURL + "/predictions"
		body.Version = c.version
	}

	jsonBody, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to encode prediction request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(jsonBody))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Prefer", "wait")

	return c.do(req)
}

func (c *Client) getPrediction(ctx context.Context, prediction *Prediction) (*Prediction, error) {
	url := prediction.URLs.Get
	if url == "" {
		url = fmt.Sprintf("%s/predictions/%s", c.baseURL, prediction.ID)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	return c.do(req)
}

func (c *Client) do(req *http.Request) (*Prediction, error) {
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read prediction response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%s %s returned %d: %s", req.Method, req.URL.Path, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var prediction Prediction
	if err := json.Unmarshal(body, &prediction); err != nil {
		return nil, fmt.Errorf("failed to decode prediction: %w", err)
	}

	return &prediction, nil
}

func (c *Client) sleep(ctx context.Context) error {
	timer := time.NewTimer(c.pollInterval)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// parseOutput accepts null, a single URL or a list of URLs.
func parseOutput(raw json.RawMessage) ([]string, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return []string{}, nil
	}

	var list []string
	if err := json.Unmarshal(trimmed, &list); err == nil {
		if list == nil {
			list = []string{}
		}
		return list, nil
	}

	var single string
	if err := json.Unmarshal(trimmed, &single); err == nil {
		return []string{single}, nil
	}

	return nil, fmt.Errorf("unexpected prediction output: %s", string(trimmed))
}

func predictionError(raw json.RawMessage) string {
	var message string
	if err := json.Unmarshal(raw, &message); err == nil && message != "" {
		return message
	}
	if len(raw) == 0 || string(raw) == "null" {
		return "no error detail"
	}
	return string(raw)
}
