// Package llm is the remote classification collaborator: an OpenAI chat
// client with retries and a circuit breaker, and a chunked tab classifier
// built on it.
package llm

import (
	"context"
	stderrors "errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
	openai "github.com/sashabaranov/go-openai"
	"github.com/sony/gobreaker"

	"github.com/hpungsan/tabdigest/internal/errors"
)

const (
	DefaultModel     = "gpt-4.1-mini"
	defaultTries     = 3
	defaultRetryStep = 1500 * time.Millisecond
)

// Chatter sends one system/user exchange and returns the decoded JSON object
// the model answered with.
type Chatter interface {
	ChatJSON(ctx context.Context, system, user string) (map[string]any, error)
}

// ClientConfig configures an OpenAIClient.
type ClientConfig struct {
	APIKey  string
	BaseURL string
	Model   string
	// Temperature is sent unless zero. It is dropped for the rest of a call
	// when the model rejects it.
	Temperature float32
	// Tries bounds attempts per call (default 3).
	Tries uint
	// RetryStep is the first backoff interval; later waits double up to
	// 8*RetryStep (default 1.5s).
	RetryStep  time.Duration
	HTTPClient *http.Client
	Logger     zerolog.Logger
}

// OpenAIClient calls the chat completions API in JSON-object mode.
type OpenAIClient struct {
	client      *openai.Client
	model       string
	temperature float32
	tries       uint
	step        time.Duration
	breaker     *gobreaker.CircuitBreaker
	log         zerolog.Logger
}

// NewOpenAIClient returns a client for cfg. A missing key is reported as
// ClassificationUnavailable so callers can fall back to local rules.
func NewOpenAIClient(cfg ClientConfig) (*OpenAIClient, error) {
	key := strings.TrimSpace(cfg.APIKey)
	if key == "" {
		return nil, errors.NewClassificationUnavailable(stderrors.New("OpenAI API key not found"))
	}

	oc := openai.DefaultConfig(key)
	if cfg.BaseURL != "" {
		oc.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	}
	if cfg.HTTPClient != nil {
		oc.HTTPClient = cfg.HTTPClient
	}

	c := &OpenAIClient{
		client:      openai.NewClientWithConfig(oc),
		model:       cfg.Model,
		temperature: cfg.Temperature,
		tries:       cfg.Tries,
		step:        cfg.RetryStep,
		log:         cfg.Logger,
	}
	if c.model == "" {
		c.model = DefaultModel
	}
	if c.tries == 0 {
		c.tries = defaultTries
	}
	if c.step <= 0 {
		c.step = defaultRetryStep
	}

	c.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "openai-chat",
		MaxRequests: 1,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			c.log.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).
				Msg("circuit breaker state changed")
		},
	})
	return c, nil
}

// ChatJSON sends the exchange with bounded retries. Authentication failures
// and an open breaker are not retried. The final error is a
// ClassificationUnavailable.
func (c *OpenAIClient) ChatJSON(ctx context.Context, system, user string) (map[string]any, error) {
	temperature := c.temperature
	op := func() (map[string]any, error) {
		res, err := c.breaker.Execute(func() (interface{}, error) {
			out, err := c.complete(ctx, system, user, temperature)
			if err != nil && temperature != 0 && temperatureUnsupported(err) {
				temperature = 0
				out, err = c.complete(ctx, system, user, 0)
			}
			return out, err
		})
		if err != nil {
			if isPermanent(err) {
				return nil, backoff.Permanent(err)
			}
			return nil, err
		}
		return res.(map[string]any), nil
	}

	out, err := backoff.Retry(ctx, op,
		backoff.WithBackOff(retryBackOff(c.step)),
		backoff.WithMaxTries(c.tries),
		backoff.WithNotify(func(err error, wait time.Duration) {
			c.log.Warn().Err(err).Dur("wait", wait).Msg("llm call failed, retrying")
		}),
	)
	if err != nil {
		return nil, errors.NewClassificationUnavailable(err)
	}
	return out, nil
}

func (c *OpenAIClient) complete(ctx context.Context, system, user string, temperature float32) (map[string]any, error) {
	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: user},
		},
		Temperature: temperature,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, stderrors.New("chat completion: no choices")
	}

	content := resp.Choices[0].Message.Content
	var out map[string]any
	if err := json.Unmarshal([]byte(content), &out); err != nil {
		return nil, fmt.Errorf("response is not valid JSON content: %s", clip(content, 500))
	}
	return out, nil
}

// statusCode extracts the HTTP status from a go-openai error, or 0.
func statusCode(err error) int {
	var apiErr *openai.APIError
	if stderrors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode
	}
	var reqErr *openai.RequestError
	if stderrors.As(err, &reqErr) {
		return reqErr.HTTPStatusCode
	}
	return 0
}

func isPermanent(err error) bool {
	if stderrors.Is(err, gobreaker.ErrOpenState) || stderrors.Is(err, gobreaker.ErrTooManyRequests) {
		return true
	}
	switch statusCode(err) {
	case http.StatusUnauthorized, http.StatusForbidden:
		return true
	}
	return stderrors.Is(err, context.Canceled) || stderrors.Is(err, context.DeadlineExceeded)
}

func temperatureUnsupported(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "temperature") && strings.Contains(msg, "unsupported")
}

// retryBackOff waits step, 2*step, 4*step, ... capped at 8*step, without jitter.
func retryBackOff(step time.Duration) *backoff.ExponentialBackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = step
	b.Multiplier = 2
	b.RandomizationFactor = 0
	b.MaxInterval = 8 * step
	b.Reset()
	return b
}

func clip(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
