package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/kailas-cloud/feedlock/internal/domain"
	"github.com/kailas-cloud/feedlock/internal/domain/keyword"
	"github.com/kailas-cloud/feedlock/internal/domain/post"
	"github.com/kailas-cloud/feedlock/internal/metrics"
)

const systemPrompt = "You are a content relevance classifier. " +
	"You analyze social media posts and rate their relevance to user-defined topics."

var scorePattern = regexp.MustCompile(`0\.\d+|1\.0?`)

// Classifier rates post relevance with an OpenAI-compatible chat completion API.
type Classifier struct {
	client      *openai.Client
	model       string
	temperature float32
	maxTokens   int
	user        string
	provider    string
	limiter     *rate.Limiter
	logger      *zap.Logger
}

// Config holds the classifier provider settings.
type Config struct {
	APIKey      string
	BaseURL     string
	Model       string
	Temperature float32
	MaxTokens   int
	User        string
	Provider    string
	// RequestsPerSecond caps outbound calls. Zero disables the limiter.
	RequestsPerSecond float64
	Burst             int
	Logger            *zap.Logger
}

// NewClassifier creates an OpenAI-compatible relevance classifier.
func NewClassifier(cfg *Config) *Classifier {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}

	var limiter *rate.Limiter
	if cfg.RequestsPerSecond > 0 {
		burst := cfg.Burst
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), burst)
	}

	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}

	return &Classifier{
		client:      openai.NewClientWithConfig(clientCfg),
		model:       cfg.Model,
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
		user:        cfg.User,
		provider:    cfg.Provider,
		limiter:     limiter,
		logger:      log,
	}
}

// Classify returns the relevance of p to keywords in [0,1].
// A reply without a parsable score is an error so the caller can fall back without memoizing it.
func (c *Classifier) Classify(ctx context.Context, p post.Content, keywords keyword.Set) (float64, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			c.fail("rate_limiter")
			return 0, fmt.Errorf("wait for rate limiter: %w: %w", err, domain.ErrClassifierUnavailable)
		}
	}

	req := openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: buildPrompt(p, keywords)},
		},
		Temperature: c.temperature,
		MaxTokens:   c.maxTokens,
		User:        c.user,
	}

	start := time.Now()
	resp, err := c.client.CreateChatCompletion(ctx, req)
	duration := time.Since(start)

	if err != nil {
		c.fail("api_error")
		return 0, parseAPIError(err)
	}

	if len(resp.Choices) == 0 {
		c.fail("empty_response")
		return 0, fmt.Errorf("empty completion response: %w", domain.ErrClassifierUnavailable)
	}

	score, ok := parseScore(resp.Choices[0].Message.Content)
	if !ok {
		c.fail("unparsable_score")
		return 0, fmt.Errorf("unparsable score %q: %w", resp.Choices[0].Message.Content, domain.ErrClassifierUnavailable)
	}

	metrics.ClassifierRequestsTotal.WithLabelValues(c.provider, c.model, "success").Inc()
	metrics.ClassifierRequestDuration.WithLabelValues(c.provider, c.model).Observe(duration.Seconds())

	c.logger.Debug("AI classification completed",
		zap.String("post_id", p.ID()),
		zap.Int("keywords", keywords.Len()),
		zap.Float64("score", score),
		zap.Duration("duration", duration),
	)
	return score, nil
}

// HealthCheck verifies API availability via ListModels (free endpoint).
func (c *Classifier) HealthCheck(ctx context.Context) error {
	if _, err := c.client.ListModels(ctx); err != nil {
		return fmt.Errorf("list models: %w", err)
	}
	return nil
}

func (c *Classifier) fail(errorType string) {
	metrics.ClassifierRequestsTotal.WithLabelValues(c.provider, c.model, "error").Inc()
	metrics.ClassifierErrorsTotal.WithLabelValues(c.provider, c.model, errorType).Inc()
}

func buildPrompt(p post.Content, keywords keyword.Set) string {
	hashtags := strings.Join(p.Hashtags(), " ")
	if hashtags == "" {
		hashtags = "None"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "User's interests: %s\n\n", strings.Join(keywords.Values(), ", "))
	b.WriteString("Post content:\n")
	fmt.Fprintf(&b, "Caption: %q\n", p.Caption())
	fmt.Fprintf(&b, "Hashtags: %s\n\n", hashtags)
	b.WriteString("Rate the relevance of this post to the user's interests on a scale of " +
		"0.0 (completely irrelevant) to 1.0 (highly relevant).\n\n")
	b.WriteString("Consider:\n" +
		"- Direct keyword matches (high relevance)\n" +
		"- Semantic similarity (moderate relevance)\n" +
		"- Topic alignment (moderate relevance)\n" +
		"- Context and intent (important)\n\n")
	b.WriteString("Respond with ONLY a single number between 0.0 and 1.0, no explanation.")
	return b.String()
}

// parseScore extracts the first score-shaped number from a completion.
func parseScore(reply string) (float64, bool) {
	m := scorePattern.FindString(reply)
	if m == "" {
		return 0, false
	}
	score, err := strconv.ParseFloat(m, 64)
	if err != nil || score < 0 || score > 1 {
		return 0, false
	}
	return score, true
}

// parseAPIError maps provider errors onto the classifier sentinels.
// HTTP 429 becomes ErrClassifierRateLimited, everything else ErrClassifierUnavailable.
func parseAPIError(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return fmt.Errorf("classifier API error %d: %s: %w",
			apiErr.HTTPStatusCode, apiErr.Message, sentinelFor(apiErr.HTTPStatusCode))
	}

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		detail := extractDetail(reqErr.Body)
		if detail == "" {
			detail = string(reqErr.Body)
		}
		return fmt.Errorf("classifier API error %d: %s: %w",
			reqErr.HTTPStatusCode, detail, sentinelFor(reqErr.HTTPStatusCode))
	}

	return fmt.Errorf("classifier request failed: %w: %w", err, domain.ErrClassifierUnavailable)
}

func sentinelFor(status int) error {
	if status == http.StatusTooManyRequests {
		return domain.ErrClassifierRateLimited
	}
	return domain.ErrClassifierUnavailable
}

// extractDetail extracts the "detail" field from a JSON error body (Nebius error format).
func extractDetail(body []byte) string {
	var parsed struct {
		Detail string `json:"detail"`
	}
	if json.Unmarshal(body, &parsed) == nil && parsed.Detail != "" {
		return parsed.Detail
	}
	return ""
}
