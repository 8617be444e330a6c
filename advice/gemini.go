package advice

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"

	"healthai.com/rider/logger"
)

// Generator produces a text completion for a prompt.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

type Config struct {
	APIKey     string        `envconfig:"GEMINI_API_KEY"`
	Model      string        `envconfig:"HAI_GEMINI_MODEL" default:"gemini-2.0-flash"`
	BaseURL    string        `envconfig:"HAI_GEMINI_BASE_URL" default:"https://generativelanguage.googleapis.com/v1beta"`
	Timeout    time.Duration `envconfig:"HAI_GEMINI_TIMEOUT" default:"60s"`
	RetryCount int           `envconfig:"HAI_GEMINI_RETRIES" default:"2"`
}

var ErrMissingAPIKey = errors.New("GEMINI_API_KEY is not set")

type generateRequest struct {
	Contents []content `json:"contents"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text"`
}

type generateResponse struct {
	Candidates []struct {
		Content      content `json:"content"`
		FinishReason string  `json:"finishReason"`
	} `json:"candidates"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error,omitempty"`
}

type GeminiClient struct {
	httpClient *resty.Client
	model      string
	gLogger    zerolog.Logger
}

func NewGeminiClient(cfg Config) (*GeminiClient, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, ErrMissingAPIKey
	}
	if cfg.Model == "" {
		cfg.Model = "gemini-2.0-flash"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	client := resty.New().
		SetBaseURL(strings.TrimRight(cfg.BaseURL, "/")).
		SetTimeout(cfg.Timeout).
		SetRetryCount(cfg.RetryCount).
		SetRetryWaitTime(500 * time.Millisecond).
		SetRetryMaxWaitTime(5 * time.Second).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			return err != nil || r.StatusCode() >= 500 || r.StatusCode() == 429
		}).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json").
		SetHeader("x-goog-api-key", cfg.APIKey)

	return &GeminiClient{
		httpClient: client,
		model:      cfg.Model,
		gLogger:    logger.NewLogger("Gemini client"),
	}, nil
}

func (c *GeminiClient) Generate(ctx context.Context, prompt string) (string, error) {
	request := generateRequest{
		Contents: []content{{Role: "user", Parts: []part{{Text: prompt}}}},
	}

	var response generateResponse
	start := time.Now()
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetBody(request).
		SetResult(&response).
		SetError(&response).
		SetPathParam("model", c.model).
		Post("/models/{model}:generateContent")
	if err != nil {
		c.gLogger.Err(err).Str("model", c.model).Msg("Gemini call failed")
		return "", fmt.Errorf("gemini call: %w", err)
	}
	if resp.IsError() {
		msg := resp.Status()
		if response.Error != nil {
			msg = response.Error.Message
		}
		c.gLogger.Error().
			Int("status_code", resp.StatusCode()).
			Str("model", c.model).
			Msg("Gemini returned an error")
		return "", fmt.Errorf("gemini returned %d: %s", resp.StatusCode(), msg)
	}

	var sb strings.Builder
	if len(response.Candidates) > 0 {
		for _, p := range response.Candidates[0].Content.Parts {
			sb.WriteString(p.Text)
		}
	}
	c.gLogger.Debug().
		Str("model", c.model).
		Dur("duration", time.Since(start)).
		Int("chars", sb.Len()).
		Msg("Gemini response received")
	if sb.Len() == 0 {
		return "", errors.New("gemini returned no candidates")
	}
	return sb.String(), nil
}
