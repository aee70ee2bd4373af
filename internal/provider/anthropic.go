// Package provider builds the Messages API client and classifies its failures.
package provider

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/petasbytes/code-agent/internal/errorsx"
)

const DefaultModel = anthropic.Model("claude-sonnet-4-20250514")

// Options configures NewAnthropicClient. Zero values keep SDK defaults,
// except MaxRetries which is always applied.
type Options struct {
	APIKey     string
	BaseURL    string
	MaxRetries int
	Timeout    time.Duration
	HTTPClient *http.Client
}

// NewAnthropicClient returns a client for the Messages API.
func NewAnthropicClient(o Options) *anthropic.Client {
	opts := []option.RequestOption{option.WithMaxRetries(o.MaxRetries)}
	if o.APIKey != "" {
		opts = append(opts, option.WithAPIKey(o.APIKey))
	}
	if o.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(o.BaseURL))
	}
	if o.Timeout > 0 {
		opts = append(opts, option.WithRequestTimeout(o.Timeout))
	}
	if o.HTTPClient != nil {
		opts = append(opts, option.WithHTTPClient(o.HTTPClient))
	}
	c := anthropic.NewClient(opts...)
	return &c
}

// Classify attaches a reason code to a failed Messages call.
func Classify(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return errorsx.Wrap(err, errorsx.ReasonRemoteCancelled)
	}
	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) {
		switch apiErr.StatusCode {
		case http.StatusTooManyRequests, 529:
			return errorsx.Wrap(err, errorsx.ReasonRemoteRateLimit)
		case http.StatusUnauthorized, http.StatusForbidden:
			return errorsx.Wrap(err, errorsx.ReasonRemoteAuth)
		}
	}
	return errorsx.Wrap(err, errorsx.ReasonRemoteCall)
}
