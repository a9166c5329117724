// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 drgz Accounts Contributors

package notify

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/samber/oops"
)

// DefaultElasticEndpoint is the Elastic Email v2 send API.
const DefaultElasticEndpoint = "https://api.elasticemail.com/v2/email/send"

// Email is a rendered message ready for delivery.
type Email struct {
	To       string
	From     string
	FromName string
	Subject  string
	HTML     string
	Text     string
}

// Sender delivers a rendered email.
type Sender interface {
	Send(ctx context.Context, email Email) error
}

// ElasticSender delivers mail through the Elastic Email HTTP API.
type ElasticSender struct {
	apiKey   string
	endpoint string
	client   *http.Client
}

// ElasticOption configures an ElasticSender.
type ElasticOption func(*ElasticSender)

// WithEndpoint overrides the send API URL.
func WithEndpoint(endpoint string) ElasticOption {
	return func(s *ElasticSender) { s.endpoint = endpoint }
}

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(client *http.Client) ElasticOption {
	return func(s *ElasticSender) { s.client = client }
}

// NewElasticSender creates a sender authenticated with apiKey.
func NewElasticSender(apiKey string, opts ...ElasticOption) (*ElasticSender, error) {
	if apiKey == "" {
		return nil, oops.Code("MAIL_API_KEY_REQUIRED").Errorf("elastic email api key is required")
	}
	s := &ElasticSender{
		apiKey:   apiKey,
		endpoint: DefaultElasticEndpoint,
		client:   &http.Client{Timeout: 15 * time.Second},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Send posts email as a transactional message. Any non-2xx answer is a failure.
func (s *ElasticSender) Send(ctx context.Context, email Email) error {
	form := url.Values{
		"apikey":          {s.apiKey},
		"from":            {email.From},
		"fromName":        {email.FromName},
		"subject":         {email.Subject},
		"to":              {email.To},
		"bodyHtml":        {email.HTML},
		"bodyText":        {email.Text},
		"isTransactional": {"true"},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return oops.Code("MAIL_SEND_FAILED").With("operation", "build request").Wrap(err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := s.client.Do(req)
	if err != nil {
		return oops.Code("MAIL_SEND_FAILED").With("operation", "post message").Wrap(err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512)) //nolint:errcheck // body is diagnostic only
		return oops.Code("MAIL_SEND_FAILED").
			With("status", resp.StatusCode).
			With("response", string(body)).
			Errorf("elastic email responded %d", resp.StatusCode)
	}
	return nil
}

// LogSender logs messages instead of delivering them. It stands in for a
// real sender when no API key is configured.
type LogSender struct {
	logger *slog.Logger
}

// NewLogSender creates a LogSender writing to logger, or slog.Default when nil.
func NewLogSender(logger *slog.Logger) *LogSender {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogSender{logger: logger}
}

// Send logs the envelope and text body.
func (s *LogSender) Send(ctx context.Context, email Email) error {
	s.logger.InfoContext(ctx, "mail delivery disabled, logging message",
		"to", email.To,
		"from", email.From,
		"subject", email.Subject,
		"body", email.Text)
	return nil
}

var (
	_ Sender = (*ElasticSender)(nil)
	_ Sender = (*LogSender)(nil)
)
