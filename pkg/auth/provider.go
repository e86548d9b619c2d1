// Package auth exchanges a TestDriver API key for a short-lived bearer token.
package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"

	"github.com/testdriverai/go-sdk/pkg/core"
	"github.com/testdriverai/go-sdk/pkg/transport"
)

// ExchangePath is the endpoint, relative to the API root, that trades an
// API key for a token.
const ExchangePath = "/auth/exchange-api-key"

// ErrEmptyAPIKey is wrapped by the AuthError returned for an empty key.
var ErrEmptyAPIKey = errors.New("API key is empty")

// Provider owns the bearer token of one client. The token is written only by
// Authenticate and Reset and may be read concurrently through Token.
type Provider struct {
	endpoint   string
	version    string
	httpClient *http.Client
	logger     logrus.FieldLogger

	mu    sync.RWMutex
	token string

	exchanges singleflight.Group
}

// Option configures a Provider.
type Option func(*Provider)

// WithHTTPClient sets the HTTP client used for the exchange.
func WithHTTPClient(client *http.Client) Option {
	return func(p *Provider) {
		p.httpClient = client
	}
}

// WithLogger sets the logger.
func WithLogger(logger logrus.FieldLogger) Option {
	return func(p *Provider) {
		p.logger = logger
	}
}

// WithVersion sets the SDK version reported to the exchange endpoint.
func WithVersion(version string) Option {
	return func(p *Provider) {
		p.version = version
	}
}

// NewProvider creates a provider for the backend rooted at apiRoot.
func NewProvider(apiRoot *url.URL, opts ...Option) *Provider {
	p := &Provider{
		endpoint: strings.TrimSuffix(apiRoot.String(), "/") + ExchangePath,
		logger:   logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.httpClient == nil {
		p.httpClient = transport.NewHTTPClient(0, p.logger)
	}
	return p
}

// Token returns the current bearer token, or "" before a successful
// Authenticate.
func (p *Provider) Token() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.token
}

// Reset discards the stored token. Later requests go out unauthenticated
// until Authenticate succeeds again.
func (p *Provider) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.token = ""
}

// Authenticate exchanges apiKey for a token and stores it. Concurrent calls
// with the same key share one exchange. The exchange is never retried; a
// rejected key yields a *core.AuthError carrying the status and body.
func (p *Provider) Authenticate(ctx context.Context, apiKey string) (string, error) {
	if apiKey == "" {
		return "", &core.AuthError{Err: ErrEmptyAPIKey}
	}

	ch := p.exchanges.DoChan(apiKey, func() (any, error) {
		token, err := p.exchange(ctx, apiKey)
		if err != nil {
			return "", err
		}
		p.mu.Lock()
		p.token = token
		p.mu.Unlock()
		return token, nil
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return "", res.Err
		}
		return res.Val.(string), nil
	case <-ctx.Done():
		return "", &core.NetworkError{Operation: "authenticate", Err: ctx.Err()}
	}
}

func (p *Provider) exchange(ctx context.Context, apiKey string) (string, error) {
	body, err := json.Marshal(map[string]string{
		"apiKey":  apiKey,
		"version": p.version,
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal exchange request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", &core.ConfigError{Field: "apiRoot", Value: p.endpoint, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")

	logger := p.logger.WithField("url", p.endpoint)
	logger.Debug("exchanging API key")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		logger.WithError(err).Warn("API key exchange failed to reach backend")
		return "", &core.NetworkError{Operation: "authenticate", Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &core.NetworkError{Operation: "authenticate", Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		authErr := &core.AuthError{
			Status:     resp.StatusCode,
			StatusText: transport.StatusText(resp),
			Body:       transport.DecodeErrorBody(data),
		}
		logger.WithField("status", resp.StatusCode).Warn("API key rejected")
		return "", authErr
	}

	var out struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal(data, &out); err != nil {
		return "", &core.ParseError{RawLine: string(data), Err: err}
	}
	if out.Token == "" {
		return "", &core.AuthError{
			Status:     resp.StatusCode,
			StatusText: transport.StatusText(resp),
			Body:       "response carried no token",
		}
	}

	logger.Debug("authenticated")
	return out.Token, nil
}
