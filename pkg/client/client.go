package client

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/testdriverai/go-sdk/pkg/auth"
	"github.com/testdriverai/go-sdk/pkg/core"
	"github.com/testdriverai/go-sdk/pkg/session"
	"github.com/testdriverai/go-sdk/pkg/transport"
)

// Version is the SDK version reported to the backend.
const Version = "7.0.0"

// Client represents a connection to a TestDriver backend.
type Client struct {
	// baseURL is the API root of the backend
	baseURL *url.URL

	config     Config
	logger     logrus.FieldLogger
	session    session.Session
	httpClient *http.Client
	auth       *auth.Provider
	dispatcher *transport.Dispatcher
}

// New creates a new TestDriver client with the specified configuration.
// It does not contact the backend; call Authenticate before sending
// commands that require a token.
func New(config Config) (*Client, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	baseURL, err := url.Parse(config.BaseURL)
	if err != nil {
		return nil, &core.ConfigError{
			Field: "BaseURL",
			Value: config.BaseURL,
			Err:   fmt.Errorf("invalid base URL: %w", err),
		}
	}

	if config.SDKVersion == "" {
		config.SDKVersion = Version
	}

	logger := config.newLogger()
	sess := session.FromID(config.SessionID)
	logger = logger.WithField("session", sess.ID())

	httpClient := config.HTTPClient
	if httpClient == nil {
		httpClient = transport.NewHTTPClient(config.HTTPTimeout, logger)
	}

	provider := auth.NewProvider(baseURL,
		auth.WithHTTPClient(httpClient),
		auth.WithLogger(logger),
		auth.WithVersion(config.SDKVersion),
	)

	opts := []transport.Option{
		transport.WithHTTPClient(httpClient),
		transport.WithLogger(logger),
		transport.WithSession(sess.ID()),
		transport.WithTokenSource(provider),
	}
	if config.APIVersion != "" {
		opts = append(opts, transport.WithAPIVersion(config.APIVersion))
	}
	if config.Namespace != "" {
		opts = append(opts, transport.WithNamespace(config.Namespace))
	}

	return &Client{
		baseURL:    baseURL,
		config:     config,
		logger:     logger,
		session:    sess,
		httpClient: httpClient,
		auth:       provider,
		dispatcher: transport.NewDispatcher(baseURL, opts...),
	}, nil
}

// Session returns the identifier attached to every command of this client.
func (c *Client) Session() string {
	return c.session.ID()
}

// Authenticate exchanges the configured API key for a bearer token. Without
// an API key it does nothing and the client stays unauthenticated.
func (c *Client) Authenticate(ctx context.Context) error {
	if c.config.APIKey == "" {
		c.logger.Info("no API key configured, sending requests unauthenticated")
		return nil
	}
	if _, err := c.auth.Authenticate(ctx, c.config.APIKey); err != nil {
		return fmt.Errorf("authenticate: %w", err)
	}
	return nil
}

// Logout discards the bearer token.
func (c *Client) Logout() {
	c.auth.Reset()
}

// Send sends command with params. Supplying onEvent streams the response:
// events reach onEvent as they arrive and the call returns the
// core.AggregateResult built from them.
func (c *Client) Send(ctx context.Context, command string, params map[string]any, onEvent core.EventHandler) (any, error) {
	if command == "" {
		return nil, &core.ConfigError{
			Field: "command",
			Value: command,
			Err:   errors.New("command cannot be empty"),
		}
	}
	return c.dispatcher.Send(ctx, command, params, onEvent)
}

// Execute sends cmd, failing with a *core.TimeoutError labelled with the
// command path if cmd.Timeout elapses first.
func (c *Client) Execute(ctx context.Context, cmd core.Command, onEvent core.EventHandler) (any, error) {
	return transport.WithTimeout(ctx, cmd.Timeout, cmd.Path, func(ctx context.Context) (any, error) {
		return c.Send(ctx, cmd.Path, cmd.Params, onEvent)
	})
}

// SendBatch executes cmds concurrently and returns their results in input
// order. The first failure cancels the commands still in flight and is
// returned.
func (c *Client) SendBatch(ctx context.Context, cmds []core.Command) ([]any, error) {
	results := make([]any, len(cmds))
	g, ctx := errgroup.WithContext(ctx)
	for i, cmd := range cmds {
		i, cmd := i, cmd
		g.Go(func() error {
			result, err := c.Execute(ctx, cmd, nil)
			if err != nil {
				return fmt.Errorf("%s: %w", cmd.Path, err)
			}
			results[i] = result
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// Close closes the client and releases any resources.
func (c *Client) Close() error {
	c.httpClient.CloseIdleConnections()
	return nil
}
