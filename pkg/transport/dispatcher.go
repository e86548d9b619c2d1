package transport

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/testdriverai/go-sdk/pkg/core"
	"github.com/testdriverai/go-sdk/pkg/encoding"
)

const (
	// DefaultAPIVersion is the versioned command namespace used by the backend
	DefaultAPIVersion = "v7"

	// DefaultNamespace is the command namespace under the API version
	DefaultNamespace = "testdriver"

	// apiPrefix marks a path that is already relative to the API root
	apiPrefix = "/api/"
)

// TokenSource supplies the bearer token attached to outgoing requests.
// An empty token means the request is sent unauthenticated.
type TokenSource interface {
	Token() string
}

// Dispatcher sends commands to the automation backend and turns the
// responses into results. It holds no per-call state, so one Dispatcher
// may serve any number of concurrent Send calls.
type Dispatcher struct {
	apiRoot    string
	apiHost    string
	apiVersion string
	namespace  string
	sessionID  string
	tokens     TokenSource
	httpClient *http.Client
	logger     logrus.FieldLogger
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithHTTPClient sets the HTTP client used for every request.
func WithHTTPClient(client *http.Client) Option {
	return func(d *Dispatcher) {
		d.httpClient = client
	}
}

// WithTokenSource sets where bearer tokens come from.
func WithTokenSource(tokens TokenSource) Option {
	return func(d *Dispatcher) {
		d.tokens = tokens
	}
}

// WithSession sets the session identifier embedded in every request body.
func WithSession(sessionID string) Option {
	return func(d *Dispatcher) {
		d.sessionID = sessionID
	}
}

// WithLogger sets the logger.
func WithLogger(logger logrus.FieldLogger) Option {
	return func(d *Dispatcher) {
		d.logger = logger
	}
}

// WithAPIVersion overrides DefaultAPIVersion.
func WithAPIVersion(version string) Option {
	return func(d *Dispatcher) {
		d.apiVersion = version
	}
}

// WithNamespace overrides DefaultNamespace.
func WithNamespace(namespace string) Option {
	return func(d *Dispatcher) {
		d.namespace = namespace
	}
}

// NewDispatcher creates a dispatcher for the backend rooted at apiRoot.
func NewDispatcher(apiRoot *url.URL, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		apiRoot:    strings.TrimSuffix(apiRoot.String(), "/"),
		apiHost:    apiRoot.Host,
		apiVersion: DefaultAPIVersion,
		namespace:  DefaultNamespace,
		logger:     logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.httpClient == nil {
		d.httpClient = NewHTTPClient(0, d.logger)
	}
	return d
}

// Session returns the session identifier attached to requests.
func (d *Dispatcher) Session() string {
	return d.sessionID
}

// Send issues the command at path with payload and returns its result.
//
// When onEvent is non-nil, or the backend answers with an NDJSON content
// type, the body is consumed as a stream: every event is passed to onEvent
// as soon as its line is complete and the call returns the folded
// core.AggregateResult. Otherwise the result is the decoded JSON value, a
// string for text/* bodies, or the raw bytes.
//
// A 301 response is followed once, to the path carried in its body. The
// bearer token is attached only when the resolved URL is on the API root's
// host.
func (d *Dispatcher) Send(ctx context.Context, path string, payload map[string]any, onEvent core.EventHandler) (any, error) {
	return d.send(ctx, path, payload, onEvent, false)
}

func (d *Dispatcher) send(ctx context.Context, path string, payload map[string]any, onEvent core.EventHandler, redirected bool) (any, error) {
	target := d.ResolveURL(path)
	stream := onEvent != nil

	logger := d.logger.WithFields(logrus.Fields{
		"command": path,
		"url":     target,
		"session": d.sessionID,
		"stream":  stream,
	})

	body, err := buildBody(payload, d.sessionID, stream)
	if err != nil {
		return nil, &core.ConfigError{Field: "params", Value: path, Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, bytes.NewReader(body))
	if err != nil {
		return nil, &core.ConfigError{Field: "command", Value: path, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	if token := d.token(); token != "" {
		// credentials only go to the host the dispatcher was configured for
		if req.URL.Host == d.apiHost {
			req.Header.Set("Authorization", "Bearer "+token)
		} else {
			logger.WithField("host", req.URL.Host).Warn("sending without credentials to foreign host")
		}
	}

	logger.Debug("sending command")
	resp, err := d.httpClient.Do(req)
	if err != nil {
		logger.WithError(err).Warn("command failed to reach backend")
		return nil, &core.NetworkError{Operation: path, Err: err}
	}
	defer resp.Body.Close()

	logger = logger.WithField("status", resp.StatusCode)
	contentType := resp.Header.Get("Content-Type")

	if resp.StatusCode == http.StatusMovedPermanently && !redirected {
		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, &core.NetworkError{Operation: path, Err: err}
		}
		next := redirectTarget(data)
		if next == "" {
			return nil, core.NewHTTPError(path, resp.StatusCode, StatusText(resp), "")
		}
		logger.WithField("location", next).Info("following redirect")
		resp.Body.Close()
		return d.send(ctx, next, payload, onEvent, true)
	}

	if resp.StatusCode >= http.StatusMultipleChoices {
		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, &core.NetworkError{Operation: path, Err: err}
		}
		httpErr := core.NewHTTPError(path, resp.StatusCode, StatusText(resp), DecodeErrorBody(data))
		logger.WithError(httpErr).Warn("command rejected")
		return nil, httpErr
	}

	if stream || IsStreamContentType(contentType) {
		aggregate, err := d.consumeStream(resp.Body, onEvent, logger)
		if err != nil {
			return nil, err
		}
		return aggregate, nil
	}

	result, err := decodeBody(path, resp)
	if err != nil {
		logger.WithError(err).Warn("cannot decode response")
		return nil, err
	}
	logger.Debug("command complete")
	return result, nil
}

// consumeStream decodes an NDJSON body, handing each event to onEvent and
// folding it into the aggregate in arrival order. A malformed line aborts the
// call rather than being skipped.
func (d *Dispatcher) consumeStream(body io.Reader, onEvent core.EventHandler, logger logrus.FieldLogger) (core.AggregateResult, error) {
	dec := encoding.NewDecoder(body)
	agg := NewAggregator()
	count := 0

	for {
		event, err := dec.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			logger.WithError(err).WithField("events", count).Warn("stream aborted")
			return nil, err
		}

		if onEvent != nil {
			onEvent(event)
		}
		agg.Add(event)
		count++
	}

	logger.WithField("events", count).Debug("stream complete")
	return agg.Result(), nil
}

// ResolveURL returns the absolute URL a command path is sent to. Absolute
// URLs and paths under /api/ are used as given; bare command names are placed
// under the versioned command namespace.
func (d *Dispatcher) ResolveURL(path string) string {
	if u, err := url.Parse(path); err == nil && u.IsAbs() {
		return path
	}
	if strings.HasPrefix(path, apiPrefix) {
		return d.apiRoot + path
	}
	return fmt.Sprintf("%s/api/%s/%s/%s", d.apiRoot, d.apiVersion, d.namespace, strings.TrimPrefix(path, "/"))
}

func (d *Dispatcher) token() string {
	if d.tokens == nil {
		return ""
	}
	return d.tokens.Token()
}
