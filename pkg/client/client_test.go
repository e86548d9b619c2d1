package client

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"
	"time"

	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/testdriverai/go-sdk/internal/testutil"
	"github.com/testdriverai/go-sdk/pkg/auth"
	"github.com/testdriverai/go-sdk/pkg/core"
)

const commandPrefix = "/api/v7/testdriver/"

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		config  Config
		wantErr bool
		field   string
	}{
		{
			name: "valid config",
			config: Config{
				BaseURL: "http://localhost:8080",
			},
			wantErr: false,
		},
		{
			name: "valid config with https",
			config: Config{
				BaseURL: "https://api.example.com",
			},
			wantErr: false,
		},
		{
			name: "empty URL",
			config: Config{
				BaseURL: "",
			},
			wantErr: true,
			field:   "BaseURL",
		},
		{
			name: "invalid URL scheme",
			config: Config{
				BaseURL: "://invalid-scheme",
			},
			wantErr: true,
			field:   "BaseURL",
		},
		{
			name: "malformed URL",
			config: Config{
				BaseURL: "http://[::1:80",
			},
			wantErr: true,
			field:   "BaseURL",
		},
		{
			name: "unsupported scheme",
			config: Config{
				BaseURL: "ftp://api.example.com",
			},
			wantErr: true,
			field:   "BaseURL",
		},
		{
			name: "unknown log level",
			config: Config{
				BaseURL:  "https://api.example.com",
				LogLevel: "chatty",
			},
			wantErr: true,
			field:   "LogLevel",
		},
		{
			name: "negative timeout",
			config: Config{
				BaseURL:     "https://api.example.com",
				HTTPTimeout: -time.Second,
			},
			wantErr: true,
			field:   "HTTPTimeout",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, err := New(tt.config)
			if (err != nil) != tt.wantErr {
				t.Errorf("New() error = %v, wantErr %v", err, tt.wantErr)
				return
			}

			if tt.wantErr {
				var configErr *core.ConfigError
				if !errors.As(err, &configErr) {
					t.Fatalf("Expected error type *core.ConfigError, got %T", err)
				}
				if configErr.Field != tt.field {
					t.Errorf("Expected error field %q, got %v", tt.field, configErr.Field)
				}
				return
			}

			if client == nil {
				t.Fatal("New() returned nil client with no error")
			}
			if client.baseURL.String() != tt.config.BaseURL {
				t.Errorf("Client baseURL = %v, want %v", client.baseURL.String(), tt.config.BaseURL)
			}
			if client.Session() == "" {
				t.Error("Client session should be generated")
			}
		})
	}
}

func TestClient_Close(t *testing.T) {
	client, err := New(Config{BaseURL: "http://localhost:8080"})
	if err != nil {
		t.Fatalf("Failed to create client: %v", err)
	}

	if err := client.Close(); err != nil {
		t.Errorf("Close() error = %v, want nil", err)
	}
}

func TestConfigError_Unwrap(t *testing.T) {
	_, err := New(Config{BaseURL: ""})
	if err == nil {
		t.Fatal("Expected error for empty BaseURL")
	}

	var configErr *core.ConfigError
	if !errors.As(err, &configErr) {
		t.Fatalf("Expected ConfigError, got %T", err)
	}

	if configErr.Unwrap() == nil {
		t.Error("ConfigError.Unwrap() should return underlying error")
	}

	if errMsg := configErr.Error(); !strings.Contains(errMsg, "BaseURL") {
		t.Errorf("Error message should contain field name, got: %v", errMsg)
	}
}

func newTestClient(t *testing.T, backend *testutil.Backend, apiKey string) *Client {
	t.Helper()
	logger, _ := logtest.NewNullLogger()
	c, err := New(Config{
		BaseURL:   backend.URL,
		APIKey:    apiKey,
		SessionID: "session-xyz",
		Logger:    logger,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestClient_AuthenticatedSend(t *testing.T) {
	backend := testutil.NewBackend(t)
	backend.Handle(auth.ExchangePath, testutil.JSON(http.StatusOK, map[string]any{"token": "tok-1"}))
	backend.Handle(commandPrefix+"assert", testutil.JSON(http.StatusOK, map[string]any{"result": true}))
	c := newTestClient(t, backend, "key-1")

	require.NoError(t, c.Authenticate(context.Background()))

	result, err := c.Send(context.Background(), "assert", map[string]any{"expect": "page loaded"}, nil)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"result": true}, result)

	requests := backend.Requests()
	require.Len(t, requests, 2)
	assert.Equal(t, map[string]any{"apiKey": "key-1", "version": Version}, requests[0].Body)
	assert.Equal(t, "Bearer tok-1", requests[1].Header.Get("Authorization"))
	assert.Equal(t, "session-xyz", requests[1].Body["session"])

	c.Logout()
	_, err = c.Send(context.Background(), "assert", nil, nil)
	require.NoError(t, err)
	assert.Empty(t, backend.Requests()[2].Header.Get("Authorization"))
}

func TestClient_Unauthenticated(t *testing.T) {
	backend := testutil.NewBackend(t)
	backend.Handle(commandPrefix+"assert", testutil.JSON(http.StatusOK, map[string]any{"result": true}))
	c := newTestClient(t, backend, "")

	require.NoError(t, c.Authenticate(context.Background()))
	_, err := c.Send(context.Background(), "assert", nil, nil)
	require.NoError(t, err)

	requests := backend.Requests()
	require.Len(t, requests, 1, "no exchange without an API key")
	assert.Empty(t, requests[0].Header.Get("Authorization"))
}

func TestClient_AuthenticateRejected(t *testing.T) {
	backend := testutil.NewBackend(t)
	backend.Handle(auth.ExchangePath, testutil.JSON(http.StatusForbidden, map[string]any{"error": "revoked"}))
	c := newTestClient(t, backend, "key-1")

	err := c.Authenticate(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, core.ErrAuthFailed))
	assert.Contains(t, err.Error(), "403")
}

func TestClient_StreamedFind(t *testing.T) {
	backend := testutil.NewBackend(t)
	backend.Handle(commandPrefix+"find", testutil.NDJSON(
		`{"type":"progress","data":"step1"}`+"\n",
		`{"type":"progress","data":"step2"}`+"\n",
		`{"type":"result","data":{"x":1,"y":2}}`+"\n",
	))
	c := newTestClient(t, backend, "")

	var events []core.StreamEvent
	result, err := c.Execute(context.Background(), core.Command{
		Path:    "find",
		Params:  map[string]any{"description": "button"},
		Timeout: 5 * time.Second,
	}, func(event core.StreamEvent) {
		events = append(events, event)
	})
	require.NoError(t, err)

	require.Len(t, events, 3)
	assert.Equal(t, "step1", events[0].Data)
	assert.Equal(t, "step2", events[1].Data)
	assert.Equal(t, "result", events[2].Type)

	var decoded struct {
		Progress string `json:"progress"`
		Result   struct {
			X int `json:"x"`
			Y int `json:"y"`
		} `json:"result"`
	}
	require.NoError(t, core.DecodeResult(result, &decoded))
	assert.Equal(t, "step1step2", decoded.Progress)
	assert.Equal(t, 1, decoded.Result.X)
	assert.Equal(t, 2, decoded.Result.Y)
}

func TestClient_ExecuteTimeout(t *testing.T) {
	backend := testutil.NewBackend(t)
	backend.Handle(commandPrefix+"wait-for", func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	})
	c := newTestClient(t, backend, "")

	_, err := c.Execute(context.Background(), core.Command{Path: "wait-for", Timeout: 50 * time.Millisecond}, nil)
	require.Error(t, err)

	var timeoutErr *core.TimeoutError
	require.True(t, errors.As(err, &timeoutErr))
	assert.Equal(t, "wait-for", timeoutErr.Label)
}

func TestClient_SendEmptyCommand(t *testing.T) {
	c, err := New(Config{BaseURL: "http://localhost:8080"})
	require.NoError(t, err)

	_, err = c.Send(context.Background(), "", nil, nil)
	var configErr *core.ConfigError
	require.True(t, errors.As(err, &configErr))
	assert.Equal(t, "command", configErr.Field)
}

func TestClient_SendBatch(t *testing.T) {
	t.Run("results in input order", func(t *testing.T) {
		backend := testutil.NewBackend(t)
		backend.Handle(commandPrefix+"slow", func(w http.ResponseWriter, r *http.Request) {
			time.Sleep(30 * time.Millisecond)
			testutil.JSON(http.StatusOK, "slow")(w, r)
		})
		backend.Handle(commandPrefix+"fast", testutil.JSON(http.StatusOK, "fast"))
		c := newTestClient(t, backend, "")

		results, err := c.SendBatch(context.Background(), []core.Command{
			{Path: "slow"},
			{Path: "fast"},
		})
		require.NoError(t, err)
		assert.Equal(t, []any{"slow", "fast"}, results)
	})

	t.Run("first failure is returned", func(t *testing.T) {
		backend := testutil.NewBackend(t)
		backend.Handle(commandPrefix+"ok", testutil.JSON(http.StatusOK, true))
		c := newTestClient(t, backend, "")

		results, err := c.SendBatch(context.Background(), []core.Command{
			{Path: "ok"},
			{Path: "missing"},
		})
		require.Error(t, err)
		assert.Nil(t, results)

		var httpErr *core.HTTPError
		require.True(t, errors.As(err, &httpErr))
		assert.Equal(t, http.StatusNotFound, httpErr.Status)
		assert.Contains(t, err.Error(), "missing")
	})
}
