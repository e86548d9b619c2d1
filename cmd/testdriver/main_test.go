package main

import (
	"bytes"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/testdriverai/go-sdk/internal/testutil"
	"github.com/testdriverai/go-sdk/pkg/auth"
	"github.com/testdriverai/go-sdk/pkg/client"
	"github.com/testdriverai/go-sdk/pkg/core"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{client.EnvAPIRoot, client.EnvAPIKey, client.EnvAPIVersion, client.EnvSession, client.EnvLogLevel} {
		t.Setenv(key, "")
	}
}

func TestParseParams(t *testing.T) {
	params, err := parseParams([]string{"description=submit button", "x=12", "visible=true", `opts={"a":1}`})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{
		"description": "submit button",
		"x":           float64(12),
		"visible":     true,
		"opts":        map[string]any{"a": float64(1)},
	}, params)

	_, err = parseParams([]string{"novalue"})
	assert.Error(t, err)
}

func TestRunBuffered(t *testing.T) {
	clearEnv(t)
	backend := testutil.NewBackend(t)
	backend.Handle(auth.ExchangePath, testutil.JSON(http.StatusOK, map[string]any{"token": "tok"}))
	backend.Handle("/api/v7/testdriver/assert", testutil.JSON(http.StatusOK, map[string]any{"result": true}))

	var stdout, stderr bytes.Buffer
	err := run([]string{"--api-root", backend.URL, "--api-key", "k", "assert", "expect=page loaded"}, &stdout, &stderr)
	require.NoError(t, err)
	assert.JSONEq(t, `{"result":true}`, stdout.String())

	requests := backend.Requests()
	require.Len(t, requests, 2)
	assert.Equal(t, "Bearer tok", requests[1].Header.Get("Authorization"))
	assert.Equal(t, "page loaded", requests[1].Body["expect"])
}

func TestRunStream(t *testing.T) {
	clearEnv(t)
	backend := testutil.NewBackend(t)
	backend.Handle("/api/v7/testdriver/find", testutil.NDJSON(
		`{"type":"progress","data":"step1"}`+"\n",
		`{"type":"result","data":{"x":1}}`+"\n",
	))

	var stdout, stderr bytes.Buffer
	err := run([]string{"--api-root", backend.URL, "--stream", "--timeout", "5s", "find", "description=button"}, &stdout, &stderr)
	require.NoError(t, err)

	lines := strings.SplitN(stdout.String(), "\n", 3)
	require.Len(t, lines, 3)
	assert.JSONEq(t, `{"type":"progress","data":"step1"}`, lines[0])
	assert.JSONEq(t, `{"type":"result","data":{"x":1}}`, lines[1])
	assert.JSONEq(t, `{"progress":"step1","result":{"x":1}}`, lines[2])
}

func TestRunErrors(t *testing.T) {
	clearEnv(t)

	t.Run("missing command", func(t *testing.T) {
		var stdout, stderr bytes.Buffer
		err := run([]string{"--api-root", "http://localhost:1"}, &stdout, &stderr)
		assert.EqualError(t, err, "missing command")
		assert.Contains(t, stderr.String(), "Usage:")
	})

	t.Run("rejected key", func(t *testing.T) {
		backend := testutil.NewBackend(t)
		backend.Handle(auth.ExchangePath, testutil.JSON(http.StatusUnauthorized, map[string]any{"error": "bad key"}))

		var stdout, stderr bytes.Buffer
		err := run([]string{"--api-root", backend.URL, "--api-key", "bad", "assert"}, &stdout, &stderr)
		assert.ErrorIs(t, err, core.ErrAuthFailed)
		assert.Len(t, backend.Requests(), 1)
	})

	t.Run("backend error", func(t *testing.T) {
		backend := testutil.NewBackend(t)

		var stdout, stderr bytes.Buffer
		err := run([]string{"--api-root", backend.URL, "nope"}, &stdout, &stderr)
		assert.ErrorIs(t, err, core.ErrHTTP)
		assert.Empty(t, stdout.String())
	})
}
