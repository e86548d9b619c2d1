// Package main provides the TestDriver CLI for sending single commands to the
// automation backend.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/pflag"

	"github.com/testdriverai/go-sdk/pkg/client"
	"github.com/testdriverai/go-sdk/pkg/core"
)

func main() {
	if err := run(os.Args[1:], os.Stdout, os.Stderr); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string, stdout, stderr io.Writer) error {
	var (
		configPath string
		apiRoot    string
		apiKey     string
		logLevel   string
		timeout    time.Duration
		stream     bool
	)

	flagSet := pflag.NewFlagSet("testdriver", pflag.ContinueOnError)
	flagSet.SetOutput(stderr)
	flagSet.StringVar(&configPath, "config", "", "path to a YAML config file")
	flagSet.StringVar(&apiRoot, "api-root", "", "backend API root (overrides "+client.EnvAPIRoot+")")
	flagSet.StringVar(&apiKey, "api-key", "", "API key (overrides "+client.EnvAPIKey+")")
	flagSet.StringVar(&logLevel, "log-level", "", "log level: debug, info, warn, error")
	flagSet.DurationVar(&timeout, "timeout", 0, "fail the command if it has not completed in this time")
	flagSet.BoolVar(&stream, "stream", false, "stream events to stdout as they arrive")
	flagSet.Usage = func() {
		fmt.Fprintln(stderr, "Usage:")
		fmt.Fprintln(stderr, "  testdriver [flags] <command> [key=value ...]")
		fmt.Fprintln(stderr)
		fmt.Fprintln(stderr, "Values are parsed as JSON when possible, otherwise sent as strings.")
		fmt.Fprintln(stderr)
		fmt.Fprintln(stderr, "Flags:")
		flagSet.PrintDefaults()
	}

	if err := flagSet.Parse(args); err != nil {
		return err
	}

	positional := flagSet.Args()
	if len(positional) == 0 {
		flagSet.Usage()
		return errors.New("missing command")
	}
	command := positional[0]
	params, err := parseParams(positional[1:])
	if err != nil {
		return err
	}

	cfg := client.ConfigFromEnv()
	if configPath != "" {
		if cfg, err = client.LoadConfig(configPath); err != nil {
			return err
		}
	}
	if apiRoot != "" {
		cfg.BaseURL = apiRoot
	}
	if apiKey != "" {
		cfg.APIKey = apiKey
	}
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}
	if cfg.Logger == nil {
		logger := logrus.New()
		logger.SetOutput(stderr)
		level := logrus.WarnLevel
		if cfg.LogLevel != "" {
			if level, err = logrus.ParseLevel(cfg.LogLevel); err != nil {
				return err
			}
		}
		logger.SetLevel(level)
		cfg.Logger = logger
	}

	c, err := client.New(cfg)
	if err != nil {
		return err
	}
	defer c.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := c.Authenticate(ctx); err != nil {
		return err
	}

	var onEvent core.EventHandler
	if stream {
		enc := json.NewEncoder(stdout)
		onEvent = func(event core.StreamEvent) {
			_ = enc.Encode(event)
		}
	}

	result, err := c.Execute(ctx, core.Command{Path: command, Params: params, Timeout: timeout}, onEvent)
	if err != nil {
		return err
	}
	return printResult(stdout, result)
}

// parseParams turns key=value arguments into a payload.
func parseParams(args []string) (map[string]any, error) {
	params := make(map[string]any, len(args))
	for _, arg := range args {
		key, raw, ok := strings.Cut(arg, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid parameter %q: want key=value", arg)
		}
		var value any
		if err := json.Unmarshal([]byte(raw), &value); err != nil {
			value = raw
		}
		params[key] = value
	}
	return params, nil
}

func printResult(w io.Writer, result any) error {
	switch v := result.(type) {
	case nil:
		return nil
	case string:
		_, err := fmt.Fprintln(w, v)
		return err
	case []byte:
		_, err := w.Write(v)
		return err
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}
