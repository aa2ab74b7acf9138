// Command finctl is a terminal client for the finboard API. It keeps the
// signed in session in a file and renders the same tables as the web UI.
package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"finboard/internal/cli"
	"finboard/internal/client"
	"finboard/internal/config"
	"finboard/internal/log"
	"finboard/internal/session"
)

func main() {
	cli.LoadEnvFile()

	cfg := config.Load()
	// Logs go to stderr so tables on stdout stay clean; quiet unless LOG_LEVEL is set.
	level := slog.LevelWarn
	if os.Getenv("LOG_LEVEL") != "" {
		level = log.ParseLevel(cfg.LogLevel)
	}
	logger := log.New(log.Config{Level: level, Component: log.ComponentClient, Output: os.Stderr})
	if err := cfg.ValidateClient(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(cfg.APIURL, cfg.SessionFile, logger, os.Stdin, os.Stdout)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if err := a.run(ctx, os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, "error:", describe(err))
		if errors.Is(err, errUsage) {
			os.Exit(2)
		}
		os.Exit(1)
	}
}

// app holds the wiring shared by every command.
type app struct {
	api    *client.Client
	gate   *session.Gate
	logger *log.Logger
	in     *bufio.Reader
	out    io.Writer
}

func newApp(apiURL, sessionFile string, logger *log.Logger, in io.Reader, out io.Writer) (*app, error) {
	store, err := session.NewFileStore(sessionFile)
	if err != nil {
		return nil, err
	}
	a := &app{logger: logger, in: bufio.NewReader(in), out: out}
	a.gate = session.NewGate(store,
		session.WithLogger(logger),
		session.WithValidator(session.ValidatorFunc(func(ctx context.Context, token string) error {
			return a.api.ValidateToken(ctx, token)
		})))
	a.api, err = client.New(apiURL, client.WithAuth(a.gate), client.WithLogger(logger))
	if err != nil {
		return nil, err
	}
	return a, nil
}

// describe turns client errors into one line for the terminal.
func describe(err error) string {
	var ve *client.ValidationError
	switch {
	case errors.As(err, &ve):
		msg := ve.Message
		if msg == "" {
			msg = "validation failed"
		}
		for _, f := range ve.Fields {
			msg += fmt.Sprintf("\n  %s: %s", f.Param, f.Msg)
		}
		return msg
	case errors.Is(err, client.ErrUnauthorized):
		return "session expired, run `finctl login`"
	case errors.Is(err, client.ErrNetwork):
		return "cannot reach the finboard API: " + err.Error()
	default:
		return err.Error()
	}
}
