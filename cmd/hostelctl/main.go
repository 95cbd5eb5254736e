// Command hostelctl is a terminal client for the hostel-out API. Each
// subcommand performs one user action and prints the result.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/noah-isme/hostel-out-api/pkg/client"
	"github.com/noah-isme/hostel-out-api/pkg/config"
	"github.com/noah-isme/hostel-out-api/pkg/session"
)

func main() {
	cfg, err := config.LoadClient()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	holder, err := newHolder(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "session: %v\n", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Timeout)
		defer cancel()
	}

	app := &cli{
		api:        client.New(cfg.BaseURL, holder),
		out:        os.Stdout,
		persistent: cfg.PersistSession,
	}
	if err := app.run(ctx, os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", describe(err))
		os.Exit(1)
	}
}

func newHolder(cfg *config.ClientConfig) (*session.Holder, error) {
	if !cfg.PersistSession {
		return session.NewHolder(nil), nil
	}
	store, err := session.NewFileStore(cfg.SessionFile, []byte(cfg.SessionHashKey), []byte(cfg.SessionBlockKey))
	if err != nil {
		return nil, err
	}
	holder := session.NewHolder(store)
	if err := holder.Restore(); err != nil {
		return nil, fmt.Errorf("restore %s: %w", cfg.SessionFile, err)
	}
	return holder, nil
}
