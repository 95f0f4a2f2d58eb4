package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/robfig/cron/v3"

	"github.com/blackmichael/sea-timeline/internal/cache"
	"github.com/blackmichael/sea-timeline/internal/config"
	"github.com/blackmichael/sea-timeline/internal/domain"
	"github.com/blackmichael/sea-timeline/internal/render"
	"github.com/blackmichael/sea-timeline/internal/sea"
	"github.com/blackmichael/sea-timeline/internal/stream"
	"github.com/blackmichael/sea-timeline/internal/tracing"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := cfg.RequireSeaURL(); err != nil {
		return err
	}
	if err := cfg.RequireToken(); err != nil {
		return err
	}
	if cfg.WebsocketURL == "" {
		return errors.New("SEA_WEBSOCKET_URL is required")
	}

	handler := slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: cfg.SlogLevel(),
	})
	logger := slog.New(handler)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdown, err := tracing.InitTracer(ctx, cfg.ServiceName, cfg.TracingEndpoint, logger)
	if err != nil {
		return fmt.Errorf("init tracing: %w", err)
	}
	defer func() {
		if err := shutdown(context.Background()); err != nil {
			logger.Error("failed to flush traces", "error", err)
		}
	}()

	store := cache.NewStore()
	client, err := sea.NewClient(sea.Options{
		BaseURL:   cfg.SeaURL,
		StreamURL: cfg.WebsocketURL,
		Token:     cfg.Token,
		Cache:     store,
		Logger:    logger,
	})
	if err != nil {
		return fmt.Errorf("create client: %w", err)
	}

	conn, err := client.ConnectPublicTimeline(ctx)
	if err != nil {
		return fmt.Errorf("connect public timeline: %w", err)
	}

	conn.OnPost(func(entry domain.PostEntry) {
		if err := render.Post(os.Stdout, entry); err != nil {
			logger.Error("failed to render post", "post_id", entry.Post.ID, "error", err)
			return
		}
		fmt.Fprintln(os.Stdout)
	})

	// Periodically log connection and cache stats
	scheduler := cron.New(cron.WithLogger(cron.VerbosePrintfLogger(slog.NewLogLogger(handler, slog.LevelDebug))))
	if _, err := scheduler.AddFunc("@every 1m", func() {
		s := conn.Stats()
		users, posts := store.Len()
		logger.Info("stream stats",
			"messages", s.MessagesReceived,
			"posts", s.PostsReceived,
			"pings", s.PingsSent,
			"cached_users", users,
			"cached_posts", posts,
		)
	}); err != nil {
		conn.Close()
		return fmt.Errorf("schedule stats job: %w", err)
	}
	scheduler.Start()
	defer scheduler.Stop()

	logger.Info("following public timeline", "url", cfg.WebsocketURL)

	select {
	case <-ctx.Done():
		logger.Info("received signal, shutting down")
		if err := conn.Close(); err != nil {
			logger.Error("error closing stream", "error", err)
		}
		<-conn.Done()
		return nil
	case <-conn.Done():
	}

	ev := conn.CloseEvent()
	if !ev.Normal() {
		return closeError(ev)
	}
	return nil
}

func closeError(ev stream.CloseEvent) error {
	if ev.Err != nil {
		return fmt.Errorf("stream closed abnormally (code %d): %w", ev.Code, ev.Err)
	}
	return fmt.Errorf("stream closed by server (code %d): %s", ev.Code, ev.Reason)
}
