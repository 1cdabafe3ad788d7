package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/poettig/TS3AB-KDF-Plugins-sub000/internal/autofill"
	"github.com/poettig/TS3AB-KDF-Plugins-sub000/internal/catalog"
	"github.com/poettig/TS3AB-KDF-Plugins-sub000/internal/chat"
	"github.com/poettig/TS3AB-KDF-Plugins-sub000/internal/commands"
	"github.com/poettig/TS3AB-KDF-Plugins-sub000/internal/config"
	"github.com/poettig/TS3AB-KDF-Plugins-sub000/internal/events"
	"github.com/poettig/TS3AB-KDF-Plugins-sub000/internal/httpapi"
	"github.com/poettig/TS3AB-KDF-Plugins-sub000/internal/logging"
	"github.com/poettig/TS3AB-KDF-Plugins-sub000/internal/presence"
	"github.com/poettig/TS3AB-KDF-Plugins-sub000/internal/queue"
	"github.com/poettig/TS3AB-KDF-Plugins-sub000/internal/relay"
	"github.com/poettig/TS3AB-KDF-Plugins-sub000/internal/voting"
)

func main() {
	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	logger := logging.New(cfg.LogLevel, cfg.LogPath)
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Fatal("jukebox stopped", zap.Error(err))
	}
	logger.Info("jukebox stopped")
}

func run(ctx context.Context, cfg config.Config, logger *zap.Logger) error {
	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer pool.Close()
	if err := pool.Ping(ctx); err != nil {
		return fmt.Errorf("ping database: %w", err)
	}
	if err := catalog.AutoMigrate(ctx, pool); err != nil {
		return err
	}
	store := catalog.New(pool, logger)

	hub := relay.NewHub()
	go hub.Run(ctx)

	var (
		rdb  *redis.Client
		sink events.Sink
	)
	if cfg.RedisURL != "" {
		opt, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return fmt.Errorf("invalid redis url: %w", err)
		}
		rdb = redis.NewClient(opt)
		defer rdb.Close()
		sink = relay.NewPublisher(rdb, logger)
	} else {
		logger.Warn("no redis configured, events stay in-process")
		sink = relay.NewHubSink(hub, logger)
	}
	feed := relay.NewServer(hub, rdb, cfg.AllowedOrigin, logger)
	if rdb != nil {
		go func() {
			if err := feed.RunRedisSubscriber(ctx); err != nil {
				logger.Error("redis subscriber stopped", zap.Error(err))
			}
		}()
	}

	q := queue.New(logger)
	listeners := presence.NewDirectory(cfg.BotIdentity, cfg.BotChannel)
	messenger := chat.NewChannel(cfg.ChatHistory, sink, logger)
	runner := commands.NewRunner(q, logger)
	af := autofill.New(store, q, listeners, messenger,
		autofill.WithEvents(sink),
		autofill.WithLogger(logger))
	vt := voting.New(listeners, runner, messenger, cfg.BotIdentity,
		voting.WithEvents(sink),
		voting.WithLogger(logger))
	dispatcher := commands.NewDispatcher(af, vt, runner, q, messenger, listeners, logger)
	dispatcher.StartTicker(ctx, cfg.TickInterval)

	router := httpapi.NewRouter(httpapi.Deps{
		Dispatcher: dispatcher,
		Queue:      q,
		Listeners:  listeners,
		Chat:       messenger,
		Playlists:  store,
		Feed:       feed.HandleWS,
		Logger:     logger,
	}, httpapi.DefaultMiddlewares(logger)...)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		logger.Info("jukebox listening", zap.String("port", cfg.Port), zap.String("bot", cfg.BotIdentity))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
