package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/galois26/creator-feed/internal/engine"
	"github.com/galois26/creator-feed/internal/metrics"
	"github.com/galois26/creator-feed/internal/postprocess"
	"github.com/galois26/creator-feed/internal/server"
	"github.com/galois26/creator-feed/internal/sink"
	"github.com/galois26/creator-feed/internal/source"
	"github.com/galois26/creator-feed/internal/store"
)

func newRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Generate both lanes continuously and serve them over HTTP",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			logger.Info("feedsim starting", "version", Version)

			m := metrics.New()
			opts := cfg.EngineOptions()
			opts.Observer = m
			opts.Logger = logger
			eng := engine.New(opts)

			// Sinks
			var sinks []sink.Sink
			if strings.TrimSpace(cfg.Loki.URL) != "" {
				sinks = append(sinks, sink.NewLoki(cfg.Loki))
			}
			if strings.TrimSpace(cfg.Victoria.URL) != "" {
				sinks = append(sinks, sink.NewVictoria(cfg.Victoria))
			}
			post, err := postprocess.New(cfg.Post)
			if err != nil {
				return err
			}
			var dedup *store.Dedup
			if *cfg.Dedup.Enable {
				dedup = store.NewDedup(cfg.Dedup.MaxKeys, cfg.Dedup.TTL)
				logger.Info("sink dedup enabled", "max", cfg.Dedup.MaxKeys, "ttl", cfg.Dedup.TTL)
			}
			pub := sink.NewPublisher(sink.PublisherConfig{
				Sinks:      sinks,
				Dedup:      dedup,
				Post:       post,
				Observer:   m,
				Logger:     logger.With("component", "publisher"),
				MaxPending: cfg.Publish.MaxPending,
			})
			for _, l := range eng.Lanes() {
				l.Listen(pub.Enqueue)
			}
			if len(sinks) == 0 {
				logger.Info("no sinks configured; feed is served over HTTP only")
			}

			srv := server.New(cfg.Server, eng, m, logger)

			runner := engine.NewRunner(logger)
			if cfg.Lanes.Actions.IsEnabled() {
				runner.Add(eng.Actions, cfg.Lanes.Actions.Interval())
			}
			if cfg.Lanes.Posts.IsEnabled() {
				runner.Add(eng.Posts, cfg.Lanes.Posts.Interval())
			}

			srcs := make([]source.Source, 0, len(cfg.Sources))
			for _, sc := range cfg.Sources {
				s, err := source.NewFromConfig(sc)
				if err != nil {
					return err
				}
				srcs = append(srcs, s)
				logger.Info("configured source", "source", s.Name(), "lane", sc.Lane)
			}

			ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			var wg sync.WaitGroup
			wg.Add(1)
			go func() {
				defer wg.Done()
				pub.Run(ctx, cfg.Publish.FlushInterval)
			}()
			for i, s := range srcs {
				lane, _ := eng.Lane(cfg.Sources[i].Lane)
				interval := cfg.Sources[i].Interval
				wg.Add(1)
				go func() {
					defer wg.Done()
					source.Poll(ctx, s, lane, interval, m, logger)
				}()
			}

			srvErr := make(chan error, 1)
			go func() {
				logger.Info("serving", "addr", cfg.Server.ListenAddress)
				if err := srv.Serve(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					srvErr <- err
					cancel()
				}
			}()

			if err := runner.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				cancel()
				wg.Wait()
				return err
			}
			logger.Info("shutting down...")
			shutdownCtx, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel2()
			_ = srv.Shutdown(shutdownCtx)
			wg.Wait()

			select {
			case err := <-srvErr:
				return err
			default:
				return nil
			}
		},
	}
}
