package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/trustscore/trustscored/internal/aggregator"
	"github.com/trustscore/trustscored/internal/api"
	"github.com/trustscore/trustscored/internal/authctx"
	"github.com/trustscore/trustscored/internal/config"
	"github.com/trustscore/trustscored/internal/domainanalysis"
	"github.com/trustscore/trustscored/internal/metrics"
	"github.com/trustscore/trustscored/internal/quota"
	"github.com/trustscore/trustscored/internal/ratelimit"
	"github.com/trustscore/trustscored/internal/rulelearner"
	"github.com/trustscore/trustscored/internal/scheduler"
	"github.com/trustscore/trustscored/internal/server"
	"github.com/trustscore/trustscored/internal/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "err", err)
		os.Exit(1)
	}

	logger := server.SetupLogger(cfg.LogLevel)
	slog.SetDefault(logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db, err := store.Connect(ctx, logger)
	if err != nil {
		logger.Error("failed to connect to database", "err", err)
		os.Exit(1)
	}
	defer db.Close()

	limiter := ratelimit.New()
	metricsRegistry := metrics.New()
	budget := quota.NewDailyBudget(cfg.DomainAnalysisQuotaPerDay)
	analyser := domainanalysis.New(db, budget, metricsRegistry, logger)
	agg := aggregator.New(db, db, db, db, logger)
	learner := rulelearner.New(db, logger)

	jobs := []*scheduler.Job{
		{
			Name:     "aggregator",
			Interval: cfg.AggregatorInterval,
			Run: func(ctx context.Context) (string, error) {
				n, err := agg.Tick(ctx)
				if err != nil {
					return "", err
				}
				return "processed " + strconv.Itoa(n) + " fingerprints", nil
			},
		},
		{
			Name:     "domain-refresh",
			Interval: cfg.DomainRefreshInterval,
			Run: func(ctx context.Context) (string, error) {
				return refreshStaleDomains(ctx, db, analyser, cfg.DomainRefreshBatchSize)
			},
		},
		{
			Name:     "rule-learner",
			Interval: cfg.RuleLearnerInterval,
			Run: func(ctx context.Context) (string, error) {
				n, err := learner.Run(ctx, aggregateByDomain(ctx, db))
				if err != nil {
					return "", err
				}
				return "inserted " + strconv.Itoa(n) + " rules", nil
			},
		},
		{
			Name:     "janitor",
			Interval: cfg.JanitorInterval,
			Run: func(ctx context.Context) (string, error) {
				return runJanitor(ctx, db, cfg)
			},
		},
	}
	sched := scheduler.New(logger, jobs...)
	sched.Start(ctx)

	handler := &api.Handler{
		Store:      db,
		Aggregator: agg,
		Analyser:   analyser,
		Limiter:    limiter,
		Metrics:    metricsRegistry,
		Logger:     logger,
	}
	adminHandler := &api.AdminHandler{
		Scheduler: sched,
		Analyser:  analyser,
		Store:     db,
		Metrics:   metricsRegistry,
		Logger:    logger,
	}

	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(corsMiddleware)

	r.Get("/ping", func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte("pong"))
	})

	r.Route("/api", func(apiRouter chi.Router) {
		apiRouter.Get("/stats", handler.GetStats)
		apiRouter.Post("/stats/batch", handler.BatchGetStats)

		apiRouter.Group(func(protected chi.Router) {
			protected.Use(authctx.RequireAuth(authctx.StaticResolver{}))
			protected.Post("/ratings", handler.SubmitRating)
		})
	})

	r.Route("/admin", func(admin chi.Router) {
		admin.Post("/jobs/aggregator/trigger", adminHandler.TriggerJob("aggregator"))
		admin.Post("/jobs/domain-refresh/trigger", adminHandler.TriggerJob("domain-refresh"))
		admin.Post("/jobs/rule-learner/trigger", adminHandler.TriggerJob("rule-learner"))
		admin.Post("/jobs/janitor/trigger", adminHandler.TriggerJob("janitor"))
		admin.Post("/domains/refresh", adminHandler.RefreshDomain)
		admin.Post("/rules", adminHandler.UpdateContentTypeRule)
		admin.Get("/stats/cache", adminHandler.CacheStats)
		admin.Get("/stats/errors", adminHandler.ErrorStats)
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  cfg.RequestTimeout,
		WriteTimeout: cfg.RequestTimeout,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		logger.Info("shutdown signal received")
		cancel()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("server shutdown failed", "err", err)
		}
	}()

	logger.Info("server starting", "port", cfg.Port)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("server failed", "err", err)
		os.Exit(1)
	}
	logger.Info("server stopped")
}

// refreshStaleDomains re-runs domain analysis for up to batchSize domains
// whose cache entry has expired, feeding the nightly domain-refresh job.
func refreshStaleDomains(ctx context.Context, db *store.Store, analyser *domainanalysis.Analyser, batchSize int) (string, error) {
	domains, err := db.ListExpiredDomains(ctx, batchSize)
	if err != nil {
		return "", err
	}

	refreshed := 0
	for _, domain := range domains {
		if _, err := analyser.Analyse(ctx, domain); err != nil {
			continue
		}
		refreshed++
	}
	return "refreshed " + strconv.Itoa(refreshed) + " domains", nil
}

// aggregateByDomain adapts the store's per-domain rating totals into the
// per-domain aggregate the rule learner consumes.
func aggregateByDomain(ctx context.Context, db *store.Store) func(domain string) (rulelearner.RatingAggregate, error) {
	return func(domain string) (rulelearner.RatingAggregate, error) {
		count, spam, misleading, scam, err := db.DomainRatingAggregate(ctx, domain)
		if err != nil {
			return rulelearner.RatingAggregate{}, err
		}

		agg := rulelearner.RatingAggregate{Count: count}
		if count == 0 {
			return agg, nil
		}
		agg.SpamRatio = float64(spam) / float64(count)
		agg.MisleadingRatio = float64(misleading) / float64(count)
		agg.ScamRatio = float64(scam) / float64(count)
		return agg, nil
	}
}

// runJanitor sweeps processed ratings, expired domain cache entries, and
// idle url_stats rows per the configured retention windows.
func runJanitor(ctx context.Context, db *store.Store, cfg config.Config) (string, error) {
	ratingsDeleted, err := db.DeleteProcessedOlderThan(ctx, cfg.RatingRetentionDays)
	if err != nil {
		return "", err
	}
	grace := time.Duration(cfg.DomainCacheGraceDays) * 24 * time.Hour
	cacheDeleted, err := db.DeleteExpiredDomainCacheOlderThan(ctx, grace)
	if err != nil {
		return "", err
	}
	idleSince := time.Now().AddDate(0, 0, -cfg.StaleURLStatsIdleDays)
	statsDeleted, err := db.DeleteStaleIdleSince(ctx, idleSince)
	if err != nil {
		return "", err
	}
	return "ratings=" + strconv.FormatInt(ratingsDeleted, 10) +
		" domain_cache=" + strconv.FormatInt(cacheDeleted, 10) +
		" url_stats=" + strconv.FormatInt(statsDeleted, 10), nil
}

// corsMiddleware adds permissive CORS headers suitable for a public,
// read-mostly trust-scoring API consumed from browser extensions.
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}
