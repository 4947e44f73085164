package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dhawalhost/gatewarden/internal/audit"
	"github.com/dhawalhost/gatewarden/internal/config"
	"github.com/dhawalhost/gatewarden/internal/evaluator"
	"github.com/dhawalhost/gatewarden/internal/evaluator/local"
	"github.com/dhawalhost/gatewarden/internal/guard"
	"github.com/dhawalhost/gatewarden/internal/policy"
	"github.com/dhawalhost/gatewarden/internal/server"
	"github.com/dhawalhost/gatewarden/internal/session"
	"github.com/dhawalhost/gatewarden/pkg/database"
	"github.com/dhawalhost/gatewarden/pkg/logger"
	"github.com/dhawalhost/gatewarden/pkg/middleware"
	"github.com/dhawalhost/gatewarden/pkg/observability"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

func main() {
	cfg := config.FromEnv()

	log, err := logger.New(cfg.LogLevel, cfg.Environment)
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to create logger:", err)
		os.Exit(1)
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracer, err := observability.InitTracer(ctx, observability.TracerConfig{
		ServiceName:    "gatewarden",
		ServiceVersion: "dev",
		Environment:    cfg.Environment,
	}, log)
	if err != nil {
		log.Error("failed to initialize tracing", zap.Error(err))
		os.Exit(1)
	}
	defer shutdownTracer(context.Background())

	metrics := observability.NewMetrics()

	var eval evaluator.Client
	if cfg.EvaluatorURL != "" {
		eval = evaluator.NewRemote(evaluator.RemoteConfig{
			BaseURL: cfg.EvaluatorURL,
			APIKey:  cfg.EvaluatorKey,
			Timeout: cfg.EvaluatorTimeout,
		})
		log.Info("using remote evaluator", zap.String("url", cfg.EvaluatorURL))
	} else {
		var opts []local.Option
		if cfg.RedisAddr != "" {
			rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
			opts = append(opts, local.WithCounterStore(local.NewRedisStore(rdb)))
			log.Info("window counters backed by redis", zap.String("addr", cfg.RedisAddr))
		}
		eval = local.New(log, opts...)
		log.Info("using in-process evaluator")
	}

	guardOpts := []guard.Option{guard.WithMetrics(metrics)}
	var serverOpts []server.Option
	if cfg.DatabaseURL != "" {
		db, err := database.NewConnection(cfg.DatabaseURL)
		if err != nil {
			log.Error("failed to connect to database", zap.Error(err))
			os.Exit(1)
		}
		defer db.Close()
		store := audit.NewStore(db)
		guardOpts = append(guardOpts, guard.WithAuditSink(store))
		serverOpts = append(serverOpts, server.WithAuditStore(store))
		log.Info("audit events persisted to postgres")
	}

	g := guard.New(eval, log, guardOpts...)
	sessions := session.NewManager(session.Config{
		Secret:             cfg.SessionSecret,
		GitHubClientID:     cfg.GitHubClientID,
		GitHubClientSecret: cfg.GitHubClientSecret,
		RedirectURL:        cfg.OAuthRedirectURL,
	}, log)

	// Route templates are built once; requests share them read-only.
	policies := policy.Defaults()
	srv := server.New(g, policies, sessions, log, serverOpts...)

	if cfg.Environment != "development" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.SecurityHeadersMiddleware())
	r.Use(cors.Default())
	r.Use(otelgin.Middleware("gatewarden"))
	r.Use(observability.PrometheusMiddleware(metrics))
	r.Use(middleware.RateLimitMiddleware(rate.Limit(cfg.EdgeRPS), cfg.EdgeBurst))

	r.GET("/metrics", gin.WrapH(observability.PrometheusHandler()))
	srv.RegisterRoutes(r)
	sessions.RegisterRoutes(r)

	httpSrv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Info("HTTP server starting", zap.String("addr", cfg.Addr))
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("HTTP server failed", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.Error("shutdown failed", zap.Error(err))
	}
	log.Info("server stopped")
}
