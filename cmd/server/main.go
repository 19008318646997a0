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

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"realestate/server/config"
	"realestate/server/internal/api"
	"realestate/server/internal/api/middleware"
	"realestate/server/internal/auth"
	"realestate/server/internal/database"
	"realestate/server/internal/enquiry"
	"realestate/server/internal/mail"
	"realestate/server/internal/metrics"
	"realestate/server/internal/queue"
	"realestate/server/internal/rating"
	"realestate/server/internal/scheduler"
	"realestate/server/internal/telegram"
	"realestate/server/internal/viewcounter"
)

func main() {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	logger.SetOutput(os.Stdout)

	if err := run(logger); err != nil {
		logger.WithError(err).Error("Server stopped with error")
		os.Exit(1)
	}
}

// run wires the server and blocks until a shutdown signal or a listener
// failure. Deferred cleanups run in both cases.
func run(logger *logrus.Logger) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	level, err := logrus.ParseLevel(cfg.Log.Level)
	if err != nil {
		logger.WithError(err).Warn("Unknown log level, using info")
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)

	// Initialize database
	db, err := database.NewDatabase(cfg.Database, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer db.Close()

	logger.Info("Running database migrations...")
	if err := db.RunMigrations(); err != nil {
		return fmt.Errorf("failed to run database migrations: %w", err)
	}

	mailer, closeMailer, err := mail.New(cfg.Mail, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize mailer: %w", err)
	}
	defer closeMailer()

	// Staff notifications for new enquiries
	notifications := queue.NewNotificationQueue(cfg.Queue.BufferSize, logger)
	if cfg.Telegram.Enabled {
		notifier := telegram.NewService(cfg.Telegram, logger)
		notifications.Subscribe(notifier.NotifyEnquiry)
	}
	notifications.Start()
	defer notifications.Close()

	accounts := auth.NewService(db, cfg.Auth.JWTSecret, cfg.Auth.TokenTTL, logger)
	reviews := rating.NewAggregator(db, logger)
	handler := api.NewHandler(api.Dependencies{
		Store:     db,
		Views:     viewcounter.NewCounter(db, logger),
		Reviews:   reviews,
		Enquiries: enquiry.NewService(db, mailer, notifications, cfg.Mail.DefaultFrom, logger),
		Accounts:  accounts,
	}, logger)

	gin.SetMode(cfg.Server.Mode)
	router := gin.New()
	if err := router.SetTrustedProxies(cfg.Server.TrustedProxies); err != nil {
		return fmt.Errorf("invalid trusted proxies: %w", err)
	}
	router.Use(
		gin.Recovery(),
		middleware.RequestID(),
		middleware.Logger(logger),
		metrics.Middleware(),
		middleware.CORS(cfg.Server.AllowedOrigins),
	)

	limiter := middleware.NewRateLimiter(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst)
	api.SetupRoutes(router, handler, limiter)

	// Maintenance jobs
	jobs := scheduler.NewScheduler(logger)
	jobs.Add(scheduler.Job{
		Name:       "reconcile-agent-ratings",
		Interval:   cfg.Scheduler.RatingReconcileInterval,
		RunOnStart: true,
		Run: func(ctx context.Context) error {
			drifted, err := reviews.Reconcile(ctx)
			if drifted > 0 {
				logger.WithField("profiles", drifted).Warn("Repaired agent rating caches")
			}
			return err
		},
	})
	jobs.Add(scheduler.Job{
		Name:     "rate-limiter-cleanup",
		Interval: cfg.Scheduler.LimiterCleanupInterval,
		Run: func(ctx context.Context) error {
			limiter.Cleanup(time.Now())
			return nil
		},
	})
	jobs.Start()
	defer jobs.Stop()

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	return serve(srv, quit, cfg.Server.ShutdownTimeout, logger)
}

// serve runs srv until a signal arrives on quit or the listener fails, then
// shuts it down within timeout
func serve(srv *http.Server, quit <-chan os.Signal, timeout time.Duration, logger *logrus.Logger) error {
	serverErr := make(chan error, 1)
	go func() {
		logger.Infof("Starting server on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case err := <-serverErr:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case sig := <-quit:
		logger.WithField("signal", sig.String()).Info("Shutting down server...")
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("server forced to shut down: %w", err)
	}
	return nil
}
