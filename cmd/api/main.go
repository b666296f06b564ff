package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cmlabs-hris/hris-payments-go/internal/config"
	appHTTP "github.com/cmlabs-hris/hris-payments-go/internal/handler/http"
	"github.com/cmlabs-hris/hris-payments-go/internal/pkg/cron"
	"github.com/cmlabs-hris/hris-payments-go/internal/pkg/database"
	"github.com/cmlabs-hris/hris-payments-go/internal/pkg/email"
	"github.com/cmlabs-hris/hris-payments-go/internal/pkg/jwt"
	"github.com/cmlabs-hris/hris-payments-go/internal/pkg/lock"
	"github.com/cmlabs-hris/hris-payments-go/internal/pkg/queue"
	"github.com/cmlabs-hris/hris-payments-go/internal/repository/postgresql"
	paymentService "github.com/cmlabs-hris/hris-payments-go/internal/service/payment"
	"golang.org/x/sync/errgroup"
)

func main() {
	if err := run(); err != nil {
		slog.Error("Server stopped with error", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("error loading config: %w", err)
	}

	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.SlogLevel()})))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgreSQLDB(ctx, cfg.DatabaseURL())
	if err != nil {
		return fmt.Errorf("error connecting to database: %w", err)
	}
	defer db.Close()

	if err := db.Migrate(ctx); err != nil {
		return err
	}

	redisClient, err := lock.NewRedisClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		return err
	}
	defer redisClient.Close()

	paymentRepo := postgresql.NewPaymentRepository(db)
	shiftRepo := postgresql.NewShiftRepository(db)
	employeeDirectory := postgresql.NewEmployeeDirectory(db)
	settingsRepo := postgresql.NewSettingsRepository(db)

	limits := paymentService.Limits{
		MaxTotalEarnings: cfg.Payment.MaxTotalEarnings,
		MaxTotalHours:    cfg.Payment.MaxTotalHours,
		MaxShiftsCount:   cfg.Payment.MaxShiftsCount,
		MaxShiftHours:    cfg.Payment.MaxShiftHours,
	}
	paymentSvc := paymentService.NewPaymentService(paymentRepo, shiftRepo, employeeDirectory, settingsRepo, limits)

	emailService, err := email.NewEmailService(cfg.SMTP)
	if err != nil {
		return fmt.Errorf("failed to initialize email service: %w", err)
	}

	redisOpt := queue.RedisOpt(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	notifier := queue.NewNotifier(redisOpt)
	defer notifier.Close()
	worker := queue.NewWorker(redisOpt, emailService)

	paymentJobs := cron.NewPaymentJobs(
		settingsRepo,
		paymentRepo,
		employeeDirectory,
		paymentSvc,
		notifier,
		lock.NewRedisLocker(redisClient, "hris:payments:lock:"),
		cfg.Payment.LockTTL,
		cfg.Payment.SystemInitiatorID,
	)
	scheduler := cron.NewScheduler()
	paymentJobs.RegisterJobs(scheduler, cfg.Payment.CheckInterval)

	JWTService := jwt.NewJWTService(cfg.JWT.Secret, cfg.JWT.AccessExpiration)
	paymentHandler := appHTTP.NewPaymentHandler(paymentSvc)
	router := appHTTP.NewRouter(cfg, JWTService, paymentHandler)

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.App.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	scheduler.Start()
	defer scheduler.Stop()

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := worker.Run(gCtx); err != nil {
			return fmt.Errorf("notification worker error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		slog.Info("Server running", "addr", server.Addr, "env", cfg.App.Env)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	// Stops the server on a signal or when another goroutine fails.
	g.Go(func() error {
		<-gCtx.Done()
		slog.Info("Shutdown signal received")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}

	slog.Info("Server stopped")
	return nil
}
