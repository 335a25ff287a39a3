package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"referral-intake/application"
	"referral-intake/domain"
	"referral-intake/infrastructure"
	"referral-intake/interfaces"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the referral HTTP API",
	Long: `Serves the referral API, health check and Prometheus metrics.
The schema must already exist; run "migrate up" first.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	cfg, logger, err := bootstrap()
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	db, err := openDatabase(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer infrastructure.CloseDatabase(db) //nolint:errcheck

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := infrastructure.NewMetrics(reg)

	gen, err := infrastructure.NewTextGenerator(ctx, cfg.Oracle, logger)
	if err != nil {
		return fmt.Errorf("failed to configure scoring oracle: %w", err)
	}
	if closer, ok := gen.(io.Closer); ok {
		defer closer.Close()
	}
	scorer := infrastructure.NewScorer(gen, cfg.Oracle.Timeout, cfg.Oracle.MaxAttempts, metrics, logger)

	store, err := infrastructure.NewDiskResumeStore(cfg.Resume.UploadDir)
	if err != nil {
		return err
	}

	var extractor domain.ResumeExtractor
	if cfg.Resume.ExtractText {
		ex, err := infrastructure.NewDocumentExtractor(cfg.Resume.MaxChars, cfg.Resume.UnidocLicenseKey, logger)
		if err != nil {
			return err
		}
		extractor = ex
	}

	publisher, closePublisher, err := newPublisher(cfg.Events, logger)
	if err != nil {
		return err
	}
	defer closePublisher()

	repo := infrastructure.NewReferralRepository(db)
	intake := application.NewIntakePipeline(application.IntakeDeps{
		Repo:      repo,
		Store:     store,
		Extractor: extractor,
		Scorer:    scorer,
		Publisher: publisher,
		Recorder:  metrics,
	}, logger)
	referrals := application.NewReferralService(repo, publisher, metrics, cfg.Review.AllowReopen, logger)

	gin.SetMode(cfg.Server.Mode)
	router := gin.New()
	router.Use(gin.Recovery(), interfaces.RequestLogger(logger, metrics))
	router.MaxMultipartMemory = cfg.Server.MaxUploadBytes
	interfaces.NewHTTPHandler(router, interfaces.HandlerDeps{
		Intake:         intake,
		Referrals:      referrals,
		Health:         func(ctx context.Context) error { return pingDatabase(ctx, db) },
		MetricsHandler: promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}),
		Metrics:        metrics,
		MaxUploadBytes: cfg.Server.MaxUploadBytes,
		Logger:         logger,
	})

	srv := &http.Server{
		Addr:              cfg.Server.Addr(),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Server running", zap.String("addr", srv.Addr), zap.String("version", Version))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("Shutting down", zap.Duration("timeout", cfg.Server.ShutdownTimeout))
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	return nil
}

// newPublisher returns the RabbitMQ publisher when events are enabled and a
// no-op publisher otherwise.
func newPublisher(cfg infrastructure.EventsConfig, logger *zap.Logger) (domain.EventPublisher, func(), error) {
	if !cfg.Enabled {
		return infrastructure.NoopPublisher{}, func() {}, nil
	}
	rmq, err := infrastructure.NewRabbitMQ(cfg, logger)
	if err != nil {
		return nil, nil, err
	}
	return rmq, func() {
		if err := rmq.Close(); err != nil {
			logger.Warn("Failed to close RabbitMQ connection", zap.Error(err))
		}
	}, nil
}

func pingDatabase(ctx context.Context, db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}
