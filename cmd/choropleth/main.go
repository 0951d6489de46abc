package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"github.com/couchcryptid/county-choropleth/internal/adapter/boundary"
	httpadapter "github.com/couchcryptid/county-choropleth/internal/adapter/http"
	kafkaadapter "github.com/couchcryptid/county-choropleth/internal/adapter/kafka"
	"github.com/couchcryptid/county-choropleth/internal/adapter/series"
	"github.com/couchcryptid/county-choropleth/internal/config"
	"github.com/couchcryptid/county-choropleth/internal/domain"
	"github.com/couchcryptid/county-choropleth/internal/observability"
	"github.com/couchcryptid/county-choropleth/internal/pipeline"
	"github.com/couchcryptid/county-choropleth/internal/render"
)

// alwaysReady is used when no publisher gates readiness.
type alwaysReady struct{}

func (alwaysReady) CheckReadiness(context.Context) error { return nil }

func main() {
	// A missing .env is fine; the environment wins either way.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	geoms, rows, err := loadSources(cfg, logger)
	if err != nil {
		logger.Error("failed to load source data", "error", err)
		os.Exit(1)
	}
	metrics.CountiesLoaded.Set(float64(len(geoms)))
	metrics.SeriesRowsLoaded.Set(float64(len(rows)))

	builder, err := domain.NewSnapshotBuilder(geoms, rows)
	if err != nil {
		logger.Error("failed to build snapshot index", "error", err)
		os.Exit(1)
	}
	first, last := builder.DayRange()
	logger.Info("snapshot index ready",
		"counties", builder.Counties(),
		"first_day", first,
		"last_day", last,
		"duplicates", builder.Duplicates(),
		"fields", len(builder.Fields()),
	)

	catalog := domain.DefaultCatalog()
	if _, err := catalog.Describe(cfg.DefaultMetric); err != nil {
		logger.Error("invalid default metric", "error", err)
		os.Exit(1)
	}

	renderer := render.NewRenderer(catalog, builder, render.Options{
		Title:       cfg.MapTitle,
		SliderStart: cfg.SliderStart,
	})

	var (
		writer    *kafkaadapter.Writer
		publisher *pipeline.Publisher
		sink      render.Sink
		ready     httpadapter.ReadinessChecker = alwaysReady{}
	)
	if cfg.KafkaEnabled {
		writer = kafkaadapter.NewWriter(cfg, logger)
		publisher = pipeline.New(builder, writer, logger, metrics, cfg.BatchSize)
		sink = writer
		ready = publisher
		logger.Info("kafka sink enabled", "brokers", cfg.KafkaBrokers,
			"snapshot_topic", cfg.KafkaSnapshotTopic, "render_topic", cfg.KafkaRenderTopic)
	} else {
		logger.Info("kafka sink disabled")
	}

	session, err := render.NewSession(renderer, sink, renderer.MostRecentDay(), cfg.DefaultMetric)
	if err != nil {
		logger.Error("failed to start session", "error", err)
		os.Exit(1)
	}

	srv := httpadapter.NewServer(httpadapter.Options{
		Addr:           cfg.HTTPAddr,
		AllowedOrigins: cfg.CORSAllowedOrigins,
	}, ready, renderer, session, metrics, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Start HTTP server.
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	// Publish every day's snapshot.
	if publisher != nil {
		go func() {
			if err := publisher.Run(ctx); err != nil {
				logger.Error("publisher error", "error", err)
			}
		}()
	}

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	if writer != nil {
		if err := writer.Close(); err != nil {
			logger.Error("kafka writer close error", "error", err)
		}
	}

	logger.Info("shutdown complete")
}

// loadSources reads the boundary and series files concurrently.
func loadSources(cfg *config.Config, logger *slog.Logger) ([]domain.CountyGeometry, []domain.DailyMetric, error) {
	var (
		geoms []domain.CountyGeometry
		rows  []domain.DailyMetric
	)

	var g errgroup.Group
	g.Go(func() error {
		var err error
		geoms, err = boundary.Load(cfg.BoundaryPath, boundary.Options{
			FIPSField: cfg.BoundaryFIPSField,
			NameField: cfg.BoundaryNameField,
		})
		if err == nil {
			logger.Info("boundary loaded", "path", cfg.BoundaryPath, "counties", len(geoms))
		}
		return err
	})
	g.Go(func() error {
		var err error
		rows, err = series.LoadCSV(cfg.SeriesPath, logger)
		if err == nil {
			logger.Info("series loaded", "path", cfg.SeriesPath, "rows", len(rows))
		}
		return err
	})

	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return geoms, rows, nil
}
