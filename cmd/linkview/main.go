package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/basekick-labs/linkview/internal/api"
	"github.com/basekick-labs/linkview/internal/config"
	"github.com/basekick-labs/linkview/internal/dataset"
	"github.com/basekick-labs/linkview/internal/logger"
	"github.com/basekick-labs/linkview/internal/metrics"
	"github.com/basekick-labs/linkview/internal/session"
	"github.com/basekick-labs/linkview/internal/shutdown"
	"github.com/basekick-labs/linkview/internal/storage"
	"github.com/basekick-labs/linkview/internal/view"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// Version is set at build time
var Version = "dev"

const (
	loadRetryMin = 2 * time.Second
	loadRetryMax = time.Minute
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Validate TLS configuration before starting
	if err := cfg.Server.ValidateTLS(); err != nil {
		fmt.Fprintf(os.Stderr, "TLS configuration error: %v\n", err)
		os.Exit(1)
	}

	logger.Setup(cfg.Log.Level, cfg.Log.Format)
	log.Info().Str("version", Version).Msg("Starting linkview...")

	metrics.Init(logger.Get("metrics"))

	shutdownCoordinator := shutdown.New(cfg.Shutdown.Timeout, logger.Get("shutdown"))

	collector := metrics.NewTimeSeriesCollector(
		cfg.Metrics.TimeseriesBufferSize(),
		time.Duration(cfg.Metrics.TimeseriesIntervalSeconds)*time.Second,
	)
	collector.Start()
	shutdownCoordinator.Register("timeseries", collector, shutdown.PriorityMetrics)

	backend, err := storage.New(storage.Config{
		Backend:   cfg.Storage.Backend,
		LocalPath: cfg.Storage.LocalPath,
		S3: storage.S3Config{
			Bucket:    cfg.Storage.S3Bucket,
			Prefix:    cfg.Storage.S3Prefix,
			Region:    cfg.Storage.S3Region,
			Endpoint:  cfg.Storage.S3Endpoint,
			AccessKey: cfg.Storage.S3AccessKey,
			SecretKey: cfg.Storage.S3SecretKey,
			UseSSL:    cfg.Storage.S3UseSSL,
			PathStyle: cfg.Storage.S3PathStyle,
		},
	}, logger.Get("storage"))
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize storage backend")
	}
	shutdownCoordinator.Register("storage", backend, shutdown.PriorityStorage)

	sessionConfig, err := buildSessionConfig(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid view configuration")
	}

	hub := session.NewHub(cfg.Session.StreamBuffer, logger.Get("stream"))
	shutdownCoordinator.Register("stream-hub", hub, shutdown.PriorityStream)

	manager := session.NewManager(sessionConfig, hub, logger.Get("sessions"))
	shutdownCoordinator.Register("sessions", manager, shutdown.PrioritySessions)

	server := api.NewServer(&api.ServerConfig{
		Host:            cfg.Server.Host,
		Port:            cfg.Server.Port,
		ReadTimeout:     time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout:    time.Duration(cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:     120 * time.Second,
		ShutdownTimeout: cfg.Shutdown.Timeout,
		MaxPayloadSize:  cfg.Server.MaxPayloadSize,
		CORSOrigins:     cfg.Server.CORSOrigins,
		TLSEnabled:      cfg.Server.TLSEnabled,
		TLSCertFile:     cfg.Server.TLSCertFile,
		TLSKeyFile:      cfg.Server.TLSKeyFile,
	}, logger.Get("server"))
	server.SetReadyCheck(manager.Ready)
	server.SetTimeSeriesCollector(collector)
	server.RegisterRoutes()

	api.NewSessionHandler(manager, hub, logger.Get("sessions-api")).RegisterRoutes(server.GetApp())

	// First to stop accepting new requests
	shutdownCoordinator.RegisterHook("http-server", server.Shutdown, shutdown.PriorityHTTPServer)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	g, gctx := errgroup.WithContext(ctx)

	g.Go(server.Listen)
	g.Go(func() error {
		return loadDataset(gctx, cfg, backend, manager)
	})

	go func() {
		if err := g.Wait(); err != nil {
			log.Error().Err(err).Msg("Background task failed")
			shutdownCoordinator.TriggerShutdown()
		}
	}()

	log.Info().
		Int("port", cfg.Server.Port).
		Bool("tls", cfg.Server.TLSEnabled).
		Str("dataset", cfg.Dataset.Path).
		Str("storage", backend.Type()).
		Str("version", Version).
		Msg("linkview is listening, dataset loading in background")

	sig := shutdownCoordinator.WaitForSignal()
	log.Info().Str("signal", sig.String()).Msg("Initiating graceful shutdown...")
	cancel()

	if err := shutdownCoordinator.Shutdown(); err != nil {
		log.Error().Err(err).Msg("Shutdown completed with errors")
		os.Exit(1)
	}

	log.Info().Msg("linkview shutdown complete")
}

// loadDataset fetches and parses the dataset, retrying with backoff until
// it succeeds or ctx ends. Sessions see an empty dataset until then.
func loadDataset(ctx context.Context, cfg *config.Config, backend storage.Backend, manager *session.Manager) error {
	l := logger.Get("dataset")
	opts := dataset.ParseOptions{Delimiter: cfg.Dataset.Delimiter}
	delay := loadRetryMin

	for {
		start := time.Now()
		store, report, err := dataset.Load(ctx, backend, cfg.Dataset.Path, dataset.HousingSchema(), opts, l)
		if err == nil {
			metrics.Get().RecordDatasetLoad(report.Rows, report.MalformedRows, report.MalformedCells, report.SkippedRows, time.Since(start))
			manager.SetStore(store)
			return nil
		}

		metrics.Get().IncDatasetLoadErrors()
		if errors.Is(err, context.Canceled) || ctx.Err() != nil {
			return nil
		}
		l.Error().Err(err).Dur("retry_in", delay).Msg("Failed to load dataset")

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(delay):
		}
		delay = min(delay*2, loadRetryMax)
	}
}

func buildSessionConfig(cfg *config.Config) (session.Config, error) {
	dims, err := config.ParseDimensions(cfg.Parallel.Dimensions)
	if err != nil {
		return session.Config{}, err
	}
	parallelDims := make([]view.Dimension, len(dims))
	for i, d := range dims {
		parallelDims[i] = view.Dimension{Name: d.Name, Label: d.Label}
	}

	scatterPalette := view.DefaultScatterPalette()
	if cfg.Scatter.Radius > 0 {
		scatterPalette.Radius = cfg.Scatter.Radius
	}
	override(&scatterPalette.BaseFill, cfg.Palette.ScatterBaseFill)
	override(&scatterPalette.SelectedFill, cfg.Palette.ScatterSelectedFill)

	linePalette := view.DefaultLinePalette()
	override(&linePalette.BaseColor, cfg.Palette.LineBaseColor)
	override(&linePalette.SelectedColor, cfg.Palette.LineSelectedColor)
	override(&linePalette.HoverColor, cfg.Palette.LineHoverColor)
	override(&linePalette.ContextColor, cfg.Palette.LineContextColor)

	return session.Config{
		Scatter: view.ScatterConfig{
			Layout:  layout(cfg.Scatter.Width, cfg.Scatter.Height, cfg.Scatter.Margin),
			X:       view.Dimension{Name: cfg.Scatter.X},
			Y:       view.Dimension{Name: cfg.Scatter.Y},
			Ticks:   cfg.Scatter.Ticks,
			Palette: scatterPalette,
		},
		Parallel: view.ParallelConfig{
			Layout:     layout(cfg.Parallel.Width, cfg.Parallel.Height, cfg.Parallel.Margin),
			Dimensions: parallelDims,
			Ticks:      cfg.Parallel.Ticks,
			Palette:    linePalette,
		},
		SummaryColumns:  []string{"price", "area"},
		TTL:             cfg.Session.TTL,
		CleanupInterval: cfg.Session.CleanupInterval,
		MaxSessions:     cfg.Session.MaxSessions,
	}, nil
}

func layout(w, h float64, m config.Margin) view.Layout {
	return view.Layout{
		Width:  w,
		Height: h,
		Margin: view.Margin{Top: m.Top, Right: m.Right, Bottom: m.Bottom, Left: m.Left},
	}
}

func override(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
