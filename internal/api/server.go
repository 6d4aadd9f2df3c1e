package api

import (
	"context"
	"fmt"
	"net"
	"runtime"
	"strconv"
	"time"

	"github.com/basekick-labs/linkview/internal/logger"
	"github.com/basekick-labs/linkview/internal/metrics"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/rs/zerolog"
)

// Server represents the HTTP API server
type Server struct {
	app        *fiber.App
	logger     zerolog.Logger
	config     *ServerConfig
	ready      func() bool
	timeseries *metrics.TimeSeriesCollector
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Host            string
	Port            int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
	MaxPayloadSize  int64
	CORSOrigins     string
	TLSEnabled      bool
	TLSCertFile     string
	TLSKeyFile      string
}

// DefaultServerConfig returns default server configuration
func DefaultServerConfig() *ServerConfig {
	return &ServerConfig{
		Host:            "0.0.0.0",
		Port:            8080,
		ReadTimeout:     30 * time.Second,
		WriteTimeout:    30 * time.Second,
		IdleTimeout:     120 * time.Second,
		ShutdownTimeout: 30 * time.Second,
		MaxPayloadSize:  10 * 1024 * 1024,
		CORSOrigins:     "*",
	}
}

// NewServer creates a new HTTP server with Fiber
func NewServer(config *ServerConfig, logger zerolog.Logger) *Server {
	if config == nil {
		config = DefaultServerConfig()
	}
	if config.MaxPayloadSize <= 0 {
		config.MaxPayloadSize = DefaultServerConfig().MaxPayloadSize
	}
	if config.CORSOrigins == "" {
		config.CORSOrigins = "*"
	}

	app := fiber.New(fiber.Config{
		AppName:               "linkview",
		ReadTimeout:           config.ReadTimeout,
		WriteTimeout:          config.WriteTimeout,
		IdleTimeout:           config.IdleTimeout,
		BodyLimit:             int(config.MaxPayloadSize),
		DisableStartupMessage: true,
		ErrorHandler:          customErrorHandler(logger),
		// Bodies are JSON or msgpack, never multipart forms
		DisablePreParseMultipartForm: true,
	})

	// Middleware
	app.Use(recover.New(recover.Config{
		EnableStackTrace: true,
	}))

	app.Use(cors.New(cors.Config{
		AllowOrigins: config.CORSOrigins,
		AllowMethods: "GET,POST,DELETE,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept,Content-Encoding",
	}))

	app.Use(securityHeaders())
	app.Use(requestLogger(logger))

	return &Server{
		app:    app,
		logger: logger.With().Str("component", "api-server").Logger(),
		config: config,
		ready:  func() bool { return true },
	}
}

// SetReadyCheck sets the readiness probe; /ready answers 503 while it reports false
func (s *Server) SetReadyCheck(ready func() bool) {
	if ready != nil {
		s.ready = ready
	}
}

// SetTimeSeriesCollector exposes collector under /api/v1/metrics/timeseries
func (s *Server) SetTimeSeriesCollector(collector *metrics.TimeSeriesCollector) {
	s.timeseries = collector
}

// RegisterRoutes registers the operational routes
func (s *Server) RegisterRoutes() {
	s.app.Get("/health", s.healthHandler)
	s.app.Get("/ready", s.readyHandler)

	// Prometheus format
	s.app.Get("/metrics", s.metricsHandler)

	s.app.Get("/api/v1/metrics", s.apiMetricsHandler)
	s.app.Get("/api/v1/metrics/memory", s.memoryMetricsHandler)
	s.app.Get("/api/v1/metrics/endpoints", s.endpointMetricsHandler)
	s.app.Get("/api/v1/metrics/timeseries/:type", s.timeseriesMetricsHandler)

	s.app.Get("/api/v1/logs", s.logsHandler)
}

// healthHandler returns server health status
func (s *Server) healthHandler(c *fiber.Ctx) error {
	uptime := time.Since(startTime)
	return c.JSON(fiber.Map{
		"status":     "ok",
		"time":       time.Now().UTC().Format(time.RFC3339),
		"uptime":     uptime.String(),
		"uptime_sec": uptime.Seconds(),
	})
}

// readyHandler reports whether the dataset has been loaded
func (s *Server) readyHandler(c *fiber.Ctx) error {
	uptime := time.Since(startTime).Seconds()
	if !s.ready() {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"status":     "loading",
			"time":       time.Now().UTC().Format(time.RFC3339),
			"uptime_sec": uptime,
		})
	}
	return c.JSON(fiber.Map{
		"status":     "ready",
		"time":       time.Now().UTC().Format(time.RFC3339),
		"uptime_sec": uptime,
	})
}

// metricsHandler returns metrics in Prometheus format or JSON
func (s *Server) metricsHandler(c *fiber.Ctx) error {
	m := metrics.Get()

	if c.Get("Accept") == "application/json" {
		return c.JSON(m.Snapshot())
	}

	c.Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")
	return c.SendString(m.PrometheusFormat())
}

// apiMetricsHandler returns all metrics in JSON format (API v1)
func (s *Server) apiMetricsHandler(c *fiber.Ctx) error {
	snapshot := metrics.Get().Snapshot()
	snapshot["timestamp"] = time.Now().UTC().Format(time.RFC3339)
	return c.JSON(snapshot)
}

// memoryMetricsHandler returns detailed memory metrics
func (s *Server) memoryMetricsHandler(c *fiber.Ctx) error {
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	return c.JSON(fiber.Map{
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"memory": fiber.Map{
			"alloc_bytes":       memStats.Alloc,
			"total_alloc_bytes": memStats.TotalAlloc,
			"sys_bytes":         memStats.Sys,
			"mallocs":           memStats.Mallocs,
			"frees":             memStats.Frees,

			"heap_alloc_bytes":    memStats.HeapAlloc,
			"heap_inuse_bytes":    memStats.HeapInuse,
			"heap_released_bytes": memStats.HeapReleased,
			"heap_objects":        memStats.HeapObjects,

			"gc_cycles":         memStats.NumGC,
			"gc_pause_total_ns": memStats.PauseTotalNs,
			"gc_pause_ns":       memStats.PauseNs[(memStats.NumGC+255)%256], // Last GC pause
			"next_gc_bytes":     memStats.NextGC,
		},
		"runtime": fiber.Map{
			"goroutines":  runtime.NumGoroutine(),
			"num_cpu":     runtime.NumCPU(),
			"gomaxprocs":  runtime.GOMAXPROCS(0),
			"go_version":  runtime.Version(),
			"uptime_secs": time.Since(startTime).Seconds(),
		},
	})
}

// endpointMetricsHandler groups the counters by concern
func (s *Server) endpointMetricsHandler(c *fiber.Ctx) error {
	snapshot := metrics.Get().Snapshot()

	avgMs := func(sumKey, countKey string) float64 {
		count, ok := snapshot[countKey].(int64)
		if !ok || count == 0 {
			return 0
		}
		sum, _ := snapshot[sumKey].(int64)
		return float64(sum) / float64(count) / 1000.0
	}

	return c.JSON(fiber.Map{
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"http": fiber.Map{
			"requests_total":   snapshot["http_requests_total"],
			"requests_success": snapshot["http_requests_success"],
			"requests_error":   snapshot["http_requests_error"],
			"latency_avg_ms":   avgMs("http_latency_sum_us", "http_latency_count"),
		},
		"interaction": fiber.Map{
			"events_total":      snapshot["events_total"],
			"event_errors":      snapshot["event_errors_total"],
			"selection_updates": snapshot["selection_updates"],
			"selection_size":    snapshot["selection_size"],
			"recompute_avg_ms":  avgMs("recompute_sum_us", "recompute_count"),
		},
		"payloads": fiber.Map{
			"invalid_total":     snapshot["invalid_payloads"],
			"dropped_ids_total": snapshot["dropped_payload_ids"],
		},
		"sessions": fiber.Map{
			"active":  snapshot["sessions_active"],
			"created": snapshot["sessions_created"],
			"expired": snapshot["sessions_expired"],
		},
		"stream": fiber.Map{
			"clients": snapshot["stream_clients"],
			"sent":    snapshot["stream_sent"],
			"dropped": snapshot["stream_dropped"],
		},
		"dataset": fiber.Map{
			"rows":            snapshot["dataset_rows"],
			"malformed_rows":  snapshot["dataset_malformed_rows"],
			"malformed_cells": snapshot["dataset_malformed_cells"],
			"load_errors":     snapshot["dataset_load_errors"],
		},
	})
}

var startTime = time.Now()

// Listen serves until Shutdown is called. It returns nil after a clean shutdown.
func (s *Server) Listen() error {
	addr := net.JoinHostPort(s.config.Host, strconv.Itoa(s.config.Port))

	protocol := "HTTP"
	if s.config.TLSEnabled {
		protocol = "HTTPS"
	}
	s.logger.Info().
		Str("addr", addr).
		Str("protocol", protocol).
		Msg("Starting linkview HTTP server")

	var err error
	if s.config.TLSEnabled {
		err = s.app.ListenTLS(addr, s.config.TLSCertFile, s.config.TLSKeyFile)
	} else {
		err = s.app.Listen(addr)
	}
	if err != nil {
		return fmt.Errorf("server listen failed: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info().Msg("Shutting down server gracefully...")

	if s.config.ShutdownTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.config.ShutdownTimeout)
		defer cancel()
	}

	if err := s.app.ShutdownWithContext(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	s.logger.Info().Msg("Server stopped")
	return nil
}

// GetApp returns the underlying Fiber app (for registering custom routes)
func (s *Server) GetApp() *fiber.App {
	return s.app
}

// GetMaxPayloadSize returns the request body limit in bytes
func (s *Server) GetMaxPayloadSize() int64 {
	return s.config.MaxPayloadSize
}

// logsHandler returns recent application logs
func (s *Server) logsHandler(c *fiber.Ctx) error {
	limit := 100
	if l := c.Query("limit"); l != "" {
		if parsed, err := strconv.Atoi(l); err == nil && parsed > 0 && parsed <= 1000 {
			limit = parsed
		}
	}

	sinceMinutes := 60
	if sm := c.Query("since_minutes"); sm != "" {
		if parsed, err := strconv.Atoi(sm); err == nil && parsed > 0 && parsed <= 1440 {
			sinceMinutes = parsed
		}
	}

	q := logger.Query{
		Limit:        limit,
		Level:        c.Query("level"),
		Component:    c.Query("component"),
		Session:      c.Query("session"),
		SinceMinutes: sinceMinutes,
	}
	entries := logger.GetBuffer().GetRecent(q)

	return c.JSON(fiber.Map{
		"timestamp":        time.Now().UTC().Format(time.RFC3339),
		"count":            len(entries),
		"limit":            limit,
		"level_filter":     q.Level,
		"component_filter": q.Component,
		"session_filter":   q.Session,
		"since_minutes":    sinceMinutes,
		"logs":             entries,
	})
}

// timeseriesMetricsHandler returns time-series metrics data
func (s *Server) timeseriesMetricsHandler(c *fiber.Ctx) error {
	metricType := c.Params("type")

	durationMinutes := 30
	if dm := c.Query("duration_minutes"); dm != "" {
		if parsed, err := strconv.Atoi(dm); err == nil && parsed > 0 && parsed <= 1440 {
			durationMinutes = parsed
		}
	}

	if s.timeseries == nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"error": "Time-series collection is disabled",
		})
	}

	points, ok := s.timeseries.Series(metricType, durationMinutes)
	if !ok {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error":       "Invalid metric type",
			"valid_types": []string{"system", "interaction", "api"},
		})
	}

	return c.JSON(fiber.Map{
		"timestamp":        time.Now().UTC().Format(time.RFC3339),
		"type":             metricType,
		"duration_minutes": durationMinutes,
		"points_count":     len(points),
		"data":             points,
	})
}

// customErrorHandler handles Fiber errors
func customErrorHandler(logger zerolog.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		code := fiber.StatusInternalServerError

		if e, ok := err.(*fiber.Error); ok {
			code = e.Code
		}

		event := logger.Error()
		if code < 500 {
			event = logger.Warn()
		}
		event.
			Err(err).
			Int("status", code).
			Str("method", c.Method()).
			Str("path", c.Path()).
			Msg("Request error")

		return c.Status(code).JSON(fiber.Map{
			"error": err.Error(),
		})
	}
}

// securityHeaders adds security headers to all responses
func securityHeaders() fiber.Handler {
	return func(c *fiber.Ctx) error {
		c.Set("X-Frame-Options", "DENY")
		c.Set("X-Content-Type-Options", "nosniff")
		c.Set("Referrer-Policy", "strict-origin-when-cross-origin")
		c.Set("Permissions-Policy", "geolocation=(), microphone=(), camera=()")
		// SVG scenes carry inline styles only
		c.Set("Content-Security-Policy", "default-src 'none'; style-src 'unsafe-inline'; frame-ancestors 'none'")

		return c.Next()
	}
}

// requestLogger logs errors only and collects metrics
func requestLogger(logger zerolog.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()

		err := c.Next()

		duration := time.Since(start)
		status := c.Response().StatusCode()
		m := metrics.Get()

		m.IncHTTPRequests()
		m.RecordHTTPLatency(duration.Microseconds())

		if status >= 400 {
			m.IncHTTPError()
		} else {
			m.IncHTTPSuccess()
		}

		// Interaction traffic is high-frequency; only failures are logged
		if status >= 400 {
			logEvent := logger.Warn()
			if status >= 500 {
				logEvent = logger.Error()
			}

			logEvent.
				Str("method", c.Method()).
				Str("path", c.Path()).
				Int("status", status).
				Dur("duration_ms", duration).
				Int("size", len(c.Response().Body())).
				Str("ip", c.IP()).
				Msg("HTTP request error")
		}

		return err
	}
}
