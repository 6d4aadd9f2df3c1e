package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for linkview
type Config struct {
	Server   ServerConfig
	Log      LogConfig
	Dataset  DatasetConfig
	Storage  StorageConfig
	Scatter  ScatterConfig
	Parallel ParallelConfig
	Palette  PaletteConfig
	Session  SessionConfig
	Metrics  MetricsConfig
	Shutdown ShutdownConfig
}

type ServerConfig struct {
	Host           string
	Port           int
	ReadTimeout    int
	WriteTimeout   int
	MaxPayloadSize int64 // Maximum event/selection payload size in bytes (compressed and decompressed)
	CORSOrigins    string
	// TLS Configuration
	TLSEnabled  bool
	TLSCertFile string // PEM certificate
	TLSKeyFile  string // PEM private key
}

type LogConfig struct {
	Level  string
	Format string
}

// DatasetConfig locates the record source inside the storage backend
type DatasetConfig struct {
	Path      string
	Delimiter rune
}

type StorageConfig struct {
	Backend   string // local, s3 or minio
	LocalPath string
	// S3/MinIO configuration
	S3Bucket    string
	S3Prefix    string
	S3Region    string
	S3Endpoint  string // Custom endpoint for MinIO (e.g., "http://localhost:9000")
	S3AccessKey string // or AWS_ACCESS_KEY_ID
	S3SecretKey string // or AWS_SECRET_ACCESS_KEY
	S3UseSSL    bool
	S3PathStyle bool
}

// Margin is the fixed margin box of a view, in pixels
type Margin struct {
	Top, Right, Bottom, Left float64
}

type ScatterConfig struct {
	Width  float64
	Height float64
	Margin Margin
	X      string
	Y      string
	Ticks  int
	Radius float64
}

type ParallelConfig struct {
	Width      float64
	Height     float64
	Margin     Margin
	Dimensions []string // "name" or "name:Label"
	Ticks      int
}

// PaletteConfig overrides the stock colors of both views
type PaletteConfig struct {
	ScatterBaseFill     string
	ScatterSelectedFill string
	LineBaseColor       string
	LineSelectedColor   string
	LineHoverColor      string
	LineContextColor    string
}

type SessionConfig struct {
	TTL             time.Duration
	CleanupInterval time.Duration
	MaxSessions     int
	StreamBuffer    int // Per-client queue of pending selection messages
}

type MetricsConfig struct {
	TimeseriesRetentionMinutes int
	TimeseriesIntervalSeconds  int
}

type ShutdownConfig struct {
	Timeout time.Duration
}

// Load loads configuration from defaults, an optional linkview.toml and
// LINKVIEW_* environment variables, in increasing precedence
func Load() (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetEnvPrefix("LINKVIEW")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetConfigName("linkview")
	v.SetConfigType("toml")
	v.AddConfigPath(".")
	v.AddConfigPath("/etc/linkview/")
	v.AddConfigPath("$HOME/.linkview/")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	maxPayloadSize, err := ParseSize(v.GetString("server.max_payload_size"))
	if err != nil {
		return nil, fmt.Errorf("invalid server.max_payload_size: %w", err)
	}

	delimiter, err := parseDelimiter(v.GetString("dataset.delimiter"))
	if err != nil {
		return nil, fmt.Errorf("invalid dataset.delimiter: %w", err)
	}

	cfg := &Config{
		Server: ServerConfig{
			Host:           v.GetString("server.host"),
			Port:           v.GetInt("server.port"),
			ReadTimeout:    v.GetInt("server.read_timeout"),
			WriteTimeout:   v.GetInt("server.write_timeout"),
			MaxPayloadSize: maxPayloadSize,
			CORSOrigins:    v.GetString("server.cors_origins"),
			TLSEnabled:     v.GetBool("server.tls_enabled"),
			TLSCertFile:    v.GetString("server.tls_cert_file"),
			TLSKeyFile:     v.GetString("server.tls_key_file"),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
		},
		Dataset: DatasetConfig{
			Path:      v.GetString("dataset.path"),
			Delimiter: delimiter,
		},
		Storage: StorageConfig{
			Backend:     v.GetString("storage.backend"),
			LocalPath:   v.GetString("storage.local_path"),
			S3Bucket:    v.GetString("storage.s3_bucket"),
			S3Prefix:    v.GetString("storage.s3_prefix"),
			S3Region:    v.GetString("storage.s3_region"),
			S3Endpoint:  v.GetString("storage.s3_endpoint"),
			S3AccessKey: v.GetString("storage.s3_access_key"),
			S3SecretKey: v.GetString("storage.s3_secret_key"),
			S3UseSSL:    v.GetBool("storage.s3_use_ssl"),
			S3PathStyle: v.GetBool("storage.s3_path_style"),
		},
		Scatter: ScatterConfig{
			Width:  v.GetFloat64("scatter.width"),
			Height: v.GetFloat64("scatter.height"),
			Margin: marginFrom(v, "scatter"),
			X:      v.GetString("scatter.x"),
			Y:      v.GetString("scatter.y"),
			Ticks:  v.GetInt("scatter.ticks"),
			Radius: v.GetFloat64("scatter.radius"),
		},
		Parallel: ParallelConfig{
			Width:      v.GetFloat64("parallel.width"),
			Height:     v.GetFloat64("parallel.height"),
			Margin:     marginFrom(v, "parallel"),
			Dimensions: v.GetStringSlice("parallel.dimensions"),
			Ticks:      v.GetInt("parallel.ticks"),
		},
		Palette: PaletteConfig{
			ScatterBaseFill:     v.GetString("palette.scatter_base_fill"),
			ScatterSelectedFill: v.GetString("palette.scatter_selected_fill"),
			LineBaseColor:       v.GetString("palette.line_base_color"),
			LineSelectedColor:   v.GetString("palette.line_selected_color"),
			LineHoverColor:      v.GetString("palette.line_hover_color"),
			LineContextColor:    v.GetString("palette.line_context_color"),
		},
		Session: SessionConfig{
			TTL:             v.GetDuration("session.ttl"),
			CleanupInterval: v.GetDuration("session.cleanup_interval"),
			MaxSessions:     v.GetInt("session.max_sessions"),
			StreamBuffer:    v.GetInt("session.stream_buffer"),
		},
		Metrics: MetricsConfig{
			TimeseriesRetentionMinutes: v.GetInt("metrics.timeseries_retention_minutes"),
			TimeseriesIntervalSeconds:  v.GetInt("metrics.timeseries_interval_seconds"),
		},
		Shutdown: ShutdownConfig{
			Timeout: v.GetDuration("shutdown.timeout"),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 30)
	v.SetDefault("server.write_timeout", 30)
	v.SetDefault("server.max_payload_size", "10MB")
	v.SetDefault("server.cors_origins", "*")
	v.SetDefault("server.tls_enabled", false)
	v.SetDefault("server.tls_cert_file", "")
	v.SetDefault("server.tls_key_file", "")

	// Log defaults
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Dataset defaults
	v.SetDefault("dataset.path", "Housing.csv")
	v.SetDefault("dataset.delimiter", ",")

	// Storage defaults
	v.SetDefault("storage.backend", "local")
	v.SetDefault("storage.local_path", "./data")
	v.SetDefault("storage.s3_region", "us-east-1")
	v.SetDefault("storage.s3_use_ssl", true)
	v.SetDefault("storage.s3_path_style", false) // set true for MinIO

	// Scatter view defaults
	v.SetDefault("scatter.width", 1400)
	v.SetDefault("scatter.height", 900)
	v.SetDefault("scatter.margin_top", 20)
	v.SetDefault("scatter.margin_right", 30)
	v.SetDefault("scatter.margin_bottom", 50)
	v.SetDefault("scatter.margin_left", 70)
	v.SetDefault("scatter.x", "area")
	v.SetDefault("scatter.y", "price")
	v.SetDefault("scatter.ticks", 10)
	v.SetDefault("scatter.radius", 5)

	// Parallel coordinates defaults
	v.SetDefault("parallel.width", 1400)
	v.SetDefault("parallel.height", 900)
	v.SetDefault("parallel.margin_top", 30)
	v.SetDefault("parallel.margin_right", 30)
	v.SetDefault("parallel.margin_bottom", 30)
	v.SetDefault("parallel.margin_left", 30)
	v.SetDefault("parallel.dimensions", []string{"price", "area", "bedrooms", "bathrooms", "stories", "parking"})
	v.SetDefault("parallel.ticks", 6)

	// Palette defaults (empty keeps the stock color)
	v.SetDefault("palette.scatter_base_fill", "")
	v.SetDefault("palette.scatter_selected_fill", "")
	v.SetDefault("palette.line_base_color", "")
	v.SetDefault("palette.line_selected_color", "")
	v.SetDefault("palette.line_hover_color", "")
	v.SetDefault("palette.line_context_color", "")

	// Session defaults
	v.SetDefault("session.ttl", "30m")
	v.SetDefault("session.cleanup_interval", "5m")
	v.SetDefault("session.max_sessions", 1000)
	v.SetDefault("session.stream_buffer", 16)

	// Metrics defaults
	v.SetDefault("metrics.timeseries_retention_minutes", 30)
	v.SetDefault("metrics.timeseries_interval_seconds", 5)

	// Shutdown defaults
	v.SetDefault("shutdown.timeout", "30s")
}

func marginFrom(v *viper.Viper, section string) Margin {
	return Margin{
		Top:    v.GetFloat64(section + ".margin_top"),
		Right:  v.GetFloat64(section + ".margin_right"),
		Bottom: v.GetFloat64(section + ".margin_bottom"),
		Left:   v.GetFloat64(section + ".margin_left"),
	}
}

func parseDelimiter(s string) (rune, error) {
	switch s {
	case "", ",":
		return ',', nil
	case `\t`, "\t", "tab":
		return '\t', nil
	}
	r := []rune(s)
	if len(r) != 1 || r[0] == '"' || r[0] == '\r' || r[0] == '\n' {
		return 0, fmt.Errorf("delimiter must be a single character, got %q", s)
	}
	return r[0], nil
}

func (cfg *Config) validate() error {
	if cfg.Server.Port <= 0 || cfg.Server.Port > 65535 {
		return fmt.Errorf("invalid server.port: %d", cfg.Server.Port)
	}
	if cfg.Session.TTL <= 0 {
		return fmt.Errorf("session.ttl must be positive")
	}
	if cfg.Session.StreamBuffer <= 0 {
		return fmt.Errorf("session.stream_buffer must be positive")
	}
	if cfg.Metrics.TimeseriesIntervalSeconds <= 0 {
		return fmt.Errorf("metrics.timeseries_interval_seconds must be positive")
	}
	if _, err := ParseDimensions(cfg.Parallel.Dimensions); err != nil {
		return fmt.Errorf("invalid parallel.dimensions: %w", err)
	}
	return nil
}

// TimeseriesBufferSize is the number of samples kept for the retention window
func (cfg MetricsConfig) TimeseriesBufferSize() int {
	if cfg.TimeseriesIntervalSeconds <= 0 {
		return 1
	}
	n := cfg.TimeseriesRetentionMinutes * 60 / cfg.TimeseriesIntervalSeconds
	if n < 1 {
		return 1
	}
	return n
}

// ValidateTLS validates TLS configuration when TLS is enabled.
// Returns nil if TLS is disabled or if configuration is valid.
func (cfg *ServerConfig) ValidateTLS() error {
	if !cfg.TLSEnabled {
		return nil
	}

	if cfg.TLSCertFile == "" {
		return fmt.Errorf("TLS enabled but server.tls_cert_file not specified")
	}
	if cfg.TLSKeyFile == "" {
		return fmt.Errorf("TLS enabled but server.tls_key_file not specified")
	}

	for _, f := range []struct{ kind, path string }{{"certificate", cfg.TLSCertFile}, {"key", cfg.TLSKeyFile}} {
		info, err := os.Stat(f.path)
		if err != nil {
			if os.IsNotExist(err) {
				return fmt.Errorf("TLS %s file not found: %s", f.kind, f.path)
			}
			return fmt.Errorf("cannot access TLS %s file %s: %w", f.kind, f.path, err)
		}
		if info.IsDir() {
			return fmt.Errorf("TLS %s path is a directory, not a file: %s", f.kind, f.path)
		}
	}

	return nil
}

// ParseSize parses a human-readable size string (e.g., "1GB", "500MB", "100KB") to bytes.
// Supports: B, KB, MB, GB (case-insensitive).
func ParseSize(sizeStr string) (int64, error) {
	sizeStr = strings.TrimSpace(strings.ToUpper(sizeStr))
	if sizeStr == "" {
		return 0, fmt.Errorf("empty size string")
	}

	units := []struct {
		suffix     string
		multiplier int64
	}{
		{"GB", 1024 * 1024 * 1024},
		{"MB", 1024 * 1024},
		{"KB", 1024},
		{"B", 1},
	}

	for _, unit := range units {
		if !strings.HasSuffix(sizeStr, unit.suffix) {
			continue
		}
		numStr := strings.TrimSpace(strings.TrimSuffix(sizeStr, unit.suffix))

		var num float64
		var trailing string
		n, _ := fmt.Sscanf(numStr, "%f%s", &num, &trailing)
		if n == 0 {
			return 0, fmt.Errorf("invalid size number: %s", numStr)
		}
		if trailing != "" {
			return 0, fmt.Errorf("invalid size format: %s (use e.g., '1GB', '500MB', '100KB')", sizeStr)
		}
		if num < 0 {
			return 0, fmt.Errorf("size cannot be negative: %s", sizeStr)
		}
		return int64(num * float64(unit.multiplier)), nil
	}

	var num int64
	var trailing string
	n, _ := fmt.Sscanf(sizeStr, "%d%s", &num, &trailing)
	if n == 0 || trailing != "" {
		return 0, fmt.Errorf("invalid size format: %s (use e.g., '1GB', '500MB', '100KB')", sizeStr)
	}
	if num < 0 {
		return 0, fmt.Errorf("size cannot be negative: %s", sizeStr)
	}
	return num, nil
}
