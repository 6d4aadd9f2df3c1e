package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// inTempDir runs the test from an empty directory so no linkview.toml is found
func inTempDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	oldWd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(oldWd) })
	return dir
}

func TestLoad_Defaults(t *testing.T) {
	inTempDir(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, int64(10*1024*1024), cfg.Server.MaxPayloadSize)
	assert.Equal(t, "local", cfg.Storage.Backend)
	assert.Equal(t, "Housing.csv", cfg.Dataset.Path)
	assert.Equal(t, ',', cfg.Dataset.Delimiter)

	assert.Equal(t, "area", cfg.Scatter.X)
	assert.Equal(t, "price", cfg.Scatter.Y)
	assert.Equal(t, Margin{Top: 20, Right: 30, Bottom: 50, Left: 70}, cfg.Scatter.Margin)
	assert.Equal(t, []string{"price", "area", "bedrooms", "bathrooms", "stories", "parking"}, cfg.Parallel.Dimensions)
	assert.Equal(t, 6, cfg.Parallel.Ticks)

	assert.Equal(t, 30*time.Minute, cfg.Session.TTL)
	assert.Equal(t, 16, cfg.Session.StreamBuffer)
	assert.Equal(t, 30*time.Second, cfg.Shutdown.Timeout)
	assert.Equal(t, 360, cfg.Metrics.TimeseriesBufferSize())
}

func TestLoad_EnvOverride(t *testing.T) {
	inTempDir(t)
	t.Setenv("LINKVIEW_SERVER_PORT", "9090")
	t.Setenv("LINKVIEW_DATASET_DELIMITER", ";")
	t.Setenv("LINKVIEW_STORAGE_BACKEND", "minio")
	t.Setenv("LINKVIEW_SESSION_TTL", "2h")
	t.Setenv("LINKVIEW_PARALLEL_DIMENSIONS", "price:Price area")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, ';', cfg.Dataset.Delimiter)
	assert.Equal(t, "minio", cfg.Storage.Backend)
	assert.Equal(t, 2*time.Hour, cfg.Session.TTL)
	assert.Equal(t, []string{"price:Price", "area"}, cfg.Parallel.Dimensions)
}

func TestLoad_ConfigFile(t *testing.T) {
	dir := inTempDir(t)
	toml := `
[scatter]
x = "bedrooms"
width = 800

[session]
stream_buffer = 4

[log]
level = "debug"
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "linkview.toml"), []byte(toml), 0o644))

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "bedrooms", cfg.Scatter.X)
	assert.Equal(t, 800.0, cfg.Scatter.Width)
	assert.Equal(t, 4, cfg.Session.StreamBuffer)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"payload size", map[string]string{"LINKVIEW_SERVER_MAX_PAYLOAD_SIZE": "1TB"}},
		{"delimiter", map[string]string{"LINKVIEW_DATASET_DELIMITER": "ab"}},
		{"port", map[string]string{"LINKVIEW_SERVER_PORT": "70000"}},
		{"stream buffer", map[string]string{"LINKVIEW_SESSION_STREAM_BUFFER": "0"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			inTempDir(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load()
			assert.Error(t, err)
		})
	}
}

func TestParseDimensions(t *testing.T) {
	dims, err := ParseDimensions([]string{"price", " area : Floor area "})
	require.NoError(t, err)
	assert.Equal(t, []Dimension{{Name: "price"}, {Name: "area", Label: "Floor area"}}, dims)

	_, err = ParseDimensions(nil)
	assert.Error(t, err)

	_, err = ParseDimensions([]string{":Label"})
	assert.Error(t, err)

	_, err = ParseDimensions([]string{"price", "price:Again"})
	assert.Error(t, err)
}

func TestParseDelimiter(t *testing.T) {
	for in, want := range map[string]rune{"": ',', ",": ',', "tab": '\t', `\t`: '\t', ";": ';', "|": '|'} {
		got, err := parseDelimiter(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err := parseDelimiter(`"`)
	assert.Error(t, err)
}

func TestParseSize(t *testing.T) {
	tests := []struct {
		in      string
		want    int64
		wantErr bool
	}{
		{"10MB", 10 * 1024 * 1024, false},
		{"1.5kb", 1536, false},
		{"512", 512, false},
		{"100B", 100, false},
		{"", 0, true},
		{"1TB", 0, true},
		{"-1MB", 0, true},
		{"abc", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseSize(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestServerConfig_ValidateTLS(t *testing.T) {
	dir := t.TempDir()
	certPath := filepath.Join(dir, "cert.pem")
	keyPath := filepath.Join(dir, "key.pem")
	require.NoError(t, os.WriteFile(certPath, []byte("fake cert"), 0o644))
	require.NoError(t, os.WriteFile(keyPath, []byte("fake key"), 0o600))

	assert.NoError(t, (&ServerConfig{}).ValidateTLS())
	assert.Error(t, (&ServerConfig{TLSEnabled: true, TLSKeyFile: keyPath}).ValidateTLS())
	assert.Error(t, (&ServerConfig{TLSEnabled: true, TLSCertFile: certPath}).ValidateTLS())
	assert.Error(t, (&ServerConfig{TLSEnabled: true, TLSCertFile: filepath.Join(dir, "nope"), TLSKeyFile: keyPath}).ValidateTLS())
	assert.Error(t, (&ServerConfig{TLSEnabled: true, TLSCertFile: dir, TLSKeyFile: keyPath}).ValidateTLS())
	assert.NoError(t, (&ServerConfig{TLSEnabled: true, TLSCertFile: certPath, TLSKeyFile: keyPath}).ValidateTLS())
}
