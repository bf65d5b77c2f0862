package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 30*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, 2*time.Minute, cfg.Server.RequestTimeout)
	assert.Equal(t, int64(50*1024*1024), cfg.Pipeline.MaxUploadBytes)
	assert.Equal(t, 10, cfg.Pipeline.TopCategoriesLimit)
	assert.InDelta(t, 1.5, cfg.Pipeline.OutlierIQRMultiplier, 1e-9)
	assert.Equal(t, "en", cfg.Pipeline.Language)
	assert.Contains(t, cfg.Pipeline.MissingTokens, "NA")
	assert.Contains(t, cfg.Pipeline.DateFormats, "2006-01-02")
	assert.Equal(t, "json", cfg.Logging.Format)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("SALESPULSE_SERVER_PORT", "9090")
	t.Setenv("SALESPULSE_PIPELINE_MAX_UPLOAD_BYTES", "1024")
	t.Setenv("SALESPULSE_PIPELINE_LANGUAGE", "uz")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, int64(1024), cfg.Pipeline.MaxUploadBytes)
	assert.Equal(t, "uz", cfg.Pipeline.Language)
}

func TestLoadRejectsInvalidPort(t *testing.T) {
	t.Setenv("SALESPULSE_SERVER_PORT", "99999")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "port")
}

func TestLoadRejectsUnsupportedLanguage(t *testing.T) {
	t.Setenv("SALESPULSE_PIPELINE_LANGUAGE", "fr")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "language")
}

func TestValidateRejectsBadPipelineValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero upload ceiling", func(c *Config) { c.Pipeline.MaxUploadBytes = 0 }},
		{"zero category limit", func(c *Config) { c.Pipeline.TopCategoriesLimit = 0 }},
		{"negative iqr multiplier", func(c *Config) { c.Pipeline.OutlierIQRMultiplier = -1 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			assert.Error(t, cfg.validate())
		})
	}
}

func TestValidateNormalizesLogging(t *testing.T) {
	cfg := Default()
	cfg.Logging.Format = "text"
	cfg.Logging.FilePath = ""

	require.NoError(t, cfg.validate())
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.Equal(t, "logs/app.log", cfg.Logging.FilePath)
}

func TestDefaultMatchesValidation(t *testing.T) {
	cfg := Default()
	assert.NoError(t, cfg.validate())
}
