// File: internal/config/config_test.go
package config_test

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/verihawk/verihawk/internal/config"
)

// TestNewDefaultConfig carries the documented defaults.
func TestNewDefaultConfig(t *testing.T) {
	cfg := config.NewDefaultConfig()

	assert.Equal(t, "http://localhost:8000", cfg.Harness.BaseURL)
	assert.Equal(t, "artifacts", cfg.Harness.ArtifactDir)
	assert.Equal(t, 30*time.Second, cfg.Harness.NavigationTimeout)
	assert.Equal(t, 10*time.Second, cfg.Harness.StepTimeout)
	assert.Equal(t, 2, cfg.Harness.Concurrency)
	assert.True(t, cfg.Browser.Headless)
	assert.Equal(t, 30*time.Second, cfg.Browser.LaunchTimeout)
	assert.Equal(t, "info", cfg.Logger.Level)

	assert.NoError(t, cfg.Validate())
}

// TestNewConfigFromViper_Overrides applies explicit settings over defaults.
func TestNewConfigFromViper_Overrides(t *testing.T) {
	v := viper.New()
	config.SetDefaults(v)
	v.Set("harness.base_url", "http://app.internal:3000")
	v.Set("harness.concurrency", 4)
	v.Set("browser.headless", false)

	cfg, err := config.NewConfigFromViper(v)
	require.NoError(t, err)

	assert.Equal(t, "http://app.internal:3000", cfg.Harness.BaseURL)
	assert.Equal(t, 4, cfg.Harness.Concurrency)
	assert.False(t, cfg.Browser.Headless)
}

// TestNewConfigFromViper_ExpandsHome resolves "~" in user supplied paths.
func TestNewConfigFromViper_ExpandsHome(t *testing.T) {
	v := viper.New()
	config.SetDefaults(v)
	v.Set("harness.artifact_dir", "~/verihawk-artifacts")

	cfg, err := config.NewConfigFromViper(v)
	require.NoError(t, err)
	assert.NotContains(t, cfg.Harness.ArtifactDir, "~")
}

// TestValidate_Rejections rejects configurations that would wedge a run.
func TestValidate_Rejections(t *testing.T) {
	cases := []struct {
		name    string
		mutate  func(*config.Config)
		wantErr string
	}{
		{"empty artifact dir", func(c *config.Config) { c.Harness.ArtifactDir = "" }, "artifact_dir"},
		{"zero navigation timeout", func(c *config.Config) { c.Harness.NavigationTimeout = 0 }, "navigation_timeout"},
		{"negative step timeout", func(c *config.Config) { c.Harness.StepTimeout = -time.Second }, "step_timeout"},
		{"zero concurrency", func(c *config.Config) { c.Harness.Concurrency = 0 }, "concurrency"},
		{"zero launch timeout", func(c *config.Config) { c.Browser.LaunchTimeout = 0 }, "launch_timeout"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := config.NewDefaultConfig()
			tc.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.wantErr)
		})
	}
}
