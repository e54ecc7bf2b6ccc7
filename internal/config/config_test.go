// File: internal/config/config_test.go
package config

import (
	"bytes"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// -- Constructor and Defaults Tests --

func TestNewDefaultConfig(t *testing.T) {
	cfg := NewDefaultConfig()

	assert.Equal(t, "info", cfg.Logger().Level)
	assert.Equal(t, "scriptwalk", cfg.Logger().ServiceName)
	assert.True(t, cfg.Browser().Headless)
	assert.Equal(t, 10*time.Second, cfg.Browser().LocateTimeout)
	assert.Equal(t, 90*time.Second, cfg.Network().NavigationTimeout)
	assert.Equal(t, 2, cfg.Interpreter().MaxDepth)
	assert.Equal(t, 100*time.Millisecond, cfg.Interpreter().KeystrokeDelay)
	assert.Equal(t, 30*time.Second, cfg.Interpreter().DefaultWaitTimeout)
	assert.Equal(t, "$loopValue", cfg.Interpreter().Placeholder)
	assert.Equal(t, "json", cfg.Output().Format)
	assert.Equal(t, 4, cfg.Output().Concurrency)
	assert.Empty(t, cfg.Database().URL)

	assert.NoError(t, cfg.Validate(), "defaults must always validate")
}

// -- Validation Logic Tests --

func TestConfigValidation(t *testing.T) {
	t.Run("Interpreter Validation", func(t *testing.T) {
		valid := InterpreterConfig{
			MaxDepth:           2,
			KeystrokeDelay:     0,
			DefaultWaitTimeout: time.Second,
			Placeholder:        "$loopValue",
		}
		assert.NoError(t, valid.Validate(), "a zero keystroke delay is allowed")

		invalidDepth := valid
		invalidDepth.MaxDepth = 0
		err := invalidDepth.Validate()
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "max_depth must be a positive integer")

		invalidDelay := valid
		invalidDelay.KeystrokeDelay = -time.Millisecond
		err = invalidDelay.Validate()
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "keystroke_delay must not be negative")

		invalidWait := valid
		invalidWait.DefaultWaitTimeout = 0
		err = invalidWait.Validate()
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "default_wait_timeout must be a positive duration")

		blankPlaceholder := valid
		blankPlaceholder.Placeholder = "  "
		err = blankPlaceholder.Validate()
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "placeholder must not be empty")
	})

	t.Run("Output Validation", func(t *testing.T) {
		for _, format := range SupportedOutputFormats {
			o := OutputConfig{Format: format, Concurrency: 1}
			assert.NoError(t, o.Validate(), format)
		}

		badFormat := OutputConfig{Format: "csv", Concurrency: 1}
		err := badFormat.Validate()
		assert.Error(t, err)
		assert.Contains(t, err.Error(), `unsupported format "csv"`)

		badConcurrency := OutputConfig{Format: "json", Concurrency: 0}
		err = badConcurrency.Validate()
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "concurrency must be a positive integer")
	})

	t.Run("Core Validation", func(t *testing.T) {
		cfg := NewDefaultConfig()

		cfgInvalid := *cfg
		cfgInvalid.BrowserCfg.LocateTimeout = -time.Second
		err := cfgInvalid.Validate()
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "browser.locate_timeout must not be negative")

		cfgInvalidInterp := *cfg
		cfgInvalidInterp.InterpreterCfg.MaxDepth = -1
		err = cfgInvalidInterp.Validate()
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "interpreter configuration invalid")
	})
}

// -- Factory Function Tests --

func TestNewConfigFromViper(t *testing.T) {
	t.Run("Successful Load from YAML", func(t *testing.T) {
		yamlBytes := []byte(`
interpreter:
  max_depth: 4
  keystroke_delay: 20ms
output:
  format: yaml
  compress: true
`)
		v := viper.New()
		SetDefaults(v)
		v.SetConfigType("yaml")
		require.NoError(t, v.ReadConfig(bytes.NewBuffer(yamlBytes)))

		cfg, err := NewConfigFromViper(v)
		require.NoError(t, err)

		assert.Equal(t, 4, cfg.Interpreter().MaxDepth)
		assert.Equal(t, 20*time.Millisecond, cfg.Interpreter().KeystrokeDelay)
		assert.Equal(t, "yaml", cfg.Output().Format)
		assert.True(t, cfg.Output().Compress)
		// Defaults survive alongside the overrides.
		assert.Equal(t, "$loopValue", cfg.Interpreter().Placeholder)
	})

	t.Run("Validation Failure", func(t *testing.T) {
		v := viper.New()
		SetDefaults(v)
		v.Set("output.format", "csv")

		cfg, err := NewConfigFromViper(v)
		assert.Error(t, err)
		assert.Nil(t, cfg)
		assert.Contains(t, err.Error(), "invalid configuration")
	})

	t.Run("Environment Variable Binding", func(t *testing.T) {
		v := viper.New()
		SetDefaults(v)
		v.SetConfigType("yaml")
		require.NoError(t, v.ReadConfig(bytes.NewBufferString(`
database:
  url: "postgres://configfile/db"
`)))

		testDBURL := "postgres://envvar/db"
		t.Setenv("SCRIPTWALK_DATABASE_URL", testDBURL)

		cfg, err := NewConfigFromViper(v)
		require.NoError(t, err)
		assert.Equal(t, testDBURL, cfg.Database().URL)
	})
}

func TestSetters(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.SetBrowserHeadless(false)
	cfg.SetBrowserProxy("socks5://127.0.0.1:9050")
	cfg.SetOutputDir("/tmp/out")
	cfg.SetOutputFormat("xml")

	assert.False(t, cfg.Browser().Headless)
	assert.Equal(t, "socks5://127.0.0.1:9050", cfg.Browser().Proxy)
	assert.Equal(t, "/tmp/out", cfg.Output().Dir)
	assert.Equal(t, "xml", cfg.Output().Format)
}
