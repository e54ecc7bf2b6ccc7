// File: internal/config/config.go
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Interface defines the contract for accessing application configuration.
// This allows for dependency injection and mocking in tests.
type Interface interface {
	Logger() LoggerConfig
	Browser() BrowserConfig
	Network() NetworkConfig
	Interpreter() InterpreterConfig
	Output() OutputConfig
	Database() DatabaseConfig

	// Browser Setters
	SetBrowserHeadless(bool)
	SetBrowserProxy(string)

	// Output Setters
	SetOutputDir(string)
	SetOutputFormat(string)
}

// Config holds the entire application configuration. Sections are reached
// through the Interface getters; the exported fields exist so viper can
// unmarshal into them.
type Config struct {
	LoggerCfg      LoggerConfig      `mapstructure:"logger" yaml:"logger"`
	BrowserCfg     BrowserConfig     `mapstructure:"browser" yaml:"browser"`
	NetworkCfg     NetworkConfig     `mapstructure:"network" yaml:"network"`
	InterpreterCfg InterpreterConfig `mapstructure:"interpreter" yaml:"interpreter"`
	OutputCfg      OutputConfig      `mapstructure:"output" yaml:"output"`
	DatabaseCfg    DatabaseConfig    `mapstructure:"database" yaml:"database"`
}

var _ Interface = (*Config)(nil)

// --- Interface Method Implementations (Getters) ---

func (c *Config) Logger() LoggerConfig           { return c.LoggerCfg }
func (c *Config) Browser() BrowserConfig         { return c.BrowserCfg }
func (c *Config) Network() NetworkConfig         { return c.NetworkCfg }
func (c *Config) Interpreter() InterpreterConfig { return c.InterpreterCfg }
func (c *Config) Output() OutputConfig           { return c.OutputCfg }
func (c *Config) Database() DatabaseConfig       { return c.DatabaseCfg }

// --- Interface Method Implementations (Setters) ---

func (c *Config) SetBrowserHeadless(b bool)     { c.BrowserCfg.Headless = b }
func (c *Config) SetBrowserProxy(proxy string)  { c.BrowserCfg.Proxy = proxy }
func (c *Config) SetOutputDir(dir string)       { c.OutputCfg.Dir = dir }
func (c *Config) SetOutputFormat(format string) { c.OutputCfg.Format = format }

// LoggerConfig holds all the configuration for the logger.
type LoggerConfig struct {
	Level       string      `mapstructure:"level" yaml:"level"`
	Format      string      `mapstructure:"format" yaml:"format"`
	AddSource   bool        `mapstructure:"add_source" yaml:"add_source"`
	ServiceName string      `mapstructure:"service_name" yaml:"service_name"`
	LogFile     string      `mapstructure:"log_file" yaml:"log_file"`
	MaxSize     int         `mapstructure:"max_size" yaml:"max_size"`
	MaxBackups  int         `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAge      int         `mapstructure:"max_age" yaml:"max_age"`
	Compress    bool        `mapstructure:"compress" yaml:"compress"`
	Colors      ColorConfig `mapstructure:"colors" yaml:"colors"`
}

// ColorConfig defines the color names for different log levels.
type ColorConfig struct {
	Debug  string `mapstructure:"debug" yaml:"debug"`
	Info   string `mapstructure:"info" yaml:"info"`
	Warn   string `mapstructure:"warn" yaml:"warn"`
	Error  string `mapstructure:"error" yaml:"error"`
	DPanic string `mapstructure:"dpanic" yaml:"dpanic"`
	Panic  string `mapstructure:"panic" yaml:"panic"`
	Fatal  string `mapstructure:"fatal" yaml:"fatal"`
}

// BrowserConfig holds settings for the Chrome instance driven by a run.
type BrowserConfig struct {
	Headless        bool           `mapstructure:"headless" yaml:"headless"`
	DisableCache    bool           `mapstructure:"disable_cache" yaml:"disable_cache"`
	IgnoreTLSErrors bool           `mapstructure:"ignore_tls_errors" yaml:"ignore_tls_errors"`
	ExecPath        string         `mapstructure:"exec_path" yaml:"exec_path"`
	UserAgent       string         `mapstructure:"user_agent" yaml:"user_agent"`
	Proxy           string         `mapstructure:"proxy" yaml:"proxy"`
	Args            []string       `mapstructure:"args" yaml:"args"`
	Viewport        map[string]int `mapstructure:"viewport" yaml:"viewport"`
	// LocateTimeout bounds how long a single-element lookup polls the DOM
	// before reporting the element as missing.
	LocateTimeout time.Duration `mapstructure:"locate_timeout" yaml:"locate_timeout"`
	Debug         bool          `mapstructure:"debug" yaml:"debug"`
}

// NetworkConfig tunes page loading.
type NetworkConfig struct {
	NavigationTimeout time.Duration `mapstructure:"navigation_timeout" yaml:"navigation_timeout"`
	PostLoadWait      time.Duration `mapstructure:"post_load_wait" yaml:"post_load_wait"`
}

// InterpreterConfig tunes script execution.
type InterpreterConfig struct {
	MaxDepth           int           `mapstructure:"max_depth" yaml:"max_depth"`
	KeystrokeDelay     time.Duration `mapstructure:"keystroke_delay" yaml:"keystroke_delay"`
	DefaultWaitTimeout time.Duration `mapstructure:"default_wait_timeout" yaml:"default_wait_timeout"`
	Placeholder        string        `mapstructure:"placeholder" yaml:"placeholder"`
}

// OutputConfig controls where and how run results are written.
type OutputConfig struct {
	Dir         string `mapstructure:"dir" yaml:"dir"`
	Format      string `mapstructure:"format" yaml:"format"`
	Compress    bool   `mapstructure:"compress" yaml:"compress"`
	Concurrency int    `mapstructure:"concurrency" yaml:"concurrency"`
}

// DatabaseConfig holds the optional result store connection details.
type DatabaseConfig struct {
	URL string `mapstructure:"url" yaml:"url"`
}

// NewDefaultConfig creates a new configuration struct populated with default values.
func NewDefaultConfig() *Config {
	v := viper.New()
	SetDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		// This should not happen with defaults, but good to be safe.
		panic(fmt.Sprintf("failed to unmarshal default config: %v", err))
	}
	return &cfg
}

// SetDefaults initializes default values for various configuration parameters.
func SetDefaults(v *viper.Viper) {
	// -- Logger --
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.add_source", false)
	v.SetDefault("logger.service_name", "scriptwalk")
	v.SetDefault("logger.log_file", "")
	v.SetDefault("logger.max_size", 100)
	v.SetDefault("logger.max_backups", 5)
	v.SetDefault("logger.max_age", 30)
	v.SetDefault("logger.compress", true)
	v.SetDefault("logger.colors.debug", "cyan")
	v.SetDefault("logger.colors.info", "green")
	v.SetDefault("logger.colors.warn", "yellow")
	v.SetDefault("logger.colors.error", "red")

	// -- Browser --
	v.SetDefault("browser.headless", true)
	v.SetDefault("browser.disable_cache", false)
	v.SetDefault("browser.ignore_tls_errors", false)
	v.SetDefault("browser.locate_timeout", "10s")
	v.SetDefault("browser.debug", false)

	// -- Network --
	v.SetDefault("network.navigation_timeout", "90s")
	v.SetDefault("network.post_load_wait", "2s")

	// -- Interpreter --
	v.SetDefault("interpreter.max_depth", 2)
	v.SetDefault("interpreter.keystroke_delay", "100ms")
	v.SetDefault("interpreter.default_wait_timeout", "30s")
	v.SetDefault("interpreter.placeholder", "$loopValue")

	// -- Output --
	v.SetDefault("output.dir", "./results")
	v.SetDefault("output.format", "json")
	v.SetDefault("output.compress", false)
	v.SetDefault("output.concurrency", 4)
}

// NewConfigFromViper creates a new configuration instance from a viper object.
func NewConfigFromViper(v *viper.Viper) (*Config, error) {
	var cfg Config

	// Bind environment variables for sensitive data
	_ = v.BindEnv("database.url", "SCRIPTWALK_DATABASE_URL")

	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// Validate checks the configuration for required fields and sane values.
func (c *Config) Validate() error {
	if err := c.InterpreterCfg.Validate(); err != nil {
		return fmt.Errorf("interpreter configuration invalid: %w", err)
	}
	if err := c.OutputCfg.Validate(); err != nil {
		return fmt.Errorf("output configuration invalid: %w", err)
	}
	if c.BrowserCfg.LocateTimeout < 0 {
		return fmt.Errorf("browser.locate_timeout must not be negative")
	}
	return nil
}

// Validate checks the interpreter settings.
func (i *InterpreterConfig) Validate() error {
	if i.MaxDepth <= 0 {
		return fmt.Errorf("max_depth must be a positive integer")
	}
	if i.KeystrokeDelay < 0 {
		return fmt.Errorf("keystroke_delay must not be negative")
	}
	if i.DefaultWaitTimeout <= 0 {
		return fmt.Errorf("default_wait_timeout must be a positive duration")
	}
	if strings.TrimSpace(i.Placeholder) == "" {
		return fmt.Errorf("placeholder must not be empty")
	}
	return nil
}

// SupportedOutputFormats lists the capture file encodings the reporter can write.
var SupportedOutputFormats = []string{"json", "yaml", "xml"}

// Validate checks the output settings.
func (o *OutputConfig) Validate() error {
	supported := false
	for _, f := range SupportedOutputFormats {
		if o.Format == f {
			supported = true
			break
		}
	}
	if !supported {
		return fmt.Errorf("unsupported format %q (supported: %s)", o.Format, strings.Join(SupportedOutputFormats, ", "))
	}
	if o.Concurrency <= 0 {
		return fmt.Errorf("concurrency must be a positive integer")
	}
	return nil
}
