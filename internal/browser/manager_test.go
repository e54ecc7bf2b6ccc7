// internal/browser/manager_test.go
package browser

import (
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/xkilldash9x/scriptwalk/internal/config"
	"github.com/xkilldash9x/scriptwalk/internal/mocks"
)

func flagValue(flags []allocatorFlag, name string) (interface{}, bool) {
	var (
		v     interface{}
		found bool
	)
	// Later flags win, as they do when applied to the allocator.
	for _, f := range flags {
		if f.name == name {
			v, found = f.value, true
		}
	}
	return v, found
}

func TestAllocatorFlags(t *testing.T) {
	t.Run("DefaultConfig", func(t *testing.T) {
		flags := allocatorFlags(config.NewDefaultConfig().Browser())

		v, ok := flagValue(flags, "headless")
		assert.True(t, ok)
		assert.Equal(t, true, v)

		v, _ = flagValue(flags, "disable-blink-features")
		assert.Equal(t, "AutomationControlled", v)

		_, ok = flagValue(flags, "proxy-server")
		assert.False(t, ok)
		_, ok = flagValue(flags, "ignore-certificate-errors")
		assert.False(t, ok)
	})

	t.Run("HeadlessDisabled", func(t *testing.T) {
		flags := allocatorFlags(config.BrowserConfig{Headless: false})
		v, _ := flagValue(flags, "headless")
		assert.Equal(t, false, v)
		v, _ = flagValue(flags, "disable-gpu")
		assert.Equal(t, false, v)
	})

	t.Run("CacheDisabled", func(t *testing.T) {
		flags := allocatorFlags(config.BrowserConfig{DisableCache: true})
		for _, name := range []string{"disk-cache-size", "media-cache-size", "disable-cache"} {
			_, ok := flagValue(flags, name)
			assert.True(t, ok, name)
		}
	})

	t.Run("IgnoreTLSErrors", func(t *testing.T) {
		flags := allocatorFlags(config.BrowserConfig{IgnoreTLSErrors: true})
		_, ok := flagValue(flags, "ignore-certificate-errors")
		assert.True(t, ok)
		_, ok = flagValue(flags, "allow-insecure-localhost")
		assert.True(t, ok)
	})

	t.Run("ProxyAndUserAgent", func(t *testing.T) {
		flags := allocatorFlags(config.BrowserConfig{
			Proxy:     "http://127.0.0.1:8080",
			UserAgent: "scriptwalk-test",
		})
		v, _ := flagValue(flags, "proxy-server")
		assert.Equal(t, "http://127.0.0.1:8080", v)
		v, _ = flagValue(flags, "user-agent")
		assert.Equal(t, "scriptwalk-test", v)
	})

	t.Run("WithViewport", func(t *testing.T) {
		flags := allocatorFlags(config.BrowserConfig{Viewport: map[string]int{"width": 1920, "height": 1080}})
		v, _ := flagValue(flags, "window-size")
		assert.Equal(t, "1920,1080", v)

		flags = allocatorFlags(config.BrowserConfig{Viewport: map[string]int{"width": 1920}})
		_, ok := flagValue(flags, "window-size")
		assert.False(t, ok, "a partial viewport is ignored")
	})

	t.Run("WithCustomArgs", func(t *testing.T) {
		flags := allocatorFlags(config.BrowserConfig{
			Headless: true,
			Args:     []string{"--custom-arg1", "--lang=de-DE", "--headless=false", "--"},
		})
		v, _ := flagValue(flags, "custom-arg1")
		assert.Equal(t, true, v)
		v, _ = flagValue(flags, "lang")
		assert.Equal(t, "de-DE", v)
		v, _ = flagValue(flags, "headless")
		assert.Equal(t, "false", v, "custom args are applied last")
		_, ok := flagValue(flags, "")
		assert.False(t, ok)
	})

	t.Run("ContainerFlags", func(t *testing.T) {
		flags := allocatorFlags(config.BrowserConfig{})
		_, ok := flagValue(flags, "no-sandbox")
		assert.Equal(t, runtime.GOOS == "linux", ok)
	})
}

func TestDefaultAllocatorOptions(t *testing.T) {
	cfg := config.BrowserConfig{Headless: true, ExecPath: "/usr/bin/chromium"}
	opts := DefaultAllocatorOptions(cfg)

	// chromedp defaults, the automation override, every flag, and the exec path.
	assert.GreaterOrEqual(t, len(opts), len(allocatorFlags(cfg))+2)
}

func TestNewManager(t *testing.T) {
	cfg := new(mocks.MockConfig)
	cfg.On("Browser").Return(config.BrowserConfig{Headless: true, Proxy: "socks5://localhost:1080"}).Once()
	cfg.On("Network").Return(config.NetworkConfig{NavigationTimeout: 45 * time.Second}).Once()

	m := NewManager(cfg, nil)
	cfg.AssertExpectations(t)
	assert.Equal(t, "socks5://localhost:1080", m.browserCfg.Proxy)
	assert.Equal(t, 45*time.Second, m.networkCfg.NavigationTimeout)

	// Shutting down a manager that never launched is a no-op.
	assert.NoError(t, m.Shutdown(t.Context()))
	_, err := m.NewPage(t.Context())
	assert.Error(t, err)
}
