// internal/browser/manager.go
package browser

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/xkilldash9x/scriptwalk/internal/config"
)

const (
	startupCheckTimeout = 30 * time.Second
	shutdownGracePeriod = 10 * time.Second
)

// Manager owns the Chrome process and hands out pages (tabs). Launch is
// deferred until the first page is requested.
type Manager struct {
	browserCfg config.BrowserConfig
	networkCfg config.NetworkConfig
	logger     *zap.Logger

	allocCtx    context.Context
	allocCancel context.CancelFunc
	rootCtx     context.Context // first tab, keeps the browser alive
	rootCancel  context.CancelFunc

	pages map[*Page]struct{}
	mu    sync.Mutex

	initOnce sync.Once
	initErr  error
	closed   bool
}

// NewManager creates a browser manager from the browser and network
// sections of cfg.
func NewManager(cfg config.Interface, logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{
		browserCfg: cfg.Browser(),
		networkCfg: cfg.Network(),
		logger:     logger.Named("browser_manager"),
		pages:      make(map[*Page]struct{}),
	}
}

func (m *Manager) initialize(ctx context.Context) error {
	m.initOnce.Do(func() {
		m.logger.Info("Launching browser",
			zap.Bool("headless", m.browserCfg.Headless),
			zap.String("proxy", m.browserCfg.Proxy))

		// The allocator outlives the caller's context; Shutdown ends it.
		allocCtx, allocCancel := chromedp.NewExecAllocator(context.WithoutCancel(ctx), DefaultAllocatorOptions(m.browserCfg)...)

		var ctxOpts []chromedp.ContextOption
		if m.browserCfg.Debug {
			ctxOpts = append(ctxOpts, chromedp.WithDebugf(m.logger.Sugar().Debugf))
		}
		rootCtx, rootCancel := chromedp.NewContext(allocCtx, ctxOpts...)

		// The first Run on a context starts the process and binds it to that
		// exact context, so it must not be a derived, cancelable one.
		if err := chromedp.Run(rootCtx); err != nil {
			rootCancel()
			allocCancel()
			m.initErr = fmt.Errorf("failed to launch browser: %w", err)
			return
		}

		checkCtx, cancelCheck := context.WithTimeout(ctx, startupCheckTimeout)
		defer cancelCheck()
		check, cancel := CombineContext(rootCtx, checkCtx)
		defer cancel()

		if err := chromedp.Run(check, chromedp.Navigate("about:blank")); err != nil {
			rootCancel()
			allocCancel()
			m.initErr = fmt.Errorf("browser failed to start or respond: %w", err)
			return
		}

		m.allocCtx, m.allocCancel = allocCtx, allocCancel
		m.rootCtx, m.rootCancel = rootCtx, rootCancel
		m.logger.Info("Browser launched and responsive.")
	})
	return m.initErr
}

// NewPage opens a new tab.
func (m *Manager) NewPage(ctx context.Context) (*Page, error) {
	m.mu.Lock()
	closed := m.closed
	m.mu.Unlock()
	if closed {
		return nil, errors.New("browser manager is shut down")
	}
	if err := m.initialize(ctx); err != nil {
		return nil, err
	}

	tabCtx, tabCancel := chromedp.NewContext(m.rootCtx)
	p := &Page{
		ctx:           tabCtx,
		logger:        m.logger.Named("page"),
		locateTimeout: m.browserCfg.LocateTimeout,
		network:       m.networkCfg,
	}
	if p.locateTimeout <= 0 {
		p.locateTimeout = 10 * time.Second
	}
	p.cancel = func() {
		tabCancel()
		m.mu.Lock()
		delete(m.pages, p)
		m.mu.Unlock()
	}

	// Attach the tab on its own context; see initialize.
	if err := chromedp.Run(tabCtx); err != nil {
		p.Close()
		return nil, fmt.Errorf("failed to open tab: %w", err)
	}

	m.mu.Lock()
	m.pages[p] = struct{}{}
	m.mu.Unlock()
	return p, nil
}

// Shutdown closes every page and the browser process.
func (m *Manager) Shutdown(ctx context.Context) error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	pages := make([]*Page, 0, len(m.pages))
	for p := range m.pages {
		pages = append(pages, p)
	}
	m.mu.Unlock()

	for _, p := range pages {
		p.Close()
	}
	if m.rootCtx == nil {
		return nil
	}

	m.logger.Info("Shutting down browser.")
	done := make(chan error, 1)
	go func() {
		done <- chromedp.Cancel(m.rootCtx)
	}()

	var err error
	grace, cancel := context.WithTimeout(ctx, shutdownGracePeriod)
	defer cancel()
	select {
	case err = <-done:
	case <-grace.Done():
		err = fmt.Errorf("browser did not close within grace period: %w", grace.Err())
	}
	m.rootCancel()
	m.allocCancel()
	return err
}

// allocatorFlag is one Chrome command line switch.
type allocatorFlag struct {
	name  string
	value interface{}
}

// allocatorFlags assembles the Chrome switches for cfg, in application order.
func allocatorFlags(cfg config.BrowserConfig) []allocatorFlag {
	flags := []allocatorFlag{
		{"headless", cfg.Headless},
		{"disable-gpu", cfg.Headless},
		{"disable-extensions", true},
		{"disable-blink-features", "AutomationControlled"},
	}

	if cfg.IgnoreTLSErrors {
		flags = append(flags,
			allocatorFlag{"ignore-certificate-errors", true},
			allocatorFlag{"allow-insecure-localhost", true},
		)
	}
	if cfg.DisableCache {
		flags = append(flags,
			allocatorFlag{"disk-cache-size", "1"},
			allocatorFlag{"media-cache-size", "1"},
			allocatorFlag{"disable-cache", true},
		)
	}
	if cfg.Proxy != "" {
		flags = append(flags, allocatorFlag{"proxy-server", cfg.Proxy})
	}
	if cfg.UserAgent != "" {
		flags = append(flags, allocatorFlag{"user-agent", cfg.UserAgent})
	}
	if w, h := cfg.Viewport["width"], cfg.Viewport["height"]; w > 0 && h > 0 {
		flags = append(flags, allocatorFlag{"window-size", strconv.Itoa(w) + "," + strconv.Itoa(h)})
	}

	// Flags required inside containers.
	if runtime.GOOS == "linux" {
		flags = append(flags,
			allocatorFlag{"no-sandbox", true},
			allocatorFlag{"disable-dev-shm-usage", true},
		)
	}

	// Custom arguments from config.yaml come last so they can override.
	for _, arg := range cfg.Args {
		name, value, hasValue := strings.Cut(strings.TrimPrefix(arg, "--"), "=")
		if name == "" {
			continue
		}
		if hasValue {
			flags = append(flags, allocatorFlag{name, value})
		} else {
			flags = append(flags, allocatorFlag{name, true})
		}
	}
	return flags
}

// DefaultAllocatorOptions builds exec allocator options for cfg on top of
// chromedp's defaults, minus the automation banner switch.
func DefaultAllocatorOptions(cfg config.BrowserConfig) []chromedp.ExecAllocatorOption {
	opts := append([]chromedp.ExecAllocatorOption{}, chromedp.DefaultExecAllocatorOptions[:]...)
	opts = append(opts, chromedp.Flag("enable-automation", false))

	for _, f := range allocatorFlags(cfg) {
		opts = append(opts, chromedp.Flag(f.name, f.value))
	}
	if cfg.ExecPath != "" {
		opts = append(opts, chromedp.ExecPath(cfg.ExecPath))
	}
	return opts
}
