// Package browser owns the go-rod browser process and the one
// long-lived context per worker (spec.md §4.18): stealth
// instrumentation, the cookie/CMP blackhole, resource-blocking rules,
// and atomic context recreation under a lock when the context becomes
// unhealthy. Grounded on the teacher's internal/browser/session_manager.go
// (one-browser-plus-many-contexts ownership model, launcher fallback
// chain, CDP event-stream idiom for console/network observation) and
// internal/browser/honeypot.go (DOM-walk-then-classify style reused here
// for the cookie-banner auto-reject scan).
package browser

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"

	"go.uber.org/zap"

	"github.com/form-sender/formrunner/internal/config"
	"github.com/form-sender/formrunner/internal/logging"
)

// Config carries every browser-manager tunable the worker config
// exposes (spec.md §4.18, §6).
type Config struct {
	Headless               bool
	ResourceBlock          config.ResourceBlockConfig
	CookieControl          config.CookieControlConfig
	Locale                 string
	Timezone               string
	UserAgent              string
	NavigationTimeout      time.Duration
	ElementWaitTimeout     time.Duration
}

// DefaultConfig returns sane production defaults.
func DefaultConfig() Config {
	return Config{
		Headless:           true,
		Locale:             "ja-JP",
		Timezone:           "Asia/Tokyo",
		UserAgent:          "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36",
		NavigationTimeout:  30 * time.Second,
		ElementWaitTimeout: 5 * time.Second,
	}
}

// Manager owns exactly one browser process and, at any time, at most one
// active incognito context per worker goroutine that calls NewContext.
// The context is guarded by mu so recreation under failure is atomic.
type Manager struct {
	cfg Config

	mu      sync.Mutex
	browser *rod.Browser
	started bool
}

// New constructs a Manager; the browser process is not launched until
// Start is called.
func New(cfg Config) *Manager {
	return &Manager{cfg: cfg}
}

// Start launches (or connects to) the browser process. Safe to call
// multiple times; only the first call does work.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.started {
		return nil
	}

	l := launcher.New().
		Headless(m.cfg.Headless).
		Set("disable-blink-features", "AutomationControlled").
		Set("lang", m.cfg.Locale)

	url, err := l.Launch()
	if err != nil {
		return fmt.Errorf("launch browser: %w", err)
	}

	b := rod.New().ControlURL(url).Context(ctx)
	if err := b.Connect(); err != nil {
		return fmt.Errorf("connect to browser: %w", err)
	}

	m.browser = b
	m.started = true
	logging.For(logging.CategoryBrowser).Info("browser started")
	return nil
}

// Shutdown closes the browser process.
func (m *Manager) Shutdown() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.started || m.browser == nil {
		return nil
	}
	err := m.browser.Close()
	m.started = false
	m.browser = nil
	return err
}

// WorkerContext is one worker's exclusively-owned browser context
// (spec.md §3 Ownership): an incognito rod.Browser plus its current
// page, recreated atomically on health failure.
type WorkerContext struct {
	manager *Manager

	mu      sync.Mutex
	ctxBrowser *rod.Browser
	page       *rod.Page
}

// NewContext creates a fresh incognito context with stealth
// instrumentation and the cookie/CMP blackhole applied exactly once.
func (m *Manager) NewContext(ctx context.Context) (*WorkerContext, error) {
	m.mu.Lock()
	b := m.browser
	m.mu.Unlock()
	if b == nil {
		return nil, fmt.Errorf("browser not started")
	}

	incognito, err := b.Incognito()
	if err != nil {
		return nil, fmt.Errorf("create incognito context: %w", err)
	}

	wc := &WorkerContext{manager: m, ctxBrowser: incognito}
	if err := wc.applyStealthAndBlackhole(ctx); err != nil {
		return nil, err
	}
	return wc, nil
}

// Recreate atomically discards the current context (closing its page)
// and builds a fresh one in its place, reapplying stealth instrumentation
// and the cookie blackhole exactly once (spec.md §8 idempotence law).
func (wc *WorkerContext) Recreate(ctx context.Context) error {
	wc.mu.Lock()
	defer wc.mu.Unlock()

	if wc.page != nil {
		_ = wc.page.Close()
		wc.page = nil
	}
	if wc.ctxBrowser != nil {
		_ = wc.ctxBrowser.Close()
	}

	incognito, err := wc.manager.browser.Incognito()
	if err != nil {
		return fmt.Errorf("recreate incognito context: %w", err)
	}
	wc.ctxBrowser = incognito
	return wc.applyStealthAndBlackholeLocked(ctx)
}

func (wc *WorkerContext) applyStealthAndBlackhole(ctx context.Context) error {
	wc.mu.Lock()
	defer wc.mu.Unlock()
	return wc.applyStealthAndBlackholeLocked(ctx)
}

func (wc *WorkerContext) applyStealthAndBlackholeLocked(ctx context.Context) error {
	page, err := wc.ctxBrowser.Page(proto.TargetCreateTarget{URL: "about:blank"})
	if err != nil {
		return fmt.Errorf("create page: %w", err)
	}

	if err := applyStealth(page); err != nil {
		logging.For(logging.CategoryBrowser).Warn("stealth instrumentation failed", zap.Error(err))
	}

	cfg := wc.manager.cfg
	if err := applyLocaleAndUA(page, cfg); err != nil {
		logging.For(logging.CategoryBrowser).Warn("locale/UA override failed", zap.Error(err))
	}

	if cfg.ResourceBlock.Images || cfg.ResourceBlock.Fonts || cfg.ResourceBlock.Stylesheets {
		if err := applyResourceBlocking(page, cfg.ResourceBlock); err != nil {
			logging.For(logging.CategoryBrowser).Warn("resource blocking setup failed", zap.Error(err))
		}
	}

	if err := applyCookieBlackhole(page, cfg.CookieControl); err != nil {
		logging.For(logging.CategoryBrowser).Warn("cookie blackhole setup failed", zap.Error(err))
	}

	wc.page = page
	return nil
}

// Page returns the worker's current page.
func (wc *WorkerContext) Page() *rod.Page {
	wc.mu.Lock()
	defer wc.mu.Unlock()
	return wc.page
}

// ClearCookies wipes the context's cookies between companies (spec.md §4.19).
func (wc *WorkerContext) ClearCookies() error {
	wc.mu.Lock()
	defer wc.mu.Unlock()
	if wc.ctxBrowser == nil {
		return nil
	}
	return wc.ctxBrowser.SetCookies(nil)
}

// Close tears down the context and its page.
func (wc *WorkerContext) Close() error {
	wc.mu.Lock()
	defer wc.mu.Unlock()
	if wc.page != nil {
		_ = wc.page.Close()
		wc.page = nil
	}
	if wc.ctxBrowser != nil {
		return wc.ctxBrowser.Close()
	}
	return nil
}

// Navigate loads url in the worker's page and waits for load state,
// bounded by the configured navigation timeout.
func (wc *WorkerContext) Navigate(ctx context.Context, url string) error {
	page := wc.Page()
	if page == nil {
		return fmt.Errorf("no active page")
	}
	timeout := wc.manager.cfg.NavigationTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	navCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	p := page.Context(navCtx)
	if err := p.Navigate(url); err != nil {
		return fmt.Errorf("navigate %s: %w", url, err)
	}
	if err := p.WaitLoad(); err != nil {
		return fmt.Errorf("wait load %s: %w", url, err)
	}
	return nil
}
