package analysis

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/sirupsen/logrus"
)

// BrowserConfig configures the headless-browser provider
type BrowserConfig struct {
	// BrowserPath overrides the downloaded Chromium
	BrowserPath string
	// Wait is how long a rendered page may take to fire a dialog
	Wait time.Duration
	// Pages bounds concurrently rendered documents
	Pages      int
	MaxContent int
	Breaker    BreakerConfig
	Logger     *logrus.Entry
}

// BrowserProvider renders the response in headless Chromium and reports
// VULNERABLE when a JavaScript dialog opens. Browser failures open a
// circuit breaker so a crashed browser turns into fast upstream errors.
type BrowserProvider struct {
	cfg     BrowserConfig
	breaker *CircuitBreaker
	pages   chan struct{}
	log     *logrus.Entry

	mu      sync.Mutex
	browser *rod.Browser
}

// NewBrowserProvider creates a provider; the browser starts on first use
func NewBrowserProvider(cfg BrowserConfig) *BrowserProvider {
	if cfg.Wait == 0 {
		cfg.Wait = 2 * time.Second
	}
	if cfg.Pages <= 0 {
		cfg.Pages = 4
	}
	if cfg.Breaker == (BreakerConfig{}) {
		cfg.Breaker = DefaultBreakerConfig()
	}
	log := cfg.Logger
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &BrowserProvider{
		cfg:     cfg,
		breaker: NewCircuitBreaker(cfg.Breaker),
		pages:   make(chan struct{}, cfg.Pages),
		log:     log.WithField("provider", "browser"),
	}
}

func (p *BrowserProvider) Name() string {
	return "browser"
}

// Breaker exposes the provider's circuit breaker for health reporting
func (p *BrowserProvider) Breaker() *CircuitBreaker {
	return p.breaker
}

// Analyze loads html into a blank page and listens for dialogs
func (p *BrowserProvider) Analyze(ctx context.Context, html, payload string) (string, error) {
	if !p.breaker.Allow() {
		return "", fmt.Errorf("%w: browser circuit open, retry in %s", ErrUpstream, p.breaker.RetryAfter().Round(time.Second))
	}

	select {
	case p.pages <- struct{}{}:
		defer func() { <-p.pages }()
	case <-ctx.Done():
		return "", fmt.Errorf("%w: %v", ErrUpstream, ctx.Err())
	}

	message, fired, err := p.render(ctx, TruncateContent(html, p.cfg.MaxContent))
	if err != nil {
		p.breaker.RecordFailure()
		p.log.WithError(err).WithField("state", p.breaker.State().String()).Warn("browser render failed")
		return "", fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	p.breaker.RecordSuccess()

	if fired {
		return Vulnerable(fmt.Sprintf("Payload executed in a headless browser and opened a dialog (%q).", truncate(message, 80))), nil
	}
	if DetectReflection(html, payload) == ReflectionRaw {
		return Safe("Payload is reflected but did not execute in a headless browser."), nil
	}
	return Safe("Payload did not execute in a headless browser."), nil
}

func (p *BrowserProvider) render(ctx context.Context, html string) (string, bool, error) {
	browser, err := p.connect()
	if err != nil {
		return "", false, err
	}

	page, err := browser.Page(proto.TargetCreateTarget{URL: "about:blank"})
	if err != nil {
		p.reset()
		return "", false, fmt.Errorf("failed to open page: %w", err)
	}
	defer page.Close()

	if err := (proto.PageEnable{}).Call(page); err != nil {
		return "", false, fmt.Errorf("failed to enable page events: %w", err)
	}

	listenCtx, cancel := context.WithTimeout(ctx, p.cfg.Wait)
	defer cancel()

	var (
		mu      sync.Mutex
		fired   bool
		message string
	)

	wait := page.Context(listenCtx).EachEvent(func(e *proto.PageJavascriptDialogOpening) {
		mu.Lock()
		if !fired {
			fired = true
			message = e.Message
		}
		mu.Unlock()

		// A pending dialog blocks the renderer, so accept it off the event loop.
		go func() {
			_ = proto.PageHandleJavaScriptDialog{Accept: true}.Call(page)
		}()
		cancel()
	})

	done := make(chan struct{})
	go func() {
		wait()
		close(done)
	}()

	if err := page.Context(listenCtx).SetDocumentContent(html); err != nil && listenCtx.Err() == nil {
		cancel()
		<-done
		return "", false, fmt.Errorf("failed to set document: %w", err)
	}

	<-listenCtx.Done()
	<-done

	if ctx.Err() != nil {
		return "", false, ctx.Err()
	}

	mu.Lock()
	defer mu.Unlock()
	return message, fired, nil
}

func (p *BrowserProvider) connect() (*rod.Browser, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.browser != nil {
		return p.browser, nil
	}

	l := launcher.New().Headless(true).Set("disable-gpu")
	if p.cfg.BrowserPath != "" {
		l = l.Bin(p.cfg.BrowserPath)
	}
	controlURL, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}

	browser := rod.New().ControlURL(controlURL)
	if err := browser.Connect(); err != nil {
		return nil, fmt.Errorf("failed to connect to browser: %w", err)
	}

	p.browser = browser
	p.log.Info("headless browser started")
	return browser, nil
}

// reset drops a browser that stopped accepting pages
func (p *BrowserProvider) reset() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.browser != nil {
		_ = p.browser.Close()
		p.browser = nil
	}
}

// Close shuts the browser down
func (p *BrowserProvider) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.browser == nil {
		return nil
	}
	err := p.browser.Close()
	p.browser = nil
	return err
}
