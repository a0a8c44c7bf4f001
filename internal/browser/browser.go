// Package browser drives a shared headless Chrome instance. The browser
// process is lazily started and reused across renders to amortize startup
// cost; every render gets its own tab, disposed afterwards to bound memory.
package browser

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/chromedp/chromedp"

	"github.com/eventrake/eventrake/pkg/models"
)

// ErrRenderFailed wraps navigation, DNS, and timeout failures. No partial
// text is ever returned alongside it.
var ErrRenderFailed = errors.New("page render failed")

// Config holds browser engine configuration.
type Config struct {
	ExecPath     string        // Chrome binary; empty means chromedp's default lookup
	NavTimeout   time.Duration // hard cap on one render, navigation included
	ScrollBudget time.Duration // hard cap on the lazy-load scroll phase
	ScrollStep   time.Duration // pause between scroll increments
	SettleDelay  time.Duration // wait after scrolling for final renders
	MaxLogoHints int
}

// RenderedPage is the outcome of a successful render.
type RenderedPage struct {
	Text  string
	Links []models.Link
	Hash  string
}

// Capture is a full-page screenshot plus DOM logo hints.
type Capture struct {
	Screenshot []byte
	Hints      []string
}

// Renderer is the rendering surface the pipeline consumes.
type Renderer interface {
	Render(ctx context.Context, pageURL string) (*RenderedPage, error)
}

// Capturer is the screenshot surface the logo detector consumes.
type Capturer interface {
	CapturePage(ctx context.Context, pageURL string) (*Capture, error)
}

// Engine is the shared browser handle. Safe for sequential reuse; renders
// from concurrent goroutines each get their own tab.
type Engine struct {
	config Config

	mu            sync.Mutex
	started       bool
	allocCancel   context.CancelFunc
	browserCtx    context.Context
	browserCancel context.CancelFunc
}

// NewEngine creates an Engine. The browser process starts on first use.
func NewEngine(config Config) *Engine {
	if config.NavTimeout == 0 {
		config.NavTimeout = 60 * time.Second
	}
	if config.ScrollBudget == 0 {
		config.ScrollBudget = 15 * time.Second
	}
	if config.ScrollStep == 0 {
		config.ScrollStep = 400 * time.Millisecond
	}
	if config.SettleDelay == 0 {
		config.SettleDelay = 2 * time.Second
	}
	if config.MaxLogoHints == 0 {
		config.MaxLogoHints = 12
	}
	return &Engine{config: config}
}

// acquire lazily starts the shared browser and returns its context.
func (e *Engine) acquire() (context.Context, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.started {
		return e.browserCtx, nil
	}

	opts := append([]chromedp.ExecAllocatorOption{}, chromedp.DefaultExecAllocatorOptions[:]...)
	if e.config.ExecPath != "" {
		opts = append(opts, chromedp.ExecPath(e.config.ExecPath))
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), opts...)
	browserCtx, browserCancel := chromedp.NewContext(allocCtx)

	// Run with no actions starts the browser process.
	if err := chromedp.Run(browserCtx); err != nil {
		browserCancel()
		allocCancel()
		return nil, fmt.Errorf("failed to start browser: %w", err)
	}

	e.allocCancel = allocCancel
	e.browserCtx = browserCtx
	e.browserCancel = browserCancel
	e.started = true
	return e.browserCtx, nil
}

// Shutdown stops the browser process. The engine can be reused afterwards;
// the next render starts a fresh browser.
func (e *Engine) Shutdown() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.started {
		return
	}
	e.browserCancel()
	e.allocCancel()
	e.started = false
}

// tab opens a fresh tab bounded by the navigation timeout and wired to the
// caller's context.
func (e *Engine) tab(ctx context.Context) (context.Context, context.CancelFunc, error) {
	base, err := e.acquire()
	if err != nil {
		return nil, nil, err
	}

	tabCtx, tabCancel := chromedp.NewContext(base)
	timed, timedCancel := context.WithTimeout(tabCtx, e.config.NavTimeout)

	stop := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			tabCancel()
		case <-stop:
		}
	}()

	cancel := func() {
		close(stop)
		timedCancel()
		tabCancel()
	}
	return timed, cancel, nil
}

const linksJS = `Array.from(document.querySelectorAll('a[href]'))
	.map(a => ({text: (a.innerText || '').trim(), href: a.href}))
	.filter(l => l.text && l.href)`

// Render navigates to pageURL, scrolls to trigger lazy content, and returns
// the page's visible text, outbound links, and content fingerprint.
func (e *Engine) Render(ctx context.Context, pageURL string) (*RenderedPage, error) {
	tctx, cancel, err := e.tab(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRenderFailed, err)
	}
	defer cancel()

	var (
		text  string
		links []models.Link
	)
	err = chromedp.Run(tctx,
		chromedp.Navigate(pageURL),
		chromedp.WaitReady("body", chromedp.ByQuery),
		e.scrollToBottom(),
		chromedp.Sleep(e.config.SettleDelay),
		chromedp.Text("body", &text, chromedp.ByQuery),
		chromedp.Evaluate(linksJS, &links),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrRenderFailed, pageURL, err)
	}

	return &RenderedPage{
		Text:  text,
		Links: dedupeLinks(links),
		Hash:  models.Fingerprint(text),
	}, nil
}

// scrollToBottom scrolls incrementally until the page stops growing or the
// scroll budget runs out, whichever comes first. Infinite lazy-load pages
// are cut off at the budget.
func (e *Engine) scrollToBottom() chromedp.Action {
	return chromedp.ActionFunc(func(ctx context.Context) error {
		deadline := time.Now().Add(e.config.ScrollBudget)
		var lastHeight float64

		for time.Now().Before(deadline) {
			var height float64
			err := chromedp.Evaluate(`window.scrollBy(0, window.innerHeight); document.body.scrollHeight;`, &height).Do(ctx)
			if err != nil {
				return err
			}

			if height == lastHeight {
				var atBottom bool
				if err := chromedp.Evaluate(`(window.innerHeight + window.scrollY) >= document.body.scrollHeight - 2`, &atBottom).Do(ctx); err != nil {
					return err
				}
				if atBottom {
					return nil
				}
			}
			lastHeight = height

			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(e.config.ScrollStep):
			}
		}
		return nil
	})
}

func dedupeLinks(links []models.Link) []models.Link {
	seen := make(map[string]bool, len(links))
	out := make([]models.Link, 0, len(links))
	for _, l := range links {
		key := l.Href + "|" + l.Text
		if l.Text == "" || l.Href == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, l)
	}
	return out
}
