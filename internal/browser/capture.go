package browser

import (
	"context"
	"fmt"

	"github.com/chromedp/chromedp"
)

// hintsJS enumerates candidate logo URLs from the DOM: favicons, og:image,
// anything whose attributes mention "logo", and images inside header/nav
// regions. URLs are resolved against the document base before returning.
const hintsJS = `(() => {
	const hints = [];
	const push = (u) => {
		if (!u) return;
		try { hints.push(new URL(u, document.baseURI).href); } catch (e) {}
	};

	document.querySelectorAll('link[rel*="icon"]').forEach(l => push(l.getAttribute('href')));
	const og = document.querySelector('meta[property="og:image"]');
	if (og) push(og.getAttribute('content'));

	document.querySelectorAll('img, svg image').forEach(el => {
		const attrs = [el.getAttribute('src'), el.getAttribute('class'), el.id, el.getAttribute('alt')]
			.filter(Boolean).join(' ').toLowerCase();
		if (attrs.includes('logo')) push(el.getAttribute('src') || el.getAttribute('href'));
	});

	document.querySelectorAll('header img, nav img').forEach(img => push(img.getAttribute('src')));

	return [...new Set(hints)].slice(0, %d);
})()`

// CapturePage takes a full-page screenshot and collects DOM logo hints.
func (e *Engine) CapturePage(ctx context.Context, pageURL string) (*Capture, error) {
	tctx, cancel, err := e.tab(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRenderFailed, err)
	}
	defer cancel()

	var (
		shot  []byte
		hints []string
	)
	err = chromedp.Run(tctx,
		chromedp.Navigate(pageURL),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.Sleep(e.config.SettleDelay),
		chromedp.FullScreenshot(&shot, 80),
		chromedp.Evaluate(fmt.Sprintf(hintsJS, e.config.MaxLogoHints), &hints),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrRenderFailed, pageURL, err)
	}

	return &Capture{Screenshot: shot, Hints: hints}, nil
}
