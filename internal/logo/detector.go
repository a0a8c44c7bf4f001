// Package logo identifies an organization's logo on its page using a
// full-page screenshot, DOM hints, and a vision-capable model. Detection is
// best-effort; callers must never fail a scrape over it.
package logo

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/google/uuid"

	"github.com/eventrake/eventrake/internal/browser"
)

// Model response sentinels. The model must answer with exactly one line:
// a URL from the hint list, or one of these.
const (
	sentinelSVGEmbedded = "SVG_EMBEDDED"
	sentinelNotFound    = "NOT_FOUND"
)

// VisionCompleter is the model call the detector depends on.
type VisionCompleter interface {
	CompleteVision(ctx context.Context, prompt string, screenshot []byte, sourceID *uuid.UUID) (string, error)
}

// Archiver stores the screenshots sent to the model. Optional.
type Archiver interface {
	PutScreenshot(ctx context.Context, sourceURL string, png []byte) (string, error)
}

// Detector runs logo detection for a page.
type Detector struct {
	capturer browser.Capturer
	llm      VisionCompleter
	archiver Archiver
}

// New creates a new Detector. archiver may be nil; screenshots are then not
// retained.
func New(capturer browser.Capturer, llm VisionCompleter, archiver Archiver) *Detector {
	return &Detector{capturer: capturer, llm: llm, archiver: archiver}
}

// DetectLogo renders pageURL, asks the vision model to pick the logo from
// the enumerated hints, and returns its absolute URL. Returns "" when no
// confident match exists and no favicon fallback is available.
func (d *Detector) DetectLogo(ctx context.Context, pageURL string, sourceID *uuid.UUID) (string, error) {
	capture, err := d.capturer.CapturePage(ctx, pageURL)
	if err != nil {
		return "", fmt.Errorf("logo capture: %w", err)
	}

	if d.archiver != nil {
		if _, err := d.archiver.PutScreenshot(ctx, pageURL, capture.Screenshot); err != nil {
			slog.Warn("failed to archive logo screenshot", "url", pageURL, "error", err)
		}
	}

	answer, err := d.llm.CompleteVision(ctx, buildPrompt(capture.Hints), capture.Screenshot, sourceID)
	if err != nil {
		return "", fmt.Errorf("logo model call: %w", err)
	}

	line := firstLine(answer)
	switch line {
	case sentinelSVGEmbedded, sentinelNotFound:
		slog.Debug("logo model returned sentinel", "url", pageURL, "answer", line)
		return resolveURL(pageURL, faviconFallback(capture.Hints)), nil
	case "":
		return resolveURL(pageURL, faviconFallback(capture.Hints)), nil
	}

	if !looksLikeURL(line, capture.Hints) {
		slog.Debug("logo model returned a non-URL", "url", pageURL, "answer", line)
		return resolveURL(pageURL, faviconFallback(capture.Hints)), nil
	}
	return resolveURL(pageURL, line), nil
}

// looksLikeURL accepts hint-list members, absolute http(s) URLs, and
// root-relative paths; anything else is treated as a failed pick.
func looksLikeURL(line string, hints []string) bool {
	for _, h := range hints {
		if line == h {
			return true
		}
	}
	if strings.HasPrefix(line, "http://") || strings.HasPrefix(line, "https://") {
		return true
	}
	return strings.HasPrefix(line, "/") && !strings.ContainsAny(line, " \t")
}

func buildPrompt(hints []string) string {
	var b strings.Builder
	b.WriteString("The screenshot shows an organization's web page. Identify the organization's logo.\n\n")
	b.WriteString("Candidate image URLs found on the page:\n")
	for i, h := range hints {
		fmt.Fprintf(&b, "%d. %s\n", i+1, h)
	}
	b.WriteString("\nRespond with exactly one line and nothing else:\n")
	b.WriteString("- the single URL from the list that is the logo, or\n")
	fmt.Fprintf(&b, "- %s if the logo is an inline vector graphic with no URL, or\n", sentinelSVGEmbedded)
	fmt.Fprintf(&b, "- %s if you cannot identify the logo with confidence.\n", sentinelNotFound)
	return b.String()
}

func firstLine(s string) string {
	line, _, _ := strings.Cut(strings.TrimSpace(s), "\n")
	return strings.TrimSpace(line)
}

// faviconFallback picks the first favicon-looking hint.
func faviconFallback(hints []string) string {
	for _, h := range hints {
		lower := strings.ToLower(h)
		if strings.Contains(lower, "favicon") || strings.Contains(lower, "icon") {
			return h
		}
	}
	return ""
}

// resolveURL makes candidate absolute against the page URL. Empty in,
// empty out.
func resolveURL(pageURL, candidate string) string {
	if candidate == "" {
		return ""
	}
	base, err := url.Parse(pageURL)
	if err != nil {
		return candidate
	}
	ref, err := url.Parse(candidate)
	if err != nil {
		return candidate
	}
	return base.ResolveReference(ref).String()
}
