package logo

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/eventrake/eventrake/internal/browser"
)

type fakeCapturer struct {
	capture *browser.Capture
	err     error
}

func (f *fakeCapturer) CapturePage(context.Context, string) (*browser.Capture, error) {
	return f.capture, f.err
}

type fakeVision struct {
	answer     string
	err        error
	lastPrompt string
}

func (f *fakeVision) CompleteVision(_ context.Context, prompt string, _ []byte, _ *uuid.UUID) (string, error) {
	f.lastPrompt = prompt
	return f.answer, f.err
}

func capture(hints ...string) *browser.Capture {
	return &browser.Capture{Screenshot: []byte{1, 2, 3}, Hints: hints}
}

func TestDetectLogo_ModelPicksURL(t *testing.T) {
	vision := &fakeVision{answer: "https://x.test/assets/logo.png\n"}
	d := New(&fakeCapturer{capture: capture("https://x.test/favicon.ico", "https://x.test/assets/logo.png")}, vision, nil)

	got, err := d.DetectLogo(t.Context(), "https://x.test/", nil)
	if err != nil {
		t.Fatalf("DetectLogo() error = %v", err)
	}
	if got != "https://x.test/assets/logo.png" {
		t.Errorf("logo = %q", got)
	}
	if !strings.Contains(vision.lastPrompt, "1. https://x.test/favicon.ico") {
		t.Error("prompt should enumerate the hints")
	}
}

func TestDetectLogo_RelativeAnswerResolved(t *testing.T) {
	vision := &fakeVision{answer: "/img/logo.svg"}
	d := New(&fakeCapturer{capture: capture("/img/logo.svg")}, vision, nil)

	got, err := d.DetectLogo(t.Context(), "https://x.test/about", nil)
	if err != nil {
		t.Fatalf("DetectLogo() error = %v", err)
	}
	if got != "https://x.test/img/logo.svg" {
		t.Errorf("logo = %q, want absolute URL", got)
	}
}

func TestDetectLogo_SentinelFallsBackToFavicon(t *testing.T) {
	for _, answer := range []string{sentinelSVGEmbedded, sentinelNotFound} {
		vision := &fakeVision{answer: answer}
		d := New(&fakeCapturer{capture: capture("https://x.test/banner.jpg", "https://x.test/favicon.ico")}, vision, nil)

		got, err := d.DetectLogo(t.Context(), "https://x.test/", nil)
		if err != nil {
			t.Fatalf("DetectLogo() error = %v", err)
		}
		if got != "https://x.test/favicon.ico" {
			t.Errorf("answer %s: logo = %q, want favicon fallback", answer, got)
		}
	}
}

func TestDetectLogo_SentinelNoFaviconYieldsEmpty(t *testing.T) {
	vision := &fakeVision{answer: sentinelNotFound}
	d := New(&fakeCapturer{capture: capture("https://x.test/banner.jpg")}, vision, nil)

	got, err := d.DetectLogo(t.Context(), "https://x.test/", nil)
	if err != nil {
		t.Fatalf("DetectLogo() error = %v", err)
	}
	if got != "" {
		t.Errorf("logo = %q, want empty", got)
	}
}

func TestDetectLogo_ProseAnswerFallsBack(t *testing.T) {
	vision := &fakeVision{answer: "I believe the second image is the logo"}
	d := New(&fakeCapturer{capture: capture("https://x.test/favicon.ico")}, vision, nil)

	got, err := d.DetectLogo(t.Context(), "https://x.test/", nil)
	if err != nil {
		t.Fatalf("DetectLogo() error = %v", err)
	}
	if got != "https://x.test/favicon.ico" {
		t.Errorf("logo = %q, prose answers should fall back to favicon", got)
	}
}

type fakeArchiver struct {
	shots [][]byte
	err   error
}

func (f *fakeArchiver) PutScreenshot(_ context.Context, _ string, png []byte) (string, error) {
	f.shots = append(f.shots, png)
	return "screenshots/test", f.err
}

func TestDetectLogo_ArchivesScreenshot(t *testing.T) {
	archiver := &fakeArchiver{}
	vision := &fakeVision{answer: "https://x.test/logo.png"}
	d := New(&fakeCapturer{capture: capture("https://x.test/logo.png")}, vision, archiver)

	if _, err := d.DetectLogo(t.Context(), "https://x.test/", nil); err != nil {
		t.Fatalf("DetectLogo() error = %v", err)
	}
	if len(archiver.shots) != 1 {
		t.Fatalf("archived %d screenshots, want 1", len(archiver.shots))
	}
}

func TestDetectLogo_ArchiveFailureIsNonFatal(t *testing.T) {
	archiver := &fakeArchiver{err: errors.New("bucket gone")}
	vision := &fakeVision{answer: "https://x.test/logo.png"}
	d := New(&fakeCapturer{capture: capture("https://x.test/logo.png")}, vision, archiver)

	got, err := d.DetectLogo(t.Context(), "https://x.test/", nil)
	if err != nil {
		t.Fatalf("DetectLogo() error = %v", err)
	}
	if got != "https://x.test/logo.png" {
		t.Errorf("logo = %q", got)
	}
}

func TestDetectLogo_CaptureError(t *testing.T) {
	d := New(&fakeCapturer{err: errors.New("browser crashed")}, &fakeVision{}, nil)
	if _, err := d.DetectLogo(t.Context(), "https://x.test/", nil); err == nil {
		t.Error("capture failure should surface as an error for the caller to log")
	}
}
