package extract

import (
	"context"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/eventrake/eventrake/pkg/models"
)

type fakeCompleter struct {
	response   string
	err        error
	lastPrompt string
}

func (f *fakeCompleter) Complete(_ context.Context, prompt string, _ *uuid.UUID) (string, error) {
	f.lastPrompt = prompt
	return f.response, f.err
}

func TestExtract_ValidEvents(t *testing.T) {
	llm := &fakeCompleter{response: `[
		{"title": "Open Mic Night", "startDate": "2026-04-18", "location": "The Cellar"},
		{"title": "Jazz Brunch", "startDate": "2026-04-19T11:00:00", "imageUrl": "https://x.test/jazz.jpg"}
	]`}

	e := New(llm, Config{})
	events, err := e.Extract(t.Context(), "page text", nil, "", time.Now(), nil)
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("got %d events, want 2", len(events))
	}
	if events[0].Title != "Open Mic Night" || events[0].Location != "The Cellar" {
		t.Errorf("first event = %+v", events[0])
	}
	if len(events[1].Raw) == 0 {
		t.Error("raw item payload should be retained")
	}
}

func TestExtract_CodeFencedResponse(t *testing.T) {
	llm := &fakeCompleter{response: "```json\n[{\"title\": \"Gig\", \"startDate\": \"2026-05-01\"}]\n```"}

	e := New(llm, Config{})
	events, err := e.Extract(t.Context(), "text", nil, "", time.Now(), nil)
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("got %d events, want 1", len(events))
	}
}

func TestExtract_NotJSONYieldsEmpty(t *testing.T) {
	llm := &fakeCompleter{response: "not json at all"}

	e := New(llm, Config{})
	events, err := e.Extract(t.Context(), "text", nil, "", time.Now(), nil)
	if err != nil {
		t.Fatalf("non-JSON response must not error, got %v", err)
	}
	if len(events) != 0 {
		t.Errorf("got %d events, want 0", len(events))
	}
}

func TestExtract_DropsInvalidItems(t *testing.T) {
	llm := &fakeCompleter{response: `[
		{"title": "Good", "startDate": "2026-04-18"},
		{"title": "", "startDate": "2026-04-18"},
		{"title": "No date"},
		{"title": "Impossible date", "startDate": "2099-13-40"},
		{"title": "Sloppy date", "startDate": "sometime in June"}
	]`}

	e := New(llm, Config{})
	events, err := e.Extract(t.Context(), "text", nil, "", time.Now(), nil)
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("got %d events, want 1 (only the valid item)", len(events))
	}
	if events[0].Title != "Good" {
		t.Errorf("kept the wrong item: %+v", events[0])
	}
}

func TestExtract_TruncatesInputs(t *testing.T) {
	llm := &fakeCompleter{response: "[]"}
	e := New(llm, Config{MaxTextChars: 100, MaxLinks: 2})

	longText := strings.Repeat("x", 5000)
	links := []models.Link{
		{Text: "a", Href: "https://x.test/a"},
		{Text: "b", Href: "https://x.test/b"},
		{Text: "c", Href: "https://x.test/c"},
	}

	if _, err := e.Extract(t.Context(), longText, links, "", time.Now(), nil); err != nil {
		t.Fatalf("Extract() error = %v", err)
	}

	if strings.Contains(llm.lastPrompt, strings.Repeat("x", 101)) {
		t.Error("page text should be truncated to the character budget")
	}
	if strings.Contains(llm.lastPrompt, "/c") {
		t.Error("links should be capped to the link budget")
	}
}

func TestExtract_TruncationKeepsValidUTF8(t *testing.T) {
	llm := &fakeCompleter{response: "[]"}
	// 101 bytes of page text: "xx" plus 33 three-byte runes, so the 100-byte
	// budget falls in the middle of the final rune.
	e := New(llm, Config{MaxTextChars: 100, MaxLinks: 2})
	longText := "xx" + strings.Repeat("€", 33)

	if _, err := e.Extract(t.Context(), longText, nil, "", time.Now(), nil); err != nil {
		t.Fatalf("Extract() error = %v", err)
	}

	if !utf8.ValidString(llm.lastPrompt) {
		t.Error("prompt contains a split rune after truncation")
	}
	if strings.Contains(llm.lastPrompt, "�") {
		t.Error("prompt should not carry replacement characters")
	}
}

func TestExtract_PromptCarriesFilterAndDate(t *testing.T) {
	llm := &fakeCompleter{response: "[]"}
	e := New(llm, Config{})

	current := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)
	_, err := e.Extract(t.Context(), "text", nil, "only concerts, skip workshops", current, nil)
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}

	if !strings.Contains(llm.lastPrompt, "only concerts, skip workshops") {
		t.Error("prompt should carry the source filter instructions")
	}
	if !strings.Contains(llm.lastPrompt, "2026-04-01") {
		t.Error("prompt should carry the current date")
	}
}

func TestStripCodeFence(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"[]", "[]"},
		{"```json\n[]\n```", "[]"},
		{"```\n[]\n```", "[]"},
		{"  ```json\n[1]\n```  ", "[1]"},
	}
	for _, tt := range tests {
		if got := stripCodeFence(tt.in); got != tt.want {
			t.Errorf("stripCodeFence(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
