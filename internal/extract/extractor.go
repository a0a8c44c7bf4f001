// Package extract turns rendered page text into candidate events by way of
// a language model. Model output is treated as an untrusted payload: every
// item is validated before it becomes an ExtractedEvent.
package extract

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/eventrake/eventrake/internal/dates"
	"github.com/eventrake/eventrake/pkg/models"
)

// Completer is the model call the extractor depends on.
type Completer interface {
	Complete(ctx context.Context, prompt string, sourceID *uuid.UUID) (string, error)
}

// Config bounds what is sent to the model.
type Config struct {
	MaxTextChars int // page text budget
	MaxLinks     int // link list budget
}

// Extractor builds prompts and validates model output.
type Extractor struct {
	llm    Completer
	config Config
}

// New creates a new Extractor.
func New(llm Completer, config Config) *Extractor {
	if config.MaxTextChars == 0 {
		config.MaxTextChars = 15000
	}
	if config.MaxLinks == 0 {
		config.MaxLinks = 50
	}
	return &Extractor{llm: llm, config: config}
}

// Extract asks the model for the events visible in pageText. Malformed
// items are dropped silently; a response that is not JSON at all yields an
// empty list, never an error. Only a failed model call is an error.
func (e *Extractor) Extract(ctx context.Context, pageText string, links []models.Link, filterInstructions string, currentDate time.Time, sourceID *uuid.UUID) ([]models.ExtractedEvent, error) {
	if len(pageText) > e.config.MaxTextChars {
		cut := e.config.MaxTextChars
		for cut > 0 && !utf8.RuneStart(pageText[cut]) {
			cut--
		}
		pageText = pageText[:cut]
	}
	if len(links) > e.config.MaxLinks {
		links = links[:e.config.MaxLinks]
	}

	prompt := buildPrompt(pageText, links, filterInstructions, currentDate)

	raw, err := e.llm.Complete(ctx, prompt, sourceID)
	if err != nil {
		return nil, err
	}

	return parseEvents(raw), nil
}

// parseEvents decodes the model response into validated events.
func parseEvents(raw string) []models.ExtractedEvent {
	cleaned := stripCodeFence(raw)

	var items []json.RawMessage
	if err := json.Unmarshal([]byte(cleaned), &items); err != nil {
		slog.Warn("model response is not a JSON array", "error", err, "response", raw)
		return []models.ExtractedEvent{}
	}

	events := make([]models.ExtractedEvent, 0, len(items))
	for _, item := range items {
		var ev models.ExtractedEvent
		if err := json.Unmarshal(item, &ev); err != nil {
			slog.Debug("dropping malformed event item", "error", err)
			continue
		}
		if strings.TrimSpace(ev.Title) == "" {
			slog.Debug("dropping event without title")
			continue
		}
		if !dates.ValidStart(ev.StartDate) {
			slog.Debug("dropping event with invalid start date", "title", ev.Title, "start_date", ev.StartDate)
			continue
		}
		ev.Title = strings.TrimSpace(ev.Title)
		ev.Raw = item
		events = append(events, ev)
	}

	return events
}

// stripCodeFence removes an optional ```json ... ``` wrapper around the
// model response.
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
