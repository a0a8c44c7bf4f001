// Package pipeline owns the per-source scrape control flow: locking,
// dispatch to the Instagram or generic path, change gating, enrichment,
// idempotent persistence, and optional logo detection. It is the only
// component that reads or writes source state.
package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/eventrake/eventrake/internal/browser"
	"github.com/eventrake/eventrake/internal/dates"
	"github.com/eventrake/eventrake/internal/instagram"
	"github.com/eventrake/eventrake/internal/store"
	"github.com/eventrake/eventrake/pkg/models"
)

// ErrAlreadyScraping reports lock contention on a source. It is surfaced in
// the Result, not raised.
var ErrAlreadyScraping = errors.New("scrape already in progress")

// Extractor turns rendered page content into candidate events.
type Extractor interface {
	Extract(ctx context.Context, pageText string, links []models.Link, filterInstructions string, currentDate time.Time, sourceID *uuid.UUID) ([]models.ExtractedEvent, error)
}

// Enricher fetches an event's detail page. A nil return means no
// enrichment.
type Enricher interface {
	FetchDetails(ctx context.Context, eventURL string) *models.DetailData
}

// InstagramExtractor runs the Instagram fallback chain.
type InstagramExtractor interface {
	ExtractPost(ctx context.Context, postURL string) (*instagram.Post, error)
}

// LogoDetector finds a source's logo. Optional.
type LogoDetector interface {
	DetectLogo(ctx context.Context, pageURL string, sourceID *uuid.UUID) (string, error)
}

// Archiver stores raw scrape snapshots. Optional.
type Archiver interface {
	PutPageText(ctx context.Context, sourceURL, text string) (string, error)
}

// Config holds orchestration configuration.
type Config struct {
	LockStaleAfter time.Duration // lock older than this is reclaimed
	BatchDelay     time.Duration // pause between sources in a batch run
}

// Result is the terminal shape of one source's scrape.
type Result struct {
	Success     bool   `json:"success"`
	EventsFound int    `json:"eventsFound"`
	Skipped     bool   `json:"skipped"`
	Error       string `json:"error,omitempty"`
}

// Orchestrator coordinates one scrape at a time per source.
type Orchestrator struct {
	store     store.Store
	renderer  browser.Renderer
	extractor Extractor
	enricher  Enricher
	instagram InstagramExtractor
	logos     LogoDetector
	archiver  Archiver
	config    Config

	now func() time.Time
}

// New creates an Orchestrator. logos and archiver may be nil; the
// corresponding steps are then skipped.
func New(st store.Store, renderer browser.Renderer, extractor Extractor, enricher Enricher, ig InstagramExtractor, logos LogoDetector, archiver Archiver, config Config) *Orchestrator {
	if config.LockStaleAfter == 0 {
		config.LockStaleAfter = 10 * time.Minute
	}
	if config.BatchDelay == 0 {
		config.BatchDelay = 5 * time.Second
	}
	return &Orchestrator{
		store:     st,
		renderer:  renderer,
		extractor: extractor,
		enricher:  enricher,
		instagram: ig,
		logos:     logos,
		archiver:  archiver,
		config:    config,
		now:       time.Now,
	}
}

func failure(err error) Result {
	return Result{Success: false, Error: err.Error()}
}

// ScrapeSource runs one source through the pipeline. The per-source lock is
// acquired up front and released on every exit path.
func (o *Orchestrator) ScrapeSource(ctx context.Context, sourceID uuid.UUID, force bool) Result {
	source, err := o.store.GetSourceByID(ctx, sourceID)
	if err != nil {
		return failure(err)
	}

	now := o.now().UTC()
	if source.Locked(now, o.config.LockStaleAfter) {
		slog.Info("source is already being scraped", "source_id", sourceID, "locked_at", source.ScrapingStartedAt)
		return failure(ErrAlreadyScraping)
	}

	// Known gap: this read-then-write is not atomic. Two callers racing
	// between the staleness check and this update can both proceed.
	if err := o.store.UpdateSource(ctx, sourceID, map[string]any{"scraping_started_at": now}); err != nil {
		return failure(err)
	}
	defer func() {
		release := context.WithoutCancel(ctx)
		if err := o.store.UpdateSource(release, sourceID, map[string]any{"scraping_started_at": nil}); err != nil {
			slog.Error("failed to release scrape lock", "source_id", sourceID, "error", err)
		}
	}()

	var result Result
	if instagram.IsPostURL(source.URL) {
		result = o.scrapeInstagram(ctx, source, now)
	} else {
		result = o.scrapeGeneric(ctx, source, force, now)
		if result.Success && o.logos != nil && (source.LogoURL == nil || *source.LogoURL == "") {
			o.detectLogo(ctx, source)
		}
	}

	slog.Info("scrape finished", "source_id", sourceID, "success", result.Success,
		"events", result.EventsFound, "skipped", result.Skipped, "error", result.Error)
	return result
}

// scrapeGeneric is the render → gate → extract → enrich → persist path.
func (o *Orchestrator) scrapeGeneric(ctx context.Context, source *models.Source, force bool, now time.Time) Result {
	page, err := o.renderer.Render(ctx, source.URL)
	if err != nil {
		slog.Warn("render failed", "source_id", source.ID, "url", source.URL, "error", err)
		return failure(err)
	}

	if o.archiver != nil {
		if key, err := o.archiver.PutPageText(ctx, source.URL, page.Text); err != nil {
			slog.Warn("snapshot archive failed", "source_id", source.ID, "error", err)
		} else {
			slog.Debug("archived page text", "source_id", source.ID, "key", key)
		}
	}

	if !ShouldExtract(page.Hash, source.LastContentHash, force) {
		// The attempt is still recorded; the stored hash stays untouched.
		if err := o.store.UpdateSource(ctx, source.ID, map[string]any{"last_scraped_at": now}); err != nil {
			return failure(err)
		}
		slog.Info("content unchanged, skipping extraction", "source_id", source.ID)
		return Result{Success: true, Skipped: true}
	}

	extracted, err := o.extractor.Extract(ctx, page.Text, page.Links, source.FilterInstructions, now, &source.ID)
	if err != nil {
		slog.Warn("extraction failed", "source_id", source.ID, "error", err)
		return failure(err)
	}

	count := 0
	for _, ev := range extracted {
		if err := o.persistExtracted(ctx, source, ev, now); err != nil {
			slog.Warn("failed to persist event", "source_id", source.ID, "title", ev.Title, "error", err)
			continue
		}
		count++
	}

	fields := map[string]any{
		"last_scraped_at":   now,
		"last_content_hash": page.Hash,
	}
	if err := o.store.UpdateSource(ctx, source.ID, fields); err != nil {
		return failure(err)
	}

	return Result{Success: true, EventsFound: count}
}

// scrapeInstagram runs the adapter chain and persists its single
// pseudo-event. Chain exhaustion fails the source's run.
func (o *Orchestrator) scrapeInstagram(ctx context.Context, source *models.Source, now time.Time) Result {
	post, err := o.instagram.ExtractPost(ctx, source.URL)
	if err != nil {
		slog.Warn("instagram extraction failed", "source_id", source.ID, "url", source.URL, "error", err)
		return failure(err)
	}

	ev := post.Event(source.URL, now)
	if err := o.persistExtracted(ctx, source, ev, now); err != nil {
		return failure(err)
	}

	if err := o.store.UpdateSource(ctx, source.ID, map[string]any{"last_scraped_at": now}); err != nil {
		return failure(err)
	}

	return Result{Success: true, EventsFound: 1}
}

// persistExtracted maps one extracted event into the store, enriching it
// from its detail page first when it has one.
func (o *Orchestrator) persistExtracted(ctx context.Context, source *models.Source, ev models.ExtractedEvent, now time.Time) error {
	start := dates.Parse(ev.StartDate)
	if start == nil {
		// Validation upstream makes this unreachable for extractor output;
		// guard anyway since ExtractedEvent carries no guarantees.
		slog.Debug("dropping event with unparseable start date", "title", ev.Title, "start_date", ev.StartDate)
		return nil
	}

	event := &models.Event{
		SourceID:    source.ID,
		Title:       ev.Title,
		StartDate:   *start,
		EndDate:     dates.Parse(ev.EndDate),
		Location:    ev.Location,
		Description: ev.Description,
		URL:         ev.URL,
		ImageURL:    ev.ImageURL,
		RawData:     ev.Raw,
		ScrapedAt:   now,
	}

	if o.enricher != nil && ev.URL != "" && !instagram.IsPostURL(ev.URL) {
		if details := o.enricher.FetchDetails(ctx, ev.URL); details != nil {
			applyEnrichment(event, details)
		}
	}

	return o.store.UpsertEvent(ctx, event)
}

// applyEnrichment merges detail-page data into the event. Detail values
// only fill gaps, except dates: structured schema dates are authoritative
// over the model's free-text inference and always win.
func applyEnrichment(event *models.Event, details *models.DetailData) {
	if event.Description == "" && details.Description != "" {
		event.Description = details.Description
	}
	if event.ImageURL == "" && details.ImageURL != "" {
		event.ImageURL = details.ImageURL
	}
	if event.Location == "" && details.Venue != "" {
		event.Location = details.Venue
	}
	if details.StartDate != nil {
		event.StartDate = *details.StartDate
	}
	if details.EndDate != nil {
		event.EndDate = details.EndDate
	}
}

// detectLogo is best-effort; failures are logged and swallowed.
func (o *Orchestrator) detectLogo(ctx context.Context, source *models.Source) {
	logoURL, err := o.logos.DetectLogo(ctx, source.URL, &source.ID)
	if err != nil {
		slog.Warn("logo detection failed", "source_id", source.ID, "error", err)
		return
	}
	if logoURL == "" {
		return
	}
	if err := o.store.UpdateSource(ctx, source.ID, map[string]any{"logo_url": logoURL}); err != nil {
		slog.Warn("failed to persist logo", "source_id", source.ID, "error", err)
	}
}

// BatchSummary tallies one ScrapeAll run.
type BatchSummary struct {
	Scraped int
	Skipped int
	Failed  int
}

// ScrapeAll iterates the enabled sources one at a time with a fixed delay
// between them, skipping sources whose interval has not elapsed. Individual
// failures are tallied, logged, and do not stop the batch.
func (o *Orchestrator) ScrapeAll(ctx context.Context, force bool) (BatchSummary, error) {
	sources, err := o.store.GetEnabledSources(ctx)
	if err != nil {
		return BatchSummary{}, err
	}

	var summary BatchSummary
	for i, source := range sources {
		if !force && !source.DueAt(o.now().UTC()) {
			slog.Info("interval not yet elapsed, skipping", "source_id", source.ID, "last_scraped_at", source.LastScrapedAt)
			summary.Skipped++
			continue
		}

		result := o.ScrapeSource(ctx, source.ID, force)
		switch {
		case result.Skipped:
			summary.Skipped++
		case result.Success:
			summary.Scraped++
		default:
			summary.Failed++
		}

		if i < len(sources)-1 {
			select {
			case <-ctx.Done():
				return summary, ctx.Err()
			case <-time.After(o.config.BatchDelay):
			}
		}
	}

	return summary, nil
}
