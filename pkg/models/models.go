package models

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Source is a configured listing page or Instagram profile/post to scrape.
type Source struct {
	ID                  uuid.UUID  `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	URL                 string     `gorm:"column:url;uniqueIndex" json:"url"`
	Enabled             bool       `gorm:"column:enabled" json:"enabled"`
	ScrapeIntervalHours int        `gorm:"column:scrape_interval_hours" json:"scrape_interval_hours"`
	FilterInstructions  string     `gorm:"column:filter_instructions" json:"filter_instructions,omitempty"`
	LastScrapedAt       *time.Time `gorm:"column:last_scraped_at" json:"last_scraped_at,omitempty"`
	LastContentHash     *string    `gorm:"column:last_content_hash" json:"last_content_hash,omitempty"`
	ScrapingStartedAt   *time.Time `gorm:"column:scraping_started_at" json:"scraping_started_at,omitempty"`
	LogoURL             *string    `gorm:"column:logo_url" json:"logo_url,omitempty"`
	Tags                string     `gorm:"column:tags" json:"tags,omitempty"` // consumed by the UI only
	City                string     `gorm:"column:city" json:"city,omitempty"` // consumed by the UI only
	CreatedAt           time.Time  `gorm:"column:created_at" json:"created_at"`
	UpdatedAt           time.Time  `gorm:"column:updated_at" json:"updated_at"`
}

func (Source) TableName() string {
	return "sources"
}

// Locked reports whether the source carries a scrape lock younger than
// staleAfter. Older locks are considered leaked and eligible for reclaim.
func (s *Source) Locked(now time.Time, staleAfter time.Duration) bool {
	if s.ScrapingStartedAt == nil {
		return false
	}
	return now.Sub(*s.ScrapingStartedAt) < staleAfter
}

// DueAt reports whether the source's scrape interval has elapsed.
func (s *Source) DueAt(now time.Time) bool {
	if s.LastScrapedAt == nil {
		return true
	}
	interval := time.Duration(s.ScrapeIntervalHours) * time.Hour
	if interval <= 0 {
		interval = 24 * time.Hour
	}
	return now.Sub(*s.LastScrapedAt) >= interval
}

// Event is a normalized, persisted occurrence extracted from a source.
// The triple (SourceID, Title, StartDate) is unique; re-extraction updates
// the existing row instead of creating a duplicate.
type Event struct {
	ID          uuid.UUID       `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	SourceID    uuid.UUID       `gorm:"column:source_id;type:uuid;uniqueIndex:uq_events_identity;constraint:OnDelete:CASCADE" json:"source_id"`
	Title       string          `gorm:"column:title;uniqueIndex:uq_events_identity" json:"title"`
	StartDate   time.Time       `gorm:"column:start_date;uniqueIndex:uq_events_identity" json:"start_date"`
	EndDate     *time.Time      `gorm:"column:end_date" json:"end_date,omitempty"`
	Location    string          `gorm:"column:location" json:"location,omitempty"`
	Description string          `gorm:"column:description" json:"description,omitempty"`
	URL         string          `gorm:"column:url" json:"url,omitempty"`
	ImageURL    string          `gorm:"column:image_url" json:"image_url,omitempty"`
	RawData     json.RawMessage `gorm:"column:raw_data;type:jsonb" json:"raw_data,omitempty"` // original extraction payload, kept for audit
	CreatedAt   time.Time       `gorm:"column:created_at" json:"created_at"`
	UpdatedAt   time.Time       `gorm:"column:updated_at" json:"updated_at"`
	ScrapedAt   time.Time       `gorm:"column:scraped_at" json:"scraped_at"`
}

func (Event) TableName() string {
	return "events"
}

// Link is an outbound anchor captured from a rendered page.
type Link struct {
	Text string `json:"text"`
	Href string `json:"href"`
}

// ExtractedEvent is the transient, unvalidated shape produced by the
// extractor and the Instagram adapter before it is mapped into an Event.
// It has no identity and is discarded once upserted.
type ExtractedEvent struct {
	Title       string          `json:"title"`
	StartDate   string          `json:"startDate"`
	EndDate     string          `json:"endDate,omitempty"`
	Location    string          `json:"location,omitempty"`
	Description string          `json:"description,omitempty"`
	URL         string          `json:"url,omitempty"`
	ImageURL    string          `json:"imageUrl,omitempty"`
	Raw         json.RawMessage `json:"-"`
}

// DetailData is what a detail-page fetch yields for enrichment. All fields
// are optional; nil times mean the page carried no parseable schema date.
type DetailData struct {
	ImageURL    string
	Description string
	Venue       string
	Price       string
	StartDate   *time.Time
	EndDate     *time.Time
	Schema      json.RawMessage
}

// UsageRecord is one append-only audit row per model invocation.
type UsageRecord struct {
	ID               uuid.UUID  `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	Model            string     `gorm:"column:model" json:"model"`
	PromptTokens     int        `gorm:"column:prompt_tokens" json:"prompt_tokens"`
	CompletionTokens int        `gorm:"column:completion_tokens" json:"completion_tokens"`
	Cost             float64    `gorm:"column:cost" json:"cost"`
	SourceID         *uuid.UUID `gorm:"column:source_id;type:uuid" json:"source_id,omitempty"`
	CreatedAt        time.Time  `gorm:"column:created_at" json:"created_at"`
}

func (UsageRecord) TableName() string {
	return "llm_usage"
}

// Fingerprint returns the content fingerprint of rendered page text, used
// purely for change detection.
func Fingerprint(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}
