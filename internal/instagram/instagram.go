// Package instagram extracts a single pseudo-event from an Instagram post
// or reel URL. None of Instagram's surfaces are a stable contract, so the
// adapter is a strict fallback chain: internal GraphQL, public oEmbed, the
// lightweight /embed/ page, and finally the canonical post page.
package instagram

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/eventrake/eventrake/pkg/models"
)

// ErrChainExhausted is returned when no tier produced a caption or image.
var ErrChainExhausted = errors.New("all instagram extraction tiers failed")

const (
	defaultGraphQLEndpoint = "https://www.instagram.com/graphql/query"
	defaultOEmbedEndpoint  = "https://api.instagram.com/oembed/"

	// docID versions Instagram's shortcode-media GraphQL query. It expires
	// periodically; treat it as a soft dependency, not a contract.
	defaultDocID = "8845758582119845"

	maxTitleLen = 120
)

// Config holds adapter configuration. The endpoints are overridable so
// tests can point the tiers at local servers.
type Config struct {
	Timeout         time.Duration
	UserAgent       string
	DocID           string
	GraphQLEndpoint string
	OEmbedEndpoint  string
}

// Adapter runs the extraction chain.
type Adapter struct {
	config Config
	client *http.Client
}

// New creates a new Adapter.
func New(config Config) *Adapter {
	if config.Timeout == 0 {
		config.Timeout = 15 * time.Second
	}
	if config.UserAgent == "" {
		config.UserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36"
	}
	if config.DocID == "" {
		config.DocID = defaultDocID
	}
	if config.GraphQLEndpoint == "" {
		config.GraphQLEndpoint = defaultGraphQLEndpoint
	}
	if config.OEmbedEndpoint == "" {
		config.OEmbedEndpoint = defaultOEmbedEndpoint
	}
	return &Adapter{
		config: config,
		client: &http.Client{Timeout: config.Timeout},
	}
}

// Post is the uniform result shape every tier normalizes into.
type Post struct {
	Shortcode      string          `json:"shortcode"`
	Caption        string          `json:"caption"`
	Username       string          `json:"username"`
	ImageURL       string          `json:"image_url"`
	Location       string          `json:"location,omitempty"`
	TakenAt        *time.Time      `json:"taken_at,omitempty"`
	IsVideo        bool            `json:"is_video,omitempty"`
	LikeCount      int             `json:"like_count,omitempty"`
	CommentCount   int             `json:"comment_count,omitempty"`
	CarouselImages []string        `json:"carousel_images,omitempty"`
	Tier           string          `json:"tier"`
	Raw            json.RawMessage `json:"-"`
}

// usable reports whether a tier produced enough to stop the chain.
func (p *Post) usable() bool {
	return p != nil && (p.Caption != "" || p.ImageURL != "")
}

var postPathPattern = regexp.MustCompile(`/(?:p|reel|reels|tv)/([A-Za-z0-9_-]+)`)

// IsPostURL reports whether rawURL points at an Instagram post or reel.
func IsPostURL(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	host := strings.TrimPrefix(u.Hostname(), "www.")
	if host != "instagram.com" {
		return false
	}
	return postPathPattern.MatchString(u.Path)
}

// Shortcode extracts the post shortcode from a post URL.
func Shortcode(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	m := postPathPattern.FindStringSubmatch(u.Path)
	if m == nil {
		return ""
	}
	return m[1]
}

type tier struct {
	name string
	fn   func(ctx context.Context, postURL, shortcode string) (*Post, error)
}

// ExtractPost runs the tiers in order and returns the first usable result.
// ErrChainExhausted is returned when every tier fails or yields neither a
// caption nor an image.
func (a *Adapter) ExtractPost(ctx context.Context, postURL string) (*Post, error) {
	shortcode := Shortcode(postURL)
	if shortcode == "" {
		return nil, fmt.Errorf("no shortcode in URL %q", postURL)
	}

	tiers := []tier{
		{"graphql", a.fetchGraphQL},
		{"oembed", a.fetchOEmbed},
		{"embed", a.fetchEmbed},
		{"direct", a.fetchDirect},
	}

	for _, t := range tiers {
		post, err := t.fn(ctx, postURL, shortcode)
		if err != nil {
			slog.Debug("instagram tier failed", "tier", t.name, "shortcode", shortcode, "error", err)
			continue
		}
		if !post.usable() {
			slog.Debug("instagram tier returned no usable data", "tier", t.name, "shortcode", shortcode)
			continue
		}
		post.Shortcode = shortcode
		post.Tier = t.name
		slog.Debug("instagram extraction succeeded", "tier", t.name, "shortcode", shortcode)
		return post, nil
	}

	return nil, fmt.Errorf("%w: %s", ErrChainExhausted, shortcode)
}

// Event maps the post into the pipeline's transient event shape. The title
// is the first non-blank caption line, truncated, or "Post by @user" when
// the post has no caption. The start date is the post timestamp when a tier
// recovered one, else now.
func (p *Post) Event(postURL string, now time.Time) models.ExtractedEvent {
	title := firstLine(p.Caption)
	if title == "" {
		title = "Post by @" + p.Username
	}
	if runes := []rune(title); len(runes) > maxTitleLen {
		title = string(runes[:maxTitleLen]) + "…"
	}

	start := now
	if p.TakenAt != nil {
		start = *p.TakenAt
	}

	raw := p.Raw
	if raw == nil {
		raw, _ = json.Marshal(p)
	}

	return models.ExtractedEvent{
		Title:       title,
		StartDate:   start.Format(time.RFC3339),
		Description: p.Caption,
		Location:    p.Location,
		URL:         postURL,
		ImageURL:    p.ImageURL,
		Raw:         raw,
	}
}

func firstLine(s string) string {
	for _, line := range strings.Split(s, "\n") {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			return trimmed
		}
	}
	return ""
}

func (a *Adapter) newRequest(ctx context.Context, method, rawURL string) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, rawURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", a.config.UserAgent)
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")
	return req, nil
}
