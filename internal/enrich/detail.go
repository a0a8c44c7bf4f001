// Package enrich fetches an event's detail page without a browser and
// extracts secondary data: Open Graph and Twitter meta tags, Schema.org
// Event JSON-LD, and a bounded slice of main-content text.
package enrich

import (
	"context"
	"log/slog"
	"strings"
	"time"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
	"github.com/gocolly/colly/v2"

	"github.com/eventrake/eventrake/internal/dates"
	"github.com/eventrake/eventrake/pkg/models"
)

// Config holds detail-fetch configuration.
type Config struct {
	Timeout         time.Duration
	UserAgent       string
	MaxContentChars int
}

// Fetcher performs plain HTTP detail-page fetches.
type Fetcher struct {
	config Config
}

// New creates a new Fetcher.
func New(config Config) *Fetcher {
	if config.Timeout == 0 {
		config.Timeout = 10 * time.Second
	}
	if config.UserAgent == "" {
		config.UserAgent = "eventrake/1.0"
	}
	if config.MaxContentChars == 0 {
		config.MaxContentChars = 2000
	}
	return &Fetcher{config: config}
}

// FetchDetails fetches eventURL and extracts whatever secondary data the
// page offers. Returns nil on any network or timeout failure; the caller
// keeps the event's original fields.
func (f *Fetcher) FetchDetails(ctx context.Context, eventURL string) *models.DetailData {
	c := colly.NewCollector(colly.UserAgent(f.config.UserAgent))
	c.SetRequestTimeout(f.config.Timeout)

	c.OnRequest(func(r *colly.Request) {
		if ctx.Err() != nil {
			r.Abort()
		}
	})

	var (
		data     models.DetailData
		ogDesc   string
		metaDesc string
		twImage  string
		mainText string
	)

	c.OnHTML(`meta[property="og:image"]`, func(e *colly.HTMLElement) {
		if data.ImageURL == "" {
			data.ImageURL = e.Request.AbsoluteURL(e.Attr("content"))
		}
	})
	c.OnHTML(`meta[name="twitter:image"]`, func(e *colly.HTMLElement) {
		if twImage == "" {
			twImage = e.Request.AbsoluteURL(e.Attr("content"))
		}
	})
	c.OnHTML(`meta[property="og:description"]`, func(e *colly.HTMLElement) {
		if ogDesc == "" {
			ogDesc = strings.TrimSpace(e.Attr("content"))
		}
	})
	c.OnHTML(`meta[name="description"]`, func(e *colly.HTMLElement) {
		if metaDesc == "" {
			metaDesc = strings.TrimSpace(e.Attr("content"))
		}
	})

	c.OnHTML(`script[type="application/ld+json"]`, func(e *colly.HTMLElement) {
		if data.Schema != nil {
			return
		}
		event := findSchemaEvent([]byte(e.Text))
		if event == nil {
			return
		}
		applySchemaEvent(&data, event)
	})

	c.OnHTML("body", func(e *colly.HTMLElement) {
		if mainText != "" {
			return
		}
		sel := e.DOM.Find("main").First()
		if sel.Length() == 0 {
			sel = e.DOM.Find("article").First()
		}
		if sel.Length() == 0 {
			sel = e.DOM
		}
		htmlContent, err := sel.Html()
		if err != nil {
			return
		}
		md, err := htmltomarkdown.ConvertString(htmlContent)
		if err != nil {
			return
		}
		md = strings.TrimSpace(md)
		if len(md) > f.config.MaxContentChars {
			md = md[:f.config.MaxContentChars]
		}
		mainText = md
	})

	if err := c.Visit(eventURL); err != nil {
		slog.Debug("detail fetch failed", "url", eventURL, "error", err)
		return nil
	}
	c.Wait()

	if data.ImageURL == "" {
		data.ImageURL = twImage
	}

	// Priority order for the description: OG, plain meta, schema (already
	// applied), then bounded main-content text as the last resort.
	switch {
	case ogDesc != "":
		data.Description = ogDesc
	case metaDesc != "":
		data.Description = metaDesc
	case data.Description != "":
		// keep the schema description
	default:
		data.Description = mainText
	}

	if data.ImageURL == "" && data.Description == "" && data.Venue == "" &&
		data.Price == "" && data.StartDate == nil && data.EndDate == nil && data.Schema == nil {
		return nil
	}
	return &data
}

// applySchemaEvent copies the usable fields of a Schema.org Event object
// into the detail data. Unparseable schema dates are ignored, not errors.
func applySchemaEvent(data *models.DetailData, event *schemaEvent) {
	data.Schema = event.Raw
	if event.StartDate != "" {
		data.StartDate = dates.Parse(event.StartDate)
	}
	if event.EndDate != "" {
		data.EndDate = dates.Parse(event.EndDate)
	}
	if data.Description == "" {
		data.Description = event.Description
	}
	if data.ImageURL == "" {
		data.ImageURL = event.Image
	}
	data.Venue = event.Venue
	data.Price = event.Price
}
