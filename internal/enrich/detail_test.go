package enrich

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func serve(t *testing.T, html string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(html))
	}))
}

func TestFetchDetails_OpenGraph(t *testing.T) {
	server := serve(t, `<html><head>
		<meta property="og:image" content="/poster.jpg">
		<meta property="og:description" content="A night of improvised jazz.">
		<meta name="description" content="fallback description">
	</head><body><p>hi</p></body></html>`)
	defer server.Close()

	f := New(Config{})
	data := f.FetchDetails(t.Context(), server.URL)
	if data == nil {
		t.Fatal("expected detail data")
	}
	if data.ImageURL != server.URL+"/poster.jpg" {
		t.Errorf("ImageURL = %q, want absolute /poster.jpg", data.ImageURL)
	}
	if data.Description != "A night of improvised jazz." {
		t.Errorf("Description = %q, og:description should win", data.Description)
	}
}

func TestFetchDetails_MetaDescriptionFallback(t *testing.T) {
	server := serve(t, `<html><head>
		<meta name="description" content="plain meta description">
	</head><body></body></html>`)
	defer server.Close()

	f := New(Config{})
	data := f.FetchDetails(t.Context(), server.URL)
	if data == nil {
		t.Fatal("expected detail data")
	}
	if data.Description != "plain meta description" {
		t.Errorf("Description = %q", data.Description)
	}
}

func TestFetchDetails_TwitterImageFallback(t *testing.T) {
	server := serve(t, `<html><head>
		<meta name="twitter:image" content="https://cdn.test/card.png">
	</head><body></body></html>`)
	defer server.Close()

	f := New(Config{})
	data := f.FetchDetails(t.Context(), server.URL)
	if data == nil {
		t.Fatal("expected detail data")
	}
	if data.ImageURL != "https://cdn.test/card.png" {
		t.Errorf("ImageURL = %q, want twitter:image fallback", data.ImageURL)
	}
}

func TestFetchDetails_SchemaEvent(t *testing.T) {
	server := serve(t, `<html><head>
		<script type="application/ld+json">
		{
			"@context": "https://schema.org",
			"@type": "MusicEvent",
			"name": "Spring Concert",
			"startDate": "2026-05-02T20:00:00Z",
			"endDate": "2026-05-02T23:00:00Z",
			"description": "schema description",
			"image": ["https://cdn.test/concert.jpg"],
			"location": {"@type": "Place", "name": "Fillmore West"},
			"offers": {"@type": "Offer", "price": "25", "priceCurrency": "USD"}
		}
		</script>
	</head><body></body></html>`)
	defer server.Close()

	f := New(Config{})
	data := f.FetchDetails(t.Context(), server.URL)
	if data == nil {
		t.Fatal("expected detail data")
	}
	if data.StartDate == nil || data.StartDate.Format("2006-01-02") != "2026-05-02" {
		t.Errorf("StartDate = %v, want 2026-05-02", data.StartDate)
	}
	if data.EndDate == nil {
		t.Error("EndDate should be parsed")
	}
	if data.Venue != "Fillmore West" {
		t.Errorf("Venue = %q", data.Venue)
	}
	if data.Price != "25 USD" {
		t.Errorf("Price = %q", data.Price)
	}
	if data.ImageURL != "https://cdn.test/concert.jpg" {
		t.Errorf("ImageURL = %q", data.ImageURL)
	}
	if data.Schema == nil {
		t.Error("raw schema payload should be retained")
	}
}

func TestFetchDetails_GraphWrappedEvent(t *testing.T) {
	server := serve(t, `<html><head>
		<script type="application/ld+json">
		{
			"@context": "https://schema.org",
			"@graph": [
				{"@type": "WebSite", "name": "site"},
				{"@type": "Event", "name": "Hidden Event", "startDate": "2026-06-01"}
			]
		}
		</script>
	</head><body></body></html>`)
	defer server.Close()

	f := New(Config{})
	data := f.FetchDetails(t.Context(), server.URL)
	if data == nil {
		t.Fatal("expected detail data")
	}
	if data.StartDate == nil || data.StartDate.Format("2006-01-02") != "2026-06-01" {
		t.Errorf("StartDate = %v, want 2026-06-01 from @graph", data.StartDate)
	}
}

func TestFetchDetails_UnparseableSchemaDateIgnored(t *testing.T) {
	server := serve(t, `<html><head>
		<script type="application/ld+json">
		{"@type": "Event", "name": "Bad Date", "startDate": "whenever", "description": "d"}
		</script>
	</head><body></body></html>`)
	defer server.Close()

	f := New(Config{})
	data := f.FetchDetails(t.Context(), server.URL)
	if data == nil {
		t.Fatal("unparseable date must not discard the rest of the data")
	}
	if data.StartDate != nil {
		t.Errorf("StartDate = %v, want nil", data.StartDate)
	}
}

func TestFetchDetails_MainContentLastResort(t *testing.T) {
	server := serve(t, `<html><head></head><body>
		<main><h1>Ticket info</h1><p>Doors at eight, show at nine.</p></main>
	</body></html>`)
	defer server.Close()

	f := New(Config{MaxContentChars: 60})
	data := f.FetchDetails(t.Context(), server.URL)
	if data == nil {
		t.Fatal("expected detail data from main content")
	}
	if !strings.Contains(data.Description, "Ticket info") {
		t.Errorf("Description = %q, want main-content text", data.Description)
	}
	if len(data.Description) > 60 {
		t.Errorf("Description length %d exceeds budget", len(data.Description))
	}
}

func TestFetchDetails_NetworkFailureReturnsNil(t *testing.T) {
	server := serve(t, "")
	server.Close() // connection refused from here on

	f := New(Config{})
	if data := f.FetchDetails(t.Context(), server.URL); data != nil {
		t.Errorf("expected nil on network failure, got %+v", data)
	}
}

func TestFindSchemaEvent_TopLevelArray(t *testing.T) {
	event := findSchemaEvent([]byte(`[{"@type": "Thing"}, {"@type": ["Place", "TheaterEvent"], "startDate": "2026-07-04"}]`))
	if event == nil {
		t.Fatal("expected event from top-level array")
	}
	if event.StartDate != "2026-07-04" {
		t.Errorf("StartDate = %q", event.StartDate)
	}
}

func TestFindSchemaEvent_NotJSON(t *testing.T) {
	if event := findSchemaEvent([]byte("window.x = 1;")); event != nil {
		t.Errorf("expected nil for non-JSON, got %+v", event)
	}
}
