package enrich

import (
	"encoding/json"
	"fmt"
	"strings"
)

// schemaEvent is the normalized view of a Schema.org Event object.
type schemaEvent struct {
	StartDate   string
	EndDate     string
	Description string
	Image       string
	Venue       string
	Price       string
	Raw         json.RawMessage
}

// findSchemaEvent locates the first Event-typed object in a ld+json block,
// descending into top-level arrays and @graph wrappers.
func findSchemaEvent(raw []byte) *schemaEvent {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil
	}
	obj := searchEvent(v)
	if obj == nil {
		return nil
	}
	return normalizeEvent(obj)
}

func searchEvent(v any) map[string]any {
	switch t := v.(type) {
	case []any:
		for _, item := range t {
			if m := searchEvent(item); m != nil {
				return m
			}
		}
	case map[string]any:
		if isEventType(t["@type"]) {
			return t
		}
		if graph, ok := t["@graph"]; ok {
			return searchEvent(graph)
		}
	}
	return nil
}

// isEventType matches "Event" and its subtypes ("MusicEvent", "TheaterEvent",
// ...), for both string and array @type declarations.
func isEventType(v any) bool {
	switch t := v.(type) {
	case string:
		return strings.HasSuffix(t, "Event")
	case []any:
		for _, item := range t {
			if s, ok := item.(string); ok && strings.HasSuffix(s, "Event") {
				return true
			}
		}
	}
	return false
}

func normalizeEvent(obj map[string]any) *schemaEvent {
	raw, err := json.Marshal(obj)
	if err != nil {
		return nil
	}

	return &schemaEvent{
		StartDate:   stringField(obj, "startDate"),
		EndDate:     stringField(obj, "endDate"),
		Description: stringField(obj, "description"),
		Image:       imageField(obj["image"]),
		Venue:       venueField(obj["location"]),
		Price:       priceField(obj["offers"]),
		Raw:         raw,
	}
}

func stringField(obj map[string]any, key string) string {
	s, _ := obj[key].(string)
	return strings.TrimSpace(s)
}

// imageField accepts the three shapes schema data uses for images: a bare
// URL, an array of URLs, or an ImageObject.
func imageField(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case []any:
		for _, item := range t {
			if s := imageField(item); s != "" {
				return s
			}
		}
	case map[string]any:
		return stringField(t, "url")
	}
	return ""
}

func venueField(v any) string {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case map[string]any:
		if name := stringField(t, "name"); name != "" {
			return name
		}
		if addr, ok := t["address"].(map[string]any); ok {
			parts := []string{}
			for _, key := range []string{"streetAddress", "addressLocality"} {
				if s := stringField(addr, key); s != "" {
					parts = append(parts, s)
				}
			}
			return strings.Join(parts, ", ")
		}
		if addr, ok := t["address"].(string); ok {
			return strings.TrimSpace(addr)
		}
	}
	return ""
}

func priceField(v any) string {
	switch t := v.(type) {
	case []any:
		for _, item := range t {
			if s := priceField(item); s != "" {
				return s
			}
		}
	case map[string]any:
		price := t["price"]
		if price == nil {
			return ""
		}
		currency := stringField(t, "priceCurrency")
		var s string
		switch p := price.(type) {
		case string:
			s = p
		case float64:
			s = fmt.Sprintf("%v", p)
		}
		if s == "" {
			return ""
		}
		if currency != "" {
			return s + " " + currency
		}
		return s
	}
	return ""
}
