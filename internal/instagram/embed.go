package instagram

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// fetchEmbed is tier 3: the lightweight /embed/ variant of the post page.
// Caption comes from an embedded JSON payload when one is present, else
// from best-effort selectors over the embed DOM.
func (a *Adapter) fetchEmbed(ctx context.Context, postURL, _ string) (*Post, error) {
	embedURL := strings.TrimSuffix(postURL, "/") + "/embed/"

	req, err := a.newRequest(ctx, "GET", embedURL)
	if err != nil {
		return nil, err
	}

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("embed status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	page := string(body)

	// Embedded JSON payload first; it is the embed page's own data source.
	if raw := extractJSONObject(page, `{"shortcode_media"`); raw != "" {
		var wrapper struct {
			Media *graphQLMedia `json:"shortcode_media"`
		}
		if err := json.Unmarshal([]byte(raw), &wrapper); err == nil && wrapper.Media != nil {
			return wrapper.Media.post(json.RawMessage(raw)), nil
		}
	}

	// Best-effort pattern matching over the embed DOM.
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(page))
	if err != nil {
		return nil, fmt.Errorf("embed parse: %w", err)
	}

	post := &Post{}
	post.Caption = strings.TrimSpace(doc.Find(".Caption").First().Text())
	post.Username = strings.TrimSpace(doc.Find(".UsernameText").First().Text())
	if img, ok := doc.Find("img.EmbeddedMediaImage").First().Attr("src"); ok {
		post.ImageURL = img
	}

	// Embed captions lead with the username; drop it from the caption text.
	if post.Username != "" && strings.HasPrefix(post.Caption, post.Username) {
		post.Caption = strings.TrimSpace(strings.TrimPrefix(post.Caption, post.Username))
	}

	return post, nil
}

// extractJSONObject returns the balanced JSON object starting at the first
// occurrence of marker in s, or "" if none closes properly. Brace counting
// is string-aware so payload text containing braces does not break it.
func extractJSONObject(s, marker string) string {
	start := strings.Index(s, marker)
	if start < 0 {
		return ""
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
		if escaped {
			escaped = false
			continue
		}
		switch c {
		case '\\':
			if inString {
				escaped = true
			}
		case '"':
			inString = !inString
		case '{':
			if !inString {
				depth++
			}
		case '}':
			if !inString {
				depth--
				if depth == 0 {
					return s[start : i+1]
				}
			}
		}
	}
	return ""
}
