package instagram

import (
	"context"
	"encoding/json"
	"fmt"
	"html"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/eventrake/eventrake/internal/dates"
)

// ogDescPattern matches Instagram's og:description convention:
//
//	`N likes, N comments - user on DATE: "caption"`
//
// The like/comment prefix is optional; counts may be abbreviated ("1,024",
// "12.5K"). The caption is the final quoted segment.
var ogDescPattern = regexp.MustCompile(`(?s)^\s*(?:[\d,.]+[KMkm]?\s+likes?,\s*)?(?:[\d,.]+[KMkm]?\s+comments?\s*-\s*)?(\S+)\s+on\s+(.+?):\s*[“"](.*)[”"]\s*$`)

// embeddedJSONMarkers are the legacy payload shapes a post page may carry,
// tried in order.
var embeddedJSONMarkers = []string{
	`{"shortcode_media"`,
	`{"graphql":{"shortcode_media"`,
	`{"items":[{`,
}

// fetchDirect is tier 4: the canonical post page with browser-like headers.
// Open Graph tags first, then the legacy embedded-JSON shapes, then a
// JSON-LD block.
func (a *Adapter) fetchDirect(ctx context.Context, postURL, _ string) (*Post, error) {
	req, err := a.newRequest(ctx, "GET", postURL)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "text/html,application/xhtml+xml")
	req.Header.Set("Sec-Fetch-Mode", "navigate")

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("direct status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	page := string(body)

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(page))
	if err != nil {
		return nil, fmt.Errorf("direct parse: %w", err)
	}

	post := &Post{}
	if img, ok := doc.Find(`meta[property="og:image"]`).First().Attr("content"); ok {
		post.ImageURL = img
	}
	if desc, ok := doc.Find(`meta[property="og:description"]`).First().Attr("content"); ok {
		post.Username, post.Caption = captionFromOGDescription(desc)
	}
	if post.Username == "" {
		if title, ok := doc.Find(`meta[property="og:title"]`).First().Attr("content"); ok {
			post.Username = usernameFromOGTitle(title)
		}
	}

	// Legacy embedded-JSON shapes can fill what the meta tags lack.
	for _, marker := range embeddedJSONMarkers {
		raw := extractJSONObject(page, marker)
		if raw == "" {
			continue
		}
		if merged := postFromEmbeddedJSON(raw); merged != nil {
			mergePost(post, merged)
			break
		}
	}

	// JSON-LD is the last structured shape worth checking.
	if post.Caption == "" || post.ImageURL == "" {
		doc.Find(`script[type="application/ld+json"]`).EachWithBreak(func(_ int, sel *goquery.Selection) bool {
			var ld struct {
				Caption      string `json:"caption"`
				ContentURL   string `json:"contentUrl"`
				UploadDate   string `json:"uploadDate"`
				ThumbnailURL string `json:"thumbnailUrl"`
				Author       struct {
					AlternateName string `json:"alternateName"`
				} `json:"author"`
			}
			if err := json.Unmarshal([]byte(sel.Text()), &ld); err != nil {
				return true
			}
			if post.Caption == "" {
				post.Caption = ld.Caption
			}
			if post.ImageURL == "" {
				post.ImageURL = firstNonEmpty(ld.ContentURL, ld.ThumbnailURL)
			}
			if post.Username == "" {
				post.Username = strings.TrimPrefix(ld.Author.AlternateName, "@")
			}
			if post.TakenAt == nil && ld.UploadDate != "" {
				post.TakenAt = dates.Parse(ld.UploadDate)
			}
			return false
		})
	}

	return post, nil
}

// captionFromOGDescription strips the engagement prefix convention and
// decodes HTML entities, returning the username and caption.
func captionFromOGDescription(desc string) (username, caption string) {
	m := ogDescPattern.FindStringSubmatch(desc)
	if m == nil {
		return "", ""
	}
	return m[1], html.UnescapeString(m[3])
}

// usernameFromOGTitle pulls the handle out of titles like
// "Venue Name (@venuename) • Instagram photos and videos".
func usernameFromOGTitle(title string) string {
	m := regexp.MustCompile(`\(@([A-Za-z0-9._]+)\)`).FindStringSubmatch(title)
	if m == nil {
		return ""
	}
	return m[1]
}

// postFromEmbeddedJSON tries the known embedded payload shapes: the two
// wrappers around a shortcode_media node, then the mobile-API items array.
func postFromEmbeddedJSON(raw string) *Post {
	var direct struct {
		Media *graphQLMedia `json:"shortcode_media"`
	}
	if err := json.Unmarshal([]byte(raw), &direct); err == nil && direct.Media != nil {
		return direct.Media.post(json.RawMessage(raw))
	}

	var wrapped struct {
		GraphQL struct {
			Media *graphQLMedia `json:"shortcode_media"`
		} `json:"graphql"`
	}
	if err := json.Unmarshal([]byte(raw), &wrapped); err == nil && wrapped.GraphQL.Media != nil {
		return wrapped.GraphQL.Media.post(json.RawMessage(raw))
	}

	var items struct {
		Items []*itemsMedia `json:"items"`
	}
	if err := json.Unmarshal([]byte(raw), &items); err == nil && len(items.Items) > 0 && items.Items[0] != nil {
		return items.Items[0].post(json.RawMessage(raw))
	}

	return nil
}

// itemsMedia is the mobile-API item shape some post pages embed instead of a
// shortcode_media node.
type itemsMedia struct {
	Code    string `json:"code"`
	TakenAt int64  `json:"taken_at"`
	Caption *struct {
		Text string `json:"text"`
	} `json:"caption"`
	User struct {
		Username string `json:"username"`
	} `json:"user"`
	ImageVersions struct {
		Candidates []struct {
			URL string `json:"url"`
		} `json:"candidates"`
	} `json:"image_versions2"`
	Location *struct {
		Name string `json:"name"`
	} `json:"location"`
	LikeCount    int `json:"like_count"`
	CommentCount int `json:"comment_count"`
	VideoVersion []struct {
		URL string `json:"url"`
	} `json:"video_versions"`
	CarouselMedia []struct {
		ImageVersions struct {
			Candidates []struct {
				URL string `json:"url"`
			} `json:"candidates"`
		} `json:"image_versions2"`
	} `json:"carousel_media"`
}

func (m *itemsMedia) post(raw json.RawMessage) *Post {
	p := &Post{
		Shortcode:    m.Code,
		Username:     m.User.Username,
		IsVideo:      len(m.VideoVersion) > 0,
		LikeCount:    m.LikeCount,
		CommentCount: m.CommentCount,
		Raw:          raw,
	}
	if m.Caption != nil {
		p.Caption = strings.TrimSpace(m.Caption.Text)
	}
	if len(m.ImageVersions.Candidates) > 0 {
		p.ImageURL = m.ImageVersions.Candidates[0].URL
	}
	if m.Location != nil {
		p.Location = m.Location.Name
	}
	if m.TakenAt > 0 {
		t := time.Unix(m.TakenAt, 0).UTC()
		p.TakenAt = &t
	}
	for _, c := range m.CarouselMedia {
		if len(c.ImageVersions.Candidates) > 0 {
			p.CarouselImages = append(p.CarouselImages, c.ImageVersions.Candidates[0].URL)
		}
	}
	return p
}

// mergePost fills gaps in dst from src without overwriting what the meta
// tags already produced.
func mergePost(dst, src *Post) {
	if dst.Caption == "" {
		dst.Caption = src.Caption
	}
	if dst.Username == "" {
		dst.Username = src.Username
	}
	if dst.ImageURL == "" {
		dst.ImageURL = src.ImageURL
	}
	if dst.Location == "" {
		dst.Location = src.Location
	}
	if dst.TakenAt == nil {
		dst.TakenAt = src.TakenAt
	}
	if dst.LikeCount == 0 {
		dst.LikeCount = src.LikeCount
	}
	if dst.CommentCount == 0 {
		dst.CommentCount = src.CommentCount
	}
	if len(dst.CarouselImages) == 0 {
		dst.CarouselImages = src.CarouselImages
	}
	dst.IsVideo = dst.IsVideo || src.IsVideo
	if dst.Raw == nil {
		dst.Raw = src.Raw
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
