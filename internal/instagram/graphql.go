package instagram

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// graphQLMedia is the shortcode_media node shared by the GraphQL and
// embedded-JSON payload shapes.
type graphQLMedia struct {
	Shortcode  string `json:"shortcode"`
	DisplayURL string `json:"display_url"`
	IsVideo    bool   `json:"is_video"`
	TakenAt    int64  `json:"taken_at_timestamp"`
	Caption    struct {
		Edges []struct {
			Node struct {
				Text string `json:"text"`
			} `json:"node"`
		} `json:"edges"`
	} `json:"edge_media_to_caption"`
	Owner struct {
		Username string `json:"username"`
	} `json:"owner"`
	Location *struct {
		Name string `json:"name"`
	} `json:"location"`
	Likes struct {
		Count int `json:"count"`
	} `json:"edge_media_preview_like"`
	Comments struct {
		Count int `json:"count"`
	} `json:"edge_media_to_parent_comment"`
	Sidecar *struct {
		Edges []struct {
			Node struct {
				DisplayURL string `json:"display_url"`
				IsVideo    bool   `json:"is_video"`
			} `json:"node"`
		} `json:"edges"`
	} `json:"edge_sidecar_to_children"`
}

func (m *graphQLMedia) post(raw json.RawMessage) *Post {
	p := &Post{
		Caption:      firstCaptionEdge(m),
		Username:     m.Owner.Username,
		ImageURL:     m.DisplayURL,
		IsVideo:      m.IsVideo,
		LikeCount:    m.Likes.Count,
		CommentCount: m.Comments.Count,
		Raw:          raw,
	}
	if m.Location != nil {
		p.Location = m.Location.Name
	}
	if m.TakenAt > 0 {
		t := time.Unix(m.TakenAt, 0).UTC()
		p.TakenAt = &t
	}
	if m.Sidecar != nil {
		for _, edge := range m.Sidecar.Edges {
			if !edge.Node.IsVideo && edge.Node.DisplayURL != "" {
				p.CarouselImages = append(p.CarouselImages, edge.Node.DisplayURL)
			}
		}
	}
	return p
}

func firstCaptionEdge(m *graphQLMedia) string {
	if len(m.Caption.Edges) == 0 {
		return ""
	}
	return strings.TrimSpace(m.Caption.Edges[0].Node.Text)
}

// fetchGraphQL is tier 1: Instagram's internal GraphQL endpoint. Most
// complete, most brittle — the doc_id expires periodically.
func (a *Adapter) fetchGraphQL(ctx context.Context, _, shortcode string) (*Post, error) {
	variables, err := json.Marshal(map[string]string{"shortcode": shortcode})
	if err != nil {
		return nil, err
	}

	form := url.Values{}
	form.Set("doc_id", a.config.DocID)
	form.Set("variables", string(variables))

	req, err := http.NewRequestWithContext(ctx, "POST", a.config.GraphQLEndpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", a.config.UserAgent)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("graphql status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	var payload struct {
		Data struct {
			Media *graphQLMedia `json:"xdt_shortcode_media"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("graphql payload: %w", err)
	}
	if payload.Data.Media == nil {
		return nil, fmt.Errorf("graphql response has no media node")
	}

	raw, _ := json.Marshal(payload.Data.Media)
	return payload.Data.Media.post(raw), nil
}
