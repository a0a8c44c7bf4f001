package instagram

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
)

// fetchOEmbed is tier 2: the public oEmbed API. Yields a caption-like title
// and a thumbnail, nothing structured beyond that.
func (a *Adapter) fetchOEmbed(ctx context.Context, postURL, _ string) (*Post, error) {
	endpoint := a.config.OEmbedEndpoint + "?url=" + url.QueryEscape(postURL)

	req, err := a.newRequest(ctx, "GET", endpoint)
	if err != nil {
		return nil, err
	}

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("oembed status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	var payload struct {
		Title        string `json:"title"`
		AuthorName   string `json:"author_name"`
		ThumbnailURL string `json:"thumbnail_url"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("oembed payload: %w", err)
	}

	return &Post{
		Caption:  payload.Title,
		Username: payload.AuthorName,
		ImageURL: payload.ThumbnailURL,
		Raw:      body,
	}, nil
}
