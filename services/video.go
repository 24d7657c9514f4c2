// services/video.go
package services

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"surf-leaderboard/utils"
)

// VideoChecker reports whether a proof video exists. The external service
// is an opaque capability; transport failures are surfaced as errors, not
// as "absent".
type VideoChecker interface {
	Exists(ctx context.Context, ytID string) (bool, error)
}

// YoutubeClient checks video existence against the YouTube Data API.
type YoutubeClient struct {
	BaseURL string
	APIKey  string
	Client  *http.Client
}

func NewYoutubeClient(baseURL, apiKey string) *YoutubeClient {
	return &YoutubeClient{
		BaseURL: baseURL,
		APIKey:  apiKey,
		Client:  utils.VideoHTTPClient,
	}
}

func (c *YoutubeClient) Exists(ctx context.Context, ytID string) (bool, error) {
	endpoint := fmt.Sprintf("%s/videos?part=id&id=%s&key=%s",
		c.BaseURL, url.QueryEscape(ytID), url.QueryEscape(c.APIKey))

	req, err := http.NewRequestWithContext(ctx, "GET", endpoint, nil)
	if err != nil {
		return false, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.Client.Do(req)
	if err != nil {
		return false, fmt.Errorf("video service request failed: %w", err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return false, fmt.Errorf("video service returned %d: %s", resp.StatusCode, string(body))
	}

	var payload struct {
		PageInfo struct {
			TotalResults int `json:"totalResults"`
		} `json:"pageInfo"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return false, fmt.Errorf("failed to decode video service response: %w", err)
	}
	return payload.PageInfo.TotalResults > 0, nil
}
