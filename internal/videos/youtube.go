// Package videos looks up related study videos for extracted questions
// through the YouTube Data API v3 search endpoint.
package videos

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"paperscope/internal/analyzer"
)

const defaultSearchURL = "https://www.googleapis.com/youtube/v3/search"

// maxResults per question. Medium-length tutorial videos suit exam prep best.
const maxResults = "5"

// Video is one related video attached to a question.
type Video struct {
	VideoID      string `json:"videoId"`
	Title        string `json:"title"`
	Description  string `json:"description"`
	ThumbnailURL string `json:"thumbnailUrl"`
}

// Client calls the YouTube search API with a fixed key.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

func NewClient(apiKey string) *Client {
	return &Client{
		apiKey:     apiKey,
		baseURL:    defaultSearchURL,
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
}

// Search returns up to five medium-length English videos for a query.
func (c *Client) Search(ctx context.Context, query string) ([]Video, error) {
	params := url.Values{}
	params.Set("part", "snippet")
	params.Set("maxResults", maxResults)
	params.Set("q", query)
	params.Set("type", "video")
	params.Set("relevanceLanguage", "en")
	params.Set("videoDuration", "medium")
	params.Set("key", c.apiKey)

	req, err := http.NewRequestWithContext(ctx, "GET", c.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("youtube request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("youtube req error: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("youtube api error: %d - %s", resp.StatusCode, string(bodyBytes))
	}

	var searchResp struct {
		Items []struct {
			ID struct {
				VideoID string `json:"videoId"`
			} `json:"id"`
			Snippet struct {
				Title       string `json:"title"`
				Description string `json:"description"`
				Thumbnails  struct {
					Medium struct {
						URL string `json:"url"`
					} `json:"medium"`
					Default struct {
						URL string `json:"url"`
					} `json:"default"`
				} `json:"thumbnails"`
			} `json:"snippet"`
		} `json:"items"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&searchResp); err != nil {
		return nil, fmt.Errorf("youtube json error: %w", err)
	}

	var results []Video
	for _, item := range searchResp.Items {
		if item.ID.VideoID == "" {
			continue
		}
		thumb := item.Snippet.Thumbnails.Medium.URL
		if thumb == "" {
			thumb = item.Snippet.Thumbnails.Default.URL
		}
		results = append(results, Video{
			VideoID:      item.ID.VideoID,
			Title:        item.Snippet.Title,
			Description:  item.Snippet.Description,
			ThumbnailURL: thumb,
		})
	}
	return results, nil
}

// QueryFor builds the search query for one question from its topics,
// subject and keywords, in that priority order.
func QueryFor(q analyzer.QuestionRecord) string {
	var parts []string
	if len(q.Topics) > 0 {
		parts = append(parts, strings.Join(q.Topics, " "))
	} else if len(q.Keywords) > 0 {
		parts = append(parts, strings.Join(q.Keywords, " "))
	}
	if q.Subject != "" && q.Subject != "General" {
		parts = append(parts, q.Subject)
	}
	if len(parts) == 0 {
		parts = append(parts, q.QuestionText)
	}
	parts = append(parts, "tutorial")
	return strings.Join(parts, " ")
}

// EnrichAll fetches videos for every query concurrently. The result slice is
// index-aligned with queries; a failed lookup leaves a nil entry and the rest
// of the batch is unaffected.
func (c *Client) EnrichAll(ctx context.Context, queries []string) [][]Video {
	results := make([][]Video, len(queries))
	var wg sync.WaitGroup
	for i, query := range queries {
		wg.Add(1)
		go func(i int, query string) {
			defer wg.Done()
			vids, err := c.Search(ctx, query)
			if err != nil {
				log.Printf("Video lookup failed for %q: %v", query, err)
				return
			}
			results[i] = vids
		}(i, query)
	}
	wg.Wait()
	return results
}
