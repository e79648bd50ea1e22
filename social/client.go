package social

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/cloutleague/tournament-engine/models"
)

// RateLimitError signals that the metrics provider throttled us; the caller
// should back off rather than retry immediately.
type RateLimitError struct {
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("metrics API rate limited, retry after %s", e.RetryAfter)
}

// EngagementStats is one entity's cumulative engagement within a time window,
// as reported by the provider. Missing counters default to zero.
type EngagementStats struct {
	PostCount       int64
	LikeCount       int64
	ReplyCount      int64
	ReshareCount    int64
	ImpressionCount int64
	RecentPosts     []models.EngagementPost
}

// MetricsClient fetches engagement counters for an external account id.
type MetricsClient interface {
	FetchEngagement(ctx context.Context, externalID string, windowStart, windowEnd time.Time) (*EngagementStats, error)
}

type httpMetricsClient struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

func NewHTTPMetricsClient(baseURL, token string, timeout time.Duration) MetricsClient {
	return &httpMetricsClient{
		baseURL:    baseURL,
		token:      token,
		httpClient: &http.Client{Timeout: timeout},
	}
}

type apiPost struct {
	ID              string    `json:"id"`
	Text            string    `json:"text"`
	CreatedAt       time.Time `json:"created_at"`
	LikeCount       int64     `json:"like_count"`
	ReplyCount      int64     `json:"reply_count"`
	ReshareCount    int64     `json:"reshare_count"`
	ImpressionCount int64     `json:"impression_count"`
}

type apiEngagementResponse struct {
	PostCount       int64     `json:"post_count"`
	LikeCount       int64     `json:"like_count"`
	ReplyCount      int64     `json:"reply_count"`
	ReshareCount    int64     `json:"reshare_count"`
	ImpressionCount int64     `json:"impression_count"`
	Posts           []apiPost `json:"posts"`
}

func (c *httpMetricsClient) FetchEngagement(ctx context.Context, externalID string, windowStart, windowEnd time.Time) (*EngagementStats, error) {
	endpoint := fmt.Sprintf("%s/v1/accounts/%s/engagement", c.baseURL, url.PathEscape(externalID))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build metrics request: %w", err)
	}
	q := req.URL.Query()
	q.Set("start_time", windowStart.UTC().Format(time.RFC3339))
	q.Set("end_time", windowEnd.UTC().Format(time.RFC3339))
	req.URL.RawQuery = q.Encode()
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("metrics request failed: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, &RateLimitError{RetryAfter: retryAfter(resp)}
	case resp.StatusCode == http.StatusNotFound:
		// Account gone or renamed: treat as no activity rather than failing
		// the whole queue.
		return &EngagementStats{}, nil
	case resp.StatusCode != http.StatusOK:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("metrics API returned status %d: %s", resp.StatusCode, body)
	}

	var apiResp apiEngagementResponse
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return nil, fmt.Errorf("failed to decode metrics response: %w", err)
	}

	stats := &EngagementStats{
		PostCount:       apiResp.PostCount,
		LikeCount:       apiResp.LikeCount,
		ReplyCount:      apiResp.ReplyCount,
		ReshareCount:    apiResp.ReshareCount,
		ImpressionCount: apiResp.ImpressionCount,
	}
	for i, p := range apiResp.Posts {
		if i >= models.MaxRecentPosts {
			break
		}
		stats.RecentPosts = append(stats.RecentPosts, models.EngagementPost{
			ID:        p.ID,
			Content:   p.Text,
			CreatedAt: p.CreatedAt,
			Metrics: models.PostMetrics{
				LikeCount:       p.LikeCount,
				ReplyCount:      p.ReplyCount,
				ReshareCount:    p.ReshareCount,
				ImpressionCount: p.ImpressionCount,
			},
		})
	}
	return stats, nil
}

func retryAfter(resp *http.Response) time.Duration {
	const fallback = 15 * time.Minute
	header := resp.Header.Get("Retry-After")
	if header == "" {
		return fallback
	}
	if seconds, err := strconv.Atoi(header); err == nil && seconds > 0 {
		return time.Duration(seconds) * time.Second
	}
	return fallback
}
