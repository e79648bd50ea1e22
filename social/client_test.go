package social

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFetchEngagementParsesResponse(t *testing.T) {
	windowStart := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	windowEnd := windowStart.Add(48 * time.Hour)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/accounts/acct-1/engagement", r.URL.Path)
		assert.Equal(t, "Bearer secret-token", r.Header.Get("Authorization"))
		assert.Equal(t, windowStart.Format(time.RFC3339), r.URL.Query().Get("start_time"))
		assert.Equal(t, windowEnd.Format(time.RFC3339), r.URL.Query().Get("end_time"))

		json.NewEncoder(w).Encode(map[string]interface{}{
			"post_count":       7,
			"like_count":       250,
			"reply_count":      30,
			"reshare_count":    45,
			"impression_count": 12000,
			"posts": []map[string]interface{}{
				{
					"id":         "p1",
					"text":       "gm",
					"created_at": windowStart.Format(time.RFC3339),
					"like_count": 100,
				},
			},
		})
	}))
	defer server.Close()

	client := NewHTTPMetricsClient(server.URL, "secret-token", 5*time.Second)
	stats, err := client.FetchEngagement(context.Background(), "acct-1", windowStart, windowEnd)

	require.NoError(t, err)
	assert.Equal(t, int64(7), stats.PostCount)
	assert.Equal(t, int64(250), stats.LikeCount)
	assert.Equal(t, int64(30), stats.ReplyCount)
	assert.Equal(t, int64(45), stats.ReshareCount)
	assert.Equal(t, int64(12000), stats.ImpressionCount)
	require.Len(t, stats.RecentPosts, 1)
	assert.Equal(t, "p1", stats.RecentPosts[0].ID)
	assert.Equal(t, "gm", stats.RecentPosts[0].Content)
	assert.Equal(t, int64(100), stats.RecentPosts[0].Metrics.LikeCount)
}

func TestFetchEngagementMissingCountersDefaultToZero(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{}`))
	}))
	defer server.Close()

	client := NewHTTPMetricsClient(server.URL, "token", 5*time.Second)
	stats, err := client.FetchEngagement(context.Background(), "acct-1", time.Now().Add(-time.Hour), time.Now())

	require.NoError(t, err)
	assert.Zero(t, stats.PostCount)
	assert.Zero(t, stats.LikeCount)
	assert.Empty(t, stats.RecentPosts)
}

func TestFetchEngagementRateLimited(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "120")
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	client := NewHTTPMetricsClient(server.URL, "token", 5*time.Second)
	_, err := client.FetchEngagement(context.Background(), "acct-1", time.Now().Add(-time.Hour), time.Now())

	var rateLimited *RateLimitError
	require.ErrorAs(t, err, &rateLimited)
	assert.Equal(t, 2*time.Minute, rateLimited.RetryAfter)
}

func TestFetchEngagementRateLimitedWithoutHeader(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	client := NewHTTPMetricsClient(server.URL, "token", 5*time.Second)
	_, err := client.FetchEngagement(context.Background(), "acct-1", time.Now().Add(-time.Hour), time.Now())

	var rateLimited *RateLimitError
	require.ErrorAs(t, err, &rateLimited)
	assert.Equal(t, 15*time.Minute, rateLimited.RetryAfter)
}

func TestFetchEngagementNotFoundIsEmpty(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	client := NewHTTPMetricsClient(server.URL, "token", 5*time.Second)
	stats, err := client.FetchEngagement(context.Background(), "acct-gone", time.Now().Add(-time.Hour), time.Now())

	require.NoError(t, err)
	assert.Zero(t, stats.PostCount)
}

func TestFetchEngagementServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream exploded", http.StatusBadGateway)
	}))
	defer server.Close()

	client := NewHTTPMetricsClient(server.URL, "token", 5*time.Second)
	_, err := client.FetchEngagement(context.Background(), "acct-1", time.Now().Add(-time.Hour), time.Now())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "502")
}

func TestFetchEngagementTruncatesRecentPosts(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		posts := make([]map[string]interface{}, 15)
		for i := range posts {
			posts[i] = map[string]interface{}{"id": "p", "text": "t"}
		}
		json.NewEncoder(w).Encode(map[string]interface{}{"posts": posts})
	}))
	defer server.Close()

	client := NewHTTPMetricsClient(server.URL, "token", 5*time.Second)
	stats, err := client.FetchEngagement(context.Background(), "acct-1", time.Now().Add(-time.Hour), time.Now())

	require.NoError(t, err)
	assert.Len(t, stats.RecentPosts, 10)
}
