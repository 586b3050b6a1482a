package twitter

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rusni-pyzda/twitter-cascades/common"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	c, err := NewClient("test-token", WithBaseURL(srv.URL), WithRetry(2, time.Millisecond, 2*time.Millisecond))
	require.NoError(t, err)
	return c
}

func TestNewClient_MissingToken(t *testing.T) {
	_, err := NewClient("")
	assert.ErrorContains(t, err, "missing twitter bearer token")
}

func TestSearchAll(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/tweets/search/all", r.URL.Path)
		assert.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))
		q := r.URL.Query()
		assert.Equal(t, "#FridaysForFuture lang:de", q.Get("query"))
		assert.Equal(t, "2019-03-18T00:00:00Z", q.Get("start_time"))
		assert.Equal(t, "2019-03-19T00:00:00Z", q.Get("end_time"))
		assert.Equal(t, "500", q.Get("max_results"))
		assert.Equal(t, "tok1", q.Get("next_token"))
		fmt.Fprint(w, `{
			"data": [
				{"id": "20", "created_at": "2019-03-18T10:00:00.000Z", "author_id": "2", "text": "RT @greta: ...",
				 "referenced_tweets": [{"type": "retweeted", "id": "10"}]},
				{"id": "21", "created_at": "2019-03-18T11:00:00.000Z", "author_id": "3", "text": "hello"}
			],
			"includes": {
				"users": [{"id": "2", "username": "Bob"}, {"id": "1", "username": "Greta"}],
				"tweets": [{"id": "10", "created_at": "2019-03-18T09:00:00.000Z", "author_id": "1", "text": "strike"}]
			},
			"meta": {"result_count": 2, "next_token": "tok2"}
		}`)
	})

	s := common.Search{
		Query:     "#FridaysForFuture lang:de",
		StartTime: time.Date(2019, 3, 18, 0, 0, 0, 0, time.UTC),
		EndTime:   time.Date(2019, 3, 19, 0, 0, 0, 0, time.UTC),
	}
	page, err := c.SearchAll(context.Background(), s, common.DefaultRequestConfig, 500, "tok1")
	require.NoError(t, err)

	assert.Equal(t, "tok2", page.NextToken)
	require.Len(t, page.Tweets, 2)
	assert.Equal(t, "10", page.Tweets[0].RetweetOf())
	assert.Equal(t, "", page.Tweets[1].RetweetOf())
	assert.Equal(t, time.Date(2019, 3, 18, 10, 0, 0, 0, time.UTC), page.Tweets[0].CreatedAt.UTC())
	assert.Len(t, page.Users(), 2)

	all := page.AllTweets()
	require.Len(t, all, 3)
	assert.Equal(t, "10", all[2].ID)
}

func TestFollowing(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/users/42/following", r.URL.Path)
		q := r.URL.Query()
		assert.Equal(t, "1000", q.Get("max_results"))
		assert.Equal(t, "username", q.Get("user.fields"))
		assert.Empty(t, q.Get("expansions"))
		if q.Get("pagination_token") == "" {
			fmt.Fprint(w, `{"data": [{"id": "1", "username": "a"}, {"id": "2", "username": "b"}], "meta": {"next_token": "p2"}}`)
			return
		}
		assert.Equal(t, "p2", q.Get("pagination_token"))
		fmt.Fprint(w, `{"data": [{"id": "3", "username": "c"}], "meta": {}}`)
	})

	page, err := c.Following(context.Background(), "42", common.DefaultRequestConfig, 1000, "")
	require.NoError(t, err)
	assert.Equal(t, "p2", page.NextToken)
	assert.Equal(t, []TwitterUser{{ID: "1", Username: "a"}, {ID: "2", Username: "b"}}, page.Users)

	page, err = c.Following(context.Background(), "42", common.DefaultRequestConfig, 1000, page.NextToken)
	require.NoError(t, err)
	assert.Empty(t, page.NextToken)
	assert.Len(t, page.Users, 1)
}

func TestThrottledIsRetried(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		fmt.Fprint(w, `{"data": {"id": "99"}}`)
	})

	id, err := c.GetUserID(context.Background(), "greta")
	require.NoError(t, err)
	assert.Equal(t, "99", id)
	assert.Equal(t, int32(3), calls.Load())
}

func TestThrottledGivesUp(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusTooManyRequests)
	})

	_, err := c.GetUserID(context.Background(), "greta")
	assert.ErrorIs(t, err, ErrThrottled)
	assert.Equal(t, int32(3), calls.Load())
}

func TestErrorStatusIsNotRetried(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
		fmt.Fprint(w, `{"title": "Unauthorized"}`)
	})

	_, err := c.Following(context.Background(), "42", common.DefaultRequestConfig, 10, "")
	assert.ErrorContains(t, err, "request failed with code 401")
	assert.Equal(t, int32(1), calls.Load())
}

func TestGetUserID_NotFound(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/users/by/username/ghost", r.URL.Path)
		fmt.Fprint(w, `{"errors": [{"title": "Not Found Error"}]}`)
	})
	_, err := c.GetUserID(context.Background(), "ghost")
	assert.ErrorContains(t, err, "not found")
}
