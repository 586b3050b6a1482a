package twitter

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/failsafe-go/failsafe-go"
	"github.com/failsafe-go/failsafe-go/retrypolicy"
	"github.com/sirupsen/logrus"

	"github.com/rusni-pyzda/twitter-cascades/common"
)

const DefaultBaseURL = "https://api.twitter.com/2"

var ErrThrottled = fmt.Errorf("throttled")

// Client talks to the Twitter v2 API. Throttled requests are retried with
// exponential backoff; once retries run out ErrThrottled is returned.
type Client struct {
	token   string
	baseURL string
	http    *http.Client
	log     logrus.FieldLogger

	maxRetries int
	baseDelay  time.Duration
	maxDelay   time.Duration
	executor   failsafe.Executor[[]byte]
}

type Option func(*Client)

func WithBaseURL(u string) Option { return func(c *Client) { c.baseURL = u } }

func WithHTTPClient(h *http.Client) Option { return func(c *Client) { c.http = h } }

func WithLogger(l logrus.FieldLogger) Option { return func(c *Client) { c.log = l } }

// WithRetry tunes the backoff applied to throttled requests.
func WithRetry(maxRetries int, baseDelay, maxDelay time.Duration) Option {
	return func(c *Client) {
		c.maxRetries = maxRetries
		c.baseDelay = baseDelay
		c.maxDelay = maxDelay
	}
}

func NewClient(token string, opts ...Option) (*Client, error) {
	if token == "" {
		return nil, fmt.Errorf("missing twitter bearer token")
	}
	c := &Client{
		token:      token,
		baseURL:    DefaultBaseURL,
		http:       http.DefaultClient,
		maxRetries: 5,
		baseDelay:  15 * time.Second,
		maxDelay:   15 * time.Minute,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.log == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		c.log = l
	}
	if c.maxDelay < c.baseDelay {
		c.maxDelay = c.baseDelay
	}
	retry := retrypolicy.NewBuilder[[]byte]().
		HandleIf(func(_ []byte, err error) bool {
			return errors.Is(err, ErrThrottled)
		}).
		WithBackoff(c.baseDelay, c.maxDelay).
		WithMaxRetries(c.maxRetries).
		ReturnLastFailure().
		Build()
	c.executor = failsafe.With[[]byte](retry)
	return c, nil
}

func (c *Client) get(ctx context.Context, path string, params url.Values) ([]byte, error) {
	u := c.baseURL + path
	if encoded := params.Encode(); len(encoded) > 0 {
		u += "?" + encoded
	}
	return c.executor.WithContext(ctx).Get(func() ([]byte, error) {
		return c.do(ctx, u)
	})
}

func (c *Client) do(ctx context.Context, u string) ([]byte, error) {
	c.log.Debugf("GET %s", u)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("building the request: %w", err)
	}

	req.Header.Add("Accept", "application/json")
	req.Header.Add("Authorization", fmt.Sprintf("Bearer %s", c.token))

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("sending the request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		c.log.WithField("reset", resp.Header.Get("x-rate-limit-reset")).Warn("Throttled")
		return nil, ErrThrottled
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("reading body from an error response (code %d): %w", resp.StatusCode, err)
		}
		return nil, fmt.Errorf("reading response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("request failed with code %d: %s", resp.StatusCode, body)
	}
	return body, nil
}

// SearchAll fetches one page of full-archive search results for query
// within [start, end). An empty nextToken fetches the first page.
func (c *Client) SearchAll(ctx context.Context, s common.Search, config common.RequestConfig, maxResults int, nextToken string) (SearchPage, error) {
	params := config.QueryParams(maxResults)
	params.Set("query", s.Query)
	if !s.StartTime.IsZero() {
		params.Set("start_time", s.StartTime.UTC().Format(time.RFC3339))
	}
	if !s.EndTime.IsZero() {
		params.Set("end_time", s.EndTime.UTC().Format(time.RFC3339))
	}
	if nextToken != "" {
		params.Set("next_token", nextToken)
	}

	body, err := c.get(ctx, "/tweets/search/all", params)
	if err != nil {
		return SearchPage{}, err
	}
	d := struct {
		Data     []Tweet       `json:"data"`
		Includes TweetIncludes `json:"includes"`
		Meta     Meta          `json:"meta"`
	}{}
	if err := json.Unmarshal(body, &d); err != nil {
		return SearchPage{}, fmt.Errorf("decoding response: %w", err)
	}
	return SearchPage{Tweets: d.Data, Includes: d.Includes, NextToken: d.Meta.NextToken}, nil
}

// Following fetches one page of the accounts userID follows.
func (c *Client) Following(ctx context.Context, userID string, config common.RequestConfig, maxResults int, nextToken string) (FollowingPage, error) {
	params := config.UsersOnly().QueryParams(maxResults)
	if nextToken != "" {
		params.Set("pagination_token", nextToken)
	}

	body, err := c.get(ctx, fmt.Sprintf("/users/%s/following", url.PathEscape(userID)), params)
	if err != nil {
		return FollowingPage{}, err
	}
	d := struct {
		Data []TwitterUser `json:"data"`
		Meta Meta          `json:"meta"`
	}{}
	if err := json.Unmarshal(body, &d); err != nil {
		return FollowingPage{}, fmt.Errorf("decoding response: %w", err)
	}
	return FollowingPage{Users: d.Data, NextToken: d.Meta.NextToken}, nil
}

// GetUserID resolves a username to its account id.
func (c *Client) GetUserID(ctx context.Context, username string) (string, error) {
	body, err := c.get(ctx, fmt.Sprintf("/users/by/username/%s", url.PathEscape(username)), nil)
	if err != nil {
		return "", err
	}
	v := struct {
		Data struct {
			ID string `json:"id"`
		} `json:"data"`
	}{}
	if err := json.Unmarshal(body, &v); err != nil {
		return "", fmt.Errorf("decoding response: %w", err)
	}
	if v.Data.ID == "" {
		return "", fmt.Errorf("user %q not found", username)
	}
	return v.Data.ID, nil
}
