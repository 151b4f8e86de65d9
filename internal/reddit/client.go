// Package reddit is a minimal Reddit API client for one-shot data extraction:
// app-only OAuth2 authentication, a paced top-listing query, and full comment
// forest retrieval with morechildren expansion.
package reddit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	pkgerrs "subsheet/pkg/errors"
)

const (
	// DefaultBaseURL is the authenticated Reddit API base URL.
	DefaultBaseURL = "https://oauth.reddit.com/"
	// DefaultAuthURL is the Reddit OAuth token base URL.
	DefaultAuthURL = "https://www.reddit.com/"
	// DefaultTimeout is the default HTTP client timeout.
	DefaultTimeout = 30 * time.Second

	// defaultRequestsPerMinute and defaultBurst pace outgoing requests.
	// Reddit allows 60 requests per minute for app-only clients; failures
	// beyond the pacing (e.g. a 429) terminate the run rather than retry.
	defaultRequestsPerMinute = 60
	defaultBurst             = 10

	// listingPageSize is Reddit's per-request listing maximum.
	listingPageSize = 100
	// maxMoreIDs is the morechildren endpoint's per-request ID cap.
	maxMoreIDs = 100
)

// Operation names recorded on FetchErrors.
const (
	opTopPosts      = "TopPosts"
	opCommentForest = "CommentForest"
	opMoreChildren  = "MoreChildren"
)

// Config holds everything the client needs. ClientID and ClientSecret are
// required; the rest defaults sensibly.
type Config struct {
	ClientID     string
	ClientSecret string

	// UserAgent identifies the application to Reddit. Reddit throttles
	// generic agents aggressively, so callers should set a descriptive one.
	UserAgent string

	// BaseURL and AuthURL override the Reddit endpoints, used by tests.
	BaseURL string
	AuthURL string

	// HTTPClient defaults to a client with DefaultTimeout.
	HTTPClient *http.Client

	// Logger receives debug/info diagnostics. Defaults to slog.Default().
	Logger *slog.Logger

	// RequestsPerMinute and Burst tune the pacing limiter. Zero values use
	// the package defaults.
	RequestsPerMinute float64
	Burst             int
}

// Client talks to the Reddit API. Create it with New, then call Connect (or
// let the first operation connect lazily).
type Client struct {
	http      *http.Client
	baseURL   *url.URL
	userAgent string
	auth      *Authenticator
	parser    *Parser
	limiter   *rate.Limiter
	logger    *slog.Logger

	connectOnce sync.Once
	connectErr  error
	token       string
}

// TopPostsQuery selects posts from a subreddit's all-time top listing.
// Start and End bound the creation time inclusively; Limit caps how many of
// the highest-scoring in-window posts are returned.
type TopPostsQuery struct {
	Subreddit string
	Start     time.Time
	End       time.Time
	Limit     int
}

// ForestQuery identifies the post whose comment forest to fetch.
type ForestQuery struct {
	Subreddit string
	PostID    string
}

// New creates a client from the given configuration. It validates the
// credentials and wires the authenticator and pacing limiter; no network
// traffic happens until Connect.
func New(cfg *Config) (*Client, error) {
	if cfg == nil {
		return nil, &pkgerrs.ConfigError{Message: "client config cannot be nil"}
	}
	if cfg.ClientID == "" || cfg.ClientSecret == "" {
		return nil, &pkgerrs.ConfigError{Field: "credentials", Message: "client ID and client secret are required"}
	}

	userAgent := cfg.UserAgent
	if userAgent == "" {
		return nil, &pkgerrs.ConfigError{Field: "user_agent", Message: "user agent is required"}
	}

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	authURL := cfg.AuthURL
	if authURL == "" {
		authURL = DefaultAuthURL
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: DefaultTimeout}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	parsedBase, err := url.Parse(baseURL)
	if err != nil {
		return nil, &pkgerrs.ConfigError{Field: "base_url", Message: fmt.Sprintf("invalid base URL: %v", err)}
	}
	if !strings.HasSuffix(parsedBase.Path, "/") {
		parsedBase.Path += "/"
	}

	auth, err := NewAuthenticator(httpClient, cfg.ClientID, cfg.ClientSecret, userAgent, authURL)
	if err != nil {
		return nil, err
	}

	return &Client{
		http:      httpClient,
		baseURL:   parsedBase,
		userAgent: userAgent,
		auth:      auth,
		parser:    NewParser(),
		limiter:   buildLimiter(cfg.RequestsPerMinute, cfg.Burst),
		logger:    logger,
	}, nil
}

func buildLimiter(requestsPerMinute float64, burst int) *rate.Limiter {
	if requestsPerMinute <= 0 {
		requestsPerMinute = defaultRequestsPerMinute
	}
	if burst <= 0 {
		burst = defaultBurst
	}
	return rate.NewLimiter(rate.Limit(requestsPerMinute/60.0), burst)
}

// Connect fetches the access token. It is safe to call multiple times; the
// token is fetched once and reused for the lifetime of the client.
func (c *Client) Connect(ctx context.Context) error {
	c.connectOnce.Do(func() {
		token, err := c.auth.GetToken(ctx)
		if err != nil {
			c.connectErr = err
			return
		}
		c.token = token
		c.logger.Debug("authenticated with reddit")
	})
	return c.connectErr
}

func (c *Client) ensureConnected(ctx context.Context) error {
	return c.Connect(ctx)
}

// newRequest builds an authenticated API request for a path relative to the
// base URL.
func (c *Client) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	u, err := c.baseURL.Parse(path)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return nil, err
	}

	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("User-Agent", c.userAgent)
	return req, nil
}

// do paces the request through the limiter, executes it, and returns the
// response body. Any failure, including a non-2xx status, becomes a
// FetchError; there are no retries.
func (c *Client) do(req *http.Request, operation string) ([]byte, error) {
	if err := c.limiter.Wait(req.Context()); err != nil {
		return nil, &pkgerrs.FetchError{Operation: operation, URL: req.URL.String(), Err: err}
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &pkgerrs.FetchError{Operation: operation, URL: req.URL.String(), Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &pkgerrs.FetchError{
			Operation:  operation,
			URL:        req.URL.String(),
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("failed to read response body: %w", err),
		}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &pkgerrs.FetchError{
			Operation:  operation,
			URL:        req.URL.String(),
			StatusCode: resp.StatusCode,
		}
	}

	return body, nil
}

// TopPosts pages through the subreddit's all-time top listing, keeps posts
// created within [Start, End], and returns the Limit highest-scoring ones in
// descending score order. Reddit stops serving listing pages after roughly a
// thousand items; the walk simply ends where the listing does.
func (c *Client) TopPosts(ctx context.Context, q *TopPostsQuery) ([]*Post, error) {
	if err := c.ensureConnected(ctx); err != nil {
		return nil, err
	}
	if q == nil || q.Subreddit == "" {
		return nil, &pkgerrs.FetchError{Operation: opTopPosts, Err: errors.New("subreddit is required")}
	}

	var kept []*Post
	seen := 0
	after := ""
	for {
		req, err := c.newRequest(ctx, http.MethodGet, "r/"+q.Subreddit+"/top", nil)
		if err != nil {
			return nil, &pkgerrs.FetchError{Operation: opTopPosts, Err: err}
		}
		qs := req.URL.Query()
		qs.Set("t", "all")
		qs.Set("limit", strconv.Itoa(listingPageSize))
		if after != "" {
			qs.Set("after", after)
		}
		req.URL.RawQuery = qs.Encode()

		body, err := c.do(req, opTopPosts)
		if err != nil {
			return nil, err
		}

		var thing Thing
		if err := json.Unmarshal(body, &thing); err != nil {
			return nil, &pkgerrs.FetchError{Operation: opTopPosts, URL: req.URL.String(), Err: err}
		}
		listing, err := c.parser.ParseListing(&thing)
		if err != nil {
			return nil, &pkgerrs.FetchError{Operation: opTopPosts, URL: req.URL.String(), Err: err}
		}
		posts, err := c.parser.ExtractPosts(listing)
		if err != nil {
			return nil, &pkgerrs.FetchError{Operation: opTopPosts, URL: req.URL.String(), Err: err}
		}

		seen += len(posts)
		for _, post := range posts {
			created := time.Unix(int64(post.CreatedUTC), 0).UTC()
			if created.Before(q.Start) || created.After(q.End) {
				continue
			}
			kept = append(kept, post)
		}

		c.logger.Debug("fetched top listing page",
			"subreddit", q.Subreddit, "page_posts", len(posts), "in_window", len(kept), "after", listing.After)

		if listing.After == "" || len(listing.Children) == 0 {
			break
		}
		after = listing.After
	}

	sort.SliceStable(kept, func(i, j int) bool { return kept[i].Score > kept[j].Score })
	if q.Limit > 0 && len(kept) > q.Limit {
		kept = kept[:q.Limit]
	}

	c.logger.Debug("top posts selected", "subreddit", q.Subreddit, "scanned", seen, "selected", len(kept))
	return kept, nil
}

// CommentForest fetches the complete comment forest of a post: the initial
// comments listing plus every truncated comment reachable through "more"
// stubs, expanded batch by batch until none remain. Comments are returned
// flat, each carrying its ParentID.
func (c *Client) CommentForest(ctx context.Context, q *ForestQuery) ([]*Comment, error) {
	if err := c.ensureConnected(ctx); err != nil {
		return nil, err
	}
	if q == nil || q.Subreddit == "" || q.PostID == "" {
		return nil, &pkgerrs.FetchError{Operation: opCommentForest, Err: errors.New("subreddit and post ID are required")}
	}

	req, err := c.newRequest(ctx, http.MethodGet, "r/"+q.Subreddit+"/comments/"+q.PostID, nil)
	if err != nil {
		return nil, &pkgerrs.FetchError{Operation: opCommentForest, Err: err}
	}

	body, err := c.do(req, opCommentForest)
	if err != nil {
		return nil, err
	}

	things, err := c.parser.SplitCommentsResponse(body)
	if err != nil {
		return nil, &pkgerrs.FetchError{Operation: opCommentForest, URL: req.URL.String(), Err: err}
	}

	// [post listing, comments listing], or a bare comments listing.
	commentsThing := things[0]
	if len(things) >= 2 {
		commentsThing = things[1]
	}

	comments, pending, err := c.parser.FlattenComments(commentsThing)
	if err != nil {
		return nil, &pkgerrs.FetchError{Operation: opCommentForest, URL: req.URL.String(), Err: err}
	}

	// Drain the "more" queue. Each batch may surface further stubs, which
	// are requeued; already-requested IDs are dropped so a misbehaving
	// response cannot loop the walk.
	requested := make(map[string]struct{}, len(pending))
	for len(pending) > 0 {
		batch := make([]string, 0, maxMoreIDs)
		for len(pending) > 0 && len(batch) < maxMoreIDs {
			id := pending[0]
			pending = pending[1:]
			if _, ok := requested[id]; ok {
				continue
			}
			requested[id] = struct{}{}
			batch = append(batch, id)
		}
		if len(batch) == 0 {
			break
		}

		moreComments, nested, err := c.moreChildren(ctx, q.PostID, batch)
		if err != nil {
			return nil, err
		}
		comments = append(comments, moreComments...)
		pending = append(pending, nested...)
	}

	c.logger.Debug("comment forest fetched",
		"subreddit", q.Subreddit, "post_id", q.PostID, "comments", len(comments), "expanded_ids", len(requested))
	return comments, nil
}

// moreChildren loads one batch of truncated comments via POST
// api/morechildren. It returns the comments plus IDs of any nested "more"
// stubs in the response.
func (c *Client) moreChildren(ctx context.Context, postID string, ids []string) ([]*Comment, []string, error) {
	if len(ids) == 0 {
		return nil, nil, nil
	}

	linkID := postID
	if !strings.HasPrefix(linkID, postPrefix) {
		linkID = postPrefix + linkID
	}

	form := url.Values{}
	form.Set("link_id", linkID)
	form.Set("children", strings.Join(ids, ","))
	form.Set("api_type", "json")

	req, err := c.newRequest(ctx, http.MethodPost, "api/morechildren", strings.NewReader(form.Encode()))
	if err != nil {
		return nil, nil, &pkgerrs.FetchError{Operation: opMoreChildren, Err: err}
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	body, err := c.do(req, opMoreChildren)
	if err != nil {
		return nil, nil, err
	}

	var response struct {
		JSON struct {
			Errors [][]string `json:"errors"`
			Data   struct {
				Things []*Thing `json:"things"`
			} `json:"data"`
		} `json:"json"`
	}
	if err := json.Unmarshal(body, &response); err != nil {
		return nil, nil, &pkgerrs.FetchError{Operation: opMoreChildren, URL: req.URL.String(), Err: err}
	}
	if len(response.JSON.Errors) > 0 {
		return nil, nil, &pkgerrs.FetchError{
			Operation: opMoreChildren,
			URL:       req.URL.String(),
			Err:       fmt.Errorf("api error: %v", response.JSON.Errors[0]),
		}
	}

	return c.parser.FlattenThings(response.JSON.Data.Things)
}
