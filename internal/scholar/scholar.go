// Package scholar queries the OpenAlex works index for academic papers.
package scholar

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/dgallion1/scholarly/internal/breaker"
)

const (
	DefaultBaseURL = "https://api.openalex.org"
	DefaultTimeout = 10 * time.Second
	DefaultPerPage = 8

	unknownAuthor = "Unknown"
)

// ErrEmptyQuery is returned when the search text is blank.
var ErrEmptyQuery = errors.New("search query is empty")

// Paper is one search hit.
type Paper struct {
	Title   string   `json:"title"`
	Authors []string `json:"authors"`
	Year    *int     `json:"year"`
	Link    string   `json:"link"`
}

// StatusError is a non-200 response from the index.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	body := e.Body
	if len(body) > 200 {
		body = body[:200] + "..."
	}
	return fmt.Sprintf("openalex status %d: %s", e.StatusCode, body)
}

// Client searches OpenAlex. Every call is bounded by the client timeout.
type Client struct {
	baseURL    string
	perPage    int
	httpClient *http.Client
	breaker    *breaker.Breaker
	log        *slog.Logger
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithPerPage sets the number of results requested.
func WithPerPage(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.perPage = n
		}
	}
}

// WithBreaker replaces the default circuit breaker.
func WithBreaker(b *breaker.Breaker) Option {
	return func(c *Client) { c.breaker = b }
}

// NewClient creates a client. Empty baseURL and non-positive timeout use the defaults.
func NewClient(baseURL string, timeout time.Duration, log *slog.Logger, opts ...Option) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if log == nil {
		log = slog.Default()
	}
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		perPage:    DefaultPerPage,
		httpClient: &http.Client{Timeout: timeout},
		log:        log,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.breaker == nil {
		c.breaker = breaker.New(breaker.SearchConfig(), isUpstreamFailure, log)
	}
	return c
}

func isUpstreamFailure(err error) bool {
	var se *StatusError
	if errors.As(err, &se) {
		return se.StatusCode == http.StatusTooManyRequests || se.StatusCode >= 500
	}
	return err != nil
}

type authorship struct {
	Author *struct {
		DisplayName string `json:"display_name"`
	} `json:"author"`
}

type work struct {
	ID              string       `json:"id"`
	Title           string       `json:"title"`
	PublicationYear *int         `json:"publication_year"`
	Authorships     []authorship `json:"authorships"`
}

type worksResponse struct {
	Results []work `json:"results"`
}

// Search returns papers whose title matches query, in index order.
func (c *Client) Search(ctx context.Context, query string) ([]Paper, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, ErrEmptyQuery
	}

	var papers []Paper
	err := c.breaker.Do(ctx, func() error {
		var err error
		papers, err = c.search(ctx, query)
		return err
	})
	if err != nil {
		return nil, err
	}
	return papers, nil
}

func (c *Client) search(ctx context.Context, query string) ([]Paper, error) {
	// Commas separate filters in OpenAlex syntax.
	params := url.Values{}
	params.Set("filter", "title.search:"+strings.ReplaceAll(query, ",", " "))
	params.Set("per-page", fmt.Sprint(c.perPage))
	endpoint := c.baseURL + "/works?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	c.log.Debug("openalex search", "query", query, "per_page", c.perPage)
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("openalex request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &StatusError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	var works worksResponse
	if err := json.Unmarshal(body, &works); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	papers := make([]Paper, 0, len(works.Results))
	for _, w := range works.Results {
		papers = append(papers, Paper{
			Title:   w.Title,
			Authors: authorNames(w.Authorships),
			Year:    w.PublicationYear,
			Link:    w.ID,
		})
	}
	return papers, nil
}

// authorNames drops authorships without a display name. An empty result
// becomes a single "Unknown".
func authorNames(authorships []authorship) []string {
	var names []string
	for _, a := range authorships {
		if a.Author == nil || a.Author.DisplayName == "" {
			continue
		}
		names = append(names, a.Author.DisplayName)
	}
	if len(names) == 0 {
		return []string{unknownAuthor}
	}
	return names
}
