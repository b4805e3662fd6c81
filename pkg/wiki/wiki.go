// Package wiki looks up short encyclopedia summaries through the
// MediaWiki Action API.
//
// A lookup searches for the best matching title, then fetches the plain
// text intro limited to a number of sentences. Titles that resolve to a
// disambiguation page yield a *DisambiguationError listing candidates.
package wiki

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/teslashibe/go-dora/internal/httpc"
)

// DefaultBaseURL is the English Wikipedia API endpoint.
const DefaultBaseURL = "https://en.wikipedia.org/w/api.php"

// DefaultSentences is the summary length used by the assistant.
const DefaultSentences = 2

var (
	// ErrNotFound is returned when no page matches the query.
	ErrNotFound = errors.New("wiki: page not found")

	// ErrEmptyQuery is returned for blank queries.
	ErrEmptyQuery = errors.New("wiki: empty query")
)

// DisambiguationError reports an ambiguous title and its candidate pages.
type DisambiguationError struct {
	Title   string
	Options []string
}

func (e *DisambiguationError) Error() string {
	return fmt.Sprintf("wiki: %q may refer to: %s", e.Title, strings.Join(e.Options, ", "))
}

// APIError is a non-200 response or an error object from the API.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("wiki: API error %d (%s): %s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("wiki: API error %d: %s", e.StatusCode, e.Message)
}

// Client queries a MediaWiki installation.
type Client struct {
	baseURL string
	http    *http.Client
	logger  *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL points the client at another MediaWiki api.php.
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = u }
}

// WithHTTPClient sets the HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// NewClient creates a client for English Wikipedia.
func NewClient(opts ...Option) *Client {
	c := &Client{
		baseURL: DefaultBaseURL,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.http = httpc.OrDefault(c.http)
	c.logger = c.logger.With("component", "wiki")
	return c
}

// Summary returns the first sentences of the page best matching query.
func (c *Client) Summary(ctx context.Context, query string, sentences int) (string, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return "", ErrEmptyQuery
	}
	if sentences <= 0 {
		sentences = DefaultSentences
	}

	title, err := c.Search(ctx, query)
	if err != nil {
		return "", err
	}

	page, err := c.page(ctx, title, sentences)
	if err != nil {
		return "", err
	}

	if page.disambiguation() {
		options, err := c.links(ctx, page.Title)
		if err != nil {
			return "", err
		}
		return "", &DisambiguationError{Title: page.Title, Options: options}
	}

	extract := strings.TrimSpace(page.Extract)
	if extract == "" {
		return "", fmt.Errorf("%w: %s", ErrNotFound, page.Title)
	}

	c.logger.Debug("summary", "query", query, "title", page.Title, "chars", len(extract))
	return extract, nil
}

// Search returns the best matching page title, falling back to the API's
// spelling suggestion when the search comes back empty.
func (c *Client) Search(ctx context.Context, query string) (string, error) {
	return c.search(ctx, query, true)
}

func (c *Client) search(ctx context.Context, query string, suggest bool) (string, error) {
	params := url.Values{
		"action":   {"query"},
		"list":     {"search"},
		"srsearch": {query},
		"srlimit":  {"1"},
		"srinfo":   {"suggestion"},
		"srprop":   {""},
	}

	var resp struct {
		Query struct {
			SearchInfo struct {
				Suggestion string `json:"suggestion"`
			} `json:"searchinfo"`
			Search []struct {
				Title string `json:"title"`
			} `json:"search"`
		} `json:"query"`
	}
	if err := c.get(ctx, params, &resp); err != nil {
		return "", err
	}

	if len(resp.Query.Search) > 0 {
		return resp.Query.Search[0].Title, nil
	}
	if s := resp.Query.SearchInfo.Suggestion; suggest && s != "" && !strings.EqualFold(s, query) {
		return c.search(ctx, s, false)
	}
	return "", fmt.Errorf("%w: %s", ErrNotFound, query)
}

type page struct {
	Title     string            `json:"title"`
	Missing   *json.RawMessage  `json:"missing"`
	Extract   string            `json:"extract"`
	PageProps map[string]string `json:"pageprops"`
}

func (p *page) disambiguation() bool {
	_, ok := p.PageProps["disambiguation"]
	return ok
}

func (c *Client) page(ctx context.Context, title string, sentences int) (*page, error) {
	params := url.Values{
		"action":      {"query"},
		"prop":        {"extracts|pageprops"},
		"ppprop":      {"disambiguation"},
		"exintro":     {"1"},
		"explaintext": {"1"},
		"exsentences": {strconv.Itoa(sentences)},
		"redirects":   {"1"},
		"titles":      {title},
	}

	var resp struct {
		Query struct {
			Pages []page `json:"pages"`
		} `json:"query"`
	}
	if err := c.get(ctx, params, &resp); err != nil {
		return nil, err
	}

	if len(resp.Query.Pages) == 0 || resp.Query.Pages[0].Missing != nil {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, title)
	}
	return &resp.Query.Pages[0], nil
}

// links lists article links on a disambiguation page.
func (c *Client) links(ctx context.Context, title string) ([]string, error) {
	params := url.Values{
		"action":      {"query"},
		"prop":        {"links"},
		"plnamespace": {"0"},
		"pllimit":     {"max"},
		"titles":      {title},
	}

	var resp struct {
		Query struct {
			Pages []struct {
				Links []struct {
					Title string `json:"title"`
				} `json:"links"`
			} `json:"pages"`
		} `json:"query"`
	}
	if err := c.get(ctx, params, &resp); err != nil {
		return nil, err
	}

	var options []string
	for _, p := range resp.Query.Pages {
		for _, l := range p.Links {
			options = append(options, l.Title)
		}
	}
	return options, nil
}

func (c *Client) get(ctx context.Context, params url.Values, out any) error {
	params.Set("format", "json")
	params.Set("formatversion", "2")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return err
	}
	req.Header.Set("User-Agent", httpc.UserAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("wiki: request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return &APIError{StatusCode: resp.StatusCode, Message: resp.Status}
	}

	var envelope struct {
		Error *struct {
			Code string `json:"code"`
			Info string `json:"info"`
		} `json:"error"`
	}
	var raw json.RawMessage
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return fmt.Errorf("wiki: decode response: %w", err)
	}
	if err := json.Unmarshal(raw, &envelope); err == nil && envelope.Error != nil {
		return &APIError{StatusCode: resp.StatusCode, Code: envelope.Error.Code, Message: envelope.Error.Info}
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("wiki: decode response: %w", err)
	}
	return nil
}
