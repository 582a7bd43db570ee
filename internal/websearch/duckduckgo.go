// Package websearch is the last-resort evidence tier: one bounded
// HTTP GET against a search engine's HTML endpoint, parsed for result
// links. It runs only when the caller explicitly authorized going to
// the network, and its evidence is always weighted well below
// anything local.
package websearch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/net/html"

	"scout/internal/logging"
)

// ErrSearchFailed covers transport errors, non-200 responses, and
// unparseable bodies.
var ErrSearchFailed = errors.New("web search failed")

// maxBodyBytes caps how much response HTML is read.
const maxBodyBytes = 1 << 20

// Result is one search hit.
type Result struct {
	Title   string
	URL     string
	Snippet string
}

// Config controls the search client.
type Config struct {
	Endpoint   string
	UserAgent  string
	Timeout    time.Duration
	MaxResults int
}

// DefaultConfig returns the stock DuckDuckGo HTML configuration.
func DefaultConfig() Config {
	return Config{
		Endpoint:   "https://html.duckduckgo.com/html/",
		UserAgent:  "Mozilla/5.0 (compatible; scout-research/1.0)",
		Timeout:    10 * time.Second,
		MaxResults: 5,
	}
}

// Client queries the DuckDuckGo HTML endpoint. Safe for concurrent
// use.
type Client struct {
	cfg        Config
	httpClient *http.Client
}

// NewClient builds a client, filling zero config fields with defaults.
func NewClient(cfg Config) *Client {
	def := DefaultConfig()
	if cfg.Endpoint == "" {
		cfg.Endpoint = def.Endpoint
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = def.UserAgent
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}
	if cfg.MaxResults <= 0 {
		cfg.MaxResults = def.MaxResults
	}
	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
	}
}

// Search runs one query and returns up to MaxResults hits. An empty
// result set with a nil error means the search worked and found
// nothing.
func (c *Client) Search(ctx context.Context, query string) ([]Result, error) {
	reqURL := c.cfg.Endpoint + "?" + url.Values{"q": {query}}.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSearchFailed, err)
	}
	req.Header.Set("User-Agent", c.cfg.UserAgent)

	logging.WebsearchDebug("GET %s", reqURL)
	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		logging.WebsearchWarn("request failed: %v", err)
		logging.Audit().WebSearch(query, 0, time.Since(start).Milliseconds(), false, err.Error())
		return nil, fmt.Errorf("%w: %v", ErrSearchFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		logging.WebsearchWarn("unexpected status %d", resp.StatusCode)
		logging.Audit().WebSearch(query, 0, time.Since(start).Milliseconds(), false,
			fmt.Sprintf("status %d", resp.StatusCode))
		return nil, fmt.Errorf("%w: status %d", ErrSearchFailed, resp.StatusCode)
	}

	results, err := parseResults(io.LimitReader(resp.Body, maxBodyBytes), c.cfg.MaxResults)
	if err != nil {
		logging.Audit().WebSearch(query, 0, time.Since(start).Milliseconds(), false, err.Error())
		return nil, fmt.Errorf("%w: %v", ErrSearchFailed, err)
	}

	logging.Websearch("query %q: %d results in %s", query, len(results), time.Since(start))
	logging.Audit().WebSearch(query, len(results), time.Since(start).Milliseconds(), true, "")
	return results, nil
}

// Confidence maps a result count to tier confidence. Web evidence is
// capped low: it corroborates, it never decides.
func Confidence(results int) float64 {
	if results <= 0 {
		return 0
	}
	c := 0.4 + 0.05*float64(results-1)
	if c > 0.55 {
		c = 0.55
	}
	return c
}

// parseResults walks the HTML for result anchors. DuckDuckGo marks
// each hit with an a.result__a link followed by a result__snippet
// element.
func parseResults(r io.Reader, max int) ([]Result, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, err
	}

	var results []Result
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if len(results) > max {
			return
		}
		if n.Type == html.ElementNode {
			switch {
			case n.Data == "a" && hasClass(n, "result__a"):
				results = append(results, Result{
					Title: textContent(n),
					URL:   decodeRedirect(attrVal(n, "href")),
				})
			case hasClass(n, "result__snippet"):
				if len(results) > 0 && results[len(results)-1].Snippet == "" {
					results[len(results)-1].Snippet = textContent(n)
				}
			}
		}
		for child := n.FirstChild; child != nil; child = child.NextSibling {
			walk(child)
		}
	}
	walk(doc)

	if len(results) > max {
		results = results[:max]
	}
	return results, nil
}

// decodeRedirect unwraps DuckDuckGo's /l/?uddg= redirect links to the
// real target URL.
func decodeRedirect(href string) string {
	u, err := url.Parse(href)
	if err != nil {
		return href
	}
	if target := u.Query().Get("uddg"); target != "" {
		return target
	}
	return href
}

func attrVal(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func hasClass(n *html.Node, class string) bool {
	for _, c := range strings.Fields(attrVal(n, "class")) {
		if c == class {
			return true
		}
	}
	return false
}

func textContent(n *html.Node) string {
	var b strings.Builder
	var collect func(*html.Node)
	collect = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
		for child := n.FirstChild; child != nil; child = child.NextSibling {
			collect(child)
		}
	}
	collect(n)
	return strings.Join(strings.Fields(b.String()), " ")
}
