package fetcher

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"
	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"

	"github.com/sells-group/brickwatch/internal/resilience"
)

// ClientOptions configures page retrieval.
type ClientOptions struct {
	UserAgent         string
	AcceptLanguage    string
	Timeout           time.Duration
	MaxRetries        int
	RequestsPerSecond float64       // per host; <= 0 disables limiting
	Backoff           time.Duration // first retry delay; 0 keeps the default
}

// BlockedError reports an anti-bot page. It is never retried.
type BlockedError struct {
	URL  string
	Type BlockType
}

func (e *BlockedError) Error() string {
	return fmt.Sprintf("blocked by %s at %s", e.Type, e.URL)
}

// Page is a fetched and parsed HTML page.
type Page struct {
	URL    string
	Status int
	Header http.Header
	Body   []byte
	Doc    *goquery.Document
}

// Client fetches merchant pages politely: one limiter per host, retries
// only on transient failures.
type Client struct {
	http     *resty.Client
	limiters *hostLimiters
	retry    resilience.RetryConfig
}

// NewClient creates a Client.
func NewClient(opts ClientOptions) *Client {
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	hc := resty.New().
		SetTimeout(opts.Timeout).
		SetRetryCount(0)
	if opts.UserAgent != "" {
		hc.SetHeader("User-Agent", opts.UserAgent)
	}
	if opts.AcceptLanguage != "" {
		hc.SetHeader("Accept-Language", opts.AcceptLanguage)
	}

	limit := rate.Inf
	if opts.RequestsPerSecond > 0 {
		limit = rate.Limit(opts.RequestsPerSecond)
	}

	retry := resilience.WithRetries(opts.MaxRetries)
	if opts.Backoff > 0 {
		retry.InitialBackoff = opts.Backoff
		retry.MaxBackoff = 4 * opts.Backoff
	}

	return &Client{
		http:     hc,
		limiters: newHostLimiters(limit),
		retry:    retry,
	}
}

// Get fetches rawURL. cookie, when set, is sent verbatim as the Cookie
// header. Non-2xx responses become errors: anti-bot pages as
// *BlockedError, 408/429/5xx as transient errors that are retried.
func (c *Client) Get(ctx context.Context, rawURL, cookie string) (*Page, error) {
	lim := c.limiters.forURL(rawURL)
	cfg := c.retry
	cfg.OnRetry = resilience.RetryLogger("fetcher", rawURL)

	return resilience.DoVal(ctx, cfg, func(ctx context.Context) (*Page, error) {
		if err := lim.Wait(ctx); err != nil {
			return nil, eris.Wrap(err, "fetcher: rate limiter wait")
		}

		req := c.http.R().SetContext(ctx)
		if cookie != "" {
			req.SetHeader("Cookie", cookie)
		}
		resp, err := req.Get(rawURL)
		if err != nil {
			return nil, eris.Wrapf(err, "fetcher: get %s", rawURL)
		}

		status := resp.StatusCode()
		if status == http.StatusTooManyRequests {
			lim.OnRateLimit()
		}
		if status < 200 || status > 299 {
			if bt := DetectBlock(status, resp.Header(), resp.Body()); bt != BlockNone {
				return nil, &BlockedError{URL: rawURL, Type: bt}
			}
			return nil, resilience.StatusError(status, rawURL)
		}
		lim.OnSuccess()

		doc, err := goquery.NewDocumentFromReader(bytes.NewReader(resp.Body()))
		if err != nil {
			return nil, eris.Wrapf(err, "fetcher: parse html from %s", rawURL)
		}
		return &Page{
			URL:    rawURL,
			Status: status,
			Header: resp.Header(),
			Body:   resp.Body(),
			Doc:    doc,
		}, nil
	})
}
