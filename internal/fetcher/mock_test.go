package fetcher

import (
	"context"
	"net/http"
	"strings"
	"sync"

	"github.com/PuerkitoBio/goquery"
)

type fakeResponse struct {
	status int
	body   string
	err    error
}

// fakeGetter serves canned pages by URL and records every request.
type fakeGetter struct {
	mu       sync.Mutex
	pages    map[string]fakeResponse
	requests []string
}

func newFakeGetter() *fakeGetter {
	return &fakeGetter{pages: make(map[string]fakeResponse)}
}

func (f *fakeGetter) page(url, body string) *fakeGetter {
	f.pages[url] = fakeResponse{status: http.StatusOK, body: body}
	return f
}

func (f *fakeGetter) fail(url string, err error) *fakeGetter {
	f.pages[url] = fakeResponse{err: err}
	return f
}

func (f *fakeGetter) Get(ctx context.Context, rawURL, _ string) (*Page, error) {
	f.mu.Lock()
	f.requests = append(f.requests, rawURL)
	resp, ok := f.pages[rawURL]
	f.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !ok {
		return nil, &BlockedError{URL: rawURL, Type: BlockCaptcha}
	}
	if resp.err != nil {
		return nil, resp.err
	}
	d, err := goquery.NewDocumentFromReader(strings.NewReader(resp.body))
	if err != nil {
		return nil, err
	}
	return &Page{URL: rawURL, Status: resp.status, Header: http.Header{}, Body: []byte(resp.body), Doc: d}, nil
}

func (f *fakeGetter) requested(url string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.requests {
		if r == url {
			return true
		}
	}
	return false
}
