package monitoring

import (
	"context"
	"net/http"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/rotisserie/eris"

	"github.com/sells-group/brickwatch/internal/fetcher"
)

// hostGetter answers by URL prefix: a canned body, a block, or an error.
type hostGetter struct {
	bodies  map[string]string
	blocked map[string]bool
}

func (g *hostGetter) Get(_ context.Context, rawURL, _ string) (*fetcher.Page, error) {
	for prefix, body := range g.bodies {
		if strings.HasPrefix(rawURL, prefix) {
			doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
			if err != nil {
				return nil, err
			}
			return &fetcher.Page{URL: rawURL, Status: http.StatusOK, Header: http.Header{}, Body: []byte(body), Doc: doc}, nil
		}
	}
	for prefix := range g.blocked {
		if strings.HasPrefix(rawURL, prefix) {
			return nil, &fetcher.BlockedError{URL: rawURL, Type: fetcher.BlockCloudflare}
		}
	}
	return nil, eris.Errorf("unexpected status 404 from %s", rawURL)
}
