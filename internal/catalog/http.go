package catalog

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/dmaytorres/trackvault/internal/domain"
	"github.com/dmaytorres/trackvault/internal/httpclient"
)

// HTTPProvider streams tracks from a catalog service over HTTP.
type HTTPProvider struct {
	baseURL string
	name    string
	client  *httpclient.Client
}

func NewHTTPProvider(name, baseURL string, client *httpclient.Client) *HTTPProvider {
	if client == nil {
		client = httpclient.NewClient(nil, 0)
	}
	return &HTTPProvider{
		baseURL: baseURL,
		name:    name,
		client:  client,
	}
}

func (p *HTTPProvider) Name() string {
	return p.name
}

func (p *HTTPProvider) GetStreamSource(ctx context.Context, trackID, quality string) (*StreamSource, error) {
	endpoint := fmt.Sprintf("%s/track/%s/stream?quality=%s", p.baseURL, url.PathEscape(trackID), url.QueryEscape(quality))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build stream request: %w", err)
	}

	resp, err := p.client.Do(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrTransientNetwork, err)
	}

	switch {
	case resp.StatusCode == http.StatusOK:
	case resp.StatusCode == http.StatusNotFound, resp.StatusCode == http.StatusGone:
		resp.Body.Close()
		return nil, domain.ErrSourceUnavailable
	default:
		resp.Body.Close()
		return nil, fmt.Errorf("%w: stream request returned status %d", domain.ErrTransientNetwork, resp.StatusCode)
	}

	return &StreamSource{
		Body:       resp.Body,
		MimeType:   resp.Header.Get("Content-Type"),
		TotalBytes: resp.ContentLength,
	}, nil
}
