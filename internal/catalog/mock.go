package catalog

import (
	"bytes"
	"context"
	"io"
	"sync"

	"github.com/dmaytorres/trackvault/internal/constants"
)

// MockProvider serves fixed byte payloads per track id. Used in tests and
// when running without a catalog service.
type MockProvider struct {
	mu       sync.Mutex
	payloads map[string][]byte
	fail     map[string]error
	requests map[string]int
}

func NewMockProvider() *MockProvider {
	return &MockProvider{
		payloads: make(map[string][]byte),
		fail:     make(map[string]error),
		requests: make(map[string]int),
	}
}

func (p *MockProvider) Name() string {
	return "mock"
}

// SetPayload registers the bytes served for a track id.
func (p *MockProvider) SetPayload(trackID string, data []byte) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.payloads[trackID] = data
}

// FailWith makes requests for a track id return the given error.
func (p *MockProvider) FailWith(trackID string, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.fail[trackID] = err
}

// Requests reports how many stream resolutions were attempted for a track.
func (p *MockProvider) Requests(trackID string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.requests[trackID]
}

func (p *MockProvider) GetStreamSource(ctx context.Context, trackID, quality string) (*StreamSource, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.requests[trackID]++

	if err := p.fail[trackID]; err != nil {
		return nil, err
	}

	data, ok := p.payloads[trackID]
	if !ok {
		data = []byte("mock audio content for " + trackID)
	}

	return &StreamSource{
		Body:       io.NopCloser(bytes.NewReader(data)),
		MimeType:   constants.MimeTypeFLAC,
		TotalBytes: int64(len(data)),
	}, nil
}
