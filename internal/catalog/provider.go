package catalog

import (
	"context"
	"io"
)

// StreamSource is an open, playable source for one track.
type StreamSource struct {
	Body io.ReadCloser
	// MimeType of the stream, used to pick the on-disk extension.
	MimeType string
	// TotalBytes is the expected stream length, or -1 when unknown.
	TotalBytes int64
}

// Provider resolves track identifiers to streamable sources. The catalog
// service itself is an external collaborator; this is the only part of it
// the cache engine needs.
type Provider interface {
	GetStreamSource(ctx context.Context, trackID string, quality string) (*StreamSource, error)
	Name() string
}
