package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmaytorres/trackvault/internal/domain"
	"github.com/dmaytorres/trackvault/internal/logger"
)

// Manager resolves stream sources against a primary provider, falling back
// to a secondary one when the primary cannot serve the track.
type Manager struct {
	primary  Provider
	fallback Provider
	logger   *logger.Logger
}

func NewManager(primary, fallback Provider, log *logger.Logger) *Manager {
	if log == nil {
		log = logger.Default()
	}
	return &Manager{
		primary:  primary,
		fallback: fallback,
		logger:   log.WithComponent("catalog"),
	}
}

// Resolve opens a stream source for the track, trying the fallback provider
// when the primary fails. A context cancellation is never retried against
// the fallback.
func (m *Manager) Resolve(ctx context.Context, trackID, quality string) (*StreamSource, error) {
	src, err := m.primary.GetStreamSource(ctx, trackID, quality)
	if err == nil {
		return src, nil
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	if m.fallback == nil {
		return nil, err
	}

	m.logger.Warn("Primary source failed, trying fallback",
		"track_id", trackID,
		"provider", m.primary.Name(),
		"error", err,
	)

	fsrc, ferr := m.fallback.GetStreamSource(ctx, trackID, quality)
	if ferr != nil {
		if errors.Is(err, domain.ErrSourceUnavailable) && errors.Is(ferr, domain.ErrSourceUnavailable) {
			return nil, domain.ErrSourceUnavailable
		}
		return nil, fmt.Errorf("all providers failed: %w", ferr)
	}
	return fsrc, nil
}
