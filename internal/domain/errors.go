package domain

import "errors"

var (
	// ErrNotFound is returned when a requested row does not exist.
	ErrNotFound = errors.New("not found")

	// ErrTransientNetwork marks a network failure worth an explicit retry.
	// Never auto-retried in the background.
	ErrTransientNetwork = errors.New("transient network error")

	// ErrSourceUnavailable means the remote track is no longer streamable.
	ErrSourceUnavailable = errors.New("source unavailable")

	// ErrQuotaExceeded means eviction cannot free enough unprotected space.
	ErrQuotaExceeded = errors.New("cache quota exceeded")

	// ErrReferenceStale means a pending local track path no longer resolves.
	ErrReferenceStale = errors.New("stale local track reference")

	// ErrRemoteRejected means the remote service rejected a sync operation.
	ErrRemoteRejected = errors.New("rejected by remote service")
)
