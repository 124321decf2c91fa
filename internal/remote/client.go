// Package remote is the HTTP binding of the remote playlist, scrobble and
// library APIs the reconciler depends on.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/dmaytorres/trackvault/internal/domain"
	"github.com/dmaytorres/trackvault/internal/httpclient"
)

type Client struct {
	baseURL string
	client  *httpclient.Client
}

func NewClient(baseURL string, client *httpclient.Client) *Client {
	if client == nil {
		client = httpclient.NewClient(nil, 100*time.Millisecond)
	}
	return &Client{
		baseURL: baseURL,
		client:  client,
	}
}

type createPlaylistRequest struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Public      bool   `json:"public"`
}

type createPlaylistResponse struct {
	ID string `json:"id"`
}

func (c *Client) CreatePlaylist(ctx context.Context, name, description string, isPublic bool) (string, error) {
	var out createPlaylistResponse
	err := c.postJSON(ctx, "/playlists", createPlaylistRequest{
		Name:        name,
		Description: description,
		Public:      isPublic,
	}, &out)
	if err != nil {
		return "", err
	}
	if out.ID == "" {
		return "", fmt.Errorf("%w: playlist creation returned no id", domain.ErrRemoteRejected)
	}
	return out.ID, nil
}

type addTracksRequest struct {
	TrackIDs []string `json:"track_ids"`
	Position int      `json:"position"`
}

func (c *Client) AddTracksToPlaylist(ctx context.Context, playlistID string, trackIDs []string, position int) error {
	path := fmt.Sprintf("/playlists/%s/tracks", url.PathEscape(playlistID))
	return c.postJSON(ctx, path, addTracksRequest{TrackIDs: trackIDs, Position: position}, nil)
}

type scrobblePayload struct {
	Artist     string `json:"artist"`
	Track      string `json:"track"`
	Album      string `json:"album,omitempty"`
	ListenedAt int64  `json:"listened_at"`
}

type scrobbleBatchResponse struct {
	Accepted []int `json:"accepted"`
}

func (c *Client) SubmitScrobbles(ctx context.Context, batch []*domain.QueuedScrobble) ([]int, error) {
	payload := make([]scrobblePayload, len(batch))
	for i, s := range batch {
		payload[i] = scrobblePayload{
			Artist:     s.Artist,
			Track:      s.Track,
			Album:      s.Album,
			ListenedAt: s.ListenedAt.Unix(),
		}
	}

	var out scrobbleBatchResponse
	if err := c.postJSON(ctx, "/scrobbles/batch", payload, &out); err != nil {
		return nil, err
	}
	return out.Accepted, nil
}

type resolveTrackResponse struct {
	ID string `json:"id"`
}

// ResolveTrackByPath asks the library for the current track id at a path.
func (c *Client) ResolveTrackByPath(ctx context.Context, path string) (string, error) {
	endpoint := fmt.Sprintf("%s/library/tracks?path=%s", c.baseURL, url.QueryEscape(path))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", fmt.Errorf("failed to build resolve request: %w", err)
	}

	resp, err := c.client.Do(ctx, req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrTransientNetwork, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return "", domain.ErrReferenceStale
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: resolve returned status %d", domain.ErrRemoteRejected, resp.StatusCode)
	}

	var out resolveTrackResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("failed to decode resolve response: %w", err)
	}
	if out.ID == "" {
		return "", domain.ErrReferenceStale
	}
	return out.ID, nil
}

func (c *Client) postJSON(ctx context.Context, path string, body, out interface{}) error {
	data, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to encode request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(ctx, req)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrTransientNetwork, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%w: status %d: %s", domain.ErrRemoteRejected, resp.StatusCode, bytes.TrimSpace(msg))
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return nil
}
