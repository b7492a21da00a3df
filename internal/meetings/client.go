// Package meetings is the request/response client for the meetings
// collaborator API. The sync core only reads meeting activity (which gates
// reconnection) and participant listings; meeting CRUD lives elsewhere.
package meetings

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// Meeting is the collaborator's view of one meeting.
type Meeting struct {
	ID                  string   `json:"id"`
	Name                string   `json:"name"`
	IsActive            bool     `json:"is_active"`
	CurrentParticipants []string `json:"current_participants"`
}

// Client calls the meetings collaborator API. Requests are keyed by viewer
// identity via header.
type Client struct {
	baseURL  string
	viewerID string
	http     *http.Client
}

// NewClient creates a client for the given API base URL.
func NewClient(baseURL, viewerID string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL:  baseURL,
		viewerID: viewerID,
		http:     &http.Client{Timeout: timeout},
	}
}

// Get fetches one meeting.
func (c *Client) Get(ctx context.Context, meetingID string) (Meeting, error) {
	endpoint := fmt.Sprintf("%s/meetings/%s", c.baseURL, url.PathEscape(meetingID))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return Meeting{}, fmt.Errorf("build meeting request: %w", err)
	}
	req.Header.Set("X-Viewer-ID", c.viewerID)

	resp, err := c.http.Do(req)
	if err != nil {
		return Meeting{}, fmt.Errorf("fetch meeting %s: %w", meetingID, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Meeting{}, fmt.Errorf("fetch meeting %s: status %d", meetingID, resp.StatusCode)
	}

	var m Meeting
	if err := json.NewDecoder(resp.Body).Decode(&m); err != nil {
		return Meeting{}, fmt.Errorf("decode meeting %s: %w", meetingID, err)
	}
	return m, nil
}

// IsActive reports whether the meeting is still live. Satisfies the session
// package's ActiveChecker.
func (c *Client) IsActive(ctx context.Context, meetingID string) (bool, error) {
	m, err := c.Get(ctx, meetingID)
	if err != nil {
		return false, err
	}
	return m.IsActive, nil
}

// Participants returns the current participant listing.
func (c *Client) Participants(ctx context.Context, meetingID string) ([]string, error) {
	m, err := c.Get(ctx, meetingID)
	if err != nil {
		return nil, err
	}
	return m.CurrentParticipants, nil
}
