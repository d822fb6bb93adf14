package apiclient

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// Client is a thin typed client over the group HTTP API.
type Client struct {
	baseURL string
	http    *http.Client
}

// Group mirrors the server's group document.
type Group struct {
	ID          string       `json:"id"`
	Name        string       `json:"name"`
	CreatedAt   time.Time    `json:"createdAt"`
	CompletedAt *time.Time   `json:"completedAt"`
	IsCompleted bool         `json:"isCompleted"`
	Files       []FileRecord `json:"files"`
	Thumbnail   string       `json:"thumbnail,omitempty"`
}

// FileRecord mirrors one file record of a group document.
type FileRecord struct {
	StorageName string `json:"filename"`
	DisplayName string `json:"displayName"`
	Kind        string `json:"fileType"`
	Size        int64  `json:"size"`
	Thumbnail   string `json:"thumbnail,omitempty"`
}

// New returns a Client for the server at baseURL.
func New(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 15 * time.Second},
	}
}

// ListCompletedGroups fetches the completed groups, newest first.
func (c *Client) ListCompletedGroups(ctx context.Context) ([]Group, error) {
	var groups []Group
	if err := c.getJSON(ctx, "/api/groups", &groups); err != nil {
		return nil, err
	}
	return groups, nil
}

// GetGroup fetches one group document.
func (c *Client) GetGroup(ctx context.Context, id string) (*Group, error) {
	var group Group
	if err := c.getJSON(ctx, "/api/groups/"+id, &group); err != nil {
		return nil, err
	}
	return &group, nil
}

// FileURL returns the absolute URL of a stored artifact.
func (c *Client) FileURL(groupID, storageName string) string {
	return fmt.Sprintf("%s/api/groups/%s/files/%s", c.baseURL, groupID, storageName)
}

func (c *Client) getJSON(ctx context.Context, path string, v interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var apiErr struct {
			Error string `json:"error"`
		}
		if decodeErr := json.NewDecoder(resp.Body).Decode(&apiErr); decodeErr == nil && apiErr.Error != "" {
			return fmt.Errorf("server returned %d: %s", resp.StatusCode, apiErr.Error)
		}
		return fmt.Errorf("server returned %d for %s", resp.StatusCode, path)
	}
	return json.NewDecoder(resp.Body).Decode(v)
}
