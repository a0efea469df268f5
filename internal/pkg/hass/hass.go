// Package hass is the synchronous query client used only during bootstrap
// seeding; live traffic flows over the event-stream session instead.
package hass

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/dpp/homer/internal/pkg/config"
)

type Client struct {
	cfg  *config.HAConfig
	http *http.Client
}

func New(cfg *config.HAConfig) *Client {
	return &Client{
		cfg: cfg,
		http: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

func (c *Client) stateURL(entityID string) string {
	u := url.URL{Scheme: "http", Host: c.cfg.Host, Path: "/api/states/" + entityID}
	if c.cfg.Ssl {
		u.Scheme = "https"
	}
	return u.String()
}

// GetState fetches the current textual state for one entity.
func (c *Client) GetState(ctx context.Context, entityID string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.stateURL(entityID), nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.cfg.Token)

	resp, err := c.http.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("request for %s yielded %d", entityID, resp.StatusCode)
	}

	var body struct {
		State string `json:"state"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", err
	}
	return body.State, nil
}
