// Package dispatcher talks to the external media-indexing server: it
// checks connectivity at startup, enumerates library sections, and
// triggers partial rescans for changed directories.
package dispatcher

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"

	"mediascand/internal/logging"
	"mediascand/internal/metrics"
)

// Section is one library section reported by the indexing server: an
// integer key and the on-disk paths it covers.
type Section struct {
	ID    int
	Paths []string
}

// Dispatcher is the narrow boundary between the control loop and the
// external indexing server. It satisfies scheduler.Dispatcher.
type Dispatcher interface {
	CheckConnectivity(ctx context.Context, timeout, retryInterval time.Duration) bool
	Libraries(ctx context.Context) ([]Section, error)
	Scan(path string, sectionID int) bool
}

// Client is the HTTP-backed Dispatcher implementation.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

// New returns a Client targeting baseURL (e.g. "http://plex.local:32400").
// token is sent as X-Plex-Token when non-empty.
func New(baseURL, token string, requestTimeout time.Duration) *Client {
	return &Client{
		baseURL: baseURL,
		token:   token,
		http:    &http.Client{Timeout: requestTimeout},
	}
}

func (c *Client) newRequest(ctx context.Context, method, path string, query url.Values) (*http.Request, error) {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, method, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("X-Plex-Token", c.token)
	}
	req.Header.Set("X-Request-Id", uuid.NewString())
	return req, nil
}

// CheckConnectivity polls the server's identity endpoint until it answers
// with a 2xx status or timeout elapses, sleeping retryInterval between
// attempts. It reports whether the server became reachable in time.
func (c *Client) CheckConnectivity(ctx context.Context, timeout, retryInterval time.Duration) bool {
	deadline := time.Now().Add(timeout)
	logging.Info("dispatcher: attempting to connect to %s", c.baseURL)

	for {
		req, err := c.newRequest(ctx, http.MethodGet, "/identity", nil)
		if err == nil {
			resp, doErr := c.http.Do(req)
			if doErr == nil {
				io.Copy(io.Discard, resp.Body)
				resp.Body.Close()
				if resp.StatusCode >= 200 && resp.StatusCode < 300 {
					logging.Info("dispatcher: connected to %s", c.baseURL)
					metrics.DispatcherConnectivityUp.Set(1)
					return true
				}
				logging.Debug("dispatcher: server responded with HTTP %d", resp.StatusCode)
			} else {
				logging.Debug("dispatcher: connection attempt failed: %v", doErr)
			}
		}

		if time.Now().After(deadline) {
			logging.Error("dispatcher: connection timeout reached after %v", timeout)
			metrics.DispatcherConnectivityUp.Set(0)
			return false
		}

		select {
		case <-ctx.Done():
			metrics.DispatcherConnectivityUp.Set(0)
			return false
		case <-time.After(retryInterval):
		}
	}
}

type librarySectionsResponse struct {
	MediaContainer struct {
		Directory []struct {
			Key      string `json:"key"`
			Location []struct {
				Path string `json:"path"`
			} `json:"Location"`
		} `json:"Directory"`
	} `json:"MediaContainer"`
}

// Libraries retrieves the server's library sections and the on-disk paths
// each one covers.
func (c *Client) Libraries(ctx context.Context) ([]Section, error) {
	start := time.Now()
	req, err := c.newRequest(ctx, http.MethodGet, "/library/sections", nil)
	if err != nil {
		return nil, fmt.Errorf("dispatcher: build request: %w", err)
	}

	resp, err := c.http.Do(req)
	metrics.DispatcherRequestDuration.WithLabelValues("sections").Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.DispatcherRequestsTotal.WithLabelValues("sections", "error").Inc()
		return nil, fmt.Errorf("dispatcher: list library sections: %w", err)
	}
	defer resp.Body.Close()

	metrics.DispatcherRequestsTotal.WithLabelValues("sections", statusClass(resp.StatusCode)).Inc()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("dispatcher: list library sections: HTTP %d", resp.StatusCode)
	}

	var parsed librarySectionsResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("dispatcher: decode library sections: %w", err)
	}

	var sections []Section
	for _, dir := range parsed.MediaContainer.Directory {
		var id int
		if _, err := fmt.Sscanf(dir.Key, "%d", &id); err != nil {
			logging.Warn("dispatcher: library section has non-numeric key %q, skipping", dir.Key)
			continue
		}
		sec := Section{ID: id}
		for _, loc := range dir.Location {
			sec.Paths = append(sec.Paths, loc.Path)
		}
		if len(sec.Paths) == 0 {
			logging.Warn("dispatcher: library section %d has no locations", id)
			continue
		}
		sections = append(sections, sec)
	}
	return sections, nil
}

// Scan triggers a partial rescan of path within sectionID. It reports
// whether the request was accepted; callers should treat a false result as
// transient and rely on the next filesystem event to re-trigger it, rather
// than retrying immediately.
func (c *Client) Scan(path string, sectionID int) bool {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	start := time.Now()
	req, err := c.newRequest(ctx, http.MethodGet,
		fmt.Sprintf("/library/sections/%d/refresh", sectionID),
		url.Values{"path": {path}})
	if err != nil {
		logging.Error("dispatcher: build scan request for %s: %v", path, err)
		metrics.DispatcherRequestsTotal.WithLabelValues("refresh", "error").Inc()
		return false
	}

	resp, err := c.http.Do(req)
	metrics.DispatcherRequestDuration.WithLabelValues("refresh").Observe(time.Since(start).Seconds())
	if err != nil {
		logging.Warn("dispatcher: scan request for %s failed: %v", path, err)
		metrics.DispatcherRequestsTotal.WithLabelValues("refresh", "error").Inc()
		return false
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	metrics.DispatcherRequestsTotal.WithLabelValues("refresh", statusClass(resp.StatusCode)).Inc()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		logging.Warn("dispatcher: scan for %s rejected with HTTP %d", path, resp.StatusCode)
		return false
	}

	logging.Debug("dispatcher: scan triggered for %s (section %d)", path, sectionID)
	return true
}

func statusClass(code int) string {
	if code >= 200 && code < 300 {
		return "2xx"
	}
	return "error"
}
