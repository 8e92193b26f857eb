package resolve

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/ppalone/ytsearch"
)

// LookupClient dereferences the backend's video lookup URI into a
// playable watch URI.
type LookupClient struct {
	client *http.Client
}

// NewLookupClient creates a lookup client. A zero timeout defaults to
// 30 seconds.
func NewLookupClient(timeout time.Duration) *LookupClient {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &LookupClient{client: &http.Client{Timeout: timeout}}
}

type lookupResponse struct {
	Actions []struct {
		URI string `json:"uri"`
	} `json:"actions"`
}

// Resolve fetches the lookup URI and returns the first action URI.
func (c *LookupClient) Resolve(ctx context.Context, lookupURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, lookupURL, nil)
	if err != nil {
		return "", err
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("lookup returned status %d", resp.StatusCode)
	}

	var payload lookupResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", fmt.Errorf("decode lookup response: %w", err)
	}
	if len(payload.Actions) == 0 || payload.Actions[0].URI == "" {
		return "", errors.New("lookup response has no actions")
	}
	return payload.Actions[0].URI, nil
}

// YTSearch finds a watch URL by free-text search. Used as a fallback
// when the payload carries no resolvable video section.
type YTSearch struct {
	client *ytsearch.Client
}

func NewYTSearch() *YTSearch {
	return &YTSearch{client: ytsearch.NewClient(nil)}
}

func (s *YTSearch) SearchVideo(ctx context.Context, query string) (string, error) {
	res, err := s.client.Search(ctx, query)
	if err != nil {
		return "", err
	}
	if len(res.Results) == 0 {
		return "", errors.New("no search results")
	}
	return "https://youtu.be/" + res.Results[0].VideoID, nil
}
