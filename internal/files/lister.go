// Package files polls the orchestrator's artifact listing for one task.
// Artifacts arrive outside the event stream and carry no ordering guarantee
// relative to it.
package files

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

type Artifact struct {
	Path string `json:"path"`
	Size int64  `json:"size"`
}

type Lister struct {
	baseURL    string
	httpClient *http.Client
}

func NewLister(baseURL string) *Lister {
	return &Lister{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
}

func (l *Lister) List(ctx context.Context, taskID string) ([]Artifact, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		l.baseURL+"/api/tasks/"+url.PathEscape(taskID)+"/files", nil)
	if err != nil {
		return nil, err
	}
	res, err := l.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = res.Body.Close()
	}()

	if res.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("list files for %s: status %d", taskID, res.StatusCode)
	}
	var out struct {
		Files []Artifact `json:"files"`
	}
	if err := json.NewDecoder(res.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("list files for %s: decode response: %w", taskID, err)
	}
	return out.Files, nil
}
