// Package registry queries an MLflow-compatible model registry for the
// artifact location of a registered model.
package registry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

type Client struct {
	baseURL string
	client  *http.Client
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
	}
}

type modelVersion struct {
	Version string `json:"version"`
	Source  string `json:"source"`
	Status  string `json:"status"`
}

type latestVersionsResponse struct {
	ModelVersions []modelVersion `json:"model_versions"`
}

type registryErrorResponse struct {
	ErrorCode string `json:"error_code"`
	Message   string `json:"message"`
}

// LatestSource returns the artifact directory of the newest READY version
// of the named model.
func (c *Client) LatestSource(ctx context.Context, name string) (string, error) {
	if c == nil || c.client == nil {
		return "", errors.New("registry client not configured")
	}
	if c.baseURL == "" {
		return "", errors.New("registry url is empty")
	}

	endpoint := fmt.Sprintf("%s/api/2.0/mlflow/registered-models/get-latest-versions?name=%s",
		c.baseURL, url.QueryEscape(name))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", err
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var apiErr registryErrorResponse
		if err := json.NewDecoder(resp.Body).Decode(&apiErr); err == nil && apiErr.Message != "" {
			return "", fmt.Errorf("registry error: %s", apiErr.Message)
		}
		return "", fmt.Errorf("registry returned status %d", resp.StatusCode)
	}

	var payload latestVersionsResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", err
	}

	best := ""
	bestVersion := -1
	for _, mv := range payload.ModelVersions {
		if mv.Source == "" {
			continue
		}
		if mv.Status != "" && mv.Status != "READY" {
			continue
		}
		version, err := strconv.Atoi(mv.Version)
		if err != nil {
			version = 0
		}
		if version > bestVersion {
			bestVersion = version
			best = mv.Source
		}
	}
	if best == "" {
		return "", fmt.Errorf("registry has no ready version of %q", name)
	}
	return best, nil
}
