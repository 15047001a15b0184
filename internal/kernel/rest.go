package kernel

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"
)

// Server locates a Jupyter server.
type Server struct {
	BaseURL string
	Token   string
}

// Info describes a running kernel as reported by the server REST API.
type Info struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	LastActivity   string `json:"last_activity"`
	ExecutionState string `json:"execution_state"`
}

var restClient = &http.Client{Timeout: 10 * time.Second}

// ListKernels returns the kernels currently running on the server.
func ListKernels(ctx context.Context, server Server) ([]Info, error) {
	u, err := url.Parse(server.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse server url: %w", err)
	}
	u.Path = strings.TrimSuffix(u.Path, "/") + "/api/kernels"

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}
	if server.Token != "" {
		req.Header.Set("Authorization", "token "+server.Token)
	}

	resp, err := restClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: list kernels: %s", ErrUnavailable, resp.Status)
	}

	var kernels []Info
	if err := json.NewDecoder(resp.Body).Decode(&kernels); err != nil {
		return nil, fmt.Errorf("decode kernel list: %w", err)
	}
	return kernels, nil
}

// Resolve picks the kernel to attach to: the explicit id when given,
// otherwise the most recently active kernel.
func Resolve(ctx context.Context, server Server, kernelID string) (Info, error) {
	kernels, err := ListKernels(ctx, server)
	if err != nil {
		return Info{}, err
	}
	if len(kernels) == 0 {
		return Info{}, fmt.Errorf("%w: no running kernels", ErrUnavailable)
	}

	if kernelID != "" {
		for _, k := range kernels {
			if k.ID == kernelID {
				return k, nil
			}
		}
		return Info{}, fmt.Errorf("%w: kernel %s not found", ErrUnavailable, kernelID)
	}

	sort.Slice(kernels, func(i, j int) bool {
		return kernels[i].LastActivity > kernels[j].LastActivity
	})
	return kernels[0], nil
}
