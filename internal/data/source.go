package data

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
)

// maxResourceSize bounds a single fetched resource.
const maxResourceSize = 512 << 20

// Fetch reads a resource from an http(s) URL or a local path.
func Fetch(ctx context.Context, client *http.Client, location string) ([]byte, error) {
	if !isURL(location) {
		raw, err := os.ReadFile(location)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", location, err)
		}
		return raw, nil
	}

	if client == nil {
		client = http.DefaultClient
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, location, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request for %s: %w", location, err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching %s: %w", location, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		sample, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("fetching %s: status %d: %s", location, resp.StatusCode, strings.TrimSpace(string(sample)))
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResourceSize+1))
	if err != nil {
		return nil, fmt.Errorf("reading body of %s: %w", location, err)
	}
	if len(raw) > maxResourceSize {
		return nil, fmt.Errorf("resource %s exceeds %d bytes", location, maxResourceSize)
	}
	return raw, nil
}

func isURL(location string) bool {
	return strings.HasPrefix(location, "http://") || strings.HasPrefix(location, "https://")
}
