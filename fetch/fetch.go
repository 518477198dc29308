// Package fetch downloads coding tables from the UK Biobank showcase into
// the local coding file store.
package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
)

// DefaultURL is the showcase coding download endpoint, with one %s for the
// coding id.
const DefaultURL = "https://biobank.ndph.ox.ac.uk/showcase/codown.cgi?id=%s"

// HTTP fetches coding tables over HTTP. It implements ukbtab.Fetcher.
type HTTP struct {
	client *http.Client
	url    string
}

// Option configures an HTTP fetcher.
type Option func(*HTTP)

// WithClient sets the HTTP client.
func WithClient(c *http.Client) Option {
	return func(h *HTTP) {
		h.client = c
	}
}

// WithURL overrides the download URL template (one %s for the coding id).
func WithURL(template string) Option {
	return func(h *HTTP) {
		h.url = template
	}
}

// New creates an HTTP fetcher.
func New(opts ...Option) *HTTP {
	h := &HTTP{
		client: http.DefaultClient,
		url:    DefaultURL,
	}
	for _, opt := range opts {
		opt(h)
	}

	return h
}

// Fetch downloads the coding table and deposits it at dest, creating parent
// directories as needed. The file is written via a temp file and rename so
// a failed download never leaves a truncated coding file behind.
func (h *HTTP) Fetch(ctx context.Context, codingID, dest string) error {
	url := fmt.Sprintf(h.url, codingID)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("fetching coding %s: %w", codingID, err)
	}

	resp, err := h.client.Do(req)
	if err != nil {
		return fmt.Errorf("fetching coding %s: %w", codingID, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("fetching coding %s: unexpected status %s", codingID, resp.Status)
	}

	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return fmt.Errorf("fetching coding %s: %w", codingID, err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(dest), filepath.Base(dest)+".*")
	if err != nil {
		return fmt.Errorf("fetching coding %s: %w", codingID, err)
	}

	if _, err := io.Copy(tmp, resp.Body); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())

		return fmt.Errorf("fetching coding %s: %w", codingID, err)
	}

	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())

		return fmt.Errorf("fetching coding %s: %w", codingID, err)
	}

	if err := os.Rename(tmp.Name(), dest); err != nil {
		_ = os.Remove(tmp.Name())

		return fmt.Errorf("fetching coding %s: %w", codingID, err)
	}

	return nil
}
