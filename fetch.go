package beatsynth

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"net/url"
	"path"
	"strings"
)

type (
	// Fetcher retrieves a resource by path. Fetch may block; implementations
	// should honor ctx cancellation. A missing resource is reported with an
	// error wrapping ErrNotFound.
	Fetcher interface {
		Fetch(ctx context.Context, path string) ([]byte, error)
	}

	// FSFetcher fetches resources from a file system, e.g. os.DirFS or an
	// embedded FS.
	FSFetcher struct {
		FS fs.FS
	}

	// HTTPFetcher fetches resources relative to BaseURL. A nil Client uses
	// http.DefaultClient.
	HTTPFetcher struct {
		Client  *http.Client
		BaseURL string
	}
)

func (f FSFetcher) Fetch(ctx context.Context, p string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	name := strings.TrimPrefix(path.Clean("/"+p), "/")
	data, err := fs.ReadFile(f.FS, name)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("fetch %q: %w", p, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("fetch %q: %w", p, err)
	}
	return data, nil
}

func (f HTTPFetcher) Fetch(ctx context.Context, p string) ([]byte, error) {
	u, err := url.JoinPath(f.BaseURL, p)
	if err != nil {
		return nil, fmt.Errorf("fetch %q: %w", p, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("fetch %q: %w", p, err)
	}
	client := f.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %q: %w", p, err)
	}
	defer resp.Body.Close()
	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, fmt.Errorf("fetch %q: %w", p, ErrNotFound)
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("fetch %q: unexpected status %s", p, resp.Status)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("fetch %q: %w", p, err)
	}
	return data, nil
}
