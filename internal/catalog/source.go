package catalog

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"
)

var (
	ErrNetwork  = errors.New("content fetch failed")
	ErrNotFound = errors.New("content not found")
	ErrParse    = errors.New("content parse failed")
	ErrEmpty    = errors.New("exam has no questions")
	ErrTooLarge = errors.New("content document too large")
)

const maxDocumentBytes = 8 << 20

// Source fetches raw content documents by resource path, e.g. "exams.json" or
// "exams/networking.json".
type Source interface {
	Fetch(ctx context.Context, resource string) ([]byte, error)
}

// DirSource serves documents from a local directory.
type DirSource struct {
	root string
}

func NewDirSource(root string) *DirSource {
	return &DirSource{root: root}
}

func (s *DirSource) Fetch(ctx context.Context, resource string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("fetch %s: %w: %w", resource, ErrNetwork, err)
	}
	rel, ok := cleanResource(resource)
	if !ok {
		return nil, fmt.Errorf("fetch %s: %w: %w", resource, ErrNetwork, ErrNotFound)
	}

	f, err := os.Open(filepath.Join(s.root, filepath.FromSlash(rel)))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("fetch %s: %w: %w", resource, ErrNetwork, ErrNotFound)
		}
		return nil, fmt.Errorf("fetch %s: %w: %w", resource, ErrNetwork, err)
	}
	defer f.Close()
	return readDocument(f, resource)
}

// HTTPSource fetches documents relative to a base URL.
type HTTPSource struct {
	base   *url.URL
	client *http.Client
}

func NewHTTPSource(baseURL string, timeout time.Duration) (*HTTPSource, error) {
	base, err := url.Parse(strings.TrimSpace(baseURL))
	if err != nil {
		return nil, fmt.Errorf("parse content base url: %w", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("content base url must be http or https, got %q", baseURL)
	}
	if !strings.HasSuffix(base.Path, "/") {
		base.Path += "/"
	}
	return &HTTPSource{
		base:   base,
		client: &http.Client{Timeout: timeout},
	}, nil
}

func (s *HTTPSource) BaseURL() string {
	return s.base.String()
}

func (s *HTTPSource) Fetch(ctx context.Context, resource string) ([]byte, error) {
	rel, ok := cleanResource(resource)
	if !ok {
		return nil, fmt.Errorf("fetch %s: %w: %w", resource, ErrNetwork, ErrNotFound)
	}
	target := s.base.ResolveReference(&url.URL{Path: rel})

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("build request %s: %w: %w", resource, ErrNetwork, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w: %w", resource, ErrNetwork, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("fetch %s: status %d: %w: %w", resource, resp.StatusCode, ErrNetwork, ErrNotFound)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("fetch %s: status %d: %w", resource, resp.StatusCode, ErrNetwork)
	}

	return readDocument(resp.Body, resource)
}

// readDocument reads at most maxDocumentBytes. A longer document is rejected
// rather than cut, so it never reaches the parser half-read.
func readDocument(r io.Reader, resource string) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, maxDocumentBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w: %w", resource, ErrNetwork, err)
	}
	if err := checkDocumentSize(resource, len(data)); err != nil {
		return nil, err
	}
	return data, nil
}

func checkDocumentSize(resource string, n int) error {
	if n > maxDocumentBytes {
		return fmt.Errorf("read %s: more than %d bytes: %w", resource, maxDocumentBytes, ErrTooLarge)
	}
	return nil
}

// cleanResource turns a resource path into a slash-separated relative path that
// cannot climb out of the content root.
func cleanResource(resource string) (string, bool) {
	rel := strings.TrimPrefix(path.Clean("/"+strings.TrimSpace(resource)), "/")
	if rel == "" || rel == "." {
		return "", false
	}
	return rel, true
}
