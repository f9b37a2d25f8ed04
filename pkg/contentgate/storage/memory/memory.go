// Package memory provides an in-memory blob store for development and tests.
package memory

import (
	"context"
	"fmt"
	"net/url"
	"sync"

	"github.com/mediakit/contentgate/pkg/contentgate"
)

// Backend hands out synthetic memory:// URLs. It keeps no bytes; the engine
// treats file references as opaque either way.
type Backend struct {
	mu   sync.RWMutex
	refs map[string]int
}

// New creates a new in-memory blob store.
func New() contentgate.BlobStore {
	return &Backend{refs: make(map[string]int)}
}

// GetDownloadURL returns a synthetic URL for a file reference.
func (b *Backend) GetDownloadURL(ctx context.Context, fileRef, downloadFilename string) (string, error) {
	if fileRef == "" {
		return "", fmt.Errorf("file reference is required")
	}
	b.mu.Lock()
	b.refs[fileRef]++
	b.mu.Unlock()

	u := "memory://download/" + fileRef
	if downloadFilename != "" {
		u += "?filename=" + url.QueryEscape(downloadFilename)
	}
	return u, nil
}

// GetUploadURL returns a synthetic URL for uploading a file reference.
func (b *Backend) GetUploadURL(ctx context.Context, fileRef string) (string, error) {
	if fileRef == "" {
		return "", fmt.Errorf("file reference is required")
	}
	return "memory://upload/" + fileRef, nil
}
