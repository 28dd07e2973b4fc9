// Package storage puts report images into object storage and hands back the
// public URL that is recorded on the image row.
package storage

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"
)

// Bucket is the object storage contract the service depends on.
type Bucket interface {
	Upload(ctx context.Context, key string, body []byte, contentType string) (string, error)
	Delete(ctx context.Context, key string) error
}

// ImageKey builds the object path {report_id}/{unix_millis}-{index}.jpg.
func ImageKey(reportID string, at time.Time, index int) string {
	return fmt.Sprintf("%s/%d-%d.jpg", reportID, at.UnixMilli(), index)
}

// MemoryBucket keeps objects in process memory. serve --memory uses it.
type MemoryBucket struct {
	mu      sync.RWMutex
	name    string
	objects map[string][]byte
}

func NewMemoryBucket(name string) *MemoryBucket {
	return &MemoryBucket{name: name, objects: make(map[string][]byte)}
}

func (b *MemoryBucket) Upload(_ context.Context, key string, body []byte, _ string) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	c := make([]byte, len(body))
	copy(c, body)
	b.objects[key] = c
	return "memory://" + b.name + "/" + strings.TrimPrefix(key, "/"), nil
}

func (b *MemoryBucket) Delete(_ context.Context, key string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	delete(b.objects, key)
	return nil
}

// Object returns a stored object and whether it exists.
func (b *MemoryBucket) Object(key string) ([]byte, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	body, ok := b.objects[key]
	return body, ok
}

func (b *MemoryBucket) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.objects)
}
