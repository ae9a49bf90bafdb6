package mocks

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/jacentio/storefront/blob"
	"github.com/jacentio/storefront/commerce"
)

var _ commerce.BlobStore = (*MemBlobs)(nil)

// MemBlobs is an in-memory commerce.BlobStore that records calls.
type MemBlobs struct {
	mu      sync.Mutex
	objects map[string]blob.Object
	seq     int

	PutErr    error
	SignErr   error
	DeleteErr error
	// FailKeys are reported as not deleted by DeleteMany.
	FailKeys map[string]bool
	// PutDelay holds every Put open for the given time.
	PutDelay time.Duration

	inflight    int
	MaxInflight int

	Puts        []string
	DeleteCalls [][]string
}

func NewMemBlobs() *MemBlobs {
	return &MemBlobs{
		objects:  make(map[string]blob.Object),
		FailKeys: make(map[string]bool),
	}
}

// Seed stores an object under key.
func (m *MemBlobs) Seed(keys ...string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, k := range keys {
		m.objects[k] = blob.Object{Data: []byte(k)}
	}
}

// Has reports whether key is stored.
func (m *MemBlobs) Has(key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.objects[key]
	return ok
}

// Len returns the number of stored objects.
func (m *MemBlobs) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.objects)
}

// DeletedKeys returns every key passed to DeleteMany.
func (m *MemBlobs) DeletedKeys() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []string
	for _, call := range m.DeleteCalls {
		out = append(out, call...)
	}
	return out
}

func (m *MemBlobs) Put(_ context.Context, prefix string, obj blob.Object) (string, error) {
	m.mu.Lock()
	m.inflight++
	m.MaxInflight = max(m.MaxInflight, m.inflight)
	m.mu.Unlock()

	time.Sleep(m.PutDelay)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.inflight--
	if m.PutErr != nil {
		return "", m.PutErr
	}
	if !strings.HasSuffix(prefix, "/") {
		return "", blob.ErrInvalidPrefix
	}
	m.seq++
	key := fmt.Sprintf("%sobj-%03d", prefix, m.seq)
	m.objects[key] = obj
	m.Puts = append(m.Puts, key)
	return key, nil
}

func (m *MemBlobs) SignedURL(_ context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.SignErr != nil {
		return "", m.SignErr
	}
	return "https://blobs.test/" + key + "?X-Amz-Expires=900", nil
}

func (m *MemBlobs) DeleteMany(ctx context.Context, keys []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.DeleteCalls = append(m.DeleteCalls, append([]string{}, keys...))
	if err := ctx.Err(); err != nil {
		return &blob.DeleteError{Keys: append([]string{}, keys...), Err: err}
	}
	if m.DeleteErr != nil {
		return &blob.DeleteError{Keys: append([]string{}, keys...), Err: m.DeleteErr}
	}

	var failed []string
	for _, k := range keys {
		if m.FailKeys[k] {
			failed = append(failed, k)
			continue
		}
		delete(m.objects, k)
	}
	if len(failed) > 0 {
		return &blob.DeleteError{Keys: failed, Err: errors.New("access denied")}
	}
	return nil
}
