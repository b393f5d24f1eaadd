package cache

import (
	"context"
	"sync"
	"time"

	"github.com/PolarWolf314/stash/internal/secrets"
	"github.com/awnumar/memguard"
)

type memoryEntry struct {
	blob    *memguard.LockedBuffer
	expires time.Time
}

// Memory is an in-process cache. It only outlives a single operation when the
// same process runs several, so it is the fallback when no session keyring exists.
type Memory struct {
	mu      sync.Mutex
	ttl     time.Duration
	entries map[string]memoryEntry
	now     func() time.Time
}

// NewMemory returns an empty in-process cache whose entries expire after ttl.
func NewMemory(ttl time.Duration) *Memory {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Memory{
		ttl:     ttl,
		entries: make(map[string]memoryEntry),
		now:     time.Now,
	}
}

func (m *Memory) Put(ctx context.Context, description string, secret *secrets.Secret) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	blob := make([]byte, secrets.BlobSize)
	copy(blob, secret.Bytes())

	m.mu.Lock()
	defer m.mu.Unlock()

	if old, ok := m.entries[description]; ok {
		old.blob.Destroy()
	}
	m.entries[description] = memoryEntry{
		blob:    memguard.NewBufferFromBytes(blob),
		expires: m.now().Add(m.ttl),
	}
	return nil
}

func (m *Memory) Get(ctx context.Context, description string) (*secrets.Secret, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	entry, ok := m.entries[description]
	if !ok {
		return nil, miss(description)
	}
	if !m.now().Before(entry.expires) {
		entry.blob.Destroy()
		delete(m.entries, description)
		return nil, miss(description)
	}

	blob := make([]byte, entry.blob.Size())
	copy(blob, entry.blob.Bytes())
	return secrets.FromBytes(blob)
}

func (m *Memory) Invalidate(ctx context.Context, description string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if entry, ok := m.entries[description]; ok {
		entry.blob.Destroy()
		delete(m.entries, description)
	}
	return nil
}

func (m *Memory) Name() string { return BackendMemory }

// Len reports the number of live entries.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}
