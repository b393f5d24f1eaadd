package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	serrors "github.com/PolarWolf314/stash/internal/errors"
	"github.com/PolarWolf314/stash/internal/secrets"
	"github.com/99designs/keyring"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// exerciseCache runs the behavior every backend must share.
func exerciseCache(t *testing.T, c Cache) {
	t.Helper()
	ctx := context.Background()

	_, err := c.Get(ctx, "missing.txt")
	assert.ErrorIs(t, err, serrors.ErrSecretNotFound)

	secret := secrets.Generate()
	defer secret.Destroy()

	require.NoError(t, c.Put(ctx, "notes.txt", secret))

	cached, err := c.Get(ctx, "notes.txt")
	require.NoError(t, err)
	assert.True(t, secret.Equal(cached))
	cached.Destroy()

	replacement := secrets.Generate()
	defer replacement.Destroy()
	require.NoError(t, c.Put(ctx, "notes.txt", replacement))

	cached, err = c.Get(ctx, "notes.txt")
	require.NoError(t, err)
	assert.True(t, replacement.Equal(cached))
	cached.Destroy()

	require.NoError(t, c.Invalidate(ctx, "notes.txt"))
	_, err = c.Get(ctx, "notes.txt")
	assert.ErrorIs(t, err, serrors.ErrSecretNotFound)

	assert.NoError(t, c.Invalidate(ctx, "notes.txt"), "invalidating a missing entry is not an error")
}

func TestMemory(t *testing.T) {
	m := NewMemory(time.Minute)
	exerciseCache(t, m)
	assert.Equal(t, 0, m.Len())
	assert.Equal(t, BackendMemory, m.Name())
}

func TestMemory_Expiry(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	m := NewMemory(time.Minute)
	m.now = func() time.Time { return now }

	secret := secrets.Generate()
	defer secret.Destroy()
	require.NoError(t, m.Put(ctx, "a", secret))

	now = now.Add(59 * time.Second)
	cached, err := m.Get(ctx, "a")
	require.NoError(t, err)
	cached.Destroy()

	now = now.Add(time.Second)
	_, err = m.Get(ctx, "a")
	assert.ErrorIs(t, err, serrors.ErrSecretNotFound)
	assert.Equal(t, 0, m.Len())
}

func TestMemory_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	m := NewMemory(0)
	secret := secrets.Generate()
	defer secret.Destroy()

	assert.ErrorIs(t, m.Put(ctx, "a", secret), context.Canceled)
}

func TestNone(t *testing.T) {
	ctx := context.Background()
	var c Cache = None{}

	secret := secrets.Generate()
	defer secret.Destroy()

	require.NoError(t, c.Put(ctx, "a", secret))
	_, err := c.Get(ctx, "a")
	assert.ErrorIs(t, err, serrors.ErrSecretNotFound)
	assert.NoError(t, c.Invalidate(ctx, "a"))
}

// serializingRing copies item data on the way in and out, the way OS
// credential stores do, and keeps the slices it handed over.
type serializingRing struct {
	keyring.Keyring
	set []byte
	got []byte
}

func newSerializingRing() *serializingRing {
	return &serializingRing{Keyring: keyring.NewArrayKeyring(nil)}
}

func (r *serializingRing) Set(item keyring.Item) error {
	r.set = item.Data
	item.Data = append([]byte(nil), item.Data...)
	return r.Keyring.Set(item)
}

func (r *serializingRing) Get(key string) (keyring.Item, error) {
	item, err := r.Keyring.Get(key)
	if err != nil {
		return item, err
	}
	item.Data = append([]byte(nil), item.Data...)
	r.got = item.Data
	return item, nil
}

func TestKeychain(t *testing.T) {
	ring := newSerializingRing()
	c := NewKeychain(ring, "vault-1")
	exerciseCache(t, c)
	assert.Equal(t, BackendKeychain, c.Name())
}

func TestKeychain_Namespaced(t *testing.T) {
	ctx := context.Background()
	ring := newSerializingRing()

	a := NewKeychain(ring, "vault-a")
	b := NewKeychain(ring, "vault-b")

	secret := secrets.Generate()
	defer secret.Destroy()
	require.NoError(t, a.Put(ctx, "shared.txt", secret))

	_, err := b.Get(ctx, "shared.txt")
	assert.ErrorIs(t, err, serrors.ErrSecretNotFound)

	keys, err := ring.Keys()
	require.NoError(t, err)
	assert.Equal(t, []string{"stash:vault-a:shared.txt"}, keys)
}

func TestKeychain_WipesTransientCopies(t *testing.T) {
	ctx := context.Background()
	ring := newSerializingRing()
	c := NewKeychain(ring, "v")

	secret := secrets.Generate()
	defer secret.Destroy()
	require.NoError(t, c.Put(ctx, "a.txt", secret))

	require.Len(t, ring.set, secrets.BlobSize)
	assert.Equal(t, make([]byte, secrets.BlobSize), ring.set)

	cached, err := c.Get(ctx, "a.txt")
	require.NoError(t, err)
	defer cached.Destroy()
	assert.True(t, secret.Equal(cached))

	require.Len(t, ring.got, secrets.BlobSize)
	assert.Equal(t, make([]byte, secrets.BlobSize), ring.got)
}

func TestKeychain_CorruptEntry(t *testing.T) {
	ring := keyring.NewArrayKeyring([]keyring.Item{
		{Key: entryName("v", "bad.txt"), Data: []byte("short")},
	})
	c := NewKeychain(ring, "v")

	_, err := c.Get(context.Background(), "bad.txt")
	assert.ErrorIs(t, err, serrors.ErrCorruptSecret)
}

func TestKernel(t *testing.T) {
	c, err := New(Options{Backend: BackendKernel, Namespace: "test-" + uuid.NewString(), TTL: time.Minute})
	if errors.Is(err, serrors.ErrCacheUnavailable) {
		t.Skip("session keyring not available")
	}
	require.NoError(t, err)

	secret := secrets.Generate()
	defer secret.Destroy()
	if err := c.Put(context.Background(), "kernel-check", secret); err != nil {
		t.Skipf("session keyring not writable: %v", err)
	}
	require.NoError(t, c.Invalidate(context.Background(), "kernel-check"))

	exerciseCache(t, c)
	assert.Equal(t, BackendKernel, c.Name())
}

func TestNew(t *testing.T) {
	c, err := New(Options{Backend: BackendMemory})
	require.NoError(t, err)
	assert.Equal(t, BackendMemory, c.Name())

	c, err = New(Options{Backend: BackendNone})
	require.NoError(t, err)
	assert.Equal(t, BackendNone, c.Name())

	_, err = New(Options{Backend: "floppy"})
	assert.ErrorIs(t, err, serrors.ErrInvalidInput)

	assert.True(t, ValidBackend("keychain"))
	assert.False(t, ValidBackend("floppy"))
}

func TestEntryName(t *testing.T) {
	assert.Equal(t, "stash:notes.txt", entryName("", "notes.txt"))
	assert.Equal(t, "stash:abc:notes.txt", entryName("abc", "notes.txt"))
}
