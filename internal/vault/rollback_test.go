package vault

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/PolarWolf314/stash/internal/archive"
	"github.com/PolarWolf314/stash/internal/cache"
	serrors "github.com/PolarWolf314/stash/internal/errors"
	"github.com/PolarWolf314/stash/internal/mock"
	"github.com/PolarWolf314/stash/internal/secrets"
	"github.com/PolarWolf314/stash/internal/store"
)

func TestAdd_StoreFailureLeavesSourceUntouched(t *testing.T) {
	ctx := context.Background()
	ctrl := gomock.NewController(t)
	root := t.TempDir()

	mockStore := mock.NewMockStore(ctrl)
	mockStore.EXPECT().Put(ctx, "note.txt", gomock.Any()).Return(errors.New("disk full"))

	v, err := New(root, Deps{Store: mockStore, Cache: cache.NewMemory(time.Minute), Archiver: archive.NewNative(0), Lister: archive.DirLister{}})
	require.NoError(t, err)

	source := filepath.Join(t.TempDir(), "note.txt")
	require.NoError(t, os.WriteFile(source, []byte("precious"), 0600))

	_, err = v.Add(ctx, source, false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")

	data, err := os.ReadFile(source)
	require.NoError(t, err)
	assert.Equal(t, []byte("precious"), data)
	assert.Empty(t, rootNames(t, root))
}

func TestAdd_PlaceFailureRemovesSecret(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()

	// An unreadable source passes the checks but cannot be copied.
	source := filepath.Join(t.TempDir(), "note.txt")
	require.NoError(t, os.WriteFile(source, []byte("x"), 0000))
	if f, err := os.Open(source); err == nil {
		f.Close()
		t.Skip("running with privileges that bypass file permissions")
	}

	ctrl := gomock.NewController(t)
	mockStore := mock.NewMockStore(ctrl)
	mockStore.EXPECT().Backend().Return(store.BackendBolt).AnyTimes()
	gomock.InOrder(
		mockStore.EXPECT().Put(ctx, "note.txt", gomock.Any()).Return(nil),
		mockStore.EXPECT().Remove(ctx, "note.txt").Return(nil),
	)

	v, err := New(root, Deps{Store: mockStore, Archiver: archive.NewNative(0), Lister: archive.DirLister{}})
	require.NoError(t, err)

	_, err = v.Add(ctx, source, true)
	assert.ErrorIs(t, err, serrors.ErrIO)
	assert.Empty(t, rootNames(t, root))
}

func TestAdd_EncryptFailureKeepsPlaintextOutOfRoot(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()

	source := filepath.Join(t.TempDir(), "note.txt")
	require.NoError(t, os.WriteFile(source, []byte("precious"), 0600))

	// A read-only root refuses the ciphertext's temp file.
	require.NoError(t, os.Chmod(root, 0500))
	t.Cleanup(func() { os.Chmod(root, 0700) })
	if f, err := os.CreateTemp(root, "writable"); err == nil {
		f.Close()
		os.Remove(f.Name())
		t.Skip("running with privileges that bypass directory permissions")
	}

	ctrl := gomock.NewController(t)
	mockStore := mock.NewMockStore(ctrl)
	mockStore.EXPECT().Backend().Return(store.BackendBolt).AnyTimes()
	gomock.InOrder(
		mockStore.EXPECT().Put(ctx, "note.txt", gomock.Any()).Return(nil),
		mockStore.EXPECT().Remove(ctx, "note.txt").Return(nil),
	)

	v, err := New(root, Deps{Store: mockStore, Archiver: archive.NewNative(0), Lister: archive.DirLister{}})
	require.NoError(t, err)

	_, err = v.Add(ctx, source, false)
	assert.ErrorIs(t, err, serrors.ErrIO)
	assert.Empty(t, rootNames(t, root))

	data, err := os.ReadFile(source)
	require.NoError(t, err)
	assert.Equal(t, []byte("precious"), data, "source is removed only after the ciphertext is in place")
}

func TestAdd_SourceRemovalFailureRollsBack(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	// The source can be read but its directory refuses the removal.
	srcDir := filepath.Join(t.TempDir(), "ro")
	require.NoError(t, os.Mkdir(srcDir, 0700))
	source := filepath.Join(srcDir, "note.txt")
	require.NoError(t, os.WriteFile(source, []byte("precious"), 0600))
	require.NoError(t, os.Chmod(srcDir, 0500))
	t.Cleanup(func() { os.Chmod(srcDir, 0700) })
	if f, err := os.CreateTemp(srcDir, "writable"); err == nil {
		f.Close()
		os.Remove(f.Name())
		t.Skip("running with privileges that bypass directory permissions")
	}

	_, err := env.vault.Add(ctx, source, false)
	assert.ErrorIs(t, err, serrors.ErrIO)
	assert.FileExists(t, source)
	assert.Equal(t, []string{".db"}, rootNames(t, env.root))

	_, err = env.store.Get(ctx, "note.txt")
	assert.ErrorIs(t, err, serrors.ErrSecretNotFound)
}

func TestGrab_CacheErrorFallsBackToStore(t *testing.T) {
	ctx := context.Background()
	ctrl := gomock.NewController(t)
	env := newTestEnv(t)
	env.addFile(t, "note.txt", []byte("via store"))

	mockCache := mock.NewMockCache(ctrl)
	mockCache.EXPECT().Get(gomock.Any(), "note.txt").Return(nil, errors.New("keyring unreachable"))
	mockCache.EXPECT().Invalidate(gomock.Any(), "note.txt").Return(nil)

	v, err := New(env.root, Deps{Store: env.store, Cache: mockCache, Archiver: archive.NewNative(0), Lister: archive.DirLister{}})
	require.NoError(t, err)

	dest, err := v.Grab(ctx, "note.txt", false, env.dest)
	require.NoError(t, err)
	data, _ := os.ReadFile(dest)
	assert.Equal(t, []byte("via store"), data)
}

func TestGrab_InvalidateFailureIsReported(t *testing.T) {
	ctx := context.Background()
	ctrl := gomock.NewController(t)
	env := newTestEnv(t)
	env.addFile(t, "note.txt", []byte("x"))

	mockCache := mock.NewMockCache(ctrl)
	mockCache.EXPECT().Get(gomock.Any(), "note.txt").Return(nil, serrors.ErrSecretNotFound)
	mockCache.EXPECT().Invalidate(gomock.Any(), "note.txt").Return(errors.New("permission denied"))

	v, err := New(env.root, Deps{Store: env.store, Cache: mockCache, Archiver: archive.NewNative(0), Lister: archive.DirLister{}})
	require.NoError(t, err)

	dest, err := v.Grab(ctx, "note.txt", false, env.dest)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "permission denied")
	assert.FileExists(t, dest, "file is released even when the cache cannot be cleared")
}

func TestAdd_CacheFailureIsOnlyAWarning(t *testing.T) {
	ctx := context.Background()
	ctrl := gomock.NewController(t)
	env := newTestEnv(t)

	mockCache := mock.NewMockCache(ctrl)
	mockCache.EXPECT().Put(gomock.Any(), "note.txt", gomock.Any()).Return(errors.New("quota exceeded"))

	v, err := New(env.root, Deps{Store: env.store, Cache: mockCache, Archiver: archive.NewNative(0), Lister: archive.DirLister{}})
	require.NoError(t, err)

	_, err = v.Add(ctx, env.writeSource(t, "note.txt", []byte("x")), false)
	require.NoError(t, err)

	secret, err := env.store.Get(ctx, "note.txt")
	require.NoError(t, err)
	secret.Destroy()
}

func TestArchive_StoreFailureRestoresFiles(t *testing.T) {
	ctx := context.Background()
	ctrl := gomock.NewController(t)
	root := t.TempDir()

	for _, name := range []string{"a.txt", "b.txt"} {
		require.NoError(t, os.WriteFile(filepath.Join(root, name), []byte(name), 0600))
	}

	mockStore := mock.NewMockStore(ctrl)
	mockStore.EXPECT().IsEmpty(ctx).Return(false, nil)
	mockStore.EXPECT().Put(ctx, ContainerName, gomock.Any()).Return(serrors.ErrStoreLocked)

	v, err := New(root, Deps{Store: mockStore, Archiver: archive.NewNative(0), Lister: archive.DirLister{}})
	require.NoError(t, err)

	_, err = v.Archive(ctx)
	assert.ErrorIs(t, err, serrors.ErrStoreLocked)
	assert.Equal(t, Unarchived, v.State())
	assert.Equal(t, []string{"a.txt", "b.txt"}, rootNames(t, root))

	for _, name := range []string{"a.txt", "b.txt"} {
		data, err := os.ReadFile(filepath.Join(root, name))
		require.NoError(t, err)
		assert.Equal(t, []byte(name), data)
	}
}

func TestArchive_BuildFailureIsReported(t *testing.T) {
	ctx := context.Background()
	ctrl := gomock.NewController(t)
	env := newTestEnv(t)
	env.addFile(t, "a.txt", []byte("a"))

	archiver := mock.NewMockArchiver(ctrl)
	archiver.EXPECT().Name().Return("tar").AnyTimes()
	archiver.EXPECT().Build(ctx, env.root, ContainerName, gomock.Any()).
		Return(nil, serrors.ErrExternalToolFailure)

	v, err := New(env.root, Deps{Store: env.store, Cache: env.cache, Archiver: archiver, Lister: archive.DirLister{}})
	require.NoError(t, err)

	_, err = v.Archive(ctx)
	assert.ErrorIs(t, err, serrors.ErrExternalToolFailure)

	_, err = env.store.Get(ctx, ContainerName)
	assert.ErrorIs(t, err, serrors.ErrSecretNotFound)
}

func TestUnpack_ExtractFailureReencryptsContainer(t *testing.T) {
	ctx := context.Background()
	ctrl := gomock.NewController(t)
	env := newTestEnv(t)
	env.addFile(t, "a.txt", []byte("a"))
	_, err := env.vault.Archive(ctx)
	require.NoError(t, err)

	containerPath := filepath.Join(env.root, ContainerName)
	before, err := os.ReadFile(containerPath)
	require.NoError(t, err)

	archiver := mock.NewMockArchiver(ctrl)
	archiver.EXPECT().Name().Return("tar").AnyTimes()
	archiver.EXPECT().Extract(ctx, containerPath, env.root, gomock.Any()).
		DoAndReturn(func(_ context.Context, _, root string, _ archive.Filter) ([]string, error) {
			if err := os.WriteFile(filepath.Join(root, "a.txt"), []byte("partial"), 0600); err != nil {
				return nil, err
			}
			return []string{"a.txt"}, serrors.ErrExternalToolFailure
		})

	v, err := New(env.root, Deps{Store: env.store, Cache: env.cache, Archiver: archiver, Lister: archive.DirLister{}})
	require.NoError(t, err)

	_, err = v.Unpack(ctx)
	assert.ErrorIs(t, err, serrors.ErrExternalToolFailure)
	assert.Equal(t, Archived, v.State())
	assert.Equal(t, []string{".db", ContainerName}, rootNames(t, env.root))

	after, err := os.ReadFile(containerPath)
	require.NoError(t, err)
	assert.Equal(t, before, after, "container must be re-encrypted with the same secret")

	secret, err := env.store.Get(ctx, ContainerName)
	require.NoError(t, err)
	secret.Destroy()

	restored, err := env.vault.Unpack(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"a.txt"}, restored)
}

func TestList_ExternalFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	root := t.TempDir()

	lister := mock.NewMockLister(ctrl)
	lister.EXPECT().List(gomock.Any(), root, false).Return("", serrors.ErrExternalToolFailure)

	v, err := New(root, Deps{Store: mock.NewMockStore(ctrl), Archiver: archive.NewNative(0), Lister: lister})
	require.NoError(t, err)

	_, err = v.List(context.Background(), ListOptions{})
	assert.ErrorIs(t, err, serrors.ErrExternalToolFailure)
}

func TestOpen(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()

	v, err := Open(ctx, Config{Root: root, Cipher: secrets.CipherChaCha20Poly1305, CacheBackend: cache.BackendMemory})
	require.NoError(t, err)
	first, err := v.Status(ctx)
	require.NoError(t, err)
	require.NoError(t, v.Close())

	assert.NotEmpty(t, first.ID)
	assert.Equal(t, string(secrets.CipherChaCha20Poly1305), first.Cipher)

	v, err = Open(ctx, Config{Root: root, Cipher: secrets.CipherAES256GCM, CacheBackend: cache.BackendMemory, StoreBackend: store.BackendBolt})
	require.NoError(t, err)
	defer v.Close()

	assert.Equal(t, secrets.CipherChaCha20Poly1305, v.Cipher(), "cipher is fixed at creation")
	second, err := v.Status(ctx)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
}

func TestOpen_Errors(t *testing.T) {
	ctx := context.Background()

	_, err := Open(ctx, Config{Root: filepath.Join(t.TempDir(), "missing")})
	assert.ErrorIs(t, err, serrors.ErrVaultNotFound)

	file := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(file, nil, 0600))
	_, err = Open(ctx, Config{Root: file})
	assert.ErrorIs(t, err, serrors.ErrVaultNotFound)

	_, err = Open(ctx, Config{Root: t.TempDir(), CacheBackend: cache.BackendMemory, ArchiveTool: "zip"})
	assert.ErrorIs(t, err, serrors.ErrInvalidInput)

	root := t.TempDir()
	held, err := Open(ctx, Config{Root: root, CacheBackend: cache.BackendMemory})
	require.NoError(t, err)
	defer held.Close()

	_, err = Open(ctx, Config{Root: root, CacheBackend: cache.BackendMemory, LockTimeout: 50 * time.Millisecond})
	assert.ErrorIs(t, err, serrors.ErrStoreLocked)
}
