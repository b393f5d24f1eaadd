package archive

import (
	"archive/tar"
	"bytes"
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	serrors "github.com/PolarWolf314/stash/internal/errors"
	"github.com/klauspost/compress/gzip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func skipDotDB(name string) bool { return name == ".db" }

func populate(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for name, content := range files {
		path := filepath.Join(root, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0700))
		require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	}
}

func rootNames(t *testing.T, root string) []string {
	t.Helper()
	entries, err := os.ReadDir(root)
	require.NoError(t, err)
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}

// writeContainer builds a tar.gz by hand so tests can craft hostile entries.
func writeContainer(t *testing.T, path string, headers []*tar.Header) {
	t.Helper()
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	tw := tar.NewWriter(gz)
	for _, h := range headers {
		if h.Typeflag == tar.TypeReg {
			h.Size = int64(len("payload"))
		}
		require.NoError(t, tw.WriteHeader(h))
		if h.Typeflag == tar.TypeReg {
			_, err := tw.Write([]byte("payload"))
			require.NoError(t, err)
		}
	}
	require.NoError(t, tw.Close())
	require.NoError(t, gz.Close())
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0600))
}

func archivers(t *testing.T) map[string]Archiver {
	a := map[string]Archiver{ToolNative: NewNative(6)}
	if _, err := exec.LookPath("tar"); err == nil {
		a[ToolTar] = &Tar{Command: "tar"}
	}
	return a
}

func TestArchiver_BuildExtractRoundTrip(t *testing.T) {
	for name, a := range archivers(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			root := t.TempDir()
			files := map[string]string{
				"a.txt":        "alpha",
				"b.bin":        string([]byte{0, 1, 2, 3}),
				"docs/c.md":    "# nested",
				"docs/sub/d.x": "deep",
			}
			populate(t, root, files)
			populate(t, root, map[string]string{".db": "store"})

			names, err := a.Build(ctx, root, "contents", skipDotDB)
			require.NoError(t, err)
			assert.Equal(t, []string{"a.txt", "b.bin", "docs"}, names)
			assert.ElementsMatch(t, []string{".db", "contents"}, rootNames(t, root))

			written, err := a.Extract(ctx, filepath.Join(root, "contents"), root, skipDotDB)
			require.NoError(t, err)
			assert.ElementsMatch(t, []string{"a.txt", "b.bin", "docs"}, written)

			for rel, want := range files {
				got, err := os.ReadFile(filepath.Join(root, filepath.FromSlash(rel)))
				require.NoError(t, err)
				assert.Equal(t, want, string(got))
			}

			store, err := os.ReadFile(filepath.Join(root, ".db"))
			require.NoError(t, err)
			assert.Equal(t, "store", string(store))
		})
	}
}

func TestNative_BuildLeavesNoTempFiles(t *testing.T) {
	root := t.TempDir()
	populate(t, root, map[string]string{"a.txt": "alpha"})

	_, err := NewNative(6).Build(context.Background(), root, "contents", nil)
	require.NoError(t, err)

	for _, name := range rootNames(t, root) {
		assert.False(t, strings.HasPrefix(name, ".stash-tmp-"), "leftover %s", name)
	}
}

func TestNative_ExtractRejectsTraversal(t *testing.T) {
	tests := []struct {
		name   string
		header *tar.Header
	}{
		{"parent", &tar.Header{Name: "../escape.txt", Typeflag: tar.TypeReg, Mode: 0600}},
		{"nested parent", &tar.Header{Name: "docs/../../escape.txt", Typeflag: tar.TypeReg, Mode: 0600}},
		{"absolute", &tar.Header{Name: "/tmp/escape.txt", Typeflag: tar.TypeReg, Mode: 0600}},
		{"reserved", &tar.Header{Name: ".db", Typeflag: tar.TypeReg, Mode: 0600}},
		{"symlink", &tar.Header{Name: "link", Typeflag: tar.TypeSymlink, Linkname: "/etc/passwd"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			root := filepath.Join(dir, "stash")
			require.NoError(t, os.Mkdir(root, 0700))
			container := filepath.Join(dir, "contents")
			writeContainer(t, container, []*tar.Header{tt.header})

			written, err := NewNative(6).Extract(context.Background(), container, root, skipDotDB)
			require.Error(t, err)
			assert.ErrorIs(t, err, serrors.ErrInvalidArchive)
			assert.ErrorIs(t, err, serrors.ErrInvalidInput)
			assert.Empty(t, written)
			assert.Empty(t, rootNames(t, root))
			assert.NoFileExists(t, filepath.Join(dir, "escape.txt"))
		})
	}
}

func TestNative_ExtractNeverOverwrites(t *testing.T) {
	dir := t.TempDir()
	root := filepath.Join(dir, "stash")
	require.NoError(t, os.Mkdir(root, 0700))
	populate(t, root, map[string]string{"a.txt": "original"})

	container := filepath.Join(dir, "contents")
	writeContainer(t, container, []*tar.Header{{Name: "a.txt", Typeflag: tar.TypeReg, Mode: 0600}})

	written, err := NewNative(6).Extract(context.Background(), container, root, nil)
	assert.ErrorIs(t, err, serrors.ErrFileExists)
	assert.Empty(t, written, "a pre-existing file must not be reported as written")

	got, err := os.ReadFile(filepath.Join(root, "a.txt"))
	require.NoError(t, err)
	assert.Equal(t, "original", string(got))
}

func TestNative_ExtractGarbage(t *testing.T) {
	dir := t.TempDir()
	container := filepath.Join(dir, "contents")
	require.NoError(t, os.WriteFile(container, []byte("definitely not gzip"), 0600))

	_, err := NewNative(6).Extract(context.Background(), container, dir, nil)
	assert.ErrorIs(t, err, serrors.ErrInvalidArchive)
}

func TestTar_FailureIsExternalToolFailure(t *testing.T) {
	if _, err := exec.LookPath("tar"); err != nil {
		t.Skip("tar not installed")
	}
	dir := t.TempDir()
	container := filepath.Join(dir, "contents")
	require.NoError(t, os.WriteFile(container, []byte("definitely not gzip"), 0600))

	_, err := (&Tar{Command: "tar"}).Extract(context.Background(), container, dir, nil)
	assert.ErrorIs(t, err, serrors.ErrExternalToolFailure)
}

func TestTar_MissingBinary(t *testing.T) {
	root := t.TempDir()
	populate(t, root, map[string]string{"a.txt": "alpha"})

	_, err := (&Tar{Command: "stash-no-such-tar"}).Build(context.Background(), root, "contents", nil)
	assert.ErrorIs(t, err, serrors.ErrExternalToolFailure)
	assert.FileExists(t, filepath.Join(root, "a.txt"))
}

func TestListers(t *testing.T) {
	root := t.TempDir()
	populate(t, root, map[string]string{"b.txt": "", "a.txt": "", ".db": ""})

	listers := map[string]Lister{ToolNative: DirLister{}}
	if _, err := exec.LookPath("ls"); err == nil {
		listers[ToolLs] = &Ls{Command: "ls"}
	}

	for name, l := range listers {
		t.Run(name, func(t *testing.T) {
			out, err := l.List(context.Background(), root, false)
			require.NoError(t, err)
			assert.Equal(t, "a.txt\nb.txt", out)

			out, err = l.List(context.Background(), root, true)
			require.NoError(t, err)
			assert.ElementsMatch(t, []string{".db", "a.txt", "b.txt"}, strings.Split(out, "\n"))
		})
	}
}

func TestListers_MissingDirectory(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "missing")

	_, err := DirLister{}.List(context.Background(), missing, false)
	assert.ErrorIs(t, err, serrors.ErrIO)

	if _, err := exec.LookPath("ls"); err == nil {
		_, err := (&Ls{Command: "ls"}).List(context.Background(), missing, false)
		assert.ErrorIs(t, err, serrors.ErrExternalToolFailure)
	}
}

func TestFactories(t *testing.T) {
	a, err := NewArchiver("", 6)
	require.NoError(t, err)
	assert.Equal(t, ToolNative, a.Name())

	a, err = NewArchiver(ToolTar, 6)
	require.NoError(t, err)
	assert.Equal(t, ToolTar, a.Name())

	_, err = NewArchiver("zip", 6)
	assert.ErrorIs(t, err, serrors.ErrInvalidInput)

	l, err := NewLister(ToolLs)
	require.NoError(t, err)
	assert.Equal(t, ToolLs, l.Name())

	_, err = NewLister("dir")
	assert.ErrorIs(t, err, serrors.ErrInvalidInput)
}
