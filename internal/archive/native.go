package archive

import (
	"archive/tar"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	serrors "github.com/PolarWolf314/stash/internal/errors"
	"github.com/PolarWolf314/stash/internal/secrets"
	"github.com/klauspost/compress/gzip"
)

// Native builds tar.gz containers in process.
type Native struct {
	CompressionLevel int
}

// NewNative returns a native archiver. Out-of-range levels select gzip.DefaultCompression.
func NewNative(level int) *Native {
	if level < gzip.HuffmanOnly || level > gzip.BestCompression {
		level = gzip.DefaultCompression
	}
	return &Native{CompressionLevel: level}
}

func (n *Native) Name() string { return ToolNative }

func (n *Native) Build(ctx context.Context, root, container string, skip Filter) ([]string, error) {
	names, err := sources(root, container, skip)
	if err != nil {
		return nil, err
	}

	tmp, err := os.CreateTemp(root, secrets.TempPrefix+"*")
	if err != nil {
		return nil, serrors.IO("creating container", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if err := n.write(ctx, tmp, root, names); err != nil {
		tmp.Close()
		return nil, err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return nil, serrors.IO("syncing container", err)
	}
	if err := tmp.Close(); err != nil {
		return nil, serrors.IO("closing container", err)
	}
	if err := os.Rename(tmpName, filepath.Join(root, container)); err != nil {
		return nil, serrors.IO("creating container", err)
	}

	// The container is complete, so the originals can go.
	for _, name := range names {
		if err := os.RemoveAll(filepath.Join(root, name)); err != nil {
			return names, serrors.IO(fmt.Sprintf("removing archived file %s", name), err)
		}
	}
	return names, nil
}

func (n *Native) write(ctx context.Context, w io.Writer, root string, names []string) error {
	gzWriter, err := gzip.NewWriterLevel(w, n.CompressionLevel)
	if err != nil {
		return fmt.Errorf("creating gzip writer: %w", err)
	}
	tarWriter := tar.NewWriter(gzWriter)

	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return err
		}
		err := filepath.WalkDir(filepath.Join(root, name), func(p string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			return addToTar(tarWriter, root, p)
		})
		if err != nil {
			return serrors.IO(fmt.Sprintf("archiving %s", name), err)
		}
	}

	if err := tarWriter.Close(); err != nil {
		return serrors.IO("finishing tar stream", err)
	}
	if err := gzWriter.Close(); err != nil {
		return serrors.IO("finishing gzip stream", err)
	}
	return nil
}

func addToTar(tw *tar.Writer, root, p string) error {
	info, err := os.Lstat(p)
	if err != nil {
		return err
	}
	if !info.Mode().IsRegular() && !info.IsDir() {
		return fmt.Errorf("%s is neither a file nor a directory", p)
	}

	header, err := tar.FileInfoHeader(info, "")
	if err != nil {
		return err
	}
	rel, err := filepath.Rel(root, p)
	if err != nil {
		return err
	}
	header.Name = filepath.ToSlash(rel)
	if info.IsDir() {
		header.Name += "/"
	}

	if err := tw.WriteHeader(header); err != nil {
		return err
	}
	if info.IsDir() {
		return nil
	}

	file, err := os.Open(p)
	if err != nil {
		return err
	}
	defer file.Close()

	_, err = io.Copy(tw, file)
	return err
}

func (n *Native) Extract(ctx context.Context, containerPath, root string, skip Filter) ([]string, error) {
	file, err := os.Open(containerPath)
	if err != nil {
		return nil, serrors.IO("opening container", err)
	}
	defer file.Close()

	gzReader, err := gzip.NewReader(file)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", serrors.ErrInvalidArchive, err)
	}
	defer gzReader.Close()

	tarReader := tar.NewReader(gzReader)
	seen := map[string]bool{}
	var written []string

	for {
		if err := ctx.Err(); err != nil {
			return written, err
		}

		header, err := tarReader.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return written, fmt.Errorf("%w: %w", serrors.ErrInvalidArchive, err)
		}

		clean, top, err := checkEntry(header.Name, skip)
		if err != nil {
			return written, err
		}
		target := filepath.Join(root, filepath.FromSlash(clean))

		switch header.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, 0700); err != nil {
				return written, serrors.IO(fmt.Sprintf("creating directory %s", header.Name), err)
			}
		case tar.TypeReg:
			if err := os.MkdirAll(filepath.Dir(target), 0700); err != nil {
				return written, serrors.IO(fmt.Sprintf("creating directory for %s", header.Name), err)
			}
			if err := extractFile(tarReader, target, header.Mode); err != nil {
				if !errors.Is(err, serrors.ErrFileExists) {
					written = appendUnique(written, seen, top)
				}
				return written, fmt.Errorf("extracting %s: %w", header.Name, err)
			}
		default:
			return written, fmt.Errorf("%w: entry %q is not a regular file", serrors.ErrInvalidArchive, header.Name)
		}
		written = appendUnique(written, seen, top)
	}

	return written, nil
}

// extractFile writes one entry. Existing files are never overwritten.
func extractFile(r io.Reader, target string, mode int64) error {
	fileMode := os.FileMode(0600)
	if mode >= 0 && mode <= 0777 {
		fileMode = os.FileMode(mode)
	}

	out, err := os.OpenFile(target, os.O_CREATE|os.O_EXCL|os.O_WRONLY, fileMode)
	if err != nil {
		if errors.Is(err, fs.ErrExist) {
			return fmt.Errorf("%w: %s", serrors.ErrFileExists, filepath.Base(target))
		}
		return serrors.IO("creating file", err)
	}

	if _, err := io.Copy(out, r); err != nil {
		out.Close()
		return serrors.IO("writing file contents", err)
	}
	if err := out.Close(); err != nil {
		return serrors.IO("closing file", err)
	}
	return nil
}
