package secrets

import (
	"crypto/aes"
	"crypto/cipher"
	"fmt"
	"os"
	"path/filepath"

	serrors "github.com/PolarWolf314/stash/internal/errors"
	"github.com/awnumar/memguard"
	"golang.org/x/crypto/chacha20poly1305"
)

// TempPrefix names the scratch files written next to a file while it is
// transformed. The vault treats these names as reserved.
const TempPrefix = ".stash-tmp-"

// Cipher selects the AEAD construction used for a vault.
type Cipher string

const (
	// CipherAES256GCM is AES-256 in Galois/Counter Mode.
	CipherAES256GCM Cipher = "aes-256-gcm"

	// CipherChaCha20Poly1305 is ChaCha20-Poly1305 (RFC 8439).
	CipherChaCha20Poly1305 Cipher = "chacha20-poly1305"
)

// DefaultCipher matches the cipher of vaults created before the cipher became configurable.
const DefaultCipher = CipherAES256GCM

// ParseCipher validates a configured cipher name. An empty name selects DefaultCipher.
func ParseCipher(name string) (Cipher, error) {
	switch Cipher(name) {
	case "":
		return DefaultCipher, nil
	case CipherAES256GCM, CipherChaCha20Poly1305:
		return Cipher(name), nil
	default:
		return "", fmt.Errorf("%w: unknown cipher %q", serrors.ErrInvalidInput, name)
	}
}

func (c Cipher) aead(key []byte) (cipher.AEAD, error) {
	switch c {
	case CipherAES256GCM, "":
		block, err := aes.NewCipher(key)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", serrors.ErrCrypto, err)
		}
		gcm, err := cipher.NewGCM(block)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", serrors.ErrCrypto, err)
		}
		return gcm, nil
	case CipherChaCha20Poly1305:
		aead, err := chacha20poly1305.New(key)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", serrors.ErrCrypto, err)
		}
		return aead, nil
	default:
		return nil, fmt.Errorf("%w: unknown cipher %q", serrors.ErrCrypto, string(c))
	}
}

// EncryptInPlace replaces the contents of path with its ciphertext and
// authentication tag. Associated data is empty.
func EncryptInPlace(path string, secret *Secret, c Cipher) error {
	aead, err := c.aead(secret.Key())
	if err != nil {
		return err
	}

	plaintext, mode, err := readFile(path)
	if err != nil {
		return err
	}
	defer memguard.WipeBytes(plaintext)

	ciphertext := aead.Seal(nil, secret.Nonce(), plaintext, nil)

	return writeAtomic(path, ciphertext, mode)
}

// EncryptTo writes the ciphertext of src to dest, keeping src's permission
// bits. The ciphertext goes through a temp file next to dest, so dest never
// holds plaintext or a partial write. src is left untouched.
func EncryptTo(src, dest string, secret *Secret, c Cipher) error {
	aead, err := c.aead(secret.Key())
	if err != nil {
		return err
	}

	plaintext, mode, err := readFile(src)
	if err != nil {
		return err
	}
	defer memguard.WipeBytes(plaintext)

	ciphertext := aead.Seal(nil, secret.Nonce(), plaintext, nil)

	return writeAtomic(dest, ciphertext, mode)
}

// DecryptInPlace authenticates and decrypts path, replacing its contents with
// the plaintext. A tag mismatch returns ErrAuthenticationFailed and leaves the
// file untouched.
func DecryptInPlace(path string, secret *Secret, c Cipher) error {
	aead, err := c.aead(secret.Key())
	if err != nil {
		return err
	}

	ciphertext, mode, err := readFile(path)
	if err != nil {
		return err
	}

	plaintext, err := aead.Open(nil, secret.Nonce(), ciphertext, nil)
	if err != nil {
		return serrors.ErrAuthenticationFailed
	}
	defer memguard.WipeBytes(plaintext)

	return writeAtomic(path, plaintext, mode)
}

func readFile(path string) ([]byte, os.FileMode, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, 0, serrors.IO("failed to open file", err)
	}
	if !info.Mode().IsRegular() {
		return nil, 0, fmt.Errorf("%s is not a regular file: %w", path, serrors.ErrIO)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, 0, serrors.IO("failed to read file", err)
	}

	return data, info.Mode().Perm(), nil
}

// writeAtomic writes data to a temp file in the same directory and renames it
// over path, so a crash leaves either the old or the new contents.
func writeAtomic(path string, data []byte, mode os.FileMode) error {
	dir := filepath.Dir(path)

	tmp, err := os.CreateTemp(dir, TempPrefix+"*")
	if err != nil {
		return serrors.IO("failed to create temp file", err)
	}
	tmpPath := tmp.Name()

	cleanup := func(step string, err error) error {
		tmp.Close()
		os.Remove(tmpPath)
		return serrors.IO(step, err)
	}

	if _, err := tmp.Write(data); err != nil {
		return cleanup("failed to write file", err)
	}
	if err := tmp.Sync(); err != nil {
		return cleanup("failed to sync file", err)
	}
	if err := tmp.Chmod(mode); err != nil {
		return cleanup("failed to set file mode", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return serrors.IO("failed to close file", err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return serrors.IO("failed to replace file", err)
	}

	return nil
}
