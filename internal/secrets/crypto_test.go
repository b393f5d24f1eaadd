package secrets

import (
	"bytes"
	"crypto/rand"
	"os"
	"path/filepath"
	"testing"

	serrors "github.com/PolarWolf314/stash/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const tagSize = 16

// writeTestFile is a helper to write test files with 0600 permissions.
func writeTestFile(t *testing.T, path string, content []byte) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, content, 0600))
}

func randomBytes(t *testing.T, n int) []byte {
	t.Helper()
	b := make([]byte, n)
	_, err := rand.Read(b)
	require.NoError(t, err)
	return b
}

var ciphers = []Cipher{CipherAES256GCM, CipherChaCha20Poly1305}

func TestEncryptDecrypt_RoundTrip(t *testing.T) {
	sizes := []int{0, 1, 15, 16, 17, 4096, 1 << 20}

	for _, c := range ciphers {
		for _, size := range sizes {
			t.Run(string(c), func(t *testing.T) {
				path := filepath.Join(t.TempDir(), "note.txt")
				original := randomBytes(t, size)
				writeTestFile(t, path, original)

				secret := Generate()
				defer secret.Destroy()

				require.NoError(t, EncryptInPlace(path, secret, c))

				encrypted, err := os.ReadFile(path)
				require.NoError(t, err)
				assert.Len(t, encrypted, size+tagSize)
				if size > 0 {
					assert.False(t, bytes.Contains(encrypted, original))
				}

				require.NoError(t, DecryptInPlace(path, secret, c))

				decrypted, err := os.ReadFile(path)
				require.NoError(t, err)
				assert.True(t, bytes.Equal(original, decrypted))
			})
		}
	}
}

func TestDecrypt_TamperDetection(t *testing.T) {
	for _, c := range ciphers {
		t.Run(string(c), func(t *testing.T) {
			dir := t.TempDir()
			original := []byte("the quick brown fox jumps over the lazy dog")

			secret := Generate()
			defer secret.Destroy()

			path := filepath.Join(dir, "note.txt")
			writeTestFile(t, path, original)
			require.NoError(t, EncryptInPlace(path, secret, c))

			encrypted, err := os.ReadFile(path)
			require.NoError(t, err)

			for i := range encrypted {
				tampered := append([]byte(nil), encrypted...)
				tampered[i] ^= 0x01
				writeTestFile(t, path, tampered)

				err := DecryptInPlace(path, secret, c)
				require.Error(t, err, "flipping byte %d must be detected", i)
				assert.ErrorIs(t, err, serrors.ErrAuthenticationFailed)

				unchanged, readErr := os.ReadFile(path)
				require.NoError(t, readErr)
				assert.Equal(t, tampered, unchanged, "failed decryption must leave the file untouched")
			}
		})
	}
}

func TestDecrypt_WrongSecret(t *testing.T) {
	path := filepath.Join(t.TempDir(), "note.txt")
	writeTestFile(t, path, []byte("secret data"))

	right := Generate()
	defer right.Destroy()
	wrong := Generate()
	defer wrong.Destroy()

	require.NoError(t, EncryptInPlace(path, right, CipherAES256GCM))

	err := DecryptInPlace(path, wrong, CipherAES256GCM)
	assert.ErrorIs(t, err, serrors.ErrAuthenticationFailed)

	require.NoError(t, DecryptInPlace(path, right, CipherAES256GCM))
}

func TestDecrypt_WrongCipher(t *testing.T) {
	path := filepath.Join(t.TempDir(), "note.txt")
	writeTestFile(t, path, []byte("secret data"))

	secret := Generate()
	defer secret.Destroy()

	require.NoError(t, EncryptInPlace(path, secret, CipherAES256GCM))
	assert.ErrorIs(t, DecryptInPlace(path, secret, CipherChaCha20Poly1305), serrors.ErrAuthenticationFailed)
}

func TestDecrypt_TruncatedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "note.txt")
	writeTestFile(t, path, []byte("short"))

	secret := Generate()
	defer secret.Destroy()

	assert.ErrorIs(t, DecryptInPlace(path, secret, CipherAES256GCM), serrors.ErrAuthenticationFailed)
}

func TestEncrypt_MissingFile(t *testing.T) {
	secret := Generate()
	defer secret.Destroy()

	err := EncryptInPlace(filepath.Join(t.TempDir(), "missing"), secret, CipherAES256GCM)
	require.Error(t, err)
	assert.ErrorIs(t, err, serrors.ErrIO)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestEncrypt_Directory(t *testing.T) {
	secret := Generate()
	defer secret.Destroy()

	err := EncryptInPlace(t.TempDir(), secret, CipherAES256GCM)
	assert.ErrorIs(t, err, serrors.ErrIO)
}

func TestEncrypt_PreservesModeAndLeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "script.sh")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\necho hi\n"), 0700))
	require.NoError(t, os.Chmod(path, 0700))

	secret := Generate()
	defer secret.Destroy()

	require.NoError(t, EncryptInPlace(path, secret, CipherAES256GCM))
	require.NoError(t, DecryptInPlace(path, secret, CipherAES256GCM))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0700), info.Mode().Perm())

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "script.sh", entries[0].Name())
}

func TestEncryptTo(t *testing.T) {
	for _, c := range ciphers {
		t.Run(string(c), func(t *testing.T) {
			srcDir, destDir := t.TempDir(), t.TempDir()
			src := filepath.Join(srcDir, "note.txt")
			dest := filepath.Join(destDir, "note.txt")
			plaintext := []byte("never written to the destination in the clear")
			writeTestFile(t, src, plaintext)
			require.NoError(t, os.Chmod(src, 0640))

			secret := Generate()
			defer secret.Destroy()

			require.NoError(t, EncryptTo(src, dest, secret, c))

			kept, err := os.ReadFile(src)
			require.NoError(t, err)
			assert.Equal(t, plaintext, kept, "source is left untouched")

			encrypted, err := os.ReadFile(dest)
			require.NoError(t, err)
			assert.Len(t, encrypted, len(plaintext)+tagSize)
			assert.False(t, bytes.Contains(encrypted, plaintext))

			info, err := os.Stat(dest)
			require.NoError(t, err)
			assert.Equal(t, os.FileMode(0640), info.Mode().Perm())

			entries, err := os.ReadDir(destDir)
			require.NoError(t, err)
			require.Len(t, entries, 1, "no temp files left next to dest")

			require.NoError(t, DecryptInPlace(dest, secret, c))
			decrypted, err := os.ReadFile(dest)
			require.NoError(t, err)
			assert.Equal(t, plaintext, decrypted)
		})
	}
}

func TestEncryptTo_MissingSource(t *testing.T) {
	secret := Generate()
	defer secret.Destroy()

	destDir := t.TempDir()
	err := EncryptTo(filepath.Join(t.TempDir(), "missing"), filepath.Join(destDir, "x"), secret, CipherAES256GCM)
	assert.ErrorIs(t, err, os.ErrNotExist)

	entries, err := os.ReadDir(destDir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestDecrypt_ErrorIsBare(t *testing.T) {
	path := filepath.Join(t.TempDir(), "note.txt")
	writeTestFile(t, path, []byte("hello"))

	secret := Generate()
	defer secret.Destroy()
	require.NoError(t, EncryptInPlace(path, secret, CipherAES256GCM))

	other := Generate()
	defer other.Destroy()

	// Callers add the item name, so the error carries none of its own.
	err := DecryptInPlace(path, other, CipherAES256GCM)
	assert.Equal(t, serrors.ErrAuthenticationFailed, err)
}

func TestParseCipher(t *testing.T) {
	c, err := ParseCipher("")
	require.NoError(t, err)
	assert.Equal(t, DefaultCipher, c)

	c, err = ParseCipher("chacha20-poly1305")
	require.NoError(t, err)
	assert.Equal(t, CipherChaCha20Poly1305, c)

	_, err = ParseCipher("rot13")
	assert.ErrorIs(t, err, serrors.ErrInvalidInput)
}
