package secrets

import (
	"crypto/subtle"
	"fmt"

	serrors "github.com/PolarWolf314/stash/internal/errors"
	"github.com/awnumar/memguard"
)

const (
	// KeySize is the AEAD key length in bytes (256 bits).
	KeySize = 32

	// NonceSize is the AEAD nonce length in bytes (96 bits).
	NonceSize = 12

	// BlobSize is the length of the serialized secret: key || nonce.
	BlobSize = KeySize + NonceSize
)

// Secret is the key/nonce pair protecting a single file. Its bytes live in a
// memguard locked buffer and are wiped by Destroy.
type Secret struct {
	buf *memguard.LockedBuffer
}

// Generate returns a fresh secret with a uniformly random key and nonce.
func Generate() *Secret {
	return &Secret{buf: memguard.NewBufferRandom(BlobSize)}
}

// FromBytes rebuilds a secret from its 44-byte storage blob.
// The blob is copied into locked memory and then wiped, so callers must not
// pass memory they do not own (e.g. a read-only mmap region).
func FromBytes(blob []byte) (*Secret, error) {
	if len(blob) != BlobSize {
		return nil, fmt.Errorf("%w: expected %d bytes, got %d", serrors.ErrCorruptSecret, BlobSize, len(blob))
	}
	return &Secret{buf: memguard.NewBufferFromBytes(blob)}, nil
}

// Bytes returns the storage blob (key then nonce). The slice aliases locked
// memory and becomes invalid after Destroy.
func (s *Secret) Bytes() []byte {
	return s.buf.Bytes()
}

// Key returns the 32-byte AEAD key.
func (s *Secret) Key() []byte {
	return s.buf.Bytes()[:KeySize]
}

// Nonce returns the 12-byte AEAD nonce.
func (s *Secret) Nonce() []byte {
	return s.buf.Bytes()[KeySize:]
}

// Equal compares two secrets in constant time.
func (s *Secret) Equal(other *Secret) bool {
	if s == nil || other == nil {
		return s == other
	}
	return subtle.ConstantTimeCompare(s.Bytes(), other.Bytes()) == 1
}

// Destroy wipes and releases the secret's memory. It is safe to call more than once.
func (s *Secret) Destroy() {
	if s == nil || s.buf == nil {
		return
	}
	s.buf.Destroy()
}
