package secrets

import (
	"bytes"
	"testing"

	serrors "github.com/PolarWolf314/stash/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerate_Sizes(t *testing.T) {
	secret := Generate()
	defer secret.Destroy()

	assert.Len(t, secret.Bytes(), BlobSize)
	assert.Len(t, secret.Key(), KeySize)
	assert.Len(t, secret.Nonce(), NonceSize)
}

func TestGenerate_Unique(t *testing.T) {
	a := Generate()
	defer a.Destroy()
	b := Generate()
	defer b.Destroy()

	assert.False(t, a.Equal(b), "two generated secrets must differ")
	assert.False(t, bytes.Equal(a.Nonce(), b.Nonce()))
}

func TestFromBytes_RoundTrip(t *testing.T) {
	for i := 0; i < 16; i++ {
		secret := Generate()

		blob := append([]byte(nil), secret.Bytes()...)
		restored, err := FromBytes(blob)
		require.NoError(t, err)

		assert.True(t, secret.Equal(restored))
		assert.Equal(t, secret.Key(), restored.Key())
		assert.Equal(t, secret.Nonce(), restored.Nonce())

		secret.Destroy()
		restored.Destroy()
	}
}

func TestFromBytes_WipesInput(t *testing.T) {
	secret := Generate()
	defer secret.Destroy()

	blob := append([]byte(nil), secret.Bytes()...)
	restored, err := FromBytes(blob)
	require.NoError(t, err)
	defer restored.Destroy()

	assert.Equal(t, make([]byte, BlobSize), blob)
}

func TestFromBytes_WrongLength(t *testing.T) {
	tests := []struct {
		name string
		blob []byte
	}{
		{"empty", nil},
		{"short", make([]byte, BlobSize-1)},
		{"long", make([]byte, BlobSize+1)},
		{"key only", make([]byte, KeySize)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			secret, err := FromBytes(tt.blob)
			require.Error(t, err)
			assert.Nil(t, secret)
			assert.ErrorIs(t, err, serrors.ErrCorruptSecret)
		})
	}
}

func TestEqual_Nil(t *testing.T) {
	var a, b *Secret
	assert.True(t, a.Equal(b))

	c := Generate()
	defer c.Destroy()
	assert.False(t, c.Equal(nil))
}

func TestDestroy_Idempotent(t *testing.T) {
	secret := Generate()
	secret.Destroy()
	secret.Destroy()

	var nilSecret *Secret
	nilSecret.Destroy()
}
