package cryptox

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func testSecret() []byte {
	return bytes.Repeat([]byte("s"), MinSecretLen)
}

func TestNewSealerRejectsShortSecret(t *testing.T) {
	t.Parallel()

	_, err := NewSealer([]byte("too-short"))
	require.ErrorIs(t, err, ErrSecretTooShort)
}

func TestSealOpenRoundTrip(t *testing.T) {
	t.Parallel()

	s, err := NewSealer(testSecret())
	require.NoError(t, err)

	plaintext := []byte(`{"accessToken":"abc123"}`)
	sealed, err := s.Seal(plaintext)
	require.NoError(t, err)
	require.NotEqual(t, plaintext, sealed)

	opened, err := s.Open(sealed)
	require.NoError(t, err)
	require.Equal(t, plaintext, opened)
}

func TestSealProducesFreshNonces(t *testing.T) {
	t.Parallel()

	s, err := NewSealer(testSecret())
	require.NoError(t, err)

	a, err := s.Seal([]byte("same input"))
	require.NoError(t, err)
	b, err := s.Seal([]byte("same input"))
	require.NoError(t, err)
	require.NotEqual(t, a, b)
}

func TestOpenRejectsTampering(t *testing.T) {
	t.Parallel()

	s, err := NewSealer(testSecret())
	require.NoError(t, err)

	sealed, err := s.Seal([]byte("payload"))
	require.NoError(t, err)

	t.Run("flipped byte", func(t *testing.T) {
		bad := append([]byte(nil), sealed...)
		bad[len(bad)-1] ^= 0x01
		_, err := s.Open(bad)
		require.ErrorIs(t, err, ErrSealOpen)
	})

	t.Run("truncated", func(t *testing.T) {
		_, err := s.Open(sealed[:4])
		require.ErrorIs(t, err, ErrSealOpen)
	})

	t.Run("wrong key", func(t *testing.T) {
		other, err := NewSealer(bytes.Repeat([]byte("x"), MinSecretLen))
		require.NoError(t, err)
		_, err = other.Open(sealed)
		require.ErrorIs(t, err, ErrSealOpen)
	})
}

func TestGenerateToken(t *testing.T) {
	t.Parallel()

	tok, err := GenerateToken(TokenSize256)
	require.NoError(t, err)
	require.Len(t, tok, 43)

	_, err = GenerateToken(0)
	require.Error(t, err)
}
