package vault

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var key = []byte("thisis32byteslongsecretkey123456")

func TestSealOpen(t *testing.T) {
	plaintext := []byte(`{"current":"p1"}`)

	sealed, err := Seal(plaintext, key)
	require.NoError(t, err)
	assert.NotEqual(t, string(plaintext), sealed)

	again, err := Seal(plaintext, key)
	require.NoError(t, err)
	assert.NotEqual(t, sealed, again, "nonce must differ per seal")

	opened, err := Open(sealed, key)
	require.NoError(t, err)
	assert.Equal(t, plaintext, opened)
}

func TestOpen_WrongKey(t *testing.T) {
	sealed, err := Seal([]byte("secret"), key)
	require.NoError(t, err)

	_, err = Open(sealed, []byte("another32byteslongsecretkey65432"))
	assert.ErrorIs(t, err, ErrOpen)
}

func TestKeySize(t *testing.T) {
	_, err := Seal([]byte("x"), []byte("shortkey"))
	assert.ErrorIs(t, err, ErrKeySize)
	_, err = Open("0123456789abcdef", []byte("shortkey"))
	assert.ErrorIs(t, err, ErrKeySize)
}

func TestOpen_Malformed(t *testing.T) {
	_, err := Open("not-hex", key)
	assert.Error(t, err)

	// shorter than a GCM nonce
	_, err = Open("abcdef", key)
	assert.Error(t, err)
}

func TestDeriveKey(t *testing.T) {
	k := DeriveKey("correct horse")
	assert.Len(t, k, KeySize)
	assert.Equal(t, k, DeriveKey("correct horse"))
	assert.NotEqual(t, k, DeriveKey("battery staple"))
}

func TestGenerateSelfSignedCert(t *testing.T) {
	cert, err := GenerateSelfSignedCert()
	require.NoError(t, err)
	require.NotEmpty(t, cert.Certificate)
	require.NotNil(t, cert.PrivateKey)
	require.NotNil(t, cert.Leaf)
	assert.Contains(t, cert.Leaf.DNSNames, "localhost")
	assert.Len(t, cert.Leaf.IPAddresses, 2)

	cert, err = GenerateSelfSignedCert("prefs.internal", "10.0.0.1")
	require.NoError(t, err)
	assert.Equal(t, []string{"prefs.internal"}, cert.Leaf.DNSNames)
	assert.Len(t, cert.Leaf.IPAddresses, 1)
}
