package services

import (
	"testing"

	"github.com/99designs/keyring"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeyringService(t *testing.T) {
	svc := NewKeyringService(keyring.NewArrayKeyring(nil))

	_, err := svc.Get("toolset:web:key")
	assert.ErrorIs(t, err, ErrSecretNotFound)

	require.NoError(t, svc.Set("toolset:web:key", []byte("s3cret")))
	value, err := svc.Get("toolset:web:key")
	require.NoError(t, err)
	assert.Equal(t, "s3cret", string(value))

	require.NoError(t, svc.Delete("toolset:web:key"))
	require.NoError(t, svc.Delete("toolset:web:key"), "deleting twice is not an error")

	assert.Error(t, svc.Set("", []byte("x")))
	assert.Error(t, svc.Set("k", nil))
}

func TestOpenKeyring(t *testing.T) {
	ring, err := OpenKeyring(KeyringConfig{Backend: KeyringBackendMemory})
	require.NoError(t, err)
	require.NotNil(t, ring)

	ring, err = OpenKeyring(KeyringConfig{Backend: "FILE", FileDir: t.TempDir(), Password: "pw"})
	require.NoError(t, err)
	svc := NewKeyringService(ring)
	require.NoError(t, svc.Set("a", []byte("b")))
	value, err := svc.Get("a")
	require.NoError(t, err)
	assert.Equal(t, "b", string(value))

	_, err = OpenKeyring(KeyringConfig{Backend: "vault"})
	assert.Error(t, err)
}
