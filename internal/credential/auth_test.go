package credential

import (
	"fmt"
	"testing"

	"github.com/docker/docker/api/types/registry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBasicAuthenticationForms(t *testing.T) {
	var a Authentication = NewBasicAuthentication("alice", "s3cr3t")

	cred := a.Credential()
	assert.Equal(t, "alice", cred.Username)
	assert.Equal(t, "s3cr3t", cred.Password)
	assert.Empty(t, cred.AccessToken)
	assert.Empty(t, cred.RefreshToken)

	cfg := a.AuthConfig("ghcr.io")
	assert.Equal(t, "alice", cfg.Username)
	assert.Equal(t, "s3cr3t", cfg.Password)
	assert.Equal(t, "ghcr.io", cfg.ServerAddress)
}

func TestBasicAuthenticationStringHidesPassword(t *testing.T) {
	a := NewBasicAuthentication("alice", "s3cr3t")

	for _, s := range []string{a.String(), fmt.Sprint(a), fmt.Sprintf("%v", a), fmt.Sprintf("%#v", a), fmt.Sprintf("%+v", a)} {
		assert.NotContains(t, s, "s3cr3t")
		assert.Contains(t, s, "alice")
	}
}

func TestEncodeAuth(t *testing.T) {
	encoded, err := EncodeAuth(NewBasicAuthentication("alice", "s3cr3t"), "ghcr.io")
	require.NoError(t, err)

	decoded, err := registry.DecodeAuthConfig(encoded)
	require.NoError(t, err)
	assert.Equal(t, "alice", decoded.Username)
	assert.Equal(t, "s3cr3t", decoded.Password)
	assert.Equal(t, "ghcr.io", decoded.ServerAddress)
}
