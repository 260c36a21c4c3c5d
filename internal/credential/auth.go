package credential

import (
	"github.com/docker/docker/api/types/registry"
	"oras.land/oras-go/v2/registry/remote/auth"
)

// Authentication is credential material that can be presented to a
// registry client.
type Authentication interface {
	// Credential returns the material as an oras-go credential.
	Credential() auth.Credential
	// AuthConfig returns the material as a docker API auth config for
	// serverAddress.
	AuthConfig(serverAddress string) registry.AuthConfig
}

// BasicAuthentication is a username and password pair.
type BasicAuthentication struct {
	username string
	password string
}

// NewBasicAuthentication returns an immutable username/password credential.
func NewBasicAuthentication(username, password string) *BasicAuthentication {
	return &BasicAuthentication{username: username, password: password}
}

func (b *BasicAuthentication) Username() string { return b.username }
func (b *BasicAuthentication) Password() string { return b.password }

func (b *BasicAuthentication) Credential() auth.Credential {
	return auth.Credential{Username: b.username, Password: b.password}
}

func (b *BasicAuthentication) AuthConfig(serverAddress string) registry.AuthConfig {
	return registry.AuthConfig{
		Username:      b.username,
		Password:      b.password,
		ServerAddress: serverAddress,
	}
}

// String keeps the password out of logs and fmt output.
func (b *BasicAuthentication) String() string {
	return "basic " + b.username + ":********"
}

// GoString masks the password for %#v as well.
func (b *BasicAuthentication) GoString() string {
	return b.String()
}

// EncodeAuth returns the X-Registry-Auth header value for a.
func EncodeAuth(a Authentication, serverAddress string) (string, error) {
	return registry.EncodeAuthConfig(a.AuthConfig(serverAddress))
}
