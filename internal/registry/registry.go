// Package registry checks credentials against container registries.
package registry

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	cerrdefs "github.com/containerd/errdefs"
	dockerclient "github.com/docker/docker/client"
	"oras.land/oras-go/v2/registry/remote"
	"oras.land/oras-go/v2/registry/remote/auth"
	"oras.land/oras-go/v2/registry/remote/errcode"

	"github.com/benaskins/regcred/internal/config"
	"github.com/benaskins/regcred/internal/credential"
)

// ErrUnauthorized is returned when the registry rejects a credential.
var ErrUnauthorized = errors.New("registry rejected credential")

// Verifier checks that an authentication is accepted by a registry.
type Verifier interface {
	Verify(ctx context.Context, domain string, a credential.Authentication) error
}

const (
	KindOras   = config.VerifierOras
	KindDocker = config.VerifierDocker
)

// New returns the verifier named by kind. An empty kind selects oras.
func New(kind string, plainHTTP bool) (Verifier, error) {
	switch kind {
	case "", KindOras:
		return &PingVerifier{PlainHTTP: plainHTTP}, nil
	case KindDocker:
		return &DockerVerifier{}, nil
	default:
		return nil, fmt.Errorf("unknown verifier %q (want %s or %s)", kind, KindOras, KindDocker)
	}
}

// PingVerifier pings the registry's /v2/ endpoint with the credential.
type PingVerifier struct {
	// PlainHTTP talks to the registry without TLS.
	PlainHTTP bool
	// HTTPClient defaults to http.DefaultClient. No retries are layered on top.
	HTTPClient *http.Client
}

func (v *PingVerifier) Verify(ctx context.Context, domain string, a credential.Authentication) error {
	reg, err := remote.NewRegistry(domain)
	if err != nil {
		return fmt.Errorf("parsing registry %q: %w", domain, err)
	}
	reg.PlainHTTP = v.PlainHTTP

	httpClient := v.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	reg.Client = &auth.Client{
		Client:     httpClient,
		Header:     http.Header{"User-Agent": {"regcred"}},
		Cache:      auth.NewCache(),
		Credential: auth.StaticCredential(reg.Reference.Host(), a.Credential()),
	}

	if err := reg.Ping(ctx); err != nil {
		var errResp *errcode.ErrorResponse
		if errors.As(err, &errResp) && errResp.StatusCode == http.StatusUnauthorized {
			return fmt.Errorf("%w: %s", ErrUnauthorized, domain)
		}
		return fmt.Errorf("pinging %s: %w", domain, err)
	}
	return nil
}

// DockerVerifier asks the local Docker daemon to log in to the registry.
type DockerVerifier struct{}

func (v *DockerVerifier) Verify(ctx context.Context, domain string, a credential.Authentication) error {
	cli, err := dockerclient.NewClientWithOpts(
		dockerclient.FromEnv,
		dockerclient.WithAPIVersionNegotiation(),
	)
	if err != nil {
		return fmt.Errorf("creating docker client: %w", err)
	}
	defer cli.Close()

	if _, err := cli.RegistryLogin(ctx, a.AuthConfig(domain)); err != nil {
		if cerrdefs.IsUnauthorized(err) {
			return fmt.Errorf("%w: %s", ErrUnauthorized, domain)
		}
		return fmt.Errorf("docker login %s: %w", domain, err)
	}
	return nil
}
