package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/adrg/xdg"
	"gopkg.in/yaml.v3"
)

const (
	// DefaultNamespace is the Keychain service used when none is configured.
	DefaultNamespace = "com.regcred"

	BackendKeychain = "keychain"
	BackendKeyring  = "keyring"

	// Verifier names accepted by registry.New. Empty means oras.
	VerifierOras   = "oras"
	VerifierDocker = "docker"
)

// Config holds persistent settings loaded from config.yaml.
type Config struct {
	Namespace           string   `yaml:"namespace"`
	Backend             string   `yaml:"backend"`
	TrustedApplications []string `yaml:"trusted_applications"`
	AuditLog            string   `yaml:"audit_log"`
	MetadataFile        string   `yaml:"metadata_file"`
	Verifier            string   `yaml:"verifier"`
	PlainHTTP           bool     `yaml:"plain_http"`
}

// Dir returns the regcred config directory, typically
// ~/Library/Application Support/regcred on macOS.
func Dir() string {
	return filepath.Join(xdg.ConfigHome, "regcred")
}

// DataDir returns the directory for the audit log and metadata.
func DataDir() string {
	return filepath.Join(xdg.DataHome, "regcred")
}

// DefaultPath returns the default config file path.
func DefaultPath() string {
	return filepath.Join(Dir(), "config.yaml")
}

// Load reads a YAML config file from path. If the file does not exist,
// it returns the defaults and no error. An empty or all-comment file
// also returns the defaults with no error.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	data, err := os.ReadFile(path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	} else if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Namespace == "" {
		c.Namespace = DefaultNamespace
	}
	if c.Backend == "" {
		c.Backend = BackendKeychain
	}
	if c.AuditLog == "" {
		c.AuditLog = filepath.Join(DataDir(), "audit.log")
	}
	if c.MetadataFile == "" {
		c.MetadataFile = filepath.Join(DataDir(), "metadata.json")
	}
}

// Validate checks values that cannot be defaulted.
func (c *Config) Validate() error {
	switch c.Backend {
	case BackendKeychain, BackendKeyring:
	default:
		return fmt.Errorf("unknown backend %q (want %s or %s)", c.Backend, BackendKeychain, BackendKeyring)
	}
	switch c.Verifier {
	case "", VerifierOras, VerifierDocker:
	default:
		return fmt.Errorf("unknown verifier %q (want %s or %s)", c.Verifier, VerifierOras, VerifierDocker)
	}
	return CheckTrustedApplications(c.TrustedApplications)
}

// CheckTrustedApplications rejects application paths that are not absolute.
// Configured paths and --trust flags go through the same check.
func CheckTrustedApplications(paths []string) error {
	for _, p := range paths {
		if !filepath.IsAbs(p) {
			return fmt.Errorf("trusted application %q must be an absolute path", p)
		}
	}
	return nil
}
