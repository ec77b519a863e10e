package domain

import (
	"fmt"
	"strings"
	"time"
)

// ServiceKind identifies the backend type a service configuration points at.
// The set is closed: adding a backend means adding a constant here and a
// constructor in the connector factory.
type ServiceKind string

const (
	KindSonarr      ServiceKind = "sonarr"
	KindRadarr      ServiceKind = "radarr"
	KindQBittorrent ServiceKind = "qbittorrent"
)

// Kinds returns all supported service kinds in stable display order.
func Kinds() []ServiceKind {
	return []ServiceKind{KindSonarr, KindRadarr, KindQBittorrent}
}

// ParseKind converts a raw string into a ServiceKind.
func ParseKind(raw string) (ServiceKind, error) {
	kind := ServiceKind(strings.ToLower(strings.TrimSpace(raw)))
	switch kind {
	case KindSonarr, KindRadarr, KindQBittorrent:
		return kind, nil
	default:
		return "", fmt.Errorf("unknown service kind: %q", raw)
	}
}

// Credential is an opaque secret handle for one backend. It is carried as-is
// to the connector and must never appear in logs or API responses.
type Credential struct {
	APIKey   string `yaml:"api_key,omitempty" json:"apiKey,omitempty"`
	Username string `yaml:"username,omitempty" json:"username,omitempty"`
	Password string `yaml:"password,omitempty" json:"password,omitempty"`
}

// Masked returns a display-safe copy with every secret field replaced.
func (c Credential) Masked() Credential {
	out := c
	out.APIKey = maskSecret(out.APIKey)
	out.Password = maskSecret(out.Password)
	return out
}

func maskSecret(secret string) string {
	s := strings.TrimSpace(secret)
	if s == "" {
		return ""
	}
	if len(s) <= 4 {
		return "****"
	}
	return "****" + s[len(s)-4:]
}

// DefaultServiceTimeout is applied when a configuration omits its timeout.
const DefaultServiceTimeout = 30 * time.Second

// ServiceConfig describes one configured backend instance. It is owned by the
// configuration store; the connector layer only ever reads snapshots.
type ServiceConfig struct {
	ID         string        `yaml:"id" json:"id"`
	Kind       ServiceKind   `yaml:"kind" json:"kind"`
	Name       string        `yaml:"name" json:"name"`
	BaseURL    string        `yaml:"base_url" json:"baseUrl"`
	Credential Credential    `yaml:"credential" json:"credential"`
	Enabled    bool          `yaml:"enabled" json:"enabled"`
	Timeout    time.Duration `yaml:"timeout" json:"timeout"`
}

// Normalized returns a copy with whitespace trimmed and defaults applied.
func (c ServiceConfig) Normalized() ServiceConfig {
	out := c
	out.ID = strings.TrimSpace(out.ID)
	out.Name = strings.TrimSpace(out.Name)
	out.BaseURL = strings.TrimRight(strings.TrimSpace(out.BaseURL), "/")
	if out.Timeout <= 0 {
		out.Timeout = DefaultServiceTimeout
	}
	return out
}

// Validate checks that the configuration is usable by a connector.
func (c ServiceConfig) Validate() error {
	n := c.Normalized()

	if n.ID == "" {
		return fmt.Errorf("service id is required")
	}

	if _, err := ParseKind(string(n.Kind)); err != nil {
		return err
	}

	if n.BaseURL == "" {
		return fmt.Errorf("base URL is required")
	}

	if !strings.HasPrefix(n.BaseURL, "http://") && !strings.HasPrefix(n.BaseURL, "https://") {
		return fmt.Errorf("base URL must start with http:// or https:// (got: %s)", n.BaseURL)
	}

	switch n.Kind {
	case KindSonarr, KindRadarr:
		if n.Credential.APIKey == "" {
			return fmt.Errorf("%s requires an API key", n.Kind)
		}
	case KindQBittorrent:
		if n.Credential.Username == "" || n.Credential.Password == "" {
			return fmt.Errorf("qbittorrent requires a username and password")
		}
	}

	return nil
}

// Signature is a stable fingerprint of every field a connector binds to.
// Two configs with equal signatures produce interchangeable connectors, so
// cached probe results keyed by (ID, Signature) are invalidated exactly when
// the binding changes.
func (c ServiceConfig) Signature() string {
	n := c.Normalized()
	return fmt.Sprintf("%s|%s|%s|%s|%s|%t|%d",
		n.Kind, n.BaseURL,
		n.Credential.APIKey, n.Credential.Username, n.Credential.Password,
		n.Enabled, n.Timeout.Milliseconds())
}
