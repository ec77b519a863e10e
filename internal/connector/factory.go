package connector

import (
	"github.com/avelinn/mediadeck/internal/domain"
)

// Factory constructs connectors for service configurations. The kind set is
// closed: an unrecognized kind is a configuration-time error, never silently
// ignored.
type Factory struct{}

// NewFactory creates a connector factory.
func NewFactory() *Factory {
	return &Factory{}
}

// Create constructs one connector bound to the given configuration.
func (f *Factory) Create(cfg domain.ServiceConfig) (Connector, error) {
	cfg = cfg.Normalized()

	switch cfg.Kind {
	case domain.KindSonarr:
		return NewSonarrConnector(cfg), nil
	case domain.KindRadarr:
		return NewRadarrConnector(cfg), nil
	case domain.KindQBittorrent:
		return NewQBittorrentConnector(cfg), nil
	default:
		return nil, &Error{
			Kind:    KindUnsupportedKind,
			Service: string(cfg.Kind),
			Op:      "create connector",
		}
	}
}

// SupportedKinds returns the closed set of constructable kinds in stable
// order.
func (f *Factory) SupportedKinds() []domain.ServiceKind {
	return domain.Kinds()
}
