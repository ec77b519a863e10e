// Package registry owns the table of live connector instances, keyed by
// service id. The table is the only shared mutable state in the connector
// layer: mutations are serialized behind one mutex, readers get point-in-time
// snapshots, and no lock is ever held across network I/O.
package registry

import (
	"context"
	"fmt"
	"sync"

	"github.com/avelinn/mediadeck/internal/connector"
	"github.com/avelinn/mediadeck/internal/domain"
)

// ConfigSource is the slice of the configuration store the registry needs.
type ConfigSource interface {
	ListConfigs(ctx context.Context) ([]domain.ServiceConfig, error)
}

// entry pairs a live connector with the signature of the config it was built
// from, so reloads can tell a changed binding from an unchanged one.
type entry struct {
	conn      connector.Connector
	signature string
}

// Registry is the process-wide table of live connectors. Construct one at
// startup and inject it; there is no ambient global instance.
type Registry struct {
	factory *connector.Factory

	mu    sync.RWMutex
	table map[string]entry
	order []string // service ids in insertion order
}

// New creates an empty registry backed by the given factory.
func New(factory *connector.Factory) *Registry {
	return &Registry{
		factory: factory,
		table:   make(map[string]entry),
	}
}

// Load reconciles the table against the persisted configuration set:
// enabled configs get a live connector, removed or disabled ones are dropped,
// and configs whose binding changed are rebuilt. Load is idempotent; calling
// it twice with an unchanged config set leaves the same instances in place.
func (r *Registry) Load(ctx context.Context, source ConfigSource) error {
	configs, err := source.ListConfigs(ctx)
	if err != nil {
		return fmt.Errorf("failed to list service configs: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	seen := make(map[string]bool, len(configs))
	for _, cfg := range configs {
		cfg = cfg.Normalized()
		if !cfg.Enabled {
			continue
		}
		seen[cfg.ID] = true

		if existing, ok := r.table[cfg.ID]; ok && existing.signature == cfg.Signature() {
			continue
		}

		conn, err := r.factory.Create(cfg)
		if err != nil {
			return fmt.Errorf("service %s: %w", cfg.ID, err)
		}
		r.insertLocked(cfg.ID, entry{conn: conn, signature: cfg.Signature()})
	}

	for _, id := range append([]string(nil), r.order...) {
		if !seen[id] {
			r.removeLocked(id)
		}
	}

	return nil
}

// Get returns the live connector for a service id, if any.
func (r *Registry) Get(serviceID string) (connector.Connector, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.table[serviceID]
	return e.conn, ok
}

// ByKind returns all live connectors of the given kind in insertion order.
func (r *Registry) ByKind(kind domain.ServiceKind) []connector.Connector {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []connector.Connector
	for _, id := range r.order {
		if e := r.table[id]; e.conn.Kind() == kind {
			out = append(out, e.conn)
		}
	}
	return out
}

// Snapshot returns a point-in-time copy of the table in insertion order.
// Aggregators iterate the copy so in-flight mutations never tear a pass.
func (r *Registry) Snapshot() map[string]connector.Connector {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make(map[string]connector.Connector, len(r.table))
	for id, e := range r.table {
		out[id] = e.conn
	}
	return out
}

// Upsert constructs a fresh connector for the config and replaces any prior
// table entry. Connectors are never mutated in place; a config change always
// means a new instance.
func (r *Registry) Upsert(cfg domain.ServiceConfig) error {
	cfg = cfg.Normalized()

	conn, err := r.factory.Create(cfg)
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.insertLocked(cfg.ID, entry{conn: conn, signature: cfg.Signature()})
	return nil
}

// Remove drops the table entry for a service id. The configuration store is
// unaffected.
func (r *Registry) Remove(serviceID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.removeLocked(serviceID)
}

// Len returns the number of live connectors.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.table)
}

func (r *Registry) insertLocked(id string, e entry) {
	if _, exists := r.table[id]; !exists {
		r.order = append(r.order, id)
	}
	r.table[id] = e
}

func (r *Registry) removeLocked(id string) {
	if _, exists := r.table[id]; !exists {
		return
	}
	delete(r.table, id)
	for i, existing := range r.order {
		if existing == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
}
