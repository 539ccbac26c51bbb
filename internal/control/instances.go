package control

import (
	"sort"

	"github.com/smazurov/rpirtspd/internal/params"
)

// InstanceRegistry maps a stream name to its most recently constructed
// pipeline instance. It holds non-owning references: entries are replaced
// on rebuild and never removed, so an entry may point at an instance the
// transport already tore down. Not safe for concurrent use; the Controller
// serializes access.
type InstanceRegistry struct {
	entries map[string]params.Instance
}

// NewInstanceRegistry creates an empty registry.
func NewInstanceRegistry() *InstanceRegistry {
	return &InstanceRegistry{entries: make(map[string]params.Instance)}
}

// Register sets the live instance for stream, replacing any previous one.
func (r *InstanceRegistry) Register(stream string, inst params.Instance) {
	r.entries[stream] = inst
}

// Lookup returns the instance registered for stream.
func (r *InstanceRegistry) Lookup(stream string) (params.Instance, bool) {
	inst, ok := r.entries[stream]
	return inst, ok
}

// Streams returns the registered stream names, sorted.
func (r *InstanceRegistry) Streams() []string {
	names := make([]string, 0, len(r.entries))
	for name := range r.entries {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
