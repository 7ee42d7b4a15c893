package identity

import (
	"github.com/mlahaye/graft/internal/ast"
)

// Registry caches one CompiledIdentity per entity for the duration of a
// compilation run. It is write-once per entity and read by every downstream
// component; compilation is single-threaded, so no locking is needed.
type Registry struct {
	order      []string
	entities   map[string]ast.Entity
	identities map[string]CompiledIdentity
}

// NewRegistry resolves every entity exactly once. It rejects duplicate entity
// names across namespaces (references address entities by bare name, so names
// must be unambiguous model-wide) and table-name collisions within a
// namespace (two entities whose derived names coincide).
func NewRegistry(entities []ast.Entity) (*Registry, error) {
	reg := &Registry{
		order:      make([]string, 0, len(entities)),
		entities:   make(map[string]ast.Entity, len(entities)),
		identities: make(map[string]CompiledIdentity, len(entities)),
	}

	byTable := make(map[string]string, len(entities))
	for _, e := range entities {
		if other, ok := reg.entities[e.Name]; ok {
			return nil, &ast.CompileError{
				Code:    ast.ErrCodeDuplicateEntity,
				Entity:  e.Name,
				Message: "entity " + e.Name + " in " + e.Namespace + " collides with " + e.Name + " in " + other.Namespace,
			}
		}
		ci := Resolve(e)
		qualified := ci.Qualified()
		if other, ok := byTable[qualified]; ok {
			return nil, &ast.CompileError{
				Code:    ast.ErrCodeDuplicateEntity,
				Entity:  e.Name,
				Message: "table " + qualified + " collides with entity " + other,
			}
		}
		byTable[qualified] = e.Name

		reg.order = append(reg.order, e.Name)
		reg.entities[e.Name] = e
		reg.identities[e.Name] = ci
	}

	return reg, nil
}

// Lookup returns the cached identity for an entity name.
func (r *Registry) Lookup(entity string) (CompiledIdentity, bool) {
	ci, ok := r.identities[entity]
	return ci, ok
}

// Entity returns the model for an entity name.
func (r *Registry) Entity(name string) (ast.Entity, bool) {
	e, ok := r.entities[name]
	return e, ok
}

// Names returns entity names in input order.
func (r *Registry) Names() []string {
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}
