package actiongen

import (
	"github.com/mlahaye/graft/internal/ast"
)

// uuidPattern matches the canonical textual UUID form.
const uuidPattern = `^[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}$`

// TrinityHelpers emits the two identity-resolution helpers for an entity.
// <schema>.<entity>_pk resolves any external reference form (surrogate key,
// UUID, or human identifier) to the surrogate key, never matching
// soft-deleted rows; <schema>.<entity>_id maps a surrogate key back to the
// stable UUID.
func (c *Compiler) TrinityHelpers(e ast.Entity) (string, error) {
	ci, ok := c.reg.Lookup(e.Name)
	if !ok {
		return "", &ast.CompileError{
			Code:    ast.ErrCodeUnknownEntityReference,
			Entity:  e.Name,
			Message: "entity is not part of the compilation input",
		}
	}

	em := &emitter{}
	em.line("CREATE OR REPLACE FUNCTION %s(p_ref TEXT) RETURNS INTEGER", ci.PKHelper())
	em.line("LANGUAGE plpgsql STABLE")
	em.line("AS $$")
	em.line("DECLARE")
	em.indent++
	em.line("v_pk INTEGER;")
	em.indent--
	em.line("BEGIN")
	em.indent++
	em.line("IF p_ref IS NULL THEN")
	em.indent++
	em.line("RETURN NULL;")
	em.indent--
	em.line("END IF;")
	em.line("IF p_ref ~ '^[0-9]+$' THEN")
	em.indent++
	em.line("SELECT %s INTO v_pk FROM %s", ci.PKColumn, ci.Qualified())
	em.line("WHERE %s = p_ref::INTEGER AND deleted_at IS NULL;", ci.PKColumn)
	em.indent--
	em.line("ELSIF p_ref ~* '%s' THEN", uuidPattern)
	em.indent++
	em.line("SELECT %s INTO v_pk FROM %s", ci.PKColumn, ci.Qualified())
	em.line("WHERE id = p_ref::UUID AND deleted_at IS NULL;")
	em.indent--
	em.line("ELSE")
	em.indent++
	em.line("SELECT %s INTO v_pk FROM %s", ci.PKColumn, ci.Qualified())
	em.line("WHERE identifier = p_ref AND deleted_at IS NULL;")
	em.indent--
	em.line("END IF;")
	em.line("RETURN v_pk;")
	em.indent--
	em.line("END;")
	em.line("$$;")
	em.line("")
	em.line("CREATE OR REPLACE FUNCTION %s(p_pk INTEGER) RETURNS UUID", ci.IDHelper())
	em.line("LANGUAGE sql STABLE")
	em.line("AS $$")
	em.indent++
	em.line("SELECT id FROM %s WHERE %s = p_pk;", ci.Qualified(), ci.PKColumn)
	em.indent--
	em.line("$$;")

	return em.String(), nil
}
