package actiongen

import (
	"encoding/json"
	"fmt"

	"github.com/go-openapi/inflect"

	"github.com/mlahaye/graft/internal/ast"
	"github.com/mlahaye/graft/internal/identity"
	"github.com/mlahaye/graft/internal/sqlexpr"
)

// impactLiteral renders the declared impact as the static half of the
// extra_metadata JSONB attached to success results. The declaration may
// legitimately diverge from what an invocation actually did; observedImpact
// supplies the runtime half.
func impactLiteral(a ast.Action) (string, error) {
	if a.Impact == nil {
		return "'{}'::jsonb", nil
	}
	raw, err := json.Marshal(map[string]*ast.ImpactDeclaration{"impact": a.Impact})
	if err != nil {
		return "", fmt.Errorf("impact of %s: %w", a.Name, err)
	}
	return sqlexpr.QuoteLiteral(string(raw)) + "::jsonb", nil
}

// observedImpact renders the expression that counts, at return time, the rows
// each side-effect collection actually accumulated. Merged into
// extra_metadata so a declared collection that stayed empty reports zero.
func observedImpact() string {
	return "jsonb_build_object('observed', (SELECT COALESCE(jsonb_object_agg(s.key, jsonb_array_length(s.value)), '{}'::jsonb) FROM jsonb_each(v_side_effects) AS s(key, value)))"
}

// notifyEntity keys Notify side effects in impact declarations.
const notifyEntity = "Notification"

// DefaultCollection derives the result collection name for side-effect rows
// of an entity: plural, lower camel case (AuditEvent -> auditEvents).
func DefaultCollection(entity string) string {
	return inflect.CamelizeDownFirst(inflect.Pluralize(identity.Slugify(entity)))
}
