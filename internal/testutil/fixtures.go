// Package testutil provides shared model fixtures for compiler tests.
package testutil

import "github.com/mlahaye/graft/internal/ast"

// UserEntity returns a minimal referenced entity.
func UserEntity() ast.Entity {
	return ast.Entity{
		Name:        "User",
		Namespace:   "crm",
		Description: "An operator who owns contacts.",
		Fields: []ast.FieldDefinition{
			{Name: "email", Kind: ast.FieldText, Required: true},
			{Name: "display_name", Kind: ast.FieldText},
		},
	}
}

// ContactEntity returns the canonical test entity: one of every field kind
// plus the qualify_lead action used across compiler tests.
func ContactEntity() ast.Entity {
	return ast.Entity{
		Name:        "Contact",
		Namespace:   "crm",
		Description: "A person moving through the sales pipeline.",
		Fields: []ast.FieldDefinition{
			{Name: "email", Kind: ast.FieldText, Required: true},
			{Name: "status", Kind: ast.FieldEnum, Required: true, Default: `"lead"`, Values: []string{"lead", "qualified"}},
			{Name: "score", Kind: ast.FieldInteger},
			{Name: "tags", Kind: ast.FieldList, Elem: ast.FieldText},
			{Name: "owner", Kind: ast.FieldReference, Ref: "User"},
		},
		Actions: []ast.Action{
			{
				Name:        "qualify_lead",
				Description: "Promote a lead to qualified.",
				Steps: ast.Steps{
					&ast.ValidateStep{Condition: `status == "lead"`, ErrorCode: "not_a_lead"},
					&ast.UpdateStep{Entity: "Contact", Set: []ast.Assignment{
						{Field: "status", Value: `"qualified"`},
					}},
				},
				Impact: &ast.ImpactDeclaration{
					Primary: ast.EntityImpact{
						Entity:    "Contact",
						Operation: "UPDATE",
						Fields:    []string{"status"},
						Relations: []string{"owner"},
					},
					CacheInvalidations: []ast.CacheInvalidation{
						{Query: "contacts", Filter: map[string]string{"status": "lead"}, Strategy: "REFETCH"},
					},
					Idempotent:     false,
					OptimisticSafe: true,
				},
			},
		},
	}
}

// Model returns the full two-entity fixture in dependency order.
func Model() []ast.Entity {
	return []ast.Entity{UserEntity(), ContactEntity()}
}
