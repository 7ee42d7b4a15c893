// Package actiongen compiles business actions into plpgsql stored functions.
//
// Every generated function returns app.mutation_result and funnels every
// terminal branch through app.log_and_return_mutation, so callers observe
// one result shape for success, validation failures, missing rows, and
// folded runtime exceptions alike.
package actiongen
