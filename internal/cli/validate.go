package cli

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mlahaye/graft/internal/ast"
	"github.com/mlahaye/graft/internal/migration"
)

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid  bool              `json:"valid"`
	Errors []ValidationIssue `json:"errors,omitempty"`
}

// ValidationIssue is one reported model problem.
type ValidationIssue struct {
	Code    string `json:"code"`
	Entity  string `json:"entity,omitempty"`
	Field   string `json:"field,omitempty"`
	Action  string `json:"action,omitempty"`
	Message string `json:"message"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <model-path>",
		Short: "Validate an entity model without writing output",
		Long: `Validate a YAML entity model without writing migration units.

Runs the full compilation pipeline, structural validation, reference
and ordering checks, expression translation, and discards the output.
Faster feedback than compile during model authoring.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true, // Don't print usage on errors
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, modelPath string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(), // Verbose logs go to stderr to avoid corrupting JSON
		Verbose:   opts.Verbose,
	}

	loadResult, err := LoadModel(modelPath)
	if err != nil {
		var loadErr *LoadError
		if errors.As(err, &loadErr) {
			return outputValidateError(formatter, loadErr.Code, loadErr.Message, nil)
		}
		return outputValidateError(formatter, ErrCodeGeneric, err.Error(), nil)
	}

	formatter.VerboseLog("Found %d YAML file(s), %d entit(ies)", loadResult.FileCount, len(loadResult.Entities))

	issues := validateModel(loadResult.Entities, formatter)
	if len(issues) > 0 {
		return outputValidationErrors(formatter, issues)
	}

	return outputValidateSuccess(formatter)
}

// validateModel runs the full pipeline against the model and collects every
// reported problem. Structural validation reports all errors at once; the
// assembly dry run stops at the first entity that fails.
func validateModel(entities []ast.Entity, formatter *OutputFormatter) []ValidationIssue {
	asm, err := migration.NewAssembler(entities)
	if err != nil {
		var issues []ValidationIssue
		for _, e := range flattenErrors(err) {
			issues = append(issues, toIssue(e))
		}
		return issues
	}

	for _, e := range entities {
		formatter.VerboseLog("Validating entity: %s.%s", e.Namespace, e.Name)
	}

	if _, err := asm.AssembleAll(); err != nil {
		return []ValidationIssue{toIssue(err)}
	}
	return nil
}

// toIssue converts a pipeline error into a reportable issue.
func toIssue(err error) ValidationIssue {
	var compileErr *ast.CompileError
	if errors.As(err, &compileErr) {
		return ValidationIssue{
			Code:    MapCompileErrorCode(compileErr.Code),
			Entity:  compileErr.Entity,
			Field:   compileErr.Field,
			Action:  compileErr.Action,
			Message: compileErr.Message,
		}
	}
	return ValidationIssue{Code: ErrCodeGeneric, Message: err.Error()}
}

// outputValidateSuccess outputs successful validation results.
func outputValidateSuccess(formatter *OutputFormatter) error {
	if formatter.Format == "json" {
		result := ValidationResult{Valid: true}
		return formatter.Success(result)
	}

	fmt.Fprintln(formatter.Writer, "✓ Model valid")
	return nil
}

// outputValidateError outputs a single validation error.
func outputValidateError(formatter *OutputFormatter, code, message string, details interface{}) error {
	_ = formatter.Error(code, message, details)
	// Load errors are command-level errors (exit code 2)
	return NewExitError(ExitCommandError, fmt.Sprintf("%s: %s", code, message))
}

// outputValidationErrors outputs multiple validation errors.
func outputValidationErrors(formatter *OutputFormatter, issues []ValidationIssue) error {
	if formatter.Format == "json" {
		result := ValidationResult{
			Valid:  false,
			Errors: issues,
		}

		response := CLIResponse{
			Status: "error",
			Data:   result,
			Error: &CLIError{
				Code:    issues[0].Code,
				Message: issues[0].Message,
			},
		}

		encoder := json.NewEncoder(formatter.Writer)
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(response); err != nil {
			return err
		}

		// Validation failures = exit code 1
		return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(issues)))
	}

	// Text format
	fmt.Fprintln(formatter.Writer, "✗ Validation failed")
	fmt.Fprintln(formatter.Writer)

	for _, issue := range issues {
		if issue.Entity != "" {
			fmt.Fprintf(formatter.Writer, "entity %s\n", issue.Entity)
		}
		fmt.Fprintf(formatter.Writer, "  %s: %s\n\n", issue.Code, issue.Message)
	}

	// Validation failures = exit code 1
	return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(issues)))
}
