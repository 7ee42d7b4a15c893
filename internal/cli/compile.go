package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/mlahaye/graft/internal/annotate"
	"github.com/mlahaye/graft/internal/ast"
	"github.com/mlahaye/graft/internal/identity"
	"github.com/mlahaye/graft/internal/migration"
)

// CompileOptions holds flags for the compile command.
type CompileOptions struct {
	*RootOptions
	Output string // output directory for migration units
	Docs   bool   // also emit mutation documents
}

// CompilationResult holds the compiled migration units.
type CompilationResult struct {
	Entities []EntitySummary `json:"entities"`
	Files    []string        `json:"files,omitempty"`
	Units    []UnitResult    `json:"units,omitempty"`
}

// EntitySummary is the per-entity line of a compilation report.
type EntitySummary struct {
	Name      string `json:"name"`
	Namespace string `json:"namespace"`
	Fields    int    `json:"fields"`
	Actions   int    `json:"actions"`
}

// UnitResult carries one migration unit when no output directory is set.
type UnitResult struct {
	Entity string `json:"entity"`
	SQL    string `json:"sql"`
}

// NewCompileCommand creates the compile command.
func NewCompileCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CompileOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "compile <model-path>",
		Short: "Compile an entity model to migration units",
		Long: `Compile a YAML entity model to PostgreSQL migration units.

Each entity becomes one unit holding its table DDL, identity helpers,
action functions, and API metadata annotations. The shared foundation
objects are emitted separately. With --output the units are written as
numbered .sql files; without it the full SQL stream goes to stdout.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true, // Don't print usage on errors - we handle our own error output
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompile(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "output directory for migration units")
	cmd.Flags().BoolVar(&opts.Docs, "docs", false, "also write per-entity mutation documents (requires --output)")

	return cmd
}

func runCompile(opts *CompileOptions, modelPath string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(), // Verbose logs go to stderr to avoid corrupting JSON
		Verbose:   opts.Verbose,
	}

	if opts.Docs && opts.Output == "" {
		return outputCompileError(formatter, ErrCodeGeneric, "--docs requires --output", nil)
	}

	loadResult, err := LoadModel(modelPath)
	if err != nil {
		var loadErr *LoadError
		if errors.As(err, &loadErr) {
			return outputCompileError(formatter, loadErr.Code, loadErr.Message, nil)
		}
		return outputCompileError(formatter, ErrCodeGeneric, err.Error(), nil)
	}

	formatter.VerboseLog("Found %d YAML file(s), %d entit(ies)", loadResult.FileCount, len(loadResult.Entities))

	asm, err := migration.NewAssembler(loadResult.Entities)
	if err != nil {
		return outputCompileErrors(formatter, flattenErrors(err))
	}

	for _, e := range loadResult.Entities {
		formatter.VerboseLog("Compiling entity: %s.%s", e.Namespace, e.Name)
	}

	units, err := asm.AssembleAll()
	if err != nil {
		return outputCompileErrors(formatter, []error{err})
	}

	result := &CompilationResult{Entities: summarize(loadResult.Entities)}

	if opts.Output != "" {
		files, err := writeUnits(asm, units, opts)
		if err != nil {
			return outputCompileError(formatter, ErrCodeWriteFailed, err.Error(), nil)
		}
		result.Files = files
	} else {
		for _, u := range units {
			result.Units = append(result.Units, UnitResult{Entity: u.Entity, SQL: u.SQL})
		}
	}

	return outputCompileSuccess(formatter, result, units, opts.Output)
}

// writeUnits writes the foundation plus one numbered file per unit, and the
// mutation documents when requested. Returns the written paths in order.
func writeUnits(asm *migration.Assembler, units []migration.Unit, opts *CompileOptions) ([]string, error) {
	if err := os.MkdirAll(opts.Output, 0755); err != nil {
		return nil, fmt.Errorf("creating output directory: %w", err)
	}

	var files []string
	write := func(name, content string) error {
		path := filepath.Join(opts.Output, name)
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			return fmt.Errorf("writing %s: %w", path, err)
		}
		files = append(files, path)
		return nil
	}

	if err := write("000_foundation.sql", migration.Foundation()); err != nil {
		return nil, err
	}
	for i, u := range units {
		name := fmt.Sprintf("%03d_%s.sql", i+1, identity.Slugify(u.Entity))
		if err := write(name, u.SQL); err != nil {
			return nil, err
		}
	}

	if opts.Docs {
		annotator := annotate.NewAnnotator(asm.Registry())
		for _, e := range asm.Entities() {
			if len(e.Actions) == 0 {
				continue
			}
			docs, err := annotator.Documents(e)
			if err != nil {
				return nil, fmt.Errorf("documenting %s: %w", e.Name, err)
			}
			name := identity.Slugify(e.Name) + ".mutations.yaml"
			if err := write(name, string(docs)); err != nil {
				return nil, err
			}
		}
	}

	return files, nil
}

// summarize computes the per-entity compilation report lines.
func summarize(entities []ast.Entity) []EntitySummary {
	out := make([]EntitySummary, 0, len(entities))
	for _, e := range entities {
		out = append(out, EntitySummary{
			Name:      e.Name,
			Namespace: e.Namespace,
			Fields:    len(e.Fields),
			Actions:   len(e.Actions),
		})
	}
	return out
}

// outputCompileSuccess outputs successful compilation results.
func outputCompileSuccess(formatter *OutputFormatter, result *CompilationResult, units []migration.Unit, outputDir string) error {
	if formatter.Format == "json" {
		return formatter.Success(result)
	}

	if outputDir == "" {
		// Raw SQL stream for piping into psql.
		fmt.Fprint(formatter.Writer, migration.Foundation())
		for _, u := range units {
			fmt.Fprintln(formatter.Writer)
			fmt.Fprint(formatter.Writer, u.SQL)
		}
		return nil
	}

	actionCount := 0
	for _, e := range result.Entities {
		actionCount += e.Actions
	}
	fmt.Fprintf(formatter.Writer, "✓ Compiled %d entit(ies), %d action(s)\n\n", len(result.Entities), actionCount)

	fmt.Fprintln(formatter.Writer, "Entities:")
	for _, e := range result.Entities {
		fmt.Fprintf(formatter.Writer, "  %s.%s: %d field(s), %d action(s)\n", e.Namespace, e.Name, e.Fields, e.Actions)
	}
	fmt.Fprintln(formatter.Writer)
	fmt.Fprintf(formatter.Writer, "Wrote %d file(s) to %s\n", len(result.Files), outputDir)

	return nil
}

// outputCompileError outputs a single compilation error.
func outputCompileError(formatter *OutputFormatter, code, message string, details interface{}) error {
	_ = formatter.Error(code, message, details)
	// Compilation errors are command-level errors (exit code 2)
	return NewExitError(ExitCommandError, fmt.Sprintf("%s: %s", code, message))
}

// outputCompileErrors outputs multiple compilation errors.
func outputCompileErrors(formatter *OutputFormatter, errs []error) error {
	if formatter.Format == "json" {
		cliErrors := make([]CLIError, len(errs))
		for i, err := range errs {
			code, message := parseCompileError(err)
			cliErrors[i] = CLIError{
				Code:    code,
				Message: message,
			}
		}

		response := CLIResponse{
			Status: "error",
			Error:  &cliErrors[0],
			Data:   cliErrors, // Include all errors in data
		}

		encoder := json.NewEncoder(formatter.Writer)
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(response); err != nil {
			return err
		}

		// Compilation errors are command-level errors (exit code 2)
		return NewExitError(ExitCommandError, fmt.Sprintf("compilation failed with %d error(s)", len(errs)))
	}

	// Text format
	fmt.Fprintln(formatter.Writer, "✗ Compilation failed")
	fmt.Fprintln(formatter.Writer)

	for _, err := range errs {
		code, message := parseCompileError(err)
		fmt.Fprintf(formatter.Writer, "  %s: %s\n\n", code, message)
	}

	// Compilation errors are command-level errors (exit code 2)
	return NewExitError(ExitCommandError, fmt.Sprintf("compilation failed with %d error(s)", len(errs)))
}

// parseCompileError extracts error code and message from an error.
func parseCompileError(err error) (string, string) {
	var compileErr *ast.CompileError
	if errors.As(err, &compileErr) {
		return MapCompileErrorCode(compileErr.Code), compileErr.Error()
	}
	var loadErr *LoadError
	if errors.As(err, &loadErr) {
		return loadErr.Code, loadErr.Message
	}
	return ErrCodeGeneric, err.Error()
}
