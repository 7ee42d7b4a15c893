package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/mlahaye/graft/internal/ast"
)

// LoadResult contains the results of loading an entity model.
type LoadResult struct {
	Entities  []ast.Entity
	FileCount int // Number of YAML files found
}

// LoadError represents an error that occurred during model loading.
type LoadError struct {
	Code    string
	File    string // offending file if known
	Message string
}

func (e *LoadError) Error() string {
	if e.File != "" {
		return fmt.Sprintf("%s: %s: %s", e.File, e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// LoadModel loads an entity model from a YAML file or a directory of YAML
// files. Files are read in lexical path order and each file may hold several
// YAML documents, one entity per document. That order is the assembly order:
// an entity must appear after every entity it references.
func LoadModel(path string) (*LoadResult, error) {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("model path not found: %s", path)}
	}
	if err != nil {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("error accessing model path: %v", err)}
	}

	var files []string
	if info.IsDir() {
		files, err = findModelFiles(path)
		if err != nil {
			return nil, &LoadError{Code: ErrCodeScanError, Message: fmt.Sprintf("error scanning directory: %v", err)}
		}
		if len(files) == 0 {
			return nil, &LoadError{Code: ErrCodeNoFiles, Message: fmt.Sprintf("no YAML files found in %s", path)}
		}
	} else {
		files = []string{path}
	}

	result := &LoadResult{FileCount: len(files)}
	for _, file := range files {
		entities, err := loadModelFile(file)
		if err != nil {
			return nil, err
		}
		result.Entities = append(result.Entities, entities...)
	}

	if len(result.Entities) == 0 {
		return nil, &LoadError{Code: ErrCodeNoFiles, Message: "no entities found in model"}
	}
	return result, nil
}

// loadModelFile decodes every YAML document in one file into an entity.
func loadModelFile(path string) ([]ast.Entity, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &LoadError{Code: ErrCodeNotFound, File: path, Message: err.Error()}
	}
	defer f.Close()

	var entities []ast.Entity
	dec := yaml.NewDecoder(f)
	for {
		var e ast.Entity
		if err := dec.Decode(&e); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, &LoadError{Code: ErrCodeParseFailed, File: path, Message: err.Error()}
		}
		if e.Name == "" {
			return nil, &LoadError{Code: ErrCodeParseFailed, File: path, Message: "entity document has no name"}
		}
		entities = append(entities, e)
	}
	return entities, nil
}

// findModelFiles walks the directory and returns all .yaml/.yml file paths
// in lexical order.
func findModelFiles(dir string) ([]string, error) {
	var files []string
	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		switch filepath.Ext(path) {
		case ".yaml", ".yml":
			files = append(files, path)
		}
		return nil
	})
	sort.Strings(files)
	return files, err
}

// Error code constants - unified across all CLI commands.
const (
	ErrCodeGeneric     = "E001" // Generic/unknown error
	ErrCodeScanError   = "E002" // Directory scan error
	ErrCodeNoFiles     = "E003" // No YAML files found
	ErrCodeParseFailed = "E004" // YAML decode failed
	ErrCodeNotFound    = "E005" // Path not found
	ErrCodeWriteFailed = "E006" // File write error

	// Model compilation errors
	ErrCodeUnknownEntity     = "E101" // Reference to an entity outside the model
	ErrCodeDuplicateField    = "E102" // Duplicate field name
	ErrCodeDuplicateAction   = "E103" // Duplicate action name
	ErrCodeDuplicateEntity   = "E104" // Table name collision
	ErrCodeOutOfOrder        = "E105" // Reference target assembled too late
	ErrCodeInvalidModel      = "E106" // Structural model violation
	ErrCodeInvalidExpression = "E107" // Untranslatable expression
)

// MapCompileErrorCode maps a compiler error code to a CLI error code.
func MapCompileErrorCode(code ast.CompileErrorCode) string {
	switch code {
	case ast.ErrCodeUnknownEntityReference:
		return ErrCodeUnknownEntity
	case ast.ErrCodeDuplicateField:
		return ErrCodeDuplicateField
	case ast.ErrCodeDuplicateActionName:
		return ErrCodeDuplicateAction
	case ast.ErrCodeDuplicateEntity:
		return ErrCodeDuplicateEntity
	case ast.ErrCodeOutOfOrderReference:
		return ErrCodeOutOfOrder
	case ast.ErrCodeInvalidModel:
		return ErrCodeInvalidModel
	case ast.ErrCodeInvalidExpression:
		return ErrCodeInvalidExpression
	default:
		return ErrCodeGeneric
	}
}

// flattenErrors unwraps errors.Join results into their leaves.
func flattenErrors(err error) []error {
	if err == nil {
		return nil
	}
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		var out []error
		for _, e := range joined.Unwrap() {
			out = append(out, flattenErrors(e)...)
		}
		return out
	}
	return []error{err}
}
