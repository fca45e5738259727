// Package chainfile loads filter chain definitions from YAML or CUE files.
//
// A definition names the target table, its primary key, and the ordered
// filters to chain:
//
//	table: my_models
//	primary_key: id
//	filters:
//	  - name: bobs
//	    conditions: name = 'Bob'
//	  - name: with_score
//	    joins: INNER JOIN my_scores ON my_scores.my_model_id = my_models.id
package chainfile

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/token"
	"gopkg.in/yaml.v3"

	"github.com/roach88/filterchain/internal/chain"
)

// DefaultPrimaryKey is used when a definition leaves primary_key unset.
const DefaultPrimaryKey = "id"

// Supported formats.
const (
	FormatYAML = "yaml"
	FormatCUE  = "cue"
)

// Error codes for chain file problems.
const (
	ErrCodeGeneric           = "E001" // Generic/unknown error
	ErrCodeLoadFailed        = "E004" // File could not be parsed
	ErrCodeNotFound          = "E005" // Path not found
	ErrCodeBuildFailed       = "E006" // CUE evaluation failed
	ErrCodeUnsupportedFormat = "E008" // Unknown file extension

	ErrCodeMissingTable = "E201" // table is empty
	ErrCodeNoFilters    = "E202" // filters list is empty
	ErrCodeUnknownField = "E203" // unexpected top-level field
)

// File is a parsed chain definition.
type File struct {
	Table      string             `json:"table" yaml:"table"`
	PrimaryKey string             `json:"primary_key,omitempty" yaml:"primary_key,omitempty"`
	Filters    []chain.FilterSpec `json:"filters" yaml:"filters"`

	// Path is the file the definition was read from, if any.
	Path string `json:"-" yaml:"-"`
}

// Compile compiles the definition into a join fragment.
func (f *File) Compile() (string, error) {
	return chain.Compile(f.Table, f.PrimaryKey, f.Filters)
}

// Audit reports rewrite warnings for the definition.
func (f *File) Audit() []chain.Warning {
	return chain.Audit(f.Table, f.Filters)
}

// LoadError describes a chain file that could not be loaded.
type LoadError struct {
	Code    string
	Message string
	Path    string
	Pos     token.Pos // CUE position if available
}

func (e *LoadError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Code, e.Message)
	}
	if e.Path != "" {
		return fmt.Sprintf("%s: %s: %s", e.Path, e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// ErrorCode returns the E-code of err if it is a *LoadError, or
// ErrCodeGeneric otherwise.
func ErrorCode(err error) string {
	var le *LoadError
	if errors.As(err, &le) {
		return le.Code
	}
	return ErrCodeGeneric
}

// Load reads and validates the chain definition at path. The format is
// chosen from the extension: .yaml and .yml for YAML, .cue for CUE.
func Load(path string) (*File, error) {
	format, err := formatOf(path)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: "chain file not found", Path: path}
	}
	if err != nil {
		return nil, &LoadError{Code: ErrCodeGeneric, Message: fmt.Sprintf("reading chain file: %v", err), Path: path}
	}

	f, err := parse(data, format, path)
	if err != nil {
		return nil, err
	}
	f.Path = path
	return f, nil
}

// Parse decodes and validates a chain definition held in memory.
func Parse(data []byte, format string) (*File, error) {
	return parse(data, format, "")
}

func parse(data []byte, format, path string) (*File, error) {
	var (
		f   *File
		err error
	)
	switch format {
	case FormatYAML:
		f, err = decodeYAML(data, path)
	case FormatCUE:
		f, err = decodeCUE(data, path)
	default:
		return nil, &LoadError{Code: ErrCodeUnsupportedFormat, Message: fmt.Sprintf("unsupported format %q", format), Path: path}
	}
	if err != nil {
		return nil, err
	}

	if err := validate(f, path); err != nil {
		return nil, err
	}
	if f.PrimaryKey == "" {
		f.PrimaryKey = DefaultPrimaryKey
	}
	return f, nil
}

func formatOf(path string) (string, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".cue":
		return FormatCUE, nil
	default:
		return "", &LoadError{
			Code:    ErrCodeUnsupportedFormat,
			Message: fmt.Sprintf("unsupported chain file extension %q (want .yaml, .yml or .cue)", filepath.Ext(path)),
			Path:    path,
		}
	}
}

func decodeYAML(data []byte, path string) (*File, error) {
	var f File
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&f); err != nil {
		if errors.Is(err, io.EOF) {
			return &f, nil
		}
		return nil, &LoadError{Code: ErrCodeLoadFailed, Message: fmt.Sprintf("parsing YAML: %v", err), Path: path}
	}
	return &f, nil
}

var (
	knownFields = map[string]bool{
		"table":       true,
		"primary_key": true,
		"filters":     true,
	}
	knownFilterFields = map[string]bool{
		"name":       true,
		"joins":      true,
		"conditions": true,
	}
)

func decodeCUE(data []byte, path string) (*File, error) {
	ctx := cuecontext.New()
	value := ctx.CompileBytes(data, cue.Filename(path))
	if err := value.Err(); err != nil {
		return nil, &LoadError{Code: ErrCodeBuildFailed, Message: fmt.Sprintf("building CUE value: %v", err), Path: path}
	}

	iter, err := value.Fields()
	if err != nil {
		return nil, &LoadError{Code: ErrCodeBuildFailed, Message: fmt.Sprintf("iterating fields: %v", err), Path: path}
	}
	if err := checkFields(iter, knownFields, "", path); err != nil {
		return nil, err
	}

	if filters := value.LookupPath(cue.ParsePath("filters")); filters.Exists() {
		if list, err := filters.List(); err == nil {
			for i := 0; list.Next(); i++ {
				// Non-struct elements are left for Decode to reject.
				elem, err := list.Value().Fields()
				if err != nil {
					continue
				}
				if err := checkFields(elem, knownFilterFields, fmt.Sprintf("filters[%d].", i), path); err != nil {
					return nil, err
				}
			}
		}
	}

	var f File
	if err := value.Decode(&f); err != nil {
		return nil, &LoadError{Code: ErrCodeLoadFailed, Message: fmt.Sprintf("decoding CUE value: %v", err), Path: path}
	}
	return &f, nil
}

// checkFields rejects the first field of iter that is not in known.
func checkFields(iter *cue.Iterator, known map[string]bool, prefix, path string) error {
	for iter.Next() {
		name := iter.Selector().String()
		if !known[name] {
			return &LoadError{
				Code:    ErrCodeUnknownField,
				Message: fmt.Sprintf("unknown field %q", prefix+name),
				Path:    path,
				Pos:     iter.Value().Pos(),
			}
		}
	}
	return nil
}

func validate(f *File, path string) error {
	if strings.TrimSpace(f.Table) == "" {
		return &LoadError{Code: ErrCodeMissingTable, Message: "table is required", Path: path}
	}
	if len(f.Filters) == 0 {
		return &LoadError{Code: ErrCodeNoFilters, Message: "at least one filter is required", Path: path}
	}
	return nil
}
