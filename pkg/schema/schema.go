package schema

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"

	json "github.com/goccy/go-json"
	"gopkg.in/yaml.v3"

	"github.com/ajitpratap0/fixedseg/pkg/errors"
)

// Schema is an ordered list of columns
type Schema struct {
	Name   string      `json:"schemaName" yaml:"schemaName"`
	Fields []FieldSpec `json:"fieldSpecs" yaml:"fieldSpecs"`
}

// NewSchema returns a schema over fields
func NewSchema(name string, fields ...FieldSpec) *Schema {
	return &Schema{Name: name, Fields: fields}
}

// NumColumns returns the number of columns
func (s *Schema) NumColumns() int { return len(s.Fields) }

// Index returns the position of the named column, or -1
func (s *Schema) Index(name string) int {
	for i := range s.Fields {
		if s.Fields[i].Name == name {
			return i
		}
	}
	return -1
}

// Field returns the named column
func (s *Schema) Field(name string) (FieldSpec, bool) {
	if i := s.Index(name); i >= 0 {
		return s.Fields[i], true
	}
	return FieldSpec{}, false
}

// Validate checks every field and that names are unique
func (s *Schema) Validate() error {
	if len(s.Fields) == 0 {
		return errors.New(errors.ErrorTypeConfig, "schema has no fields")
	}
	seen := make(map[string]struct{}, len(s.Fields))
	for _, f := range s.Fields {
		if err := f.Validate(); err != nil {
			return err
		}
		if _, dup := seen[f.Name]; dup {
			return errors.Newf(errors.ErrorTypeConfig, "duplicate field name %q", f.Name)
		}
		seen[f.Name] = struct{}{}
	}
	return nil
}

// ColumnWidths returns the fixed byte width of every column, in order
func (s *Schema) ColumnWidths() ([]int, error) {
	widths := make([]int, len(s.Fields))
	for i, f := range s.Fields {
		w, err := f.Width()
		if err != nil {
			return nil, err
		}
		widths[i] = w
	}
	return widths, nil
}

// Dedup drops fields structurally equal to an earlier one and reports how
// many were dropped
func (s *Schema) Dedup() int {
	seen := make(map[FieldKey]struct{}, len(s.Fields))
	kept := s.Fields[:0]
	for _, f := range s.Fields {
		if _, ok := seen[f.Key()]; ok {
			continue
		}
		seen[f.Key()] = struct{}{}
		kept = append(kept, f)
	}
	dropped := len(s.Fields) - len(kept)
	s.Fields = kept
	return dropped
}

// LoadSchema reads a schema file. The format follows the extension: .yaml and
// .yml are YAML, anything else is JSON.
func LoadSchema(path string) (*Schema, error) {
	data, err := os.ReadFile(path) //nolint:gosec // G304: path is supplied by the operator
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeFile, "failed to read schema file").
			WithDetail("path", path)
	}
	var s *Schema
	if isYAML(path) {
		s, err = ParseYAML(data)
	} else {
		s, err = ParseJSON(data)
	}
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConfig, "failed to parse schema file").
			WithDetail("path", path)
	}
	return s, nil
}

// ParseJSON decodes and validates a JSON schema
func ParseJSON(data []byte) (*Schema, error) {
	var s Schema
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&s); err != nil {
		return nil, err
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// ParseYAML decodes and validates a YAML schema
func ParseYAML(data []byte) (*Schema, error) {
	var s Schema
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, err
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// Save writes the schema to path in the format its extension selects
func (s *Schema) Save(path string) error {
	var (
		data []byte
		err  error
	)
	if isYAML(path) {
		data, err = yaml.Marshal(s)
	} else {
		data, err = json.MarshalIndent(s, "", "  ")
	}
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeConfig, "failed to encode schema")
	}
	if err := os.WriteFile(path, data, 0o644); err != nil { //nolint:gosec
		return errors.Wrap(err, errors.ErrorTypeFile, "failed to write schema file").
			WithDetail("path", path)
	}
	return nil
}

func isYAML(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".yaml" || ext == ".yml"
}
