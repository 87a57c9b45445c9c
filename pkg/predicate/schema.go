// logicbits/pkg/predicate/schema.go

package predicate

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"rgehrsitz/logicbits/pkg/logging"
	"rgehrsitz/logicbits/pkg/scripting"

	"gopkg.in/yaml.v3"
)

const (
	KindEquals     = "equals"
	KindFlag       = "flag"
	KindZero       = "zero"
	KindThresholds = "thresholds"
	KindScript     = "script"
)

// Schema is the declarative form of a predicate space.
type Schema struct {
	Width      int          `json:"width" yaml:"width"`
	Predicates []Definition `json:"predicates" yaml:"predicates"`
}

// Definition declares one predicate, or a family of them for KindThresholds.
type Definition struct {
	Name       string      `json:"name,omitempty" yaml:"name,omitempty"`
	Kind       string      `json:"kind" yaml:"kind"`
	Field      string      `json:"field,omitempty" yaml:"field,omitempty"`
	Value      interface{} `json:"value,omitempty" yaml:"value,omitempty"`
	Prefix     string      `json:"prefix,omitempty" yaml:"prefix,omitempty"`
	Thresholds []float64   `json:"thresholds,omitempty" yaml:"thresholds,omitempty"`
	Script     string      `json:"script,omitempty" yaml:"script,omitempty"`
	Fields     []string    `json:"fields,omitempty" yaml:"fields,omitempty"`
}

// FormatFromPath returns "yaml" for .yaml/.yml files and "json" otherwise.
func FormatFromPath(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return "yaml"
	default:
		return "json"
	}
}

// Decode unmarshals a JSON or YAML document into v. Unknown JSON fields are
// rejected.
func Decode(data []byte, format string, v interface{}) error {
	switch format {
	case "yaml", "yml":
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		return dec.Decode(v)
	case "json", "":
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		return dec.Decode(v)
	default:
		return fmt.Errorf("unsupported document format %q", format)
	}
}

// ParseSchema decodes a schema document and builds its space.
func ParseSchema(data []byte, format string) (*Space, error) {
	var schema Schema
	if err := Decode(data, format, &schema); err != nil {
		return nil, logging.NewError(logging.ErrorTypeParse, "failed to parse schema", err, map[string]interface{}{"format": format})
	}
	return schema.Build()
}

// LoadSchema reads and builds the schema at path.
func LoadSchema(path string) (*Space, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, logging.NewError(logging.ErrorTypeConfig, "failed to read schema file", err, map[string]interface{}{"path": path})
	}
	return ParseSchema(data, FormatFromPath(path))
}

// Build validates every definition and registers it in declaration order.
// A zero width means DefaultWidth.
func (s *Schema) Build() (*Space, error) {
	width := s.Width
	if width == 0 {
		width = DefaultWidth
	}
	b := NewBuilder(width)
	var vm *scripting.SafeVM

	for i, def := range s.Predicates {
		fields := map[string]interface{}{"index": i, "name": def.Name, "kind": def.Kind}
		invalid := func(msg string) error {
			return logging.NewError(logging.ErrorTypeConfig, "invalid predicate definition", fmt.Errorf("%s", msg), fields)
		}

		if def.Kind != KindThresholds && def.Name == "" {
			return nil, invalid("name is required")
		}
		switch def.Kind {
		case KindEquals:
			if def.Field == "" || def.Value == nil {
				return nil, invalid("equals requires field and value")
			}
			b.Register(def.Name, Equals(def.Field, def.Value))
		case KindFlag:
			if def.Field == "" {
				return nil, invalid("flag requires field")
			}
			b.Register(def.Name, Flag(def.Field))
		case KindZero:
			if def.Field == "" {
				return nil, invalid("zero requires field")
			}
			b.Register(def.Name, Zero(def.Field))
		case KindThresholds:
			if def.Prefix == "" || def.Field == "" || len(def.Thresholds) == 0 {
				return nil, invalid("thresholds requires prefix, field and at least one threshold")
			}
			b.RegisterThresholds(def.Prefix, def.Field, def.Thresholds...)
		case KindScript:
			if def.Script == "" {
				return nil, invalid("script requires an expression")
			}
			params := def.Fields
			if len(params) == 0 && def.Field != "" {
				params = []string{def.Field}
			}
			if vm == nil {
				vm = scripting.NewSafeVM()
			}
			if err := vm.SetScript(def.Name, scripting.Expression(def.Script, params...)); err != nil {
				return nil, err
			}
			b.Register(def.Name, Script(vm, def.Name, params))
		default:
			return nil, invalid(fmt.Sprintf("unknown kind %q", def.Kind))
		}
	}
	return b.Build()
}
