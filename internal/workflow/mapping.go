package workflow

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	jsonschema "github.com/santhosh-tekuri/jsonschema/v5"

	"blogflow/backend/pkg/models"
)

// DefaultTable is the implicit target of legacy field_name mappings and the
// default table for modern bindings that do not name one.
const DefaultTable = "post_development"

// InputBinding names a column whose value is fed to the prompt under Name.
type InputBinding struct {
	Name   string `json:"name"`
	Table  string `json:"table"`
	Column string `json:"column"`
}

// Binding is the canonical, scheme-independent resolution of a step's mapping.
type Binding struct {
	Inputs []InputBinding   `json:"inputs"`
	Output models.ColumnRef `json:"output"`
	// Scheme is "modern" or "legacy", for diagnostics only.
	Scheme string `json:"scheme"`
}

// Mapping is the parsed field mapping of a step: either LegacyMapping or
// ModernMapping.
type Mapping interface {
	binding() Binding
}

// LegacyMapping is a bare field_name that by convention names a column on
// post_development.
type LegacyMapping struct {
	FieldName string
	Inputs    []InputBinding
}

func (m LegacyMapping) binding() Binding {
	return Binding{
		Inputs: m.Inputs,
		Output: models.ColumnRef{Table: DefaultTable, Column: m.FieldName},
		Scheme: "legacy",
	}
}

// ModernMapping is the config.outputs.output1 binding.
type ModernMapping struct {
	Label  string
	Type   string
	Output models.ColumnRef
	Inputs []InputBinding
}

func (m ModernMapping) binding() Binding {
	return Binding{Inputs: m.Inputs, Output: m.Output, Scheme: "modern"}
}

// stepConfig is the JSON document stored in workflow_step_entity.config.
type stepConfig struct {
	Outputs map[string]fieldConfig `json:"outputs"`
	Inputs  map[string]fieldConfig `json:"inputs"`
}

type fieldConfig struct {
	Label   string `json:"label"`
	DBField string `json:"db_field"`
	Type    string `json:"type"`
	Table   string `json:"table"`
}

const stepConfigSchema = `{
  "type": "object",
  "properties": {
    "outputs": {
      "type": "object",
      "additionalProperties": {"$ref": "#/$defs/field"}
    },
    "inputs": {
      "type": "object",
      "additionalProperties": {"$ref": "#/$defs/field"}
    }
  },
  "$defs": {
    "field": {
      "type": "object",
      "properties": {
        "label": {"type": "string"},
        "db_field": {"type": "string", "pattern": "^[a-z_][a-z0-9_]*$"},
        "type": {"type": "string"},
        "table": {"type": "string", "pattern": "^[a-z_][a-z0-9_]*$"}
      }
    }
  }
}`

var compiledStepConfigSchema = mustCompileStepConfigSchema()

func mustCompileStepConfigSchema() *jsonschema.Schema {
	const id = "inmemory://step_config.json"
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(id, strings.NewReader(stepConfigSchema)); err != nil {
		panic(err)
	}
	return compiler.MustCompile(id)
}

func hasConfig(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) > 0 && !bytes.Equal(trimmed, []byte("null"))
}

func parseStepConfig(raw json.RawMessage) (*stepConfig, error) {
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("config is not valid JSON: %w", err)
	}
	if err := compiledStepConfigSchema.Validate(doc); err != nil {
		return nil, fmt.Errorf("config does not match step config schema: %w", err)
	}
	var cfg stepConfig
	if err := json.Unmarshal(raw, &cfg); err != nil {
		return nil, fmt.Errorf("config could not be decoded: %w", err)
	}
	return &cfg, nil
}

// ParseMapping turns a step row into its tagged mapping variant. The modern
// config output wins over a legacy field_name; a step with neither yields a
// MappingNotFoundError.
func ParseMapping(step *models.WorkflowStep) (Mapping, error) {
	var inputs []InputBinding
	if hasConfig(step.Config) {
		cfg, err := parseStepConfig(step.Config)
		if err != nil {
			return nil, &models.MappingNotFoundError{StepID: step.ID, Reason: "invalid config", Err: err}
		}
		inputs = inputBindings(cfg.Inputs)
		if out, ok := cfg.Outputs["output1"]; ok && out.DBField != "" {
			table := out.Table
			if table == "" {
				table = DefaultTable
			}
			return ModernMapping{
				Label:  out.Label,
				Type:   out.Type,
				Output: models.ColumnRef{Table: table, Column: out.DBField},
				Inputs: inputs,
			}, nil
		}
	}
	if step.FieldName != nil && strings.TrimSpace(*step.FieldName) != "" {
		return LegacyMapping{FieldName: strings.TrimSpace(*step.FieldName), Inputs: inputs}, nil
	}
	return nil, &models.MappingNotFoundError{StepID: step.ID, Reason: "neither config.outputs.output1.db_field nor field_name is set"}
}

// Resolve returns the canonical binding for a step.
func Resolve(step *models.WorkflowStep) (Binding, error) {
	m, err := ParseMapping(step)
	if err != nil {
		return Binding{}, err
	}
	return m.binding(), nil
}

// HasBothSchemes reports a step carrying a legacy field_name next to a modern
// output mapping.
func HasBothSchemes(step *models.WorkflowStep, m Mapping) bool {
	_, modern := m.(ModernMapping)
	return modern && step.FieldName != nil && strings.TrimSpace(*step.FieldName) != ""
}

// inputBindings orders inputs by key so that input2 precedes input10.
func inputBindings(fields map[string]fieldConfig) []InputBinding {
	keys := make([]string, 0, len(fields))
	for k, f := range fields {
		if f.DBField != "" {
			keys = append(keys, k)
		}
	}
	sort.Slice(keys, func(i, j int) bool {
		if len(keys[i]) != len(keys[j]) {
			return len(keys[i]) < len(keys[j])
		}
		return keys[i] < keys[j]
	})
	out := make([]InputBinding, 0, len(keys))
	for _, k := range keys {
		f := fields[k]
		table := f.Table
		if table == "" {
			table = DefaultTable
		}
		out = append(out, InputBinding{Name: f.DBField, Table: table, Column: f.DBField})
	}
	return out
}
