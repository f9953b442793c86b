package pandora

import (
	"context"
	"regexp"

	"github.com/m-mizutani/goerr/v2"
)

// ToolSpec is the specification of a tool.
// It is declared to the reasoning engine every round and is used to validate arguments
// before the tool runs.
type ToolSpec struct {
	// Name is the unique identifier for the tool within a Registry.
	Name string

	// Description tells the reasoning engine what the tool does and when to use it.
	Description string

	// Parameters defines the input parameters that the tool accepts, keyed by field name.
	Parameters map[string]*Parameter
}

var toolNamePattern = regexp.MustCompile(`^[a-zA-Z0-9_-]{1,64}$`)

// Validate validates the tool specification.
func (s *ToolSpec) Validate() error {
	eb := goerr.NewBuilder(goerr.V("tool", s.Name))
	if s.Name == "" {
		return eb.Wrap(ErrInvalidTool, "name is required")
	}
	if !toolNamePattern.MatchString(s.Name) {
		return eb.Wrap(ErrInvalidTool, "name must match "+toolNamePattern.String())
	}

	for name, param := range s.Parameters {
		if param == nil {
			return eb.Wrap(ErrInvalidTool, "parameter is nil", goerr.V("parameter", name))
		}
		if err := param.Validate(); err != nil {
			return eb.Wrap(err, "invalid parameter", goerr.V("parameter", name))
		}
	}

	return nil
}

// RequiredFields returns names of required parameters in deterministic order.
func (s *ToolSpec) RequiredFields() []string {
	return collectRequired(s.Parameters)
}

// ParameterType is the type of a parameter.
type ParameterType string

const (
	TypeString  ParameterType = "string"
	TypeNumber  ParameterType = "number"
	TypeInteger ParameterType = "integer"
	TypeBoolean ParameterType = "boolean"
	TypeArray   ParameterType = "array"
	TypeObject  ParameterType = "object"
)

// Parameter is a parameter of a tool.
type Parameter struct {
	// Type is the type of the parameter. It must be one of the ParameterType values.
	Type ParameterType

	// Description explains the purpose and expected format of the parameter.
	Description string

	// Required marks the field as mandatory in its parent object.
	Required bool

	// Enum is the list of allowed values for the parameter.
	Enum []string

	// Properties defines fields of an object type parameter.
	Properties map[string]*Parameter

	// Items defines elements of an array type parameter.
	Items *Parameter

	// Minimum and Maximum define the valid range for number type parameters.
	Minimum *float64
	Maximum *float64

	// Default value for the parameter.
	Default any
}

// Validate validates the parameter.
func (p *Parameter) Validate() error {
	eb := goerr.NewBuilder(goerr.V("type", p.Type))

	switch p.Type {
	case TypeString, TypeNumber, TypeInteger, TypeBoolean:
	case TypeObject:
		if p.Properties == nil {
			return eb.Wrap(ErrInvalidParameter, "properties is required for object type")
		}
		for name, prop := range p.Properties {
			if prop == nil {
				return eb.Wrap(ErrInvalidParameter, "property is nil", goerr.V("property", name))
			}
			if err := prop.Validate(); err != nil {
				return eb.Wrap(ErrInvalidParameter, "invalid property", goerr.V("property", name))
			}
		}
	case TypeArray:
		if p.Items == nil {
			return eb.Wrap(ErrInvalidParameter, "items is required for array type")
		}
		if err := p.Items.Validate(); err != nil {
			return eb.Wrap(ErrInvalidParameter, "invalid items")
		}
	case "":
		return eb.Wrap(ErrInvalidParameter, "type is required")
	default:
		return eb.Wrap(ErrInvalidParameter, "unknown type")
	}

	if p.Minimum != nil && p.Maximum != nil && *p.Minimum > *p.Maximum {
		return eb.Wrap(ErrInvalidParameter, "minimum must be less than or equal to maximum")
	}

	return nil
}

// Tool is a capability the reasoning engine may request. Run returns plain result text.
// An error returned from Run does not abort the round; the Executor converts it into result
// text so the reasoning engine can react to it.
type Tool interface {
	Spec() ToolSpec
	Run(ctx context.Context, args map[string]any) (string, error)
}

// ToolFunc is the function signature accepted by NewTool.
type ToolFunc func(ctx context.Context, args map[string]any) (string, error)

type funcTool struct {
	spec ToolSpec
	run  ToolFunc
}

func (x *funcTool) Spec() ToolSpec { return x.spec }

func (x *funcTool) Run(ctx context.Context, args map[string]any) (string, error) {
	return x.run(ctx, args)
}

// NewTool builds a Tool from a spec and a plain function.
func NewTool(spec ToolSpec, run ToolFunc) Tool {
	return &funcTool{spec: spec, run: run}
}
