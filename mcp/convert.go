package mcp

import (
	"slices"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/pandora"
	"github.com/mark3labs/mcp-go/mcp"
)

func valueOrEmpty[T any](v any) T {
	var empty T
	if v, ok := v.(T); ok {
		return v
	}
	return empty
}

func stringList(v any) []string {
	switch list := v.(type) {
	case []string:
		return list
	case []any:
		out := make([]string, 0, len(list))
		for _, item := range list {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

func inputSchemaToParameters(schema mcp.ToolInputSchema) (map[string]*pandora.Parameter, error) {
	params := make(map[string]*pandora.Parameter, len(schema.Properties))
	for name, property := range schema.Properties {
		prop, ok := property.(map[string]any)
		if !ok {
			return nil, goerr.Wrap(pandora.ErrInvalidParameter, "property is not an object", goerr.V("property", name))
		}

		param, err := propertyToParameter(prop)
		if err != nil {
			return nil, goerr.Wrap(err, "invalid property", goerr.V("property", name))
		}
		param.Required = slices.Contains(schema.Required, name)
		params[name] = param
	}
	return params, nil
}

func propertyToParameter(prop map[string]any) (*pandora.Parameter, error) {
	param := &pandora.Parameter{
		Type:        pandora.ParameterType(valueOrEmpty[string](prop["type"])),
		Description: valueOrEmpty[string](prop["description"]),
		Enum:        stringList(prop["enum"]),
		Default:     prop["default"],
	}
	if v, ok := prop["minimum"].(float64); ok {
		param.Minimum = &v
	}
	if v, ok := prop["maximum"].(float64); ok {
		param.Maximum = &v
	}

	switch param.Type {
	case pandora.TypeObject:
		required := stringList(prop["required"])
		param.Properties = map[string]*pandora.Parameter{}
		for name, nested := range valueOrEmpty[map[string]any](prop["properties"]) {
			nestedProp, ok := nested.(map[string]any)
			if !ok {
				return nil, goerr.Wrap(pandora.ErrInvalidParameter, "property is not an object", goerr.V("property", name))
			}
			child, err := propertyToParameter(nestedProp)
			if err != nil {
				return nil, err
			}
			child.Required = slices.Contains(required, name)
			param.Properties[name] = child
		}

	case pandora.TypeArray:
		items, ok := prop["items"].(map[string]any)
		if !ok {
			return nil, goerr.Wrap(pandora.ErrInvalidParameter, "array without items")
		}
		child, err := propertyToParameter(items)
		if err != nil {
			return nil, err
		}
		param.Items = child
	}

	return param, nil
}

// specToInputSchema is the reverse direction, used by Server.
func specToInputSchema(spec pandora.ToolSpec) mcp.ToolInputSchema {
	schema := spec.JSONSchema()
	input := mcp.ToolInputSchema{
		Type:       "object",
		Properties: valueOrEmpty[map[string]any](schema["properties"]),
	}
	if required, ok := schema["required"].([]string); ok {
		input.Required = required
	}
	return input
}
