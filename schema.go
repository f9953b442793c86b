package pandora

import "sort"

// JSONSchema converts the spec parameters into a JSON Schema object. Provider adapters,
// the MCP server and the Executor's argument validation all consume this form.
func (s *ToolSpec) JSONSchema() map[string]any {
	schema := map[string]any{
		"type":       "object",
		"properties": propertiesSchema(s.Parameters),
	}
	if required := collectRequired(s.Parameters); len(required) > 0 {
		schema["required"] = required
	}
	return schema
}

// JSONSchema converts a single parameter into JSON Schema.
func (p *Parameter) JSONSchema() map[string]any {
	schema := map[string]any{
		"type": string(p.Type),
	}

	if p.Description != "" {
		schema["description"] = p.Description
	}

	if len(p.Enum) > 0 {
		enum := make([]any, len(p.Enum))
		for i, v := range p.Enum {
			enum[i] = v
		}
		schema["enum"] = enum
	}

	if p.Type == TypeObject && p.Properties != nil {
		schema["properties"] = propertiesSchema(p.Properties)
		if required := collectRequired(p.Properties); len(required) > 0 {
			schema["required"] = required
		}
	}

	if p.Type == TypeArray && p.Items != nil {
		schema["items"] = p.Items.JSONSchema()
	}

	if p.Minimum != nil {
		schema["minimum"] = *p.Minimum
	}
	if p.Maximum != nil {
		schema["maximum"] = *p.Maximum
	}
	if p.Default != nil {
		schema["default"] = p.Default
	}

	return schema
}

func propertiesSchema(params map[string]*Parameter) map[string]any {
	props := make(map[string]any, len(params))
	for name, param := range params {
		props[name] = param.JSONSchema()
	}
	return props
}

func collectRequired(params map[string]*Parameter) []string {
	var required []string
	for name, param := range params {
		if param.Required {
			required = append(required, name)
		}
	}
	sort.Strings(required)
	return required
}
