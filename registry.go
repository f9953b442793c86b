package pandora

import (
	"sort"

	"github.com/m-mizutani/goerr/v2"
)

// Registry holds the tools available to the reasoning engine. Tools are registered at
// startup; afterwards the registry is read-only and safe for concurrent use without locking.
type Registry struct {
	tools map[string]Tool
}

// NewRegistry creates a registry and registers tools in order.
func NewRegistry(tools ...Tool) (*Registry, error) {
	r := &Registry{tools: make(map[string]Tool, len(tools))}
	for _, tool := range tools {
		if err := r.Register(tool); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Register adds a tool. It fails on an invalid spec or a duplicated name.
func (r *Registry) Register(tool Tool) error {
	spec := tool.Spec()
	if err := spec.Validate(); err != nil {
		return goerr.Wrap(err, "failed to validate tool spec", goerr.V("tool", spec.Name))
	}

	if _, ok := r.tools[spec.Name]; ok {
		return goerr.Wrap(ErrToolNameConflict, "tool is already registered", goerr.V("tool", spec.Name))
	}

	r.tools[spec.Name] = tool
	return nil
}

// Resolve looks up a tool by name.
func (r *Registry) Resolve(name string) (Tool, bool) {
	tool, ok := r.tools[name]
	return tool, ok
}

// Names returns registered tool names sorted alphabetically.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Specs returns specs of all registered tools sorted by name.
func (r *Registry) Specs() []ToolSpec {
	names := r.Names()
	specs := make([]ToolSpec, len(names))
	for i, name := range names {
		specs[i] = r.tools[name].Spec()
	}
	return specs
}

// Len returns the number of registered tools.
func (r *Registry) Len() int { return len(r.tools) }
