package agent

import (
	"errors"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// ErrDuplicateTool is returned when a tool name is registered twice. Name
// collisions are a programming error in the wiring code, not a runtime
// condition to recover from.
var ErrDuplicateTool = errors.New("tool already registered")

// ToolRegistry owns the capabilities available to runs. It is safe for
// concurrent readers; registration normally happens once at startup.
type ToolRegistry struct {
	mu    sync.RWMutex
	tools map[string]Tool
	order []string
}

// NewToolRegistry returns an empty registry.
func NewToolRegistry() *ToolRegistry {
	return &ToolRegistry{tools: make(map[string]Tool)}
}

// Register adds a tool. It fails on an empty name, a duplicate name, or an
// input schema that does not compile as JSON Schema.
func (r *ToolRegistry) Register(tool Tool) error {
	spec := tool.Spec()
	if spec.Name == "" {
		return errors.New("tool name is required")
	}
	if len(spec.InputSchema) > 0 {
		if _, err := jsonschema.CompileString(spec.Name+".json", string(spec.InputSchema)); err != nil {
			return fmt.Errorf("tool %q: invalid input schema: %w", spec.Name, err)
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.tools[spec.Name]; exists {
		return fmt.Errorf("tool %q: %w", spec.Name, ErrDuplicateTool)
	}
	r.tools[spec.Name] = tool
	r.order = append(r.order, spec.Name)
	return nil
}

// Get returns the named tool. Absence is a normal outcome that callers handle
// explicitly, never an error.
func (r *ToolRegistry) Get(name string) (Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	tool, ok := r.tools[name]
	return tool, ok
}

// ListSpecs returns the specs visible to the caller, in registration order.
// Without an auth context (or with one holding no scopes) only public tools
// are visible; otherwise public tools plus any scoped tool sharing at least
// one scope with the caller.
func (r *ToolRegistry) ListSpecs(auth *ToolAuthContext) []ToolSpec {
	r.mu.RLock()
	defer r.mu.RUnlock()

	specs := make([]ToolSpec, 0, len(r.order))
	for _, name := range r.order {
		spec := r.tools[name].Spec()
		if len(spec.Scopes) == 0 {
			specs = append(specs, spec)
			continue
		}
		if auth == nil || len(auth.Scopes) == 0 {
			continue
		}
		if auth.HasAnyScope(spec.Scopes...) {
			specs = append(specs, spec)
		}
	}
	return specs
}
