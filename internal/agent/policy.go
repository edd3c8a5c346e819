package agent

// Denial reason codes surfaced in failed tool results.
const (
	ReasonCallLimitReached   = "tool_call_limit_reached"
	ReasonToolDenied         = "tool_denied"
	ReasonToolNotAllowed     = "tool_not_allowed"
	ReasonMissingAuthContext = "missing_auth_context"
	ReasonMissingScope       = "missing_required_scope"
	ReasonToolNotFound       = "tool_not_found"
	ReasonExecutionFailed    = "tool_execution_failed"
)

// DefaultMaxToolCalls caps tool invocations per run unless configured
// otherwise.
const DefaultMaxToolCalls = 8

// ToolAuthContext carries the caller's authorization for one run. It is
// constructed once per run (or absent for anonymous callers) and never
// mutated.
type ToolAuthContext struct {
	Scopes []string
	UserID string
}

// HasAnyScope reports whether the context holds at least one of the given
// scopes. Nil contexts hold nothing.
func (a *ToolAuthContext) HasAnyScope(scopes ...string) bool {
	if a == nil {
		return false
	}
	for _, want := range scopes {
		for _, got := range a.Scopes {
			if got == want {
				return true
			}
		}
	}
	return false
}

// PolicyDecision is the outcome of one policy evaluation. Reason is set only
// on denial.
type PolicyDecision struct {
	Allow  bool
	Reason string
}

// PolicyConfig configures a ToolPolicy.
type PolicyConfig struct {
	// AllowedTools, when non-nil, is the complete set of callable tool
	// names. A nil slice means no allow list is configured and every
	// registered tool is callable.
	AllowedTools []string

	// DeniedTools are never callable, regardless of the allow list.
	DeniedTools []string

	// MaxCalls caps tool invocations (successful or not) per run. Zero uses
	// DefaultMaxToolCalls.
	MaxCalls int
}

// ToolPolicy decides whether a given tool call may proceed. Evaluation is a
// pure function of its inputs: no I/O, no internal state, so the same inputs
// always yield the same decision.
type ToolPolicy struct {
	allowed  map[string]struct{}
	denied   map[string]struct{}
	maxCalls int
}

// NewToolPolicy builds a policy from cfg.
func NewToolPolicy(cfg PolicyConfig) *ToolPolicy {
	p := &ToolPolicy{maxCalls: cfg.MaxCalls}
	if p.maxCalls <= 0 {
		p.maxCalls = DefaultMaxToolCalls
	}
	if cfg.AllowedTools != nil {
		p.allowed = make(map[string]struct{}, len(cfg.AllowedTools))
		for _, name := range cfg.AllowedTools {
			p.allowed[name] = struct{}{}
		}
	}
	if len(cfg.DeniedTools) > 0 {
		p.denied = make(map[string]struct{}, len(cfg.DeniedTools))
		for _, name := range cfg.DeniedTools {
			p.denied[name] = struct{}{}
		}
	}
	return p
}

// MaxCalls returns the configured per-run call budget.
func (p *ToolPolicy) MaxCalls() int {
	return p.maxCalls
}

// Evaluate decides whether one more invocation of the tool described by spec
// may proceed. callCount is the number of calls already made in the enclosing
// run; the call under evaluation is not yet counted. Checks short-circuit in
// a fixed order: budget, deny list, allow list, then scopes.
func (p *ToolPolicy) Evaluate(spec ToolSpec, auth *ToolAuthContext, callCount int) PolicyDecision {
	if callCount >= p.maxCalls {
		return PolicyDecision{Reason: ReasonCallLimitReached}
	}
	if _, ok := p.denied[spec.Name]; ok {
		return PolicyDecision{Reason: ReasonToolDenied}
	}
	if p.allowed != nil {
		if _, ok := p.allowed[spec.Name]; !ok {
			return PolicyDecision{Reason: ReasonToolNotAllowed}
		}
	}
	if len(spec.Scopes) > 0 {
		if auth == nil {
			return PolicyDecision{Reason: ReasonMissingAuthContext}
		}
		if !auth.HasAnyScope(spec.Scopes...) {
			return PolicyDecision{Reason: ReasonMissingScope}
		}
	}
	return PolicyDecision{Allow: true}
}
