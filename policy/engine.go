// Package policy evaluates hand-off policies with OPA. The router
// consults the engine before resolving a hand-off target; a block
// decision fails the invocation without any resolution I/O.
package policy

import (
	"context"
	"fmt"

	"github.com/open-policy-agent/opa/rego"
)

// Decision values returned by the policy.
const (
	DecisionAllow = "allow"
	DecisionBlock = "block"
)

// Input describes one hand-off for evaluation.
type Input struct {
	SourceAgent string `json:"source_agent"`
	TargetAgent string `json:"target_agent,omitempty"`
	TargetName  string `json:"target_name,omitempty"`
	Trigger     string `json:"trigger"`
}

// Engine is the OPA policy engine.
type Engine struct {
	query rego.PreparedEvalQuery
}

// NewEngine creates a policy engine from the given rego module content.
func NewEngine(ctx context.Context, policyContent string) (*Engine, error) {
	r := rego.New(
		rego.Query("data.handoff.decision"),
		rego.Module("handoff.rego", policyContent),
	)

	query, err := r.PrepareForEval(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare rego: %w", err)
	}
	return &Engine{query: query}, nil
}

// Evaluate returns the policy decision for one hand-off. The policy is
// expected to define a default decision.
func (e *Engine) Evaluate(ctx context.Context, input Input) (string, error) {
	results, err := e.query.Eval(ctx, rego.EvalInput(input))
	if err != nil {
		return "", fmt.Errorf("failed to evaluate policy: %w", err)
	}
	if len(results) == 0 || len(results[0].Expressions) == 0 {
		return DecisionAllow, nil
	}
	if s, ok := results[0].Expressions[0].Value.(string); ok {
		return s, nil
	}
	return DecisionAllow, nil
}

// DefaultPolicy allows every hand-off. Deployments override it to fence
// off specific targets.
const DefaultPolicy = `
package handoff

default decision = "allow"

# Example: block hand-offs into a quarantined agent.
decision = "block" {
	input.target_agent == "quarantined"
}
`
