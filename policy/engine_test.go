package policy

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultPolicyAllows(t *testing.T) {
	ctx := context.Background()
	e, err := NewEngine(ctx, DefaultPolicy)
	require.NoError(t, err)

	decision, err := e.Evaluate(ctx, Input{
		SourceAgent: "agent-a",
		TargetAgent: "agent-b",
		Trigger:     "webhook",
	})
	require.NoError(t, err)
	assert.Equal(t, DecisionAllow, decision)
}

func TestBlockRule(t *testing.T) {
	ctx := context.Background()
	e, err := NewEngine(ctx, DefaultPolicy)
	require.NoError(t, err)

	decision, err := e.Evaluate(ctx, Input{
		SourceAgent: "agent-a",
		TargetAgent: "quarantined",
		Trigger:     "webhook",
	})
	require.NoError(t, err)
	assert.Equal(t, DecisionBlock, decision)
}

func TestCustomPolicy(t *testing.T) {
	ctx := context.Background()
	custom := `
package handoff

default decision = "allow"

decision = "block" {
	input.trigger == "sms"
}
`
	e, err := NewEngine(ctx, custom)
	require.NoError(t, err)

	decision, err := e.Evaluate(ctx, Input{SourceAgent: "a", TargetAgent: "b", Trigger: "sms"})
	require.NoError(t, err)
	assert.Equal(t, DecisionBlock, decision)
}

func TestInvalidPolicyFailsToPrepare(t *testing.T) {
	_, err := NewEngine(context.Background(), "not rego at all {")
	assert.Error(t, err)
}
