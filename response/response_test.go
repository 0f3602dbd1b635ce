package response

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentd-io/agentd/domain"
)

func TestTextResult(t *testing.T) {
	res, err := Text("pong")
	require.NoError(t, err)
	assert.Equal(t, domain.ResultText, res.Kind)
	assert.Equal(t, "pong", res.Text)
	assert.Nil(t, res.Metadata)
}

func TestJSONResult(t *testing.T) {
	ctx := context.Background()
	res, err := JSON(map[string]any{"ok": true}, map[string]any{"source": "test"})
	require.NoError(t, err)
	assert.Equal(t, domain.ResultData, res.Kind)
	assert.Equal(t, "application/json", res.Data.ContentType())
	assert.Equal(t, "test", res.Metadata["source"])

	text, err := res.Data.Text(ctx)
	require.NoError(t, err)
	assert.JSONEq(t, `{"ok":true}`, text)
}

func TestTypedConstructorContentTypes(t *testing.T) {
	cases := []struct {
		name string
		fn   func([]byte, ...map[string]any) (*Result, error)
		want string
	}{
		{"binary", Binary, "application/octet-stream"},
		{"pdf", PDF, "application/pdf"},
		{"png", PNG, "image/png"},
		{"jpeg", JPEG, "image/jpeg"},
		{"gif", GIF, "image/gif"},
		{"webp", WebP, "image/webp"},
		{"mp3", MP3, "audio/mpeg"},
		{"wav", WAV, "audio/wav"},
		{"ogg", OGG, "audio/ogg"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			res, err := tc.fn([]byte{0x01})
			require.NoError(t, err)
			assert.Equal(t, tc.want, res.Data.ContentType())
		})
	}
}

func TestInvalidMetadataRejected(t *testing.T) {
	// NaN cannot be marshaled to JSON.
	_, err := Text("x", map[string]any{"bad": math.NaN()})
	assert.ErrorIs(t, err, domain.ErrInvalidMetadata)

	_, err = Binary([]byte{0x01}, map[string]any{"bad": make(chan int)})
	assert.ErrorIs(t, err, domain.ErrInvalidMetadata)
}

func TestHandoff(t *testing.T) {
	res, err := Handoff(domain.AgentRef{ID: "billing"})
	require.NoError(t, err)
	assert.Equal(t, domain.ResultHandoff, res.Kind)
	require.NotNil(t, res.Handoff)
	assert.Equal(t, "billing", res.Handoff.Agent.ID)
	assert.Nil(t, res.Handoff.Args)
}

func TestHandoffValidatesRef(t *testing.T) {
	_, err := Handoff(domain.AgentRef{})
	assert.ErrorIs(t, err, domain.ErrInvalidAgentRef)
}

func TestHandoffValidatesArgsMetadata(t *testing.T) {
	_, err := Handoff(domain.AgentRef{Name: "billing"}, &domain.InvocationArguments{
		Metadata: map[string]any{"bad": math.Inf(1)},
	})
	assert.ErrorIs(t, err, domain.ErrInvalidMetadata)
}
