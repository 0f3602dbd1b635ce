package data

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// countingSource yields the given chunks once and records how many times
// Next was called.
type countingSource struct {
	chunks [][]byte
	calls  int
	idx    int
	err    error
}

func (s *countingSource) Next(ctx context.Context) ([]byte, error) {
	s.calls++
	if s.idx >= len(s.chunks) {
		if s.err != nil {
			return nil, s.err
		}
		return nil, io.EOF
	}
	chunk := s.chunks[s.idx]
	s.idx++
	return chunk, nil
}

func TestMaterializeOnce(t *testing.T) {
	ctx := context.Background()
	src := &countingSource{chunks: [][]byte{[]byte("hello "), []byte("world")}}
	d := NewStream("text/plain", src)

	text, err := d.Text(ctx)
	require.NoError(t, err)
	assert.Equal(t, "hello world", text)

	callsAfterFirst := src.calls

	// Repeated reads across all views are byte-identical and never
	// re-read the source.
	text2, err := d.Text(ctx)
	require.NoError(t, err)
	assert.Equal(t, text, text2)

	b, err := d.Binary(ctx)
	require.NoError(t, err)
	assert.Equal(t, []byte("hello world"), b)

	assert.Equal(t, callsAfterFirst, src.calls)
}

func TestMaterializeErrorIsSticky(t *testing.T) {
	ctx := context.Background()
	readErr := errors.New("boom")
	src := &countingSource{chunks: [][]byte{[]byte("partial")}, err: readErr}
	d := NewStream("text/plain", src)

	_, err := d.Text(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, readErr)

	calls := src.calls
	_, err2 := d.Binary(ctx)
	assert.ErrorIs(t, err2, readErr)
	assert.Equal(t, calls, src.calls, "second read must not re-read the source")
}

func drain(t *testing.T, src Source) [][]byte {
	t.Helper()
	ctx := context.Background()
	var chunks [][]byte
	for {
		chunk, err := src.Next(ctx)
		if err == io.EOF {
			return chunks
		}
		require.NoError(t, err)
		chunks = append(chunks, chunk)
	}
}

func TestStreamChunksOnLineBoundaries(t *testing.T) {
	d := NewText("text/plain", "one\ntwo\nthree\npartial")
	chunks := drain(t, d.Stream())
	require.Len(t, chunks, 4)
	assert.Equal(t, "one\n", string(chunks[0]))
	assert.Equal(t, "two\n", string(chunks[1]))
	assert.Equal(t, "three\n", string(chunks[2]))
	assert.Equal(t, "partial", string(chunks[3]))
}

func TestStreamChunksNoTrailingPartial(t *testing.T) {
	d := NewText("text/plain", "one\ntwo\n")
	chunks := drain(t, d.Stream())
	require.Len(t, chunks, 2)
	assert.Equal(t, "one\n", string(chunks[0]))
	assert.Equal(t, "two\n", string(chunks[1]))
}

func TestStreamBinarySingleChunk(t *testing.T) {
	payload := []byte{0x25, 0x50, 0x44, 0x46, 0x0a, 0x01}
	d := NewBytes("application/pdf", payload)
	chunks := drain(t, d.Stream())
	require.Len(t, chunks, 1)
	assert.Equal(t, payload, chunks[0])
}

func TestStreamEmptyBuffer(t *testing.T) {
	d := NewBytes("application/octet-stream", nil)
	assert.Empty(t, drain(t, d.Stream()))
}

func TestStreamHandsOutSourceOnce(t *testing.T) {
	ctx := context.Background()
	src := &countingSource{chunks: [][]byte{[]byte("x")}}
	d := NewStream("text/plain", src)

	s := d.Stream()
	require.NotNil(t, s)

	_, err := d.Stream().Next(ctx)
	assert.ErrorIs(t, err, ErrConsumed)
	_, err = d.Text(ctx)
	assert.ErrorIs(t, err, ErrConsumed)
}

func TestJSON(t *testing.T) {
	ctx := context.Background()

	d := NewText("application/json", `{"name":"demo","count":2}`)
	v, err := d.JSON(ctx)
	require.NoError(t, err)
	obj, ok := v.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "demo", obj["name"])

	_, err = NewBytes("application/json", nil).JSON(ctx)
	assert.ErrorContains(t, err, "empty payload")

	_, err = NewText("application/json", "{oops").JSON(ctx)
	assert.ErrorContains(t, err, "failed to parse JSON")
}

func TestUnmarshal(t *testing.T) {
	ctx := context.Background()

	var out struct {
		Name string `json:"name"`
	}
	require.NoError(t, NewText("application/json", `{"name":"demo"}`).Unmarshal(ctx, &out))
	assert.Equal(t, "demo", out.Name)

	err := NewText("application/json", "{oops").Unmarshal(ctx, &out)
	assert.ErrorContains(t, err, "failed to parse object")
}

func TestBase64(t *testing.T) {
	ctx := context.Background()
	d := NewBytes("application/octet-stream", []byte{0x00, 0x01, 0x02})
	s, err := d.Base64(ctx)
	require.NoError(t, err)
	assert.Equal(t, "AAEC", s)
}

func TestFromReader(t *testing.T) {
	ctx := context.Background()
	d := FromReader("text/plain", strings.NewReader("streamed content"))
	text, err := d.Text(ctx)
	require.NoError(t, err)
	assert.Equal(t, "streamed content", text)
}

func TestStreamObservesCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	d := NewText("text/plain", "one\ntwo\n")
	src := d.Stream()

	_, err := src.Next(ctx)
	require.NoError(t, err)

	cancel()
	_, err = src.Next(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
