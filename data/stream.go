package data

import (
	"bytes"
	"context"
	"io"
	"sync"
	"time"

	"github.com/agentd-io/agentd/domain"
)

// chunkDelay spaces out re-chunked textual payloads so downstream readers
// see line-by-line delivery instead of one burst.
const chunkDelay = 5 * time.Millisecond

// chunker re-chunks a buffered payload into a pull stream. Textual content
// types (text/*, application/json) are split after each newline so that
// line-oriented consumers, such as token readers, receive one line per
// chunk; other content types emit the whole buffer as a single chunk.
type chunker struct {
	mu     sync.Mutex
	chunks [][]byte
	idx    int
	delay  time.Duration
}

func newChunker(contentType string, buf []byte) *chunker {
	c := &chunker{}
	if len(buf) == 0 {
		return c
	}
	if domain.IsTextual(contentType) {
		parts := bytes.SplitAfter(buf, []byte("\n"))
		// SplitAfter leaves a trailing empty element when the buffer
		// ends with a newline.
		if len(parts) > 0 && len(parts[len(parts)-1]) == 0 {
			parts = parts[:len(parts)-1]
		}
		c.chunks = parts
		c.delay = chunkDelay
		return c
	}
	c.chunks = [][]byte{buf}
	return c
}

// Next implements Source. It observes ctx cancellation, including during
// the inter-chunk delay.
func (c *chunker) Next(ctx context.Context) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if c.idx >= len(c.chunks) {
		return nil, io.EOF
	}
	if c.idx > 0 && c.delay > 0 {
		t := time.NewTimer(c.delay)
		defer t.Stop()
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-t.C:
		}
	}
	chunk := c.chunks[c.idx]
	c.idx++
	return chunk, nil
}
