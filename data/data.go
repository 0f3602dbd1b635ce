// Package data provides the lazy payload container shared by requests and
// responses. A container is backed either by an in-memory buffer or by a
// pull-based byte stream; the first materializing read drains the stream
// into the buffer exactly once, after which all views are repeatable.
package data

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"
)

// Source is a pull stream of byte chunks. Next returns io.EOF when the
// stream is exhausted; any other error is terminal.
type Source interface {
	Next(ctx context.Context) ([]byte, error)
}

// SourceFunc adapts a function to the Source interface.
type SourceFunc func(ctx context.Context) ([]byte, error)

// Next implements Source.
func (f SourceFunc) Next(ctx context.Context) ([]byte, error) { return f(ctx) }

// ErrConsumed is returned when a stream-backed container's source was
// already handed out via Stream and can no longer be read.
var ErrConsumed = errors.New("data: stream already consumed")

// Data is the lazy payload container. It wraps exactly one of an
// in-memory buffer or a pull stream. Construction never sets both.
type Data struct {
	contentType string

	mu       sync.Mutex
	buf      []byte
	buffered bool
	err      error // sticky materialization error
	src      Source
	consumed bool
}

// NewBytes creates a buffer-backed container.
func NewBytes(contentType string, b []byte) *Data {
	return &Data{contentType: contentType, buf: b, buffered: true}
}

// NewText creates a buffer-backed container from a string.
func NewText(contentType, s string) *Data {
	return NewBytes(contentType, []byte(s))
}

// NewStream creates a stream-backed container. The source is drained at
// most once, on the first materializing read.
func NewStream(contentType string, src Source) *Data {
	return &Data{contentType: contentType, src: src}
}

// FromReader creates a stream-backed container that pulls from r.
func FromReader(contentType string, r io.Reader) *Data {
	chunk := make([]byte, 32*1024)
	return NewStream(contentType, SourceFunc(func(ctx context.Context) ([]byte, error) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		n, err := r.Read(chunk)
		if n > 0 {
			out := make([]byte, n)
			copy(out, chunk[:n])
			if err == io.EOF {
				err = nil
			}
			return out, err
		}
		return nil, err
	}))
}

// ContentType returns the container's content type.
func (d *Data) ContentType() string { return d.contentType }

// materialize drains the source into the buffer. The first caller pays the
// drain cost; subsequent callers read the cached buffer. Errors are sticky
// so repeated reads observe the same failure.
func (d *Data) materialize(ctx context.Context) ([]byte, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.err != nil {
		return nil, d.err
	}
	if d.buffered {
		return d.buf, nil
	}
	if d.consumed {
		return nil, ErrConsumed
	}
	var buf bytes.Buffer
	for {
		chunk, err := d.src.Next(ctx)
		if len(chunk) > 0 {
			buf.Write(chunk)
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			d.err = fmt.Errorf("failed to read stream: %w", err)
			d.src = nil
			return nil, d.err
		}
	}
	d.buf = buf.Bytes()
	d.buffered = true
	d.src = nil
	return d.buf, nil
}

// Binary returns the payload bytes, materializing the stream if needed.
func (d *Data) Binary(ctx context.Context) ([]byte, error) {
	return d.materialize(ctx)
}

// Text returns the payload as a string.
func (d *Data) Text(ctx context.Context) (string, error) {
	b, err := d.materialize(ctx)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// Base64 returns the payload encoded as standard base64.
func (d *Data) Base64(ctx context.Context) (string, error) {
	b, err := d.materialize(ctx)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(b), nil
}

// JSON parses the payload as JSON. An empty or invalid buffer is an error.
func (d *Data) JSON(ctx context.Context) (any, error) {
	b, err := d.materialize(ctx)
	if err != nil {
		return nil, err
	}
	if len(b) == 0 {
		return nil, errors.New("failed to parse JSON: empty payload")
	}
	var v any
	if err := json.Unmarshal(b, &v); err != nil {
		return nil, fmt.Errorf("failed to parse JSON: %w", err)
	}
	return v, nil
}

// Unmarshal parses the payload as JSON into v. Parse failures are wrapped
// in a higher-level object error.
func (d *Data) Unmarshal(ctx context.Context, v any) error {
	b, err := d.materialize(ctx)
	if err != nil {
		return err
	}
	if len(b) == 0 {
		return errors.New("failed to parse object: empty payload")
	}
	if err := json.Unmarshal(b, v); err != nil {
		return fmt.Errorf("failed to parse object: %w", err)
	}
	return nil
}

// Stream returns a pull stream over the payload. On a buffered container
// the bytes are re-chunked: textual content types split on line boundaries
// with a small inter-chunk delay, everything else is one chunk. On a
// container still backed by its original stream the source is handed out
// directly and may be consumed only once.
func (d *Data) Stream() Source {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.err != nil {
		err := d.err
		return SourceFunc(func(context.Context) ([]byte, error) { return nil, err })
	}
	if d.buffered {
		return newChunker(d.contentType, d.buf)
	}
	if d.consumed {
		return SourceFunc(func(context.Context) ([]byte, error) { return nil, ErrConsumed })
	}
	src := d.src
	d.src = nil
	d.consumed = true
	return src
}
