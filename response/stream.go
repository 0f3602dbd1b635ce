package response

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/agentd-io/agentd/data"
	"github.com/agentd-io/agentd/domain"
)

// Source is a pull stream of arbitrary items fed into Stream. Next
// returns io.EOF when exhausted.
type Source interface {
	Next(ctx context.Context) (any, error)
}

// SourceFunc adapts a function to the Source interface.
type SourceFunc func(ctx context.Context) (any, error)

// Next implements Source.
func (f SourceFunc) Next(ctx context.Context) (any, error) { return f(ctx) }

// FromChannel adapts a channel to a Source. A closed channel ends the
// stream.
func FromChannel(ch <-chan any) Source {
	return SourceFunc(func(ctx context.Context) (any, error) {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case item, ok := <-ch:
			if !ok {
				return nil, io.EOF
			}
			return item, nil
		}
	})
}

// FromSlice adapts a fixed set of items to a Source.
func FromSlice(items ...any) Source {
	idx := 0
	return SourceFunc(func(ctx context.Context) (any, error) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if idx >= len(items) {
			return nil, io.EOF
		}
		item := items[idx]
		idx++
		return item, nil
	})
}

// Transform maps or filters one stream item. Returning (nil, nil) skips
// the item; an error surfaces on the output stream when the consumer
// drains the affected chunk.
type Transform func(item any) (any, error)

type streamOptions struct {
	contentType string
	metadata    []map[string]any
	transform   Transform
}

// StreamOption configures Stream.
type StreamOption func(*streamOptions)

// WithContentType overrides the inferred content type.
func WithContentType(contentType string) StreamOption {
	return func(o *streamOptions) { o.contentType = contentType }
}

// WithMetadata attaches metadata to the streamed response.
func WithMetadata(md map[string]any) StreamOption {
	return func(o *streamOptions) { o.metadata = []map[string]any{md} }
}

// WithTransform applies a map/filter step to every item.
func WithTransform(t Transform) StreamOption {
	return func(o *streamOptions) { o.transform = t }
}

// isRaw reports whether an item is a ReadableDataType: a raw payload
// representation that bypasses JSON encoding.
func isRaw(item any) bool {
	switch item.(type) {
	case string, []byte, json.RawMessage:
		return true
	}
	return false
}

// encodeRaw converts a raw item to bytes as-is.
func encodeRaw(item any) ([]byte, error) {
	switch v := item.(type) {
	case string:
		return []byte(v), nil
	case json.RawMessage:
		return []byte(v), nil
	case []byte:
		return v, nil
	}
	return nil, fmt.Errorf("unexpected raw item type %T", item)
}

// encodeStructured serializes an item to JSON with a trailing newline
// (newline-delimited JSON framing).
func encodeStructured(item any) ([]byte, error) {
	b, err := json.Marshal(item)
	if err != nil {
		return nil, fmt.Errorf("failed to encode stream item: %w", err)
	}
	return append(b, '\n'), nil
}

// Stream converts a source of arbitrary items into a stream-backed
// response. The first non-skipped item is pulled eagerly to classify the
// stream: raw items keep their bytes and default to
// application/octet-stream, anything else is serialized as
// newline-delimited JSON and defaults to application/json. Remaining
// items are pulled lazily; source and transform errors surface when the
// caller drains the affected chunk.
func Stream(ctx context.Context, src Source, opts ...StreamOption) (*Result, error) {
	var o streamOptions
	for _, opt := range opts {
		opt(&o)
	}
	md, err := validateMetadata(o.metadata)
	if err != nil {
		return nil, err
	}

	// Pull the first item, skipping transformed-away values, so the
	// stream can be classified before any consumer attaches.
	var first any
	empty := false
	for {
		item, err := src.Next(ctx)
		if err == io.EOF {
			empty = true
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read stream: %w", err)
		}
		if o.transform != nil {
			item, err = o.transform(item)
			if err != nil {
				return nil, fmt.Errorf("stream transform failed: %w", err)
			}
			if item == nil {
				continue
			}
		}
		first = item
		break
	}

	if empty {
		contentType := o.contentType
		if contentType == "" {
			// No item was available to classify.
			contentType = "application/octet-stream"
		}
		return &Result{
			Kind:     domain.ResultData,
			Data:     data.NewBytes(contentType, nil),
			Metadata: md,
		}, nil
	}

	raw := isRaw(first)
	encode := encodeStructured
	if raw {
		encode = encodeRaw
	}
	contentType := o.contentType
	if contentType == "" {
		if raw {
			contentType = "application/octet-stream"
		} else {
			contentType = "application/json"
		}
	}

	firstChunk, err := encode(first)
	if err != nil {
		return nil, err
	}

	p := &pipeline{src: src, transform: o.transform, encode: encode, first: firstChunk}
	return &Result{
		Kind:     domain.ResultData,
		Data:     data.NewStream(contentType, p),
		Metadata: md,
	}, nil
}

// pipeline is the output stream built by Stream: it replays the eagerly
// classified first chunk, then keeps pulling, transforming and encoding
// the remaining items in source order.
type pipeline struct {
	src       Source
	transform Transform
	encode    func(any) ([]byte, error)
	first     []byte
	sentFirst bool
}

// Next implements data.Source.
func (p *pipeline) Next(ctx context.Context) ([]byte, error) {
	if !p.sentFirst {
		p.sentFirst = true
		return p.first, nil
	}
	for {
		item, err := p.src.Next(ctx)
		if err == io.EOF {
			return nil, io.EOF
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read stream: %w", err)
		}
		if p.transform != nil {
			item, err = p.transform(item)
			if err != nil {
				return nil, fmt.Errorf("stream transform failed: %w", err)
			}
			if item == nil {
				continue
			}
		}
		return p.encode(item)
	}
}
