// Package sse decodes server-sent-event payloads from a byte stream.
//
// The decoder is protocol-agnostic: it yields the payload following each
// "data: " prefix, ignores every other line (event names, comments, ids),
// and stops at an optional stream-end sentinel or at connection close.
// Provider packages parse the yielded payloads themselves.
package sse

import (
	"bufio"
	"io"
	"strings"
)

const dataPrefix = "data:"

// Decoder reads SSE payloads from an underlying reader. It buffers at most
// one in-flight line; a Decoder is used for one stream and discarded.
type Decoder struct {
	scanner  *bufio.Scanner
	sentinel string
	done     bool
}

// Option configures a Decoder.
type Option func(*Decoder)

// WithSentinel stops the stream when a payload equals the given sentinel
// (for example "[DONE]" on OpenAI-style streams). The sentinel itself is
// not yielded.
func WithSentinel(sentinel string) Option {
	return func(d *Decoder) {
		d.sentinel = sentinel
	}
}

// NewDecoder creates a Decoder over r.
func NewDecoder(r io.Reader, opts ...Option) *Decoder {
	scanner := bufio.NewScanner(r)
	// Provider payloads can exceed the default 64K token limit when a
	// single chunk carries a large tool-argument fragment.
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	d := &Decoder{scanner: scanner}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Next returns the next event payload. It returns io.EOF once the stream
// is exhausted, either by the sentinel or by the reader ending.
func (d *Decoder) Next() (string, error) {
	if d.done {
		return "", io.EOF
	}

	for d.scanner.Scan() {
		line := d.scanner.Text()
		if !strings.HasPrefix(line, dataPrefix) {
			continue
		}
		payload := strings.TrimSpace(strings.TrimPrefix(line, dataPrefix))
		if payload == "" {
			continue
		}
		if d.sentinel != "" && payload == d.sentinel {
			d.done = true
			return "", io.EOF
		}
		return payload, nil
	}

	d.done = true
	if err := d.scanner.Err(); err != nil {
		return "", err
	}
	return "", io.EOF
}
