package llm

import (
	"bytes"
	"errors"
	"io"
	"strings"

	"github.com/richardiffusion/mrga/domain/chat"
)

const defaultReadSize = 4096

// FrameBuffer splits an arbitrarily chunked byte stream into frame
// payloads. It holds at most one incomplete trailing line, kept as bytes
// so multi-byte characters split across reads survive.
type FrameBuffer struct {
	prefix  string
	pending []byte
}

func NewFrameBuffer(prefix string) *FrameBuffer {
	return &FrameBuffer{prefix: prefix}
}

// Feed appends chunk and returns the payloads of every line it completed,
// in order. Lines without the prefix are skipped.
func (b *FrameBuffer) Feed(chunk []byte) []string {
	b.pending = append(b.pending, chunk...)

	var frames []string
	consumed := 0
	for {
		i := bytes.IndexByte(b.pending[consumed:], '\n')
		if i < 0 {
			break
		}
		if payload, ok := b.payload(b.pending[consumed : consumed+i]); ok {
			frames = append(frames, payload)
		}
		consumed += i + 1
	}
	if consumed > 0 {
		b.pending = append(b.pending[:0], b.pending[consumed:]...)
	}
	return frames
}

// Flush treats whatever is buffered as a final line. Used at end of input.
func (b *FrameBuffer) Flush() []string {
	if len(b.pending) == 0 {
		return nil
	}
	line := b.pending
	b.pending = nil
	if payload, ok := b.payload(line); ok {
		return []string{payload}
	}
	return nil
}

// Pending returns the number of buffered bytes.
func (b *FrameBuffer) Pending() int {
	return len(b.pending)
}

func (b *FrameBuffer) payload(line []byte) (string, bool) {
	text := strings.TrimSpace(string(line))
	if !strings.HasPrefix(text, b.prefix) {
		return "", false
	}
	return strings.TrimSpace(text[len(b.prefix):]), true
}

// ReadError wraps a failure reading the upstream body, so callers can tell
// it apart from an error returned by their own handler.
type ReadError struct {
	Err error
}

func (e *ReadError) Error() string {
	return "stream read: " + e.Err.Error()
}

func (e *ReadError) Unwrap() error {
	return e.Err
}

// IsReadError reports whether err came from reading the body.
func IsReadError(err error) bool {
	var readErr *ReadError
	return errors.As(err, &readErr)
}

// StreamDecoder turns an upstream event-stream body into StreamEvents.
type StreamDecoder struct {
	prefix   string
	readSize int
}

func NewStreamDecoder() *StreamDecoder {
	return &StreamDecoder{prefix: EventPrefix, readSize: defaultReadSize}
}

// WithReadSize changes the read size; tests use tiny sizes to force splits.
func (d *StreamDecoder) WithReadSize(n int) *StreamDecoder {
	if n > 0 {
		d.readSize = n
	}
	return d
}

// Decode reads body until a terminal event, end of input, or an error.
// Events go to emit in arrival order and nothing follows a terminal one.
// A clean end of input without the sentinel still emits Done. A failure
// reading body is returned as *ReadError with nothing further emitted; an
// error from emit is returned as is and stops decoding.
func (d *StreamDecoder) Decode(body io.Reader, parse chat.FrameParser, emit chat.StreamHandler[chat.StreamEvent]) error {
	buf := NewFrameBuffer(d.prefix)
	chunk := make([]byte, d.readSize)

	for {
		n, err := body.Read(chunk)
		if n > 0 {
			finished, emitErr := dispatch(buf.Feed(chunk[:n]), parse, emit)
			if emitErr != nil || finished {
				return emitErr
			}
		}
		if errors.Is(err, io.EOF) {
			finished, emitErr := dispatch(buf.Flush(), parse, emit)
			if emitErr != nil || finished {
				return emitErr
			}
			return emit(chat.DoneEvent())
		}
		if err != nil {
			return &ReadError{Err: err}
		}
	}
}

func dispatch(frames []string, parse chat.FrameParser, emit chat.StreamHandler[chat.StreamEvent]) (bool, error) {
	for _, payload := range frames {
		event, ok := parse(payload)
		if !ok {
			continue
		}
		if err := emit(event); err != nil {
			return true, err
		}
		if event.IsTerminal() {
			return true, nil
		}
	}
	return false, nil
}
