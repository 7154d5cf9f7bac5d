// Package sse decodes the backend's line-oriented event stream into message
// envelopes. The transport may deliver chunks split at arbitrary byte
// boundaries, so the decoder buffers until a complete logical line exists and
// never force-parses incomplete input.
//
// Framing follows the event-stream convention: "data:" lines accumulate into
// a block, a blank line flushes the block, "event:"/"id:"/comment lines are
// ignored, and a literal [DONE] payload ends the stream. Bare JSON lines
// outside that framing (the backend's older line-delimited mode) are parsed
// standalone.
package sse

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"strings"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"chatwidget/internal/envelope"
)

const doneSentinel = "[DONE]"

// EmitFunc receives each normalized envelope as it completes.
type EmitFunc func(*envelope.Envelope)

// Decoder is an incremental stream decoder. Feed it raw chunks in arrival
// order and Close it when the transport completes; envelopes are emitted in
// order through the callback. Malformed frames are dropped, never surfaced.
type Decoder struct {
	emit     EmitFunc
	buf      []byte
	pending  []string
	failed   int // pending lines present at the last failed mid-stream flush
	finished bool
}

// NewDecoder creates a decoder that emits through fn.
func NewDecoder(fn EmitFunc) *Decoder {
	return &Decoder{emit: fn}
}

// Finished reports whether the end-of-stream sentinel was seen.
func (d *Decoder) Finished() bool {
	return d.finished
}

// Feed appends one transport chunk and processes every complete line in the
// buffer. A trailing fragment without a line separator stays buffered.
func (d *Decoder) Feed(chunk []byte) {
	if d.finished {
		return
	}
	d.buf = append(d.buf, chunk...)

	for {
		i := bytes.IndexByte(d.buf, '\n')
		if i < 0 {
			return
		}
		line := strings.TrimSuffix(string(d.buf[:i]), "\r")
		d.buf = d.buf[i+1:]

		d.handleLine(line, false)
		if d.finished {
			return
		}
	}
}

// Close signals transport completion: one final best-effort parse of any
// buffered remainder, after which unparseable leftovers are dropped.
func (d *Decoder) Close() {
	if d.finished {
		return
	}
	if len(d.buf) > 0 {
		line := strings.TrimSuffix(string(d.buf), "\r")
		d.buf = nil
		d.handleLine(line, true)
	}
	d.flush(true)
	d.finished = true
}

func (d *Decoder) handleLine(line string, atEnd bool) {
	switch {
	case line == "":
		d.flush(atEnd)

	case strings.HasPrefix(line, "data:"):
		payload := strings.TrimPrefix(line[len("data:"):], " ")
		if payload == doneSentinel {
			d.flush(true)
			d.finished = true
			return
		}
		d.pending = append(d.pending, payload)

	case strings.HasPrefix(line, "event:"),
		strings.HasPrefix(line, "id:"),
		strings.HasPrefix(line, ":"):
		// Event names, ids and comments carry no payload for us.

	default:
		var v any
		if err := json.Unmarshal([]byte(line), &v); err != nil {
			log.Debug().Str("line", line).Msg("unparseable stream line dropped")
			return
		}
		d.dispatch(v)
	}
}

// flush joins the pending data block and parses it. A block that does not
// parse mid-stream is kept: it may be completed by further data lines. When
// the joined block fails again after new lines arrived, the new lines are
// tried alone; if they parse, the stale prefix was a malformed frame and is
// dropped so one bad frame cannot poison the rest of the stream. At
// definitive stream end unparseable leftovers are logged and dropped.
func (d *Decoder) flush(atEnd bool) {
	if len(d.pending) == 0 {
		return
	}
	joined := strings.Join(d.pending, "\n")

	var v any
	if err := json.Unmarshal([]byte(joined), &v); err == nil {
		d.pending = nil
		d.failed = 0
		d.dispatch(v)
		return
	}

	if d.failed > 0 && d.failed < len(d.pending) {
		tail := strings.Join(d.pending[d.failed:], "\n")
		var tv any
		if err := json.Unmarshal([]byte(tail), &tv); err == nil {
			log.Debug().Int("lines", d.failed).Msg("malformed data frame dropped")
			d.pending = nil
			d.failed = 0
			d.dispatch(tv)
			return
		}
	}

	if atEnd {
		log.Warn().Int("bytes", len(joined)).Msg("unparseable data block dropped at stream end")
		d.pending = nil
		d.failed = 0
		return
	}
	d.failed = len(d.pending)
}

func (d *Decoder) dispatch(v any) {
	if env := envelope.Normalize(v); env != nil {
		d.emit(env)
	}
}

// DecodeBody drives a decoder from an incremental reader until EOF, the done
// sentinel, or ctx cancellation. Cancellation stops consumption without an
// error; a transport read failure is returned.
func DecodeBody(ctx context.Context, r io.Reader, fn EmitFunc) error {
	d := NewDecoder(fn)
	buf := make([]byte, 4096)

	for {
		if ctx.Err() != nil {
			return nil
		}
		n, err := r.Read(buf)
		if n > 0 {
			d.Feed(buf[:n])
		}
		if d.Finished() {
			return nil
		}
		if err == io.EOF {
			d.Close()
			return nil
		}
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return errors.Wrap(err, "read stream")
		}
	}
}

// DecodeFull handles the non-streaming fallback: the whole body is a single
// JSON value treated as one complete envelope.
func DecodeFull(body []byte, fn EmitFunc) {
	var v any
	if err := json.Unmarshal(body, &v); err != nil {
		log.Warn().Err(err).Msg("non-streaming body unparseable")
		return
	}
	if env := envelope.Normalize(v); env != nil {
		fn(env)
	}
}
