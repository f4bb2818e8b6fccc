// Package subtitle defines decoded cue records and the decoder contract shared
// by all supported subtitle formats.
package subtitle

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/multierr"
	"golang.org/x/text/language"

	"ttsub/packet"
	"ttsub/style"
	"ttsub/timing"
)

// ErrMalformed is reported when packet payload cannot be interpreted at all.
// Such packet produces no cues, decoder state stays usable.
var ErrMalformed = errors.New("malformed document")

// Run is a piece of cue text sharing the same resolved style. Break runs
// carry no text and stand for forced line break.
type Run struct {
	Text  string
	Style style.Style
	Break bool
}

// MergeRuns joins adjacent text runs with identical looking styles and drops
// empty ones.
func MergeRuns(runs []Run) []Run {
	out := make([]Run, 0, len(runs))
	for _, r := range runs {
		if !r.Break && r.Text == "" {
			continue
		}
		if n := len(out); n > 0 && !r.Break && !out[n-1].Break && out[n-1].Style.SameLook(r.Style) {
			out[n-1].Text += r.Text
			continue
		}
		out = append(out, r)
	}
	return out
}

// PlainText renders runs without styling, breaks become new lines.
func PlainText(runs []Run) string {
	var b strings.Builder
	for _, r := range runs {
		if r.Break {
			b.WriteByte('\n')
			continue
		}
		b.WriteString(r.Text)
	}
	return b.String()
}

// Cue is a single styled subtitle event ready for rendering or re-muxing.
type Cue struct {
	ReadOrder int64
	Start     timing.Ticks
	Duration  timing.Ticks // timing.Unbounded when end is not determined
	Layer     int
	Style     style.Style
	Region    style.Region // zero value - full frame default placement
	Lang      language.Tag
	Text      string // formatted text with override markers
	Runs      []Run
}

// End returns end of cue, timing.Unbounded for open ended cues.
func (c Cue) End() timing.Ticks {
	return timing.Add(c.Start, c.Duration)
}

// Window returns cue active interval.
func (c Cue) Window() timing.Window {
	return timing.Window{Begin: c.Start, End: c.End()}
}

// Diagnostic is a recoverable problem found while decoding.
type Diagnostic struct {
	Where string // node path or field name
	Err   error
}

func (d Diagnostic) Error() string {
	if d.Where == "" {
		return d.Err.Error()
	}
	return fmt.Sprintf("%s: %v", d.Where, d.Err)
}

func (d Diagnostic) Unwrap() error {
	return d.Err
}

// Result carries everything decoded from one packet: possibly empty list of
// cues and possibly empty list of diagnostics.
type Result struct {
	Cues        []Cue
	Diagnostics []Diagnostic
}

// Report records diagnostic.
func (r *Result) Report(where string, err error) {
	if err == nil {
		return
	}
	r.Diagnostics = append(r.Diagnostics, Diagnostic{Where: where, Err: err})
}

// Err combines all diagnostics into single error, nil if there were none.
func (r *Result) Err() error {
	var err error
	for _, d := range r.Diagnostics {
		err = multierr.Append(err, d)
	}
	return err
}

// Decoder turns packets of a single elementary stream into cues. Decoders are
// not safe for concurrent use, each stream needs its own instance.
type Decoder interface {
	// LoadHeader consumes stream level metadata (extradata) exposed by
	// demuxer before the first packet.
	LoadHeader(data []byte) error
	// Decode interprets single packet. Returned error is reserved for
	// protocol misuse and context cancellation, everything recoverable goes
	// into Result diagnostics.
	Decode(ctx context.Context, pkt packet.Packet) (*Result, error)
	// Flush drops per-packet state, keeps style and region tables.
	Flush()
	// Reset drops all state including tables.
	Reset()
}
