package ass

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"ttsub/packet"
	"ttsub/style"
	"ttsub/subtitle"
	"ttsub/timing"
)

// Option configures Decoder.
type Option func(*Decoder)

// WithRate sets output tick base, timing.DefaultRate otherwise.
func WithRate(rate int64) Option {
	return func(d *Decoder) {
		if rate > 0 {
			d.rate = rate
		}
	}
}

// WithMaxDepth limits style inheritance depth.
func WithMaxDepth(depth int) Option {
	return func(d *Decoder) {
		d.styles = style.NewTable(depth)
	}
}

// WithResetReadOrder makes Reset restart read order numbering.
func WithResetReadOrder(reset bool) Option {
	return func(d *Decoder) {
		d.resetReadOrder = reset
	}
}

// Decoder decodes SSA/ASS event packets produced by the line demuxer or
// extracted from containers.
type Decoder struct {
	log            *zap.Logger
	styles         *style.Table
	info           ScriptInfo
	rate           int64
	readOrder      int64
	resetReadOrder bool
}

// NewDecoder creates decoder with empty style table.
func NewDecoder(log *zap.Logger, opts ...Option) *Decoder {
	if log == nil {
		log = zap.NewNop()
	}
	d := &Decoder{
		log:    log.Named("ass"),
		styles: style.NewTable(style.DefaultMaxDepth),
		info:   DefaultScriptInfo(),
		rate:   timing.DefaultRate,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// LoadHeader parses script header and fills style table. Bad style lines are
// logged and skipped.
func (d *Decoder) LoadHeader(data []byte) error {
	info, err := ParseHeader(data, d.styles)
	d.info = info
	if err != nil {
		d.log.Warn("Problems in script header", zap.Error(err))
	}
	d.log.Debug("Header loaded", zap.Int("styles", d.styles.Len()), zap.Int("playresx", info.PlayResX), zap.Int("playresy", info.PlayResY))
	return nil
}

// Info returns script info from the last loaded header.
func (d *Decoder) Info() ScriptInfo {
	return d.info
}

// Styles returns resolved styles in definition order.
func (d *Decoder) Styles() []style.Style {
	return d.styles.Styles()
}

// Decode converts single event packet into cue. Packet times are in
// centiseconds.
func (d *Decoder) Decode(ctx context.Context, pkt packet.Packet) (*subtitle.Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	res := &subtitle.Result{}
	ev, err := ParseEvent(pkt.Data)
	if err != nil {
		res.Report(fmt.Sprintf("packet %d", pkt.Seq), err)
		return res, nil
	}

	base, err := d.styles.Resolve(ev.Style)
	res.Report("style", err)

	start := timing.Ticks(0)
	if pkt.HasPTS() {
		start = timing.Rescale(timing.Ticks(pkt.PTS), timing.ASSRate, d.rate)
	}
	dur := timing.Unbounded
	if pkt.HasDuration() {
		dur = timing.Rescale(timing.Ticks(pkt.Duration), timing.ASSRate, d.rate)
	}

	runs := PlainRuns(base, ev.Text)
	if len(runs) == 0 || strings.TrimSpace(ev.Text) == "" {
		return res, nil
	}

	d.readOrder++
	res.Cues = append(res.Cues, subtitle.Cue{
		ReadOrder: d.readOrder,
		Start:     start,
		Duration:  dur,
		Layer:     ev.Layer,
		Style:     base,
		Text:      ev.Text,
		Runs:      runs,
	})
	return res, nil
}

// Flush has nothing to drop, events are independent.
func (d *Decoder) Flush() {}

// Reset forgets styles and script info.
func (d *Decoder) Reset() {
	d.styles.Reset()
	d.info = DefaultScriptInfo()
	if d.resetReadOrder {
		d.readOrder = 0
	}
}

// FormatEvent renders cue as a script "Dialogue:" line without terminator.
func FormatEvent(c subtitle.Cue, rate int64) string {
	return fmt.Sprintf("Dialogue: %d,%s,%s,%s,,0,0,0,,%s",
		c.Layer,
		timing.FormatASS(c.Start, rate),
		timing.FormatASS(c.End(), rate),
		StyleName(c.Style.Name),
		c.Text)
}
