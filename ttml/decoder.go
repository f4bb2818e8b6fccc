// Package ttml decodes TTML (Timed Text Markup Language) documents into
// styled cues.
package ttml

import (
	"context"
	"fmt"

	"github.com/beevik/etree"
	"go.uber.org/zap"
	"golang.org/x/net/html/charset"

	"ttsub/packet"
	"ttsub/style"
	"ttsub/subtitle"
	"ttsub/timing"
)

// Option configures Decoder.
type Option func(*Decoder)

// WithRate sets tick base of produced cues, timing.DefaultRate otherwise.
func WithRate(rate int64) Option {
	return func(d *Decoder) {
		if rate > 0 {
			d.initial.clock.Rate = rate
		}
	}
}

// WithPacketRate sets tick base of packet timestamps, by default it is the
// same as cue tick base.
func WithPacketRate(rate int64) Option {
	return func(d *Decoder) {
		d.packetRate = rate
	}
}

// WithFrameRate sets frame rate used when documents do not specify one.
func WithFrameRate(rate int64) Option {
	return func(d *Decoder) {
		if rate > 0 {
			d.initial.clock.FrameRate = rate
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

// Decoder is a decoding context of a single TTML stream. It owns style and
// region tables filled from stream header and from heads of decoded
// documents. Not safe for concurrent use.
type Decoder struct {
	log            *zap.Logger
	styles         *style.Table
	regions        *style.Regions
	initial        params // as configured
	header         params // after stream header
	current        params // after last decoded document
	packetRate     int64
	readOrder      int64
	resetReadOrder bool
}

// NewDecoder creates decoder with empty tables.
func NewDecoder(log *zap.Logger, opts ...Option) *Decoder {
	if log == nil {
		log = zap.NewNop()
	}
	d := &Decoder{
		log:     log.Named("ttml"),
		styles:  style.NewTable(style.DefaultMaxDepth),
		regions: style.NewRegions(),
		initial: params{clock: timing.NewClock(timing.DefaultRate), cellRows: defaultCellRows},
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.packetRate <= 0 {
		d.packetRate = d.initial.clock.Rate
	}
	d.header, d.current = d.initial, d.initial
	return d
}

func readDocument(data []byte) (*etree.Element, error) {
	doc := etree.NewDocument()
	doc.ReadSettings = etree.ReadSettings{
		CharsetReader: charset.NewReaderLabel,
		Permissive:    true,
	}
	if err := doc.ReadFromBytes(data); err != nil {
		return nil, fmt.Errorf("%w: %w", subtitle.ErrMalformed, err)
	}
	root := doc.Root()
	if root == nil || root.Tag != "tt" {
		return nil, fmt.Errorf("%w: no tt root element", subtitle.ErrMalformed)
	}
	return root, nil
}

// LoadHeader reads stream level document: parameters of the root element and
// styles and regions of its head. Problems with individual definitions are
// logged, unparseable header is an error and leaves decoder untouched.
func (d *Decoder) LoadHeader(data []byte) error {
	if len(data) == 0 {
		return nil
	}
	root, err := readDocument(data)
	if err != nil {
		return fmt.Errorf("unable to read header: %w", err)
	}
	res := &subtitle.Result{}
	d.header = readParams(root, d.initial, res)
	d.current = d.header
	if head := child(root, "head"); head != nil {
		d.loadHead(head, d.header, res)
	}
	if err := res.Err(); err != nil {
		d.log.Warn("Problems in stream header", zap.Error(err))
	}
	return nil
}

// Rate returns tick base of produced cues.
func (d *Decoder) Rate() int64 {
	return d.initial.clock.Rate
}

// Styles returns resolved styles in definition order.
func (d *Decoder) Styles() []style.Style {
	return d.styles.Styles()
}

// Regions returns defined regions.
func (d *Decoder) Regions() []style.Region {
	return d.regions.All()
}

func (d *Decoder) nextReadOrder() int64 {
	d.readOrder++
	return d.readOrder
}

// packetWindow converts packet timing into cue tick base.
func (d *Decoder) packetWindow(pkt packet.Packet) timing.Window {
	w := timing.Forever
	if pkt.HasPTS() {
		w.Begin = timing.Rescale(timing.Ticks(pkt.PTS), d.packetRate, d.current.clock.Rate)
	}
	if pkt.HasDuration() {
		w.End = timing.Add(w.Begin, timing.Rescale(timing.Ticks(pkt.Duration), d.packetRate, d.current.clock.Rate))
	}
	return w
}

// Decode interprets single document. Document which cannot be parsed yields
// no cues and ErrMalformed diagnostic, tables are not touched then.
func (d *Decoder) Decode(ctx context.Context, pkt packet.Packet) (*subtitle.Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	res := &subtitle.Result{}
	root, err := readDocument(pkt.Data)
	if err != nil {
		res.Report(fmt.Sprintf("packet %d", pkt.Seq), err)
		return res, nil
	}

	d.current = readParams(root, d.header, res)
	if head := child(root, "head"); head != nil {
		d.loadHead(head, d.current, res)
	}
	body := child(root, "body")
	if body == nil {
		return res, nil
	}

	w := &walker{
		d:      d,
		params: d.current,
		res:    res,
		em:     &emitter{nextOrder: d.nextReadOrder, res: res},
	}
	// root element carries document wide language and space handling
	top := w.enter(root, rootFrame(d.packetWindow(pkt)))
	if err := w.walk(ctx, body, top); err != nil {
		return nil, err
	}
	d.log.Debug("Packet decoded",
		zap.Int("seq", pkt.Seq), zap.Int("cues", len(res.Cues)), zap.Int("diagnostics", len(res.Diagnostics)))
	return res, nil
}

// Flush forgets parameters of the last document, tables are kept.
func (d *Decoder) Flush() {
	d.current = d.header
}

// Reset forgets everything learned from header and documents.
func (d *Decoder) Reset() {
	d.styles.Reset()
	d.regions.Reset()
	d.header, d.current = d.initial, d.initial
	if d.resetReadOrder {
		d.readOrder = 0
	}
}
