// Package demux splits subtitle streams into timestamped packets.
package demux

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/beevik/etree"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/net/html/charset"

	"ttsub/ass"
	"ttsub/packet"
	"ttsub/subtitle"
	"ttsub/timing"
)

// ErrUnknownFormat is returned when stream format could not be detected.
var ErrUnknownFormat = errors.New("unknown subtitle format")

// Limits defaults.
const (
	DefaultMaxLineBytes     = 1 << 20
	DefaultMaxHeaderBytes   = 4 << 20
	DefaultMaxDocumentBytes = 64 << 20
)

type options struct {
	format           Format
	charset          string
	maxLineBytes     int
	maxHeaderBytes   int
	maxDocumentBytes int
	queue            []packet.Option
}

// Option configures Demuxer.
type Option func(*options)

// WithFormat skips probing.
func WithFormat(f Format) Option {
	return func(o *options) {
		o.format = f
	}
}

// WithCharset sets IANA name of the character set used by streams without
// byte order mark.
func WithCharset(name string) Option {
	return func(o *options) {
		o.charset = name
	}
}

// WithMaxLineBytes limits length of a single line.
func WithMaxLineBytes(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.maxLineBytes = n
		}
	}
}

// WithMaxHeaderBytes limits accumulated header size.
func WithMaxHeaderBytes(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.maxHeaderBytes = n
		}
	}
}

// WithMaxDocumentBytes limits size of markup documents.
func WithMaxDocumentBytes(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.maxDocumentBytes = n
		}
	}
}

// WithQueueOptions passes options to underlying packet queue.
func WithQueueOptions(opts ...packet.Option) Option {
	return func(o *options) {
		o.queue = append(o.queue, opts...)
	}
}

// Demuxer holds all packets of a single subtitle stream. It reads the whole
// stream on Open, afterwards packets are served from the queue.
type Demuxer struct {
	log     *zap.Logger
	id      uuid.UUID
	format  Format
	rate    int64
	header  []byte
	queue   *packet.Queue
	dropped int
}

// Open reads stream from r. Reading may be interrupted with ctx between lines
// (or before document is parsed), in that case nothing is kept.
func Open(ctx context.Context, r io.Reader, log *zap.Logger, opts ...Option) (*Demuxer, error) {
	o := options{
		maxLineBytes:     DefaultMaxLineBytes,
		maxHeaderBytes:   DefaultMaxHeaderBytes,
		maxDocumentBytes: DefaultMaxDocumentBytes,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if log == nil {
		log = zap.NewNop()
	}

	fallback, err := charsetDecoder(o.charset)
	if err != nil {
		return nil, err
	}

	raw := bufio.NewReader(r)
	bom, _ := raw.Peek(4)
	enc := detectUTF(bom)
	text := bufio.NewReaderSize(selectReader(raw, enc, fallback), ProbeSize)

	format, score := o.format, ProbeScoreMax
	if format == FormatUnknown {
		head, err := text.Peek(ProbeSize)
		if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, bufio.ErrBufferFull) {
			return nil, fmt.Errorf("unable to read stream: %w", err)
		}
		format, score = Probe(head)
	}

	d := &Demuxer{
		id:     uuid.New(),
		format: format,
		queue:  packet.NewQueue(o.queue...),
	}
	d.log = log.Named("demux").With(zap.Stringer("stream", d.id), zap.Stringer("format", format))
	d.log.Debug("Opening stream", zap.Int("score", score), zap.Stringer("bom", enc), zap.String("charset", o.charset))

	switch format {
	case FormatASS:
		d.rate = timing.ASSRate
		err = d.readLines(ctx, text, &o)
	case FormatTTML:
		d.rate = timing.DefaultRate
		err = d.readDocument(ctx, text, &o, enc != encUnknown || fallback != nil)
	default:
		return nil, ErrUnknownFormat
	}
	if err != nil {
		return nil, err
	}

	if d.dropped, err = d.queue.Finalize(); err != nil {
		return nil, err
	}
	d.log.Debug("Stream opened", zap.Int("packets", d.queue.Len()), zap.Int("duplicates", d.dropped), zap.Int("header", len(d.header)))
	return d, nil
}

// scanLines splits on LF, CRLF and lone CR keeping terminators.
func scanLines(data []byte, atEOF bool) (int, []byte, error) {
	if atEOF && len(data) == 0 {
		return 0, nil, nil
	}
	if i := bytes.IndexAny(data, "\r\n"); i >= 0 {
		if data[i] == '\n' {
			return i + 1, data[:i+1], nil
		}
		if i+1 < len(data) {
			if data[i+1] == '\n' {
				return i + 2, data[:i+2], nil
			}
			return i + 1, data[:i+1], nil
		}
		if atEOF {
			return i + 1, data[:i+1], nil
		}
		// CR at the end of buffer, wait to see if LF follows
		return 0, nil, nil
	}
	if atEOF {
		return len(data), data, nil
	}
	return 0, nil, nil
}

func (d *Demuxer) readLines(ctx context.Context, r io.Reader, o *options) error {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, min(4096, o.maxLineBytes)), o.maxLineBytes)
	sc.Split(scanLines)

	var (
		header    bytes.Buffer
		pos       int64
		readOrder int64
	)
	for sc.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}
		line := sc.Bytes()
		lineStart := pos
		pos += int64(len(line))

		dlg, ok := ass.ParseDialogue(string(bytes.TrimRight(line, "\r\n")))
		if !ok {
			if header.Len()+len(line) > o.maxHeaderBytes {
				return fmt.Errorf("header is larger than %d bytes: %w", o.maxHeaderBytes, packet.ErrResourceExhausted)
			}
			header.Write(line)
			continue
		}

		dur := int64(dlg.Duration())
		if dur < 0 {
			d.log.Warn("Dialogue ends before it starts, duration is unknown", zap.Int64("pos", lineStart))
		}
		if _, err := d.queue.Insert(lineStart, int64(dlg.Start), dur, dlg.Payload(readOrder)); err != nil {
			return fmt.Errorf("unable to queue dialogue at %d: %w", lineStart, err)
		}
		readOrder++
	}
	if err := sc.Err(); err != nil {
		if errors.Is(err, bufio.ErrTooLong) {
			return fmt.Errorf("line at %d is longer than %d bytes: %w", pos, o.maxLineBytes, packet.ErrResourceExhausted)
		}
		return fmt.Errorf("unable to read stream: %w", err)
	}
	d.header = header.Bytes()
	return nil
}

const xmlDeclaration = `<?xml version="1.0" encoding="UTF-8"?>` + "\n"

func serialize(el *etree.Element) ([]byte, error) {
	doc := etree.NewDocument()
	doc.SetRoot(el)
	data, err := doc.WriteToBytes()
	if err != nil {
		return nil, err
	}
	return append([]byte(xmlDeclaration), data...), nil
}

// readDocument makes single packet of the whole markup document. Header is
// the root element with its head only. Both are re-encoded to UTF-8.
func (d *Demuxer) readDocument(ctx context.Context, r io.Reader, o *options, decoded bool) error {
	data, err := io.ReadAll(io.LimitReader(r, int64(o.maxDocumentBytes)+1))
	if err != nil {
		return fmt.Errorf("unable to read document: %w", err)
	}
	if len(data) > o.maxDocumentBytes {
		return fmt.Errorf("document is larger than %d bytes: %w", o.maxDocumentBytes, packet.ErrResourceExhausted)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	doc := etree.NewDocument()
	doc.ReadSettings = etree.ReadSettings{
		CharsetReader: charset.NewReaderLabel,
		Permissive:    true,
	}
	if decoded {
		// text is UTF-8 already whatever declaration says
		doc.ReadSettings.CharsetReader = func(_ string, input io.Reader) (io.Reader, error) {
			return input, nil
		}
	}
	if err := doc.ReadFromBytes(data); err != nil {
		return fmt.Errorf("%w: %w", subtitle.ErrMalformed, err)
	}
	root := doc.Root()
	if root == nil || root.Tag != "tt" {
		return fmt.Errorf("%w: no tt root element", subtitle.ErrMalformed)
	}

	hdr := root.Copy()
	for _, c := range hdr.ChildElements() {
		if c.Tag != "head" {
			hdr.RemoveChild(c)
		}
	}
	if d.header, err = serialize(hdr); err != nil {
		return fmt.Errorf("unable to build header: %w", err)
	}

	payload, err := serialize(root.Copy())
	if err != nil {
		return fmt.Errorf("unable to re-encode document: %w", err)
	}
	if _, err := d.queue.Insert(0, 0, packet.NoDuration, payload); err != nil {
		return err
	}
	return nil
}

// ID identifies stream in logs.
func (d *Demuxer) ID() uuid.UUID {
	return d.id
}

func (d *Demuxer) Format() Format {
	return d.format
}

// Rate returns packet time base in ticks per second.
func (d *Demuxer) Rate() int64 {
	return d.rate
}

// Header returns stream level metadata: non dialogue lines verbatim for line
// based streams, root and head of the document for markup.
func (d *Demuxer) Header() []byte {
	return d.header
}

// Len returns number of packets.
func (d *Demuxer) Len() int {
	return d.queue.Len()
}

// Dropped returns number of collapsed duplicate packets.
func (d *Demuxer) Dropped() int {
	return d.dropped
}

// ReadPacket returns next packet, io.EOF at the end of stream.
func (d *Demuxer) ReadPacket(ctx context.Context) (packet.Packet, error) {
	if err := ctx.Err(); err != nil {
		return packet.Packet{}, err
	}
	return d.queue.ReadNext()
}

// Seek positions stream at the first packet with timestamp >= ts (in stream
// time base).
func (d *Demuxer) Seek(ts int64) error {
	return d.queue.Seek(ts)
}
