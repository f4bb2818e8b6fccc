package convert

import (
	"context"
	"errors"
	"fmt"
	"io"

	"go.uber.org/zap"

	"ttsub/ass"
	"ttsub/config"
	"ttsub/demux"
	"ttsub/packet"
	"ttsub/style"
	"ttsub/subtitle"
	"ttsub/ttml"
)

// Document is everything decoded from a single subtitle stream.
type Document struct {
	Source      string
	StreamID    string
	Format      demux.Format
	Rate        int64 // cue time base, ticks per second
	Info        ass.ScriptInfo
	Styles      []style.Style
	Regions     []style.Region
	Cues        []subtitle.Cue
	Diagnostics []subtitle.Diagnostic
	Packets     int
}

func demuxOptions(cfg *config.DemuxConfig) ([]demux.Option, error) {
	format, err := demux.ParseFormat(cfg.Format)
	if err != nil {
		return nil, err
	}
	order := packet.OrderTimestamp
	if cfg.Order == config.PacketOrderInsertion {
		order = packet.OrderInsertion
	}
	return []demux.Option{
		demux.WithFormat(format),
		demux.WithCharset(cfg.Charset),
		demux.WithMaxLineBytes(cfg.MaxLineBytes),
		demux.WithMaxHeaderBytes(cfg.MaxHeaderBytes),
		demux.WithMaxDocumentBytes(cfg.MaxDocumentBytes),
		demux.WithQueueOptions(
			packet.WithKeepDuplicates(cfg.KeepDuplicates),
			packet.WithOrder(order),
			packet.WithMaxPackets(cfg.MaxPackets),
		),
	}, nil
}

func newDecoder(dmx *demux.Demuxer, cfg *config.DecodeConfig, log *zap.Logger) (subtitle.Decoder, error) {
	switch dmx.Format() {
	case demux.FormatASS:
		return ass.NewDecoder(log,
			ass.WithRate(cfg.Rate),
			ass.WithMaxDepth(cfg.MaxStyleDepth),
			ass.WithResetReadOrder(cfg.ResetReadOrder),
		), nil
	case demux.FormatTTML:
		return ttml.NewDecoder(log,
			ttml.WithRate(cfg.Rate),
			ttml.WithPacketRate(dmx.Rate()),
			ttml.WithFrameRate(cfg.FrameRate),
			ttml.WithMaxDepth(cfg.MaxStyleDepth),
			ttml.WithResetReadOrder(cfg.ResetReadOrder),
		), nil
	}
	return nil, fmt.Errorf("no decoder for %s streams", dmx.Format())
}

// decodeStream demuxes r and decodes every packet. Recoverable problems are
// collected in Document.Diagnostics unless configuration asks to fail on
// them.
func decodeStream(ctx context.Context, r io.Reader, src string, cfg *config.Config, log *zap.Logger) (*Document, error) {
	opts, err := demuxOptions(&cfg.Demux)
	if err != nil {
		return nil, err
	}
	dmx, err := demux.Open(ctx, r, log, opts...)
	if err != nil {
		return nil, fmt.Errorf("unable to demux stream: %w", err)
	}
	log = log.With(zap.Stringer("stream", dmx.ID()))

	dec, err := newDecoder(dmx, &cfg.Decode, log)
	if err != nil {
		return nil, err
	}
	if err := dec.LoadHeader(dmx.Header()); err != nil {
		return nil, fmt.Errorf("unable to load stream header: %w", err)
	}

	doc := &Document{
		Source:   src,
		StreamID: dmx.ID().String(),
		Format:   dmx.Format(),
		Rate:     cfg.Decode.Rate,
		Info:     ass.DefaultScriptInfo(),
		Packets:  dmx.Len(),
	}

	var failed error
	for {
		pkt, err := dmx.ReadPacket(ctx)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		res, err := dec.Decode(ctx, pkt)
		if err != nil {
			return nil, fmt.Errorf("unable to decode %s: %w", pkt, err)
		}
		for _, d := range res.Diagnostics {
			log.Warn("Decoding problem", zap.Int64("pos", pkt.Pos), zap.Error(d))
		}
		doc.Cues = append(doc.Cues, res.Cues...)
		doc.Diagnostics = append(doc.Diagnostics, res.Diagnostics...)
		if cfg.Decode.FailOnDiagnostic && failed == nil {
			failed = res.Err()
		}
	}
	dec.Flush()
	if failed != nil {
		return nil, fmt.Errorf("stream has decoding problems: %w", failed)
	}

	switch d := dec.(type) {
	case *ass.Decoder:
		doc.Info = d.Info()
		doc.Styles = d.Styles()
	case *ttml.Decoder:
		doc.Styles = d.Styles()
		doc.Regions = d.Regions()
	}
	if s := cfg.Output.Script; s.Title != "" {
		doc.Info.Title = s.Title
	}
	if s := cfg.Output.Script; doc.Format != demux.FormatASS && s.PlayResX > 0 && s.PlayResY > 0 {
		doc.Info.PlayResX, doc.Info.PlayResY = s.PlayResX, s.PlayResY
	}

	log.Debug("Stream decoded", zap.Stringer("format", doc.Format), zap.Int("packets", doc.Packets),
		zap.Int("cues", len(doc.Cues)), zap.Int("diagnostics", len(doc.Diagnostics)))
	return doc, nil
}

// declaredStyles returns styles known to the stream followed by styles used
// by cues but never declared, each name once.
func (doc *Document) declaredStyles() []style.Style {
	out := make([]style.Style, 0, len(doc.Styles))
	seen := make(map[string]style.Style, len(doc.Styles))
	for _, s := range doc.Styles {
		name := ass.StyleName(s.Name)
		if _, ok := seen[name]; !ok {
			seen[name] = s
			out = append(out, s)
		}
	}
	for _, c := range doc.Cues {
		name := ass.StyleName(c.Style.Name)
		if _, ok := seen[name]; !ok {
			seen[name] = c.Style
			out = append(out, c.Style)
		}
	}
	return out
}
