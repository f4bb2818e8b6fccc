package convert

import (
	"context"
	"errors"
	"strings"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"

	"ttsub/config"
	"ttsub/demux"
	"ttsub/state"
	"ttsub/style"
	"ttsub/timing"
)

const sampleScript = "[Script Info]\n" +
	"Title: sample\n" +
	"PlayResX: 640\n" +
	"PlayResY: 480\n" +
	"\n" +
	"[V4+ Styles]\n" +
	"Format: Name, Fontname, Fontsize, PrimaryColour, BackColour, Bold, Italic, Alignment\n" +
	"Style: Default,Verdana,20,&H00FFFFFF,&H80000000,0,0,2\n" +
	"Style: Sign,Times,32,&H0000FFFF,&H00000000,-1,0,8\n" +
	"\n" +
	"[Events]\n" +
	"Format: Layer, Start, End, Style, Name, MarginL, MarginR, MarginV, Effect, Text\n" +
	"Dialogue: 1,0:00:03.00,0:00:04.00,Sign,,0,0,0,,Second\n" +
	"Dialogue: 0,0:00:01.00,0:00:02.00,Default,,0,0,0,,Hello\\Nworld\n"

const sampleTTML = `<?xml version="1.0" encoding="UTF-8"?>
<tt xmlns="http://www.w3.org/ns/ttml" xmlns:tts="http://www.w3.org/ns/ttml#styling" xml:lang="de">
  <head>
    <styling>
      <style xml:id="s1" tts:fontWeight="bold"/>
    </styling>
    <layout>
      <region xml:id="top" tts:displayAlign="before"/>
    </layout>
  </head>
  <body>
    <div>
      <p begin="00:00:01.000" end="00:00:02.500" style="s1">Hallo <span tts:color="red">rot</span></p>
      <p begin="3s" region="top">offen</p>
    </div>
  </body>
</tt>`

// setupTestEnv creates a test environment with proper context and logger
func setupTestEnv(t *testing.T) (context.Context, *state.LocalEnv) {
	t.Helper()
	logger := zaptest.NewLogger(t, zaptest.WrapOptions(zap.AddCaller(), zap.AddCallerSkip(1)))
	cfg, err := config.LoadConfiguration("")
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	ctx := state.ContextWithEnv(context.Background())
	env := state.EnvFromContext(ctx)
	env.Log = logger
	env.Cfg = cfg
	env.OutputFmt = cfg.Output.Format
	return ctx, env
}

func decodeSample(t *testing.T, data, src string) *Document {
	t.Helper()
	ctx, env := setupTestEnv(t)
	doc, err := decodeStream(ctx, strings.NewReader(data), src, env.Cfg, env.Log)
	if err != nil {
		t.Fatalf("decodeStream() error = %v", err)
	}
	return doc
}

func TestDecodeStream_Script(t *testing.T) {
	doc := decodeSample(t, sampleScript, "show/ep1.ass")

	if doc.Format != demux.FormatASS || doc.Packets != 2 || doc.Rate != 1000 {
		t.Errorf("unexpected document %+v", doc)
	}
	if doc.Info.Title != "sample" || doc.Info.PlayResX != 640 || doc.Info.PlayResY != 480 {
		t.Errorf("script info = %+v", doc.Info)
	}
	if len(doc.Styles) != 2 || doc.Styles[1].Name != "Sign" || !doc.Styles[1].Bold {
		t.Errorf("styles = %v", doc.Styles)
	}
	if len(doc.Cues) != 2 {
		t.Fatalf("expected 2 cues, got %d", len(doc.Cues))
	}
	first := doc.Cues[0]
	if first.Start != 1000 || first.Duration != 1000 || first.Style.FontFamily != "Verdana" {
		t.Errorf("first cue = %+v", first)
	}
	if doc.Cues[1].Layer != 1 || doc.Cues[1].Style.Alignment != 8 {
		t.Errorf("second cue = %+v", doc.Cues[1])
	}
	if len(doc.Diagnostics) != 0 {
		t.Errorf("unexpected diagnostics %v", doc.Diagnostics)
	}
}

func TestDecodeStream_Document(t *testing.T) {
	doc := decodeSample(t, sampleTTML, "movie.ttml")

	if doc.Format != demux.FormatTTML || doc.Packets != 1 {
		t.Errorf("unexpected document format %s packets %d", doc.Format, doc.Packets)
	}
	// not a script, canvas comes from configuration
	if doc.Info.PlayResX != 384 || doc.Info.PlayResY != 288 {
		t.Errorf("script info = %+v", doc.Info)
	}
	if len(doc.Regions) != 1 || doc.Regions[0].Name != "top" {
		t.Errorf("regions = %+v", doc.Regions)
	}
	if len(doc.Cues) != 2 {
		t.Fatalf("expected 2 cues, got %d: %+v", len(doc.Cues), doc.Cues)
	}
	if c := doc.Cues[0]; c.Start != 1000 || c.Duration != 1500 || !c.Style.Bold {
		t.Errorf("first cue = %+v", c)
	}
	if c := doc.Cues[1]; c.Duration != timing.Unbounded || c.Region.Name != "top" {
		t.Errorf("second cue = %+v", c)
	}
	if got := firstLang(doc); got != "de" {
		t.Errorf("firstLang() = %q", got)
	}
}

func TestDecodeStream_Diagnostics(t *testing.T) {
	script := strings.Replace(sampleScript, "Sign,,0,0,0,,Second", "Nope,,0,0,0,,Second", 1)

	ctx, env := setupTestEnv(t)
	doc, err := decodeStream(ctx, strings.NewReader(script), "x.ass", env.Cfg, env.Log)
	if err != nil {
		t.Fatalf("decodeStream() error = %v", err)
	}
	if len(doc.Diagnostics) != 1 || !errors.Is(doc.Diagnostics[0], style.ErrUnknownStyle) {
		t.Errorf("diagnostics = %v", doc.Diagnostics)
	}
	if len(doc.Cues) != 2 {
		t.Errorf("cue with unknown style must still be produced, got %d cues", len(doc.Cues))
	}

	env.Cfg.Decode.FailOnDiagnostic = true
	if _, err := decodeStream(ctx, strings.NewReader(script), "x.ass", env.Cfg, env.Log); !errors.Is(err, style.ErrUnknownStyle) {
		t.Errorf("decodeStream() with fail on diagnostic error = %v", err)
	}
}

func TestDecodeStream_Overrides(t *testing.T) {
	ctx, env := setupTestEnv(t)
	env.Cfg.Output.Script.Title = "Forced"
	env.Cfg.Output.Script.PlayResX, env.Cfg.Output.Script.PlayResY = 1920, 1080

	doc, err := decodeStream(ctx, strings.NewReader(sampleTTML), "a.ttml", env.Cfg, env.Log)
	if err != nil {
		t.Fatal(err)
	}
	if doc.Info.Title != "Forced" || doc.Info.PlayResX != 1920 {
		t.Errorf("script overrides not applied: %+v", doc.Info)
	}

	doc, err = decodeStream(ctx, strings.NewReader(sampleScript), "a.ass", env.Cfg, env.Log)
	if err != nil {
		t.Fatal(err)
	}
	if doc.Info.Title != "Forced" || doc.Info.PlayResX != 640 {
		t.Errorf("script canvas must be kept: %+v", doc.Info)
	}
}

func TestDecodeStream_Errors(t *testing.T) {
	ctx, env := setupTestEnv(t)

	if _, err := decodeStream(ctx, strings.NewReader("1\n00:00:01,000 --> 00:00:02,000\nsrt\n"), "a.srt", env.Cfg, env.Log); !errors.Is(err, demux.ErrUnknownFormat) {
		t.Errorf("unknown input error = %v", err)
	}

	env.Cfg.Demux.Format = "bogus"
	if _, err := decodeStream(ctx, strings.NewReader(sampleScript), "a.ass", env.Cfg, env.Log); err == nil {
		t.Error("bad format name must be an error")
	}
	env.Cfg.Demux.Format = "auto"

	cctx, cancel := context.WithCancel(ctx)
	cancel()
	if _, err := decodeStream(cctx, strings.NewReader(sampleScript), "a.ass", env.Cfg, env.Log); !errors.Is(err, context.Canceled) {
		t.Errorf("cancelled decode error = %v", err)
	}
}

func TestDeclaredStyles(t *testing.T) {
	doc := decodeSample(t, strings.Replace(sampleScript, "Sign,,0,0,0,,Second", "Other,,0,0,0,,Second", 1), "x.ass")

	got := doc.declaredStyles()
	names := make([]string, 0, len(got))
	for _, s := range got {
		names = append(names, s.Name)
	}
	if strings.Join(names, ",") != "Default,Sign,Other" {
		t.Errorf("declaredStyles() = %v", names)
	}
}
