package convert

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap/zaptest"
	yaml "gopkg.in/yaml.v3"
	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"

	"ttsub/ass"
	"ttsub/config"
	"ttsub/style"
)

func TestWriteASS(t *testing.T) {
	doc := decodeSample(t, sampleScript, "ep1.ass")

	var buf bytes.Buffer
	if err := doc.writeASS(&buf); err != nil {
		t.Fatalf("writeASS() error = %v", err)
	}
	out := buf.String()
	for _, want := range []string{
		"Title: sample\n",
		"PlayResX: 640\nPlayResY: 480\n",
		"Style: Default,Verdana,20,",
		"Style: Sign,Times,32,",
		"Dialogue: 0,0:00:01.00,0:00:02.00,Default,,0,0,0,,Hello\\Nworld\n",
		"Dialogue: 1,0:00:03.00,0:00:04.00,Sign,,0,0,0,,Second\n",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output misses %q:\n%s", want, out)
		}
	}
	if strings.Index(out, "Hello") > strings.Index(out, "Second") {
		t.Error("events must follow timestamp order")
	}

	// produced script must be a valid input
	again := decodeSample(t, out, "again.ass")
	if len(again.Cues) != 2 || again.Cues[0].Start != doc.Cues[0].Start || again.Cues[1].Style.FontFamily != "Times" {
		t.Errorf("round trip changed cues: %+v", again.Cues)
	}
}

func TestWriteASS_FromDocument(t *testing.T) {
	doc := decodeSample(t, sampleTTML, "movie.ttml")

	var buf bytes.Buffer
	if err := doc.writeASS(&buf); err != nil {
		t.Fatalf("writeASS() error = %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, "Style: s1,Arial,16,") {
		t.Errorf("document style must be declared:\n%s", out)
	}
	if !strings.Contains(out, `,s1,,0,0,0,,Hallo {\c&H0000FF&}rot`) {
		t.Errorf("styled cue text missing:\n%s", out)
	}
}

func TestWriteASS_Rebase(t *testing.T) {
	base := style.Default()
	base.Name = "Main"
	loud := base
	loud.Bold = true

	doc := decodeSample(t, sampleScript, "x.ass")
	doc.Styles = []style.Style{base}
	doc.Cues = doc.Cues[:1]
	doc.Cues[0].Style = loud
	doc.Cues[0].Runs = ass.PlainRuns(loud, "Hey")

	var buf bytes.Buffer
	if err := doc.writeASS(&buf); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), `,Main,,0,0,0,,{\b1}Hey`) {
		t.Errorf("cue differing from declared style must carry overrides:\n%s", buf.String())
	}
}

func TestWriteYAML(t *testing.T) {
	doc := decodeSample(t, sampleTTML, "movie.ttml")

	var buf bytes.Buffer
	if err := doc.writeYAML(&buf); err != nil {
		t.Fatalf("writeYAML() error = %v", err)
	}

	var got yamlDocument
	if err := yaml.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("output is not valid YAML: %v\n%s", err, buf.String())
	}
	if got.Format != "ttml" || got.Source != "movie.ttml" || len(got.Cues) != 2 {
		t.Fatalf("unexpected document %+v", got)
	}
	first := got.Cues[0]
	if first.Start != "00:00:01.000" || first.End != "00:00:02.500" || first.Lang != "de" || first.Plain != "Hallo rot" {
		t.Errorf("first cue = %+v", first)
	}
	if last := got.Cues[1]; last.End != "unbounded" || last.Region != "top" {
		t.Errorf("open ended cue = %+v", last)
	}
	if len(got.Regions) != 1 || got.Regions[0] != "top" {
		t.Errorf("regions = %v", got.Regions)
	}
}

func TestWriteText(t *testing.T) {
	doc := decodeSample(t, sampleScript, "ep1.ass")

	var buf bytes.Buffer
	if err := doc.writeText(&buf); err != nil {
		t.Fatalf("writeText() error = %v", err)
	}
	out := buf.String()
	for _, want := range []string{
		`Stream "ep1.ass" format[ass] rate[1000] packets[2]`,
		`  Title: "sample"`,
		"  Canvas 640x480\n",
		"  Styles (2)\n",
		"  Cues (2)\n",
		`    Cue[1] 00:00:01.000 --> 00:00:02.000 layer[0] style["Default"]`,
		"        Break\n",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("dump misses %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "Diagnostics") {
		t.Error("empty sections must be skipped")
	}
}

func TestWriteSQLite(t *testing.T) {
	doc := decodeSample(t, sampleTTML, "movie.ttml")
	path := filepath.Join(t.TempDir(), "movie.db")

	if err := doc.writeSQLite(context.Background(), path, zaptest.NewLogger(t)); err != nil {
		t.Fatalf("writeSQLite() error = %v", err)
	}

	conn, err := sqlite.OpenConn(path, sqlite.OpenReadOnly)
	if err != nil {
		t.Fatal(err)
	}
	defer conn.Close()

	type row struct {
		start, end int64
		open       bool
		region     string
		plain      string
	}
	var rows []row
	err = sqlitex.Execute(conn, `SELECT start_time, end_time, region, plain FROM cues ORDER BY read_order`, &sqlitex.ExecOptions{
		ResultFunc: func(stmt *sqlite.Stmt) error {
			rows = append(rows, row{
				start:  stmt.ColumnInt64(0),
				end:    stmt.ColumnInt64(1),
				open:   stmt.ColumnType(1) == sqlite.TypeNull,
				region: stmt.ColumnText(2),
				plain:  stmt.ColumnText(3),
			})
			return nil
		},
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %+v", rows)
	}
	if rows[0].start != 1000 || rows[0].end != 2500 || rows[0].open || rows[0].plain != "Hallo rot" {
		t.Errorf("first row = %+v", rows[0])
	}
	if !rows[1].open || rows[1].region != "top" {
		t.Errorf("open ended cue must have NULL end, got %+v", rows[1])
	}

	format, err := sqlitex.ResultText(conn.Prep(`SELECT format FROM stream`))
	if err != nil || format != "ttml" {
		t.Errorf("stream format = %q, %v", format, err)
	}
	styles, err := sqlitex.ResultInt(conn.Prep(`SELECT count(*) FROM styles`))
	if err != nil || styles != len(doc.declaredStyles()) {
		t.Errorf("styles stored = %d, %v", styles, err)
	}
}

func TestWriteTo(t *testing.T) {
	ctx, env := setupTestEnv(t)
	doc := decodeSample(t, sampleScript, "ep1.ass")
	dir := t.TempDir()

	for _, f := range []config.OutputFmt{config.OutputFmtAss, config.OutputFmtYaml, config.OutputFmtText, config.OutputFmtSqlite} {
		path := filepath.Join(dir, "out"+f.Ext())
		if err := doc.WriteTo(ctx, f, path, env.Log); err != nil {
			t.Errorf("WriteTo(%s) error = %v", f, err)
		}
	}
	if err := doc.WriteTo(ctx, config.OutputFmt(42), filepath.Join(dir, "bad"), env.Log); err == nil {
		t.Error("unknown format must be an error")
	}
}
