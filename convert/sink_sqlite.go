package convert

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/text/language"
	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"

	"ttsub/ass"
	"ttsub/subtitle"
	"ttsub/timing"
)

const sqliteSchema = `
CREATE TABLE stream (
	source TEXT NOT NULL,
	stream_id TEXT NOT NULL,
	format TEXT NOT NULL,
	rate INTEGER NOT NULL,
	title TEXT,
	play_res_x INTEGER,
	play_res_y INTEGER
);
CREATE TABLE styles (
	name TEXT PRIMARY KEY,
	font_family TEXT NOT NULL,
	font_size INTEGER NOT NULL,
	bold INTEGER NOT NULL,
	italic INTEGER NOT NULL,
	color TEXT NOT NULL,
	back_color TEXT NOT NULL,
	alignment INTEGER NOT NULL
);
CREATE TABLE cues (
	read_order INTEGER NOT NULL,
	start_time INTEGER NOT NULL,
	end_time INTEGER,
	layer INTEGER NOT NULL,
	style TEXT NOT NULL,
	region TEXT,
	lang TEXT,
	text TEXT NOT NULL,
	plain TEXT NOT NULL
);
CREATE INDEX cues_start ON cues(start_time);
CREATE TABLE diagnostics (
	location TEXT,
	message TEXT NOT NULL
);
`

func nullable[T comparable](v, null T) any {
	if v == null {
		return nil
	}
	return v
}

// writeSQLite stores document in a new database, one row per cue. Times are
// in document time base, open ended cues have NULL end.
func (doc *Document) writeSQLite(ctx context.Context, path string, log *zap.Logger) (err error) {
	conn, err := sqlite.OpenConn(path, sqlite.OpenReadWrite, sqlite.OpenCreate)
	if err != nil {
		return fmt.Errorf("unable to create database: %w", err)
	}
	defer func() {
		if cerr := conn.Close(); err == nil && cerr != nil {
			err = fmt.Errorf("unable to close database: %w", cerr)
		}
	}()
	conn.SetInterrupt(ctx.Done())

	if err := sqlitex.ExecuteScript(conn, sqliteSchema, nil); err != nil {
		return fmt.Errorf("unable to create schema: %w", err)
	}

	release := sqlitex.Save(conn)
	defer release(&err)

	err = sqlitex.Execute(conn,
		`INSERT INTO stream (source, stream_id, format, rate, title, play_res_x, play_res_y) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		&sqlitex.ExecOptions{Args: []any{
			doc.Source, doc.StreamID, doc.Format.String(), doc.Rate, nullable(doc.Info.Title, ""), doc.Info.PlayResX, doc.Info.PlayResY,
		}})
	if err != nil {
		return fmt.Errorf("unable to store stream: %w", err)
	}

	for _, s := range doc.declaredStyles() {
		err = sqlitex.Execute(conn,
			`INSERT OR REPLACE INTO styles (name, font_family, font_size, bold, italic, color, back_color, alignment) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			&sqlitex.ExecOptions{Args: []any{
				ass.StyleName(s.Name), s.FontFamily, s.FontSize, boolInt(s.Bold), boolInt(s.Italic),
				ass.FormatColor(s.Color), ass.FormatColor(s.BackColor), int(s.Alignment),
			}})
		if err != nil {
			return fmt.Errorf("unable to store style %q: %w", s.Name, err)
		}
	}

	for _, c := range doc.Cues {
		lang := ""
		if c.Lang != language.Und {
			lang = c.Lang.String()
		}
		err = sqlitex.Execute(conn,
			`INSERT INTO cues (read_order, start_time, end_time, layer, style, region, lang, text, plain) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			&sqlitex.ExecOptions{Args: []any{
				c.ReadOrder, int64(c.Start), nullable(int64(c.End()), int64(timing.Unbounded)), c.Layer,
				ass.StyleName(c.Style.Name), nullable(c.Region.Name, ""), nullable(lang, ""), c.Text, subtitle.PlainText(c.Runs),
			}})
		if err != nil {
			return fmt.Errorf("unable to store cue %d: %w", c.ReadOrder, err)
		}
	}

	for _, d := range doc.Diagnostics {
		err = sqlitex.Execute(conn, `INSERT INTO diagnostics (location, message) VALUES (?, ?)`,
			&sqlitex.ExecOptions{Args: []any{nullable(d.Where, ""), d.Err.Error()}})
		if err != nil {
			return fmt.Errorf("unable to store diagnostic: %w", err)
		}
	}

	log.Debug("Database written", zap.String("file", path), zap.Int("cues", len(doc.Cues)))
	return nil
}

func boolInt(v bool) int {
	if v {
		return 1
	}
	return 0
}
