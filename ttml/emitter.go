package ttml

import (
	"strings"

	"golang.org/x/text/language"

	"ttsub/ass"
	"ttsub/style"
	"ttsub/subtitle"
	"ttsub/timing"
)

type piece struct {
	run      subtitle.Run
	preserve bool
}

// pending is a cue being assembled: consecutive text sharing window and
// region.
type pending struct {
	window timing.Window
	region style.Region
	pieces []piece
}

// emitter turns text of a block into cues. A block produces several cues
// when its parts are active in different windows or placed into different
// regions.
type emitter struct {
	nextOrder func() int64
	res       *subtitle.Result
	base      style.Style
	lang      language.Tag
	pend      *pending
}

func (e *emitter) begin(f frame) {
	e.base = f.style
	e.lang = language.Und
	if f.lang != "" {
		tag, err := language.Parse(f.lang)
		if err != nil {
			e.res.Report("xml:lang", err)
		}
		e.lang = tag
	}
	e.pend = nil
}

func (e *emitter) text(data string, f frame) {
	if f.own.Empty() || data == "" {
		return
	}
	if e.pend != nil && (e.pend.window != f.own || e.pend.region != f.region) {
		e.flush()
	}
	if e.pend == nil {
		e.pend = &pending{window: f.own, region: f.region}
	}
	if !f.preserve {
		e.pend.pieces = append(e.pend.pieces, piece{run: subtitle.Run{Text: collapseSpace(data), Style: f.style}})
		return
	}
	lines := strings.Split(strings.ReplaceAll(data, "\r", ""), "\n")
	for i, line := range lines {
		if i > 0 {
			e.pend.pieces = append(e.pend.pieces, piece{run: subtitle.Run{Break: true, Style: f.style}, preserve: true})
		}
		e.pend.pieces = append(e.pend.pieces, piece{run: subtitle.Run{Text: line, Style: f.style}, preserve: true})
	}
}

func (e *emitter) lineBreak() {
	if e.pend == nil {
		return
	}
	e.pend.pieces = append(e.pend.pieces, piece{run: subtitle.Run{Break: true, Style: e.base}})
}

func (e *emitter) end() {
	e.flush()
}

// flush emits pending cue unless it has no visible text.
func (e *emitter) flush() {
	p := e.pend
	e.pend = nil
	if p == nil || p.window.Empty() {
		return
	}
	runs := subtitle.MergeRuns(trimSpace(p.pieces))
	visible := false
	for _, r := range runs {
		if !r.Break && strings.TrimSpace(r.Text) != "" {
			visible = true
			break
		}
	}
	if !visible {
		return
	}
	// leading and trailing breaks make empty lines
	for len(runs) > 0 && runs[0].Break {
		runs = runs[1:]
	}
	for len(runs) > 0 && runs[len(runs)-1].Break {
		runs = runs[:len(runs)-1]
	}

	e.res.Cues = append(e.res.Cues, subtitle.Cue{
		ReadOrder: e.nextOrder(),
		Start:     p.window.Begin,
		Duration:  p.window.Duration(),
		Style:     e.base,
		Region:    p.region,
		Lang:      e.lang,
		Text:      ass.FormatRuns(e.base, runs),
		Runs:      runs,
	})
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r'
}

// collapseSpace replaces every run of XML white space with single space.
func collapseSpace(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	space := false
	for i := 0; i < len(s); i++ {
		if isSpace(s[i]) {
			space = true
			continue
		}
		if space {
			b.WriteByte(' ')
			space = false
		}
		b.WriteByte(s[i])
	}
	if space {
		b.WriteByte(' ')
	}
	return b.String()
}

// trimSpace removes collapsible spaces at line starts and ends and between
// adjacent runs. Preserved text is left alone.
func trimSpace(pieces []piece) []subtitle.Run {
	out := make([]piece, 0, len(pieces))
	lineEnd := func() {
		if n := len(out); n > 0 && !out[n-1].run.Break && !out[n-1].preserve {
			out[n-1].run.Text = strings.TrimRight(out[n-1].run.Text, " ")
		}
	}
	lineStart := true
	for _, p := range pieces {
		if p.run.Break {
			lineEnd()
			out = append(out, p)
			lineStart = true
			continue
		}
		if !p.preserve {
			n := len(out)
			if lineStart || (n > 0 && !out[n-1].run.Break && strings.HasSuffix(out[n-1].run.Text, " ")) {
				p.run.Text = strings.TrimLeft(p.run.Text, " ")
			}
		}
		if p.run.Text == "" {
			continue
		}
		out = append(out, p)
		lineStart = false
	}
	lineEnd()

	runs := make([]subtitle.Run, 0, len(out))
	for _, p := range out {
		runs = append(runs, p.run)
	}
	return runs
}
