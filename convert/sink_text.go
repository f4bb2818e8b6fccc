package convert

import (
	"io"
	"maps"
	"slices"
	"sort"

	"github.com/maruel/natural"
	"golang.org/x/text/language"

	"ttsub/subtitle"
	"ttsub/timing"
	"ttsub/utils/debug"
)

// writeText dumps document as indented tree for manual inspection.
func (doc *Document) writeText(w io.Writer) error {
	tw := debug.NewTreeWriter()

	tw.Line(0, "Stream %q format[%s] rate[%d] packets[%d]", doc.Source, doc.Format, doc.Rate, doc.Packets)
	tw.Field(1, "Title", doc.Info.Title)
	tw.Line(1, "Canvas %dx%d", doc.Info.PlayResX, doc.Info.PlayResY)

	styles := doc.declaredStyles()
	if tw.Section(1, "Styles", len(styles)) {
		byName := make(map[string]int, len(styles))
		for i, s := range styles {
			byName[s.Name] = i
		}
		names := slices.Collect(maps.Keys(byName))
		sort.Sort(natural.StringSlice(names))
		for _, n := range names {
			tw.Line(2, "%s", styles[byName[n]])
		}
	}
	if tw.Section(1, "Regions", len(doc.Regions)) {
		for _, r := range doc.Regions {
			tw.Line(2, "Region[%q] style[%q]", r.Name, r.Style)
		}
	}
	if tw.Section(1, "Cues", len(doc.Cues)) {
		for _, c := range doc.Cues {
			writeCue(tw, c, doc.Rate)
		}
	}
	if tw.Section(1, "Diagnostics", len(doc.Diagnostics)) {
		for _, d := range doc.Diagnostics {
			tw.Field(2, "Problem", d.Error())
		}
	}

	_, err := tw.WriteTo(w)
	return err
}

func writeCue(tw *debug.TreeWriter, c subtitle.Cue, rate int64) {
	tw.Line(2, "Cue[%d] %s --> %s layer[%d] style[%q]",
		c.ReadOrder, timing.Format(c.Start, rate), timing.Format(c.End(), rate), c.Layer, c.Style.Name)
	if !c.Region.IsZero() {
		tw.Field(3, "Region", c.Region.Name)
	}
	if c.Lang != language.Und {
		tw.Field(3, "Lang", c.Lang.String())
	}
	tw.Field(3, "Text", c.Text)
	for _, r := range c.Runs {
		if r.Break {
			tw.Line(4, "Break")
			continue
		}
		tw.Line(4, "Run %q %s", r.Text, r.Style)
	}
}
