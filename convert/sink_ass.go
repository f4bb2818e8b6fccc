package convert

import (
	"fmt"
	"io"

	"ttsub/ass"
	"ttsub/style"
)

// writeASS produces complete script. Cue text is rebased on declared style
// when cue looks different from the style it names.
func (doc *Document) writeASS(w io.Writer) error {
	styles := doc.declaredStyles()
	if err := ass.WriteHeader(w, doc.Info, styles); err != nil {
		return err
	}

	declared := make(map[string]style.Style, len(styles))
	for _, s := range styles {
		declared[ass.StyleName(s.Name)] = s
	}
	for _, c := range doc.Cues {
		if base, ok := declared[ass.StyleName(c.Style.Name)]; ok && !base.SameLook(c.Style) && len(c.Runs) > 0 {
			c.Text = ass.FormatRuns(base, c.Runs)
		}
		if _, err := fmt.Fprintln(w, ass.FormatEvent(c, doc.Rate)); err != nil {
			return err
		}
	}
	return nil
}
