// Package ass handles SSA/ASS specifics: dialogue line recognition, script
// header parsing and generation, event decoding and override tag formatting.
package ass

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"ttsub/timing"
)

// Dialogue is a recognized "Dialogue:" line of a script.
type Dialogue struct {
	Start timing.Ticks // centiseconds
	End   timing.Ticks // centiseconds
	Layer int
	Rest  string // fields after End: Style,Name,MarginL,MarginR,MarginV,Effect,Text
}

// Duration returns event duration in centiseconds, negative when script has
// end before start.
func (d Dialogue) Duration() timing.Ticks {
	return d.End - d.Start
}

var dialogueRe = regexp.MustCompile(`^Dialogue:\s*([^,\s][^,]*),\s*(\d+:\d+:\d+[.:]\d+)\s*,\s*(\d+:\d+:\d+[.:]\d+)\s*,(.*)$`)

// ParseDialogue recognizes dialogue line. Line terminators should be already
// removed. Layer field is also accepted in SSA "Marked=N" form and yields
// 0 then.
func ParseDialogue(line string) (Dialogue, bool) {
	m := dialogueRe.FindStringSubmatch(line)
	if m == nil {
		return Dialogue{}, false
	}
	start, err := timing.ParseASS(m[2])
	if err != nil {
		return Dialogue{}, false
	}
	end, err := timing.ParseASS(m[3])
	if err != nil {
		return Dialogue{}, false
	}
	layer, err := strconv.Atoi(strings.TrimSpace(m[1]))
	if err != nil {
		layer = 0
	}
	return Dialogue{Start: start, End: end, Layer: layer, Rest: m[4]}, true
}

// Payload builds packet payload for the event: "ReadOrder,Layer,Rest" - the
// layout Matroska uses for ASS blocks.
func (d Dialogue) Payload(readOrder int64) []byte {
	return fmt.Appendf(nil, "%d,%d,%s", readOrder, d.Layer, d.Rest)
}
