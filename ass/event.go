package ass

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"ttsub/subtitle"
)

// Event is a decoded packet payload.
type Event struct {
	ReadOrder int64
	Layer     int
	Style     string
	Name      string
	MarginL   int
	MarginR   int
	MarginV   int
	Effect    string
	Text      string
}

const eventFields = 9

// ParseEvent splits "ReadOrder,Layer,Style,Name,MarginL,MarginR,MarginV,
// Effect,Text" payload. Text may contain commas.
func ParseEvent(data []byte) (Event, error) {
	data = bytes.TrimRight(data, "\r\n")
	f := strings.SplitN(string(data), ",", eventFields)
	if len(f) != eventFields {
		return Event{}, fmt.Errorf("event has %d fields out of %d: %w", len(f), eventFields, subtitle.ErrMalformed)
	}
	ro, err := strconv.ParseInt(strings.TrimSpace(f[0]), 10, 64)
	if err != nil {
		return Event{}, fmt.Errorf("bad read order %q: %w", f[0], subtitle.ErrMalformed)
	}
	ev := Event{
		ReadOrder: ro,
		Layer:     atoi(f[1]),
		Style:     strings.TrimSpace(f[2]),
		Name:      f[3],
		MarginL:   atoi(f[4]),
		MarginR:   atoi(f[5]),
		MarginV:   atoi(f[6]),
		Effect:    f[7],
		Text:      f[8],
	}
	// SSA styles may be prefixed with "*"
	ev.Style = strings.TrimPrefix(ev.Style, "*")
	return ev, nil
}

func atoi(s string) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0
	}
	return n
}
