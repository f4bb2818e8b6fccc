package ass

import (
	"fmt"
	"strconv"
	"strings"

	"ttsub/style"
	"ttsub/subtitle"
)

// FormatColor renders color for style lines: &HAABBGGRR, alpha is
// transparency.
func FormatColor(c style.Color) string {
	return fmt.Sprintf("&H%02X%02X%02X%02X", 0xff-c.A, c.B, c.G, c.R)
}

// ParseColor accepts &HAABBGGRR, &HBBGGRR (with or without trailing &) and
// plain decimal values.
func ParseColor(s string) (style.Color, error) {
	s = strings.TrimSpace(s)
	var (
		v   uint64
		err error
	)
	if hex, ok := strings.CutPrefix(strings.ToUpper(s), "&H"); ok {
		v, err = strconv.ParseUint(strings.TrimSuffix(hex, "&"), 16, 32)
	} else {
		var n int64
		n, err = strconv.ParseInt(s, 10, 64)
		v = uint64(uint32(n))
	}
	if err != nil {
		return style.Color{}, fmt.Errorf("color %q: %w", s, style.ErrBadValue)
	}
	return style.Color{
		R: uint8(v),
		G: uint8(v >> 8),
		B: uint8(v >> 16),
		A: 0xff - uint8(v>>24),
	}, nil
}

func boolFlag(v bool) int {
	if v {
		return 1
	}
	return 0
}

// overrides returns override tags needed to switch rendering from cur to next,
// empty when nothing differs.
func overrides(cur, next style.Style) string {
	var b strings.Builder
	if cur.Bold != next.Bold {
		fmt.Fprintf(&b, `\b%d`, boolFlag(next.Bold))
	}
	if cur.Italic != next.Italic {
		fmt.Fprintf(&b, `\i%d`, boolFlag(next.Italic))
	}
	if cur.FontFamily != next.FontFamily {
		fmt.Fprintf(&b, `\fn%s`, next.FontFamily)
	}
	if cur.FontSize != next.FontSize {
		fmt.Fprintf(&b, `\fs%d`, next.FontSize)
	}
	if cur.Color.R != next.Color.R || cur.Color.G != next.Color.G || cur.Color.B != next.Color.B {
		fmt.Fprintf(&b, `\c&H%02X%02X%02X&`, next.Color.B, next.Color.G, next.Color.R)
	}
	if cur.Color.A != next.Color.A {
		fmt.Fprintf(&b, `\1a&H%02X&`, 0xff-next.Color.A)
	}
	if b.Len() == 0 {
		return ""
	}
	return "{" + b.String() + "}"
}

// FormatRuns renders runs as event text. Override tags are emitted only where
// a run differs from the state established so far, starting from base.
func FormatRuns(base style.Style, runs []subtitle.Run) string {
	var b strings.Builder
	cur := base
	for _, r := range runs {
		if r.Break {
			b.WriteString(`\N`)
			continue
		}
		b.WriteString(overrides(cur, r.Style))
		cur = r.Style
		b.WriteString(EscapeText(r.Text))
	}
	return b.String()
}

// EscapeText protects literal text from being interpreted as markup. Embedded
// new lines become hard breaks.
func EscapeText(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		switch c := s[i]; c {
		case '\r':
		case '\n':
			b.WriteString(`\N`)
		case '{', '}', '\\':
			b.WriteByte('\\')
			b.WriteByte(c)
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}

// PlainRuns splits event text into runs of base style, dropping override
// blocks. \N and \n become breaks, \h becomes no-break space.
func PlainRuns(base style.Style, text string) []subtitle.Run {
	var (
		runs []subtitle.Run
		cur  strings.Builder
	)
	flush := func() {
		if cur.Len() > 0 {
			runs = append(runs, subtitle.Run{Text: cur.String(), Style: base})
			cur.Reset()
		}
	}
	for i := 0; i < len(text); i++ {
		c := text[i]
		switch {
		case c == '{':
			if end := strings.IndexByte(text[i:], '}'); end >= 0 {
				i += end
				continue
			}
			cur.WriteByte(c)
		case c == '\\' && i+1 < len(text):
			switch text[i+1] {
			case 'N', 'n':
				flush()
				runs = append(runs, subtitle.Run{Break: true, Style: base})
			case 'h':
				cur.WriteString("\u00a0")
			case '{', '}', '\\':
				cur.WriteByte(text[i+1])
			default:
				cur.WriteByte(c)
				cur.WriteByte(text[i+1])
			}
			i++
		default:
			cur.WriteByte(c)
		}
	}
	flush()
	return runs
}
