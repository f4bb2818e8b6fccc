package ass

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"go.uber.org/multierr"

	"ttsub/style"
)

// ScriptInfo keeps the [Script Info] values decoders care about.
type ScriptInfo struct {
	Title    string
	PlayResX int
	PlayResY int
}

// DefaultScriptInfo returns values assumed when script does not specify them.
func DefaultScriptInfo() ScriptInfo {
	return ScriptInfo{PlayResX: style.DefaultPlayResX, PlayResY: style.DefaultPlayResY}
}

var defaultStyleFormat = []string{
	"name", "fontname", "fontsize", "primarycolour", "secondarycolour", "outlinecolour", "backcolour",
	"bold", "italic", "underline", "strikeout", "scalex", "scaley", "spacing", "angle",
	"borderstyle", "outline", "shadow", "alignment", "marginl", "marginr", "marginv", "encoding",
}

// ParseHeader reads script header (everything before [Events] dialogue
// lines), defines every style it finds in t and returns script info. Problems
// with individual lines do not stop parsing, they are combined into returned
// error.
func ParseHeader(data []byte, t *style.Table) (ScriptInfo, error) {
	var (
		info    = DefaultScriptInfo()
		section string
		format  = defaultStyleFormat
		errs    error
	)

	sc := bufio.NewScanner(bytes.NewReader(data))
	sc.Buffer(make([]byte, 0, 4096), len(data)+1)
	for n := 1; sc.Scan(); n++ {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, ";") || strings.HasPrefix(line, "!:") {
			continue
		}
		if strings.HasPrefix(line, "[") && strings.HasSuffix(line, "]") {
			section = strings.ToLower(line)
			continue
		}
		key, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		key, value = strings.TrimSpace(key), strings.TrimSpace(value)

		switch section {
		case "[script info]":
			switch strings.ToLower(key) {
			case "title":
				info.Title = value
			case "playresx":
				if v, err := strconv.Atoi(value); err == nil && v > 0 {
					info.PlayResX = v
				}
			case "playresy":
				if v, err := strconv.Atoi(value); err == nil && v > 0 {
					info.PlayResY = v
				}
			}
		case "[v4+ styles]", "[v4 styles]":
			switch strings.ToLower(key) {
			case "format":
				format = format[:0:0]
				for f := range strings.SplitSeq(value, ",") {
					format = append(format, strings.ToLower(strings.TrimSpace(f)))
				}
			case "style":
				name, attrs, err := parseStyle(format, value, section == "[v4 styles]")
				if err != nil {
					errs = multierr.Append(errs, fmt.Errorf("line %d: %w", n, err))
				}
				if name != "" {
					t.Define(name, attrs)
				}
			}
		}
	}
	if err := sc.Err(); err != nil {
		errs = multierr.Append(errs, err)
	}
	return info, errs
}

func parseStyle(format []string, value string, ssa bool) (string, style.Attributes, error) {
	var (
		attrs style.Attributes
		name  string
		errs  error
	)
	fields := strings.SplitN(value, ",", len(format))
	for i, f := range fields {
		f = strings.TrimSpace(f)
		switch format[i] {
		case "name":
			name = strings.TrimPrefix(f, "*")
		case "fontname":
			attrs.SetFontFamily(f)
		case "fontsize":
			v, err := strconv.ParseFloat(f, 64)
			if err != nil || v <= 0 {
				errs = multierr.Append(errs, fmt.Errorf("font size %q: %w", f, style.ErrBadValue))
				continue
			}
			attrs.SetFontSize(int(math.Round(v)))
		case "primarycolour":
			c, err := ParseColor(f)
			if err != nil {
				errs = multierr.Append(errs, err)
				continue
			}
			attrs.SetColor(c)
		case "backcolour":
			c, err := ParseColor(f)
			if err != nil {
				errs = multierr.Append(errs, err)
				continue
			}
			attrs.SetBackColor(c)
		case "bold":
			attrs.SetBold(atoi(f) != 0)
		case "italic":
			attrs.SetItalic(atoi(f) != 0)
		case "alignment":
			a := style.Alignment(atoi(f))
			if ssa {
				a = fromSSAAlignment(atoi(f))
			}
			if !a.Valid() {
				errs = multierr.Append(errs, fmt.Errorf("alignment %q: %w", f, style.ErrBadValue))
				continue
			}
			attrs.SetAlignment(a)
		}
	}
	if name == "" {
		errs = multierr.Append(errs, fmt.Errorf("style without name: %w", style.ErrBadValue))
	}
	return name, attrs, errs
}

// SSA alignment: 1..3 subtitle, +4 toptitle, +8 midtitle.
func fromSSAAlignment(v int) style.Alignment {
	h := style.HAlign(v&3 - 1)
	switch {
	case v&4 != 0:
		return style.NewAlignment(h, style.VTop)
	case v&8 != 0:
		return style.NewAlignment(h, style.VMiddle)
	}
	return style.NewAlignment(h, style.VBottom)
}

func assBool(v bool) int {
	if v {
		return -1
	}
	return 0
}

// WriteHeader writes complete script header up to and including [Events]
// format line. When styles is empty single Default style is written.
func WriteHeader(w io.Writer, info ScriptInfo, styles []style.Style) error {
	if info.PlayResX <= 0 || info.PlayResY <= 0 {
		info.PlayResX, info.PlayResY = style.DefaultPlayResX, style.DefaultPlayResY
	}
	if len(styles) == 0 {
		styles = []style.Style{style.Default()}
	}

	var b strings.Builder
	b.WriteString("[Script Info]\n; Script generated by ttsub\n")
	if info.Title != "" {
		fmt.Fprintf(&b, "Title: %s\n", info.Title)
	}
	fmt.Fprintf(&b, "ScriptType: v4.00+\nPlayResX: %d\nPlayResY: %d\nScaledBorderAndShadow: yes\nYCbCr Matrix: None\n\n", info.PlayResX, info.PlayResY)
	b.WriteString("[V4+ Styles]\n")
	b.WriteString("Format: Name, Fontname, Fontsize, PrimaryColour, SecondaryColour, OutlineColour, BackColour, Bold, Italic, Underline, StrikeOut, ScaleX, ScaleY, Spacing, Angle, BorderStyle, Outline, Shadow, Alignment, MarginL, MarginR, MarginV, Encoding\n")
	for _, s := range styles {
		fmt.Fprintf(&b, "Style: %s,%s,%d,%s,%s,%s,%s,%d,%d,0,0,100,100,0,0,1,1,0,%d,10,10,10,1\n",
			StyleName(s.Name), s.FontFamily, s.FontSize,
			FormatColor(s.Color), FormatColor(s.Color), FormatColor(style.Black), FormatColor(s.BackColor),
			assBool(s.Bold), assBool(s.Italic), s.Alignment)
	}
	b.WriteString("\n[Events]\nFormat: Layer, Start, End, Style, Name, MarginL, MarginR, MarginV, Effect, Text\n")

	_, err := io.WriteString(w, b.String())
	return err
}

// StyleName makes name usable in comma separated fields.
func StyleName(name string) string {
	if name == "" {
		return style.DefaultName
	}
	return strings.ReplaceAll(name, ",", ";")
}
