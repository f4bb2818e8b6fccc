package style

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	parse "github.com/tdewolff/parse/v2"
	"github.com/tdewolff/parse/v2/css"
)

// ErrBadValue is returned (wrapped) for attribute values which could not be
// interpreted.
var ErrBadValue = errors.New("bad attribute value")

// Color is RGBA color, A is opacity (255 - fully opaque).
type Color struct {
	R, G, B, A uint8
}

var (
	White       = Color{0xff, 0xff, 0xff, 0xff}
	Black       = Color{0, 0, 0, 0xff}
	Transparent = Color{0, 0, 0, 0}
)

// RGB makes opaque color from 0xRRGGBB value.
func RGB(v uint32) Color {
	return Color{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 0xff}
}

func (c Color) String() string {
	return fmt.Sprintf("#%02x%02x%02x%02x", c.R, c.G, c.B, c.A)
}

// named colors from TTML
var namedColors = map[string]Color{
	"transparent": Transparent,
	"black":       Black,
	"silver":      RGB(0xc0c0c0),
	"gray":        RGB(0x808080),
	"white":       White,
	"maroon":      RGB(0x800000),
	"red":         RGB(0xff0000),
	"purple":      RGB(0x800080),
	"fuchsia":     RGB(0xff00ff),
	"magenta":     RGB(0xff00ff),
	"green":       RGB(0x008000),
	"lime":        RGB(0x00ff00),
	"olive":       RGB(0x808000),
	"yellow":      RGB(0xffff00),
	"navy":        RGB(0x000080),
	"blue":        RGB(0x0000ff),
	"teal":        RGB(0x008080),
	"aqua":        RGB(0x00ffff),
	"cyan":        RGB(0x00ffff),
}

// tokens returns significant (non whitespace) tokens of attribute value.
func tokens(value string) ([]css.TokenType, [][]byte) {
	var (
		types []css.TokenType
		data  [][]byte
	)
	l := css.NewLexer(parse.NewInputString(value))
	for {
		tt, d := l.Next()
		switch tt {
		case css.ErrorToken:
			return types, data
		case css.WhitespaceToken, css.CommentToken:
			continue
		}
		types = append(types, tt)
		data = append(data, append([]byte(nil), d...))
	}
}

// ParseColor interprets TTML color expression: named color, #rrggbb,
// #rrggbbaa, rgb(r,g,b) or rgba(r,g,b,a).
func ParseColor(value string) (Color, error) {
	types, data := tokens(value)
	if len(types) == 0 {
		return Color{}, fmt.Errorf("empty color: %w", ErrBadValue)
	}

	switch types[0] {
	case css.IdentToken:
		if c, ok := namedColors[strings.ToLower(string(data[0]))]; ok && len(types) == 1 {
			return c, nil
		}
	case css.HashToken:
		if len(types) == 1 {
			return parseHexColor(string(data[0][1:]))
		}
	case css.FunctionToken:
		name := strings.ToLower(strings.TrimSuffix(string(data[0]), "("))
		var comps []int
		for i := 1; i < len(types); i++ {
			switch types[i] {
			case css.NumberToken:
				v, err := strconv.Atoi(string(data[i]))
				if err != nil || v < 0 || v > 255 {
					return Color{}, fmt.Errorf("color component %q: %w", data[i], ErrBadValue)
				}
				comps = append(comps, v)
			case css.CommaToken:
			case css.RightParenthesisToken:
				if i != len(types)-1 {
					return Color{}, fmt.Errorf("trailing data in color %q: %w", value, ErrBadValue)
				}
			default:
				return Color{}, fmt.Errorf("unexpected token in color %q: %w", value, ErrBadValue)
			}
		}
		switch {
		case name == "rgb" && len(comps) == 3:
			return Color{uint8(comps[0]), uint8(comps[1]), uint8(comps[2]), 0xff}, nil
		case name == "rgba" && len(comps) == 4:
			return Color{uint8(comps[0]), uint8(comps[1]), uint8(comps[2]), uint8(comps[3])}, nil
		}
	}
	return Color{}, fmt.Errorf("unsupported color %q: %w", value, ErrBadValue)
}

func parseHexColor(hex string) (Color, error) {
	if len(hex) != 6 && len(hex) != 8 {
		return Color{}, fmt.Errorf("hex color %q: %w", hex, ErrBadValue)
	}
	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return Color{}, fmt.Errorf("hex color %q: %w", hex, ErrBadValue)
	}
	if len(hex) == 6 {
		return RGB(uint32(v)), nil
	}
	return Color{R: uint8(v >> 24), G: uint8(v >> 16), B: uint8(v >> 8), A: uint8(v)}, nil
}

// MaxFontSize is the largest font size in pixels accepted from documents.
const MaxFontSize = 10 * 4320

// ParseFontSize interprets TTML font size. When two lengths are present the
// second (vertical) one is used. Relative units are computed against base,
// cells against cellHeight.
func ParseFontSize(value string, base int, cellHeight float64) (int, error) {
	types, data := tokens(value)
	if len(types) == 0 || len(types) > 2 {
		return 0, fmt.Errorf("font size %q: %w", value, ErrBadValue)
	}
	i := len(types) - 1

	var (
		num  float64
		unit string
		err  error
	)
	switch types[i] {
	case css.DimensionToken:
		num, unit, err = splitDimension(data[i])
	case css.PercentageToken:
		num, err = strconv.ParseFloat(strings.TrimSuffix(string(data[i]), "%"), 64)
		unit = "%"
	case css.NumberToken:
		num, err = strconv.ParseFloat(string(data[i]), 64)
		unit = "px"
	default:
		err = ErrBadValue
	}
	if err != nil || num < 0 {
		return 0, fmt.Errorf("font size %q: %w", value, ErrBadValue)
	}

	var size float64
	switch strings.ToLower(unit) {
	case "px":
		size = num
	case "c":
		size = num * cellHeight
	case "em":
		size = num * float64(base)
	case "%":
		size = num * float64(base) / 100
	default:
		return 0, fmt.Errorf("font size unit %q: %w", unit, ErrBadValue)
	}
	if size > MaxFontSize {
		return 0, fmt.Errorf("font size %q too large: %w", value, ErrBadValue)
	}
	return int(math.Round(size)), nil
}

func splitDimension(d []byte) (float64, string, error) {
	n := parse.Number(d)
	if n == 0 {
		return 0, "", ErrBadValue
	}
	v, err := strconv.ParseFloat(string(d[:n]), 64)
	if err != nil {
		return 0, "", err
	}
	return v, string(d[n:]), nil
}

// ParseTextAlign maps tts:textAlign values.
func ParseTextAlign(value string) (HAlign, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "left", "start":
		return HLeft, nil
	case "center", "justify":
		return HCenter, nil
	case "right", "end":
		return HRight, nil
	}
	return HCenter, fmt.Errorf("text align %q: %w", value, ErrBadValue)
}

// ParseDisplayAlign maps tts:displayAlign values.
func ParseDisplayAlign(value string) (VAlign, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "before":
		return VTop, nil
	case "center":
		return VMiddle, nil
	case "after":
		return VBottom, nil
	}
	return VBottom, fmt.Errorf("display align %q: %w", value, ErrBadValue)
}
