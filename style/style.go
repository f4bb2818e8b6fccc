// Package style keeps named subtitle style and region definitions and resolves
// them into complete attribute sets.
package style

import "fmt"

// Alignment is ASS "numpad" alignment: 1..3 bottom, 4..6 middle, 7..9 top,
// left to right in each row.
type Alignment int

// HAlign is horizontal part of alignment.
type HAlign int

// VAlign is vertical part of alignment.
type VAlign int

const (
	HLeft HAlign = iota
	HCenter
	HRight
)

const (
	VBottom VAlign = iota
	VMiddle
	VTop
)

// NewAlignment combines horizontal and vertical placement.
func NewAlignment(h HAlign, v VAlign) Alignment {
	return Alignment(int(v)*3 + int(h) + 1)
}

// Valid reports if alignment is one of 9 numpad positions.
func (a Alignment) Valid() bool {
	return a >= 1 && a <= 9
}

func (a Alignment) Horizontal() HAlign {
	if !a.Valid() {
		return HCenter
	}
	return HAlign((int(a) - 1) % 3)
}

func (a Alignment) Vertical() VAlign {
	if !a.Valid() {
		return VBottom
	}
	return VAlign((int(a) - 1) / 3)
}

// Attr is a bit set of explicitly specified style attributes.
type Attr uint16

const (
	AttrFontFamily Attr = 1 << iota
	AttrFontSize
	AttrBold
	AttrItalic
	AttrColor
	AttrBackColor
	AttrTextAlign
	AttrDisplayAlign

	AttrAlignment = AttrTextAlign | AttrDisplayAlign
	AttrAll       = AttrFontFamily | AttrFontSize | AttrBold | AttrItalic | AttrColor | AttrBackColor | AttrAlignment
)

// Attributes is a partial style: only attributes present in Set were
// explicitly specified.
type Attributes struct {
	Set        Attr
	FontFamily string
	FontSize   int
	Bold       bool
	Italic     bool
	Color      Color
	BackColor  Color
	Alignment  Alignment
}

func (a Attributes) Has(x Attr) bool {
	return a.Set&x == x
}

func (a Attributes) IsEmpty() bool {
	return a.Set == 0
}

func (a *Attributes) SetFontFamily(v string) { a.FontFamily = v; a.Set |= AttrFontFamily }
func (a *Attributes) SetFontSize(v int) { a.FontSize = v; a.Set |= AttrFontSize }
func (a *Attributes) SetBold(v bool) { a.Bold = v; a.Set |= AttrBold }
func (a *Attributes) SetItalic(v bool) { a.Italic = v; a.Set |= AttrItalic }
func (a *Attributes) SetColor(v Color) { a.Color = v; a.Set |= AttrColor }
func (a *Attributes) SetBackColor(v Color) { a.BackColor = v; a.Set |= AttrBackColor }

// SetAlignment sets both horizontal and vertical placement.
func (a *Attributes) SetAlignment(v Alignment) { a.Alignment = v; a.Set |= AttrAlignment }

// SetTextAlign sets horizontal placement only.
func (a *Attributes) SetTextAlign(h HAlign) {
	a.Alignment = NewAlignment(h, a.Alignment.Vertical())
	a.Set |= AttrTextAlign
}

// SetDisplayAlign sets vertical placement only.
func (a *Attributes) SetDisplayAlign(v VAlign) {
	a.Alignment = NewAlignment(a.Alignment.Horizontal(), v)
	a.Set |= AttrDisplayAlign
}

// Merge returns a with every attribute explicitly set in over replacing the
// one in a.
func (a Attributes) Merge(over Attributes) Attributes {
	if over.Has(AttrFontFamily) {
		a.SetFontFamily(over.FontFamily)
	}
	if over.Has(AttrFontSize) {
		a.SetFontSize(over.FontSize)
	}
	if over.Has(AttrBold) {
		a.SetBold(over.Bold)
	}
	if over.Has(AttrItalic) {
		a.SetItalic(over.Italic)
	}
	if over.Has(AttrColor) {
		a.SetColor(over.Color)
	}
	if over.Has(AttrBackColor) {
		a.SetBackColor(over.BackColor)
	}
	if over.Has(AttrTextAlign) {
		a.SetTextAlign(over.Alignment.Horizontal())
	}
	if over.Has(AttrDisplayAlign) {
		a.SetDisplayAlign(over.Alignment.Vertical())
	}
	return a
}

// Style is a complete, resolved set of attributes.
type Style struct {
	Name       string
	FontFamily string
	FontSize   int
	Bold       bool
	Italic     bool
	Color      Color
	BackColor  Color
	Alignment  Alignment
}

// Compiled-in defaults, base case of every resolution.
const (
	DefaultName      = "Default"
	DefaultFont      = "Arial"
	DefaultFontSize  = 16
	DefaultAlignment = Alignment(2)
	// DefaultPlayResX and DefaultPlayResY define virtual canvas for relative
	// units.
	DefaultPlayResX = 384
	DefaultPlayResY = 288
)

// Default returns the built-in style.
func Default() Style {
	return Style{
		Name:       DefaultName,
		FontFamily: DefaultFont,
		FontSize:   DefaultFontSize,
		Color:      White,
		BackColor:  Black,
		Alignment:  DefaultAlignment,
	}
}

// With returns s with explicitly set attributes replaced.
func (s Style) With(a Attributes) Style {
	full := s.Attributes().Merge(a)
	s.FontFamily = full.FontFamily
	s.FontSize = full.FontSize
	s.Bold = full.Bold
	s.Italic = full.Italic
	s.Color = full.Color
	s.BackColor = full.BackColor
	s.Alignment = full.Alignment
	return s
}

// Attributes returns style as fully specified attributes.
func (s Style) Attributes() Attributes {
	return Attributes{
		Set:        AttrAll,
		FontFamily: s.FontFamily,
		FontSize:   s.FontSize,
		Bold:       s.Bold,
		Italic:     s.Italic,
		Color:      s.Color,
		BackColor:  s.BackColor,
		Alignment:  s.Alignment,
	}
}

// SameLook reports whether two styles render identically, names are ignored.
func (s Style) SameLook(o Style) bool {
	s.Name, o.Name = "", ""
	return s == o
}

func (s Style) String() string {
	return fmt.Sprintf("%s{font=%q size=%d bold=%t italic=%t color=%s back=%s align=%d}",
		s.Name, s.FontFamily, s.FontSize, s.Bold, s.Italic, s.Color, s.BackColor, s.Alignment)
}
