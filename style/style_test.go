package style

import (
	"errors"
	"fmt"
	"testing"

	"go.uber.org/multierr"
)

func TestDefault(t *testing.T) {
	d := Default()
	if d.Name != "Default" || d.FontFamily != "Arial" || d.FontSize != 16 {
		t.Errorf("unexpected default style %s", d)
	}
	if d.Bold || d.Italic {
		t.Errorf("default style must not be bold or italic")
	}
	if d.Color != White || d.BackColor != Black {
		t.Errorf("unexpected default colors %s / %s", d.Color, d.BackColor)
	}
	if d.Alignment != 2 || d.Alignment.Horizontal() != HCenter || d.Alignment.Vertical() != VBottom {
		t.Errorf("unexpected default alignment %d", d.Alignment)
	}
}

func TestAlignment(t *testing.T) {
	tests := []struct {
		h    HAlign
		v    VAlign
		want Alignment
	}{
		{HLeft, VBottom, 1},
		{HCenter, VBottom, 2},
		{HRight, VBottom, 3},
		{HLeft, VMiddle, 4},
		{HCenter, VTop, 8},
		{HRight, VTop, 9},
	}
	for _, tt := range tests {
		a := NewAlignment(tt.h, tt.v)
		if a != tt.want {
			t.Errorf("NewAlignment(%d, %d) = %d, want %d", tt.h, tt.v, a, tt.want)
		}
		if a.Horizontal() != tt.h || a.Vertical() != tt.v {
			t.Errorf("alignment %d does not round trip", a)
		}
	}
}

func TestMergeAlignmentParts(t *testing.T) {
	var base Attributes
	base.SetAlignment(NewAlignment(HLeft, VTop))

	var over Attributes
	over.SetTextAlign(HRight)

	got := base.Merge(over)
	if got.Alignment != NewAlignment(HRight, VTop) {
		t.Errorf("text align override must keep vertical placement, got %d", got.Alignment)
	}

	var disp Attributes
	disp.SetDisplayAlign(VMiddle)
	got = got.Merge(disp)
	if got.Alignment != NewAlignment(HRight, VMiddle) {
		t.Errorf("display align override must keep horizontal placement, got %d", got.Alignment)
	}
}

func TestResolve_InheritsFromParent(t *testing.T) {
	tbl := NewTable(0)

	var a Attributes
	a.SetBold(true)
	tbl.Define("A", a)

	var b Attributes
	b.SetFontSize(42)
	tbl.Define("B", b, "A")

	s, err := tbl.Resolve("B")
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if !s.Bold {
		t.Error("expected bold inherited from A")
	}
	if s.FontSize != 42 {
		t.Errorf("FontSize = %d, want 42", s.FontSize)
	}
	if s.FontFamily != DefaultFont || s.Italic {
		t.Errorf("unset attributes must come from default, got %s", s)
	}
	if s.Name != "B" {
		t.Errorf("Name = %q, want B", s.Name)
	}
}

func TestResolve_Precedence(t *testing.T) {
	tbl := NewTable(0)

	var p1, p2, own Attributes
	p1.SetColor(RGB(0xff0000))
	p1.SetItalic(true)
	p2.SetColor(RGB(0x00ff00))
	own.SetItalic(false)
	tbl.Define("p1", p1)
	tbl.Define("p2", p2)
	tbl.Define("child", own, "p1", "p2")

	s, err := tbl.Resolve("child")
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if s.Color != RGB(0x00ff00) {
		t.Errorf("later parent must win, got %s", s.Color)
	}
	if s.Italic {
		t.Error("own attribute must win over parent")
	}
}

func TestResolve_Idempotent(t *testing.T) {
	tbl := NewTable(0)
	var a Attributes
	a.SetFontFamily("Verdana")
	tbl.Define("A", a)
	tbl.Define("B", Attributes{}, "A")

	first, err1 := tbl.Resolve("B")
	second, err2 := tbl.Resolve("B")
	if first != second || err1 != nil || err2 != nil {
		t.Errorf("resolution not idempotent: %s / %s", first, second)
	}
}

func TestResolve_SelfReference(t *testing.T) {
	tbl := NewTable(0)
	var a Attributes
	a.SetBold(true)
	tbl.Define("A", a, "A")

	s, err := tbl.Resolve("A")
	if !errors.Is(err, ErrCyclicStyle) {
		t.Fatalf("Resolve() error = %v, want ErrCyclicStyle", err)
	}
	want := Default()
	want.Name = "A"
	if s != want {
		t.Errorf("cyclic style must resolve to default, got %s", s)
	}
}

func TestResolve_LongCycle(t *testing.T) {
	tbl := NewTable(0)
	tbl.Define("a", Attributes{}, "b")
	tbl.Define("b", Attributes{}, "c")
	tbl.Define("c", Attributes{}, "a")
	if _, err := tbl.Resolve("a"); !errors.Is(err, ErrCyclicStyle) {
		t.Errorf("Resolve() error = %v, want ErrCyclicStyle", err)
	}
}

func TestResolve_DepthLimit(t *testing.T) {
	tbl := NewTable(8)
	for i := range 20 {
		tbl.Define(fmt.Sprintf("s%d", i), Attributes{}, fmt.Sprintf("s%d", i+1))
	}
	var last Attributes
	last.SetBold(true)
	tbl.Define("s20", last)

	if _, err := tbl.Resolve("s0"); !errors.Is(err, ErrCyclicStyle) {
		t.Errorf("Resolve() error = %v, want ErrCyclicStyle for too deep chain", err)
	}
	s, err := tbl.Resolve("s15")
	if err != nil || !s.Bold {
		t.Errorf("short chain must resolve, got %s, %v", s, err)
	}
}

// diamond defines levels of s<i> inheriting from a<i> and b<i>, both of which
// inherit from s<i+1>. Last level is bold and references missing parent.
func diamond(tbl *Table, levels int) {
	var last Attributes
	last.SetBold(true)
	tbl.Define(fmt.Sprintf("s%d", levels), last, "missing")
	for i := levels - 1; i >= 0; i-- {
		next := fmt.Sprintf("s%d", i+1)
		tbl.Define(fmt.Sprintf("a%d", i), Attributes{}, next)
		tbl.Define(fmt.Sprintf("b%d", i), Attributes{}, next)
		tbl.Define(fmt.Sprintf("s%d", i), Attributes{}, fmt.Sprintf("a%d", i), fmt.Sprintf("b%d", i))
	}
}

func TestResolve_SharedParents(t *testing.T) {
	tbl := NewTable(0)
	diamond(tbl, 31)

	s, err := tbl.Resolve("s0")
	if !s.Bold {
		t.Errorf("bold must be inherited through all levels, got %s", s)
	}
	if !errors.Is(err, ErrUnknownStyle) {
		t.Fatalf("Resolve() error = %v, want ErrUnknownStyle", err)
	}
	if n := len(multierr.Errors(err)); n != 1 {
		t.Errorf("missing parent must be reported once, got %d warnings", n)
	}

	attrs, err := tbl.Attributes("s0")
	if !attrs.Has(AttrBold) || len(multierr.Errors(err)) != 1 {
		t.Errorf("Attributes() = %+v, %v", attrs, err)
	}
}

func TestResolve_SharedParentsDepthLimit(t *testing.T) {
	tbl := NewTable(8)
	diamond(tbl, 10)

	// chain below s0 is twice as long as number of levels
	if _, err := tbl.Resolve("s0"); !errors.Is(err, ErrCyclicStyle) {
		t.Errorf("Resolve() error = %v, want ErrCyclicStyle for too deep chain", err)
	}
	if s, err := tbl.Resolve("s8"); !s.Bold || errors.Is(err, ErrCyclicStyle) {
		t.Errorf("short chain must resolve, got %s, %v", s, err)
	}
}

func TestDefine_RepeatedParents(t *testing.T) {
	tbl := NewTable(0)
	var a, b Attributes
	a.SetFontSize(10)
	b.SetFontSize(20)
	tbl.Define("a", a)
	tbl.Define("b", b)
	tbl.Define("c", Attributes{}, "a", "b", "a")

	s, err := tbl.Resolve("c")
	if err != nil || s.FontSize != 10 {
		t.Errorf("last repeated parent must take precedence, got %s, %v", s, err)
	}
	if got := tbl.defs["c"].parents; len(got) != 2 || got[0] != "b" || got[1] != "a" {
		t.Errorf("repeated parents must collapse, got %v", got)
	}
}

func TestResolve_Unknown(t *testing.T) {
	tbl := NewTable(0)
	s, err := tbl.Resolve("missing")
	if !errors.Is(err, ErrUnknownStyle) {
		t.Fatalf("Resolve() error = %v, want ErrUnknownStyle", err)
	}
	if s.Name != "missing" || !s.SameLook(Default()) {
		t.Errorf("unknown style must fall back to default, got %s", s)
	}

	var a Attributes
	a.SetItalic(true)
	tbl.Define("child", a, "missing")
	s, err = tbl.Resolve("child")
	if !errors.Is(err, ErrUnknownStyle) {
		t.Fatalf("Resolve() error = %v, want ErrUnknownStyle", err)
	}
	if !s.Italic {
		t.Error("own attributes must survive unknown parent")
	}
}

func TestResolve_BuiltinDefault(t *testing.T) {
	tbl := NewTable(0)
	s, err := tbl.Resolve(DefaultName)
	if err != nil || s != Default() {
		t.Errorf("Resolve(Default) = %s, %v", s, err)
	}

	var a Attributes
	a.SetFontSize(30)
	tbl.Define(DefaultName, a)
	s, _ = tbl.Resolve(DefaultName)
	if s.FontSize != 30 {
		t.Errorf("redefined Default must be used, got %s", s)
	}
}

func TestTableOrderAndReset(t *testing.T) {
	tbl := NewTable(0)
	tbl.Define("z", Attributes{})
	tbl.Define("a", Attributes{})
	tbl.Define("z", Attributes{})

	names := tbl.Names()
	if len(names) != 2 || names[0] != "z" || names[1] != "a" {
		t.Errorf("Names() = %v", names)
	}
	if got := tbl.Styles(); len(got) != 2 || got[0].Name != "z" {
		t.Errorf("Styles() = %v", got)
	}
	tbl.Reset()
	if tbl.Len() != 0 || len(tbl.Names()) != 0 {
		t.Error("Reset() must drop everything")
	}
}

func TestRegions(t *testing.T) {
	r := NewRegions()
	r.Define("bottom", "s1")
	r.Define("top", "s2")

	reg, ok := r.Resolve("top")
	if !ok || reg.Style != "s2" || reg.Name != "top" {
		t.Errorf("Resolve(top) = %+v, %v", reg, ok)
	}
	reg, ok = r.Resolve("nowhere")
	if ok || !reg.IsZero() {
		t.Errorf("absent region must resolve to zero region, got %+v", reg)
	}
	if all := r.All(); len(all) != 2 || all[0].Name != "bottom" {
		t.Errorf("All() = %v", all)
	}
	r.Reset()
	if r.Len() != 0 {
		t.Error("Reset() must drop everything")
	}
}
