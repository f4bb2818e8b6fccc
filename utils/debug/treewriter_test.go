package debug

import (
	"bytes"
	"testing"
)

func TestTreeWriter(t *testing.T) {
	tw := NewTreeWriter()
	if tw.String() != "" {
		t.Error("Expected empty string from new TreeWriter")
	}

	tw.Line(0, "Stream %q", "a.ass")
	if !tw.Section(1, "Cues", 2) {
		t.Error("Section() must report written header")
	}
	if tw.Section(1, "Regions", 0) {
		t.Error("empty section must be skipped")
	}
	tw.Field(2, "Text", "line\nnext")
	tw.Field(2, "Lang", "")

	want := "Stream \"a.ass\"\n" +
		"  Cues (2)\n" +
		"    Text: \"line\\nnext\"\n" +
		"    Lang: \n"
	if tw.String() != want {
		t.Errorf("String() = %q, want %q", tw.String(), want)
	}

	var buf bytes.Buffer
	n, err := tw.WriteTo(&buf)
	if err != nil || n != int64(len(want)) || buf.String() != want {
		t.Errorf("WriteTo() = %d, %v, %q", n, err, buf.String())
	}
}
