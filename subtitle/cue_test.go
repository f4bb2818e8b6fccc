package subtitle

import (
	"errors"
	"testing"

	"ttsub/style"
	"ttsub/timing"
)

func TestMergeRuns(t *testing.T) {
	plain := style.Default()
	bold := plain
	bold.Bold = true
	renamed := plain
	renamed.Name = "other"

	runs := []Run{
		{Text: "Hel", Style: plain},
		{Text: "lo", Style: renamed},
		{Text: "", Style: bold},
		{Text: " big", Style: bold},
		{Break: true, Style: plain},
		{Text: "next", Style: plain},
		{Text: " line", Style: plain},
	}
	got := MergeRuns(runs)
	if len(got) != 4 {
		t.Fatalf("MergeRuns() returned %d runs: %+v", len(got), got)
	}
	if got[0].Text != "Hello" {
		t.Errorf("same looking runs must merge, got %q", got[0].Text)
	}
	if got[1].Text != " big" || !got[1].Style.Bold {
		t.Errorf("unexpected second run %+v", got[1])
	}
	if !got[2].Break {
		t.Error("break must survive merging")
	}
	if got[3].Text != "next line" {
		t.Errorf("runs after break must merge, got %q", got[3].Text)
	}
}

func TestCueWindow(t *testing.T) {
	c := Cue{Start: 100, Duration: 50}
	if c.End() != 150 || c.Window() != (timing.Window{Begin: 100, End: 150}) {
		t.Errorf("unexpected window %+v", c.Window())
	}
	c.Duration = timing.Unbounded
	if c.End() != timing.Unbounded {
		t.Errorf("open ended cue must have unbounded end, got %d", c.End())
	}
}

func TestResultErr(t *testing.T) {
	var r Result
	if r.Err() != nil {
		t.Fatal("empty result must have no error")
	}
	r.Report("p[1]", style.ErrUnknownStyle)
	r.Report("p[2]", nil)
	r.Report("", ErrMalformed)

	if len(r.Diagnostics) != 2 {
		t.Fatalf("expected 2 diagnostics, got %d", len(r.Diagnostics))
	}
	err := r.Err()
	if !errors.Is(err, style.ErrUnknownStyle) || !errors.Is(err, ErrMalformed) {
		t.Errorf("combined error must wrap all diagnostics: %v", err)
	}
	if r.Diagnostics[0].Error() != "p[1]: unknown style reference" {
		t.Errorf("unexpected diagnostic text %q", r.Diagnostics[0].Error())
	}
}

func TestPlainText(t *testing.T) {
	runs := []Run{{Text: "one"}, {Break: true}, {Text: "two", Style: style.Style{Bold: true}}, {Text: " three"}}
	if got := PlainText(runs); got != "one\ntwo three" {
		t.Errorf("PlainText() = %q", got)
	}
	if PlainText(nil) != "" {
		t.Error("no runs must give empty text")
	}
}
