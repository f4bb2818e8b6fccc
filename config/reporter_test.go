package config

import (
	"archive/zip"
	"io"
	"os"
	"path/filepath"
	"testing"
)

func TestReport_Archive(t *testing.T) {
	dir := t.TempDir()
	r, err := (&ReporterConfig{Destination: filepath.Join(dir, "report.zip")}).Prepare()
	if err != nil {
		t.Fatalf("Prepare() error = %v", err)
	}

	stored := filepath.Join(dir, "stored.log")
	if err := os.WriteFile(stored, []byte("log"), 0644); err != nil {
		t.Fatal(err)
	}
	copied := filepath.Join(dir, "input.ass")
	if err := os.WriteFile(copied, []byte("before"), 0644); err != nil {
		t.Fatal(err)
	}

	r.Store("final.log", stored)
	r.Store("missing.log", filepath.Join(dir, "missing.log"))
	r.StoreData("config/config.yaml", []byte("version: 1\n"))
	if err := r.StoreCopy("source", copied); err != nil {
		t.Fatalf("StoreCopy() error = %v", err)
	}
	if err := r.StoreCopy("source", copied); err != nil {
		t.Fatalf("second StoreCopy() error = %v", err)
	}
	// copy must not see later changes
	if err := os.WriteFile(copied, []byte("after"), 0644); err != nil {
		t.Fatal(err)
	}
	var temps []string
	for _, e := range r.entries {
		if e.temp {
			temps = append(temps, filepath.Dir(e.actual))
		}
	}

	if err := r.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	zr, err := zip.OpenReader(filepath.Join(dir, "report.zip"))
	if err != nil {
		t.Fatalf("unable to open report: %v", err)
	}
	defer zr.Close()

	files := make(map[string]string)
	for _, f := range zr.File {
		rc, err := f.Open()
		if err != nil {
			t.Fatal(err)
		}
		data, _ := io.ReadAll(rc)
		rc.Close()
		files[f.Name] = string(data)
	}
	if len(files) != 5 {
		t.Errorf("expected MANIFEST and 4 entries, got %v", files)
	}
	if files["final.log"] != "log" || files["config/config.yaml"] != "version: 1\n" || files["source"] != "before" {
		t.Errorf("unexpected archive content %v", files)
	}
	if _, ok := files["missing.log"]; ok {
		t.Error("absent file must be skipped")
	}

	if len(temps) != 2 {
		t.Fatalf("expected 2 temporary copies, got %d", len(temps))
	}
	for _, d := range temps {
		if _, err := os.Stat(d); !os.IsNotExist(err) {
			t.Errorf("temporary copy %s must be removed", d)
		}
	}
}

func TestReport_Nil(t *testing.T) {
	var r *Report
	r.Store("a", "b")
	r.StoreData("c", nil)
	if err := r.StoreCopy("d", "e"); err != nil {
		t.Errorf("StoreCopy on nil report should not error, got: %v", err)
	}
	if err := r.Close(); err != nil {
		t.Errorf("Close on nil report should not error, got: %v", err)
	}
	if r.Name() != "" {
		t.Error("nil report has no name")
	}
}

func TestReport_OverwritePanics(t *testing.T) {
	r := &Report{entries: make(map[string]entry)}
	r.Store("a", "one")
	r.Store("a", "one")
	defer func() {
		if recover() == nil {
			t.Error("expected panic on overwrite")
		}
	}()
	r.Store("a", "two")
}
