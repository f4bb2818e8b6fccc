package convert

import (
	"archive/zip"
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"ttsub/demux"
)

func writeZip(t *testing.T, path string, files map[string]string) {
	t.Helper()
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	for name, data := range files {
		f, err := w.Create(name)
		if err != nil {
			t.Fatalf("Failed to create file in zip: %v", err)
		}
		if _, err := f.Write([]byte(data)); err != nil {
			t.Fatal(err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		t.Fatal(err)
	}
}

func TestIsArchiveFile(t *testing.T) {
	tmpDir := t.TempDir()

	t.Run("non-zip extension", func(t *testing.T) {
		path := filepath.Join(tmpDir, "test.txt")
		writeZip(t, path, map[string]string{"a.ass": sampleScript})
		if got, err := isArchiveFile(path); err != nil || got {
			t.Errorf("isArchiveFile() = %v, %v", got, err)
		}
	})

	t.Run("zip extension but invalid content", func(t *testing.T) {
		path := filepath.Join(tmpDir, "test.zip")
		if err := os.WriteFile(path, []byte("not a real zip file"), 0644); err != nil {
			t.Fatal(err)
		}
		if got, err := isArchiveFile(path); err != nil || got {
			t.Errorf("isArchiveFile() = %v, %v", got, err)
		}
	})

	t.Run("valid zip", func(t *testing.T) {
		path := filepath.Join(tmpDir, "subs.ZIP")
		writeZip(t, path, map[string]string{"a.ass": sampleScript})
		if got, err := isArchiveFile(path); err != nil || !got {
			t.Errorf("isArchiveFile() = %v, %v", got, err)
		}
	})

	t.Run("missing file", func(t *testing.T) {
		if _, err := isArchiveFile(filepath.Join(tmpDir, "missing.zip")); err == nil {
			t.Error("expected error for missing file")
		}
	})
}

func TestIsSubtitleFile(t *testing.T) {
	tmpDir := t.TempDir()
	write := func(name, data string) string {
		path := filepath.Join(tmpDir, name)
		if err := os.WriteFile(path, []byte(data), 0644); err != nil {
			t.Fatal(err)
		}
		return path
	}

	tests := []struct {
		name   string
		path   string
		forced demux.Format
		want   bool
	}{
		{"script", write("a.ass", sampleScript), demux.FormatUnknown, true},
		{"document", write("b.DFXP", sampleTTML), demux.FormatUnknown, true},
		{"wrong extension", write("c.txt", sampleScript), demux.FormatUnknown, false},
		{"unrecognized content", write("d.xml", "<html></html>"), demux.FormatUnknown, false},
		{"forced format", write("e.ssa", "garbage"), demux.FormatASS, true},
		{"empty", write("f.ass", ""), demux.FormatUnknown, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := isSubtitleFile(tt.path, tt.forced)
			if err != nil {
				t.Fatalf("isSubtitleFile() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("isSubtitleFile() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestIsSubtitleInArchive(t *testing.T) {
	path := filepath.Join(t.TempDir(), "subs.zip")
	writeZip(t, path, map[string]string{
		"ep1.ass":    sampleScript,
		"notes.txt":  "hello",
		"broken.xml": "<root/>",
	})

	r, err := zip.OpenReader(path)
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()

	for _, f := range r.File {
		got, err := isSubtitleInArchive(f, demux.FormatUnknown)
		if err != nil {
			t.Fatalf("isSubtitleInArchive(%s) error = %v", f.Name, err)
		}
		if want := strings.HasSuffix(f.Name, ".ass"); got != want {
			t.Errorf("isSubtitleInArchive(%s) = %v, want %v", f.Name, got, want)
		}
	}
}
