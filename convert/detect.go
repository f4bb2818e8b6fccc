package convert

import (
	"archive/zip"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/h2non/filetype"

	"ttsub/demux"
)

var subtitleExts = []string{".ass", ".ssa", ".ttml", ".dfxp", ".xml"}

func hasSubtitleExt(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for _, e := range subtitleExts {
		if ext == e {
			return true
		}
	}
	return false
}

// isArchiveFile checks if file is a zip archive, extension first then
// content.
func isArchiveFile(path string) (bool, error) {
	if !strings.EqualFold(filepath.Ext(path), ".zip") {
		return false, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return false, err
	}
	defer f.Close()

	// 262 bytes is enough for filetype to detect any supported type
	head := make([]byte, 262)
	n, err := io.ReadFull(f, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return false, err
	}
	return filetype.Is(head[:n], "zip"), nil
}

// probeReader reads enough of r to detect subtitle format.
func probeReader(r io.Reader, forced demux.Format) (demux.Format, error) {
	if forced != demux.FormatUnknown {
		return forced, nil
	}
	head := make([]byte, demux.ProbeSize)
	n, err := io.ReadFull(r, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return demux.FormatUnknown, err
	}
	f, _ := demux.Probe(head[:n])
	return f, nil
}

// isSubtitleFile checks extension and probes content. Forced format skips
// probing but extension is still required.
func isSubtitleFile(path string, forced demux.Format) (bool, error) {
	if !hasSubtitleExt(path) {
		return false, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return false, err
	}
	defer f.Close()

	format, err := probeReader(f, forced)
	return format != demux.FormatUnknown, err
}

func isSubtitleInArchive(f *zip.File, forced demux.Format) (bool, error) {
	if !hasSubtitleExt(f.Name) {
		return false, nil
	}
	r, err := f.Open()
	if err != nil {
		return false, err
	}
	defer r.Close()

	format, err := probeReader(r, forced)
	return format != demux.FormatUnknown, err
}
