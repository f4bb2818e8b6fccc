package demux

import (
	"bytes"
	"fmt"
	"regexp"
	"strings"

	"golang.org/x/text/transform"
)

// Format is a kind of subtitle stream.
type Format int

const (
	FormatUnknown Format = iota
	FormatASS
	FormatTTML
)

func (f Format) String() string {
	switch f {
	case FormatASS:
		return "ass"
	case FormatTTML:
		return "ttml"
	}
	return "unknown"
}

// ParseFormat accepts format names, "auto" and empty string mean
// FormatUnknown - probe input.
func ParseFormat(name string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "auto":
		return FormatUnknown, nil
	case "ass", "ssa":
		return FormatASS, nil
	case "ttml", "dfxp", "xml":
		return FormatTTML, nil
	}
	return FormatUnknown, fmt.Errorf("unknown subtitle format %q", name)
}

// ProbeScoreMax is returned when format is certain.
const ProbeScoreMax = 100

// ProbeSize is how much of the stream Probe wants to see.
const ProbeSize = 4096

var ttRootRe = regexp.MustCompile(`<(?:[A-Za-z_][\w.-]*:)?tt[\s>/]`)

// Probe detects format from the beginning of the stream. Byte order marks
// are honored, leading line breaks are skipped.
func Probe(buf []byte) (Format, int) {
	if enc := detectUTF(buf); enc != encUnknown {
		if dec, _, err := transform.Bytes(selectTransformer(enc), buf); err == nil || len(dec) > 0 {
			buf = dec
		}
	}
	buf = bytes.TrimLeft(buf, "\r\n")

	if bytes.HasPrefix(buf, []byte("[Script Info]")) {
		return FormatASS, ProbeScoreMax
	}

	buf = bytes.TrimLeft(buf, " \t\r\n")
	if !bytes.HasPrefix(buf, []byte("<")) {
		return FormatUnknown, 0
	}
	loc := ttRootRe.FindIndex(buf)
	switch {
	case loc == nil:
		return FormatUnknown, 0
	case loc[0] == 0 || bytes.HasPrefix(buf, []byte("<?xml")):
		return FormatTTML, ProbeScoreMax
	}
	// comments or doctype in front of root
	return FormatTTML, ProbeScoreMax / 2
}
