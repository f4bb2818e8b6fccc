package demux

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/ianaindex"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/encoding/unicode/utf32"
	"golang.org/x/text/transform"
)

type srcEncoding int

const (
	encUnknown srcEncoding = iota
	encUTF8
	encUTF16BigEndian
	encUTF16LittleEndian
	encUTF32BigEndian
	encUTF32LittleEndian
)

func (e srcEncoding) String() string {
	switch e {
	case encUTF8:
		return "UTF-8"
	case encUTF16BigEndian:
		return "UTF-16BE"
	case encUTF16LittleEndian:
		return "UTF-16LE"
	case encUTF32BigEndian:
		return "UTF-32BE"
	case encUTF32LittleEndian:
		return "UTF-32LE"
	}
	return "unknown"
}

func isUTF8BOM3(buf []byte) bool {
	return bytes.HasPrefix(buf, []byte{0xEF, 0xBB, 0xBF})
}

func isUTF16BigEndianBOM2(buf []byte) bool {
	return bytes.HasPrefix(buf, []byte{0xFE, 0xFF})
}

func isUTF16LittleEndianBOM2(buf []byte) bool {
	return bytes.HasPrefix(buf, []byte{0xFF, 0xFE})
}

func isUTF32BigEndianBOM4(buf []byte) bool {
	return bytes.HasPrefix(buf, []byte{0x00, 0x00, 0xFE, 0xFF})
}

func isUTF32LittleEndianBOM4(buf []byte) bool {
	return bytes.HasPrefix(buf, []byte{0xFF, 0xFE, 0x00, 0x00})
}

// detectUTF looks for byte order mark. UTF-32LE must be checked before
// UTF-16LE, they share first two bytes.
func detectUTF(buf []byte) srcEncoding {
	switch {
	case isUTF8BOM3(buf):
		return encUTF8
	case isUTF32BigEndianBOM4(buf):
		return encUTF32BigEndian
	case isUTF32LittleEndianBOM4(buf):
		return encUTF32LittleEndian
	case isUTF16BigEndianBOM2(buf):
		return encUTF16BigEndian
	case isUTF16LittleEndianBOM2(buf):
		return encUTF16LittleEndian
	}
	return encUnknown
}

// selectTransformer returns transformer producing UTF-8 without byte order
// mark for detected encoding, nil when there is no byte order mark.
func selectTransformer(enc srcEncoding) transform.Transformer {
	switch enc {
	case encUTF32BigEndian:
		return utf32.UTF32(utf32.BigEndian, utf32.ExpectBOM).NewDecoder()
	case encUTF32LittleEndian:
		return utf32.UTF32(utf32.LittleEndian, utf32.ExpectBOM).NewDecoder()
	case encUTF8, encUTF16BigEndian, encUTF16LittleEndian:
		return unicode.BOMOverride(transform.Nop)
	}
	return nil
}

// selectReader returns reader producing UTF-8 without byte order mark. When
// there is no byte order mark fallback decoder is used, nil fallback means
// input is taken as is.
func selectReader(r io.Reader, enc srcEncoding, fallback *encoding.Decoder) io.Reader {
	if t := selectTransformer(enc); t != nil {
		return transform.NewReader(r, t)
	}
	if fallback != nil {
		return transform.NewReader(r, fallback)
	}
	return r
}

// charsetDecoder finds decoder for IANA character set name.
func charsetDecoder(name string) (*encoding.Decoder, error) {
	if strings.TrimSpace(name) == "" {
		return nil, nil
	}
	enc, err := ianaindex.IANA.Encoding(name)
	if err != nil {
		return nil, fmt.Errorf("unknown character set %q: %w", name, err)
	}
	if enc == nil {
		return nil, fmt.Errorf("character set %q is not supported", name)
	}
	return enc.NewDecoder(), nil
}
