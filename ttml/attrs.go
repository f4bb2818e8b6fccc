package ttml

import (
	"fmt"
	"strings"

	"github.com/beevik/etree"

	"ttsub/style"
	"ttsub/subtitle"
)

// attribute vocabularies
type vocab int

const (
	vocabCore vocab = iota
	vocabXML
	vocabStyling
	vocabParameter
	vocabOther
)

// Documents in the wild use TTML1, TTML2 and the old TTAF namespaces with
// whatever prefixes, so namespace URIs are matched by fragment and prefixes
// are only used when the namespace cannot be resolved.
func classify(space, uri string) vocab {
	if space == "xml" {
		return vocabXML
	}
	if uri == "" {
		switch space {
		case "":
			return vocabCore
		case "tts":
			return vocabStyling
		case "ttp":
			return vocabParameter
		}
		return vocabOther
	}
	_, frag, _ := strings.Cut(uri, "#")
	switch frag {
	case "":
		if strings.Contains(uri, "ttml") || strings.Contains(uri, "ttaf1") {
			return vocabCore
		}
	case "styling":
		return vocabStyling
	case "parameter":
		return vocabParameter
	}
	return vocabOther
}

func attrVocab(a *etree.Attr) vocab {
	if a.Space == "" {
		// unprefixed attributes are in no namespace
		return vocabCore
	}
	return classify(a.Space, a.NamespaceURI())
}

func elemVocab(el *etree.Element) vocab {
	return classify(el.Space, el.NamespaceURI())
}

// attr returns value of attribute with local name key from vocabulary v.
func attr(el *etree.Element, v vocab, key string) (string, bool) {
	for i := range el.Attr {
		a := &el.Attr[i]
		if a.Key == key && attrVocab(a) == v {
			return a.Value, true
		}
	}
	return "", false
}

func xmlID(el *etree.Element) string {
	id, _ := attr(el, vocabXML, "id")
	return strings.TrimSpace(id)
}

func styleRefs(el *etree.Element) []string {
	v, _ := attr(el, vocabCore, "style")
	return strings.Fields(v)
}

// fontFamily picks first family from the list, generic TTML families are
// replaced with common font names.
func fontFamily(value string) string {
	first, _, _ := strings.Cut(value, ",")
	first = strings.Trim(strings.TrimSpace(first), `"'`)
	switch first {
	case "", "default", "sansSerif", "proportionalSansSerif":
		return style.DefaultFont
	case "monospace", "monospaceSansSerif":
		return "Courier New"
	case "serif", "proportionalSerif", "monospaceSerif":
		return "Times New Roman"
	}
	return first
}

// inlineAttributes collects tts:* attributes of el. Relative font sizes are
// computed against baseSize. Unsupported styling attributes are ignored, bad
// values are reported and skipped.
func inlineAttributes(el *etree.Element, baseSize int, cellHeight float64, res *subtitle.Result) style.Attributes {
	var attrs style.Attributes
	report := func(err error) {
		res.Report(el.GetPath(), err)
	}
	for i := range el.Attr {
		a := &el.Attr[i]
		if attrVocab(a) != vocabStyling {
			continue
		}
		switch a.Key {
		case "fontFamily":
			attrs.SetFontFamily(fontFamily(a.Value))
		case "fontSize":
			sz, err := style.ParseFontSize(a.Value, baseSize, cellHeight)
			if err != nil {
				report(err)
				continue
			}
			attrs.SetFontSize(sz)
		case "fontWeight":
			switch strings.TrimSpace(a.Value) {
			case "bold":
				attrs.SetBold(true)
			case "normal":
				attrs.SetBold(false)
			default:
				report(fmt.Errorf("font weight %q: %w", a.Value, style.ErrBadValue))
			}
		case "fontStyle":
			switch strings.TrimSpace(a.Value) {
			case "italic", "oblique":
				attrs.SetItalic(true)
			case "normal":
				attrs.SetItalic(false)
			default:
				report(fmt.Errorf("font style %q: %w", a.Value, style.ErrBadValue))
			}
		case "color":
			c, err := style.ParseColor(a.Value)
			if err != nil {
				report(err)
				continue
			}
			attrs.SetColor(c)
		case "backgroundColor":
			c, err := style.ParseColor(a.Value)
			if err != nil {
				report(err)
				continue
			}
			attrs.SetBackColor(c)
		case "textAlign":
			h, err := style.ParseTextAlign(a.Value)
			if err != nil {
				report(err)
				continue
			}
			attrs.SetTextAlign(h)
		case "displayAlign":
			v, err := style.ParseDisplayAlign(a.Value)
			if err != nil {
				report(err)
				continue
			}
			attrs.SetDisplayAlign(v)
		}
	}
	return attrs
}
