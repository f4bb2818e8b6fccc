package ttml

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/beevik/etree"
	"go.uber.org/zap"

	"ttsub/style"
	"ttsub/subtitle"
	"ttsub/timing"
)

// regionStylePrefix names anonymous styles made of region inline attributes.
const regionStylePrefix = "region:"

// defaultCellRows is TTML default vertical cell resolution.
const defaultCellRows = 15

// params are document level timing and layout parameters.
type params struct {
	clock    timing.Clock
	cellRows int
}

func child(el *etree.Element, tag string) *etree.Element {
	for _, c := range el.ChildElements() {
		if c.Tag == tag && elemVocab(c) == vocabCore {
			return c
		}
	}
	return nil
}

func positiveInt(s string) (int64, error) {
	v, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil || v <= 0 {
		return 0, fmt.Errorf("%q is not a positive integer: %w", s, style.ErrBadValue)
	}
	return v, nil
}

// readParams reads ttp:* attributes of the root element on top of defaults.
func readParams(root *etree.Element, defaults params, res *subtitle.Result) params {
	p := defaults
	where := root.GetPath()

	frameRateSet := false
	if v, ok := attr(root, vocabParameter, "frameRate"); ok {
		if fr, err := positiveInt(v); err != nil {
			res.Report(where, fmt.Errorf("frame rate: %w", err))
		} else {
			p.clock.FrameRate = fr
			frameRateSet = true
		}
	}
	if v, ok := attr(root, vocabParameter, "tickRate"); ok {
		if tr, err := positiveInt(v); err != nil {
			res.Report(where, fmt.Errorf("tick rate: %w", err))
		} else {
			p.clock.TickRate = tr
		}
	} else if frameRateSet {
		p.clock.TickRate = p.clock.FrameRate
	}
	if v, ok := attr(root, vocabParameter, "cellResolution"); ok {
		f := strings.Fields(v)
		if len(f) != 2 {
			res.Report(where, fmt.Errorf("cell resolution %q: %w", v, style.ErrBadValue))
		} else if rows, err := positiveInt(f[1]); err != nil {
			res.Report(where, fmt.Errorf("cell resolution: %w", err))
		} else {
			p.cellRows = int(rows)
		}
	}
	return p
}

func (p params) cellHeight() float64 {
	rows := p.cellRows
	if rows <= 0 {
		rows = defaultCellRows
	}
	return float64(style.DefaultPlayResY) / float64(rows)
}

// loadHead defines styles and regions found in head element. Definitions are
// added to whatever tables already hold, later definitions replace earlier
// ones with the same id.
func (d *Decoder) loadHead(head *etree.Element, p params, res *subtitle.Result) {
	var defined []string

	if styling := child(head, "styling"); styling != nil {
		for _, el := range styling.ChildElements() {
			if el.Tag != "style" || elemVocab(el) != vocabCore {
				continue
			}
			id := xmlID(el)
			if id == "" {
				res.Report(el.GetPath(), fmt.Errorf("style without xml:id: %w", style.ErrBadValue))
				continue
			}
			attrs := inlineAttributes(el, style.DefaultFontSize, p.cellHeight(), res)
			d.styles.Define(id, attrs, styleRefs(el)...)
			defined = append(defined, id)
		}
	}

	if layout := child(head, "layout"); layout != nil {
		for _, el := range layout.ChildElements() {
			if el.Tag != "region" || elemVocab(el) != vocabCore {
				continue
			}
			id := xmlID(el)
			if id == "" {
				res.Report(el.GetPath(), fmt.Errorf("region without xml:id: %w", style.ErrBadValue))
				continue
			}
			refs := styleRefs(el)
			attrs := inlineAttributes(el, style.DefaultFontSize, p.cellHeight(), res)
			// nested style elements are region's own styling
			for _, s := range el.ChildElements() {
				if s.Tag == "style" && elemVocab(s) == vocabCore {
					attrs = attrs.Merge(inlineAttributes(s, style.DefaultFontSize, p.cellHeight(), res))
				}
			}

			styleName := ""
			switch {
			case attrs.IsEmpty() && len(refs) == 1:
				styleName = refs[0]
			case !attrs.IsEmpty() || len(refs) > 1:
				styleName = regionStylePrefix + id
				d.styles.Define(styleName, attrs, refs...)
				defined = append(defined, styleName)
			}
			d.regions.Define(id, styleName)
		}
	}

	// references are checked after everything is defined, styles may refer
	// to the ones defined later
	for _, name := range defined {
		if _, err := d.styles.Resolve(name); err != nil {
			res.Report("head", err)
		}
	}
	d.log.Debug("Head loaded", zap.Int("styles", d.styles.Len()), zap.Int("regions", d.regions.Len()))
}
