package ttml

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/beevik/etree"

	"ttsub/style"
	"ttsub/subtitle"
	"ttsub/timing"
)

var errUnknownElement = errors.New("unknown element skipped")

// frame is the scope active while visiting an element. Frames are plain
// values, child frames are derived from parent ones and discarded on leave.
type frame struct {
	style    style.Style
	region   style.Region
	origin   timing.Ticks  // unclipped begin, children are timed relative to it
	window   timing.Window // active interval inherited by children
	own      timing.Window // active interval of element's own text
	lang     string
	preserve bool
	block    bool // inside of p
}

// rootFrame is the scope of the whole document for packet active in window.
func rootFrame(window timing.Window) frame {
	return frame{
		style:  style.Default(),
		origin: window.Begin,
		window: window,
		own:    window,
	}
}

type elementKind int

const (
	kindContainer elementKind = iota
	kindBlock
	kindBreak
	kindIgnored
	kindUnknown
)

func kindOf(el *etree.Element) elementKind {
	if elemVocab(el) != vocabCore {
		// metadata and extensions
		return kindIgnored
	}
	switch el.Tag {
	case "body", "div", "span":
		return kindContainer
	case "p":
		return kindBlock
	case "br":
		return kindBreak
	case "metadata", "head", "set", "animate", "animation", "image", "audio", "chunk", "data", "source", "font", "resources", "initial":
		return kindIgnored
	}
	return kindUnknown
}

// walker traverses body of a single document in document order with an
// explicit stack of frames.
type walker struct {
	d      *Decoder
	params params
	res    *subtitle.Result
	em     *emitter
}

func (w *walker) timeAttr(el *etree.Element, key string) (timing.Ticks, bool) {
	v, ok := attr(el, vocabCore, key)
	if !ok {
		return 0, false
	}
	t, err := w.params.clock.Parse(v)
	if err != nil {
		// unparseable expression behaves as if it was not there
		w.res.Report(el.GetPath(), fmt.Errorf("%s: %w", key, err))
		return 0, false
	}
	return t, true
}

// timed computes element timing relative to parent frame. Element with end
// before begin has empty own window but does not restrict its children.
func (w *walker) timed(el *etree.Element, parent frame) (timing.Ticks, timing.Window, timing.Window) {
	begin, hasBegin := w.timeAttr(el, "begin")
	end, hasEnd := w.timeAttr(el, "end")
	dur, hasDur := w.timeAttr(el, "dur")
	if !hasBegin && !hasEnd && !hasDur {
		return parent.origin, parent.window, parent.window
	}

	absBegin := timing.Add(parent.origin, begin)
	absEnd := timing.Unbounded
	if hasEnd {
		absEnd = timing.Add(parent.origin, end)
	}
	if hasDur {
		absEnd = min(absEnd, timing.Add(absBegin, dur))
	}

	own := timing.Window{Begin: absBegin, End: absEnd}
	if absEnd < absBegin {
		return parent.origin, parent.window, own
	}
	clipped := own.Intersect(parent.window)
	return absBegin, clipped, clipped
}

// enter derives frame of el from its parent frame.
func (w *walker) enter(el *etree.Element, parent frame) frame {
	f := parent
	f.origin, f.window, f.own = w.timed(el, parent)

	if name, ok := attr(el, vocabCore, "region"); ok {
		if reg, found := w.d.regions.Resolve(strings.TrimSpace(name)); found {
			f.region = reg
			if reg.Style != "" {
				attrs, err := w.d.styles.Attributes(reg.Style)
				w.res.Report(el.GetPath(), err)
				f.style = f.style.With(attrs)
			}
		} else {
			w.res.Report(el.GetPath(), fmt.Errorf("region %q not defined, using default placement", name))
			f.region = style.Region{}
		}
	}

	for _, ref := range styleRefs(el) {
		attrs, err := w.d.styles.Attributes(ref)
		w.res.Report(el.GetPath(), err)
		f.style = f.style.With(attrs)
		f.style.Name = ref
	}
	f.style = f.style.With(inlineAttributes(el, parent.style.FontSize, w.params.cellHeight(), w.res))

	if lang, ok := attr(el, vocabXML, "lang"); ok {
		f.lang = strings.TrimSpace(lang)
	}
	if space, ok := attr(el, vocabXML, "space"); ok {
		f.preserve = strings.TrimSpace(space) == "preserve"
	}
	return f
}

type visit struct {
	el    *etree.Element
	next  int
	f     frame
	block bool // element opened a block
}

// walk visits body and everything below it. Context is checked before every
// block.
func (w *walker) walk(ctx context.Context, body *etree.Element, root frame) error {
	stack := []visit{{el: body, f: w.enter(body, root)}}
	for len(stack) > 0 {
		top := &stack[len(stack)-1]
		if top.next >= len(top.el.Child) {
			if top.block {
				w.em.end()
			}
			stack = stack[:len(stack)-1]
			continue
		}
		tok := top.el.Child[top.next]
		top.next++

		switch t := tok.(type) {
		case *etree.CharData:
			w.text(t.Data, top.f, top.el)
		case *etree.Element:
			kind := kindOf(t)
			switch kind {
			case kindIgnored:
				continue
			case kindBreak:
				if top.f.block {
					w.em.lineBreak()
				}
				continue
			case kindUnknown:
				w.res.Report(t.GetPath(), errUnknownElement)
			}

			f := w.enter(t, top.f)
			opens := kind == kindBlock && !top.f.block
			if opens {
				if err := ctx.Err(); err != nil {
					return err
				}
				f.block = true
				w.em.begin(f)
			}
			stack = append(stack, visit{el: t, f: f, block: opens})
		}
	}
	return nil
}

func (w *walker) text(data string, f frame, el *etree.Element) {
	if !f.block {
		if strings.TrimSpace(data) != "" {
			w.res.Report(el.GetPath(), errors.New("text outside of paragraph ignored"))
		}
		return
	}
	w.em.text(data, f)
}
