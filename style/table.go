package style

import (
	"errors"
	"fmt"
	"slices"

	"go.uber.org/multierr"
)

var (
	// ErrUnknownStyle is a recoverable warning - reference to undefined style,
	// default is used instead.
	ErrUnknownStyle = errors.New("unknown style reference")
	// ErrCyclicStyle is reported when inheritance chain revisits a style being
	// resolved or is deeper than allowed, default is used instead.
	ErrCyclicStyle = errors.New("cyclic style reference")
)

// DefaultMaxDepth limits inheritance chains.
const DefaultMaxDepth = 64

type definition struct {
	attrs   Attributes
	parents []string
}

// Table holds named style definitions for a single stream. Not safe for
// concurrent use.
type Table struct {
	defs     map[string]definition
	order    []string
	maxDepth int
}

// NewTable creates empty table. maxDepth <= 0 selects DefaultMaxDepth.
func NewTable(maxDepth int) *Table {
	if maxDepth <= 0 {
		maxDepth = DefaultMaxDepth
	}
	return &Table{defs: make(map[string]definition), maxDepth: maxDepth}
}

// Define adds (or replaces) named style. Parents are applied in order, so
// attributes of a later parent take precedence over earlier ones, and style's
// own attributes take precedence over all parents. Returns style as it
// resolves right now, resolution problems are reported by Resolve.
func (t *Table) Define(name string, attrs Attributes, parents ...string) Style {
	if _, exists := t.defs[name]; !exists {
		t.order = append(t.order, name)
	}
	t.defs[name] = definition{attrs: attrs, parents: uniqueParents(parents)}
	s, _ := t.Resolve(name)
	return s
}

// uniqueParents drops repeated references keeping the last one, which is the
// one taking precedence.
func uniqueParents(parents []string) []string {
	out := make([]string, 0, len(parents))
	for i, p := range parents {
		if !slices.Contains(parents[i+1:], p) {
			out = append(out, p)
		}
	}
	return out
}

// Has reports if style with this name was defined.
func (t *Table) Has(name string) bool {
	_, ok := t.defs[name]
	return ok
}

// Len returns number of defined styles.
func (t *Table) Len() int {
	return len(t.defs)
}

// Names returns defined style names in definition order.
func (t *Table) Names() []string {
	return append([]string(nil), t.order...)
}

// Resolve computes complete style for name. Returned style is always usable:
// on unknown or cyclic references it is the default style carrying requested
// name and error describes the problem. Unknown parents are skipped and
// reported the same way.
func (t *Table) Resolve(name string) (Style, error) {
	if name == "" {
		return Default(), nil
	}
	if _, ok := t.defs[name]; !ok && name == DefaultName {
		return Default(), nil
	}

	attrs, _, err := t.newResolver().walk(name, 0)
	if errors.Is(err, ErrCyclicStyle) || !t.Has(name) {
		s := Default()
		s.Name = name
		return s, err
	}
	s := Default().With(attrs)
	s.Name = name
	return s, err
}

// Attributes resolves name into attributes explicitly specified through its
// inheritance chain (default is not applied).
func (t *Table) Attributes(name string) (Attributes, error) {
	attrs, _, err := t.newResolver().walk(name, 0)
	return attrs, err
}

// resolved is a finished subtree. height is the length of the longest
// inheritance chain below the style, needed to apply depth limit when the
// same style is reached again deeper.
type resolved struct {
	attrs  Attributes
	height int
}

// resolver walks inheritance graph once per call: every style is resolved at
// most once and its warnings are reported once.
type resolver struct {
	t        *Table
	visiting map[string]struct{}
	done     map[string]resolved
}

func (t *Table) newResolver() *resolver {
	return &resolver{
		t:        t,
		visiting: make(map[string]struct{}),
		done:     make(map[string]resolved),
	}
}

func (r *resolver) depthError(name string) error {
	return fmt.Errorf("style %q: inheritance deeper than %d: %w", name, r.t.maxDepth, ErrCyclicStyle)
}

// walk returns resolved attributes of name reached at depth together with
// height of its subtree. Subsequent visits of already resolved style produce
// no warnings.
func (r *resolver) walk(name string, depth int) (Attributes, int, error) {
	if depth >= r.t.maxDepth {
		return Attributes{}, 0, r.depthError(name)
	}
	if res, ok := r.done[name]; ok {
		if depth+res.height >= r.t.maxDepth {
			return Attributes{}, 0, r.depthError(name)
		}
		return res.attrs, res.height, nil
	}
	def, ok := r.t.defs[name]
	if !ok {
		r.done[name] = resolved{}
		return Attributes{}, 0, fmt.Errorf("style %q: %w", name, ErrUnknownStyle)
	}
	if _, ok := r.visiting[name]; ok {
		return Attributes{}, 0, fmt.Errorf("style %q: %w", name, ErrCyclicStyle)
	}
	r.visiting[name] = struct{}{}
	defer delete(r.visiting, name)

	var (
		acc      Attributes
		height   int
		warnings error
	)
	for _, parent := range def.parents {
		pa, ph, err := r.walk(parent, depth+1)
		if errors.Is(err, ErrCyclicStyle) {
			return Attributes{}, 0, err
		}
		if err != nil {
			warnings = multierr.Append(warnings, err)
		}
		height = max(height, ph+1)
		if !r.t.Has(parent) {
			continue
		}
		acc = acc.Merge(pa)
	}
	acc = acc.Merge(def.attrs)
	r.done[name] = resolved{attrs: acc, height: height}
	return acc, height, warnings
}

// Styles returns all defined styles resolved, in definition order.
func (t *Table) Styles() []Style {
	out := make([]Style, 0, len(t.order))
	for _, name := range t.order {
		s, _ := t.Resolve(name)
		out = append(out, s)
	}
	return out
}

// Reset drops all definitions.
func (t *Table) Reset() {
	clear(t.defs)
	t.order = t.order[:0]
}
