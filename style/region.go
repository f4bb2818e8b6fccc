package style

// Region is a named on-screen placement. Placement is implied by alignment of
// the referenced style.
type Region struct {
	Name  string
	Style string
}

// IsZero reports "no region" - full frame default placement.
func (r Region) IsZero() bool {
	return r.Name == ""
}

// Regions holds named region definitions for a single stream.
type Regions struct {
	defs  map[string]Region
	order []string
}

func NewRegions() *Regions {
	return &Regions{defs: make(map[string]Region)}
}

// Define adds (or replaces) region referencing style by name.
func (r *Regions) Define(name, styleName string) Region {
	if _, exists := r.defs[name]; !exists {
		r.order = append(r.order, name)
	}
	reg := Region{Name: name, Style: styleName}
	r.defs[name] = reg
	return reg
}

// Resolve returns region by name. Absent regions resolve to zero Region and
// false, this is never fatal.
func (r *Regions) Resolve(name string) (Region, bool) {
	reg, ok := r.defs[name]
	return reg, ok
}

// All returns regions in definition order.
func (r *Regions) All() []Region {
	out := make([]Region, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.defs[name])
	}
	return out
}

func (r *Regions) Len() int {
	return len(r.defs)
}

func (r *Regions) Reset() {
	clear(r.defs)
	r.order = r.order[:0]
}
