package timing

// Window is a half open active interval [Begin, End).
type Window struct {
	Begin Ticks
	End   Ticks
}

// Forever is a window without bounds, used as the root scope when container
// does not provide timing.
var Forever = Window{Begin: 0, End: Unbounded}

// Intersect clamps child window to its parent. Result may be empty, it is up
// to the caller to decide what to do with it.
func Intersect(parentBegin, parentEnd, childBegin, childEnd Ticks) (Ticks, Ticks) {
	return max(parentBegin, childBegin), min(parentEnd, childEnd)
}

// Intersect returns part of w which is inside of parent.
func (w Window) Intersect(parent Window) Window {
	b, e := Intersect(parent.Begin, parent.End, w.Begin, w.End)
	return Window{Begin: b, End: e}
}

// Empty reports windows which would never be active.
func (w Window) Empty() bool {
	return w.Begin >= w.End
}

// Duration returns window length or Unbounded for open ended windows.
func (w Window) Duration() Ticks {
	if w.End == Unbounded {
		return Unbounded
	}
	if w.Empty() {
		return 0
	}
	return w.End - w.Begin
}

// Within reports whether w is a subset of (or equal to) outer.
func (w Window) Within(outer Window) bool {
	return w.Begin >= outer.Begin && w.End <= outer.End
}
