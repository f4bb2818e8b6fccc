package timing

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
)

// ASSRate is the tick base of SSA/ASS event times - centiseconds.
const ASSRate = 100

var assTimeRe = regexp.MustCompile(`^\s*(\d+):(\d+):(\d+)[.:](\d+)\s*$`)

// ParseASS converts "H:MM:SS.cc" into centiseconds. Fraction is taken as a
// number of centiseconds no matter how many digits it has, which is what
// existing players do.
func ParseASS(text string) (Ticks, error) {
	m := assTimeRe.FindStringSubmatch(text)
	if m == nil {
		return 0, fmt.Errorf("%q: %w", text, ErrUnparseable)
	}
	var v [4]int64
	for i := range v {
		n, err := strconv.ParseInt(m[i+1], 10, 64)
		if err != nil {
			return 0, fmt.Errorf("%q: %w", text, ErrUnparseable)
		}
		v[i] = n
	}
	cs := v[3]
	for i, unit := range [...]int64{360000, 6000, 100} {
		if v[i] > (math.MaxInt64-cs)/unit {
			return 0, fmt.Errorf("%q overflows: %w", text, ErrUnparseable)
		}
		cs += v[i] * unit
	}
	return Ticks(cs), nil
}

// FormatASS renders ticks as "H:MM:SS.cc". Negative values are clamped to
// zero, Unbounded renders as the largest single digit hour time.
func FormatASS(t Ticks, rate int64) string {
	if t == Unbounded {
		return "9:59:59.99"
	}
	cs := Rescale(t, rate, ASSRate)
	if cs < 0 {
		cs = 0
	}
	return fmt.Sprintf("%d:%02d:%02d.%02d", cs/360000, cs/6000%60, cs/100%60, cs%100)
}
