// Package timing converts timed-text time expressions into integer ticks and
// provides the window arithmetic used for nested timing scopes.
package timing

import (
	"errors"
	"fmt"
	"math"
	"math/big"
	"regexp"
	"strconv"
	"strings"
)

// Ticks is a point in time (or a duration) expressed in the tick base of a
// Clock.
type Ticks int64

// Unbounded marks an open ended window or an undetermined duration.
const Unbounded Ticks = math.MaxInt64

const (
	// DefaultRate is the tick base used by decoders unless configured
	// otherwise - milliseconds.
	DefaultRate = 1000
	// DefaultFrameRate is used for frame based expressions when document does
	// not specify one.
	DefaultFrameRate = 30
	// DefaultTickRate is the TTML default for "t" offsets when no frame rate
	// is known.
	DefaultTickRate = 1
)

// ErrUnparseable is returned (wrapped) for any time expression which cannot be
// converted to ticks.
var ErrUnparseable = errors.New("unparseable time expression")

// Clock describes the tick base and the rates necessary to interpret frame
// and tick based expressions. It is fixed when a decoding context is created.
type Clock struct {
	Rate      int64 // output ticks per second
	FrameRate int64 // frames per second for "f" offsets and HH:MM:SS:FF
	TickRate  int64 // document ticks per second for "t" offsets
}

// NewClock returns clock with requested output rate and default frame and
// tick rates.
func NewClock(rate int64) Clock {
	if rate <= 0 {
		rate = DefaultRate
	}
	return Clock{Rate: rate, FrameRate: DefaultFrameRate, TickRate: DefaultTickRate}
}

var (
	clockTimeRe  = regexp.MustCompile(`^(\d+):(\d{2}):(\d{2})(?:\.(\d+)|:(\d+))?$`)
	offsetTimeRe = regexp.MustCompile(`^(\d+)(?:\.(\d+))?(h|ms|m|s|f|t)$`)
)

// Parse converts clock-time (HH:MM:SS, HH:MM:SS.fraction, HH:MM:SS:FF) or
// offset-time (number followed by one of h, m, s, ms, f, t) into ticks.
func (c Clock) Parse(text string) (Ticks, error) {
	s := strings.TrimSpace(text)
	if s == "" {
		return 0, fmt.Errorf("empty expression: %w", ErrUnparseable)
	}
	if strings.HasPrefix(s, "-") {
		return 0, fmt.Errorf("negative time %q: %w", text, ErrUnparseable)
	}
	if m := clockTimeRe.FindStringSubmatch(s); m != nil {
		return c.parseClockTime(text, m)
	}
	if m := offsetTimeRe.FindStringSubmatch(s); m != nil {
		return c.parseOffsetTime(text, m)
	}
	return 0, fmt.Errorf("malformed time %q: %w", text, ErrUnparseable)
}

func (c Clock) parseClockTime(text string, m []string) (Ticks, error) {
	h, err := strconv.ParseInt(m[1], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("hours in %q: %w", text, ErrUnparseable)
	}
	// two digit fields always parse
	mm, _ := strconv.ParseInt(m[2], 10, 64)
	ss, _ := strconv.ParseInt(m[3], 10, 64)
	if mm >= 60 || ss >= 60 {
		return 0, fmt.Errorf("minutes or seconds out of range in %q: %w", text, ErrUnparseable)
	}
	if h > math.MaxInt64/3600 {
		return 0, fmt.Errorf("hours overflow in %q: %w", text, ErrUnparseable)
	}
	whole := strconv.FormatInt(h*3600+mm*60+ss, 10)

	if m[5] == "" {
		return scale(text, whole, m[4], c.Rate, 1)
	}

	// frames
	if c.FrameRate <= 0 {
		return 0, fmt.Errorf("frame based time %q without frame rate: %w", text, ErrUnparseable)
	}
	frames, err := strconv.ParseInt(m[5], 10, 64)
	if err != nil || frames >= c.FrameRate {
		return 0, fmt.Errorf("frames out of range in %q: %w", text, ErrUnparseable)
	}
	base, err := scale(text, whole, "", c.Rate, 1)
	if err != nil {
		return 0, err
	}
	part, err := scale(text, m[5], "", c.Rate, c.FrameRate)
	if err != nil {
		return 0, err
	}
	return Add(base, part), nil
}

func (c Clock) parseOffsetTime(text string, m []string) (Ticks, error) {
	var num, den int64
	switch m[3] {
	case "h":
		num, den = 3600*c.Rate, 1
	case "m":
		num, den = 60*c.Rate, 1
	case "s":
		num, den = c.Rate, 1
	case "ms":
		num, den = c.Rate, 1000
	case "f":
		num, den = c.Rate, c.FrameRate
	case "t":
		num, den = c.Rate, c.TickRate
	}
	if den <= 0 {
		return 0, fmt.Errorf("rate for unit %q is not set in %q: %w", m[3], text, ErrUnparseable)
	}
	return scale(text, m[1], m[2], num, den)
}

// scale computes round((whole.frac) * num / den) exactly.
func scale(text, whole, frac string, num, den int64) (Ticks, error) {
	n, ok := new(big.Int).SetString(whole+frac, 10)
	if !ok {
		return 0, fmt.Errorf("malformed number in %q: %w", text, ErrUnparseable)
	}
	d := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(len(frac))), nil)
	d.Mul(d, big.NewInt(den))

	n.Mul(n, big.NewInt(num))
	n.Add(n, new(big.Int).Rsh(d, 1))
	n.Quo(n, d)
	if !n.IsInt64() || n.Int64() == int64(Unbounded) {
		return 0, fmt.Errorf("time %q overflows: %w", text, ErrUnparseable)
	}
	return Ticks(n.Int64()), nil
}

// Rescale converts value expressed in "from" ticks per second into "to" ticks
// per second rounding to the nearest tick. Unbounded stays unbounded.
func Rescale(v Ticks, from, to int64) Ticks {
	if v == Unbounded || from == to || from <= 0 || to <= 0 {
		return v
	}
	n := new(big.Int).Mul(big.NewInt(int64(v)), big.NewInt(to))
	half := from / 2
	if v < 0 {
		half = -half
	}
	n.Add(n, big.NewInt(half))
	n.Quo(n, big.NewInt(from))
	if !n.IsInt64() {
		if v < 0 {
			return math.MinInt64
		}
		return Unbounded
	}
	return Ticks(n.Int64())
}

// Add sums two tick values saturating at Unbounded.
func Add(a, b Ticks) Ticks {
	if a == Unbounded || b == Unbounded {
		return Unbounded
	}
	if b > 0 && a > Unbounded-b {
		return Unbounded
	}
	return a + b
}

// Format renders ticks as HH:MM:SS.mmm, used for diagnostics and dumps.
func Format(t Ticks, rate int64) string {
	if t == Unbounded {
		return "unbounded"
	}
	if rate <= 0 {
		rate = DefaultRate
	}
	sign := ""
	if t < 0 {
		sign, t = "-", -t
	}
	ms := Rescale(t, rate, 1000)
	return fmt.Sprintf("%s%02d:%02d:%02d.%03d", sign, ms/3600000, ms/60000%60, ms/1000%60, ms%1000)
}
