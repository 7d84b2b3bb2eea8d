// Package scale maps data values to device-pixel coordinates and back.
package scale

import (
	"math"
	"strconv"
)

// Tick step mantissas are restricted to 1, 2 and 5 times a power of ten.
// A candidate step is rounded to whichever of those its mantissa is
// closest to on a log scale, hence the square-root thresholds.
var (
	e10 = math.Sqrt(50)
	e5  = math.Sqrt(10)
	e2  = math.Sqrt(2)
)

// Linear is an invertible affine mapping from a data domain to a pixel
// range. The zero value is unusable; construct with NewLinear.
type Linear struct {
	d0, d1 float64
	r0, r1 float64
	clamp  bool
}

func NewLinear(d0, d1, r0, r1 float64) *Linear {
	return &Linear{d0: d0, d1: d1, r0: r0, r1: r1}
}

func (l *Linear) Domain() (float64, float64) { return l.d0, l.d1 }
func (l *Linear) Range() (float64, float64)  { return l.r0, l.r1 }

func (l *Linear) SetDomain(d0, d1 float64) { l.d0, l.d1 = d0, d1 }
func (l *Linear) SetRange(r0, r1 float64)  { l.r0, l.r1 = r0, r1 }

// SetClamp restricts Scale output to the range endpoints. Invert is never
// clamped.
func (l *Linear) SetClamp(v bool) { l.clamp = v }

// Scale maps a domain value to its pixel coordinate. A degenerate domain
// maps everything to the start of the range.
func (l *Linear) Scale(v float64) float64 {
	if l.d1 == l.d0 {
		return l.r0
	}
	t := (v - l.d0) / (l.d1 - l.d0)
	px := l.r0 + t*(l.r1-l.r0)
	if l.clamp {
		lo, hi := l.r0, l.r1
		if hi < lo {
			lo, hi = hi, lo
		}
		px = math.Min(math.Max(px, lo), hi)
	}
	return px
}

// Invert maps a pixel coordinate back to its domain value.
func (l *Linear) Invert(px float64) float64 {
	if l.r1 == l.r0 {
		return l.d0
	}
	t := (px - l.r0) / (l.r1 - l.r0)
	return l.d0 + t*(l.d1-l.d0)
}

// Ticks returns about count nicely rounded values inside the domain, in
// ascending order regardless of domain direction.
func (l *Linear) Ticks(count int) []float64 {
	if count < 1 {
		count = 1
	}
	lo, hi := l.d0, l.d1
	if hi < lo {
		lo, hi = hi, lo
	}
	if lo == hi {
		return []float64{lo}
	}
	step := tickIncrement(lo, hi, count)
	if step == 0 || math.IsNaN(step) || math.IsInf(step, 0) {
		return nil
	}
	var out []float64
	if step > 0 {
		start := math.Ceil(lo / step)
		stop := math.Floor(hi / step)
		for i := start; i <= stop; i++ {
			out = append(out, i*step)
		}
	} else {
		// Sub-unit steps arrive encoded as negative reciprocals; dividing
		// by the integer reciprocal keeps the grid arithmetic exact.
		inv := -step
		start := math.Ceil(lo * inv)
		stop := math.Floor(hi * inv)
		for i := start; i <= stop; i++ {
			out = append(out, i/inv)
		}
	}
	return out
}

// TickFormat returns a fixed-precision decimal formatter sized to the tick
// step for count, so any two distinct values produced by Ticks(count)
// format to distinct strings.
func (l *Linear) TickFormat(count int) func(float64) string {
	if count < 1 {
		count = 1
	}
	lo, hi := l.d0, l.d1
	if hi < lo {
		lo, hi = hi, lo
	}
	prec := -1 // shortest exact representation
	if hi > lo {
		step := tickIncrement(lo, hi, count)
		if step < 0 {
			step = 1 / -step
		}
		if e := math.Floor(math.Log10(step)); e < 0 {
			prec = int(-e)
		} else {
			prec = 0
		}
	}
	return func(v float64) string {
		return strconv.FormatFloat(v, 'f', prec, 64)
	}
}

// tickIncrement picks the 1/2/5 step for about count ticks over [lo, hi].
// Steps below one are returned as negative reciprocals.
func tickIncrement(lo, hi float64, count int) float64 {
	step := (hi - lo) / float64(count)
	power := math.Floor(math.Log10(step))
	err := step / math.Pow(10, power)
	factor := 1.0
	switch {
	case err >= e10:
		factor = 10
	case err >= e5:
		factor = 5
	case err >= e2:
		factor = 2
	}
	if power >= 0 {
		return factor * math.Pow(10, power)
	}
	return -math.Pow(10, -power) / factor
}
