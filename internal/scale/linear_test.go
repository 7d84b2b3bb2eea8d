package scale

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLinearScaleAndInvert(t *testing.T) {
	l := NewLinear(100, 200, 0, 800)

	assert.InDelta(t, 0.0, l.Scale(100), 1e-9)
	assert.InDelta(t, 800.0, l.Scale(200), 1e-9)
	assert.InDelta(t, 400.0, l.Scale(150), 1e-9)

	for _, v := range []float64{100, 123.456, 150, 199.999, 200, 250, 50} {
		assert.InDelta(t, v, l.Invert(l.Scale(v)), 1e-9, "round trip for %v", v)
	}
}

func TestLinearReversedRange(t *testing.T) {
	// Volume axes run top-down: larger values map to smaller y.
	l := NewLinear(0, 100, 500, 0)

	assert.InDelta(t, 500.0, l.Scale(0), 1e-9)
	assert.InDelta(t, 0.0, l.Scale(100), 1e-9)
	assert.InDelta(t, 375.0, l.Scale(25), 1e-9)
	assert.InDelta(t, 25.0, l.Invert(375), 1e-9)
}

func TestLinearClamp(t *testing.T) {
	l := NewLinear(0, 10, 0, 100)
	l.SetClamp(true)

	assert.InDelta(t, 0.0, l.Scale(-5), 1e-9)
	assert.InDelta(t, 100.0, l.Scale(20), 1e-9)
	assert.InDelta(t, 50.0, l.Scale(5), 1e-9)

	// Reversed range clamps to the same interval.
	r := NewLinear(0, 10, 100, 0)
	r.SetClamp(true)
	assert.InDelta(t, 100.0, r.Scale(-5), 1e-9)
	assert.InDelta(t, 0.0, r.Scale(20), 1e-9)
}

func TestLinearDegenerateDomain(t *testing.T) {
	l := NewLinear(42, 42, 0, 100)

	assert.InDelta(t, 0.0, l.Scale(42), 1e-9)
	assert.InDelta(t, 0.0, l.Scale(1234), 1e-9)
	assert.InDelta(t, 42.0, l.Invert(77), 1e-9)

	ticks := l.Ticks(10)
	require.Len(t, ticks, 1)
	assert.InDelta(t, 42.0, ticks[0], 1e-9)
	assert.Equal(t, "42", l.TickFormat(10)(42))
}

func TestTicksNiceSteps(t *testing.T) {
	cases := []struct {
		d0, d1 float64
		count  int
		want   []float64
	}{
		{0, 100, 10, []float64{0, 10, 20, 30, 40, 50, 60, 70, 80, 90, 100}},
		{0, 100, 4, []float64{0, 20, 40, 60, 80, 100}},
		{1.3, 9.7, 5, []float64{2, 4, 6, 8}},
		{0, 1, 10, []float64{0, 0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7, 0.8, 0.9, 1}},
		{0, 0.1, 5, []float64{0, 0.02, 0.04, 0.06, 0.08, 0.1}},
	}
	for _, tc := range cases {
		l := NewLinear(tc.d0, tc.d1, 0, 100)
		got := l.Ticks(tc.count)
		require.Len(t, got, len(tc.want), "domain [%v,%v] count %d: %v", tc.d0, tc.d1, tc.count, got)
		for i := range tc.want {
			assert.InDelta(t, tc.want[i], got[i], 1e-9)
		}
	}
}

func TestTicksStayInsideDomainAndAscend(t *testing.T) {
	l := NewLinear(13.7, 91.2, 0, 640)
	ticks := l.Ticks(7)
	require.NotEmpty(t, ticks)
	for i, v := range ticks {
		assert.GreaterOrEqual(t, v, 13.7)
		assert.LessOrEqual(t, v, 91.2)
		if i > 0 {
			assert.Greater(t, v, ticks[i-1])
		}
	}

	// A reversed domain still yields ascending ticks within the same bounds.
	r := NewLinear(91.2, 13.7, 0, 640)
	rev := r.Ticks(7)
	assert.Equal(t, ticks, rev)
}

func TestTicksTreatsBadCountAsOne(t *testing.T) {
	l := NewLinear(0, 100, 0, 100)
	got := l.Ticks(0)
	require.NotEmpty(t, got)
	assert.Equal(t, l.Ticks(1), got)
}

func TestTickFormatPrecisionFollowsStep(t *testing.T) {
	whole := NewLinear(0, 100, 0, 100).TickFormat(10)
	assert.Equal(t, "20", whole(20))
	assert.Equal(t, "0", whole(0))

	tenths := NewLinear(0, 1, 0, 100).TickFormat(10)
	assert.Equal(t, "0.2", tenths(0.2))
	assert.Equal(t, "1.0", tenths(1))

	hundredths := NewLinear(0, 0.1, 0, 100).TickFormat(5)
	assert.Equal(t, "0.04", hundredths(0.04))
}

func TestTickFormatKeepsTicksDistinct(t *testing.T) {
	for _, tc := range []struct {
		d0, d1 float64
		count  int
	}{
		{0, 1, 10},
		{0, 0.001, 8},
		{99.95, 100.05, 10},
		{-5, 5, 20},
	} {
		l := NewLinear(tc.d0, tc.d1, 0, 1000)
		ticks := l.Ticks(tc.count)
		format := l.TickFormat(tc.count)
		seen := make(map[string]bool, len(ticks))
		for _, v := range ticks {
			s := format(v)
			require.False(t, seen[s], "duplicate label %q for domain [%v,%v] count %d", s, tc.d0, tc.d1, tc.count)
			seen[s] = true
		}
	}
}
