package convert

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starford/bomberos/internal/apperr"
)

func TestConvert_Linear(t *testing.T) {
	cases := []struct {
		value    float64
		from, to string
		want     float64
	}{
		{100, "psi", "bar", 6.89476},
		{1, "bar", "psi", 14.5038},
		{1, "psi", "kPa", 6.89476},
		{1, "bar", "kpa", 100},
		{100, "LPM", "GPM", 26.4172},
		{1, "gpm", "lpm", 3.78541},
		{120, "lpm", "L/s", 2},
		{1, "m", "ft", 3.28084},
		{1, "ft", "m", 0.3048},
		{1, "in", "cm", 2.54},
		{1, "kg", "lb", 2.20462},
		{100, "g", "oz", 3.5274},
		{5, "kg", "kg", 5},
	}
	for _, tc := range cases {
		got, err := Convert(tc.value, tc.from, tc.to)
		require.NoError(t, err, "%s -> %s", tc.from, tc.to)
		assert.InDelta(t, tc.want, got, 1e-3, "%v %s -> %s", tc.value, tc.from, tc.to)
	}
}

func TestConvert_Temperature(t *testing.T) {
	cases := []struct {
		value    float64
		from, to string
		want     float64
	}{
		{100, "c", "f", 212},
		{32, "°F", "°C", 0},
		{0, "celsius", "k", 273.15},
		{0, "K", "C", -273.15},
		{-40, "f", "c", -40},
		{300, "k", "f", 80.33},
	}
	for _, tc := range cases {
		got, err := Convert(tc.value, tc.from, tc.to)
		require.NoError(t, err)
		assert.InDelta(t, tc.want, got, 1e-2, "%v %s -> %s", tc.value, tc.from, tc.to)
	}
}

func TestConvert_RoundTrip(t *testing.T) {
	for cat, us := range Units() {
		for _, a := range us {
			for _, b := range us {
				there, err := Convert(42.5, a.Symbol, b.Symbol)
				require.NoError(t, err)
				back, err := Convert(there, b.Symbol, a.Symbol)
				require.NoError(t, err)
				assert.InDelta(t, 42.5, back, 1e-9, "%s: %s <-> %s", cat, a.Symbol, b.Symbol)
			}
		}
	}
}

func TestConvert_Errors(t *testing.T) {
	_, err := Convert(1, "parsec", "m")
	assert.ErrorIs(t, err, apperr.ErrInvalidInput)

	_, err = Convert(1, "psi", "kg")
	assert.ErrorIs(t, err, apperr.ErrInvalidInput)
	assert.Contains(t, err.Error(), "pressure")

	_, err = Convert(math.NaN(), "psi", "bar")
	assert.ErrorIs(t, err, apperr.ErrInvalidInput)

	_, err = Convert(math.Inf(1), "psi", "bar")
	assert.ErrorIs(t, err, apperr.ErrInvalidInput)
}

func TestConvert_OverflowRejected(t *testing.T) {
	_, err := Convert(1e308, "psi", "mmhg")
	assert.ErrorIs(t, err, apperr.ErrInvalidInput)

	_, err = Convert(-1e308, "psi", "mmhg")
	assert.ErrorIs(t, err, apperr.ErrInvalidInput)

	got, err := Convert(1e307, "m", "m")
	require.NoError(t, err)
	assert.Equal(t, 1e307, got)
}

func TestLookup_Aliases(t *testing.T) {
	for _, name := range []string{"PSI", " psi ", "Psi"} {
		u, err := Lookup(name)
		require.NoError(t, err)
		assert.Equal(t, "psi", u.Symbol)
	}
	u, err := Lookup("pulgadas")
	require.NoError(t, err)
	assert.Equal(t, Length, u.Category)
}

func TestCategories(t *testing.T) {
	assert.Equal(t, []Category{Flow, Length, Pressure, Temperature, Weight}, Categories())
	assert.Len(t, Units()[Pressure], 4)
}

func TestRound(t *testing.T) {
	assert.Equal(t, 6.89, Round(6.89476, 2))
	assert.Equal(t, 212.0, Round(212.0000001, 3))
}

func TestRound_HugeValueUnchanged(t *testing.T) {
	assert.Equal(t, 1e307, Round(1e307, 2))
	assert.Equal(t, -math.MaxFloat64, Round(-math.MaxFloat64, 2))
	assert.False(t, math.IsInf(Round(1e307, 2), 0))
}
