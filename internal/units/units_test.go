package units

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"datamod/internal/config"
	apperrors "datamod/internal/errors"
)

func TestParse(t *testing.T) {
	tests := []struct {
		in   string
		want Unit
	}{
		{"second", Second},
		{"Seconds", Second},
		{" s ", Second},
		{"초", Second},
		{"MIN", Minute},
		{"분", Minute},
		{"hr", Hour},
		{"시간", Hour},
		{"days", Day},
		{"일", Day},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := Parse(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseUnsupported(t *testing.T) {
	for _, in := range []string{"week", "", "ms", "year"} {
		_, err := Parse(in)
		assert.True(t, errors.Is(err, ErrUnsupportedUnit), in)
		assert.True(t, apperrors.IsType(err, apperrors.ErrTypeValidation), in)
	}
}

func TestSecondsToMinutes(t *testing.T) {
	want := []float64{0.166667, 0.333333, 0.5}
	for i, v := range []float64{10, 20, 30} {
		got, err := Convert(v, "second", "minute")
		require.NoError(t, err)
		assert.InDelta(t, want[i], got, 1e-6)
	}
}

func TestKnownFactors(t *testing.T) {
	c := Default()
	tests := []struct {
		from, to string
		want     float64
	}{
		{"day", "second", 86400},
		{"hour", "minute", 60},
		{"day", "hour", 24},
		{"minute", "minute", 1},
		{"hour", "day", 1.0 / 24},
	}

	for _, tt := range tests {
		got, err := c.Factor(tt.from, tt.to)
		require.NoError(t, err)
		assert.InDelta(t, tt.want, got, 1e-15, "%s->%s", tt.from, tt.to)
	}
}

func TestRoundTrip(t *testing.T) {
	c := Default()
	values := []float64{0, 1, 1.5, 59.999, 3600, 86400 * 365, -42, 1e-9}

	for _, from := range Units() {
		for _, to := range Units() {
			for _, v := range values {
				there, err := c.Convert(v, string(from), string(to))
				require.NoError(t, err)
				back, err := c.Convert(there, string(to), string(from))
				require.NoError(t, err)

				if v == 0 {
					assert.Zero(t, back)
					continue
				}
				assert.LessOrEqual(t, math.Abs(back-v)/math.Abs(v), 1e-6, "%v %s->%s->%s", v, from, to, from)
			}
		}
	}
}

func TestConvertUnsupported(t *testing.T) {
	_, err := Convert(1, "second", "fortnight")
	assert.True(t, errors.Is(err, ErrUnsupportedUnit))

	_, err = Default().Factor("lightyear", "day")
	assert.True(t, errors.Is(err, ErrUnsupportedUnit))
}

func TestBuiltinTableIsComplete(t *testing.T) {
	table := Default().Table()
	count := 0
	for _, from := range Units() {
		for _, to := range Units() {
			_, ok := table[string(from)][string(to)]
			assert.True(t, ok, "%s->%s", from, to)
			count++
		}
	}
	assert.Equal(t, 16, count)
}

func validDoc() config.UnitFactors {
	return config.UnitFactors{
		"second": {"minute": 1.0 / 60, "hour": 1.0 / 3600, "day": 1.0 / 86400},
		"minute": {"second": 60, "hour": 1.0 / 60, "day": 1.0 / 1440},
		"hour":   {"second": 3600, "minute": 60, "day": 1.0 / 24},
		"day":    {"second": 86400, "minute": 1440, "hour": 24},
	}
}

func TestNewConverter(t *testing.T) {
	c, err := NewConverter(validDoc())
	require.NoError(t, err)
	f, err := c.Factor("day", "day")
	require.NoError(t, err)
	assert.Equal(t, 1.0, f)

	tests := []struct {
		name   string
		mutate func(config.UnitFactors)
	}{
		{"missing pair", func(d config.UnitFactors) { delete(d["hour"], "day") }},
		{"missing unit", func(d config.UnitFactors) { delete(d, "minute") }},
		{"zero factor", func(d config.UnitFactors) { d["day"]["hour"] = 0 }},
		{"negative factor", func(d config.UnitFactors) { d["second"]["minute"] = -1 }},
		{"infinite factor", func(d config.UnitFactors) { d["minute"]["second"] = math.Inf(1) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := validDoc()
			tt.mutate(doc)
			_, err := NewConverter(doc)
			assert.True(t, errors.Is(err, ErrInvalidFactorTable))
			assert.True(t, apperrors.IsType(err, apperrors.ErrTypeConfig))
		})
	}
}

func TestLoad(t *testing.T) {
	t.Run("missing document falls back to builtin", func(t *testing.T) {
		c, err := Load(filepath.Join(t.TempDir(), "units.json"))
		require.NoError(t, err)
		f, err := c.Factor("day", "second")
		require.NoError(t, err)
		assert.Equal(t, 86400.0, f)
	})

	t.Run("shipped document matches builtin", func(t *testing.T) {
		c, err := Load(filepath.Join("..", "..", "configs", "units.json"))
		require.NoError(t, err)
		for _, from := range Units() {
			for _, to := range Units() {
				got, err := c.Factor(string(from), string(to))
				require.NoError(t, err)
				want, _ := Default().Factor(string(from), string(to))
				assert.InDelta(t, want, got, want*1e-12)
			}
		}
	})

	t.Run("malformed document", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "units.json")
		require.NoError(t, os.WriteFile(path, []byte(`{"factors": [`), 0644))
		_, err := Load(path)
		assert.True(t, apperrors.IsType(err, apperrors.ErrTypeConfig))
	})
}
