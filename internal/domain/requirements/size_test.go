package requirements

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSize(t *testing.T) {
	tests := []struct {
		in    string
		kind  SizeKind
		value float64
	}{
		{"⌀150", KindRound, 150},
		{"⌀ 75,5", KindRound, 75.5},
		{"Ø80", KindRound, 80},
		{"∅45", KindRound, 45},
		{"d120", KindRound, 120},
		{"Д60", KindRound, 60},
		{"Круг 220 ГОСТ 2590", KindRound, 220},
		{"диаметр 50", KindRound, 50},
		{"диаметр: 75", KindRound, 75},
		{"диам. 40", KindRound, 40},
		{"круглый 75", KindRound, 75},
		{"круглый прокат 60мм", KindRound, 60},
		{"Круг 120 ГОСТ 2590-2006", KindRound, 120},
		{"Лист ГОСТ 19903-2015 15мм", KindSheet, 15},
		{"лист s=15", KindSheet, 15},
		{"⌀150мм", KindRound, 150},
		{"лист 15мм", KindSheet, 15},
		{"Лист 12", KindSheet, 12},
		{"15 mm", KindSheet, 15},
		{"8.5мм", KindSheet, 8.5},
		{"20x1500x6000", KindSheet, 20},
		{"20х1500х6000", KindSheet, 20},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			s, err := ParseSize(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.kind, s.Kind)
			assert.InDelta(t, tt.value, s.ValueMM, 1e-9)
		})
	}
}

func TestParseSize_Unknown(t *testing.T) {
	for _, in := range []string{"", "   ", "шестигранник", "труба 57"} {
		s, err := ParseSize(in)
		assert.ErrorIs(t, err, ErrUnparseableSize, in)
		assert.Equal(t, KindUnknown, s.Kind)
	}
}

func TestNormalizeGrade(t *testing.T) {
	assert.Equal(t, NormalizeGrade("12Х18Н10Т"), NormalizeGrade("12X18H10T"))
	assert.Equal(t, NormalizeGrade("09Г2С"), NormalizeGrade("09г2c"))
	assert.Equal(t, NormalizeGrade("40X"), NormalizeGrade(" 40 x "))
	assert.Equal(t, NormalizeGrade("40X"), NormalizeGrade("４０X"))
	assert.NotEqual(t, NormalizeGrade("40X"), NormalizeGrade("40X13"))
}

func TestParseComposition(t *testing.T) {
	c := ParseComposition("12X18H10T")
	assert.Equal(t, 18.0, c.Chromium())
	assert.Equal(t, 10.0, c.Nickel())

	c = ParseComposition("40Х")
	assert.Equal(t, 1.0, c.Chromium())
	assert.Zero(t, c.Nickel())

	c = ParseComposition("09Г2С")
	assert.Zero(t, c.Chromium())
	assert.Equal(t, 2.0, c['Г'])
}
