package requirements

import (
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/width"
)

// Латиница, которую в марках стали пишут вместо кириллицы (12X18H10T == 12Х18Н10Т).
var latinTwins = map[rune]rune{
	'A': 'А', 'B': 'В', 'C': 'С', 'E': 'Е', 'H': 'Н', 'K': 'К',
	'M': 'М', 'O': 'О', 'P': 'Р', 'T': 'Т', 'X': 'Х', 'Y': 'У',
}

func toCyrillic(r rune) rune {
	if c, ok := latinTwins[r]; ok {
		return c
	}
	return r
}

// NormalizeGrade приводит марку к каноническому виду: без пробелов,
// в верхнем регистре, латинские «двойники» заменены на кириллицу.
func NormalizeGrade(grade string) string {
	t := transform.Chain(
		width.Fold,
		runes.Remove(runes.In(unicode.White_Space)),
		runes.Map(toCyrillic),
	)
	out, _, err := transform.String(t, strings.ToUpper(strings.TrimSpace(grade)))
	if err != nil {
		return strings.ToUpper(strings.TrimSpace(grade))
	}
	return out
}

// Обозначения легирующих элементов в марках по ГОСТ.
const (
	elemChromium = 'Х'
	elemNickel   = 'Н'
)

// Composition — номинальное содержание легирующих элементов, %,
// декодированное из обозначения марки. Элемент без цифры после буквы ≈ 1%.
type Composition map[rune]float64

func (c Composition) Chromium() float64 { return c[elemChromium] }
func (c Composition) Nickel() float64   { return c[elemNickel] }

// ParseComposition разбирает марку вида 12Х18Н10Т: ведущие цифры — углерод
// (пропускаются), далее пары «буква + необязательное число».
func ParseComposition(grade string) Composition {
	rs := []rune(NormalizeGrade(grade))
	comp := Composition{}

	i := 0
	for i < len(rs) && unicode.IsDigit(rs[i]) {
		i++
	}
	for i < len(rs) {
		r := rs[i]
		i++
		if !unicode.IsLetter(r) {
			continue
		}
		start := i
		for i < len(rs) && (unicode.IsDigit(rs[i]) || rs[i] == '.' || rs[i] == ',') {
			i++
		}
		pct := 1.0
		if i > start {
			v, err := strconv.ParseFloat(strings.ReplaceAll(string(rs[start:i]), ",", "."), 64)
			if err == nil {
				pct = v
			}
		}
		comp[r] += pct
	}
	return comp
}
