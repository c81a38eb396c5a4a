package requirements

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// SizeKind — вид проката, определённый по строке размера.
type SizeKind string

const (
	KindRound   SizeKind = "round" // круглый прокат, значение — диаметр
	KindSheet   SizeKind = "sheet" // лист, значение — толщина
	KindUnknown SizeKind = "unknown"
)

func (k SizeKind) Valid() bool { return k == KindRound || k == KindSheet }

// Title — подпись для причин и сообщений.
func (k SizeKind) Title() string {
	switch k {
	case KindRound:
		return "круглый прокат"
	case KindSheet:
		return "лист"
	default:
		return "неизвестный прокат"
	}
}

var ErrUnparseableSize = errors.New("unparseable size descriptor")

// Size — результат разбора строки размера.
type Size struct {
	Kind    SizeKind
	ValueMM float64
	Raw     string
}

const num = `(\d+(?:[.,]\d+)?)`

var (
	// ⌀150, Ø 80, d80, д80, диаметр: 50, диам. 50, круг 120, круглый прокат 60мм
	reRoundMarker = regexp.MustCompile(`[⌀ø∅]|диам|круг|^[dд]\s*\d`)
	// лист 15, лист s=15, лист ГОСТ 19903-2015 15мм
	reSheetMarker = regexp.MustCompile(`^лист`)
	// 15мм, 15 mm
	reMillimetre = regexp.MustCompile(num + `\s*(?:мм|mm)`)
	// 15x1500x6000
	reSheetDims = regexp.MustCompile(`^` + num + `\s*[xх×*]\s*\d`)
	reNumber    = regexp.MustCompile(num)
)

// ParseSize классифицирует размер как диаметр или толщину листа.
// Если вид задан словом (круг, лист, диаметр), значение берётся из токена «мм»,
// а при его отсутствии из первого числа после маркера.
// Нераспознанный формат возвращает Kind=KindUnknown и ErrUnparseableSize.
func ParseSize(text string) (Size, error) {
	raw := strings.TrimSpace(text)
	s := strings.ToLower(raw)
	out := Size{Kind: KindUnknown, Raw: raw}

	set := func(m []string, kind SizeKind) bool {
		if m == nil {
			return false
		}
		v, err := strconv.ParseFloat(strings.ReplaceAll(m[1], ",", "."), 64)
		if err != nil {
			return false
		}
		out.Kind, out.ValueMM = kind, v
		return true
	}
	marked := func(re *regexp.Regexp, kind SizeKind) bool {
		loc := re.FindStringIndex(s)
		if loc == nil {
			return false
		}
		tail := s[loc[0]:]
		if m := reMillimetre.FindStringSubmatch(tail); m != nil {
			return set(m, kind)
		}
		return set(reNumber.FindStringSubmatch(tail), kind)
	}

	switch {
	case marked(reRoundMarker, KindRound):
	case marked(reSheetMarker, KindSheet):
	case set(reMillimetre.FindStringSubmatch(s), KindSheet):
	case set(reSheetDims.FindStringSubmatch(s), KindSheet):
	default:
		return out, fmt.Errorf("%w: %q", ErrUnparseableSize, raw)
	}
	return out, nil
}

func (s Size) String() string {
	if s.Kind == KindRound {
		return "⌀" + formatMM(s.ValueMM) + " мм"
	}
	if s.Kind == KindSheet {
		return formatMM(s.ValueMM) + " мм"
	}
	return s.Raw
}

func formatMM(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) }
