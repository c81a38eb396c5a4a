// Package requirements решает, нужны ли партии металла ультразвуковой контроль
// (УЗК) и ППСД, по марке и размеру. Правила заданы таблицей, а не ветвлениями.
package requirements

import (
	"fmt"
	"strings"
)

// Result — итог проверки одного требования.
type Result struct {
	Required bool
	Reasons  []string
	// Size заполняется только для УЗК.
	Size Size
	// Unclassified — размер не удалось разобрать, требование не сработало.
	Unclassified bool
}

// Reason объединяет причины в одну строку.
func (r Result) Reason() string { return strings.Join(r.Reasons, "; ") }

type band struct {
	Band
	grades map[string]struct{}
}

// Rules — неизменяемый снимок таблицы с нормализованными марками.
type Rules struct {
	table      Table
	ultrasonic []band
	ppsd       map[string]struct{}
}

// New валидирует таблицу и готовит её к проверкам.
func New(t Table) (*Rules, error) {
	if err := t.Validate(); err != nil {
		return nil, err
	}
	r := &Rules{table: t, ppsd: gradeSet(t.Ppsd.Grades)}
	for _, b := range t.Ultrasonic {
		r.ultrasonic = append(r.ultrasonic, band{Band: b, grades: gradeSet(b.Grades)})
	}
	return r, nil
}

// MustDefault — правила по DefaultTable, для тестов и CLI.
func MustDefault() *Rules {
	r, err := New(DefaultTable())
	if err != nil {
		panic(err)
	}
	return r
}

// Table возвращает копию исходной таблицы.
func (r *Rules) Table() Table {
	t := r.table
	t.Ultrasonic = append([]Band(nil), r.table.Ultrasonic...)
	t.Ppsd.Grades = append([]string(nil), r.table.Ppsd.Grades...)
	return t
}

func gradeSet(grades []string) map[string]struct{} {
	set := make(map[string]struct{}, len(grades))
	for _, g := range grades {
		set[NormalizeGrade(g)] = struct{}{}
	}
	return set
}

// EvaluateUltrasonic проверяет требование УЗК. Совпавшие диапазоны одного вида
// проката объединяют свои перечни марок; каждый совпавший диапазон даёт причину.
func (r *Rules) EvaluateUltrasonic(grade, sizeText string) Result {
	size, err := ParseSize(sizeText)
	if err != nil {
		return Result{
			Size:         size,
			Unclassified: true,
			Reasons:      []string{fmt.Sprintf("размер «%s» не удалось классифицировать, УЗК не назначен", size.Raw)},
		}
	}

	g := NormalizeGrade(grade)
	var matched []band
	union := map[string]struct{}{}
	all := false
	for _, b := range r.ultrasonic {
		if b.Kind != size.Kind || !b.Contains(size.ValueMM) {
			continue
		}
		matched = append(matched, b)
		if b.AllGrades {
			all = true
		}
		for k := range b.grades {
			union[k] = struct{}{}
		}
	}

	res := Result{Size: size}
	if len(matched) == 0 {
		return res
	}
	if _, ok := union[g]; !ok && !all {
		return res
	}

	res.Required = true
	for _, b := range matched {
		scope := "марка " + strings.TrimSpace(grade)
		if b.AllGrades {
			scope = "все марки"
		}
		res.Reasons = append(res.Reasons, fmt.Sprintf(
			"%s %s мм в диапазоне %s (%s): требуется УЗК",
			size.Kind.Title(), formatMM(size.ValueMM), b, scope))
	}
	return res
}

// EvaluatePpsd проверяет требование ППСД. От размера не зависит.
func (r *Rules) EvaluatePpsd(grade, _ string) Result {
	var res Result
	g := NormalizeGrade(grade)
	if g == "" {
		return res
	}

	if _, ok := r.ppsd[g]; ok {
		res.Reasons = append(res.Reasons,
			fmt.Sprintf("марка %s входит в перечень материалов, требующих ППСД", strings.TrimSpace(grade)))
	}

	comp := ParseComposition(g)
	var notes []string
	if p := r.table.Ppsd.MinChromiumPct; p > 0 && comp.Chromium() >= p {
		notes = append(notes, fmt.Sprintf("Cr ≈ %s%% (порог %s%%)", formatMM(comp.Chromium()), formatMM(p)))
	}
	if p := r.table.Ppsd.MinNickelPct; p > 0 && comp.Nickel() >= p {
		notes = append(notes, fmt.Sprintf("Ni ≈ %s%% (порог %s%%)", formatMM(comp.Nickel()), formatMM(p)))
	}
	if len(notes) > 0 {
		res.Reasons = append(res.Reasons, "легированная сталь: "+strings.Join(notes, ", "))
	}

	res.Required = len(res.Reasons) > 0
	return res
}
