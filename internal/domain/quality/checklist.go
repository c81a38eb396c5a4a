package quality

import (
	"strconv"
	"strings"

	"github.com/Spok95/metalqms/internal/domain/requirements"
)

// SelectChecklist выбирает чек-лист для марки: сначала активный с точным
// совпадением марки, затем универсальный. Среди равных — старшая версия.
func SelectChecklist(grade string, lists []Checklist) (Checklist, bool) {
	g := requirements.NormalizeGrade(grade)

	var exact, universal *Checklist
	for i := range lists {
		c := &lists[i]
		if !c.Active {
			continue
		}
		switch {
		case c.Universal():
			if universal == nil || newerVersion(c.Version, universal.Version) {
				universal = c
			}
		case g != "" && requirements.NormalizeGrade(c.Grade) == g:
			if exact == nil || newerVersion(c.Version, exact.Version) {
				exact = c
			}
		}
	}
	if exact != nil {
		return *exact, true
	}
	if universal != nil {
		return *universal, true
	}
	return Checklist{}, false
}

// newerVersion сравнивает версии вида "1.10" и "1.9" покомпонентно.
func newerVersion(a, b string) bool {
	pa, pb := strings.Split(a, "."), strings.Split(b, ".")
	for i := 0; i < len(pa) || i < len(pb); i++ {
		var x, y int
		if i < len(pa) {
			x, _ = strconv.Atoi(pa[i])
		}
		if i < len(pb) {
			y, _ = strconv.Atoi(pb[i])
		}
		if x != y {
			return x > y
		}
	}
	return false
}
