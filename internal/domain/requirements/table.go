package requirements

import (
	"errors"
	"fmt"
)

// Band — диапазон размеров [MinMM; MaxMM) одного вида проката
// и марки, для которых в этом диапазоне обязателен УЗК.
type Band struct {
	Kind      SizeKind `mapstructure:"kind" yaml:"kind"`
	MinMM     float64  `mapstructure:"min_mm" yaml:"min_mm"`
	MaxMM     float64  `mapstructure:"max_mm" yaml:"max_mm"`
	Grades    []string `mapstructure:"grades" yaml:"grades"`
	AllGrades bool     `mapstructure:"all_grades" yaml:"all_grades"`
}

// Contains — границы полуоткрытые: нижняя входит, верхняя нет.
func (b Band) Contains(v float64) bool { return v >= b.MinMM && v < b.MaxMM }

func (b Band) String() string {
	return fmt.Sprintf("%s [%s; %s) мм", b.Kind.Title(), formatMM(b.MinMM), formatMM(b.MaxMM))
}

// PpsdRule — критерии ППСД: перечень марок и пороги легирования по составу.
// Нулевой порог отключает соответствующую проверку.
type PpsdRule struct {
	Grades         []string `mapstructure:"grades" yaml:"grades"`
	MinChromiumPct float64  `mapstructure:"min_chromium_pct" yaml:"min_chromium_pct"`
	MinNickelPct   float64  `mapstructure:"min_nickel_pct" yaml:"min_nickel_pct"`
}

// Table — полный набор правил. Загружается один раз при старте.
type Table struct {
	Ultrasonic []Band   `mapstructure:"ultrasonic" yaml:"ultrasonic"`
	Ppsd       PpsdRule `mapstructure:"ppsd" yaml:"ppsd"`
}

// DefaultTable — матрица, согласованная с ОТК.
func DefaultTable() Table {
	return Table{
		Ultrasonic: []Band{
			{Kind: KindRound, MinMM: 50, MaxMM: 100, Grades: []string{"40X", "20X13", "12X18H10T"}},
			{Kind: KindRound, MinMM: 100, MaxMM: 200, Grades: []string{"40X", "20X13", "12X18H10T", "09Г2С"}},
			{Kind: KindRound, MinMM: 200, MaxMM: 500, AllGrades: true},
			{Kind: KindSheet, MinMM: 10, MaxMM: 20, Grades: []string{"40X", "20X13"}},
			{Kind: KindSheet, MinMM: 20, MaxMM: 50, Grades: []string{"40X", "20X13", "12X18H10T"}},
			{Kind: KindSheet, MinMM: 50, MaxMM: 100, AllGrades: true},
		},
		Ppsd: PpsdRule{
			Grades:         []string{"12X18H10T", "08X18H10T", "10X17H13M2T", "03X17H14M3", "20X13", "40X13"},
			MinChromiumPct: 12,
			MinNickelPct:   8,
		},
	}
}

var ErrInvalidTable = errors.New("invalid requirement table")

// Validate проверяет таблицу целиком и возвращает все найденные ошибки.
func (t Table) Validate() error {
	var errs []error
	for i, b := range t.Ultrasonic {
		if !b.Kind.Valid() {
			errs = append(errs, fmt.Errorf("ultrasonic[%d]: unknown kind %q", i, b.Kind))
		}
		if b.MinMM < 0 || b.MaxMM <= b.MinMM {
			errs = append(errs, fmt.Errorf("ultrasonic[%d]: bad range [%v; %v)", i, b.MinMM, b.MaxMM))
		}
		if !b.AllGrades && len(b.Grades) == 0 {
			errs = append(errs, fmt.Errorf("ultrasonic[%d]: no grades and all_grades=false", i))
		}
	}
	if t.Ppsd.MinChromiumPct < 0 || t.Ppsd.MinNickelPct < 0 {
		errs = append(errs, errors.New("ppsd: negative threshold"))
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalidTable, errors.Join(errs...))
	}
	return nil
}
