package quality

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
)

var ErrBadChecklistFile = errors.New("bad checklist file")

// Колонки файла чек-листов. Одна строка — один пункт, чек-листы
// группируются по паре (name, version).
var checklistHeader = []any{"name", "grade", "version", "item_order", "description", "critical", "acceptance_criteria"}

// ParseChecklists читает .xlsx с пунктами чек-листов с активного листа.
func ParseChecklists(r io.Reader) ([]Checklist, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadChecklistFile, err)
	}
	defer func() { _ = f.Close() }()

	sheet := f.GetSheetName(f.GetActiveSheetIndex())
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadChecklistFile, err)
	}
	if len(rows) < 2 {
		return nil, fmt.Errorf("%w: no item rows", ErrBadChecklistFile)
	}

	var out []Checklist
	index := map[string]int{}
	for i, row := range rows[1:] {
		line := i + 2
		cell := func(n int) string {
			if n < len(row) {
				return strings.TrimSpace(row[n])
			}
			return ""
		}
		name := cell(0)
		if name == "" {
			continue
		}
		ver := cell(2)
		if ver == "" {
			ver = "1.0"
		}
		order, err := strconv.Atoi(cell(3))
		if err != nil || order <= 0 {
			return nil, fmt.Errorf("%w: line %d: item_order %q", ErrBadChecklistFile, line, cell(3))
		}
		desc := cell(4)
		if desc == "" {
			return nil, fmt.Errorf("%w: line %d: empty description", ErrBadChecklistFile, line)
		}

		key := name + "\x00" + ver
		idx, ok := index[key]
		if !ok {
			idx = len(out)
			index[key] = idx
			out = append(out, Checklist{Name: name, Grade: cell(1), Version: ver, Active: true})
		}
		for _, it := range out[idx].Items {
			if it.Order == order {
				return nil, fmt.Errorf("%w: line %d: duplicate item_order %d in %q", ErrBadChecklistFile, line, order, name)
			}
		}
		out[idx].Items = append(out[idx].Items, ChecklistItem{
			Order:              order,
			Description:        desc,
			Critical:           parseBool(cell(5)),
			AcceptanceCriteria: cell(6),
		})
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%w: no item rows", ErrBadChecklistFile)
	}
	return out, nil
}

func parseBool(s string) bool {
	switch strings.ToLower(s) {
	case "1", "true", "yes", "да", "+", "x", "х":
		return true
	}
	return false
}

// ChecklistTemplate — пустой файл с заголовком для заполнения.
func ChecklistTemplate() ([]byte, error) {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	sheet := f.GetSheetName(f.GetActiveSheetIndex())
	if err := f.SetSheetRow(sheet, "A1", &checklistHeader); err != nil {
		return nil, err
	}
	buf := &bytes.Buffer{}
	if err := f.Write(buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// ReportInfo — реквизиты поступления для шапки отчёта.
type ReportInfo struct {
	DocumentNumber string
	Grade          string
	Size           string
	Supplier       string
	Certificate    string
	ReceiptStatus  string
	Inspector      string
}

// Report формирует .xlsx-отчёт по инспекции: шапка, требования и пункты.
func Report(in Inspection, info ReportInfo) ([]byte, error) {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	sheet := "Инспекция"
	if err := f.SetSheetName(f.GetSheetName(f.GetActiveSheetIndex()), sheet); err != nil {
		return nil, err
	}

	yesNo := func(b bool) string {
		if b {
			return "Да"
		}
		return "Нет"
	}
	started, completed := "", ""
	if in.StartedAt != nil {
		started = in.StartedAt.Format(time.DateTime)
	}
	if in.CompletedAt != nil {
		completed = in.CompletedAt.Format(time.DateTime)
	}

	head := [][]any{
		{"Документ", info.DocumentNumber},
		{"Марка", info.Grade},
		{"Размер", info.Size},
		{"Поставщик", info.Supplier},
		{"Сертификат", info.Certificate},
		{"Статус поступления", info.ReceiptStatus},
		{"Инспектор", info.Inspector},
		{"Статус инспекции", in.Status.Title()},
		{"Начата", started},
		{"Завершена", completed},
		{"Выполнено, %", in.CompletionPercentage()},
		{"Требуется УЗК", yesNo(in.RequiresUltrasonic)},
		{"Основания УЗК", strings.Join(in.UltrasonicReasons, "; ")},
		{"Требуется ППСД", yesNo(in.RequiresPpsd)},
		{"Основания ППСД", strings.Join(in.PpsdReasons, "; ")},
	}

	row := 1
	put := func(vals []any) error {
		cell, err := excelize.CoordinatesToCellName(1, row)
		if err != nil {
			return err
		}
		row++
		return f.SetSheetRow(sheet, cell, &vals)
	}
	for _, h := range head {
		if err := put(h); err != nil {
			return nil, err
		}
	}
	row++

	if err := put([]any{"№", "Пункт", "Критический", "Результат", "Значение", "Примечание"}); err != nil {
		return nil, err
	}
	for _, it := range in.Results {
		if err := put([]any{it.Order, it.Description, yesNo(it.Critical), it.Result.Title(), it.MeasuredValue, it.Notes}); err != nil {
			return nil, err
		}
	}

	buf := &bytes.Buffer{}
	if err := f.Write(buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
