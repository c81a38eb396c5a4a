package quality

import (
	"bytes"
	"testing"
	"time"

	"github.com/Spok95/metalqms/internal/domain/requirements"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

var now = time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)

func sampleChecklist() Checklist {
	return Checklist{
		ID: 7, Name: "Нержавейка", Grade: "12X18H10T", Version: "1.0", Active: true,
		Items: []ChecklistItem{
			{ID: 3, Order: 2, Description: "Геометрия", Critical: false},
			{ID: 2, Order: 1, Description: "Сертификат", Critical: true},
		},
	}
}

func startedInspection(t *testing.T) Inspection {
	t.Helper()
	c := sampleChecklist()
	in := NewInspection(Draft{ReceiptID: 1, Checklist: &c, Now: now})
	for i := range in.Results {
		in.Results[i].ID = int64(100 + i)
	}
	require.NoError(t, in.Start(5, now))
	return in
}

func TestNewInspection(t *testing.T) {
	c := sampleChecklist()
	us := requirements.Result{Required: true, Reasons: []string{"круг 100–200 мм"}}
	pp := requirements.Result{Required: false}

	in := NewInspection(Draft{ReceiptID: 11, InspectorID: 4, Ultrasonic: us, Ppsd: pp, Checklist: &c, Now: now})

	assert.Equal(t, InspectionPending, in.Status)
	assert.True(t, in.RequiresUltrasonic)
	assert.False(t, in.RequiresPpsd)
	assert.Equal(t, []string{"круг 100–200 мм"}, in.UltrasonicReasons)
	assert.Empty(t, in.PpsdReasons)
	assert.Equal(t, int64(7), in.ChecklistID)
	require.Len(t, in.Results, 2)
	assert.Equal(t, 1, in.Results[0].Order)
	assert.True(t, in.Results[0].Critical)
	assert.Equal(t, ResultPending, in.Results[1].Result)
	assert.Contains(t, in.Comments, "круг 100–200 мм")

	// входные слайсы не разделяются с инспекцией
	us.Reasons[0] = "изменено"
	assert.Equal(t, "круг 100–200 мм", in.UltrasonicReasons[0])
}

func TestNewInspection_NoChecklist(t *testing.T) {
	in := NewInspection(Draft{ReceiptID: 1, Now: now})
	assert.Zero(t, in.ChecklistID)
	assert.Empty(t, in.Results)
	assert.Zero(t, in.CompletionPercentage())
}

func TestSelectChecklist(t *testing.T) {
	lists := []Checklist{
		{ID: 1, Name: "Общий", Version: "1.0", Active: true},
		{ID: 2, Name: "Общий", Version: "1.10", Active: true},
		{ID: 3, Name: "Нерж", Grade: "12Х18Н10Т", Version: "1.0", Active: true},
		{ID: 4, Name: "Нерж", Grade: "12X18H10T", Version: "2.0", Active: false},
		{ID: 5, Name: "Общий", Version: "1.9", Active: true},
	}

	c, ok := SelectChecklist("12x18h10t", lists)
	require.True(t, ok)
	assert.Equal(t, int64(3), c.ID)

	c, ok = SelectChecklist("40X", lists)
	require.True(t, ok)
	assert.Equal(t, int64(2), c.ID, "universal fallback picks the newest version")

	_, ok = SelectChecklist("40X", lists[2:4])
	assert.False(t, ok)
}

func TestApplyResult(t *testing.T) {
	in := startedInspection(t)
	critical, regular := in.Results[0].ID, in.Results[1].ID

	_, err := in.ApplyResult(critical, ResultInput{Result: ResultNA})
	assert.ErrorIs(t, err, ErrInvalidResult)

	_, err = in.ApplyResult(regular, ResultInput{Result: ResultFailed, Notes: "  "})
	assert.ErrorIs(t, err, ErrInvalidResult)

	_, err = in.ApplyResult(regular, ResultInput{Result: "maybe"})
	assert.ErrorIs(t, err, ErrInvalidResult)

	_, err = in.ApplyResult(999, ResultInput{Result: ResultPassed})
	assert.ErrorIs(t, err, ErrItemNotFound)

	it, err := in.ApplyResult(regular, ResultInput{Result: ResultNA})
	require.NoError(t, err)
	assert.Equal(t, ResultNA, it.Result)
	assert.Equal(t, 50.0, in.CompletionPercentage())

	_, err = in.ApplyResult(critical, ResultInput{Result: ResultFailed, Notes: "нет сертификата", MeasuredValue: " - "})
	require.NoError(t, err)
	assert.Equal(t, 100.0, in.CompletionPercentage())
	assert.Len(t, in.CriticalFailures(), 1)
	assert.False(t, in.Passed())
}

func TestInspectionLifecycle(t *testing.T) {
	c := sampleChecklist()
	in := NewInspection(Draft{ReceiptID: 1, Checklist: &c, Now: now})
	in.Results[0].ID, in.Results[1].ID = 1, 2

	_, err := in.ApplyResult(1, ResultInput{Result: ResultPassed})
	assert.ErrorIs(t, err, ErrInvalidInspectionStatus, "results only in progress")
	assert.ErrorIs(t, in.Complete(now), ErrInvalidInspectionStatus)

	require.NoError(t, in.Start(0, now))
	assert.Equal(t, InspectionInProgress, in.Status)
	assert.ErrorIs(t, in.Start(0, now), ErrInvalidInspectionStatus)

	_, err = in.ApplyResult(1, ResultInput{Result: ResultPassed})
	require.NoError(t, err)
	assert.Equal(t, 1, in.PendingCount())

	_, err = in.ApplyResult(2, ResultInput{Result: ResultFailed, Notes: "овальность"})
	require.NoError(t, err)
	require.NoError(t, in.Complete(now))
	assert.Equal(t, InspectionCompleted, in.Status)
	assert.ErrorIs(t, in.Complete(now), ErrInvalidInspectionStatus)
	assert.NotNil(t, in.CompletedAt)
	assert.True(t, in.Passed(), "non-critical failure does not reject")
}

func TestParseChecklists(t *testing.T) {
	f := excelize.NewFile()
	sheet := f.GetSheetName(f.GetActiveSheetIndex())
	rows := [][]any{
		checklistHeader,
		{"Общий ОТК", "", "1.0", 1, "Сертификат", "да", "соответствует"},
		{"Общий ОТК", "", "1.0", 2, "Маркировка", "", ""},
		{"Нерж", "12X18H10T", "", 1, "Стилоскопирование", "1", ""},
		{"", "", "", "", "", "", ""},
	}
	for i, r := range rows {
		cell, _ := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, f.SetSheetRow(sheet, cell, &r))
	}
	buf := &bytes.Buffer{}
	require.NoError(t, f.Write(buf))

	lists, err := ParseChecklists(buf)
	require.NoError(t, err)
	require.Len(t, lists, 2)
	assert.True(t, lists[0].Universal())
	assert.Len(t, lists[0].Items, 2)
	assert.True(t, lists[0].Items[0].Critical)
	assert.False(t, lists[0].Items[1].Critical)
	assert.Equal(t, "1.0", lists[1].Version)
	assert.Equal(t, "12X18H10T", lists[1].Grade)
}

func TestParseChecklists_Errors(t *testing.T) {
	_, err := ParseChecklists(bytes.NewReader([]byte("not excel")))
	assert.ErrorIs(t, err, ErrBadChecklistFile)

	tpl, err := ChecklistTemplate()
	require.NoError(t, err)
	_, err = ParseChecklists(bytes.NewReader(tpl))
	assert.ErrorIs(t, err, ErrBadChecklistFile, "header only")
}

func TestReport(t *testing.T) {
	in := startedInspection(t)
	in.RequiresPpsd = true
	in.PpsdReasons = []string{"марка в перечне ППСД"}

	data, err := Report(in, ReportInfo{DocumentNumber: "ПН-1", Grade: "12X18H10T", Size: "⌀150"})
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer func() { _ = f.Close() }()

	rows, err := f.GetRows("Инспекция")
	require.NoError(t, err)
	assert.Equal(t, []string{"Документ", "ПН-1"}, rows[0])
	assert.Equal(t, "Сертификат", rows[len(rows)-2][1])
	assert.Equal(t, "Не проверено", rows[len(rows)-1][3])
}
