package quality

import (
	"sort"
	"strings"
	"time"

	"github.com/Spok95/metalqms/internal/domain/requirements"
)

// Draft — всё, из чего собирается новая инспекция.
type Draft struct {
	ReceiptID   int64
	InspectorID int64
	Ultrasonic  requirements.Result
	Ppsd        requirements.Result
	Checklist   *Checklist
	Now         time.Time
}

// NewInspection собирает инспекцию со снятыми флагами требований и строками
// результатов по пунктам чек-листа. Без чек-листа строк нет.
func NewInspection(d Draft) Inspection {
	in := Inspection{
		ReceiptID:          d.ReceiptID,
		InspectorID:        d.InspectorID,
		Status:             InspectionPending,
		RequiresUltrasonic: d.Ultrasonic.Required,
		RequiresPpsd:       d.Ppsd.Required,
		CreatedAt:          d.Now,
	}
	if d.Ultrasonic.Required {
		in.UltrasonicReasons = append([]string(nil), d.Ultrasonic.Reasons...)
	}
	if d.Ppsd.Required {
		in.PpsdReasons = append([]string(nil), d.Ppsd.Reasons...)
	}

	notes := append(append([]string(nil), in.PpsdReasons...), in.UltrasonicReasons...)
	in.Comments = "Инспекция создана автоматически."
	if len(notes) > 0 {
		in.Comments += " " + strings.Join(notes, "; ")
	}

	if d.Checklist == nil {
		return in
	}
	in.ChecklistID = d.Checklist.ID

	items := append([]ChecklistItem(nil), d.Checklist.Items...)
	sort.SliceStable(items, func(i, j int) bool { return items[i].Order < items[j].Order })
	in.Results = make([]ResultItem, 0, len(items))
	for _, it := range items {
		in.Results = append(in.Results, ResultItem{
			ChecklistItemID: it.ID,
			Order:           it.Order,
			Description:     it.Description,
			Critical:        it.Critical,
			Result:          ResultPending,
		})
	}
	return in
}
