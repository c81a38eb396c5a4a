package laboratory

import (
	"time"

	"github.com/Spok95/metalqms/internal/domain/quality"
)

type TestType string

const (
	TestChemical   TestType = "chemical_analysis"
	TestMechanical TestType = "mechanical_properties"
	TestUltrasonic TestType = "ultrasonic"
)

func (t TestType) Title() string {
	switch t {
	case TestChemical:
		return "Химический анализ"
	case TestMechanical:
		return "Механические свойства"
	case TestUltrasonic:
		return "УЗК"
	}
	return string(t)
}

const StatusPending = "pending"

// Request — заявка в лабораторию.
type Request struct {
	ID           int64
	ReceiptID    int64
	InspectionID int64
	RequestedBy  int64
	TestType     TestType
	Status       string
	Requirements string
	CreatedAt    time.Time
}

// PlanTests — заявки по замороженным флагам инспекции:
// ППСД даёт химию и механику, УЗК — ультразвук.
func PlanTests(in quality.Inspection) []Request {
	base := Request{
		ReceiptID:    in.ReceiptID,
		InspectionID: in.ID,
		RequestedBy:  in.InspectorID,
		Status:       StatusPending,
	}
	var out []Request
	add := func(t TestType, req string) {
		r := base
		r.TestType, r.Requirements = t, req
		out = append(out, r)
	}
	if in.RequiresPpsd {
		add(TestChemical, "ППСД - полный химический анализ согласно ГОСТ")
		add(TestMechanical, "ППСД - механические свойства согласно ГОСТ")
	}
	if in.RequiresUltrasonic {
		add(TestUltrasonic, "УЗК согласно ГОСТ 14782")
	}
	return out
}
