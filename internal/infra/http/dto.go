package http

import (
	"time"

	"github.com/Spok95/metalqms/internal/domain/laboratory"
	"github.com/Spok95/metalqms/internal/domain/materials"
	"github.com/Spok95/metalqms/internal/domain/quality"
	"github.com/Spok95/metalqms/internal/domain/receipts"
	"github.com/Spok95/metalqms/internal/domain/requirements"
	"github.com/Spok95/metalqms/internal/workflow"
)

type checkRequest struct {
	Grade string `json:"grade"`
	Size  string `json:"size"`
}

type requirementDTO struct {
	Required     bool     `json:"required"`
	Reasons      []string `json:"reasons"`
	Unclassified bool     `json:"unclassified,omitempty"`
}

func toRequirement(r requirements.Result) requirementDTO {
	reasons := r.Reasons
	if reasons == nil {
		reasons = []string{}
	}
	return requirementDTO{Required: r.Required, Reasons: reasons, Unclassified: r.Unclassified}
}

type checkResponse struct {
	Ultrasonic requirementDTO `json:"ultrasonic"`
	Ppsd       requirementDTO `json:"ppsd"`
}

type materialRequest struct {
	Grade             string  `json:"grade"`
	Size              string  `json:"size"`
	Supplier          string  `json:"supplier"`
	OrderNumber       string  `json:"order_number"`
	CertificateNumber string  `json:"certificate_number"`
	HeatNumber        string  `json:"heat_number"`
	Quantity          float64 `json:"quantity"`
	Unit              string  `json:"unit"`
	Location          string  `json:"location"`
}

func (m materialRequest) input() materials.NewInput {
	return materials.NewInput{
		Grade:             m.Grade,
		Size:              m.Size,
		Supplier:          m.Supplier,
		OrderNumber:       m.OrderNumber,
		CertificateNumber: m.CertificateNumber,
		HeatNumber:        m.HeatNumber,
		Quantity:          m.Quantity,
		Unit:              materials.Unit(m.Unit),
		Location:          m.Location,
	}
}

type materialDTO struct {
	ID                int64     `json:"id"`
	ExternalID        string    `json:"external_id"`
	Grade             string    `json:"grade"`
	Size              string    `json:"size"`
	Supplier          string    `json:"supplier"`
	CertificateNumber string    `json:"certificate_number"`
	HeatNumber        string    `json:"heat_number"`
	Quantity          float64   `json:"quantity"`
	Unit              string    `json:"unit"`
	CreatedAt         time.Time `json:"created_at"`
}

func toMaterial(m *materials.Material) materialDTO {
	return materialDTO{
		ID:                m.ID,
		ExternalID:        m.ExternalID.String(),
		Grade:             m.Grade,
		Size:              m.Size,
		Supplier:          m.Supplier,
		CertificateNumber: m.CertificateNumber,
		HeatNumber:        m.HeatNumber,
		Quantity:          m.Quantity,
		Unit:              string(m.Unit),
		CreatedAt:         m.CreatedAt,
	}
}

type receiptRequest struct {
	MaterialID     int64  `json:"material_id"`
	ReceivedBy     int64  `json:"received_by"`
	DocumentNumber string `json:"document_number"`
	Notes          string `json:"notes"`
	AutoCreateQC   *bool  `json:"auto_create_qc"`
}

type receiptDTO struct {
	ID             int64     `json:"id"`
	MaterialID     int64     `json:"material_id"`
	ReceivedBy     int64     `json:"received_by"`
	DocumentNumber string    `json:"document_number"`
	Status         string    `json:"status"`
	StatusTitle    string    `json:"status_title"`
	Notes          string    `json:"notes"`
	ReceivedAt     time.Time `json:"received_at"`
	UpdatedAt      time.Time `json:"updated_at"`
	UpdatedBy      int64     `json:"updated_by,omitempty"`
	NextStatuses   []string  `json:"next_statuses"`
}

func toReceipt(r *receipts.Receipt) *receiptDTO {
	if r == nil {
		return nil
	}
	next := []string{}
	for _, s := range receipts.Next(r.Status) {
		next = append(next, string(s))
	}
	return &receiptDTO{
		ID:             r.ID,
		MaterialID:     r.MaterialID,
		ReceivedBy:     r.ReceivedBy,
		DocumentNumber: r.DocumentNumber,
		Status:         string(r.Status),
		StatusTitle:    r.Status.Title(),
		Notes:          r.Notes,
		ReceivedAt:     r.ReceivedAt,
		UpdatedAt:      r.UpdatedAt,
		UpdatedBy:      r.UpdatedBy,
		NextStatuses:   next,
	}
}

type resultItemDTO struct {
	ID            int64  `json:"id"`
	Order         int    `json:"order"`
	Description   string `json:"description"`
	Critical      bool   `json:"critical"`
	Result        string `json:"result"`
	Notes         string `json:"notes"`
	MeasuredValue string `json:"measured_value"`
}

func toResultItem(it quality.ResultItem) resultItemDTO {
	return resultItemDTO{
		ID:            it.ID,
		Order:         it.Order,
		Description:   it.Description,
		Critical:      it.Critical,
		Result:        string(it.Result),
		Notes:         it.Notes,
		MeasuredValue: it.MeasuredValue,
	}
}

type inspectionDTO struct {
	ID                 int64           `json:"id"`
	ReceiptID          int64           `json:"receipt_id"`
	InspectorID        int64           `json:"inspector_id,omitempty"`
	ChecklistID        int64           `json:"checklist_id,omitempty"`
	Status             string          `json:"status"`
	RequiresUltrasonic bool            `json:"requires_ultrasonic"`
	RequiresPpsd       bool            `json:"requires_ppsd"`
	UltrasonicReasons  []string        `json:"ultrasonic_reasons"`
	PpsdReasons        []string        `json:"ppsd_reasons"`
	Comments           string          `json:"comments"`
	Completion         float64         `json:"completion_pct"`
	CreatedAt          time.Time       `json:"created_at"`
	StartedAt          *time.Time      `json:"started_at,omitempty"`
	CompletedAt        *time.Time      `json:"completed_at,omitempty"`
	Results            []resultItemDTO `json:"results"`
}

func toInspection(in *quality.Inspection) *inspectionDTO {
	if in == nil {
		return nil
	}
	out := &inspectionDTO{
		ID:                 in.ID,
		ReceiptID:          in.ReceiptID,
		InspectorID:        in.InspectorID,
		ChecklistID:        in.ChecklistID,
		Status:             string(in.Status),
		RequiresUltrasonic: in.RequiresUltrasonic,
		RequiresPpsd:       in.RequiresPpsd,
		UltrasonicReasons:  nonNil(in.UltrasonicReasons),
		PpsdReasons:        nonNil(in.PpsdReasons),
		Comments:           in.Comments,
		Completion:         in.CompletionPercentage(),
		CreatedAt:          in.CreatedAt,
		StartedAt:          in.StartedAt,
		CompletedAt:        in.CompletedAt,
		Results:            make([]resultItemDTO, 0, len(in.Results)),
	}
	for _, it := range in.Results {
		out.Results = append(out.Results, toResultItem(it))
	}
	return out
}

type receiptOutcomeDTO struct {
	Receipt           *receiptDTO    `json:"receipt"`
	Inspection        *inspectionDTO `json:"inspection,omitempty"`
	ReceiptCreated    bool           `json:"receipt_created"`
	InspectionCreated bool           `json:"inspection_created"`
	Duplicate         bool           `json:"duplicate"`
	Ultrasonic        requirementDTO `json:"ultrasonic"`
	Ppsd              requirementDTO `json:"ppsd"`
	Warnings          []string       `json:"warnings"`
}

func toReceiptOutcome(o *workflow.ReceiptOutcome) receiptOutcomeDTO {
	return receiptOutcomeDTO{
		Receipt:           toReceipt(o.Receipt),
		Inspection:        toInspection(o.Inspection),
		ReceiptCreated:    o.ReceiptCreated,
		InspectionCreated: o.InspectionCreated,
		Duplicate:         o.Duplicate,
		Ultrasonic:        toRequirement(o.Ultrasonic),
		Ppsd:              toRequirement(o.Ppsd),
		Warnings:          nonNil(o.Warnings),
	}
}

type transitionRequest struct {
	Status  string `json:"status"`
	ActorID int64  `json:"actor_id"`
}

type startRequest struct {
	InspectorID int64 `json:"inspector_id"`
}

type resultRequest struct {
	Result        string `json:"result"`
	Notes         string `json:"notes"`
	MeasuredValue string `json:"measured_value"`
}

type completeRequest struct {
	ActorID int64 `json:"actor_id"`
}

type labRequestDTO struct {
	ID           int64  `json:"id"`
	TestType     string `json:"test_type"`
	Title        string `json:"title"`
	Status       string `json:"status"`
	Requirements string `json:"requirements"`
}

type completionDTO struct {
	Inspection       *inspectionDTO  `json:"inspection"`
	Receipt          *receiptDTO     `json:"receipt"`
	CriticalFailures []resultItemDTO `json:"critical_failures"`
	LabRequests      []labRequestDTO `json:"lab_requests"`
	Warnings         []string        `json:"warnings"`
}

func toCompletion(o *workflow.CompletionOutcome) completionDTO {
	out := completionDTO{
		Inspection:       toInspection(o.Inspection),
		Receipt:          toReceipt(o.Receipt),
		CriticalFailures: []resultItemDTO{},
		LabRequests:      []labRequestDTO{},
		Warnings:         nonNil(o.Warnings),
	}
	for _, it := range o.CriticalFailures {
		out.CriticalFailures = append(out.CriticalFailures, toResultItem(it))
	}
	for _, l := range o.LabRequests {
		out.LabRequests = append(out.LabRequests, toLabRequest(l))
	}
	return out
}

func toLabRequest(l laboratory.Request) labRequestDTO {
	return labRequestDTO{
		ID:           l.ID,
		TestType:     string(l.TestType),
		Title:        l.TestType.Title(),
		Status:       l.Status,
		Requirements: l.Requirements,
	}
}

type importResponse struct {
	Imported int `json:"imported"`
	Items    int `json:"items"`
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
