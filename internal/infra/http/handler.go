package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/Spok95/metalqms/internal/domain/materials"
	"github.com/Spok95/metalqms/internal/domain/quality"
	"github.com/Spok95/metalqms/internal/domain/receipts"
	"github.com/Spok95/metalqms/internal/workflow"
)

const maxUpload = 10 << 20

type Handler struct {
	svc *workflow.Service
	log *slog.Logger

	// AutoCreateQC — значение по умолчанию, если в запросе не указано.
	AutoCreateQC bool
}

func NewHandler(svc *workflow.Service, log *slog.Logger) *Handler {
	return &Handler{svc: svc, log: log, AutoCreateQC: true}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

type errorBody struct {
	Error string `json:"error"`
}

// writeError переводит доменные ошибки в коды ответа. Неизвестные ошибки
// логируются и отдаются как 500 без подробностей.
func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	switch {
	case workflow.IsNotFound(err):
		status = http.StatusNotFound
	case errors.Is(err, receipts.ErrInvalidTransition),
		errors.Is(err, quality.ErrInvalidInspectionStatus),
		workflow.IsConflict(err):
		status = http.StatusConflict
	case errors.Is(err, quality.ErrItemNotFound):
		status = http.StatusNotFound
	case errors.Is(err, quality.ErrInvalidResult),
		errors.Is(err, workflow.ErrInvalidRequest),
		errors.Is(err, quality.ErrBadChecklistFile):
		status = http.StatusUnprocessableEntity
	}
	if status == http.StatusInternalServerError {
		h.log.Error("request failed", "method", r.Method, "path", r.URL.Path, "err", err)
		writeJSON(w, status, errorBody{Error: "internal error"})
		return
	}
	writeJSON(w, status, errorBody{Error: err.Error()})
}

func decode(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxUpload))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: body: %v", workflow.ErrInvalidRequest, err)
	}
	return nil
}

func pathID(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: bad %s", workflow.ErrInvalidRequest, name)
	}
	return id, nil
}

func (h *Handler) Check(w http.ResponseWriter, r *http.Request) {
	var req checkRequest
	if err := decode(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	c := h.svc.Check(materials.Descriptor{Grade: req.Grade, Size: req.Size})
	writeJSON(w, http.StatusOK, checkResponse{
		Ultrasonic: toRequirement(c.Ultrasonic),
		Ppsd:       toRequirement(c.Ppsd),
	})
}

func (h *Handler) CreateMaterial(w http.ResponseWriter, r *http.Request) {
	var req materialRequest
	if err := decode(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	if strings.TrimSpace(req.Grade) == "" || strings.TrimSpace(req.Size) == "" {
		h.writeError(w, r, fmt.Errorf("%w: grade and size are required", workflow.ErrInvalidRequest))
		return
	}
	m, err := h.svc.CreateMaterial(r.Context(), req.input())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toMaterial(m))
}

func (h *Handler) ProcessReceipt(w http.ResponseWriter, r *http.Request) {
	var req receiptRequest
	if err := decode(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	auto := h.AutoCreateQC
	if req.AutoCreateQC != nil {
		auto = *req.AutoCreateQC
	}
	out, err := h.svc.ProcessReceipt(r.Context(), workflow.ReceiptRequest{
		MaterialID:     req.MaterialID,
		ReceivedBy:     req.ReceivedBy,
		DocumentNumber: req.DocumentNumber,
		Notes:          req.Notes,
		AutoCreateQC:   auto,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	status := http.StatusOK
	if out.ReceiptCreated || out.InspectionCreated {
		status = http.StatusCreated
	}
	writeJSON(w, status, toReceiptOutcome(out))
}

func (h *Handler) GetReceipt(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	rc, err := h.svc.GetReceipt(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toReceipt(rc))
}

func (h *Handler) Transition(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	var req transitionRequest
	if err := decode(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	rc, err := h.svc.ApplyTransition(r.Context(), id, receipts.Status(req.Status), req.ActorID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toReceipt(rc))
}

func (h *Handler) InspectionByReceipt(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	in, err := h.svc.InspectionByReceipt(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toInspection(in))
}

func (h *Handler) GetInspection(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	in, err := h.svc.GetInspection(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toInspection(in))
}

func (h *Handler) StartInspection(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	var req startRequest
	if err := decode(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	in, err := h.svc.StartInspection(r.Context(), id, req.InspectorID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toInspection(in))
}

func (h *Handler) RecordResult(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	itemID, err := pathID(r, "itemID")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	var req resultRequest
	if err := decode(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	it, err := h.svc.RecordResult(r.Context(), id, itemID, quality.ResultInput{
		Result:        quality.Result(req.Result),
		Notes:         req.Notes,
		MeasuredValue: req.MeasuredValue,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toResultItem(*it))
}

func (h *Handler) CompleteInspection(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	var req completeRequest
	if err := decode(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	out, err := h.svc.CompleteInspection(r.Context(), id, req.ActorID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toCompletion(out))
}

func (h *Handler) Report(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	data, err := h.svc.Report(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="inspection_%d.xlsx"`, id))
	_, _ = w.Write(data)
}

// ImportChecklists принимает .xlsx телом запроса или полем file формы.
func (h *Handler) ImportChecklists(w http.ResponseWriter, r *http.Request) {
	var src io.Reader = http.MaxBytesReader(w, r.Body, maxUpload)
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		if err := r.ParseMultipartForm(maxUpload); err != nil {
			h.writeError(w, r, fmt.Errorf("%w: %v", workflow.ErrInvalidRequest, err))
			return
		}
		f, _, err := r.FormFile("file")
		if err != nil {
			h.writeError(w, r, fmt.Errorf("%w: file: %v", workflow.ErrInvalidRequest, err))
			return
		}
		defer func() { _ = f.Close() }()
		src = f
	}

	lists, err := quality.ParseChecklists(src)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if err := h.svc.ImportChecklists(r.Context(), lists); err != nil {
		h.writeError(w, r, err)
		return
	}
	items := 0
	for _, c := range lists {
		items += len(c.Items)
	}
	writeJSON(w, http.StatusCreated, importResponse{Imported: len(lists), Items: items})
}
