package web

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/luanlucolli2/catarinense-leads-sub000/internal/consult"
	"github.com/luanlucolli2/catarinense-leads-sub000/internal/store"
	"github.com/luanlucolli2/catarinense-leads-sub000/internal/web/middleware"
)

// consultationRequest accepts the document list either as a pasted
// delimited string or as a JSON array.
type consultationRequest struct {
	Title string          `json:"title"`
	CPFs  json.RawMessage `json:"cpfs"`
}

type consultationStatusResponse struct {
	ID           string     `json:"id"`
	Status       string     `json:"status"`
	Total        int        `json:"total"`
	SuccessCount int32      `json:"success_count"`
	FailCount    int32      `json:"fail_count"`
	HasFile      bool       `json:"has_file"`
	StartedAt    *time.Time `json:"started_at"`
	FinishedAt   *time.Time `json:"finished_at"`
}

func (s *Server) handleConsultationSubmit(w http.ResponseWriter, r *http.Request) {
	var req consultationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, r, http.StatusBadRequest, "corpo JSON inválido")
		return
	}

	documents, ok := decodeDocuments(req.CPFs)
	if !ok {
		respondError(w, r, http.StatusBadRequest, "cpfs deve ser uma lista ou texto delimitado")
		return
	}

	batchID, err := s.orchestrator.Submit(r.Context(), req.Title, documents)
	if err != nil {
		respondError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	middleware.RecordConsultation()
	writeJSON(w, http.StatusAccepted, map[string]string{"id": uuid.UUID(batchID.Bytes).String()})
}

// decodeDocuments accepts either `"123, 456"` or `["123", "456"]`.
func decodeDocuments(raw json.RawMessage) ([]string, bool) {
	if len(raw) == 0 {
		return nil, false
	}

	var list []string
	if err := json.Unmarshal(raw, &list); err == nil {
		return list, true
	}

	var text string
	if err := json.Unmarshal(raw, &text); err == nil {
		return consult.SplitDocuments(text), true
	}

	return nil, false
}

func (s *Server) handleConsultationStatus(w http.ResponseWriter, r *http.Request) {
	batchID, ok := parseID(w, r)
	if !ok {
		return
	}

	batch, err := s.queries.GetConsultation(r.Context(), batchID)
	if err != nil {
		respondError(w, r, http.StatusInternalServerError, "falha ao consultar o lote")
		return
	}
	if batch == nil {
		respondError(w, r, http.StatusNotFound, "lote não encontrado")
		return
	}

	resp := consultationStatusResponse{
		ID:           uuid.UUID(batch.ID.Bytes).String(),
		Status:       batch.Status,
		Total:        len(batch.ValidCPFs) + len(batch.InvalidCPFs),
		SuccessCount: batch.SuccessCount,
		FailCount:    batch.FailCount,
		HasFile:      batch.ReportPath.Valid,
	}
	if batch.StartedAt.Valid {
		resp.StartedAt = &batch.StartedAt.Time
	}
	if batch.FinishedAt.Valid {
		resp.FinishedAt = &batch.FinishedAt.Time
	}

	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleConsultationCancel(w http.ResponseWriter, r *http.Request) {
	batchID, ok := parseID(w, r)
	if !ok {
		return
	}

	batch, err := s.queries.GetConsultation(r.Context(), batchID)
	if err != nil {
		respondError(w, r, http.StatusInternalServerError, "falha ao consultar o lote")
		return
	}
	if batch == nil {
		respondError(w, r, http.StatusNotFound, "lote não encontrado")
		return
	}

	flagged, err := s.queries.RequestConsultationCancel(r.Context(), batchID)
	if err != nil {
		respondError(w, r, http.StatusInternalServerError, "falha ao solicitar cancelamento")
		return
	}
	if !flagged {
		respondError(w, r, http.StatusConflict, "lote já finalizado")
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]string{"status": "cancel_requested"})
}

// handleConsultationReport serves the result spreadsheet, gated on a
// completed batch with a stored file.
func (s *Server) handleConsultationReport(w http.ResponseWriter, r *http.Request) {
	batchID, ok := parseID(w, r)
	if !ok {
		return
	}

	batch, err := s.queries.GetConsultation(r.Context(), batchID)
	if err != nil {
		respondError(w, r, http.StatusInternalServerError, "falha ao consultar o lote")
		return
	}
	if batch == nil {
		respondError(w, r, http.StatusNotFound, "lote não encontrado")
		return
	}
	if batch.Status != store.ConsultCompleted || !batch.ReportPath.Valid {
		respondError(w, r, http.StatusConflict, "relatório indisponível")
		return
	}

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", "attachment; filename=consulta-"+uuid.UUID(batchID.Bytes).String()+".xlsx")
	http.ServeFile(w, r, batch.ReportPath.String)
}
