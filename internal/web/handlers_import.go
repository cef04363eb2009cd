package web

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/luanlucolli2/catarinense-leads-sub000/internal/importer"
	"github.com/luanlucolli2/catarinense-leads-sub000/internal/store"
	"github.com/luanlucolli2/catarinense-leads-sub000/internal/web/middleware"
)

// importStatusResponse is the polling contract for import jobs.
type importStatusResponse struct {
	ID            string  `json:"id"`
	Status        string  `json:"status"`
	ProcessedRows int32   `json:"processed_rows"`
	TotalRows     int32   `json:"total_rows"`
	Percent       float64 `json:"percent"`
	ErrorsCount   int64   `json:"errors_count"`
}

// handleImportSubmit accepts a multipart upload {file, type, origin}
// and admits it as a new batch. 409 when another import is active.
func (s *Server) handleImportSubmit(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxFileSize)
	if err := r.ParseMultipartForm(s.maxFileSize); err != nil {
		respondError(w, r, http.StatusBadRequest, "arquivo inválido ou grande demais")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		respondError(w, r, http.StatusBadRequest, "campo 'file' é obrigatório")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		respondError(w, r, http.StatusBadRequest, "falha ao ler o arquivo")
		return
	}

	importType := r.FormValue("type")
	origin := r.FormValue("origin")

	batchID, err := s.engine.Submit(r.Context(), importType, origin, header.Filename, data)
	switch {
	case errors.Is(err, store.ErrImportInProgress):
		respondError(w, r, http.StatusConflict, "já existe uma importação em andamento")
		return
	case errors.Is(err, importer.ErrUnknownImportType):
		respondError(w, r, http.StatusBadRequest, "type deve ser cadastral ou higienizacao")
		return
	case err != nil:
		respondError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	middleware.RecordImport(importType)
	writeJSON(w, http.StatusAccepted, map[string]string{"id": uuid.UUID(batchID.Bytes).String()})
}

func (s *Server) handleImportStatus(w http.ResponseWriter, r *http.Request) {
	batchID, ok := parseID(w, r)
	if !ok {
		return
	}

	batch, err := s.queries.GetImportBatch(r.Context(), batchID)
	if err != nil {
		respondError(w, r, http.StatusInternalServerError, "falha ao consultar o lote")
		return
	}
	if batch == nil {
		respondError(w, r, http.StatusNotFound, "lote não encontrado")
		return
	}

	errorsCount, err := s.queries.CountRowErrors(r.Context(), batchID)
	if err != nil {
		respondError(w, r, http.StatusInternalServerError, "falha ao contar erros")
		return
	}

	percent := 0.0
	if batch.TotalRows > 0 {
		percent = float64(batch.ProcessedRows) / float64(batch.TotalRows) * 100
	}

	writeJSON(w, http.StatusOK, importStatusResponse{
		ID:            uuid.UUID(batch.ID.Bytes).String(),
		Status:        batch.Status,
		ProcessedRows: batch.ProcessedRows,
		TotalRows:     batch.TotalRows,
		Percent:       percent,
		ErrorsCount:   errorsCount,
	})
}

// handleImportErrors streams the batch's row errors as CSV.
func (s *Server) handleImportErrors(w http.ResponseWriter, r *http.Request) {
	batchID, ok := parseID(w, r)
	if !ok {
		return
	}

	batch, err := s.queries.GetImportBatch(r.Context(), batchID)
	if err != nil {
		respondError(w, r, http.StatusInternalServerError, "falha ao consultar o lote")
		return
	}
	if batch == nil {
		respondError(w, r, http.StatusNotFound, "lote não encontrado")
		return
	}

	rowErrors, err := s.queries.ListRowErrors(r.Context(), batchID)
	if err != nil {
		respondError(w, r, http.StatusInternalServerError, "falha ao listar erros")
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition",
		fmt.Sprintf("attachment; filename=erros-%s.csv", uuid.UUID(batchID.Bytes)))

	cw := csv.NewWriter(w)
	defer cw.Flush()

	cw.Write([]string{"Row", "Column", "Message"})
	for _, e := range rowErrors {
		cw.Write([]string{strconv.Itoa(int(e.RowNumber)), e.Column, e.Message})
	}
}

func (s *Server) handleImportRollback(w http.ResponseWriter, r *http.Request) {
	batchID, ok := parseID(w, r)
	if !ok {
		return
	}

	err := s.engine.Rollback(r.Context(), batchID)
	switch {
	case errors.Is(err, importer.ErrBatchNotFound):
		respondError(w, r, http.StatusNotFound, "lote não encontrado")
		return
	case errors.Is(err, importer.ErrRollbackNotAllowed),
		errors.Is(err, importer.ErrRollbackNotLatest):
		respondError(w, r, http.StatusConflict, err.Error())
		return
	case err != nil:
		respondError(w, r, http.StatusInternalServerError, "falha ao reverter o lote")
		return
	}

	middleware.RecordRollback()
	writeJSON(w, http.StatusOK, map[string]string{"status": store.BatchRolledBack})
}

// parseID reads the {id} route param as a UUID, answering 400 itself
// when malformed.
func parseID(w http.ResponseWriter, r *http.Request) (pgtype.UUID, bool) {
	raw := chi.URLParam(r, "id")
	parsed, err := uuid.Parse(raw)
	if err != nil {
		respondError(w, r, http.StatusBadRequest, "id inválido")
		return pgtype.UUID{}, false
	}
	return pgtype.UUID{Bytes: parsed, Valid: true}, true
}
