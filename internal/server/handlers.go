package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/KaramelBytes/reportloom-cli/internal/backend"
	"github.com/KaramelBytes/reportloom-cli/internal/chart"
	"github.com/KaramelBytes/reportloom-cli/internal/dataset"
	"github.com/KaramelBytes/reportloom-cli/internal/report"
	"github.com/KaramelBytes/reportloom-cli/internal/session"
	"github.com/KaramelBytes/reportloom-cli/internal/table"
)

const maxBodyBytes = 8 << 20

type assembleRequest struct {
	Response  *report.RawResponse `json:"response"`
	Query     string              `json:"query"`
	DatasetID string              `json:"datasetId"`
}

type askRequest struct {
	Query     string `json:"query"`
	DatasetID string `json:"datasetId"`
	Mode      string `json:"mode"`
}

type recommendRequest struct {
	Rows json.RawMessage `json:"rows"`
}

type recommendResponse struct {
	Chart       chart.Kind     `json:"chart"`
	ColumnOrder []string       `json:"columnOrder"`
	Columns     []chart.Column `json:"columns"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// Handler serves the report API.
type Handler struct {
	assembler *report.Assembler
	sessions  *session.Store
	datasets  dataset.Registry
}

func NewHandler(assembler *report.Assembler, sessions *session.Store, datasets dataset.Registry) *Handler {
	return &Handler{assembler: assembler, sessions: sessions, datasets: datasets}
}

func (h *Handler) Assemble(w http.ResponseWriter, r *http.Request) {
	var req assembleRequest
	if !decodeBody(w, r, &req) {
		return
	}
	writeJSON(w, r, http.StatusOK, h.assembler.Assemble(req.Response, req.Query, req.DatasetID))
}

func (h *Handler) Ask(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := chi.URLParam(r, "session")

	var req askRequest
	if !decodeBody(w, r, &req) {
		return
	}
	mode, err := session.ParseMode(req.Mode)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err)
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		writeError(w, r, http.StatusBadRequest, errors.New("query is required"))
		return
	}
	if req.DatasetID == "" {
		if s, ok := h.sessions.Get(id); !ok || s.DatasetID() == "" {
			writeError(w, r, http.StatusBadRequest, errors.New("datasetId is required"))
			return
		}
	}
	s := h.sessions.Open(id, req.DatasetID)

	rep, err := s.Ask(ctx, req.Query, mode)
	if err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Str("session", id).Msg("ask failed")
		writeError(w, r, statusFor(err), err)
		return
	}
	writeJSON(w, r, http.StatusOK, rep)
}

func (h *Handler) ClearSession(w http.ResponseWriter, r *http.Request) {
	if !h.sessions.Delete(chi.URLParam(r, "session")) {
		writeError(w, r, http.StatusNotFound, errors.New("session not found"))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) ListDatasets(w http.ResponseWriter, r *http.Request) {
	list := []dataset.Dataset{}
	if h.datasets != nil {
		list = append(list, h.datasets.List()...)
	}
	writeJSON(w, r, http.StatusOK, list)
}

func (h *Handler) Recommend(w http.ResponseWriter, r *http.Request) {
	var req recommendRequest
	if !decodeBody(w, r, &req) {
		return
	}
	tbl := table.NormalizeTable(req.Rows)
	writeJSON(w, r, http.StatusOK, recommendResponse{
		Chart:       chart.Recommend(tbl.Rows),
		ColumnOrder: tbl.ColumnOrder,
		Columns:     chart.Columns(tbl.Rows),
	})
}

// statusFor maps session and upstream failures to HTTP statuses.
func statusFor(err error) int {
	var (
		auth     *backend.AuthError
		notFound *backend.DatasetNotFoundError
		bad      *backend.BadRequestError
		limited  *backend.RateLimitError
	)
	switch {
	case errors.Is(err, session.ErrSuperseded):
		return http.StatusConflict
	case errors.Is(err, session.ErrEmptyQuestion):
		return http.StatusBadRequest
	case errors.As(err, &auth):
		return http.StatusUnauthorized
	case errors.As(err, &notFound):
		return http.StatusNotFound
	case errors.As(err, &bad):
		return http.StatusBadRequest
	case errors.As(err, &limited):
		return http.StatusTooManyRequests
	}
	return http.StatusBadGateway
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, r, http.StatusBadRequest, err)
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("failed to encode response")
	}
}

func writeError(w http.ResponseWriter, r *http.Request, status int, err error) {
	writeJSON(w, r, status, errorResponse{Error: err.Error()})
}
