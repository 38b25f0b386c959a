package api

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"

	"github.com/intraylabs/intray/internal/ai"
	respond "github.com/intraylabs/intray/internal/api/respond"
	"github.com/intraylabs/intray/internal/api/validate"
	"github.com/intraylabs/intray/internal/auth"
	"github.com/intraylabs/intray/internal/model"
	"github.com/intraylabs/intray/internal/services"
)

// RecordHandler is a thin HTTP transport over the RecordService.
type RecordHandler struct {
	svc RecordService
}

func NewRecordHandler(svc RecordService) *RecordHandler { return &RecordHandler{svc: svc} }

// mediaBody is the optional attachment of a capture or analyze request.
// An omitted mimeType defaults to JPEG.
type mediaBody struct {
	MIMEType   string `json:"mimeType"`
	DataBase64 string `json:"dataBase64"`
}

// part decodes and validates the attachment.
func (m *mediaBody) part() (ai.Part, error) {
	data, err := base64.StdEncoding.DecodeString(m.DataBase64)
	if err != nil {
		return ai.Part{}, fmt.Errorf("media content is not valid base64")
	}
	mt := m.MIMEType
	if mt == "" {
		mt = "image/jpeg"
	}
	if err := validate.MIMEType(mt); err != nil {
		return ai.Part{}, err
	}
	if err := validate.FileSize(len(data)); err != nil {
		return ai.Part{}, err
	}
	return ai.Part{MIMEType: mt, Data: data}, nil
}

// inferInputType picks the stored input type when the request omits one.
func inferInputType(media *mediaBody) model.InputType {
	if media == nil {
		return model.InputText
	}
	if media.MIMEType == "application/pdf" {
		return model.InputPDF
	}
	return model.InputImage
}

// CreateRecord POST /v0/records
func (h *RecordHandler) CreateRecord(w http.ResponseWriter, r *http.Request) {
	userID, err := auth.UserID(r)
	if err != nil {
		respond.WriteUnauthorized(w, err.Error())
		return
	}
	var req struct {
		InputType string     `json:"inputType"`
		Text      string     `json:"text"`
		Media     *mediaBody `json:"media"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.WriteBadRequest(w, "Invalid JSON")
		return
	}
	if err := validate.Text(req.Text); err != nil {
		respond.WriteBadRequest(w, err.Error())
		return
	}
	var media []ai.Part
	if req.Media != nil {
		p, err := req.Media.part()
		if err != nil {
			respond.WriteBadRequest(w, err.Error())
			return
		}
		media = append(media, p)
	}
	inputType := model.InputType(req.InputType)
	if inputType == "" {
		inputType = inferInputType(req.Media)
	}
	rec, err := h.svc.CreateRecord(r.Context(), services.CreateRecordRequest{
		UserID:    userID,
		InputType: inputType,
		Text:      req.Text,
		Media:     media,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusCreated, rec)
}

// ListRecords GET /v0/records?status=&includeDeleted=&limit=
func (h *RecordHandler) ListRecords(w http.ResponseWriter, r *http.Request) {
	userID, err := auth.UserID(r)
	if err != nil {
		respond.WriteUnauthorized(w, err.Error())
		return
	}
	q := r.URL.Query()
	f := model.RecordFilter{
		Status:         model.RecordStatus(strings.ToUpper(q.Get("status"))),
		IncludeDeleted: q.Get("includeDeleted") == "true",
	}
	switch f.Status {
	case "", model.StatusPending, model.StatusAnalyzed, model.StatusCompleted, model.StatusCanceled:
	default:
		respond.WriteBadRequest(w, fmt.Sprintf("unknown status %q", f.Status))
		return
	}
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			respond.WriteBadRequest(w, "limit must be a non-negative integer")
			return
		}
		f.Limit = n
	}
	recs, err := h.svc.ListRecords(r.Context(), userID, f)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusOK, map[string]interface{}{"records": recs, "count": len(recs)})
}

// GetRecord GET /v0/records/{recordId}
func (h *RecordHandler) GetRecord(w http.ResponseWriter, r *http.Request) {
	userID, err := auth.UserID(r)
	if err != nil {
		respond.WriteUnauthorized(w, err.Error())
		return
	}
	rec, err := h.svc.GetRecord(r.Context(), userID, mux.Vars(r)["recordId"])
	if err != nil {
		writeServiceError(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusOK, rec)
}

// UpdateRecord PATCH /v0/records/{recordId}
func (h *RecordHandler) UpdateRecord(w http.ResponseWriter, r *http.Request) {
	userID, err := auth.UserID(r)
	if err != nil {
		respond.WriteUnauthorized(w, err.Error())
		return
	}
	var req struct {
		Text         *string         `json:"text"`
		AnalysisData json.RawMessage `json:"analysisData"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.WriteBadRequest(w, "Invalid JSON")
		return
	}
	if err := validate.UpdateRecord(req.Text, req.AnalysisData); err != nil {
		respond.WriteBadRequest(w, err.Error())
		return
	}
	rec, err := h.svc.UpdateRecord(r.Context(), userID, mux.Vars(r)["recordId"], services.UpdateRecordRequest{
		Text:         req.Text,
		AnalysisData: req.AnalysisData,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusOK, rec)
}

// CancelRecord DELETE /v0/records/{recordId}
func (h *RecordHandler) CancelRecord(w http.ResponseWriter, r *http.Request) {
	userID, err := auth.UserID(r)
	if err != nil {
		respond.WriteUnauthorized(w, err.Error())
		return
	}
	if _, err := h.svc.CancelRecord(r.Context(), userID, mux.Vars(r)["recordId"]); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// UploadRecord POST /v0/records/{recordId}/upload
// The body is optional; finalData overrides the stored analysis. A Google
// access token may ride in the X-Google-Token header for calendar targets.
func (h *RecordHandler) UploadRecord(w http.ResponseWriter, r *http.Request) {
	userID, err := auth.UserID(r)
	if err != nil {
		respond.WriteUnauthorized(w, err.Error())
		return
	}
	var req struct {
		FinalData json.RawMessage `json:"finalData"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && err != io.EOF {
		respond.WriteBadRequest(w, "Invalid JSON")
		return
	}
	if len(req.FinalData) > 0 {
		if err := validate.IsJSONObject("finalData", req.FinalData); err != nil {
			respond.WriteBadRequest(w, err.Error())
			return
		}
	}
	rec, err := h.svc.UploadRecord(r.Context(), userID, mux.Vars(r)["recordId"], services.UploadRecordRequest{
		FinalData:   req.FinalData,
		GoogleToken: r.Header.Get("X-Google-Token"),
	})
	if err != nil {
		if isClientFault(err) {
			writeServiceError(w, err)
			return
		}
		// The record and request were fine; the provider call failed.
		respond.WriteError(w, http.StatusBadGateway, err.Error())
		return
	}
	respond.WriteJSON(w, http.StatusOK, rec)
}

// ReanalyzeRecord POST /v0/records/{recordId}/reanalyze
func (h *RecordHandler) ReanalyzeRecord(w http.ResponseWriter, r *http.Request) {
	userID, err := auth.UserID(r)
	if err != nil {
		respond.WriteUnauthorized(w, err.Error())
		return
	}
	rec, err := h.svc.ReanalyzeRecord(r.Context(), userID, mux.Vars(r)["recordId"])
	if err != nil {
		writeServiceError(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusAccepted, rec)
}

// Analyze POST /v0/analyze
// Runs classification synchronously without persisting a record.
func (h *RecordHandler) Analyze(w http.ResponseWriter, r *http.Request) {
	userID, err := auth.UserID(r)
	if err != nil {
		respond.WriteUnauthorized(w, err.Error())
		return
	}
	var req struct {
		Text  string     `json:"text"`
		Media *mediaBody `json:"media"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.WriteBadRequest(w, "Invalid JSON")
		return
	}
	if err := validate.Text(req.Text); err != nil {
		respond.WriteBadRequest(w, err.Error())
		return
	}
	var media []ai.Part
	if req.Media != nil {
		p, err := req.Media.part()
		if err != nil {
			respond.WriteBadRequest(w, err.Error())
			return
		}
		media = append(media, p)
	}
	res, err := h.svc.Analyze(r.Context(), userID, req.Text, media)
	if err != nil {
		if isClientFault(err) {
			writeServiceError(w, err)
			return
		}
		respond.WriteError(w, http.StatusBadGateway, err.Error())
		return
	}
	respond.WriteJSON(w, http.StatusOK, res)
}
