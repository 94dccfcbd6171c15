package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"

	"discovery/internal/model"
	"discovery/internal/report"
	"discovery/internal/service"
	"discovery/internal/transport/rest/middleware"
)

// QuestionnaireHandler handles the respondent's own record
type QuestionnaireHandler struct {
	questionnaireSvc *service.QuestionnaireService
	completionSvc    *service.CompletionService
	logger           *zap.Logger
}

// NewQuestionnaireHandler creates a new questionnaire handler
func NewQuestionnaireHandler(questionnaireSvc *service.QuestionnaireService, completionSvc *service.CompletionService, logger *zap.Logger) *QuestionnaireHandler {
	return &QuestionnaireHandler{
		questionnaireSvc: questionnaireSvc,
		completionSvc:    completionSvc,
		logger:           logger,
	}
}

// UpdateSectionResponse is the updated record plus soft validation hints
type UpdateSectionResponse struct {
	*model.QuestionnaireResponse
	Warnings map[string][]string `json:"warnings,omitempty"`
}

// MissingAnswersResponse lists the required questions blocking section completion
type MissingAnswersResponse struct {
	Error   string   `json:"error"`
	Missing []string `json:"missing"`
}

// Me handles GET /v1/responses/me
func (h *QuestionnaireHandler) Me(w http.ResponseWriter, r *http.Request) {
	id, ok := middleware.GetIdentity(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	resp, err := h.questionnaireSvc.LoadOrCreate(r.Context(), *id)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// UpdateSection handles POST /v1/responses/me/sections
func (h *QuestionnaireHandler) UpdateSection(w http.ResponseWriter, r *http.Request) {
	id, ok := middleware.GetIdentity(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	var req model.SectionUpdate
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.SectionID == "" {
		writeError(w, http.StatusBadRequest, "sectionId is required")
		return
	}

	resp, err := h.questionnaireSvc.ApplySectionUpdate(r.Context(), *id, req)
	var missingErr *service.MissingAnswersError
	if errors.As(err, &missingErr) {
		writeJSON(w, http.StatusUnprocessableEntity, MissingAnswersResponse{
			Error:   service.ErrMissingAnswers.Error(),
			Missing: missingErr.Missing,
		})
		return
	}
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	out := UpdateSectionResponse{QuestionnaireResponse: resp}
	if hints := h.questionnaireSvc.AnswerHints(req.SectionID, req.Answers); len(hints) > 0 {
		out.Warnings = hints
	}
	writeJSON(w, http.StatusOK, out)
}

// Complete handles POST /v1/responses/me/complete
func (h *QuestionnaireHandler) Complete(w http.ResponseWriter, r *http.Request) {
	id, ok := middleware.GetIdentity(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	result, err := h.completionSvc.CompleteQuestionnaire(r.Context(), *id)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// Report handles GET /v1/responses/me/report
func (h *QuestionnaireHandler) Report(w http.ResponseWriter, r *http.Request) {
	id, ok := middleware.GetIdentity(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	resp, err := h.questionnaireSvc.GetResponse(r.Context(), id.UserID)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	html, err := h.completionSvc.Render(resp)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeHTML(w, report.Filename(resp, time.Now()), html)
}
