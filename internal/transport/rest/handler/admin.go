package handler

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"discovery/internal/model"
	"discovery/internal/report"
	"discovery/internal/service"
)

// AdminHandler exposes read-only access to every response
type AdminHandler struct {
	questionnaireSvc *service.QuestionnaireService
	completionSvc    *service.CompletionService
	logger           *zap.Logger
}

// NewAdminHandler creates a new admin handler
func NewAdminHandler(questionnaireSvc *service.QuestionnaireService, completionSvc *service.CompletionService, logger *zap.Logger) *AdminHandler {
	return &AdminHandler{
		questionnaireSvc: questionnaireSvc,
		completionSvc:    completionSvc,
		logger:           logger,
	}
}

// ResponseSummary is one row of the admin listing
type ResponseSummary struct {
	UserID      string               `json:"userId"`
	Email       string               `json:"email"`
	Name        string               `json:"name"`
	Status      model.ResponseStatus `json:"status"`
	Progress    model.Progress       `json:"progress"`
	StartedAt   time.Time            `json:"startedAt"`
	LastUpdated time.Time            `json:"lastUpdated"`
	CompletedAt *time.Time           `json:"completedAt"`
}

// List handles GET /v1/admin/responses
func (h *AdminHandler) List(w http.ResponseWriter, r *http.Request) {
	responses, err := h.questionnaireSvc.ListResponses(r.Context())
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	if r.URL.Query().Get("view") == "summary" {
		summaries := make([]ResponseSummary, 0, len(responses))
		for _, resp := range responses {
			summaries = append(summaries, ResponseSummary{
				UserID:      resp.RowKey,
				Email:       resp.Metadata.UserEmail,
				Name:        resp.Metadata.UserName,
				Status:      service.Status(resp),
				Progress:    resp.Progress,
				StartedAt:   resp.StartedAt,
				LastUpdated: resp.LastUpdated,
				CompletedAt: resp.CompletedAt,
			})
		}
		writeJSON(w, http.StatusOK, summaries)
		return
	}
	writeJSON(w, http.StatusOK, responses)
}

// Get handles GET /v1/admin/responses/{userId}
func (h *AdminHandler) Get(w http.ResponseWriter, r *http.Request) {
	resp, err := h.questionnaireSvc.GetResponse(r.Context(), mux.Vars(r)["userId"])
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// Report handles GET /v1/admin/responses/{userId}/report
func (h *AdminHandler) Report(w http.ResponseWriter, r *http.Request) {
	resp, err := h.questionnaireSvc.GetResponse(r.Context(), mux.Vars(r)["userId"])
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
