package service

import (
	"time"

	"discovery/internal/model"
)

// Admin feed event types
const (
	EventResponseUpdated        = "response_updated"
	EventQuestionnaireCompleted = "questionnaire_completed"
)

// Broadcaster interface for WebSocket broadcasting (avoids import cycle)
type Broadcaster interface {
	BroadcastToAdmins(msgType string, payload interface{})
}

// ResponseEvent is the payload of admin feed events
type ResponseEvent struct {
	UserID      string         `json:"userId"`
	Email       string         `json:"email"`
	Name        string         `json:"name"`
	SectionID   string         `json:"sectionId,omitempty"`
	Progress    model.Progress `json:"progress"`
	CompletedAt *time.Time     `json:"completedAt,omitempty"`
}

func newResponseEvent(r *model.QuestionnaireResponse, sectionID string) ResponseEvent {
	return ResponseEvent{
		UserID:      r.RowKey,
		Email:       r.Metadata.UserEmail,
		Name:        r.Metadata.UserName,
		SectionID:   sectionID,
		Progress:    r.Progress,
		CompletedAt: r.CompletedAt,
	}
}
