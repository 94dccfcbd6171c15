package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"discovery/internal/model"
	"discovery/internal/report"
)

var ErrNoNotifier = errors.New("no notifier configured")

const (
	completedMessage       = "Questionnaire completed successfully"
	completedUnsentMessage = "Questionnaire completed. The notification email could not be sent; please download your copy."
)

// Notifier delivers the completion message. Failures are not fatal to completion.
type Notifier interface {
	Notify(ctx context.Context, n model.Notification) error
}

// CompletionService renders the final report and notifies on completion
type CompletionService struct {
	questionnaire *QuestionnaireService
	notifier      Notifier
	timeout       time.Duration
	logger        *zap.Logger
	broadcaster   Broadcaster
	now           func() time.Time
}

// NewCompletionService creates a new completion service
func NewCompletionService(questionnaire *QuestionnaireService, notifier Notifier, timeout time.Duration, logger *zap.Logger) *CompletionService {
	return &CompletionService{
		questionnaire: questionnaire,
		notifier:      notifier,
		timeout:       timeout,
		logger:        logger,
		now:           time.Now,
	}
}

// SetBroadcaster sets the admin feed broadcaster
func (s *CompletionService) SetBroadcaster(b Broadcaster) {
	s.broadcaster = b
}

// SetClock replaces the time source
func (s *CompletionService) SetClock(now func() time.Time) {
	s.now = now
}

// CompleteQuestionnaire renders the report for a fully completed record and
// sends it best effort. A delivery failure still reports success.
func (s *CompletionService) CompleteQuestionnaire(ctx context.Context, id model.Identity) (*model.CompletionResult, error) {
	resp, err := s.questionnaire.GetResponse(ctx, id.UserID)
	if err != nil {
		return nil, err
	}
	if !IsQuestionnaireComplete(resp) {
		return nil, ErrIncomplete
	}

	html, err := s.Render(resp)
	if err != nil {
		return nil, err
	}

	result := &model.CompletionResult{Success: true, Message: completedMessage, HTML: html}
	if err := s.notify(ctx, resp, html); err != nil {
		s.logger.Warn("completion notification failed",
			zap.String("userId", id.UserID), zap.Error(err))
		result.Message = completedUnsentMessage
	} else {
		result.Notified = true
	}

	s.logger.Info("questionnaire completed",
		zap.String("userId", id.UserID),
		zap.Bool("notified", result.Notified))
	if s.broadcaster != nil {
		s.broadcaster.BroadcastToAdmins(EventQuestionnaireCompleted, newResponseEvent(resp, ""))
	}
	return result, nil
}

// Render produces the report document for a record
func (s *CompletionService) Render(resp *model.QuestionnaireResponse) (string, error) {
	return report.Render(s.questionnaire.Catalog(), resp)
}

func (s *CompletionService) notify(ctx context.Context, resp *model.QuestionnaireResponse, html string) error {
	if s.notifier == nil {
		return ErrNoNotifier
	}
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	n := model.Notification{
		Subject:        fmt.Sprintf("%s Completed - %s", report.Title(s.questionnaire.Catalog()), report.Respondent(resp)),
		HTMLBody:       html,
		AttachmentName: report.Filename(resp, s.now()),
		Attachment:     []byte(html),
	}
	return s.notifier.Notify(ctx, n)
}
