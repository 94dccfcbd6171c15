package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"discovery/internal/catalog"
	"discovery/internal/codec"
	"discovery/internal/model"
	"discovery/internal/repository"
)

var (
	ErrUnknownSection   = errors.New("unknown section")
	ErrResponseNotFound = errors.New("response not found")
	ErrIncomplete       = errors.New("questionnaire is not complete")
	ErrMissingIdentity  = errors.New("user id and email are required")
	ErrMissingAnswers   = errors.New("required questions are unanswered")
)

// MissingAnswersError rejects a section completion and names the unanswered questions
type MissingAnswersError struct {
	SectionID string
	Missing   []string
}

func (e *MissingAnswersError) Error() string {
	return fmt.Sprintf("%s: section %s: %v", ErrMissingAnswers, e.SectionID, e.Missing)
}

func (e *MissingAnswersError) Unwrap() error {
	return ErrMissingAnswers
}

// QuestionnaireService owns the response state machine
type QuestionnaireService struct {
	repo        repository.ResponseRepo
	catalog     *catalog.Catalog
	logger      *zap.Logger
	broadcaster Broadcaster
	now         func() time.Time

	group singleflight.Group

	mu    sync.Mutex
	locks map[string]*userLock
}

type userLock struct {
	sync.Mutex
	refs int
}

// NewQuestionnaireService creates a new questionnaire service
func NewQuestionnaireService(repo repository.ResponseRepo, cat *catalog.Catalog, logger *zap.Logger) *QuestionnaireService {
	return &QuestionnaireService{
		repo:    repo,
		catalog: cat,
		logger:  logger,
		now:     time.Now,
		locks:   make(map[string]*userLock),
	}
}

// SetBroadcaster sets the admin feed broadcaster
func (s *QuestionnaireService) SetBroadcaster(b Broadcaster) {
	s.broadcaster = b
}

// SetClock replaces the time source
func (s *QuestionnaireService) SetClock(now func() time.Time) {
	s.now = now
}

// Catalog returns the catalog the service was built with
func (s *QuestionnaireService) Catalog() *catalog.Catalog {
	return s.catalog
}

// lock serializes read-modify-write cycles for one user within the process
func (s *QuestionnaireService) lock(userID string) func() {
	s.mu.Lock()
	l, ok := s.locks[userID]
	if !ok {
		l = &userLock{}
		s.locks[userID] = l
	}
	l.refs++
	s.mu.Unlock()

	l.Lock()
	return func() {
		l.Unlock()
		s.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(s.locks, userID)
		}
		s.mu.Unlock()
	}
}

// LoadOrCreate returns the user's record, creating and persisting a fresh one
// on first access. Concurrent first calls share one creation.
func (s *QuestionnaireService) LoadOrCreate(ctx context.Context, id model.Identity) (*model.QuestionnaireResponse, error) {
	if id.UserID == "" || id.Email == "" {
		return nil, ErrMissingIdentity
	}
	v, err, _ := s.group.Do(id.UserID, func() (interface{}, error) {
		unlock := s.lock(id.UserID)
		defer unlock()
		return s.loadOrCreateLocked(ctx, id)
	})
	if err != nil {
		return nil, err
	}
	return v.(*model.QuestionnaireResponse), nil
}

func (s *QuestionnaireService) loadOrCreateLocked(ctx context.Context, id model.Identity) (*model.QuestionnaireResponse, error) {
	resp, err := s.repo.Get(ctx, id.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to load response: %w", err)
	}

	if resp == nil {
		resp = s.newResponse(id)
		if err := s.repo.Save(ctx, resp); err != nil {
			return nil, fmt.Errorf("failed to create response: %w", err)
		}
		s.logger.Info("created questionnaire response",
			zap.String("userId", id.UserID),
			zap.Int("sections", len(resp.Sections)))
		return resp, nil
	}

	s.refreshProgress(resp)
	if s.migrateRankings(resp) {
		if err := s.repo.Save(ctx, resp); err != nil {
			s.logger.Warn("failed to persist migrated ranking answers",
				zap.String("userId", id.UserID), zap.Error(err))
		} else {
			s.logger.Info("migrated legacy ranking answers", zap.String("userId", id.UserID))
		}
	}
	return resp, nil
}

func (s *QuestionnaireService) newResponse(id model.Identity) *model.QuestionnaireResponse {
	now := s.now().UTC()
	sections := make(map[string]*model.SectionState, s.catalog.Len())
	for i := range s.catalog.Sections() {
		sec := &s.catalog.Sections()[i]
		sections[sec.ID] = newSectionState(sec, now)
	}

	resp := &model.QuestionnaireResponse{
		ID:           id.UserID,
		PartitionKey: model.ResponsePartition,
		RowKey:       id.UserID,
		Timestamp:    now,
		LastUpdated:  now,
		StartedAt:    now,
		Sections:     sections,
		Metadata: model.ResponseMetadata{
			UserEmail: id.Email,
			UserName:  id.Name,
			Browser:   id.UserAgent,
		},
	}
	resp.Progress = ComputeProgress(s.catalog, sections, repository.DefaultProgress(s.catalog.Len()))
	return resp
}

func newSectionState(sec *model.Section, now time.Time) *model.SectionState {
	return &model.SectionState{
		ID:           sec.ID,
		Name:         sec.Name,
		Answers:      model.SectionAnswers{},
		LastModified: now,
	}
}

// refreshProgress rederives progress from the section flags. The stored
// progress blob is a cache and may be stale or defaulted after corruption.
func (s *QuestionnaireService) refreshProgress(resp *model.QuestionnaireResponse) {
	resp.Progress = ComputeProgress(s.catalog, resp.Sections, resp.Progress)
}

// migrateRankings rewrites stored ranking answers into the canonical order
func (s *QuestionnaireService) migrateRankings(resp *model.QuestionnaireResponse) bool {
	dirty := false
	for _, sec := range s.catalog.Sections() {
		state := resp.Sections[sec.ID]
		if state == nil {
			continue
		}
		for i := range sec.Questions {
			q := &sec.Questions[i]
			if q.Type != model.QuestionTypePriorityRanking {
				continue
			}
			v, ok := state.Answers[q.ID]
			if !ok || v == nil {
				continue
			}
			if order, changed := codec.NormalizeRanking(v, q.OptionValues()); changed {
				state.Answers[q.ID] = order
				dirty = true
			}
		}
	}
	return dirty
}

// ApplySectionUpdate merges a partial answer set into a section, applies the
// completion flag, recomputes progress and persists the record. Marking a
// section completed while required answers are missing returns a
// *MissingAnswersError and leaves the record untouched.
func (s *QuestionnaireService) ApplySectionUpdate(ctx context.Context, id model.Identity, upd model.SectionUpdate) (*model.QuestionnaireResponse, error) {
	if id.UserID == "" || id.Email == "" {
		return nil, ErrMissingIdentity
	}
	sec, ok := s.catalog.Section(upd.SectionID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownSection, upd.SectionID)
	}

	unlock := s.lock(id.UserID)
	defer unlock()

	resp, err := s.loadOrCreateLocked(ctx, id)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	state := resp.Sections[sec.ID]
	if state == nil {
		state = newSectionState(sec, now)
		resp.Sections[sec.ID] = state
	}
	merged := state.MergedAnswers(s.normalizeAnswers(sec, upd.Answers))

	if upd.Completed != nil && *upd.Completed {
		missing, err := ValidateRequiredAnswers(s.catalog, sec.ID, &model.SectionState{ID: sec.ID, Answers: merged})
		if err != nil {
			return nil, err
		}
		if len(missing) > 0 {
			return nil, &MissingAnswersError{SectionID: sec.ID, Missing: missing}
		}
	}

	state.Answers = merged
	state.LastModified = now

	if upd.Completed != nil {
		state.Completed = *upd.Completed
		if state.Completed {
			t := now
			state.CompletedAt = &t
		} else {
			state.CompletedAt = nil
		}
	}
	if upd.TimeSpent != nil && *upd.TimeSpent > resp.Metadata.TimeSpent {
		resp.Metadata.TimeSpent = *upd.TimeSpent
	}

	resp.Progress = ComputeProgress(s.catalog, resp.Sections, resp.Progress)
	if resp.CompletedAt == nil && IsQuestionnaireComplete(resp) {
		t := now
		resp.CompletedAt = &t
		s.logger.Info("all sections completed", zap.String("userId", id.UserID))
	}
	resp.LastUpdated = now
	resp.Timestamp = now

	if err := s.repo.Save(ctx, resp); err != nil {
		return nil, fmt.Errorf("failed to save response: %w", err)
	}

	s.logger.Debug("section updated",
		zap.String("userId", id.UserID),
		zap.String("sectionId", sec.ID),
		zap.Int("answers", len(upd.Answers)),
		zap.Int("percentComplete", resp.Progress.PercentComplete))

	if s.broadcaster != nil {
		s.broadcaster.BroadcastToAdmins(EventResponseUpdated, newResponseEvent(resp, sec.ID))
	}
	return resp, nil
}

// CheckSectionUpdate previews the merge of upd and returns the required
// questions that would still be missing. Nothing is persisted.
func (s *QuestionnaireService) CheckSectionUpdate(ctx context.Context, id model.Identity, upd model.SectionUpdate) ([]string, error) {
	sec, ok := s.catalog.Section(upd.SectionID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownSection, upd.SectionID)
	}
	unlock := s.lock(id.UserID)
	defer unlock()

	resp, err := s.repo.Get(ctx, id.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to load response: %w", err)
	}

	preview := &model.SectionState{ID: sec.ID}
	if resp != nil && resp.Sections[sec.ID] != nil {
		preview.Answers = resp.Sections[sec.ID].Answers
	}
	preview.Answers = preview.MergedAnswers(s.normalizeAnswers(sec, upd.Answers))
	return s.ValidateRequiredAnswers(sec.ID, preview)
}

// ValidateRequiredAnswers checks a section state against the catalog
func (s *QuestionnaireService) ValidateRequiredAnswers(sectionID string, state *model.SectionState) ([]string, error) {
	return ValidateRequiredAnswers(s.catalog, sectionID, state)
}

// AnswerHints returns soft validation hints for a patch, keyed by question id
func (s *QuestionnaireService) AnswerHints(sectionID string, answers model.SectionAnswers) map[string][]string {
	sec, ok := s.catalog.Section(sectionID)
	if !ok {
		return nil
	}
	hints := make(map[string][]string)
	for i := range sec.Questions {
		q := &sec.Questions[i]
		v, present := answers[q.ID]
		if !present {
			continue
		}
		if h := codec.Validate(q, codec.Normalize(q, v)); len(h) > 0 {
			hints[q.ID] = h
		}
	}
	return hints
}

func (s *QuestionnaireService) normalizeAnswers(sec *model.Section, answers model.SectionAnswers) model.SectionAnswers {
	out := make(model.SectionAnswers, len(answers))
	for qid, v := range answers {
		if q, ok := s.catalog.Question(sec.ID, qid); ok {
			out[qid] = codec.Normalize(q, v)
			continue
		}
		out[qid] = v
	}
	return out
}

// GetResponse returns one user's record for administrative access
func (s *QuestionnaireService) GetResponse(ctx context.Context, userID string) (*model.QuestionnaireResponse, error) {
	resp, err := s.repo.Get(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get response: %w", err)
	}
	if resp == nil {
		return nil, ErrResponseNotFound
	}
	s.refreshProgress(resp)
	return resp, nil
}

// ListResponses returns every stored record
func (s *QuestionnaireService) ListResponses(ctx context.Context) ([]*model.QuestionnaireResponse, error) {
	responses, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list responses: %w", err)
	}
	for _, resp := range responses {
		s.refreshProgress(resp)
	}
	return responses, nil
}
