package service

import (
	"fmt"
	"math"

	"discovery/internal/catalog"
	"discovery/internal/codec"
	"discovery/internal/model"
)

// ComputeProgress derives progress from the completion flags of catalog
// sections. Section states the catalog does not know are ignored. When every
// section is complete the previous current section is kept.
func ComputeProgress(cat *catalog.Catalog, sections map[string]*model.SectionState, previous model.Progress) model.Progress {
	total := cat.Len()
	completed := 0
	current := 0

	for i, sec := range cat.Sections() {
		state := sections[sec.ID]
		if state != nil && state.Completed {
			completed++
			continue
		}
		if current == 0 {
			current = i + 1
		}
	}

	if current == 0 {
		current = previous.CurrentSection
		if current < 1 || current > total {
			current = total
		}
	}

	percent := 0
	if total > 0 {
		percent = int(math.Round(100 * float64(completed) / float64(total)))
	}

	return model.Progress{
		TotalSections:     total,
		CompletedSections: completed,
		PercentComplete:   percent,
		CurrentSection:    current,
	}
}

// IsQuestionnaireComplete reports whether every section has been completed
func IsQuestionnaireComplete(r *model.QuestionnaireResponse) bool {
	if r == nil {
		return false
	}
	return r.Progress.TotalSections > 0 && r.Progress.CompletedSections == r.Progress.TotalSections
}

// Status maps a record onto the response lifecycle
func Status(r *model.QuestionnaireResponse) model.ResponseStatus {
	switch {
	case r == nil:
		return model.ResponseNotStarted
	case r.CompletedAt != nil:
		return model.ResponseCompleted
	default:
		return model.ResponseInProgress
	}
}

// ValidateRequiredAnswers returns the ids of required questions in the section
// whose answers are missing, in catalog order. A required follow-up counts
// only while its parent is answered yes.
func ValidateRequiredAnswers(cat *catalog.Catalog, sectionID string, state *model.SectionState) ([]string, error) {
	sec, ok := cat.Section(sectionID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownSection, sectionID)
	}

	var answers model.SectionAnswers
	if state != nil {
		answers = state.Answers
	}

	missing := []string{}
	for i := range sec.Questions {
		q := &sec.Questions[i]
		v := answers[q.ID]
		if q.Required && codec.IsEmpty(v) {
			missing = append(missing, q.ID)
			continue
		}
		if q.Followup != nil && q.Followup.Required {
			if f, active := codec.FollowupAnswer(v); active && codec.IsEmpty(f) {
				missing = append(missing, q.Followup.ID)
			}
		}
	}
	return missing, nil
}
