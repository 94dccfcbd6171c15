package model

import "time"

// ResponsePartition is the single logical group all response rows live under
const ResponsePartition = "responses"

// ResponseStatus is the lifecycle state of a response record
type ResponseStatus string

const (
	ResponseNotStarted ResponseStatus = "not_started"
	ResponseInProgress ResponseStatus = "in_progress"
	ResponseCompleted  ResponseStatus = "completed"
)

// SectionAnswers maps question id to an answer whose shape depends on the question type
type SectionAnswers map[string]interface{}

// SectionState is the mutable per-section part of a response
type SectionState struct {
	ID           string         `json:"id"`
	Name         string         `json:"name"`
	Completed    bool           `json:"completed"`
	CompletedAt  *time.Time     `json:"completedAt"`
	Answers      SectionAnswers `json:"answers"`
	LastModified time.Time      `json:"lastModified"`
}

// MergedAnswers returns a shallow union of the current answers and patch.
// The receiver is not modified.
func (s *SectionState) MergedAnswers(patch SectionAnswers) SectionAnswers {
	merged := make(SectionAnswers, len(s.Answers)+len(patch))
	for k, v := range s.Answers {
		merged[k] = v
	}
	for k, v := range patch {
		merged[k] = v
	}
	return merged
}

// Progress is derived from section completion flags
type Progress struct {
	TotalSections     int `json:"totalSections"`
	CompletedSections int `json:"completedSections"`
	PercentComplete   int `json:"percentComplete"`
	CurrentSection    int `json:"currentSection"` // 1-based catalog index
}

// ResponseMetadata describes the respondent
type ResponseMetadata struct {
	UserEmail string `json:"userEmail"`
	UserName  string `json:"userName"`
	Browser   string `json:"browser,omitempty"`
	Device    string `json:"device,omitempty"`
	TimeSpent int    `json:"timeSpent,omitempty"` // seconds
}

// QuestionnaireResponse is the single authoritative record per user
type QuestionnaireResponse struct {
	ID           string                   `json:"id"`
	PartitionKey string                   `json:"partitionKey"`
	RowKey       string                   `json:"rowKey"`
	Timestamp    time.Time                `json:"timestamp"`
	LastUpdated  time.Time                `json:"lastUpdated"`
	StartedAt    time.Time                `json:"startedAt"`
	CompletedAt  *time.Time               `json:"completedAt"`
	Progress     Progress                 `json:"progress"`
	Sections     map[string]*SectionState `json:"sections"`
	Metadata     ResponseMetadata         `json:"metadata"`
}

// SectionUpdate is a partial answer set for one section
type SectionUpdate struct {
	SectionID string         `json:"sectionId"`
	Answers   SectionAnswers `json:"answers"`
	Completed *bool          `json:"completed,omitempty"`
	TimeSpent *int           `json:"timeSpent,omitempty"`
}

// CompletionResult is returned by the complete-questionnaire operation
type CompletionResult struct {
	Success  bool   `json:"success"`
	Message  string `json:"message"`
	HTML     string `json:"html"`
	Notified bool   `json:"notified"`
}
