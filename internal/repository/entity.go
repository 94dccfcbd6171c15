package repository

import (
	"encoding/json"
	"time"

	"discovery/internal/model"
)

// Flat entity field names
const (
	FieldID           = "id"
	FieldPartitionKey = "partitionKey"
	FieldRowKey       = "rowKey"
	FieldTimestamp    = "timestamp"
	FieldLastUpdated  = "lastUpdated"
	FieldStartedAt    = "startedAt"
	FieldCompletedAt  = "completedAt"
	FieldProgress     = "progressJson"
	FieldSections     = "sectionsJson"
	FieldMetadata     = "metadataJson"

	// un-suffixed names written by older deployments
	legacyProgress = "progress"
	legacySections = "sections"
	legacyMetadata = "metadata"
)

const timeLayout = time.RFC3339Nano

// CorruptFunc is told about a blob that could not be decoded and was defaulted
type CorruptFunc func(field string, err error)

// DefaultProgress is the progress of a record with nothing completed
func DefaultProgress(totalSections int) model.Progress {
	return model.Progress{TotalSections: totalSections, CurrentSection: 1}
}

// EncodeEntity flattens a response into scalar fields and JSON blobs
func EncodeEntity(r *model.QuestionnaireResponse) (map[string]string, error) {
	progress, err := json.Marshal(r.Progress)
	if err != nil {
		return nil, err
	}
	sections := r.Sections
	if sections == nil {
		sections = map[string]*model.SectionState{}
	}
	sectionsJSON, err := json.Marshal(sections)
	if err != nil {
		return nil, err
	}
	metadata, err := json.Marshal(r.Metadata)
	if err != nil {
		return nil, err
	}

	fields := map[string]string{
		FieldID:           r.ID,
		FieldPartitionKey: model.ResponsePartition,
		FieldRowKey:       r.RowKey,
		FieldTimestamp:    formatTime(r.Timestamp),
		FieldLastUpdated:  formatTime(r.LastUpdated),
		FieldStartedAt:    formatTime(r.StartedAt),
		FieldCompletedAt:  "",
		FieldProgress:     string(progress),
		FieldSections:     string(sectionsJSON),
		FieldMetadata:     string(metadata),
	}
	if r.CompletedAt != nil {
		fields[FieldCompletedAt] = formatTime(*r.CompletedAt)
	}
	return fields, nil
}

// DecodeEntity rebuilds a response from flat fields. Each blob is read from its
// current field, then its legacy field, then defaulted. It never fails.
func DecodeEntity(fields map[string]string, totalSections int) *model.QuestionnaireResponse {
	return decodeEntity(fields, totalSections, nil)
}

func decodeEntity(fields map[string]string, totalSections int, onCorrupt CorruptFunc) *model.QuestionnaireResponse {
	r := &model.QuestionnaireResponse{
		ID:           fields[FieldID],
		PartitionKey: fields[FieldPartitionKey],
		RowKey:       fields[FieldRowKey],
		Timestamp:    parseTime(fields[FieldTimestamp]),
		LastUpdated:  parseTime(fields[FieldLastUpdated]),
		StartedAt:    parseTime(fields[FieldStartedAt]),
	}
	if r.PartitionKey == "" {
		r.PartitionKey = model.ResponsePartition
	}
	if r.ID == "" {
		r.ID = r.RowKey
	}
	if s := fields[FieldCompletedAt]; s != "" {
		if t := parseTime(s); !t.IsZero() {
			r.CompletedAt = &t
		}
	}

	r.Progress = DefaultProgress(totalSections)
	if !decodeBlob(fields, FieldProgress, legacyProgress, &r.Progress, onCorrupt) {
		r.Progress = DefaultProgress(totalSections)
	}

	sections := map[string]*model.SectionState{}
	if !decodeBlob(fields, FieldSections, legacySections, &sections, onCorrupt) || sections == nil {
		sections = map[string]*model.SectionState{}
	}
	r.Sections = make(map[string]*model.SectionState, len(sections))
	for id, s := range sections {
		if s == nil {
			continue
		}
		if s.ID == "" {
			s.ID = id
		}
		if s.Answers == nil {
			s.Answers = model.SectionAnswers{}
		}
		r.Sections[id] = s
	}

	if !decodeBlob(fields, FieldMetadata, legacyMetadata, &r.Metadata, onCorrupt) {
		r.Metadata = model.ResponseMetadata{}
	}
	return r
}

// decodeBlob unmarshals the first present field into dst. It reports false when
// nothing usable was found so the caller applies its default.
func decodeBlob(fields map[string]string, current, legacy string, dst interface{}, onCorrupt CorruptFunc) bool {
	for _, name := range []string{current, legacy} {
		raw, ok := fields[name]
		if !ok || raw == "" {
			continue
		}
		if err := json.Unmarshal([]byte(raw), dst); err != nil {
			if onCorrupt != nil {
				onCorrupt(name, err)
			}
			return false
		}
		return true
	}
	return false
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
