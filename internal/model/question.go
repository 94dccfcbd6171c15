package model

// QuestionType defines the type of question
type QuestionType string

const (
	QuestionTypeSingleChoice    QuestionType = "multiple-choice"    // One option token
	QuestionTypeMultiChoice     QuestionType = "multiple-select"    // Set of option tokens
	QuestionTypeYesNoFollowup   QuestionType = "yes-no-followup"    // Boolean, nested follow-up when true
	QuestionTypeScale           QuestionType = "scale"              // Bounded integer, defaults 1..5
	QuestionTypeNumber          QuestionType = "number"             // Integer or null
	QuestionTypeText            QuestionType = "text"               // Free text up to MaxLength
	QuestionTypeDate            QuestionType = "date"               // ISO date string
	QuestionTypePercentageSplit QuestionType = "percentage-sliders" // Named weights summing to 100
	QuestionTypePriorityRanking QuestionType = "priority-ranking"   // Total order of option keys
)

// Valid reports whether t is one of the known question types
func (t QuestionType) Valid() bool {
	switch t {
	case QuestionTypeSingleChoice, QuestionTypeMultiChoice, QuestionTypeYesNoFollowup,
		QuestionTypeScale, QuestionTypeNumber, QuestionTypeText, QuestionTypeDate,
		QuestionTypePercentageSplit, QuestionTypePriorityRanking:
		return true
	}
	return false
}

// QuestionOption is a selectable option, weight key or ranking criterion
type QuestionOption struct {
	Label string `json:"label" yaml:"label"`
	Value string `json:"value" yaml:"value"`
}

// Question is a catalog-defined question. Followup is only active when
// the parent yes-no answer is true.
type Question struct {
	ID          string           `json:"id" yaml:"id"`
	Type        QuestionType     `json:"type" yaml:"type"`
	Label       string           `json:"label" yaml:"label"`
	HelperText  string           `json:"helperText,omitempty" yaml:"helperText,omitempty"`
	Required    bool             `json:"required,omitempty" yaml:"required,omitempty"`
	Options     []QuestionOption `json:"options,omitempty" yaml:"options,omitempty"`
	Followup    *Question        `json:"followupQuestion,omitempty" yaml:"followupQuestion,omitempty"`
	Min         *int             `json:"min,omitempty" yaml:"min,omitempty"`
	Max         *int             `json:"max,omitempty" yaml:"max,omitempty"`
	ScaleLabels []string         `json:"scaleLabels,omitempty" yaml:"scaleLabels,omitempty"`
	MaxLength   int              `json:"maxLength,omitempty" yaml:"maxLength,omitempty"`
}

// OptionLabel returns the label for an option token
func (q *Question) OptionLabel(value string) (string, bool) {
	for _, opt := range q.Options {
		if opt.Value == value {
			return opt.Label, true
		}
	}
	return "", false
}

// OptionValues returns the option tokens in catalog order
func (q *Question) OptionValues() []string {
	values := make([]string, len(q.Options))
	for i, opt := range q.Options {
		values[i] = opt.Value
	}
	return values
}

// Bounds returns the numeric bounds, defaulting to 1..5
func (q *Question) Bounds() (int, int) {
	lo, hi := 1, 5
	if q.Min != nil {
		lo = *q.Min
	}
	if q.Max != nil {
		hi = *q.Max
	}
	return lo, hi
}

// Section is an ordered group of questions; the unit of completion
type Section struct {
	ID               string     `json:"id" yaml:"id"`
	Name             string     `json:"name" yaml:"name"`
	Description      string     `json:"description,omitempty" yaml:"description,omitempty"`
	EstimatedMinutes int        `json:"estimatedMinutes" yaml:"estimatedMinutes"`
	Questions        []Question `json:"questions" yaml:"questions"`
}
