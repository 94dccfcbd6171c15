// Package report renders a questionnaire response as a standalone HTML document.
package report

import (
	"bytes"
	_ "embed"
	"fmt"
	"html/template"
	"math"
	"time"

	"discovery/internal/catalog"
	"discovery/internal/codec"
	"discovery/internal/model"
)

//go:embed report.html.tmpl
var reportTemplate string

var tmpl = template.Must(template.New("report").Parse(reportTemplate))

const (
	timeFormat     = "2006-01-02 15:04 UTC"
	defaultTitle   = "Discovery Questionnaire"
	notCompleted   = "Not completed"
	unnamedPerson  = "N/A"
	attachmentBase = "questionnaire-response"
)

type document struct {
	Title            string
	Respondent       string
	Name             string
	Email            string
	Completed        string
	Progress         model.Progress
	Sections         []sectionBlock
	Started          string
	LastUpdated      string
	HasTimeSpent     bool
	TimeSpentMinutes int
}

type sectionBlock struct {
	Name      string
	Questions []questionBlock
}

type questionBlock struct {
	Label    string
	Required bool
	Answered bool
	Answer   template.HTML
}

// Render produces the HTML report for a response. Only catalog sections the
// record holds state for are included. Output depends only on its inputs.
func Render(cat *catalog.Catalog, r *model.QuestionnaireResponse) (string, error) {
	doc := document{
		Title:       Title(cat),
		Name:        r.Metadata.UserName,
		Email:       r.Metadata.UserEmail,
		Completed:   notCompleted,
		Progress:    r.Progress,
		Started:     formatTime(r.StartedAt),
		LastUpdated: formatTime(r.LastUpdated),
	}
	doc.Respondent = Respondent(r)
	if doc.Name == "" {
		doc.Name = unnamedPerson
	}
	if r.CompletedAt != nil {
		doc.Completed = formatTime(*r.CompletedAt)
	}
	if r.Metadata.TimeSpent > 0 {
		doc.HasTimeSpent = true
		doc.TimeSpentMinutes = int(math.Round(float64(r.Metadata.TimeSpent) / 60))
	}

	for _, sec := range cat.Sections() {
		state := r.Sections[sec.ID]
		if state == nil {
			continue
		}
		block := sectionBlock{Name: sec.Name}
		for i := range sec.Questions {
			q := &sec.Questions[i]
			v := state.Answers[q.ID]
			qb := questionBlock{Label: q.Label, Required: q.Required}
			if !codec.IsEmpty(v) {
				qb.Answered = true
				// codec output is already escaped
				qb.Answer = template.HTML(codec.Render(q, v))
			}
			block.Questions = append(block.Questions, qb)
		}
		doc.Sections = append(doc.Sections, block)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, doc); err != nil {
		return "", fmt.Errorf("failed to render report: %w", err)
	}
	return buf.String(), nil
}

// Title is the catalog title, or a generic one
func Title(cat *catalog.Catalog) string {
	if cat.Title != "" {
		return cat.Title
	}
	return defaultTitle
}

// Respondent is the display name, falling back to the email
func Respondent(r *model.QuestionnaireResponse) string {
	if r.Metadata.UserName != "" {
		return r.Metadata.UserName
	}
	return r.Metadata.UserEmail
}

// Filename names the report attachment
func Filename(r *model.QuestionnaireResponse, now time.Time) string {
	return fmt.Sprintf("%s-%s-%d.html", attachmentBase, r.Metadata.UserEmail, now.UnixMilli())
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.UTC().Format(timeFormat)
}
