package report

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"discovery/internal/catalog"
	"discovery/internal/model"
)

func testResponse() *model.QuestionnaireResponse {
	started := time.Date(2026, 2, 10, 8, 0, 0, 0, time.UTC)
	return &model.QuestionnaireResponse{
		RowKey:      "u1",
		StartedAt:   started,
		LastUpdated: started.Add(time.Hour),
		Progress:    model.Progress{TotalSections: 10, CompletedSections: 1, PercentComplete: 10, CurrentSection: 2},
		Sections: map[string]*model.SectionState{
			"section1": {ID: "section1", Completed: true, Answers: model.SectionAnswers{
				"companyName":   "Acme <Holdings>",
				"industry":      "distribution",
				"employeeCount": float64(0),
			}},
			"section2": {ID: "section2", Answers: model.SectionAnswers{
				"customisations": map[string]interface{}{"value": true, "followup": "Custom billing"},
			}},
		},
		Metadata: model.ResponseMetadata{UserEmail: "ada@acme.test", TimeSpent: 1530},
	}
}

func TestRender(t *testing.T) {
	cat, err := catalog.Default()
	require.NoError(t, err)

	html, err := Render(cat, testResponse())
	require.NoError(t, err)

	assert.Contains(t, html, "<title>ERP Discovery Questionnaire - ada@acme.test</title>")
	assert.Contains(t, html, "<strong>Respondent:</strong> N/A (ada@acme.test)")
	assert.Contains(t, html, "<strong>Completed:</strong> Not completed")
	assert.Contains(t, html, "10% (1 of 10 sections)")
	assert.Contains(t, html, "Acme &lt;Holdings&gt;")
	assert.NotContains(t, html, "<Holdings>")
	assert.Contains(t, html, "Wholesale &amp; distribution")
	assert.Contains(t, html, "Yes - Custom billing")
	assert.Contains(t, html, "Company name *")
	assert.Contains(t, html, "<em>Not answered</em>")
	assert.Contains(t, html, "<strong>Started:</strong> 2026-02-10 08:00 UTC")
	assert.Contains(t, html, "<strong>Time Spent:</strong> 26 minutes")

	assert.Equal(t, 2, strings.Count(html, `class="section-title"`), "only sections with state are rendered")
}

func TestRenderZeroIsAnswered(t *testing.T) {
	cat, err := catalog.Default()
	require.NoError(t, err)

	r := testResponse()
	r.Sections = map[string]*model.SectionState{
		"section1": {ID: "section1", Answers: model.SectionAnswers{"employeeCount": float64(0)}},
	}
	html, err := Render(cat, r)
	require.NoError(t, err)

	assert.Contains(t, html, `<div class="question-answer">0</div>`)
}

func TestRenderDeterministic(t *testing.T) {
	cat, err := catalog.Default()
	require.NoError(t, err)

	first, err := Render(cat, testResponse())
	require.NoError(t, err)
	second, err := Render(cat, testResponse())
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestRenderCompleted(t *testing.T) {
	cat, err := catalog.Default()
	require.NoError(t, err)

	r := testResponse()
	done := time.Date(2026, 2, 11, 17, 45, 0, 0, time.UTC)
	r.CompletedAt = &done
	r.Metadata.UserName = "Ada Lovelace"
	r.Metadata.TimeSpent = 0

	html, err := Render(cat, r)
	require.NoError(t, err)
	assert.Contains(t, html, "<strong>Completed:</strong> 2026-02-11 17:45 UTC")
	assert.Contains(t, html, "Ada Lovelace (ada@acme.test)")
	assert.NotContains(t, html, "Time Spent")
}

func TestFilename(t *testing.T) {
	r := testResponse()
	now := time.UnixMilli(1767225600000)
	assert.Equal(t, "questionnaire-response-ada@acme.test-1767225600000.html", Filename(r, now))
	assert.Equal(t, "ada@acme.test", Respondent(r))
}
