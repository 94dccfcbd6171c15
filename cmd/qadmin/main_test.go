package main

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"discovery/internal/catalog"
	"discovery/internal/model"
	"discovery/internal/service"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func TestSampleAnswersSatisfyCatalog(t *testing.T) {
	cat, err := catalog.Default()
	require.NoError(t, err)

	for _, sec := range cat.Sections() {
		answers, ok := sampleAnswers[sec.ID]
		require.True(t, ok, sec.ID)
		missing, err := service.ValidateRequiredAnswers(cat, sec.ID, &model.SectionState{ID: sec.ID, Answers: answers})
		require.NoError(t, err)
		assert.Empty(t, missing, sec.ID)
	}
}

func TestCatalogValidateCommand(t *testing.T) {
	out, err := execute(t, "catalog", "validate")
	require.NoError(t, err)
	assert.Contains(t, out, "ERP Discovery Questionnaire: 10 sections")
	assert.Contains(t, out, "section10")

	_, err = execute(t, "catalog", "validate", "/does/not/exist.yaml")
	assert.Error(t, err)
}

func TestTokenCommand(t *testing.T) {
	t.Setenv("APP_ENV", "test")
	t.Setenv("JWT_SECRET", "cli-secret")

	out, err := execute(t, "token", "--user-id", "u1", "--email", "ops@acme.test", "--name", "Ops", "--ttl", "1h")
	require.NoError(t, err)

	id, err := service.NewAuthService("cli-secret", false, nil).ValidateToken(strings.TrimSpace(out))
	require.NoError(t, err)
	assert.Equal(t, "u1", id.UserID)
	assert.Equal(t, "ops@acme.test", id.Email)

	_, err = execute(t, "token", "--user-id", "u1", "--email", "")
	assert.ErrorIs(t, err, service.ErrMissingIdentity)
}

func TestWriteSummaryTable(t *testing.T) {
	updated := time.Date(2026, 5, 1, 9, 30, 0, 0, time.UTC)
	responses := []*model.QuestionnaireResponse{{
		RowKey:      "u1",
		LastUpdated: updated,
		Progress:    model.Progress{TotalSections: 10, CompletedSections: 3, PercentComplete: 30},
		Metadata:    model.ResponseMetadata{UserEmail: "a@customer.test"},
	}}

	var buf bytes.Buffer
	require.NoError(t, writeSummaryTable(&buf, responses))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[0], "USER"))
	assert.Contains(t, lines[1], "30% (3/10)")
	assert.Contains(t, lines[1], "in_progress")
	assert.Contains(t, lines[1], "2026-05-01T09:30:00Z")
}
