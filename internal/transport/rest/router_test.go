package rest

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"discovery/internal/cache"
	"discovery/internal/catalog"
	"discovery/internal/model"
	"discovery/internal/service"
	"discovery/internal/transport/rest/middleware"
	"discovery/internal/transport/ws"
)

type testServer struct {
	handler http.Handler
	auth    *service.AuthService
}

func newTestServer(t *testing.T, trustHeaders bool) *testServer {
	t.Helper()
	return newTestServerWithSecret(t, "test-secret", trustHeaders)
}

func newTestServerWithSecret(t *testing.T, secret string, trustHeaders bool) *testServer {
	t.Helper()
	cat, err := catalog.Default()
	require.NoError(t, err)

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	logger := zap.NewNop()
	repo := cache.NewResponseCache(client, cat.Len(), logger)
	auth := service.NewAuthService(secret, trustHeaders, []string{"acme.test"})
	questionnaire := service.NewQuestionnaireService(repo, cat, logger)
	completion := service.NewCompletionService(questionnaire, nil, time.Second, logger)
	hub := ws.NewHub(logger)
	t.Cleanup(hub.Close)

	return &testServer{
		handler: NewRouter(&Container{
			AuthService:          auth,
			QuestionnaireService: questionnaire,
			CompletionService:    completion,
			Catalog:              cat,
			WSHub:                hub,
			Logger:               logger,
		}),
		auth: auth,
	}
}

func (s *testServer) do(t *testing.T, method, path string, id *model.Identity, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if id != nil {
		token, err := s.auth.IssueToken(*id, time.Hour)
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v))
}

var (
	respondent = &model.Identity{UserID: "u1", Email: "client@customer.test", Name: "Casey"}
	admin      = &model.Identity{UserID: "a1", Email: "ops@acme.test", Name: "Ops"}
)

func sectionAnswers() map[string]map[string]interface{} {
	return map[string]map[string]interface{}{
		"section1":  {"companyName": "Customer Ltd", "industry": "retail", "employeeCount": 40},
		"section2":  {"currentErp": "Spreadsheets", "satisfaction": 1, "customisations": false},
		"section3":  {"entityCount": 1, "multiCurrency": false},
		"section4":  {"financeModules": []string{"gl"}},
		"section5":  {"operationsModules": []string{"sales"}},
		"section6":  {"integrations": false},
		"section7":  {"auditRequirements": false},
		"section8":  {"selectionWeights": map[string]int{"price": 60, "functionality": 20}, "priorityRanking": []string{"tco5Year"}},
		"section9":  {"targetGoLive": "2027-03-01"},
		"section10": {"successDefinition": "One system"},
	}
}

func TestHealthAndCatalog(t *testing.T) {
	s := newTestServer(t, false)

	rec := s.do(t, http.MethodGet, "/health", nil, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get(middleware.HeaderRequestID))

	rec = s.do(t, http.MethodGet, "/v1/catalog", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var cat struct {
		Title    string          `json:"title"`
		Sections []model.Section `json:"sections"`
	}
	decode(t, rec, &cat)
	assert.Len(t, cat.Sections, 10)
}

func TestCORSPreflight(t *testing.T) {
	s := newTestServer(t, false)

	req := httptest.NewRequest(http.MethodOptions, "/v1/responses/me/sections", nil)
	req.Header.Set("Origin", "https://app.customer.test")
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestRequiresIdentity(t *testing.T) {
	s := newTestServer(t, false)

	rec := s.do(t, http.MethodGet, "/v1/responses/me", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/v1/responses/me", nil)
	req.Header.Set("Authorization", "Bearer nope")
	rec = httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestTrustedHeaders(t *testing.T) {
	s := newTestServer(t, true)

	req := httptest.NewRequest(http.MethodGet, "/v1/responses/me", nil)
	req.Header.Set(middleware.HeaderUserID, "u7")
	req.Header.Set(middleware.HeaderUserEmail, "seven@customer.test")
	req.Header.Set("User-Agent", "TestBrowser/1.0")
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp model.QuestionnaireResponse
	decode(t, rec, &resp)
	assert.Equal(t, "u7", resp.RowKey)
	assert.Equal(t, "TestBrowser/1.0", resp.Metadata.Browser)

	req = httptest.NewRequest(http.MethodGet, "/v1/responses/me", nil)
	req.Header.Set(middleware.HeaderUserID, "u8")
	rec = httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code, "email is required")
}

func TestBearerTokensIgnoredWithoutSecret(t *testing.T) {
	s := newTestServerWithSecret(t, "", true)

	claims := &model.IdentityClaims{
		Email: "intruder@acme.test",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "x1",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	forged, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(""))
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/v1/admin/responses", nil)
	req.Header.Set("Authorization", "Bearer "+forged)
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/v1/admin/responses", nil)
	req.Header.Set("Authorization", "Bearer "+forged)
	req.Header.Set(middleware.HeaderUserID, "u9")
	req.Header.Set(middleware.HeaderUserEmail, "nine@customer.test")
	rec = httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code, "gateway headers decide the identity")
}

func TestUpdateSection(t *testing.T) {
	s := newTestServer(t, false)

	t.Run("draft save", func(t *testing.T) {
		rec := s.do(t, http.MethodPost, "/v1/responses/me/sections", respondent, map[string]interface{}{
			"sectionId": "section1",
			"answers":   map[string]interface{}{"companyName": "Customer Ltd"},
		})
		require.Equal(t, http.StatusOK, rec.Code)
		var resp model.QuestionnaireResponse
		decode(t, rec, &resp)
		assert.Equal(t, 0, resp.Progress.PercentComplete)
	})

	t.Run("missing required answers block completion", func(t *testing.T) {
		rec := s.do(t, http.MethodPost, "/v1/responses/me/sections", respondent, map[string]interface{}{
			"sectionId": "section1",
			"answers":   map[string]interface{}{"employeeCount": 0},
			"completed": true,
		})
		require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
		var body struct {
			Error   string   `json:"error"`
			Missing []string `json:"missing"`
		}
		decode(t, rec, &body)
		assert.Equal(t, []string{"industry"}, body.Missing)
	})

	t.Run("complete section", func(t *testing.T) {
		rec := s.do(t, http.MethodPost, "/v1/responses/me/sections", respondent, map[string]interface{}{
			"sectionId": "section1",
			"answers":   map[string]interface{}{"industry": "retail", "employeeCount": 0},
			"completed": true,
		})
		require.Equal(t, http.StatusOK, rec.Code)
		var resp model.QuestionnaireResponse
		decode(t, rec, &resp)
		assert.Equal(t, 10, resp.Progress.PercentComplete)
		assert.Equal(t, 2, resp.Progress.CurrentSection)
		assert.Equal(t, "Customer Ltd", resp.Sections["section1"].Answers["companyName"], "earlier answers kept")
	})

	t.Run("soft hints", func(t *testing.T) {
		rec := s.do(t, http.MethodPost, "/v1/responses/me/sections", respondent, map[string]interface{}{
			"sectionId": "section8",
			"answers":   map[string]interface{}{"selectionWeights": map[string]int{"price": 90}},
		})
		require.Equal(t, http.StatusOK, rec.Code)
		var body struct {
			Warnings map[string][]string `json:"warnings"`
		}
		decode(t, rec, &body)
		assert.Contains(t, body.Warnings, "selectionWeights")
	})

	t.Run("unknown section", func(t *testing.T) {
		rec := s.do(t, http.MethodPost, "/v1/responses/me/sections", respondent, map[string]interface{}{
			"sectionId": "section99",
			"answers":   map[string]interface{}{},
		})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("malformed body", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/v1/responses/me/sections", bytes.NewBufferString("{"))
		token, err := s.auth.IssueToken(*respondent, time.Hour)
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()
		s.handler.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestCompleteQuestionnaire(t *testing.T) {
	s := newTestServer(t, false)

	rec := s.do(t, http.MethodPost, "/v1/responses/me/complete", respondent, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = s.do(t, http.MethodGet, "/v1/responses/me", respondent, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = s.do(t, http.MethodPost, "/v1/responses/me/complete", respondent, nil)
	assert.Equal(t, http.StatusConflict, rec.Code)

	answers := sectionAnswers()
	for i := 1; i <= 10; i++ {
		id := fmt.Sprintf("section%d", i)
		rec = s.do(t, http.MethodPost, "/v1/responses/me/sections", respondent, map[string]interface{}{
			"sectionId": id,
			"answers":   answers[id],
			"completed": true,
		})
		require.Equal(t, http.StatusOK, rec.Code, "section %s: %s", id, rec.Body.String())
	}

	rec = s.do(t, http.MethodPost, "/v1/responses/me/complete", respondent, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var result model.CompletionResult
	decode(t, rec, &result)
	assert.True(t, result.Success)
	assert.False(t, result.Notified)
	assert.Contains(t, result.HTML, "Customer Ltd")

	rec = s.do(t, http.MethodGet, "/v1/responses/me/report", respondent, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "questionnaire-response-client@customer.test-")
}

func TestAdminRoutes(t *testing.T) {
	s := newTestServer(t, false)

	rec := s.do(t, http.MethodGet, "/v1/responses/me", respondent, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = s.do(t, http.MethodGet, "/v1/admin/responses", respondent, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = s.do(t, http.MethodGet, "/v1/admin/responses", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = s.do(t, http.MethodGet, "/v1/admin/responses", admin, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var all []model.QuestionnaireResponse
	decode(t, rec, &all)
	require.Len(t, all, 1)
	assert.Equal(t, "u1", all[0].RowKey)

	rec = s.do(t, http.MethodGet, "/v1/admin/responses?view=summary", admin, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var summaries []map[string]interface{}
	decode(t, rec, &summaries)
	require.Len(t, summaries, 1)
	assert.Equal(t, "in_progress", summaries[0]["status"])

	rec = s.do(t, http.MethodGet, "/v1/admin/responses/u1", admin, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = s.do(t, http.MethodGet, "/v1/admin/responses/ghost", admin, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = s.do(t, http.MethodGet, "/v1/admin/responses/u1/report", admin, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Casey (client@customer.test)")
}
