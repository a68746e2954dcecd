package server

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"quotewall/internal/cache"
	"quotewall/internal/config"
	"quotewall/internal/models"
	"quotewall/internal/testutil"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	testSecret = "test-secret-key-12345678901234567890123456789012"
	testIssuer = "auth.quotewall.test"
)

type testEnv struct {
	db  *gorm.DB
	srv *Server
	app *fiber.App
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db := testutil.NewSQLiteDB(t)
	_, rdb := testutil.NewRedis(t)
	cache.SetClient(rdb)
	t.Cleanup(func() { cache.SetClient(nil) })

	cfg := &config.Config{
		Env:                   "test",
		Port:                  "0",
		AppURL:                "https://quotewall.test",
		AuthJWTSecret:         testSecret,
		AuthIssuer:            testIssuer,
		AllowedOrigins:        "http://localhost:3000",
		WidgetCacheTTLSeconds: 60,
	}
	srv, err := NewServerWithDeps(cfg, db, rdb)
	require.NoError(t, err)

	return &testEnv{db: db, srv: srv, app: srv.NewApp()}
}

func bearer(t *testing.T, memberID string) string {
	t.Helper()
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":   memberID,
		"email": memberID + "@example.com",
		"iss":   testIssuer,
		"exp":   time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte(testSecret))
	require.NoError(t, err)
	return "Bearer " + signed
}

// do sends a request and decodes a JSON response into out when out is non-nil.
func (e *testEnv) do(t *testing.T, method, path, auth string, body any, out any) int {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}

	resp, err := e.app.Test(req, -1)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

func submission(token string) fiber.Map {
	return fiber.Map{
		"token":         token,
		"customer_name": "Jane Doe",
		"rating":        5,
		"text":          "Great product, highly recommend it!",
	}
}

func TestSubmitTestimonial_Accepted(t *testing.T) {
	env := newTestEnv(t)
	tenant := testutil.CreateTenant(t, env.db, "acme", "owner")
	testutil.CreateToken(t, env.db, tenant.Project.ID, "abc123")

	var body struct {
		Status          string             `json:"status"`
		Testimonial     models.Testimonial `json:"testimonial"`
		ThankYouMessage string             `json:"thank_you_message"`
	}
	status := env.do(t, http.MethodPost, "/api/public/collect/acme", "", submission("abc123"), &body)

	assert.Equal(t, fiber.StatusCreated, status)
	assert.Equal(t, "valid", body.Status)
	assert.Equal(t, "Jane Doe", body.Testimonial.CustomerName)
	assert.False(t, body.Testimonial.IsApproved)
	assert.Equal(t, models.DefaultThankYouMessage, body.ThankYouMessage)

	var page struct {
		Status string `json:"status"`
	}
	status = env.do(t, http.MethodGet, "/api/public/collect/acme?token=abc123", "", nil, &page)
	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "used", page.Status)
}

func TestSubmitTestimonial_Rejections(t *testing.T) {
	env := newTestEnv(t)
	acme := testutil.CreateTenant(t, env.db, "acme", "owner")
	other := testutil.CreateTenant(t, env.db, "other", "owner")
	closed := testutil.CreateTenant(t, env.db, "closed", "owner")
	require.NoError(t, env.db.Model(&closed.Link).Update("is_active", false).Error)

	testutil.CreateToken(t, env.db, acme.Project.ID, "expired-token", testutil.WithExpiry(time.Now().Add(-time.Hour)))
	testutil.CreateToken(t, env.db, acme.Project.ID, "cancelled-token", testutil.Cancelled())
	testutil.CreateToken(t, env.db, acme.Project.ID, "used-token", testutil.Used())
	testutil.CreateToken(t, env.db, other.Project.ID, "other-token")
	testutil.CreateToken(t, env.db, closed.Project.ID, "closed-token")

	tests := []struct {
		name       string
		slug       string
		token      string
		wantStatus int
		wantToken  models.TokenStatus
	}{
		{"missing token", "acme", "", fiber.StatusBadRequest, models.TokenStatusInvalid},
		{"unknown token", "acme", "nope", fiber.StatusNotFound, models.TokenStatusNotFound},
		{"token of another project", "acme", "other-token", fiber.StatusNotFound, models.TokenStatusMismatch},
		{"expired", "acme", "expired-token", fiber.StatusGone, models.TokenStatusExpired},
		{"cancelled", "acme", "cancelled-token", fiber.StatusGone, models.TokenStatusCancelled},
		{"used", "acme", "used-token", fiber.StatusGone, models.TokenStatusUsed},
		{"closed page", "closed", "closed-token", fiber.StatusForbidden, models.TokenStatusClosed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var body TokenRejection
			status := env.do(t, http.MethodPost, "/api/public/collect/"+tt.slug, "", submission(tt.token), &body)
			assert.Equal(t, tt.wantStatus, status)
			assert.Equal(t, tt.wantToken, body.Status)
			assert.NotEmpty(t, body.Code)
		})
	}

	var count int64
	require.NoError(t, env.db.Model(&models.Testimonial{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestSubmitTestimonial_InvalidPayloadKeepsToken(t *testing.T) {
	env := newTestEnv(t)
	tenant := testutil.CreateTenant(t, env.db, "acme", "owner")
	testutil.CreateToken(t, env.db, tenant.Project.ID, "abc123")

	payload := submission("abc123")
	payload["text"] = "short"
	payload["rating"] = 9

	var body models.ErrorResponse
	status := env.do(t, http.MethodPost, "/api/public/collect/acme", "", payload, &body)
	assert.Equal(t, fiber.StatusUnprocessableEntity, status)
	assert.Equal(t, models.CodeValidation, body.Code)
	assert.Contains(t, body.Fields, "text")
	assert.Contains(t, body.Fields, "rating")

	status = env.do(t, http.MethodPost, "/api/public/collect/acme", "", submission("abc123"), nil)
	assert.Equal(t, fiber.StatusCreated, status)
}

func TestCollectPage_AlwaysOK(t *testing.T) {
	env := newTestEnv(t)
	tenant := testutil.CreateTenant(t, env.db, "acme", "owner")
	testutil.CreateToken(t, env.db, tenant.Project.ID, "abc123")

	var page struct {
		Status          string `json:"status"`
		ProjectName     string `json:"project_name"`
		ThankYouMessage string `json:"thank_you_message"`
	}
	assert.Equal(t, fiber.StatusOK, env.do(t, http.MethodGet, "/api/public/collect/acme?token=abc123", "", nil, &page))
	assert.Equal(t, "valid", page.Status)
	assert.Equal(t, "Project acme", page.ProjectName)

	page.Status = ""
	assert.Equal(t, fiber.StatusOK, env.do(t, http.MethodGet, "/api/public/collect/acme?token=missing", "", nil, &page))
	assert.Equal(t, "not-found", page.Status)
}

func TestWidgetContent(t *testing.T) {
	env := newTestEnv(t)
	tenant := testutil.CreateTenant(t, env.db, "acme", "owner")
	require.NoError(t, env.db.Model(&tenant.Widget).
		Update("allowed_domains", datatypes.JSONSlice[string]{"https://acme.com"}).Error)
	testutil.CreateTestimonial(t, env.db, tenant.Project.ID, "Jane Doe", true, time.Now())

	widgetID := tenant.Widget.ID.String()

	t.Run("get", func(t *testing.T) {
		var body WidgetContentResponse
		status := env.do(t, http.MethodGet, "/api/public/widgets/content?widget_id="+widgetID+"&domain="+url.QueryEscape("https://www.acme.com/"), "", nil, &body)
		assert.Equal(t, fiber.StatusOK, status)
		assert.Contains(t, body.HTML, "Jane Doe")
	})

	t.Run("post", func(t *testing.T) {
		var body WidgetContentResponse
		status := env.do(t, http.MethodPost, "/api/public/widgets/content", "",
			fiber.Map{"widget_id": widgetID, "domain": "https://acme.com/pricing"}, &body)
		assert.Equal(t, fiber.StatusOK, status)
		assert.Contains(t, body.HTML, "Jane Doe")
	})

	tests := []struct {
		name       string
		widgetID   string
		domain     string
		wantStatus int
		wantError  string
	}{
		{"malformed id", "not-a-uuid", "https://acme.com", fiber.StatusBadRequest, "Invalid widget ID"},
		{"unknown widget", "00000000-0000-0000-0000-000000000001", "https://acme.com", fiber.StatusNotFound, "Widget not found"},
		{"foreign domain", widgetID, "https://evil.example", fiber.StatusForbidden, "Domain not authorized"},
		{"bare hostname", widgetID, "acme.com", fiber.StatusForbidden, "Domain not authorized"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var body models.ErrorResponse
			status := env.do(t, http.MethodPost, "/api/public/widgets/content", "",
				fiber.Map{"widget_id": tt.widgetID, "domain": tt.domain}, &body)
			assert.Equal(t, tt.wantStatus, status)
			assert.Equal(t, tt.wantError, body.Error)
			assert.NotContains(t, body.Error, "acme.com")
		})
	}
}

func TestDashboard_RequiresMembership(t *testing.T) {
	env := newTestEnv(t)
	tenant := testutil.CreateTenant(t, env.db, "acme", "owner")
	path := "/api/projects/" + tenant.Project.ID.String() + "/tokens"

	assert.Equal(t, fiber.StatusUnauthorized, env.do(t, http.MethodGet, path, "", nil, nil))
	assert.Equal(t, fiber.StatusNotFound, env.do(t, http.MethodGet, path, bearer(t, "stranger"), nil, nil))
	assert.Equal(t, fiber.StatusBadRequest, env.do(t, http.MethodGet, "/api/projects/42/tokens", bearer(t, "owner"), nil, nil))
	assert.Equal(t, fiber.StatusOK, env.do(t, http.MethodGet, path, bearer(t, "owner"), nil, nil))
}

func TestDashboard_ProjectLifecycle(t *testing.T) {
	env := newTestEnv(t)
	owner := bearer(t, "owner")

	var created struct {
		Project     models.Project      `json:"project"`
		Widget      models.WidgetConfig `json:"widget"`
		CollectLink models.CollectLink  `json:"collect_link"`
	}
	status := env.do(t, http.MethodPost, "/api/projects", owner, fiber.Map{"name": "Acme", "slug": "acme"}, &created)
	require.Equal(t, fiber.StatusCreated, status)
	assert.Equal(t, "acme", created.Project.Slug)
	assert.False(t, created.CollectLink.IsActive)
	assert.Equal(t, "#3B82F6", created.Widget.PrimaryColor)

	var bad models.ErrorResponse
	status = env.do(t, http.MethodPost, "/api/projects", owner, fiber.Map{"name": "", "slug": "Not A Slug"}, &bad)
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Contains(t, bad.Fields, "name")
	assert.Contains(t, bad.Fields, "slug")

	var mine []models.ProjectMember
	require.Equal(t, fiber.StatusOK, env.do(t, http.MethodGet, "/api/projects", owner, nil, &mine))
	require.Len(t, mine, 1)
	assert.Equal(t, models.MemberRoleOwner, mine[0].Role)

	base := "/api/projects/" + created.Project.ID.String()

	var link models.CollectLink
	require.Equal(t, fiber.StatusOK, env.do(t, http.MethodPost, base+"/collect-link/toggle", owner, nil, &link))
	assert.True(t, link.IsActive)

	status = env.do(t, http.MethodPost, base+"/members", owner, fiber.Map{"member_id": "teammate", "role": "member"}, nil)
	assert.Equal(t, fiber.StatusCreated, status)

	var theirs []models.ProjectMember
	require.Equal(t, fiber.StatusOK, env.do(t, http.MethodGet, "/api/projects", bearer(t, "teammate"), nil, &theirs))
	assert.Len(t, theirs, 1)

	status = env.do(t, http.MethodPost, base+"/members", bearer(t, "teammate"), fiber.Map{"member_id": "x", "role": "member"}, nil)
	assert.Equal(t, fiber.StatusForbidden, status)
}

func TestDashboard_TokenFlow(t *testing.T) {
	env := newTestEnv(t)
	tenant := testutil.CreateTenant(t, env.db, "acme", "owner")
	testutil.AddMember(t, env.db, tenant.Project.ID, "teammate", models.MemberRoleMember)
	base := "/api/projects/" + tenant.Project.ID.String() + "/tokens"
	owner := bearer(t, "owner")

	var issued struct {
		ID    string `json:"id"`
		Token string `json:"token"`
		State string `json:"state"`
		URL   string `json:"url"`
	}
	status := env.do(t, http.MethodPost, base, owner, fiber.Map{"description": "For Jane"}, &issued)
	require.Equal(t, fiber.StatusCreated, status)
	assert.Equal(t, "active", issued.State)
	assert.Equal(t, "https://quotewall.test/c/acme?token="+issued.Token, issued.URL)

	var list []struct {
		Token string `json:"token"`
		State string `json:"state"`
	}
	require.Equal(t, fiber.StatusOK, env.do(t, http.MethodGet, base, owner, nil, &list))
	require.Len(t, list, 1)
	assert.Equal(t, issued.Token, list[0].Token)

	// Members may only cancel tokens they issued themselves.
	status = env.do(t, http.MethodPost, base+"/"+issued.ID+"/cancel", bearer(t, "teammate"), nil, nil)
	assert.Equal(t, fiber.StatusForbidden, status)

	for i := 0; i < 2; i++ {
		status = env.do(t, http.MethodPost, base+"/"+issued.ID+"/cancel", owner, nil, nil)
		assert.Equal(t, fiber.StatusOK, status)
	}

	var stats struct {
		Total     int64 `json:"total"`
		Active    int64 `json:"active"`
		Cancelled int64 `json:"cancelled"`
	}
	require.Equal(t, fiber.StatusOK, env.do(t, http.MethodGet, base+"/stats", owner, nil, &stats))
	assert.Equal(t, int64(1), stats.Total)
	assert.Equal(t, int64(0), stats.Active)
	assert.Equal(t, int64(1), stats.Cancelled)

	var rejection TokenRejection
	status = env.do(t, http.MethodPost, "/api/public/collect/acme", "", submission(issued.Token), &rejection)
	assert.Equal(t, fiber.StatusGone, status)
	assert.Equal(t, models.TokenStatusCancelled, rejection.Status)

	used := testutil.CreateToken(t, env.db, tenant.Project.ID, "used-token", testutil.Used())
	status = env.do(t, http.MethodPost, base+"/"+used.ID.String()+"/cancel", owner, nil, nil)
	assert.Equal(t, fiber.StatusConflict, status)
}

func TestDashboard_Moderation(t *testing.T) {
	env := newTestEnv(t)
	tenant := testutil.CreateTenant(t, env.db, "acme", "owner")
	other := testutil.CreateTenant(t, env.db, "other", "owner")
	pending := testutil.CreateTestimonial(t, env.db, tenant.Project.ID, "Jane Doe", false, time.Now())
	foreign := testutil.CreateTestimonial(t, env.db, other.Project.ID, "Someone Else", false, time.Now())
	owner := bearer(t, "owner")
	base := "/api/projects/" + tenant.Project.ID.String() + "/testimonials"

	var approved models.Testimonial
	status := env.do(t, http.MethodPost, base+"/"+pending.ID.String()+"/approve", owner, nil, &approved)
	require.Equal(t, fiber.StatusOK, status)
	assert.True(t, approved.IsApproved)

	status = env.do(t, http.MethodPost, base+"/"+foreign.ID.String()+"/feature", owner, nil, nil)
	assert.Equal(t, fiber.StatusNotFound, status)

	var page struct {
		Items      []models.Testimonial `json:"items"`
		NextCursor string               `json:"next_cursor"`
	}
	require.Equal(t, fiber.StatusOK, env.do(t, http.MethodGet, base+"?filter=approved", owner, nil, &page))
	require.Len(t, page.Items, 1)
	assert.Equal(t, "Jane Doe", page.Items[0].CustomerName)
	assert.Empty(t, page.NextCursor)

	assert.Equal(t, fiber.StatusBadRequest, env.do(t, http.MethodGet, base+"?filter=bogus", owner, nil, nil))
}

func TestDashboard_WidgetSettings(t *testing.T) {
	env := newTestEnv(t)
	tenant := testutil.CreateTenant(t, env.db, "acme", "owner")
	owner := bearer(t, "owner")
	base := "/api/projects/" + tenant.Project.ID.String() + "/widget"

	var domains AllowedDomainsResponse
	status := env.do(t, http.MethodPut, base+"/domains", owner,
		fiber.Map{"domains": []string{"https://Acme.com/", "https://acme.com", "https://shop.acme.com"}}, &domains)
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, []string{"https://acme.com", "https://shop.acme.com"}, domains.Domains)

	var bad models.ErrorResponse
	status = env.do(t, http.MethodPut, base+"/domains", owner, fiber.Map{"domains": []string{"not a domain"}}, &bad)
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Contains(t, bad.Fields, "allowed_domains[0]")

	var view struct {
		Effective struct {
			GridColumns  int    `json:"grid_columns"`
			PrimaryColor string `json:"primary_color"`
		} `json:"effective"`
	}
	status = env.do(t, http.MethodPut, base, owner, fiber.Map{"primary_color": "#ff0000", "grid_columns": 12}, &view)
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "#ff0000", view.Effective.PrimaryColor)
	assert.Equal(t, 6, view.Effective.GridColumns)

	status = env.do(t, http.MethodPut, base, owner, fiber.Map{"primary_color": "red; background:url(x)"}, &bad)
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Contains(t, bad.Fields, "primary_color")
}

func TestHealthAndEvents(t *testing.T) {
	env := newTestEnv(t)
	tenant := testutil.CreateTenant(t, env.db, "acme", "owner")

	assert.Equal(t, fiber.StatusOK, env.do(t, http.MethodGet, "/health/live", "", nil, nil))
	assert.Equal(t, fiber.StatusOK, env.do(t, http.MethodGet, "/health/ready", "", nil, nil))

	// Plain GETs are refused before any upgrade; non-members never learn the project exists.
	path := "/api/projects/" + tenant.Project.ID.String() + "/events"
	assert.Equal(t, fiber.StatusUpgradeRequired, env.do(t, http.MethodGet, path, bearer(t, "owner"), nil, nil))
	assert.Equal(t, fiber.StatusNotFound, env.do(t, http.MethodGet, path, bearer(t, "stranger"), nil, nil))
}
