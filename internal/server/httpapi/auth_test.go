package httpapi

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/dealerdesk/dealerdesk/internal/common"
	"github.com/dealerdesk/dealerdesk/internal/logging"
	"github.com/dealerdesk/dealerdesk/internal/server/mail"
	"github.com/dealerdesk/dealerdesk/internal/server/models"
	"github.com/dealerdesk/dealerdesk/internal/server/password"
	"github.com/dealerdesk/dealerdesk/internal/server/ratelimit"
	"github.com/dealerdesk/dealerdesk/internal/server/services"
	"github.com/dealerdesk/dealerdesk/internal/server/session"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	m.Run()
}

// fakeStore implements users.Repository over a map.
type fakeStore struct {
	byEmail map[string]*models.User
}

func (f *fakeStore) FindByEmail(ctx context.Context, role models.Role, email string) (*models.User, error) {
	if u, ok := f.byEmail[email]; ok {
		cp := *u
		return &cp, nil
	}
	return nil, common.ErrorNotFound
}

func (f *fakeStore) UpdatePassword(ctx context.Context, role models.Role, id, secret string) error {
	for _, u := range f.byEmail {
		if u.ID == id {
			u.Password = secret
			return nil
		}
	}
	return common.ErrorNotFound
}

func (f *fakeStore) TouchLastLogin(ctx context.Context, role models.Role, id string) error {
	return nil
}

func (f *fakeStore) ListSalespeople(ctx context.Context) ([]models.User, error) {
	var out []models.User
	for _, u := range f.byEmail {
		out = append(out, *u)
	}
	return out, nil
}

func (f *fakeStore) CreateSalesperson(ctx context.Context, u *models.User) (*models.User, error) {
	u.CreatedAt = time.Now()
	f.byEmail[u.Email] = u
	return u, nil
}

func (f *fakeStore) SetActive(ctx context.Context, role models.Role, id string, active bool) error {
	for _, u := range f.byEmail {
		if u.ID == id {
			u.IsActive = active
			return nil
		}
	}
	return common.ErrorNotFound
}

type testEnv struct {
	router *gin.Engine
	issuer *session.Issuer
	store  *fakeStore
}

func newTestEnv(t *testing.T, limiter *ratelimit.Limiter) *testEnv {
	t.Helper()

	log := logging.NewJSON(io.Discard)
	if limiter == nil {
		limiter = ratelimit.Disabled(log)
	}

	pw := password.New(bcrypt.MinCost)
	hashed, err := pw.Hash("pw123")
	require.NoError(t, err)

	store := &fakeStore{byEmail: map[string]*models.User{
		"jane@dealer.example": {
			ID: "u1", Email: "jane@dealer.example", Name: "Jane Doe",
			Slug: "jane-doe", Password: hashed, IsActive: true,
		},
		"legacy@dealer.example": {
			ID: "u2", Email: "legacy@dealer.example", Name: "Legacy Larry",
			Slug: "legacy-larry", Password: "dealer2019", IsActive: true,
		},
		"gone@dealer.example": {
			ID: "u3", Email: "gone@dealer.example", Name: "Gone Gil",
			Slug: "gone-gil", Password: hashed, IsActive: false,
		},
		"boss@dealer.example": {
			ID: "a1", Email: "boss@dealer.example", Name: "Boss",
			Password: hashed, IsActive: true,
		},
	}}

	issuer := session.NewIssuer("test-secret", session.DefaultTTL, false)
	auth := services.NewAuthService(store, pw, issuer, mail.Noop{}, "master-key", log)
	router := NewHandler(auth, issuer, limiter, log).NewRouter()

	return &testEnv{router: router, issuer: issuer, store: store}
}

func (e *testEnv) do(method, path, body string, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	for _, c := range cookies {
		req.AddCookie(c)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func sessionCookie(t *testing.T, w *httptest.ResponseRecorder, name string) *http.Cookie {
	t.Helper()
	for _, c := range w.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	t.Fatalf("no %s cookie in response", name)
	return nil
}

// --- login ---

func TestLogin_SetsFreshSessionCookie(t *testing.T) {
	e := newTestEnv(t, nil)

	w := e.do(http.MethodPost, "/api/auth/sales",
		`{"email":"jane@dealer.example","password":"pw123"}`)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Success bool                 `json:"success"`
		User    services.UserSummary `json:"user"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, "Jane Doe", resp.User.Name)
	assert.Equal(t, "jane-doe", resp.User.Slug)

	c := sessionCookie(t, w, "sales_session")
	assert.True(t, c.HttpOnly)
	assert.Equal(t, "/", c.Path)

	claims, ok := e.issuer.Read(c.Value)
	require.True(t, ok)
	assert.WithinDuration(t, time.Now(), claims.IssuedAt.Time, time.Second)
}

func TestLogin_FailureBodiesAreByteIdentical(t *testing.T) {
	e := newTestEnv(t, nil)

	unknown := e.do(http.MethodPost, "/api/auth/sales",
		`{"email":"nobody@dealer.example","password":"pw123"}`)
	wrongPw := e.do(http.MethodPost, "/api/auth/sales",
		`{"email":"jane@dealer.example","password":"wrong"}`)

	require.Equal(t, http.StatusUnauthorized, unknown.Code)
	require.Equal(t, http.StatusUnauthorized, wrongPw.Code)
	assert.Equal(t, unknown.Body.Bytes(), wrongPw.Body.Bytes())
}

func TestLogin_DeactivatedGetsDistinctMessage(t *testing.T) {
	e := newTestEnv(t, nil)

	w := e.do(http.MethodPost, "/api/auth/sales",
		`{"email":"gone@dealer.example","password":"pw123"}`)
	require.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "deactivated")
	assert.NotContains(t, w.Body.String(), msgInvalidCredentials)
}

func TestLogin_MigratesLegacyPassword(t *testing.T) {
	e := newTestEnv(t, nil)

	w := e.do(http.MethodPost, "/api/auth/sales",
		`{"email":"legacy@dealer.example","password":"dealer2019"}`)
	require.Equal(t, http.StatusOK, w.Code)

	stored := e.store.byEmail["legacy@dealer.example"].Password
	assert.True(t, password.LooksHashed(stored))

	// Same plaintext still works after migration.
	w = e.do(http.MethodPost, "/api/auth/sales",
		`{"email":"legacy@dealer.example","password":"dealer2019"}`)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestLogin_MissingFields(t *testing.T) {
	e := newTestEnv(t, nil)

	assert.Equal(t, http.StatusBadRequest,
		e.do(http.MethodPost, "/api/auth/sales", `{"password":"pw123"}`).Code)
	assert.Equal(t, http.StatusBadRequest,
		e.do(http.MethodPost, "/api/auth/sales", `{"email":"jane@dealer.example"}`).Code)
	assert.Equal(t, http.StatusBadRequest,
		e.do(http.MethodPost, "/api/auth/sales", `not json`).Code)
}

func TestLogin_RateLimited(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	limiter := ratelimit.New(rdb, map[ratelimit.Class]ratelimit.Quota{
		ratelimit.ClassLogin: {Capacity: 2, Window: time.Minute},
	}, logging.NewJSON(io.Discard))
	e := newTestEnv(t, limiter)

	body := `{"email":"jane@dealer.example","password":"wrong"}`
	for i := 0; i < 2; i++ {
		require.Equal(t, http.StatusUnauthorized,
			e.do(http.MethodPost, "/api/auth/sales", body).Code)
	}

	w := e.do(http.MethodPost, "/api/auth/sales", body)
	require.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.NotEmpty(t, w.Header().Get("Retry-After"))
	assert.Contains(t, w.Body.String(), "retryAfter")
}

// --- forgot password ---

func TestForgotPassword_IdenticalResponseForHitAndMiss(t *testing.T) {
	e := newTestEnv(t, nil)

	hit := e.do(http.MethodPost, "/api/auth/sales",
		`{"email":"jane@dealer.example","action":"forgot_password"}`)
	miss := e.do(http.MethodPost, "/api/auth/sales",
		`{"email":"nobody@dealer.example","action":"forgot_password"}`)

	require.Equal(t, http.StatusOK, hit.Code)
	require.Equal(t, http.StatusOK, miss.Code)
	assert.Equal(t, hit.Body.Bytes(), miss.Body.Bytes())
}

// --- introspection and logout ---

func TestIntrospection_Lifecycle(t *testing.T) {
	e := newTestEnv(t, nil)

	// Anonymous.
	w := e.do(http.MethodGet, "/api/auth/sales", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"authenticated":false`)

	// Authenticated.
	login := e.do(http.MethodPost, "/api/auth/sales",
		`{"email":"jane@dealer.example","password":"pw123"}`)
	cookie := sessionCookie(t, login, "sales_session")

	w = e.do(http.MethodGet, "/api/auth/sales", "", cookie)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"authenticated":true`)
	assert.Contains(t, w.Body.String(), "jane-doe")

	// Logout clears the cookie; a follow-up GET without it is anonymous.
	logout := e.do(http.MethodDelete, "/api/auth/sales", "", cookie)
	require.Equal(t, http.StatusOK, logout.Code)
	cleared := sessionCookie(t, logout, "sales_session")
	assert.Negative(t, cleared.MaxAge)

	w = e.do(http.MethodGet, "/api/auth/sales", "")
	assert.Contains(t, w.Body.String(), `"authenticated":false`)
}

func TestIntrospection_MalformedCookieIsAnonymous(t *testing.T) {
	e := newTestEnv(t, nil)

	w := e.do(http.MethodGet, "/api/auth/admin", "",
		&http.Cookie{Name: "admin_session", Value: "garbage"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"authenticated":false`)
}

func TestLogout_Idempotent(t *testing.T) {
	e := newTestEnv(t, nil)

	for i := 0; i < 2; i++ {
		w := e.do(http.MethodDelete, "/api/auth/admin", "")
		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"success":true`)
	}
}

// --- super admin ---

func TestSuperAdminLogin(t *testing.T) {
	e := newTestEnv(t, nil)

	w := e.do(http.MethodPost, "/api/auth/superadmin", `{"password":"master-key"}`)
	require.Equal(t, http.StatusOK, w.Code)

	c := sessionCookie(t, w, "superadmin_session")
	claims, ok := e.issuer.Read(c.Value)
	require.True(t, ok)
	assert.True(t, claims.SuperAdmin)
	assert.Empty(t, claims.Email)
	assert.Empty(t, claims.Name)

	w = e.do(http.MethodPost, "/api/auth/superadmin", `{"password":"guess"}`)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAdminGuardRejectsSuperAdminSession(t *testing.T) {
	e := newTestEnv(t, nil)

	login := e.do(http.MethodPost, "/api/auth/superadmin", `{"password":"master-key"}`)
	token := sessionCookie(t, login, "superadmin_session").Value

	// The captured super-admin token presented under the admin scope's
	// cookie must not pass the per-user guard.
	w := e.do(http.MethodGet, "/api/admin/salespeople", "",
		&http.Cookie{Name: "admin_session", Value: token})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

// --- admin surface ---

func adminCookie(t *testing.T, e *testEnv) *http.Cookie {
	t.Helper()
	login := e.do(http.MethodPost, "/api/auth/admin",
		`{"email":"boss@dealer.example","password":"pw123"}`)
	require.Equal(t, http.StatusOK, login.Code)
	return sessionCookie(t, login, "admin_session")
}

func TestAdminSurface_RequiresSession(t *testing.T) {
	e := newTestEnv(t, nil)

	w := e.do(http.MethodGet, "/api/admin/salespeople", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAdminSurface_SalespersonLifecycle(t *testing.T) {
	e := newTestEnv(t, nil)
	cookie := adminCookie(t, e)

	w := e.do(http.MethodPost, "/api/admin/salespeople",
		`{"name":"Mike Roe","email":"Mike@Dealer.Example","slug":"Mike-Roe","password":"first-pw"}`, cookie)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"slug":"mike-roe"`)

	created := e.store.byEmail["mike@dealer.example"]
	require.NotNil(t, created)
	assert.True(t, password.LooksHashed(created.Password))

	w = e.do(http.MethodGet, "/api/admin/salespeople", "", cookie)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "mike@dealer.example")

	w = e.do(http.MethodPost, "/api/admin/salespeople/"+created.ID+"/password",
		`{"password":"second-pw"}`, cookie)
	require.Equal(t, http.StatusOK, w.Code)

	w = e.do(http.MethodPost, "/api/admin/salespeople/"+created.ID+"/active",
		`{"active":false}`, cookie)
	require.Equal(t, http.StatusOK, w.Code)
	assert.False(t, e.store.byEmail["mike@dealer.example"].IsActive)

	// The deactivated account now logs in to the distinct message.
	w = e.do(http.MethodPost, "/api/auth/sales",
		`{"email":"mike@dealer.example","password":"second-pw"}`)
	require.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "deactivated")
}
