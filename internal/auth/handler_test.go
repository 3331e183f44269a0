package auth_test

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/meridian-hr/meridian-hr/internal/auth"
	"github.com/meridian-hr/meridian-hr/internal/employees"
	"github.com/meridian-hr/meridian-hr/internal/shared"
	_ "github.com/meridian-hr/meridian-hr/testing"
)

type stubDirectory struct {
	emp *employees.Employee
}

func (s *stubDirectory) GetByEmail(ctx context.Context, email string) (employees.Employee, error) {
	if s.emp == nil || s.emp.Email != email {
		return employees.Employee{}, shared.ErrNotFound
	}
	return *s.emp, nil
}

type stubSessions struct{}

func (stubSessions) CreateSession(ctx context.Context, id string, userID int64, expiresAt time.Time, ip, ua string) error {
	return nil
}

func (stubSessions) DeleteSession(ctx context.Context, id string) error { return nil }

func testLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func newTestRouter(t *testing.T, directory auth.DirectoryPort) http.Handler {
	t.Helper()
	mr := miniredis.RunT(t)
	redisClient := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	sessionManager := shared.NewSessionManager(redisClient, "test_session", "secret", time.Hour, false)
	csrfManager := shared.NewCSRFManager("csrfsecret")

	handler := auth.NewHandler(testLogger(), auth.NewService(directory, stubSessions{}), sessionManager, csrfManager)

	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			sess, err := sessionManager.Load(req.Context(), req)
			require.NoError(t, err)
			ctx := shared.ContextWithSession(req.Context(), sess)
			next.ServeHTTP(w, req.WithContext(ctx))
			require.NoError(t, sessionManager.Commit(ctx, w, req, sess))
		})
	})
	r.Route("/auth", handler.MountRoutes)
	return r
}

func activeEmployee(t *testing.T, password string) *employees.Employee {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	require.NoError(t, err)
	return &employees.Employee{
		ID: 1, Name: "Dana", Email: "dana@test.local",
		RoleName: "Director", Status: employees.StatusActive,
		PasswordHash: string(hash),
	}
}

func TestLoginSuccess(t *testing.T) {
	router := newTestRouter(t, &stubDirectory{emp: activeEmployee(t, "correct-horse12")})

	body := `{"email":"dana@test.local","password":"correct-horse12"}`
	req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	res := httptest.NewRecorder()
	router.ServeHTTP(res, req)

	require.Equal(t, http.StatusOK, res.Code)
	require.Contains(t, res.Body.String(), `"csrf_token"`)
	require.Contains(t, res.Body.String(), `"user_id":1`)
}

func TestLoginWrongPassword(t *testing.T) {
	router := newTestRouter(t, &stubDirectory{emp: activeEmployee(t, "correct-horse12")})

	body := `{"email":"dana@test.local","password":"wrong-password"}`
	req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	res := httptest.NewRecorder()
	router.ServeHTTP(res, req)

	require.Equal(t, http.StatusUnauthorized, res.Code)
}

func TestLoginInactiveAccount(t *testing.T) {
	emp := activeEmployee(t, "correct-horse12")
	emp.Status = employees.StatusTerminated
	router := newTestRouter(t, &stubDirectory{emp: emp})

	body := `{"email":"dana@test.local","password":"correct-horse12"}`
	req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	res := httptest.NewRecorder()
	router.ServeHTTP(res, req)

	require.Equal(t, http.StatusUnauthorized, res.Code)
}

func TestLoginMalformedBody(t *testing.T) {
	router := newTestRouter(t, &stubDirectory{})

	req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader("{"))
	req.Header.Set("Content-Type", "application/json")
	res := httptest.NewRecorder()
	router.ServeHTTP(res, req)

	require.Equal(t, http.StatusBadRequest, res.Code)
}

func TestLogout(t *testing.T) {
	router := newTestRouter(t, &stubDirectory{})

	req := httptest.NewRequest(http.MethodPost, "/auth/logout", nil)
	res := httptest.NewRecorder()
	router.ServeHTTP(res, req)

	require.Equal(t, http.StatusNoContent, res.Code)
}
