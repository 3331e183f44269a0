package identity

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/meridian-hr/meridian-hr/internal/hierarchy"
	"github.com/meridian-hr/meridian-hr/internal/shared"
)

type fakeDirectory struct {
	accounts map[int64]Account
}

func (f *fakeDirectory) Account(ctx context.Context, id int64) (Account, error) {
	acct, ok := f.accounts[id]
	if !ok {
		return Account{}, shared.ErrNotFound
	}
	return acct, nil
}

func int64Ptr(v int64) *int64 { return &v }

func sessionRequest(userID string) *http.Request {
	r := httptest.NewRequest(http.MethodGet, "/employees", nil)
	sess := &shared.Session{}
	if userID != "" {
		sess.SetUser(userID)
	}
	return r.WithContext(shared.ContextWithSession(r.Context(), sess))
}

func TestRequireAuthenticatedInjectsPrincipal(t *testing.T) {
	mw := Middleware{
		Directory: &fakeDirectory{accounts: map[int64]Account{
			42: {ID: 42, Name: "Dana Vale", Email: "director@meridian.local",
				RoleName: hierarchy.RoleDirector, DivisionID: int64Ptr(1), Active: true},
		}},
		Hierarchy: hierarchy.Defaults(),
	}

	var got Principal
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, _ = PrincipalFromContext(r.Context())
	})
	rec := httptest.NewRecorder()
	mw.RequireAuthenticated(next).ServeHTTP(rec, sessionRequest("42"))

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, int64(42), got.EmployeeID)
	require.Equal(t, hierarchy.RoleDirector, got.RoleName)
	require.Equal(t, 2, got.Level)
}

func TestRequireAuthenticatedWithoutSessionUser(t *testing.T) {
	mw := Middleware{Directory: &fakeDirectory{}, Hierarchy: hierarchy.Defaults()}

	rec := httptest.NewRecorder()
	mw.RequireAuthenticated(http.NotFoundHandler()).ServeHTTP(rec, sessionRequest(""))

	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRequireAuthenticatedInactiveAccount(t *testing.T) {
	mw := Middleware{
		Directory: &fakeDirectory{accounts: map[int64]Account{
			7: {ID: 7, RoleName: hierarchy.RoleStaff, Active: false},
		}},
		Hierarchy: hierarchy.Defaults(),
	}

	rec := httptest.NewRecorder()
	mw.RequireAuthenticated(http.NotFoundHandler()).ServeHTTP(rec, sessionRequest("7"))

	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRequireLevelAtMostRejectsLowerAuthority(t *testing.T) {
	mw := Middleware{
		Directory: &fakeDirectory{accounts: map[int64]Account{
			7: {ID: 7, RoleName: hierarchy.RoleStaff, Active: true},
		}},
		Hierarchy: hierarchy.Defaults(),
	}

	rec := httptest.NewRecorder()
	handler := mw.RequireLevelAtMost(2)(http.NotFoundHandler())
	handler.ServeHTTP(rec, sessionRequest("7"))

	require.Equal(t, http.StatusForbidden, rec.Code)
}
