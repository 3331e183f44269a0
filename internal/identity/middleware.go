package identity

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/meridian-hr/meridian-hr/internal/hierarchy"
	"github.com/meridian-hr/meridian-hr/internal/platform/httpx"
	"github.com/meridian-hr/meridian-hr/internal/shared"
)

// Account is the slice of the directory record a Principal is built from.
type Account struct {
	ID         int64
	Name       string
	Email      string
	RoleName   string
	DivisionID *int64
	Active     bool
}

// Directory resolves accounts by employee id.
type Directory interface {
	Account(ctx context.Context, id int64) (Account, error)
}

// Middleware resolves the session user into a Principal.
type Middleware struct {
	Directory Directory
	Hierarchy hierarchy.Table
	Logger    *slog.Logger
}

// RequireAuthenticated resolves and injects the principal or rejects with 401.
func (m Middleware) RequireAuthenticated(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		principal, ok := m.resolve(r)
		if !ok {
			httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "login required")
			return
		}
		next.ServeHTTP(w, r.WithContext(ContextWithPrincipal(r.Context(), principal)))
	})
}

// RequireLevelAtMost admits only callers at the given authority level or
// better (numerically lower).
func (m Middleware) RequireLevelAtMost(level int) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal, ok := PrincipalFromContext(r.Context())
			if !ok {
				if principal, ok = m.resolve(r); !ok {
					httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "login required")
					return
				}
				r = r.WithContext(ContextWithPrincipal(r.Context(), principal))
			}
			if principal.Level > level {
				httpx.Problem(w, http.StatusForbidden, "Forbidden", "insufficient authority")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func (m Middleware) resolve(r *http.Request) (Principal, bool) {
	sess := shared.SessionFromContext(r.Context())
	if sess == nil {
		return Principal{}, false
	}
	raw := strings.TrimSpace(sess.User())
	if raw == "" {
		return Principal{}, false
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		if m.Logger != nil {
			m.Logger.Error("identity parse user id", slog.String("value", raw))
		}
		return Principal{}, false
	}
	acct, err := m.Directory.Account(r.Context(), id)
	if err != nil {
		if m.Logger != nil {
			m.Logger.Error("identity lookup account", slog.Int64("id", id), slog.Any("error", err))
		}
		return Principal{}, false
	}
	if !acct.Active {
		return Principal{}, false
	}
	return Principal{
		EmployeeID: acct.ID,
		Name:       acct.Name,
		Email:      acct.Email,
		RoleName:   acct.RoleName,
		Level:      m.Hierarchy.LevelOf(acct.RoleName),
		DivisionID: acct.DivisionID,
	}, true
}
