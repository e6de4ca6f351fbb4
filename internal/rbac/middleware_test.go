package rbac

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/salonpos/salonpos/internal/shared"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusNoContent) })
}

func TestRequireRole(t *testing.T) {
	mw := Middleware{}.RequireRole("admin")
	cases := []struct {
		name   string
		actor  *shared.Actor
		status int
	}{
		{name: "anonymous", status: http.StatusUnauthorized},
		{name: "staff", actor: &shared.Actor{UserID: 2, Role: shared.RoleStaff}, status: http.StatusForbidden},
		{name: "admin", actor: &shared.Actor{UserID: 1, Role: shared.RoleAdmin}, status: http.StatusNoContent},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodDelete, "/api/sales/1", nil)
			if tc.actor != nil {
				req = req.WithContext(shared.ContextWithActor(req.Context(), *tc.actor))
			}
			rec := httptest.NewRecorder()
			mw(okHandler()).ServeHTTP(rec, req)
			require.Equal(t, tc.status, rec.Code)
		})
	}
}

func TestRequireAuthenticated(t *testing.T) {
	mw := Middleware{}.RequireAuthenticated()
	rec := httptest.NewRecorder()
	mw(okHandler()).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/items", nil))
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/api/items", nil)
	req = req.WithContext(shared.ContextWithActor(req.Context(), shared.Actor{UserID: 3, Role: shared.RoleStaff}))
	rec = httptest.NewRecorder()
	mw(okHandler()).ServeHTTP(rec, req)
	require.Equal(t, http.StatusNoContent, rec.Code)
}
