package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

func TestRequireActorReturnsBoundActor(t *testing.T) {
	e := echo.New()
	bound := &Actor{ID: uuid.New(), Name: "marta", Role: RoleReception}
	req := httptest.NewRequest(http.MethodPost, "/api/v1/orders", nil)
	req = req.WithContext(WithActor(req.Context(), bound))
	c := e.NewContext(req, httptest.NewRecorder())

	actor, err := RequireActor(c)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if actor.ID != bound.ID || actor.Role != bound.Role {
		t.Errorf("got actor %+v, want %+v", actor, *bound)
	}
	if !actor.Can(CapManageOrders) {
		t.Error("returned actor must answer capability checks")
	}
}

func TestRequireActorRejectsUnauthenticated(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/orders", nil)
	c := e.NewContext(req, httptest.NewRecorder())

	_, err := RequireActor(c)
	if err == nil {
		t.Fatal("expected error without a bound actor")
	}
	httpErr, ok := err.(*echo.HTTPError)
	if !ok {
		t.Fatalf("expected echo.HTTPError, got %T", err)
	}
	if httpErr.Code != http.StatusUnauthorized {
		t.Errorf("got status %d, want 401", httpErr.Code)
	}
}
