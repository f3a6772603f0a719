package middleware

import (
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/hospitality-backoffice/internal/domain"
)

func TestPrincipal_SetAndGet(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())

	if _, ok := PrincipalFrom(c); ok {
		t.Fatalf("no principal expected on a fresh context")
	}

	p := domain.Principal{ID: "u1", Role: domain.AdminRole}
	SetPrincipal(c, p)

	got, ok := PrincipalFrom(c)
	if !ok || got.ID != "u1" || got.Role != domain.AdminRole {
		t.Fatalf("got %+v ok=%v", got, ok)
	}
	if c.GetString(UserIDKey) != "u1" {
		t.Fatalf("userID not set")
	}
}

func TestPrincipalFrom_ZeroPrincipal(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	SetPrincipal(c, domain.Principal{})
	if _, ok := PrincipalFrom(c); ok {
		t.Fatalf("zero principal must not count as resolved")
	}
}
