package identity

import (
	"context"
	"errors"
	"testing"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"

	"github.com/tbourn/hospitality-backoffice/internal/domain"
)

func TestBearerToken(t *testing.T) {
	cases := []struct {
		in    string
		token string
		ok    bool
	}{
		{"Bearer abc", "abc", true},
		{"bearer abc", "abc", true},
		{"  Bearer   abc  ", "abc", true},
		{"", "", false},
		{"Bearer", "", false},
		{"Bearer ", "", false},
		{"Basic dXNlcjpwYXNz", "", false},
		{"abc", "", false},
	}
	for _, tc := range cases {
		tok, ok := BearerToken(tc.in)
		if tok != tc.token || ok != tc.ok {
			t.Errorf("BearerToken(%q) = (%q,%v), want (%q,%v)", tc.in, tok, ok, tc.token, tc.ok)
		}
	}
}

func TestResolve_MissingCredential(t *testing.T) {
	called := false
	r := NewResolver(VerifierFunc(func(context.Context, string) (Claims, error) {
		called = true
		return Claims{}, nil
	}))
	for _, h := range []string{"", "Bearer ", "Token abc"} {
		if _, err := r.Resolve(context.Background(), h); !errors.Is(err, ErrMissingCredential) {
			t.Fatalf("Resolve(%q) err=%v, want ErrMissingCredential", h, err)
		}
	}
	if called {
		t.Fatalf("verifier must not be called without a token")
	}
}

func TestResolve_RoleFromClaims(t *testing.T) {
	v := newTestVerifier(t)
	r := NewResolver(v)

	cases := []struct {
		name  string
		extra map[string]any
		want  string
	}{
		{"admin", map[string]any{"role": "admin"}, domain.AdminRole},
		{"absent", nil, domain.BaseRole},
		{"empty", map[string]any{"role": "  "}, domain.BaseRole},
		{"not_string", map[string]any{"role": 42}, domain.BaseRole},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			tok := signToken(t, testSecret, jwtlib.SigningMethodHS256, validClaims(tc.extra))
			p, err := r.Resolve(context.Background(), "Bearer "+tok)
			if err != nil {
				t.Fatalf("Resolve: %v", err)
			}
			if p.ID != "user-1" || p.Role != tc.want {
				t.Fatalf("principal=%+v, want role %q", p, tc.want)
			}
			if p.RawClaims["sub"] != "user-1" {
				t.Fatalf("raw claims not carried: %+v", p.RawClaims)
			}
		})
	}
}

func TestResolve_CustomRoleClaim(t *testing.T) {
	r := NewResolver(newTestVerifier(t), WithRoleClaim("https://backoffice/role"))
	tok := signToken(t, testSecret, jwtlib.SigningMethodHS256, validClaims(map[string]any{
		"role":                    "admin",
		"https://backoffice/role": "staff",
	}))
	p, err := r.Resolve(context.Background(), "Bearer "+tok)
	if err != nil {
		t.Fatal(err)
	}
	if p.Role != domain.StaffRole {
		t.Fatalf("role=%q, want staff", p.Role)
	}
}

func TestResolve_InvalidCredential(t *testing.T) {
	r := NewResolver(newTestVerifier(t))
	tok := signToken(t, []byte("wrong"), jwtlib.SigningMethodHS256, validClaims(nil))
	_, err := r.Resolve(context.Background(), "Bearer "+tok)
	if !errors.Is(err, ErrInvalidCredential) {
		t.Fatalf("err=%v, want ErrInvalidCredential", err)
	}
}

func TestResolve_EmptySubjectFromVerifier(t *testing.T) {
	r := NewResolver(VerifierFunc(func(context.Context, string) (Claims, error) {
		return Claims{Subject: ""}, nil
	}))
	if _, err := r.Resolve(context.Background(), "Bearer x"); !errors.Is(err, ErrInvalidCredential) {
		t.Fatalf("err=%v, want ErrInvalidCredential", err)
	}
}

func TestResolve_TimeoutFailsClosed(t *testing.T) {
	block := make(chan struct{})
	defer close(block)
	r := NewResolver(VerifierFunc(func(context.Context, string) (Claims, error) {
		<-block // ignores ctx
		return Claims{Subject: "late"}, nil
	}), WithVerifyTimeout(20*time.Millisecond))

	start := time.Now()
	_, err := r.Resolve(context.Background(), "Bearer x")
	if !errors.Is(err, ErrInvalidCredential) {
		t.Fatalf("err=%v, want ErrInvalidCredential", err)
	}
	if time.Since(start) > time.Second {
		t.Fatalf("timeout not enforced")
	}
}
