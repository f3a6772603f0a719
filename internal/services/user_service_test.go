package services

import (
	"context"
	"errors"
	"strings"
	"testing"

	"gorm.io/gorm"

	"github.com/tbourn/hospitality-backoffice/internal/domain"
)

type fakeUserRepo struct {
	users   map[string]domain.User
	getErr  error
	upserts int
}

func newFakeUserRepo() *fakeUserRepo { return &fakeUserRepo{users: map[string]domain.User{}} }

func (r *fakeUserRepo) GetUser(_ context.Context, _ *gorm.DB, id string) (*domain.User, error) {
	if r.getErr != nil {
		return nil, r.getErr
	}
	u, ok := r.users[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &u, nil
}

func (r *fakeUserRepo) GetUserRole(_ context.Context, _ *gorm.DB, id string) (string, bool, error) {
	if r.getErr != nil {
		return "", false, r.getErr
	}
	u, ok := r.users[id]
	return u.Role, ok, nil
}

func (r *fakeUserRepo) UpsertUser(_ context.Context, _ *gorm.DB, id, role, plan string) (*domain.User, error) {
	r.upserts++
	u := domain.User{ID: id, Role: role, Plan: plan}
	r.users[id] = u
	return &u, nil
}

func TestUserService_SetRole(t *testing.T) {
	r := newFakeUserRepo()
	s := NewUserService(nil, r)

	u, err := s.SetRole(context.Background(), "u1", " staff ", " premium ")
	if err != nil || u.Role != domain.StaffRole || u.Plan != "premium" {
		t.Fatalf("u=%+v err=%v", u, err)
	}
	if _, err := s.SetRole(context.Background(), "u1", "owner", ""); !errors.Is(err, ErrInvalidRole) {
		t.Fatalf("err=%v", err)
	}
	if _, err := s.SetRole(context.Background(), " ", "base", ""); !errors.Is(err, ErrInvalidID) {
		t.Fatalf("err=%v", err)
	}
	u, _ = s.SetRole(context.Background(), "u2", "base", strings.Repeat("p", 40))
	if len(u.Plan) != maxPlanLength {
		t.Fatalf("plan not clipped: %d", len(u.Plan))
	}
}

func TestUserService_GetAndRole(t *testing.T) {
	r := newFakeUserRepo()
	s := NewUserService(nil, r)

	if _, err := s.Get(context.Background(), "nobody"); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("err=%v", err)
	}
	if _, found, err := s.Role(context.Background(), "nobody"); found || err != nil {
		t.Fatalf("found=%v err=%v", found, err)
	}

	r.users["u1"] = domain.User{ID: "u1", Role: domain.AdminRole}
	role, found, err := s.Role(context.Background(), "u1")
	if role != domain.AdminRole || !found || err != nil {
		t.Fatalf("role=%q found=%v err=%v", role, found, err)
	}
}

func TestUserService_Bootstrap(t *testing.T) {
	r := newFakeUserRepo()
	s := NewUserService(nil, r)

	if err := s.Bootstrap(context.Background(), ""); err != nil || r.upserts != 0 {
		t.Fatalf("empty id must be a no-op")
	}

	r.users["u1"] = domain.User{ID: "u1", Role: domain.BaseRole, Plan: "gold"}
	if err := s.Bootstrap(context.Background(), "u1"); err != nil {
		t.Fatal(err)
	}
	if u := r.users["u1"]; u.Role != domain.AdminRole || u.Plan != "gold" {
		t.Fatalf("bootstrap lost plan or role: %+v", u)
	}

	// Already admin: nothing written.
	before := r.upserts
	if err := s.Bootstrap(context.Background(), "u1"); err != nil || r.upserts != before {
		t.Fatalf("unexpected write for existing admin")
	}

	r.getErr = errors.New("db down")
	if err := s.Bootstrap(context.Background(), "u3"); err == nil {
		t.Fatalf("expected lookup error")
	}
}

func TestValidRole(t *testing.T) {
	for _, r := range []string{"base", "staff", "admin"} {
		if !ValidRole(r) {
			t.Fatalf("%q should be valid", r)
		}
	}
	for _, r := range []string{"", "Admin", "root"} {
		if ValidRole(r) {
			t.Fatalf("%q should be invalid", r)
		}
	}
}
