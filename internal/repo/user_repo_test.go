package repo

import (
	"context"
	"errors"
	"testing"

	"github.com/tbourn/hospitality-backoffice/internal/domain"
)

func TestUsers_UpsertGetAndRole(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	if _, found, err := GetUserRole(ctx, db, "u1"); err != nil || found {
		t.Fatalf("missing user: found=%v err=%v", found, err)
	}
	if _, err := GetUser(ctx, db, "u1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	u, err := UpsertUser(ctx, db, "u1", domain.AdminRole, "pro")
	if err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if u.Role != domain.AdminRole || u.Plan != "pro" {
		t.Fatalf("unexpected user %+v", u)
	}

	// Downgrade takes effect on the next read.
	if _, err := UpsertUser(ctx, db, "u1", domain.BaseRole, "free"); err != nil {
		t.Fatalf("downgrade: %v", err)
	}
	role, found, err := GetUserRole(ctx, db, "u1")
	if err != nil || !found || role != domain.BaseRole {
		t.Fatalf("role=%q found=%v err=%v", role, found, err)
	}

	var n int64
	db.Model(&domain.User{}).Count(&n)
	if n != 1 {
		t.Fatalf("upsert created duplicates: %d rows", n)
	}
}
