// Package services – UserService
//
// UserService manages the persisted role records that privileged
// authorization decisions are checked against. It also implements
// authz.RoleSource.
package services

import (
	"context"
	"errors"
	"strings"
	"unicode/utf8"

	"gorm.io/gorm"

	"github.com/tbourn/hospitality-backoffice/internal/domain"
)

// UserRepo defines the repository contract required by UserService.
type UserRepo interface {
	GetUser(ctx context.Context, db *gorm.DB, id string) (*domain.User, error)
	GetUserRole(ctx context.Context, db *gorm.DB, id string) (string, bool, error)
	UpsertUser(ctx context.Context, db *gorm.DB, id, role, plan string) (*domain.User, error)
}

const maxPlanLength = 32

// UserService implements role record use-cases.
type UserService struct {
	DB   *gorm.DB
	Repo UserRepo
}

// NewUserService returns a UserService.
func NewUserService(db *gorm.DB, r UserRepo) *UserService {
	return &UserService{DB: db, Repo: r}
}

// ValidRole reports whether role is one of base, staff or admin.
func ValidRole(role string) bool {
	switch role {
	case domain.BaseRole, domain.StaffRole, domain.AdminRole:
		return true
	}
	return false
}

// Get returns the record for id or ErrUserNotFound.
func (s *UserService) Get(ctx context.Context, id string) (*domain.User, error) {
	if strings.TrimSpace(id) == "" {
		return nil, ErrUserNotFound
	}
	u, err := s.Repo.GetUser(ctx, s.DB, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrUserNotFound
	}
	return u, err
}

// SetRole assigns role and plan to id, creating the record if needed. The
// change applies to the next privileged request of that user, whatever
// token they hold.
func (s *UserService) SetRole(ctx context.Context, id, role, plan string) (*domain.User, error) {
	if strings.TrimSpace(id) == "" || utf8.RuneCountInString(id) > 128 {
		return nil, ErrInvalidID
	}
	role = strings.TrimSpace(role)
	if !ValidRole(role) {
		return nil, ErrInvalidRole
	}
	plan = strings.TrimSpace(plan)
	if utf8.RuneCountInString(plan) > maxPlanLength {
		plan = string([]rune(plan)[:maxPlanLength])
	}
	return s.Repo.UpsertUser(ctx, s.DB, id, role, plan)
}

// Role implements authz.RoleSource.
func (s *UserService) Role(ctx context.Context, id string) (string, bool, error) {
	return s.Repo.GetUserRole(ctx, s.DB, id)
}

// Bootstrap ensures id holds the admin role, keeping an existing plan. An
// empty id is a no-op.
func (s *UserService) Bootstrap(ctx context.Context, id string) error {
	if strings.TrimSpace(id) == "" {
		return nil
	}
	plan := ""
	u, err := s.Get(ctx, id)
	switch {
	case err == nil:
		if u.Role == domain.AdminRole {
			return nil
		}
		plan = u.Plan
	case !errors.Is(err, ErrUserNotFound):
		return err
	}
	_, err = s.SetRole(ctx, id, domain.AdminRole, plan)
	return err
}
