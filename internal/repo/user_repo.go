package repo

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tbourn/hospitality-backoffice/internal/domain"
)

// ErrNotFound is returned when a requested record does not exist.
// It aliases gorm.ErrRecordNotFound for consistency across the service layer
// and handlers.
var ErrNotFound = gorm.ErrRecordNotFound

// GetUser fetches the role record for id, or ErrNotFound.
func GetUser(ctx context.Context, db *gorm.DB, id string) (*domain.User, error) {
	var u domain.User
	if err := db.WithContext(ctx).Where("id = ?", id).Take(&u).Error; err != nil {
		return nil, err
	}
	return &u, nil
}

// GetUserRole returns only the role column for id. found is false when no
// record exists; err is reserved for database failures.
func GetUserRole(ctx context.Context, db *gorm.DB, id string) (role string, found bool, err error) {
	var u domain.User
	err = db.WithContext(ctx).Select("role").Where("id = ?", id).Take(&u).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return u.Role, true, nil
}

// UpsertUser creates the record for id or overwrites its role and plan, and
// returns the stored row.
func UpsertUser(ctx context.Context, db *gorm.DB, id, role, plan string) (*domain.User, error) {
	now := time.Now().UTC()
	u := &domain.User{ID: id, Role: role, Plan: plan, CreatedAt: now, UpdatedAt: now}
	err := db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"role", "plan", "updated_at"}),
	}).Create(u).Error
	if err != nil {
		return nil, err
	}
	return GetUser(ctx, db, id)
}
