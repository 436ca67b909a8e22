// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the User model.
//
// All functions are context-aware and accept a *gorm.DB handle, so they work
// unchanged against the root handle or a transaction handle. They follow the
// "thin repository" approach: no business logic, only persistence and query
// composition.
//
// Error semantics:
//   - Missing rows surface as gorm.ErrRecordNotFound (exported as ErrNotFound).
//   - Unique violations on email surface as ErrDuplicate.
//   - Other DB errors are propagated unchanged.
//
// Balance mutations:
//
//   - CreditSkillpoints increments unconditionally.
//   - DebitSkillpoints decrements only while the balance covers the amount and
//     reports whether a row changed; callers decide what a miss means.
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tbourn/go-tutor-backend/internal/domain"
)

// ErrNotFound is returned when a requested record does not exist.
// It aliases gorm.ErrRecordNotFound for convenience and consistency
// across the service layer and handlers.
var ErrNotFound = gorm.ErrRecordNotFound

// ProfileUpdate carries the editable, core-irrelevant user fields. Nil
// pointers leave the column untouched.
type ProfileUpdate struct {
	FirstName         *string
	LastName          *string
	Name              *string
	SchoolClass       *string
	Age               *string
	City              *string
	AvgGrade          *string
	Gender            *string
	Bio               *string
	ProfileConfigured *bool
}

func (p ProfileUpdate) columns() map[string]any {
	cols := map[string]any{}
	set := func(col string, v *string) {
		if v != nil {
			cols[col] = *v
		}
	}
	set("first_name", p.FirstName)
	set("last_name", p.LastName)
	set("name", p.Name)
	set("school_class", p.SchoolClass)
	set("age", p.Age)
	set("city", p.City)
	set("avg_grade", p.AvgGrade)
	set("gender", p.Gender)
	set("bio", p.Bio)
	if p.ProfileConfigured != nil {
		cols["profile_configured"] = *p.ProfileConfigured
	}
	return cols
}

// CreateUser inserts u, assigning a UUID when u.ID is empty. A duplicate
// email yields ErrDuplicate.
func CreateUser(ctx context.Context, db *gorm.DB, u *domain.User) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if u.CreatedAt.IsZero() {
		u.CreatedAt = now
	}
	u.UpdatedAt = now
	if err := db.WithContext(ctx).Create(u).Error; err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return err
	}
	return nil
}

// GetUser fetches a user by id or returns ErrNotFound.
func GetUser(ctx context.Context, db *gorm.DB, id string) (*domain.User, error) {
	var u domain.User
	if err := db.WithContext(ctx).Where("id = ?", id).First(&u).Error; err != nil {
		return nil, err
	}
	return &u, nil
}

// GetUserByEmail fetches a user by (already normalized) email.
func GetUserByEmail(ctx context.Context, db *gorm.DB, email string) (*domain.User, error) {
	var u domain.User
	if err := db.WithContext(ctx).Where("email = ?", email).First(&u).Error; err != nil {
		return nil, err
	}
	return &u, nil
}

// UpdateUserProfile applies the non-nil fields of p. Skillpoints are never
// touched here. Returns ErrNotFound when the user does not exist.
func UpdateUserProfile(ctx context.Context, db *gorm.DB, id string, p ProfileUpdate) error {
	cols := p.columns()
	if len(cols) == 0 {
		_, err := GetUser(ctx, db, id)
		return err
	}
	cols["updated_at"] = time.Now().UTC()
	res := db.WithContext(ctx).Model(&domain.User{}).Where("id = ?", id).Updates(cols)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// CreditSkillpoints adds amount to the user's balance. Returns ErrNotFound
// when no row matched.
func CreditSkillpoints(ctx context.Context, db *gorm.DB, userID string, amount int64) error {
	res := db.WithContext(ctx).
		Model(&domain.User{}).
		Where("id = ?", userID).
		Updates(map[string]any{
			"skillpoints": gorm.Expr("skillpoints + ?", amount),
			"updated_at":  time.Now().UTC(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// DebitSkillpoints subtracts amount from the user's balance only if the
// balance is at least amount. It reports false, with no error, when the
// guard or the id did not match.
func DebitSkillpoints(ctx context.Context, db *gorm.DB, userID string, amount int64) (bool, error) {
	res := db.WithContext(ctx).
		Model(&domain.User{}).
		Where("id = ? AND skillpoints >= ?", userID, amount).
		Updates(map[string]any{
			"skillpoints": gorm.Expr("skillpoints - ?", amount),
			"updated_at":  time.Now().UTC(),
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// SetSkillpoints overwrites the balance. Used by seeding and fixtures only;
// lifecycle code moves balances through Credit/Debit.
func SetSkillpoints(ctx context.Context, db *gorm.DB, userID string, amount int64) error {
	res := db.WithContext(ctx).
		Model(&domain.User{}).
		Where("id = ?", userID).
		Updates(map[string]any{"skillpoints": amount, "updated_at": time.Now().UTC()})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
