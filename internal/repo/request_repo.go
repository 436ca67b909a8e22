package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tbourn/go-tutor-backend/internal/domain"
)

// CreateRequest inserts r, assigning a UUID when r.ID is empty. Status and
// type default to open and ask.
func CreateRequest(ctx context.Context, db *gorm.DB, r *domain.Request) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if r.Status == "" {
		r.Status = domain.RequestOpen
	}
	if r.Type == "" {
		r.Type = domain.RequestAsk
	}
	now := time.Now().UTC()
	if r.CreatedAt.IsZero() {
		r.CreatedAt = now
	}
	r.UpdatedAt = now
	return db.WithContext(ctx).Create(r).Error
}

// GetRequest fetches a request by id or returns ErrNotFound.
func GetRequest(ctx context.Context, db *gorm.DB, id string) (*domain.Request, error) {
	var r domain.Request
	if err := db.WithContext(ctx).Where("id = ?", id).First(&r).Error; err != nil {
		return nil, err
	}
	return &r, nil
}

// ListOpenRequestsPage returns open requests newest first.
func ListOpenRequestsPage(ctx context.Context, db *gorm.DB, offset, limit int) ([]domain.Request, error) {
	var out []domain.Request
	err := db.WithContext(ctx).
		Where("status = ?", domain.RequestOpen).
		Order("created_at desc").
		Order("id desc").
		Offset(offset).
		Limit(limit).
		Find(&out).Error
	return out, err
}

// CountOpenRequests returns the number of open requests.
func CountOpenRequests(ctx context.Context, db *gorm.DB) (int64, error) {
	var total int64
	err := db.WithContext(ctx).
		Model(&domain.Request{}).
		Where("status = ?", domain.RequestOpen).
		Count(&total).Error
	return total, err
}

// SumReservedSkillpoints returns the total skillpoints of creatorID's
// requests whose status is in statuses. It is 0 when nothing matches.
func SumReservedSkillpoints(ctx context.Context, db *gorm.DB, creatorID string, statuses []domain.RequestStatus) (int64, error) {
	var row struct{ Total int64 }
	err := db.WithContext(ctx).
		Model(&domain.Request{}).
		Select("COALESCE(SUM(skillpoints), 0) AS total").
		Where("creator_id = ? AND status IN ?", creatorID, statuses).
		Scan(&row).Error
	return row.Total, err
}

// RequestChange describes a status compare-and-set on a request.
// AcceptedBy and AcceptedAt are written as given, so nil clears them.
type RequestChange struct {
	From       domain.RequestStatus
	To         domain.RequestStatus
	AcceptedBy *string
	AcceptedAt *time.Time
}

// TransitionRequest moves request id from ch.From to ch.To. The update only
// applies while the stored status still equals ch.From; it reports false when
// the row was missing or had already moved on.
func TransitionRequest(ctx context.Context, db *gorm.DB, id string, ch RequestChange) (bool, error) {
	accepted := ch.To == domain.RequestAccepted || ch.To == domain.RequestCompleted
	res := db.WithContext(ctx).
		Model(&domain.Request{}).
		Where("id = ? AND status = ?", id, ch.From).
		Updates(map[string]any{
			"status":      ch.To,
			"accepted":    accepted,
			"accepted_by": ch.AcceptedBy,
			"accepted_at": ch.AcceptedAt,
			"updated_at":  time.Now().UTC(),
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}
