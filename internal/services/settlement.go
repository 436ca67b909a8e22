package services

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/tbourn/go-tutor-backend/internal/domain"
	"github.com/tbourn/go-tutor-backend/internal/repo"
)

// settlement describes a committed (or attempted) confirmation.
type settlement struct {
	Amount     int64
	CreatorID  string
	AccepterID string
}

// settle completes chat c and request r inside tx, moving r.Skillpoints from
// the chat's creator to its accepter. Steps run in a fixed order:
//
//  1. chat active -> completed
//  2. for a paid request: parties present and distinct, credit the accepter,
//     then debit the creator guarded by balance >= amount
//  3. request accepted -> completed
//
// tx must be a transaction handle. Any returned error means the caller has
// to roll back; the credit in step 2 is only safe because of that.
func settle(ctx context.Context, tx *gorm.DB, c *domain.Chat, r *domain.Request) (settlement, error) {
	st := settlement{Amount: r.Skillpoints, AccepterID: c.AccepterID}
	if c.CreatorID != nil {
		st.CreatorID = *c.CreatorID
	}

	chatTo, ok := domain.NextChatStatus(c.Status, domain.ChatConfirm)
	if !ok {
		return st, ErrInvalidStatus
	}
	applied, err := repo.TransitionChat(ctx, tx, c.ID, c.Status, chatTo)
	if err != nil {
		return st, err
	}
	if !applied {
		return st, ErrInvalidStatus
	}
	c.Status = chatTo

	if st.Amount > 0 {
		if err := transfer(ctx, tx, st); err != nil {
			return st, err
		}
	}

	reqTo, ok := domain.NextRequestStatus(r.Status, domain.TransitionComplete)
	if !ok {
		return st, ErrInvalidStatus
	}
	applied, err = repo.TransitionRequest(ctx, tx, r.ID, repo.RequestChange{
		From:       r.Status,
		To:         reqTo,
		AcceptedBy: r.AcceptedBy,
		AcceptedAt: r.AcceptedAt,
	})
	if err != nil {
		return st, err
	}
	if !applied {
		return st, ErrInvalidStatus
	}
	r.Status, r.Accepted = reqTo, true
	return st, nil
}

// transfer credits the accepter and then applies the guarded debit on the
// creator.
func transfer(ctx context.Context, tx *gorm.DB, st settlement) error {
	if st.CreatorID == "" || st.AccepterID == "" {
		return ErrMissingParties
	}
	if st.CreatorID == st.AccepterID {
		return ErrSameUser
	}
	if err := repo.CreditSkillpoints(ctx, tx, st.AccepterID, st.Amount); err != nil {
		return notFound(err, ErrUserNotFound)
	}
	debited, err := repo.DebitSkillpoints(ctx, tx, st.CreatorID, st.Amount)
	if err != nil {
		return err
	}
	if debited {
		return nil
	}
	if _, err := repo.GetUser(ctx, tx, st.CreatorID); err != nil {
		return notFound(err, ErrUserNotFound)
	}
	return ErrCreatorInsufficientFunds
}

// settlementOutcome labels a Confirm result for the settlements counter.
func settlementOutcome(st settlement, err error) string {
	switch {
	case err == nil && st.Amount == 0:
		return "zero"
	case err == nil:
		return "ok"
	case errors.Is(err, ErrMissingParties):
		return "missing_parties"
	case errors.Is(err, ErrSameUser):
		return "same_user"
	case errors.Is(err, ErrCreatorInsufficientFunds):
		return "insufficient_funds"
	case errors.Is(err, ErrChatNotFound), errors.Is(err, ErrInvalidStatus):
		return "rejected"
	default:
		return "error"
	}
}
