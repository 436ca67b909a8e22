// Package services – RequestService
//
// This file implements the request lifecycle engine: creation guarded by the
// creator's available balance, acceptance (which spawns the request's chat),
// and creator cancellation. Every transition is a status compare-and-set
// executed inside a database transaction, so a lost race surfaces the same
// error the loser would have seen had the calls run one after the other.
//
// Available balance is never stored; it is recomputed from the creator's
// open and accepted requests whenever it is needed.
//
// Observability: all public methods are OpenTelemetry-instrumented.
package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/text/language"
	"gorm.io/gorm"

	"github.com/tbourn/go-tutor-backend/internal/domain"
	"github.com/tbourn/go-tutor-backend/internal/repo"
)

// CreateRequestInput holds the caller-supplied fields of a new request.
// CreatorID is optional; without it no balance check is made.
type CreateRequestInput struct {
	CreatorID   string
	CreatorName string
	Title       string
	Subject     string
	Text        string
	ClassFrom   string
	ClassTo     string
	Type        domain.RequestType
	Skillpoints int64
}

// Balance is a user's stored skillpoints split into the part reserved by
// their open/accepted requests and the part still available.
type Balance struct {
	UserID    string `json:"user_id"`
	Balance   int64  `json:"balance"`
	Reserved  int64  `json:"reserved"`
	Available int64  `json:"available"`
}

// RequestService owns the request state machine.
type RequestService struct {
	// DB is the GORM handle used for persistence.
	DB *gorm.DB

	// TitleMaxLen caps stored titles by rune length.
	TitleMaxLen int
	// SubjectLocale drives subject capitalization.
	SubjectLocale language.Tag

	// Now is the clock used for acceptedAt; defaults to time.Now in UTC.
	Now func() time.Time
}

// NewRequestService constructs a RequestService with default limits.
func NewRequestService(db *gorm.DB) *RequestService {
	return &RequestService{
		DB:            db,
		TitleMaxLen:   255,
		SubjectLocale: language.Russian,
	}
}

func (s *RequestService) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

// Create validates the input, checks the creator's available balance, and
// inserts an open request. The balance check and the insert share one
// transaction.
func (s *RequestService) Create(ctx context.Context, in CreateRequestInput) (_ *domain.Request, err error) {
	ctx, span := otel.Tracer("services/RequestService").Start(ctx, "Create",
		trace.WithAttributes(
			attribute.String("user.id", in.CreatorID),
			attribute.Int64("request.skillpoints", in.Skillpoints),
		),
	)
	defer func() { endSpan(span, err) }()

	title := clip(normalizeText(in.Title), s.TitleMaxLen)
	subject := subjectCase(s.SubjectLocale, in.Subject)
	if title == "" || subject == "" {
		return nil, ErrInvalidInput
	}
	typ := in.Type
	if typ == "" {
		typ = domain.RequestAsk
	}
	if !typ.Valid() {
		return nil, ErrInvalidInput
	}
	if in.Skillpoints < 0 {
		return nil, ErrInvalidSkillpoints
	}

	r := &domain.Request{
		Title:       title,
		Subject:     subject,
		Text:        strings.TrimSpace(in.Text),
		ClassFrom:   strings.TrimSpace(in.ClassFrom),
		ClassTo:     strings.TrimSpace(in.ClassTo),
		Type:        typ,
		Skillpoints: in.Skillpoints,
		Status:      domain.RequestOpen,
	}
	creatorName := normalizeText(in.CreatorName)

	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if creatorID := strings.TrimSpace(in.CreatorID); creatorID != "" {
			u, err := repo.GetUser(ctx, tx, creatorID)
			if err != nil {
				return notFound(err, ErrUserNotFound)
			}
			bal, err := balanceOf(ctx, tx, u)
			if err != nil {
				return err
			}
			if bal.Available < in.Skillpoints {
				return &InsufficientBalanceError{
					Balance:   bal.Balance,
					Reserved:  bal.Reserved,
					Available: bal.Available,
					Requested: in.Skillpoints,
				}
			}
			r.CreatorID = &creatorID
			if creatorName == "" {
				creatorName = u.Name
			}
		}
		if creatorName != "" {
			r.CreatorName = &creatorName
		}
		return repo.CreateRequest(ctx, tx, r)
	})
	if err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.String("request.id", r.ID))
	return r, nil
}

// Get returns a request by id.
func (s *RequestService) Get(ctx context.Context, id string) (*domain.Request, error) {
	r, err := repo.GetRequest(ctx, s.DB, id)
	if err != nil {
		return nil, notFound(err, ErrRequestNotFound)
	}
	return r, nil
}

// ListOpenPage returns open requests newest first with the total count.
func (s *RequestService) ListOpenPage(ctx context.Context, page, pageSize int) ([]domain.Request, int64, error) {
	ctx, span := otel.Tracer("services/RequestService").Start(ctx, "ListOpenPage",
		trace.WithAttributes(
			attribute.Int("page", page),
			attribute.Int("page_size", pageSize),
		),
	)
	defer span.End()

	_, pageSize, offset := pageWindow(page, pageSize)

	total, err := repo.CountOpenRequests(ctx, s.DB)
	if err != nil {
		return nil, 0, err
	}
	if total == 0 {
		return []domain.Request{}, 0, nil
	}
	items, err := repo.ListOpenRequestsPage(ctx, s.DB, offset, pageSize)
	return items, total, err
}

// Accept moves an open request to accepted on behalf of userID and creates
// its chat. It fails with ErrRequestNotFound, ErrAlreadyAccepted (request not
// open) or ErrSelfAccept, in that order, before anything is written.
func (s *RequestService) Accept(ctx context.Context, requestID, userID string) (_ *domain.Request, _ *domain.Chat, err error) {
	ctx, span := otel.Tracer("services/RequestService").Start(ctx, "Accept",
		trace.WithAttributes(
			attribute.String("request.id", requestID),
			attribute.String("user.id", userID),
		),
	)
	defer func() { endSpan(span, err) }()

	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, nil, ErrInvalidInput
	}

	var (
		req  *domain.Request
		chat *domain.Chat
	)
	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		r, err := repo.GetRequest(ctx, tx, requestID)
		if err != nil {
			return notFound(err, ErrRequestNotFound)
		}
		to, ok := domain.NextRequestStatus(r.Status, domain.TransitionAccept)
		if !ok {
			return ErrAlreadyAccepted
		}
		if r.CreatorID != nil && *r.CreatorID == userID {
			return ErrSelfAccept
		}

		now := s.now()
		applied, err := repo.TransitionRequest(ctx, tx, r.ID, repo.RequestChange{
			From:       r.Status,
			To:         to,
			AcceptedBy: &userID,
			AcceptedAt: &now,
		})
		if err != nil {
			return err
		}
		if !applied {
			return ErrAlreadyAccepted
		}

		c, err := repo.CreateChat(ctx, tx, r.ID, r.CreatorID, userID)
		if err != nil {
			return err
		}

		r.Status, r.Accepted, r.AcceptedBy, r.AcceptedAt = to, true, &userID, &now
		req, chat = r, c
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	requestTransitions.WithLabelValues(string(domain.TransitionAccept)).Inc()
	span.SetAttributes(attribute.String("chat.id", chat.ID))
	return req, chat, nil
}

// CreatorCancel terminally cancels a request on behalf of its creator. From
// accepted, the request's active chat is cancelled first. Acceptance fields
// are cleared, which releases the reserved skillpoints.
func (s *RequestService) CreatorCancel(ctx context.Context, requestID, userID string) (_ *domain.Request, err error) {
	ctx, span := otel.Tracer("services/RequestService").Start(ctx, "CreatorCancel",
		trace.WithAttributes(
			attribute.String("request.id", requestID),
			attribute.String("user.id", userID),
		),
	)
	defer func() { endSpan(span, err) }()

	userID = strings.TrimSpace(userID)

	var req *domain.Request
	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		r, err := repo.GetRequest(ctx, tx, requestID)
		if err != nil {
			return notFound(err, ErrRequestNotFound)
		}
		if r.CreatorID == nil || *r.CreatorID != userID {
			return ErrForbidden
		}
		to, ok := domain.NextRequestStatus(r.Status, domain.TransitionCreatorCancel)
		if !ok {
			return ErrInvalidStatus
		}

		if r.Status == domain.RequestAccepted {
			if err := cancelActiveChat(ctx, tx, r.ID); err != nil {
				return err
			}
		}

		applied, err := repo.TransitionRequest(ctx, tx, r.ID, repo.RequestChange{From: r.Status, To: to})
		if err != nil {
			return err
		}
		if !applied {
			return ErrInvalidStatus
		}
		r.Status, r.Accepted, r.AcceptedBy, r.AcceptedAt = to, false, nil, nil
		req = r
		return nil
	})
	if err != nil {
		return nil, err
	}
	requestTransitions.WithLabelValues(string(domain.TransitionCreatorCancel)).Inc()
	return req, nil
}

// cancelActiveChat closes the request's active chat, if any. A missing chat
// is tolerated: the request is cancelled regardless.
func cancelActiveChat(ctx context.Context, tx *gorm.DB, requestID string) error {
	c, err := repo.GetActiveChatForRequest(ctx, tx, requestID)
	if errors.Is(err, repo.ErrNotFound) {
		log.Ctx(ctx).Warn().Str("request_id", requestID).Msg("accepted request has no active chat")
		return nil
	}
	if err != nil {
		return err
	}
	to, _ := domain.NextChatStatus(c.Status, domain.ChatCancel)
	applied, err := repo.TransitionChat(ctx, tx, c.ID, c.Status, to)
	if err != nil {
		return err
	}
	if !applied {
		return ErrInvalidStatus
	}
	return nil
}

// balanceOf derives u's available balance from the live request rows.
func balanceOf(ctx context.Context, db *gorm.DB, u *domain.User) (Balance, error) {
	reserved, err := repo.SumReservedSkillpoints(ctx, db, u.ID, domain.ReservingStatuses)
	if err != nil {
		return Balance{}, err
	}
	return Balance{
		UserID:    u.ID,
		Balance:   u.Skillpoints,
		Reserved:  reserved,
		Available: u.Skillpoints - reserved,
	}, nil
}

// endSpan records err on span (if any) and ends it.
func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
