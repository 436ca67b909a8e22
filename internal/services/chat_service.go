// Package services – ChatService
//
// This file implements the chat session manager. A chat is created by
// RequestService.Accept and then leaves the active state exactly once:
//
//   - Cancel (the accepter backing out) reverts its request to open so that
//     somebody else can pick it up.
//   - Confirm runs the skillpoints settlement and completes both the chat and
//     the request in one transaction.
//
// Messages are append-only. Posting is not gated on chat status; participant
// checks are opt-in through RequireParticipant.
//
// Service-level errors (e.g., ErrChatNotFound) are returned for predictable
// cases so handlers can map them to HTTP results consistently.
package services

import (
	"context"
	"errors"
	"strings"
	"unicode/utf8"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/tbourn/go-tutor-backend/internal/domain"
	"github.com/tbourn/go-tutor-backend/internal/repo"
)

// ChatDetail is a chat together with its request and full message history.
type ChatDetail struct {
	Chat     domain.Chat          `json:"chat"`
	Request  *domain.Request      `json:"request"`
	Messages []domain.ChatMessage `json:"messages"`
}

// ChatService provides chat-level operations.
type ChatService struct {
	// DB is the GORM handle used for persistence.
	DB *gorm.DB

	// RequireParticipant rejects messages whose sender is neither the
	// chat's creator nor its accepter.
	RequireParticipant bool
	// MaxMessageRunes caps message length; 0 disables the check.
	MaxMessageRunes int
}

// NewChatService constructs a ChatService with default limits.
func NewChatService(db *gorm.DB) *ChatService {
	return &ChatService{
		DB:              db,
		MaxMessageRunes: 4000,
	}
}

// Get returns the chat, its request, and its messages oldest first.
func (s *ChatService) Get(ctx context.Context, chatID string) (*ChatDetail, error) {
	ctx, span := otel.Tracer("services/ChatService").Start(ctx, "Get",
		trace.WithAttributes(attribute.String("chat.id", chatID)),
	)
	defer span.End()

	c, err := repo.GetChat(ctx, s.DB, chatID)
	if err != nil {
		return nil, notFound(err, ErrChatNotFound)
	}
	out := &ChatDetail{Chat: *c}
	r, err := repo.GetRequest(ctx, s.DB, c.RequestID)
	switch {
	case err == nil:
		out.Request = r
	case !errors.Is(err, repo.ErrNotFound):
		return nil, err
	}
	if out.Messages, err = repo.ListChatMessages(ctx, s.DB, c.ID); err != nil {
		return nil, err
	}
	return out, nil
}

// ListForUser returns the chats userID takes part in, newest first.
func (s *ChatService) ListForUser(ctx context.Context, userID string) ([]domain.Chat, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, ErrInvalidInput
	}
	out, err := repo.ListChatsForUser(ctx, s.DB, userID)
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = []domain.Chat{}
	}
	return out, nil
}

// ListMessagesPage returns paginated messages for a chat.
func (s *ChatService) ListMessagesPage(ctx context.Context, chatID string, page, pageSize int) ([]domain.ChatMessage, int64, error) {
	ctx, span := otel.Tracer("services/ChatService").Start(ctx, "ListMessagesPage",
		trace.WithAttributes(
			attribute.String("chat.id", chatID),
			attribute.Int("page", page),
			attribute.Int("page_size", pageSize),
		),
	)
	defer span.End()

	_, pageSize, offset := pageWindow(page, pageSize)

	if _, err := repo.GetChat(ctx, s.DB, chatID); err != nil {
		return nil, 0, notFound(err, ErrChatNotFound)
	}
	total, err := repo.CountChatMessages(ctx, s.DB, chatID)
	if err != nil {
		return nil, 0, err
	}
	if total == 0 {
		return []domain.ChatMessage{}, 0, nil
	}
	items, err := repo.ListChatMessagesPage(ctx, s.DB, chatID, offset, pageSize)
	return items, total, err
}

// PostMessage appends a message to an existing chat. Sender and text are
// required. The chat's status is not consulted.
func (s *ChatService) PostMessage(ctx context.Context, chatID, senderID, text string) (_ *domain.ChatMessage, err error) {
	ctx, span := otel.Tracer("services/ChatService").Start(ctx, "PostMessage",
		trace.WithAttributes(
			attribute.String("chat.id", chatID),
			attribute.String("user.id", senderID),
		),
	)
	defer func() { endSpan(span, err) }()

	senderID = strings.TrimSpace(senderID)
	text = strings.TrimSpace(text)
	if senderID == "" || text == "" {
		return nil, ErrInvalidInput
	}
	if s.MaxMessageRunes > 0 && utf8.RuneCountInString(text) > s.MaxMessageRunes {
		return nil, ErrInvalidInput
	}

	c, err := repo.GetChat(ctx, s.DB, chatID)
	if err != nil {
		return nil, notFound(err, ErrChatNotFound)
	}
	if s.RequireParticipant && !isParticipant(c, senderID) {
		return nil, ErrNotParticipant
	}
	return repo.CreateChatMessage(ctx, s.DB, c.ID, senderID, text)
}

// Cancel closes an active chat and reverts its request to open with the
// acceptance cleared. A request that is no longer accepted is left alone.
func (s *ChatService) Cancel(ctx context.Context, chatID string) (_ *domain.Chat, err error) {
	ctx, span := otel.Tracer("services/ChatService").Start(ctx, "Cancel",
		trace.WithAttributes(attribute.String("chat.id", chatID)),
	)
	defer func() { endSpan(span, err) }()

	var out *domain.Chat
	reverted := false
	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		c, err := repo.GetChat(ctx, tx, chatID)
		if err != nil {
			return notFound(err, ErrChatNotFound)
		}
		to, ok := domain.NextChatStatus(c.Status, domain.ChatCancel)
		if !ok {
			return ErrInvalidStatus
		}
		applied, err := repo.TransitionChat(ctx, tx, c.ID, c.Status, to)
		if err != nil {
			return err
		}
		if !applied {
			return ErrInvalidStatus
		}
		c.Status = to

		reqTo, _ := domain.NextRequestStatus(domain.RequestAccepted, domain.TransitionAccepterCancel)
		reverted, err = repo.TransitionRequest(ctx, tx, c.RequestID, repo.RequestChange{
			From: domain.RequestAccepted,
			To:   reqTo,
		})
		if err != nil {
			return err
		}
		out = c
		return nil
	})
	if err != nil {
		return nil, err
	}

	if reverted {
		requestTransitions.WithLabelValues(string(domain.TransitionAccepterCancel)).Inc()
	} else {
		log.Ctx(ctx).Warn().
			Str("chat_id", out.ID).
			Str("request_id", out.RequestID).
			Msg("chat cancelled but request was not accepted; request left unchanged")
	}
	return out, nil
}

// Confirm completes an active chat and settles its request. Settlement
// failures roll back every write made by the call.
func (s *ChatService) Confirm(ctx context.Context, chatID string) (_ *domain.Chat, err error) {
	ctx, span := otel.Tracer("services/ChatService").Start(ctx, "Confirm",
		trace.WithAttributes(attribute.String("chat.id", chatID)),
	)
	defer func() { endSpan(span, err) }()

	var (
		out *domain.Chat
		st  settlement
	)
	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		c, err := repo.GetChat(ctx, tx, chatID)
		if err != nil {
			return notFound(err, ErrChatNotFound)
		}
		if _, ok := domain.NextChatStatus(c.Status, domain.ChatConfirm); !ok {
			return ErrInvalidStatus
		}
		r, err := repo.GetRequest(ctx, tx, c.RequestID)
		if err != nil {
			return notFound(err, ErrRequestNotFound)
		}
		st, err = settle(ctx, tx, c, r)
		if err != nil {
			return err
		}
		out = c
		return nil
	})
	settlements.WithLabelValues(settlementOutcome(st, err)).Inc()
	if err != nil {
		return nil, err
	}

	requestTransitions.WithLabelValues(string(domain.TransitionComplete)).Inc()
	if st.Amount > 0 {
		skillpointsTransferred.Add(float64(st.Amount))
	}
	log.Ctx(ctx).Info().
		Str("chat_id", out.ID).
		Str("request_id", out.RequestID).
		Int64("skillpoints", st.Amount).
		Msg("chat confirmed")
	span.SetAttributes(attribute.Int64("settlement.amount", st.Amount))
	return out, nil
}

func isParticipant(c *domain.Chat, userID string) bool {
	return c.AccepterID == userID || (c.CreatorID != nil && *c.CreatorID == userID)
}
