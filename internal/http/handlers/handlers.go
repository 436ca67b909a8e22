// Package handlers wires HTTP endpoints onto the user, request, and chat
// services.
//
// Handlers are transport-thin: they bind input, resolve the caller, call a
// service, and translate the result (including conditional and replayed
// responses) into HTTP.
package handlers

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/tbourn/go-tutor-backend/internal/domain"
	"github.com/tbourn/go-tutor-backend/internal/http/middleware"
	"github.com/tbourn/go-tutor-backend/internal/repo"
	"github.com/tbourn/go-tutor-backend/internal/services"
	"github.com/tbourn/go-tutor-backend/internal/utils"
)

//
// Service contracts (context-aware)
//

// UserService defines account operations consumed by HTTP handlers.
type UserService interface {
	Register(ctx context.Context, in services.RegisterInput) (*domain.User, error)
	Login(ctx context.Context, email, password string) (*domain.User, error)
	Get(ctx context.Context, id string) (*domain.User, error)
	UpdateProfile(ctx context.Context, id string, p repo.ProfileUpdate) (*domain.User, error)
	Balance(ctx context.Context, id string) (services.Balance, error)
}

// RequestService defines the request lifecycle consumed by HTTP handlers.
//
// Implementations must be safe for concurrent use and honor ctx.
type RequestService interface {
	Create(ctx context.Context, in services.CreateRequestInput) (*domain.Request, error)
	Get(ctx context.Context, id string) (*domain.Request, error)
	ListOpenPage(ctx context.Context, page, pageSize int) ([]domain.Request, int64, error)
	Accept(ctx context.Context, requestID, userID string) (*domain.Request, *domain.Chat, error)
	CreatorCancel(ctx context.Context, requestID, userID string) (*domain.Request, error)
}

// ChatService defines chat session operations consumed by HTTP handlers.
//
// Implementations must be safe for concurrent use and honor ctx.
type ChatService interface {
	Get(ctx context.Context, chatID string) (*services.ChatDetail, error)
	ListForUser(ctx context.Context, userID string) ([]domain.Chat, error)
	ListMessagesPage(ctx context.Context, chatID string, page, pageSize int) ([]domain.ChatMessage, int64, error)
	PostMessage(ctx context.Context, chatID, senderID, text string) (*domain.ChatMessage, error)
	Cancel(ctx context.Context, chatID string) (*domain.Chat, error)
	Confirm(ctx context.Context, chatID string) (*domain.Chat, error)
}

//
// Handler wiring
//

// Handlers groups the HTTP endpoints. It depends on service interfaces so
// tests can substitute fakes.
type Handlers struct {
	users    UserService
	requests RequestService
	chats    ChatService

	// IdempotencyTTL bounds how long a stored POST result can be replayed.
	IdempotencyTTL time.Duration
}

// New constructs a Handlers instance bound to the given services.
func New(users UserService, requests RequestService, chats ChatService) *Handlers {
	return &Handlers{
		users:          users,
		requests:       requests,
		chats:          chats,
		IdempotencyTTL: 24 * time.Hour,
	}
}

// store returns the database behind the concrete services, or nil when the
// handlers run over fakes. ETags and idempotency replays are skipped
// without it.
func (h *Handlers) store() *gorm.DB {
	if s, ok := h.requests.(*services.RequestService); ok && s.DB != nil {
		return s.DB
	}
	if s, ok := h.chats.(*services.ChatService); ok && s.DB != nil {
		return s.DB
	}
	return nil
}

// userID returns the caller identity set by middleware.Identity, falling
// back to the X-User-ID header. It returns "" when neither is present.
func userID(c *gin.Context) string {
	if v, ok := c.Get(middleware.CtxKeyUserID); ok {
		if s, ok := v.(string); ok && s != "" {
			return s
		}
	}
	if c.Request != nil {
		return strings.TrimSpace(c.GetHeader(middleware.HeaderUserID))
	}
	return ""
}

// actor prefers an explicit id from the payload over the request identity.
func actor(c *gin.Context, explicit string) string {
	if s := strings.TrimSpace(explicit); s != "" {
		return s
	}
	return userID(c)
}

//
// Pagination
//

// Pagination carries pagination metadata for list responses.
type Pagination struct {
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
	HasNext    bool  `json:"has_next"`
}

func newPagination(page, pageSize int, total int64) Pagination {
	totalPages := int((total + int64(pageSize) - 1) / int64(pageSize))
	return Pagination{
		Page:       page,
		PageSize:   pageSize,
		Total:      total,
		TotalPages: totalPages,
		HasNext:    page < totalPages,
	}
}

// clampPagination parses page and page_size and bounds them.
func clampPagination(c *gin.Context) (page, pageSize int) {
	return utils.ClampPage(
		utils.AtoiDefault(c.Query("page"), utils.DefaultPage),
		utils.AtoiDefault(c.Query("page_size"), utils.DefaultPageSize),
	)
}

// weakETag derives a validator from a collection's size and newest timestamp.
func weakETag(prefix string, count int64, ts *time.Time) string {
	var n int64
	if ts != nil {
		n = ts.UnixNano()
	}
	return fmt.Sprintf(`W/"%s:%d:%d"`, prefix, count, n)
}

// notModified sets the ETag header and answers 304 when If-None-Match matches.
func notModified(c *gin.Context, etag string) bool {
	c.Header("ETag", etag)
	if inm := c.GetHeader("If-None-Match"); inm != "" && inm == etag {
		c.Status(http.StatusNotModified)
		return true
	}
	return false
}

//
// Idempotency
//

// replay serves the stored result for this request's Idempotency-Key, if
// any. load fetches the resource recorded by remember.
func (h *Handlers) replay(c *gin.Context, load func(ctx context.Context, db *gorm.DB, id string) (any, error)) bool {
	key, has := middleware.GetIdempotencyKey(c)
	db := h.store()
	if !has || db == nil {
		return false
	}
	ctx := c.Request.Context()
	rec, err := repo.GetIdempotency(ctx, db, middleware.IdempotencyActor(c), middleware.IdempotencyScope(c), key, time.Now().UTC())
	if err != nil {
		return false
	}
	v, err := load(ctx, db, rec.ResourceID)
	if err != nil {
		return false
	}
	c.Header(middleware.HeaderIdempotencyReplayed, "true")
	ok(c, rec.Status, v)
	return true
}

// remember stores the produced resource under the request's
// Idempotency-Key. Failures are logged and otherwise ignored.
func (h *Handlers) remember(c *gin.Context, resourceID string, status int) {
	key, has := middleware.GetIdempotencyKey(c)
	db := h.store()
	if !has || db == nil {
		return
	}
	_, err := repo.CreateIdempotency(c.Request.Context(), db,
		middleware.IdempotencyActor(c), middleware.IdempotencyScope(c), key, resourceID, status, h.IdempotencyTTL)
	if err != nil {
		middleware.LoggerFrom(c).Warn().Err(err).Str("resource_id", resourceID).Msg("idempotency record not stored")
	}
}
