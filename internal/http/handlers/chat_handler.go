// Chat HTTP handlers.
//
//   - GET  /chats                  (caller's chats)
//   - GET  /chats/{id}             (chat, request, and messages)
//   - GET  /chats/{id}/messages    (paginated, ETag support)
//   - POST /chats/{id}/messages    (post, Idempotency-Key support)
//   - POST /chats/{id}/cancel      (accepter backs out, request reopens)
//   - POST /chats/{id}/confirm     (complete and settle skillpoints)
package handlers

import (
	"context"
	"fmt"
	"net/http"
	"regexp"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/tbourn/go-tutor-backend/internal/domain"
	"github.com/tbourn/go-tutor-backend/internal/repo"
)

// PostMessageRequest is the JSON payload for a chat message. SenderID
// defaults to the caller identity.
type PostMessageRequest struct {
	SenderID string `json:"sender_id" example:"0b0d2c8e-2f4e-4c0a-9a55-7d1f7c0f1f11"`
	Text     string `json:"text"      binding:"required" example:"When are you free?"`
}

// ListChatsResponse wraps the caller's chats.
type ListChatsResponse struct {
	Chats []domain.Chat `json:"chats"`
}

// ListMessagesResponse wraps a page of chat messages.
type ListMessagesResponse struct {
	Messages   []domain.ChatMessage `json:"messages"`
	Pagination Pagination           `json:"pagination"`
}

// nlCollapseRE collapses runs of 3+ newlines to two, preserving paragraphs.
var nlCollapseRE = regexp.MustCompile(`\n{3,}`)

// sanitizeText normalizes line endings and trims surrounding whitespace.
func sanitizeText(raw string) string {
	s := strings.ReplaceAll(raw, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	s = nlCollapseRE.ReplaceAllString(s, "\n\n")
	return strings.TrimSpace(s)
}

// ListChats godoc
// @ID          listChats
// @Summary     List the caller's chats
// @Description Returns chats where the user is creator or accepter, newest first.
// @Tags        Chats
// @Produce     json
// @Param       X-User-ID  header  string  false "Caller identity"
// @Param       user_id    query   string  false "User whose chats to list (defaults to the caller)"
// @Success     200  {object}  handlers.ListChatsResponse
// @Failure     400  {object}  handlers.ErrorResponse "No user given"
// @Router      /chats [get]
func (h *Handlers) ListChats(c *gin.Context) {
	items, err := h.chats.ListForUser(c.Request.Context(), actor(c, c.Query("user_id")))
	if err != nil {
		writeServiceError(c, err)
		return
	}
	ok(c, http.StatusOK, ListChatsResponse{Chats: items})
}

// GetChat godoc
// @ID          getChat
// @Summary     Get a chat
// @Description Returns the chat with its request and full message history.
// @Tags        Chats
// @Produce     json
// @Param       id   path      string  true  "Chat ID (UUID)"  format(uuid)
// @Success     200  {object}  services.ChatDetail
// @Failure     400  {object}  handlers.ErrorResponse "Bad request"
// @Failure     404  {object}  handlers.ErrorResponse "Chat not found"
// @Router      /chats/{id} [get]
func (h *Handlers) GetChat(c *gin.Context) {
	id, valid := pathUUID(c, "chat")
	if !valid {
		return
	}
	d, err := h.chats.Get(c.Request.Context(), id)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	ok(c, http.StatusOK, d)
}

// ListMessages godoc
// @ID          listMessages
// @Summary     List messages in a chat
// @Description Returns messages oldest first. Supports weak ETag via If-None-Match and may return 304.
// @Tags        Chats
// @Produce     json
// @Param       id             path    string  true  "Chat ID (UUID)"  format(uuid)
// @Param       If-None-Match  header  string  false "Return 304 if ETag matches"
// @Param       page           query   int     false "Page number"     minimum(1) default(1)
// @Param       page_size      query   int     false "Items per page"  minimum(1) maximum(100) default(20)
// @Success     200  {object} handlers.ListMessagesResponse
// @Header      200  {string} ETag "Weak ETag for current result"
// @Success     304  {string} string "Not Modified"
// @Failure     404  {object} handlers.ErrorResponse "Chat not found"
// @Router      /chats/{id}/messages [get]
func (h *Handlers) ListMessages(c *gin.Context) {
	ctx := c.Request.Context()
	id, valid := pathUUID(c, "chat")
	if !valid {
		return
	}
	page, pageSize := clampPagination(c)

	if db := h.store(); db != nil {
		if count, maxTS, err := repo.ChatMessagesStats(ctx, db, id); err == nil && count > 0 {
			etag := weakETag(fmt.Sprintf("messages:%s:%d:%d", id, page, pageSize), count, maxTS)
			if notModified(c, etag) {
				return
			}
		}
	}

	items, total, err := h.chats.ListMessagesPage(ctx, id, page, pageSize)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	if items == nil {
		items = []domain.ChatMessage{}
	}
	ok(c, http.StatusOK, ListMessagesResponse{Messages: items, Pagination: newPagination(page, pageSize, total)})
}

// PostMessage godoc
// @ID          postMessage
// @Summary     Post a chat message
// @Description Appends a message to the chat. Supports idempotency via the Idempotency-Key header.
// @Tags        Chats
// @Accept      json
// @Produce     json
// @Param       X-User-ID        header  string  false "Caller identity"
// @Param       Idempotency-Key  header  string  false "Idempotency key for safe retries"
// @Param       id               path    string  true  "Chat ID (UUID)"  format(uuid)
// @Param       body             body    handlers.PostMessageRequest  true  "Message payload"
// @Success     201  {object}  domain.ChatMessage
// @Failure     400  {object}  handlers.ErrorResponse "Bad request"
// @Failure     403  {object}  handlers.ErrorResponse "Not a participant"
// @Failure     404  {object}  handlers.ErrorResponse "Chat not found"
// @Router      /chats/{id}/messages [post]
func (h *Handlers) PostMessage(c *gin.Context) {
	id, valid := pathUUID(c, "chat")
	if !valid {
		return
	}
	var req PostMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "text required")
		return
	}

	if h.replay(c, func(ctx context.Context, db *gorm.DB, msgID string) (any, error) {
		return repo.GetChatMessage(ctx, db, msgID)
	}) {
		return
	}

	m, err := h.chats.PostMessage(c.Request.Context(), id, actor(c, req.SenderID), sanitizeText(req.Text))
	if err != nil {
		writeServiceError(c, err)
		return
	}
	h.remember(c, m.ID, http.StatusCreated)
	ok(c, http.StatusCreated, m)
}

// CancelChat godoc
// @ID          cancelChat
// @Summary     Cancel a chat
// @Description Cancels an active chat and returns its request to the open pool.
// @Tags        Chats
// @Produce     json
// @Param       id   path      string  true  "Chat ID (UUID)"  format(uuid)
// @Success     200  {object}  domain.Chat
// @Failure     404  {object}  handlers.ErrorResponse "Chat not found"
// @Failure     409  {object}  handlers.ErrorResponse "Chat not active"
// @Router      /chats/{id}/cancel [post]
func (h *Handlers) CancelChat(c *gin.Context) {
	id, valid := pathUUID(c, "chat")
	if !valid {
		return
	}
	chat, err := h.chats.Cancel(c.Request.Context(), id)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	ok(c, http.StatusOK, chat)
}

// ConfirmChat godoc
// @ID          confirmChat
// @Summary     Confirm a chat
// @Description Completes the chat and its request and moves the stake from creator to accepter, all or nothing.
// @Tags        Chats
// @Produce     json
// @Param       id   path      string  true  "Chat ID (UUID)"  format(uuid)
// @Success     200  {object}  domain.Chat
// @Failure     404  {object}  handlers.ErrorResponse "Chat not found"
// @Failure     409  {object}  handlers.ErrorResponse "Chat not active or settlement rejected"
// @Router      /chats/{id}/confirm [post]
func (h *Handlers) ConfirmChat(c *gin.Context) {
	id, valid := pathUUID(c, "chat")
	if !valid {
		return
	}
	chat, err := h.chats.Confirm(c.Request.Context(), id)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	ok(c, http.StatusOK, chat)
}
