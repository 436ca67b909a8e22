// Request HTTP handlers.
//
//   - GET  /requests              (open requests, paginated, ETag support)
//   - POST /requests              (create, Idempotency-Key support)
//   - GET  /requests/{id}         (get)
//   - POST /requests/{id}/accept  (accept, opens a chat)
//   - POST /requests/{id}/cancel  (creator cancel)
package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/tbourn/go-tutor-backend/internal/domain"
	"github.com/tbourn/go-tutor-backend/internal/repo"
	"github.com/tbourn/go-tutor-backend/internal/services"
)

// CreateRequestRequest is the JSON payload for a new request. CreatorID
// defaults to the caller identity.
type CreateRequestRequest struct {
	CreatorID   string             `json:"creator_id"   example:"0b0d2c8e-2f4e-4c0a-9a55-7d1f7c0f1f11"`
	CreatorName string             `json:"creator_name" example:"Ivanov Ivan"`
	Title       string             `json:"title"        example:"Quadratic equations"`
	Subject     string             `json:"subject"      example:"Algebra"`
	Text        string             `json:"text"`
	ClassFrom   string             `json:"class_from"   example:"8"`
	ClassTo     string             `json:"class_to"     example:"9"`
	Type        domain.RequestType `json:"type"         example:"ask" enums:"ask,offer"`
	Skillpoints json.Number        `json:"skillpoints"  swaggertype:"integer" example:"5"`
}

// ActorRequest names the user performing a transition. UserID defaults to
// the caller identity.
type ActorRequest struct {
	UserID string `json:"user_id" example:"0b0d2c8e-2f4e-4c0a-9a55-7d1f7c0f1f11"`
}

// AcceptResponse is the accepted request together with the chat it opened.
type AcceptResponse struct {
	Request *domain.Request `json:"request"`
	Chat    *domain.Chat    `json:"chat"`
}

// ListRequestsResponse wraps a page of open requests.
type ListRequestsResponse struct {
	Requests   []domain.Request `json:"requests"`
	Pagination Pagination       `json:"pagination"`
}

// skillpoints accepts an absent value as zero and rejects fractions.
func (r CreateRequestRequest) skillpoints() (int64, error) {
	if r.Skillpoints == "" {
		return 0, nil
	}
	return r.Skillpoints.Int64()
}

// bindActor reads an optional ActorRequest body. An empty body is allowed.
func bindActor(c *gin.Context) (string, bool) {
	var req ActorRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
			return "", false
		}
	}
	return actor(c, req.UserID), true
}

// ListRequests godoc
// @ID          listRequests
// @Summary     List open requests (paginated)
// @Description Returns open requests, newest first. Supports weak ETag via If-None-Match and may return 304.
// @Tags        Requests
// @Produce     json
// @Param       If-None-Match  header  string  false "Return 304 if ETag matches"
// @Param       page           query   int     false "Page number"     minimum(1) default(1)
// @Param       page_size      query   int     false "Items per page"  minimum(1) maximum(100) default(20)
// @Success     200  {object} handlers.ListRequestsResponse
// @Header      200  {string} ETag "Weak ETag for current result"
// @Success     304  {string} string "Not Modified"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /requests [get]
func (h *Handlers) ListRequests(c *gin.Context) {
	ctx := c.Request.Context()
	page, pageSize := clampPagination(c)

	if db := h.store(); db != nil {
		if count, maxTS, err := repo.OpenRequestsStats(ctx, db); err == nil {
			etag := weakETag(fmt.Sprintf("requests:%d:%d", page, pageSize), count, maxTS)
			if notModified(c, etag) {
				return
			}
		}
	}

	items, total, err := h.requests.ListOpenPage(ctx, page, pageSize)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	if items == nil {
		items = []domain.Request{}
	}
	ok(c, http.StatusOK, ListRequestsResponse{Requests: items, Pagination: newPagination(page, pageSize, total)})
}

// CreateRequest godoc
// @ID          createRequest
// @Summary     Create a request
// @Description Creates an open request. A non-zero stake must fit the creator's available skillpoints.
// @Description Supports idempotency via the Idempotency-Key header (same key → same request).
// @Tags        Requests
// @Accept      json
// @Produce     json
// @Param       X-User-ID        header  string  false "Caller identity"
// @Param       Idempotency-Key  header  string  false "Idempotency key for safe retries"
// @Param       body             body    handlers.CreateRequestRequest  true  "Request payload"
// @Success     201  {object}  domain.Request
// @Failure     400  {object}  handlers.ErrorResponse "Bad request"
// @Failure     404  {object}  handlers.ErrorResponse "Creator not found"
// @Failure     409  {object}  handlers.ErrorResponse "Insufficient balance"
// @Failure     500  {object}  handlers.ErrorResponse "Internal error"
// @Router      /requests [post]
func (h *Handlers) CreateRequest(c *gin.Context) {
	var req CreateRequestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}
	sp, err := req.skillpoints()
	if err != nil {
		fail(c, http.StatusBadRequest, ErrCodeInvalidSkillpoints, services.ErrInvalidSkillpoints.Error())
		return
	}

	if h.replay(c, func(ctx context.Context, db *gorm.DB, id string) (any, error) {
		return repo.GetRequest(ctx, db, id)
	}) {
		return
	}

	r, err := h.requests.Create(c.Request.Context(), services.CreateRequestInput{
		CreatorID:   actor(c, req.CreatorID),
		CreatorName: req.CreatorName,
		Title:       req.Title,
		Subject:     req.Subject,
		Text:        req.Text,
		ClassFrom:   req.ClassFrom,
		ClassTo:     req.ClassTo,
		Type:        req.Type,
		Skillpoints: sp,
	})
	if err != nil {
		writeServiceError(c, err)
		return
	}
	h.remember(c, r.ID, http.StatusCreated)
	ok(c, http.StatusCreated, r)
}

// GetRequest godoc
// @ID          getRequest
// @Summary     Get a request
// @Tags        Requests
// @Produce     json
// @Param       id   path      string  true  "Request ID (UUID)"  format(uuid)
// @Success     200  {object}  domain.Request
// @Failure     400  {object}  handlers.ErrorResponse "Bad request"
// @Failure     404  {object}  handlers.ErrorResponse "Request not found"
// @Router      /requests/{id} [get]
func (h *Handlers) GetRequest(c *gin.Context) {
	id, valid := pathUUID(c, "request")
	if !valid {
		return
	}
	r, err := h.requests.Get(c.Request.Context(), id)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	ok(c, http.StatusOK, r)
}

// AcceptRequest godoc
// @ID          acceptRequest
// @Summary     Accept a request
// @Description Moves an open request to accepted and opens a chat between creator and accepter.
// @Tags        Requests
// @Accept      json
// @Produce     json
// @Param       X-User-ID  header  string                  false "Caller identity"
// @Param       id         path    string                  true  "Request ID (UUID)"  format(uuid)
// @Param       body       body    handlers.ActorRequest   false "Accepting user"
// @Success     200  {object}  handlers.AcceptResponse
// @Failure     400  {object}  handlers.ErrorResponse "Bad request or self accept"
// @Failure     404  {object}  handlers.ErrorResponse "Request not found"
// @Failure     409  {object}  handlers.ErrorResponse "Already accepted"
// @Router      /requests/{id}/accept [post]
func (h *Handlers) AcceptRequest(c *gin.Context) {
	id, valid := pathUUID(c, "request")
	if !valid {
		return
	}
	uid, bound := bindActor(c)
	if !bound {
		return
	}
	r, chat, err := h.requests.Accept(c.Request.Context(), id, uid)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	ok(c, http.StatusOK, AcceptResponse{Request: r, Chat: chat})
}

// CancelRequest godoc
// @ID          cancelRequest
// @Summary     Cancel a request (creator)
// @Description Cancels an open or accepted request. An accepted request's active chat is cancelled too.
// @Tags        Requests
// @Accept      json
// @Produce     json
// @Param       X-User-ID  header  string                 false "Caller identity"
// @Param       id         path    string                 true  "Request ID (UUID)"  format(uuid)
// @Param       body       body    handlers.ActorRequest  false "Creator"
// @Success     200  {object}  domain.Request
// @Failure     403  {object}  handlers.ErrorResponse "Not the creator"
// @Failure     404  {object}  handlers.ErrorResponse "Request not found"
// @Failure     409  {object}  handlers.ErrorResponse "Invalid status"
// @Router      /requests/{id}/cancel [post]
func (h *Handlers) CancelRequest(c *gin.Context) {
	id, valid := pathUUID(c, "request")
	if !valid {
		return
	}
	uid, bound := bindActor(c)
	if !bound {
		return
	}
	r, err := h.requests.CreatorCancel(c.Request.Context(), id, uid)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	ok(c, http.StatusOK, r)
}
