// User HTTP handlers.
//
//   - POST /users              (register)
//   - POST /auth/login         (login)
//   - GET  /users/{id}         (get)
//   - PUT  /users/{id}         (update profile)
//   - GET  /users/{id}/balance (balance, reserved, available)
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/tbourn/go-tutor-backend/internal/repo"
	"github.com/tbourn/go-tutor-backend/internal/services"
)

// RegisterRequest is the JSON payload for creating an account.
type RegisterRequest struct {
	FirstName string `json:"first_name" example:"Ivan"`
	LastName  string `json:"last_name"  example:"Ivanov"`
	Email     string `json:"email"      binding:"required" example:"ivan@test.ru"`
	Password  string `json:"password"   binding:"required" example:"123456"`
}

// LoginRequest is the JSON payload for logging in.
type LoginRequest struct {
	Email    string `json:"email"    binding:"required" example:"ivan@test.ru"`
	Password string `json:"password" binding:"required" example:"123456"`
}

// UpdateProfileRequest carries the editable profile fields. Omitted fields
// are left unchanged. Skillpoints cannot be edited.
type UpdateProfileRequest struct {
	FirstName         *string `json:"first_name"`
	LastName          *string `json:"last_name"`
	Name              *string `json:"name"`
	SchoolClass       *string `json:"school_class" example:"9"`
	Age               *string `json:"age"          example:"15"`
	City              *string `json:"city"         example:"Kazan"`
	AvgGrade          *string `json:"avg_grade"    example:"4.5"`
	Gender            *string `json:"gender"`
	Bio               *string `json:"bio"`
	ProfileConfigured *bool   `json:"profile_configured"`
}

func (r UpdateProfileRequest) toUpdate() repo.ProfileUpdate {
	return repo.ProfileUpdate{
		FirstName:         r.FirstName,
		LastName:          r.LastName,
		Name:              r.Name,
		SchoolClass:       r.SchoolClass,
		Age:               r.Age,
		City:              r.City,
		AvgGrade:          r.AvgGrade,
		Gender:            r.Gender,
		Bio:               r.Bio,
		ProfileConfigured: r.ProfileConfigured,
	}
}

// pathUUID reads a UUID path parameter or fails the request with 400.
func pathUUID(c *gin.Context, what string) (string, bool) {
	id := c.Param("id")
	if _, err := uuid.Parse(id); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, what+" id must be a UUID")
		return "", false
	}
	return id, true
}

// Register godoc
// @ID          registerUser
// @Summary     Register a user
// @Description Creates an account with a zero skillpoints balance. Emails are case-insensitive.
// @Tags        Users
// @Accept      json
// @Produce     json
// @Param       body  body      handlers.RegisterRequest  true  "Registration payload"
// @Success     201   {object}  domain.User
// @Failure     400   {object}  handlers.ErrorResponse "Bad request"
// @Failure     409   {object}  handlers.ErrorResponse "Email already registered"
// @Failure     500   {object}  handlers.ErrorResponse "Internal error"
// @Router      /users [post]
func (h *Handlers) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "email and password required")
		return
	}
	u, err := h.users.Register(c.Request.Context(), services.RegisterInput{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Email:     req.Email,
		Password:  req.Password,
	})
	if err != nil {
		writeServiceError(c, err)
		return
	}
	ok(c, http.StatusCreated, u)
}

// Login godoc
// @ID          login
// @Summary     Log in
// @Description Returns the user whose email and password match.
// @Tags        Users
// @Accept      json
// @Produce     json
// @Param       body  body      handlers.LoginRequest  true  "Credentials"
// @Success     200   {object}  domain.User
// @Failure     400   {object}  handlers.ErrorResponse "Bad request"
// @Failure     401   {object}  handlers.ErrorResponse "Invalid credentials"
// @Router      /auth/login [post]
func (h *Handlers) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "email and password required")
		return
	}
	u, err := h.users.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	ok(c, http.StatusOK, u)
}

// GetUser godoc
// @ID          getUser
// @Summary     Get a user
// @Tags        Users
// @Produce     json
// @Param       id   path      string  true  "User ID (UUID)"  format(uuid)
// @Success     200  {object}  domain.User
// @Failure     400  {object}  handlers.ErrorResponse "Bad request"
// @Failure     404  {object}  handlers.ErrorResponse "User not found"
// @Router      /users/{id} [get]
func (h *Handlers) GetUser(c *gin.Context) {
	id, valid := pathUUID(c, "user")
	if !valid {
		return
	}
	u, err := h.users.Get(c.Request.Context(), id)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	ok(c, http.StatusOK, u)
}

// UpdateProfile godoc
// @ID          updateProfile
// @Summary     Update a user's profile
// @Description Applies the supplied profile fields. The skillpoints balance is not editable.
// @Tags        Users
// @Accept      json
// @Produce     json
// @Param       id    path      string                         true  "User ID (UUID)"  format(uuid)
// @Param       body  body      handlers.UpdateProfileRequest  true  "Profile fields"
// @Success     200   {object}  domain.User
// @Failure     400   {object}  handlers.ErrorResponse "Bad request"
// @Failure     404   {object}  handlers.ErrorResponse "User not found"
// @Router      /users/{id} [put]
func (h *Handlers) UpdateProfile(c *gin.Context) {
	id, valid := pathUUID(c, "user")
	if !valid {
		return
	}
	var req UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}
	u, err := h.users.UpdateProfile(c.Request.Context(), id, req.toUpdate())
	if err != nil {
		writeServiceError(c, err)
		return
	}
	ok(c, http.StatusOK, u)
}

// GetBalance godoc
// @ID          getBalance
// @Summary     Get a user's skillpoints
// @Description Reports the stored balance, the part reserved by open and accepted requests, and the remainder.
// @Tags        Users
// @Produce     json
// @Param       id   path      string  true  "User ID (UUID)"  format(uuid)
// @Success     200  {object}  services.Balance
// @Failure     404  {object}  handlers.ErrorResponse "User not found"
// @Router      /users/{id}/balance [get]
func (h *Handlers) GetBalance(c *gin.Context) {
	id, valid := pathUUID(c, "user")
	if !valid {
		return
	}
	b, err := h.users.Balance(c.Request.Context(), id)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	ok(c, http.StatusOK, b)
}
