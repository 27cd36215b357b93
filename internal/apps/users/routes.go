package users

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jellydator/validation"

	"api-boilerplate/internal/domain"
	"api-boilerplate/internal/http/httperr"
	"api-boilerplate/internal/http/middleware"
	"api-boilerplate/internal/router"
	"api-boilerplate/internal/service"
)

func init() {
	router.Register(func(r *router.Routes, deps *router.Deps) {
		h := &handler{users: deps.Users}
		r.POST("/token", router.Doc{Summary: "Get access token"}, h.login)
		r.POST("/users", router.Doc{Summary: "Register a user"}, h.register)
		r.GET("/users/me", router.Doc{Summary: "Current user", Auth: true}, h.me)
	})
}

type handler struct {
	users service.UserService
}

type loginRequest struct {
	Username string `json:"username" form:"username"`
	Password string `json:"password" form:"password"`
}

func (r loginRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Username, validation.Required),
		validation.Field(&r.Password, validation.Required),
	)
}

type registerRequest struct {
	Username         string `json:"username"`
	Password         string `json:"password"`
	RegisterPassword string `json:"register_password"`
}

func (r registerRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Username, validation.Required, validation.Length(1, 255)),
		validation.Field(&r.Password, validation.Required, validation.Length(8, 0)),
	)
}

type UserResponse struct {
	ID        int64  `json:"id"`
	Username  string `json:"username"`
	CreatedAt string `json:"created_at"`
	EditedAt  string `json:"edited_at"`
}

func userToResponse(user *domain.User) UserResponse {
	return UserResponse{
		ID:        user.ID,
		Username:  user.Username,
		CreatedAt: user.CreatedAt.Format(time.RFC3339),
		EditedAt:  user.EditedAt.Format(time.RFC3339),
	}
}

func (h *handler) login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBind(&req); err != nil {
		_ = c.Error(httperr.Wrap(http.StatusUnprocessableEntity, "invalid request body", err))
		return
	}
	if err := req.Validate(); err != nil {
		_ = c.Error(httperr.New(http.StatusUnprocessableEntity, err))
		return
	}

	user, err := h.users.Authenticate(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			_ = c.Error(httperr.Unauthorized("Incorrect username or password"))
			return
		}
		_ = c.Error(err)
		return
	}

	token, err := h.users.IssueToken(user)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, token)
}

func (h *handler) register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(httperr.Wrap(http.StatusUnprocessableEntity, "invalid request body", err))
		return
	}
	req.Username = strings.TrimSpace(req.Username)
	if err := req.Validate(); err != nil {
		_ = c.Error(httperr.New(http.StatusUnprocessableEntity, err))
		return
	}

	user, err := h.users.Register(c.Request.Context(), req.Username, req.Password, req.RegisterPassword)
	switch {
	case err == nil:
		c.JSON(http.StatusCreated, userToResponse(user))
	case errors.Is(err, service.ErrInvalidRegistrationPassword):
		_ = c.Error(httperr.Forbidden("Invalid registration password"))
	case errors.Is(err, service.ErrUserAlreadyExists):
		_ = c.Error(httperr.Conflict("Username already registered"))
	case errors.Is(err, service.ErrInvalidInput):
		_ = c.Error(httperr.Wrap(http.StatusUnprocessableEntity, err.Error(), err))
	default:
		_ = c.Error(err)
	}
}

func (h *handler) me(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		_ = c.Error(httperr.Unauthenticated(nil))
		return
	}
	c.JSON(http.StatusOK, userToResponse(user))
}
