package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/prn-tf/scribe/internal/domain"
	"github.com/prn-tf/scribe/internal/service"
)

// UserHandler handles account requests.
type UserHandler struct {
	userService *service.UserService
	logger      zerolog.Logger
}

// NewUserHandler creates a new UserHandler.
func NewUserHandler(userService *service.UserService, logger zerolog.Logger) *UserHandler {
	return &UserHandler{
		userService: userService,
		logger:      logger.With().Str("handler", "user").Logger(),
	}
}

// RegisterRoutes registers the account routes.
func (h *UserHandler) RegisterRoutes(r chi.Router) {
	r.Post("/users/signup", h.Signup)
	r.Post("/users/login", h.Login)
}

type signupRequest struct {
	FirstName    string `json:"firstname" validate:"required,notblank"`
	LastName     string `json:"lastname" validate:"required,notblank"`
	EmailAddress string `json:"emailAddress" validate:"required,notblank,email"`
	Password     string `json:"password" validate:"required"`
}

type loginRequest struct {
	EmailAddress string `json:"emailAddress" validate:"required,notblank"`
	Password     string `json:"password" validate:"required"`
}

// Signup handles POST /users/signup.
func (h *UserHandler) Signup(w http.ResponseWriter, r *http.Request) {
	var req signupRequest
	if !bindRequest(w, r, &req, http.StatusUnauthorized) {
		return
	}

	out, err := h.userService.Signup(r.Context(), service.SignupInput{
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		EmailAddress: domain.NormalizeEmail(req.EmailAddress),
		Password:     req.Password,
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, userResponse{
		envelope: success(http.StatusCreated, MessageUserCreated),
		User:     out.User,
	})
}

// Login handles POST /users/login.
func (h *UserHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !bindRequest(w, r, &req, http.StatusUnauthorized) {
		return
	}

	out, err := h.userService.Login(r.Context(), service.LoginInput{
		EmailAddress: req.EmailAddress,
		Password:     req.Password,
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, loginResponse{
		envelope:  success(http.StatusOK, MessageLoginSuccessful),
		Token:     out.Token,
		ExpiresAt: out.ExpiresAt,
		User:      out.User,
	})
}
