package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/prn-tf/scribe/internal/domain"
	"github.com/prn-tf/scribe/internal/service"
)

// Response messages shared by the API.
const (
	MessageUserCreated      = "User Created Successfully"
	MessageLoginSuccessful  = "User Login Successful"
	MessageBlogCreated      = "Blog Created Successfully"
	MessageBlogPublished    = "Blog published"
	MessageBlogUpdated      = "Blog updated"
	MessageBlogDeleted      = "Blog deleted successfully"
	MessageBlogFound        = "Blog found"
	MessageBlogsFound       = "Blogs found"
	MessageFieldsRequired   = "Field can not be empty"
	MessageInvalidDetails   = "Enter a Valid Details"
	MessageValidationFailed = "Validation failed"
	MessageInternalError    = "Internal Server Error"
)

// envelope is the wrapper every response body starts with.
type envelope struct {
	Status  int    `json:"status"`
	Message string `json:"message"`
	Error   bool   `json:"error"`
}

func success(status int, message string) envelope {
	return envelope{Status: status, Message: message}
}

func failure(status int, message string) envelope {
	return envelope{Status: status, Message: message, Error: true}
}

type validationResponse struct {
	envelope
	Errors []service.FieldError `json:"errors"`
}

type userResponse struct {
	envelope
	User *domain.User `json:"user"`
}

type loginResponse struct {
	envelope
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expires_at"`
	User      *domain.User `json:"user"`
}

type blogResponse struct {
	envelope
	Blog *domain.Blog `json:"blog"`
}

type blogListResponse struct {
	envelope
	Total int64          `json:"total"`
	Page  int            `json:"page"`
	Limit int            `json:"limit"`
	Blogs []*domain.Blog `json:"blogs"`
}

func newBlogListResponse(out *service.ListBlogsOutput) blogListResponse {
	blogs := out.Blogs
	if blogs == nil {
		blogs = []*domain.Blog{}
	}
	return blogListResponse{
		envelope: success(http.StatusOK, MessageBlogsFound),
		Total:    out.Total,
		Page:     out.Page,
		Limit:    out.Limit,
		Blogs:    blogs,
	}
}

// writeJSON writes v as the response body with the given status code.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeMessage writes a bare error envelope.
func writeMessage(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, failure(status, message))
}

func writeValidation(w http.ResponseWriter, fields []service.FieldError) {
	writeJSON(w, http.StatusUnprocessableEntity, validationResponse{
		envelope: failure(http.StatusUnprocessableEntity, MessageValidationFailed),
		Errors:   fields,
	})
}
