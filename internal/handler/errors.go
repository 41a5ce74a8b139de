package handler

import (
	"errors"
	"net/http"

	"github.com/rs/zerolog/hlog"

	"github.com/prn-tf/scribe/internal/domain"
	"github.com/prn-tf/scribe/internal/service"
)

// APIError maps a service or domain error to a status code and client message.
type APIError struct {
	Err        error
	Message    string
	HTTPStatus int
}

// errorMappings is checked in order with errors.Is.
var errorMappings = []APIError{
	{Err: domain.ErrUserAlreadyExists, Message: "User already exist", HTTPStatus: http.StatusBadRequest},
	{Err: service.ErrInvalidCredentials, Message: "Invalid email or password", HTTPStatus: http.StatusBadRequest},
	{Err: domain.ErrBlogTitleTaken, Message: "Title already exist", HTTPStatus: http.StatusBadRequest},
	{Err: domain.ErrBlogAlreadyPublished, Message: "Blog already published", HTTPStatus: http.StatusBadRequest},
	{Err: domain.ErrBlogNotFound, Message: "Blog not found", HTTPStatus: http.StatusNotFound},
	{Err: domain.ErrUserNotFound, Message: "User not found", HTTPStatus: http.StatusNotFound},
	{Err: domain.ErrNotBlogAuthor, Message: "Only the author can modify this blog", HTTPStatus: http.StatusForbidden},
}

// mapError finds the API error for err. Unknown errors become a 500.
func mapError(err error) APIError {
	for _, m := range errorMappings {
		if errors.Is(err, m.Err) {
			return APIError{Err: err, Message: m.Message, HTTPStatus: m.HTTPStatus}
		}
	}
	return APIError{Err: err, Message: MessageInternalError, HTTPStatus: http.StatusInternalServerError}
}

// writeServiceError converts err into the JSON envelope.
// Field-level validation failures carry their errors array with a 422.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	logger := hlog.FromRequest(r)

	var verr *service.ValidationError
	if errors.As(err, &verr) {
		logger.Debug().Err(err).Msg("request rejected by validation")
		writeValidation(w, verr.Fields)
		return
	}

	if errors.Is(err, domain.ErrInvalidBlogState) {
		logger.Debug().Err(err).Msg("invalid state filter")
		writeValidation(w, []service.FieldError{{Field: "state", Message: "State must be draft or publish"}})
		return
	}

	apiErr := mapError(err)
	if apiErr.HTTPStatus >= http.StatusInternalServerError {
		logger.Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
	} else {
		logger.Debug().Err(err).Int("status", apiErr.HTTPStatus).Msg("request rejected")
	}

	writeMessage(w, apiErr.HTTPStatus, apiErr.Message)
}
