package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/go-playground/validator/v10/non-standard/validators"
	"github.com/rs/zerolog/hlog"

	"github.com/prn-tf/scribe/internal/service"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())

	// Report fields by their JSON names.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})

	if err := v.RegisterValidation("notblank", validators.NotBlank); err != nil {
		panic(err)
	}
	return v
}

// bindRequest decodes the JSON body into dst and validates it.
// Missing required fields are answered with missingStatus, other rule
// failures with 422. It returns false when a response has been written.
func bindRequest(w http.ResponseWriter, r *http.Request, dst any, missingStatus int) bool {
	if err := decodeJSON(r, dst); err != nil {
		hlog.FromRequest(r).Debug().Err(err).Msg("failed to decode request body")

		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			writeMessage(w, http.StatusRequestEntityTooLarge, "Request body too large")
			return false
		}
		writeMessage(w, http.StatusBadRequest, MessageInvalidDetails)
		return false
	}

	missing, fields := validateRequest(dst)
	if missing {
		writeMessage(w, missingStatus, MessageFieldsRequired)
		return false
	}
	if len(fields) > 0 {
		writeValidation(w, fields)
		return false
	}
	return true
}

// decodeJSON reads one JSON value. An empty body decodes to the zero value
// so that required-field checks report it.
func decodeJSON(r *http.Request, dst any) error {
	if r.Body == nil {
		return nil
	}
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return err
	}
	return nil
}

// validateRequest runs the struct tags on req.
func validateRequest(req any) (missing bool, fields []service.FieldError) {
	err := validate.Struct(req)
	if err == nil {
		return false, nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return false, []service.FieldError{{Field: "body", Message: err.Error()}}
	}

	for _, fe := range verrs {
		switch fe.Tag() {
		case "required", "notblank":
			missing = true
		}
		fields = append(fields, service.FieldError{Field: fe.Field(), Message: fieldMessage(fe)})
	}
	return missing, fields
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required", "notblank":
		return fmt.Sprintf("%s field is required", fe.Field())
	case "email":
		return "Enter a valid email"
	case "min":
		return fmt.Sprintf("%s must be at least %s character long", fe.Field(), fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s character long", fe.Field(), fe.Param())
	default:
		return fmt.Sprintf("%s is invalid", fe.Field())
	}
}

// queryInt parses an optional integer query parameter. Absent means zero.
func queryInt(r *http.Request, name string) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", name, raw, err)
	}
	return n, nil
}
