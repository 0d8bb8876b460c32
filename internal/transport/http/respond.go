package http

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"

	"quizdesk-service/internal/domain"
)

// HTTPMessage is the envelope for every non-content response.
type HTTPMessage struct {
	Type       string             `json:"type"`
	Status     string             `json:"status"`
	Message    string             `json:"message"`
	Violations []domain.Violation `json:"violations,omitempty"`
}

const maxBodyBytes = 1 << 20

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

func returnJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(body); err != nil {
		log.WithError(err).Debug("write response")
	}
}

func returnHTTPMessage(w http.ResponseWriter, status int, messageType, message string) {
	returnJSON(w, status, HTTPMessage{Type: messageType, Status: strconv.Itoa(status), Message: message})
}

// returnError maps domain errors onto status codes. Unknown errors are logged and hidden.
func returnError(w http.ResponseWriter, r *http.Request, err error) {
	status, msg := statusFor(err)
	body := HTTPMessage{Type: "error", Status: strconv.Itoa(status), Message: msg}
	var verr *domain.ValidationError
	if errors.As(err, &verr) {
		body.Violations = verr.Violations
	}
	if status == http.StatusInternalServerError {
		log.WithError(err).WithFields(log.Fields{"method": r.Method, "path": r.URL.Path}).Error("request failed")
	}
	returnJSON(w, status, body)
}

func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, domain.ErrValidation):
		return http.StatusUnprocessableEntity, "validation failed"
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound, err.Error()
	case errors.Is(err, domain.ErrForbidden):
		return http.StatusForbidden, err.Error()
	case errors.Is(err, domain.ErrConflict):
		return http.StatusConflict, err.Error()
	case errors.Is(err, domain.ErrUnauthorized):
		return http.StatusUnauthorized, err.Error()
	}
	return http.StatusInternalServerError, "internal error"
}

// decode reads a JSON body into dst and runs struct validation. Syntax errors come back as a
// 400 message already written; validation errors as a *domain.ValidationError.
func decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		returnHTTPMessage(w, http.StatusBadRequest, "error", "malformed JSON body")
		return false
	}
	if err := validateRequest(dst); err != nil {
		returnError(w, r, err)
		return false
	}
	return true
}

func validateRequest(dst any) error {
	err := validate.Struct(dst)
	if err == nil {
		return nil
	}
	var ves validator.ValidationErrors
	if !errors.As(err, &ves) {
		return err
	}
	var v domain.Violations
	for _, fe := range ves {
		v.Add(fieldPath(fe), ruleMessage(fe))
	}
	return v.Err()
}

// fieldPath drops the top-level struct name from the validator namespace.
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		return ns[i+1:]
	}
	return ns
}

func ruleMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "min":
		return "must be at least " + fe.Param()
	case "max":
		return "must be at most " + fe.Param()
	case "gt":
		return "must be greater than " + fe.Param()
	}
	return "failed " + fe.Tag()
}

// pathID reads a numeric route variable; routes constrain ids to digits.
func pathID(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(mux.Vars(r)[name], 10, 64)
	if err != nil || id <= 0 {
		return 0, domain.ErrNotFound
	}
	return id, nil
}
