// Package respond writes JSON bodies and maps the error taxonomy to
// `{"detail": "..."}` responses.
package respond

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-kanban-go/internal/apperr"
)

// ErrorBody is the structured error returned by every endpoint.
type ErrorBody struct {
	Detail string `json:"detail"`
}

// JSON marshals first so an encoding failure never leaves a partial body.
func JSON(w http.ResponseWriter, status int, v any) {
	payload, err := json.Marshal(v)
	if err != nil {
		status = http.StatusInternalServerError
		payload = []byte(`{"detail":"failed to encode response"}`)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(payload)
}

func Detail(w http.ResponseWriter, status int, detail string) {
	JSON(w, status, ErrorBody{Detail: detail})
}

// Error translates err into a response. Unknown errors become 500 and are
// logged; taxonomy errors are logged at debug.
func Error(w http.ResponseWriter, logger *zap.SugaredLogger, err error) {
	var pass *apperr.Passthrough
	if errors.As(err, &pass) {
		ct := pass.ContentType
		if ct == "" {
			ct = "application/json"
		}
		w.Header().Set("Content-Type", ct)
		w.WriteHeader(pass.Status)
		_, _ = w.Write(pass.Body)
		return
	}
	var ve validation.Errors
	if errors.As(err, &ve) {
		Detail(w, http.StatusBadRequest, ve.Error())
		return
	}
	var ae *apperr.Error
	if errors.As(err, &ae) {
		if logger != nil {
			logger.Debugw("request rejected", "status", ae.StatusCode(), "detail", ae.Detail, "err", ae.Cause)
		}
		Detail(w, ae.StatusCode(), ae.Detail)
		return
	}
	if logger != nil {
		logger.Errorw("unhandled error", "err", err)
	}
	Detail(w, http.StatusInternalServerError, "internal server error")
}

// Decode reads a JSON body into v. Payload rules are checked by the
// services once the caller is authorized.
func Decode(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return apperr.Validation("invalid payload").WithCause(err)
	}
	return nil
}

// PathID parses a positive integer path parameter.
func PathID(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(r.PathValue(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, apperr.Validation("invalid %s", name)
	}
	return id, nil
}
