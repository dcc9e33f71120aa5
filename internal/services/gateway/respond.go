package gateway

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"

	apperrors "github.com/meridianpress/meridian/internal/platform/errors"
	"github.com/meridianpress/meridian/internal/platform/i18n"
)

// maxBodyBytes bounds request bodies. Articles carry block payloads, so
// the limit is generous.
const maxBodyBytes = 1 << 20

var validate = validator.New(validator.WithRequiredStructEnabled())

type errorBody struct {
	Code     string            `json:"code"`
	Message  string            `json:"message"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

type errorResponse struct {
	Error errorBody `json:"error"`
}

func (s *Server) writeJSON(w http.ResponseWriter, r *http.Request, status int, payload any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error("encode response",
			"error", err,
			"request_id", middleware.GetReqID(r.Context()),
		)
	}
}

// writeError renders a domain error as JSON, localizing the message for
// the request's resolved language. Unrecognized errors surface as
// CodeUnknown without leaking internal detail.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	domainErr := apperrors.FromError(err)
	if domainErr == nil {
		domainErr = apperrors.New(apperrors.CodeUnknown, "unknown error")
	}
	status := domainErr.Code.HTTPStatus()
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed",
			"error", err,
			"code", string(domainErr.Code),
			"request_id", middleware.GetReqID(r.Context()),
		)
	}

	printer := i18n.Printer(requestTag(r.Context()))
	key := "error." + string(domainErr.Code)
	message := printer.Sprintf(key)
	if message == key {
		message = http.StatusText(status)
	}

	s.writeJSON(w, r, status, errorResponse{Error: errorBody{
		Code:     string(domainErr.Code),
		Message:  message,
		Metadata: domainErr.Metadata,
	}})
}

// decodeJSON reads and validates a JSON request body into dst.
func decodeJSON(r *http.Request, dst any) error {
	body := io.LimitReader(r.Body, maxBodyBytes)
	if err := json.NewDecoder(body).Decode(dst); err != nil {
		return apperrors.Wrap(apperrors.CodeInvalidArgument, "malformed request body", err)
	}
	if err := validate.Struct(dst); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
			return apperrors.WithMetadata(
				apperrors.CodeInvalidArgument,
				"validation failed",
				map[string]string{"Field": fieldErrs[0].Field()},
			)
		}
		return apperrors.Wrap(apperrors.CodeInvalidArgument, "validation failed", err)
	}
	return nil
}
