package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/MrEthical07/authcore"
	"go.uber.org/zap"
)

const maxBodyBytes = 1 << 20

type errorResponse struct {
	Error   string   `json:"error"`
	Missing []string `json:"missing,omitempty"`
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, errorResponse{Error: msg})
}

// writeServiceError maps engine error kinds to status codes. Internal
// failures are logged and answered without detail.
func (a *API) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var rnf *authcore.RoleNotFoundError
	var verr *authcore.ValidationError

	switch {
	case errors.As(err, &rnf):
		writeJSON(w, http.StatusNotFound, errorResponse{Error: rnf.Error(), Missing: rnf.Missing})
	case errors.Is(err, authcore.ErrUserNotFound):
		writeError(w, http.StatusNotFound, "user not found")
	case errors.As(err, &verr):
		writeError(w, http.StatusBadRequest, verr.Error())
	case errors.Is(err, authcore.ErrInvalidRequest):
		writeError(w, http.StatusBadRequest, "invalid request")
	case errors.Is(err, authcore.ErrAccountExists):
		writeError(w, http.StatusConflict, "account already exists")
	case errors.Is(err, authcore.ErrLoginRateLimited):
		writeError(w, http.StatusTooManyRequests, "too many login attempts")
	case errors.Is(err, authcore.ErrBanned):
		writeError(w, http.StatusForbidden, "account banned")
	case errors.Is(err, authcore.ErrForbidden):
		writeError(w, http.StatusForbidden, "no permission")
	case errors.Is(err, authcore.ErrUnauthenticated):
		writeError(w, http.StatusUnauthorized, "not authorized")
	default:
		a.logger.Error("request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	reader := http.MaxBytesReader(w, r.Body, maxBodyBytes)
	defer reader.Close()

	dec := json.NewDecoder(reader)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return errors.New("request body is required")
		}
		return err
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		if err == nil {
			return errors.New("unexpected data after JSON body")
		}
		return err
	}
	return nil
}
