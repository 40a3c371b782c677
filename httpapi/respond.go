package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	goAccount "github.com/MrEthical07/goAccount"
)

const (
	statusSuccess = "success"
	statusFail    = "fail"
	statusError   = "error"
)

const (
	msgInvalidBody        = "Invalid request body."
	msgInvalidRequest     = "Some fields are missing or invalid."
	msgDuplicateEmail     = "This email is already registered. Use a different email address."
	msgInvalidActivation  = "Your activation code has expired or is invalid. Please try again."
	msgInvalidCredentials = "Incorrect email or password. Please check your credentials and try again."
	msgUnauthorized       = "Please sign in to continue."
	msgForbidden          = "You do not have permission to perform this action."
	msgSessionIssuance    = "Oops! It looks like we're having a hiccup. Give it another go, or reach out if it's still acting up!"
	msgDispatch           = "An error occurred while sending the verification email. Please try again later."
	msgAccountNotFound    = "Account not found."
	msgRouteNotFound      = "Can't find this route on this server!"
	msgInternal           = "Uh-oh! Something went sideways. Try again soon!"
)

// envelope is the body of every JSON response. Fields is only set for
// validation failures.
type envelope struct {
	Status  string            `json:"status"`
	Message string            `json:"message,omitempty"`
	Fields  map[string]string `json:"errors,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func statusLabel(code int) string {
	switch {
	case code >= 500:
		return statusError
	case code >= 400:
		return statusFail
	}
	return statusSuccess
}

// errorStatus maps an engine error to its HTTP status and public message.
// Activation token and code failures share one message so a caller cannot
// tell which of the two was wrong.
func errorStatus(err error) (int, string) {
	var stateErr *goAccount.AccountStateError
	switch {
	case errors.As(err, &stateErr):
		return http.StatusForbidden, stateErr.Error()
	case errors.Is(err, goAccount.ErrValidation):
		return http.StatusBadRequest, msgInvalidRequest
	case errors.Is(err, goAccount.ErrDuplicateEmail):
		return http.StatusBadRequest, msgDuplicateEmail
	case errors.Is(err, goAccount.ErrInvalidOrExpiredToken),
		errors.Is(err, goAccount.ErrCodeMismatch),
		errors.Is(err, goAccount.ErrTokenReplayed):
		return http.StatusBadRequest, msgInvalidActivation
	case errors.Is(err, goAccount.ErrInvalidCredentials):
		return http.StatusUnauthorized, msgInvalidCredentials
	case errors.Is(err, goAccount.ErrUnauthorized):
		return http.StatusUnauthorized, msgUnauthorized
	case errors.Is(err, goAccount.ErrForbidden):
		return http.StatusForbidden, msgForbidden
	case errors.Is(err, goAccount.ErrSessionIssuance):
		return http.StatusForbidden, msgSessionIssuance
	case errors.Is(err, goAccount.ErrAccountNotFound):
		return http.StatusNotFound, msgAccountNotFound
	case errors.Is(err, goAccount.ErrDispatch):
		return http.StatusInternalServerError, msgDispatch
	}
	return http.StatusInternalServerError, msgInternal
}

// writeError writes the envelope for err and logs server-side failures.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	code, msg := errorStatus(err)
	body := envelope{Status: statusLabel(code), Message: msg}

	var verr *goAccount.ValidationError
	if errors.As(err, &verr) && len(verr.Fields) > 0 {
		body.Fields = verr.Fields
	}

	if code >= http.StatusInternalServerError {
		s.logger.ErrorContext(r.Context(), "request failed",
			"method", r.Method,
			"path", r.URL.Path,
			"error", err,
		)
	}
	writeJSON(w, code, body)
}
