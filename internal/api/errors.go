package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// ErrUnauthorized matches any 401 reply; the session token is no longer valid.
var ErrUnauthorized = errors.New("unauthorized")

// Error is a non-2xx reply, or a 2xx reply whose envelope reported failure.
type Error struct {
	Status  int
	Path    string
	Message string // server supplied message, empty when the body had none
}

func (e *Error) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("api %s returned status %d: %s", e.Path, e.Status, e.Message)
	}
	return fmt.Sprintf("api %s returned status %d", e.Path, e.Status)
}

// Is lets errors.Is(err, ErrUnauthorized) match 401 replies.
func (e *Error) Is(target error) bool {
	return target == ErrUnauthorized && e.Status == http.StatusUnauthorized
}

// MessageOf extracts the most specific human readable text from err: the
// server message when the reply carried one, otherwise err's own text.
func MessageOf(err error) string {
	if err == nil {
		return ""
	}
	var apiErr *Error
	if errors.As(err, &apiErr) && strings.TrimSpace(apiErr.Message) != "" {
		return strings.TrimSpace(apiErr.Message)
	}
	return strings.TrimSpace(err.Error())
}

func decodeErrorMessage(body []byte) string {
	if len(body) == 0 {
		return ""
	}
	var payload errorBody
	if err := json.Unmarshal(body, &payload); err != nil {
		return ""
	}
	if msg := strings.TrimSpace(payload.Message); msg != "" {
		return msg
	}
	return strings.TrimSpace(payload.Error)
}
