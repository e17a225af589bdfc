package backend

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrorKind distinguishes how a backend request failed. A timeout and a
// refused connection call for different operator reactions than a 4xx.
type ErrorKind int

const (
	KindStatus ErrorKind = iota
	KindTimeout
	KindConnection
)

// APIError is any failed backend request with its decoded message.
type APIError struct {
	Kind       ErrorKind
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	switch e.Kind {
	case KindTimeout:
		return fmt.Sprintf("backend request timed out: %s", e.Message)
	case KindConnection:
		return fmt.Sprintf("backend unreachable: %s", e.Message)
	default:
		return fmt.Sprintf("backend returned %d: %s", e.StatusCode, e.Message)
	}
}

// IsTimeout reports whether err is a backend timeout.
func IsTimeout(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Kind == KindTimeout
}

// IsConnection reports whether err is a network-level failure.
func IsConnection(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Kind == KindConnection
}

// validationItem is one entry of the engine's validation-error list.
type validationItem struct {
	Loc []any  `json:"loc"`
	Msg string `json:"msg"`
}

// decodeErrorBody extracts a human-readable message from a non-2xx body.
// Priority: validation-error list, then a single detail/message/error string,
// then the raw body verbatim.
func decodeErrorBody(body []byte) string {
	trimmed := strings.TrimSpace(string(body))
	if trimmed == "" {
		return "empty error response"
	}

	var withList struct {
		Detail []validationItem `json:"detail"`
	}
	if err := json.Unmarshal(body, &withList); err == nil && len(withList.Detail) > 0 {
		lines := make([]string, 0, len(withList.Detail))
		for _, item := range withList.Detail {
			path := joinLoc(item.Loc)
			if path != "" {
				lines = append(lines, fmt.Sprintf("%s: %s", path, item.Msg))
			} else {
				lines = append(lines, item.Msg)
			}
		}
		return strings.Join(lines, "\n")
	}

	var withString struct {
		Detail  string `json:"detail"`
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(body, &withString); err == nil {
		switch {
		case withString.Detail != "":
			return withString.Detail
		case withString.Message != "":
			return withString.Message
		case withString.Error != "":
			return withString.Error
		}
	}

	return trimmed
}

func joinLoc(loc []any) string {
	parts := make([]string, 0, len(loc))
	for _, p := range loc {
		parts = append(parts, fmt.Sprint(p))
	}
	return strings.Join(parts, ".")
}
