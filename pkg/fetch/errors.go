package fetch

import (
	"errors"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"
)

// APIError captures non-2xx responses.
type APIError struct {
	StatusCode int
	// Code is the service's own error code when the body carries one.
	Code string
	// Message is the server's message, or the trimmed body.
	Message string
	// RawBody keeps the original payload for debugging.
	RawBody []byte
}

func (e *APIError) Error() string {
	b := strings.Builder{}
	b.WriteString("fetch: API error (status=")
	b.WriteString(strconv.Itoa(e.StatusCode))
	if e.Code != "" {
		b.WriteString(", code=")
		b.WriteString(e.Code)
	}
	b.WriteString(")")
	if m := strings.TrimSpace(e.Message); m != "" {
		b.WriteString(": ")
		b.WriteString(m)
	}
	return b.String()
}

// Unwrap lets errors.Is match ErrFetch.
func (e *APIError) Unwrap() error { return ErrFetch }

// IsRateLimitError returns true if err is an APIError with HTTP status 429.
func IsRateLimitError(err error) bool {
	var ae *APIError
	return errors.As(err, &ae) && ae.StatusCode == 429
}

// IsAuthError returns true if err is an APIError with HTTP status 401 or 403.
// OpenWeatherMap and api.nasa.gov answer a bad key this way.
func IsAuthError(err error) bool {
	var ae *APIError
	return errors.As(err, &ae) && (ae.StatusCode == 401 || ae.StatusCode == 403)
}

func buildAPIError(status int, body []byte) error {
	trimmed := strings.TrimSpace(string(body))
	ae := &APIError{StatusCode: status, RawBody: body, Message: trimmed}

	if gjson.Valid(trimmed) && strings.HasPrefix(trimmed, "{") {
		doc := gjson.Parse(trimmed)
		// OpenWeatherMap uses "message"/"cod", api.nasa.gov uses "error.message"/"error.code".
		for _, path := range []string{"message", "error.message", "msg", "error"} {
			if v := doc.Get(path); v.Type == gjson.String && v.Str != "" {
				ae.Message = v.Str
				break
			}
		}
		for _, path := range []string{"cod", "code", "error.code"} {
			if v := doc.Get(path); v.Exists() && v.Type != gjson.JSON {
				ae.Code = strings.TrimSpace(v.String())
				break
			}
		}
	}
	return ae
}
