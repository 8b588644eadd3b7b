// Package errors holds error helpers shared by the HTTP-facing packages.
package errors

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// MinErrorStatusCode is the first status code treated as a failure.
const MinErrorStatusCode = 400

// maxBodyExcerpt bounds how much of an error body is kept on HTTPError.
const maxBodyExcerpt = 2048

// HTTPError is a non-2xx reply from an upstream HTTP API.
type HTTPError struct {
	StatusCode int
	Body       string
	Message    string
	// Type is the upstream error class when the body names one,
	// e.g. Elasticsearch's "index_not_found_exception".
	Type string
}

func (e *HTTPError) Error() string {
	text := http.StatusText(e.StatusCode)
	if e.Message == "" {
		return fmt.Sprintf("HTTP error: %d %s", e.StatusCode, text)
	}
	return fmt.Sprintf("HTTP error (%d %s): %s", e.StatusCode, text, e.Message)
}

// ParseHTTPError reads body and returns an *HTTPError for statusCode, or nil
// when statusCode is not an error. It understands flat {"error": "..."} and
// {"message": "..."} bodies as well as the nested Elasticsearch shape
// {"error": {"type": "...", "reason": "..."}}.
func ParseHTTPError(statusCode int, body io.Reader) error {
	if statusCode < MinErrorStatusCode {
		return nil
	}

	raw, err := io.ReadAll(io.LimitReader(body, maxBodyExcerpt))
	if err != nil {
		return &HTTPError{StatusCode: statusCode, Message: fmt.Sprintf("read error body: %v", err)}
	}

	text := strings.TrimSpace(string(raw))
	httpErr := &HTTPError{StatusCode: statusCode, Body: text, Message: text}

	var envelope struct {
		Error   json.RawMessage `json:"error"`
		Message string          `json:"message"`
	}
	if json.Unmarshal(raw, &envelope) != nil {
		return httpErr
	}

	var flat string
	var nested struct {
		Type   string `json:"type"`
		Reason string `json:"reason"`
	}
	switch {
	case len(envelope.Error) > 0 && json.Unmarshal(envelope.Error, &flat) == nil && flat != "":
		httpErr.Message = flat
	case len(envelope.Error) > 0 && json.Unmarshal(envelope.Error, &nested) == nil && nested.Reason != "":
		httpErr.Type = nested.Type
		httpErr.Message = nested.Reason
	case envelope.Message != "":
		httpErr.Message = envelope.Message
	}

	return httpErr
}
