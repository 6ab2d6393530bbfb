package backend

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"

	"github.com/tidwall/gjson"
)

var (
	// ErrNoSession is returned by authenticated calls made without a token.
	// No request is sent.
	ErrNoSession = errors.New("not signed in")

	// ErrUnauthorized is returned when the backend rejects the token.
	ErrUnauthorized = errors.New("session expired or invalid")
)

// APIError is a non-2xx response from the backend.
type APIError struct {
	StatusCode int
	Detail     string
	Endpoint   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %d %s", e.Endpoint, e.StatusCode, e.Detail)
}

// NetworkError is a request that never produced a response.
type NetworkError struct {
	Op      string
	Err     error
	Timeout bool
}

func (e *NetworkError) Error() string {
	if e.Timeout {
		return fmt.Sprintf("%s: request timed out: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// ErrorKind groups errors by how the caller should react.
type ErrorKind int

const (
	KindNone ErrorKind = iota
	KindNoSession
	KindUnauthorized
	KindTimeout
	KindNetwork
	KindBadRequest
	KindNotFound
	KindServer
	KindOther
)

func (k ErrorKind) String() string {
	switch k {
	case KindNone:
		return "none"
	case KindNoSession:
		return "no-session"
	case KindUnauthorized:
		return "unauthorized"
	case KindTimeout:
		return "timeout"
	case KindNetwork:
		return "network"
	case KindBadRequest:
		return "bad-request"
	case KindNotFound:
		return "not-found"
	case KindServer:
		return "server"
	default:
		return "other"
	}
}

// Classify maps err to its kind.
func Classify(err error) ErrorKind {
	if err == nil {
		return KindNone
	}
	if errors.Is(err, ErrNoSession) {
		return KindNoSession
	}
	if errors.Is(err, ErrUnauthorized) {
		return KindUnauthorized
	}

	var netErr *NetworkError
	if errors.As(err, &netErr) {
		if netErr.Timeout {
			return KindTimeout
		}
		return KindNetwork
	}

	var apiErr *APIError
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.StatusCode == http.StatusUnauthorized:
			return KindUnauthorized
		case apiErr.StatusCode == http.StatusNotFound:
			return KindNotFound
		case apiErr.StatusCode >= 500:
			return KindServer
		case apiErr.StatusCode >= 400:
			return KindBadRequest
		}
	}
	return KindOther
}

// Detail returns the backend's detail message when err carries one, else
// the error text.
func Detail(err error) string {
	if err == nil {
		return ""
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Detail != "" {
		return apiErr.Detail
	}
	return err.Error()
}

// parseDetail extracts "detail" from an error body. Validation failures
// carry a list of {loc, msg} objects instead of a string.
func parseDetail(body []byte, status int) string {
	if gjson.ValidBytes(body) {
		detail := gjson.GetBytes(body, "detail")
		switch {
		case detail.Type == gjson.String:
			return detail.String()
		case detail.IsArray():
			var msgs []string
			for _, item := range detail.Array() {
				msg := item.Get("msg").String()
				if msg == "" {
					continue
				}
				if field := item.Get("loc.1").String(); field != "" {
					msg = field + ": " + msg
				}
				msgs = append(msgs, msg)
			}
			if len(msgs) > 0 {
				return strings.Join(msgs, "; ")
			}
		case detail.Exists():
			return detail.Raw
		}
	}
	if text := strings.TrimSpace(string(body)); text != "" && len(text) < 200 && !strings.HasPrefix(text, "<") {
		return text
	}
	return http.StatusText(status)
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}
