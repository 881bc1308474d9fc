package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"music-api-go/circuitbreaker"
	"music-api-go/database"
	"music-api-go/logcolors"
	"music-api-go/middleware"
	"music-api-go/services/innertube"
	"music-api-go/utils"
	"net/http"

	log "github.com/sirupsen/logrus"
)

// APIResponse handles consistent header setting and JSON responses.
// It centralizes X-Cache-Status, X-RateLimit-Type and the error mapping.
type APIResponse struct {
	w           http.ResponseWriter
	r           *http.Request
	cacheStatus string
	retryAfter  int
}

// Respond creates a response helper from request context
func Respond(w http.ResponseWriter, r *http.Request) *APIResponse {
	return &APIResponse{w: w, r: r}
}

// SetCacheStatus sets the X-Cache-Status header value
func (a *APIResponse) SetCacheStatus(status string) *APIResponse {
	a.cacheStatus = status
	return a
}

// SetRetryAfter sets the Retry-After header, in seconds
func (a *APIResponse) SetRetryAfter(seconds int) *APIResponse {
	a.retryAfter = seconds
	return a
}

func (a *APIResponse) writeHeaders() {
	a.w.Header().Set("Content-Type", "application/json")

	if a.cacheStatus != "" {
		a.w.Header().Set("X-Cache-Status", a.cacheStatus)
	}
	if a.retryAfter > 0 {
		a.w.Header().Set("Retry-After", fmt.Sprintf("%d", a.retryAfter))
	}
	if tier := middleware.TierFrom(a.r.Context()); tier != "" {
		a.w.Header().Set("X-RateLimit-Type", string(tier))
	}
}

// JSON writes headers and encodes data as JSON (200 OK)
func (a *APIResponse) JSON(data interface{}) error {
	a.writeHeaders()
	return json.NewEncoder(a.w).Encode(data)
}

// Status writes headers, sets status code, and encodes data
func (a *APIResponse) Status(statusCode int, data interface{}) error {
	a.writeHeaders()
	a.w.WriteHeader(statusCode)
	return json.NewEncoder(a.w).Encode(data)
}

// Raw writes an already-encoded JSON body (200 OK)
func (a *APIResponse) Raw(body []byte) error {
	a.writeHeaders()
	_, err := a.w.Write(body)
	return err
}

// Error writes headers, sets status code, and encodes error response
func (a *APIResponse) Error(statusCode int, data interface{}) error {
	return a.Status(statusCode, data)
}

// Fail maps err onto a status code and writes {"error": ...}. Nothing is
// written when the client has gone away.
func (a *APIResponse) Fail(err error) {
	if a.r.Context().Err() != nil || errors.Is(err, context.Canceled) {
		log.Debugf("%s %s %s: client went away", logcolors.LogHTTP, a.r.Method, a.r.URL.Path)
		return
	}

	status := statusForError(err)
	body := map[string]interface{}{"error": err.Error()}

	var playback *innertube.PlaybackError
	switch {
	case errors.Is(err, circuitbreaker.ErrCircuitOpen):
		if catalog != nil {
			a.SetRetryAfter(int(math.Ceil(catalog.Breaker().TimeUntilRetry().Seconds())))
		}
	case errors.As(err, &playback):
		body["status"] = playback.Status
		body["reason"] = playback.Reason
	}

	if status >= http.StatusInternalServerError {
		log.Errorf("%s %s %s failed: %v", logcolors.LogHTTP, a.r.Method, a.r.URL.Path, err)
	}
	a.Error(status, body)
}

// errBadRequest marks caller mistakes (bad query parameters or bodies).
var errBadRequest = errors.New("bad request")

func badRequest(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", errBadRequest, fmt.Sprintf(format, args...))
}

// errCacheOnly is returned when a rate-limited client asks for something
// that is not in the response cache.
var errCacheOnly = errors.New("rate limit exceeded: only cached responses are available")

func statusForError(err error) int {
	var playback *innertube.PlaybackError
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, circuitbreaker.ErrCircuitOpen):
		return http.StatusServiceUnavailable
	case errors.Is(err, innertube.ErrTransport), errors.Is(err, innertube.ErrParse):
		return http.StatusBadGateway
	case errors.As(err, &playback):
		return http.StatusUnprocessableEntity
	case errors.Is(err, errCacheOnly):
		return http.StatusTooManyRequests
	case errors.Is(err, database.ErrSongNotFound),
		errors.Is(err, database.ErrPlaylistNotFound),
		errors.Is(err, utils.ErrBackupNotFound):
		return http.StatusNotFound
	case errors.Is(err, errBadRequest),
		errors.Is(err, database.ErrInvalidSong),
		errors.Is(err, database.ErrInvalidName),
		errors.Is(err, utils.ErrInvalidBackupName):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
