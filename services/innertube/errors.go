package innertube

import (
	"errors"
	"fmt"
)

var (
	// ErrTransport marks failures to reach the catalog or non-2xx replies.
	ErrTransport = errors.New("innertube: transport failure")
	// ErrParse marks replies that could not be decoded or lacked required structure.
	ErrParse = errors.New("innertube: parse failure")
)

// FetchError describes a failed catalog request. It matches ErrTransport or
// ErrParse through errors.Is and unwraps to the underlying cause.
type FetchError struct {
	Kind       error
	Endpoint   string
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%v: %s: status %d", e.Kind, e.Endpoint, e.StatusCode)
	}
	if e.Err != nil {
		return fmt.Sprintf("%v: %s: %v", e.Kind, e.Endpoint, e.Err)
	}
	return fmt.Sprintf("%v: %s", e.Kind, e.Endpoint)
}

func (e *FetchError) Is(target error) bool {
	return target == e.Kind
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

func transportError(endpoint string, status int, err error) error {
	return &FetchError{Kind: ErrTransport, Endpoint: endpoint, StatusCode: status, Err: err}
}

func parseError(endpoint string, err error) error {
	return &FetchError{Kind: ErrParse, Endpoint: endpoint, Err: err}
}

// PlaybackError reports a player response whose playability status is not OK.
type PlaybackError struct {
	VideoID string
	Status  string
	Reason  string
}

func (e *PlaybackError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("video %s not playable: %s (%s)", e.VideoID, e.Status, e.Reason)
	}
	return fmt.Sprintf("video %s not playable: %s", e.VideoID, e.Status)
}
