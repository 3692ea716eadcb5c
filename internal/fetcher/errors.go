package fetcher

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorKind separates failures that are worth retrying from those that are
// not.
type ErrorKind int

const (
	// KindTransient covers timeouts, connection resets, throttling, and
	// upstream 5xx responses. Retrying may succeed.
	KindTransient ErrorKind = iota
	// KindPermanent covers unknown symbols, schema mismatches, and other
	// 4xx responses. Retrying cannot succeed.
	KindPermanent
)

// Error is a classified fetch failure.
type Error struct {
	Kind ErrorKind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return e.Op
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

func transientErr(op string, err error) *Error {
	return &Error{Kind: KindTransient, Op: op, Err: err}
}

func permanentErr(op string, err error) *Error {
	return &Error{Kind: KindPermanent, Op: op, Err: err}
}

// IsTransient reports whether err is a retryable fetch failure. Errors that
// carry no classification are treated as permanent.
func IsTransient(err error) bool {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind == KindTransient
	}
	return false
}

// classifyStatus maps an HTTP status to an error kind. Throttling and
// server-side failures may clear up on retry; everything else in the error
// range is final.
func classifyStatus(status int) ErrorKind {
	if status == http.StatusTooManyRequests || status >= http.StatusInternalServerError {
		return KindTransient
	}
	return KindPermanent
}
