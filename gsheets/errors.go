package gsheets

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"syscall"

	"google.golang.org/api/googleapi"
)

// ReadError is returned when the source spreadsheet cannot be read (network,
// authorisation or invalid range).
type ReadError struct {
	Spreadsheet string
	Range       string
	Err         error
}

func (e *ReadError) Error() string {
	return fmt.Sprintf("error reading '%v' from spreadsheet %v (%v)", e.Range, e.Spreadsheet, e.Err)
}

func (e *ReadError) Unwrap() error {
	return e.Err
}

// WriteError is returned when the output spreadsheet cannot be updated. Ranges
// lists the ranges of the failed request.
type WriteError struct {
	Spreadsheet string
	Ranges      []string
	Err         error
}

func (e *WriteError) Error() string {
	if len(e.Ranges) == 0 {
		return fmt.Sprintf("error updating spreadsheet %v (%v)", e.Spreadsheet, e.Err)
	}

	return fmt.Sprintf("error updating %v in spreadsheet %v (%v)", strings.Join(e.Ranges, ","), e.Spreadsheet, e.Err)
}

func (e *WriteError) Unwrap() error {
	return e.Err
}

// TransientAPIError wraps a failure that is expected to succeed if retried e.g.
// a rate limit, a 5xx response or a request timeout.
type TransientAPIError struct {
	Op  string
	Err error
}

func (e *TransientAPIError) Error() string {
	return fmt.Sprintf("%v: transient Google Sheets API error (%v)", e.Op, e.Err)
}

func (e *TransientAPIError) Unwrap() error {
	return e.Err
}

// IsTransient returns true for rate limits, server errors and timeouts. A
// deadline that expired because the caller's context expired is not transient.
func IsTransient(ctx context.Context, err error) bool {
	if err == nil || (ctx != nil && ctx.Err() != nil) {
		return false
	}

	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		switch gerr.Code {
		case http.StatusRequestTimeout,
			http.StatusTooManyRequests,
			http.StatusInternalServerError,
			http.StatusBadGateway,
			http.StatusServiceUnavailable,
			http.StatusGatewayTimeout:
			return true

		case http.StatusForbidden:
			for _, item := range gerr.Errors {
				if item.Reason == "rateLimitExceeded" || item.Reason == "userRateLimitExceeded" {
					return true
				}
			}
		}

		return false
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var nerr net.Error
	if errors.As(err, &nerr) && nerr.Timeout() {
		return true
	}

	return errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, syscall.ECONNRESET) || errors.Is(err, syscall.ECONNREFUSED)
}

func readError(ctx context.Context, spreadsheet, area string, err error) error {
	if IsTransient(ctx, err) {
		return &TransientAPIError{Op: "read", Err: &ReadError{Spreadsheet: spreadsheet, Range: area, Err: err}}
	}

	return &ReadError{Spreadsheet: spreadsheet, Range: area, Err: err}
}

func writeError(ctx context.Context, spreadsheet string, ranges []string, err error) error {
	if IsTransient(ctx, err) {
		return &TransientAPIError{Op: "write", Err: &WriteError{Spreadsheet: spreadsheet, Ranges: ranges, Err: err}}
	}

	return &WriteError{Spreadsheet: spreadsheet, Ranges: ranges, Err: err}
}
