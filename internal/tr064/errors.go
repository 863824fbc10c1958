package tr064

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// Reason classifies why a remote call failed. It only feeds diagnostics.
type Reason string

const (
	ReasonUnreachable          Reason = "unreachable"
	ReasonAuthenticationFailed Reason = "authentication_failed"
	ReasonMalformedResponse    Reason = "malformed_response"
	ReasonTimeout              Reason = "timeout"
	ReasonFault                Reason = "fault"
	ReasonUnknownService       Reason = "unknown_service"
)

// Error is returned by every failing Call.
type Error struct {
	Reason Reason
	Call   string
	Err    error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Call, e.Reason, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// ReasonOf returns the reason of a failed call, or "" for foreign errors.
func ReasonOf(err error) Reason {
	var e *Error
	if errors.As(err, &e) {
		return e.Reason
	}
	return ""
}

// Fault is a SOAP fault returned by the device.
type Fault struct {
	Code        string
	Description string
}

func (f *Fault) Error() string {
	return fmt.Sprintf("UPnP error %s: %s", f.Code, f.Description)
}

func transportError(call string, err error) *Error {
	reason := ReasonUnreachable

	var ne net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &ne) && ne.Timeout()) {
		reason = ReasonTimeout
	}

	return &Error{Reason: reason, Call: call, Err: err}
}

func faultError(call string, f *Fault) *Error {
	reason := ReasonFault
	// 401 invalid action credentials, 606 action not authorized
	if f.Code == "401" || f.Code == "606" {
		reason = ReasonAuthenticationFailed
	}

	return &Error{Reason: reason, Call: call, Err: f}
}
