// Package api
// Author: momentics <momentics@gmail.com>
//
// Common error types and error handling utilities for hioload-udp.
// Every failing operation returns a structured error value; there is
// no process-wide "last error" side channel.

package api

import (
	"fmt"
	"syscall"
)

// Common errors used across the library.
var (
	ErrClosed          = fmt.Errorf("handle is closed")
	ErrNotSupported    = fmt.Errorf("operation not supported on this platform")
	ErrInvalidArgument = fmt.Errorf("invalid argument")
	ErrAlreadyBound    = fmt.Errorf("handle is already bound")
	ErrLoopClosed      = fmt.Errorf("reactor loop is closed")
)

// ErrorCode represents specific error conditions in the library.
type ErrorCode int

const (
	ErrCodeOK ErrorCode = iota
	ErrCodeInvalidArgument
	ErrCodeClosed
	ErrCodeNotSupported
	ErrCodeOS
)

// Error is a structured error carrying an operation name and, for
// OS-level failures, the raw errno reported by the kernel.
type Error struct {
	Code    ErrorCode
	Op      string
	Message string
	Errno   syscall.Errno
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Errno != 0 {
		return fmt.Sprintf("%s: %s (errno %d: %s)", e.Op, e.Message, int(e.Errno), e.Errno.Error())
	}
	if e.Op != "" {
		return fmt.Sprintf("%s: %s", e.Op, e.Message)
	}
	return e.Message
}

// Unwrap exposes the errno so callers can match with errors.Is
// against syscall/unix constants.
func (e *Error) Unwrap() error {
	if e.Errno != 0 {
		return e.Errno
	}
	return nil
}

// NewError creates a new structured error.
func NewError(code ErrorCode, op, message string) *Error {
	return &Error{Code: code, Op: op, Message: message}
}

// NewOSError wraps an errno reported by a failed syscall.
func NewOSError(op string, errno syscall.Errno) *Error {
	return &Error{Code: ErrCodeOS, Op: op, Message: "system call failed", Errno: errno}
}
