package session

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrPermission: the user has to grant microphone access before retrying.
	ErrPermission = errors.New("microphone permission denied")
	// ErrCapture: device or recognition failure; a fresh tap retries.
	ErrCapture = errors.New("could not listen")
)

// CaptureError is a classified speech capture failure.
type CaptureError struct {
	Permission bool
	Err        error
}

func (e *CaptureError) Error() string {
	return fmt.Sprintf("%v: %v", e.kind(), e.Err)
}

func (e *CaptureError) Unwrap() []error {
	return []error{e.kind(), e.Err}
}

func (e *CaptureError) kind() error {
	if e.Permission {
		return ErrPermission
	}
	return ErrCapture
}

// permissionKeywords are matched against the lowercased error text of
// capture backends that do not return typed errors.
var permissionKeywords = []string{
	"permission",
	"microphone",
	"notallowed",
	"not allowed",
	"denied",
}

// ClassifyCapture turns a capture failure into a *CaptureError. Errors that
// implement PermissionDenied() bool are trusted, anything else is judged by
// its message.
func ClassifyCapture(err error) *CaptureError {
	var ce *CaptureError
	if errors.As(err, &ce) {
		return ce
	}

	var pd interface{ PermissionDenied() bool }
	if errors.As(err, &pd) && pd.PermissionDenied() {
		return &CaptureError{Permission: true, Err: err}
	}

	msg := strings.ToLower(err.Error())
	for _, kw := range permissionKeywords {
		if strings.Contains(msg, kw) {
			return &CaptureError{Permission: true, Err: err}
		}
	}

	return &CaptureError{Err: err}
}

// ToastKind tells the UI which message family a toast belongs to.
type ToastKind uint8

const (
	ToastPermission ToastKind = iota + 1
	ToastCapture
)

func (k ToastKind) String() string {
	switch k {
	case ToastPermission:
		return "permission"
	case ToastCapture:
		return "capture"
	default:
		return "unknown"
	}
}

type Toast struct {
	Kind    ToastKind
	Message string
}
