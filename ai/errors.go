package ai

import (
	"errors"
	"fmt"
)

// ErrorKind classifies provider failures so callers can branch on them
type ErrorKind int

const (
	KindUnknown ErrorKind = iota
	KindTransport
	KindAuth
	KindNoModels
	KindSubmission
	KindGenerationFailed
	KindEmptyResult
	KindTimeout
	KindDecode
)

func (k ErrorKind) String() string {
	switch k {
	case KindTransport:
		return "transport error"
	case KindAuth:
		return "auth error"
	case KindNoModels:
		return "no models available"
	case KindSubmission:
		return "submission error"
	case KindGenerationFailed:
		return "generation failed"
	case KindEmptyResult:
		return "empty result"
	case KindTimeout:
		return "generation timeout"
	case KindDecode:
		return "decode error"
	default:
		return "unknown error"
	}
}

// Error is returned by every failing step of the Kandinsky client
type Error struct {
	Kind        ErrorKind
	Op          string
	Status      int
	Description string
	Err         error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Op, e.Kind)
	if e.Status != 0 {
		msg += fmt.Sprintf(" (status %d)", e.Status)
	}
	if e.Description != "" {
		msg += ": " + e.Description
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf returns KindUnknown for errors that did not come from the client
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

func IsKind(err error, kind ErrorKind) bool {
	return err != nil && KindOf(err) == kind
}
