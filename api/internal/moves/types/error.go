package types

import (
	"context"
	"errors"
)

const (
	CodeInvalidInput = "invalid_input"
	CodeReadFailed   = "read_failed"
	CodeModelFailure = "model_failure"
	CodeBadResponse  = "bad_response"
	CodeTimeout      = "timeout"
)

const (
	MsgModelFailure = "Failed to get a response from the AI model."
	MsgBadResponse  = "Failed to parse AI response as JSON."
	MsgTimeout      = "The AI model did not answer in time."
	MsgReadFailed   = "Failed to read image file."
)

type DomainError struct {
	Code      string
	Message   string
	Retryable bool
	Err       error
}

func (e *DomainError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Code != "" {
		return e.Code
	}
	return "chess moves error"
}

func (e *DomainError) Unwrap() error { return e.Err }

func InvalidInput(msg string) *DomainError {
	return &DomainError{Code: CodeInvalidInput, Message: msg}
}

func ModelFailure(err error) *DomainError {
	if errors.Is(err, context.DeadlineExceeded) {
		return &DomainError{Code: CodeTimeout, Message: MsgTimeout, Err: err}
	}
	return &DomainError{Code: CodeModelFailure, Message: MsgModelFailure, Retryable: true, Err: err}
}

func BadResponse(err error) *DomainError {
	return &DomainError{Code: CodeBadResponse, Message: MsgBadResponse, Err: err}
}

// CodeOf returns the DomainError code of err, or CodeModelFailure for anything else.
func CodeOf(err error) string {
	var de *DomainError
	if errors.As(err, &de) && de.Code != "" {
		return de.Code
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return CodeTimeout
	}
	return CodeModelFailure
}
