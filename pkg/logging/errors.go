// bouchon/pkg/logging/errors.go

package logging

import (
	"errors"
	"fmt"

	"github.com/rs/zerolog"
)

type ErrorType string

const (
	ErrorTypeDuplicateName ErrorType = "DUPLICATE_NAME"
	ErrorTypeNotFound      ErrorType = "NOT_FOUND"
	ErrorTypeIndexRange    ErrorType = "INDEX_RANGE"
	ErrorTypeCaptureFormat ErrorType = "CAPTURE_FORMAT"
	ErrorTypeCodec         ErrorType = "CODEC"
)

// BouchonError is the terminal error for every failed operation. The Type is
// stable across releases; clients dispatch on it, not on the message.
type BouchonError struct {
	Type    ErrorType
	Message string
	Err     error
	Fields  map[string]interface{}
}

func (e *BouchonError) Error() string {
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

func (e *BouchonError) Unwrap() error {
	return e.Err
}

func NewError(errType ErrorType, message string, err error, fields map[string]interface{}) *BouchonError {
	return &BouchonError{
		Type:    errType,
		Message: message,
		Err:     err,
		Fields:  fields,
	}
}

// TypeOf returns the error type, or "" if err is not a BouchonError.
func TypeOf(err error) ErrorType {
	var be *BouchonError
	if errors.As(err, &be) {
		return be.Type
	}
	return ""
}

func IsDuplicateName(err error) bool { return TypeOf(err) == ErrorTypeDuplicateName }
func IsNotFound(err error) bool      { return TypeOf(err) == ErrorTypeNotFound }
func IsIndexRange(err error) bool    { return TypeOf(err) == ErrorTypeIndexRange }
func IsCaptureFormat(err error) bool { return TypeOf(err) == ErrorTypeCaptureFormat }
func IsCodec(err error) bool         { return TypeOf(err) == ErrorTypeCodec }

func LogError(logger zerolog.Logger, err error) {
	var be *BouchonError
	if !errors.As(err, &be) {
		logger.Error().Err(err).Msg(err.Error())
		return
	}

	event := logger.Error().Err(be.Err).
		Str("error_type", string(be.Type)).
		Str("message", be.Message)

	for k, v := range be.Fields {
		event = event.Interface(k, v)
	}

	event.Msg(be.Message)
}
