// logicbits/pkg/logging/errors.go

package logging

import (
	"errors"
	"fmt"

	"github.com/rs/zerolog"
)

type ErrorType string

const (
	ErrorTypeConfig  ErrorType = "CONFIG"
	ErrorTypeResolve ErrorType = "RESOLVE"
	ErrorTypeParse   ErrorType = "PARSE"
	ErrorTypeCompile ErrorType = "COMPILE"
	ErrorTypeRuntime ErrorType = "RUNTIME"
	ErrorTypeStore   ErrorType = "STORE"
)

// Error is the structured error returned by construction-time failures.
// Fields are copied into the log event by LogError.
type Error struct {
	Type    ErrorType
	Message string
	Err     error
	Fields  map[string]interface{}
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func NewError(errType ErrorType, message string, err error, fields map[string]interface{}) *Error {
	return &Error{
		Type:    errType,
		Message: message,
		Err:     err,
		Fields:  fields,
	}
}

// IsType reports whether any *Error in err's chain has the given type.
func IsType(err error, errType ErrorType) bool {
	var e *Error
	for err != nil {
		if !errors.As(err, &e) {
			return false
		}
		if e.Type == errType {
			return true
		}
		err = e.Err
	}
	return false
}

func LogError(logger zerolog.Logger, err error) {
	var lbErr *Error
	if !errors.As(err, &lbErr) {
		logger.Error().Err(err).Msg(err.Error())
		return
	}

	event := logger.Error().Err(lbErr.Err).
		Str("error_type", string(lbErr.Type)).
		Str("message", lbErr.Message)

	for k, v := range lbErr.Fields {
		event = event.Interface(k, v)
	}

	event.Msg(lbErr.Message)
}
