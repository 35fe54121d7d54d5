package errors

import (
	"errors"
	"fmt"
	"strings"
)

type ErrorCode string

const (
	CodeNotFound        ErrorCode = "NOT_FOUND"
	CodeValidationError ErrorCode = "VALIDATION_ERROR"
	CodeInternal        ErrorCode = "INTERNAL_ERROR"
	CodeNotSupported    ErrorCode = "NOT_SUPPORTED"
	CodeParseError      ErrorCode = "PARSE_ERROR"
	CodeStorage         ErrorCode = "STORAGE_ERROR"
)

// Context keys attached by the analysis pipeline.
const (
	CtxPath      = "path"
	CtxOperation = "operation"
	CtxLanguage  = "language"
	CtxSpecifier = "specifier"
)

// Field is one piece of context, kept in the order it was attached.
type Field struct {
	Key   string
	Value any
}

// DomainError carries a code that callers branch on and the context of the
// module or specifier being processed. Values are treated as immutable.
type DomainError struct {
	Code    ErrorCode
	Message string
	Err     error
	Context []Field
}

func (e *DomainError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "[%s] %s", e.Code, e.Message)
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	for _, f := range e.Context {
		fmt.Fprintf(&b, " %s=%v", f.Key, f.Value)
	}
	return b.String()
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

// Lookup returns the most recently attached value for key.
func (e *DomainError) Lookup(key string) (any, bool) {
	for i := len(e.Context) - 1; i >= 0; i-- {
		if e.Context[i].Key == key {
			return e.Context[i].Value, true
		}
	}
	return nil, false
}

func New(code ErrorCode, msg string) error {
	return &DomainError{Code: code, Message: msg}
}

func Wrap(err error, code ErrorCode, msg string) error {
	return &DomainError{Code: code, Message: msg, Err: err}
}

// AddContext returns err with key=value attached. A DomainError is copied
// rather than modified; any other error is wrapped, keeping the code of the
// nearest DomainError in its chain or CodeInternal.
func AddContext(err error, key string, value any) error {
	if err == nil {
		return nil
	}
	if de, ok := err.(*DomainError); ok {
		cp := *de
		cp.Context = append(append([]Field(nil), de.Context...), Field{Key: key, Value: value})
		return &cp
	}
	return &DomainError{
		Code:    CodeOf(err),
		Message: "wrapped error",
		Err:     err,
		Context: []Field{{Key: key, Value: value}},
	}
}

// CodeOf returns the code of the nearest DomainError in err's chain, or
// CodeInternal.
func CodeOf(err error) ErrorCode {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Code
	}
	return CodeInternal
}

// ContextValue looks up key in the context of every DomainError in err's
// chain, outermost first.
func ContextValue(err error, key string) (any, bool) {
	for err != nil {
		if de, ok := err.(*DomainError); ok {
			if v, ok := de.Lookup(key); ok {
				return v, true
			}
		}
		err = errors.Unwrap(err)
	}
	return nil, false
}

func IsCode(err error, code ErrorCode) bool {
	var de *DomainError
	return errors.As(err, &de) && de.Code == code
}
