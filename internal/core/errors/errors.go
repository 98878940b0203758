package errors

import (
	"errors"
	"fmt"
)

type ErrorCode string

const (
	CodeConfig       ErrorCode = "CONFIG_ERROR"
	CodeNotFound     ErrorCode = "NOT_FOUND"
	CodeValidation   ErrorCode = "VALIDATION_ERROR"
	CodeInternal     ErrorCode = "INTERNAL_ERROR"
	CodeNotSupported ErrorCode = "NOT_SUPPORTED"
)

type DomainError struct {
	Code    ErrorCode
	Message string
	Err     error
	Context map[string]interface{}
}

const (
	CtxLanguage = "language"
	CtxField    = "field"
	CtxPattern  = "pattern"
	CtxPath     = "path"
	CtxGrammar  = "grammar"
)

func (e *DomainError) WithContext(key string, value interface{}) *DomainError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

func (e *DomainError) Error() string {
	msg := fmt.Sprintf("[%s] %s", e.Code, e.Message)
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	if len(e.Context) > 0 {
		msg += fmt.Sprintf(" %v", e.Context)
	}
	return msg
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

func New(code ErrorCode, msg string) error {
	return &DomainError{Code: code, Message: msg}
}

func Newf(code ErrorCode, format string, args ...interface{}) error {
	return &DomainError{Code: code, Message: fmt.Sprintf(format, args...)}
}

func Wrap(err error, code ErrorCode, msg string) error {
	return &DomainError{Code: code, Message: msg, Err: err}
}

// ConfigError builds the fatal startup-time error the catalog loader reports
// for a broken descriptor. The language id and offending field are carried
// as context so the failing record can be identified from the message alone.
func ConfigError(language, field, msg string) error {
	e := &DomainError{Code: CodeConfig, Message: msg}
	if language != "" {
		e.WithContext(CtxLanguage, language)
	}
	if field != "" {
		e.WithContext(CtxField, field)
	}
	return e
}

func IsCode(err error, code ErrorCode) bool {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Code == code
	}
	return false
}
