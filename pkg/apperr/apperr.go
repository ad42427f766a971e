package apperr

import (
	"errors"
	"fmt"
	"strings"
)

// Kind 错误分类
type Kind int

const (
	KindInternal Kind = iota
	KindUnauthenticated
	KindForbidden
	KindValidation
	KindNotFound
	KindInvalidTransition
	KindConflict
	KindUnavailable
)

func (k Kind) String() string {
	switch k {
	case KindUnauthenticated:
		return "unauthenticated"
	case KindForbidden:
		return "forbidden"
	case KindValidation:
		return "validation"
	case KindNotFound:
		return "not_found"
	case KindInvalidTransition:
		return "invalid_transition"
	case KindConflict:
		return "conflict"
	case KindUnavailable:
		return "unavailable"
	default:
		return "internal"
	}
}

// Validation reasons
const (
	ReasonMissingFields    = "missing_fields"
	ReasonInvalidDateRange = "invalid_date_range"
	ReasonInvalidValue     = "invalid_value"
)

// Error 业务错误，handler 根据 Kind 映射 HTTP 状态码
type Error struct {
	Kind       Kind
	Message    string
	Permission string   // Forbidden
	Reason     string   // Validation
	Fields     []string // Validation
	From, To   string   // InvalidTransition
	Err        error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

func Unauthenticated() *Error {
	return &Error{Kind: KindUnauthenticated, Message: "user not authenticated"}
}

func Forbidden(permission string) *Error {
	return &Error{
		Kind:       KindForbidden,
		Message:    fmt.Sprintf("permission %q required", permission),
		Permission: permission,
	}
}

func MissingFields(fields ...string) *Error {
	return &Error{
		Kind:    KindValidation,
		Message: "missing required fields: " + strings.Join(fields, ", "),
		Reason:  ReasonMissingFields,
		Fields:  fields,
	}
}

func InvalidDateRange(fields ...string) *Error {
	return &Error{
		Kind:    KindValidation,
		Message: "invalid date range: " + strings.Join(fields, ", "),
		Reason:  ReasonInvalidDateRange,
		Fields:  fields,
	}
}

func InvalidValue(field, msg string) *Error {
	return &Error{
		Kind:    KindValidation,
		Message: fmt.Sprintf("invalid %s: %s", field, msg),
		Reason:  ReasonInvalidValue,
		Fields:  []string{field},
	}
}

func NotFound(entity string, id int) *Error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf("%s %d not found", entity, id)}
}

func InvalidTransition(from, to string) *Error {
	return &Error{
		Kind:    KindInvalidTransition,
		Message: fmt.Sprintf("cannot change status from %s to %s", from, to),
		From:    from,
		To:      to,
	}
}

func Conflict(msg string) *Error {
	return &Error{Kind: KindConflict, Message: msg}
}

func Unavailable(msg string, err error) *Error {
	return &Error{Kind: KindUnavailable, Message: msg, Err: err}
}

// KindOf 返回错误链中第一个 *Error 的 Kind，否则 KindInternal
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// Is 判断错误是否属于指定分类
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// As 取出错误链中的 *Error
func As(err error) (*Error, bool) {
	var e *Error
	ok := errors.As(err, &e)
	return e, ok
}
