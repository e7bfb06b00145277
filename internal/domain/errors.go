package domain

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind is the categorical error reported across the HTTP boundary.
type Kind string

const (
	KindUnauthenticated   Kind = "UNAUTHENTICATED"
	KindForbidden         Kind = "FORBIDDEN"
	KindNotFound          Kind = "NOT_FOUND"
	KindDuplicateCode     Kind = "DUPLICATE_CODE"
	KindDuplicateUID      Kind = "DUPLICATE_UID"
	KindInsufficientStock Kind = "INSUFFICIENT_STOCK"
	KindValidationFailed  Kind = "VALIDATION_FAILED"
	KindUnknownArticle    Kind = "UNKNOWN_ARTICLE"
	KindInactiveArticle   Kind = "INACTIVE_ARTICLE"
	KindShopIsDepot       Kind = "SHOP_IS_DEPOT"
	KindInternal          Kind = "INTERNAL_ERROR"
)

// Status is the fixed HTTP status of a kind.
func (k Kind) Status() int {
	switch k {
	case KindUnauthenticated:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	case KindDuplicateCode:
		return http.StatusConflict
	case KindDuplicateUID:
		return http.StatusOK
	case KindInsufficientStock, KindValidationFailed, KindUnknownArticle, KindInactiveArticle, KindShopIsDepot:
		return http.StatusUnprocessableEntity
	case KindInternal:
		return http.StatusInternalServerError
	}
	return http.StatusInternalServerError
}

type Error struct {
	Kind    Kind
	Message string
	Details map[string]any
}

func (e *Error) Error() string { return string(e.Kind) + ": " + e.Message }

// With attaches a detail and returns the same error for chaining.
func (e *Error) With(key string, v any) *Error {
	if e.Details == nil {
		e.Details = map[string]any{}
	}
	e.Details[key] = v
	return e
}

func E(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func Unauthenticated(msg string) *Error { return E(KindUnauthenticated, "%s", msg) }
func Forbidden(msg string) *Error       { return E(KindForbidden, "%s", msg) }
func NotFound(what string) *Error       { return E(KindNotFound, "%s not found", what) }
func Invalid(format string, args ...any) *Error {
	return E(KindValidationFailed, format, args...)
}

// Inactive is reported as FORBIDDEN with reason INACTIVE.
func Inactive(what string) *Error {
	return E(KindForbidden, "%s is inactive", what).With("reason", "INACTIVE")
}

// InsufficientStock carries the article and the figures the caller needs to react.
func InsufficientStock(articleID int64, name string, available, requested int) *Error {
	return E(KindInsufficientStock, "insufficient stock for %s: available %d, requested %d", name, available, requested).
		With("article_id", articleID).
		With("article_name", name).
		With("available", available).
		With("requested", requested)
}

// KindOf returns INTERNAL_ERROR for anything that is not a domain error.
func KindOf(err error) Kind {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return KindInternal
}

func AsError(err error) (*Error, bool) {
	var de *Error
	ok := errors.As(err, &de)
	return de, ok
}

// IsKind reports whether err is a domain error of kind k.
func IsKind(err error, k Kind) bool {
	de, ok := AsError(err)
	return ok && de.Kind == k
}
