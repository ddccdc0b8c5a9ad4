package utils

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// ErrorKind classifies engine failures so callers can decide retry vs abort.
type ErrorKind string

const (
	KindValidation         ErrorKind = "validation_error"    // Malformed input, never retried
	KindConflict           ErrorKind = "conflict_error"      // Date range no longer free
	KindCouponRejected     ErrorKind = "coupon_rejected"     // Expired, scope mismatch, exhausted
	KindPricingUnavailable ErrorKind = "pricing_unavailable" // Rate data missing, hard stop
	KindPaymentTimeout     ErrorKind = "payment_timeout"     // Reclaimed by the expiry sweep
	KindNotFound           ErrorKind = "not_found"
	KindInternal           ErrorKind = "internal_error"
)

// DomainError carries a kind plus a human-readable message.
type DomainError struct {
	Kind    ErrorKind
	Message string
	Err     error // Wrapped cause, optional
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *DomainError) Unwrap() error { return e.Err }

// NewDomainError builds a DomainError with a formatted message.
func NewDomainError(kind ErrorKind, format string, args ...any) *DomainError {
	return &DomainError{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// WrapDomainError attaches a cause to a kinded error.
func WrapDomainError(kind ErrorKind, err error, format string, args ...any) *DomainError {
	return &DomainError{Kind: kind, Message: fmt.Sprintf(format, args...), Err: err}
}

// KindOf extracts the kind from an error chain, defaulting to internal.
func KindOf(err error) ErrorKind {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Kind
	}
	return KindInternal
}

// IsKind reports whether the error chain carries the given kind.
func IsKind(err error, kind ErrorKind) bool {
	return KindOf(err) == kind
}

// httpStatus maps error kinds to response codes.
func httpStatus(kind ErrorKind) int {
	switch kind {
	case KindValidation:
		return http.StatusBadRequest
	case KindConflict:
		return http.StatusConflict
	case KindCouponRejected:
		return http.StatusUnprocessableEntity
	case KindPricingUnavailable:
		return http.StatusServiceUnavailable
	case KindPaymentTimeout:
		return http.StatusGatewayTimeout
	case KindNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// ErrorResponse defines the structure of error responses
type ErrorResponse struct {
	Kind    ErrorKind `json:"kind,omitempty"`
	Message string    `json:"message"`
	Details string    `json:"details,omitempty"`
}

// ErrorHandler is a middleware to catch panics and return structured errors
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				Logger := GetLogger()
				Logger.Error("Unhandled panic", zap.Any("error", err))

				c.JSON(http.StatusInternalServerError, ErrorResponse{
					Kind:    KindInternal,
					Message: "Internal Server Error",
					Details: "An unexpected error occurred. Please try again later.",
				})
				c.Abort()
			}
		}()
		c.Next()
	}
}

// JSONError sends a standardized JSON error response
func JSONError(c *gin.Context, status int, message string, details string) {
	Logger := GetLogger()
	Logger.Warn(message, zap.String("details", details))
	c.JSON(status, ErrorResponse{Message: message, Details: details})
}

// RespondError renders a domain error with the status its kind implies.
func RespondError(c *gin.Context, err error) {
	kind := KindOf(err)
	var de *DomainError
	resp := ErrorResponse{Kind: kind}
	if errors.As(err, &de) {
		resp.Message = de.Message
		if de.Err != nil {
			resp.Details = de.Err.Error()
		}
	} else {
		resp.Message = err.Error()
	}
	if kind == KindInternal {
		GetLogger().Error("request failed", zap.Error(err))
	}
	c.JSON(httpStatus(kind), resp)
}
