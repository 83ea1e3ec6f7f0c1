package engine

import (
	"context"
	"errors"
	"io/fs"
	"net"
	"net/http"
	"net/url"

	"github.com/sitebox/sitebox/internal/sitesdk"
)

// ErrorKind groups raw failures into the buckets the UI and the retry gate
// care about.
type ErrorKind string

const (
	KindAuth         ErrorKind = "AUTH"
	KindNetwork      ErrorKind = "NETWORK"
	KindRateLimit    ErrorKind = "RATE_LIMIT"
	KindNameConflict ErrorKind = "NAME_CONFLICT"
	KindValidation   ErrorKind = "VALIDATION"
	KindNotFound     ErrorKind = "NOT_FOUND"
	KindServer       ErrorKind = "SERVER"
	KindFileAccess   ErrorKind = "FILE_ACCESS"
	KindUnknown      ErrorKind = "UNKNOWN"
)

// Priority shapes how prominently the UI surfaces a failure.
type Priority string

const (
	PriorityCritical Priority = "CRITICAL"
	PriorityHigh     Priority = "HIGH"
	PriorityMedium   Priority = "MEDIUM"
	PriorityLow      Priority = "LOW"
)

// Classification is the (kind, priority, retryable) triple driving the
// retry gate and UI priority.
type Classification struct {
	Kind      ErrorKind
	Priority  Priority
	Retryable bool
}

// Classify maps a raised error to its classification. Only transient
// failures (network, rate limit, server 5xx) are retryable.
func Classify(err error) Classification {
	var apiErr *sitesdk.APIError
	if errors.As(err, &apiErr) {
		return classifyStatus(apiErr.StatusCode)
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return Classification{Kind: KindNetwork, Priority: PriorityMedium, Retryable: true}
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return Classification{Kind: KindNetwork, Priority: PriorityMedium, Retryable: true}
	}

	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return Classification{Kind: KindNetwork, Priority: PriorityMedium, Retryable: true}
	}

	var pathErr *fs.PathError
	if errors.As(err, &pathErr) || errors.Is(err, fs.ErrNotExist) || errors.Is(err, fs.ErrPermission) {
		return Classification{Kind: KindFileAccess, Priority: PriorityMedium, Retryable: false}
	}

	return Classification{Kind: KindUnknown, Priority: PriorityLow, Retryable: false}
}

func classifyStatus(status int) Classification {
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return Classification{Kind: KindAuth, Priority: PriorityCritical, Retryable: false}
	case status == http.StatusNotFound:
		return Classification{Kind: KindNotFound, Priority: PriorityLow, Retryable: false}
	case status == http.StatusConflict:
		return Classification{Kind: KindNameConflict, Priority: PriorityHigh, Retryable: false}
	case status == http.StatusTooManyRequests:
		return Classification{Kind: KindRateLimit, Priority: PriorityMedium, Retryable: true}
	case status == http.StatusBadRequest || status == http.StatusUnprocessableEntity:
		return Classification{Kind: KindValidation, Priority: PriorityHigh, Retryable: false}
	case status >= 500:
		return Classification{Kind: KindServer, Priority: PriorityHigh, Retryable: true}
	default:
		return Classification{Kind: KindUnknown, Priority: PriorityLow, Retryable: false}
	}
}
