package util

import (
	"context"
	"encoding/json"
	"errors"
	"net"

	"tasktracker/pkg/apperr"
	"tasktracker/pkg/circuitbreaker"
)

// IsRetryableError 判断消费失败是否值得重新入队
// 返回: (isRetryable, errorType)
func IsRetryableError(err error) (bool, string) {
	if err == nil {
		return false, ""
	}

	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &syntaxErr) || errors.As(err, &typeErr) {
		return false, "json_decode_error"
	}

	if errors.Is(err, circuitbreaker.ErrCircuitBreakerOpen) {
		return true, "circuit_open"
	}

	switch apperr.KindOf(err) {
	case apperr.KindNotFound:
		return false, "not_found"
	case apperr.KindValidation:
		return false, "validation_error"
	case apperr.KindConflict:
		// 唯一约束冲突 - 重试也不会成功
		return false, "duplicate_key"
	case apperr.KindUnavailable:
		return true, "store_unavailable"
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return true, "timeout"
	}
	if errors.Is(err, context.Canceled) {
		return false, "context_canceled"
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			return true, "network_timeout"
		}
		return true, "network_error"
	}

	// 未知错误，保守处理 - 不重试
	return false, "unknown_error"
}

// ShouldRetry 结合重试次数判断是否重试
func ShouldRetry(retryCount int64, maxRetries int64, isRetryable bool) bool {
	if !isRetryable {
		return false
	}
	return retryCount <= maxRetries
}
