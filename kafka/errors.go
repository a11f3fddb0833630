package kafka

import (
	"context"
	"errors"
	"strings"

	kafkago "github.com/segmentio/kafka-go"
)

var connectionPatterns = []string{
	"connection refused",
	"connection reset",
	"broken pipe",
	"i/o timeout",
	"no route to host",
	"network is unreachable",
	"broker not available",
	"leader not available",
	"connection closed",
	"dial tcp",
}

var transientPatterns = []string{
	"temporary",
	"request timed out",
	"not enough replicas",
}

var permanentPatterns = []string{
	"message too large",
	"message size too large",
	"invalid topic",
	"unknown topic",
	"authorization failed",
	"sasl authentication failed",
}

func matchAny(err error, patterns []string) bool {
	msg := strings.ToLower(err.Error())
	for _, p := range patterns {
		if strings.Contains(msg, p) {
			return true
		}
	}
	return false
}

// IsConnectionError reports broker connectivity failures.
func IsConnectionError(err error) bool {
	return err != nil && matchAny(err, connectionPatterns)
}

// IsNonRetryableError reports errors that will fail again on retry.
func IsNonRetryableError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return true
	}
	var kerr kafkago.Error
	if errors.As(err, &kerr) && !kerr.Temporary() {
		return true
	}
	return matchAny(err, permanentPatterns)
}

// IsRetryableError reports transient write failures worth another attempt.
func IsRetryableError(err error) bool {
	if err == nil || IsNonRetryableError(err) {
		return false
	}
	var kerr kafkago.Error
	if errors.As(err, &kerr) && kerr.Temporary() {
		return true
	}
	return IsConnectionError(err) || matchAny(err, transientPatterns)
}
