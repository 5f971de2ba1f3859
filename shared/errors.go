package shared

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// ErrorCategory classifies crawl failures by blast radius.
type ErrorCategory string

const (
	// ErrorCategoryNetwork covers list-page fetch and decode failures.
	// These abort the whole crawl run.
	ErrorCategoryNetwork ErrorCategory = "network"
	// ErrorCategoryProcessing covers per-row detail fetch/parse failures.
	// The row continues with absent detail fields.
	ErrorCategoryProcessing ErrorCategory = "processing"
	// ErrorCategoryDatabase covers single-row upsert failures. The run
	// continues with the next row.
	ErrorCategoryDatabase ErrorCategory = "database"
)

// ServiceError carries a failure with its category so callers can decide
// whether to abort or absorb it.
type ServiceError struct {
	Category  ErrorCategory `json:"category"`
	Message   string        `json:"message"`
	Operation string        `json:"operation"`
	Timestamp time.Time     `json:"timestamp"`
	Cause     error         `json:"-"`
}

func (e *ServiceError) Error() string {
	return fmt.Sprintf("[%s] %s: %s", e.Category, e.Operation, e.Message)
}

func (e *ServiceError) Unwrap() error {
	return e.Cause
}

// NewServiceError wraps cause with a category and operation name.
func NewServiceError(category ErrorCategory, operation, message string, cause error) *ServiceError {
	return &ServiceError{
		Category:  category,
		Message:   message,
		Operation: operation,
		Timestamp: time.Now(),
		Cause:     cause,
	}
}

// IsFatal reports whether err should abort the crawl run instead of only
// the current row.
func IsFatal(err error) bool {
	var serviceError *ServiceError
	if errors.As(err, &serviceError) {
		return serviceError.Category == ErrorCategoryNetwork
	}
	return false
}

// LogError emits the error with structured fields.
func (e *ServiceError) LogError() {
	logrus.WithFields(logrus.Fields{
		"error_category": e.Category,
		"operation":      e.Operation,
		"cause":          e.Cause,
	}).Error(e.Message)
}

// BuildBatchErrorSummary renders an aggregate message for a partially
// failed crawl run, limited to a few sample errors.
func BuildBatchErrorSummary(successCount, totalErrorCount int, sampleErrors []error) string {
	var summaryBuilder strings.Builder
	summaryBuilder.WriteString(fmt.Sprintf("crawl completed with %d successes and %d failures", successCount, totalErrorCount))

	sampleSize := len(sampleErrors)
	if sampleSize > 3 {
		sampleSize = 3
	}
	for i := 0; i < sampleSize; i++ {
		summaryBuilder.WriteString(fmt.Sprintf("; %s", sampleErrors[i].Error()))
	}
	if totalErrorCount > sampleSize {
		summaryBuilder.WriteString(fmt.Sprintf("; and %d additional errors", totalErrorCount-sampleSize))
	}

	return summaryBuilder.String()
}
