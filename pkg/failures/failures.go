// Package failures classifies failed directory operations and recommends how
// to recover from them.
package failures

import (
	"errors"
	"math"
	"net/http"
	"strings"

	"github.com/iancoleman/strcase"

	"github.com/hashicorp-forge/dirsync/pkg/directory"
)

// ErrorType is the server's classification of a failed operation.
type ErrorType string

const (
	Validation ErrorType = "VALIDATION"
	DataFormat ErrorType = "DATA_FORMAT"
	NotFound   ErrorType = "NOT_FOUND"
	Duplicate  ErrorType = "DUPLICATE"
	System     ErrorType = "SYSTEM"
	Unknown    ErrorType = "UNKNOWN"
)

// Known lists the recognised error types in display order.
var Known = []ErrorType{Validation, DataFormat, NotFound, Duplicate, System}

// ParseErrorType normalises a server error type. "dataFormat", "data-format"
// and "DATA_FORMAT" all parse to DataFormat; anything unrecognised is Unknown.
func ParseErrorType(s string) ErrorType {
	t := ErrorType(strcase.ToScreamingSnake(strings.TrimSpace(s)))
	if _, ok := strategies[t]; ok {
		return t
	}
	return Unknown
}

// Strategy describes how to recover from an error type.
type Strategy struct {
	// Retry is true when resubmitting the same data may succeed.
	Retry bool

	// Backoff is true when retries should be spaced out exponentially.
	Backoff bool

	Action          string
	Examples        []string
	Recommendations []string
}

var strategies = map[ErrorType]Strategy{
	Validation: {
		Action:   "Fix data and resubmit",
		Examples: []string{"Duplicate external IDs", "Missing required fields", "Invalid references"},
		Recommendations: []string{
			"Check for duplicate external IDs and missing required fields",
			"Verify parent-child relationships exist",
			"Ensure email addresses are unique",
		},
	},
	DataFormat: {
		Action:   "Correct JSON structure and field names",
		Examples: []string{"Unrecognized field names", "Invalid JSON syntax", "Wrong data types"},
		Recommendations: []string{
			"Verify JSON field names match the expected schema",
			"Check for unrecognized fields in your payload",
			"Ensure data types match requirements",
		},
	},
	NotFound: {
		Retry:    true,
		Action:   "Create missing dependencies first",
		Examples: []string{"Parent department missing", "User type not found"},
		Recommendations: []string{
			"Create missing parent departments first",
			"Verify user types exist in the system",
			"Check external ID references",
		},
	},
	Duplicate: {
		Action:   "Use UPDATE instead of CREATE",
		Examples: []string{"Entity already exists", "Email already registered"},
		Recommendations: []string{
			"Use UPDATE operations instead of CREATE for existing entities",
			"Check for duplicate entries in your source data",
		},
	},
	System: {
		Retry:    true,
		Backoff:  true,
		Action:   "Retry with exponential backoff",
		Examples: []string{"Database timeout", "Network errors", "Service unavailable"},
		Recommendations: []string{
			"Contact support if these errors persist",
			"Check system status and connectivity",
		},
	},
}

var unknownStrategy = Strategy{
	Action:          "Review the error message",
	Recommendations: []string{"Review the specific error messages for guidance"},
}

// StrategyFor returns the recovery strategy for t.
func StrategyFor(t ErrorType) Strategy {
	if s, ok := strategies[t]; ok {
		return s
	}
	return unknownStrategy
}

// Retryable reports whether failures of type t may succeed on resubmission.
func Retryable(t ErrorType) bool {
	return StrategyFor(t).Retry
}

// Recommendations returns the advice for t.
func Recommendations(t ErrorType) []string {
	return StrategyFor(t).Recommendations
}

// Group is the failures sharing one error type.
type Group struct {
	Type     ErrorType
	Failures []directory.Failure
}

// GroupByType groups failures by their normalised error type. Groups appear
// in the order their type was first seen.
func GroupByType(failures []directory.Failure) []Group {
	var groups []Group
	index := map[ErrorType]int{}

	for _, f := range failures {
		t := ParseErrorType(f.ErrorType)
		i, ok := index[t]
		if !ok {
			i = len(groups)
			index[t] = i
			groups = append(groups, Group{Type: t})
		}
		groups[i].Failures = append(groups[i].Failures, f)
	}
	return groups
}

// RetryCandidates returns the failures whose type is retryable.
func RetryCandidates(failures []directory.Failure) []directory.Failure {
	var out []directory.Failure
	for _, f := range failures {
		if Retryable(ParseErrorType(f.ErrorType)) {
			out = append(out, f)
		}
	}
	return out
}

// SuccessRate is completed/total as a rounded percentage. It is zero when
// total is zero.
func SuccessRate(completed, total int) int {
	if total <= 0 {
		return 0
	}
	return int(math.Round(float64(completed) / float64(total) * 100))
}

// Summary condenses a transaction status for reporting.
type Summary struct {
	TransactionID string
	Status        directory.Status
	Total         int
	Completed     int
	Failed        int
	SuccessRate   int
	Groups        []Group
}

// Summarize builds a Summary from a transaction status.
func Summarize(status *directory.TransactionStatus) Summary {
	return Summary{
		TransactionID: status.TransactionID,
		Status:        status.TransactionStatus,
		Total:         status.TotalOperations,
		Completed:     status.CompletedOperations,
		Failed:        status.FailedOperations,
		SuccessRate:   SuccessRate(status.CompletedOperations, status.TotalOperations),
		Groups:        GroupByType(status.Failures),
	}
}

// ClassifyError maps a client error onto an ErrorType so the same
// strategies apply to request failures. Network errors and 5xx responses are
// System; 400 is Validation; 404 is NotFound; 409 is Duplicate.
func ClassifyError(err error) ErrorType {
	var apiErr *directory.APIError
	if !errors.As(err, &apiErr) {
		return Unknown
	}

	switch {
	case apiErr.Kind == directory.KindNetwork, apiErr.StatusCode >= 500:
		return System
	case apiErr.Kind == directory.KindValidation:
		return Validation
	case apiErr.StatusCode == http.StatusNotFound:
		return NotFound
	case apiErr.StatusCode == http.StatusConflict:
		return Duplicate
	default:
		return Unknown
	}
}
