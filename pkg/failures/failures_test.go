package failures

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hashicorp-forge/dirsync/pkg/directory"
)

func TestParseErrorType(t *testing.T) {
	tests := map[string]ErrorType{
		"VALIDATION":   Validation,
		"data_format":  DataFormat,
		"notFound":     NotFound,
		"Duplicate":    Duplicate,
		" system ":     System,
		"":             Unknown,
		"QUOTA_EXCEED": Unknown,
	}

	for in, want := range tests {
		t.Run(in, func(t *testing.T) {
			assert.Equal(t, want, ParseErrorType(in))
		})
	}
}

func TestRetryable(t *testing.T) {
	assert.False(t, Retryable(Validation))
	assert.False(t, Retryable(DataFormat))
	assert.True(t, Retryable(NotFound))
	assert.False(t, Retryable(Duplicate))
	assert.True(t, Retryable(System))
	assert.False(t, Retryable(Unknown))

	assert.True(t, StrategyFor(System).Backoff)
	assert.False(t, StrategyFor(NotFound).Backoff)
}

func TestEveryKnownTypeHasStrategy(t *testing.T) {
	for _, typ := range Known {
		s := StrategyFor(typ)
		assert.NotEmpty(t, s.Action, typ)
		assert.NotEmpty(t, s.Examples, typ)
		assert.NotEmpty(t, s.Recommendations, typ)
	}
	assert.Equal(t, []string{"Review the specific error messages for guidance"}, Recommendations(Unknown))
}

func TestGroupByType(t *testing.T) {
	groups := GroupByType([]directory.Failure{
		{OperationID: "1", ErrorType: "NOT_FOUND"},
		{OperationID: "2", ErrorType: "VALIDATION"},
		{OperationID: "3", ErrorType: "notFound"},
		{OperationID: "4", ErrorType: "weird"},
	})

	require.Len(t, groups, 3)
	assert.Equal(t, NotFound, groups[0].Type)
	assert.Len(t, groups[0].Failures, 2)
	assert.Equal(t, Validation, groups[1].Type)
	assert.Equal(t, Unknown, groups[2].Type)

	assert.Nil(t, GroupByType(nil))
}

func TestRetryCandidates(t *testing.T) {
	got := RetryCandidates([]directory.Failure{
		{OperationID: "1", ErrorType: "DUPLICATE"},
		{OperationID: "2", ErrorType: "SYSTEM"},
		{OperationID: "3", ErrorType: "NOT_FOUND"},
	})
	require.Len(t, got, 2)
	assert.Equal(t, "2", got[0].OperationID)
	assert.Equal(t, "3", got[1].OperationID)
}

func TestSuccessRate(t *testing.T) {
	assert.Equal(t, 0, SuccessRate(0, 0))
	assert.Equal(t, 67, SuccessRate(2, 3))
	assert.Equal(t, 100, SuccessRate(5, 5))
}

func TestSummarize(t *testing.T) {
	s := Summarize(&directory.TransactionStatus{
		TransactionID:       "tx",
		TransactionStatus:   directory.StatusFailed,
		TotalOperations:     7,
		CompletedOperations: 5,
		FailedOperations:    2,
		Failures: []directory.Failure{
			{ErrorType: "VALIDATION"},
			{ErrorType: "VALIDATION"},
		},
	})
	assert.Equal(t, 71, s.SuccessRate)
	require.Len(t, s.Groups, 1)
	assert.Len(t, s.Groups[0].Failures, 2)
}

func TestClassifyError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorType
	}{
		{name: "network", err: &directory.APIError{Kind: directory.KindNetwork}, want: System},
		{name: "server", err: &directory.APIError{Kind: directory.KindAPI, StatusCode: 502}, want: System},
		{name: "bad request", err: &directory.APIError{Kind: directory.KindValidation, StatusCode: 400}, want: Validation},
		{name: "not found", err: &directory.APIError{Kind: directory.KindAPI, StatusCode: 404}, want: NotFound},
		{name: "conflict", err: &directory.APIError{Kind: directory.KindAPI, StatusCode: 409}, want: Duplicate},
		{name: "auth", err: &directory.APIError{Kind: directory.KindAuth, StatusCode: 401}, want: Unknown},
		{name: "wrapped", err: fmt.Errorf("commit: %w", &directory.APIError{Kind: directory.KindAPI, StatusCode: 503}), want: System},
		{name: "plain", err: errors.New("x"), want: Unknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ClassifyError(tt.err))
		})
	}
}
