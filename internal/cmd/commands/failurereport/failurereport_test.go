package failurereport

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hashicorp-forge/dirsync/internal/cmd/cmdtest"
	"github.com/hashicorp-forge/dirsync/pkg/directory"
)

func TestStrategies(t *testing.T) {
	h := cmdtest.New(t, nil)

	code := (&Command{Command: h.Command}).Run([]string{"-strategies"})
	require.Equal(t, 0, code, h.Errors())

	out := h.Output()
	assert.Contains(t, out, "Fix data and resubmit")
	assert.Contains(t, out, "yes, with backoff")
	assert.Contains(t, out, "Create missing dependencies first")
}

func TestFailuresOfTransaction(t *testing.T) {
	api := cmdtest.NewAPI(t)
	api.JSON("GET /provisioning/directory/transaction/tx-1/status", http.StatusOK, directory.TransactionStatus{
		TransactionID:       "tx-1",
		TransactionStatus:   directory.StatusCompleted,
		TotalOperations:     5,
		CompletedOperations: 2,
		FailedOperations:    3,
		Failures: []directory.Failure{
			{OperationID: "op-1", OperationType: "USER", OperationAction: "CREATE", ExternalID: "emp-001",
				ErrorType: "VALIDATION", ErrorMessage: "Email already registered"},
			{OperationID: "op-2", OperationType: "DEPARTMENT", OperationAction: "CREATE", EntityName: "Frontend",
				ErrorType: "NOT_FOUND", ErrorMessage: "Parent department missing",
				Details: map[string]any{"parentExternalId": "dept-missing"}},
			{OperationID: "op-3", OperationType: "USER", OperationAction: "UPDATE",
				ErrorType: "VALIDATION", ErrorMessage: "Missing lastName"},
		},
	})
	api.JSON("GET /jobs/job-1", http.StatusOK, map[string]any{"value": directory.Job{
		ID:             "job-1",
		Status:         "FINISHED",
		DonePercentage: 100,
		Updates:        []directory.JobUpdate{{Timestamp: "10:00", Message: "started"}},
		Results:        map[string]any{"created": 2},
	}})
	h := cmdtest.New(t, api)

	code := (&Command{Command: h.Command}).Run([]string{"-config", cmdtest.ConfigPath, "-job", "job-1", "tx-1"})
	require.Equal(t, 0, code, h.Errors())

	out := h.Output()
	assert.Contains(t, out, "Success rate: 40%")
	assert.Contains(t, out, "Email already registered")
	assert.Contains(t, out, "N/A")
	assert.Contains(t, out, "parentExternalId: dept-missing")
	assert.Contains(t, out, "VALIDATION errors (2):")
	assert.Contains(t, out, "NOT_FOUND errors (1):")
	assert.Contains(t, out, "Verify parent-child relationships exist")
	assert.Contains(t, out, "1 of 3 failed operations may succeed if resubmitted")
	assert.Contains(t, out, "Progress: 100%")
	assert.Contains(t, out, "1. 10:00: started")
	assert.Contains(t, out, "created: 2")
}

func TestFailuresNone(t *testing.T) {
	api := cmdtest.NewAPI(t)
	api.JSON("GET /provisioning/directory/transaction/tx-1/status", http.StatusOK, directory.TransactionStatus{
		TransactionID:       "tx-1",
		TransactionStatus:   directory.StatusCompleted,
		TotalOperations:     2,
		CompletedOperations: 2,
	})
	h := cmdtest.New(t, api)

	code := (&Command{Command: h.Command}).Run([]string{"-config", cmdtest.ConfigPath, "tx-1"})
	require.Equal(t, 0, code, h.Errors())
	assert.Contains(t, h.Output(), "No failed operations")
}

func TestFailuresRequiresTarget(t *testing.T) {
	h := cmdtest.New(t, nil)
	code := (&Command{Command: h.Command}).Run(nil)
	assert.Equal(t, 1, code)
	assert.Contains(t, h.Errors(), "expected a transaction ID or -job")
}
