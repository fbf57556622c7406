package directory

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeDepartments(t *testing.T, body []byte) []string {
	t.Helper()
	var depts []Department
	require.NoError(t, json.Unmarshal(body, &depts))
	ids := make([]string, len(depts))
	for i, d := range depts {
		ids[i] = d.ExternalID
	}
	return ids
}

func TestCommitTransaction(t *testing.T) {
	api := newFakeAPI(t)
	api.json("POST /provisioning/directory/commit", http.StatusOK, CommitResult{
		JobID:                "job-9",
		TotalOperations:      3,
		SuccessfulOperations: 2,
		FailedOperations:     1,
		Errors: []OperationError{
			{Paths: []string{"users[0].email"}, Messages: []ErrorMessage{{Message: "invalid email"}}},
		},
	})

	result, err := api.client().CommitTransaction(context.Background(), "tx-1")
	require.NoError(t, err)
	assert.Equal(t, "tx-1", result.TransactionID)
	assert.Equal(t, "job-9", result.JobID)
	assert.Equal(t, 1, result.FailedOperations)
	assert.Equal(t, "invalid email", result.Errors[0].FirstMessage())

	reqs := api.recorded()
	require.Len(t, reqs, 1)
	assert.Equal(t, "transactionId=tx-1", reqs[0].Query)
}

func TestListTransactionsQuery(t *testing.T) {
	api := newFakeAPI(t)
	api.json("GET /provisioning/directory/transactions", http.StatusOK, TransactionList{
		TotalCount: 1,
		Transactions: []TransactionSummary{
			{TransactionID: "tx-1", Status: StatusCompleted, OperationCount: 4},
		},
	})
	c := api.client()

	list, err := c.ListTransactions(context.Background(), ListFilter{})
	require.NoError(t, err)
	assert.Equal(t, 1, list.TotalCount)
	assert.Equal(t, StatusCompleted, list.Transactions[0].Status)

	_, err = c.ListTransactions(context.Background(), ListFilter{
		Status:       StatusFailed,
		CreatedBy:    "ops",
		CreatedAfter: "2024-01-01",
		Page:         2,
		PageSize:     10,
	})
	require.NoError(t, err)

	reqs := api.recorded()
	require.Len(t, reqs, 2)

	first, _ := url.ParseQuery(reqs[0].Query)
	assert.Equal(t, url.Values{"page": {"0"}, "pageSize": {"50"}}, first)

	second, _ := url.ParseQuery(reqs[1].Query)
	assert.Equal(t, "FAILED", second.Get("status"))
	assert.Equal(t, "ops", second.Get("createdBy"))
	assert.Equal(t, "2024-01-01", second.Get("createdAfter"))
	assert.False(t, second.Has("createdBefore"))
	assert.Equal(t, "2", second.Get("page"))
	assert.Equal(t, "10", second.Get("pageSize"))
}

func TestSyncDepartmentsModes(t *testing.T) {
	api := newFakeAPI(t)
	api.handle("POST /provisioning/directory/department", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Has("transactionId") {
			_ = json.NewEncoder(w).Encode(QueueResult{OperationsQueued: 2})
			return
		}
		_ = json.NewEncoder(w).Encode(DirectResult{Processed: 2})
	})
	c := api.client()
	depts := []Department{{ExternalID: "a", DepartmentName: "A", Active: Bool(true)}}

	queued, err := c.SyncDepartments(context.Background(), "tx-7", depts)
	require.NoError(t, err)
	assert.Equal(t, 2, queued.OperationsQueued)
	assert.Equal(t, "tx-7", queued.TransactionID)

	direct, err := c.SyncDepartmentsDirect(context.Background(), depts)
	require.NoError(t, err)
	assert.Equal(t, 2, direct.Processed)

	_, err = c.SyncDepartments(context.Background(), "", depts)
	require.Error(t, err)

	reqs := api.recorded()
	require.Len(t, reqs, 2)
	assert.Equal(t, "transactionId=tx-7", reqs[0].Query)
	assert.Empty(t, reqs[1].Query)
	assert.Equal(t, "application/json", reqs[1].Header.Get("Content-Type"))
	assert.JSONEq(t, `[{"externalId":"a","departmentName":"A","active":true}]`, string(reqs[1].Body))
}

func TestGetDepartmentsAndUsersActiveFilter(t *testing.T) {
	api := newFakeAPI(t)
	api.json("GET /provisioning/directory/department", http.StatusOK, DepartmentList{
		Entries: []Department{{ExternalID: "corp-root"}},
	})
	api.json("GET /provisioning/directory/user", http.StatusOK, UserList{
		Entries: []User{{ExternalID: "emp-001"}, {ExternalID: "emp-002"}},
	})
	c := api.client()

	depts, err := c.GetDepartments(context.Background(), ActiveFilter{})
	require.NoError(t, err)
	assert.Len(t, depts.Entries, 1)

	users, err := c.GetUsers(context.Background(), ActiveFilter{Active: Bool(false)})
	require.NoError(t, err)
	assert.Len(t, users.Entries, 2)

	reqs := api.recorded()
	assert.Empty(t, reqs[0].Query)
	assert.Equal(t, "active=false", reqs[1].Query)
}

func TestOrganizationSetupSendsParentsFirst(t *testing.T) {
	api := newFakeAPI(t)
	api.json("POST /provisioning/directory/department", http.StatusOK, DirectResult{Processed: 4})

	result, err := api.client().OrganizationSetup(context.Background(), []Department{
		{ExternalID: "team", ParentExternalID: "dept"},
		{ExternalID: "dept", ParentExternalID: "root"},
		{ExternalID: "root"},
		{ExternalID: "loop", ParentExternalID: "loop"},
	})
	require.NoError(t, err)
	assert.Equal(t, 4, result.Processed)

	reqs := api.recorded()
	require.Len(t, reqs, 1)
	assert.Equal(t, []string{"root", "dept", "team", "loop"}, decodeDepartments(t, reqs[0].Body))
}

func TestSyncUsersAuto(t *testing.T) {
	api := newFakeAPI(t)
	api.json("POST /provisioning/directory/checkpoint", http.StatusOK, Checkpoint{TransactionID: "tx-auto"})
	api.json("POST /provisioning/directory/tx-auto/user", http.StatusOK, QueueResult{OperationsQueued: 1})
	api.json("POST /provisioning/directory/commit", http.StatusOK, CommitResult{TotalOperations: 1, SuccessfulOperations: 1})

	result, err := api.client().SyncUsersAuto(context.Background(), []User{{ExternalID: "emp-001"}})
	require.NoError(t, err)
	assert.Equal(t, "tx-auto", result.TransactionID)
	assert.Equal(t, 1, result.SuccessfulOperations)

	var paths []string
	for _, r := range api.recorded() {
		paths = append(paths, r.Method+" "+r.Path)
	}
	assert.Equal(t, []string{
		"POST /provisioning/directory/checkpoint",
		"POST /provisioning/directory/tx-auto/user",
		"POST /provisioning/directory/commit",
	}, paths)
}

func TestFullSync(t *testing.T) {
	api := newFakeAPI(t)
	api.json("POST /provisioning/directory/checkpoint", http.StatusOK, Checkpoint{TransactionID: "tx-full"})
	api.json("POST /provisioning/directory/department", http.StatusOK, QueueResult{OperationsQueued: 3})
	api.json("POST /provisioning/directory/tx-full/user", http.StatusOK, QueueResult{OperationsQueued: 1})
	api.json("POST /provisioning/directory/commit", http.StatusOK, CommitResult{
		TransactionID:        "tx-full",
		TotalOperations:      4,
		SuccessfulOperations: 4,
	})

	result, err := api.client().FullSync(context.Background(), SyncData{
		Departments: []Department{
			{ExternalID: "C", ParentExternalID: "B"},
			{ExternalID: "B", ParentExternalID: "A"},
			{ExternalID: "A"},
		},
		Users: []User{{ExternalID: "emp-001"}},
	})
	require.NoError(t, err)
	assert.Equal(t, 4, result.SuccessfulOperations)

	reqs := api.recorded()
	require.Len(t, reqs, 4)
	assert.Equal(t, "transactionId=tx-full", reqs[1].Query)
	assert.Equal(t, []string{"A", "B", "C"}, decodeDepartments(t, reqs[1].Body))
	assert.Equal(t, "/provisioning/directory/tx-full/user", reqs[2].Path)
	assert.Equal(t, "transactionId=tx-full", reqs[3].Query)
}

func TestFullSyncSkipsEmptySections(t *testing.T) {
	api := newFakeAPI(t)
	api.json("POST /provisioning/directory/checkpoint", http.StatusOK, Checkpoint{TransactionID: "tx"})
	api.json("POST /provisioning/directory/tx/user", http.StatusOK, QueueResult{OperationsQueued: 1})
	api.json("POST /provisioning/directory/commit", http.StatusOK, CommitResult{})

	_, err := api.client().FullSync(context.Background(), SyncData{Users: []User{{ExternalID: "u"}}})
	require.NoError(t, err)

	for _, r := range api.recorded() {
		assert.NotEqual(t, "/provisioning/directory/department", r.Path)
	}
}

func TestFullSyncStopsOnQueueFailure(t *testing.T) {
	api := newFakeAPI(t)
	api.json("POST /provisioning/directory/checkpoint", http.StatusOK, Checkpoint{TransactionID: "tx"})
	api.json("POST /provisioning/directory/department", http.StatusBadRequest, map[string]string{"message": "nope"})

	_, err := api.client().FullSync(context.Background(), SyncData{
		Departments: []Department{{ExternalID: "a"}},
		Users:       []User{{ExternalID: "u"}},
	})
	require.True(t, IsValidationError(err))
	assert.Len(t, api.recorded(), 2, "no user queue and no commit after a failure")
}

func TestBulkUserImportBatches(t *testing.T) {
	api := newFakeAPI(t)
	var batches []int
	api.json("POST /provisioning/directory/checkpoint", http.StatusOK, Checkpoint{TransactionID: "tx-bulk"})
	api.handle("POST /provisioning/directory/tx-bulk/user", func(w http.ResponseWriter, r *http.Request) {
		var users []User
		_ = json.NewDecoder(r.Body).Decode(&users)
		batches = append(batches, len(users))
		_ = json.NewEncoder(w).Encode(QueueResult{OperationsQueued: len(users)})
	})
	api.json("POST /provisioning/directory/commit", http.StatusOK, CommitResult{TotalOperations: 7, SuccessfulOperations: 7})

	users := make([]User, 7)
	for i := range users {
		users[i].ExternalID = string(rune('a' + i))
	}

	result, err := api.client().BulkUserImport(context.Background(), users, 3)
	require.NoError(t, err)
	assert.Equal(t, 7, result.SuccessfulOperations)
	assert.Equal(t, []int{3, 3, 1}, batches)
}

func TestMonitorTransaction(t *testing.T) {
	api := newFakeAPI(t)
	sequence := []Status{StatusOpen, StatusProcessing, "PAUSED", StatusCompleted}
	var calls atomic.Int32
	api.handle("GET /provisioning/directory/transaction/tx-m/status", func(w http.ResponseWriter, r *http.Request) {
		i := int(calls.Add(1)) - 1
		_ = json.NewEncoder(w).Encode(TransactionStatus{
			TransactionID:       "tx-m",
			TransactionStatus:   sequence[min(i, len(sequence)-1)],
			TotalOperations:     4,
			CompletedOperations: i,
		})
	})

	var seen []Status
	final, err := api.client().MonitorTransaction(context.Background(), "tx-m", func(s *TransactionStatus) {
		seen = append(seen, s.TransactionStatus)
	}, 0)
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, final.TransactionStatus)
	assert.Equal(t, sequence, seen)
}

func TestMonitorTransactionReturnsOnFailure(t *testing.T) {
	api := newFakeAPI(t)
	api.json("GET /provisioning/directory/transaction/tx-f/status", http.StatusOK, TransactionStatus{
		TransactionStatus: StatusFailed,
		FailedOperations:  2,
		Failures:          []Failure{{OperationID: "op-1", ErrorType: "VALIDATION"}},
	})

	final, err := api.client().MonitorTransaction(context.Background(), "tx-f", nil, time.Millisecond)
	require.NoError(t, err)
	assert.Equal(t, StatusFailed, final.TransactionStatus)
	assert.Len(t, final.Failures, 1)
}

func TestMonitorTransactionCancel(t *testing.T) {
	api := newFakeAPI(t)
	api.json("GET /provisioning/directory/transaction/tx-s/status", http.StatusOK, TransactionStatus{
		TransactionStatus: StatusProcessing,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := api.client().MonitorTransaction(ctx, "tx-s", nil, 5*time.Millisecond)
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestValidateAuth(t *testing.T) {
	api := newFakeAPI(t)
	api.json("GET /provisioning/directory/transactions", http.StatusOK, TransactionList{})
	assert.True(t, api.client().ValidateAuth(context.Background()))

	denied := newFakeAPI(t)
	denied.json("GET /provisioning/directory/transactions", http.StatusUnauthorized, map[string]string{"message": "bad token"})
	c := denied.client()
	assert.False(t, c.ValidateAuth(context.Background()))
	assert.True(t, IsAuthError(c.AuthError(context.Background())))
}

func TestGetJob(t *testing.T) {
	api := newFakeAPI(t)
	api.json("GET /jobs/job-1", http.StatusOK, map[string]any{
		"value": Job{ID: "job-1", Status: "RUNNING", DonePercentage: 42.5},
	})

	job, err := api.client().GetJob(context.Background(), "job-1")
	require.NoError(t, err)
	assert.Equal(t, "RUNNING", job.Status)
	assert.InDelta(t, 42.5, job.DonePercentage, 0.001)
}

type fakeSubmitter struct {
	queued [][]string
}

func (f *fakeSubmitter) SubmitDepartments(_ context.Context, txID string, depts []Department) (*QueueResult, error) {
	ids := make([]string, len(depts))
	for i, d := range depts {
		ids[i] = d.ExternalID
	}
	f.queued = append(f.queued, ids)
	return &QueueResult{TransactionID: txID, OperationsQueued: len(depts)}, nil
}

func (f *fakeSubmitter) PollStatus(_ context.Context, txID string) (*TransactionStatus, error) {
	return &TransactionStatus{TransactionID: txID, TransactionStatus: StatusCompleted}, nil
}

func TestSubmitOrdered(t *testing.T) {
	s := &fakeSubmitter{}
	result, unresolved, err := SubmitOrdered(context.Background(), s, "tx", []Department{
		{ExternalID: "x", ParentExternalID: "y"},
		{ExternalID: "y", ParentExternalID: "x"},
		{ExternalID: "root"},
		{ExternalID: "leaf", ParentExternalID: "root"},
	})
	require.NoError(t, err)
	assert.Equal(t, 4, result.OperationsQueued)
	assert.Equal(t, [][]string{{"root", "leaf", "x", "y"}}, s.queued)
	require.Len(t, unresolved, 2)
	assert.Equal(t, "x", unresolved[0].ExternalID)
}
