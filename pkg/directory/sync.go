package directory

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
)

// BatchSubmitter queues department writes in a transaction and reports on
// its progress. Client implements it.
type BatchSubmitter interface {
	SubmitDepartments(ctx context.Context, txID string, depts []Department) (*QueueResult, error)
	PollStatus(ctx context.Context, txID string) (*TransactionStatus, error)
}

var _ BatchSubmitter = (*Client)(nil)

// SubmitDepartments implements BatchSubmitter.
func (c *Client) SubmitDepartments(ctx context.Context, txID string, depts []Department) (*QueueResult, error) {
	return c.SyncDepartments(ctx, txID, depts)
}

// PollStatus implements BatchSubmitter.
func (c *Client) PollStatus(ctx context.Context, txID string) (*TransactionStatus, error) {
	return c.GetTransactionStatus(ctx, txID)
}

// SubmitOrdered orders departments parent-first and queues them through s.
// The hierarchy report is returned so callers can surface unresolved records.
func SubmitOrdered(ctx context.Context, s BatchSubmitter, txID string, depts []Department) (*QueueResult, []Department, error) {
	ordered, unresolved := OrderDepartments(depts)
	result, err := s.SubmitDepartments(ctx, txID, ordered)
	if err != nil {
		return nil, unresolved, err
	}
	return result, unresolved, nil
}

// FullSync queues departments (parent-first) and users in one transaction and
// commits it.
func (c *Client) FullSync(ctx context.Context, data SyncData) (*CommitResult, error) {
	c.logger.Info("starting full synchronisation",
		"departments", len(data.Departments),
		"users", len(data.Users),
	)

	cp, err := c.CreateCheckpoint(ctx)
	if err != nil {
		return nil, err
	}
	txID := cp.TransactionID

	fail := func(err error) (*CommitResult, error) {
		c.logger.Error("full synchronisation failed", "transaction_id", txID, "error", err)
		return nil, err
	}

	if len(data.Departments) > 0 {
		if _, err := c.SyncDepartments(ctx, txID, c.orderDepartments(data.Departments)); err != nil {
			return fail(err)
		}
	}

	if len(data.Users) > 0 {
		if _, err := c.SyncUsers(ctx, txID, data.Users); err != nil {
			return fail(err)
		}
	}

	result, err := c.CommitTransaction(ctx, txID)
	if err != nil {
		return fail(err)
	}

	c.logger.Info("full synchronisation completed",
		"transaction_id", txID,
		"total", result.TotalOperations,
		"successful", result.SuccessfulOperations,
		"failed", result.FailedOperations,
	)
	return result, nil
}

// GetJob returns the background job that executes a committed transaction.
func (c *Client) GetJob(ctx context.Context, jobID string) (*Job, error) {
	var resp struct {
		Value Job `json:"value"`
	}
	path := "/jobs/" + url.PathEscape(jobID)
	if err := c.doRequest(ctx, http.MethodGet, path, nil, nil, &resp); err != nil {
		return nil, fmt.Errorf("failed to get job %s: %w", jobID, err)
	}
	return &resp.Value, nil
}
