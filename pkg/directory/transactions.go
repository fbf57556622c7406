package directory

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

const provisioningPath = "/provisioning/directory"

// CreateCheckpoint opens a new transaction.
func (c *Client) CreateCheckpoint(ctx context.Context) (*Checkpoint, error) {
	c.logger.Info("creating transaction checkpoint")

	var cp Checkpoint
	if err := c.doRequest(ctx, http.MethodPost, provisioningPath+"/checkpoint", nil, nil, &cp); err != nil {
		return nil, fmt.Errorf("failed to create checkpoint: %w", err)
	}

	c.logger.Info("transaction checkpoint created", "transaction_id", cp.TransactionID)
	return &cp, nil
}

// CommitTransaction commits every operation queued in a transaction.
func (c *Client) CommitTransaction(ctx context.Context, txID string) (*CommitResult, error) {
	c.logger.Info("committing transaction", "transaction_id", txID)

	query := url.Values{"transactionId": {txID}}
	var result CommitResult
	if err := c.doRequest(ctx, http.MethodPost, provisioningPath+"/commit", query, nil, &result); err != nil {
		return nil, fmt.Errorf("failed to commit transaction %s: %w", txID, err)
	}
	if result.TransactionID == "" {
		result.TransactionID = txID
	}

	c.logger.Info("transaction committed",
		"transaction_id", txID,
		"total", result.TotalOperations,
		"successful", result.SuccessfulOperations,
		"failed", result.FailedOperations,
	)
	return &result, nil
}

// GetTransactionStatus returns the current status of a transaction.
func (c *Client) GetTransactionStatus(ctx context.Context, txID string) (*TransactionStatus, error) {
	path := fmt.Sprintf("%s/transaction/%s/status", provisioningPath, url.PathEscape(txID))

	var status TransactionStatus
	if err := c.doRequest(ctx, http.MethodGet, path, nil, nil, &status); err != nil {
		return nil, fmt.Errorf("failed to get status of transaction %s: %w", txID, err)
	}
	return &status, nil
}

// ListTransactions returns a page of transactions. Page defaults to 0 and
// PageSize to 50.
func (c *Client) ListTransactions(ctx context.Context, filter ListFilter) (*TransactionList, error) {
	pageSize := filter.PageSize
	if pageSize == 0 {
		pageSize = 50
	}

	query := url.Values{}
	query.Set("page", strconv.Itoa(filter.Page))
	query.Set("pageSize", strconv.Itoa(pageSize))
	if filter.Status != "" {
		query.Set("status", string(filter.Status))
	}
	if filter.CreatedBy != "" {
		query.Set("createdBy", filter.CreatedBy)
	}
	if filter.CreatedAfter != "" {
		query.Set("createdAfter", filter.CreatedAfter)
	}
	if filter.CreatedBefore != "" {
		query.Set("createdBefore", filter.CreatedBefore)
	}

	var list TransactionList
	if err := c.doRequest(ctx, http.MethodGet, provisioningPath+"/transactions", query, nil, &list); err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	return &list, nil
}

// MonitorTransaction polls a transaction until it is COMPLETED or FAILED and
// returns the final status. onProgress, when non-nil, receives every status.
// A zero interval uses the configured PollInterval. Cancel ctx to stop early.
func (c *Client) MonitorTransaction(
	ctx context.Context,
	txID string,
	onProgress func(*TransactionStatus),
	interval time.Duration,
) (*TransactionStatus, error) {
	if interval <= 0 {
		interval = c.config.PollInterval
	}
	logger := c.logger.With("transaction_id", txID)
	logger.Info("monitoring transaction", "interval", interval)

	for {
		status, err := c.GetTransactionStatus(ctx, txID)
		if err != nil {
			return nil, err
		}
		if onProgress != nil {
			onProgress(status)
		}

		switch status.TransactionStatus {
		case StatusCompleted:
			logger.Info("transaction completed successfully")
			return status, nil
		case StatusFailed:
			logger.Error("transaction failed", "failed", status.FailedOperations)
			return status, nil
		case StatusProcessing:
			logger.Debug("transaction processing",
				"completed", status.CompletedOperations,
				"total", status.TotalOperations,
			)
		case StatusOpen:
			logger.Debug("transaction still open")
		default:
			logger.Warn("unknown transaction status", "status", status.TransactionStatus)
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(interval):
		}
	}
}

// ValidateAuth reports whether the configured credentials can list
// transactions. Use AuthError to get the underlying failure.
func (c *Client) ValidateAuth(ctx context.Context) bool {
	return c.AuthError(ctx) == nil
}

// AuthError lists a single transaction and returns the error, if any.
func (c *Client) AuthError(ctx context.Context) error {
	if _, err := c.ListTransactions(ctx, ListFilter{PageSize: 1}); err != nil {
		c.logger.Error("authentication validation failed", "error", err)
		return err
	}
	c.logger.Info("authentication validation successful")
	return nil
}
