package directory

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
)

// SyncUsers queues user upserts in an open transaction.
func (c *Client) SyncUsers(ctx context.Context, txID string, users []User) (*QueueResult, error) {
	if txID == "" {
		return nil, fmt.Errorf("transaction id is required; use SyncUsersAuto outside a transaction")
	}
	c.logger.Info("syncing users", "count", len(users), "transaction_id", txID)

	var result QueueResult
	if err := c.doRequest(ctx, http.MethodPost, userPath(txID), nil, users, &result); err != nil {
		return nil, fmt.Errorf("failed to queue users: %w", err)
	}
	result.TransactionID = txID

	c.logger.Info("queued user operations",
		"transaction_id", txID,
		"operations_queued", result.OperationsQueued,
	)
	return &result, nil
}

// SyncUsersAuto wraps a user sync in its own transaction: checkpoint, queue,
// commit.
func (c *Client) SyncUsersAuto(ctx context.Context, users []User) (*CommitResult, error) {
	cp, err := c.CreateCheckpoint(ctx)
	if err != nil {
		return nil, err
	}

	if _, err := c.SyncUsers(ctx, cp.TransactionID, users); err != nil {
		return nil, err
	}

	result, err := c.CommitTransaction(ctx, cp.TransactionID)
	if err != nil {
		return nil, err
	}

	c.logger.Info("processed users with auto-transaction",
		"transaction_id", cp.TransactionID,
		"successful", result.SuccessfulOperations,
		"failed", result.FailedOperations,
	)
	return result, nil
}

// GetUsers lists the tenant's users.
func (c *Client) GetUsers(ctx context.Context, filter ActiveFilter) (*UserList, error) {
	var list UserList
	if err := c.doRequest(ctx, http.MethodGet, provisioningPath+"/user", activeQuery(filter), nil, &list); err != nil {
		return nil, fmt.Errorf("failed to get users: %w", err)
	}
	return &list, nil
}

// BulkUserImport sends users in batches of batchSize inside one transaction
// and commits it. A batchSize of zero uses the configured BatchSize.
func (c *Client) BulkUserImport(ctx context.Context, users []User, batchSize int) (*CommitResult, error) {
	if batchSize <= 0 {
		batchSize = c.config.BatchSize
	}
	totalBatches := (len(users) + batchSize - 1) / batchSize

	c.logger.Info("starting bulk user import",
		"total_users", len(users),
		"batch_size", batchSize,
		"total_batches", totalBatches,
	)

	cp, err := c.CreateCheckpoint(ctx)
	if err != nil {
		return nil, err
	}
	txID := cp.TransactionID

	for i := 0; i < len(users); i += batchSize {
		end := min(i+batchSize, len(users))
		batch := users[i:end]

		c.logger.Info("processing batch",
			"batch", i/batchSize+1,
			"of", totalBatches,
			"size", len(batch),
			"transaction_id", txID,
		)
		if _, err := c.SyncUsers(ctx, txID, batch); err != nil {
			c.logger.Error("bulk user import failed", "transaction_id", txID, "error", err)
			return nil, err
		}
	}

	result, err := c.CommitTransaction(ctx, txID)
	if err != nil {
		c.logger.Error("bulk user import failed", "transaction_id", txID, "error", err)
		return nil, err
	}

	c.logger.Info("bulk user import completed",
		"transaction_id", txID,
		"total_users", len(users),
		"successful", result.SuccessfulOperations,
		"failed", result.FailedOperations,
	)
	return result, nil
}

func userPath(txID string) string {
	return fmt.Sprintf("%s/%s/user", provisioningPath, url.PathEscape(txID))
}
