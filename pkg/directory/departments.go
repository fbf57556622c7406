package directory

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/hashicorp-forge/dirsync/pkg/hierarchy"
)

const departmentPath = provisioningPath + "/department"

// SyncDepartments queues department upserts in an open transaction.
func (c *Client) SyncDepartments(ctx context.Context, txID string, depts []Department) (*QueueResult, error) {
	if txID == "" {
		return nil, fmt.Errorf("transaction id is required; use SyncDepartmentsDirect outside a transaction")
	}
	c.logger.Info("syncing departments", "count", len(depts), "transaction_id", txID)

	query := url.Values{"transactionId": {txID}}
	var result QueueResult
	if err := c.doRequest(ctx, http.MethodPost, departmentPath, query, depts, &result); err != nil {
		return nil, fmt.Errorf("failed to queue departments: %w", err)
	}
	result.TransactionID = txID

	c.logger.Info("queued department operations",
		"transaction_id", txID,
		"operations_queued", result.OperationsQueued,
	)
	return &result, nil
}

// SyncDepartmentsDirect upserts departments immediately, outside a
// transaction.
func (c *Client) SyncDepartmentsDirect(ctx context.Context, depts []Department) (*DirectResult, error) {
	c.logger.Info("syncing departments directly", "count", len(depts))

	var result DirectResult
	if err := c.doRequest(ctx, http.MethodPost, departmentPath, nil, depts, &result); err != nil {
		return nil, fmt.Errorf("failed to sync departments: %w", err)
	}

	c.logger.Info("processed departments directly",
		"processed", result.Processed,
		"errors", len(result.Errors),
	)
	return &result, nil
}

// GetDepartments lists the tenant's departments.
func (c *Client) GetDepartments(ctx context.Context, filter ActiveFilter) (*DepartmentList, error) {
	var list DepartmentList
	if err := c.doRequest(ctx, http.MethodGet, departmentPath, activeQuery(filter), nil, &list); err != nil {
		return nil, fmt.Errorf("failed to get departments: %w", err)
	}
	return &list, nil
}

// OrganizationSetup orders departments so parents precede children and syncs
// them directly. Departments caught in a cycle or referencing a missing parent
// are still sent, after the rest.
func (c *Client) OrganizationSetup(ctx context.Context, depts []Department) (*DirectResult, error) {
	c.logger.Info("setting up organisational hierarchy", "departments", len(depts))

	ordered := c.orderDepartments(depts)
	return c.SyncDepartmentsDirect(ctx, ordered)
}

func (c *Client) orderDepartments(depts []Department) []Department {
	ordered, unresolved := OrderDepartments(depts)
	if len(unresolved) > 0 {
		ids := make([]string, len(unresolved))
		for i, d := range unresolved {
			ids[i] = d.ExternalID
		}
		c.logger.Warn("department hierarchy could not be fully resolved", "unresolved", ids)
	}
	return ordered
}

// OrderDepartments returns depts with every parent before its children.
// Departments whose parent chain cannot be resolved are appended last and
// also returned in unresolved.
func OrderDepartments(depts []Department) (ordered, unresolved []Department) {
	res := hierarchy.OrderWithReport(depts)
	return res.Items, res.Unresolved
}

func activeQuery(filter ActiveFilter) url.Values {
	if filter.Active == nil {
		return nil
	}
	return url.Values{"active": {strconv.FormatBool(*filter.Active)}}
}
