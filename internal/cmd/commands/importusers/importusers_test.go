package importusers

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hashicorp-forge/dirsync/internal/cmd/cmdtest"
	"github.com/hashicorp-forge/dirsync/pkg/directory"
)

func TestImportUsersInBatches(t *testing.T) {
	api := cmdtest.NewAPI(t)
	api.JSON("POST /provisioning/directory/checkpoint", http.StatusOK, directory.Checkpoint{TransactionID: "tx-7"})
	api.JSON("POST /provisioning/directory/tx-7/user", http.StatusOK, directory.QueueResult{OperationsQueued: 2})
	api.JSON("POST /provisioning/directory/commit", http.StatusOK, directory.CommitResult{
		TotalOperations:      5,
		SuccessfulOperations: 5,
	})
	h := cmdtest.New(t, api)

	code := (&Command{Command: h.Command}).Run([]string{
		"-config", cmdtest.ConfigPath, "-sample", "-batch-size", "2",
	})
	require.Equal(t, 0, code, h.Errors())

	assert.Equal(t, []string{
		"POST /provisioning/directory/checkpoint",
		"POST /provisioning/directory/tx-7/user",
		"POST /provisioning/directory/tx-7/user",
		"POST /provisioning/directory/tx-7/user",
		"POST /provisioning/directory/commit",
	}, api.Routes())

	var sizes []int
	for _, r := range api.Requests() {
		if r.Path == "/provisioning/directory/tx-7/user" {
			var batch []directory.User
			require.NoError(t, json.Unmarshal(r.Body, &batch))
			sizes = append(sizes, len(batch))
		}
	}
	assert.Equal(t, []int{2, 2, 1}, sizes)
	assert.Contains(t, h.Output(), "Importing 5 users in batches of 2")
	assert.Contains(t, h.Output(), "Transaction ID:   tx-7")
}

func TestImportUsersRejectsBatchSize(t *testing.T) {
	h := cmdtest.New(t, nil)
	code := (&Command{Command: h.Command}).Run([]string{"-sample", "-batch-size", "5000"})
	assert.Equal(t, 1, code)
	assert.Contains(t, h.Errors(), "batch-size must be between 1 and 1000")
}

func TestImportUsersNeedsUsers(t *testing.T) {
	h := cmdtest.New(t, nil)
	h.WriteFile(t, "depts.json", `{"departments":[{"externalId":"root","departmentName":"Root","active":true}]}`)

	code := (&Command{Command: h.Command}).Run([]string{"-data", "depts.json"})
	assert.Equal(t, 1, code)
	assert.Contains(t, h.Errors(), "no users to import")
}
