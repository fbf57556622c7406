package base

import (
	"fmt"
	"strings"

	"github.com/hashicorp-forge/dirsync/pkg/dataset"
	"github.com/hashicorp-forge/dirsync/pkg/directory"
	"github.com/hashicorp-forge/dirsync/pkg/failures"
	"github.com/hashicorp-forge/dirsync/pkg/validate"
)

// DataFlags select the payload a sync command sends.
type DataFlags struct {
	Path           string
	Sample         bool
	SkipValidation bool
}

// Register adds the flags to f.
func (df *DataFlags) Register(f *FlagSet) {
	f.StringVar(
		&df.Path, "data", "",
		"Path to a JSON or YAML file with departments and users.",
	)
	f.BoolVar(
		&df.Sample, "sample", false,
		"Use the built-in sample organisation instead of -data.",
	)
	f.BoolVar(
		&df.SkipValidation, "skip-validation", false,
		"Send records without validating them locally.",
	)
}

// LoadData loads, cleans and validates the selected payload. The returned
// source names it for the journal.
func (c *Command) LoadData(df DataFlags) (directory.SyncData, string, error) {
	var (
		data   directory.SyncData
		source string
	)
	switch {
	case df.Sample && df.Path != "":
		return data, "", fmt.Errorf("-data and -sample are mutually exclusive")
	case df.Sample:
		data, source = dataset.Sample(), "sample"
	case df.Path != "":
		var err error
		data, err = dataset.Load(c.fs(), df.Path)
		if err != nil {
			return data, "", err
		}
		source = df.Path
	default:
		return data, "", fmt.Errorf("one of -data or -sample is required")
	}

	data = validate.Clean(data)
	if df.SkipValidation {
		return data, source, nil
	}

	report := validate.SyncData(data)
	if !report.Valid() {
		c.printValidation(report)
		return data, source, fmt.Errorf("data validation failed")
	}

	hier := validate.Hierarchy(data.Departments)
	for _, w := range hier.Warnings {
		c.UI.Warn(w)
	}
	for _, e := range hier.Errors {
		c.UI.Warn(e)
	}

	c.UI.Info("Data validation passed")
	c.UI.Output(fmt.Sprintf("  %d departments to sync", len(data.Departments)))
	c.UI.Output(fmt.Sprintf("  %d users to sync", len(data.Users)))
	return data, source, nil
}

func (c *Command) printValidation(r validate.Report) {
	ui := c.UI
	ui.Error("Data validation failed:")
	for _, msg := range r.GeneralErrors {
		ui.Error("  - " + msg)
	}
	for _, e := range r.DepartmentErrors {
		ui.Error(fmt.Sprintf("  Department %s:", e.ExternalID))
		for _, msg := range e.Errors {
			ui.Error("    - " + msg)
		}
	}
	for _, e := range r.UserErrors {
		ui.Error(fmt.Sprintf("  User %s:", e.Email))
		for _, msg := range e.Errors {
			ui.Error("    - " + msg)
		}
	}
}

// PrintCommit reports the outcome of a committed transaction.
func (c *Command) PrintCommit(r *directory.CommitResult) {
	ui := c.UI
	ui.Output("Synchronization results:")
	ui.Output(fmt.Sprintf("  Transaction ID:   %s", r.TransactionID))
	if r.JobID != "" {
		ui.Output(fmt.Sprintf("  Job ID:           %s", r.JobID))
	}
	ui.Output(fmt.Sprintf("  Total operations: %d", r.TotalOperations))
	ui.Output(fmt.Sprintf("  Successful:       %d", r.SuccessfulOperations))
	ui.Output(fmt.Sprintf("  Failed:           %d", r.FailedOperations))
	ui.Output(fmt.Sprintf("  Success rate:     %d%%",
		failures.SuccessRate(r.SuccessfulOperations, r.TotalOperations)))

	c.PrintOperationErrors(r.Errors)

	if r.FailedOperations == 0 {
		ui.Info("Synchronization completed successfully")
	} else {
		ui.Warn("Synchronization completed with some failures; " +
			"run `dirsync failures " + r.TransactionID + "` for details")
	}
}

// PrintOperationErrors lists rejected operations.
func (c *Command) PrintOperationErrors(errs []directory.OperationError) {
	if len(errs) == 0 {
		return
	}
	c.UI.Warn("Some operations failed:")
	for i, e := range errs {
		c.UI.Warn(fmt.Sprintf("  %d. %s", i+1, e.FirstMessage()))
		if len(e.Paths) > 0 {
			c.UI.Warn(fmt.Sprintf("     Path: %s", strings.Join(e.Paths, ", ")))
		}
	}
}

// PrintAPIError reports a request failure with the server's details.
func (c *Command) PrintAPIError(prefix string, err error) {
	c.UI.Error(fmt.Sprintf("%s: %v", prefix, err))
	t := failures.ClassifyError(err)
	if t == failures.Unknown {
		return
	}
	for _, rec := range failures.Recommendations(t) {
		c.UI.Output("  - " + rec)
	}
}
