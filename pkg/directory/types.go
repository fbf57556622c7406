package directory

// Department is an organisational unit. Departments reference their parent by
// external id and must be created after it.
type Department struct {
	ExternalID        string `json:"externalId" yaml:"externalId"`
	DepartmentName    string `json:"departmentName" yaml:"departmentName"`
	Active            *bool  `json:"active,omitempty" yaml:"active"`
	ParentExternalID  string `json:"parentExternalId,omitempty" yaml:"parentExternalId,omitempty"`
	CascadeToChildren *bool  `json:"cascadeToChildren,omitempty" yaml:"cascadeToChildren,omitempty"`
}

// ItemID implements hierarchy.Item.
func (d Department) ItemID() string { return d.ExternalID }

// ParentID implements hierarchy.Item.
func (d Department) ParentID() string { return d.ParentExternalID }

// UserType assigns a user a role within a department.
type UserType struct {
	DepartmentExternalID string `json:"departmentExternalId" yaml:"departmentExternalId"`
	UserTypeID           string `json:"userTypeId" yaml:"userTypeId"`
}

// User is a directory user.
type User struct {
	ExternalID  string     `json:"externalId" yaml:"externalId"`
	FirstName   string     `json:"firstName" yaml:"firstName"`
	MiddleName  string     `json:"middleName,omitempty" yaml:"middleName,omitempty"`
	LastName    string     `json:"lastName" yaml:"lastName"`
	Email       string     `json:"email" yaml:"email"`
	PhoneNumber string     `json:"phoneNumber,omitempty" yaml:"phoneNumber,omitempty"`
	Active      *bool      `json:"active,omitempty" yaml:"active"`
	UserTypes   []UserType `json:"userTypes" yaml:"userTypes"`
}

// SyncData is a full synchronisation payload.
type SyncData struct {
	Departments []Department `json:"departments,omitempty" yaml:"departments,omitempty"`
	Users       []User       `json:"users,omitempty" yaml:"users,omitempty"`
}

// Bool returns a pointer to b, for the optional flags on records.
func Bool(b bool) *bool {
	return &b
}

// TransactionStatus values reported by the server.
type Status string

const (
	StatusOpen       Status = "OPEN"
	StatusProcessing Status = "PROCESSING"
	StatusCompleted  Status = "COMPLETED"
	StatusFailed     Status = "FAILED"
)

// Terminal reports whether no further progress is expected.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Checkpoint is returned when a transaction is opened.
type Checkpoint struct {
	TransactionID string `json:"transactionId"`
}

// QueueResult is returned when operations are queued in a transaction.
type QueueResult struct {
	TransactionID    string `json:"transactionId,omitempty"`
	OperationsQueued int    `json:"operationsQueued"`
}

// DirectResult is returned by department writes made outside a transaction.
type DirectResult struct {
	Processed            int              `json:"processed"`
	SuccessfulOperations int              `json:"successfulOperations,omitempty"`
	Errors               []OperationError `json:"errors,omitempty"`
}

// ErrorMessage is one message attached to an OperationError.
type ErrorMessage struct {
	Message string `json:"message"`
}

// OperationError describes why a queued operation was rejected.
type OperationError struct {
	Paths    []string       `json:"paths,omitempty"`
	Messages []ErrorMessage `json:"messages,omitempty"`
}

// FirstMessage returns the first message or "Unknown error".
func (e OperationError) FirstMessage() string {
	if len(e.Messages) > 0 && e.Messages[0].Message != "" {
		return e.Messages[0].Message
	}
	return "Unknown error"
}

// CommitResult is returned when a transaction is committed.
type CommitResult struct {
	TransactionID        string           `json:"transactionId"`
	JobID                string           `json:"jobId,omitempty"`
	TotalOperations      int              `json:"totalOperations"`
	SuccessfulOperations int              `json:"successfulOperations"`
	FailedOperations     int              `json:"failedOperations"`
	Errors               []OperationError `json:"errors,omitempty"`
}

// Failure is a failed operation in a committed transaction.
type Failure struct {
	OperationID     string         `json:"operationId"`
	OperationType   string         `json:"operationType"`
	OperationAction string         `json:"operationAction"`
	EntityName      string         `json:"entityName,omitempty"`
	ExternalID      string         `json:"externalId,omitempty"`
	ErrorType       string         `json:"errorType"`
	ErrorMessage    string         `json:"errorMessage"`
	FailedOn        string         `json:"failedOn,omitempty"`
	Details         map[string]any `json:"details,omitempty"`
}

// TransactionStatus is the server-side progress of a transaction.
type TransactionStatus struct {
	TransactionID       string    `json:"transactionId"`
	TransactionStatus   Status    `json:"transactionStatus"`
	TotalOperations     int       `json:"totalOperations"`
	CompletedOperations int       `json:"completedOperations"`
	FailedOperations    int       `json:"failedOperations"`
	CompletedOn         string    `json:"completedOn,omitempty"`
	Failures            []Failure `json:"failures,omitempty"`
}

// TransactionSummary is an entry in a transaction listing.
type TransactionSummary struct {
	TransactionID  string `json:"transactionId"`
	Status         Status `json:"status"`
	OperationCount int    `json:"operationCount"`
	CompletedCount int    `json:"completedCount"`
	FailedCount    int    `json:"failedCount"`
	CreatedBy      string `json:"createdBy,omitempty"`
	CreatedOn      string `json:"createdOn"`
	CompletedOn    string `json:"completedOn,omitempty"`
}

// TransactionList is a page of transactions.
type TransactionList struct {
	TotalCount   int                  `json:"totalCount"`
	Transactions []TransactionSummary `json:"transactions"`
}

// ListFilter narrows ListTransactions. Zero values are omitted.
type ListFilter struct {
	Status        Status
	CreatedBy     string
	CreatedAfter  string
	CreatedBefore string
	Page          int
	PageSize      int
}

// ActiveFilter narrows department and user listings.
type ActiveFilter struct {
	Active *bool
}

// DepartmentList is the response of GetDepartments.
type DepartmentList struct {
	Entries []Department `json:"entries"`
}

// UserList is the response of GetUsers.
type UserList struct {
	Entries []User `json:"entries"`
}

// JobUpdate is a progress message from a background job.
type JobUpdate struct {
	Timestamp string `json:"timestamp"`
	Message   string `json:"message"`
}

// Job is the background job that executes a committed transaction.
type Job struct {
	ID             string         `json:"id"`
	Status         string         `json:"status"`
	DonePercentage float64        `json:"donePercentage"`
	StartedOn      string         `json:"startedOn,omitempty"`
	FinishedOn     string         `json:"finishedOn,omitempty"`
	Updates        []JobUpdate    `json:"updates,omitempty"`
	Results        map[string]any `json:"results,omitempty"`
	ErrorMessage   string         `json:"errorMessage,omitempty"`
}
