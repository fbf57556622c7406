package journal

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Kind names the operation a run performed.
type Kind string

const (
	KindFullSync    Kind = "full-sync"
	KindBulkImport  Kind = "bulk-import"
	KindOrgSetup    Kind = "org-setup"
	KindDepartments Kind = "departments"
	KindUsers       Kind = "users"
)

// RunStatus is the local outcome of a run.
type RunStatus string

const (
	RunRunning   RunStatus = "running"
	RunSucceeded RunStatus = "succeeded"
	RunPartial   RunStatus = "partial"
	RunFailed    RunStatus = "failed"
)

// Run is one invocation of a sync operation.
type Run struct {
	// ID is the unique run identifier (UUID).
	ID uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`

	Kind   Kind      `gorm:"type:varchar(32);not null;index" json:"kind"`
	Status RunStatus `gorm:"type:varchar(16);not null" json:"status"`

	// Source is the data file, "sample", or empty.
	Source string `gorm:"type:varchar(1024)" json:"source,omitempty"`

	// TransactionID and JobID are set once the server assigns them.
	TransactionID string `gorm:"type:varchar(64);index" json:"transaction_id,omitempty"`
	JobID         string `gorm:"type:varchar(64)" json:"job_id,omitempty"`

	Departments int `gorm:"default:0" json:"departments"`
	Users       int `gorm:"default:0" json:"users"`

	Total      int `gorm:"default:0" json:"total"`
	Successful int `gorm:"default:0" json:"successful"`
	Failed     int `gorm:"default:0" json:"failed"`

	// UnresolvedDepartments counts departments whose parent chain could not
	// be ordered (cycles or missing parents).
	UnresolvedDepartments int `gorm:"default:0" json:"unresolved_departments"`

	Error string `gorm:"type:text" json:"error,omitempty"`

	StartedAt  time.Time  `gorm:"not null;index" json:"started_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
}

// BeforeCreate hook to generate UUID if not set.
func (r *Run) BeforeCreate(tx *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}

// TableName specifies the table name for GORM.
func (Run) TableName() string {
	return "sync_runs"
}

// Duration is the elapsed time of a finished run, or zero.
func (r Run) Duration() time.Duration {
	if r.FinishedAt == nil {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// Runs is a slice of runs.
type Runs []Run

// Get retrieves a run by ID.
func (r *Run) Get(db *gorm.DB) error {
	return db.First(r, "id = ?", r.ID).Error
}

// Create inserts the run.
func (r *Run) Create(db *gorm.DB) error {
	return db.Create(r).Error
}

// Update saves every field of the run.
func (r *Run) Update(db *gorm.DB) error {
	return db.Save(r).Error
}

// FindRecent retrieves the newest runs first.
func (rs *Runs) FindRecent(db *gorm.DB, limit int) error {
	return db.Order("started_at desc").Limit(limit).Find(rs).Error
}

// FindByTransaction retrieves runs for a server transaction.
func (rs *Runs) FindByTransaction(db *gorm.DB, txID string) error {
	return db.Where("transaction_id = ?", txID).Order("started_at desc").Find(rs).Error
}
