package store

import (
	"time"

	"github.com/jackc/pgx/v5/pgtype"
)

// Import batch statuses. One batch may be pending or running at a time
// system-wide; completed batches become rollback candidates.
const (
	BatchPending    = "pending"
	BatchRunning    = "running"
	BatchCompleted  = "completed"
	BatchFailed     = "failed"
	BatchRolledBack = "rolled_back"
)

// Consultation batch statuses. Cancelled is terminal and distinct from
// failed.
const (
	ConsultPending   = "pending"
	ConsultRunning   = "running"
	ConsultCompleted = "completed"
	ConsultFailed    = "failed"
	ConsultCancelled = "cancelled"
)

// Import types (spreadsheet dialects).
const (
	ImportCadastral    = "cadastral"
	ImportHigienizacao = "higienizacao"
)

// Pivot actions recorded per (batch, lead).
const (
	ActionInsert = "insert"
	ActionUpdate = "update"
)

// Lead is a person record keyed by CPF. Every field except the CPF is
// mutable by imports.
type Lead struct {
	ID              int64
	CPF             string
	Name            pgtype.Text
	BirthDate       pgtype.Date
	Phone1          pgtype.Text
	Phone2          pgtype.Text
	Phone3          pgtype.Text
	Phone4          pgtype.Text
	Class1          pgtype.Text
	Class2          pgtype.Text
	Class3          pgtype.Text
	Class4          pgtype.Text
	StatusCode      pgtype.Text
	StatusMessage   pgtype.Text
	Balance         pgtype.Numeric
	ReleasedAmount  pgtype.Numeric
	StatusUpdatedAt pgtype.Timestamptz
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Contract belongs to one lead; inserted once per (lead, date), never
// updated.
type Contract struct {
	ID           int64
	LeadID       int64
	ContractDate time.Time
	VendorID     pgtype.Int8
	CreatedAt    time.Time
}

// Vendor is a normalized-name entity referenced by contracts.
type Vendor struct {
	ID             int64
	Name           string
	NormalizedName string
	CreatedAt      time.Time
}

// ImportBatch tracks one spreadsheet upload end to end.
type ImportBatch struct {
	ID            pgtype.UUID
	Type          string
	Origin        pgtype.Text
	FileName      string
	TotalRows     int32
	ProcessedRows int32
	Status        string
	StartedAt     pgtype.Timestamptz
	FinishedAt    pgtype.Timestamptz
	CreatedAt     time.Time
}

// RowError is one captured per-row failure; append-only.
type RowError struct {
	RowNumber int32
	Column    string
	Message   string
}

// LeadBackup is a pre-mutation snapshot of a lead. WasNew=true means the
// lead was created by the batch and rollback deletes it; otherwise the
// snapshot fields are restored verbatim.
type LeadBackup struct {
	BatchID         pgtype.UUID
	LeadID          int64
	WasNew          bool
	CPF             string
	Name            pgtype.Text
	BirthDate       pgtype.Date
	Phone1          pgtype.Text
	Phone2          pgtype.Text
	Phone3          pgtype.Text
	Phone4          pgtype.Text
	Class1          pgtype.Text
	Class2          pgtype.Text
	Class3          pgtype.Text
	Class4          pgtype.Text
	StatusCode      pgtype.Text
	StatusMessage   pgtype.Text
	Balance         pgtype.Numeric
	ReleasedAmount  pgtype.Numeric
	StatusUpdatedAt pgtype.Timestamptz
}

// ConsultationBatch tracks one registry consultation job.
type ConsultationBatch struct {
	ID              pgtype.UUID
	Title           string
	ValidCPFs       []string
	InvalidCPFs     []string
	SuccessCount    int32
	FailCount       int32
	Status          string
	CancelRequested bool
	ReportPath      pgtype.Text
	StartedAt       pgtype.Timestamptz
	FinishedAt      pgtype.Timestamptz
	CreatedAt       time.Time
}
