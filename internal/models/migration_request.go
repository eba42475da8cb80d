package models

// MigrationRequest is the submission shape consumed by the orchestrator.
// SourceToken and DestToken are opaque provider credentials passed through
// to the adapters; the core never inspects them.
type MigrationRequest struct {
	UserID        string        `json:"user_id" validate:"required"`
	UserEmail     string        `json:"user_email" validate:"required,email"`
	MigrationType MigrationType `json:"migration_type" validate:"required,oneof=mail contacts calendar drive all"`
	SourceToken   string        `json:"source_token"`
	DestToken     string        `json:"dest_token"`
	Folder        string        `json:"folder,omitempty"` // optional single-folder scope for mail
}

// MigrationResponse is the immediate acknowledgment returned on submission
type MigrationResponse struct {
	Status  string `json:"status"` // "started" or "failed"
	Message string `json:"message"`
	JobID   string `json:"job_id"`
}
