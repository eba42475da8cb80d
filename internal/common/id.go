package common

import (
	"github.com/google/uuid"
)

// NewJobID generates a unique migration job ID with the "job_" prefix
// Format: job_<uuid>
func NewJobID() string {
	return "job_" + uuid.New().String()
}
