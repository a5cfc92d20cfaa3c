package constants

// JobStatus is the canonical status for rows in documents.
type JobStatus string

// Stable values (store these exact strings in DB).
const (
	JobStatusQueued    JobStatus = "QUEUED"    // accepted, waiting for a worker
	JobStatusRunning   JobStatus = "RUNNING"   // in progress
	JobStatusOCROK     JobStatus = "OCR_OK"    // text extracted
	JobStatusExtracted JobStatus = "EXTRACTED" // fields extracted
	JobStatusFailed    JobStatus = "FAILED"    // terminal failure
)

// Terminal reports whether no further stage will update the row.
func (s JobStatus) Terminal() bool {
	return s == JobStatusExtracted || s == JobStatusFailed
}
