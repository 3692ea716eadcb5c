package storage

import "time"

// RunRecord captures one completed publication run for auditing.
type RunRecord struct {
	RunID       string
	AsOf        time.Time
	Source      string
	RecordCount int
	FailedCount int
	CreatedAt   time.Time
}
