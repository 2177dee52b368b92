package models

import "time"

// Batch run statuses, in the order a run moves through them.
const (
	StatusValidating = "VALIDATING"
	StatusGenerating = "GENERATING"
	StatusCompleted  = "COMPLETED"
	StatusFailed     = "FAILED"
)

// BatchRun is the Firestore record of one generation run over a register upload.
type BatchRun struct {
	FileHash         string    `firestore:"fileHash,omitempty"`
	OriginalFilename string    `firestore:"originalFilename,omitempty"`
	Status           string    `firestore:"status,omitempty"`
	ErrorDetails     string    `firestore:"errorDetails,omitempty"`
	RowCount         int       `firestore:"rowCount,omitempty"`
	GeneratedCount   int       `firestore:"generatedCount,omitempty"`
	FailedRows       []int     `firestore:"failedRows,omitempty"`
	OutputPrefix     string    `firestore:"outputPrefix,omitempty"`
	CreatedAt        time.Time `firestore:"createdAt,omitempty"`
}

// RowFailure records a row that could not be turned into a slip.
type RowFailure struct {
	Row   int    `json:"row"`
	Error string `json:"error"`
}

// BatchSummary reports the outcome of a generation run.
type BatchSummary struct {
	RunID     string       `json:"runId"`
	Requested int          `json:"requested"`
	Generated int          `json:"generated"`
	Skipped   []int        `json:"skipped,omitempty"`
	Failures  []RowFailure `json:"failures,omitempty"`
	Outputs   []string     `json:"outputs,omitempty"`
	// OutputLocation is the directory or gs:// prefix the outputs were written under.
	OutputLocation string `json:"outputLocation,omitempty"`
}

// FailedRows returns the row numbers of the failures, in run order.
func (s *BatchSummary) FailedRows() []int {
	rows := make([]int, 0, len(s.Failures))
	for _, f := range s.Failures {
		rows = append(rows, f.Row)
	}
	return rows
}
