package models

// GCSEvent is the storage object payload delivered to the register watcher.
type GCSEvent struct {
	Bucket string `json:"bucket"`
	Name   string `json:"name"`
}

// GenerateSlipsRequest is the input for the slip API.
type GenerateSlipsRequest struct {
	// RegisterURI is the gs:// URI of the register workbook.
	RegisterURI string `json:"registerUri"`
	// RowIDs are 1-based register rows. Empty selects every admissible row.
	RowIDs       []int  `json:"rowIds,omitempty"`
	OutputPrefix string `json:"outputPrefix,omitempty"`
}

// GenerateSlipsResponse is the output of the slip API.
type GenerateSlipsResponse struct {
	Status  string        `json:"status"`
	Summary *BatchSummary `json:"summary"`
}

// ListSlipsResponse lists the slips already generated under a prefix.
type ListSlipsResponse struct {
	Prefix  string   `json:"prefix"`
	Objects []string `json:"objects"`
}
