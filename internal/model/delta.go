package model

import "time"

// EventLogUpdate is the event type pushed to viewers when new lines arrive.
const EventLogUpdate = "log_update"

// FileStats describes the log file a DeltaResult was read from.
type FileStats struct {
	Size     int64     `json:"size"`
	Modified time.Time `json:"modified"`
	Readable bool      `json:"readable"`
	FullPath string    `json:"fullPath"`
}

// DeltaResult is the answer to one tail read. Failures are reported through
// Success and Error rather than a Go error so it can be sent to viewers as is.
type DeltaResult struct {
	Success      bool       `json:"success"`
	FileName     string     `json:"filename,omitempty"`
	Size         int64      `json:"size"`
	HasNewData   bool       `json:"hasNewData"`
	NewLines     []string   `json:"newLines"`
	TotalLines   int        `json:"totalLines"`
	Error        string     `json:"error,omitempty"`
	SelectedPath string     `json:"selectedPath,omitempty"`
	Timestamp    time.Time  `json:"timestamp"`
	FileStats    *FileStats `json:"fileStats,omitempty"`
}

// UpdateEvent is what the delivery boundary receives.
type UpdateEvent struct {
	Type string      `json:"type"`
	Data DeltaResult `json:"data"`
}

// NewUpdateEvent wraps a result in a log_update event.
func NewUpdateEvent(res DeltaResult) UpdateEvent {
	return UpdateEvent{Type: EventLogUpdate, Data: res}
}
