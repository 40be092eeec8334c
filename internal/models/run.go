package models

import "time"

// PipelineRun records the outcome of one kind/account pass, so the status
// endpoint can report what the scheduler has been doing.
type PipelineRun struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	RunID        string    `gorm:"type:varchar(36);not null;index" json:"runId"`
	Kind         string    `gorm:"type:varchar(20);not null;index" json:"kind"`
	NetworkID    string    `gorm:"type:varchar(64);not null;index" json:"networkId"`
	Fetched      int       `gorm:"default:0" json:"fetched"`
	Eligible     int       `gorm:"default:0" json:"eligible"`
	Processed    int       `gorm:"default:0" json:"processed"`
	Failed       int       `gorm:"default:0" json:"failed"`
	DurationMs   int       `json:"durationMs"`
	ErrorMessage *string   `gorm:"type:text" json:"errorMessage,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
}

// TableName specifies the table name
func (PipelineRun) TableName() string {
	return "pipeline_runs"
}
