package history

import (
	"encoding/json"
	"time"

	"account-sync/core/reconcile"
)

// Run statuses.
const (
	StatusRunning     = "running"
	StatusCompleted   = "completed"
	StatusInterrupted = "interrupted"
	StatusFailed      = "failed"
)

// Run is one persisted sync run.
type Run struct {
	ID             string     `gorm:"primaryKey;size:36" json:"id"`
	StartedAt      time.Time  `gorm:"index" json:"started_at"`
	FinishedAt     *time.Time `json:"finished_at,omitempty"`
	Status         string     `gorm:"size:16" json:"status"`
	DryRun         bool       `json:"dry_run"`
	Company        string     `gorm:"size:140" json:"company,omitempty"`
	Total          int        `json:"total"`
	Created        int        `json:"created"`
	Updated        int        `json:"updated"`
	Unchanged      int        `json:"unchanged"`
	Skipped        int        `json:"skipped"`
	Failed         int        `json:"failed"`
	ParentsCreated int        `json:"parents_created"`
	Cycles         int        `json:"cycles"`
	DurationMS     int64      `json:"duration_ms"`
	Snapshot       string     `gorm:"size:255" json:"snapshot,omitempty"`
	Error          string     `gorm:"type:text" json:"error,omitempty"`
	Decisions      []Decision `gorm:"foreignKey:RunID;constraint:OnDelete:CASCADE" json:"decisions,omitempty"`
}

// TableName overrides the table name used by Run.
func (Run) TableName() string {
	return "sync_runs"
}

// Decision is one persisted entry of a run's decision stream.
type Decision struct {
	ID            uint      `gorm:"primaryKey" json:"-"`
	RunID         string    `gorm:"index;size:36" json:"-"`
	Seq           int       `json:"seq"`
	Account       string    `gorm:"size:255" json:"account"`
	Key           string    `gorm:"size:255" json:"key"`
	Depth         int       `json:"depth"`
	Outcome       string    `gorm:"size:16" json:"outcome"`
	State         string    `gorm:"size:16" json:"state"`
	Target        string    `gorm:"size:255" json:"target,omitempty"`
	Parent        string    `gorm:"size:255" json:"parent,omitempty"`
	ParentCreated bool      `json:"parent_created"`
	Changes       string    `gorm:"type:text" json:"changes,omitempty"`
	Error         string    `gorm:"type:text" json:"error,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

// TableName overrides the table name used by Decision.
func (Decision) TableName() string {
	return "sync_decisions"
}

// FromDecision converts an engine decision into its persisted form.
func FromDecision(runID string, seq int, d reconcile.Decision) Decision {
	row := Decision{
		RunID:         runID,
		Seq:           seq,
		Account:       d.Name,
		Key:           d.Key,
		Depth:         d.Depth,
		Outcome:       string(d.Outcome),
		State:         string(d.State),
		Target:        d.Target,
		Parent:        d.Parent,
		ParentCreated: d.ParentCreated,
		Error:         d.ErrorMessage(),
	}
	if len(d.Changes) > 0 {
		if raw, err := json.Marshal(d.Changes); err == nil {
			row.Changes = string(raw)
		}
	}
	return row
}

// apply copies summary counters onto the run.
func (r *Run) apply(s reconcile.Summary) {
	r.Total = s.Total
	r.Created = s.Created
	r.Updated = s.Updated
	r.Unchanged = s.Unchanged
	r.Skipped = s.Skipped
	r.Failed = s.Failed
	r.ParentsCreated = s.ParentsCreated
	r.Cycles = s.Cycles
	r.DurationMS = s.Duration.Milliseconds()
}
