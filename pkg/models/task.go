package models

// TaskRequest is one record emitted by task derivation to the external
// task-creation service.
type TaskRequest struct {
	// TaskDescription is the human-readable description of the work.
	TaskDescription string `json:"task_description"`
	// Assignee is the proposed owner, if the plan named one.
	Assignee string `json:"assignee,omitempty"`
	// TaskID references an existing task for reassignment requests.
	TaskID string `json:"task_id,omitempty"`
	// SourceAction is the plan action this request was derived from.
	SourceAction Action `json:"source_action"`
}

// TaskAck is the per-record acknowledgement from the task service.
type TaskAck struct {
	// Accepted reports whether the service accepted the record.
	Accepted bool `json:"accepted"`
	// TaskID is the identifier assigned (or referenced) by the service.
	TaskID string `json:"task_id,omitempty"`
	// Reason explains a rejection.
	Reason string `json:"reason,omitempty"`
}

// BudgetAck is the per-action acknowledgement from the analytics service
// for an applied budget adjustment.
type BudgetAck struct {
	// Accepted reports whether the adjustment was applied.
	Accepted bool `json:"accepted"`
	// CampaignID is the adjusted campaign.
	CampaignID string `json:"campaign_id,omitempty"`
	// OldSpend is the daily spend before the adjustment.
	OldSpend float64 `json:"old_spend,omitempty"`
	// NewSpend is the daily spend after the adjustment.
	NewSpend float64 `json:"new_spend,omitempty"`
	// Reason explains a rejected adjustment.
	Reason string `json:"reason,omitempty"`
}
