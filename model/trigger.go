package model

import "time"

// TriggerRule maps an external event condition onto a workflow event. The
// condition itself is opaque to the engine and interpreted by the external
// matcher only.
type TriggerRule struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	Enabled       bool      `json:"enabled"`
	Condition     any       `json:"condition"`
	WorkflowID    string    `json:"workflowId"`
	WorkflowEvent string    `json:"workflowEvent"`
	MapPayload    bool      `json:"mapPayload"`
	PayloadPath   string    `json:"payloadPath,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
}
