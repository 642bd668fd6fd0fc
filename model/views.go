package model

import "time"

type WorkflowStatus struct {
	CurrentState    string    `json:"currentState"`
	Label           string    `json:"label,omitempty"`
	Description     string    `json:"description,omitempty"`
	AvailableEvents []string  `json:"availableEvents"`
	IsWaiting       bool      `json:"isWaiting"`
	WaitingFor      string    `json:"waitingFor,omitempty"`
	WaitingMessage  string    `json:"waitingMessage,omitempty"`
	IsFinal         bool      `json:"isFinal"`
	Version         int       `json:"version"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

type WorkflowSummary struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Description  string    `json:"description,omitempty"`
	CurrentState string    `json:"currentState"`
	IsFinal      bool      `json:"isFinal"`
	Tags         []string  `json:"tags,omitempty"`
	Version      int       `json:"version"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

const (
	NodeTypeInitial = "initial"
	NodeTypeNormal  = "normal"
	NodeTypeWaiting = "waiting"
	NodeTypeFinal   = "final"
)

type GraphNode struct {
	ID    string `json:"id"`
	Type  string `json:"type"`
	Label string `json:"label,omitempty"`
}

type GraphEdge struct {
	From  string `json:"from"`
	To    string `json:"to"`
	Event string `json:"event"`
}

type Graph struct {
	Nodes        []GraphNode `json:"nodes"`
	Edges        []GraphEdge `json:"edges"`
	CurrentState string      `json:"currentState"`
}
