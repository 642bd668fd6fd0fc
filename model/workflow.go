package model

import (
	"encoding/json"
	"time"
)

const StateTypeFinal = "final"

const (
	WaitingNone       = "none"
	WaitingHumanChat  = "human_chat"
	WaitingHumanEmail = "human_email"
	WaitingExternal   = "external"
)

const (
	EntryKindPrompt = "prompt"
	EntryKindScript = "script"
)

const DefaultMaxTurns = 20
const DefaultScriptTimeoutSeconds = 300

// WorkflowDefinition is the static transition table a workflow instance is
// built from. It is immutable once an instance exists.
type WorkflowDefinition struct {
	Initial string                 `json:"initial"`
	States  map[string]StateConfig `json:"states"`
}

type StateConfig struct {
	On   map[string]TransitionDef `json:"on,omitempty"`
	Type string                   `json:"type,omitempty"`
	Meta StateMeta                `json:"meta,omitempty"`
}

func (s StateConfig) IsFinal() bool {
	return s.Type == StateTypeFinal
}

// TransitionDef decodes from either a bare target-state string or an object
// carrying an optional guard expression.
type TransitionDef struct {
	Target string `json:"target"`
	Cond   string `json:"cond,omitempty"`
}

func (t *TransitionDef) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '"' {
		return json.Unmarshal(data, &t.Target)
	}
	type plain TransitionDef
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*t = TransitionDef(p)
	return nil
}

func (t TransitionDef) MarshalJSON() ([]byte, error) {
	if t.Cond == "" {
		return json.Marshal(t.Target)
	}
	type plain TransitionDef
	return json.Marshal(plain(t))
}

type StateMeta struct {
	Label          string       `json:"label,omitempty"`
	Description    string       `json:"description,omitempty"`
	WaitingFor     string       `json:"waitingFor,omitempty"`
	WaitingMessage string       `json:"waitingMessage,omitempty"`
	OnEntry        *EntryAction `json:"onEntry,omitempty"`
}

// EntryAction is a tagged union over Kind: a prompt handed to the AI
// collaborator, or a script run as a subprocess.
type EntryAction struct {
	Kind string `json:"kind"`
	File string `json:"file"`

	// prompt
	MaxTurns int `json:"maxTurns,omitempty"`

	// script
	TimeoutSeconds int    `json:"timeoutSeconds,omitempty"`
	OnSuccessEvent string `json:"onSuccessEvent,omitempty"`
	OnErrorEvent   string `json:"onErrorEvent,omitempty"`
}

// WorkflowInstance is one persisted, independently advancing state machine.
// Writes are always full-document replaces.
type WorkflowInstance struct {
	ID                string             `json:"id"`
	Name              string             `json:"name"`
	Description       string             `json:"description,omitempty"`
	CreatedAt         time.Time          `json:"createdAt"`
	UpdatedAt         time.Time          `json:"updatedAt"`
	Version           int                `json:"version"`
	Definition        WorkflowDefinition `json:"definition"`
	PersistedSnapshot json.RawMessage    `json:"persistedSnapshot"`
	CurrentState      string             `json:"currentState"`
	History           []TransitionRecord `json:"history"`
	Tags              []string           `json:"tags,omitempty"`
}

func (w *WorkflowInstance) CurrentConfig() StateConfig {
	return w.Definition.States[w.CurrentState]
}

type TransitionRecord struct {
	Timestamp time.Time      `json:"timestamp"`
	FromState string         `json:"fromState"`
	ToState   string         `json:"toState"`
	Event     string         `json:"event"`
	Data      map[string]any `json:"data,omitempty"`
}

type SendOptions struct {
	IgnoreInvalidTransitions bool
}

type TransitionResult struct {
	PreviousState string            `json:"previousState,omitempty"`
	CurrentState  string            `json:"currentState"`
	Transitioned  bool              `json:"transitioned"`
	Ignored       bool              `json:"ignored,omitempty"`
	Reason        string            `json:"reason,omitempty"`
	Instance      *WorkflowInstance `json:"instance,omitempty"`
}
