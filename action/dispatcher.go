package action

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/kriyahq/kriya/logger"
	"github.com/kriyahq/kriya/model"
	"go.uber.org/zap"
)

// EventSender feeds automatic completion events back into the engine. depth
// counts automatic transitions in the current chain so the engine can bound
// recursion.
type EventSender interface {
	SendAutoEvent(project string, workflowID string, event string, data map[string]any, depth int) error
}

// Dispatcher executes the entry action bound to a newly entered state and
// auto-advances the machine on the outcome. Execution failures never reach
// the transition caller; they are routed to onErrorEvent or logged.
type Dispatcher struct {
	workspaceDir string
	prompts      PromptRunner
	scripts      *ScriptExecutor
	sender       EventSender

	defaultMaxTurns int
	defaultTimeout  time.Duration
}

func NewDispatcher(workspaceDir string, prompts PromptRunner, scripts *ScriptExecutor, sender EventSender) *Dispatcher {
	return &Dispatcher{
		workspaceDir:    workspaceDir,
		prompts:         prompts,
		scripts:         scripts,
		sender:          sender,
		defaultMaxTurns: model.DefaultMaxTurns,
		defaultTimeout:  model.DefaultScriptTimeoutSeconds * time.Second,
	}
}

func (d *Dispatcher) projectDir(project string) string {
	return filepath.Join(d.workspaceDir, project)
}

// Dispatch runs the onEntry action of newState, if any. Scripts run
// synchronously; prompts are fire-and-forget.
func (d *Dispatcher) Dispatch(project string, wf *model.WorkflowInstance, previousState string, newState string, event string, data map[string]any, depth int) {
	cfg, ok := wf.Definition.States[newState]
	if !ok || cfg.Meta.OnEntry == nil {
		return
	}
	entry := cfg.Meta.OnEntry
	switch entry.Kind {
	case model.EntryKindPrompt:
		d.runPrompt(project, wf, entry, previousState, newState, event, data)
	case model.EntryKindScript:
		d.runScript(project, wf, entry, previousState, newState, event, data, depth)
	default:
		logger.Error("unknown entry action kind", zap.String("workflow", wf.ID), zap.String("state", newState), zap.String("kind", entry.Kind))
	}
}

func (d *Dispatcher) runPrompt(project string, wf *model.WorkflowInstance, entry *model.EntryAction, previousState string, newState string, event string, data map[string]any) {
	promptPath := filepath.Join(d.projectDir(project), entry.File)
	prompt, err := os.ReadFile(promptPath)
	if err != nil {
		logger.Error("error reading prompt file", zap.String("workflow", wf.ID), zap.String("file", promptPath), zap.Error(err))
		return
	}
	maxTurns := entry.MaxTurns
	if maxTurns <= 0 {
		maxTurns = d.defaultMaxTurns
	}
	req := PromptRequest{
		Project:      project,
		WorkflowID:   wf.ID,
		WorkflowName: wf.Name,
		Prompt:       string(prompt),
		MaxTurns:     maxTurns,
		Context: map[string]any{
			"previousState": previousState,
			"newState":      newState,
			"event":         event,
			"data":          data,
		},
	}
	// The prompt is expected to call sendEvent itself to continue the
	// workflow; the result is not inspected here.
	go func() {
		if err := d.prompts.Run(context.Background(), req); err != nil {
			logger.Error("prompt execution failed", zap.String("workflow", wf.ID), zap.String("state", newState), zap.Error(err))
		}
	}()
}

func (d *Dispatcher) runScript(project string, wf *model.WorkflowInstance, entry *model.EntryAction, previousState string, newState string, event string, data map[string]any, depth int) {
	timeout := d.defaultTimeout
	if entry.TimeoutSeconds > 0 {
		timeout = time.Duration(entry.TimeoutSeconds) * time.Second
	}
	sctx := ScriptContext{
		WorkflowID:    wf.ID,
		WorkflowName:  wf.Name,
		PreviousState: previousState,
		NewState:      newState,
		Event:         event,
		Data:          data,
		Project:       project,
		WorkspaceDir:  d.projectDir(project),
	}
	result, err := d.scripts.Run(project, d.projectDir(project), entry.File, sctx, timeout)
	if err != nil {
		logger.Error("script entry action failed", zap.String("workflow", wf.ID), zap.String("state", newState), zap.Error(err))
		if entry.OnErrorEvent != "" {
			d.autoAdvance(project, wf.ID, newState, entry.OnErrorEvent, map[string]any{}, depth)
		}
		return
	}
	if entry.OnSuccessEvent != "" {
		if result == nil {
			result = map[string]any{}
		}
		d.autoAdvance(project, wf.ID, newState, entry.OnSuccessEvent, result, depth)
	}
}

func (d *Dispatcher) autoAdvance(project string, workflowID string, state string, event string, data map[string]any, depth int) {
	if err := d.sender.SendAutoEvent(project, workflowID, event, data, depth); err != nil {
		logger.Error("automatic transition failed", zap.String("workflow", workflowID), zap.String("state", state), zap.String("event", event), zap.Error(err))
	}
}
