package action

import (
	"bytes"
	"encoding/json"
	"os/exec"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/kriyahq/kriya/model"
)

// ScriptContext is written to the script's standard input as one JSON object.
type ScriptContext struct {
	WorkflowID    string         `json:"workflowId"`
	WorkflowName  string         `json:"workflowName"`
	PreviousState string         `json:"previousState"`
	NewState      string         `json:"newState"`
	Event         string         `json:"event"`
	Data          map[string]any `json:"data,omitempty"`
	Project       string         `json:"project"`
	WorkspaceDir  string         `json:"workspaceDir"`
}

// ScriptExecutor spawns the interpreter on a script file with the project
// root as working directory. Timeout handling is two-phase: SIGTERM, then
// SIGKILL after the grace window.
type ScriptExecutor struct {
	interpreter string
	installer   *Installer
	execLog     *ExecLog
	killGrace   time.Duration
}

func NewScriptExecutor(interpreter string, installer *Installer, execLog *ExecLog, killGrace time.Duration) *ScriptExecutor {
	return &ScriptExecutor{
		interpreter: interpreter,
		installer:   installer,
		execLog:     execLog,
		killGrace:   killGrace,
	}
}

// Run executes one script and returns its parsed result, if any. A non-zero
// exit, a timeout or an install failure come back as model.ExecutionError.
func (e *ScriptExecutor) Run(project string, dir string, file string, sctx ScriptContext, timeout time.Duration) (map[string]any, error) {
	path := filepath.Join(dir, file)
	e.execLog.Called(project, sctx.WorkflowID, sctx.NewState, file)

	if err := e.installer.Ensure(project, path); err != nil {
		e.execLog.Errored(project, sctx.WorkflowID, sctx.NewState, file, err.Error())
		return nil, model.ExecutionError{WorkflowID: sctx.WorkflowID, State: sctx.NewState, Reason: "dependency install failed", Err: err}
	}

	input, err := json.Marshal(sctx)
	if err != nil {
		return nil, err
	}

	cmd := exec.Command(e.interpreter, path)
	cmd.Dir = dir
	cmd.Stdin = bytes.NewReader(input)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Start(); err != nil {
		e.execLog.Errored(project, sctx.WorkflowID, sctx.NewState, file, err.Error())
		return nil, model.ExecutionError{WorkflowID: sctx.WorkflowID, State: sctx.NewState, Reason: "script start failed", Err: err}
	}

	done := make(chan error, 1)
	go func() { done <- cmd.Wait() }()

	select {
	case err = <-done:
	case <-time.After(timeout):
		cmd.Process.Signal(syscall.SIGTERM)
		select {
		case <-done:
		case <-time.After(e.killGrace):
			cmd.Process.Kill()
			<-done
		}
		e.execLog.Errored(project, sctx.WorkflowID, sctx.NewState, file, "timeout")
		return nil, model.ExecutionError{WorkflowID: sctx.WorkflowID, State: sctx.NewState, Reason: "script timed out"}
	}

	if err != nil {
		reason := strings.TrimSpace(stderr.String())
		if reason == "" {
			reason = err.Error()
		}
		e.execLog.Errored(project, sctx.WorkflowID, sctx.NewState, file, reason)
		return nil, model.ExecutionError{WorkflowID: sctx.WorkflowID, State: sctx.NewState, Reason: "script exited non-zero", Err: err}
	}

	e.execLog.Succeeded(project, sctx.WorkflowID, sctx.NewState, file)
	return parseResult(stdout.String()), nil
}

// parseResult takes the last non-empty stdout line and decodes it as a JSON
// object if it is one. Anything else means no script-defined result.
func parseResult(stdout string) map[string]any {
	lines := strings.Split(strings.TrimSpace(stdout), "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		line := strings.TrimSpace(lines[i])
		if line == "" {
			continue
		}
		var result map[string]any
		if err := json.Unmarshal([]byte(line), &result); err == nil {
			return result
		}
		return nil
	}
	return nil
}
