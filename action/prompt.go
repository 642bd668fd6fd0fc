package action

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

type PromptRequest struct {
	Project      string         `json:"project"`
	WorkflowID   string         `json:"workflowId"`
	WorkflowName string         `json:"workflowName"`
	Prompt       string         `json:"prompt"`
	MaxTurns     int            `json:"maxTurns"`
	Context      map[string]any `json:"context"`
}

// PromptRunner is the external prompt-execution collaborator. The engine
// hands it the prompt text and transition context and does not wait for a
// result.
type PromptRunner interface {
	Run(ctx context.Context, req PromptRequest) error
}

var _ PromptRunner = new(httpPromptRunner)

type httpPromptRunner struct {
	endpoint string
	client   *http.Client
}

func NewHTTPPromptRunner(endpoint string) *httpPromptRunner {
	return &httpPromptRunner{
		endpoint: endpoint,
		client:   &http.Client{Timeout: 120 * time.Second},
	}
}

func (r *httpPromptRunner) Run(ctx context.Context, req PromptRequest) error {
	body, err := json.Marshal(req)
	if err != nil {
		return err
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, r.endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	resp, err := r.client.Do(httpReq)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("prompt backend returned status %d", resp.StatusCode)
	}
	return nil
}
