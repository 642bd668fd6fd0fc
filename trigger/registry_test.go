package trigger

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kriyahq/kriya/model"
	"github.com/kriyahq/kriya/persistence"
	fsstore "github.com/kriyahq/kriya/persistence/fs"
)

type sentEvent struct {
	project    string
	workflowID string
	event      string
	data       map[string]any
	opts       model.SendOptions
}

type fakeSender struct {
	sent   []sentEvent
	result *model.TransitionResult
	err    error
}

func (f *fakeSender) SendEvent(project string, workflowID string, event string, data map[string]any, opts model.SendOptions) (*model.TransitionResult, error) {
	f.sent = append(f.sent, sentEvent{project: project, workflowID: workflowID, event: event, data: data, opts: opts})
	if f.err != nil {
		return nil, f.err
	}
	if f.result != nil {
		return f.result, nil
	}
	return &model.TransitionResult{Transitioned: true, CurrentState: "next"}, nil
}

func newTestRegistry(t *testing.T) (*Registry, *fakeSender) {
	t.Helper()
	registry, sender, _ := newTestRegistryWithStore(t)
	return registry, sender
}

func newTestRegistryWithStore(t *testing.T) (*Registry, *fakeSender, persistence.TriggerStorage) {
	t.Helper()
	sender := &fakeSender{}
	store := fsstore.NewTriggerStorage(t.TempDir())
	return NewRegistry(store, sender), sender, store
}

func TestRegisterAndList(t *testing.T) {
	registry, _ := newTestRegistry(t)

	rule, err := registry.Register("acme", RegisterRequest{
		Name:          "pr merged",
		WorkflowID:    "release-flow",
		WorkflowEvent: "PR_MERGED",
		Condition:     map[string]any{"action": "closed", "merged": true},
	})
	require.NoError(t, err)
	require.NotEmpty(t, rule.ID)
	require.True(t, rule.Enabled)
	require.True(t, rule.MapPayload)

	_, err = registry.Register("acme", RegisterRequest{Name: "other", WorkflowID: "other-flow", WorkflowEvent: "PING"})
	require.NoError(t, err)

	all, err := registry.List("acme", "")
	require.NoError(t, err)
	require.Len(t, all, 2)

	scoped, err := registry.List("acme", "release-flow")
	require.NoError(t, err)
	require.Len(t, scoped, 1)
	require.Equal(t, rule.ID, scoped[0].ID)
}

func TestUnregister(t *testing.T) {
	registry, _ := newTestRegistry(t)
	rule, err := registry.Register("acme", RegisterRequest{Name: "one", WorkflowID: "wf", WorkflowEvent: "GO"})
	require.NoError(t, err)

	require.NoError(t, registry.Unregister("acme", rule.ID))
	var notFound model.NotFoundError
	require.ErrorAs(t, registry.Unregister("acme", rule.ID), &notFound)
}

func TestUnregisterWorkflowRemovesAllBoundRules(t *testing.T) {
	registry, _ := newTestRegistry(t)
	for _, event := range []string{"OPENED", "CLOSED"} {
		_, err := registry.Register("acme", RegisterRequest{Name: event, WorkflowID: "wf", WorkflowEvent: event})
		require.NoError(t, err)
	}
	_, err := registry.Register("acme", RegisterRequest{Name: "keep", WorkflowID: "other", WorkflowEvent: "GO"})
	require.NoError(t, err)

	count, err := registry.UnregisterWorkflow("acme", "wf")
	require.NoError(t, err)
	require.Equal(t, 2, count)

	rest, err := registry.List("acme", "")
	require.NoError(t, err)
	require.Len(t, rest, 1)
	require.Equal(t, "other", rest[0].WorkflowID)
}

func TestOnConditionMatchedForwardsPayload(t *testing.T) {
	registry, sender := newTestRegistry(t)
	rule, err := registry.Register("acme", RegisterRequest{Name: "merge", WorkflowID: "wf", WorkflowEvent: "PR_MERGED"})
	require.NoError(t, err)

	payload := map[string]any{"number": float64(41), "title": "fix race"}
	require.NoError(t, registry.OnConditionMatched("acme", rule.ID, payload))

	require.Len(t, sender.sent, 1)
	got := sender.sent[0]
	require.Equal(t, "wf", got.workflowID)
	require.Equal(t, "PR_MERGED", got.event)
	require.Equal(t, payload, got.data)
	require.True(t, got.opts.IgnoreInvalidTransitions)
}

func TestOnConditionMatchedDropsPayloadWhenMappingDisabled(t *testing.T) {
	registry, sender := newTestRegistry(t)
	off := false
	rule, err := registry.Register("acme", RegisterRequest{Name: "merge", WorkflowID: "wf", WorkflowEvent: "PR_MERGED", MapPayload: &off})
	require.NoError(t, err)

	require.NoError(t, registry.OnConditionMatched("acme", rule.ID, map[string]any{"secret": "x"}))
	require.Nil(t, sender.sent[0].data)
}

func TestOnConditionMatchedPayloadPath(t *testing.T) {
	registry, sender := newTestRegistry(t)
	rule, err := registry.Register("acme", RegisterRequest{
		Name:          "merge",
		WorkflowID:    "wf",
		WorkflowEvent: "PR_MERGED",
		PayloadPath:   "$.pull_request",
	})
	require.NoError(t, err)

	payload := map[string]any{
		"action":       "closed",
		"pull_request": map[string]any{"number": float64(7), "merged": true},
	}
	require.NoError(t, registry.OnConditionMatched("acme", rule.ID, payload))
	require.Equal(t, map[string]any{"number": float64(7), "merged": true}, sender.sent[0].data)
}

func TestOnConditionMatchedScalarPathIsWrapped(t *testing.T) {
	registry, sender := newTestRegistry(t)
	rule, err := registry.Register("acme", RegisterRequest{
		Name:          "merge",
		WorkflowID:    "wf",
		WorkflowEvent: "PR_MERGED",
		PayloadPath:   "$.pull_request.number",
	})
	require.NoError(t, err)

	payload := map[string]any{"pull_request": map[string]any{"number": float64(7)}}
	require.NoError(t, registry.OnConditionMatched("acme", rule.ID, payload))
	require.Equal(t, map[string]any{"value": float64(7)}, sender.sent[0].data)
}

func TestOnConditionMatchedSkipsDisabledRule(t *testing.T) {
	registry, sender, store := newTestRegistryWithStore(t)
	rule, err := registry.Register("acme", RegisterRequest{Name: "merge", WorkflowID: "wf", WorkflowEvent: "GO"})
	require.NoError(t, err)

	rule.Enabled = false
	require.NoError(t, store.Save("acme", rule))

	require.NoError(t, registry.OnConditionMatched("acme", rule.ID, nil))
	require.Empty(t, sender.sent)
}

func TestOnConditionMatchedUnknownRule(t *testing.T) {
	registry, _ := newTestRegistry(t)
	var notFound model.NotFoundError
	require.ErrorAs(t, registry.OnConditionMatched("acme", "missing", nil), &notFound)
}

func TestOnConditionMatchedSwallowsEngineErrors(t *testing.T) {
	registry, sender := newTestRegistry(t)
	sender.err = model.NotFoundError{Kind: "workflow", ID: "wf"}
	rule, err := registry.Register("acme", RegisterRequest{Name: "merge", WorkflowID: "wf", WorkflowEvent: "GO"})
	require.NoError(t, err)

	require.NoError(t, registry.OnConditionMatched("acme", rule.ID, nil))
	require.Len(t, sender.sent, 1)
}
