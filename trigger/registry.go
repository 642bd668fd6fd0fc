package trigger

import (
	"time"

	"github.com/google/uuid"
	"github.com/oliveagle/jsonpath"

	"github.com/kriyahq/kriya/logger"
	"github.com/kriyahq/kriya/model"
	"github.com/kriyahq/kriya/persistence"
	"go.uber.org/zap"
)

// EventSender delivers trigger-driven events to the workflow engine.
type EventSender interface {
	SendEvent(project string, workflowID string, event string, data map[string]any, opts model.SendOptions) (*model.TransitionResult, error)
}

// Registry maps external condition events onto workflow transitions. It
// never evaluates conditions itself; the external matcher calls
// OnConditionMatched once a candidate event satisfies a rule.
type Registry struct {
	store  persistence.TriggerStorage
	sender EventSender
}

func NewRegistry(store persistence.TriggerStorage, sender EventSender) *Registry {
	return &Registry{store: store, sender: sender}
}

type RegisterRequest struct {
	Name          string `json:"name"`
	WorkflowID    string `json:"workflowId"`
	WorkflowEvent string `json:"workflowEvent"`
	Condition     any    `json:"condition"`
	MapPayload    *bool  `json:"mapPayload,omitempty"`
	PayloadPath   string `json:"payloadPath,omitempty"`
}

// Register persists a new rule and returns it with its generated id.
// mapPayload defaults to true.
func (r *Registry) Register(project string, req RegisterRequest) (*model.TriggerRule, error) {
	mapPayload := true
	if req.MapPayload != nil {
		mapPayload = *req.MapPayload
	}
	rule := &model.TriggerRule{
		ID:            uuid.NewString(),
		Name:          req.Name,
		Enabled:       true,
		Condition:     req.Condition,
		WorkflowID:    req.WorkflowID,
		WorkflowEvent: req.WorkflowEvent,
		MapPayload:    mapPayload,
		PayloadPath:   req.PayloadPath,
		CreatedAt:     time.Now().UTC(),
	}
	if err := r.store.Save(project, rule); err != nil {
		return nil, err
	}
	logger.Info("trigger registered", zap.String("project", project), zap.String("rule", rule.ID), zap.String("workflow", rule.WorkflowID), zap.String("event", rule.WorkflowEvent))
	return rule, nil
}

// Unregister deletes one rule by id.
func (r *Registry) Unregister(project string, ruleID string) error {
	return r.store.Delete(project, ruleID)
}

// UnregisterWorkflow deletes every rule bound to the workflow and returns
// how many were removed.
func (r *Registry) UnregisterWorkflow(project string, workflowID string) (int, error) {
	rules, err := r.store.List(project)
	if err != nil {
		return 0, err
	}
	count := 0
	for _, rule := range rules {
		if rule.WorkflowID != workflowID {
			continue
		}
		if err := r.store.Delete(project, rule.ID); err != nil {
			return count, err
		}
		count++
	}
	return count, nil
}

// List returns all rules, optionally filtered by workflow id.
func (r *Registry) List(project string, workflowID string) ([]model.TriggerRule, error) {
	rules, err := r.store.List(project)
	if err != nil {
		return nil, err
	}
	if workflowID == "" {
		return rules, nil
	}
	filtered := make([]model.TriggerRule, 0, len(rules))
	for _, rule := range rules {
		if rule.WorkflowID == workflowID {
			filtered = append(filtered, rule)
		}
	}
	return filtered, nil
}

// OnConditionMatched is the entry point for the external condition matcher.
// The engine call always runs with ignore semantics: a rule firing while the
// target workflow is in an unrelated state is expected, not an error. Engine
// failures are logged, never surfaced to the event producer.
func (r *Registry) OnConditionMatched(project string, ruleID string, payload map[string]any) error {
	rule, err := r.store.Get(project, ruleID)
	if err != nil {
		return err
	}
	if !rule.Enabled {
		return nil
	}
	data := mapPayload(rule, payload)
	res, err := r.sender.SendEvent(project, rule.WorkflowID, rule.WorkflowEvent, data, model.SendOptions{IgnoreInvalidTransitions: true})
	if err != nil {
		logger.Error("trigger-driven event failed", zap.String("project", project), zap.String("rule", rule.ID), zap.String("workflow", rule.WorkflowID), zap.Error(err))
		return nil
	}
	if res.Ignored {
		logger.Debug("trigger-driven event ignored", zap.String("rule", rule.ID), zap.String("workflow", rule.WorkflowID), zap.String("reason", res.Reason))
	}
	return nil
}

// mapPayload applies the rule's payload mapping: drop it, forward it, or
// narrow it through the rule's jsonpath.
func mapPayload(rule *model.TriggerRule, payload map[string]any) map[string]any {
	if !rule.MapPayload {
		return nil
	}
	if rule.PayloadPath == "" {
		return payload
	}
	value, err := jsonpath.JsonPathLookup(payload, rule.PayloadPath)
	if err != nil {
		logger.Error("payload path lookup failed", zap.String("rule", rule.ID), zap.String("path", rule.PayloadPath), zap.Error(err))
		return nil
	}
	if m, ok := value.(map[string]any); ok {
		return m
	}
	return map[string]any{"value": value}
}
