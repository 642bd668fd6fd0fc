package persistence

import (
	"github.com/kriyahq/kriya/model"
)

type WorkflowFilter struct {
	Tag   string
	State string
}

// WorkflowStorage is durable CRUD over one JSON document per workflow
// instance. It provides no locking; concurrency discipline belongs to the
// engine.
type WorkflowStorage interface {
	// Create fails with model.DuplicateError if the id is already taken.
	Create(project string, wf *model.WorkflowInstance) error
	// Read fails with model.NotFoundError if the document is absent.
	Read(project string, id string) (*model.WorkflowInstance, error)
	// Write replaces the whole document.
	Write(project string, wf *model.WorkflowInstance) error
	// List returns summaries sorted by UpdatedAt descending.
	List(project string, filter WorkflowFilter) ([]model.WorkflowSummary, error)
	// Delete fails with model.NotFoundError if the document is absent.
	Delete(project string, id string) error
}

// TriggerStorage persists trigger rules for the registry.
type TriggerStorage interface {
	Save(project string, rule *model.TriggerRule) error
	Get(project string, ruleId string) (*model.TriggerRule, error)
	Delete(project string, ruleId string) error
	List(project string) ([]model.TriggerRule, error)
}

func Summarize(wf *model.WorkflowInstance) model.WorkflowSummary {
	return model.WorkflowSummary{
		ID:           wf.ID,
		Name:         wf.Name,
		Description:  wf.Description,
		CurrentState: wf.CurrentState,
		IsFinal:      wf.CurrentConfig().IsFinal(),
		Tags:         wf.Tags,
		Version:      wf.Version,
		CreatedAt:    wf.CreatedAt,
		UpdatedAt:    wf.UpdatedAt,
	}
}

// MatchesFilter applies tag and state filters to one instance.
func MatchesFilter(wf *model.WorkflowInstance, filter WorkflowFilter) bool {
	if filter.State != "" && wf.CurrentState != filter.State {
		return false
	}
	if filter.Tag != "" {
		found := false
		for _, t := range wf.Tags {
			if t == filter.Tag {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}
