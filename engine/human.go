package engine

import (
	"github.com/kriyahq/kriya/model"
	"github.com/kriyahq/kriya/util"
)

// Choice is one selectable outgoing transition of a state waiting on
// human_chat input.
type Choice struct {
	Event string `json:"event"`
	Label string `json:"label"`
}

// ElicitationResult describes both the transition that parked the workflow
// and the follow-up transition taken on the human's choice.
type ElicitationResult struct {
	Original *model.TransitionResult `json:"original,omitempty"`
	FollowUp *model.TransitionResult `json:"followUp"`
}

// Choices derives the choice set for a workflow parked in a human_chat
// state. Labels are the event names title-cased on underscores.
func (s *Service) Choices(project string, id string) ([]Choice, error) {
	wf, err := s.storage.Read(project, id)
	if err != nil {
		return nil, err
	}
	cfg := wf.CurrentConfig()
	if cfg.Meta.WaitingFor != model.WaitingHumanChat {
		return nil, model.InvalidTransitionError{
			WorkflowID: id,
			State:      wf.CurrentState,
			Reason:     "state is not waiting for human chat input",
		}
	}
	events := util.SortedKeys(cfg.On)
	choices := make([]Choice, 0, len(events))
	for _, event := range events {
		choices = append(choices, Choice{Event: event, Label: util.EventLabel(event)})
	}
	return choices, nil
}

// Respond applies the human's chosen event, folding an optional free-text
// note into the event data, and pairs the follow-up transition with the
// original one the caller is responding to.
func (s *Service) Respond(project string, id string, original *model.TransitionResult, event string, note string) (*ElicitationResult, error) {
	data := map[string]any{}
	if note != "" {
		data["note"] = note
	}
	followUp, err := s.SendEvent(project, id, event, data, model.SendOptions{})
	if err != nil {
		return nil, err
	}
	return &ElicitationResult{Original: original, FollowUp: followUp}, nil
}
