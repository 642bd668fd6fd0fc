package engine

import (
	"fmt"
	"strings"
	"time"

	"github.com/kriyahq/kriya/action"
	"github.com/kriyahq/kriya/config"
	"github.com/kriyahq/kriya/flow"
	"github.com/kriyahq/kriya/logger"
	"github.com/kriyahq/kriya/model"
	"github.com/kriyahq/kriya/notify"
	"github.com/kriyahq/kriya/persistence"
	"github.com/kriyahq/kriya/util"
	"go.uber.org/zap"
)

// Service owns the workflow lifecycle: creation, transition execution,
// reads and deletion. Every read-modify-write on one instance is serialized
// through a per-(project,id) lock; different ids proceed independently.
type Service struct {
	storage       persistence.WorkflowStorage
	dispatcher    *action.Dispatcher
	notifier      *notify.Notifier
	locks         *util.KeyedMutex
	maxChainDepth int
}

var _ action.EventSender = new(Service)

func NewService(storage persistence.WorkflowStorage, notifier *notify.Notifier, workspaceDir string, prompts action.PromptRunner, scripts *action.ScriptExecutor, maxChainDepth int) *Service {
	if maxChainDepth <= 0 {
		maxChainDepth = config.DefaultMaxChainDepth
	}
	s := &Service{
		storage:       storage,
		notifier:      notifier,
		locks:         util.NewKeyedMutex(),
		maxChainDepth: maxChainDepth,
	}
	s.dispatcher = action.NewDispatcher(workspaceDir, prompts, scripts, s)
	return s
}

func lockKey(project string, id string) string {
	return project + "/" + id
}

// Create validates the definition, derives the instance id as a slug of the
// name and persists version 1. If the initial state declares an entry action
// it is dispatched once with previousState="" and event="INIT" before
// returning.
func (s *Service) Create(project string, name string, description string, def model.WorkflowDefinition, tags []string) (*model.WorkflowInstance, error) {
	if err := flow.Validate(def); err != nil {
		return nil, err
	}
	id := util.Slugify(name)
	if id == "" {
		return nil, model.ValidationError{Reason: fmt.Sprintf("name %q produces an empty id", name)}
	}

	machine, err := flow.New(def)
	if err != nil {
		return nil, err
	}
	snap, err := machine.Snapshot()
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	wf := &model.WorkflowInstance{
		ID:                id,
		Name:              name,
		Description:       description,
		CreatedAt:         now,
		UpdatedAt:         now,
		Version:           1,
		Definition:        def,
		PersistedSnapshot: snap,
		CurrentState:      def.Initial,
		History:           []model.TransitionRecord{},
		Tags:              tags,
	}

	unlock := s.locks.Lock(lockKey(project, id))
	err = s.storage.Create(project, wf)
	unlock()
	if err != nil {
		return nil, err
	}
	logger.Info("workflow created", zap.String("project", project), zap.String("workflow", id), zap.String("state", def.Initial))

	s.afterCommit(project, wf, "", def.Initial, "INIT", nil, 0)
	return wf, nil
}

// SendEvent advances one workflow by one event. See the package tests for
// the exact two-branch behavior on final states and unmatched events.
func (s *Service) SendEvent(project string, id string, event string, data map[string]any, opts model.SendOptions) (*model.TransitionResult, error) {
	return s.send(project, id, event, data, opts, 0)
}

// SendAutoEvent is the dispatcher's feedback path for script completion
// events. depth counts automatic transitions already taken in this chain.
func (s *Service) SendAutoEvent(project string, id string, event string, data map[string]any, depth int) error {
	if depth+1 > s.maxChainDepth {
		logger.Error("auto-chain depth exceeded, workflow left parked",
			zap.String("project", project), zap.String("workflow", id), zap.String("event", event), zap.Int("depth", depth))
		return model.ExecutionError{WorkflowID: id, Reason: fmt.Sprintf("auto-chain depth %d exceeded", s.maxChainDepth)}
	}
	_, err := s.send(project, id, event, data, model.SendOptions{}, depth+1)
	return err
}

func (s *Service) send(project string, id string, event string, data map[string]any, opts model.SendOptions, depth int) (*model.TransitionResult, error) {
	unlock := s.locks.Lock(lockKey(project, id))
	outcome, prev, resolved, err := s.commit(project, id, event, data, opts)
	unlock()
	if err != nil {
		return nil, err
	}
	if !outcome.committed {
		return outcome.result, nil
	}

	s.afterCommit(project, outcome.instance, prev, outcome.instance.CurrentState, resolved, data, depth)

	return &model.TransitionResult{
		PreviousState: prev,
		CurrentState:  outcome.instance.CurrentState,
		Transitioned:  true,
		Instance:      outcome.instance,
	}, nil
}

type commitOutcome struct {
	committed bool
	instance  *model.WorkflowInstance
	result    *model.TransitionResult
}

// commit performs the locked read-modify-write portion of sendEvent and
// returns either a committed instance or a non-transition result.
func (s *Service) commit(project string, id string, event string, data map[string]any, opts model.SendOptions) (commitOutcome, string, string, error) {
	none := commitOutcome{}
	wf, err := s.storage.Read(project, id)
	if err != nil {
		return none, "", "", err
	}

	if wf.CurrentConfig().IsFinal() {
		reason := fmt.Sprintf("state %q is final and accepts no events", wf.CurrentState)
		res, err := s.reject(wf, event, reason, opts)
		return commitOutcome{result: res}, "", "", err
	}

	machine, err := flow.Restore(wf.Definition, wf.PersistedSnapshot)
	if err != nil {
		return none, "", "", err
	}

	resolved := machine.ResolveEvent(event)
	prev := machine.State()
	newState, moved := machine.Send(resolved, data)
	if !moved {
		reason := fmt.Sprintf("no transition for event %q in state %q, available events: %s",
			resolved, prev, strings.Join(machine.AvailableEvents(), ", "))
		res, err := s.reject(wf, event, reason, opts)
		return commitOutcome{result: res}, "", "", err
	}

	snap, err := machine.Snapshot()
	if err != nil {
		return none, "", "", err
	}
	now := time.Now().UTC()
	wf.PersistedSnapshot = snap
	wf.CurrentState = newState
	wf.Version++
	wf.UpdatedAt = now
	wf.History = append(wf.History, model.TransitionRecord{
		Timestamp: now,
		FromState: prev,
		ToState:   newState,
		Event:     resolved,
		Data:      data,
	})
	if err := s.storage.Write(project, wf); err != nil {
		return none, "", "", err
	}
	logger.Info("workflow transitioned",
		zap.String("project", project), zap.String("workflow", id),
		zap.String("from", prev), zap.String("to", newState),
		zap.String("event", resolved), zap.Int("version", wf.Version))
	return commitOutcome{committed: true, instance: wf}, prev, resolved, nil
}

func (s *Service) reject(wf *model.WorkflowInstance, event string, reason string, opts model.SendOptions) (*model.TransitionResult, error) {
	if opts.IgnoreInvalidTransitions {
		logger.Debug("event ignored", zap.String("workflow", wf.ID), zap.String("event", event), zap.String("reason", reason))
		return &model.TransitionResult{
			CurrentState: wf.CurrentState,
			Transitioned: false,
			Ignored:      true,
			Reason:       reason,
		}, nil
	}
	return nil, model.InvalidTransitionError{
		WorkflowID: wf.ID,
		State:      wf.CurrentState,
		Event:      event,
		Reason:     reason,
	}
}

// afterCommit runs outside the instance lock so a script's completion event
// can re-enter sendEvent without deadlocking.
func (s *Service) afterCommit(project string, wf *model.WorkflowInstance, previousState string, newState string, event string, data map[string]any, depth int) {
	cfg := wf.Definition.States[newState]
	if cfg.Meta.OnEntry != nil {
		s.dispatcher.Dispatch(project, wf, previousState, newState, event, data, depth)
	}
	s.notifier.Notify(notify.Transition{
		Project:       project,
		WorkflowID:    wf.ID,
		WorkflowName:  wf.Name,
		PreviousState: previousState,
		NewState:      newState,
		Event:         event,
		Data:          data,
		NewStateMeta:  cfg.Meta,
		IsFinal:       cfg.IsFinal(),
	})
}

func (s *Service) GetStatus(project string, id string) (*model.WorkflowStatus, error) {
	wf, err := s.storage.Read(project, id)
	if err != nil {
		return nil, err
	}
	cfg := wf.CurrentConfig()
	events := []string{}
	if !cfg.IsFinal() {
		events = util.SortedKeys(cfg.On)
	}
	waitingFor := cfg.Meta.WaitingFor
	return &model.WorkflowStatus{
		CurrentState:    wf.CurrentState,
		Label:           cfg.Meta.Label,
		Description:     cfg.Meta.Description,
		AvailableEvents: events,
		IsWaiting:       waitingFor != "" && waitingFor != model.WaitingNone,
		WaitingFor:      waitingFor,
		WaitingMessage:  cfg.Meta.WaitingMessage,
		IsFinal:         cfg.IsFinal(),
		Version:         wf.Version,
		UpdatedAt:       wf.UpdatedAt,
	}, nil
}

func (s *Service) GetDefinition(project string, id string) (*model.WorkflowInstance, error) {
	return s.storage.Read(project, id)
}

func (s *Service) List(project string, tag string, state string) ([]model.WorkflowSummary, error) {
	return s.storage.List(project, persistence.WorkflowFilter{Tag: tag, State: state})
}

func (s *Service) Delete(project string, id string) error {
	unlock := s.locks.Lock(lockKey(project, id))
	defer unlock()
	return s.storage.Delete(project, id)
}

// GetGraph derives a node/edge view of the definition plus the instance's
// current position.
func (s *Service) GetGraph(project string, id string) (*model.Graph, error) {
	wf, err := s.storage.Read(project, id)
	if err != nil {
		return nil, err
	}
	def := wf.Definition
	nodes := make([]model.GraphNode, 0, len(def.States))
	edges := make([]model.GraphEdge, 0)
	for _, name := range util.SortedKeys(def.States) {
		cfg := def.States[name]
		nodeType := model.NodeTypeNormal
		switch {
		case name == def.Initial:
			nodeType = model.NodeTypeInitial
		case cfg.IsFinal():
			nodeType = model.NodeTypeFinal
		case cfg.Meta.WaitingFor != "" && cfg.Meta.WaitingFor != model.WaitingNone:
			nodeType = model.NodeTypeWaiting
		}
		nodes = append(nodes, model.GraphNode{ID: name, Type: nodeType, Label: cfg.Meta.Label})
		for _, event := range util.SortedKeys(cfg.On) {
			edges = append(edges, model.GraphEdge{From: name, To: cfg.On[event].Target, Event: event})
		}
	}
	return &model.Graph{Nodes: nodes, Edges: edges, CurrentState: wf.CurrentState}, nil
}
