package notify

import (
	"github.com/kriyahq/kriya/logger"
	"github.com/kriyahq/kriya/model"
	"go.uber.org/zap"
)

// Transition is what observers and the event bus receive after every
// committed transition, including initial-state entry on creation.
type Transition struct {
	Project       string          `json:"project"`
	WorkflowID    string          `json:"workflowId"`
	WorkflowName  string          `json:"workflowName"`
	PreviousState string          `json:"previousState"`
	NewState      string          `json:"newState"`
	Event         string          `json:"event"`
	Data          map[string]any  `json:"data,omitempty"`
	NewStateMeta  model.StateMeta `json:"newStateMeta"`
	IsFinal       bool            `json:"isFinal"`
}

// Observer is an in-process transition listener. A failing observer never
// aborts the transition or the observers after it.
type Observer interface {
	OnTransition(t Transition) error
}

type Notifier struct {
	observers []Observer
	bus       *Bus
}

// NewNotifier builds a notifier over an ordered observer list. bus may be
// nil when no external event bus is configured.
func NewNotifier(bus *Bus, observers ...Observer) *Notifier {
	return &Notifier{observers: observers, bus: bus}
}

// Register appends an observer. Registration happens at startup, before
// transitions flow.
func (n *Notifier) Register(o Observer) {
	n.observers = append(n.observers, o)
}

// Notify fans the transition out to every observer in order, then publishes
// to the event bus best-effort.
func (n *Notifier) Notify(t Transition) {
	for _, o := range n.observers {
		n.notifyOne(o, t)
	}
	if n.bus != nil {
		n.bus.Publish(t)
	}
}

func (n *Notifier) notifyOne(o Observer, t Transition) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("observer panicked", zap.String("workflow", t.WorkflowID), zap.Any("panic", r))
		}
	}()
	if err := o.OnTransition(t); err != nil {
		logger.Error("observer failed", zap.String("workflow", t.WorkflowID), zap.String("event", t.Event), zap.Error(err))
	}
}

// LoggingObserver logs every committed transition.
type LoggingObserver struct{}

func NewLoggingObserver() *LoggingObserver {
	return &LoggingObserver{}
}

func (o *LoggingObserver) OnTransition(t Transition) error {
	logger.Info("workflow transition",
		zap.String("project", t.Project),
		zap.String("workflow", t.WorkflowID),
		zap.String("from", t.PreviousState),
		zap.String("to", t.NewState),
		zap.String("event", t.Event),
		zap.Bool("final", t.IsFinal))
	return nil
}
