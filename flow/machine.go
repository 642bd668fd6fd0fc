package flow

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/kriyahq/kriya/logger"
	"github.com/kriyahq/kriya/model"
	"github.com/kriyahq/kriya/util"
	"go.uber.org/zap"
)

// Machine is an executable view over one workflow instance, restored from a
// persisted snapshot. It holds the current state and the accumulated event
// context; the definition itself never changes.
type Machine struct {
	def     model.WorkflowDefinition
	state   string
	context map[string]any
}

// snapshot is the persisted machine state. It is opaque to every caller but
// this package.
type snapshot struct {
	State   string         `json:"state"`
	Context map[string]any `json:"context,omitempty"`
}

// Validate checks a definition the way creation requires: initial must be
// set, states must be non-empty, initial must resolve to a state.
func Validate(def model.WorkflowDefinition) error {
	if def.Initial == "" {
		return model.ValidationError{Reason: "initial state is not set"}
	}
	if len(def.States) == 0 {
		return model.ValidationError{Reason: "states is empty"}
	}
	if _, ok := def.States[def.Initial]; !ok {
		return model.ValidationError{Reason: fmt.Sprintf("initial state %q is not defined in states", def.Initial)}
	}
	return nil
}

// New builds a fresh machine positioned at the definition's initial state.
func New(def model.WorkflowDefinition) (*Machine, error) {
	if err := Validate(def); err != nil {
		return nil, err
	}
	return &Machine{
		def:     def,
		state:   def.Initial,
		context: make(map[string]any),
	}, nil
}

// Restore rebuilds a machine from a persisted snapshot.
func Restore(def model.WorkflowDefinition, raw json.RawMessage) (*Machine, error) {
	var snap snapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		return nil, fmt.Errorf("unreadable snapshot: %w", err)
	}
	if _, ok := def.States[snap.State]; !ok {
		return nil, fmt.Errorf("snapshot state %q is not defined in states", snap.State)
	}
	if snap.Context == nil {
		snap.Context = make(map[string]any)
	}
	return &Machine{
		def:     def,
		state:   snap.State,
		context: snap.Context,
	}, nil
}

func (m *Machine) Snapshot() (json.RawMessage, error) {
	return json.Marshal(snapshot{State: m.state, Context: m.context})
}

func (m *Machine) State() string {
	return m.state
}

func (m *Machine) Final() bool {
	return m.def.States[m.state].IsFinal()
}

// ResolveEvent matches an event name case-insensitively against the current
// state's transition keys, returning the canonical key. If nothing matches it
// returns the literal name so the caller surfaces a clear "no matching
// transition" outcome instead of a silent rename.
func (m *Machine) ResolveEvent(event string) string {
	for name := range m.def.States[m.state].On {
		if strings.EqualFold(name, event) {
			return name
		}
	}
	return event
}

// AvailableEvents lists the current state's outgoing event names, sorted.
// Final states have none.
func (m *Machine) AvailableEvents() []string {
	cfg := m.def.States[m.state]
	if cfg.IsFinal() {
		return []string{}
	}
	return util.SortedKeys(cfg.On)
}

// Send applies one already-resolved event. It reports the resulting state and
// whether a transition occurred; the machine is unchanged on a no-op.
func (m *Machine) Send(event string, data map[string]any) (string, bool) {
	cfg, ok := m.def.States[m.state]
	if !ok || cfg.IsFinal() {
		return m.state, false
	}
	tr, ok := cfg.On[event]
	if !ok {
		return m.state, false
	}
	if _, ok := m.def.States[tr.Target]; !ok {
		logger.Error("transition target is not a defined state", zap.String("state", m.state), zap.String("event", event), zap.String("target", tr.Target))
		return m.state, false
	}
	if tr.Cond != "" && !evalGuard(tr.Cond, util.MergeMaps(m.context, data)) {
		return m.state, false
	}
	m.context = util.MergeMaps(m.context, data)
	m.state = tr.Target
	return m.state, true
}
