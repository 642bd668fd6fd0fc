package notify

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	rd "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

type listObserver struct {
	name string
	log  *[]string
	err  error
}

func (o *listObserver) OnTransition(t Transition) error {
	*o.log = append(*o.log, o.name)
	return o.err
}

type panicObserver struct{}

func (o *panicObserver) OnTransition(t Transition) error {
	panic("observer blew up")
}

func TestNotifyFansOutInOrder(t *testing.T) {
	var log []string
	n := NewNotifier(nil,
		&listObserver{name: "first", log: &log},
		&listObserver{name: "second", log: &log},
	)
	n.Notify(Transition{WorkflowID: "wf", Event: "GO"})
	require.Equal(t, []string{"first", "second"}, log)
}

func TestFailingObserverDoesNotStopTheRest(t *testing.T) {
	var log []string
	n := NewNotifier(nil,
		&listObserver{name: "broken", log: &log, err: errors.New("downstream unavailable")},
		&panicObserver{},
		&listObserver{name: "healthy", log: &log},
	)
	require.NotPanics(t, func() {
		n.Notify(Transition{WorkflowID: "wf", Event: "GO"})
	})
	require.Equal(t, []string{"broken", "healthy"}, log)
}

func TestRegisterAppends(t *testing.T) {
	var log []string
	n := NewNotifier(nil, &listObserver{name: "first", log: &log})
	n.Register(&listObserver{name: "late", log: &log})
	n.Notify(Transition{WorkflowID: "wf"})
	require.Equal(t, []string{"first", "late"}, log)
}

func TestBusPublishesWithCorrelationID(t *testing.T) {
	srv := miniredis.RunT(t)
	topic := "workflow.transitions"

	sub := rd.NewClient(&rd.Options{Addr: srv.Addr()})
	defer sub.Close()
	pubsub := sub.Subscribe(context.Background(), topic)
	defer pubsub.Close()
	_, err := pubsub.Receive(context.Background())
	require.NoError(t, err)

	bus := NewBus([]string{srv.Addr()}, topic)
	n := NewNotifier(bus)
	n.Notify(Transition{
		Project:       "acme",
		WorkflowID:    "expense-approval",
		PreviousState: "draft",
		NewState:      "review",
		Event:         "SUBMIT",
	})

	select {
	case msg := <-pubsub.Channel():
		var got struct {
			CorrelationID string    `json:"correlationId"`
			PublishedAt   time.Time `json:"publishedAt"`
			WorkflowID    string    `json:"workflowId"`
			NewState      string    `json:"newState"`
			Event         string    `json:"event"`
		}
		require.NoError(t, json.Unmarshal([]byte(msg.Payload), &got))
		require.NotEmpty(t, got.CorrelationID)
		require.False(t, got.PublishedAt.IsZero())
		require.Equal(t, "expense-approval", got.WorkflowID)
		require.Equal(t, "review", got.NewState)
		require.Equal(t, "SUBMIT", got.Event)
	case <-time.After(2 * time.Second):
		t.Fatal("no message arrived on the bus topic")
	}
}

func TestBusFailureIsSwallowed(t *testing.T) {
	srv := miniredis.RunT(t)
	bus := NewBus([]string{srv.Addr()}, "workflow.transitions")
	srv.Close()

	n := NewNotifier(bus)
	require.NotPanics(t, func() {
		n.Notify(Transition{WorkflowID: "wf", Event: "GO"})
	})
}
