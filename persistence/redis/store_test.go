package redis

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/require"

	"github.com/kriyahq/kriya/model"
	"github.com/kriyahq/kriya/persistence"
)

func testInstance(id string, state string, updated time.Time) *model.WorkflowInstance {
	return &model.WorkflowInstance{
		ID:   id,
		Name: id,
		Definition: model.WorkflowDefinition{
			Initial: "draft",
			States: map[string]model.StateConfig{
				"draft": {On: map[string]model.TransitionDef{"SUBMIT": {Target: "done"}}},
				"done":  {Type: model.StateTypeFinal},
			},
		},
		PersistedSnapshot: json.RawMessage(`{"state":"` + state + `"}`),
		CurrentState:      state,
		Version:           1,
		History:           []model.TransitionRecord{},
		CreatedAt:         updated,
		UpdatedAt:         updated,
	}
}

func TestRedisWorkflowStorage(t *testing.T) {
	for scenario, fn := range map[string]func(
		t *testing.T, store *redisWorkflowStorage,
	){
		"test create read write delete": testWorkflowCrud,
		"test duplicate create":         testWorkflowDuplicate,
		"test list sorted and filtered": testWorkflowList,
	} {
		t.Run(scenario, func(t *testing.T) {
			srv := miniredis.RunT(t)
			store := NewWorkflowStorage(Config{
				Addrs:     []string{srv.Addr()},
				Namespace: "test",
			})
			fn(t, store)
		})
	}
}

func testWorkflowCrud(t *testing.T, store *redisWorkflowStorage) {
	now := time.Now().UTC()
	require.NoError(t, store.Create("acme", testInstance("order-flow", "draft", now)))

	got, err := store.Read("acme", "order-flow")
	require.NoError(t, err)
	require.Equal(t, "draft", got.CurrentState)

	got.CurrentState = "done"
	got.Version = 2
	require.NoError(t, store.Write("acme", got))
	reread, err := store.Read("acme", "order-flow")
	require.NoError(t, err)
	require.Equal(t, 2, reread.Version)

	require.NoError(t, store.Delete("acme", "order-flow"))
	var notFound model.NotFoundError
	_, err = store.Read("acme", "order-flow")
	require.ErrorAs(t, err, &notFound)
	require.ErrorAs(t, store.Delete("acme", "order-flow"), &notFound)
}

func testWorkflowDuplicate(t *testing.T, store *redisWorkflowStorage) {
	now := time.Now().UTC()
	require.NoError(t, store.Create("acme", testInstance("order-flow", "draft", now)))
	err := store.Create("acme", testInstance("order-flow", "draft", now))
	var dup model.DuplicateError
	require.ErrorAs(t, err, &dup)
}

func testWorkflowList(t *testing.T, store *redisWorkflowStorage) {
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	require.NoError(t, store.Create("acme", testInstance("older", "draft", base)))
	require.NoError(t, store.Create("acme", testInstance("newer", "done", base.Add(time.Hour))))

	all, err := store.List("acme", persistence.WorkflowFilter{})
	require.NoError(t, err)
	require.Len(t, all, 2)
	require.Equal(t, "newer", all[0].ID)

	done, err := store.List("acme", persistence.WorkflowFilter{State: "done"})
	require.NoError(t, err)
	require.Len(t, done, 1)
	require.Equal(t, "newer", done[0].ID)
}

func TestRedisTriggerStorage(t *testing.T) {
	srv := miniredis.RunT(t)
	store := NewTriggerStorage(Config{
		Addrs:     []string{srv.Addr()},
		Namespace: "test",
	})

	rule := &model.TriggerRule{
		ID:            "rule-1",
		Name:          "on payment",
		Enabled:       true,
		WorkflowID:    "billing-flow",
		WorkflowEvent: "PAID",
		MapPayload:    true,
		CreatedAt:     time.Now().UTC(),
	}
	require.NoError(t, store.Save("acme", rule))

	got, err := store.Get("acme", "rule-1")
	require.NoError(t, err)
	require.Equal(t, "billing-flow", got.WorkflowID)

	rules, err := store.List("acme")
	require.NoError(t, err)
	require.Len(t, rules, 1)

	require.NoError(t, store.Delete("acme", "rule-1"))
	var notFound model.NotFoundError
	_, err = store.Get("acme", "rule-1")
	require.ErrorAs(t, err, &notFound)
}
