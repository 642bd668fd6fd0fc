package fs

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/kriyahq/kriya/model"
	"github.com/kriyahq/kriya/persistence"
)

func instance(id string, state string, tags []string, updated time.Time) *model.WorkflowInstance {
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
		Tags:              tags,
		CreatedAt:         updated,
		UpdatedAt:         updated,
	}
}

func TestWorkflowStorageCRUD(t *testing.T) {
	store := NewWorkflowStorage(t.TempDir())
	now := time.Now().UTC()

	wf := instance("order-flow", "draft", []string{"orders"}, now)
	require.NoError(t, store.Create("acme", wf))

	err := store.Create("acme", wf)
	var dup model.DuplicateError
	require.ErrorAs(t, err, &dup)

	got, err := store.Read("acme", "order-flow")
	require.NoError(t, err)
	require.Equal(t, wf.CurrentState, got.CurrentState)
	require.Equal(t, wf.Tags, got.Tags)

	// same id under another project is independent
	require.NoError(t, store.Create("globex", instance("order-flow", "draft", nil, now)))

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

func TestWorkflowStorageList(t *testing.T) {
	store := NewWorkflowStorage(t.TempDir())
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	require.NoError(t, store.Create("acme", instance("oldest", "draft", []string{"orders"}, base)))
	require.NoError(t, store.Create("acme", instance("middle", "done", []string{"orders"}, base.Add(time.Hour))))
	require.NoError(t, store.Create("acme", instance("newest", "draft", nil, base.Add(2*time.Hour))))

	all, err := store.List("acme", persistence.WorkflowFilter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	require.Equal(t, []string{"newest", "middle", "oldest"}, []string{all[0].ID, all[1].ID, all[2].ID})

	byTag, err := store.List("acme", persistence.WorkflowFilter{Tag: "orders"})
	require.NoError(t, err)
	require.Len(t, byTag, 2)

	byState, err := store.List("acme", persistence.WorkflowFilter{State: "done"})
	require.NoError(t, err)
	require.Len(t, byState, 1)
	require.Equal(t, "middle", byState[0].ID)
	require.True(t, byState[0].IsFinal)

	empty, err := store.List("unknown-project", persistence.WorkflowFilter{})
	require.NoError(t, err)
	require.Empty(t, empty)
}
