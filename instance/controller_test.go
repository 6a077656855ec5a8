package instance

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantview/quantview/model"
	"github.com/quantview/quantview/registry"
	"github.com/quantview/quantview/storage"
)

func newTestController(t *testing.T) (*Controller, storage.InstanceStorage) {
	t.Helper()
	store, err := storage.FromMemory()
	require.NoError(t, err)
	return NewController(registry.New(), store), store
}

func TestAddMergesDefaults(t *testing.T) {
	controller, _ := newTestController(t)

	instance, err := controller.Add("sma", map[string]interface{}{"period": float64(20)})
	require.NoError(t, err)

	assert.Equal(t, 20, model.ParamInt(instance.Params, "period", 0))
	assert.Equal(t, "close", model.ParamString(instance.Params, "source", ""))
	assert.Equal(t, model.PaneMain, instance.Pane)
	assert.True(t, instance.Enabled)
	assert.False(t, instance.Style.Empty())
}

func TestAddUnknownDefinition(t *testing.T) {
	controller, _ := newTestController(t)
	_, err := controller.Add("nope", nil)
	require.Error(t, err)
}

func TestTwoInstancesOfSameDefinition(t *testing.T) {
	controller, _ := newTestController(t)

	fast, err := controller.Add("sma", map[string]interface{}{"period": float64(10)})
	require.NoError(t, err)
	slow, err := controller.Add("sma", map[string]interface{}{"period": float64(20)})
	require.NoError(t, err)

	assert.NotEqual(t, fast.ID, slow.ID)

	active := controller.ListActive()
	require.Len(t, active, 2)
	assert.Equal(t, 10, model.ParamInt(active[0].Params, "period", 0))
	assert.Equal(t, 20, model.ParamInt(active[1].Params, "period", 0))
}

func TestAddThenRemoveLeavesStateUnchanged(t *testing.T) {
	controller, store := newTestController(t)

	keeper, err := controller.Add("ema", nil)
	require.NoError(t, err)

	temp, err := controller.Add("rsi", nil)
	require.NoError(t, err)
	require.NoError(t, controller.Remove(temp.ID))

	active := controller.ListActive()
	require.Len(t, active, 1)
	assert.Equal(t, keeper.ID, active[0].ID)

	persisted, err := store.Instances()
	require.NoError(t, err)
	require.Len(t, persisted, 1)
	assert.Equal(t, keeper.ID, persisted[0].ID)
}

func TestRemoveUnknownIsNoOp(t *testing.T) {
	controller, _ := newTestController(t)
	assert.NoError(t, controller.Remove("never-added"))
}

func TestUpdateParametersPartialMerge(t *testing.T) {
	controller, _ := newTestController(t)

	instance, err := controller.Add("macd", map[string]interface{}{
		"fastPeriod": float64(10),
	})
	require.NoError(t, err)

	updated, err := controller.UpdateParameters(instance.ID, map[string]interface{}{
		"slowPeriod": float64(30),
	})
	require.NoError(t, err)

	assert.Equal(t, 10, model.ParamInt(updated.Params, "fastPeriod", 0))
	assert.Equal(t, 30, model.ParamInt(updated.Params, "slowPeriod", 0))
	assert.Equal(t, 9, model.ParamInt(updated.Params, "signalPeriod", 0))
	assert.False(t, updated.UpdatedAt.Before(instance.UpdatedAt))
}

func TestSetEnabledKeepsConfiguration(t *testing.T) {
	controller, store := newTestController(t)

	instance, err := controller.Add("rsi", map[string]interface{}{"period": float64(7)})
	require.NoError(t, err)

	disabled, err := controller.SetEnabled(instance.ID, false)
	require.NoError(t, err)
	assert.False(t, disabled.Enabled)
	assert.Equal(t, 7, model.ParamInt(disabled.Params, "period", 0))

	assert.Empty(t, controller.ListActive())
	assert.Len(t, controller.List(), 1)

	persisted, err := store.Instances()
	require.NoError(t, err)
	require.Len(t, persisted, 1)
	assert.False(t, persisted[0].Enabled)

	enabled, err := controller.SetEnabled(instance.ID, true)
	require.NoError(t, err)
	assert.True(t, enabled.Enabled)
	assert.Len(t, controller.ListActive(), 1)
}

func TestLoadPersistedRestoresCreationOrder(t *testing.T) {
	store, err := storage.FromMemory()
	require.NoError(t, err)

	first := NewController(registry.New(), store)
	a, err := first.Add("sma", nil)
	require.NoError(t, err)
	b, err := first.Add("macd", nil)
	require.NoError(t, err)

	second := NewController(registry.New(), store)
	require.NoError(t, second.LoadPersisted())

	active := second.ListActive()
	require.Len(t, active, 2)
	assert.Equal(t, a.ID, active[0].ID)
	assert.Equal(t, b.ID, active[1].ID)
}

func TestLoadPersistedDisablesUnknownDefinitions(t *testing.T) {
	store, err := storage.FromMemory()
	require.NoError(t, err)
	require.NoError(t, store.CreateInstance(&model.Instance{
		ID:           "0000000000000000001-0001",
		DefinitionID: "vanished-plugin",
		Enabled:      true,
	}))

	controller := NewController(registry.New(), store)
	require.NoError(t, controller.LoadPersisted())

	assert.Empty(t, controller.ListActive())
	require.Len(t, controller.List(), 1)
	assert.False(t, controller.List()[0].Enabled)
}

func TestListReturnsCopies(t *testing.T) {
	controller, _ := newTestController(t)

	instance, err := controller.Add("sma", nil)
	require.NoError(t, err)

	leaked := controller.ListActive()[0]
	leaked.Params["period"] = float64(999)

	fresh, ok := controller.Get(instance.ID)
	require.True(t, ok)
	assert.Equal(t, 14, model.ParamInt(fresh.Params, "period", 0))
}
