package storage

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantview/quantview/model"
)

func testInstance(seq int, definitionID string, enabled bool) *model.Instance {
	return &model.Instance{
		ID:           fmt.Sprintf("%019d-%04x", 1700000000000000000+int64(seq), seq),
		DefinitionID: definitionID,
		Params:       map[string]interface{}{"period": float64(14)},
		Pane:         model.PaneMain,
		Enabled:      enabled,
		CreatedAt:    time.Now().UTC(),
	}
}

func TestBuntInstanceRoundTrip(t *testing.T) {
	store, err := FromMemory()
	require.NoError(t, err)

	first := testInstance(1, "sma", true)
	second := testInstance(2, "rsi", false)
	require.NoError(t, store.CreateInstance(first))
	require.NoError(t, store.CreateInstance(second))

	instances, err := store.Instances()
	require.NoError(t, err)
	require.Len(t, instances, 2)
	assert.Equal(t, first.ID, instances[0].ID)
	assert.Equal(t, second.ID, instances[1].ID)
	assert.Equal(t, 14, model.ParamInt(instances[0].Params, "period", 0))
}

func TestBuntInstanceFilters(t *testing.T) {
	store, err := FromMemory()
	require.NoError(t, err)

	require.NoError(t, store.CreateInstance(testInstance(1, "sma", true)))
	require.NoError(t, store.CreateInstance(testInstance(2, "sma", false)))
	require.NoError(t, store.CreateInstance(testInstance(3, "rsi", true)))

	enabled, err := store.Instances(WithEnabled())
	require.NoError(t, err)
	assert.Len(t, enabled, 2)

	smas, err := store.Instances(WithDefinition("sma"))
	require.NoError(t, err)
	assert.Len(t, smas, 2)

	enabledSMAs, err := store.Instances(WithEnabled(), WithDefinition("sma"))
	require.NoError(t, err)
	assert.Len(t, enabledSMAs, 1)
}

func TestBuntUpdateInstance(t *testing.T) {
	store, err := FromMemory()
	require.NoError(t, err)

	instance := testInstance(1, "sma", true)
	require.NoError(t, store.CreateInstance(instance))

	instance.Enabled = false
	instance.Params["period"] = float64(50)
	require.NoError(t, store.UpdateInstance(instance))

	instances, err := store.Instances()
	require.NoError(t, err)
	require.Len(t, instances, 1)
	assert.False(t, instances[0].Enabled)
	assert.Equal(t, 50, model.ParamInt(instances[0].Params, "period", 0))
}

func TestBuntDeleteInstanceIdempotent(t *testing.T) {
	store, err := FromMemory()
	require.NoError(t, err)

	instance := testInstance(1, "sma", true)
	require.NoError(t, store.CreateInstance(instance))
	require.NoError(t, store.DeleteInstance(instance.ID))
	require.NoError(t, store.DeleteInstance(instance.ID)) // second delete is a no-op
	require.NoError(t, store.DeleteInstance("never-existed"))

	instances, err := store.Instances()
	require.NoError(t, err)
	assert.Empty(t, instances)
}
