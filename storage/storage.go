package storage

import (
	"github.com/quantview/quantview/model"
)

// InstanceFilter selects indicator instance records.
type InstanceFilter func(model.Instance) bool

// InstanceStorage persists indicator instance records across sessions.
// Instances returns records in creation order.
type InstanceStorage interface {
	CreateInstance(instance *model.Instance) error
	UpdateInstance(instance *model.Instance) error
	// DeleteInstance is idempotent: deleting an unknown id is not an error.
	DeleteInstance(id string) error
	Instances(filters ...InstanceFilter) ([]*model.Instance, error)
}

// CandleStorage is the persistent tier of the market data cache.
type CandleStorage interface {
	Candles(symbol string) ([]model.Bar, error)
	SaveCandles(symbol string, bars []model.Bar) error
}

// WithEnabled selects enabled instances.
func WithEnabled() InstanceFilter {
	return func(instance model.Instance) bool {
		return instance.Enabled
	}
}

// WithDefinition selects instances of one definition.
func WithDefinition(definitionID string) InstanceFilter {
	return func(instance model.Instance) bool {
		return instance.DefinitionID == definitionID
	}
}
