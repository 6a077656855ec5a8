package instance

import (
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/quantview/quantview/model"
	"github.com/quantview/quantview/registry"
	"github.com/quantview/quantview/storage"
	"github.com/quantview/quantview/tools/log"
)

// Controller owns the set of configured indicator instances. It is the sole
// writer of instance state; readers receive copies. Every mutation is written
// through to storage before it becomes visible.
type Controller struct {
	mu       sync.Mutex
	registry *registry.Registry
	storage  storage.InstanceStorage

	instances map[string]*model.Instance
	order     []string
}

// NewController creates a controller over the given definition catalog and
// instance store.
func NewController(catalog *registry.Registry, store storage.InstanceStorage) *Controller {
	return &Controller{
		registry:  catalog,
		storage:   store,
		instances: make(map[string]*model.Instance),
	}
}

// newInstanceID returns an id whose fixed-width time prefix keeps storage key
// order equal to creation order.
func newInstanceID() string {
	return fmt.Sprintf("%019d-%04x", time.Now().UnixNano(), rand.Intn(0x10000))
}

// mergeParams layers caller values over the definition defaults. Parameters
// outside the definition schema are kept as-is.
func mergeParams(definition model.Definition, values map[string]interface{}) map[string]interface{} {
	merged := make(map[string]interface{}, len(definition.Params))
	for name, spec := range definition.Params {
		if spec.Default != nil {
			merged[name] = spec.Default
		}
	}
	for name, value := range values {
		merged[name] = value
	}
	return merged
}

// Add creates a new enabled instance of the given definition. Parameters not
// provided fall back to the definition defaults; pane and style fall back to
// the definition's. Two instances of the same definition are independent.
func (c *Controller) Add(definitionID string, params map[string]interface{},
	options ...AddOption) (*model.Instance, error) {
	definition, ok := c.registry.Get(definitionID)
	if !ok {
		return nil, fmt.Errorf("unknown indicator definition %q", definitionID)
	}

	instance := &model.Instance{
		ID:           newInstanceID(),
		DefinitionID: definitionID,
		Params:       mergeParams(definition, params),
		Pane:         definition.DefaultPane,
		Style:        definition.DefaultStyle,
		Enabled:      true,
		CreatedAt:    time.Now().UTC(),
	}
	instance.UpdatedAt = instance.CreatedAt
	for _, option := range options {
		option(instance)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.storage.CreateInstance(instance); err != nil {
		return nil, fmt.Errorf("persisting instance: %w", err)
	}
	c.instances[instance.ID] = instance
	c.order = append(c.order, instance.ID)
	log.Infof("added indicator %s as %s", definitionID, instance.ID)
	return copyInstance(instance), nil
}

// AddOption overrides instance settings at creation time.
type AddOption func(*model.Instance)

// WithPane places the instance on a specific pane instead of the
// definition's default.
func WithPane(pane model.Pane) AddOption {
	return func(instance *model.Instance) {
		instance.Pane = pane
	}
}

// WithStyle overrides the definition's default style.
func WithStyle(style model.Style) AddOption {
	return func(instance *model.Instance) {
		if !style.Empty() {
			instance.Style = style
		}
	}
}

// WithSymbolScope restricts the instance to one symbol.
func WithSymbolScope(symbol string) AddOption {
	return func(instance *model.Instance) {
		instance.SymbolScope = symbol
	}
}

// Remove deletes an instance. Removing an unknown id is a no-op.
func (c *Controller) Remove(id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.storage.DeleteInstance(id); err != nil {
		return fmt.Errorf("deleting instance: %w", err)
	}
	if _, ok := c.instances[id]; !ok {
		return nil
	}
	delete(c.instances, id)
	for i, existing := range c.order {
		if existing == id {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
	log.Infof("removed indicator instance %s", id)
	return nil
}

// UpdateParameters merges the given values into the instance parameters.
// Keys not present in values keep their current settings.
func (c *Controller) UpdateParameters(id string, values map[string]interface{}) (*model.Instance, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	instance, ok := c.instances[id]
	if !ok {
		return nil, fmt.Errorf("unknown indicator instance %q", id)
	}

	updated := copyInstance(instance)
	for name, value := range values {
		updated.Params[name] = value
	}
	updated.UpdatedAt = time.Now().UTC()
	if err := c.storage.UpdateInstance(updated); err != nil {
		return nil, fmt.Errorf("persisting instance: %w", err)
	}
	c.instances[id] = updated
	return copyInstance(updated), nil
}

// SetEnabled toggles instance visibility without losing its configuration.
func (c *Controller) SetEnabled(id string, enabled bool) (*model.Instance, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	instance, ok := c.instances[id]
	if !ok {
		return nil, fmt.Errorf("unknown indicator instance %q", id)
	}

	updated := copyInstance(instance)
	updated.Enabled = enabled
	updated.UpdatedAt = time.Now().UTC()
	if err := c.storage.UpdateInstance(updated); err != nil {
		return nil, fmt.Errorf("persisting instance: %w", err)
	}
	c.instances[id] = updated
	return copyInstance(updated), nil
}

// Get returns a copy of one instance.
func (c *Controller) Get(id string) (*model.Instance, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	instance, ok := c.instances[id]
	if !ok {
		return nil, false
	}
	return copyInstance(instance), true
}

// ListActive returns copies of all enabled instances in creation order.
func (c *Controller) ListActive() []*model.Instance {
	c.mu.Lock()
	defer c.mu.Unlock()
	active := make([]*model.Instance, 0, len(c.order))
	for _, id := range c.order {
		instance := c.instances[id]
		if instance.Enabled {
			active = append(active, copyInstance(instance))
		}
	}
	return active
}

// List returns copies of all instances, enabled or not, in creation order.
func (c *Controller) List() []*model.Instance {
	c.mu.Lock()
	defer c.mu.Unlock()
	all := make([]*model.Instance, 0, len(c.order))
	for _, id := range c.order {
		all = append(all, copyInstance(c.instances[id]))
	}
	return all
}

// LoadPersisted replaces the in-memory set with the stored one. Records
// referencing definitions no longer in the catalog are kept but disabled, so
// a missing plugin does not silently drop user configuration.
func (c *Controller) LoadPersisted() error {
	stored, err := c.storage.Instances()
	if err != nil {
		return fmt.Errorf("loading instances: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.instances = make(map[string]*model.Instance, len(stored))
	c.order = c.order[:0]
	for _, instance := range stored {
		if _, ok := c.registry.Get(instance.DefinitionID); !ok {
			log.Warnf("instance %s references unknown definition %s, disabling",
				instance.ID, instance.DefinitionID)
			instance.Enabled = false
		}
		c.instances[instance.ID] = instance
		c.order = append(c.order, instance.ID)
	}
	log.Infof("loaded %d indicator instances", len(stored))
	return nil
}

func copyInstance(instance *model.Instance) *model.Instance {
	clone := *instance
	clone.Params = make(map[string]interface{}, len(instance.Params))
	for name, value := range instance.Params {
		clone.Params[name] = value
	}
	if instance.Style.Colors != nil {
		clone.Style.Colors = make(map[string]string, len(instance.Style.Colors))
		for name, color := range instance.Style.Colors {
			clone.Style.Colors[name] = color
		}
	}
	return &clone
}
