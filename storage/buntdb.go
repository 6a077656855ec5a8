package storage

import (
	"encoding/json"
	"strings"

	"github.com/tidwall/buntdb"

	"github.com/quantview/quantview/model"
	"github.com/quantview/quantview/tools/log"
)

const instancePrefix = "instance:"

// Bunt persists indicator instance records as JSON values in a buntdb
// key-value store, one key per instance. Instance ids are time-prefixed, so
// ascending key order is creation order.
type Bunt struct {
	db *buntdb.DB
}

// FromMemory returns an in-memory instance store, useful for tests.
func FromMemory() (InstanceStorage, error) {
	return newBunt(":memory:")
}

// FromFile returns an instance store persisted to the given file.
func FromFile(file string) (InstanceStorage, error) {
	return newBunt(file)
}

func newBunt(sourceFile string) (InstanceStorage, error) {
	db, err := buntdb.Open(sourceFile)
	if err != nil {
		return nil, err
	}
	return &Bunt{db: db}, nil
}

func instanceKey(id string) string {
	return instancePrefix + id
}

func (b *Bunt) CreateInstance(instance *model.Instance) error {
	return b.save(instance)
}

func (b *Bunt) UpdateInstance(instance *model.Instance) error {
	return b.save(instance)
}

func (b *Bunt) save(instance *model.Instance) error {
	content, err := json.Marshal(instance)
	if err != nil {
		return err
	}
	return b.db.Update(func(tx *buntdb.Tx) error {
		_, _, err := tx.Set(instanceKey(instance.ID), string(content), nil)
		return err
	})
}

func (b *Bunt) DeleteInstance(id string) error {
	err := b.db.Update(func(tx *buntdb.Tx) error {
		_, err := tx.Delete(instanceKey(id))
		return err
	})
	if err == buntdb.ErrNotFound {
		return nil
	}
	return err
}

func (b *Bunt) Instances(filters ...InstanceFilter) ([]*model.Instance, error) {
	instances := make([]*model.Instance, 0)
	err := b.db.View(func(tx *buntdb.Tx) error {
		return tx.AscendKeys(instancePrefix+"*", func(key, value string) bool {
			if !strings.HasPrefix(key, instancePrefix) {
				return true
			}
			var instance model.Instance
			if err := json.Unmarshal([]byte(value), &instance); err != nil {
				log.Warnf("skipping unreadable instance record %s: %v", key, err)
				return true
			}
			for _, filter := range filters {
				if !filter(instance) {
					return true
				}
			}
			instances = append(instances, &instance)
			return true
		})
	})
	if err != nil {
		return nil, err
	}
	return instances, nil
}
