package store

import (
	"sort"
	"sync"

	"github.com/distributed-ecommerce-saga/inventory-service/internal/domain"
)

// ownerIndex remembers which slots an owner holds ACTIVE reservations in, so
// a cart can be listed or cleared without scanning the arena. Its mutex is a
// leaf: it is only ever taken while a slot lock is already held.
type ownerIndex struct {
	mu   sync.Mutex
	keys map[domain.StockKey]int
	dead bool
}

type ownerRegistry struct {
	m sync.Map // domain.Owner -> *ownerIndex
}

func (o *ownerRegistry) track(owner domain.Owner, key domain.StockKey) {
	for {
		v, _ := o.m.LoadOrStore(owner, &ownerIndex{keys: make(map[domain.StockKey]int)})
		idx := v.(*ownerIndex)
		idx.mu.Lock()
		if idx.dead {
			idx.mu.Unlock()
			continue
		}
		idx.keys[key]++
		idx.mu.Unlock()
		return
	}
}

func (o *ownerRegistry) untrack(owner domain.Owner, key domain.StockKey) {
	v, ok := o.m.Load(owner)
	if !ok {
		return
	}
	idx := v.(*ownerIndex)
	idx.mu.Lock()
	defer idx.mu.Unlock()
	if idx.keys[key] <= 1 {
		delete(idx.keys, key)
		return
	}
	idx.keys[key]--
}

func (o *ownerRegistry) keys(owner domain.Owner) []domain.StockKey {
	v, ok := o.m.Load(owner)
	if !ok {
		return nil
	}
	idx := v.(*ownerIndex)
	idx.mu.Lock()
	keys := make([]domain.StockKey, 0, len(idx.keys))
	for k := range idx.keys {
		keys = append(keys, k)
	}
	idx.mu.Unlock()

	sort.Slice(keys, func(i, j int) bool {
		if keys[i].SKU != keys[j].SKU {
			return keys[i].SKU < keys[j].SKU
		}
		return keys[i].CenterID < keys[j].CenterID
	})
	return keys
}

// prune drops owners that no longer hold anything. A concurrent track that
// loaded the index just before it died retries with a fresh one.
func (o *ownerRegistry) prune() int {
	pruned := 0
	o.m.Range(func(k, v any) bool {
		idx := v.(*ownerIndex)
		idx.mu.Lock()
		if len(idx.keys) == 0 {
			idx.dead = true
			o.m.CompareAndDelete(k, v)
			pruned++
		}
		idx.mu.Unlock()
		return true
	})
	return pruned
}
