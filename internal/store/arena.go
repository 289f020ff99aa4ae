package store

import (
	"sort"
	"sync"
	"time"

	"github.com/distributed-ecommerce-saga/inventory-service/internal/domain"
	"github.com/google/uuid"
)

// slot is the unit of locking: one ledger row plus the ACTIVE reservations
// held against it. Everything below mu is guarded by it.
type slot struct {
	mu sync.RWMutex

	key      domain.StockKey
	stock    domain.DistributionCenterStock
	active   map[uuid.UUID]*domain.Reservation
	lapsed   map[uuid.UUID]*lapsedHold
	reserved int
	earliest time.Time
}

// lapsedHold is what an owner lost to expiry in a slot and has not released
// since. Releasing those units later is a no-op, not a shortfall.
type lapsedHold struct {
	id        uuid.UUID
	owner     domain.Owner
	units     int
	createdAt time.Time
	expiredAt time.Time
}

func newSlot(key domain.StockKey) *slot {
	return &slot{
		key:    key,
		stock:  domain.DistributionCenterStock{SKU: key.SKU, CenterID: key.CenterID},
		active: make(map[uuid.UUID]*domain.Reservation),
		lapsed: make(map[uuid.UUID]*lapsedHold),
	}
}

func (s *slot) add(r *domain.Reservation) {
	s.active[r.ID] = r
	s.reserved += r.Quantity
	if s.earliest.IsZero() || r.ExpiresAt.Before(s.earliest) {
		s.earliest = r.ExpiresAt
	}
}

func (s *slot) remove(r *domain.Reservation) {
	if _, ok := s.active[r.ID]; !ok {
		return
	}
	delete(s.active, r.ID)
	s.reserved -= r.Quantity
	s.earliest = time.Time{}
	for _, other := range s.active {
		if s.earliest.IsZero() || other.ExpiresAt.Before(s.earliest) {
			s.earliest = other.ExpiresAt
		}
	}
}

func (s *slot) shrink(r *domain.Reservation, by int, now time.Time) {
	r.Quantity -= by
	r.UpdatedAt = now
	s.reserved -= by
}

func (s *slot) lapse(r *domain.Reservation, now time.Time) {
	s.lapsed[r.ID] = &lapsedHold{id: r.ID, owner: r.Owner, units: r.Quantity, createdAt: r.CreatedAt, expiredAt: now}
}

// forgetLapsed drops the expiry credit that match selects. Caller holds the
// write lock.
func (s *slot) forgetLapsed(match func(*lapsedHold) bool) int {
	dropped := 0
	for id, h := range s.lapsed {
		if match(h) {
			delete(s.lapsed, id)
			dropped++
		}
	}
	return dropped
}

// due reports whether at least one held reservation has run out its TTL.
func (s *slot) due(now time.Time) bool {
	return !s.earliest.IsZero() && !now.Before(s.earliest)
}

// usableReserved sums the reservations still inside their TTL. It only needs
// the read lock, so it cannot expire anything and filters lapsed ones instead.
func (s *slot) usableReserved(now time.Time) int {
	if !s.due(now) {
		return s.reserved
	}
	total := 0
	for _, r := range s.active {
		if !r.IsLapsed(now) {
			total += r.Quantity
		}
	}
	return total
}

func (s *slot) available(now time.Time) int {
	return s.stock.PhysicalQuantity - s.usableReserved(now)
}

// arena hands out slots keyed by (sku, center). Slots are created lazily by
// ledger writes and never removed, so the arena is bounded by the catalog.
type arena struct {
	slots sync.Map // domain.StockKey -> *slot
	skus  sync.Map // sku -> *centerSet
}

type centerSet struct {
	mu  sync.RWMutex
	ids map[int]struct{}
}

func (a *arena) lookup(key domain.StockKey) (*slot, bool) {
	v, ok := a.slots.Load(key)
	if !ok {
		return nil, false
	}
	return v.(*slot), true
}

func (a *arena) getOrCreate(key domain.StockKey) *slot {
	if s, ok := a.lookup(key); ok {
		return s
	}
	v, _ := a.slots.LoadOrStore(key, newSlot(key))

	set, _ := a.skus.LoadOrStore(key.SKU, &centerSet{ids: make(map[int]struct{})})
	cs := set.(*centerSet)
	cs.mu.Lock()
	cs.ids[key.CenterID] = struct{}{}
	cs.mu.Unlock()

	return v.(*slot)
}

// centersOf returns the center ids stocking sku in ascending order. Callers
// that lock more than one slot must follow this order.
func (a *arena) centersOf(sku string) []int {
	v, ok := a.skus.Load(sku)
	if !ok {
		return nil
	}
	cs := v.(*centerSet)
	cs.mu.RLock()
	ids := make([]int, 0, len(cs.ids))
	for id := range cs.ids {
		ids = append(ids, id)
	}
	cs.mu.RUnlock()
	sort.Ints(ids)
	return ids
}

func (a *arena) slotsOf(sku string) []*slot {
	ids := a.centersOf(sku)
	slots := make([]*slot, 0, len(ids))
	for _, id := range ids {
		if s, ok := a.lookup(domain.StockKey{SKU: sku, CenterID: id}); ok {
			slots = append(slots, s)
		}
	}
	return slots
}

func (a *arena) hasSKU(sku string) bool {
	_, ok := a.skus.Load(sku)
	return ok
}

func (a *arena) skuList() []string {
	var skus []string
	a.skus.Range(func(k, _ any) bool {
		skus = append(skus, k.(string))
		return true
	})
	sort.Strings(skus)
	return skus
}

func (a *arena) each(fn func(*slot)) {
	a.slots.Range(func(_, v any) bool {
		fn(v.(*slot))
		return true
	})
}

func lockAll(slots []*slot) func() {
	for _, s := range slots {
		s.mu.Lock()
	}
	return func() {
		for i := len(slots) - 1; i >= 0; i-- {
			slots[i].mu.Unlock()
		}
	}
}

func rlockAll(slots []*slot) func() {
	for _, s := range slots {
		s.mu.RLock()
	}
	return func() {
		for i := len(slots) - 1; i >= 0; i-- {
			slots[i].mu.RUnlock()
		}
	}
}
