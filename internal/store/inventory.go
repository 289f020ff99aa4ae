package store

import (
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/distributed-ecommerce-saga/inventory-service/internal/domain"
)

// Inventory is the in-memory state shared by the Ledger and the
// ReservationStore. Both views lock through the same per-key arena, so a
// ledger write and a reservation on the same (sku, center) are serialized.
type Inventory struct {
	arena   arena
	owners  ownerRegistry
	byID    sync.Map // uuid.UUID -> *domain.Reservation
	centers atomic.Pointer[map[int]domain.DistributionCenter]
}

func NewInventory() *Inventory {
	inv := &Inventory{}
	empty := make(map[int]domain.DistributionCenter)
	inv.centers.Store(&empty)
	return inv
}

func (i *Inventory) center(id int) (domain.DistributionCenter, bool) {
	c, ok := (*i.centers.Load())[id]
	return c, ok
}

// registerCenter swaps in a copy of the center map; registrations are rare and
// every reader stays lock-free.
func (i *Inventory) registerCenter(c domain.DistributionCenter) {
	for {
		old := i.centers.Load()
		next := make(map[int]domain.DistributionCenter, len(*old)+1)
		for k, v := range *old {
			next[k] = v
		}
		next[c.ID] = c
		if i.centers.CompareAndSwap(old, &next) {
			return
		}
	}
}

func (i *Inventory) centerList() []domain.DistributionCenter {
	m := *i.centers.Load()
	list := make([]domain.DistributionCenter, 0, len(m))
	for _, c := range m {
		list = append(list, c)
	}
	sort.Slice(list, func(a, b int) bool { return list[a].ID < list[b].ID })
	return list
}

// missing explains why there is no slot for key.
func (i *Inventory) missing(key domain.StockKey, requested int) error {
	if _, ok := i.center(key.CenterID); !ok {
		return domain.NewUnknownCenter(key.CenterID)
	}
	if !i.arena.hasSKU(key.SKU) {
		return domain.NewUnknownSku(key.SKU)
	}
	return domain.NewInsufficientStock(requested, 0)
}

// close removes a reservation that reached a terminal state from its slot.
// Caller holds the slot write lock.
func (i *Inventory) close(s *slot, r *domain.Reservation) {
	s.remove(r)
	i.owners.untrack(r.Owner, s.key)
}

func (i *Inventory) hold(s *slot, r *domain.Reservation) {
	s.add(r)
	i.owners.track(r.Owner, s.key)
	i.byID.Store(r.ID, r)
}

// expireLapsed is the lazy half of expiry: every writer that takes a slot
// lock first retires whatever ran out of TTL in it. Caller holds the write lock.
func (i *Inventory) expireLapsed(s *slot, now time.Time) []domain.ReservationView {
	if !s.due(now) {
		return nil
	}
	var expired []domain.ReservationView
	for _, r := range s.active {
		if !r.IsLapsed(now) {
			continue
		}
		if r.Expire(now) {
			expired = append(expired, r.View())
			s.lapse(r, now)
		}
		i.close(s, r)
	}
	return expired
}

type CenterReading struct {
	Center    domain.DistributionCenter
	Physical  int
	Reserved  int
	InTransit int
}

// ReadSKU returns the per-center numbers for sku, all read while holding the
// read locks of every selected slot, so the rows reflect one instant.
func (i *Inventory) ReadSKU(sku string, centerID *int, now time.Time) ([]CenterReading, error) {
	sku = domain.NormalizeSKU(sku)
	if centerID != nil {
		if _, ok := i.center(*centerID); !ok {
			return nil, domain.NewUnknownCenter(*centerID)
		}
	}
	if !i.arena.hasSKU(sku) {
		return nil, domain.NewUnknownSku(sku)
	}

	var slots []*slot
	if centerID != nil {
		s, ok := i.arena.lookup(domain.StockKey{SKU: sku, CenterID: *centerID})
		if !ok {
			c, _ := i.center(*centerID)
			return []CenterReading{{Center: c}}, nil
		}
		slots = append(slots, s)
	} else {
		slots = i.arena.slotsOf(sku)
	}

	readings := make([]CenterReading, 0, len(slots))
	unlock := rlockAll(slots)
	for _, s := range slots {
		readings = append(readings, CenterReading{
			Physical:  s.stock.PhysicalQuantity,
			Reserved:  s.usableReserved(now),
			InTransit: s.stock.InTransitQuantity,
			Center:    domain.DistributionCenter{ID: s.key.CenterID},
		})
	}
	unlock()

	for idx := range readings {
		if c, ok := i.center(readings[idx].Center.ID); ok {
			readings[idx].Center = c
		}
	}
	return readings, nil
}

type Stats struct {
	Slots              int `json:"slots"`
	ActiveReservations int `json:"active_reservations"`
	ReservedUnits      int `json:"reserved_units"`
}

func (i *Inventory) Stats() Stats {
	var st Stats
	i.arena.each(func(s *slot) {
		s.mu.RLock()
		st.Slots++
		st.ActiveReservations += len(s.active)
		st.ReservedUnits += s.reserved
		s.mu.RUnlock()
	})
	return st
}
