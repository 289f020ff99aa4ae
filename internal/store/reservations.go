package store

import (
	"sort"
	"time"

	"github.com/distributed-ecommerce-saga/inventory-service/internal/domain"
	"github.com/google/uuid"
)

// ReservationStore holds the buyers' time-bounded claims. Every method that
// mutates a slot first retires the reservations that lapsed in it and reports
// them in Expired, so the caller can journal them like sweeper expiries.
type ReservationStore struct {
	inv     *Inventory
	created func(domain.ReservationView)
}

func NewReservationStore(inv *Inventory) *ReservationStore {
	return &ReservationStore{inv: inv}
}

// OnCreate registers fn to be told about every new reservation while its slot
// is still locked, so no release or expiry of it can be observed first. fn
// must not block.
func (rs *ReservationStore) OnCreate(fn func(domain.ReservationView)) {
	rs.created = fn
}

type ReserveOutcome struct {
	Reservation domain.ReservationView
	Available   int
	Expired     []domain.ReservationView
}

// Reserve checks availability and creates the reservation under one slot lock,
// so two buyers racing for the last unit cannot both win.
func (rs *ReservationStore) Reserve(key domain.StockKey, owner domain.Owner, quantity int, ttl time.Duration, now time.Time) (ReserveOutcome, error) {
	s, ok := rs.inv.arena.lookup(key)
	if !ok {
		return ReserveOutcome{}, rs.inv.missing(key, quantity)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	out := ReserveOutcome{Expired: rs.inv.expireLapsed(s, now)}
	available := s.available(now)
	if available < quantity {
		out.Available = max(available, 0)
		return out, domain.NewInsufficientStock(quantity, out.Available)
	}

	r := domain.NewReservation(key.SKU, key.CenterID, owner, quantity, now, ttl)
	rs.inv.hold(s, r)

	out.Reservation = r.View()
	out.Available = available - quantity
	if rs.created != nil {
		rs.created(out.Reservation)
	}
	return out, nil
}

type ReleaseOutcome struct {
	Released  int
	Available int
	// Units the owner had already lost to expiry and that count as released.
	AlreadyExpired int
	Closed         []domain.ReservationView
	Reduced        []domain.ReservationView
	Expired        []domain.ReservationView
}

type releaseClaim struct {
	slot      *slot
	active    *domain.Reservation
	lapsed    *lapsedHold
	createdAt time.Time
	id        uuid.UUID
	units     int
}

// Release frees quantity units of sku held by owner, oldest reservation first,
// across every center. All of the SKU's slots are locked in ascending center
// order for the duration, which makes the hold check and the decrements atomic.
//
// Units of the owner that expired before the release got to them are counted
// as already freed. Only units the owner never held are a shortfall.
func (rs *ReservationStore) Release(sku string, owner domain.Owner, quantity int, now time.Time) (ReleaseOutcome, error) {
	sku = domain.NormalizeSKU(sku)
	slots := rs.inv.arena.slotsOf(sku)
	if len(slots) == 0 {
		return ReleaseOutcome{}, domain.NewUnknownSku(sku)
	}

	unlock := lockAll(slots)
	defer unlock()

	var out ReleaseOutcome
	var claims []releaseClaim
	total := 0
	for _, s := range slots {
		out.Expired = append(out.Expired, rs.inv.expireLapsed(s, now)...)
		for _, r := range s.active {
			if r.Owner != owner {
				continue
			}
			claims = append(claims, releaseClaim{slot: s, active: r, createdAt: r.CreatedAt, id: r.ID, units: r.Quantity})
			total += r.Quantity
		}
		for _, h := range s.lapsed {
			if h.owner != owner {
				continue
			}
			claims = append(claims, releaseClaim{slot: s, lapsed: h, createdAt: h.createdAt, id: h.id, units: h.units})
			total += h.units
		}
	}

	if total < quantity {
		out.Available = availableAcross(slots, now)
		return out, domain.NewInsufficientReservedQuantity(quantity, total)
	}

	sort.Slice(claims, func(i, j int) bool {
		if !claims[i].createdAt.Equal(claims[j].createdAt) {
			return claims[i].createdAt.Before(claims[j].createdAt)
		}
		return claims[i].id.String() < claims[j].id.String()
	})

	remaining := quantity
	for _, c := range claims {
		if remaining == 0 {
			break
		}
		take := min(c.units, remaining)
		remaining -= take

		if c.lapsed != nil {
			out.AlreadyExpired += take
			c.lapsed.units -= take
			if c.lapsed.units == 0 {
				delete(c.slot.lapsed, c.id)
			}
			continue
		}
		if take == c.units {
			if c.active.Release(now) {
				out.Closed = append(out.Closed, c.active.View())
			}
			rs.inv.close(c.slot, c.active)
			continue
		}
		c.slot.shrink(c.active, take, now)
		out.Reduced = append(out.Reduced, c.active.View())
	}

	out.Released = quantity
	out.Available = availableAcross(slots, now)
	return out, nil
}

type ClearOutcome struct {
	Closed  []domain.ReservationView
	Expired []domain.ReservationView
	SKUs    []string
}

// ClearOwner releases every ACTIVE reservation of owner. Slots are visited one
// at a time; a partial clear can simply be retried.
func (rs *ReservationStore) ClearOwner(owner domain.Owner, now time.Time) ClearOutcome {
	var out ClearOutcome
	touched := make(map[string]struct{})

	for _, key := range rs.inv.owners.keys(owner) {
		s, ok := rs.inv.arena.lookup(key)
		if !ok {
			continue
		}
		s.mu.Lock()
		out.Expired = append(out.Expired, rs.inv.expireLapsed(s, now)...)
		s.forgetLapsed(func(h *lapsedHold) bool { return h.owner == owner })
		for _, r := range s.active {
			if r.Owner != owner {
				continue
			}
			if r.Release(now) {
				out.Closed = append(out.Closed, r.View())
				touched[key.SKU] = struct{}{}
			}
			rs.inv.close(s, r)
		}
		s.mu.Unlock()
	}

	out.SKUs = make([]string, 0, len(touched))
	for sku := range touched {
		out.SKUs = append(out.SKUs, sku)
	}
	sort.Strings(out.SKUs)
	return out
}

// ListOwner returns the owner's usable reservations, oldest first. Lapsed ones
// are left out even if the sweeper has not reached them yet.
func (rs *ReservationStore) ListOwner(owner domain.Owner, now time.Time) []domain.ReservationView {
	var list []domain.ReservationView
	for _, key := range rs.inv.owners.keys(owner) {
		s, ok := rs.inv.arena.lookup(key)
		if !ok {
			continue
		}
		s.mu.RLock()
		for _, r := range s.active {
			if r.Owner == owner && r.IsUsable(now) {
				list = append(list, r.View())
			}
		}
		s.mu.RUnlock()
	}
	sort.Slice(list, func(i, j int) bool {
		if !list[i].CreatedAt.Equal(list[j].CreatedAt) {
			return list[i].CreatedAt.Before(list[j].CreatedAt)
		}
		return list[i].ID.String() < list[j].ID.String()
	})
	return list
}

type ConsumeOutcome struct {
	Reservation domain.ReservationView
	Expired     []domain.ReservationView
}

// Consume marks a reservation as turned into an order. Physical stock is left
// alone; the shipment that follows carries the decrement.
func (rs *ReservationStore) Consume(id uuid.UUID, now time.Time) (ConsumeOutcome, error) {
	v, ok := rs.inv.byID.Load(id)
	if !ok {
		return ConsumeOutcome{}, domain.NewReservationNotFound(id.String())
	}
	r := v.(*domain.Reservation)
	s, ok := rs.inv.arena.lookup(r.Key())
	if !ok {
		return ConsumeOutcome{}, domain.NewReservationNotFound(id.String())
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	out := ConsumeOutcome{Expired: rs.inv.expireLapsed(s, now)}
	if !r.Consume(now) {
		out.Reservation = r.View()
		return out, domain.NewAlreadyTerminal(id.String(), r.State())
	}
	rs.inv.close(s, r)
	out.Reservation = r.View()
	return out, nil
}

func (rs *ReservationStore) Get(id uuid.UUID) (domain.ReservationView, error) {
	v, ok := rs.inv.byID.Load(id)
	if !ok {
		return domain.ReservationView{}, domain.NewReservationNotFound(id.String())
	}
	r := v.(*domain.Reservation)
	s, ok := rs.inv.arena.lookup(r.Key())
	if !ok {
		return domain.ReservationView{}, domain.NewReservationNotFound(id.String())
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return r.View(), nil
}

// Restore reinstates a persisted ACTIVE reservation after a restart. Records
// that lapsed while the process was down, or that no longer fit the ledger,
// are refused.
func (rs *ReservationStore) Restore(view domain.ReservationView, now time.Time) error {
	if view.State != domain.StateActive {
		return domain.NewAlreadyTerminal(view.ID.String(), view.State)
	}
	r := domain.RestoreReservation(view)
	if r.IsLapsed(now) {
		return domain.NewAlreadyTerminal(view.ID.String(), domain.StateExpired)
	}
	key := r.Key()
	s, ok := rs.inv.arena.lookup(key)
	if !ok {
		return rs.inv.missing(key, r.Quantity)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, dup := s.active[r.ID]; dup {
		return nil
	}
	if available := s.available(now); available < r.Quantity {
		return domain.NewInsufficientStock(r.Quantity, max(available, 0))
	}
	rs.inv.hold(s, r)
	return nil
}

// ExpireDue is the sweeper pass: it walks the arena and retires lapsed
// reservations. Slots with nothing due are skipped under the read lock.
func (rs *ReservationStore) ExpireDue(now time.Time) []domain.ReservationView {
	var expired []domain.ReservationView
	rs.inv.arena.each(func(s *slot) {
		s.mu.RLock()
		due := s.due(now)
		s.mu.RUnlock()
		if !due {
			return
		}
		s.mu.Lock()
		expired = append(expired, rs.inv.expireLapsed(s, now)...)
		s.mu.Unlock()
	})
	return expired
}

// Purge forgets terminal reservations last touched before cutoff, expiry
// credit older than cutoff and owners left without any hold. It returns the
// number of reservations dropped.
func (rs *ReservationStore) Purge(cutoff time.Time) int {
	purged := 0
	rs.inv.byID.Range(func(k, v any) bool {
		r := v.(*domain.Reservation)
		if !r.State().IsTerminal() {
			return true
		}
		s, ok := rs.inv.arena.lookup(r.Key())
		if !ok {
			return true
		}
		s.mu.RLock()
		stale := r.UpdatedAt.Before(cutoff)
		s.mu.RUnlock()
		if stale {
			rs.inv.byID.Delete(k)
			purged++
		}
		return true
	})
	rs.inv.arena.each(func(s *slot) {
		s.mu.Lock()
		s.forgetLapsed(func(h *lapsedHold) bool { return h.expiredAt.Before(cutoff) })
		s.mu.Unlock()
	})
	rs.inv.owners.prune()
	return purged
}

func availableAcross(slots []*slot, now time.Time) int {
	total := 0
	for _, s := range slots {
		total += max(s.available(now), 0)
	}
	return total
}
