package store

import (
	"time"

	"github.com/distributed-ecommerce-saga/inventory-service/internal/domain"
	"github.com/google/uuid"
)

// Ledger is the authoritative record of physical and in-transit stock per
// (sku, center). Writes arrive from the warehouse feed and admin seeding and
// take the same slot lock reservations use, so a reservation is never granted
// against units that were shipped in the meantime.
type Ledger struct {
	inv *Inventory
}

func NewLedger(inv *Inventory) *Ledger {
	return &Ledger{inv: inv}
}

func (l *Ledger) RegisterCenter(c domain.DistributionCenter) {
	l.inv.registerCenter(c)
}

func (l *Ledger) Center(id int) (domain.DistributionCenter, error) {
	c, ok := l.inv.center(id)
	if !ok {
		return domain.DistributionCenter{}, domain.NewUnknownCenter(id)
	}
	return c, nil
}

func (l *Ledger) Centers() []domain.DistributionCenter {
	return l.inv.centerList()
}

func (l *Ledger) SKUs() []string {
	return l.inv.arena.skuList()
}

func (l *Ledger) Physical(sku string, centerID int) (int, error) {
	stock, err := l.Stock(sku, centerID)
	if err != nil {
		return 0, err
	}
	return stock.PhysicalQuantity, nil
}

func (l *Ledger) PhysicalAll(sku string) (map[int]int, error) {
	sku = domain.NormalizeSKU(sku)
	slots := l.inv.arena.slotsOf(sku)
	if len(slots) == 0 {
		return nil, domain.NewUnknownSku(sku)
	}
	result := make(map[int]int, len(slots))
	unlock := rlockAll(slots)
	for _, s := range slots {
		result[s.key.CenterID] = s.stock.PhysicalQuantity
	}
	unlock()
	return result, nil
}

func (l *Ledger) Stock(sku string, centerID int) (domain.DistributionCenterStock, error) {
	key := domain.NewStockKey(sku, centerID)
	s, ok := l.inv.arena.lookup(key)
	if !ok {
		if _, known := l.inv.center(centerID); !known {
			return domain.DistributionCenterStock{}, domain.NewUnknownCenter(centerID)
		}
		return domain.DistributionCenterStock{}, domain.NewUnknownSku(key.SKU)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.stock, nil
}

type StockChange struct {
	Stock    domain.DistributionCenterStock
	Expired  []domain.ReservationView
	Consumed *domain.ReservationView
}

// Upsert sets the quantities of one row. Physical stock may not drop below
// what is currently reserved against it.
func (l *Ledger) Upsert(stock domain.DistributionCenterStock, now time.Time) (StockChange, error) {
	center, ok := l.inv.center(stock.CenterID)
	if !ok {
		return StockChange{}, domain.NewUnknownCenter(stock.CenterID)
	}
	if stock.PhysicalQuantity < 0 || stock.InTransitQuantity < 0 {
		return StockChange{}, domain.NewInvalidQuantity(min(stock.PhysicalQuantity, stock.InTransitQuantity))
	}

	s := l.inv.arena.getOrCreate(stock.Key())
	s.mu.Lock()
	defer s.mu.Unlock()

	change := StockChange{Expired: l.inv.expireLapsed(s, now)}
	if stock.PhysicalQuantity < s.reserved {
		change.Stock = s.stock
		return change, domain.NewInsufficientStock(s.reserved, stock.PhysicalQuantity)
	}

	s.stock.PhysicalQuantity = stock.PhysicalQuantity
	s.stock.InTransitQuantity = stock.InTransitQuantity
	s.stock.ApplyCenter(center)
	s.stock.UpdatedAt = now
	change.Stock = s.stock
	return change, nil
}

func (l *Ledger) Receive(cmd domain.ReceiveStockCommand, now time.Time) (StockChange, error) {
	if cmd.Quantity <= 0 {
		return StockChange{}, domain.NewInvalidQuantity(cmd.Quantity)
	}
	center, ok := l.inv.center(cmd.CenterID)
	if !ok {
		return StockChange{}, domain.NewUnknownCenter(cmd.CenterID)
	}

	s := l.inv.arena.getOrCreate(domain.NewStockKey(cmd.SKU, cmd.CenterID))
	s.mu.Lock()
	defer s.mu.Unlock()

	change := StockChange{Expired: l.inv.expireLapsed(s, now)}
	s.stock.PhysicalQuantity += cmd.Quantity
	if cmd.FromTransit {
		s.stock.InTransitQuantity -= min(cmd.Quantity, s.stock.InTransitQuantity)
	}
	s.stock.ApplyCenter(center)
	s.stock.UpdatedAt = now
	change.Stock = s.stock
	return change, nil
}

// Ship removes physical units. Shipping against a reservation consumes it;
// otherwise only unreserved units can leave.
func (l *Ledger) Ship(cmd domain.ShipStockCommand, now time.Time) (StockChange, error) {
	if cmd.Quantity <= 0 {
		return StockChange{}, domain.NewInvalidQuantity(cmd.Quantity)
	}
	key := domain.NewStockKey(cmd.SKU, cmd.CenterID)
	s, ok := l.inv.arena.lookup(key)
	if !ok {
		return StockChange{}, l.inv.missing(key, cmd.Quantity)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	change := StockChange{Expired: l.inv.expireLapsed(s, now)}

	var held *domain.Reservation
	if cmd.ReservationID != nil {
		r, found := s.active[*cmd.ReservationID]
		if !found {
			change.Stock = s.stock
			return change, l.inv.terminalOrMissing(*cmd.ReservationID)
		}
		held = r
	}

	reservedAfter := s.reserved
	if held != nil {
		reservedAfter -= held.Quantity
	}
	if shippable := s.stock.PhysicalQuantity - reservedAfter; cmd.Quantity > shippable {
		change.Stock = s.stock
		return change, domain.NewInsufficientStock(cmd.Quantity, max(shippable, 0))
	}

	if held != nil && held.Consume(now) {
		l.inv.close(s, held)
		v := held.View()
		change.Consumed = &v
	}
	s.stock.PhysicalQuantity -= cmd.Quantity
	s.stock.UpdatedAt = now
	change.Stock = s.stock
	return change, nil
}

func (l *Ledger) AdjustInTransit(cmd domain.InTransitCommand, now time.Time) (StockChange, error) {
	center, ok := l.inv.center(cmd.CenterID)
	if !ok {
		return StockChange{}, domain.NewUnknownCenter(cmd.CenterID)
	}

	s := l.inv.arena.getOrCreate(domain.NewStockKey(cmd.SKU, cmd.CenterID))
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.stock.InTransitQuantity + cmd.Delta
	if next < 0 {
		next = 0
	}
	s.stock.InTransitQuantity = next
	s.stock.ApplyCenter(center)
	s.stock.UpdatedAt = now
	return StockChange{Stock: s.stock}, nil
}

func (i *Inventory) terminalOrMissing(id uuid.UUID) error {
	v, ok := i.byID.Load(id)
	if !ok {
		return domain.NewReservationNotFound(id.String())
	}
	r := v.(*domain.Reservation)
	if state := r.State(); state.IsTerminal() {
		return domain.NewAlreadyTerminal(id.String(), state)
	}
	// still active, but held against another (sku, center)
	return domain.NewReservationNotFound(id.String())
}
