package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/distributed-ecommerce-saga/inventory-service/internal/domain"
	"github.com/lib/pq"
)

const uniqueViolation = "23505"

var terminalStates = []string{
	domain.StateReleased.String(),
	domain.StateExpired.String(),
	domain.StateConsumed.String(),
}

// InventoryRepository is the PostgreSQL journal of the engine. It is written
// behind the dispatcher and read once at startup; the engine never queries it
// on the request path.
type InventoryRepository struct {
	db *sql.DB
}

func NewInventoryRepository(db *sql.DB) *InventoryRepository {
	return &InventoryRepository{db: db}
}

func (r *InventoryRepository) SaveCenter(ctx context.Context, center domain.DistributionCenter) error {
	query := `
		INSERT INTO distribution_centers (id, code, name, city, low_stock_threshold, low_stock_percent)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE
		SET code = EXCLUDED.code, name = EXCLUDED.name, city = EXCLUDED.city,
			low_stock_threshold = EXCLUDED.low_stock_threshold,
			low_stock_percent = EXCLUDED.low_stock_percent
	`

	_, err := r.db.ExecContext(ctx, query,
		center.ID,
		center.Code,
		center.Name,
		center.City,
		center.LowStockThreshold,
		center.LowStockPercent,
	)
	if err != nil {
		return fmt.Errorf("save center %d: %w", center.ID, err)
	}
	return nil
}

func (r *InventoryRepository) SaveStock(ctx context.Context, stock domain.DistributionCenterStock) error {
	query := `
		INSERT INTO center_stock (product_sku, center_id, physical_quantity, in_transit_quantity, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (product_sku, center_id) DO UPDATE
		SET physical_quantity = EXCLUDED.physical_quantity,
			in_transit_quantity = EXCLUDED.in_transit_quantity,
			updated_at = EXCLUDED.updated_at
		WHERE center_stock.updated_at <= EXCLUDED.updated_at
	`

	_, err := r.db.ExecContext(ctx, query,
		stock.SKU,
		stock.CenterID,
		stock.PhysicalQuantity,
		stock.InTransitQuantity,
		stock.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("save stock %s@%d: %w", stock.SKU, stock.CenterID, err)
	}
	return nil
}

// SaveReservation inserts a new reservation. Replaying an insert that already
// landed is not an error.
func (r *InventoryRepository) SaveReservation(ctx context.Context, view domain.ReservationView) error {
	query := `
		INSERT INTO cart_reservations (
			id, product_sku, center_id, user_id, session_id, quantity,
			status, created_at, expires_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	_, err := r.db.ExecContext(ctx, query,
		view.ID,
		view.SKU,
		view.CenterID,
		view.Owner.UserID,
		view.Owner.SessionID,
		view.Quantity,
		view.State.String(),
		view.CreatedAt,
		view.ExpiresAt,
		view.UpdatedAt,
	)
	if isUniqueViolation(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("save reservation %s: %w", view.ID, err)
	}
	return nil
}

// UpdateReservation writes the quantity and state of a reservation. A row that
// already reached a terminal state is never moved again.
func (r *InventoryRepository) UpdateReservation(ctx context.Context, view domain.ReservationView) error {
	query := `
		UPDATE cart_reservations
		SET quantity = $2, status = $3, updated_at = $4
		WHERE id = $1 AND status = 'ACTIVE'
	`

	_, err := r.db.ExecContext(ctx, query, view.ID, view.Quantity, view.State.String(), view.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update reservation %s: %w", view.ID, err)
	}
	return nil
}

func (r *InventoryRepository) LoadCenters(ctx context.Context) ([]domain.DistributionCenter, error) {
	query := `
		SELECT id, code, name, city, low_stock_threshold, low_stock_percent
		FROM distribution_centers
		ORDER BY id
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var centers []domain.DistributionCenter
	for rows.Next() {
		var c domain.DistributionCenter
		if err := rows.Scan(&c.ID, &c.Code, &c.Name, &c.City, &c.LowStockThreshold, &c.LowStockPercent); err != nil {
			return nil, err
		}
		centers = append(centers, c)
	}
	return centers, rows.Err()
}

func (r *InventoryRepository) LoadStock(ctx context.Context) ([]domain.DistributionCenterStock, error) {
	query := `
		SELECT product_sku, center_id, physical_quantity, in_transit_quantity, updated_at
		FROM center_stock
		ORDER BY product_sku, center_id
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var stock []domain.DistributionCenterStock
	for rows.Next() {
		var s domain.DistributionCenterStock
		if err := rows.Scan(&s.SKU, &s.CenterID, &s.PhysicalQuantity, &s.InTransitQuantity, &s.UpdatedAt); err != nil {
			return nil, err
		}
		stock = append(stock, s)
	}
	return stock, rows.Err()
}

func (r *InventoryRepository) LoadActiveReservations(ctx context.Context) ([]domain.ReservationView, error) {
	query := `
		SELECT id, product_sku, center_id, user_id, session_id, quantity,
			   status, created_at, expires_at, updated_at
		FROM cart_reservations
		WHERE status = 'ACTIVE'
		ORDER BY created_at, id
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var reservations []domain.ReservationView
	for rows.Next() {
		view, err := scanReservation(rows)
		if err != nil {
			return nil, err
		}
		reservations = append(reservations, view)
	}
	return reservations, rows.Err()
}

// PruneTerminal deletes released, expired and consumed rows last touched
// before the cutoff.
func (r *InventoryRepository) PruneTerminal(ctx context.Context, before time.Time) (int64, error) {
	query := `
		DELETE FROM cart_reservations
		WHERE status = ANY($1) AND updated_at < $2
	`

	result, err := r.db.ExecContext(ctx, query, pq.Array(terminalStates), before)
	if err != nil {
		return 0, fmt.Errorf("prune reservations: %w", err)
	}
	return result.RowsAffected()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanReservation(row rowScanner) (domain.ReservationView, error) {
	var (
		view   domain.ReservationView
		status string
	)
	err := row.Scan(
		&view.ID,
		&view.SKU,
		&view.CenterID,
		&view.Owner.UserID,
		&view.Owner.SessionID,
		&view.Quantity,
		&status,
		&view.CreatedAt,
		&view.ExpiresAt,
		&view.UpdatedAt,
	)
	if err != nil {
		return domain.ReservationView{}, err
	}
	if view.State, err = domain.ParseReservationState(status); err != nil {
		return domain.ReservationView{}, fmt.Errorf("reservation %s: %w", view.ID, err)
	}
	return view, nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == uniqueViolation
}
