package domain

import (
	"fmt"
	"math"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

const DefaultReservationTTL = 15 * time.Minute

type ReservationState int32

const (
	StateActive ReservationState = iota + 1
	StateReleased
	StateExpired
	StateConsumed
)

func (s ReservationState) String() string {
	switch s {
	case StateActive:
		return "ACTIVE"
	case StateReleased:
		return "RELEASED"
	case StateExpired:
		return "EXPIRED"
	case StateConsumed:
		return "CONSUMED"
	default:
		return "UNKNOWN"
	}
}

func (s ReservationState) IsTerminal() bool {
	return s == StateReleased || s == StateExpired || s == StateConsumed
}

func (s ReservationState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *ReservationState) UnmarshalText(text []byte) error {
	parsed, err := ParseReservationState(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

func ParseReservationState(value string) (ReservationState, error) {
	switch strings.ToUpper(value) {
	case "ACTIVE":
		return StateActive, nil
	case "RELEASED":
		return StateReleased, nil
	case "EXPIRED":
		return StateExpired, nil
	case "CONSUMED":
		return StateConsumed, nil
	}
	return 0, fmt.Errorf("unknown reservation state: %q", value)
}

// Owner is the holder of a cart. The session id can be renewed without the
// user logging out, which starts a fresh cart for the same user.
type Owner struct {
	UserID    string `json:"user_id"`
	SessionID string `json:"session_id"`
}

func (o Owner) Validate() error {
	if strings.TrimSpace(o.UserID) == "" {
		return NewInvalidOwner("user_id is required")
	}
	if strings.TrimSpace(o.SessionID) == "" {
		return NewInvalidOwner("session_id is required")
	}
	return nil
}

func (o Owner) String() string {
	return o.UserID + ":" + o.SessionID
}

// Reservation is a time-bounded claim on units of one SKU at one center.
//
// The state only ever leaves ACTIVE through a compare-and-swap, so when the
// sweeper and an explicit release race for the same record exactly one of
// them performs the terminal transition. Quantity and UpdatedAt are guarded
// by the lock of the slot that holds the reservation.
type Reservation struct {
	ID        uuid.UUID
	SKU       string
	CenterID  int
	Owner     Owner
	Quantity  int
	CreatedAt time.Time
	ExpiresAt time.Time
	UpdatedAt time.Time

	state atomic.Int32
}

func NewReservation(sku string, centerID int, owner Owner, quantity int, now time.Time, ttl time.Duration) *Reservation {
	r := &Reservation{
		ID:        uuid.New(),
		SKU:       NormalizeSKU(sku),
		CenterID:  centerID,
		Owner:     owner,
		Quantity:  quantity,
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
		UpdatedAt: now,
	}
	r.state.Store(int32(StateActive))
	return r
}

// RestoreReservation rebuilds a reservation from its persisted view.
func RestoreReservation(v ReservationView) *Reservation {
	r := &Reservation{
		ID:        v.ID,
		SKU:       NormalizeSKU(v.SKU),
		CenterID:  v.CenterID,
		Owner:     v.Owner,
		Quantity:  v.Quantity,
		CreatedAt: v.CreatedAt,
		ExpiresAt: v.ExpiresAt,
		UpdatedAt: v.UpdatedAt,
	}
	r.state.Store(int32(v.State))
	return r
}

func (r *Reservation) Key() StockKey {
	return StockKey{SKU: r.SKU, CenterID: r.CenterID}
}

func (r *Reservation) State() ReservationState {
	return ReservationState(r.state.Load())
}

func (r *Reservation) IsActive() bool {
	return r.State() == StateActive
}

// IsLapsed reports whether the TTL has run out, whatever the stored state.
func (r *Reservation) IsLapsed(now time.Time) bool {
	return !now.Before(r.ExpiresAt)
}

// IsUsable is true for ACTIVE reservations whose TTL has not run out. Readers
// use it so a lagging sweeper never makes an expired hold look usable.
func (r *Reservation) IsUsable(now time.Time) bool {
	return r.IsActive() && !r.IsLapsed(now)
}

// RemainingSeconds rounds up, so it is zero exactly when the reservation has lapsed.
func (r *Reservation) RemainingSeconds(now time.Time) int {
	if r.IsLapsed(now) {
		return 0
	}
	return int(math.Ceil(r.ExpiresAt.Sub(now).Seconds()))
}

func (r *Reservation) Release(now time.Time) bool {
	return r.transition(StateReleased, now)
}

func (r *Reservation) Expire(now time.Time) bool {
	return r.transition(StateExpired, now)
}

func (r *Reservation) Consume(now time.Time) bool {
	return r.transition(StateConsumed, now)
}

func (r *Reservation) transition(to ReservationState, now time.Time) bool {
	if !r.state.CompareAndSwap(int32(StateActive), int32(to)) {
		return false
	}
	r.UpdatedAt = now
	return true
}

func (r *Reservation) View() ReservationView {
	return ReservationView{
		ID:        r.ID,
		SKU:       r.SKU,
		CenterID:  r.CenterID,
		Owner:     r.Owner,
		Quantity:  r.Quantity,
		State:     r.State(),
		CreatedAt: r.CreatedAt,
		ExpiresAt: r.ExpiresAt,
		UpdatedAt: r.UpdatedAt,
	}
}

// ReservationView is an immutable copy of a reservation handed out of the store.
type ReservationView struct {
	ID        uuid.UUID        `json:"id"`
	SKU       string           `json:"sku"`
	CenterID  int              `json:"center_id"`
	Owner     Owner            `json:"owner"`
	Quantity  int              `json:"quantity"`
	State     ReservationState `json:"state"`
	CreatedAt time.Time        `json:"created_at"`
	ExpiresAt time.Time        `json:"expires_at"`
	UpdatedAt time.Time        `json:"updated_at"`
}

func (v ReservationView) RemainingSeconds(now time.Time) int {
	if !now.Before(v.ExpiresAt) {
		return 0
	}
	return int(math.Ceil(v.ExpiresAt.Sub(now).Seconds()))
}
