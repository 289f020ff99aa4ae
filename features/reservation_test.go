package features

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/cucumber/godog"
	"github.com/distributed-ecommerce-saga/inventory-service/internal/domain"
	"github.com/distributed-ecommerce-saga/inventory-service/internal/service"
	"github.com/distributed-ecommerce-saga/inventory-service/internal/store"
	"go.uber.org/zap"
)

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type reservationTestContext struct {
	clock   *clock
	svc     *service.InventoryService
	sweeper *service.Sweeper

	reserved domain.ReserveResult
	released domain.ReleaseResult
	cleared  domain.ClearResult
	report   domain.AvailabilityReport
	swept    service.SweepResult
	err      error
}

func (c *reservationTestContext) reset() error {
	c.clock = &clock{now: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)}
	svc, err := service.NewInventoryService(store.NewInventory(), nil, zap.NewNop(), service.DefaultConfig(), service.WithClock(c.clock.Now))
	if err != nil {
		return err
	}
	c.svc = svc
	c.sweeper = service.NewSweeper(svc, time.Second, time.Hour, zap.NewNop())
	c.reserved = domain.ReserveResult{}
	c.released = domain.ReleaseResult{}
	c.cleared = domain.ClearResult{}
	c.report = domain.AvailabilityReport{}
	c.swept = service.SweepResult{}
	c.err = nil
	return nil
}

func owner(name string) domain.Owner {
	return domain.Owner{UserID: name, SessionID: "session-" + name}
}

func (c *reservationTestContext) distributionCenter(id int, code string) error {
	return c.svc.RegisterCenter(context.Background(), domain.DistributionCenter{ID: id, Code: code, Name: code})
}

func (c *reservationTestContext) skuHasUnitsAtCenter(sku string, units, center int) error {
	_, err := c.svc.UpsertStock(context.Background(), domain.DistributionCenterStock{SKU: sku, CenterID: center, PhysicalQuantity: units})
	return err
}

func (c *reservationTestContext) reserve(name string, units int, sku string, center int, ttl time.Duration) error {
	c.reserved, c.err = c.svc.Reserve(context.Background(), domain.ReserveRequest{
		SKU: sku, Quantity: units, CenterID: center, Owner: owner(name), TTL: ttl,
	})
	return nil
}

func (c *reservationTestContext) ownerReserves(name string, units int, sku string) error {
	return c.reserve(name, units, sku, 0, 0)
}

func (c *reservationTestContext) ownerReservesAtCenter(name string, units int, sku string, center int) error {
	if err := c.reserve(name, units, sku, center, 0); err != nil {
		return err
	}
	return c.err
}

func (c *reservationTestContext) ownerReservesFor(name string, units int, sku string, seconds int) error {
	return c.reserve(name, units, sku, 0, time.Duration(seconds)*time.Second)
}

func (c *reservationTestContext) ownerReleases(name string, units int, sku string) error {
	c.released, c.err = c.svc.Release(context.Background(), domain.ReleaseRequest{SKU: sku, Quantity: units, Owner: owner(name)})
	return nil
}

func (c *reservationTestContext) ownerClearsTheCart(name string) error {
	c.cleared, c.err = c.svc.ClearCart(context.Background(), owner(name))
	return c.err
}

func (c *reservationTestContext) secondsPass(seconds int) error {
	c.clock.advance(time.Duration(seconds) * time.Second)
	return nil
}

func (c *reservationTestContext) theExpirySweeperRuns() error {
	c.swept = c.sweeper.SweepOnce(context.Background())
	return nil
}

func (c *reservationTestContext) iRequestAvailabilityFor(list string) error {
	c.report, c.err = c.svc.GetAvailability(context.Background(), strings.Split(list, ","), nil)
	return c.err
}

func (c *reservationTestContext) theReservationSucceedsWith(available int) error {
	if c.err != nil {
		return fmt.Errorf("expected reservation to succeed, got %v", c.err)
	}
	if c.reserved.Available != available {
		return fmt.Errorf("expected %d available, got %d", available, c.reserved.Available)
	}
	return nil
}

func (c *reservationTestContext) theReservationFailsWithInsufficientStock(requested, available int) error {
	if !errors.Is(c.err, domain.ErrInsufficientStock) {
		return fmt.Errorf("expected insufficient stock, got %v", c.err)
	}
	var invErr *domain.InventoryError
	if !errors.As(c.err, &invErr) {
		return fmt.Errorf("expected InventoryError, got %T", c.err)
	}
	if invErr.Requested != requested || invErr.Available != available {
		return fmt.Errorf("expected requested=%d available=%d, got requested=%d available=%d",
			requested, available, invErr.Requested, invErr.Available)
	}
	return nil
}

func (c *reservationTestContext) theReleaseSucceedsWith(available int) error {
	if c.err != nil {
		return fmt.Errorf("expected release to succeed, got %v", c.err)
	}
	if c.released.Available != available {
		return fmt.Errorf("expected %d available, got %d", available, c.released.Available)
	}
	return nil
}

func (c *reservationTestContext) theReleaseFailsWith(kind string) error {
	if c.err == nil {
		return errors.New("expected release to fail but it succeeded")
	}
	if got := domain.KindOf(c.err).String(); got != kind {
		return fmt.Errorf("expected %s, got %s", kind, got)
	}
	return nil
}

func (c *reservationTestContext) skuHasUnitsAvailable(sku string, available int) error {
	report, err := c.svc.GetAvailability(context.Background(), []string{sku}, nil)
	if err != nil {
		return err
	}
	if got := report.Products[0].Available; got != available {
		return fmt.Errorf("expected %s to have %d available, got %d", sku, available, got)
	}
	return nil
}

func (c *reservationTestContext) reservationsExpired(count int) error {
	if c.swept.Expired != count {
		return fmt.Errorf("expected %d expired, got %d", count, c.swept.Expired)
	}
	return nil
}

func (c *reservationTestContext) reservationsAreCleared(count int) error {
	if c.cleared.ClearedCount != count {
		return fmt.Errorf("expected %d cleared, got %d", count, c.cleared.ClearedCount)
	}
	return nil
}

func (c *reservationTestContext) theReportHasProducts(count int) error {
	if len(c.report.Products) != count {
		return fmt.Errorf("expected %d products, got %d", count, len(c.report.Products))
	}
	return nil
}

func (c *reservationTestContext) theReportListsWith(sku string, available int) error {
	for _, p := range c.report.Products {
		if p.SKU == sku {
			if p.Available != available {
				return fmt.Errorf("expected %s to have %d available, got %d", sku, available, p.Available)
			}
			return nil
		}
	}
	return fmt.Errorf("%s missing from report", sku)
}

func InitializeScenario(ctx *godog.ScenarioContext) {
	tc := &reservationTestContext{}

	ctx.Before(func(ctx context.Context, sc *godog.Scenario) (context.Context, error) {
		return ctx, tc.reset()
	})

	// Given steps
	ctx.Step(`^distribution center (\d+) "([^"]*)"$`, tc.distributionCenter)
	ctx.Step(`^SKU "([^"]*)" has (\d+) units at center (\d+)$`, tc.skuHasUnitsAtCenter)

	// When steps
	ctx.Step(`^owner "([^"]*)" reserves (\d+) units of "([^"]*)"$`, tc.ownerReserves)
	ctx.Step(`^owner "([^"]*)" reserves (\d+) units of "([^"]*)" at center (\d+)$`, tc.ownerReservesAtCenter)
	ctx.Step(`^owner "([^"]*)" reserves (\d+) units of "([^"]*)" for (\d+) seconds?$`, tc.ownerReservesFor)
	ctx.Step(`^owner "([^"]*)" releases (\d+) units of "([^"]*)"$`, tc.ownerReleases)
	ctx.Step(`^owner "([^"]*)" clears the cart$`, tc.ownerClearsTheCart)
	ctx.Step(`^(\d+) seconds? pass(?:es)?$`, tc.secondsPass)
	ctx.Step(`^the expiry sweeper runs$`, tc.theExpirySweeperRuns)
	ctx.Step(`^I request availability for "([^"]*)"$`, tc.iRequestAvailabilityFor)

	// Then steps
	ctx.Step(`^the reservation succeeds with (\d+) units available$`, tc.theReservationSucceedsWith)
	ctx.Step(`^the reservation fails with insufficient stock, requested (\d+) and available (\d+)$`, tc.theReservationFailsWithInsufficientStock)
	ctx.Step(`^the release succeeds with (\d+) units available$`, tc.theReleaseSucceedsWith)
	ctx.Step(`^the release fails with "([^"]*)"$`, tc.theReleaseFailsWith)
	ctx.Step(`^"([^"]*)" has (\d+) units available$`, tc.skuHasUnitsAvailable)
	ctx.Step(`^(\d+) reservations? expired$`, tc.reservationsExpired)
	ctx.Step(`^(\d+) reservations? (?:is|are) cleared$`, tc.reservationsAreCleared)
	ctx.Step(`^the report has (\d+) products$`, tc.theReportHasProducts)
	ctx.Step(`^the report lists "([^"]*)" with (\d+) available$`, tc.theReportListsWith)
}

func TestFeatures(t *testing.T) {
	suite := godog.TestSuite{
		ScenarioInitializer: InitializeScenario,
		Options: &godog.Options{
			Format:   "pretty",
			Paths:    []string{"reservation.feature"},
			TestingT: t,
		},
	}

	if suite.Run() != 0 {
		t.Fatal("non-zero status returned, failed to run feature tests")
	}
}
