// Package client is the HTTP client for the cart reservation and stock
// endpoints of the inventory service.
package client

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/distributed-ecommerce-saga/inventory-service/shared-domain/types"
	"github.com/go-resty/resty/v2"
)

const defaultTimeout = 5 * time.Second

// Error is returned for every non-2xx response.
type Error struct {
	StatusCode int
	Body       types.ErrorResponse
}

func (e *Error) Error() string {
	return fmt.Sprintf("inventory service: %d %s: %s", e.StatusCode, e.Body.Error, e.Body.Message)
}

type Client struct {
	http *resty.Client
}

type Option func(*resty.Client)

func WithTimeout(timeout time.Duration) Option {
	return func(c *resty.Client) { c.SetTimeout(timeout) }
}

func WithRetries(count int) Option {
	return func(c *resty.Client) {
		c.SetRetryCount(count).
			SetRetryWaitTime(100 * time.Millisecond).
			AddRetryCondition(func(r *resty.Response, err error) bool {
				return err != nil || r.StatusCode() >= 500
			})
	}
}

func New(baseURL string, opts ...Option) *Client {
	http := resty.New().
		SetBaseURL(strings.TrimRight(baseURL, "/")).
		SetTimeout(defaultTimeout).
		SetHeader("Accept", "application/json")
	for _, opt := range opts {
		opt(http)
	}
	return &Client{http: http}
}

func (c *Client) Reserve(ctx context.Context, req types.ReserveRequest) (*types.ReserveResponse, error) {
	var out types.ReserveResponse
	if err := c.do(ctx, resty.MethodPost, "/cart/reserve", req, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Release(ctx context.Context, req types.ReleaseRequest) (*types.ReleaseResponse, error) {
	var out types.ReleaseResponse
	if err := c.do(ctx, resty.MethodPost, "/cart/release", req, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) ClearCart(ctx context.Context, userID, sessionID string) (*types.ClearCartResponse, error) {
	var out types.ClearCartResponse
	body := types.ClearCartRequest{UserID: userID, SessionID: sessionID}
	if err := c.do(ctx, resty.MethodDelete, "/cart/clear", body, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Reservations(ctx context.Context, userID, sessionID string) (*types.ReservationsResponse, error) {
	var out types.ReservationsResponse
	query := map[string]string{"user_id": userID, "session_id": sessionID}
	if err := c.do(ctx, resty.MethodGet, "/cart/reservations", nil, query, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// RealtimeStock reads one SKU, optionally restricted to a single center.
func (c *Client) RealtimeStock(ctx context.Context, sku string, centerID *int) (*types.RealtimeStockResponse, error) {
	var out types.RealtimeStockResponse
	query := map[string]string{"product_sku": sku}
	if centerID != nil {
		query["distribution_center_id"] = strconv.Itoa(*centerID)
	}
	if err := c.do(ctx, resty.MethodGet, "/cart/stock/realtime", nil, query, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) RealtimeStocks(ctx context.Context, skus []string) (*types.MultiRealtimeStockResponse, error) {
	var out types.MultiRealtimeStockResponse
	query := map[string]string{"product_skus": strings.Join(skus, ",")}
	if err := c.do(ctx, resty.MethodGet, "/cart/stock/realtime", nil, query, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

type StockLevelsOptions struct {
	SKUs             []string
	CenterID         *int
	OnlyAvailable    bool
	IncludeReserved  bool
	IncludeInTransit bool
}

func (c *Client) StockLevels(ctx context.Context, opts StockLevelsOptions) (*types.MultiStockLevelResponse, error) {
	query := map[string]string{
		"only_available":     strconv.FormatBool(opts.OnlyAvailable),
		"include_reserved":   strconv.FormatBool(opts.IncludeReserved),
		"include_in_transit": strconv.FormatBool(opts.IncludeInTransit),
	}
	if len(opts.SKUs) > 0 {
		query["product_skus"] = strings.Join(opts.SKUs, ",")
	}
	if opts.CenterID != nil {
		query["distribution_center_id"] = strconv.Itoa(*opts.CenterID)
	}

	var out types.MultiStockLevelResponse
	if err := c.do(ctx, resty.MethodGet, "/inventory/stock-levels", nil, query, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) do(ctx context.Context, method, path string, body interface{}, query map[string]string, result interface{}) error {
	var failure types.ErrorResponse
	req := c.http.R().
		SetContext(ctx).
		SetResult(result).
		SetError(&failure)
	if body != nil {
		req.SetHeader("Content-Type", "application/json").SetBody(body)
	}
	if query != nil {
		req.SetQueryParams(query)
	}

	resp, err := req.Execute(method, path)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	if resp.IsError() {
		return &Error{StatusCode: resp.StatusCode(), Body: failure}
	}
	return nil
}
