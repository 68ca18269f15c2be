// Package gateway talks to the spreadsheet-backed script endpoint that acts
// as the service of record for orders, products and stock. The endpoint is an
// opaque RPC surface: one URL, an action discriminator in the JSON body, and
// an ok/error envelope back.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/sony/gobreaker/v2"

	"github.com/maximefrech68-hue/monthe/internal/domain"
)

// ErrGatewayFailure covers both transport errors and failures reported in
// the response envelope. The reconciler treats them the same way.
var ErrGatewayFailure = errors.New("persistence gateway failure")

type orderItem struct {
	ID        string  `json:"id"`
	Name      string  `json:"name"`
	Qty       int     `json:"qty"`
	PriceEur  float64 `json:"price_eur"`
	LineTotal float64 `json:"line_total_eur"`
}

// orderPayload mirrors the sheet's Orders columns. Amounts cross the wire in
// euros because that is what the sheet stores.
type orderPayload struct {
	OrderRef      string      `json:"order_ref"`
	Email         string      `json:"email"`
	FullName      string      `json:"full_name"`
	Address       string      `json:"address"`
	City          string      `json:"city"`
	Zip           string      `json:"zip"`
	Items         []orderItem `json:"items"`
	TotalEur      float64     `json:"total_eur"`
	PaymentStatus string      `json:"payment_status"`
}

type stockItem struct {
	ID  string `json:"id"`
	Qty int    `json:"qty"`
}

// ProductRecord carries the product fields the admin surface writes. Amounts
// stay in cents here; conversion to the sheet's euro columns happens on the
// wire.
type ProductRecord struct {
	ID          string
	Name        string
	Category    string
	PriceCents  int64
	Stock       int
	ImageURL    string
	ShortDesc   string
	Description string
}

// productPayload mirrors the sheet's Products columns. The script maps the
// keys onto headers by name, so omitted optional fields leave existing cells
// alone on an update.
type productPayload struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Category    string  `json:"category,omitempty"`
	PriceEur    float64 `json:"price_eur"`
	Stock       int     `json:"stock"`
	ImageURL    string  `json:"image_url,omitempty"`
	ShortDesc   string  `json:"short_desc,omitempty"`
	Description string  `json:"description,omitempty"`
}

func toProductPayload(rec ProductRecord) productPayload {
	return productPayload{
		ID:          rec.ID,
		Name:        rec.Name,
		Category:    rec.Category,
		PriceEur:    euros(rec.PriceCents),
		Stock:       rec.Stock,
		ImageURL:    rec.ImageURL,
		ShortDesc:   rec.ShortDesc,
		Description: rec.Description,
	}
}

// envelope matches both response shapes the script produces: {ok: ...} for
// order recording and {success: ..., message: ...} for everything else.
type envelope struct {
	OK      *bool  `json:"ok"`
	Success *bool  `json:"success"`
	Error   string `json:"error"`
	Message string `json:"message"`
}

func (e envelope) accepted() bool {
	if e.OK != nil {
		return *e.OK
	}
	if e.Success != nil {
		return *e.Success
	}
	return false
}

func (e envelope) failureMessage() string {
	if e.Error != "" {
		return e.Error
	}
	return e.Message
}

// Client posts actions to the script endpoint behind a circuit breaker, so a
// dead gateway fails fast instead of stacking up timeouts.
type Client struct {
	endpoint string
	client   *http.Client
	breaker  *gobreaker.CircuitBreaker[envelope]
}

func NewClient(endpoint string, client *http.Client) *Client {
	if client == nil {
		client = &http.Client{}
	}
	breaker := gobreaker.NewCircuitBreaker[envelope](gobreaker.Settings{
		Name: "persistence-gateway",
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
	})
	return &Client{
		endpoint: endpoint,
		client:   client,
		breaker:  breaker,
	}
}

// RecordOrder submits a pending order for durable recording. The script is
// idempotent on order_ref: a repeated submission updates the existing row's
// status instead of appending a duplicate.
func (c *Client) RecordOrder(ctx context.Context, order *domain.PendingOrder) error {
	payload := orderPayload{
		OrderRef:      order.OrderRef,
		Email:         order.Customer.Email,
		FullName:      order.Customer.FullName,
		Address:       order.Customer.Address,
		City:          order.Customer.City,
		Zip:           order.Customer.Zip,
		Items:         make([]orderItem, 0, len(order.Items)),
		TotalEur:      euros(order.TotalCents),
		PaymentStatus: string(order.PaymentStatus),
	}
	for _, item := range order.Items {
		payload.Items = append(payload.Items, orderItem{
			ID:        item.ProductID,
			Name:      item.Name,
			Qty:       item.Quantity,
			PriceEur:  euros(item.UnitPriceCents),
			LineTotal: euros(item.LineTotalCents),
		})
	}
	return c.post(ctx, payload)
}

// DecrementStock asks the gateway to decrement stock for the given line
// items. The script clamps at zero, so overshooting is safe.
func (c *Client) DecrementStock(ctx context.Context, items []domain.LineItem) error {
	stockItems := make([]stockItem, 0, len(items))
	for _, item := range items {
		stockItems = append(stockItems, stockItem{ID: item.ProductID, Qty: item.Quantity})
	}
	return c.post(ctx, map[string]interface{}{
		"action": "decrementStock",
		"items":  stockItems,
	})
}

// SetStock sets a product's stock to an absolute value.
func (c *Client) SetStock(ctx context.Context, productID string, stock int) error {
	return c.post(ctx, map[string]interface{}{
		"action":     "updateStock",
		"product_id": productID,
		"stock":      stock,
	})
}

// DeleteOrder removes an order row by reference.
func (c *Client) DeleteOrder(ctx context.Context, orderRef string) error {
	return c.post(ctx, map[string]interface{}{
		"action":   "deleteOrder",
		"order_id": orderRef,
	})
}

// AddProduct appends a product row. The script rejects an id that already
// exists, which comes back as a business failure.
func (c *Client) AddProduct(ctx context.Context, rec ProductRecord) error {
	return c.post(ctx, map[string]interface{}{
		"action": "addProduct",
		"data":   toProductPayload(rec),
	})
}

// UpdateProduct rewrites the row matching originalID, which allows the id
// itself to change.
func (c *Client) UpdateProduct(ctx context.Context, originalID string, rec ProductRecord) error {
	return c.post(ctx, map[string]interface{}{
		"action":     "updateProduct",
		"originalId": originalID,
		"data":       toProductPayload(rec),
	})
}

// DeleteProduct removes a product row by id.
func (c *Client) DeleteProduct(ctx context.Context, productID string) error {
	return c.post(ctx, map[string]interface{}{
		"action": "deleteProduct",
		"id":     productID,
	})
}

func (c *Client) post(ctx context.Context, payload interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal gateway payload: %w", err)
	}

	env, err := c.breaker.Execute(func() (envelope, error) {
		return c.doPost(ctx, body)
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrGatewayFailure, err)
	}
	if !env.accepted() {
		return fmt.Errorf("%w: %s", ErrGatewayFailure, env.failureMessage())
	}
	return nil
}

func (c *Client) doPost(ctx context.Context, body []byte) (envelope, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return envelope{}, err
	}
	// The script endpoint only parses the body when posted as plain text.
	req.Header.Set("Content-Type", "text/plain;charset=utf-8")

	resp, err := c.client.Do(req)
	if err != nil {
		return envelope{}, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return envelope{}, err
	}
	if resp.StatusCode != http.StatusOK {
		return envelope{}, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	var env envelope
	if err := json.Unmarshal(respBody, &env); err != nil {
		return envelope{}, fmt.Errorf("decode gateway response: %w", err)
	}
	return env, nil
}

func euros(cents int64) float64 {
	return float64(cents) / 100
}
