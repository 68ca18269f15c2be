package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/maximefrech68-hue/monthe/internal/domain"
)

var (
	// ErrNoPayableItems means no cart entry resolved to a payment line item.
	ErrNoPayableItems = errors.New("payment: no payable items")

	// ErrSessionRejected wraps the provider's error message on a non-success
	// response from the session-creation endpoint.
	ErrSessionRejected = errors.New("payment: session creation rejected")
)

type sessionItem struct {
	Name string `json:"name"`
	// UnitAmount is in euro cents, the provider's minor unit.
	UnitAmount int64 `json:"unit_amount"`
	Quantity   int   `json:"quantity"`
}

type sessionRequest struct {
	Items      []sessionItem `json:"items"`
	SuccessURL string        `json:"success_url"`
	CancelURL  string        `json:"cancel_url"`
}

type sessionResponse struct {
	URL   string `json:"url"`
	Error string `json:"error"`
}

// Client creates payment sessions against the external provider endpoint.
type Client struct {
	endpoint string
	client   *http.Client
}

func NewClient(endpoint string, client *http.Client) *Client {
	if client == nil {
		client = &http.Client{}
	}
	return &Client{endpoint: endpoint, client: client}
}

// CreateSession sends the order's line items to the session-creation
// endpoint and returns the payment page URL to redirect the customer to.
// The caller must have staged the pending order before calling this: the
// redirect is an irreversible loss of in-memory state.
func (c *Client) CreateSession(ctx context.Context, order *domain.PendingOrder, successURL, cancelURL string) (string, error) {
	if len(order.Items) == 0 {
		return "", ErrNoPayableItems
	}

	req := sessionRequest{
		Items:      make([]sessionItem, 0, len(order.Items)),
		SuccessURL: successURL,
		CancelURL:  cancelURL,
	}
	for _, item := range order.Items {
		req.Items = append(req.Items, sessionItem{
			Name:       item.Name,
			UnitAmount: item.UnitPriceCents,
			Quantity:   item.Quantity,
		})
	}

	body, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("marshal session request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build session request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("call payment endpoint: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read payment response: %w", err)
	}

	var session sessionResponse
	// Ignore decode errors here, the status code decides the outcome and
	// the body may not be JSON on provider errors.
	_ = json.Unmarshal(respBody, &session)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg := session.Error
		if msg == "" {
			msg = fmt.Sprintf("status %d", resp.StatusCode)
		}
		return "", fmt.Errorf("%w: %s", ErrSessionRejected, msg)
	}

	if session.URL == "" {
		return "", fmt.Errorf("%w: provider returned no redirect url", ErrSessionRejected)
	}
	return session.URL, nil
}
