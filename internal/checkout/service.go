package checkout

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/maximefrech68-hue/monthe/internal/cart"
	"github.com/maximefrech68-hue/monthe/internal/catalog"
	"github.com/maximefrech68-hue/monthe/internal/domain"
	"github.com/maximefrech68-hue/monthe/internal/storage"
)

var (
	// ErrOrphanedConfirmation means the provider signalled success but no
	// staged order exists locally. Irrecoverable here: the payment went
	// through, so this needs manual reconciliation with the provider.
	ErrOrphanedConfirmation = errors.New("checkout: payment confirmed but no staged order found")

	// ErrReconciliationFailed means payment succeeded but recording the
	// order durably did not. The staged order and the cart are kept so the
	// submission can be retried.
	ErrReconciliationFailed = errors.New("checkout: order recording failed after successful payment")

	// ErrPaymentNotConfirmed means a retry was requested for a staged order
	// that never saw the provider's success signal. The order stays pending;
	// it must not be recorded as paid.
	ErrPaymentNotConfirmed = errors.New("checkout: staged order has no payment confirmation")
)

// State is the outcome of handling a payment return.
type State string

const (
	StateNone      State = "NONE"
	StateCanceled  State = "CANCELED"
	StateConfirmed State = "CONFIRMED"
)

// Outcome reports what the return handler did for a session.
type Outcome struct {
	State    State
	OrderRef string
}

// PaymentInitiator creates a payment session and returns the redirect URL.
type PaymentInitiator interface {
	CreateSession(ctx context.Context, order *domain.PendingOrder, successURL, cancelURL string) (string, error)
}

// Gateway is the slice of the persistence gateway the checkout flow needs.
type Gateway interface {
	RecordOrder(ctx context.Context, order *domain.PendingOrder) error
	DecrementStock(ctx context.Context, items []domain.LineItem) error
}

// Service drives the checkout flow: build and stage the pending order, hand
// the customer to the payment provider, then reconcile the outcome when the
// provider sends them back.
type Service struct {
	store    storage.Store
	catalog  catalog.Provider
	carts    *cart.Service
	payments PaymentInitiator
	gateway  Gateway

	// stagedTTL bounds how long an abandoned pending order lingers.
	stagedTTL time.Duration
}

func NewService(store storage.Store, provider catalog.Provider, carts *cart.Service, payments PaymentInitiator, gw Gateway, stagedTTL time.Duration) *Service {
	return &Service{
		store:     store,
		catalog:   provider,
		carts:     carts,
		payments:  payments,
		gateway:   gw,
		stagedTTL: stagedTTL,
	}
}

func pendingKey(sessionID string) string {
	return fmt.Sprintf("pending_order:%s", sessionID)
}

// BeginResult is returned to the HTTP layer, which performs the redirect.
type BeginResult struct {
	OrderRef    string
	RedirectURL string
}

// Begin builds the pending order, stages it, and only then creates the
// payment session. The staging must complete before the session call: once
// the browser navigates away, the staged record is all that survives.
func (s *Service) Begin(ctx context.Context, sessionID string, customer domain.Customer, successURL, cancelURL string) (*BeginResult, error) {
	c, err := s.carts.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	products, err := s.catalog.Products(ctx)
	if err != nil {
		return nil, fmt.Errorf("load catalog: %w", err)
	}

	order, err := BuildOrder(c, products, customer)
	if err != nil {
		return nil, err
	}

	if err := s.stage(ctx, sessionID, order); err != nil {
		return nil, err
	}

	redirectURL, err := s.payments.CreateSession(ctx, order, successURL, cancelURL)
	if err != nil {
		// The staged order is left in place: a retry simply overwrites it,
		// and nothing durable was touched.
		return nil, err
	}

	return &BeginResult{OrderRef: order.OrderRef, RedirectURL: redirectURL}, nil
}

// HandleReturn reacts to the signal the payment provider put on the return
// URL. Canceled and absent signals never touch persisted state.
func (s *Service) HandleReturn(ctx context.Context, sessionID string, signal Signal) (*Outcome, error) {
	switch signal {
	case SignalNone:
		return &Outcome{State: StateNone}, nil
	case SignalCanceled:
		// Cart and staged order stay as they are so the customer can retry.
		return &Outcome{State: StateCanceled}, nil
	default:
		return s.reconcile(ctx, sessionID, true)
	}
}

// Retry re-runs reconciliation for the session's staged order. This is
// reachable without the success signal in the URL, because browsers do not
// reliably preserve query parameters across reloads. It only finishes orders
// whose success signal was already recorded; an order still pending payment
// is refused, a retry must never be a way to skip paying.
func (s *Service) Retry(ctx context.Context, sessionID string) (*Outcome, error) {
	return s.reconcile(ctx, sessionID, false)
}

// reconcile marks the staged order paid, submits it to the gateway, then
// triggers the best-effort stock decrement and clears local state. Local
// cleanup happens only after the submission succeeds, never speculatively.
// confirmed reports whether the provider's success signal arrived with this
// call; without it, only orders already marked paid may proceed.
func (s *Service) reconcile(ctx context.Context, sessionID string, confirmed bool) (*Outcome, error) {
	order, err := s.loadStaged(ctx, sessionID)
	if errors.Is(err, storage.ErrKeyNotFound) {
		return nil, ErrOrphanedConfirmation
	}
	if err != nil {
		return nil, err
	}

	if order.PaymentStatus != domain.PaymentStatusPaid {
		if !confirmed {
			return nil, ErrPaymentNotConfirmed
		}
		order.MarkPaid(time.Now())
		// Persist the paid transition before talking to the gateway, so a
		// later retry can tell a confirmed order from one never paid for.
		if err := s.stage(ctx, sessionID, order); err != nil {
			log.Printf("order %s: persisting paid status failed: %v", order.OrderRef, err)
		}
	}

	if err := s.gateway.RecordOrder(ctx, order); err != nil {
		log.Printf("order %s: recording failed, keeping staged order for retry: %v", order.OrderRef, err)
		return nil, fmt.Errorf("%w: %v", ErrReconciliationFailed, err)
	}

	// Stock bookkeeping is decoupled from order persistence: a failure here
	// is logged but never blocks confirmation.
	if err := s.gateway.DecrementStock(ctx, order.Items); err != nil {
		log.Printf("order %s: stock decrement failed: %v", order.OrderRef, err)
	}

	if err := s.carts.Clear(ctx, sessionID); err != nil {
		log.Printf("order %s: clearing cart failed: %v", order.OrderRef, err)
	}
	if err := s.store.Delete(ctx, pendingKey(sessionID)); err != nil {
		log.Printf("order %s: clearing staged order failed: %v", order.OrderRef, err)
	}

	return &Outcome{State: StateConfirmed, OrderRef: order.OrderRef}, nil
}

func (s *Service) stage(ctx context.Context, sessionID string, order *domain.PendingOrder) error {
	data, err := json.Marshal(order)
	if err != nil {
		return fmt.Errorf("marshal pending order: %w", err)
	}
	if err := s.store.Set(ctx, pendingKey(sessionID), data, s.stagedTTL); err != nil {
		return fmt.Errorf("stage pending order: %w", err)
	}
	return nil
}

func (s *Service) loadStaged(ctx context.Context, sessionID string) (*domain.PendingOrder, error) {
	data, err := s.store.Get(ctx, pendingKey(sessionID))
	if err != nil {
		return nil, err
	}
	var order domain.PendingOrder
	if err := json.Unmarshal(data, &order); err != nil {
		return nil, fmt.Errorf("unmarshal pending order: %w", err)
	}
	return &order, nil
}
