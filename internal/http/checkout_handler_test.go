package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/maximefrech68-hue/monthe/internal/cart"
	"github.com/maximefrech68-hue/monthe/internal/catalog"
	"github.com/maximefrech68-hue/monthe/internal/checkout"
	"github.com/maximefrech68-hue/monthe/internal/domain"
	"github.com/maximefrech68-hue/monthe/internal/payment"
	"github.com/maximefrech68-hue/monthe/internal/storage"
)

type paymentStub struct {
	url string
	err error
}

func (p paymentStub) CreateSession(ctx context.Context, order *domain.PendingOrder, successURL, cancelURL string) (string, error) {
	if p.err != nil {
		return "", p.err
	}
	return p.url, nil
}

type gatewayStub struct {
	recordErr error
	recorded  int
}

func (g *gatewayStub) RecordOrder(ctx context.Context, order *domain.PendingOrder) error {
	if g.recordErr != nil {
		return g.recordErr
	}
	g.recorded++
	return nil
}

func (g *gatewayStub) DecrementStock(ctx context.Context, items []domain.LineItem) error {
	return nil
}

type checkoutFixture struct {
	handler *CheckoutHandler
	carts   *cart.Service
	gateway *gatewayStub
}

func newCheckoutFixture(payments checkout.PaymentInitiator, gw *gatewayStub) checkoutFixture {
	store := storage.NewMemoryStore()
	provider := catalog.NewStatic(handlerProducts)
	carts := cart.NewService(store, provider)
	svc := checkout.NewService(store, provider, carts, payments, gw, time.Hour)
	return checkoutFixture{
		handler: NewCheckoutHandler(svc, 5*time.Second),
		carts:   carts,
		gateway: gw,
	}
}

func fillCart(t *testing.T, carts *cart.Service, sessionID string) {
	t.Helper()
	if _, err := carts.Add(context.Background(), sessionID, "the-vert"); err != nil {
		t.Fatalf("Failed to fill cart: %v", err)
	}
}

func validBeginRequest() *BeginCheckoutRequestDTO {
	return &BeginCheckoutRequestDTO{
		Email:      "client@example.com",
		FullName:   "Jeanne Martin",
		Address:    "3 rue des Camélias",
		City:       "Colmar",
		Zip:        "68000",
		SuccessURL: "https://shop.example.com/merci?success=1",
		CancelURL:  "https://shop.example.com/panier?canceled=1",
	}
}

func TestBeginCheckout_Success(t *testing.T) {
	fixture := newCheckoutFixture(paymentStub{url: "https://pay.example.com/s/abc"}, &gatewayStub{})
	fillCart(t, fixture.carts, "sess-1")

	reqBytes, _ := json.Marshal(validBeginRequest())
	recorder := httptest.NewRecorder()
	request := withSession(httptest.NewRequest("POST", "/", bytes.NewReader(reqBytes)), "sess-1")

	fixture.handler.Begin(recorder, request)

	if recorder.Code != http.StatusCreated {
		t.Errorf("Expected status code %d, got %d", http.StatusCreated, recorder.Code)
	}

	var response BeginCheckoutResponseDTO
	if err := json.NewDecoder(recorder.Body).Decode(&response); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}

	if response.RedirectURL != "https://pay.example.com/s/abc" {
		t.Errorf("Expected redirect URL, got '%s'", response.RedirectURL)
	}
	if len(response.OrderRef) == 0 {
		t.Error("Expected non-empty order_ref")
	}
}

func TestBeginCheckout_EmptyCart(t *testing.T) {
	fixture := newCheckoutFixture(paymentStub{url: "https://pay.example.com/s/abc"}, &gatewayStub{})

	reqBytes, _ := json.Marshal(validBeginRequest())
	recorder := httptest.NewRecorder()
	request := withSession(httptest.NewRequest("POST", "/", bytes.NewReader(reqBytes)), "sess-1")

	fixture.handler.Begin(recorder, request)

	if recorder.Code != http.StatusBadRequest {
		t.Errorf("Expected status code %d, got %d", http.StatusBadRequest, recorder.Code)
	}

	var response ErrorResponse
	json.NewDecoder(recorder.Body).Decode(&response)
	if response.Code != "empty_cart" {
		t.Errorf("Expected error code 'empty_cart', got '%s'", response.Code)
	}
}

func TestBeginCheckout_InvalidCustomer(t *testing.T) {
	fixture := newCheckoutFixture(paymentStub{url: "https://pay.example.com/s/abc"}, &gatewayStub{})
	fillCart(t, fixture.carts, "sess-1")

	req := validBeginRequest()
	req.Email = "not-an-email"
	reqBytes, _ := json.Marshal(req)
	recorder := httptest.NewRecorder()
	request := withSession(httptest.NewRequest("POST", "/", bytes.NewReader(reqBytes)), "sess-1")

	fixture.handler.Begin(recorder, request)

	if recorder.Code != http.StatusBadRequest {
		t.Errorf("Expected status code %d, got %d", http.StatusBadRequest, recorder.Code)
	}

	var response ErrorResponse
	json.NewDecoder(recorder.Body).Decode(&response)
	if response.Code != "invalid_customer" {
		t.Errorf("Expected error code 'invalid_customer', got '%s'", response.Code)
	}
}

func TestBeginCheckout_MissingReturnURLs(t *testing.T) {
	fixture := newCheckoutFixture(paymentStub{url: "https://pay.example.com/s/abc"}, &gatewayStub{})
	fillCart(t, fixture.carts, "sess-1")

	req := validBeginRequest()
	req.SuccessURL = ""
	reqBytes, _ := json.Marshal(req)
	recorder := httptest.NewRecorder()
	request := withSession(httptest.NewRequest("POST", "/", bytes.NewReader(reqBytes)), "sess-1")

	fixture.handler.Begin(recorder, request)

	if recorder.Code != http.StatusBadRequest {
		t.Errorf("Expected status code %d, got %d", http.StatusBadRequest, recorder.Code)
	}

	var response ErrorResponse
	json.NewDecoder(recorder.Body).Decode(&response)
	if response.Code != "missing_return_urls" {
		t.Errorf("Expected error code 'missing_return_urls', got '%s'", response.Code)
	}
}

func TestBeginCheckout_PaymentInitFailed(t *testing.T) {
	fixture := newCheckoutFixture(paymentStub{err: payment.ErrSessionRejected}, &gatewayStub{})
	fillCart(t, fixture.carts, "sess-1")

	reqBytes, _ := json.Marshal(validBeginRequest())
	recorder := httptest.NewRecorder()
	request := withSession(httptest.NewRequest("POST", "/", bytes.NewReader(reqBytes)), "sess-1")

	fixture.handler.Begin(recorder, request)

	if recorder.Code != http.StatusBadGateway {
		t.Errorf("Expected status code %d, got %d", http.StatusBadGateway, recorder.Code)
	}

	var response ErrorResponse
	json.NewDecoder(recorder.Body).Decode(&response)
	if response.Code != "payment_init_failed" {
		t.Errorf("Expected error code 'payment_init_failed', got '%s'", response.Code)
	}

	// The cart must survive a failed payment init.
	c, err := fixture.carts.Get(context.Background(), "sess-1")
	if err != nil {
		t.Fatalf("Failed to load cart: %v", err)
	}
	if c.Count() != 1 {
		t.Errorf("Expected cart to be kept, got count %d", c.Count())
	}
}

func TestReturn_NoSignal(t *testing.T) {
	fixture := newCheckoutFixture(paymentStub{url: "https://pay.example.com/s/abc"}, &gatewayStub{})

	recorder := httptest.NewRecorder()
	request := withSession(httptest.NewRequest("GET", "/return", nil), "sess-1")

	fixture.handler.Return(recorder, request)

	if recorder.Code != http.StatusOK {
		t.Errorf("Expected status code %d, got %d", http.StatusOK, recorder.Code)
	}

	var response ReturnResponseDTO
	if err := json.NewDecoder(recorder.Body).Decode(&response); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if response.State != "NONE" {
		t.Errorf("Expected state NONE, got '%s'", response.State)
	}
}

func TestReturn_Canceled(t *testing.T) {
	fixture := newCheckoutFixture(paymentStub{url: "https://pay.example.com/s/abc"}, &gatewayStub{})
	fillCart(t, fixture.carts, "sess-1")

	recorder := httptest.NewRecorder()
	request := withSession(httptest.NewRequest("GET", "/return?canceled=1", nil), "sess-1")

	fixture.handler.Return(recorder, request)

	if recorder.Code != http.StatusOK {
		t.Errorf("Expected status code %d, got %d", http.StatusOK, recorder.Code)
	}

	var response ReturnResponseDTO
	if err := json.NewDecoder(recorder.Body).Decode(&response); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if response.State != "CANCELED" {
		t.Errorf("Expected state CANCELED, got '%s'", response.State)
	}

	// Cancellation must leave the cart untouched.
	c, err := fixture.carts.Get(context.Background(), "sess-1")
	if err != nil {
		t.Fatalf("Failed to load cart: %v", err)
	}
	if c.Count() != 1 {
		t.Errorf("Expected cart to be kept, got count %d", c.Count())
	}
}

func TestReturn_SuccessConfirmsOrder(t *testing.T) {
	gw := &gatewayStub{}
	fixture := newCheckoutFixture(paymentStub{url: "https://pay.example.com/s/abc"}, gw)
	fillCart(t, fixture.carts, "sess-1")

	// Stage the order first, like the browser would before redirecting.
	reqBytes, _ := json.Marshal(validBeginRequest())
	recorder := httptest.NewRecorder()
	request := withSession(httptest.NewRequest("POST", "/", bytes.NewReader(reqBytes)), "sess-1")
	fixture.handler.Begin(recorder, request)
	if recorder.Code != http.StatusCreated {
		t.Fatalf("Begin failed with status %d", recorder.Code)
	}
	var begin BeginCheckoutResponseDTO
	json.NewDecoder(recorder.Body).Decode(&begin)

	recorder = httptest.NewRecorder()
	request = withSession(httptest.NewRequest("GET", "/return?success=1", nil), "sess-1")
	fixture.handler.Return(recorder, request)

	if recorder.Code != http.StatusOK {
		t.Errorf("Expected status code %d, got %d", http.StatusOK, recorder.Code)
	}

	var response ReturnResponseDTO
	if err := json.NewDecoder(recorder.Body).Decode(&response); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if response.State != "CONFIRMED" {
		t.Errorf("Expected state CONFIRMED, got '%s'", response.State)
	}
	if response.OrderRef != begin.OrderRef {
		t.Errorf("Expected order_ref '%s', got '%s'", begin.OrderRef, response.OrderRef)
	}
	if gw.recorded != 1 {
		t.Errorf("Expected 1 recorded order, got %d", gw.recorded)
	}

	// Confirmation clears the cart.
	c, err := fixture.carts.Get(context.Background(), "sess-1")
	if err != nil {
		t.Fatalf("Failed to load cart: %v", err)
	}
	if c.Count() != 0 {
		t.Errorf("Expected cart cleared after confirmation, got count %d", c.Count())
	}
}

func TestReturn_OrphanedConfirmation(t *testing.T) {
	fixture := newCheckoutFixture(paymentStub{url: "https://pay.example.com/s/abc"}, &gatewayStub{})

	recorder := httptest.NewRecorder()
	request := withSession(httptest.NewRequest("GET", "/return?success=1", nil), "sess-1")

	fixture.handler.Return(recorder, request)

	if recorder.Code != http.StatusNotFound {
		t.Errorf("Expected status code %d, got %d", http.StatusNotFound, recorder.Code)
	}

	var response ErrorResponse
	json.NewDecoder(recorder.Body).Decode(&response)
	if response.Code != "orphaned_confirmation" {
		t.Errorf("Expected error code 'orphaned_confirmation', got '%s'", response.Code)
	}
}

func TestReturn_ReconciliationFailed(t *testing.T) {
	gw := &gatewayStub{recordErr: errors.New("gateway down")}
	fixture := newCheckoutFixture(paymentStub{url: "https://pay.example.com/s/abc"}, gw)
	fillCart(t, fixture.carts, "sess-1")

	reqBytes, _ := json.Marshal(validBeginRequest())
	recorder := httptest.NewRecorder()
	request := withSession(httptest.NewRequest("POST", "/", bytes.NewReader(reqBytes)), "sess-1")
	fixture.handler.Begin(recorder, request)

	recorder = httptest.NewRecorder()
	request = withSession(httptest.NewRequest("GET", "/return?success=1", nil), "sess-1")
	fixture.handler.Return(recorder, request)

	if recorder.Code != http.StatusBadGateway {
		t.Errorf("Expected status code %d, got %d", http.StatusBadGateway, recorder.Code)
	}

	var response ErrorResponse
	json.NewDecoder(recorder.Body).Decode(&response)
	if response.Code != "reconciliation_failed" {
		t.Errorf("Expected error code 'reconciliation_failed', got '%s'", response.Code)
	}

	// The cart is kept so the customer can retry.
	c, err := fixture.carts.Get(context.Background(), "sess-1")
	if err != nil {
		t.Fatalf("Failed to load cart: %v", err)
	}
	if c.Count() != 1 {
		t.Errorf("Expected cart to be kept, got count %d", c.Count())
	}
}

func TestRetry_AfterReconciliationFailure(t *testing.T) {
	gw := &gatewayStub{recordErr: errors.New("gateway down")}
	fixture := newCheckoutFixture(paymentStub{url: "https://pay.example.com/s/abc"}, gw)
	fillCart(t, fixture.carts, "sess-1")

	reqBytes, _ := json.Marshal(validBeginRequest())
	recorder := httptest.NewRecorder()
	request := withSession(httptest.NewRequest("POST", "/", bytes.NewReader(reqBytes)), "sess-1")
	fixture.handler.Begin(recorder, request)

	recorder = httptest.NewRecorder()
	request = withSession(httptest.NewRequest("GET", "/return?success=1", nil), "sess-1")
	fixture.handler.Return(recorder, request)
	if recorder.Code != http.StatusBadGateway {
		t.Fatalf("Expected first reconciliation to fail, got status %d", recorder.Code)
	}

	// Gateway recovers, the retry endpoint finishes the job.
	gw.recordErr = nil
	recorder = httptest.NewRecorder()
	request = withSession(httptest.NewRequest("POST", "/retry", nil), "sess-1")
	fixture.handler.Retry(recorder, request)

	if recorder.Code != http.StatusOK {
		t.Errorf("Expected status code %d, got %d", http.StatusOK, recorder.Code)
	}

	var response ReturnResponseDTO
	if err := json.NewDecoder(recorder.Body).Decode(&response); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if response.State != "CONFIRMED" {
		t.Errorf("Expected state CONFIRMED, got '%s'", response.State)
	}
}

func TestRetry_WithoutPayment(t *testing.T) {
	gw := &gatewayStub{}
	fixture := newCheckoutFixture(paymentStub{url: "https://pay.example.com/s/abc"}, gw)
	fillCart(t, fixture.carts, "sess-1")

	// Staged via Begin, but the customer never pays.
	reqBytes, _ := json.Marshal(validBeginRequest())
	recorder := httptest.NewRecorder()
	request := withSession(httptest.NewRequest("POST", "/", bytes.NewReader(reqBytes)), "sess-1")
	fixture.handler.Begin(recorder, request)
	if recorder.Code != http.StatusCreated {
		t.Fatalf("Begin failed with status %d", recorder.Code)
	}

	recorder = httptest.NewRecorder()
	request = withSession(httptest.NewRequest("POST", "/retry", nil), "sess-1")
	fixture.handler.Retry(recorder, request)

	if recorder.Code != http.StatusConflict {
		t.Errorf("Expected status code %d, got %d", http.StatusConflict, recorder.Code)
	}

	var response ErrorResponse
	json.NewDecoder(recorder.Body).Decode(&response)
	if response.Code != "payment_not_confirmed" {
		t.Errorf("Expected error code 'payment_not_confirmed', got '%s'", response.Code)
	}
	if gw.recorded != 0 {
		t.Errorf("Expected no recorded orders, got %d", gw.recorded)
	}
}

func TestRetry_NothingStaged(t *testing.T) {
	fixture := newCheckoutFixture(paymentStub{url: "https://pay.example.com/s/abc"}, &gatewayStub{})

	recorder := httptest.NewRecorder()
	request := withSession(httptest.NewRequest("POST", "/retry", nil), "sess-1")

	fixture.handler.Retry(recorder, request)

	if recorder.Code != http.StatusNotFound {
		t.Errorf("Expected status code %d, got %d", http.StatusNotFound, recorder.Code)
	}

	var response ErrorResponse
	json.NewDecoder(recorder.Body).Decode(&response)
	if response.Code != "orphaned_confirmation" {
		t.Errorf("Expected error code 'orphaned_confirmation', got '%s'", response.Code)
	}
}
