package payment

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStripe_CreateAndRetrieve(t *testing.T) {
	var (
		mu   sync.Mutex
		form url.Values
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/v1/checkout/sessions":
			body, _ := io.ReadAll(r.Body)
			mu.Lock()
			form, _ = url.ParseQuery(string(body))
			mu.Unlock()
			_, _ = io.WriteString(w, `{"id":"cs_test_1","object":"checkout.session","url":"https://pay.example/cs_test_1","client_reference_id":"order-1","payment_status":"unpaid"}`)
		case r.Method == http.MethodGet && r.URL.Path == "/v1/checkout/sessions/cs_test_1":
			_, _ = io.WriteString(w, `{"id":"cs_test_1","object":"checkout.session","client_reference_id":"order-1","payment_status":"paid"}`)
		default:
			w.WriteHeader(http.StatusNotFound)
			_, _ = io.WriteString(w, `{"error":{"type":"invalid_request_error","message":"no such route"}}`)
		}
	}))
	defer srv.Close()

	gw := NewStripeWithURL("sk_test_123", srv.URL)
	ctx := context.Background()

	s, err := gw.CreateSession(ctx, SessionRequest{
		ClientReference: "order-1",
		Currency:        "eur",
		SuccessURL:      "http://shop/checkout/success?session_id={CHECKOUT_SESSION_ID}",
		CancelURL:       "http://shop/checkout/cancel?order_id=order-1",
		Items:           []LineItem{{Name: "Lamp", UnitAmount: 1250, Quantity: 2}},
	})
	require.NoError(t, err)
	assert.Equal(t, "cs_test_1", s.ID)
	assert.Equal(t, "https://pay.example/cs_test_1", s.URL)
	assert.False(t, s.Paid)

	mu.Lock()
	assert.Equal(t, "payment", form.Get("mode"))
	assert.Equal(t, "order-1", form.Get("client_reference_id"))
	assert.Equal(t, "1250", form.Get("line_items[0][price_data][unit_amount]"))
	assert.Equal(t, "2", form.Get("line_items[0][quantity]"))
	assert.Equal(t, "Lamp", form.Get("line_items[0][price_data][product_data][name]"))
	mu.Unlock()

	got, err := gw.RetrieveSession(ctx, "cs_test_1")
	require.NoError(t, err)
	assert.True(t, got.Paid)
	assert.Equal(t, "order-1", got.ClientReference)

	_, err = gw.RetrieveSession(ctx, "cs_missing")
	require.Error(t, err)
}

func TestDisabled(t *testing.T) {
	t.Parallel()

	var gw Gateway = Disabled{}
	_, err := gw.CreateSession(context.Background(), SessionRequest{})
	assert.ErrorIs(t, err, ErrNotConfigured)
	_, err = gw.RetrieveSession(context.Background(), "x")
	assert.ErrorIs(t, err, ErrNotConfigured)
}
