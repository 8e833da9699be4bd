package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Skotchmaster/community_shop/internal/cache"
	"github.com/Skotchmaster/community_shop/internal/models"
	"github.com/Skotchmaster/community_shop/internal/repo"
)

type checkoutFixture struct {
	repo    *repo.GormRepo
	gw      *fakeGateway
	pub     *recordingPublisher
	cart    *CartService
	catalog *CatalogService
	svc     *CheckoutService
}

func newCheckoutFixture(t *testing.T) *checkoutFixture {
	t.Helper()
	r := newTestRepo(t)
	gw := newFakeGateway()
	pub := &recordingPublisher{}
	catalog := &CatalogService{Repo: r, Cache: cache.NewProducts(8, time.Minute)}
	return &checkoutFixture{
		repo:    r,
		gw:      gw,
		pub:     pub,
		cart:    &CartService{Repo: r},
		catalog: catalog,
		svc: &CheckoutService{
			Repo:      r,
			Gateway:   gw,
			Catalog:   catalog,
			Events:    pub,
			PublicURL: "http://shop.test/",
			Currency:  "eur",
		},
	}
}

func (f *checkoutFixture) stock(t *testing.T, id uint) int {
	t.Helper()
	p, err := f.repo.GetProduct(context.Background(), id)
	require.NoError(t, err)
	return p.Stock
}

func TestBegin_EmptyCart(t *testing.T) {
	f := newCheckoutFixture(t)
	u := seedUser(t, f.repo, "ana")

	_, err := f.svc.Begin(context.Background(), identityFor(u, "s1"))
	assert.ErrorIs(t, err, ErrValidation)
	assert.Zero(t, f.gw.calls())
}

func TestBegin_StockConflictBeforeGateway(t *testing.T) {
	f := newCheckoutFixture(t)
	ctx := context.Background()
	u := seedUser(t, f.repo, "ana")
	ident := identityFor(u, "s1")
	p := seedProduct(t, f.repo, "lamp", "10.00", 3)

	require.NoError(t, f.cart.Add(ctx, ident, p.ID, 3))
	p.Stock = 1
	require.NoError(t, f.repo.SaveProduct(ctx, p))

	_, err := f.svc.Begin(ctx, ident)
	assert.ErrorIs(t, err, ErrStockConflict)
	assert.Zero(t, f.gw.calls())

	_, orders, err := f.repo.ListOrders(ctx, 0, 10)
	require.NoError(t, err)
	assert.Empty(t, orders)
}

func TestBegin_GatewayFailurePersistsNothing(t *testing.T) {
	f := newCheckoutFixture(t)
	ctx := context.Background()
	u := seedUser(t, f.repo, "ana")
	ident := identityFor(u, "s1")
	p := seedProduct(t, f.repo, "lamp", "10.00", 3)
	require.NoError(t, f.cart.Add(ctx, ident, p.ID, 1))

	f.gw.createErr = errors.New("card network down")
	_, err := f.svc.Begin(ctx, ident)
	assert.ErrorIs(t, err, ErrExternalPayment)

	total, _, err := f.repo.ListOrders(ctx, 0, 10)
	require.NoError(t, err)
	assert.Zero(t, total)
	assert.Equal(t, 3, f.stock(t, p.ID))

	items, err := f.repo.CartItems(ctx, ident.SessionID)
	require.NoError(t, err)
	assert.Len(t, items, 1)
}

func TestCheckout_FullFlow(t *testing.T) {
	f := newCheckoutFixture(t)
	ctx := context.Background()
	u := seedUser(t, f.repo, "ana")
	ident := identityFor(u, "s1")
	lamp := seedProduct(t, f.repo, "lamp", "19.99", 5)
	mug := seedProduct(t, f.repo, "mug", "4.50", 2)

	require.NoError(t, f.cart.Add(ctx, ident, lamp.ID, 2))
	require.NoError(t, f.cart.Add(ctx, ident, mug.ID, 2))

	cs, err := f.svc.Begin(ctx, ident)
	require.NoError(t, err)
	assert.Equal(t, "https://pay.example.com/1", cs.RedirectURL)

	req := f.gw.requests[0]
	assert.Equal(t, cs.OrderID.String(), req.ClientReference)
	assert.Equal(t, "ana@example.com", req.CustomerEmail)
	assert.Equal(t, "http://shop.test/checkout/success?session_id={CHECKOUT_SESSION_ID}", req.SuccessURL)
	assert.Equal(t, "http://shop.test/checkout/cancel?order_id="+cs.OrderID.String(), req.CancelURL)
	require.Len(t, req.Items, 2)
	assert.EqualValues(t, 1999, req.Items[0].UnitAmount)
	assert.EqualValues(t, 2, req.Items[0].Quantity)
	assert.EqualValues(t, 450, req.Items[1].UnitAmount)

	order, err := f.repo.OrderByID(ctx, cs.OrderID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusPending, order.Status)
	assert.Equal(t, "48.98", order.Total.StringFixed(2))
	assert.Equal(t, 5, f.stock(t, lamp.ID))

	_, err = f.svc.Complete(ctx, ident, "cs_test_1")
	assert.ErrorIs(t, err, ErrExternalPayment)
	assert.Equal(t, 5, f.stock(t, lamp.ID))

	f.gw.MarkPaid("cs_test_1")
	paid, err := f.svc.Complete(ctx, ident, "cs_test_1")
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusPaid, paid.Status)
	assert.NotNil(t, paid.PaidAt)
	assert.Equal(t, 3, f.stock(t, lamp.ID))
	assert.Equal(t, 0, f.stock(t, mug.ID))

	items, err := f.repo.CartItems(ctx, ident.SessionID)
	require.NoError(t, err)
	assert.Empty(t, items)

	again, err := f.svc.Complete(ctx, ident, "cs_test_1")
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusPaid, again.Status)
	assert.Equal(t, 3, f.stock(t, lamp.ID))

	assert.Equal(t, []string{"order_created", "order_paid"}, f.pub.types())

	orders, err := f.svc.ListOrders(ctx, u.ID)
	require.NoError(t, err)
	require.Len(t, orders, 1)
	assert.Len(t, orders[0].Items, 2)
}

func TestComplete_Rejections(t *testing.T) {
	f := newCheckoutFixture(t)
	ctx := context.Background()
	ana := seedUser(t, f.repo, "ana")
	bob := seedUser(t, f.repo, "bob")
	ident := identityFor(ana, "s1")
	p := seedProduct(t, f.repo, "lamp", "10.00", 5)
	require.NoError(t, f.cart.Add(ctx, ident, p.ID, 1))

	cs, err := f.svc.Begin(ctx, ident)
	require.NoError(t, err)
	f.gw.MarkPaid("cs_test_1")

	_, err = f.svc.Complete(ctx, ident, "")
	assert.ErrorIs(t, err, ErrValidation)

	_, err = f.svc.Complete(ctx, ident, "cs_unknown")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = f.svc.Complete(ctx, identityFor(bob, "s2"), "cs_test_1")
	assert.ErrorIs(t, err, ErrPermissionDenied)

	f.gw.sessions["cs_test_1"].ClientReference = uuid.NewString()
	_, err = f.svc.Complete(ctx, ident, "cs_test_1")
	assert.ErrorIs(t, err, ErrPermissionDenied)
	f.gw.sessions["cs_test_1"].ClientReference = cs.OrderID.String()

	f.gw.getErr = errors.New("timeout")
	_, err = f.svc.Complete(ctx, ident, "cs_test_1")
	assert.ErrorIs(t, err, ErrExternalPayment)
	f.gw.getErr = nil

	assert.Equal(t, 5, f.stock(t, p.ID))
}

func TestComplete_StockGoneAfterPayment(t *testing.T) {
	f := newCheckoutFixture(t)
	ctx := context.Background()
	u := seedUser(t, f.repo, "ana")
	ident := identityFor(u, "s1")
	lamp := seedProduct(t, f.repo, "lamp", "10.00", 2)
	mug := seedProduct(t, f.repo, "mug", "3.00", 1)
	require.NoError(t, f.cart.Add(ctx, ident, lamp.ID, 2))
	require.NoError(t, f.cart.Add(ctx, ident, mug.ID, 1))

	cs, err := f.svc.Begin(ctx, ident)
	require.NoError(t, err)

	mug.Stock = 0
	require.NoError(t, f.repo.SaveProduct(ctx, mug))
	f.gw.MarkPaid("cs_test_1")

	_, err = f.svc.Complete(ctx, ident, "cs_test_1")
	assert.ErrorIs(t, err, ErrStockConflict)

	assert.Equal(t, 2, f.stock(t, lamp.ID))
	order, err := f.repo.OrderByID(ctx, cs.OrderID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusPending, order.Status)

	items, err := f.repo.CartItems(ctx, ident.SessionID)
	require.NoError(t, err)
	assert.Len(t, items, 2)
}

func TestComplete_ConcurrentBuyersOfLastItem(t *testing.T) {
	f := newCheckoutFixture(t)
	ctx := context.Background()
	p := seedProduct(t, f.repo, "last one", "99.00", 1)

	const buyers = 4
	idents := make([]Identity, buyers)
	sessions := make([]string, buyers)
	for i := 0; i < buyers; i++ {
		u := seedUser(t, f.repo, "buyer"+string(rune('a'+i)))
		idents[i] = identityFor(u, uuid.NewString())
		require.NoError(t, f.cart.Add(ctx, idents[i], p.ID, 1))
		_, err := f.svc.Begin(ctx, idents[i])
		require.NoError(t, err)
		sessions[i] = f.gw.requests[i].ClientReference
	}
	for id := range f.gw.sessions {
		f.gw.MarkPaid(id)
	}

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
		conflicts int
	)
	for i := 0; i < buyers; i++ {
		order, err := f.repo.OrderByID(ctx, uuid.MustParse(sessions[i]))
		require.NoError(t, err)

		wg.Add(1)
		go func(ident Identity, paymentSession string) {
			defer wg.Done()
			_, err := f.svc.Complete(ctx, ident, paymentSession)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				succeeded++
			case errors.Is(err, ErrStockConflict):
				conflicts++
			}
		}(idents[i], order.PaymentSessionID)
	}
	wg.Wait()

	assert.Equal(t, 1, succeeded)
	assert.Equal(t, buyers-1, conflicts)
	assert.Equal(t, 0, f.stock(t, p.ID))
}

func TestCancel(t *testing.T) {
	f := newCheckoutFixture(t)
	ctx := context.Background()
	ana := seedUser(t, f.repo, "ana")
	bob := seedUser(t, f.repo, "bob")
	ident := identityFor(ana, "s1")
	p := seedProduct(t, f.repo, "lamp", "10.00", 5)
	require.NoError(t, f.cart.Add(ctx, ident, p.ID, 1))

	cs, err := f.svc.Begin(ctx, ident)
	require.NoError(t, err)

	assert.ErrorIs(t, f.svc.Cancel(ctx, ident, "not-a-uuid"), ErrValidation)
	assert.ErrorIs(t, f.svc.Cancel(ctx, ident, uuid.NewString()), ErrNotFound)
	assert.ErrorIs(t, f.svc.Cancel(ctx, identityFor(bob, "s2"), cs.OrderID.String()), ErrPermissionDenied)

	require.NoError(t, f.svc.Cancel(ctx, ident, cs.OrderID.String()))
	require.NoError(t, f.svc.Cancel(ctx, ident, cs.OrderID.String()))

	order, err := f.repo.OrderByID(ctx, cs.OrderID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusCancelled, order.Status)

	items, err := f.repo.CartItems(ctx, ident.SessionID)
	require.NoError(t, err)
	assert.Len(t, items, 1)

	f.gw.MarkPaid("cs_test_1")
	_, err = f.svc.Complete(ctx, ident, "cs_test_1")
	assert.ErrorIs(t, err, ErrValidation)
	assert.Equal(t, 5, f.stock(t, p.ID))
}

func TestMinorUnits(t *testing.T) {
	t.Parallel()

	tests := map[string]int64{"0": 0, "0.01": 1, "19.99": 1999, "10": 1000, "4.505": 451}
	for in, want := range tests {
		assert.Equal(t, want, minorUnits(decimalOf(t, in)), in)
	}
}
