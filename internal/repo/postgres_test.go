package repo

import (
	"context"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"gorm.io/gorm"

	"github.com/Skotchmaster/community_shop/internal/models"
	"github.com/Skotchmaster/community_shop/pkg/db"
)

// setupPostgres starts a disposable postgres; set TEST_INTEGRATION=1 to run.
func setupPostgres(t *testing.T) *gorm.DB {
	t.Helper()

	if os.Getenv("TEST_INTEGRATION") == "" {
		t.Skip("TEST_INTEGRATION not set")
	}

	ctx := context.Background()
	container, err := postgres.Run(ctx,
		"docker.io/postgres:17-alpine",
		postgres.WithDatabase("community_shop_test"),
		postgres.WithUsername("shop"),
		postgres.WithPassword("test-password"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := container.Terminate(ctx); err != nil {
			t.Logf("terminate container: %v", err)
		}
	})

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	gdb, err := db.Open(ctx, db.DriverPostgres, dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close(gdb) })

	require.NoError(t, Migrate(gdb))
	return gdb
}

func TestPostgres_UniqueViolation(t *testing.T) {
	r := New(setupPostgres(t))
	ctx := context.Background()

	require.NoError(t, r.CreateUser(ctx, &models.User{Username: "ana", Email: "ana@example.com", PasswordHash: "x", Role: models.RoleUser}))
	err := r.CreateUser(ctx, &models.User{Username: "ana", Email: "b@example.com", PasswordHash: "x", Role: models.RoleUser})
	require.Error(t, err)
	assert.True(t, IsUniqueViolation(err))
}

func TestPostgres_ConcurrentCommitsNeverOversell(t *testing.T) {
	r := New(setupPostgres(t))
	ctx := context.Background()
	p := seedProduct(t, r, "last lamp", "30.00", 1)

	const buyers = 5
	orders := make([]*models.Order, buyers)
	for i := range orders {
		orders[i] = newPendingOrder(t, r, "session-"+string(rune('a'+i)), map[*models.Product]int{p: 1})
	}

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
		shortages int
	)
	for _, o := range orders {
		wg.Add(1)
		go func(o *models.Order) {
			defer wg.Done()
			_, _, err := r.CommitOrder(ctx, o.ID)
			mu.Lock()
			defer mu.Unlock()
			var se *StockError
			switch {
			case err == nil:
				succeeded++
			case assert.ErrorAs(t, err, &se):
				shortages++
			}
		}(o)
	}
	wg.Wait()

	assert.Equal(t, 1, succeeded)
	assert.Equal(t, buyers-1, shortages)

	stored, err := r.GetProduct(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, stored.Stock)
}

func TestPostgres_ConcurrentFirstAddsMerge(t *testing.T) {
	r := New(setupPostgres(t))
	ctx := context.Background()
	p := seedProduct(t, r, "lamp", "10.00", 100)

	const adds = 8
	var wg sync.WaitGroup
	errs := make([]error, adds)
	for i := 0; i < adds; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = r.AddToCart(ctx, "s1", 1, p.ID, 1)
		}(i)
	}
	wg.Wait()

	for _, err := range errs {
		assert.NoError(t, err)
	}
	items, err := r.CartItems(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, adds, items[0].Quantity)
}
