package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vladislavdragonenkov/shop/internal/domain"
)

func sampleProduct(id string, qty int64) domain.Product {
	return domain.Product{
		ID:         id,
		Name:       "product " + id,
		SKU:        "SKU-" + id,
		PriceMinor: 10000,
		Quantity:   qty,
		CategoryID: "c1",
	}
}

func sampleOrder(id, customerID string, createdAt time.Time) domain.Order {
	return domain.Order{
		ID:            id,
		CustomerID:    customerID,
		CustomerName:  "Ivan",
		CustomerPhone: "+70000000000",
		Status:        domain.OrderStatusCreated,
		SubtotalMinor: 25000,
		DiscountMinor: 0,
		TotalMinor:    25000,
		Lines: []domain.OrderLine{
			{ID: id + "-l1", OrderID: id, ProductID: "p1", Qty: 2, UnitPriceMinor: 10000, LineTotalMinor: 20000},
			{ID: id + "-l2", OrderID: id, ProductID: "p2", Qty: 1, UnitPriceMinor: 5000, LineTotalMinor: 5000},
		},
		CreatedAt: createdAt,
		UpdatedAt: createdAt,
	}
}

func TestProductRepository_Postgres(t *testing.T) {
	store := openPostgresStoreForIntegrationTest(t)
	repo := NewProductRepository(store)
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, sampleProduct("p1", 3)))
	assert.ErrorIs(t, repo.Create(ctx, sampleProduct("p1", 3)), domain.ErrStorageConflict)

	got, err := repo.Get(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, "c1", got.CategoryID)
	assert.Equal(t, int64(10000), got.PriceMinor)

	qty, err := repo.AdjustQuantity(ctx, "p1", -5)
	require.NoError(t, err)
	assert.Equal(t, int64(-2), qty)

	_, err = repo.Get(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrProductNotFound)
	_, err = repo.AdjustQuantity(ctx, "missing", 1)
	assert.ErrorIs(t, err, domain.ErrProductNotFound)
}

func TestPromotionRepository_Postgres(t *testing.T) {
	store := openPostgresStoreForIntegrationTest(t)
	repo := NewPromotionRepository(store)
	ctx := context.Background()

	now := time.Now().UTC().Round(time.Microsecond)
	limit := int32(1)
	minOrder := int64(100000)
	category := "c1"
	promo := domain.Promotion{
		ID:            "promo-1",
		Code:          " summer10 ",
		Name:          "Summer",
		Kind:          domain.DiscountPercentage,
		Value:         decimal.RequireFromString("12.5"),
		MinOrderMinor: &minOrder,
		StartsAt:      now.Add(-time.Hour),
		EndsAt:        now.Add(time.Hour),
		Active:        true,
		UsageLimit:    &limit,
		CategoryID:    &category,
	}
	require.NoError(t, repo.Create(ctx, promo))

	dup := promo
	dup.ID = "promo-2"
	dup.Code = "SUMMER10"
	assert.ErrorIs(t, repo.Create(ctx, dup), domain.ErrPromotionCodeTaken)

	got, err := repo.GetByCode(ctx, "Summer10")
	require.NoError(t, err)
	assert.Equal(t, "SUMMER10", got.Code)
	assert.True(t, got.Value.Equal(promo.Value))
	require.NotNil(t, got.MinOrderMinor)
	assert.Equal(t, minOrder, *got.MinOrderMinor)
	assert.Nil(t, got.MaxDiscountMinor)
	assert.Nil(t, got.ProductID)
	require.NotNil(t, got.CategoryID)
	assert.Equal(t, "c1", *got.CategoryID)

	require.NoError(t, repo.IncrementUsage(ctx, "promo-1"))
	assert.ErrorIs(t, repo.IncrementUsage(ctx, "promo-1"), domain.ErrPromotionUsageExhausted)
	assert.ErrorIs(t, repo.IncrementUsage(ctx, "missing"), domain.ErrPromotionNotFound)

	inactive := promo
	inactive.ID = "promo-3"
	inactive.Code = "OFF"
	inactive.Active = false
	require.NoError(t, repo.Create(ctx, inactive))

	active, err := repo.ListActive(ctx)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, int32(1), active[0].UsedCount)

	_, err = repo.GetByCode(ctx, "nope")
	assert.ErrorIs(t, err, domain.ErrPromotionNotFound)
}

func TestOrderRepository_PostgresCreateGetListSaveDelete(t *testing.T) {
	store := openPostgresStoreForIntegrationTest(t)
	repo := NewOrderRepository(store)
	ctx := context.Background()

	now := time.Now().UTC().Round(time.Microsecond)
	first := sampleOrder("order-1", "customer-1", now.Add(-2*time.Minute))
	second := sampleOrder("order-2", "customer-1", now.Add(-time.Minute))
	second.TotalMinor = 1000
	second.DiscountMinor = 24000
	other := sampleOrder("order-3", "customer-2", now)

	for _, o := range []domain.Order{first, second, other} {
		require.NoError(t, repo.Create(ctx, o))
	}
	assert.ErrorIs(t, repo.Create(ctx, first), domain.ErrStorageConflict)

	got, err := repo.Get(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, first.CustomerName, got.CustomerName)
	require.Len(t, got.Lines, 2)
	assert.Equal(t, "p1", got.Lines[0].ProductID)
	assert.Equal(t, int64(20000), got.Lines[0].LineTotalMinor)
	assert.False(t, got.HasPromotion())

	listed, err := repo.List(ctx, domain.OrderFilter{CustomerID: "customer-1"}, domain.OrderSortCreatedDesc, 1)
	require.NoError(t, err)
	require.Len(t, listed, 1)
	assert.Equal(t, second.ID, listed[0].ID)
	assert.Len(t, listed[0].Lines, 2)

	byTotal, err := repo.List(ctx, domain.OrderFilter{}, domain.OrderSortTotalAsc, 0)
	require.NoError(t, err)
	require.Len(t, byTotal, 3)
	assert.Equal(t, second.ID, byTotal[0].ID)

	got.Status = domain.OrderStatusPaid
	got.UpdatedAt = now.Add(time.Minute)
	require.NoError(t, repo.Save(ctx, got))

	paid, err := repo.List(ctx, domain.OrderFilter{Status: domain.OrderStatusPaid}, domain.OrderSortCreatedAsc, 0)
	require.NoError(t, err)
	require.Len(t, paid, 1)
	assert.Equal(t, got.Version+1, paid[0].Version)

	assert.ErrorIs(t, repo.Save(ctx, got), domain.ErrOrderVersionConflict)
	missing := got
	missing.ID = "missing"
	assert.ErrorIs(t, repo.Save(ctx, missing), domain.ErrOrderNotFound)

	require.NoError(t, repo.Delete(ctx, first.ID))
	_, err = repo.Get(ctx, first.ID)
	assert.ErrorIs(t, err, domain.ErrOrderNotFound)
	assert.ErrorIs(t, repo.Delete(ctx, first.ID), domain.ErrOrderNotFound)
}

func TestTimelineAndOutboxRepository_Postgres(t *testing.T) {
	store := openPostgresStoreForIntegrationTest(t)
	timeline := NewTimelineRepository(store)
	outbox := NewOutboxRepository(store)
	ctx := context.Background()

	now := time.Now().UTC().Round(time.Microsecond)
	require.NoError(t, timeline.Append(ctx, domain.TimelineEvent{OrderID: "o1", Type: domain.EventOrderCreated, Occurred: now}))
	require.NoError(t, timeline.Append(ctx, domain.TimelineEvent{OrderID: "o1", Type: domain.EventOrderStatusChanged, Reason: "paid", Occurred: now.Add(time.Second)}))

	events, err := timeline.List(ctx, "o1")
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, domain.EventOrderCreated, events[0].Type)
	assert.Equal(t, "paid", events[1].Reason)

	first, err := outbox.Enqueue(ctx, domain.OutboxMessage{
		AggregateType: domain.AggregateOrder, AggregateID: "o1", EventType: domain.EventOrderCreated,
		Payload: []byte(`{"order_id":"o1"}`), CreatedAt: now,
	})
	require.NoError(t, err)
	require.NotEmpty(t, first.ID)
	second, err := outbox.Enqueue(ctx, domain.OutboxMessage{
		AggregateType: domain.AggregateOrder, AggregateID: "o1", EventType: domain.EventOrderDeleted,
		Payload: []byte(`{"order_id":"o1"}`), CreatedAt: now,
	})
	require.NoError(t, err)

	pending, err := outbox.PullPending(ctx, 10)
	require.NoError(t, err)
	require.Len(t, pending, 2)
	assert.Equal(t, first.ID, pending[0].ID)
	assert.JSONEq(t, `{"order_id":"o1"}`, string(pending[0].Payload))

	stats, err := outbox.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.PendingCount)
	assert.True(t, stats.OldestPendingAt.Equal(now))

	require.NoError(t, outbox.MarkSent(ctx, first.ID))
	require.NoError(t, outbox.MarkFailed(ctx, second.ID))
	assert.ErrorIs(t, outbox.MarkSent(ctx, "missing"), domain.ErrOutboxPublish)

	pending, err = outbox.PullPending(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, pending)
}
