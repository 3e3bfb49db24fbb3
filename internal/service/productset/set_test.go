package productset_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
	"github.com/vladislavdragonenkov/storefront/internal/events"
	"github.com/vladislavdragonenkov/storefront/internal/localstore"
	"github.com/vladislavdragonenkov/storefront/internal/metrics"
	"github.com/vladislavdragonenkov/storefront/internal/service/productset"
	"github.com/vladislavdragonenkov/storefront/internal/service/state"
	"github.com/vladislavdragonenkov/storefront/internal/storage/memory"
)

func testDeps(store domain.KVStore, bus *events.Bus) state.Deps {
	return state.Deps{
		Profile: "p1",
		Store:   localstore.New(store, "profile/p1", nil, nil),
		Bus:     bus,
		Metrics: metrics.NewStoreMetricsWithRegisterer(prometheus.NewRegistry()),
	}
}

func product(n int) domain.Product {
	return domain.Product{
		ID:            fmt.Sprintf("sku-%d", n),
		Name:          fmt.Sprintf("Product %d", n),
		Price:         decimal.NewFromInt(int64(100 * n)),
		ImageURL:      fmt.Sprintf("https://cdn.example.com/%d.png", n),
		StockQuantity: n,
		Rating:        4.5,
		Category:      "phones",
	}
}

func itemIDs(items []domain.Product) []string {
	out := make([]string, 0, len(items))
	for _, p := range items {
		out = append(out, p.ID)
	}
	return out
}

func TestComparison_RejectsFifthProduct(t *testing.T) {
	set := productset.New(testDeps(memory.NewKVStore(), nil), productset.Comparison, productset.DefaultComparisonLimit)

	for i := 1; i <= 4; i++ {
		res, err := set.Toggle(product(i))
		require.NoError(t, err)
		require.Equal(t, productset.Added, res)
	}

	before := itemIDs(set.Items())
	res, err := set.Toggle(product(5))
	require.NoError(t, err)
	assert.Equal(t, productset.Rejected, res)
	assert.Equal(t, before, itemIDs(set.Items()))
	assert.False(t, set.IsMember("sku-5"))

	res, err = set.Add(product(6))
	require.NoError(t, err)
	assert.Equal(t, productset.Rejected, res)
}

func TestComparison_ToggleRemovesMember(t *testing.T) {
	set := productset.New(testDeps(memory.NewKVStore(), nil), productset.Comparison, 4)

	_, _ = set.Toggle(product(1))
	_, _ = set.Toggle(product(2))

	res, err := set.Toggle(product(1))
	require.NoError(t, err)
	assert.Equal(t, productset.Removed, res)
	assert.Equal(t, []string{"sku-2"}, itemIDs(set.Items()))
}

func TestWishlist_Unbounded(t *testing.T) {
	set := productset.New(testDeps(memory.NewKVStore(), nil), productset.Wishlist, 0)

	for i := 1; i <= 25; i++ {
		res, err := set.Toggle(product(i))
		require.NoError(t, err)
		require.Equal(t, productset.Added, res)
	}
	assert.Equal(t, 25, set.Len())
	assert.Zero(t, set.Capacity())
}

func TestSet_AddRemoveIdempotent(t *testing.T) {
	set := productset.New(testDeps(memory.NewKVStore(), nil), productset.Wishlist, 0)

	res, err := set.Add(product(1))
	require.NoError(t, err)
	assert.Equal(t, productset.Added, res)

	res, err = set.Add(product(1))
	require.NoError(t, err)
	assert.Equal(t, productset.Unchanged, res)

	res, err = set.Remove("sku-1")
	require.NoError(t, err)
	assert.Equal(t, productset.Removed, res)

	res, err = set.Remove("sku-1")
	require.NoError(t, err)
	assert.Equal(t, productset.Unchanged, res)
}

func TestSet_RejectsInvalidProduct(t *testing.T) {
	set := productset.New(testDeps(memory.NewKVStore(), nil), productset.Wishlist, 0)

	_, err := set.Toggle(domain.Product{Name: "no id", Rating: 7})
	require.Error(t, err)
	assert.True(t, domain.IsValidation(err))
	assert.ErrorIs(t, err, domain.ErrProductIDRequired)
	assert.ErrorIs(t, err, domain.ErrProductRatingInvalid)
	assert.Zero(t, set.Len())
}

func TestSet_NormalizesImages(t *testing.T) {
	set := productset.New(testDeps(memory.NewKVStore(), nil), productset.Wishlist, 0)

	p := product(1)
	p.ID = "  sku-1  "
	_, err := set.Toggle(p)
	require.NoError(t, err)

	items := set.Items()
	require.Len(t, items, 1)
	assert.Equal(t, "sku-1", items[0].ID)
	assert.Equal(t, []string{p.ImageURL}, items[0].Images)

	items[0].Images[0] = "mutated"
	assert.NotEqual(t, "mutated", set.Items()[0].Images[0])
}

func TestSet_ClearPersistsAndPublishes(t *testing.T) {
	store := memory.NewKVStore()
	bus := events.NewBus(nil, nil)
	var got []events.Event
	bus.Subscribe(events.TopicWishlistChanged, func(e events.Event) { got = append(got, e) })

	set := productset.New(testDeps(store, bus), productset.Wishlist, 0)
	_, _ = set.Toggle(product(1))
	_, _ = set.Toggle(product(2))
	require.NoError(t, set.Clear())

	require.Len(t, got, 3)
	assert.Equal(t, []int{1, 2, 0}, []int{got[0].Count, got[1].Count, got[2].Count})
	assert.Equal(t, events.ActionCleared, got[2].Action)

	raw, err := store.Get("profile/p1/wishlist")
	require.NoError(t, err)
	assert.JSONEq(t, `{"schema_version":1,"data":[]}`, string(raw))
}

func TestSet_RejectionDoesNotPublish(t *testing.T) {
	bus := events.NewBus(nil, nil)
	published := 0
	bus.Subscribe(events.TopicComparisonChanged, func(events.Event) { published++ })

	set := productset.New(testDeps(memory.NewKVStore(), bus), productset.Comparison, 1)
	_, _ = set.Toggle(product(1))
	res, _ := set.Toggle(product(2))

	assert.Equal(t, productset.Rejected, res)
	assert.Equal(t, 1, published)
}

func TestSet_ReloadReproducesItems(t *testing.T) {
	store := memory.NewKVStore()
	set := productset.New(testDeps(store, nil), productset.Comparison, 4)

	p := product(3)
	original := decimal.RequireFromString("349.99")
	p.OriginalPrice = &original
	_, _ = set.Toggle(product(1))
	_, _ = set.Toggle(p)

	reloaded := productset.New(testDeps(store, nil), productset.Comparison, 4)
	want, got := set.Items(), reloaded.Items()
	require.Equal(t, itemIDs(want), itemIDs(got))
	for i := range want {
		assert.True(t, want[i].Price.Equal(got[i].Price))
		assert.Equal(t, want[i].Images, got[i].Images)
		assert.Equal(t, want[i].StockQuantity, got[i].StockQuantity)
	}
	require.NotNil(t, got[1].OriginalPrice)
	assert.True(t, got[1].Discount().Equal(decimal.RequireFromString("49.99")))
}

func TestSet_LoadTruncatesOverCapacityAndDuplicates(t *testing.T) {
	store := memory.NewKVStore()
	wide := productset.New(testDeps(store, nil), productset.Comparison, 0)
	for _, n := range []int{1, 2, 3, 4, 5, 6} {
		_, _ = wide.Toggle(product(n))
	}

	narrow := productset.New(testDeps(store, nil), productset.Comparison, 4)
	assert.Equal(t, []string{"sku-1", "sku-2", "sku-3", "sku-4"}, itemIDs(narrow.Items()))
}

func TestSet_StorageFailureKeepsMembership(t *testing.T) {
	store := memory.NewKVStore()
	set := productset.New(testDeps(store, nil), productset.Wishlist, 0)
	store.FailWrites(errors.New("quota exceeded"))

	res, err := set.Toggle(product(1))
	require.ErrorIs(t, err, domain.ErrStorageUnavailable)
	assert.Equal(t, productset.Added, res)
	assert.True(t, set.IsMember("sku-1"))
}
