package database

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bot-ofertas/internal/models"
)

// store é o que os dois bancos oferecem; a mesma bateria roda nos dois
type store interface {
	UpsertAll(ctx context.Context, products []models.NormalizedProduct) (UpsertResult, error)
	FetchPending(ctx context.Context) ([]models.StoredProduct, error)
	MarkDelivered(ctx context.Context, id int64) error
}

var (
	_ store = (*SQLite)(nil)
	_ store = (*Postgres)(nil)
)

func dec(s string) decimal.NullDecimal {
	return decimal.NewNullDecimal(decimal.RequireFromString(s))
}

func product(name, oldPrice, newPrice, discount string) models.NormalizedProduct {
	p := models.NormalizedProduct{
		Name:       name,
		Link:       "https://produto.mercadolivre.com.br/" + name,
		ObservedAt: time.Date(2026, 10, 18, 10, 0, 0, 0, time.UTC),
	}
	if oldPrice != "" {
		p.OldPrice = dec(oldPrice)
	}
	if newPrice != "" {
		p.NewPrice = dec(newPrice)
	}
	if discount != "" {
		p.Discount = dec(discount)
	}
	return p
}

func pendingByName(t *testing.T, s store) map[string]models.StoredProduct {
	t.Helper()
	rows, err := s.FetchPending(context.Background())
	require.NoError(t, err)
	out := make(map[string]models.StoredProduct, len(rows))
	for _, r := range rows {
		out[r.Name] = r
	}
	return out
}

func assertDecimal(t *testing.T, want string, got decimal.NullDecimal) {
	t.Helper()
	if assert.True(t, got.Valid, "expected %s, got absent", want) {
		assert.True(t, decimal.RequireFromString(want).Equal(got.Decimal), "expected %s, got %s", want, got.Decimal)
	}
}

func runStoreSuite(t *testing.T, newStore func(t *testing.T) store) {
	t.Run("InsertStartsPending", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		res, err := s.UpsertAll(ctx, []models.NormalizedProduct{
			product("tv", "100.00", "80.00", "20.00"),
			product("cabo", "", "19.90", ""),
		})
		require.NoError(t, err)
		assert.Equal(t, UpsertResult{Inserted: 2}, res)

		pending, err := s.FetchPending(ctx)
		require.NoError(t, err)
		require.Len(t, pending, 2)
		assert.Equal(t, "tv", pending[0].Name, "pendentes saem em ordem de id")
		assert.True(t, pending[0].DeliveryPending)
		assertDecimal(t, "100", pending[0].OldPrice)
		assertDecimal(t, "80", pending[0].NewPrice)
		assertDecimal(t, "20", pending[0].Discount)
		assert.Equal(t, "https://produto.mercadolivre.com.br/tv", pending[0].Link)
		assert.False(t, pending[1].OldPrice.Valid)
		assert.False(t, pending[1].Discount.Valid)
	})

	t.Run("IdempotentRescrape", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		batch := []models.NormalizedProduct{product("tv", "100.00", "80.00", "20.00")}

		_, err := s.UpsertAll(ctx, batch)
		require.NoError(t, err)
		stored := pendingByName(t, s)["tv"]
		require.NoError(t, s.MarkDelivered(ctx, stored.ID))

		res, err := s.UpsertAll(ctx, batch)
		require.NoError(t, err)
		assert.Equal(t, UpsertResult{Unchanged: 1}, res)
		assert.Empty(t, pendingByName(t, s))
	})

	t.Run("RescrapeKeepsPendingTrue", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		batch := []models.NormalizedProduct{product("tv", "100.00", "80.00", "20.00")}

		_, err := s.UpsertAll(ctx, batch)
		require.NoError(t, err)
		_, err = s.UpsertAll(ctx, batch)
		require.NoError(t, err)

		assert.Contains(t, pendingByName(t, s), "tv")
	})

	t.Run("PriceChangeResetsPending", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		_, err := s.UpsertAll(ctx, []models.NormalizedProduct{product("tv", "100.00", "80.00", "20.00")})
		require.NoError(t, err)
		require.NoError(t, s.MarkDelivered(ctx, pendingByName(t, s)["tv"].ID))

		res, err := s.UpsertAll(ctx, []models.NormalizedProduct{product("tv", "100.00", "75.00", "25.00")})
		require.NoError(t, err)
		assert.Equal(t, UpsertResult{Changed: 1}, res)

		tv, ok := pendingByName(t, s)["tv"]
		require.True(t, ok)
		assertDecimal(t, "75", tv.NewPrice)
		assertDecimal(t, "25", tv.Discount)
	})

	t.Run("AbsentVersusPresentIsAChange", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		_, err := s.UpsertAll(ctx, []models.NormalizedProduct{product("fone", "", "50.00", "")})
		require.NoError(t, err)
		require.NoError(t, s.MarkDelivered(ctx, pendingByName(t, s)["fone"].ID))

		res, err := s.UpsertAll(ctx, []models.NormalizedProduct{product("fone", "60.00", "50.00", "16.67")})
		require.NoError(t, err)
		assert.Equal(t, 1, res.Changed)
		assert.Contains(t, pendingByName(t, s), "fone")
	})

	t.Run("NoFalsePositiveOnRounding", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		_, err := s.UpsertAll(ctx, []models.NormalizedProduct{product("tv", "100.00", "80.00", "20.00")})
		require.NoError(t, err)
		require.NoError(t, s.MarkDelivered(ctx, pendingByName(t, s)["tv"].ID))

		again := product("tv", "100.00", "80.004", "19.996")
		again.Link = "https://produto.mercadolivre.com.br/tv?novo=1"
		res, err := s.UpsertAll(ctx, []models.NormalizedProduct{again})
		require.NoError(t, err)
		assert.Equal(t, UpsertResult{Unchanged: 1}, res)
		assert.Empty(t, pendingByName(t, s))
	})

	t.Run("MarkDeliveredIsIdempotent", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		_, err := s.UpsertAll(ctx, []models.NormalizedProduct{
			product("a", "10", "5", "50"),
			product("b", "10", "6", "40"),
		})
		require.NoError(t, err)
		a := pendingByName(t, s)["a"]

		require.NoError(t, s.MarkDelivered(ctx, a.ID))
		require.NoError(t, s.MarkDelivered(ctx, a.ID))

		pending := pendingByName(t, s)
		assert.NotContains(t, pending, "a")
		assert.Contains(t, pending, "b", "somente a linha indicada muda")

		assert.ErrorIs(t, s.MarkDelivered(ctx, 999999), ErrNotFound)
	})

	t.Run("BatchIsAtomic", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		var seed, update []models.NormalizedProduct
		for i := 1; i <= 10; i++ {
			name := fmt.Sprintf("produto-%02d", i)
			seed = append(seed, product(name, "100.00", "90.00", "10.00"))
			if i == 5 {
				update = append(update, product(name, "100.00", "-1.00", ""))
				continue
			}
			update = append(update, product(name, "100.00", "50.00", "50.00"))
		}
		_, err := s.UpsertAll(ctx, seed)
		require.NoError(t, err)

		_, err = s.UpsertAll(ctx, update)
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrInvalidProduct)

		stored := pendingByName(t, s)
		require.Len(t, stored, 10)
		for _, p := range stored {
			assertDecimal(t, "90", p.NewPrice)
			assertDecimal(t, "10", p.Discount)
		}

		// a conexão continua utilizável depois do rollback
		_, err = s.UpsertAll(ctx, []models.NormalizedProduct{product("produto-11", "1", "1", "0")})
		assert.NoError(t, err)
	})

	t.Run("DuplicateNamesInBatchKeepOneRow", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		res, err := s.UpsertAll(ctx, []models.NormalizedProduct{
			product("tv", "100", "80", "20"),
			product("tv", "100", "70", "30"),
		})
		require.NoError(t, err)
		assert.Equal(t, UpsertResult{Inserted: 1, Changed: 1}, res)

		pending, err := s.FetchPending(ctx)
		require.NoError(t, err)
		require.Len(t, pending, 1)
		assertDecimal(t, "70", pending[0].NewPrice)
	})
}
