package cart_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/airrecover/storefront/internal/cart"
	"github.com/airrecover/storefront/internal/domain"
)

func TestRender(t *testing.T) {
	view := cart.Render(domain.DefaultCartState())

	assert.Equal(t, cart.View{
		Quantity:  "1",
		LineTotal: "CHF 5.95",
		Subtotal:  "CHF 5.95",
		Shipping:  "CHF 3.95",
		Total:     "CHF 9.90",
	}, view)
}

func TestDrawer_IncrementDecrementScenario(t *testing.T) {
	ctx := context.Background()
	manager := newManager(newSpyStore())
	drawer := cart.NewDrawer(ctx, manager)

	view := drawer.View()
	require.Equal(t, "1", view.Quantity)
	require.Equal(t, "CHF 3.95", view.Shipping)
	require.Equal(t, "CHF 9.90", view.Total)

	view = drawer.Increase(ctx)
	require.Equal(t, "2", view.Quantity)
	require.Equal(t, "CHF 0.00", view.Shipping)
	require.Equal(t, "CHF 11.90", view.Total)

	drawer.Decrease(ctx)
	view = drawer.Decrease(ctx)
	require.Equal(t, "1", view.Quantity)
	require.Equal(t, "CHF 3.95", view.Shipping)
	require.Equal(t, "CHF 9.90", view.Total)

	// Отображение и хранилище совпадают после каждой мутации.
	persisted := cart.Render(manager.Read(ctx))
	require.Equal(t, view, persisted)
}

func TestDrawer_InitDoesNotWrite(t *testing.T) {
	store := newSpyStore()
	drawer := cart.NewDrawer(context.Background(), newManager(store))

	require.Equal(t, "1", drawer.View().Quantity)
	require.Zero(t, store.sets)
}

func TestDrawer_InitRecomputesStoredTotals(t *testing.T) {
	ctx := context.Background()
	store := newSpyStore()
	require.NoError(t, store.CartStore.Set(ctx, []byte(`{"qty":3,"subtotal":1,"shipping":1,"total":2}`)))

	drawer := cart.NewDrawer(ctx, newManager(store))

	assert.Equal(t, cart.View{
		Quantity:  "3",
		LineTotal: "CHF 17.85",
		Subtotal:  "CHF 17.85",
		Shipping:  "CHF 0.00",
		Total:     "CHF 17.85",
	}, drawer.View())
	require.Zero(t, store.sets)
}

func TestDrawer_UsesDisplayedQuantity(t *testing.T) {
	ctx := context.Background()
	store := newSpyStore()
	manager := newManager(store)
	manager.SetQuantity(ctx, 3)

	drawer := cart.NewDrawer(ctx, manager)

	// Кто-то другой (вторая вкладка) меняет хранилище; виджет об этом не знает.
	manager.SetQuantity(ctx, 10)

	view := drawer.Increase(ctx)
	require.Equal(t, "4", view.Quantity, "increment must be based on the displayed quantity")
	require.Equal(t, 4, manager.Read(ctx).Quantity, "last writer wins")
}

func TestDrawer_UnknownActionIgnored(t *testing.T) {
	ctx := context.Background()
	store := newSpyStore()
	drawer := cart.NewDrawer(ctx, newManager(store))

	view := drawer.Click(ctx, cart.Action("explode"))
	require.Equal(t, "1", view.Quantity)
	require.Zero(t, store.sets)
}

func TestDrawer_OpenClose(t *testing.T) {
	store := newSpyStore()
	drawer := cart.NewDrawer(context.Background(), newManager(store))

	require.False(t, drawer.IsOpen())
	drawer.Open()
	require.True(t, drawer.IsOpen())
	drawer.Close()
	require.False(t, drawer.IsOpen())
	require.Zero(t, store.sets, "visibility is not persisted")
}

func TestSummary_SnapshotAtInit(t *testing.T) {
	ctx := context.Background()
	manager := newManager(newSpyStore())
	drawer := cart.NewDrawer(ctx, manager)
	drawer.Increase(ctx)

	summary := cart.NewSummary(ctx, manager)
	require.Equal(t, "2", summary.View().Quantity)
	require.Equal(t, "CHF 11.90", summary.View().Total)

	// Без шины событий итоги не обновляются при изменении корзины.
	drawer.Increase(ctx)
	require.Equal(t, "2", summary.View().Quantity)
	require.Equal(t, "3", cart.NewSummary(ctx, manager).View().Quantity)
}

func TestConfirmation_ClearsOnce(t *testing.T) {
	ctx := context.Background()
	store := newSpyStore()
	manager := newManager(store)
	manager.SetQuantity(ctx, 5)

	page := cart.NewConfirmation(manager)
	page.Show(ctx)
	page.Show(ctx)

	require.Equal(t, 1, store.clears)
	require.True(t, manager.Read(ctx).Equal(domain.DefaultCartState()))
}
