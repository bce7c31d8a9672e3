package store

import (
	"context"
	"errors"
	"io/fs"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"golang.org/x/sync/errgroup"

	"storefront/model"
)

type MemoryStoreTestSuite struct {
	suite.Suite
	store *MemoryStore
	ctx   context.Context
	clock time.Time
}

func (s *MemoryStoreTestSuite) SetupTest() {
	s.ctx = context.Background()
	s.clock = time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	s.store = NewMemoryStore([]model.Product{
		{ID: 1, Name: "phone", Price: decimal.NewFromInt(999)},
		{ID: 2, Name: "case", Price: decimal.NewFromInt(20), Category: "Accessories", Brand: "Acme"},
		{ID: 3, Name: "charger", Price: decimal.NewFromInt(30), Category: "accessories", Brand: "Volt"},
	})
	s.store.now = func() time.Time { return s.clock }
}

func TestMemoryStoreTestSuite(t *testing.T) {
	suite.Run(t, new(MemoryStoreTestSuite))
}

func (s *MemoryStoreTestSuite) TestAddItemMergesDuplicateProduct() {
	first, err := s.store.AddItem(s.ctx, "A", 1, 2)
	s.Require().NoError(err)
	second, err := s.store.AddItem(s.ctx, "A", 1, 3)
	s.Require().NoError(err)

	s.Equal(first.ID, second.ID)
	s.Equal(5, second.Quantity)

	lines, err := s.store.ListItems(s.ctx, "A")
	s.Require().NoError(err)
	s.Require().Len(lines, 1)
	s.Equal(5, lines[0].Quantity)
	s.Equal("phone", lines[0].Product.Name)
}

func (s *MemoryStoreTestSuite) TestAddItemValidation() {
	_, err := s.store.AddItem(s.ctx, "A", 9999, 1)
	s.ErrorIs(err, ErrProductNotFound)

	_, err = s.store.AddItem(s.ctx, "A", 1, 0)
	s.ErrorIs(err, ErrInvalidQuantity)

	lines, err := s.store.ListItems(s.ctx, "A")
	s.Require().NoError(err)
	s.Empty(lines)
}

func (s *MemoryStoreTestSuite) TestSessionsAreIsolated() {
	_, err := s.store.AddItem(s.ctx, "A", 1, 1)
	s.Require().NoError(err)
	_, err = s.store.AddItem(s.ctx, "B", 2, 1)
	s.Require().NoError(err)

	a, err := s.store.ListItems(s.ctx, "A")
	s.Require().NoError(err)
	s.Require().Len(a, 1)
	s.Equal(int64(1), a[0].ProductID)

	_, found, err := s.store.FindBySessionAndProduct(s.ctx, "B", 1)
	s.Require().NoError(err)
	s.False(found)
}

func (s *MemoryStoreTestSuite) TestSetQuantity() {
	it, err := s.store.AddItem(s.ctx, "A", 1, 2)
	s.Require().NoError(err)

	updated, removed, err := s.store.SetQuantity(s.ctx, it.ID, 7)
	s.Require().NoError(err)
	s.False(removed)
	s.Equal(it.ID, updated.ID)
	s.Equal(7, updated.Quantity)

	prior, removed, err := s.store.SetQuantity(s.ctx, it.ID, 0)
	s.Require().NoError(err)
	s.True(removed)
	s.Equal(7, prior.Quantity)
	s.Equal("A", prior.SessionID)

	_, found, err := s.store.GetItem(s.ctx, it.ID)
	s.Require().NoError(err)
	s.False(found)

	_, _, err = s.store.SetQuantity(s.ctx, it.ID, 1)
	s.ErrorIs(err, ErrLineItemNotFound)
}

func (s *MemoryStoreTestSuite) TestSetQuantityNegativeDeletes() {
	it, err := s.store.AddItem(s.ctx, "A", 1, 2)
	s.Require().NoError(err)
	_, removed, err := s.store.SetQuantity(s.ctx, it.ID, -1)
	s.Require().NoError(err)
	s.True(removed)
}

func (s *MemoryStoreTestSuite) TestRemoveAndClear() {
	it, err := s.store.AddItem(s.ctx, "A", 1, 1)
	s.Require().NoError(err)
	_, err = s.store.AddItem(s.ctx, "A", 2, 1)
	s.Require().NoError(err)

	ok, err := s.store.RemoveItem(s.ctx, it.ID)
	s.Require().NoError(err)
	s.True(ok)
	ok, err = s.store.RemoveItem(s.ctx, it.ID)
	s.Require().NoError(err)
	s.False(ok)

	s.Require().NoError(s.store.ClearSession(s.ctx, "A"))
	s.Require().NoError(s.store.ClearSession(s.ctx, "never-seen"))
	lines, err := s.store.ListItems(s.ctx, "A")
	s.Require().NoError(err)
	s.Empty(lines)
}

func (s *MemoryStoreTestSuite) TestIDsAreNotReused() {
	a, err := s.store.AddItem(s.ctx, "A", 1, 1)
	s.Require().NoError(err)
	_, err = s.store.RemoveItem(s.ctx, a.ID)
	s.Require().NoError(err)
	b, err := s.store.AddItem(s.ctx, "A", 1, 1)
	s.Require().NoError(err)
	s.NotEqual(a.ID, b.ID)
}

func (s *MemoryStoreTestSuite) TestListItemsReportsMissingProduct() {
	_, err := s.store.AddItem(s.ctx, "A", 2, 1)
	s.Require().NoError(err)
	s.store.DeleteProduct(2)

	_, err = s.store.ListItems(s.ctx, "A")
	s.ErrorIs(err, ErrProductMissing)
	s.Contains(err.Error(), "product 2")
}

func (s *MemoryStoreTestSuite) TestListItemsUsesLivePrice() {
	_, err := s.store.AddItem(s.ctx, "A", 2, 1)
	s.Require().NoError(err)
	pct := decimal.NewFromInt(50)
	s.store.PutProduct(model.Product{ID: 2, Name: "case", Price: decimal.NewFromInt(40), Discount: &pct})

	lines, err := s.store.ListItems(s.ctx, "A")
	s.Require().NoError(err)
	s.True(lines[0].Product.Price.Equal(decimal.NewFromInt(40)))
	s.True(lines[0].Product.DiscountPercent().Equal(pct))
}

func (s *MemoryStoreTestSuite) TestListProductsFilter() {
	all, err := s.store.ListProducts(s.ctx, ProductFilter{})
	s.Require().NoError(err)
	s.Len(all, 3)
	s.Equal(int64(1), all[0].ID)

	acc, err := s.store.ListProducts(s.ctx, ProductFilter{Category: "ACCESSORIES"})
	s.Require().NoError(err)
	s.Len(acc, 2)

	volt, err := s.store.ListProducts(s.ctx, ProductFilter{Category: "accessories", Brand: "volt"})
	s.Require().NoError(err)
	s.Require().Len(volt, 1)
	s.Equal(int64(3), volt[0].ID)

	_, err = s.store.GetProduct(s.ctx, 42)
	s.ErrorIs(err, ErrProductNotFound)
}

func (s *MemoryStoreTestSuite) TestSweepIdle() {
	_, err := s.store.AddItem(s.ctx, "stale", 1, 1)
	s.Require().NoError(err)

	s.clock = s.clock.Add(2 * time.Hour)
	_, err = s.store.AddItem(s.ctx, "fresh", 1, 1)
	s.Require().NoError(err)

	n, err := s.store.SweepIdle(s.ctx, s.clock.Add(-time.Hour))
	s.Require().NoError(err)
	s.Equal(1, n)

	stale, _ := s.store.ListItems(s.ctx, "stale")
	fresh, _ := s.store.ListItems(s.ctx, "fresh")
	s.Empty(stale)
	s.Len(fresh, 1)
}

func (s *MemoryStoreTestSuite) TestSweepIdleSkipsEmptiedCarts() {
	it, err := s.store.AddItem(s.ctx, "A", 1, 1)
	s.Require().NoError(err)
	ok, err := s.store.RemoveItem(s.ctx, it.ID)
	s.Require().NoError(err)
	s.True(ok)

	s.clock = s.clock.Add(2 * time.Hour)
	n, err := s.store.SweepIdle(s.ctx, s.clock.Add(-time.Hour))
	s.Require().NoError(err)
	s.Zero(n)
}

func (s *MemoryStoreTestSuite) TestUsers() {
	u, err := s.store.CreateUser(s.ctx, model.User{Email: "Ann@example.com", Name: "Ann", PasswordHash: "x"})
	s.Require().NoError(err)
	s.NotZero(u.ID)

	_, err = s.store.CreateUser(s.ctx, model.User{Email: "ann@EXAMPLE.com"})
	s.ErrorIs(err, ErrEmailTaken)

	got, err := s.store.GetUserByEmail(s.ctx, "ann@example.com")
	s.Require().NoError(err)
	s.Equal(u.ID, got.ID)

	got.Name = "Annie"
	s.Require().NoError(s.store.UpdateUser(s.ctx, got))
	byID, err := s.store.GetUserByID(s.ctx, u.ID)
	s.Require().NoError(err)
	s.Equal("Annie", byID.Name)

	s.ErrorIs(s.store.UpdateUser(s.ctx, model.User{ID: 99}), ErrUserNotFound)
}

func (s *MemoryStoreTestSuite) TestOrders() {
	_, err := s.store.AddItem(s.ctx, "A", 1, 2)
	s.Require().NoError(err)

	o, err := s.store.Checkout(s.ctx, "A", func(lines []model.CartLine) (model.Order, error) {
		s.Require().Len(lines, 1)
		return model.Order{Email: "a@b.c",
			Items: []model.OrderItem{{ProductID: lines[0].ProductID, Quantity: lines[0].Quantity}}}, nil
	})
	s.Require().NoError(err)
	s.NotZero(o.ID)
	s.Equal("A", o.SessionID)
	s.Equal(s.clock, o.CreatedAt)

	left, err := s.store.ListItems(s.ctx, "A")
	s.Require().NoError(err)
	s.Empty(left)

	got, err := s.store.GetOrder(s.ctx, o.ID)
	s.Require().NoError(err)
	s.Len(got.Items, 1)

	_, err = s.store.GetOrder(s.ctx, 1234)
	s.ErrorIs(err, ErrOrderNotFound)
}

func (s *MemoryStoreTestSuite) TestCheckoutBuildErrorKeepsCart() {
	_, err := s.store.AddItem(s.ctx, "A", 1, 1)
	s.Require().NoError(err)

	errRefused := errors.New("refused")
	_, err = s.store.Checkout(s.ctx, "A", func([]model.CartLine) (model.Order, error) {
		return model.Order{}, errRefused
	})
	s.ErrorIs(err, errRefused)

	left, _ := s.store.ListItems(s.ctx, "A")
	s.Len(left, 1)
}

// A line added while the order is being built is not part of the order and
// must survive the checkout.
func TestMemoryStoreCheckoutKeepsConcurrentAdd(t *testing.T) {
	st := NewMemoryStore([]model.Product{
		{ID: 1, Price: decimal.NewFromInt(10)},
		{ID: 3, Price: decimal.NewFromInt(30)},
	})
	ctx := context.Background()
	_, err := st.AddItem(ctx, "A", 1, 1)
	require.NoError(t, err)

	started := make(chan struct{})
	added := make(chan error, 1)
	o, err := st.Checkout(ctx, "A", func(lines []model.CartLine) (model.Order, error) {
		go func() {
			close(started)
			_, err := st.AddItem(ctx, "A", 3, 4)
			added <- err
		}()
		<-started
		o := model.Order{}
		for _, l := range lines {
			o.Items = append(o.Items, model.OrderItem{ProductID: l.ProductID, Quantity: l.Quantity})
		}
		return o, nil
	})
	require.NoError(t, err)
	require.NoError(t, <-added)

	require.Len(t, o.Items, 1)
	assert.Equal(t, int64(1), o.Items[0].ProductID)

	lines, err := st.ListItems(ctx, "A")
	require.NoError(t, err)
	require.Len(t, lines, 1)
	assert.Equal(t, int64(3), lines[0].ProductID)
	assert.Equal(t, 4, lines[0].Quantity)
}

// Concurrent adds of the same product must land on a single row whose
// quantity is the sum of every delta.
func TestMemoryStoreConcurrentAdds(t *testing.T) {
	st := NewMemoryStore([]model.Product{{ID: 1, Price: decimal.NewFromInt(1)}})
	ctx := context.Background()

	const workers = 200
	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < workers; i++ {
		g.Go(func() error {
			_, err := st.AddItem(gctx, "A", 1, 2)
			return err
		})
	}
	require.NoError(t, g.Wait())

	lines, err := st.ListItems(ctx, "A")
	require.NoError(t, err)
	require.Len(t, lines, 1)
	assert.Equal(t, workers*2, lines[0].Quantity)
}

// Absolute quantity updates are last-processed-wins; whichever write lands
// last decides the stored quantity.
func TestMemoryStoreSetQuantityLastWriteWins(t *testing.T) {
	st := NewMemoryStore([]model.Product{{ID: 1, Price: decimal.NewFromInt(1)}})
	ctx := context.Background()
	it, err := st.AddItem(ctx, "A", 1, 1)
	require.NoError(t, err)

	_, _, err = st.SetQuantity(ctx, it.ID, 4)
	require.NoError(t, err)
	_, _, err = st.SetQuantity(ctx, it.ID, 2)
	require.NoError(t, err)

	got, _, err := st.GetItem(ctx, it.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, got.Quantity)
}

func TestParseCatalog(t *testing.T) {
	products, err := LoadCatalog("")
	require.NoError(t, err)
	require.NotEmpty(t, products)
	assert.Equal(t, int64(1), products[0].ID)
	assert.True(t, products[0].Price.Equal(decimal.NewFromInt(999)))
	assert.Nil(t, products[0].Discount)

	_, err = ParseCatalog([]byte("products:\n  - {id: 1, name: a, price: \"1\"}\n  - {id: 1, name: b, price: \"2\"}\n"))
	assert.Error(t, err)

	_, err = ParseCatalog([]byte("products:\n  - {id: 1, name: a, price: \"1\", discount: \"140\"}\n"))
	assert.Error(t, err)

	_, err = ParseCatalog([]byte("products:\n  - {id: 1, name: a, price: \"abc\"}\n"))
	assert.Error(t, err)

	_, err = LoadCatalog("/does/not/exist.yaml")
	assert.ErrorIs(t, err, fs.ErrNotExist)
	assert.ErrorContains(t, err, "read catalog /does/not/exist.yaml")
}
