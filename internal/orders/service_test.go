package orders

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/comal-pos/comal-pos/internal/loyalty"
	"github.com/comal-pos/comal-pos/internal/platform/db"
)

type fakeProduct struct {
	name   string
	price  decimal.Decimal
	active bool
}

// memoryRepo mimics the PostgreSQL repository, including the transactional
// close/delete semantics, so the service can be exercised without a database.
type memoryRepo struct {
	nextID     int64
	nextItemID int64
	orders     map[int64]Order
	items      map[int64][]Item
	products   map[int64]fakeProduct

	// side effects of Close/Delete
	saleMovements map[int64]map[int64]decimal.Decimal // orderID -> ingredient -> qty debited
	accruals      map[int64]int                       // orderID -> points

	// beforeAggregate simulates a write that wins the lock race: Close runs
	// it after the state check, right before aggregation.
	beforeAggregate func()
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{
		orders:        map[int64]Order{},
		items:         map[int64][]Item{},
		products:      map[int64]fakeProduct{},
		saleMovements: map[int64]map[int64]decimal.Decimal{},
		accruals:      map[int64]int{},
	}
}

func (m *memoryRepo) Get(_ context.Context, id int64) (Order, error) {
	o, ok := m.orders[id]
	if !ok {
		return Order{}, ErrOrderNotFound
	}
	return o, nil
}

func (m *memoryRepo) List(_ context.Context, status string) ([]Order, error) {
	out := []Order{}
	for _, o := range m.orders {
		if status == "" || o.Status == status {
			out = append(out, o)
		}
	}
	return out, nil
}

func (m *memoryRepo) Items(_ context.Context, orderID int64) ([]Item, error) {
	return m.items[orderID], nil
}

func (m *memoryRepo) ProductPrice(_ context.Context, productID int64) (string, decimal.Decimal, bool, error) {
	p, ok := m.products[productID]
	if !ok || !p.active {
		return "", decimal.Zero, false, nil
	}
	return p.name, p.price, true, nil
}

func (m *memoryRepo) Create(_ context.Context, o Order, items []Item) (int64, error) {
	m.nextID++
	o.ID = m.nextID
	m.orders[o.ID] = o
	for _, it := range items {
		m.nextItemID++
		it.ID = m.nextItemID
		it.OrderID = o.ID
		m.items[o.ID] = append(m.items[o.ID], it)
	}
	return o.ID, nil
}

func (m *memoryRepo) AppendItems(_ context.Context, orderID int64, items []Item) error {
	added := decimal.Zero
	for _, it := range items {
		merged := false
		for i, existing := range m.items[orderID] {
			if existing.ProductID == it.ProductID && equalPtr(existing.ProteinID, it.ProteinID) &&
				existing.ProteinLabel == it.ProteinLabel && existing.Without == it.Without && existing.Note == it.Note {
				existing.Qty += it.Qty
				existing.Subtotal = existing.Subtotal.Add(it.Subtotal)
				m.items[orderID][i] = existing
				merged = true
				break
			}
		}
		if !merged {
			m.nextItemID++
			it.ID = m.nextItemID
			it.OrderID = orderID
			m.items[orderID] = append(m.items[orderID], it)
		}
		added = added.Add(it.Subtotal)
	}
	o := m.orders[orderID]
	o.Total = o.Total.Add(added)
	o.Net = o.Net.Add(added)
	m.orders[orderID] = o
	return nil
}

func (m *memoryRepo) RemoveItem(_ context.Context, orderID, itemID int64) error {
	for i, it := range m.items[orderID] {
		if it.ID == itemID {
			m.items[orderID] = append(m.items[orderID][:i], m.items[orderID][i+1:]...)
			o := m.orders[orderID]
			o.Total = o.Total.Sub(it.Subtotal)
			o.Net = o.Net.Sub(it.Subtotal)
			m.orders[orderID] = o
			return nil
		}
	}
	return ErrItemNotFound
}

func (m *memoryRepo) Close(ctx context.Context, orderID int64, aggregate AggregateFunc) (CloseResult, error) {
	o, ok := m.orders[orderID]
	if !ok {
		return CloseResult{}, ErrOrderNotFound
	}
	if o.Status != StatusOpen {
		return CloseResult{}, ErrOrderClosed
	}
	if m.beforeAggregate != nil {
		m.beforeAggregate()
	}
	totals, err := aggregate(ctx, nil)
	if err != nil {
		return CloseResult{}, err
	}
	o.Status = StatusClosed
	m.orders[orderID] = o

	res := CloseResult{Order: o}
	debits := map[int64]decimal.Decimal{}
	for ingredientID, qty := range totals {
		if !qty.IsPositive() {
			continue
		}
		debits[ingredientID] = qty.Neg()
		res.MovementsAdded++
	}
	m.saleMovements[orderID] = debits

	if o.Phone != "" {
		m.accruals[orderID] = loyalty.EarnPerOrder
		res.PointsEarned = loyalty.EarnPerOrder
		for _, pts := range m.accruals {
			res.LoyaltyBalance += pts
		}
	}
	return res, nil
}

func (m *memoryRepo) Delete(_ context.Context, orderID int64) (int64, error) {
	if _, ok := m.orders[orderID]; !ok {
		return 0, ErrOrderNotFound
	}
	reversed := int64(len(m.saleMovements[orderID]))
	delete(m.saleMovements, orderID)
	delete(m.accruals, orderID)
	delete(m.items, orderID)
	delete(m.orders, orderID)
	return reversed, nil
}

func (m *memoryRepo) DeleteMany(_ context.Context, orderIDs []int64) (int, int64, error) {
	var deleted int
	var reversed int64
	for _, orderID := range orderIDs {
		if _, ok := m.orders[orderID]; !ok {
			continue
		}
		reversed += int64(len(m.saleMovements[orderID]))
		delete(m.saleMovements, orderID)
		delete(m.accruals, orderID)
		delete(m.items, orderID)
		delete(m.orders, orderID)
		deleted++
	}
	return deleted, reversed, nil
}

func (m *memoryRepo) OpenOrderIDs(_ context.Context) ([]int64, error) {
	ids := []int64{}
	for id, o := range m.orders {
		if o.Status == StatusOpen {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

// stockDelta sums every sale debit recorded for one ingredient across orders.
func (m *memoryRepo) stockDelta(ingredientID int64) decimal.Decimal {
	total := decimal.Zero
	for _, debits := range m.saleMovements {
		total = total.Add(debits[ingredientID])
	}
	return total
}

func equalPtr(a, b *int64) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

type fakeAggregator struct {
	totals map[int64]decimal.Decimal
	calls  int
}

func (f *fakeAggregator) Aggregate(context.Context, db.Querier, int64) (map[int64]decimal.Decimal, error) {
	f.calls++
	return f.totals, nil
}

// liveAggregator derives consumption from the repo's current items, the way
// the real engine reads pedido_items inside the close transaction. Each unit
// sold draws perUnit of ingredient 10.
type liveAggregator struct {
	repo    *memoryRepo
	perUnit decimal.Decimal
}

func (l *liveAggregator) Aggregate(_ context.Context, _ db.Querier, orderID int64) (map[int64]decimal.Decimal, error) {
	units := 0
	for _, it := range l.repo.items[orderID] {
		units += it.Qty
	}
	total := l.perUnit.Mul(decimal.NewFromInt(int64(units)))
	if total.IsZero() {
		return map[int64]decimal.Decimal{}, nil
	}
	return map[int64]decimal.Decimal{10: total}, nil
}

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func newTestService(repo *memoryRepo, agg *fakeAggregator) *Service {
	return NewService(repo, agg, nil, nil, nil)
}

func seedProducts(repo *memoryRepo) {
	repo.products[1] = fakeProduct{name: "Chilaquiles verdes", price: dec("95"), active: true}
	repo.products[2] = fakeProduct{name: "Café de olla", price: dec("35"), active: true}
	repo.products[3] = fakeProduct{name: "Descontinuado", price: dec("50"), active: false}
}

func TestCreatePricesAndSkipsInvalidLines(t *testing.T) {
	repo := newMemoryRepo()
	seedProducts(repo)
	svc := newTestService(repo, &fakeAggregator{})

	o, err := svc.Create(context.Background(), Draft{
		Origin: OriginDineIn,
		Waiter: "Lupita",
		Items: []ItemInput{
			{ProductID: 1, Qty: 2},
			{ProductID: 2, Qty: 1},
			{ProductID: 3, Qty: 4},  // inactive, skipped
			{ProductID: 99, Qty: 1}, // unknown, skipped
			{ProductID: 2, Qty: 0},  // no quantity, skipped
		},
	})
	require.NoError(t, err)
	require.Equal(t, StatusOpen, o.Status)
	require.True(t, o.Total.Equal(dec("225")), "total=%s", o.Total)
	require.NotEmpty(t, o.Code)
	require.Len(t, repo.items[o.ID], 2)
}

func TestCreateRejectsEmptyOrder(t *testing.T) {
	repo := newMemoryRepo()
	seedProducts(repo)
	svc := newTestService(repo, &fakeAggregator{})

	_, err := svc.Create(context.Background(), Draft{
		Origin: OriginTakeout,
		Items:  []ItemInput{{ProductID: 99, Qty: 1}},
	})
	require.ErrorIs(t, err, ErrNoItems)
}

func TestCreateNetIncludesDeliveryFee(t *testing.T) {
	repo := newMemoryRepo()
	seedProducts(repo)
	svc := newTestService(repo, &fakeAggregator{})

	o, err := svc.Create(context.Background(), Draft{
		Origin:      OriginDelivery,
		DeliveryFee: dec("25"),
		Items:       []ItemInput{{ProductID: 1, Qty: 1}},
	})
	require.NoError(t, err)
	require.True(t, o.Net.Equal(dec("120")), "net=%s", o.Net)
}

func TestAddItemsMergesIdenticalLines(t *testing.T) {
	repo := newMemoryRepo()
	seedProducts(repo)
	svc := newTestService(repo, &fakeAggregator{})

	o, err := svc.Create(context.Background(), Draft{
		Origin: OriginDineIn,
		Items:  []ItemInput{{ProductID: 1, Qty: 1}},
	})
	require.NoError(t, err)

	o, err = svc.AddItems(context.Background(), o.ID, []ItemInput{{ProductID: 1, Qty: 2}})
	require.NoError(t, err)
	require.Len(t, repo.items[o.ID], 1)
	require.Equal(t, 3, repo.items[o.ID][0].Qty)
	require.True(t, o.Total.Equal(dec("285")), "total=%s", o.Total)

	// a different note is a different line
	o, err = svc.AddItems(context.Background(), o.ID, []ItemInput{{ProductID: 1, Qty: 1, Note: "sin cebolla"}})
	require.NoError(t, err)
	require.Len(t, repo.items[o.ID], 2)
}

func TestRemoveItemAdjustsTotal(t *testing.T) {
	repo := newMemoryRepo()
	seedProducts(repo)
	svc := newTestService(repo, &fakeAggregator{})

	o, err := svc.Create(context.Background(), Draft{
		Origin: OriginDineIn,
		Items:  []ItemInput{{ProductID: 1, Qty: 1}, {ProductID: 2, Qty: 2}},
	})
	require.NoError(t, err)

	itemID := repo.items[o.ID][1].ID
	o, err = svc.RemoveItem(context.Background(), o.ID, itemID)
	require.NoError(t, err)
	require.True(t, o.Total.Equal(dec("95")), "total=%s", o.Total)

	_, err = svc.RemoveItem(context.Background(), o.ID, 999)
	require.ErrorIs(t, err, ErrItemNotFound)
}

func TestCloseWritesMovementsAndAccruesLoyalty(t *testing.T) {
	repo := newMemoryRepo()
	seedProducts(repo)
	agg := &fakeAggregator{totals: map[int64]decimal.Decimal{
		10: dec("300"),
		20: dec("100"),
	}}
	svc := newTestService(repo, agg)

	o, err := svc.Create(context.Background(), Draft{
		Origin: OriginTakeout,
		Phone:  "+52 55 1234 5678",
		Items:  []ItemInput{{ProductID: 1, Qty: 3}},
	})
	require.NoError(t, err)

	res, err := svc.Close(context.Background(), o.ID)
	require.NoError(t, err)
	require.Equal(t, StatusClosed, res.Order.Status)
	require.Equal(t, 2, res.MovementsAdded)
	require.Equal(t, loyalty.EarnPerOrder, res.PointsEarned)
	require.True(t, repo.stockDelta(10).Equal(dec("-300")))
	require.True(t, repo.stockDelta(20).Equal(dec("-100")))
}

func TestCloseWithoutPhoneSkipsLoyalty(t *testing.T) {
	repo := newMemoryRepo()
	seedProducts(repo)
	svc := newTestService(repo, &fakeAggregator{totals: map[int64]decimal.Decimal{10: dec("1")}})

	o, err := svc.Create(context.Background(), Draft{
		Origin: OriginDineIn,
		Items:  []ItemInput{{ProductID: 1, Qty: 1}},
	})
	require.NoError(t, err)

	res, err := svc.Close(context.Background(), o.ID)
	require.NoError(t, err)
	require.Zero(t, res.PointsEarned)
	require.Empty(t, repo.accruals)
}

func TestCloseTwiceIsRejectedWithoutNewMovements(t *testing.T) {
	repo := newMemoryRepo()
	seedProducts(repo)
	agg := &fakeAggregator{totals: map[int64]decimal.Decimal{10: dec("120")}}
	svc := newTestService(repo, agg)

	o, err := svc.Create(context.Background(), Draft{
		Origin: OriginDineIn,
		Items:  []ItemInput{{ProductID: 1, Qty: 1}},
	})
	require.NoError(t, err)

	_, err = svc.Close(context.Background(), o.ID)
	require.NoError(t, err)
	require.True(t, repo.stockDelta(10).Equal(dec("-120")))

	_, err = svc.Close(context.Background(), o.ID)
	require.ErrorIs(t, err, ErrOrderClosed)
	require.True(t, repo.stockDelta(10).Equal(dec("-120")), "re-close must not debit again")
}

func TestEditingClosedOrderIsRejected(t *testing.T) {
	repo := newMemoryRepo()
	seedProducts(repo)
	svc := newTestService(repo, &fakeAggregator{})

	o, err := svc.Create(context.Background(), Draft{
		Origin: OriginDineIn,
		Items:  []ItemInput{{ProductID: 1, Qty: 1}},
	})
	require.NoError(t, err)
	_, err = svc.Close(context.Background(), o.ID)
	require.NoError(t, err)

	_, err = svc.AddItems(context.Background(), o.ID, []ItemInput{{ProductID: 2, Qty: 1}})
	require.ErrorIs(t, err, ErrOrderClosed)
	_, err = svc.RemoveItem(context.Background(), o.ID, repo.items[o.ID][0].ID)
	require.ErrorIs(t, err, ErrOrderClosed)
}

func TestDeleteReversesStockAndLoyalty(t *testing.T) {
	repo := newMemoryRepo()
	seedProducts(repo)
	agg := &fakeAggregator{totals: map[int64]decimal.Decimal{10: dec("50"), 20: dec("7.5")}}
	svc := newTestService(repo, agg)

	o, err := svc.Create(context.Background(), Draft{
		Origin: OriginTakeout,
		Phone:  "5512345678",
		Items:  []ItemInput{{ProductID: 1, Qty: 1}},
	})
	require.NoError(t, err)
	_, err = svc.Close(context.Background(), o.ID)
	require.NoError(t, err)
	require.False(t, repo.stockDelta(10).IsZero())

	require.NoError(t, svc.Delete(context.Background(), o.ID))
	require.True(t, repo.stockDelta(10).IsZero(), "delete must restore stock")
	require.True(t, repo.stockDelta(20).IsZero())
	require.Empty(t, repo.accruals)

	_, err = repo.Get(context.Background(), o.ID)
	require.ErrorIs(t, err, ErrOrderNotFound)
}

func TestCloseCountsItemAppendedBeforeLock(t *testing.T) {
	repo := newMemoryRepo()
	seedProducts(repo)
	agg := &liveAggregator{repo: repo, perUnit: dec("2")}
	svc := NewService(repo, agg, nil, nil, nil)

	o, err := svc.Create(context.Background(), Draft{
		Origin: OriginDineIn,
		Items:  []ItemInput{{ProductID: 1, Qty: 1}},
	})
	require.NoError(t, err)

	// A waiter appends a line while the close is in flight; the close wins
	// the lock after the append, so aggregation must still see the new line.
	repo.beforeAggregate = func() {
		repo.nextItemID++
		repo.items[o.ID] = append(repo.items[o.ID], Item{
			ID:        repo.nextItemID,
			OrderID:   o.ID,
			ProductID: 2,
			Qty:       1,
			UnitPrice: dec("35"),
			Subtotal:  dec("35"),
		})
	}

	_, err = svc.Close(context.Background(), o.ID)
	require.NoError(t, err)
	require.True(t, repo.stockDelta(10).Equal(dec("-4")), "late line not debited: delta=%s", repo.stockDelta(10))
}

func TestBulkDeleteReversesEveryOrder(t *testing.T) {
	repo := newMemoryRepo()
	seedProducts(repo)
	agg := &fakeAggregator{totals: map[int64]decimal.Decimal{10: dec("50")}}
	svc := newTestService(repo, agg)

	first, err := svc.Create(context.Background(), Draft{
		Origin: OriginTakeout,
		Phone:  "5512345678",
		Items:  []ItemInput{{ProductID: 1, Qty: 1}},
	})
	require.NoError(t, err)
	second, err := svc.Create(context.Background(), Draft{
		Origin: OriginDineIn,
		Items:  []ItemInput{{ProductID: 2, Qty: 1}},
	})
	require.NoError(t, err)

	_, err = svc.Close(context.Background(), first.ID)
	require.NoError(t, err)
	_, err = svc.Close(context.Background(), second.ID)
	require.NoError(t, err)
	require.True(t, repo.stockDelta(10).Equal(dec("-100")))

	res, err := svc.BulkDelete(context.Background(), BulkDeleteInput{IDs: []int64{first.ID, second.ID, 999}})
	require.NoError(t, err)
	require.Equal(t, 2, res.OrdersDeleted)
	require.True(t, repo.stockDelta(10).IsZero(), "bulk delete must restore stock")
	require.Empty(t, repo.accruals)
}

func TestBulkDeleteAllOpenLeavesClosedOrders(t *testing.T) {
	repo := newMemoryRepo()
	seedProducts(repo)
	svc := newTestService(repo, &fakeAggregator{})

	open, err := svc.Create(context.Background(), Draft{
		Origin: OriginDineIn,
		Items:  []ItemInput{{ProductID: 1, Qty: 1}},
	})
	require.NoError(t, err)
	closed, err := svc.Create(context.Background(), Draft{
		Origin: OriginDineIn,
		Items:  []ItemInput{{ProductID: 2, Qty: 1}},
	})
	require.NoError(t, err)
	_, err = svc.Close(context.Background(), closed.ID)
	require.NoError(t, err)

	res, err := svc.BulkDelete(context.Background(), BulkDeleteInput{AllOpen: true})
	require.NoError(t, err)
	require.Equal(t, 1, res.OrdersDeleted)

	_, err = repo.Get(context.Background(), open.ID)
	require.ErrorIs(t, err, ErrOrderNotFound)
	o, err := repo.Get(context.Background(), closed.ID)
	require.NoError(t, err)
	require.Equal(t, StatusClosed, o.Status)
}

func TestBulkDeleteRejectsEmptySelection(t *testing.T) {
	repo := newMemoryRepo()
	svc := newTestService(repo, &fakeAggregator{})

	_, err := svc.BulkDelete(context.Background(), BulkDeleteInput{})
	require.ErrorIs(t, err, ErrNoSelection)

	// all_open with no open orders is also an empty selection
	_, err = svc.BulkDelete(context.Background(), BulkDeleteInput{AllOpen: true})
	require.ErrorIs(t, err, ErrNoSelection)
}
