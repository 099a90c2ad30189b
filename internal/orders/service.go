package orders

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/comal-pos/comal-pos/internal/loyalty"
	"github.com/comal-pos/comal-pos/internal/observability"
	"github.com/comal-pos/comal-pos/internal/platform/db"
	"github.com/comal-pos/comal-pos/internal/shared"
)

// AggregateFunc computes an order's consumption with the given querier, so
// the close transaction can run it under its own row lock.
type AggregateFunc func(ctx context.Context, q db.Querier) (map[int64]decimal.Decimal, error)

// RepositoryPort abstracts order persistence for the service.
type RepositoryPort interface {
	Get(ctx context.Context, id int64) (Order, error)
	List(ctx context.Context, status string) ([]Order, error)
	Items(ctx context.Context, orderID int64) ([]Item, error)
	ProductPrice(ctx context.Context, productID int64) (string, decimal.Decimal, bool, error)
	Create(ctx context.Context, o Order, items []Item) (int64, error)
	AppendItems(ctx context.Context, orderID int64, items []Item) error
	RemoveItem(ctx context.Context, orderID, itemID int64) error
	Close(ctx context.Context, orderID int64, aggregate AggregateFunc) (CloseResult, error)
	Delete(ctx context.Context, orderID int64) (int64, error)
	DeleteMany(ctx context.Context, orderIDs []int64) (int, int64, error)
	OpenOrderIDs(ctx context.Context) ([]int64, error)
}

// ConsumptionPort aggregates an order's stock draw inside the close
// transaction.
type ConsumptionPort interface {
	Aggregate(ctx context.Context, q db.Querier, orderID int64) (map[int64]decimal.Decimal, error)
}

// Service coordinates the order lifecycle.
type Service struct {
	repo        RepositoryPort
	consumption ConsumptionPort
	audit       shared.AuditPort
	metrics     *observability.Metrics
	logger      *slog.Logger
}

// NewService builds Service. audit and metrics may be nil.
func NewService(repo RepositoryPort, consumption ConsumptionPort, audit shared.AuditPort, metrics *observability.Metrics, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, consumption: consumption, audit: audit, metrics: metrics, logger: logger}
}

// priceItems resolves products to priced lines, skipping unknown products and
// non-positive quantities the same way the capture screen does.
func (s *Service) priceItems(ctx context.Context, inputs []ItemInput) ([]Item, decimal.Decimal, error) {
	items := make([]Item, 0, len(inputs))
	total := decimal.Zero
	for _, in := range inputs {
		if in.ProductID <= 0 || in.Qty <= 0 {
			continue
		}
		name, price, ok, err := s.repo.ProductPrice(ctx, in.ProductID)
		if err != nil {
			return nil, decimal.Zero, err
		}
		if !ok {
			continue
		}
		subtotal := price.Mul(decimal.NewFromInt(int64(in.Qty)))
		items = append(items, Item{
			ProductID:    in.ProductID,
			ProductName:  name,
			ProteinID:    in.ProteinID,
			ProteinLabel: strings.TrimSpace(in.ProteinLabel),
			Without:      strings.TrimSpace(in.Without),
			Note:         strings.TrimSpace(in.Note),
			Qty:          in.Qty,
			UnitPrice:    price,
			Subtotal:     subtotal,
		})
		total = total.Add(subtotal)
	}
	return items, total, nil
}

// Create opens a new order with its initial items.
func (s *Service) Create(ctx context.Context, draft Draft) (Order, error) {
	items, total, err := s.priceItems(ctx, draft.Items)
	if err != nil {
		return Order{}, err
	}
	if len(items) == 0 {
		return Order{}, ErrNoItems
	}
	if draft.DeliveryFee.IsNegative() {
		draft.DeliveryFee = decimal.Zero
	}
	date := draft.Date
	if date.IsZero() {
		date = time.Now()
	}
	o := Order{
		Code:        uuid.NewString(),
		Date:        date,
		Origin:      strings.TrimSpace(draft.Origin),
		Waiter:      strings.TrimSpace(draft.Waiter),
		Phone:       loyalty.NormalizePhone(draft.Phone),
		PayMethod:   strings.TrimSpace(draft.PayMethod),
		Total:       total,
		DeliveryFee: draft.DeliveryFee,
		Net:         total.Add(draft.DeliveryFee),
		Status:      StatusOpen,
	}
	id, err := s.repo.Create(ctx, o, items)
	if err != nil {
		return Order{}, err
	}
	s.logger.Info("order created", slog.Int64("order_id", id), slog.String("origin", o.Origin))
	return s.repo.Get(ctx, id)
}

func (s *Service) Get(ctx context.Context, id int64) (Order, []Item, error) {
	o, err := s.repo.Get(ctx, id)
	if err != nil {
		return Order{}, nil, err
	}
	items, err := s.repo.Items(ctx, id)
	return o, items, err
}

func (s *Service) List(ctx context.Context, status string) ([]Order, error) {
	return s.repo.List(ctx, status)
}

// AddItems appends lines to an open order.
func (s *Service) AddItems(ctx context.Context, orderID int64, inputs []ItemInput) (Order, error) {
	o, err := s.repo.Get(ctx, orderID)
	if err != nil {
		return Order{}, err
	}
	if o.Status != StatusOpen {
		return Order{}, ErrOrderClosed
	}
	items, _, err := s.priceItems(ctx, inputs)
	if err != nil {
		return Order{}, err
	}
	if len(items) == 0 {
		return Order{}, ErrNoItems
	}
	if err := s.repo.AppendItems(ctx, orderID, items); err != nil {
		return Order{}, err
	}
	return s.repo.Get(ctx, orderID)
}

// RemoveItem drops one line from an open order.
func (s *Service) RemoveItem(ctx context.Context, orderID, itemID int64) (Order, error) {
	o, err := s.repo.Get(ctx, orderID)
	if err != nil {
		return Order{}, err
	}
	if o.Status != StatusOpen {
		return Order{}, ErrOrderClosed
	}
	if err := s.repo.RemoveItem(ctx, orderID, itemID); err != nil {
		return Order{}, err
	}
	return s.repo.Get(ctx, orderID)
}

// Close flips an open order to cerrado and debits stock for everything it
// sold. The consumption aggregate runs inside the close transaction, after
// the row lock, so a line appended right before the close is still counted;
// the state flip, the movement rows and the loyalty accrual commit
// atomically. Re-closing returns ErrOrderClosed and writes nothing.
func (s *Service) Close(ctx context.Context, orderID int64) (CloseResult, error) {
	o, err := s.repo.Get(ctx, orderID)
	if err != nil {
		return CloseResult{}, err
	}
	if o.Status != StatusOpen {
		return CloseResult{}, ErrOrderClosed
	}

	aggregate := func(ctx context.Context, q db.Querier) (map[int64]decimal.Decimal, error) {
		totals, err := s.consumption.Aggregate(ctx, q, orderID)
		if err != nil {
			return nil, fmt.Errorf("orders: aggregate consumption for order %d: %w", orderID, err)
		}
		return totals, nil
	}
	res, err := s.repo.Close(ctx, orderID, aggregate)
	if err != nil {
		return CloseResult{}, err
	}

	s.metrics.OrderClosed()
	s.metrics.MovementsWritten(res.MovementsAdded)
	s.logger.Info("order closed",
		slog.Int64("order_id", orderID),
		slog.Int("movements", res.MovementsAdded),
		slog.Int("points_earned", res.PointsEarned))
	s.recordAudit(ctx, "order.close", orderID, map[string]any{
		"movements": res.MovementsAdded,
		"points":    res.PointsEarned,
	})
	return res, nil
}

// Delete removes an order and reverses its side effects: the salida_venta
// rows and the loyalty accrual disappear in the same transaction, so stock
// returns to its pre-close level.
func (s *Service) Delete(ctx context.Context, orderID int64) error {
	reversed, err := s.repo.Delete(ctx, orderID)
	if err != nil {
		return err
	}
	s.logger.Info("order deleted", slog.Int64("order_id", orderID), slog.Int64("movements_reversed", reversed))
	s.recordAudit(ctx, "order.delete", orderID, map[string]any{"movements_reversed": reversed})
	return nil
}

// BulkDeleteInput selects which orders a bulk deletion covers. AllOpen wins
// over explicit ids.
type BulkDeleteInput struct {
	IDs     []int64
	AllOpen bool
}

// BulkDeleteResult reports what a bulk deletion removed.
type BulkDeleteResult struct {
	OrdersDeleted     int
	MovementsReversed int64
}

// BulkDelete removes several orders in one transaction, with the same
// reversal guarantees as Delete. Selecting nothing is rejected rather than
// silently deleting zero rows.
func (s *Service) BulkDelete(ctx context.Context, in BulkDeleteInput) (BulkDeleteResult, error) {
	ids := in.IDs
	if in.AllOpen {
		var err error
		if ids, err = s.repo.OpenOrderIDs(ctx); err != nil {
			return BulkDeleteResult{}, err
		}
	}
	if len(ids) == 0 {
		return BulkDeleteResult{}, ErrNoSelection
	}

	deleted, reversed, err := s.repo.DeleteMany(ctx, ids)
	if err != nil {
		return BulkDeleteResult{}, err
	}
	s.logger.Info("orders bulk deleted",
		slog.Int("orders", deleted),
		slog.Int64("movements_reversed", reversed),
		slog.Bool("all_open", in.AllOpen))
	if s.audit != nil {
		err := s.audit.Record(ctx, shared.AuditLog{
			Action:   "order.bulk_delete",
			Entity:   "pedidos",
			EntityID: "bulk",
			Meta: map[string]any{
				"orders":             deleted,
				"movements_reversed": reversed,
				"all_open":           in.AllOpen,
			},
		})
		if err != nil {
			s.logger.Warn("audit record failed", slog.String("action", "order.bulk_delete"), slog.Any("error", err))
		}
	}
	return BulkDeleteResult{OrdersDeleted: deleted, MovementsReversed: reversed}, nil
}

func (s *Service) recordAudit(ctx context.Context, action string, orderID int64, meta map[string]any) {
	if s.audit == nil {
		return
	}
	err := s.audit.Record(ctx, shared.AuditLog{
		Action:   action,
		Entity:   "pedido",
		EntityID: strconv.FormatInt(orderID, 10),
		Meta:     meta,
	})
	if err != nil {
		s.logger.Warn("audit record failed", slog.String("action", action), slog.Any("error", err))
	}
}
