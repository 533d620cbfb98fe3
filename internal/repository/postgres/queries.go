package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"

	"marketplace-service/internal/domain"
)

// queryer is satisfied by *pgxpool.Pool and pgx.Tx.
type queryer interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type reader struct {
	q queryer
}

type tx struct {
	reader
}

const itemColumns = `id, seller_id, title, price, stock, avg_rating, comments_count, category, delivery_days, version, created_at, updated_at`

func scanItem(row pgx.Row) (*domain.Item, error) {
	var item domain.Item
	err := row.Scan(&item.ID, &item.SellerID, &item.Title, &item.Price, &item.Stock,
		&item.AvgRating, &item.CommentsCount, &item.Category, &item.DeliveryDays, &item.Version,
		&item.CreatedAt, &item.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (r reader) GetItem(ctx context.Context, id uuid.UUID) (*domain.Item, error) {
	item, err := scanItem(r.q.QueryRow(ctx, `SELECT `+itemColumns+` FROM items WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.NewItemNotFound(id)
	}
	if err != nil {
		return nil, fmt.Errorf("q.GetItem: %w", err)
	}
	return item, nil
}

func (r reader) GetItems(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*domain.Item, error) {
	ids = lo.Uniq(ids)
	if len(ids) == 0 {
		return map[uuid.UUID]*domain.Item{}, nil
	}

	rows, err := r.q.Query(ctx, `SELECT `+itemColumns+` FROM items WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, fmt.Errorf("q.GetItems: %w", err)
	}
	items, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (*domain.Item, error) {
		return scanItem(row)
	})
	if err != nil {
		return nil, fmt.Errorf("pgx.CollectRows: %w", err)
	}
	return lo.KeyBy(items, func(it *domain.Item) uuid.UUID { return it.ID }), nil
}

const orderColumns = `id, buyer_id, seller_id, delivery_fee, total_price, status, created_at, updated_at`

func scanOrder(row pgx.Row) (*domain.Order, error) {
	var (
		o      domain.Order
		status string
	)
	if err := row.Scan(&o.ID, &o.BuyerID, &o.SellerID, &o.DeliveryFee, &o.TotalPrice, &status, &o.CreatedAt, &o.UpdatedAt); err != nil {
		return nil, err
	}
	var err error
	if o.Status, err = domain.ToOrderStatus(status); err != nil {
		return nil, err
	}
	return &o, nil
}

func (r reader) GetOrder(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	o, err := scanOrder(r.q.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.NewOrderNotFound(id)
	}
	if err != nil {
		return nil, fmt.Errorf("q.GetOrder: %w", err)
	}
	if err := r.attachLines(ctx, []*domain.Order{o}); err != nil {
		return nil, fmt.Errorf("r.attachLines: %w", err)
	}
	return o, nil
}

func (r reader) ListOrdersByBuyer(ctx context.Context, buyerID uuid.UUID) ([]*domain.Order, error) {
	return r.listOrders(ctx, `SELECT `+orderColumns+` FROM orders WHERE buyer_id = $1 ORDER BY created_at DESC, id DESC`, buyerID)
}

func (r reader) ListOrdersBySeller(ctx context.Context, sellerID uuid.UUID) ([]*domain.Order, error) {
	return r.listOrders(ctx, `SELECT `+orderColumns+` FROM orders WHERE seller_id = $1 ORDER BY created_at DESC, id DESC`, sellerID)
}

func (r reader) listOrders(ctx context.Context, query string, id uuid.UUID) ([]*domain.Order, error) {
	rows, err := r.q.Query(ctx, query, id)
	if err != nil {
		return nil, fmt.Errorf("q.ListOrders: %w", err)
	}
	orders, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (*domain.Order, error) {
		return scanOrder(row)
	})
	if err != nil {
		return nil, fmt.Errorf("pgx.CollectRows: %w", err)
	}
	if err := r.attachLines(ctx, orders); err != nil {
		return nil, fmt.Errorf("r.attachLines: %w", err)
	}
	return orders, nil
}

func (r reader) attachLines(ctx context.Context, orders []*domain.Order) error {
	if len(orders) == 0 {
		return nil
	}
	byID := lo.KeyBy(orders, func(o *domain.Order) uuid.UUID { return o.ID })

	rows, err := r.q.Query(ctx,
		`SELECT order_id, item_id, quantity, unit_price FROM order_lines
		 WHERE order_id = ANY($1) ORDER BY order_id, position`, lo.Keys(byID))
	if err != nil {
		return fmt.Errorf("q.GetOrderLines: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			orderID uuid.UUID
			line    domain.LineItem
		)
		if err := rows.Scan(&orderID, &line.ItemID, &line.Quantity, &line.UnitPrice); err != nil {
			return fmt.Errorf("rows.Scan: %w", err)
		}
		o := byID[orderID]
		o.Items = append(o.Items, line)
	}
	return rows.Err()
}

func (r reader) GetDeliveryProfile(ctx context.Context, sellerID uuid.UUID) (*domain.SellerDeliveryProfile, error) {
	var (
		p                   domain.SellerDeliveryProfile
		longitude, latitude *float64
	)
	err := r.q.QueryRow(ctx,
		`SELECT seller_id, longitude, latitude, serviceable_cities, max_delivery_range_km, base_delivery_fee, price_per_km, updated_at
		 FROM delivery_profiles WHERE seller_id = $1`, sellerID).
		Scan(&p.SellerID, &longitude, &latitude, &p.ServiceableCities, &p.MaxDeliveryRangeKm, &p.BaseDeliveryFee, &p.PricePerKm, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.NewProfileNotFound(sellerID)
	}
	if err != nil {
		return nil, fmt.Errorf("q.GetDeliveryProfile: %w", err)
	}
	if longitude != nil && latitude != nil {
		p.Location = &domain.GeoPoint{Longitude: *longitude, Latitude: *latitude}
	}
	return &p, nil
}

func (r reader) GetAccount(ctx context.Context, userID uuid.UUID) (*domain.Account, error) {
	acc := domain.Account{UserID: userID}
	err := r.q.QueryRow(ctx, `SELECT refund_count, updated_at FROM accounts WHERE user_id = $1`, userID).
		Scan(&acc.RefundCount, &acc.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return &acc, nil
	}
	if err != nil {
		return nil, fmt.Errorf("q.GetAccount: %w", err)
	}
	return &acc, nil
}

func (r reader) ListComments(ctx context.Context, itemID uuid.UUID) ([]*domain.Comment, error) {
	rows, err := r.q.Query(ctx,
		`SELECT id, item_id, buyer_id, order_id, body, rating, created_at
		 FROM comments WHERE item_id = $1 ORDER BY created_at, id`, itemID)
	if err != nil {
		return nil, fmt.Errorf("q.ListComments: %w", err)
	}
	comments, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (*domain.Comment, error) {
		var c domain.Comment
		err := row.Scan(&c.ID, &c.ItemID, &c.BuyerID, &c.OrderID, &c.Text, &c.Rating, &c.CreatedAt)
		return &c, err
	})
	if err != nil {
		return nil, fmt.Errorf("pgx.CollectRows: %w", err)
	}
	return comments, nil
}

func (t *tx) InsertItem(ctx context.Context, item *domain.Item) error {
	_, err := t.q.Exec(ctx,
		`INSERT INTO items (`+itemColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		item.ID, item.SellerID, item.Title, item.Price, item.Stock, item.AvgRating, item.CommentsCount,
		item.Category, item.DeliveryDays, item.Version, item.CreatedAt, item.UpdatedAt)
	if isPgError(err, pgUniqueViolation) {
		return domain.ErrConflict
	}
	if err != nil {
		return fmt.Errorf("q.InsertItem: %w", err)
	}
	return nil
}

func (t *tx) UpdateItemPrice(ctx context.Context, id uuid.UUID, price decimal.Decimal, at time.Time) error {
	tag, err := t.q.Exec(ctx,
		`UPDATE items SET price = $1, version = version + 1, updated_at = $2 WHERE id = $3`, price, at, id)
	if err != nil {
		return fmt.Errorf("q.UpdateItemPrice: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.NewItemNotFound(id)
	}
	return nil
}

func (t *tx) DeleteItem(ctx context.Context, id uuid.UUID) error {
	tag, err := t.q.Exec(ctx, `DELETE FROM items WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("q.DeleteItem: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.NewItemNotFound(id)
	}
	return nil
}

func (t *tx) CountOpenOrdersForItem(ctx context.Context, itemID uuid.UUID) (int, error) {
	var count int
	err := t.q.QueryRow(ctx,
		`SELECT COUNT(DISTINCT o.id) FROM orders o
		 JOIN order_lines l ON l.order_id = o.id
		 WHERE l.item_id = $1 AND o.status = ANY($2)`,
		itemID, lo.Map(domain.OpenOrderStatuses(), func(s domain.OrderStatus, _ int) string { return string(s) })).
		Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("q.CountOpenOrdersForItem: %w", err)
	}
	return count, nil
}

func (t *tx) ReserveStock(ctx context.Context, itemID uuid.UUID, qty int, at time.Time) error {
	if qty < 1 {
		return domain.ErrInvalidQuantity
	}
	tag, err := t.q.Exec(ctx,
		`UPDATE items SET stock = stock - $1, version = version + 1, updated_at = $2
		 WHERE id = $3 AND stock >= $1`, qty, at, itemID)
	if err != nil {
		return fmt.Errorf("q.ReserveStock: %w", err)
	}
	if tag.RowsAffected() == 1 {
		return nil
	}

	var available int
	err = t.q.QueryRow(ctx, `SELECT stock FROM items WHERE id = $1`, itemID).Scan(&available)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.NewItemNotFound(itemID)
	}
	if err != nil {
		return fmt.Errorf("q.GetStock: %w", err)
	}
	return &domain.InsufficientStockError{ItemID: itemID, Requested: qty, Available: available}
}

func (t *tx) RestoreStock(ctx context.Context, itemID uuid.UUID, qty int, at time.Time) error {
	if qty < 1 {
		return domain.ErrInvalidQuantity
	}
	tag, err := t.q.Exec(ctx,
		`UPDATE items SET stock = stock + $1, version = version + 1, updated_at = $2 WHERE id = $3`, qty, at, itemID)
	if err != nil {
		return fmt.Errorf("q.RestoreStock: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.NewItemNotFound(itemID)
	}
	return nil
}

func (t *tx) ApplyRating(ctx context.Context, itemID uuid.UUID, rating int, at time.Time) (*domain.Item, error) {
	if !domain.ValidRating(rating) {
		return nil, domain.ErrInvalidRating
	}
	item, err := scanItem(t.q.QueryRow(ctx,
		`UPDATE items SET
			avg_rating = (avg_rating * comments_count + $1) / (comments_count + 1),
			comments_count = comments_count + 1,
			version = version + 1,
			updated_at = $2
		 WHERE id = $3
		 RETURNING `+itemColumns, float64(rating), at, itemID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.NewItemNotFound(itemID)
	}
	if err != nil {
		return nil, fmt.Errorf("q.ApplyRating: %w", err)
	}
	return item, nil
}

func (t *tx) InsertOrder(ctx context.Context, o *domain.Order) error {
	_, err := t.q.Exec(ctx,
		`INSERT INTO orders (`+orderColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		o.ID, o.BuyerID, o.SellerID, o.DeliveryFee, o.TotalPrice, string(o.Status), o.CreatedAt, o.UpdatedAt)
	if isPgError(err, pgUniqueViolation) {
		return domain.ErrConflict
	}
	if err != nil {
		return fmt.Errorf("q.InsertOrder: %w", err)
	}

	batch := &pgx.Batch{}
	for i, line := range o.Items {
		batch.Queue(`INSERT INTO order_lines (order_id, position, item_id, quantity, unit_price) VALUES ($1, $2, $3, $4, $5)`,
			o.ID, i, line.ItemID, line.Quantity, line.UnitPrice)
	}
	if err := t.sendBatch(ctx, batch); err != nil {
		return fmt.Errorf("q.InsertOrderLines: %w", err)
	}
	return nil
}

func (t *tx) sendBatch(ctx context.Context, batch *pgx.Batch) error {
	pgTx, ok := t.q.(pgx.Tx)
	if !ok {
		return fmt.Errorf("batch outside transaction: %T", t.q)
	}
	return pgTx.SendBatch(ctx, batch).Close()
}

func (t *tx) UpdateOrderStatus(ctx context.Context, id uuid.UUID, from, to domain.OrderStatus, at time.Time) error {
	tag, err := t.q.Exec(ctx,
		`UPDATE orders SET status = $1, updated_at = $2 WHERE id = $3 AND status = $4`,
		string(to), at, id, string(from))
	if err != nil {
		return fmt.Errorf("q.UpdateOrderStatus: %w", err)
	}
	if tag.RowsAffected() == 1 {
		return nil
	}

	var exists bool
	if err := t.q.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM orders WHERE id = $1)`, id).Scan(&exists); err != nil {
		return fmt.Errorf("q.OrderExists: %w", err)
	}
	if !exists {
		return domain.NewOrderNotFound(id)
	}
	return fmt.Errorf("q.UpdateOrderStatus: %w", domain.ErrConflict)
}

func (t *tx) IncrementRefundCount(ctx context.Context, userID uuid.UUID, at time.Time) error {
	_, err := t.q.Exec(ctx,
		`INSERT INTO accounts (user_id, refund_count, updated_at) VALUES ($1, 1, $2)
		 ON CONFLICT (user_id) DO UPDATE SET refund_count = accounts.refund_count + 1, updated_at = EXCLUDED.updated_at`,
		userID, at)
	if err != nil {
		return fmt.Errorf("q.IncrementRefundCount: %w", err)
	}
	return nil
}

func (t *tx) InsertComment(ctx context.Context, c *domain.Comment) error {
	_, err := t.q.Exec(ctx,
		`INSERT INTO comments (id, item_id, buyer_id, order_id, body, rating, created_at) VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		c.ID, c.ItemID, c.BuyerID, c.OrderID, c.Text, c.Rating, c.CreatedAt)
	if isPgError(err, pgForeignKeyViolation) {
		return domain.NewItemNotFound(c.ItemID)
	}
	if err != nil {
		return fmt.Errorf("q.InsertComment: %w", err)
	}
	return nil
}

func (t *tx) UpsertDeliveryProfile(ctx context.Context, p *domain.SellerDeliveryProfile) error {
	var longitude, latitude *float64
	if p.Location != nil {
		longitude, latitude = &p.Location.Longitude, &p.Location.Latitude
	}
	cities := lo.Ternary(p.ServiceableCities == nil, []string{}, p.ServiceableCities)

	_, err := t.q.Exec(ctx,
		`INSERT INTO delivery_profiles (seller_id, longitude, latitude, serviceable_cities, max_delivery_range_km, base_delivery_fee, price_per_km, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 ON CONFLICT (seller_id) DO UPDATE SET
			longitude = EXCLUDED.longitude,
			latitude = EXCLUDED.latitude,
			serviceable_cities = EXCLUDED.serviceable_cities,
			max_delivery_range_km = EXCLUDED.max_delivery_range_km,
			base_delivery_fee = EXCLUDED.base_delivery_fee,
			price_per_km = EXCLUDED.price_per_km,
			updated_at = EXCLUDED.updated_at`,
		p.SellerID, longitude, latitude, cities, p.MaxDeliveryRangeKm, p.BaseDeliveryFee, p.PricePerKm, p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("q.UpsertDeliveryProfile: %w", err)
	}
	return nil
}

func isPgError(err error, code string) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == code
}
