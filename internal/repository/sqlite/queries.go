package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mattn/go-sqlite3"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"

	"marketplace-service/internal/domain"
)

// timeLayout is fixed width so that ORDER BY on the text column is chronological.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse time %q: %w", s, err)
	}
	return t, nil
}

// queryer is satisfied by *sql.DB and *sql.Tx.
type queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type scanner interface {
	Scan(dest ...any) error
}

type reader struct {
	q queryer
}

type tx struct {
	reader
}

const itemColumns = `id, seller_id, title, price, stock, avg_rating, comments_count, category, delivery_days, version, created_at, updated_at`

func scanItem(row scanner) (*domain.Item, error) {
	var (
		item                 domain.Item
		createdAt, updatedAt string
	)
	if err := row.Scan(&item.ID, &item.SellerID, &item.Title, &item.Price, &item.Stock,
		&item.AvgRating, &item.CommentsCount, &item.Category, &item.DeliveryDays, &item.Version,
		&createdAt, &updatedAt); err != nil {
		return nil, err
	}
	var err error
	if item.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if item.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	return &item, nil
}

func (r reader) GetItem(ctx context.Context, id uuid.UUID) (*domain.Item, error) {
	row := r.q.QueryRowContext(ctx, `SELECT `+itemColumns+` FROM items WHERE id = ?`, id)
	item, err := scanItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.NewItemNotFound(id)
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite.GetItem: %w", err)
	}
	return item, nil
}

func (r reader) GetItems(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*domain.Item, error) {
	out := make(map[uuid.UUID]*domain.Item, len(ids))
	ids = lo.Uniq(ids)
	if len(ids) == 0 {
		return out, nil
	}

	rows, err := r.q.QueryContext(ctx,
		`SELECT `+itemColumns+` FROM items WHERE id IN (`+placeholders(len(ids))+`)`, anySlice(ids)...)
	if err != nil {
		return nil, fmt.Errorf("sqlite.GetItems: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlite.GetItems: %w", err)
		}
		out[item.ID] = item
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite.GetItems: %w", err)
	}
	return out, nil
}

const orderColumns = `id, buyer_id, seller_id, delivery_fee, total_price, status, created_at, updated_at`

func scanOrder(row scanner) (*domain.Order, error) {
	var (
		o                    domain.Order
		status               string
		createdAt, updatedAt string
	)
	if err := row.Scan(&o.ID, &o.BuyerID, &o.SellerID, &o.DeliveryFee, &o.TotalPrice, &status, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	var err error
	if o.Status, err = domain.ToOrderStatus(status); err != nil {
		return nil, err
	}
	if o.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if o.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	return &o, nil
}

func (r reader) GetOrder(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	row := r.q.QueryRowContext(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = ?`, id)
	o, err := scanOrder(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.NewOrderNotFound(id)
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite.GetOrder: %w", err)
	}

	if err := r.attachLines(ctx, []*domain.Order{o}); err != nil {
		return nil, fmt.Errorf("sqlite.GetOrder: %w", err)
	}
	return o, nil
}

func (r reader) ListOrdersByBuyer(ctx context.Context, buyerID uuid.UUID) ([]*domain.Order, error) {
	return r.listOrders(ctx, "buyer_id", buyerID)
}

func (r reader) ListOrdersBySeller(ctx context.Context, sellerID uuid.UUID) ([]*domain.Order, error) {
	return r.listOrders(ctx, "seller_id", sellerID)
}

// listOrders reads orders filtered on column, which is always a constant.
func (r reader) listOrders(ctx context.Context, column string, id uuid.UUID) ([]*domain.Order, error) {
	rows, err := r.q.QueryContext(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE `+column+` = ? ORDER BY created_at DESC, id DESC`, id)
	if err != nil {
		return nil, fmt.Errorf("sqlite.listOrders: %w", err)
	}

	orders := make([]*domain.Order, 0)
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("sqlite.listOrders: %w", err)
		}
		orders = append(orders, o)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite.listOrders: %w", err)
	}

	if err := r.attachLines(ctx, orders); err != nil {
		return nil, fmt.Errorf("sqlite.listOrders: %w", err)
	}
	return orders, nil
}

// attachLines loads the lines of all orders with one query.
func (r reader) attachLines(ctx context.Context, orders []*domain.Order) error {
	if len(orders) == 0 {
		return nil
	}
	byID := lo.KeyBy(orders, func(o *domain.Order) uuid.UUID { return o.ID })
	ids := lo.Keys(byID)

	rows, err := r.q.QueryContext(ctx,
		`SELECT order_id, item_id, quantity, unit_price FROM order_lines
		 WHERE order_id IN (`+placeholders(len(ids))+`) ORDER BY order_id, position`, anySlice(ids)...)
	if err != nil {
		return fmt.Errorf("query order_lines: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			orderID uuid.UUID
			line    domain.LineItem
		)
		if err := rows.Scan(&orderID, &line.ItemID, &line.Quantity, &line.UnitPrice); err != nil {
			return fmt.Errorf("scan order_line: %w", err)
		}
		o := byID[orderID]
		o.Items = append(o.Items, line)
	}
	return rows.Err()
}

func (r reader) GetDeliveryProfile(ctx context.Context, sellerID uuid.UUID) (*domain.SellerDeliveryProfile, error) {
	var (
		p                   domain.SellerDeliveryProfile
		longitude, latitude sql.NullFloat64
		cities, updatedAt   string
	)
	err := r.q.QueryRowContext(ctx,
		`SELECT seller_id, longitude, latitude, serviceable_cities, max_delivery_range_km, base_delivery_fee, price_per_km, updated_at
		 FROM delivery_profiles WHERE seller_id = ?`, sellerID).
		Scan(&p.SellerID, &longitude, &latitude, &cities, &p.MaxDeliveryRangeKm, &p.BaseDeliveryFee, &p.PricePerKm, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.NewProfileNotFound(sellerID)
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite.GetDeliveryProfile: %w", err)
	}

	if longitude.Valid && latitude.Valid {
		p.Location = &domain.GeoPoint{Longitude: longitude.Float64, Latitude: latitude.Float64}
	}
	if err := json.Unmarshal([]byte(cities), &p.ServiceableCities); err != nil {
		return nil, fmt.Errorf("sqlite.GetDeliveryProfile: decode cities: %w", err)
	}
	if p.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, fmt.Errorf("sqlite.GetDeliveryProfile: %w", err)
	}
	return &p, nil
}

func (r reader) GetAccount(ctx context.Context, userID uuid.UUID) (*domain.Account, error) {
	acc := domain.Account{UserID: userID}
	var updatedAt string
	err := r.q.QueryRowContext(ctx,
		`SELECT refund_count, updated_at FROM accounts WHERE user_id = ?`, userID).
		Scan(&acc.RefundCount, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return &acc, nil
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite.GetAccount: %w", err)
	}
	if acc.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, fmt.Errorf("sqlite.GetAccount: %w", err)
	}
	return &acc, nil
}

func (r reader) ListComments(ctx context.Context, itemID uuid.UUID) ([]*domain.Comment, error) {
	rows, err := r.q.QueryContext(ctx,
		`SELECT id, item_id, buyer_id, order_id, body, rating, created_at
		 FROM comments WHERE item_id = ? ORDER BY created_at, id`, itemID)
	if err != nil {
		return nil, fmt.Errorf("sqlite.ListComments: %w", err)
	}
	defer rows.Close()

	comments := make([]*domain.Comment, 0)
	for rows.Next() {
		var (
			c         domain.Comment
			orderID   uuid.NullUUID
			rating    sql.NullInt64
			createdAt string
		)
		if err := rows.Scan(&c.ID, &c.ItemID, &c.BuyerID, &orderID, &c.Text, &rating, &createdAt); err != nil {
			return nil, fmt.Errorf("sqlite.ListComments: %w", err)
		}
		if orderID.Valid {
			c.OrderID = &orderID.UUID
		}
		if rating.Valid {
			c.Rating = lo.ToPtr(int(rating.Int64))
		}
		if c.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, fmt.Errorf("sqlite.ListComments: %w", err)
		}
		comments = append(comments, &c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite.ListComments: %w", err)
	}
	return comments, nil
}

func (t *tx) InsertItem(ctx context.Context, item *domain.Item) error {
	_, err := t.q.ExecContext(ctx,
		`INSERT INTO items (`+itemColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		item.ID, item.SellerID, item.Title, item.Price, item.Stock, item.AvgRating, item.CommentsCount,
		item.Category, item.DeliveryDays, item.Version, formatTime(item.CreatedAt), formatTime(item.UpdatedAt))
	if err != nil {
		return fmt.Errorf("sqlite.InsertItem: %w", err)
	}
	return nil
}

func (t *tx) UpdateItemPrice(ctx context.Context, id uuid.UUID, price decimal.Decimal, at time.Time) error {
	res, err := t.q.ExecContext(ctx,
		`UPDATE items SET price = ?, version = version + 1, updated_at = ? WHERE id = ?`,
		price, formatTime(at), id)
	if err != nil {
		return fmt.Errorf("sqlite.UpdateItemPrice: %w", err)
	}
	return expectOneRow(res, domain.NewItemNotFound(id))
}

func (t *tx) DeleteItem(ctx context.Context, id uuid.UUID) error {
	res, err := t.q.ExecContext(ctx, `DELETE FROM items WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("sqlite.DeleteItem: %w", err)
	}
	return expectOneRow(res, domain.NewItemNotFound(id))
}

func (t *tx) CountOpenOrdersForItem(ctx context.Context, itemID uuid.UUID) (int, error) {
	var count int
	err := t.q.QueryRowContext(ctx,
		`SELECT COUNT(DISTINCT o.id) FROM orders o
		 JOIN order_lines l ON l.order_id = o.id
		 WHERE l.item_id = ? AND o.status IN ('pending', 'accepted', 'shipped')`, itemID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("sqlite.CountOpenOrdersForItem: %w", err)
	}
	return count, nil
}

func (t *tx) ReserveStock(ctx context.Context, itemID uuid.UUID, qty int, at time.Time) error {
	if qty < 1 {
		return domain.ErrInvalidQuantity
	}
	res, err := t.q.ExecContext(ctx,
		`UPDATE items SET stock = stock - ?, version = version + 1, updated_at = ?
		 WHERE id = ? AND stock >= ?`, qty, formatTime(at), itemID, qty)
	if err != nil {
		return fmt.Errorf("sqlite.ReserveStock: %w", err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return fmt.Errorf("sqlite.ReserveStock: %w", err)
	} else if n == 1 {
		return nil
	}

	var available int
	err = t.q.QueryRowContext(ctx, `SELECT stock FROM items WHERE id = ?`, itemID).Scan(&available)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.NewItemNotFound(itemID)
	}
	if err != nil {
		return fmt.Errorf("sqlite.ReserveStock: %w", err)
	}
	return &domain.InsufficientStockError{ItemID: itemID, Requested: qty, Available: available}
}

func (t *tx) RestoreStock(ctx context.Context, itemID uuid.UUID, qty int, at time.Time) error {
	if qty < 1 {
		return domain.ErrInvalidQuantity
	}
	res, err := t.q.ExecContext(ctx,
		`UPDATE items SET stock = stock + ?, version = version + 1, updated_at = ? WHERE id = ?`,
		qty, formatTime(at), itemID)
	if err != nil {
		return fmt.Errorf("sqlite.RestoreStock: %w", err)
	}
	return expectOneRow(res, domain.NewItemNotFound(itemID))
}

func (t *tx) ApplyRating(ctx context.Context, itemID uuid.UUID, rating int, at time.Time) (*domain.Item, error) {
	if !domain.ValidRating(rating) {
		return nil, domain.ErrInvalidRating
	}
	res, err := t.q.ExecContext(ctx,
		`UPDATE items SET
			avg_rating = (avg_rating * comments_count + ?) / (comments_count + 1),
			comments_count = comments_count + 1,
			version = version + 1,
			updated_at = ?
		 WHERE id = ?`, float64(rating), formatTime(at), itemID)
	if err != nil {
		return nil, fmt.Errorf("sqlite.ApplyRating: %w", err)
	}
	if err := expectOneRow(res, domain.NewItemNotFound(itemID)); err != nil {
		return nil, err
	}
	return t.GetItem(ctx, itemID)
}

func (t *tx) InsertOrder(ctx context.Context, o *domain.Order) error {
	_, err := t.q.ExecContext(ctx,
		`INSERT INTO orders (`+orderColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		o.ID, o.BuyerID, o.SellerID, o.DeliveryFee, o.TotalPrice, string(o.Status),
		formatTime(o.CreatedAt), formatTime(o.UpdatedAt))
	if err != nil {
		return fmt.Errorf("sqlite.InsertOrder: %w", err)
	}

	for i, line := range o.Items {
		if _, err := t.q.ExecContext(ctx,
			`INSERT INTO order_lines (order_id, position, item_id, quantity, unit_price) VALUES (?, ?, ?, ?, ?)`,
			o.ID, i, line.ItemID, line.Quantity, line.UnitPrice); err != nil {
			return fmt.Errorf("sqlite.InsertOrder: line %d: %w", i, err)
		}
	}
	return nil
}

func (t *tx) UpdateOrderStatus(ctx context.Context, id uuid.UUID, from, to domain.OrderStatus, at time.Time) error {
	res, err := t.q.ExecContext(ctx,
		`UPDATE orders SET status = ?, updated_at = ? WHERE id = ? AND status = ?`,
		string(to), formatTime(at), id, string(from))
	if err != nil {
		return fmt.Errorf("sqlite.UpdateOrderStatus: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite.UpdateOrderStatus: %w", err)
	}
	if n == 1 {
		return nil
	}

	// tell a missing order apart from a stale status
	var exists bool
	if err := t.q.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM orders WHERE id = ?)`, id).Scan(&exists); err != nil {
		return fmt.Errorf("sqlite.UpdateOrderStatus: %w", err)
	}
	if !exists {
		return domain.NewOrderNotFound(id)
	}
	return fmt.Errorf("sqlite.UpdateOrderStatus: %w", domain.ErrConflict)
}

func (t *tx) IncrementRefundCount(ctx context.Context, userID uuid.UUID, at time.Time) error {
	_, err := t.q.ExecContext(ctx,
		`INSERT INTO accounts (user_id, refund_count, updated_at) VALUES (?, 1, ?)
		 ON CONFLICT(user_id) DO UPDATE SET refund_count = refund_count + 1, updated_at = excluded.updated_at`,
		userID, formatTime(at))
	if err != nil {
		return fmt.Errorf("sqlite.IncrementRefundCount: %w", err)
	}
	return nil
}

func (t *tx) InsertComment(ctx context.Context, c *domain.Comment) error {
	var (
		orderID uuid.NullUUID
		rating  sql.NullInt64
	)
	if c.OrderID != nil {
		orderID = uuid.NullUUID{UUID: *c.OrderID, Valid: true}
	}
	if c.Rating != nil {
		rating = sql.NullInt64{Int64: int64(*c.Rating), Valid: true}
	}

	_, err := t.q.ExecContext(ctx,
		`INSERT INTO comments (id, item_id, buyer_id, order_id, body, rating, created_at) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		c.ID, c.ItemID, c.BuyerID, orderID, c.Text, rating, formatTime(c.CreatedAt))
	if err != nil {
		var sqliteErr sqlite3.Error
		if errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintForeignKey {
			return domain.NewItemNotFound(c.ItemID)
		}
		return fmt.Errorf("sqlite.InsertComment: %w", err)
	}
	return nil
}

func (t *tx) UpsertDeliveryProfile(ctx context.Context, p *domain.SellerDeliveryProfile) error {
	var longitude, latitude sql.NullFloat64
	if p.Location != nil {
		longitude = sql.NullFloat64{Float64: p.Location.Longitude, Valid: true}
		latitude = sql.NullFloat64{Float64: p.Location.Latitude, Valid: true}
	}
	cities, err := json.Marshal(lo.Ternary(p.ServiceableCities == nil, []string{}, p.ServiceableCities))
	if err != nil {
		return fmt.Errorf("sqlite.UpsertDeliveryProfile: encode cities: %w", err)
	}

	_, err = t.q.ExecContext(ctx,
		`INSERT INTO delivery_profiles (seller_id, longitude, latitude, serviceable_cities, max_delivery_range_km, base_delivery_fee, price_per_km, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(seller_id) DO UPDATE SET
			longitude = excluded.longitude,
			latitude = excluded.latitude,
			serviceable_cities = excluded.serviceable_cities,
			max_delivery_range_km = excluded.max_delivery_range_km,
			base_delivery_fee = excluded.base_delivery_fee,
			price_per_km = excluded.price_per_km,
			updated_at = excluded.updated_at`,
		p.SellerID, longitude, latitude, string(cities), p.MaxDeliveryRangeKm, p.BaseDeliveryFee, p.PricePerKm, formatTime(p.UpdatedAt))
	if err != nil {
		return fmt.Errorf("sqlite.UpsertDeliveryProfile: %w", err)
	}
	return nil
}

func expectOneRow(res sql.Result, notFound error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return notFound
	}
	return nil
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

func anySlice(ids []uuid.UUID) []any {
	return lo.Map(ids, func(id uuid.UUID, _ int) any { return id })
}
