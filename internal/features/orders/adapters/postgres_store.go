package adapters

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"silkshop/internal/features/orders/domain"
	"silkshop/internal/features/orders/ports"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// PostgresStore implements ports.OrderStore on PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a new PostgresStore.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// WithinTx runs fn inside a single transaction. The transaction commits when
// fn returns nil and rolls back on error or panic, so stock decrements and
// the order insert are all-or-nothing.
func (s *PostgresStore) WithinTx(ctx context.Context, fn func(tx ports.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(&pgTx{tx: tx}); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			return fmt.Errorf("rollback failed: %v (original error: %w)", rbErr, err)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// pgTx implements ports.Tx on an open *sql.Tx.
type pgTx struct {
	tx *sql.Tx
}

// UserExists reports whether the user row exists.
func (t *pgTx) UserExists(ctx context.Context, userID uuid.UUID) (bool, error) {
	var exists bool
	err := t.tx.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM users WHERE id = $1)`, userID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check user existence: %w", err)
	}
	return exists, nil
}

// Reserve locks the product row, validates the requested quantity against the
// current stock and decrements it. The row lock serializes concurrent orders
// for the same product, so the stock check can never act on a stale read.
func (t *pgTx) Reserve(ctx context.Context, productID uuid.UUID, quantity int) (*ports.ProductSnapshot, error) {
	snap := ports.ProductSnapshot{ID: productID}
	var stock int

	err := t.tx.QueryRowContext(ctx,
		`SELECT name, price, stock FROM products WHERE id = $1 FOR UPDATE`, productID,
	).Scan(&snap.Name, &snap.Price, &stock)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrProductNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to lock product row: %w", err)
	}

	if stock < quantity {
		return nil, &domain.InsufficientStockError{
			ProductName: snap.Name,
			Requested:   quantity,
			Available:   stock,
		}
	}

	_, err = t.tx.ExecContext(ctx,
		`UPDATE products SET stock = stock - $2, updated_at = NOW() WHERE id = $1`,
		productID, quantity,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to decrement stock: %w", err)
	}

	return &snap, nil
}

// InsertOrder persists the order header and its line items.
func (t *pgTx) InsertOrder(ctx context.Context, order *domain.Order) error {
	_, err := t.tx.ExecContext(ctx,
		`INSERT INTO orders
		   (id, user_id, order_date, shipping_address, customer_phone,
		    payment_method, payment_transaction_ref, total_amount, status,
		    created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		order.ID, order.UserID, order.OrderDate, order.ShippingAddress,
		order.CustomerPhone, order.PaymentMethod, order.PaymentTransactionRef,
		order.TotalAmount, order.Status, order.CreatedAt, order.UpdatedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return fmt.Errorf("transaction reference collision for order %s: %w", order.ID, err)
		}
		return fmt.Errorf("failed to insert order: %w", err)
	}

	for pos, item := range order.Items {
		_, err := t.tx.ExecContext(ctx,
			`INSERT INTO order_items (id, order_id, position, product_id, product_name, quantity, price)
			 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			item.ID, order.ID, pos, item.ProductID, item.ProductName, item.Quantity, item.Price,
		)
		if err != nil {
			return fmt.Errorf("failed to insert order item: %w", err)
		}
	}

	return nil
}

const orderColumns = `id, user_id, order_date, shipping_address, customer_phone,
	payment_method, payment_transaction_ref, total_amount, status, created_at, updated_at`

// FindByID loads an order with its items.
func (s *PostgresStore) FindByID(ctx context.Context, orderID uuid.UUID) (*domain.Order, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE id = $1`, orderID)
	return s.scanOrderWithItems(ctx, row)
}

// FindByTransactionRef loads the order correlated with a provider transaction reference.
func (s *PostgresStore) FindByTransactionRef(ctx context.Context, ref int64) (*domain.Order, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE payment_transaction_ref = $1`, ref)
	return s.scanOrderWithItems(ctx, row)
}

// ListByUser returns the user's orders, newest first.
func (s *PostgresStore) ListByUser(ctx context.Context, userID uuid.UUID) ([]domain.Order, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE user_id = $1 ORDER BY order_date DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query orders: %w", err)
	}
	defer rows.Close()
	return s.collectOrders(ctx, rows)
}

// ListAll returns every order, newest first.
func (s *PostgresStore) ListAll(ctx context.Context) ([]domain.Order, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+orderColumns+` FROM orders ORDER BY order_date DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query orders: %w", err)
	}
	defer rows.Close()
	return s.collectOrders(ctx, rows)
}

// TransitionStatus persists a status change with a compare-and-set on the
// current status, so two writers racing over the same order cannot both win.
func (s *PostgresStore) TransitionStatus(ctx context.Context, orderID uuid.UUID, from, to domain.Status) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE orders SET status = $2, updated_at = NOW() WHERE id = $1 AND status = $3`,
		orderID, to, from,
	)
	if err != nil {
		return false, fmt.Errorf("failed to update order status: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read affected rows: %w", err)
	}
	return affected == 1, nil
}

// scanOrder reads one order header from a row scanner.
func scanOrder(scan func(dest ...any) error) (*domain.Order, error) {
	var o domain.Order
	err := scan(
		&o.ID, &o.UserID, &o.OrderDate, &o.ShippingAddress, &o.CustomerPhone,
		&o.PaymentMethod, &o.PaymentTransactionRef, &o.TotalAmount, &o.Status,
		&o.CreatedAt, &o.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrOrderNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan order: %w", err)
	}
	return &o, nil
}

func (s *PostgresStore) scanOrderWithItems(ctx context.Context, row *sql.Row) (*domain.Order, error) {
	order, err := scanOrder(row.Scan)
	if err != nil {
		return nil, err
	}
	items, err := s.loadItems(ctx, []uuid.UUID{order.ID})
	if err != nil {
		return nil, err
	}
	order.Items = items[order.ID]
	return order, nil
}

func (s *PostgresStore) collectOrders(ctx context.Context, rows *sql.Rows) ([]domain.Order, error) {
	var orders []domain.Order
	var ids []uuid.UUID
	for rows.Next() {
		order, err := scanOrder(rows.Scan)
		if err != nil {
			return nil, err
		}
		orders = append(orders, *order)
		ids = append(ids, order.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate orders: %w", err)
	}
	if len(orders) == 0 {
		return orders, nil
	}

	items, err := s.loadItems(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range orders {
		orders[i].Items = items[orders[i].ID]
	}
	return orders, nil
}

// loadItems fetches line items for a batch of orders in one round trip.
func (s *PostgresStore) loadItems(ctx context.Context, orderIDs []uuid.UUID) (map[uuid.UUID][]domain.OrderItem, error) {
	ids := make([]string, len(orderIDs))
	for i, id := range orderIDs {
		ids[i] = id.String()
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT order_id, id, product_id, product_name, quantity, price
		   FROM order_items
		  WHERE order_id = ANY($1)
		  ORDER BY order_id, position`,
		pq.Array(ids),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query order items: %w", err)
	}
	defer rows.Close()

	items := make(map[uuid.UUID][]domain.OrderItem, len(orderIDs))
	for rows.Next() {
		var orderID uuid.UUID
		var item domain.OrderItem
		if err := rows.Scan(&orderID, &item.ID, &item.ProductID, &item.ProductName, &item.Quantity, &item.Price); err != nil {
			return nil, fmt.Errorf("failed to scan order item: %w", err)
		}
		items[orderID] = append(items[orderID], item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate order items: %w", err)
	}
	return items, nil
}
