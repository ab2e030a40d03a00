package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/rl1809/order-service/internal/core/apperr"
	"github.com/rl1809/order-service/internal/core/domain"
	"github.com/rl1809/order-service/internal/port"
)

var _ port.OrderRepository = (*SQLAdapter)(nil)

// SQLAdapter persists orders in a relational database. The orders row
// carries a version that every write bumps with a compare-and-set, so two
// writers racing on a stale copy cannot both commit.
type SQLAdapter struct {
	db         *sql.DB
	dialect    dialect
	currencies domain.CurrencySet
}

func NewSQLAdapter(db *sql.DB, driver string, currencies domain.CurrencySet) (*SQLAdapter, error) {
	d, err := lookupDialect(driver)
	if err != nil {
		return nil, err
	}
	return &SQLAdapter{db: db, dialect: d, currencies: currencies}, nil
}

// Save inserts a new order or updates an existing one. An order that was
// loaded earlier but has since been deleted is inserted again.
func (s *SQLAdapter) Save(ctx context.Context, order *domain.Order) error {
	return s.write(ctx, "save_order", order, true)
}

// Update writes an order that must already exist.
func (s *SQLAdapter) Update(ctx context.Context, order *domain.Order) error {
	return s.write(ctx, "update_order", order, false)
}

func (s *SQLAdapter) write(ctx context.Context, op string, order *domain.Order, upsert bool) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return apperr.Infrastructure(op, fmt.Errorf("begin tx: %w", err))
	}
	defer tx.Rollback()

	next, err := s.writeHeader(ctx, tx, op, order, upsert)
	if err != nil {
		return err
	}
	if err := s.reconcileItems(ctx, tx, order); err != nil {
		return apperr.Infrastructure(op, err)
	}

	if err := tx.Commit(); err != nil {
		return apperr.Infrastructure(op, fmt.Errorf("commit: %w", err))
	}
	order.SetVersion(next)
	return nil
}

// writeHeader returns the version the order carries after the write.
func (s *SQLAdapter) writeHeader(ctx context.Context, tx *sql.Tx, op string, order *domain.Order, upsert bool) (int64, error) {
	id := order.ID().String()
	current := order.Version()

	if current == 0 && upsert {
		return s.insertHeader(ctx, tx, op, id, 1)
	}

	if current > 0 {
		result, err := tx.ExecContext(ctx, s.dialect.rebind(`
			UPDATE orders
			SET version = version + 1, updated_at = CURRENT_TIMESTAMP
			WHERE id = ? AND version = ?`),
			id, current,
		)
		if err != nil {
			return 0, apperr.Infrastructure(op, fmt.Errorf("update order: %w", err))
		}
		rows, err := result.RowsAffected()
		if err != nil {
			return 0, apperr.Infrastructure(op, fmt.Errorf("rows affected: %w", err))
		}
		if rows == 1 {
			return current + 1, nil
		}
	}

	// Either the versioned update missed or a fresh aggregate is being
	// updated; the stored header decides between not-found and conflict.
	var stored int64
	err := tx.QueryRowContext(ctx, s.dialect.rebind(`SELECT version FROM orders WHERE id = ?`), id).Scan(&stored)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		if !upsert {
			return 0, apperr.NotFoundf(op, "order %s not found", id)
		}
		return s.insertHeader(ctx, tx, op, id, current+1)
	case err != nil:
		return 0, apperr.Infrastructure(op, fmt.Errorf("query order version: %w", err))
	default:
		return 0, apperr.Conflictf(op, "order %s was modified concurrently (have version %d, stored %d)", id, current, stored)
	}
}

func (s *SQLAdapter) insertHeader(ctx context.Context, tx *sql.Tx, op, id string, version int64) (int64, error) {
	_, err := tx.ExecContext(ctx, s.dialect.rebind(`INSERT INTO orders (id, version) VALUES (?, ?)`), id, version)
	if isUniqueViolation(err) {
		return 0, apperr.Conflictf(op, "order %s was created concurrently", id)
	}
	if err != nil {
		return 0, apperr.Infrastructure(op, fmt.Errorf("insert order: %w", err))
	}
	return version, nil
}

// reconcileItems makes the stored lines match the order: current lines are
// upserted and lines no longer on the order are removed.
func (s *SQLAdapter) reconcileItems(ctx context.Context, tx *sql.Tx, order *domain.Order) error {
	id := order.ID().String()

	stale, err := s.storedProductIDs(ctx, tx, id)
	if err != nil {
		return err
	}

	for i, item := range order.Items() {
		price := item.UnitPrice()
		_, err := tx.ExecContext(ctx, s.dialect.rebind(s.dialect.upsertItem),
			id, item.ProductID().String(), item.Quantity().Int(),
			price.Amount().StringFixed(2), price.Currency().Code(), i,
		)
		if err != nil {
			return fmt.Errorf("upsert item %s: %w", item.ProductID(), err)
		}
		delete(stale, item.ProductID().String())
	}

	for productID := range stale {
		if _, err := tx.ExecContext(ctx, s.dialect.rebind(`
			DELETE FROM order_items WHERE order_id = ? AND product_id = ?`),
			id, productID,
		); err != nil {
			return fmt.Errorf("delete item %s: %w", productID, err)
		}
	}
	return nil
}

func (s *SQLAdapter) storedProductIDs(ctx context.Context, tx *sql.Tx, orderID string) (map[string]struct{}, error) {
	rows, err := tx.QueryContext(ctx, s.dialect.rebind(`SELECT product_id FROM order_items WHERE order_id = ?`), orderID)
	if err != nil {
		return nil, fmt.Errorf("query items: %w", err)
	}
	defer rows.Close()

	ids := make(map[string]struct{})
	for rows.Next() {
		var pid string
		if err := rows.Scan(&pid); err != nil {
			return nil, fmt.Errorf("scan item: %w", err)
		}
		ids[pid] = struct{}{}
	}
	return ids, rows.Err()
}

func (s *SQLAdapter) FindByID(ctx context.Context, id domain.OrderID) (*domain.Order, error) {
	const op = "find_order"

	var version int64
	err := s.db.QueryRowContext(ctx, s.dialect.rebind(`SELECT version FROM orders WHERE id = ?`), id.String()).Scan(&version)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, apperr.Infrastructure(op, fmt.Errorf("query order: %w", err))
	}

	rows, err := s.db.QueryContext(ctx, s.dialect.rebind(`
		SELECT product_id, quantity, unit_amount, currency
		FROM order_items WHERE order_id = ?
		ORDER BY line_no, product_id`), id.String())
	if err != nil {
		return nil, apperr.Infrastructure(op, fmt.Errorf("query items: %w", err))
	}
	defer rows.Close()

	var items []domain.OrderItem
	for rows.Next() {
		var (
			productID string
			quantity  int
			amount    decimal.Decimal
			currency  string
		)
		if err := rows.Scan(&productID, &quantity, &amount, &currency); err != nil {
			return nil, apperr.Infrastructure(op, fmt.Errorf("scan item: %w", err))
		}
		item, err := s.restoreItem(productID, quantity, amount, currency)
		if err != nil {
			return nil, apperr.Infrastructure(op, fmt.Errorf("corrupt item %s of order %s: %w", productID, id, err))
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Infrastructure(op, fmt.Errorf("iterate items: %w", err))
	}

	order, err := domain.RestoreOrder(id, version, items)
	if err != nil {
		return nil, apperr.Infrastructure(op, err)
	}
	return order, nil
}

func (s *SQLAdapter) restoreItem(productID string, quantity int, amount decimal.Decimal, currency string) (domain.OrderItem, error) {
	pid, err := domain.NewProductID(productID)
	if err != nil {
		return domain.OrderItem{}, err
	}
	qty, err := domain.NewQuantity(quantity)
	if err != nil {
		return domain.OrderItem{}, err
	}
	cur, err := s.currencies.Parse(currency)
	if err != nil {
		return domain.OrderItem{}, err
	}
	price, err := domain.NewMoney(amount, cur)
	if err != nil {
		return domain.OrderItem{}, err
	}
	return domain.NewOrderItem(pid, qty, price)
}

// Delete removes the order and its lines. Deleting an unknown id is not an error.
func (s *SQLAdapter) Delete(ctx context.Context, id domain.OrderID) error {
	const op = "delete_order"

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return apperr.Infrastructure(op, fmt.Errorf("begin tx: %w", err))
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, s.dialect.rebind(`DELETE FROM order_items WHERE order_id = ?`), id.String()); err != nil {
		return apperr.Infrastructure(op, fmt.Errorf("delete items: %w", err))
	}
	if _, err := tx.ExecContext(ctx, s.dialect.rebind(`DELETE FROM orders WHERE id = ?`), id.String()); err != nil {
		return apperr.Infrastructure(op, fmt.Errorf("delete order: %w", err))
	}

	if err := tx.Commit(); err != nil {
		return apperr.Infrastructure(op, fmt.Errorf("commit: %w", err))
	}
	return nil
}
