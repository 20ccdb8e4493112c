package core

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// ErrOrderNotFound is returned by lookups that reference a nonexistent order.
var ErrOrderNotFound = errors.New("order not found")

// uniqueViolation is the PostgreSQL SQLSTATE for a unique constraint failure.
const uniqueViolation = "23505"

// OrderService owns the two-table order model and the create-or-update
// decision keyed by id_zoho.
type OrderService interface {
	// Upsert creates the order when id_zoho is unseen, otherwise updates the
	// mutable subset (notes + full detail replacement) and flags the order for
	// re-sync. The returned bool is true when a new order was created.
	Upsert(ctx context.Context, in OrderInput) (*Order, bool, error)

	// Queries. Both return the order with its detail lines eagerly loaded in
	// insertion order, or ErrOrderNotFound.
	GetOrder(ctx context.Context, orderID int) (*Order, error)
	GetOrderByZohoID(ctx context.Context, idZoho string) (*Order, error)

	// ListPendingOrders returns every order the SAP worker has not integrated
	// yet, details included, oldest first.
	ListPendingOrders(ctx context.Context) ([]Order, error)
}

type orderService struct {
	pool *pgxpool.Pool
}

func NewOrderService(pool *pgxpool.Pool) OrderService {
	return &orderService{pool: pool}
}

func (s *orderService) Upsert(ctx context.Context, in OrderInput) (*Order, bool, error) {
	existingID, err := s.findIDByZohoID(ctx, in.IDZoho)
	switch {
	case err == nil:
		order, uerr := s.updateOrder(ctx, existingID, in)
		return order, false, uerr

	case errors.Is(err, ErrOrderNotFound):
		order, cerr := s.createOrder(ctx, in)
		if isUniqueViolation(cerr) {
			// Lost a create race on id_zoho: another request inserted the
			// order between our lookup and insert. Re-resolve as an update.
			existingID, err = s.findIDByZohoID(ctx, in.IDZoho)
			if err != nil {
				return nil, false, fmt.Errorf("re-resolving order %s after duplicate insert: %w", in.IDZoho, err)
			}
			order, uerr := s.updateOrder(ctx, existingID, in)
			return order, false, uerr
		}
		return order, true, cerr

	default:
		return nil, false, err
	}
}

// findIDByZohoID resolves the internal order id for an external key without
// loading detail lines. Returns ErrOrderNotFound when the key is unseen.
func (s *orderService) findIDByZohoID(ctx context.Context, idZoho string) (int, error) {
	var id int
	err := s.pool.QueryRow(ctx, "SELECT id FROM sap_orders WHERE id_zoho = $1", idZoho).Scan(&id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, fmt.Errorf("order %s: %w", idZoho, ErrOrderNotFound)
		}
		return 0, fmt.Errorf("failed to look up order %s: %w", idZoho, err)
	}
	return id, nil
}

// createOrder inserts the order header and its detail lines in one
// transaction. Integration flags start false and every worker-owned field
// starts NULL; tax is forced to zero on each line.
func (s *orderService) createOrder(ctx context.Context, in OrderInput) (*Order, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var orderID int
	err = tx.QueryRow(ctx, `
		INSERT INTO sap_orders (id_zoho, enterprise, id_warehouse, customer, order_date,
		                        salesperson, seler_email, seler_id, serie, notes,
		                        is_integrated, is_failed, is_updated, is_mail_send, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, false, false, false, false, NOW())
		RETURNING id
	`, in.IDZoho, in.Enterprise, in.IDWarehouse, in.Customer, in.OrderDate,
		in.Salesperson, in.SelerEmail, in.SelerID, in.Serie, in.Notes).Scan(&orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to insert order %s: %w", in.IDZoho, err)
	}

	if err := insertOrderLines(ctx, tx, orderID, in.Lines); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit order creation: %w", err)
	}

	return s.GetOrder(ctx, orderID)
}

// updateOrder overwrites notes, asserts the re-sync flag, and replaces the
// whole detail-line set. Everything happens in one transaction so a failed
// line insert leaves the previously committed lines untouched. All other
// header fields are immutable through this API.
func (s *orderService) updateOrder(ctx context.Context, orderID int, in OrderInput) (*Order, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, `
		UPDATE sap_orders
		SET notes = $1, is_updated = true, is_failed = false, error_message = NULL
		WHERE id = $2
	`, in.Notes, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to update order %d: %w", orderID, err)
	}
	if tag.RowsAffected() == 0 {
		return nil, fmt.Errorf("order %d: %w", orderID, ErrOrderNotFound)
	}

	if _, err := tx.Exec(ctx, "DELETE FROM sap_order_details WHERE order_id = $1", orderID); err != nil {
		return nil, fmt.Errorf("failed to delete detail lines of order %d: %w", orderID, err)
	}

	if err := insertOrderLines(ctx, tx, orderID, in.Lines); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit order update: %w", err)
	}

	return s.GetOrder(ctx, orderID)
}

func insertOrderLines(ctx context.Context, tx pgx.Tx, orderID int, lines []OrderLineInput) error {
	for i, line := range lines {
		_, err := tx.Exec(ctx, `
			INSERT INTO sap_order_details (order_id, product, quantity, unit_price,
			                               discount, total, tax, cost_center, account, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NOW())
		`, orderID, line.Product, line.Quantity, line.UnitPrice,
			line.Discount, line.Total, decimal.Zero, line.CostCenter, line.Account)
		if err != nil {
			return fmt.Errorf("failed to insert detail line %d: %w", i+1, err)
		}
	}
	return nil
}

// ── Queries ──────────────────────────────────────────────────────────────────

const orderColumns = `
	id, id_zoho, enterprise, id_warehouse, customer, order_date::text,
	integration_date, is_integrated, is_failed, is_updated, is_mail_send,
	mail_send_date, COALESCE(salesperson, ''), COALESCE(seler_email, ''),
	COALESCE(seler_id, 0), COALESCE(serie, 0), doc_num, doc_entry,
	error_message, notes, created_at`

func (s *orderService) GetOrder(ctx context.Context, orderID int) (*Order, error) {
	row := s.pool.QueryRow(ctx, "SELECT"+orderColumns+" FROM sap_orders WHERE id = $1", orderID)
	o, err := scanOrder(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("order %d: %w", orderID, ErrOrderNotFound)
		}
		return nil, fmt.Errorf("failed to fetch order %d: %w", orderID, err)
	}

	o.Details, err = s.fetchOrderDetails(ctx, o.ID)
	if err != nil {
		return nil, err
	}
	return o, nil
}

func (s *orderService) GetOrderByZohoID(ctx context.Context, idZoho string) (*Order, error) {
	id, err := s.findIDByZohoID(ctx, idZoho)
	if err != nil {
		return nil, err
	}
	return s.GetOrder(ctx, id)
}

func (s *orderService) ListPendingOrders(ctx context.Context) ([]Order, error) {
	rows, err := s.pool.Query(ctx,
		"SELECT"+orderColumns+" FROM sap_orders WHERE is_integrated = false ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("failed to query pending orders: %w", err)
	}
	defer rows.Close()

	var orders []Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan pending order: %w", err)
		}
		orders = append(orders, *o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read pending orders: %w", err)
	}

	for i := range orders {
		orders[i].Details, err = s.fetchOrderDetails(ctx, orders[i].ID)
		if err != nil {
			return nil, err
		}
	}
	return orders, nil
}

func scanOrder(row pgx.Row) (*Order, error) {
	var o Order
	err := row.Scan(
		&o.ID, &o.IDZoho, &o.Enterprise, &o.IDWarehouse, &o.Customer, &o.OrderDate,
		&o.IntegrationDate, &o.IsIntegrated, &o.IsFailed, &o.IsUpdated, &o.IsMailSend,
		&o.MailSendDate, &o.Salesperson, &o.SelerEmail,
		&o.SelerID, &o.Serie, &o.DocNum, &o.DocEntry,
		&o.ErrorMessage, &o.Notes, &o.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &o, nil
}

// fetchOrderDetails loads the detail lines of an order in insertion order.
func (s *orderService) fetchOrderDetails(ctx context.Context, orderID int) ([]OrderDetail, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, order_id, product, quantity, unit_price, discount, total, tax,
		       cost_center, account, created_at
		FROM sap_order_details
		WHERE order_id = $1
		ORDER BY id
	`, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to query detail lines of order %d: %w", orderID, err)
	}
	defer rows.Close()

	var details []OrderDetail
	for rows.Next() {
		var d OrderDetail
		if err := rows.Scan(
			&d.ID, &d.OrderID, &d.Product, &d.Quantity, &d.UnitPrice, &d.Discount,
			&d.Total, &d.Tax, &d.CostCenter, &d.Account, &d.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan detail line: %w", err)
		}
		details = append(details, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read detail lines of order %d: %w", orderID, err)
	}
	return details, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}
