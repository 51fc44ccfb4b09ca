package repo

import (
	"context"
	"database/sql"
	"errors"

	domain "github.com/aq2208/gorder-shop/internal/entity"
	"github.com/aq2208/gorder-shop/internal/usecase"
	"github.com/shopspring/decimal"
)

type MySQLOrderRepo struct{ db *sql.DB }

func NewMySQLOrderRepo(db *sql.DB) *MySQLOrderRepo { return &MySQLOrderRepo{db: db} }

const orderCols = `o.id,o.user_id,o.total_amount,o.customer_name,o.customer_email,o.customer_phone,o.customer_address,
o.payment_mode,o.status,o.cancelled_at,o.cancelled_by,o.cancellation_reason,o.created_at,o.updated_at`

func (r *MySQLOrderRepo) Create(ctx context.Context, o *domain.Order) error {
	q := conn(ctx, r.db)
	_, err := q.ExecContext(ctx, `
INSERT INTO orders (id,user_id,total_amount,customer_name,customer_email,customer_phone,customer_address,payment_mode,status,created_at,updated_at)
VALUES (?,?,?,?,?,?,?,?,?,?,?)
`, o.ID, o.UserID, o.TotalAmount, o.Customer.Name, o.Customer.Email, o.Customer.Phone, o.Customer.Address,
		o.PaymentMode, string(o.Status), o.CreatedAt, o.UpdatedAt)
	if err != nil {
		return err
	}
	for i, it := range o.Items {
		if _, err := q.ExecContext(ctx, `
INSERT INTO order_items (order_id,line_no,product_id,quantity,price)
VALUES (?,?,?,?,?)
`, o.ID, i, it.ProductID, it.Quantity, it.Price); err != nil {
			return err
		}
	}
	return nil
}

func scanOrder(row rowScanner, owner *domain.Owner) (*domain.Order, error) {
	var (
		o        domain.Order
		status   string
		cAt      sql.NullTime
		cBy      sql.NullString
		cReason  sql.NullString
		ownerRef []any
	)
	if owner != nil {
		ownerRef = []any{&owner.Name, &owner.Email}
	}
	dest := append([]any{
		&o.ID, &o.UserID, &o.TotalAmount, &o.Customer.Name, &o.Customer.Email, &o.Customer.Phone, &o.Customer.Address,
		&o.PaymentMode, &status, &cAt, &cBy, &cReason, &o.CreatedAt, &o.UpdatedAt,
	}, ownerRef...)
	if err := row.Scan(dest...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	o.Status = domain.Status(status)
	if cAt.Valid {
		o.Cancellation = &domain.Cancellation{At: cAt.Time, By: domain.Actor(cBy.String), Reason: cReason.String}
	}
	if owner != nil {
		owner.ID = o.UserID
		o.Owner = owner
	}
	return &o, nil
}

func (r *MySQLOrderRepo) GetByID(ctx context.Context, id string) (*domain.Order, error) {
	row := conn(ctx, r.db).QueryRowContext(ctx, `SELECT `+orderCols+` FROM orders o WHERE o.id=?`, id)
	o, err := scanOrder(row, nil)
	if err != nil {
		return nil, err
	}
	orders := []domain.Order{*o}
	if err := r.loadItems(ctx, orders); err != nil {
		return nil, err
	}
	return &orders[0], nil
}

func (r *MySQLOrderRepo) ListByUser(ctx context.Context, userID string) ([]domain.Order, error) {
	return r.list(ctx, false, `SELECT `+orderCols+` FROM orders o WHERE o.user_id=? ORDER BY o.created_at DESC, o.id`, userID)
}

func (r *MySQLOrderRepo) ListAll(ctx context.Context) ([]domain.Order, error) {
	return r.list(ctx, true, `SELECT `+orderCols+`,COALESCE(u.name,''),COALESCE(u.email,'')
FROM orders o LEFT JOIN users u ON u.id = o.user_id
ORDER BY o.created_at DESC, o.id`)
}

func (r *MySQLOrderRepo) list(ctx context.Context, withOwner bool, query string, args ...any) ([]domain.Order, error) {
	rows, err := conn(ctx, r.db).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []domain.Order{}
	for rows.Next() {
		var owner *domain.Owner
		if withOwner {
			owner = &domain.Owner{}
		}
		o, err := scanOrder(rows, owner)
		if err != nil {
			return nil, err
		}
		out = append(out, *o)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if err := r.loadItems(ctx, out); err != nil {
		return nil, err
	}
	return out, nil
}

// loadItems attaches line items, resolving each product with a LEFT JOIN so that
// a deleted product leaves Product nil instead of dropping the line.
func (r *MySQLOrderRepo) loadItems(ctx context.Context, orders []domain.Order) error {
	if len(orders) == 0 {
		return nil
	}
	idx := make(map[string]int, len(orders))
	args := make([]any, len(orders))
	for i, o := range orders {
		idx[o.ID] = i
		args[i] = o.ID
		orders[i].Items = []domain.LineItem{}
	}

	rows, err := conn(ctx, r.db).QueryContext(ctx, `
SELECT i.order_id,i.product_id,i.quantity,i.price,p.id,p.title,p.price,p.category,p.image
FROM order_items i LEFT JOIN products p ON p.id = i.product_id
WHERE i.order_id IN (`+placeholders(len(args))+`)
ORDER BY i.order_id, i.line_no`, args...)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			orderID string
			it      domain.LineItem
			pID     sql.NullString
			pTitle  sql.NullString
			pPrice  decimal.NullDecimal
			pCat    sql.NullString
			pImage  sql.NullString
		)
		if err := rows.Scan(&orderID, &it.ProductID, &it.Quantity, &it.Price, &pID, &pTitle, &pPrice, &pCat, &pImage); err != nil {
			return err
		}
		if pID.Valid {
			it.Product = &domain.ProductSummary{
				ID:       pID.String,
				Title:    pTitle.String,
				Price:    pPrice.Decimal,
				Category: pCat.String,
				Image:    pImage.String,
			}
		}
		if i, ok := idx[orderID]; ok {
			orders[i].Items = append(orders[i].Items, it)
		}
	}
	return rows.Err()
}

// UpdateStatusIf moves the order to toStatus only while it is in one of fromStatuses.
func (r *MySQLOrderRepo) UpdateStatusIf(ctx context.Context, id string, fromStatuses []domain.Status, toStatus domain.Status) (bool, error) {
	args := append([]any{string(toStatus), id}, statusArgs(fromStatuses)...)
	res, err := conn(ctx, r.db).ExecContext(ctx, `
UPDATE orders
SET status = ?, updated_at = NOW(6)
WHERE id = ? AND status IN (`+placeholders(len(fromStatuses))+`)`,
		args...,
	)
	if err != nil {
		return false, err
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return false, err
	}

	// rows == 0 → nothing matched (either not found or status mismatch)
	return rows > 0, nil
}

func (r *MySQLOrderRepo) MarkCancelled(ctx context.Context, id string, c domain.Cancellation) (bool, error) {
	args := append([]any{string(domain.StatusCancelled), c.At, string(c.By), c.Reason, c.At, id}, statusArgs(domain.ActiveStatuses)...)
	res, err := conn(ctx, r.db).ExecContext(ctx, `
UPDATE orders
SET status = ?, cancelled_at = ?, cancelled_by = ?, cancellation_reason = ?, updated_at = ?
WHERE id = ? AND status IN (`+placeholders(len(domain.ActiveStatuses))+`)`,
		args...,
	)
	if err != nil {
		return false, err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return rows > 0, nil
}

func (r *MySQLOrderRepo) CountActiveByProduct(ctx context.Context, productID string) (int, error) {
	args := append([]any{productID}, statusArgs(domain.ActiveStatuses)...)
	var n int
	err := conn(ctx, r.db).QueryRowContext(ctx, `
SELECT COUNT(DISTINCT o.id)
FROM orders o JOIN order_items i ON i.order_id = o.id
WHERE i.product_id = ? AND o.status IN (`+placeholders(len(domain.ActiveStatuses))+`)`,
		args...,
	).Scan(&n)
	return n, err
}

func (r *MySQLOrderRepo) DeleteByUser(ctx context.Context, userID string) (int64, error) {
	res, err := conn(ctx, r.db).ExecContext(ctx, `DELETE FROM orders WHERE user_id = ?`, userID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

var _ usecase.OrderRepo = (*MySQLOrderRepo)(nil)
