package repo

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	domain "github.com/aq2208/gorder-shop/internal/entity"
	"github.com/aq2208/gorder-shop/internal/usecase"
)

type MySQLProductRepo struct{ db *sql.DB }

func NewMySQLProductRepo(db *sql.DB) *MySQLProductRepo { return &MySQLProductRepo{db: db} }

const productCols = `id,title,description,price,category,stock,image,created_at,updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProduct(row rowScanner) (*domain.Product, error) {
	var p domain.Product
	if err := row.Scan(&p.ID, &p.Title, &p.Description, &p.Price, &p.Category, &p.Stock, &p.Image, &p.CreatedAt, &p.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

func (r *MySQLProductRepo) Create(ctx context.Context, p *domain.Product) error {
	_, err := conn(ctx, r.db).ExecContext(ctx, `
INSERT INTO products (`+productCols+`)
VALUES (?,?,?,?,?,?,?,?,?)
`, p.ID, p.Title, p.Description, p.Price, p.Category, p.Stock, p.Image, p.CreatedAt, p.UpdatedAt)
	return err
}

func (r *MySQLProductRepo) GetByID(ctx context.Context, id string) (*domain.Product, error) {
	row := conn(ctx, r.db).QueryRowContext(ctx, `SELECT `+productCols+` FROM products WHERE id=?`, id)
	return scanProduct(row)
}

func (r *MySQLProductRepo) Lock(ctx context.Context, id string) (*domain.Product, error) {
	row := conn(ctx, r.db).QueryRowContext(ctx, `SELECT `+productCols+` FROM products WHERE id=? FOR UPDATE`, id)
	return scanProduct(row)
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func (r *MySQLProductRepo) List(ctx context.Context, f domain.ProductFilter) ([]domain.Product, error) {
	var (
		where []string
		args  []any
	)
	if f.Category != "" {
		where = append(where, "category = ?")
		args = append(args, f.Category)
	}
	if f.Search != "" {
		like := "%" + likeEscaper.Replace(f.Search) + "%"
		where = append(where, "(title LIKE ? OR description LIKE ?)")
		args = append(args, like, like)
	}

	q := `SELECT ` + productCols + ` FROM products`
	if len(where) > 0 {
		q += ` WHERE ` + strings.Join(where, " AND ")
	}
	switch f.Sort {
	case domain.SortPriceLow:
		q += ` ORDER BY price ASC, created_at DESC`
	case domain.SortPriceHigh:
		q += ` ORDER BY price DESC, created_at DESC`
	default:
		q += ` ORDER BY created_at DESC`
	}

	rows, err := conn(ctx, r.db).QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []domain.Product{}
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *p)
	}
	return out, rows.Err()
}

func (r *MySQLProductRepo) Update(ctx context.Context, p *domain.Product) error {
	res, err := conn(ctx, r.db).ExecContext(ctx, `
UPDATE products
SET title = ?, description = ?, price = ?, category = ?, stock = ?, image = ?, updated_at = ?
WHERE id = ?`,
		p.Title, p.Description, p.Price, p.Category, p.Stock, p.Image, p.UpdatedAt, p.ID,
	)
	if err != nil {
		return err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		// unchanged rows report 0 as well
		if _, err := r.GetByID(ctx, p.ID); err != nil {
			return err
		}
	}
	return nil
}

func (r *MySQLProductRepo) Delete(ctx context.Context, id string) error {
	res, err := conn(ctx, r.db).ExecContext(ctx, `DELETE FROM products WHERE id = ?`, id)
	if err != nil {
		return err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}

// DecrementStock is a single conditional UPDATE, so two reservations racing for the
// last units cannot both succeed.
func (r *MySQLProductRepo) DecrementStock(ctx context.Context, id string, qty int) (*domain.Product, error) {
	res, err := conn(ctx, r.db).ExecContext(ctx, `
UPDATE products
SET stock = stock - ?, updated_at = NOW(6)
WHERE id = ? AND stock >= ?`,
		qty, id, qty,
	)
	if err != nil {
		return nil, err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if rows == 0 {
		// rows == 0 → nothing matched (either not found or not enough stock)
		if _, err := r.GetByID(ctx, id); err != nil {
			return nil, err
		}
		return nil, domain.ErrInsufficientStock
	}
	return r.GetByID(ctx, id)
}

func (r *MySQLProductRepo) IncrementStock(ctx context.Context, id string, qty int) (bool, error) {
	res, err := conn(ctx, r.db).ExecContext(ctx, `
UPDATE products
SET stock = stock + ?, updated_at = NOW(6)
WHERE id = ?`,
		qty, id,
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

var _ usecase.ProductRepo = (*MySQLProductRepo)(nil)
