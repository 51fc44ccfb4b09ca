package repo

import (
	"context"
	"database/sql"
	"errors"

	domain "github.com/aq2208/gorder-shop/internal/entity"
	"github.com/aq2208/gorder-shop/internal/usecase"
)

type MySQLUserRepo struct{ db *sql.DB }

func NewMySQLUserRepo(db *sql.DB) *MySQLUserRepo { return &MySQLUserRepo{db: db} }

func scanUser(row rowScanner) (*domain.User, error) {
	var (
		u    domain.User
		role string
	)
	if err := row.Scan(&u.ID, &u.Name, &u.Email, &role, &u.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	u.Role = domain.Role(role)
	return &u, nil
}

func (r *MySQLUserRepo) Create(ctx context.Context, u *domain.User) error {
	_, err := conn(ctx, r.db).ExecContext(ctx, `
INSERT INTO users (id,name,email,role,created_at) VALUES (?,?,?,?,?)
`, u.ID, u.Name, u.Email, string(u.Role), u.CreatedAt)
	return err
}

func (r *MySQLUserRepo) GetByID(ctx context.Context, id string) (*domain.User, error) {
	row := conn(ctx, r.db).QueryRowContext(ctx, `SELECT id,name,email,role,created_at FROM users WHERE id=?`, id)
	return scanUser(row)
}

func (r *MySQLUserRepo) List(ctx context.Context) ([]domain.User, error) {
	rows, err := conn(ctx, r.db).QueryContext(ctx, `SELECT id,name,email,role,created_at FROM users ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []domain.User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *u)
	}
	return out, rows.Err()
}

func (r *MySQLUserRepo) Update(ctx context.Context, u *domain.User) error {
	_, err := conn(ctx, r.db).ExecContext(ctx, `UPDATE users SET name = ?, email = ? WHERE id = ?`, u.Name, u.Email, u.ID)
	return err
}

func (r *MySQLUserRepo) Delete(ctx context.Context, id string) error {
	res, err := conn(ctx, r.db).ExecContext(ctx, `DELETE FROM users WHERE id = ?`, id)
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

var _ usecase.UserRepo = (*MySQLUserRepo)(nil)
