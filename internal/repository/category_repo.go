package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/taskhub/backend/internal/models"
)

type CategoryRepo struct {
	pool *pgxpool.Pool
}

func NewCategoryRepo(pool *pgxpool.Pool) *CategoryRepo {
	return &CategoryRepo{pool: pool}
}

func (r *CategoryRepo) List(ctx context.Context) ([]*models.Category, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, name, description, icon, created_at FROM categories ORDER BY name ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []*models.Category
	for rows.Next() {
		var c models.Category
		if err := rows.Scan(&c.ID, &c.Name, &c.Description, &c.Icon, &c.CreatedAt); err != nil {
			return nil, err
		}
		list = append(list, &c)
	}
	return list, rows.Err()
}

func (r *CategoryRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Category, error) {
	var c models.Category
	err := r.pool.QueryRow(ctx, `
		SELECT id, name, description, icon, created_at FROM categories WHERE id = $1
	`, id).Scan(&c.ID, &c.Name, &c.Description, &c.Icon, &c.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &c, nil
}
