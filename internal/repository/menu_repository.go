package repository

import (
	"context"
	"errors"

	"kedaipos-backend/internal/db"
	"kedaipos-backend/internal/domain"

	"github.com/jackc/pgx/v5"
)

type MenuRepository struct {
	DB *db.Postgres
}

func (r MenuRepository) List(ctx context.Context) ([]domain.Menu, error) {
	rows, err := r.DB.Pool.Query(ctx, `
		SELECT m.id, m.name, COALESCE(c.name, ''), m.category_id, m.price, m.image, m.available, m.version, m.created_at, m.updated_at
		FROM menus m
		LEFT JOIN categories c ON c.id = m.category_id
		WHERE m.deleted_at IS NULL
		ORDER BY m.id ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []domain.Menu
	for rows.Next() {
		var m domain.Menu
		if err := rows.Scan(&m.ID, &m.Name, &m.Category, &m.CategoryID, &m.Price.Amount, &m.Image, &m.Available, &m.Version, &m.CreatedAt, &m.UpdatedAt); err != nil {
			return nil, err
		}
		items = append(items, m)
	}
	return items, rows.Err()
}

func (r MenuRepository) GetByID(ctx context.Context, id int64) (*domain.Menu, error) {
	row := r.DB.Pool.QueryRow(ctx, `
		SELECT m.id, m.name, COALESCE(c.name, ''), m.category_id, m.price, m.image, m.available, m.version, m.created_at, m.updated_at
		FROM menus m
		LEFT JOIN categories c ON c.id = m.category_id
		WHERE m.id=$1 AND m.deleted_at IS NULL
	`, id)

	var m domain.Menu
	if err := row.Scan(&m.ID, &m.Name, &m.Category, &m.CategoryID, &m.Price.Amount, &m.Image, &m.Available, &m.Version, &m.CreatedAt, &m.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &m, nil
}

// Save inserts or updates a menu entry. Every update bumps version so
// terminal caches can detect staleness.
func (r MenuRepository) Save(ctx context.Context, m domain.Menu) (*domain.Menu, error) {
	if m.ID == 0 {
		err := r.DB.Pool.QueryRow(ctx, `
			INSERT INTO menus (name, category_id, price, image, available, version, created_at, updated_at)
			VALUES ($1,$2,$3,$4,$5, 1, now(), now())
			RETURNING id, name, category_id, price, image, available, version, created_at, updated_at
		`, m.Name, m.CategoryID, m.Price.Amount, m.Image, m.Available).
			Scan(&m.ID, &m.Name, &m.CategoryID, &m.Price.Amount, &m.Image, &m.Available, &m.Version, &m.CreatedAt, &m.UpdatedAt)
		if err != nil {
			return nil, err
		}
	} else {
		err := r.DB.Pool.QueryRow(ctx, `
			UPDATE menus
			SET name=$1,
				category_id=$2,
				price=$3,
				image=$4,
				available=$5,
				version=version+1,
				updated_at=now(),
				deleted_at=NULL
			WHERE id=$6
			RETURNING id, name, category_id, price, image, available, version, created_at, updated_at
		`, m.Name, m.CategoryID, m.Price.Amount, m.Image, m.Available, m.ID).
			Scan(&m.ID, &m.Name, &m.CategoryID, &m.Price.Amount, &m.Image, &m.Available, &m.Version, &m.CreatedAt, &m.UpdatedAt)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, ErrNotFound
			}
			return nil, err
		}
	}
	return &m, nil
}

func (r MenuRepository) Delete(ctx context.Context, id int64) error {
	_, err := r.DB.Pool.Exec(ctx, `UPDATE menus SET deleted_at = now() WHERE id=$1`, id)
	return err
}
