package categories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

var ErrNotFound = errors.New("category not found")

type Conf struct {
	db *sql.DB
}

func NewConf(db *sql.DB) (Conf, error) {
	if db == nil {
		return Conf{}, fmt.Errorf("db is nil")
	}
	return Conf{db: db}, nil
}

func (c *Conf) ListCategories(ctx context.Context) ([]Category, error) {
	const query = `SELECT category_id, name, description FROM categories ORDER BY category_id`
	rows, err := c.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query categories: %w", err)
	}
	defer rows.Close()

	categories := []Category{}
	for rows.Next() {
		var cat Category
		if err := rows.Scan(&cat.CategoryID, &cat.Name, &cat.Description); err != nil {
			return nil, fmt.Errorf("failed to scan category: %w", err)
		}
		categories = append(categories, cat)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating categories: %w", err)
	}
	return categories, nil
}

func (c *Conf) GetCategory(ctx context.Context, categoryID int64) (Category, error) {
	const query = `SELECT category_id, name, description FROM categories WHERE category_id = $1`
	var cat Category
	err := c.db.QueryRowContext(ctx, query, categoryID).Scan(&cat.CategoryID, &cat.Name, &cat.Description)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Category{}, ErrNotFound
		}
		return Category{}, fmt.Errorf("failed to query category: %w", err)
	}
	return cat, nil
}

func (c *Conf) CreateCategory(ctx context.Context, nc NewCategory) (Category, error) {
	const query = `
		INSERT INTO categories (name, description)
		VALUES ($1, $2)
		RETURNING category_id
	`
	cat := Category{Name: nc.Name, Description: nc.Description}
	if err := c.db.QueryRowContext(ctx, query, nc.Name, nc.Description).Scan(&cat.CategoryID); err != nil {
		return Category{}, fmt.Errorf("failed to insert category: %w", err)
	}
	return cat, nil
}

func (c *Conf) UpdateCategory(ctx context.Context, categoryID int64, nc NewCategory) error {
	const query = `UPDATE categories SET name = $1, description = $2 WHERE category_id = $3`
	res, err := c.db.ExecContext(ctx, query, nc.Name, nc.Description, categoryID)
	if err != nil {
		return fmt.Errorf("failed to update category: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (c *Conf) DeleteCategory(ctx context.Context, categoryID int64) error {
	const query = `DELETE FROM categories WHERE category_id = $1`
	res, err := c.db.ExecContext(ctx, query, categoryID)
	if err != nil {
		return fmt.Errorf("failed to delete category: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
