package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/NickolasKemp/ordify/internal/domain"
)

// CreateProduct inserts the product and its delivery options in one
// transaction.
func (s *Store) CreateProduct(ctx context.Context, p *domain.Product) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: begin create product: %w", err)
	}
	defer tx.Rollback()

	const q = `
		INSERT INTO products (id, created_at, name, description, price, image, quantity)
		VALUES (?, ?, ?, ?, ?, ?, ?)`
	if _, err := tx.ExecContext(ctx, q,
		p.ID, formatTime(p.CreatedAt), p.Name, p.Description, p.Price, p.Image, p.Quantity,
	); err != nil {
		return fmt.Errorf("sqlite: create product %q: %w", p.ID, err)
	}

	if err := insertDeliveryOptions(ctx, tx, p.ID, p.DeliveryOptions); err != nil {
		return err
	}

	return tx.Commit()
}

// UpdateProduct rewrites the product row and replaces its delivery options.
func (s *Store) UpdateProduct(ctx context.Context, p *domain.Product) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: begin update product: %w", err)
	}
	defer tx.Rollback()

	const q = `
		UPDATE products
		SET name = ?, description = ?, price = ?, image = ?, quantity = ?
		WHERE id = ?`
	res, err := tx.ExecContext(ctx, q,
		p.Name, p.Description, p.Price, p.Image, p.Quantity, p.ID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: update product %q: %w", p.ID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("sqlite: update product %q: %w", p.ID, domain.ErrNotFound)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM delivery_options WHERE product_id = ?`, p.ID); err != nil {
		return fmt.Errorf("sqlite: clear delivery options for %q: %w", p.ID, err)
	}
	if err := insertDeliveryOptions(ctx, tx, p.ID, p.DeliveryOptions); err != nil {
		return err
	}

	return tx.Commit()
}

func insertDeliveryOptions(ctx context.Context, tx *sql.Tx, productID string, opts []domain.DeliveryOption) error {
	const q = `
		INSERT INTO delivery_options (id, product_id, type, price, period)
		VALUES (?, ?, ?, ?, ?)`
	for _, opt := range opts {
		if _, err := tx.ExecContext(ctx, q, opt.ID, productID, string(opt.Type), opt.Price, opt.Period); err != nil {
			return fmt.Errorf("sqlite: insert delivery option for %q: %w", productID, err)
		}
	}
	return nil
}

func (s *Store) GetProduct(ctx context.Context, id string) (*domain.Product, error) {
	const q = `
		SELECT id, created_at, name, description, price, image, quantity
		FROM products WHERE id = ?`
	p, err := scanProduct(s.db.QueryRowContext(ctx, q, id))
	if err != nil {
		return nil, err
	}
	if err := s.loadDeliveryOptions(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

// ListProducts applies the search/price filters, then pages the result.
// A zero PageSize disables pagination and returns the full collection.
func (s *Store) ListProducts(ctx context.Context, filter domain.ProductFilter) (*domain.ProductPage, error) {
	where := `WHERE 1=1`
	args := []any{}
	if filter.Search != "" {
		where += ` AND (name LIKE ? OR description LIKE ?)`
		pattern := "%" + filter.Search + "%"
		args = append(args, pattern, pattern)
	}
	if filter.MinPrice > 0 {
		where += ` AND price >= ?`
		args = append(args, filter.MinPrice)
	}
	if filter.MaxPrice > 0 {
		where += ` AND price <= ?`
		args = append(args, filter.MaxPrice)
	}

	var total int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM products `+where, args...).Scan(&total); err != nil {
		return nil, fmt.Errorf("sqlite: count products: %w", err)
	}

	q := `
		SELECT id, created_at, name, description, price, image, quantity
		FROM products ` + where + ` ORDER BY created_at DESC`

	totalPages := 1
	if filter.PageSize > 0 {
		totalPages = (total + filter.PageSize - 1) / filter.PageSize
		page := filter.Page
		if page < 1 {
			page = 1
		}
		q += ` LIMIT ? OFFSET ?`
		args = append(args, filter.PageSize, (page-1)*filter.PageSize)
	}

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite: list products: %w", err)
	}
	defer rows.Close()

	products := make([]domain.Product, 0)
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		products = append(products, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: list products: %w", err)
	}
	// The pool holds a single connection; the option queries must not run
	// while the product result set still occupies it.
	rows.Close()

	for i := range products {
		if err := s.loadDeliveryOptions(ctx, &products[i]); err != nil {
			return nil, err
		}
	}

	return &domain.ProductPage{
		Products:      products,
		TotalPages:    totalPages,
		TotalProducts: total,
	}, nil
}

func (s *Store) DeleteProduct(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM products WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("sqlite: delete product %q: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("sqlite: delete product %q: %w", id, domain.ErrNotFound)
	}
	_, err = s.db.ExecContext(ctx, `DELETE FROM delivery_options WHERE product_id = ?`, id)
	if err != nil {
		return fmt.Errorf("sqlite: delete delivery options for %q: %w", id, err)
	}
	return nil
}

// DecrementProductStock reduces available stock after an order is placed.
// It fails when the remaining stock does not cover the quantity.
func (s *Store) DecrementProductStock(ctx context.Context, id string, by int) error {
	const q = `UPDATE products SET quantity = quantity - ? WHERE id = ? AND quantity >= ?`
	res, err := s.db.ExecContext(ctx, q, by, id, by)
	if err != nil {
		return fmt.Errorf("sqlite: decrement stock for %q: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("sqlite: decrement stock for %q: %w", id, domain.ErrConflict)
	}
	return nil
}

// IncrementProductStock restores stock, e.g. when a placement is rolled back.
func (s *Store) IncrementProductStock(ctx context.Context, id string, by int) error {
	const q = `UPDATE products SET quantity = quantity + ? WHERE id = ?`
	if _, err := s.db.ExecContext(ctx, q, by, id); err != nil {
		return fmt.Errorf("sqlite: increment stock for %q: %w", id, err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProduct(row rowScanner) (*domain.Product, error) {
	var p domain.Product
	var createdAt string
	err := row.Scan(&p.ID, &createdAt, &p.Name, &p.Description, &p.Price, &p.Image, &p.Quantity)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite: scan product: %w", err)
	}
	if p.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *Store) loadDeliveryOptions(ctx context.Context, p *domain.Product) error {
	const q = `SELECT id, type, price, period FROM delivery_options WHERE product_id = ? ORDER BY rowid`
	rows, err := s.db.QueryContext(ctx, q, p.ID)
	if err != nil {
		return fmt.Errorf("sqlite: load delivery options for %q: %w", p.ID, err)
	}
	defer rows.Close()

	p.DeliveryOptions = p.DeliveryOptions[:0]
	for rows.Next() {
		var opt domain.DeliveryOption
		var way string
		if err := rows.Scan(&opt.ID, &way, &opt.Price, &opt.Period); err != nil {
			return fmt.Errorf("sqlite: scan delivery option: %w", err)
		}
		opt.Type = domain.DeliveryWay(way)
		p.DeliveryOptions = append(p.DeliveryOptions, opt)
	}
	return rows.Err()
}
