package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/NickolasKemp/ordify/internal/domain"
)

const orderColumns = `
	o.id, o.created_at, o.quantity, o.price, o.delivery_way,
	o.status, o.payment_status, o.payment_intent_id, o.paid_at, o.completed_at,
	o.product_id, o.customer_id, COALESCE(o.agreement_id, ''),
	p.name, p.price, p.image,
	c.name, c.contact_person, c.street, c.city, c.state, c.zip, c.phone`

const orderJoins = `
	FROM orders o
	LEFT JOIN products  p ON p.id = o.product_id
	LEFT JOIN customers c ON c.id = o.customer_id`

func (s *Store) CreateOrder(ctx context.Context, o *domain.Order) error {
	const q = `
		INSERT INTO orders
			(id, created_at, quantity, price, delivery_way, status, payment_status,
			 payment_intent_id, paid_at, completed_at, product_id, customer_id, agreement_id)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	var agreementID any
	if o.AgreementID != "" {
		agreementID = o.AgreementID
	}
	_, err := s.db.ExecContext(ctx, q,
		o.ID, formatTime(o.CreatedAt), o.Quantity, o.Price, string(o.DeliveryWay),
		string(o.Status), string(o.PaymentStatus), "", nullTime(o.PaidAt),
		nullTime(o.CompletedAt), o.ProductID, o.CustomerID, agreementID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: create order %q: %w", o.ID, err)
	}
	return nil
}

func (s *Store) GetOrder(ctx context.Context, id string) (*domain.Order, error) {
	q := `SELECT` + orderColumns + orderJoins + ` WHERE o.id = ?`
	return scanOrder(s.db.QueryRowContext(ctx, q, id))
}

func (s *Store) ListOrders(ctx context.Context) ([]domain.Order, error) {
	q := `SELECT` + orderColumns + orderJoins + ` ORDER BY o.created_at DESC`
	rows, err := s.db.QueryContext(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("sqlite: list orders: %w", err)
	}
	defer rows.Close()

	orders := make([]domain.Order, 0)
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, *o)
	}
	return orders, rows.Err()
}

// UpdateOrderStatus persists an admin-driven status transition. The
// transition itself is validated by the orders service before this call.
func (s *Store) UpdateOrderStatus(ctx context.Context, id string, status domain.OrderStatus, completedAt *time.Time) error {
	const q = `UPDATE orders SET status = ?, completed_at = ? WHERE id = ?`
	res, err := s.db.ExecContext(ctx, q, string(status), nullTime(completedAt), id)
	if err != nil {
		return fmt.Errorf("sqlite: update order status %q: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("sqlite: update order status %q: %w", id, domain.ErrNotFound)
	}
	return nil
}

// MarkOrderPaid records a successful payment against the order.
func (s *Store) MarkOrderPaid(ctx context.Context, id, intentID string, o *domain.Order) error {
	const q = `
		UPDATE orders
		SET payment_status = ?, payment_intent_id = ?, paid_at = ?, status = ?
		WHERE id = ?`
	res, err := s.db.ExecContext(ctx, q,
		string(o.PaymentStatus), intentID, nullTime(o.PaidAt), string(o.Status), id)
	if err != nil {
		return fmt.Errorf("sqlite: mark order paid %q: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("sqlite: mark order paid %q: %w", id, domain.ErrNotFound)
	}
	return nil
}

// MarkOrderPaymentFailed flags a declined payment attempt on the order.
func (s *Store) MarkOrderPaymentFailed(ctx context.Context, id string) error {
	const q = `UPDATE orders SET payment_status = ? WHERE id = ?`
	res, err := s.db.ExecContext(ctx, q, string(domain.PaymentFailed), id)
	if err != nil {
		return fmt.Errorf("sqlite: mark payment failed %q: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("sqlite: mark payment failed %q: %w", id, domain.ErrNotFound)
	}
	return nil
}

func (s *Store) DeleteOrder(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM orders WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("sqlite: delete order %q: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("sqlite: delete order %q: %w", id, domain.ErrNotFound)
	}
	return nil
}

func scanOrder(row rowScanner) (*domain.Order, error) {
	var (
		o                  domain.Order
		createdAt          string
		deliveryWay        string
		status             string
		paymentStatus      string
		intentID           string
		paidAt             sql.NullString
		completedAt        sql.NullString
		prodName, prodImg  sql.NullString
		prodPrice          sql.NullFloat64
		custName, custCP   sql.NullString
		custStreet         sql.NullString
		custCity, custSt   sql.NullString
		custZip, custPhone sql.NullString
	)
	err := row.Scan(
		&o.ID, &createdAt, &o.Quantity, &o.Price, &deliveryWay,
		&status, &paymentStatus, &intentID, &paidAt, &completedAt,
		&o.ProductID, &o.CustomerID, &o.AgreementID,
		&prodName, &prodPrice, &prodImg,
		&custName, &custCP, &custStreet, &custCity, &custSt, &custZip, &custPhone,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite: scan order: %w", err)
	}

	o.DeliveryWay = domain.DeliveryWay(deliveryWay)
	o.Status = domain.OrderStatus(status)
	o.PaymentStatus = domain.PaymentStatus(paymentStatus)
	if o.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if o.PaidAt, err = scanNullTime(paidAt); err != nil {
		return nil, err
	}
	if o.CompletedAt, err = scanNullTime(completedAt); err != nil {
		return nil, err
	}

	if prodName.Valid {
		o.Product = &domain.Product{
			ID:    o.ProductID,
			Name:  prodName.String,
			Price: prodPrice.Float64,
			Image: prodImg.String,
		}
	}
	if custName.Valid {
		o.Customer = &domain.Customer{
			ID:            o.CustomerID,
			Name:          custName.String,
			ContactPerson: custCP.String,
			Street:        custStreet.String,
			City:          custCity.String,
			State:         custSt.String,
			Zip:           custZip.String,
			Phone:         custPhone.String,
		}
	}
	return &o, nil
}
