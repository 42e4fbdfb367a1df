package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/Zenithi77/Selly-Fashion-sub000/internal/domain"
	"github.com/Zenithi77/Selly-Fashion-sub000/internal/repository/order_repo"
	"github.com/Zenithi77/Selly-Fashion-sub000/internal/repository/outbox_repo"
)

type pgOrderRepository struct {
	db         *sql.DB
	outboxRepo outbox_repo.OutboxRepository
	logger     *zap.Logger
}

func NewOrderRepository(db *sql.DB, outboxRepo outbox_repo.OutboxRepository, l *zap.Logger) order_repo.OrderRepository {
	return &pgOrderRepository{db: db, outboxRepo: outboxRepo, logger: l}
}

func (r *pgOrderRepository) CreateOrderAndOutboxMessage(ctx context.Context, order *domain.Order, msg *domain.OutboxMessage) (err error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		r.logger.Error("Failed to begin transaction for order creation", zap.String("order_id", order.ID), zap.Error(err))
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			r.logger.Error("Panic during order creation transaction, rolling back", zap.String("order_id", order.ID))
			_ = tx.Rollback()
			panic(p)
		} else if err != nil {
			r.logger.Warn("Rolling back order creation transaction", zap.String("order_id", order.ID), zap.Error(err))
			_ = tx.Rollback()
		} else {
			err = tx.Commit()
			if err != nil {
				r.logger.Error("Failed to commit order creation transaction", zap.String("order_id", order.ID), zap.Error(err))
			}
		}
	}()

	orderQuery := `
		INSERT INTO orders (id, user_id, payment_ref, total_amount, paid_amount, payment_status, status, payment_note, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	_, err = tx.ExecContext(ctx, orderQuery,
		order.ID, order.UserID, order.PaymentRef, order.TotalAmount, order.PaidAmount,
		order.PaymentStatus, order.Status, order.PaymentNote, order.CreatedAt, order.UpdatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" && strings.Contains(pqErr.Constraint, "payment_ref") {
			err = domain.ErrPaymentRefTaken
			return err
		}
		err = fmt.Errorf("tx failed to create order: %w", err)
		return err
	}

	itemQuery := `
		INSERT INTO order_items (id, order_id, product_id, name, quantity, unit_price)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	for _, it := range order.Items {
		if _, err = tx.ExecContext(ctx, itemQuery, it.ID, it.OrderID, it.ProductID, it.Name, it.Quantity, it.UnitPrice); err != nil {
			err = fmt.Errorf("tx failed to create order item: %w", err)
			return err
		}
	}

	if err = r.outboxRepo.CreateMessageTx(ctx, tx, msg); err != nil {
		err = fmt.Errorf("tx failed to create outbox message: %w", err)
		return err
	}
	r.logger.Debug("Order, items and outbox message inserted in transaction", zap.String("order_id", order.ID))

	return err
}

func (r *pgOrderRepository) GetOrderByID(ctx context.Context, id string) (*domain.Order, error) {
	query := `
		SELECT id, user_id, payment_ref, total_amount, paid_amount, payment_status, status, payment_note, created_at, updated_at
		FROM orders WHERE id = $1
	`
	order, err := r.scanOrder(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrOrderNotFound
		}
		r.logger.Error("Failed to get order by ID", zap.String("order_id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get order by ID %s: %w", id, err)
	}

	if err := r.loadItems(ctx, order); err != nil {
		return nil, err
	}
	return order, nil
}

func (r *pgOrderRepository) GetOrderByPaymentRef(ctx context.Context, ref string) (*domain.Order, error) {
	query := `
		SELECT id, user_id, payment_ref, total_amount, paid_amount, payment_status, status, payment_note, created_at, updated_at
		FROM orders WHERE payment_ref = $1
	`
	order, err := r.scanOrder(r.db.QueryRowContext(ctx, query, ref))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrPaymentRefNotFound
		}
		r.logger.Error("Failed to get order by payment ref", zap.String("payment_ref", ref), zap.Error(err))
		return nil, fmt.Errorf("failed to get order by payment ref %s: %w", ref, err)
	}
	return order, nil
}

func (r *pgOrderRepository) UpdatePaymentStateAndOutboxMessage(ctx context.Context, order *domain.Order, msg *domain.OutboxMessage) (err error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		r.logger.Error("Failed to begin transaction for payment state update", zap.String("order_id", order.ID), zap.Error(err))
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		} else if err != nil {
			r.logger.Warn("Rolling back payment state update transaction", zap.String("order_id", order.ID), zap.Error(err))
			_ = tx.Rollback()
		} else {
			err = tx.Commit()
			if err != nil {
				r.logger.Error("Failed to commit payment state update transaction", zap.String("order_id", order.ID), zap.Error(err))
			}
		}
	}()

	query := `
		UPDATE orders
		SET payment_status = $2, status = $3, paid_amount = $4, payment_note = $5, updated_at = $6
		WHERE id = $1
	`
	var res sql.Result
	res, err = tx.ExecContext(ctx, query,
		order.ID, order.PaymentStatus, order.Status, order.PaidAmount, order.PaymentNote, order.UpdatedAt)
	if err != nil {
		err = fmt.Errorf("tx failed to update order %s: %w", order.ID, err)
		return err
	}
	var rowsAffected int64
	rowsAffected, err = res.RowsAffected()
	if err != nil {
		err = fmt.Errorf("failed to check update result: %w", err)
		return err
	}
	if rowsAffected == 0 {
		err = domain.ErrOrderNotFound
		return err
	}

	if err = r.outboxRepo.CreateMessageTx(ctx, tx, msg); err != nil {
		err = fmt.Errorf("tx failed to create outbox message: %w", err)
		return err
	}
	r.logger.Debug("Payment state and outbox message updated in transaction",
		zap.String("order_id", order.ID), zap.String("payment_status", string(order.PaymentStatus)))

	return err
}

func (r *pgOrderRepository) scanOrder(row *sql.Row) (*domain.Order, error) {
	order := &domain.Order{}
	var paidAmount sql.NullFloat64
	var note sql.NullString
	err := row.Scan(&order.ID, &order.UserID, &order.PaymentRef, &order.TotalAmount, &paidAmount,
		&order.PaymentStatus, &order.Status, &note, &order.CreatedAt, &order.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if paidAmount.Valid {
		order.PaidAmount = &paidAmount.Float64
	}
	if note.Valid {
		order.PaymentNote = note.String
	}
	return order, nil
}

func (r *pgOrderRepository) loadItems(ctx context.Context, order *domain.Order) error {
	query := `
		SELECT id, order_id, product_id, name, quantity, unit_price
		FROM order_items WHERE order_id = $1 ORDER BY id
	`
	rows, err := r.db.QueryContext(ctx, query, order.ID)
	if err != nil {
		r.logger.Error("Failed to query order items", zap.String("order_id", order.ID), zap.Error(err))
		return fmt.Errorf("failed to get items for order %s: %w", order.ID, err)
	}
	defer rows.Close()

	for rows.Next() {
		it := domain.OrderItem{}
		if err := rows.Scan(&it.ID, &it.OrderID, &it.ProductID, &it.Name, &it.Quantity, &it.UnitPrice); err != nil {
			return fmt.Errorf("failed to scan order item row: %w", err)
		}
		order.Items = append(order.Items, it)
	}
	if err = rows.Err(); err != nil {
		return fmt.Errorf("rows error: %w", err)
	}
	return nil
}
