package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/vladislavdragonenkov/kitchenops/internal/domain"
)

const (
	opTimeout = 5 * time.Second

	// Код PostgreSQL lock_not_available: строка занята другой транзакцией.
	pgLockNotAvailable = "55P03"
)

type orderRepository struct {
	db *sql.DB
}

// NewOrderRepository создаёт PostgreSQL-реализацию OrderRepository.
func NewOrderRepository(store *Store) domain.OrderRepository {
	return &orderRepository{db: store.DB()}
}

func (r *orderRepository) Create(order domain.Order) (domain.Order, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	if order.State == "" {
		order.State = domain.OrderStateDraft
	}
	if order.CreatedAt.IsZero() {
		order.CreatedAt = time.Now().UTC()
	}

	err := r.db.QueryRowContext(ctx, `
		INSERT INTO orders (client_name, product, size, qty, payment_method, state, created_at, confirmed_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
		RETURNING id
	`,
		order.ClientName, order.Product, order.Size, order.Qty,
		order.PaymentMethod, string(order.State), order.CreatedAt, order.ConfirmedAt,
	).Scan(&order.ID)
	if err != nil {
		return domain.Order{}, fmt.Errorf("insert order: %w", err)
	}

	return order, nil
}

func (r *orderRepository) Get(id int64) (domain.Order, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	order, err := scanOrder(r.db.QueryRowContext(ctx, `
		SELECT id, client_name, product, size, qty, payment_method, state, created_at, confirmed_at
		FROM orders
		WHERE id = $1
	`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Order{}, domain.ErrOrderNotFound
		}
		return domain.Order{}, fmt.Errorf("select order: %w", err)
	}

	return order, nil
}

func (r *orderRepository) ListRecent(limit int) ([]domain.Order, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	query := `
		SELECT id, client_name, product, size, qty, payment_method, state, created_at, confirmed_at
		FROM orders
		ORDER BY id DESC
	`

	var (
		rows *sql.Rows
		err  error
	)

	if limit > 0 {
		rows, err = r.db.QueryContext(ctx, query+" LIMIT $1", limit)
	} else {
		rows, err = r.db.QueryContext(ctx, query)
	}
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	defer rows.Close()

	orders := make([]domain.Order, 0)
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("scan order row: %w", err)
		}
		orders = append(orders, order)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate order rows: %w", err)
	}

	return orders, nil
}

func (r *orderRepository) Confirm(id int64) (domain.Order, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	res, err := r.db.ExecContext(ctx, `
		UPDATE orders
		SET state = $1, confirmed_at = now()
		WHERE id = $2
		  AND confirmed_at IS NULL
		  AND state = $3
	`, string(domain.OrderStateConfirmed), id, string(domain.OrderStateDraft))
	if err != nil {
		return domain.Order{}, fmt.Errorf("confirm order: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return domain.Order{}, fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		order, getErr := r.Get(id)
		if getErr != nil {
			return domain.Order{}, getErr
		}
		if order.ConfirmedAt != nil {
			return domain.Order{}, domain.ErrAlreadyConfirmed
		}
		return domain.Order{}, domain.ErrOrderLocked
	}

	return r.Get(id)
}

// SetState переводит заказ в новое состояние жизненного цикла.
// Вызывается внешними участниками процесса (контроль готовки, отмена).
func (r *orderRepository) SetState(id int64, state domain.OrderState) error {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	res, err := r.db.ExecContext(ctx, `UPDATE orders SET state = $1 WHERE id = $2`, string(state), id)
	if err != nil {
		return fmt.Errorf("set order state: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return domain.ErrOrderNotFound
	}
	return nil
}

// ApplyModification выполняет условное обновление одной транзакцией:
// строка блокируется через FOR UPDATE NOWAIT, инвариант редактирования
// перепроверяется по свежим данным, записываются только заданные поля.
// Занятая блокировка (55P03) транслируется в ErrStoreContention.
func (r *orderRepository) ApplyModification(id int64, changes domain.ChangeSet) error {
	if changes.IsEmpty() {
		return domain.ErrEmptyChangeSet
	}

	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}

	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var (
		state       string
		confirmedAt sql.NullTime
	)
	err = tx.QueryRowContext(ctx, `
		SELECT state, confirmed_at
		FROM orders
		WHERE id = $1
		FOR UPDATE NOWAIT
	`, id).Scan(&state, &confirmedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			err = domain.ErrOrderNotFound
			return err
		}
		if isLockNotAvailable(err) {
			err = domain.ErrStoreContention
			return err
		}
		return fmt.Errorf("lock order row: %w", err)
	}

	probe := domain.Order{State: domain.OrderState(state)}
	if confirmedAt.Valid {
		t := confirmedAt.Time
		probe.ConfirmedAt = &t
	}
	if err = probe.CanModify(time.Now().UTC()); err != nil {
		return err
	}

	sets, params := buildUpdate(changes)
	params = append(params, id)
	_, err = tx.ExecContext(ctx,
		fmt.Sprintf("UPDATE orders SET %s WHERE id = $%d", strings.Join(sets, ", "), len(params)),
		params...,
	)
	if err != nil {
		return fmt.Errorf("update order: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit modification: %w", err)
	}

	return nil
}

// buildUpdate собирает SET-часть запроса только из заданных полей.
func buildUpdate(changes domain.ChangeSet) (sets []string, params []any) {
	add := func(column string, value any) {
		params = append(params, value)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(params)))
	}

	if changes.ClientName != nil {
		add("client_name", *changes.ClientName)
	}
	if changes.Product != nil {
		add("product", *changes.Product)
	}
	if changes.Size != nil {
		add("size", *changes.Size)
	}
	if changes.Qty != nil {
		add("qty", *changes.Qty)
	}
	if changes.PaymentMethod != nil {
		add("payment_method", *changes.PaymentMethod)
	}
	return sets, params
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOrder(row rowScanner) (domain.Order, error) {
	var (
		order       domain.Order
		state       string
		confirmedAt sql.NullTime
	)
	if err := row.Scan(
		&order.ID, &order.ClientName, &order.Product, &order.Size, &order.Qty,
		&order.PaymentMethod, &state, &order.CreatedAt, &confirmedAt,
	); err != nil {
		return domain.Order{}, err
	}
	order.State = domain.OrderState(state)
	if confirmedAt.Valid {
		t := confirmedAt.Time
		order.ConfirmedAt = &t
	}
	return order, nil
}

func isLockNotAvailable(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgLockNotAvailable
	}
	return false
}

var _ domain.OrderRepository = (*orderRepository)(nil)
