package postgresrepo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/corray333/backend-labs/ledger/internal/dal/interfaces/iorderrepo"
	"github.com/corray333/backend-labs/ledger/internal/dal/postgres"
	"github.com/corray333/backend-labs/ledger/internal/service/models/order"
	"github.com/corray333/backend-labs/ledger/internal/service/models/orderitem"
	"github.com/corray333/backend-labs/ledger/pkg/pagination"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

var orderColumns = []string{
	"id::text",
	"order_number",
	"customer_name",
	"items",
	"total_amount::text",
	"payment_method",
	"status",
	"version",
	"created_by",
	"created_at",
	"updated_at",
}

// OrderDal represents the order row.
type OrderDal struct {
	ID            string
	OrderNumber   string
	CustomerName  string
	Items         []byte
	TotalAmount   string
	PaymentMethod string
	Status        string
	Version       int
	CreatedBy     string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// ToModel converts OrderDal to the service layer Order model.
func (d *OrderDal) ToModel() (order.Order, error) {
	id, err := uuid.Parse(d.ID)
	if err != nil {
		return order.Order{}, fmt.Errorf("failed to parse order id: %w", err)
	}
	total, err := decimal.NewFromString(d.TotalAmount)
	if err != nil {
		return order.Order{}, fmt.Errorf("failed to parse total amount: %w", err)
	}
	status, err := order.ParseStatus(d.Status)
	if err != nil {
		return order.Order{}, err
	}
	method, err := order.ParsePaymentMethod(d.PaymentMethod)
	if err != nil {
		return order.Order{}, err
	}
	var items []orderitem.OrderItem
	if err := json.Unmarshal(d.Items, &items); err != nil {
		return order.Order{}, fmt.Errorf("failed to unmarshal order items: %w", err)
	}

	return order.Order{
		ID:            id,
		OrderNumber:   d.OrderNumber,
		CustomerName:  d.CustomerName,
		Items:         items,
		TotalAmount:   total,
		PaymentMethod: method,
		Status:        status,
		Version:       d.Version,
		CreatedBy:     d.CreatedBy,
		CreatedAt:     d.CreatedAt,
		UpdatedAt:     d.UpdatedAt,
	}, nil
}

// OrderDalFromModel converts the service layer Order model to OrderDal.
func OrderDalFromModel(o order.Order) (OrderDal, error) {
	items, err := json.Marshal(o.Items)
	if err != nil {
		return OrderDal{}, fmt.Errorf("failed to marshal order items: %w", err)
	}

	return OrderDal{
		ID:            o.ID.String(),
		OrderNumber:   o.OrderNumber,
		CustomerName:  o.CustomerName,
		Items:         items,
		TotalAmount:   o.TotalAmount.StringFixed(2),
		PaymentMethod: o.PaymentMethod.String(),
		Status:        o.Status.String(),
		Version:       o.Version,
		CreatedBy:     o.CreatedBy,
		CreatedAt:     o.CreatedAt,
		UpdatedAt:     o.UpdatedAt,
	}, nil
}

// PostgresOrderRepository represents a Postgres order repository.
type PostgresOrderRepository struct {
	conn postgres.GenericConn
	sb   sq.StatementBuilderType
}

var _ iorderrepo.IOrderRepository = (*PostgresOrderRepository)(nil)

// NewPostgresOrderRepository creates a new Postgres order repository.
func NewPostgresOrderRepository(conn postgres.GenericConn) *PostgresOrderRepository {
	return &PostgresOrderRepository{
		conn: conn,
		sb:   sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
	}
}

// Insert adds a new order row.
func (r *PostgresOrderRepository) Insert(ctx context.Context, o order.Order) error {
	dal, err := OrderDalFromModel(o)
	if err != nil {
		return err
	}

	query, args, err := r.sb.Insert("orders").
		Columns(
			"id",
			"order_number",
			"customer_name",
			"items",
			"total_amount",
			"payment_method",
			"status",
			"version",
			"created_by",
			"created_at",
			"updated_at",
		).
		Values(
			dal.ID,
			dal.OrderNumber,
			dal.CustomerName,
			dal.Items,
			dal.TotalAmount,
			dal.PaymentMethod,
			dal.Status,
			dal.Version,
			dal.CreatedBy,
			dal.CreatedAt,
			dal.UpdatedAt,
		).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build insert query: %w", err)
	}

	if _, err := r.conn.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to insert order: %w", err)
	}

	return nil
}

// Get loads one order, optionally locking the row.
func (r *PostgresOrderRepository) Get(ctx context.Context, id uuid.UUID, forUpdate bool) (order.Order, error) {
	builder := r.sb.Select(orderColumns...).
		From("orders").
		Where(sq.Eq{"id": id.String()})
	if forUpdate {
		builder = builder.Suffix("FOR UPDATE")
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return order.Order{}, fmt.Errorf("failed to build select query: %w", err)
	}

	dal, err := scanOrder(r.conn.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return order.Order{}, iorderrepo.ErrNotFound
		}

		return order.Order{}, fmt.Errorf("failed to get order: %w", err)
	}

	return dal.ToModel()
}

// Update overwrites the mutable columns if the stored version equals expectedVersion.
func (r *PostgresOrderRepository) Update(ctx context.Context, o order.Order, expectedVersion int) error {
	dal, err := OrderDalFromModel(o)
	if err != nil {
		return err
	}

	query, args, err := r.sb.Update("orders").
		Set("customer_name", dal.CustomerName).
		Set("items", dal.Items).
		Set("total_amount", dal.TotalAmount).
		Set("status", dal.Status).
		Set("version", dal.Version).
		Set("updated_at", dal.UpdatedAt).
		Where(sq.Eq{"id": dal.ID, "version": expectedVersion}).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build update query: %w", err)
	}

	tag, err := r.conn.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update order: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return iorderrepo.ErrVersionConflict
	}

	return nil
}

// Query returns matching orders newest first.
func (r *PostgresOrderRepository) Query(
	ctx context.Context,
	filter order.Filter,
	page *pagination.Params,
) ([]order.Order, error) {
	builder := applyFilter(r.sb.Select(orderColumns...).From("orders"), filter).
		OrderBy("created_at DESC", "order_number DESC")
	if page != nil {
		builder = builder.Limit(uint64(page.PageSize)).Offset(uint64(page.Offset()))
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build query: %w", err)
	}

	rows, err := r.conn.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query orders: %w", err)
	}
	defer rows.Close()

	result := make([]order.Order, 0)
	for rows.Next() {
		dal, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan order: %w", err)
		}
		model, err := dal.ToModel()
		if err != nil {
			return nil, fmt.Errorf("failed to convert order dal to model: %w", err)
		}
		result = append(result, model)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	return result, nil
}

// Count returns the number of matching orders.
func (r *PostgresOrderRepository) Count(ctx context.Context, filter order.Filter) (int, error) {
	query, args, err := applyFilter(r.sb.Select("COUNT(*)").From("orders"), filter).ToSql()
	if err != nil {
		return 0, fmt.Errorf("failed to build count query: %w", err)
	}

	var total int
	if err := r.conn.QueryRow(ctx, query, args...).Scan(&total); err != nil {
		return 0, fmt.Errorf("failed to count orders: %w", err)
	}

	return total, nil
}

func applyFilter(b sq.SelectBuilder, f order.Filter) sq.SelectBuilder {
	if f.Status != "" {
		b = b.Where(sq.Eq{"status": f.Status.String()})
	}
	if f.CreatedBy != "" {
		b = b.Where(sq.Eq{"created_by": f.CreatedBy})
	}
	if f.CustomerName != "" {
		b = b.Where(sq.ILike{"customer_name": "%" + escapeLike(f.CustomerName) + "%"})
	}
	if !f.From.IsZero() {
		b = b.Where(sq.GtOrEq{"created_at": f.From})
	}
	if !f.To.IsZero() {
		b = b.Where(sq.Lt{"created_at": f.To})
	}

	return b
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}

func scanOrder(row pgx.Row) (OrderDal, error) {
	var dal OrderDal
	err := row.Scan(
		&dal.ID,
		&dal.OrderNumber,
		&dal.CustomerName,
		&dal.Items,
		&dal.TotalAmount,
		&dal.PaymentMethod,
		&dal.Status,
		&dal.Version,
		&dal.CreatedBy,
		&dal.CreatedAt,
		&dal.UpdatedAt,
	)

	return dal, err
}
