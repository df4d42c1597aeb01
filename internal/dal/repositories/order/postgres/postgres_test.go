package postgresrepo

import (
	"testing"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/corray333/backend-labs/ledger/internal/service/models/order"
	"github.com/corray333/backend-labs/ledger/internal/service/models/orderitem"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOrderDal_RoundTrip(t *testing.T) {
	o := order.Order{
		ID:           uuid.New(),
		OrderNumber:  "ORD-0042",
		CustomerName: "Dana",
		Items: []orderitem.OrderItem{{
			ItemID:    "espresso",
			Quantity:  2,
			UnitPrice: decimal.RequireFromString("3.25"),
			Modifiers: []orderitem.Modifier{{Name: "double", PriceDelta: decimal.RequireFromString("1.00")}},
			LineTotal: decimal.RequireFromString("8.50"),
		}},
		TotalAmount:   decimal.RequireFromString("8.5"),
		PaymentMethod: order.PaymentCard,
		Status:        order.StatusModified,
		Version:       3,
		CreatedBy:     "cashier-7",
		CreatedAt:     time.Date(2026, 2, 1, 10, 0, 0, 0, time.UTC),
		UpdatedAt:     time.Date(2026, 2, 1, 11, 0, 0, 0, time.UTC),
	}

	dal, err := OrderDalFromModel(o)
	require.NoError(t, err)
	assert.Equal(t, "8.50", dal.TotalAmount)

	back, err := dal.ToModel()
	require.NoError(t, err)
	assert.Equal(t, o.ID, back.ID)
	assert.True(t, o.TotalAmount.Equal(back.TotalAmount))
	assert.Equal(t, o.Status, back.Status)
	require.Len(t, back.Items, 1)
	assert.True(t, back.Items[0].Modifiers[0].PriceDelta.Equal(decimal.NewFromInt(1)))
}

func TestOrderDal_RejectsUnknownStatus(t *testing.T) {
	dal := OrderDal{ID: uuid.NewString(), TotalAmount: "1.00", Status: "deleted", PaymentMethod: "cash", Items: []byte("[]")}

	_, err := dal.ToModel()
	require.ErrorIs(t, err, order.ErrInvalidStatus)
}

func TestApplyFilter(t *testing.T) {
	from := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 0, 1)
	b := sq.StatementBuilder.PlaceholderFormat(sq.Dollar).Select("id").From("orders")

	query, args, err := applyFilter(b, order.Filter{
		Status:       order.StatusModified,
		CustomerName: "50%_off",
		From:         from,
		To:           to,
	}).ToSql()
	require.NoError(t, err)

	assert.Equal(t,
		"SELECT id FROM orders WHERE status = $1 AND customer_name ILIKE $2 AND created_at >= $3 AND created_at < $4",
		query,
	)
	assert.Equal(t, []any{"modified", `%50\%\_off%`, from, to}, args)
}
