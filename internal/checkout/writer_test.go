package checkout

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/simrig-store/internal/events"
	"github.com/noah-isme/simrig-store/internal/money"
	"github.com/noah-isme/simrig-store/internal/order"
)

type execCall struct {
	sql  string
	args []any
}

// fakeTx implements the pgx.Tx methods the writer uses.
type fakeTx struct {
	pgx.Tx
	calls      []execCall
	orderRows  int64
	committed  bool
	rolledBack bool
}

func (f *fakeTx) Exec(_ context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	f.calls = append(f.calls, execCall{sql: sql, args: args})
	if strings.Contains(sql, "INSERT INTO orders") {
		if f.orderRows == 0 {
			return pgconn.NewCommandTag("INSERT 0 0"), nil
		}
		return pgconn.NewCommandTag("INSERT 0 1"), nil
	}
	return pgconn.NewCommandTag("INSERT 0 1"), nil
}

func (f *fakeTx) Commit(context.Context) error {
	f.committed = true
	return nil
}

func (f *fakeTx) Rollback(context.Context) error {
	if !f.committed {
		f.rolledBack = true
	}
	return nil
}

type fakeDB struct{ tx *fakeTx }

func (f fakeDB) BeginTx(context.Context, pgx.TxOptions) (pgx.Tx, error) {
	return f.tx, nil
}

func placedEvent() events.OrderPlaced {
	items := []order.Item{
		{ProductID: "wheel", ProductName: "Wheel Base", SKU: "WB-1", OptionIDs: []string{"rim-gt"}, Quantity: 2,
			UnitPrice: money.MustParse("145.20"), UnitSubtotal: money.MustParse("120.00"),
			LineTotal: money.MustParse("290.40"), LineSubtotal: money.MustParse("240.00"),
			Selection: []order.SelectionEntry{{Group: "Rim", Component: "GT Rim"}}},
		{ProductID: "pedals", ProductName: "Pedals", SKU: "PD-1", Quantity: 1,
			UnitPrice: money.MustParse("36.66"), UnitSubtotal: money.MustParse("33.33"),
			LineTotal: money.MustParse("36.66"), LineSubtotal: money.MustParse("33.33")},
	}
	o := order.Build("07001", items, money.MustParse("12"))
	o.ID = "order-1"
	return events.OrderPlaced{Order: o, Currency: "EUR", PlacedAt: time.Now()}
}

func TestWriterPersistsOrderAndItems(t *testing.T) {
	tx := &fakeTx{orderRows: 1}
	w := &Writer{DB: fakeDB{tx: tx}}

	require.NoError(t, w.HandleOrderPlaced(context.Background(), placedEvent()))
	require.True(t, tx.committed)
	require.Len(t, tx.calls, 3)

	orderArgs := tx.calls[0].args
	require.Equal(t, "order-1", orderArgs[0])
	require.Equal(t, "273.33", orderArgs[2])
	require.Equal(t, "12.00", orderArgs[4])

	itemArgs := tx.calls[1].args
	require.Equal(t, 1, itemArgs[1])
	require.JSONEq(t, `[{"group":"Rim","component":"GT Rim"}]`, itemArgs[6].(string))
	require.Equal(t, "290.40", itemArgs[10])
	require.Equal(t, []string{}, tx.calls[2].args[5])
}

func TestWriterSkipsExistingOrder(t *testing.T) {
	tx := &fakeTx{orderRows: 0}
	w := &Writer{DB: fakeDB{tx: tx}}

	require.NoError(t, w.HandleOrderPlaced(context.Background(), placedEvent()))
	require.Len(t, tx.calls, 1)
	require.False(t, tx.committed)
	require.True(t, tx.rolledBack)
}

func TestWriterRequiresOrderID(t *testing.T) {
	ev := placedEvent()
	ev.Order.ID = ""
	w := &Writer{DB: fakeDB{tx: &fakeTx{}}}
	require.Error(t, w.HandleOrderPlaced(context.Background(), ev))
}
