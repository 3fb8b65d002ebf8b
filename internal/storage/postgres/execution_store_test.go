package postgres

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tradeledger/internal/domain"
	"tradeledger/internal/storage"
)

func createTestExecution(userID string, txID int64, ticker string) *domain.Execution {
	pnl := decimal.NewFromInt(25)
	return &domain.Execution{
		TransactionID:        txID,
		UserID:               userID,
		CanonicalTicker:      ticker,
		RawSymbol:            "F.US." + ticker,
		FullSymbol:           "F.US." + ticker + "U25",
		Description:          "E-Mini S&P 500",
		Exchange:             "CME",
		Side:                 domain.SideBuy,
		Quantity:             decimal.NewFromInt(2),
		PositionEffect:       decimal.NewFromInt(2),
		ExecutionPrice:       decimal.NewFromFloat(5300.25),
		OrderType:            "Market",
		Account:              "ACCT-1",
		Date:                 "08/15/2025",
		Time:                 "09:30:00.120",
		TradingDay:           "2025-08-15",
		WeekNum:              33,
		ContractExpiration:   "U25",
		ExchangeConfirmation: "conf-1",
		GWOrderID:            "gw-1",
		OrderExecID:          "exec-1",
		NotionalValue:        decimal.NewFromFloat(-530025),
		Fee:                  decimal.NewFromFloat(-4.04),
		PositionQtyAfter:     decimal.NewFromInt(2),
		LifecycleStatus:      domain.StatusOpen,
		RealizedPnL:          &pnl,
		Extra:                []domain.Field{{Name: "Orders_Route", Value: "GLOBEX"}},
		QualityFlags:         []string{"missing price"},
	}
}

func TestExecutionStore_PutAndQuery(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewExecutionStore(pool)

	execs := []*domain.Execution{
		createTestExecution("user-1", 101, "ES"),
		createTestExecution("user-1", 102, "NQ"),
		createTestExecution("user-2", 103, "ES"),
	}

	result, err := store.Put(ctx, execs)
	require.NoError(t, err)
	assert.Equal(t, 3, result.Written)
	assert.Equal(t, 0, result.Failed)

	// All executions for a user, ordered by transaction id.
	got, err := store.Query(ctx, "user-1", "")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, int64(101), got[0].TransactionID)
	assert.Equal(t, int64(102), got[1].TransactionID)

	// Scoped to a single ticker.
	got, err = store.Query(ctx, "user-1", "ES")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, int64(101), got[0].TransactionID)
	assert.Equal(t, "ES", got[0].CanonicalTicker)
}

func TestExecutionStore_RoundTripFields(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewExecutionStore(pool)

	want := createTestExecution("user-rt", 500, "MES")
	_, err := store.Put(ctx, []*domain.Execution{want})
	require.NoError(t, err)

	got, err := store.Query(ctx, "user-rt", "MES")
	require.NoError(t, err)
	require.Len(t, got, 1)

	e := got[0]
	assert.Equal(t, want.TransactionID, e.TransactionID)
	assert.Equal(t, want.RawSymbol, e.RawSymbol)
	assert.Equal(t, want.FullSymbol, e.FullSymbol)
	assert.Equal(t, want.Side, e.Side)
	assert.True(t, want.Quantity.Equal(e.Quantity), "quantity: want %s got %s", want.Quantity, e.Quantity)
	assert.True(t, want.ExecutionPrice.Equal(e.ExecutionPrice))
	assert.True(t, want.NotionalValue.Equal(e.NotionalValue))
	assert.True(t, want.Fee.Equal(e.Fee))
	assert.True(t, want.PositionQtyAfter.Equal(e.PositionQtyAfter))
	assert.Equal(t, want.Date, e.Date)
	assert.Equal(t, want.Time, e.Time)
	assert.Equal(t, want.TradingDay, e.TradingDay)
	assert.Equal(t, want.WeekNum, e.WeekNum)
	assert.Equal(t, want.LifecycleStatus, e.LifecycleStatus)
	require.NotNil(t, e.RealizedPnL)
	assert.True(t, want.RealizedPnL.Equal(*e.RealizedPnL))
	assert.Equal(t, want.Extra, e.Extra)
	assert.Equal(t, want.QualityFlags, e.QualityFlags)
}

func TestExecutionStore_PutUpsertsExistingRows(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewExecutionStore(pool)

	first := createTestExecution("user-1", 200, "ES")
	first.LifecycleStatus = domain.StatusOpen
	first.RealizedPnL = nil
	_, err := store.Put(ctx, []*domain.Execution{first})
	require.NoError(t, err)

	// Reprocessing stamps lifecycle fields onto the same transaction.
	updated := createTestExecution("user-1", 200, "ES")
	updated.LifecycleStatus = domain.StatusClose
	pnl := decimal.NewFromInt(100)
	updated.RealizedPnL = &pnl
	updated.PositionQtyAfter = decimal.Zero

	result, err := store.Put(ctx, []*domain.Execution{updated})
	require.NoError(t, err)
	assert.Equal(t, 1, result.Written)

	got, err := store.Query(ctx, "user-1", "ES")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, domain.StatusClose, got[0].LifecycleStatus)
	require.NotNil(t, got[0].RealizedPnL)
	assert.True(t, got[0].RealizedPnL.Equal(pnl))
	assert.True(t, got[0].PositionQtyAfter.IsZero())
}

func TestExecutionStore_PutCountsInvalidItems(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewExecutionStore(pool)

	execs := []*domain.Execution{
		nil,
		createTestExecution("", 301, "ES"),
		createTestExecution("user-1", 0, "ES"),
		createTestExecution("user-1", 302, "ES"),
	}

	result, err := store.Put(ctx, execs)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Written)
	assert.Equal(t, 3, result.Failed)
}

func TestExecutionStore_PutCountsRowsRejectedByServer(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewExecutionStore(pool)

	// A status outside the lifecycle check constraint is rejected per row;
	// the rest of the batch still lands and the call does not error.
	bad := createTestExecution("user-1", 401, "ES")
	bad.LifecycleStatus = "Reopened"

	execs := []*domain.Execution{
		createTestExecution("user-1", 402, "ES"),
		bad,
		createTestExecution("user-1", 403, "ES"),
	}

	result, err := store.Put(ctx, execs)
	require.NoError(t, err)
	assert.Equal(t, 2, result.Written)
	assert.Equal(t, 1, result.Failed)

	got, err := store.Query(ctx, "user-1", "ES")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, int64(402), got[0].TransactionID)
	assert.Equal(t, int64(403), got[1].TransactionID)
}

func TestExecutionStore_QueryUnknownUserReturnsEmpty(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewExecutionStore(pool)

	got, err := store.Query(ctx, "nobody", "")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestExecutionStore_QueryEmptyUserRejected(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewExecutionStore(pool)

	_, err := store.Query(ctx, "", "")
	assert.ErrorIs(t, err, storage.ErrInvalidInput)
}
